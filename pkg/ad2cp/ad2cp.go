// Package ad2cp locates ensemble records in Nortek AD2CP capture streams.
//
// An AD2CP capture is a sequence of self-framed records: a 10- or 12-byte
// header opened by the sync byte 0xA5, followed by an opaque data payload
// whose size and checksum the header declares. The package scans a stream
// once, verifies record framing, and produces a compact positional index
// (payload offset, payload length, record id) that lets callers seek
// straight to any record without re-reading the file.
//
// Payload contents (velocities, amplitudes, NMEA strings) are never
// interpreted here.
package ad2cp

// SyncByte opens every AD2CP record header.
const SyncByte = 0xA5

// FamilyAD2CP is the instrument family tag carried by every record of the
// one family this package supports. The field is recorded but not enforced.
const FamilyAD2CP = 0x10

// Record ids named in the integrators guide.
const (
	IDBurst            = 21  // Burst Data Record
	IDAverage          = 22  // Average Data Record
	IDBottomTrack      = 23  // Bottom Track Data Record
	IDInterleavedBurst = 24  // Interleaved Burst Data Record (beam 5)
	IDString           = 160 // String Data Record, e.g. GPS NMEA data
)

// knownIDs is the set of record ids the instrument is documented to emit.
// An id outside the set is diagnosed, never rejected: firmware revisions
// add ids faster than documentation does.
var knownIDs = map[byte]struct{}{
	21: {}, 22: {}, 23: {}, 24: {},
	26: {}, 27: {}, 28: {}, 29: {}, 30: {}, 31: {},
	160: {},
}

// KnownID reports whether id is a documented AD2CP record id.
func KnownID(id byte) bool {
	_, ok := knownIDs[id]
	return ok
}
