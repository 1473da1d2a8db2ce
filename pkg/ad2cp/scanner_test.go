package ad2cp

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"
)

// buildRecord assembles a complete wire record with a correct data checksum.
func buildRecord(headerSize byte, id byte, payload []byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte(SyncByte)
	buf.WriteByte(headerSize)
	buf.WriteByte(id)
	buf.WriteByte(FamilyAD2CP)
	switch headerSize {
	case HeaderSizeShort:
		binary.Write(&buf, binary.LittleEndian, uint16(len(payload)))
	case HeaderSizeLong:
		binary.Write(&buf, binary.LittleEndian, uint32(len(payload)))
	}
	binary.Write(&buf, binary.LittleEndian, Checksum(payload))
	binary.Write(&buf, binary.LittleEndian, uint16(0)) // header checksum, unverified
	buf.Write(payload)
	return buf.Bytes()
}

func scanBytes(t *testing.T, data []byte, opts ScanOptions) (*Result, error) {
	t.Helper()
	return NewScanner(bytes.NewReader(data)).Scan(context.Background(), opts)
}

func TestScanSingleRecord(t *testing.T) {
	data := buildRecord(HeaderSizeShort, IDBurst, []byte{1, 2, 3, 4})

	res, err := scanBytes(t, data, ScanOptions{})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if res.Index.Len() != 1 {
		t.Fatalf("Len = %d, want 1", res.Index.Len())
	}
	rec := res.Index.Record(0)
	if rec.Offset != 10 {
		t.Errorf("Offset = %d, want 10", rec.Offset)
	}
	if rec.Length != 4 {
		t.Errorf("Length = %d, want 4", rec.Length)
	}
	if rec.ID != IDBurst {
		t.Errorf("ID = %d, want %d", rec.ID, IDBurst)
	}
	if res.BrokenEnd {
		t.Error("BrokenEnd set for clean stream")
	}
	if res.Skipped != 0 {
		t.Errorf("Skipped = %d, want 0", res.Skipped)
	}
	if res.Bytes != uint64(len(data)) {
		t.Errorf("Bytes = %d, want %d", res.Bytes, len(data))
	}
}

func TestScanOffsetsContiguous(t *testing.T) {
	// Mix both header sizes; each payload must start right after its header.
	var data []byte
	data = append(data, buildRecord(HeaderSizeShort, IDBurst, []byte{1, 2, 3})...)
	data = append(data, buildRecord(HeaderSizeLong, IDAverage, []byte{4, 5, 6, 7, 8})...)
	data = append(data, buildRecord(HeaderSizeShort, IDString, []byte("$GPGGA\x00"))...)

	res, err := scanBytes(t, data, ScanOptions{})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if res.Index.Len() != 3 {
		t.Fatalf("Len = %d, want 3", res.Index.Len())
	}
	wantOffsets := []uint64{10, 10 + 3 + 12, 10 + 3 + 12 + 5 + 10}
	wantLengths := []uint32{3, 5, 7}
	wantIDs := []byte{IDBurst, IDAverage, IDString}
	for i := 0; i < 3; i++ {
		rec := res.Index.Record(i)
		if rec.Offset != wantOffsets[i] || rec.Length != wantLengths[i] || rec.ID != wantIDs[i] {
			t.Errorf("Record(%d) = %+v, want offset=%d length=%d id=%d",
				i, rec, wantOffsets[i], wantLengths[i], wantIDs[i])
		}
	}
}

func TestScanResyncSkipsGarbage(t *testing.T) {
	garbage := []byte{0x00, 0xFF, 0x13, 0x37, 0x00}
	data := append(append([]byte{}, garbage...),
		buildRecord(HeaderSizeShort, IDBurst, []byte{9, 9})...)

	res, err := scanBytes(t, data, ScanOptions{})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if res.Skipped != uint64(len(garbage)) {
		t.Errorf("Skipped = %d, want %d", res.Skipped, len(garbage))
	}
	// Offsets are absolute: garbage counts toward them.
	if got := res.Index.Record(0).Offset; got != uint64(len(garbage))+10 {
		t.Errorf("Offset = %d, want %d", got, len(garbage)+10)
	}
}

func TestScanNoSyncMarker(t *testing.T) {
	data := bytes.Repeat([]byte{0x42}, 256)

	res, err := scanBytes(t, data, ScanOptions{})
	if !errors.Is(err, ErrNoSyncMarker) {
		t.Fatalf("err = %v, want ErrNoSyncMarker", err)
	}
	if res != nil {
		t.Error("expected no result when the stream holds no marker")
	}
}

func TestScanChecksumMismatchFlagsBrokenEnd(t *testing.T) {
	good := buildRecord(HeaderSizeShort, IDBurst, []byte{1, 2})
	bad := buildRecord(HeaderSizeShort, IDAverage, []byte{3, 4})
	bad[len(bad)-1] ^= 0xFF // corrupt the payload after the checksum was computed
	data := append(append(append([]byte{}, good...), bad...),
		buildRecord(HeaderSizeShort, IDBottomTrack, []byte{5, 6})...)

	res, err := scanBytes(t, data, ScanOptions{})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	// The corrupt record is still indexed and scanning continues past it.
	if res.Index.Len() != 3 {
		t.Errorf("Len = %d, want 3", res.Index.Len())
	}
	if !res.BrokenEnd {
		t.Error("BrokenEnd not set after checksum mismatch")
	}
}

func TestScanToLimit(t *testing.T) {
	var data []byte
	for i := 0; i < 5; i++ {
		data = append(data, buildRecord(HeaderSizeShort, IDBurst, []byte{byte(i)})...)
	}

	res, err := scanBytes(t, data, ScanOptions{To: 2})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if res.Index.Len() != 2 {
		t.Errorf("Len = %d, want 2", res.Index.Len())
	}

	// To = 0 means the whole stream.
	res, err = scanBytes(t, data, ScanOptions{To: 0})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if res.Index.Len() != 5 {
		t.Errorf("Len with To=0 = %d, want 5", res.Index.Len())
	}
}

func TestScanToBeyondStreamEndsGracefully(t *testing.T) {
	data := buildRecord(HeaderSizeShort, IDBurst, []byte{7})

	res, err := scanBytes(t, data, ScanOptions{To: 100})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if res.Index.Len() != 1 {
		t.Errorf("Len = %d, want 1", res.Index.Len())
	}
	if res.BrokenEnd {
		t.Error("BrokenEnd set for a stream that merely ended early")
	}
}

func TestScanTruncatedPayloadKeepsEarlierRecords(t *testing.T) {
	data := append([]byte{}, buildRecord(HeaderSizeShort, IDBurst, []byte{1, 2})...)
	partial := buildRecord(HeaderSizeShort, IDAverage, []byte{3, 4, 5, 6})
	data = append(data, partial[:len(partial)-2]...) // cut inside the payload

	res, err := scanBytes(t, data, ScanOptions{})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if res.Index.Len() != 1 {
		t.Errorf("Len = %d, want 1 (truncated record discarded)", res.Index.Len())
	}
	if res.BrokenEnd {
		t.Error("BrokenEnd set by truncation; only checksum failures set it")
	}
}

func TestScanTruncatedHeaderIsFatal(t *testing.T) {
	data := append([]byte{}, buildRecord(HeaderSizeShort, IDBurst, []byte{1, 2})...)
	data = append(data, SyncByte, HeaderSizeShort, IDAverage) // header cut short

	_, err := scanBytes(t, data, ScanOptions{})
	if !errors.Is(err, ErrTruncatedHeader) {
		t.Fatalf("err = %v, want ErrTruncatedHeader", err)
	}
}

func TestScanBadSyncMidStreamIsFatal(t *testing.T) {
	rec := buildRecord(HeaderSizeShort, IDBurst, []byte{1, 2})
	// Declare a payload two bytes longer than written so the next marker
	// lands inside it and the following header starts misaligned.
	data := append([]byte{}, rec...)
	data = append(data, 0xEE, 0xEE)
	data[4] += 2 // bump the declared 16-bit data size
	data = append(data, buildRecord(HeaderSizeShort, IDAverage, []byte{3, 4})...)
	// The stray bytes shift the second decode onto a non-marker byte.
	data[len(rec)+2] = 0x00

	_, err := scanBytes(t, data, ScanOptions{})
	if !errors.Is(err, ErrBadSyncByte) {
		t.Fatalf("err = %v, want ErrBadSyncByte", err)
	}
}

func TestScanNegativeOptions(t *testing.T) {
	for _, opts := range []ScanOptions{{From: -1}, {To: -1}, {By: -1}} {
		// The reader would panic on use; rejection must come first.
		_, err := NewScanner(nil).Scan(context.Background(), opts)
		if !errors.Is(err, ErrNegativeRange) {
			t.Errorf("opts %+v: err = %v, want ErrNegativeRange", opts, err)
		}
	}
}

func TestScanCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	data := buildRecord(HeaderSizeShort, IDBurst, []byte{1, 2})
	_, err := NewScanner(bytes.NewReader(data)).Scan(ctx, ScanOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestScanUnknownIDAndFamilyStillIndexed(t *testing.T) {
	rec := buildRecord(HeaderSizeShort, 99, []byte{1, 2})
	rec[3] = 0x20 // not the AD2CP family byte
	res, err := scanBytes(t, rec, ScanOptions{})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if res.Index.Len() != 1 {
		t.Fatalf("Len = %d, want 1", res.Index.Len())
	}
	if got := res.Index.Record(0).ID; got != 99 {
		t.Errorf("ID = %d, want 99", got)
	}
}

func TestScanEmptyPayload(t *testing.T) {
	var data []byte
	data = append(data, buildRecord(HeaderSizeShort, IDString, nil)...)
	data = append(data, buildRecord(HeaderSizeShort, IDBurst, []byte{1, 2})...)

	res, err := scanBytes(t, data, ScanOptions{})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if res.Index.Len() != 2 {
		t.Fatalf("Len = %d, want 2", res.Index.Len())
	}
	if got := res.Index.Record(0).Length; got != 0 {
		t.Errorf("Length = %d, want 0", got)
	}
	if res.BrokenEnd {
		t.Error("BrokenEnd set; an empty payload checksums to the seed")
	}
}
