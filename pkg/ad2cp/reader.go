package ad2cp

import (
	"bufio"
	"fmt"
	"io"
)

// reader is a positioned little-endian reader over a sequential stream.
// The position is the single source of truth for byte offsets reported in
// the index and in errors.
type reader struct {
	br  *bufio.Reader
	pos uint64
}

func newReader(r io.Reader) *reader {
	return &reader{br: bufio.NewReader(r)}
}

// offset returns the number of bytes consumed so far.
func (r *reader) offset() uint64 {
	return r.pos
}

// readFull reads exactly len(buf) bytes. The position advances by the
// bytes actually consumed, so a short read still leaves it accurate.
func (r *reader) readFull(buf []byte) error {
	n, err := io.ReadFull(r.br, buf)
	r.pos += uint64(n)
	return err
}

func (r *reader) u8() (byte, error) {
	b, err := r.br.ReadByte()
	if err != nil {
		return 0, err
	}
	r.pos++
	return b, nil
}

func (r *reader) u16() (uint16, error) {
	var buf [2]byte
	if err := r.readFull(buf[:]); err != nil {
		return 0, err
	}
	return uint16(buf[0]) | uint16(buf[1])<<8, nil
}

func (r *reader) u32() (uint32, error) {
	var buf [4]byte
	if err := r.readFull(buf[:]); err != nil {
		return 0, err
	}
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24, nil
}

// sync advances the stream to the next sync byte, leaving that byte
// unconsumed, and returns the number of bytes skipped. A capture fragment
// that starts mid-record is repositioned to its first whole record this
// way; a well-formed capture skips nothing.
func (r *reader) sync() (uint64, error) {
	var skipped uint64
	for {
		b, err := r.br.ReadByte()
		if err == io.EOF {
			return skipped, fmt.Errorf("scanned %d bytes: %w", skipped, ErrNoSyncMarker)
		}
		if err != nil {
			return skipped, fmt.Errorf("sync scan at offset %d: %w", r.pos, err)
		}
		if b == SyncByte {
			if err := r.br.UnreadByte(); err != nil {
				return skipped, err
			}
			return skipped, nil
		}
		r.pos++
		skipped++
	}
}
