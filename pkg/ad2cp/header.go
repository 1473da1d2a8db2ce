package ad2cp

import (
	"errors"
	"fmt"
	"io"
)

// Header sizes the wire format allows. A 10-byte header carries a 16-bit
// data size, a 12-byte header a 32-bit one; everything else is identical.
const (
	HeaderSizeShort = 10
	HeaderSizeLong  = 12
)

// Header is the decoded framing metadata of one ensemble record.
type Header struct {
	Sync           byte
	Size           uint8 // 10 or 12
	ID             byte
	Family         byte
	DataSize       uint32
	DataChecksum   uint16
	HeaderChecksum uint16 // decoded, never verified; the vendor ships this check disabled
}

// decodeHeader consumes exactly hdr.Size bytes from r. Multi-byte fields
// are little-endian. The stream ending inside the header is reported as
// ErrTruncatedHeader with the offset where decoding began.
func decodeHeader(r *reader) (Header, error) {
	start := r.offset()
	var h Header
	var err error

	if h.Sync, err = r.u8(); err != nil {
		return h, truncated("sync", start, err)
	}
	if h.Sync != SyncByte {
		return h, fmt.Errorf("got 0x%02x at offset %d: %w", h.Sync, start, ErrBadSyncByte)
	}
	if h.Size, err = r.u8(); err != nil {
		return h, truncated("header size", start, err)
	}
	if h.Size < 2 {
		return h, fmt.Errorf("header size %d at offset %d: %w", h.Size, start, ErrImpossibleHeaderSize)
	}
	if h.ID, err = r.u8(); err != nil {
		return h, truncated("id", start, err)
	}
	if h.Family, err = r.u8(); err != nil {
		return h, truncated("family", start, err)
	}

	switch h.Size {
	case HeaderSizeShort:
		size16, err := r.u16()
		if err != nil {
			return h, truncated("16-bit data size", start, err)
		}
		h.DataSize = uint32(size16)
	case HeaderSizeLong:
		if h.DataSize, err = r.u32(); err != nil {
			return h, truncated("32-bit data size", start, err)
		}
	default:
		return h, fmt.Errorf("header size %d at offset %d: %w", h.Size, start, ErrUnsupportedHeaderSize)
	}

	if h.DataChecksum, err = r.u16(); err != nil {
		return h, truncated("data checksum", start, err)
	}
	if h.HeaderChecksum, err = r.u16(); err != nil {
		return h, truncated("header checksum", start, err)
	}
	return h, nil
}

func truncated(field string, offset uint64, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("reading %s in header at offset %d: %w", field, offset, ErrTruncatedHeader)
	}
	return fmt.Errorf("reading %s in header at offset %d: %w", field, offset, err)
}
