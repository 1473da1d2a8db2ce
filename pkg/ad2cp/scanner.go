package ad2cp

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/DocOtak/ad2cp-index/internal/logctx"
)

// ScanOptions carries the host-wrapper invocation parameters. From and By
// use the caller's 1-based sequence convention and are validated here but
// applied by the caller via IndexTable.Slice, matching the reference
// locator, which accepted them without consuming them. To is the number of
// records to index; To <= 0 means the whole stream (the wrapper translates
// its "0 means all" sentinel to that).
type ScanOptions struct {
	From int
	To   int
	By   int
}

// Result is everything a scan reports back.
type Result struct {
	// Index lists each completed record in stream order. Offsets count
	// from the start of the stream as given, leading garbage included.
	Index *IndexTable
	// BrokenEnd is set when at least one fully-read payload failed its
	// data checksum. Truncation at end of stream does not set it.
	BrokenEnd bool
	// Skipped is the number of garbage bytes before the first sync marker.
	Skipped uint64
	// Bytes is the total number of bytes the scan consumed.
	Bytes uint64
}

// Scanner indexes one AD2CP stream. It owns a reusable payload buffer
// that grows to the largest record seen and never shrinks, so scanning is
// bounded-memory regardless of capture size. A Scanner is single-use and
// not safe for concurrent use.
type Scanner struct {
	r       *reader
	payload []byte
}

// NewScanner returns a scanner over r. The stream may begin mid-record;
// the first scan resynchronizes on the next marker byte.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: newReader(r)}
}

// Scan walks the stream record by record until opts.To records are
// indexed or the stream ends. Header-level corruption aborts the scan
// with an error and no index; a payload cut short by end of stream ends
// it gracefully with the completed records. ctx is checked once per
// record so large captures can be cancelled.
func (s *Scanner) Scan(ctx context.Context, opts ScanOptions) (*Result, error) {
	if opts.From < 0 || opts.To < 0 || opts.By < 0 {
		return nil, fmt.Errorf("from=%d to=%d by=%d: %w", opts.From, opts.To, opts.By, ErrNegativeRange)
	}
	logger := logctx.FromContext(ctx)

	limit := opts.To
	if limit <= 0 {
		limit = int(^uint(0) >> 1)
	}

	res := &Result{Index: &IndexTable{}}

	skipped, err := s.r.sync()
	if err != nil {
		return nil, err
	}
	res.Skipped = skipped
	if skipped > 0 {
		logger.Debug().Uint64("skipped_bytes", skipped).Msg("resynchronized to first marker")
	}

	for chunk := 0; chunk < limit; chunk++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		// Peek for a clean end of stream at the record boundary before
		// committing to a header decode.
		if _, err := s.r.br.Peek(1); err == io.EOF {
			break
		}

		hdr, err := decodeHeader(s.r)
		if err != nil {
			return nil, err
		}

		offset := s.r.offset()
		res.Index.append(offset, hdr.DataSize, hdr.ID)

		if !KnownID(hdr.ID) {
			logger.Debug().Uint64("offset", offset).Uint8("id", hdr.ID).
				Msg("unrecognized record id")
		}
		if hdr.Family != FamilyAD2CP {
			logger.Debug().Uint64("offset", offset).Uint8("family", hdr.Family).
				Msg("unexpected instrument family")
		}
		logger.Trace().Int("record", chunk).Uint64("offset", offset).
			Uint8("id", hdr.ID).Uint32("data_size", hdr.DataSize).
			Msg("decoded header")

		if cap(s.payload) < int(hdr.DataSize) {
			s.payload = make([]byte, hdr.DataSize)
		}
		s.payload = s.payload[:hdr.DataSize]

		if err := s.r.readFull(s.payload); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				// The stream ended inside the payload. The in-progress
				// record is discarded; earlier records stand.
				logger.Warn().Uint64("offset", offset).Uint32("wanted", hdr.DataSize).
					Msg("capture ends inside payload")
				res.Index.truncate(chunk)
				break
			}
			return nil, fmt.Errorf("reading payload at offset %d: %w", offset, err)
		}

		if got := Checksum(s.payload); got != hdr.DataChecksum {
			logger.Warn().Uint64("offset", offset).
				Uint16("computed", got).Uint16("declared", hdr.DataChecksum).
				Msg("data checksum mismatch")
			res.BrokenEnd = true
		}
	}

	res.Bytes = s.r.offset()
	return res, nil
}

// ScanReader is a convenience wrapper: index everything in r with default
// options and the given context.
func ScanReader(ctx context.Context, r io.Reader) (*Result, error) {
	return NewScanner(r).Scan(ctx, ScanOptions{})
}
