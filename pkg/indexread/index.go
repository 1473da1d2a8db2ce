// Package indexread provides read-only access to persisted scan indexes.
//
// An index directory holds one column file per record attribute plus a
// manifest. Opening maps the columns into memory, so record lookups are
// O(1) and cost no read syscalls, which is the whole point of indexing a
// multi-gigabyte capture once.
package indexread

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/DocOtak/ad2cp-index/pkg/ad2cp"
	"github.com/DocOtak/ad2cp-index/pkg/format"
)

// Index provides low-latency access to a persisted capture index via mmap.
//
// Thread Safety: Index is safe for concurrent read access from multiple
// goroutines. Close should only be called once, after all read operations
// have completed.
type Index struct {
	offsets  *format.ArrayReader
	lengths  *format.ArrayReader
	ids      *format.ArrayReader
	manifest *format.Manifest
	count    uint64
}

// Open opens an index from the given directory.
func Open(dir string) (*Index, error) {
	var idx Index
	var err error

	idx.manifest, err = format.ReadManifest(dir)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}

	idx.offsets, err = format.OpenArray(filepath.Join(dir, format.OffsetFile))
	if err != nil {
		return nil, fmt.Errorf("open offsets: %w", err)
	}

	idx.lengths, err = format.OpenArray(filepath.Join(dir, format.LengthFile))
	if err != nil {
		idx.Close()
		return nil, fmt.Errorf("open lengths: %w", err)
	}

	idx.ids, err = format.OpenArray(filepath.Join(dir, format.IDFile))
	if err != nil {
		idx.Close()
		return nil, fmt.Errorf("open ids: %w", err)
	}

	if idx.offsets.Count() != idx.lengths.Count() || idx.offsets.Count() != idx.ids.Count() {
		idx.Close()
		return nil, format.ErrColumnMismatch
	}

	idx.count = idx.offsets.Count()
	return &idx, nil
}

// closer is an interface for types with a Close method.
type closer interface {
	Close() error
}

// closeAll closes multiple resources and returns the first error encountered.
func closeAll(closers ...closer) error {
	var firstErr error
	for _, c := range closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close releases all resources.
func (idx *Index) Close() error {
	closers := make([]closer, 0, 3)
	if idx.offsets != nil {
		closers = append(closers, idx.offsets)
	}
	if idx.lengths != nil {
		closers = append(closers, idx.lengths)
	}
	if idx.ids != nil {
		closers = append(closers, idx.ids)
	}
	return closeAll(closers...)
}

// Len returns the number of indexed records.
func (idx *Index) Len() uint64 {
	return idx.count
}

// BrokenEnd reports whether the original scan saw a data checksum failure.
func (idx *Index) BrokenEnd() bool {
	return idx.manifest.BrokenEnd
}

// Manifest returns the manifest the index was opened with.
func (idx *Index) Manifest() *format.Manifest {
	return idx.manifest
}

// Lookup returns record i: where its payload starts in the capture, how
// long it is, and its record id.
func (idx *Index) Lookup(i uint64) (ad2cp.Record, error) {
	offset, err := idx.offsets.GetU64(i)
	if err != nil {
		return ad2cp.Record{}, fmt.Errorf("lookup offset %d: %w", i, err)
	}
	length, err := idx.lengths.GetU32(i)
	if err != nil {
		return ad2cp.Record{}, fmt.Errorf("lookup length %d: %w", i, err)
	}
	id, err := idx.ids.GetU16(i)
	if err != nil {
		return ad2cp.Record{}, fmt.Errorf("lookup id %d: %w", i, err)
	}
	return ad2cp.Record{Offset: offset, Length: length, ID: byte(id)}, nil
}

// ReadRecord seeks into the capture the index was built from and returns
// record i's payload, verified against the data checksum declared in the
// record header. The declared checksum occupies the four header bytes
// immediately before the payload (data checksum then header checksum),
// which is what lets this re-verify without knowing the header width.
func (idx *Index) ReadRecord(capture io.ReaderAt, i uint64) ([]byte, error) {
	rec, err := idx.Lookup(i)
	if err != nil {
		return nil, err
	}
	if rec.Offset < 4 {
		return nil, fmt.Errorf("record %d: offset %d leaves no room for a header", i, rec.Offset)
	}

	var trailer [4]byte
	if _, err := capture.ReadAt(trailer[:], int64(rec.Offset)-4); err != nil {
		return nil, fmt.Errorf("record %d: read header trailer: %w", i, err)
	}
	declared := uint16(trailer[0]) | uint16(trailer[1])<<8

	payload := make([]byte, rec.Length)
	if _, err := capture.ReadAt(payload, int64(rec.Offset)); err != nil {
		return nil, fmt.Errorf("record %d: read payload: %w", i, err)
	}

	if got := ad2cp.Checksum(payload); got != declared {
		return payload, fmt.Errorf("record %d: data checksum %#04x, declared %#04x", i, got, declared)
	}
	return payload, nil
}
