package format

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
)

// ArrayWriter writes one column file: a header followed by fixed-width
// little-endian elements.
type ArrayWriter struct {
	file   *os.File
	writer *bufio.Writer
	count  uint64
	width  uint32
}

// NewArrayWriter creates a writer for a column file.
func NewArrayWriter(path string, width uint32) (*ArrayWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create array file: %w", err)
	}

	w := bufio.NewWriter(f)

	// Write placeholder header (will be updated on close)
	header := EncodeHeader(Header{
		Magic:   MagicNumber,
		Version: Version,
		Count:   0,
		Width:   width,
	})
	if _, err := w.Write(header); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write header: %w", err)
	}

	return &ArrayWriter{
		file:   f,
		writer: w,
		count:  0,
		width:  width,
	}, nil
}

// WriteU16 writes a uint16 value.
func (w *ArrayWriter) WriteU16(val uint16) error {
	if w.width != 2 {
		return fmt.Errorf("width mismatch: expected 2, got %d", w.width)
	}
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], val)
	if _, err := w.writer.Write(buf[:]); err != nil {
		return fmt.Errorf("write u16: %w", err)
	}
	w.count++
	return nil
}

// WriteU32 writes a uint32 value.
func (w *ArrayWriter) WriteU32(val uint32) error {
	if w.width != 4 {
		return fmt.Errorf("width mismatch: expected 4, got %d", w.width)
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], val)
	if _, err := w.writer.Write(buf[:]); err != nil {
		return fmt.Errorf("write u32: %w", err)
	}
	w.count++
	return nil
}

// WriteU64 writes a uint64 value.
func (w *ArrayWriter) WriteU64(val uint64) error {
	if w.width != 8 {
		return fmt.Errorf("width mismatch: expected 8, got %d", w.width)
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], val)
	if _, err := w.writer.Write(buf[:]); err != nil {
		return fmt.Errorf("write u64: %w", err)
	}
	w.count++
	return nil
}

// Count returns the number of elements written.
func (w *ArrayWriter) Count() uint64 {
	return w.count
}

// Close flushes, updates the header with the correct count, and closes.
func (w *ArrayWriter) Close() error {
	if err := w.writer.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("flush: %w", err)
	}

	// Seek back and update header with correct count
	if _, err := w.file.Seek(0, 0); err != nil {
		w.file.Close()
		return fmt.Errorf("seek: %w", err)
	}

	header := EncodeHeader(Header{
		Magic:   MagicNumber,
		Version: Version,
		Count:   w.count,
		Width:   w.width,
	})
	if _, err := w.file.Write(header); err != nil {
		w.file.Close()
		return fmt.Errorf("update header: %w", err)
	}

	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}
