package format

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/DocOtak/ad2cp-index/pkg/ad2cp"
	"github.com/DocOtak/ad2cp-index/pkg/fileutil"
)

// WriteIndex persists a scan result to dir as three column files plus a
// manifest. Each column is written to a temporary file and moved into
// place atomically, so a crashed write never leaves a half-valid column
// behind; the manifest is written last and marks the directory complete.
func WriteIndex(dir string, res *ad2cp.Result) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	// Scrub temp files a crashed earlier write may have left behind.
	if err := fileutil.CleanupTmpFiles(dir); err != nil {
		return fmt.Errorf("clean stale tmp files: %w", err)
	}
	tmpDir := filepath.Join(dir, ".tmp")

	write := func(name string, width uint32, emit func(w *ArrayWriter) error) error {
		return fileutil.WriteTmpThenMove(tmpDir, filepath.Join(dir, name), func(tmpPath string) error {
			w, err := NewArrayWriter(tmpPath, width)
			if err != nil {
				return err
			}
			if err := emit(w); err != nil {
				w.Close()
				return err
			}
			return w.Close()
		})
	}

	idx := res.Index
	err := write(OffsetFile, 8, func(w *ArrayWriter) error {
		for _, v := range idx.Offsets() {
			if err := w.WriteU64(v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", OffsetFile, err)
	}

	err = write(LengthFile, 4, func(w *ArrayWriter) error {
		for _, v := range idx.Lengths() {
			if err := w.WriteU32(v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", LengthFile, err)
	}

	err = write(IDFile, 2, func(w *ArrayWriter) error {
		for _, v := range idx.IDs() {
			if err := w.WriteU16(uint16(v)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", IDFile, err)
	}

	if err := WriteManifest(dir, uint64(idx.Len()), res.BrokenEnd, res.Skipped); err != nil {
		return err
	}

	os.RemoveAll(tmpDir)
	return nil
}
