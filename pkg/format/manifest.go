package format

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// ManifestVersion is the current manifest format version.
const ManifestVersion = 1

// Manifest describes the contents of an index directory.
type Manifest struct {
	Version      int                 `json:"version"`
	CreatedAt    time.Time           `json:"created_at"`
	RecordCount  uint64              `json:"record_count"`
	BrokenEnd    bool                `json:"broken_end"`
	SkippedBytes uint64              `json:"skipped_bytes"`
	Files        map[string]FileInfo `json:"files"`
}

// FileInfo describes a single file in the index.
type FileInfo struct {
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"` // SHA-256 hex
}

// WriteManifest creates a manifest covering the column files in dir.
func WriteManifest(dir string, recordCount uint64, brokenEnd bool, skippedBytes uint64) error {
	manifest := Manifest{
		Version:      ManifestVersion,
		CreatedAt:    time.Now().UTC(),
		RecordCount:  recordCount,
		BrokenEnd:    brokenEnd,
		SkippedBytes: skippedBytes,
		Files:        make(map[string]FileInfo),
	}

	for _, name := range []string{OffsetFile, LengthFile, IDFile} {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", name, err)
		}

		checksum, err := checksumFile(path)
		if err != nil {
			return fmt.Errorf("checksum %s: %w", name, err)
		}

		manifest.Files[name] = FileInfo{
			Size:     info.Size(),
			Checksum: checksum,
		}
	}

	manifestPath := filepath.Join(dir, "manifest.json")
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	if err := writeFileSync(manifestPath, data); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

// ReadManifest reads the manifest from the index directory.
func ReadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "manifest.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}

	return &manifest, nil
}

// VerifyManifest checks that all files match their recorded checksums.
func VerifyManifest(dir string, manifest *Manifest) error {
	for name, info := range manifest.Files {
		path := filepath.Join(dir, name)

		stat, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("file %s: %w", name, err)
		}

		if stat.Size() != info.Size {
			return fmt.Errorf("file %s: size mismatch (got %d, want %d)",
				name, stat.Size(), info.Size)
		}

		checksum, err := checksumFile(path)
		if err != nil {
			return fmt.Errorf("checksum %s: %w", name, err)
		}

		if checksum != info.Checksum {
			return fmt.Errorf("file %s: checksum mismatch", name)
		}
	}

	return nil
}

// checksumFile computes the SHA-256 checksum of a file.
func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// writeFileSync writes data and syncs it to disk.
func writeFileSync(path string, data []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
