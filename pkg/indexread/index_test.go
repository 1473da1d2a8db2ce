package indexread

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DocOtak/ad2cp-index/pkg/ad2cp"
	"github.com/DocOtak/ad2cp-index/pkg/format"
)

// buildCapture assembles a wire capture from (id, payload) pairs with
// 10-byte headers and correct data checksums.
func buildCapture(records ...[]byte) []byte {
	var data []byte
	for i := 0; i+1 < len(records); i += 2 {
		id := records[i][0]
		payload := records[i+1]
		sum := ad2cp.Checksum(payload)
		data = append(data,
			0xA5, 10, id, 0x10,
			byte(len(payload)), byte(len(payload)>>8),
			byte(sum), byte(sum>>8),
			0, 0,
		)
		data = append(data, payload...)
	}
	return data
}

// writeTestIndex scans capture and persists the result to a fresh directory.
func writeTestIndex(t *testing.T, capture []byte) string {
	t.Helper()
	res, err := ad2cp.ScanReader(context.Background(), bytes.NewReader(capture))
	if err != nil {
		t.Fatalf("scan fixture: %v", err)
	}
	dir := filepath.Join(t.TempDir(), "index")
	if err := format.WriteIndex(dir, res); err != nil {
		t.Fatalf("write fixture index: %v", err)
	}
	return dir
}

func TestOpenAndLookup(t *testing.T) {
	capture := buildCapture(
		[]byte{21}, []byte{1, 2, 3, 4},
		[]byte{22}, []byte{5, 6},
		[]byte{160}, []byte("$GPGGA,fix\r\n"),
	)
	dir := writeTestIndex(t, capture)

	idx, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer idx.Close()

	if idx.Len() != 3 {
		t.Fatalf("Len = %d, want 3", idx.Len())
	}
	if idx.BrokenEnd() {
		t.Error("BrokenEnd set for clean capture")
	}
	if idx.Manifest().RecordCount != 3 {
		t.Errorf("manifest RecordCount = %d, want 3", idx.Manifest().RecordCount)
	}

	wants := []ad2cp.Record{
		{Offset: 10, Length: 4, ID: 21},
		{Offset: 24, Length: 2, ID: 22},
		{Offset: 36, Length: 12, ID: 160},
	}
	for i, want := range wants {
		got, err := idx.Lookup(uint64(i))
		if err != nil {
			t.Fatalf("Lookup(%d): %v", i, err)
		}
		if got != want {
			t.Errorf("Lookup(%d) = %+v, want %+v", i, got, want)
		}
	}

	if _, err := idx.Lookup(3); err == nil {
		t.Error("Lookup past the end should fail")
	}
}

func TestOpenMissingDir(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("Open should fail on a missing directory")
	}
}

func TestReadRecord(t *testing.T) {
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	capture := buildCapture(
		[]byte{21}, payload,
		[]byte{22}, []byte{7, 8},
	)
	dir := writeTestIndex(t, capture)

	idx, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer idx.Close()

	got, err := idx.ReadRecord(bytes.NewReader(capture), 0)
	if err != nil {
		t.Fatalf("ReadRecord failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload = %x, want %x", got, payload)
	}
}

func TestReadRecordDetectsCorruption(t *testing.T) {
	capture := buildCapture(
		[]byte{21}, []byte{1, 2, 3, 4},
	)
	dir := writeTestIndex(t, capture)

	idx, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer idx.Close()

	// Flip a payload byte after indexing, as if the capture rotted on disk.
	corrupted := append([]byte(nil), capture...)
	corrupted[len(corrupted)-1] ^= 0xFF

	_, err = idx.ReadRecord(bytes.NewReader(corrupted), 0)
	if err == nil {
		t.Fatal("ReadRecord should fail on a corrupted payload")
	}
	if !strings.Contains(err.Error(), "checksum") {
		t.Errorf("expected checksum error, got: %v", err)
	}
}
