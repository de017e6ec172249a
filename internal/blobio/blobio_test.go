package blobio

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// TestRawRoundTrip verifies uncompressed bytes pass through untouched.
func TestRawRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.bin")
	data := []byte{8, 0, 0, 0, 0, 0, 0, 0}

	if err := WriteFile(path, data); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	back, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !bytes.Equal(back, data) {
		t.Errorf("round trip = % x, want % x", back, data)
	}
}

// TestGzipRoundTrip verifies a .gz path compresses on write and the reader
// sniffs and decompresses by magic bytes.
func TestGzipRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.bin.gz")
	data := bytes.Repeat([]byte("asset"), 200)

	if err := WriteFile(path, data); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	onDisk, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(onDisk, gzipMagic) {
		t.Fatalf("on-disk bytes lack gzip magic: % x", onDisk[:4])
	}

	back, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !bytes.Equal(back, data) {
		t.Error("gzip round trip mismatch")
	}
}

// TestXZRoundTrip verifies the same for .xz.
func TestXZRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.bin.xz")
	data := bytes.Repeat([]byte{0xab, 0xcd}, 500)

	if err := WriteFile(path, data); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	onDisk, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(onDisk, xzMagic) {
		t.Fatalf("on-disk bytes lack xz magic: % x", onDisk[:6])
	}

	back, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !bytes.Equal(back, data) {
		t.Error("xz round trip mismatch")
	}
}

// TestReadMissingFile verifies a useful error for a missing path.
func TestReadMissingFile(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.bin"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
