// Package blobio acquires registry cache bytes from disk. Cooked registries
// are sometimes shipped gzip- or xz-compressed next to the raw .bin, so
// reads sniff the compression by magic bytes and decompress into memory.
// The codec itself always operates on a fully resident buffer.
package blobio

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ulikunitz/xz"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	xzMagic   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

// ReadFile reads path and returns the decompressed registry bytes. The
// file handle is released on every path, including decode failure.
func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open registry blob: %w", err)
	}
	defer f.Close()
	return readAll(f, path)
}

func readAll(f io.Reader, path string) ([]byte, error) {
	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read registry blob: %w", err)
	}

	switch {
	case bytes.HasPrefix(raw, xzMagic):
		xzr, err := xz.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("xz reader: %w", err)
		}
		data, err := io.ReadAll(xzr)
		if err != nil {
			return nil, fmt.Errorf("xz decompress %s: %w", path, err)
		}
		return data, nil
	case bytes.HasPrefix(raw, gzipMagic):
		gzr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer gzr.Close()
		data, err := io.ReadAll(gzr)
		if err != nil {
			return nil, fmt.Errorf("gzip decompress %s: %w", path, err)
		}
		return data, nil
	default:
		return raw, nil
	}
}

// WriteFile writes registry bytes to path, compressing by extension:
// .xz and .gz are compressed, anything else is written raw.
func WriteFile(path string, data []byte) error {
	var buf bytes.Buffer

	switch {
	case strings.HasSuffix(path, ".xz"):
		xzw, err := xz.NewWriter(&buf)
		if err != nil {
			return fmt.Errorf("xz writer: %w", err)
		}
		if _, err := xzw.Write(data); err != nil {
			return fmt.Errorf("xz compress: %w", err)
		}
		if err := xzw.Close(); err != nil {
			return fmt.Errorf("xz close: %w", err)
		}
	case strings.HasSuffix(path, ".gz"):
		gzw := gzip.NewWriter(&buf)
		if _, err := gzw.Write(data); err != nil {
			return fmt.Errorf("gzip compress: %w", err)
		}
		if err := gzw.Close(); err != nil {
			return fmt.Errorf("gzip close: %w", err)
		}
	default:
		buf.Write(data)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write registry blob: %w", err)
	}
	return nil
}
