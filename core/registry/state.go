package registry

import (
	"bytes"
	"fmt"

	"github.com/uetools/regcache/core/cursor"
)

// RegistryState is the decoded form of one cache file: the string pool, the
// asset records, the dependency graph and the package data table, plus the
// version snapshot that fixed their layout. Decode either returns a
// complete, internally consistent state or fails with no partial state
// visible to the caller.
type RegistryState struct {
	Version  *FormatVersion
	Names    *StringPool
	Assets   []AssetRecord
	Depends  []DependsNode
	Packages []PackageDataEntry
}

// sliceCap bounds a count-prefixed preallocation by the bytes actually
// remaining in the stream, given the smallest possible entry size. A corrupt
// count still fails with an end-of-stream error once the stream runs dry;
// this only stops the decoder from allocating for entries that cannot exist.
func sliceCap(count uint32, remaining, minEntry int) int {
	limit := remaining / minEntry
	if int64(count) < int64(limit) {
		return int(count)
	}
	return limit
}

// Decode parses a registry cache blob.
func Decode(data []byte) (*RegistryState, error) {
	return DecodeWithHook(data, nil)
}

// DecodeWithHook parses a registry cache blob with a cursor instrumentation
// hook attached, for byte-trace tooling.
func DecodeWithHook(data []byte, hook cursor.Hook) (*RegistryState, error) {
	c := cursor.New(data)
	c.SetHook(hook)

	// Section order is fixed: every later section's layout and presence
	// depends on state decoded earlier in the same stream.
	version, err := DecodeVersion(c)
	if err != nil {
		return nil, fmt.Errorf("header at offset %d: %w", c.Offset(), err)
	}
	names, err := DecodeStringPool(c)
	if err != nil {
		return nil, fmt.Errorf("string pool at offset %d: %w", c.Offset(), err)
	}
	assets, err := DecodeAssetRecords(c, version, names)
	if err != nil {
		return nil, fmt.Errorf("asset records at offset %d: %w", c.Offset(), err)
	}
	depends, err := DecodeDependsNodes(c, version)
	if err != nil {
		return nil, fmt.Errorf("dependency graph at offset %d: %w", c.Offset(), err)
	}
	packages, err := DecodePackageData(c, version, names)
	if err != nil {
		return nil, fmt.Errorf("package data at offset %d: %w", c.Offset(), err)
	}

	return &RegistryState{
		Version:  version,
		Names:    names,
		Assets:   assets,
		Depends:  depends,
		Packages: packages,
	}, nil
}

// Encode serializes the state back to bytes. Encoding a state decoded from
// a valid file reproduces the original bytes exactly; it fails only when a
// hand-built state holds values the selected wire variant cannot carry.
func (s *RegistryState) Encode() ([]byte, error) {
	return s.EncodeWithHook(nil)
}

// EncodeWithHook serializes with a cursor instrumentation hook attached.
func (s *RegistryState) EncodeWithHook(hook cursor.Hook) ([]byte, error) {
	c := cursor.NewWriter()
	c.SetHook(hook)
	s.Version.Encode(c)
	s.Names.Encode(c)
	EncodeAssetRecords(c, s.Version, s.Assets)
	if err := EncodeDependsNodes(c, s.Version, s.Depends); err != nil {
		return nil, fmt.Errorf("dependency graph: %w", err)
	}
	EncodePackageData(c, s.Version, s.Packages)
	return c.Bytes(), nil
}

// VerifyRoundTrip decodes data, re-encodes the result and byte-compares it
// against the input. A mismatch error names the first differing offset.
func VerifyRoundTrip(data []byte) error {
	state, err := Decode(data)
	if err != nil {
		return err
	}
	out, err := state.Encode()
	if err != nil {
		return err
	}
	if bytes.Equal(out, data) {
		return nil
	}
	n := len(data)
	if len(out) < n {
		n = len(out)
	}
	at := n
	for i := 0; i < n; i++ {
		if out[i] != data[i] {
			at = i
			break
		}
	}
	return fmt.Errorf("round trip mismatch at offset %d: input %d bytes, output %d bytes", at, len(data), len(out))
}
