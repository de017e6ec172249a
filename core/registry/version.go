// Package registry implements the binary codec for the engine's persisted
// asset-registry cache: the version-gated header, the deduplicated string
// pool, the per-asset metadata records, the index-based dependency graph,
// and the package data table.
//
// The format is undocumented and version-gated. Every field-presence and
// encoding-variant decision is centralized in FormatVersion; no other file
// in this package branches on raw version numbers.
package registry

import (
	"github.com/google/uuid"

	"github.com/uetools/regcache/core/cursor"
)

// Version is the overall format ordinal written at the start of the file.
type Version uint32

// Overall format ordinals, in historical order. Only SupportedVersion is
// accepted; the rest are enumerated so diagnostics can name what was found.
const (
	// VersionPreVersioning predates file versioning.
	VersionPreVersioning Version = iota
	// VersionHardSoftDependencies is the first versioned revision.
	VersionHardSoftDependencies
	// VersionAddAssetRegistryState added piecemeal state serialization.
	VersionAddAssetRegistryState
	// VersionChangedAssetData reshaped asset data; older data is unreadable.
	VersionChangedAssetData
	// VersionRemovedMD5Hash removed the MD5 hash from package data.
	VersionRemovedMD5Hash
	// VersionAddedHardManage added hard/soft manage references.
	VersionAddedHardManage
	// VersionAddedCookedMD5Hash added the cooked package hash.
	VersionAddedCookedMD5Hash
	// VersionAddedDependencyFlags added per-dependency property flags.
	VersionAddedDependencyFlags
	// VersionFixedTags is the major tag format change shipped with 4.27.
	VersionFixedTags
)

// SupportedVersion is the single pinned revision this codec targets.
const SupportedVersion = VersionFixedTags

var versionNames = map[Version]string{
	VersionPreVersioning:         "PreVersioning",
	VersionHardSoftDependencies:  "HardSoftDependencies",
	VersionAddAssetRegistryState: "AddAssetRegistryState",
	VersionChangedAssetData:      "ChangedAssetData",
	VersionRemovedMD5Hash:        "RemovedMD5Hash",
	VersionAddedHardManage:       "AddedHardManage",
	VersionAddedCookedMD5Hash:    "AddedCookedMD5Hash",
	VersionAddedDependencyFlags:  "AddedDependencyFlags",
	VersionFixedTags:             "FixedTags",
}

func (v Version) String() string {
	if name, ok := versionNames[v]; ok {
		return name
	}
	return "Unknown"
}

// Custom-version keys observed in cache files for the pinned revision.
// RegistryVersionKey is the engine's own asset-registry version guid; the
// subsystem keys and their thresholds below were determined empirically by
// trial decoding and are marked confirmed only once validated against
// known-good cooked data.
var (
	// RegistryVersionKey tags the asset-registry serializer itself.
	RegistryVersionKey = uuid.MustParse("717f9ee7-e9b0-493a-88b3-91321b388107")

	// AssetDataVersionKey gates per-record field groups.
	AssetDataVersionKey = uuid.MustParse("29e575dd-e0a3-4627-9d10-d276232cdcea")

	// DependsVersionKey selects the dependency section encoding.
	DependsVersionKey = uuid.MustParse("fcf57afa-5076-4283-b9a9-e658ffa02d32")

	// PackageDataVersionKey gates package data fields.
	PackageDataVersionKey = uuid.MustParse("5d73e57d-76dc-4cab-8c05-1dbcd45f3e9b")
)

// confirmedKeys marks custom-version keys whose thresholds have been
// validated against engine-produced files. Unconfirmed keys still decode;
// the round-trip tests are what catches a wrong assumption about them.
var confirmedKeys = map[uuid.UUID]bool{
	RegistryVersionKey: true,
	DependsVersionKey:  true,
	// AssetDataVersionKey: thresholds 2 (package-path alias) and
	// 3 (asset bundles) pending validation against cooked fixtures.
	// PackageDataVersionKey: cooked-hash threshold pending likewise.
}

// CustomVersion is one (key, version) pair from the custom-version table.
type CustomVersion struct {
	Key     uuid.UUID
	Version int32
}

// FormatVersion is the decoded version snapshot: the overall ordinal plus
// the custom-version table. It is immutable once decoded; every downstream
// layout decision is a pure function of it.
type FormatVersion struct {
	Ordinal Version
	Customs []CustomVersion

	byKey map[uuid.UUID]int32
}

// NewFormatVersion builds a snapshot from an explicit custom-version table,
// preserving table order. The ordinal is always SupportedVersion.
func NewFormatVersion(customs []CustomVersion) *FormatVersion {
	v := &FormatVersion{
		Ordinal: SupportedVersion,
		Customs: customs,
		byKey:   make(map[uuid.UUID]int32, len(customs)),
	}
	for _, cv := range customs {
		v.byKey[cv.Key] = cv.Version
	}
	return v
}

// Latest returns the snapshot a freshly built state is written with: every
// known subsystem at its newest revision.
func Latest() *FormatVersion {
	return NewFormatVersion([]CustomVersion{
		{Key: AssetDataVersionKey, Version: 3},
		{Key: DependsVersionKey, Version: 1},
		{Key: PackageDataVersionKey, Version: 1},
	})
}

// DecodeVersion reads the overall ordinal and the custom-version table.
// It fails with *VersionError before reading anything else if the ordinal
// is not the pinned revision.
func DecodeVersion(c *cursor.Cursor) (*FormatVersion, error) {
	raw, err := c.ReadU32("version.ordinal")
	if err != nil {
		return nil, err
	}
	if Version(raw) != SupportedVersion {
		return nil, &VersionError{Found: Version(raw), Supported: SupportedVersion}
	}

	count, err := c.ReadU32("version.custom_count")
	if err != nil {
		return nil, err
	}
	// 16-byte key plus i32 version per entry.
	customs := make([]CustomVersion, 0, sliceCap(count, c.Remaining(), 20))
	for i := uint32(0); i < count; i++ {
		raw, err := c.ReadBytes(16, "version.custom_key")
		if err != nil {
			return nil, err
		}
		key, err := uuid.FromBytes(raw)
		if err != nil {
			return nil, err
		}
		ver, err := c.ReadI32("version.custom_version")
		if err != nil {
			return nil, err
		}
		customs = append(customs, CustomVersion{Key: key, Version: ver})
	}
	return NewFormatVersion(customs), nil
}

// Encode writes the ordinal and the custom-version table in decoded order.
func (v *FormatVersion) Encode(c *cursor.Cursor) {
	c.WriteU32(uint32(v.Ordinal), "version.ordinal")
	c.WriteU32(uint32(len(v.Customs)), "version.custom_count")
	for _, cv := range v.Customs {
		key := cv.Key
		c.WriteBytes(key[:], "version.custom_key")
		c.WriteI32(cv.Version, "version.custom_version")
	}
}

// Has reports whether the table holds key at version min or newer. Missing
// keys report false for every threshold.
func (v *FormatVersion) Has(key uuid.UUID, min int32) bool {
	got, ok := v.byKey[key]
	return ok && got >= min
}

// Confirmed reports whether the behavior thresholds attached to key have
// been validated against known-good engine output.
func Confirmed(key uuid.UUID) bool {
	return confirmedKeys[key]
}

// HasPackagePathAlias reports whether asset records carry the package-path
// alias name index.
func (v *FormatVersion) HasPackagePathAlias() bool {
	return v.Has(AssetDataVersionKey, 2)
}

// HasAssetBundles reports whether asset records carry the asset-bundle list.
func (v *FormatVersion) HasAssetBundles() bool {
	return v.Has(AssetDataVersionKey, 3)
}

// HasTypedDependencies reports whether the dependency section uses the
// typed three-list encoding instead of the legacy combined list.
func (v *FormatVersion) HasTypedDependencies() bool {
	return v.Has(DependsVersionKey, 1)
}

// HasCookedHash reports whether package data entries carry the cooked
// package hash.
func (v *FormatVersion) HasCookedHash() bool {
	return v.Has(PackageDataVersionKey, 1)
}
