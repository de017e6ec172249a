package registry

import (
	"github.com/google/uuid"

	"github.com/uetools/regcache/core/cursor"
)

// PackageDataEntry is the per-package on-disk metadata row. Unlike the
// string pool this table is not a dedup structure: duplicate package-name
// indices are preserved in array order.
type PackageDataEntry struct {
	// PackageName is a string-pool index.
	PackageName uint32

	// DiskSize is the size of the package file in bytes.
	DiskSize int64

	// Guid identifies the saved package revision.
	Guid uuid.UUID

	// CookedHash is the hash of the cooked package, present only under
	// HasCookedHash.
	CookedHash [16]byte

	// Flags carries the package cook flags.
	Flags uint32
}

// DecodePackageData reads the count-prefixed package data table.
func DecodePackageData(c *cursor.Cursor, v *FormatVersion, pool *StringPool) ([]PackageDataEntry, error) {
	count, err := c.ReadU32("packages.count")
	if err != nil {
		return nil, err
	}
	// Name index, disk size, guid and flags at minimum.
	entries := make([]PackageDataEntry, 0, sliceCap(count, c.Remaining(), 32))
	for i := uint32(0); i < count; i++ {
		var e PackageDataEntry
		if e.PackageName, err = c.ReadU32("package.name"); err != nil {
			return nil, err
		}
		if _, err := pool.Get(e.PackageName); err != nil {
			return nil, err
		}
		if e.DiskSize, err = c.ReadI64("package.disk_size"); err != nil {
			return nil, err
		}
		raw, err := c.ReadBytes(16, "package.guid")
		if err != nil {
			return nil, err
		}
		if e.Guid, err = uuid.FromBytes(raw); err != nil {
			return nil, err
		}
		if v.HasCookedHash() {
			h, err := c.ReadBytes(16, "package.cooked_hash")
			if err != nil {
				return nil, err
			}
			copy(e.CookedHash[:], h)
		}
		if e.Flags, err = c.ReadU32("package.flags"); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// EncodePackageData writes the table back in array order.
func EncodePackageData(c *cursor.Cursor, v *FormatVersion, entries []PackageDataEntry) {
	c.WriteU32(uint32(len(entries)), "packages.count")
	for _, e := range entries {
		c.WriteU32(e.PackageName, "package.name")
		c.WriteI64(e.DiskSize, "package.disk_size")
		guid := e.Guid
		c.WriteBytes(guid[:], "package.guid")
		if v.HasCookedHash() {
			c.WriteBytes(e.CookedHash[:], "package.cooked_hash")
		}
		c.WriteU32(e.Flags, "package.flags")
	}
}
