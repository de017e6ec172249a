package registry

import "github.com/uetools/regcache/core/cursor"

// TagPair is one entry of a record's tag map. Key and Value are both
// string-pool indices. Pairs keep their encoded order; the map is not
// sorted on disk and reordering it would break byte-exact round trips.
type TagPair struct {
	Key   uint32
	Value uint32
}

// AssetBundle is a named group of object-path references used to control
// streaming granularity.
type AssetBundle struct {
	Name  uint32
	Paths []uint32
}

// AssetRecord is the metadata of one discoverable asset. All name-typed
// fields are string-pool indices. Records are materialized in one pass
// during decode and written back in original array order.
type AssetRecord struct {
	ObjectPath  uint32
	PackageName uint32
	AssetClass  uint32

	// PackagePath is the package-path alias, present only when the
	// version snapshot reports HasPackagePathAlias.
	PackagePath uint32

	Tags     []TagPair
	ChunkIDs []int32
	Flags    uint32

	// Bundles is present only under HasAssetBundles. A nil slice means
	// the field group was absent; an empty non-nil slice re-encodes as a
	// zero count.
	Bundles []AssetBundle
}

// DecodeAssetRecords reads the count-prefixed asset record array. Field
// presence is decided by v; all pool indices are validated against pool.
func DecodeAssetRecords(c *cursor.Cursor, v *FormatVersion, pool *StringPool) ([]AssetRecord, error) {
	count, err := c.ReadU32("assets.count")
	if err != nil {
		return nil, err
	}
	// Three name indices, tag count, chunk count and flags at minimum.
	records := make([]AssetRecord, 0, sliceCap(count, c.Remaining(), 24))
	for i := uint32(0); i < count; i++ {
		rec, err := decodeAssetRecord(c, v, pool)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func decodeAssetRecord(c *cursor.Cursor, v *FormatVersion, pool *StringPool) (AssetRecord, error) {
	var rec AssetRecord
	var err error

	if rec.ObjectPath, err = c.ReadU32("asset.object_path"); err != nil {
		return rec, err
	}
	if rec.PackageName, err = c.ReadU32("asset.package_name"); err != nil {
		return rec, err
	}
	if rec.AssetClass, err = c.ReadU32("asset.class"); err != nil {
		return rec, err
	}
	if v.HasPackagePathAlias() {
		if rec.PackagePath, err = c.ReadU32("asset.package_path"); err != nil {
			return rec, err
		}
	}
	for _, idx := range []uint32{rec.ObjectPath, rec.PackageName, rec.AssetClass} {
		if _, err := pool.Get(idx); err != nil {
			return rec, err
		}
	}
	if v.HasPackagePathAlias() {
		if _, err := pool.Get(rec.PackagePath); err != nil {
			return rec, err
		}
	}

	tagCount, err := c.ReadU32("asset.tag_count")
	if err != nil {
		return rec, err
	}
	for j := uint32(0); j < tagCount; j++ {
		var pair TagPair
		if pair.Key, err = c.ReadU32("asset.tag_key"); err != nil {
			return rec, err
		}
		if pair.Value, err = c.ReadU32("asset.tag_value"); err != nil {
			return rec, err
		}
		if _, err := pool.Get(pair.Key); err != nil {
			return rec, err
		}
		if _, err := pool.Get(pair.Value); err != nil {
			return rec, err
		}
		rec.Tags = append(rec.Tags, pair)
	}

	chunkCount, err := c.ReadU32("asset.chunk_count")
	if err != nil {
		return rec, err
	}
	for j := uint32(0); j < chunkCount; j++ {
		id, err := c.ReadI32("asset.chunk_id")
		if err != nil {
			return rec, err
		}
		rec.ChunkIDs = append(rec.ChunkIDs, id)
	}

	if rec.Flags, err = c.ReadU32("asset.flags"); err != nil {
		return rec, err
	}

	if v.HasAssetBundles() {
		bundleCount, err := c.ReadU32("asset.bundle_count")
		if err != nil {
			return rec, err
		}
		// Name index plus path count per bundle at minimum.
		rec.Bundles = make([]AssetBundle, 0, sliceCap(bundleCount, c.Remaining(), 8))
		for j := uint32(0); j < bundleCount; j++ {
			var b AssetBundle
			if b.Name, err = c.ReadU32("asset.bundle_name"); err != nil {
				return rec, err
			}
			if _, err := pool.Get(b.Name); err != nil {
				return rec, err
			}
			pathCount, err := c.ReadU32("asset.bundle_path_count")
			if err != nil {
				return rec, err
			}
			for k := uint32(0); k < pathCount; k++ {
				p, err := c.ReadU32("asset.bundle_path")
				if err != nil {
					return rec, err
				}
				if _, err := pool.Get(p); err != nil {
					return rec, err
				}
				b.Paths = append(b.Paths, p)
			}
			rec.Bundles = append(rec.Bundles, b)
		}
	}

	return rec, nil
}

// EncodeAssetRecords writes the record array in original order, emitting
// exactly the field groups the version snapshot declares present.
func EncodeAssetRecords(c *cursor.Cursor, v *FormatVersion, records []AssetRecord) {
	c.WriteU32(uint32(len(records)), "assets.count")
	for _, rec := range records {
		c.WriteU32(rec.ObjectPath, "asset.object_path")
		c.WriteU32(rec.PackageName, "asset.package_name")
		c.WriteU32(rec.AssetClass, "asset.class")
		if v.HasPackagePathAlias() {
			c.WriteU32(rec.PackagePath, "asset.package_path")
		}
		c.WriteU32(uint32(len(rec.Tags)), "asset.tag_count")
		for _, pair := range rec.Tags {
			c.WriteU32(pair.Key, "asset.tag_key")
			c.WriteU32(pair.Value, "asset.tag_value")
		}
		c.WriteU32(uint32(len(rec.ChunkIDs)), "asset.chunk_count")
		for _, id := range rec.ChunkIDs {
			c.WriteI32(id, "asset.chunk_id")
		}
		c.WriteU32(rec.Flags, "asset.flags")
		if v.HasAssetBundles() {
			c.WriteU32(uint32(len(rec.Bundles)), "asset.bundle_count")
			for _, b := range rec.Bundles {
				c.WriteU32(b.Name, "asset.bundle_name")
				c.WriteU32(uint32(len(b.Paths)), "asset.bundle_path_count")
				for _, p := range b.Paths {
					c.WriteU32(p, "asset.bundle_path")
				}
			}
		}
	}
}
