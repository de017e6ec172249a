package registrydb

import (
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/uetools/regcache/core/registry"
)

// schema is the relational shape of one exported registry. Name-typed
// columns store resolved strings; the strings table preserves the raw pool
// so index-level tooling can still reconstruct references.
const schema = `
CREATE TABLE meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE strings (
	id    INTEGER PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE assets (
	id           INTEGER PRIMARY KEY,
	object_path  TEXT NOT NULL,
	package_name TEXT NOT NULL,
	asset_class  TEXT NOT NULL,
	package_path TEXT,
	flags        INTEGER NOT NULL
);
CREATE TABLE asset_tags (
	asset_id INTEGER NOT NULL REFERENCES assets(id),
	position INTEGER NOT NULL,
	key      TEXT NOT NULL,
	value    TEXT NOT NULL
);
CREATE TABLE asset_chunks (
	asset_id INTEGER NOT NULL REFERENCES assets(id),
	chunk_id INTEGER NOT NULL
);
CREATE TABLE asset_bundles (
	asset_id    INTEGER NOT NULL REFERENCES assets(id),
	bundle_name TEXT NOT NULL,
	object_path TEXT NOT NULL
);
CREATE TABLE depends_nodes (
	id         INTEGER PRIMARY KEY,
	identifier INTEGER NOT NULL
);
CREATE TABLE depends_edges (
	node_id  INTEGER NOT NULL REFERENCES depends_nodes(id),
	position INTEGER NOT NULL,
	target   INTEGER NOT NULL REFERENCES depends_nodes(id),
	kind     TEXT NOT NULL,
	flags    INTEGER NOT NULL
);
CREATE TABLE package_data (
	position     INTEGER PRIMARY KEY,
	package_name TEXT NOT NULL,
	disk_size    INTEGER NOT NULL,
	guid         TEXT NOT NULL,
	cooked_hash  TEXT NOT NULL,
	flags        INTEGER NOT NULL
);
CREATE INDEX idx_assets_package ON assets(package_name);
CREATE INDEX idx_tags_key ON asset_tags(key);
`

// SourceInfo identifies the decoded input blob for the meta table.
type SourceInfo struct {
	Path string
	Data []byte
}

// Export writes state into db. The database must be empty; the schema is
// created here. The source blob's BLAKE3 fingerprint is recorded in the
// meta table so exports can be matched back to their input file.
func Export(db *sql.DB, state *registry.RegistryState, src SourceInfo) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin export: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if err := exportMeta(tx, src); err != nil {
		return err
	}
	if err := exportStrings(tx, state); err != nil {
		return err
	}
	if err := exportAssets(tx, state); err != nil {
		return err
	}
	if err := exportDepends(tx, state); err != nil {
		return err
	}
	if err := exportPackages(tx, state); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit export: %w", err)
	}
	return nil
}

func exportMeta(tx *sql.Tx, src SourceInfo) error {
	sum := blake3.Sum256(src.Data)
	rows := [][2]string{
		{"source_path", src.Path},
		{"source_blake3", hex.EncodeToString(sum[:])},
		{"source_size", fmt.Sprintf("%d", len(src.Data))},
		{"driver", DriverType()},
	}
	for _, kv := range rows {
		if _, err := tx.Exec(`INSERT INTO meta (key, value) VALUES (?, ?)`, kv[0], kv[1]); err != nil {
			return fmt.Errorf("insert meta %s: %w", kv[0], err)
		}
	}
	return nil
}

func exportStrings(tx *sql.Tx, state *registry.RegistryState) error {
	stmt, err := tx.Prepare(`INSERT INTO strings (id, value) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare strings: %w", err)
	}
	defer stmt.Close()
	for i, s := range state.Names.Strings() {
		if _, err := stmt.Exec(i, s); err != nil {
			return fmt.Errorf("insert string %d: %w", i, err)
		}
	}
	return nil
}

func exportAssets(tx *sql.Tx, state *registry.RegistryState) error {
	resolve := func(idx uint32) (string, error) {
		return state.Names.Get(idx)
	}

	for i, rec := range state.Assets {
		objectPath, err := resolve(rec.ObjectPath)
		if err != nil {
			return fmt.Errorf("asset %d: %w", i, err)
		}
		packageName, err := resolve(rec.PackageName)
		if err != nil {
			return fmt.Errorf("asset %d: %w", i, err)
		}
		assetClass, err := resolve(rec.AssetClass)
		if err != nil {
			return fmt.Errorf("asset %d: %w", i, err)
		}
		var packagePath any
		if state.Version.HasPackagePathAlias() {
			s, err := resolve(rec.PackagePath)
			if err != nil {
				return fmt.Errorf("asset %d: %w", i, err)
			}
			packagePath = s
		}
		if _, err := tx.Exec(
			`INSERT INTO assets (id, object_path, package_name, asset_class, package_path, flags) VALUES (?, ?, ?, ?, ?, ?)`,
			i, objectPath, packageName, assetClass, packagePath, rec.Flags,
		); err != nil {
			return fmt.Errorf("insert asset %d: %w", i, err)
		}

		for pos, tag := range rec.Tags {
			key, err := resolve(tag.Key)
			if err != nil {
				return fmt.Errorf("asset %d tag %d: %w", i, pos, err)
			}
			value, err := resolve(tag.Value)
			if err != nil {
				return fmt.Errorf("asset %d tag %d: %w", i, pos, err)
			}
			if _, err := tx.Exec(
				`INSERT INTO asset_tags (asset_id, position, key, value) VALUES (?, ?, ?, ?)`,
				i, pos, key, value,
			); err != nil {
				return fmt.Errorf("insert asset %d tag %d: %w", i, pos, err)
			}
		}
		for _, chunk := range rec.ChunkIDs {
			if _, err := tx.Exec(
				`INSERT INTO asset_chunks (asset_id, chunk_id) VALUES (?, ?)`,
				i, chunk,
			); err != nil {
				return fmt.Errorf("insert asset %d chunk: %w", i, err)
			}
		}
		for _, b := range rec.Bundles {
			name, err := resolve(b.Name)
			if err != nil {
				return fmt.Errorf("asset %d bundle: %w", i, err)
			}
			for _, p := range b.Paths {
				path, err := resolve(p)
				if err != nil {
					return fmt.Errorf("asset %d bundle %s: %w", i, name, err)
				}
				if _, err := tx.Exec(
					`INSERT INTO asset_bundles (asset_id, bundle_name, object_path) VALUES (?, ?, ?)`,
					i, name, path,
				); err != nil {
					return fmt.Errorf("insert asset %d bundle %s: %w", i, name, err)
				}
			}
		}
	}
	return nil
}

func exportDepends(tx *sql.Tx, state *registry.RegistryState) error {
	for i := range state.Depends {
		node := &state.Depends[i]
		if _, err := tx.Exec(
			`INSERT INTO depends_nodes (id, identifier) VALUES (?, ?)`,
			i, node.Identifier,
		); err != nil {
			return fmt.Errorf("insert depends node %d: %w", i, err)
		}
		for pos, e := range node.Edges {
			if _, err := tx.Exec(
				`INSERT INTO depends_edges (node_id, position, target, kind, flags) VALUES (?, ?, ?, ?, ?)`,
				i, pos, e.Target, e.Kind.String(), e.Flags,
			); err != nil {
				return fmt.Errorf("insert depends node %d edge %d: %w", i, pos, err)
			}
		}
	}
	return nil
}

func exportPackages(tx *sql.Tx, state *registry.RegistryState) error {
	for i, e := range state.Packages {
		name, err := state.Names.Get(e.PackageName)
		if err != nil {
			return fmt.Errorf("package %d: %w", i, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO package_data (position, package_name, disk_size, guid, cooked_hash, flags) VALUES (?, ?, ?, ?, ?, ?)`,
			i, name, e.DiskSize, e.Guid.String(), hex.EncodeToString(e.CookedHash[:]), e.Flags,
		); err != nil {
			return fmt.Errorf("insert package %d: %w", i, err)
		}
	}
	return nil
}
