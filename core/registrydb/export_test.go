package registrydb

import (
	"testing"

	"github.com/uetools/regcache/core/registry"
)

func exportedState(t *testing.T) *registry.RegistryState {
	t.Helper()
	state := &registry.RegistryState{
		Version: registry.Latest(),
		Names:   registry.NewStringPool(),
	}
	obj := state.Names.Intern("/Game/Props/Crate.Crate")
	pkg := state.Names.Intern("/Game/Props/Crate")
	cls := state.Names.Intern("StaticMesh")
	path := state.Names.Intern("/Game/Props")
	tagK := state.Names.Intern("Triangles")
	tagV := state.Names.Intern("128")

	state.Assets = []registry.AssetRecord{{
		ObjectPath:  obj,
		PackageName: pkg,
		AssetClass:  cls,
		PackagePath: path,
		Tags:        []registry.TagPair{{Key: tagK, Value: tagV}},
		ChunkIDs:    []int32{0, 1},
		Flags:       4,
	}}
	state.Depends = []registry.DependsNode{
		{Identifier: 0, Edges: []registry.Edge{{Target: 1, Kind: registry.KindPackage, Flags: 1}}},
		{Identifier: 1},
	}
	state.Packages = []registry.PackageDataEntry{{PackageName: pkg, DiskSize: 2048, Flags: 1}}
	return state
}

// TestExport verifies a full state lands in the relational schema with
// resolved names and correct row counts.
func TestExport(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	state := exportedState(t)
	blob, err := state.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if err := Export(db, state, SourceInfo{Path: "test.bin", Data: blob}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	counts := map[string]int{
		"strings":       6,
		"assets":        1,
		"asset_tags":    1,
		"asset_chunks":  2,
		"depends_nodes": 2,
		"depends_edges": 1,
		"package_data":  1,
	}
	for table, want := range counts {
		var got int
		if err := db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&got); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if got != want {
			t.Errorf("%s has %d rows, want %d", table, got, want)
		}
	}

	var class, packagePath string
	err = db.QueryRow(`SELECT asset_class, package_path FROM assets WHERE id = 0`).Scan(&class, &packagePath)
	if err != nil {
		t.Fatalf("select asset: %v", err)
	}
	if class != "StaticMesh" {
		t.Errorf("asset_class = %q", class)
	}
	if packagePath != "/Game/Props" {
		t.Errorf("package_path = %q", packagePath)
	}

	var kind string
	if err := db.QueryRow(`SELECT kind FROM depends_edges WHERE node_id = 0`).Scan(&kind); err != nil {
		t.Fatalf("select edge: %v", err)
	}
	if kind != "package" {
		t.Errorf("edge kind = %q", kind)
	}

	var fingerprint string
	if err := db.QueryRow(`SELECT value FROM meta WHERE key = 'source_blake3'`).Scan(&fingerprint); err != nil {
		t.Fatalf("select meta: %v", err)
	}
	if len(fingerprint) != 64 {
		t.Errorf("fingerprint length = %d, want 64 hex chars", len(fingerprint))
	}
}

// TestExportNullAliasWhenGatedOff verifies package_path is NULL when the
// version snapshot gates the alias off.
func TestExportNullAliasWhenGatedOff(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	state := &registry.RegistryState{
		Version: registry.NewFormatVersion(nil),
		Names:   registry.NewStringPool(),
	}
	n := state.Names.Intern("/Game/X")
	state.Assets = []registry.AssetRecord{{ObjectPath: n, PackageName: n, AssetClass: n}}

	blob, err := state.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if err := Export(db, state, SourceInfo{Path: "x.bin", Data: blob}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var packagePath *string
	if err := db.QueryRow(`SELECT package_path FROM assets WHERE id = 0`).Scan(&packagePath); err != nil {
		t.Fatalf("select asset: %v", err)
	}
	if packagePath != nil {
		t.Errorf("package_path = %q, want NULL", *packagePath)
	}
}

// TestDriverIdentity verifies the compiled-in driver reports a usable
// name.
func TestDriverIdentity(t *testing.T) {
	if DriverName() == "" || DriverType() == "" {
		t.Errorf("driver identity empty: %q %q", DriverName(), DriverType())
	}
	if IsCGO() && DriverName() != "sqlite3" {
		t.Errorf("cgo build should use sqlite3, got %q", DriverName())
	}
}
