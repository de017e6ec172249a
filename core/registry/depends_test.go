package registry

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/uetools/regcache/core/cursor"
)

// TestDependsLegacyRoundTrip verifies the legacy combined-byte encoding
// round trips, kind and flags unpacked and repacked identically.
func TestDependsLegacyRoundTrip(t *testing.T) {
	v := NewFormatVersion(nil)
	if v.HasTypedDependencies() {
		t.Fatal("empty custom table must select the legacy encoding")
	}

	nodes := []DependsNode{
		{Identifier: 10, Edges: []Edge{
			{Target: 1, Kind: KindPackage, Flags: 0x3f},
			{Target: 0, Kind: KindManage, Flags: 0x01},
		}},
		{Identifier: 11},
	}

	w := cursor.NewWriter()
	if err := EncodeDependsNodes(w, v, nodes); err != nil {
		t.Fatalf("EncodeDependsNodes failed: %v", err)
	}

	back, err := DecodeDependsNodes(cursor.New(w.Bytes()), v)
	if err != nil {
		t.Fatalf("DecodeDependsNodes failed: %v", err)
	}
	if !reflect.DeepEqual(back, nodes) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", back, nodes)
	}

	w2 := cursor.NewWriter()
	if err := EncodeDependsNodes(w2, v, back); err != nil {
		t.Fatalf("EncodeDependsNodes failed: %v", err)
	}
	if !bytes.Equal(w2.Bytes(), w.Bytes()) {
		t.Error("re-encode did not reproduce the original bytes")
	}
}

// TestDependsTypedRoundTrip verifies the typed three-list encoding round
// trips with the fixed package, name, manage list order.
func TestDependsTypedRoundTrip(t *testing.T) {
	v := Latest()
	if !v.HasTypedDependencies() {
		t.Fatal("newest snapshot must select the typed encoding")
	}

	nodes := []DependsNode{
		{Identifier: 0, Edges: []Edge{
			{Target: 1, Kind: KindPackage, Flags: 0x80},
			{Target: 1, Kind: KindName},
			{Target: 0, Kind: KindManage, Flags: 0x02},
		}},
		{Identifier: 1, Edges: []Edge{
			{Target: 0, Kind: KindPackage},
		}},
	}

	w := cursor.NewWriter()
	if err := EncodeDependsNodes(w, v, nodes); err != nil {
		t.Fatalf("EncodeDependsNodes failed: %v", err)
	}

	back, err := DecodeDependsNodes(cursor.New(w.Bytes()), v)
	if err != nil {
		t.Fatalf("DecodeDependsNodes failed: %v", err)
	}
	if !reflect.DeepEqual(back, nodes) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", back, nodes)
	}

	w2 := cursor.NewWriter()
	if err := EncodeDependsNodes(w2, v, back); err != nil {
		t.Fatalf("EncodeDependsNodes failed: %v", err)
	}
	if !bytes.Equal(w2.Bytes(), w.Bytes()) {
		t.Error("re-encode did not reproduce the original bytes")
	}
}

// TestDependsTypedFullFlagByte verifies the typed encoding carries all
// eight flag bits, unlike the legacy six.
func TestDependsTypedFullFlagByte(t *testing.T) {
	v := Latest()
	nodes := []DependsNode{{Identifier: 0, Edges: []Edge{{Target: 0, Kind: KindName, Flags: 0xff}}}}

	w := cursor.NewWriter()
	if err := EncodeDependsNodes(w, v, nodes); err != nil {
		t.Fatalf("EncodeDependsNodes failed: %v", err)
	}
	back, err := DecodeDependsNodes(cursor.New(w.Bytes()), v)
	if err != nil {
		t.Fatal(err)
	}
	if back[0].Edges[0].Flags != 0xff {
		t.Errorf("Flags = %#x, want 0xff", back[0].Edges[0].Flags)
	}
}

// TestDependsCycle verifies a two-node cycle decodes without error; the
// graph is plain indices, not a tree.
func TestDependsCycle(t *testing.T) {
	v := NewFormatVersion(nil)
	nodes := []DependsNode{
		{Identifier: 0, Edges: []Edge{{Target: 1, Kind: KindPackage}}},
		{Identifier: 1, Edges: []Edge{{Target: 0, Kind: KindPackage}}},
	}

	w := cursor.NewWriter()
	if err := EncodeDependsNodes(w, v, nodes); err != nil {
		t.Fatalf("EncodeDependsNodes failed: %v", err)
	}

	back, err := DecodeDependsNodes(cursor.New(w.Bytes()), v)
	if err != nil {
		t.Fatalf("cycle failed to decode: %v", err)
	}
	if !reflect.DeepEqual(back, nodes) {
		t.Errorf("round trip mismatch: %+v", back)
	}
}

// TestDependsRejectDanglingTarget verifies an edge pointing past the node
// count fails with a GraphError locating the edge.
func TestDependsRejectDanglingTarget(t *testing.T) {
	v := NewFormatVersion(nil)
	nodes := []DependsNode{
		{Identifier: 0},
		{Identifier: 1, Edges: []Edge{{Target: 7, Kind: KindName}}},
	}

	w := cursor.NewWriter()
	if err := EncodeDependsNodes(w, v, nodes); err != nil {
		t.Fatalf("EncodeDependsNodes failed: %v", err)
	}

	_, err := DecodeDependsNodes(cursor.New(w.Bytes()), v)
	var gerr *GraphError
	if !errors.As(err, &gerr) {
		t.Fatalf("expected GraphError, got %v", err)
	}
	if gerr.Node != 1 || gerr.Edge != 0 || gerr.Target != 7 {
		t.Errorf("GraphError = %+v, want Node 1 Edge 0 Target 7", gerr)
	}
}

// TestEdgesOf verifies kind filtering preserves encoded order.
func TestEdgesOf(t *testing.T) {
	n := DependsNode{Edges: []Edge{
		{Target: 3, Kind: KindName},
		{Target: 1, Kind: KindPackage},
		{Target: 2, Kind: KindName},
	}}

	got := n.EdgesOf(KindName)
	if len(got) != 2 || got[0].Target != 3 || got[1].Target != 2 {
		t.Errorf("EdgesOf(KindName) = %+v", got)
	}
	if len(n.EdgesOf(KindManage)) != 0 {
		t.Error("EdgesOf(KindManage) should be empty")
	}
}

// TestDependencyKindString verifies diagnostic names.
func TestDependencyKindString(t *testing.T) {
	cases := map[DependencyKind]string{
		KindPackage: "package",
		KindName:    "name",
		KindManage:  "manage",
		99:          "unknown",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", k, got, want)
		}
	}
}

// TestDependsLegacyRejectsWideFlags verifies the legacy encoder refuses
// flags that do not fit the six bits above the packed kind instead of
// silently truncating them.
func TestDependsLegacyRejectsWideFlags(t *testing.T) {
	v := NewFormatVersion(nil)
	nodes := []DependsNode{{Identifier: 0, Edges: []Edge{{Target: 0, Kind: KindName, Flags: 0x40}}}}

	w := cursor.NewWriter()
	err := EncodeDependsNodes(w, v, nodes)
	if err == nil {
		t.Fatal("expected error for 7-bit flags in the legacy encoding")
	}

	// The same edge is fine under the typed encoding's full flag byte.
	w2 := cursor.NewWriter()
	if err := EncodeDependsNodes(w2, Latest(), nodes); err != nil {
		t.Fatalf("typed encoding rejected valid flags: %v", err)
	}
}

// TestDependsHugeCountFailsCleanly verifies a corrupt node count far past
// the stream's remaining bytes fails with an end-of-stream error rather
// than attempting a matching allocation.
func TestDependsHugeCountFailsCleanly(t *testing.T) {
	w := cursor.NewWriter()
	w.WriteU32(0xffffffff, "count")

	_, err := DecodeDependsNodes(cursor.New(w.Bytes()), NewFormatVersion(nil))
	var eof *cursor.EOFError
	if !errors.As(err, &eof) {
		t.Fatalf("expected EOFError, got %v", err)
	}
}
