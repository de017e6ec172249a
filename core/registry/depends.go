package registry

import (
	"fmt"

	"github.com/uetools/regcache/core/cursor"
)

// DependencyKind classifies a dependency edge.
type DependencyKind uint8

const (
	// KindPackage is a hard package dependency.
	KindPackage DependencyKind = iota
	// KindName is a name/soft dependency.
	KindName
	// KindManage is a management dependency.
	KindManage

	kindCount
)

func (k DependencyKind) String() string {
	switch k {
	case KindPackage:
		return "package"
	case KindName:
		return "name"
	case KindManage:
		return "manage"
	}
	return "unknown"
}

// Edge is one outgoing dependency of a node: the target node index, the
// edge kind, and a small kind-specific flags bitset. Targets are plain
// indices, never references; the graph may contain cycles and self-edges.
type Edge struct {
	Target uint32
	Kind   DependencyKind
	Flags  uint8
}

// DependsNode is one node of the dependency graph, representing a package
// or an object. Identifier indexes into the asset record or package table.
// Edges keep their encoded order so both wire variants re-encode
// byte-exactly.
type DependsNode struct {
	Identifier uint32
	Edges      []Edge
}

// EdgesOf returns the node's edges of one kind, in encoded order.
func (n *DependsNode) EdgesOf(kind DependencyKind) []Edge {
	var out []Edge
	for _, e := range n.Edges {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Legacy combined-byte layout: kind in the low 2 bits, flags above. The
// flags of a legacy edge must fit in 6 bits; the encoder rejects anything
// wider.
const (
	legacyKindMask   = 0x03
	legacyFlagsShift = 2
	legacyFlagsMax   = 0xff >> legacyFlagsShift
)

// DecodeDependsNodes reads the dependency section. The wire variant is
// selected by v: the legacy encoding stores one combined edge list per node
// with the kind packed into the flags byte, the typed encoding stores three
// independently counted lists. Both populate the same DependsNode shape.
// After decode every edge target is validated against the node count.
func DecodeDependsNodes(c *cursor.Cursor, v *FormatVersion) ([]DependsNode, error) {
	count, err := c.ReadU32("depends.count")
	if err != nil {
		return nil, err
	}
	// Identifier plus one edge count per node at minimum.
	nodes := make([]DependsNode, 0, sliceCap(count, c.Remaining(), 8))
	for i := uint32(0); i < count; i++ {
		var node DependsNode
		if node.Identifier, err = c.ReadU32("depends.identifier"); err != nil {
			return nil, err
		}
		if v.HasTypedDependencies() {
			err = decodeTypedEdges(c, &node)
		} else {
			err = decodeLegacyEdges(c, &node)
		}
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}

	for i := range nodes {
		for j, e := range nodes[i].Edges {
			if e.Target >= count {
				return nil, &GraphError{Node: i, Edge: j, Target: e.Target}
			}
		}
	}
	return nodes, nil
}

func decodeLegacyEdges(c *cursor.Cursor, node *DependsNode) error {
	edgeCount, err := c.ReadU32("depends.edge_count")
	if err != nil {
		return err
	}
	for i := uint32(0); i < edgeCount; i++ {
		target, err := c.ReadU32("depends.edge_target")
		if err != nil {
			return err
		}
		combined, err := c.ReadU8("depends.edge_flags")
		if err != nil {
			return err
		}
		node.Edges = append(node.Edges, Edge{
			Target: target,
			Kind:   DependencyKind(combined & legacyKindMask),
			Flags:  combined >> legacyFlagsShift,
		})
	}
	return nil
}

func decodeTypedEdges(c *cursor.Cursor, node *DependsNode) error {
	for kind := DependencyKind(0); kind < kindCount; kind++ {
		edgeCount, err := c.ReadU32("depends." + kind.String() + "_count")
		if err != nil {
			return err
		}
		for i := uint32(0); i < edgeCount; i++ {
			target, err := c.ReadU32("depends.edge_target")
			if err != nil {
				return err
			}
			flags, err := c.ReadU8("depends.edge_flags")
			if err != nil {
				return err
			}
			node.Edges = append(node.Edges, Edge{Target: target, Kind: kind, Flags: flags})
		}
	}
	return nil
}

// EncodeDependsNodes writes the dependency section in whichever variant
// the version snapshot selects. The codec is symmetric, not legacy-only.
// It fails if an edge holds flags the legacy combined byte cannot carry.
func EncodeDependsNodes(c *cursor.Cursor, v *FormatVersion, nodes []DependsNode) error {
	c.WriteU32(uint32(len(nodes)), "depends.count")
	for i := range nodes {
		node := &nodes[i]
		c.WriteU32(node.Identifier, "depends.identifier")
		if v.HasTypedDependencies() {
			for kind := DependencyKind(0); kind < kindCount; kind++ {
				edges := node.EdgesOf(kind)
				c.WriteU32(uint32(len(edges)), "depends."+kind.String()+"_count")
				for _, e := range edges {
					c.WriteU32(e.Target, "depends.edge_target")
					c.WriteU8(e.Flags, "depends.edge_flags")
				}
			}
		} else {
			c.WriteU32(uint32(len(node.Edges)), "depends.edge_count")
			for j, e := range node.Edges {
				if e.Flags > legacyFlagsMax {
					return fmt.Errorf("node %d edge %d: flags %#x exceed the 6 bits of the combined edge byte", i, j, e.Flags)
				}
				c.WriteU32(e.Target, "depends.edge_target")
				c.WriteU8(uint8(e.Kind)|e.Flags<<legacyFlagsShift, "depends.edge_flags")
			}
		}
	}
	return nil
}
