package registry

import "fmt"

// VersionError reports an overall format ordinal outside the single pinned
// revision. It is raised before any section is read.
type VersionError struct {
	Found     Version
	Supported Version
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("unsupported registry version %d (%s), this build supports only %d (%s)",
		uint32(e.Found), e.Found, uint32(e.Supported), e.Supported)
}

// IndexError reports a string-pool or node reference outside the populated
// range. It signals upstream corruption or a missing version-gate branch,
// not a defect in the pool itself.
type IndexError struct {
	Index int
	Size  int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %d out of range (pool size %d)", e.Index, e.Size)
}

// GraphError reports a dependency edge whose target does not resolve to a
// node in the same graph.
type GraphError struct {
	Node   int
	Edge   int
	Target uint32
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("corrupt dependency graph: node %d edge %d targets %d, which is not a valid node",
		e.Node, e.Edge, e.Target)
}
