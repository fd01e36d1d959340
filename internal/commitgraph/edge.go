package commitgraph

import "fmt"

const (
	// NoParent marks an unused parent field. Older revisions of git's format
	// documentation list this as 0x0700_0000, which is wrong.
	NoParent uint32 = 0x7000_0000
	// ExtendedEdgesMask marks a parent-2 field holding an EDGE table index.
	ExtendedEdgesMask uint32 = 0x8000_0000
	// LastExtendedEdgeMask marks the final entry of a commit's EDGE chain.
	LastExtendedEdgeMask uint32 = 0x8000_0000
)

type ParentEdgeKind uint8

const (
	ParentEdgeNone ParentEdgeKind = iota
	ParentEdgeGraphPosition
	ParentEdgeExtraEdgeIndex
)

// ParentEdge is a decoded parent field of a CDAT record.
type ParentEdge struct {
	kind ParentEdgeKind
	// value is the graph position or the EDGE index, depending on kind.
	value uint32
}

// ParseParentEdge classifies a raw parent field. Every value maps to exactly
// one kind.
func ParseParentEdge(raw uint32) ParentEdge {
	if raw == NoParent {
		return ParentEdge{kind: ParentEdgeNone}
	}
	if raw&ExtendedEdgesMask != 0 {
		return ParentEdge{kind: ParentEdgeExtraEdgeIndex, value: raw &^ ExtendedEdgesMask}
	}
	return ParentEdge{kind: ParentEdgeGraphPosition, value: raw}
}

func (e ParentEdge) Kind() ParentEdgeKind {
	return e.kind
}

func (e ParentEdge) IsNone() bool {
	return e.kind == ParentEdgeNone
}

func (e ParentEdge) GraphPosition() (GraphPosition, bool) {
	if e.kind != ParentEdgeGraphPosition {
		return 0, false
	}
	return GraphPosition(e.value), true
}

// ExtraEdgeIndex returns the EDGE table index in 4-byte units.
func (e ParentEdge) ExtraEdgeIndex() (uint32, bool) {
	if e.kind != ParentEdgeExtraEdgeIndex {
		return 0, false
	}
	return e.value, true
}

func (e ParentEdge) String() string {
	switch e.kind {
	case ParentEdgeNone:
		return "None"
	case ParentEdgeGraphPosition:
		return fmt.Sprintf("GraphPosition(%d)", e.value)
	case ParentEdgeExtraEdgeIndex:
		return fmt.Sprintf("ExtraEdgeIndex(%d)", e.value)
	default:
		return fmt.Sprintf("ParentEdge(%d, %d)", e.kind, e.value)
	}
}

// ExtraEdge is one decoded 4-byte entry of the EDGE table.
type ExtraEdge struct {
	pos  GraphPosition
	last bool
}

// ParseExtraEdge classifies a raw EDGE entry as internal or list-terminal.
func ParseExtraEdge(raw uint32) ExtraEdge {
	if raw&LastExtendedEdgeMask != 0 {
		return ExtraEdge{pos: GraphPosition(raw &^ LastExtendedEdgeMask), last: true}
	}
	return ExtraEdge{pos: GraphPosition(raw)}
}

func (e ExtraEdge) Position() GraphPosition {
	return e.pos
}

// Last reports whether no more entries follow for this commit.
func (e ExtraEdge) Last() bool {
	return e.last
}

func (e ExtraEdge) String() string {
	if e.last {
		return fmt.Sprintf("Last(%d)", e.pos)
	}
	return fmt.Sprintf("Internal(%d)", e.pos)
}
