package commitgraph

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
)

var (
	// ErrMalformedFile is returned when the commit-graph file structure is invalid.
	ErrMalformedFile = errors.New("malformed commit-graph file")
	// ErrUnsupportedVersion is returned for file versions other than 1.
	ErrUnsupportedVersion = errors.New("unsupported commit-graph version")
	// ErrUnsupportedHash is returned for hash versions other than SHA-1.
	ErrUnsupportedHash = errors.New("unsupported commit-graph hash version")
	// ErrChainedGraph is returned for files that depend on base graphs.
	ErrChainedGraph = errors.New("chained commit-graph files are not supported")
	// ErrPositionOutOfRange is returned when a graph position has no record.
	ErrPositionOutOfRange = errors.New("graph position out of range")
	// ErrNotFound is returned when a commit is not in the commit-graph.
	ErrNotFound = errors.New("commit not found in commit-graph")
)

// Parent resolution failures. Each is matched by errors.Is against the
// *Error returned from ParentIterator.Next.
var (
	ErrSecondParentWithoutFirstParent = errors.New("second parent without first parent")
	ErrFirstParentIsExtraEdgeIndex    = errors.New("first parent is an extra edge index")
	ErrMissingExtraEdgesList          = errors.New("missing extra edges list")
	ErrExtraEdgesListOverflow         = errors.New("extra edges list overflow")
)

type ErrorKind uint8

const (
	SecondParentWithoutFirstParent ErrorKind = iota + 1
	FirstParentIsExtraEdgeIndex
	MissingExtraEdgesList
	ExtraEdgesListOverflow
)

func (k ErrorKind) sentinel() error {
	switch k {
	case SecondParentWithoutFirstParent:
		return ErrSecondParentWithoutFirstParent
	case FirstParentIsExtraEdgeIndex:
		return ErrFirstParentIsExtraEdgeIndex
	case MissingExtraEdgesList:
		return ErrMissingExtraEdgesList
	case ExtraEdgesListOverflow:
		return ErrExtraEdgesListOverflow
	default:
		return nil
	}
}

// Error reports a malformed parent field of one commit.
type Error struct {
	Kind   ErrorKind
	Commit plumbing.Hash
}

func (e *Error) Error() string {
	switch e.Kind {
	case SecondParentWithoutFirstParent:
		return fmt.Sprintf("commit %s has a second parent but not a first parent", e.Commit)
	case FirstParentIsExtraEdgeIndex:
		return fmt.Sprintf("commit %s's first parent is an extra edge index, which is invalid", e.Commit)
	case MissingExtraEdgesList:
		return fmt.Sprintf("commit %s has extra edges, but commit-graph file has no extra edges list", e.Commit)
	case ExtraEdgesListOverflow:
		return fmt.Sprintf("commit %s's extra edges overflows the commit-graph file's extra edges list", e.Commit)
	default:
		return fmt.Sprintf("commit %s: unknown commit-graph error %d", e.Commit, e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Kind.sentinel()
}
