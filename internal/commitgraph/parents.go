package commitgraph

import (
	"encoding/binary"
	"io"

	"github.com/go-git/go-git/v5/plumbing"
)

// errDone ends a parent sequence.
var errDone = io.EOF

type stateKind uint8

const (
	// stateExhausted is the zero value so that any transition which does
	// not pick a next state ends the sequence.
	stateExhausted stateKind = iota
	stateFirst
	stateSecond
	stateExtra
)

type parentState struct {
	kind stateKind
	// extra holds the unread part of the EDGE table in stateExtra.
	extra []byte
}

// ParentIterator walks the parents of one commit: the first parent field,
// then the second, then the commit's EDGE chain if the second field points
// into it.
//
// Next returns io.EOF once the sequence ends. A malformed record yields its
// valid prefix followed by exactly one *Error, then io.EOF.
type ParentIterator struct {
	src     Source
	lex     LexPosition
	parent1 ParentEdge
	parent2 ParentEdge
	state   parentState
}

func (it *ParentIterator) Next() (GraphPosition, error) {
	state := it.state
	it.state = parentState{}
	next, pos, err := it.step(state)
	it.state = next
	return pos, err
}

func (it *ParentIterator) step(state parentState) (parentState, GraphPosition, error) {
	switch state.kind {
	case stateFirst:
		switch it.parent1.kind {
		case ParentEdgeNone:
			if it.parent2.kind == ParentEdgeNone {
				return parentState{}, 0, errDone
			}
			return parentState{}, 0, it.fail(SecondParentWithoutFirstParent)
		case ParentEdgeGraphPosition:
			return parentState{kind: stateSecond}, GraphPosition(it.parent1.value), nil
		default:
			return parentState{}, 0, it.fail(FirstParentIsExtraEdgeIndex)
		}
	case stateSecond:
		switch it.parent2.kind {
		case ParentEdgeNone:
			return parentState{}, 0, errDone
		case ParentEdgeGraphPosition:
			return parentState{}, GraphPosition(it.parent2.value), nil
		default:
			edges, ok := it.src.ExtraEdgesData()
			if !ok {
				return parentState{}, 0, it.fail(MissingExtraEdgesList)
			}
			start := uint64(it.parent2.value) * 4
			if start > uint64(len(edges)) {
				return parentState{}, 0, it.fail(ExtraEdgesListOverflow)
			}
			return it.step(parentState{kind: stateExtra, extra: edges[start:]})
		}
	case stateExtra:
		// A partial trailing entry counts as running off the table.
		if len(state.extra) < 4 {
			return parentState{}, 0, it.fail(ExtraEdgesListOverflow)
		}
		edge := ParseExtraEdge(binary.BigEndian.Uint32(state.extra[:4]))
		if edge.Last() {
			return parentState{}, edge.Position(), nil
		}
		return parentState{kind: stateExtra, extra: state.extra[4:]}, edge.Position(), nil
	default:
		return parentState{}, 0, errDone
	}
}

func (it *ParentIterator) fail(kind ErrorKind) error {
	return &Error{Kind: kind, Commit: it.commitID()}
}

func (it *ParentIterator) commitID() plumbing.Hash {
	return it.src.IDAt(it.lex)
}

// SizeHint estimates how many items Next will still return, counting a
// trailing error as an item. When bounded is false the EDGE chain length is
// unknown and upper is meaningless. The hint is never authoritative.
func (it *ParentIterator) SizeHint() (lower, upper int, bounded bool) {
	switch it.state.kind {
	case stateFirst:
		switch it.parent1.kind {
		case ParentEdgeNone:
			if it.parent2.kind == ParentEdgeNone {
				return 0, 0, true
			}
			return 1, 1, true
		case ParentEdgeGraphPosition:
			switch it.parent2.kind {
			case ParentEdgeNone:
				return 1, 1, true
			case ParentEdgeGraphPosition:
				return 2, 2, true
			default:
				return 3, 0, false
			}
		default:
			return 1, 1, true
		}
	case stateSecond:
		switch it.parent2.kind {
		case ParentEdgeNone:
			return 0, 0, true
		case ParentEdgeGraphPosition:
			return 1, 1, true
		default:
			return 2, 0, false
		}
	case stateExtra:
		return 1, 0, false
	default:
		return 0, 0, true
	}
}
