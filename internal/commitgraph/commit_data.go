package commitgraph

import (
	"encoding/binary"
	"fmt"
	"iter"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
)

const (
	hashSize = 20
	// commitDataSize is the size of one CDAT record for SHA-1 graphs.
	commitDataSize = hashSize + 16
	// timestampMask keeps the 34 timestamp bits of the packed
	// generation/timestamp field.
	timestampMask uint64 = 0x0000_0003_ffff_ffff
)

// Source provides the raw bytes a CommitData decodes from.
//
// Implementations must be comparable (usually a pointer), must not change
// the returned bytes, and must stay valid for as long as any CommitData or
// ParentIterator built over them is in use.
type Source interface {
	// CommitDataBytes returns the CDAT record at pos. Out of range positions
	// are a caller error.
	CommitDataBytes(pos GraphPosition) []byte
	// IDAt returns the object id stored at pos in the OIDL table.
	IDAt(pos LexPosition) plumbing.Hash
	// ExtraEdgesData returns the EDGE table, or false if the file has none.
	ExtraEdgesData() ([]byte, bool)
}

// CommitData is a decoded CDAT record.
//
// Fields are decoded once in NewCommitData. Malformed parent fields are not
// reported until the parents are iterated.
type CommitData struct {
	src Source
	pos GraphPosition
	lex LexPosition

	rootTree   plumbing.Hash
	parent1    ParentEdge
	parent2    ParentEdge
	generation uint32
	timestamp  uint64
}

// NewCommitData decodes the record at pos. lex is the position of the same
// commit in the OIDL table and is only used to resolve ID.
func NewCommitData(src Source, pos GraphPosition, lex LexPosition) CommitData {
	b := src.CommitDataBytes(pos)
	_ = b[commitDataSize-1]
	// The generation and the timestamp share the last 8 bytes: generation is
	// the top 30 bits, the timestamp the low 34 bits.
	packed := b[hashSize+8 : hashSize+16]
	cd := CommitData{
		src:        src,
		pos:        pos,
		lex:        lex,
		parent1:    ParseParentEdge(binary.BigEndian.Uint32(b[hashSize : hashSize+4])),
		parent2:    ParseParentEdge(binary.BigEndian.Uint32(b[hashSize+4 : hashSize+8])),
		generation: binary.BigEndian.Uint32(packed[:4]) >> 2,
		timestamp:  binary.BigEndian.Uint64(packed) & timestampMask,
	}
	copy(cd.rootTree[:], b[:hashSize])
	return cd
}

func (c CommitData) Position() GraphPosition {
	return c.pos
}

// ID returns the commit's own object id.
func (c CommitData) ID() plumbing.Hash {
	return c.src.IDAt(c.lex)
}

func (c CommitData) RootTreeID() plumbing.Hash {
	return c.rootTree
}

// CommitterTimestamp returns the committer time in seconds since the epoch.
func (c CommitData) CommitterTimestamp() uint64 {
	return c.timestamp
}

func (c CommitData) CommitterTime() time.Time {
	return time.Unix(int64(c.timestamp), 0).UTC()
}

// Generation returns the stored generation number. Root commits have
// generation 1, other commits one more than the highest parent generation.
// The value is trusted as written.
func (c CommitData) Generation() uint32 {
	return c.generation
}

func (c CommitData) Parent1Edge() ParentEdge {
	return c.parent1
}

func (c CommitData) Parent2Edge() ParentEdge {
	return c.parent2
}

// Parents returns an iterator over the commit's parents in order.
func (c CommitData) Parents() ParentIterator {
	return ParentIterator{
		src:     c.src,
		lex:     c.lex,
		parent1: c.parent1,
		parent2: c.parent2,
		state:   parentState{kind: stateFirst},
	}
}

// Parent1 returns the first parent. ok is false for root commits.
func (c CommitData) Parent1() (pos GraphPosition, ok bool, err error) {
	it := c.Parents()
	pos, err = it.Next()
	if err != nil {
		if err == errDone {
			return 0, false, nil
		}
		return 0, false, err
	}
	return pos, true, nil
}

// ParentPositions collects all parents. On failure it returns the parents
// resolved before the error together with the error.
func (c CommitData) ParentPositions() ([]GraphPosition, error) {
	it := c.Parents()
	lower, _, _ := it.SizeHint()
	parents := make([]GraphPosition, 0, lower)
	for {
		pos, err := it.Next()
		if err != nil {
			if err == errDone {
				return parents, nil
			}
			return parents, err
		}
		parents = append(parents, pos)
	}
}

// AllParents yields each parent, or a single error as the last item.
func (c CommitData) AllParents() iter.Seq2[GraphPosition, error] {
	return func(yield func(GraphPosition, error) bool) {
		it := c.Parents()
		for {
			pos, err := it.Next()
			if err == errDone {
				return
			}
			if !yield(pos, err) || err != nil {
				return
			}
		}
	}
}

// Equal reports whether both views refer to the same record of the same
// source. Decoded contents are not compared.
func (c CommitData) Equal(other CommitData) bool {
	return c.src == other.src && c.pos == other.pos
}

func (c CommitData) String() string {
	return fmt.Sprintf(
		"CommitData{id: %s, pos: %d, lex_pos: %d, generation: %d, root_tree: %s, parent1: %s, parent2: %s}",
		c.ID(), c.pos, c.lex, c.generation, c.rootTree, c.parent1, c.parent2,
	)
}
