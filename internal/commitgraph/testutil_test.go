package commitgraph

import (
	"encoding/binary"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"

	"github.com/thiagokokada/cgraph-go/internal/commitgraph/graphtest"
)

type graphCommit = graphtest.Commit

func testHash(s string) plumbing.Hash {
	return plumbing.ComputeHash(plumbing.CommitObject, []byte(s))
}

func packGenerationAndTime(generation uint32, ts uint64) uint64 {
	return graphtest.PackGenerationAndTime(generation, ts)
}

func encodeGraph(tb testing.TB, commits []graphCommit) []byte {
	tb.Helper()
	data, err := graphtest.Encode(commits)
	require.NoError(tb, err)
	return data
}

func assembleGraph(chunks []graphtest.Chunk) []byte {
	return graphtest.Assemble(1, 1, 0, chunks)
}

// fakeSource serves hand-written records to exercise malformed inputs.
type fakeSource struct {
	records  [][]byte
	ids      []plumbing.Hash
	edges    []byte
	hasEdges bool
}

func (s *fakeSource) CommitDataBytes(pos GraphPosition) []byte { return s.records[pos] }
func (s *fakeSource) IDAt(pos LexPosition) plumbing.Hash        { return s.ids[pos] }
func (s *fakeSource) ExtraEdgesData() ([]byte, bool)            { return s.edges, s.hasEdges }

func (s *fakeSource) add(tree plumbing.Hash, parent1, parent2 uint32, packed uint64) GraphPosition {
	rec := append([]byte{}, tree[:]...)
	rec = binary.BigEndian.AppendUint32(rec, parent1)
	rec = binary.BigEndian.AppendUint32(rec, parent2)
	rec = binary.BigEndian.AppendUint64(rec, packed)
	s.records = append(s.records, rec)
	s.ids = append(s.ids, testHash(string(rune('a'+len(s.ids)))))
	return GraphPosition(len(s.records) - 1)
}

func (s *fakeSource) withEdges(entries ...uint32) *fakeSource {
	s.hasEdges = true
	s.edges = nil
	for _, e := range entries {
		s.edges = binary.BigEndian.AppendUint32(s.edges, e)
	}
	return s
}
