// Package graphtest writes commit-graph files for tests.
package graphtest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/go-git/go-git/v5/plumbing"
)

const (
	ChunkOIDFanout  uint32 = 0x4f494446 // OIDF
	ChunkOIDLookup  uint32 = 0x4f49444c // OIDL
	ChunkCommitData uint32 = 0x43444154 // CDAT
	ChunkExtraEdges uint32 = 0x45444745 // EDGE

	noParent    uint32 = 0x7000_0000
	edgeMask    uint32 = 0x8000_0000
	headerSize         = 8
	chunkEntry         = 12
	checksumLen        = 20
)

// Commit is one commit to encode. Parents must also be part of the graph.
type Commit struct {
	ID         plumbing.Hash
	Tree       plumbing.Hash
	Parents    []plumbing.Hash
	Generation uint32
	Time       uint64
}

type Chunk struct {
	ID   uint32
	Data []byte
}

// PackGenerationAndTime builds the last 8 bytes of a CDAT record.
func PackGenerationAndTime(generation uint32, ts uint64) uint64 {
	return uint64(generation)<<34 | ts&0x3_ffff_ffff
}

// Encode writes a single-layer SHA-1 commit-graph holding commits.
func Encode(commits []Commit) ([]byte, error) {
	sorted := slices.Clone(commits)
	slices.SortFunc(sorted, func(a, b Commit) int { return bytes.Compare(a.ID[:], b.ID[:]) })
	positions := make(map[plumbing.Hash]uint32, len(sorted))
	for i, c := range sorted {
		if _, dup := positions[c.ID]; dup {
			return nil, fmt.Errorf("duplicate commit %s", c.ID)
		}
		positions[c.ID] = uint32(i)
	}

	var fanout [256]uint32
	for _, c := range sorted {
		for b := int(c.ID[0]); b < len(fanout); b++ {
			fanout[b]++
		}
	}
	var fanoutData, oidl, cdat, edges []byte
	for _, v := range fanout {
		fanoutData = binary.BigEndian.AppendUint32(fanoutData, v)
	}
	for _, c := range sorted {
		parents := make([]uint32, len(c.Parents))
		for i, h := range c.Parents {
			p, ok := positions[h]
			if !ok {
				return nil, fmt.Errorf("commit %s: parent %s is not part of the graph", c.ID, h)
			}
			parents[i] = p
		}
		p1, p2 := noParent, noParent
		switch len(parents) {
		case 0:
		case 1:
			p1 = parents[0]
		case 2:
			p1, p2 = parents[0], parents[1]
		default:
			p1 = parents[0]
			p2 = edgeMask | uint32(len(edges)/4)
			rest := parents[1:]
			for i, p := range rest {
				if i == len(rest)-1 {
					p |= edgeMask
				}
				edges = binary.BigEndian.AppendUint32(edges, p)
			}
		}
		oidl = append(oidl, c.ID[:]...)
		cdat = append(cdat, c.Tree[:]...)
		cdat = binary.BigEndian.AppendUint32(cdat, p1)
		cdat = binary.BigEndian.AppendUint32(cdat, p2)
		cdat = binary.BigEndian.AppendUint64(cdat, PackGenerationAndTime(c.Generation, c.Time))
	}

	chunks := []Chunk{
		{ID: ChunkOIDFanout, Data: fanoutData},
		{ID: ChunkOIDLookup, Data: oidl},
		{ID: ChunkCommitData, Data: cdat},
	}
	if len(edges) > 0 {
		chunks = append(chunks, Chunk{ID: ChunkExtraEdges, Data: edges})
	}
	return Assemble(1, 1, 0, chunks), nil
}

// Assemble lays out a header, chunk table and chunks in order. The trailing
// checksum is zeroed.
func Assemble(version, hashVersion, bases byte, chunks []Chunk) []byte {
	out := []byte{'C', 'G', 'P', 'H', version, hashVersion, byte(len(chunks)), bases}
	offset := uint64(headerSize + (len(chunks)+1)*chunkEntry)
	for _, c := range chunks {
		out = binary.BigEndian.AppendUint32(out, c.ID)
		out = binary.BigEndian.AppendUint64(out, offset)
		offset += uint64(len(c.Data))
	}
	out = binary.BigEndian.AppendUint32(out, 0)
	out = binary.BigEndian.AppendUint64(out, offset)
	for _, c := range chunks {
		out = append(out, c.Data...)
	}
	return append(out, make([]byte, checksumLen)...)
}
