package commitgraph

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/go-git/go-git/v5/plumbing"
)

const (
	headerSize     = 8
	chunkEntrySize = 12
	fanoutEntries  = 256
	fanoutSize     = fanoutEntries * 4
	// maxCommits keeps every graph position inside 31 bits.
	maxCommits = 0x7fff_ffff
)

var fileSignature = []byte{'C', 'G', 'P', 'H'}

const (
	chunkOIDFanout  uint32 = 0x4f494446 // OIDF
	chunkOIDLookup  uint32 = 0x4f49444c // OIDL
	chunkCommitData uint32 = 0x43444154 // CDAT
	chunkExtraEdges uint32 = 0x45444745 // EDGE
)

// File is a parsed single-layer commit-graph file. It implements Source;
// graph positions and lex positions are the same row numbers.
type File struct {
	data   []byte
	closer func() error
	closed atomic.Bool

	fanout     [fanoutEntries]uint32
	oidLookup  []byte
	commitData []byte
	extraEdges []byte
	hasEdges   bool
}

// OpenFile maps the commit-graph file at path read-only.
func OpenFile(path string) (*File, error) {
	data, closer, err := mapFile(path)
	if err != nil {
		return nil, fmt.Errorf("open commit-graph: %w", err)
	}
	f, err := parse(data, closer)
	if err != nil {
		if cerr := closer(); cerr != nil {
			err = fmt.Errorf("%w (close: %v)", err, cerr)
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// ParseFile parses a commit-graph held in memory. data must not be modified
// afterwards.
func ParseFile(data []byte) (*File, error) {
	return parse(data, nil)
}

func parse(data []byte, closer func() error) (*File, error) {
	if len(data) < headerSize+hashSize {
		return nil, fmt.Errorf("%w: file too small (%d bytes)", ErrMalformedFile, len(data))
	}
	if !bytes.Equal(data[:4], fileSignature) {
		return nil, fmt.Errorf("%w: bad signature %q", ErrMalformedFile, data[:4])
	}
	if data[4] != 1 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, data[4])
	}
	if data[5] != 1 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedHash, data[5])
	}
	if data[7] != 0 {
		return nil, fmt.Errorf("%w: %d base graphs", ErrChainedGraph, data[7])
	}

	chunks, err := readChunkTable(data, int(data[6]))
	if err != nil {
		return nil, err
	}

	f := &File{data: data, closer: closer}
	fanout, ok := chunks[chunkOIDFanout]
	if !ok || len(fanout) != fanoutSize {
		return nil, fmt.Errorf("%w: missing or short OIDF chunk", ErrMalformedFile)
	}
	var prev uint32
	for i := range fanoutEntries {
		v := binary.BigEndian.Uint32(fanout[i*4:])
		if v < prev {
			return nil, fmt.Errorf("%w: fanout is not monotonic at %d", ErrMalformedFile, i)
		}
		f.fanout[i] = v
		prev = v
	}
	n := uint64(f.fanout[fanoutEntries-1])
	if n > maxCommits {
		return nil, fmt.Errorf("%w: %d commits", ErrMalformedFile, n)
	}
	if f.oidLookup, ok = chunks[chunkOIDLookup]; !ok || uint64(len(f.oidLookup)) != n*hashSize {
		return nil, fmt.Errorf("%w: OIDL chunk does not hold %d ids", ErrMalformedFile, n)
	}
	if f.commitData, ok = chunks[chunkCommitData]; !ok || uint64(len(f.commitData)) != n*commitDataSize {
		return nil, fmt.Errorf("%w: CDAT chunk does not hold %d records", ErrMalformedFile, n)
	}
	f.extraEdges, f.hasEdges = chunks[chunkExtraEdges]
	return f, nil
}

type chunkEntry struct {
	id     uint32
	offset uint64
}

func readChunkTable(data []byte, count int) (map[uint32][]byte, error) {
	tableEnd := headerSize + (count+1)*chunkEntrySize
	contentEnd := uint64(len(data) - hashSize)
	if uint64(tableEnd) > contentEnd {
		return nil, fmt.Errorf("%w: chunk table exceeds file", ErrMalformedFile)
	}
	entries := make([]chunkEntry, count+1)
	for i := range entries {
		b := data[headerSize+i*chunkEntrySize:]
		entries[i] = chunkEntry{
			id:     binary.BigEndian.Uint32(b[:4]),
			offset: binary.BigEndian.Uint64(b[4:12]),
		}
	}
	if entries[count].id != 0 {
		return nil, fmt.Errorf("%w: chunk table is not terminated", ErrMalformedFile)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].offset < entries[j].offset })

	chunks := make(map[uint32][]byte, count)
	for i, e := range entries {
		if e.id == 0 {
			continue
		}
		if i+1 == len(entries) {
			return nil, fmt.Errorf("%w: chunk %08x has no end", ErrMalformedFile, e.id)
		}
		end := entries[i+1].offset
		if e.offset < uint64(tableEnd) || end > contentEnd {
			return nil, fmt.Errorf("%w: chunk %08x out of bounds", ErrMalformedFile, e.id)
		}
		if _, dup := chunks[e.id]; dup {
			return nil, fmt.Errorf("%w: duplicate chunk %08x", ErrMalformedFile, e.id)
		}
		chunks[e.id] = data[e.offset:end:end]
	}
	return chunks, nil
}

func (f *File) checkOpen() {
	if f.closed.Load() {
		panic("commitgraph: use of closed File")
	}
}

// NumCommits returns the number of commits in the file.
func (f *File) NumCommits() int {
	return int(f.fanout[fanoutEntries-1])
}

// Size returns the size of the file in bytes.
func (f *File) Size() int {
	return len(f.data)
}

// HasExtraEdges reports whether the file carries an EDGE chunk.
func (f *File) HasExtraEdges() bool {
	return f.hasEdges
}

// Lookup finds the graph position of h.
func (f *File) Lookup(h plumbing.Hash) (GraphPosition, bool) {
	f.checkOpen()
	var low uint32
	if h[0] > 0 {
		low = f.fanout[h[0]-1]
	}
	high := f.fanout[h[0]]
	for low < high {
		mid := low + (high-low)/2
		offset := int(mid) * hashSize
		switch cmp := bytes.Compare(h[:], f.oidLookup[offset:offset+hashSize]); {
		case cmp < 0:
			high = mid
		case cmp == 0:
			return GraphPosition(mid), true
		default:
			low = mid + 1
		}
	}
	return 0, false
}

// Commit decodes the record at pos.
func (f *File) Commit(pos GraphPosition) (CommitData, error) {
	if int(pos) >= f.NumCommits() {
		return CommitData{}, fmt.Errorf("%w: %d of %d", ErrPositionOutOfRange, pos, f.NumCommits())
	}
	return NewCommitData(f, pos, LexPosition(pos)), nil
}

// CommitByHash decodes the record of the commit h.
func (f *File) CommitByHash(h plumbing.Hash) (CommitData, error) {
	pos, ok := f.Lookup(h)
	if !ok {
		return CommitData{}, fmt.Errorf("%w: %s", ErrNotFound, h)
	}
	return f.Commit(pos)
}

// ID returns the object id of the commit at pos.
func (f *File) ID(pos GraphPosition) (plumbing.Hash, error) {
	if int(pos) >= f.NumCommits() {
		return plumbing.ZeroHash, fmt.Errorf("%w: %d of %d", ErrPositionOutOfRange, pos, f.NumCommits())
	}
	return f.IDAt(LexPosition(pos)), nil
}

func (f *File) CommitDataBytes(pos GraphPosition) []byte {
	f.checkOpen()
	offset := int(pos) * commitDataSize
	return f.commitData[offset : offset+commitDataSize]
}

func (f *File) IDAt(pos LexPosition) plumbing.Hash {
	f.checkOpen()
	var h plumbing.Hash
	offset := int(pos) * hashSize
	copy(h[:], f.oidLookup[offset:offset+hashSize])
	return h
}

func (f *File) ExtraEdgesData() ([]byte, bool) {
	f.checkOpen()
	return f.extraEdges, f.hasEdges
}

// Close releases the mapping. No view into the file may be used afterwards.
func (f *File) Close() error {
	if f.closed.Swap(true) {
		return nil
	}
	if f.closer == nil {
		return nil
	}
	return f.closer()
}
