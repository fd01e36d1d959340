package commitgraph

import "strconv"

// GraphPosition is the row of a commit in the CDAT table. Parent links are
// expressed in this address space. Only the low 31 bits are usable.
type GraphPosition uint32

func (p GraphPosition) String() string {
	return strconv.FormatUint(uint64(p), 10)
}

// LexPosition is the row of a commit in the sorted OIDL table. It is only
// used to resolve a commit's own id.
type LexPosition uint32

func (p LexPosition) String() string {
	return strconv.FormatUint(uint64(p), 10)
}
