package git

import (
	"time"

	"github.com/go-git/go-git/v5/plumbing"
)

type Commit struct {
	Hash         plumbing.Hash
	TreeHash     plumbing.Hash
	ParentHashes []plumbing.Hash
	// Generation is zero for commits read from the object database.
	Generation uint32
	// When is the committer time.
	When      time.Time
	FromGraph bool
}

type Stats struct {
	Path          string
	Size          int
	Commits       int
	Roots         int
	Merges        int
	Octopus       int
	MaxGeneration uint32
	ExtraEdges    bool
	// Malformed counts commits whose parents could not be resolved.
	Malformed int
}

type Mismatch struct {
	Hash plumbing.Hash
	Diff string
}

type VerifyResult struct {
	Checked int
	// NotInGraph counts reachable commits newer than the commit-graph file.
	NotInGraph int
	Mismatches []Mismatch
}
