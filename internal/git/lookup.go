package git

import (
	"errors"
	"fmt"
	"slices"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/thiagokokada/cgraph-go/internal/commitgraph"
)

// Resolve turns a revision (hash, branch, tag, HEAD~2, ...) into a commit hash.
func (s *Service) Resolve(rev string) (plumbing.Hash, error) {
	h, err := s.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve %s: %w", rev, err)
	}
	return *h, nil
}

// Commit returns the commit rev points to, reading the commit-graph when it
// holds the commit and the object database otherwise.
//
// For a commit with a malformed commit-graph record, the returned commit
// lists the parents resolved before the failure and err describes it.
func (s *Service) Commit(rev string) (*Commit, error) {
	h, err := s.Resolve(rev)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commitLocked(h)
}

// commitLocked expects the caller to hold s.mu for reading.
func (s *Service) commitLocked(h plumbing.Hash) (*Commit, error) {
	if s.graph != nil {
		if pos, ok := s.graph.Lookup(h); ok {
			cd, err := s.graph.Commit(pos)
			if err != nil {
				return nil, err
			}
			return s.fromGraphLocked(cd)
		}
	}
	return s.fromObjects(h)
}

func (s *Service) fromGraphLocked(cd commitgraph.CommitData) (*Commit, error) {
	c := &Commit{
		Hash:       cd.ID(),
		TreeHash:   cd.RootTreeID(),
		Generation: cd.Generation(),
		When:       cd.CommitterTime(),
		FromGraph:  true,
	}
	positions, err := cd.ParentPositions()
	c.ParentHashes = make([]plumbing.Hash, 0, len(positions))
	for _, pos := range positions {
		id, idErr := s.graph.ID(pos)
		if idErr != nil {
			return c, errors.Join(err, fmt.Errorf("commit %s parent: %w", c.Hash, idErr))
		}
		c.ParentHashes = append(c.ParentHashes, id)
	}
	return c, err
}

func (s *Service) fromObjects(h plumbing.Hash) (*Commit, error) {
	s.objMu.Lock()
	defer s.objMu.Unlock()
	obj, ok := s.commits.Get(h)
	if !ok {
		var err error
		obj, err = s.repo.CommitObject(h)
		if err != nil {
			return nil, fmt.Errorf("read commit %s: %w", h, err)
		}
		s.commits.Add(h, obj)
	}
	return &Commit{
		Hash:         obj.Hash,
		TreeHash:     obj.TreeHash,
		ParentHashes: slices.Clone(obj.ParentHashes),
		When:         obj.Committer.When,
	}, nil
}
