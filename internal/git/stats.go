package git

import (
	"log/slog"

	"github.com/thiagokokada/cgraph-go/internal/commitgraph"
)

// Stats summarizes the loaded commit-graph file.
func (s *Service) Stats() (Stats, error) {
	st := Stats{Path: s.repo.graphPath}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.graph == nil {
		return st, ErrNoCommitGraph
	}
	st.Size = s.graph.Size()
	st.Commits = s.graph.NumCommits()
	st.ExtraEdges = s.graph.HasExtraEdges()
	for i := range st.Commits {
		cd, err := s.graph.Commit(commitgraph.GraphPosition(i))
		if err != nil {
			return st, err
		}
		st.MaxGeneration = max(st.MaxGeneration, cd.Generation())
		parents, err := cd.ParentPositions()
		if err != nil {
			slog.Debug("malformed commit", slog.Any("error", err))
			st.Malformed++
			continue
		}
		switch n := len(parents); {
		case n == 0:
			st.Roots++
		case n > 2:
			st.Octopus++
			st.Merges++
		case n == 2:
			st.Merges++
		}
	}
	return st, nil
}
