package git

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/pmezard/go-difflib/difflib"
)

// Verify compares the commit-graph records of rev and its ancestors (up to
// limit commits, no limit when limit <= 0) with the commit objects they
// cache. Generation numbers are trusted and not checked.
func (s *Service) Verify(rev string, limit int) (VerifyResult, error) {
	var res VerifyResult
	start, err := s.Resolve(rev)
	if err != nil {
		return res, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.graph == nil {
		return res, ErrNoCommitGraph
	}

	queue := []plumbing.Hash{start}
	seen := map[plumbing.Hash]struct{}{start: {}}
	for len(queue) > 0 && (limit <= 0 || res.Checked+res.NotInGraph < limit) {
		h := queue[0]
		queue = queue[1:]
		want, err := s.fromObjects(h)
		if err != nil {
			return res, err
		}
		for _, p := range want.ParentHashes {
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				queue = append(queue, p)
			}
		}

		pos, ok := s.graph.Lookup(h)
		if !ok {
			res.NotInGraph++
			continue
		}
		res.Checked++
		cd, err := s.graph.Commit(pos)
		if err != nil {
			return res, err
		}
		got, gotErr := s.fromGraphLocked(cd)
		expected := formatRecord(want, nil)
		actual := formatRecord(got, gotErr)
		if expected == actual {
			continue
		}
		diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(expected),
			B:        difflib.SplitLines(actual),
			FromFile: "objects/" + h.String(),
			ToFile:   "commit-graph/" + h.String(),
			Context:  3,
		})
		if err != nil {
			return res, err
		}
		res.Mismatches = append(res.Mismatches, Mismatch{Hash: h, Diff: diff})
	}
	slog.Debug("Verify done",
		slog.String("rev", rev),
		slog.Int("checked", res.Checked),
		slog.Int("not_in_graph", res.NotInGraph),
		slog.Int("mismatches", len(res.Mismatches)),
	)
	return res, nil
}

func formatRecord(c *Commit, err error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "tree %s\n", c.TreeHash)
	for _, p := range c.ParentHashes {
		fmt.Fprintf(&b, "parent %s\n", p)
	}
	fmt.Fprintf(&b, "committer-time %d\n", c.When.Unix())
	if err != nil {
		fmt.Fprintf(&b, "error %v\n", err)
	}
	return b.String()
}
