package git

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"github.com/emirpasic/gods/queues/priorityqueue"
	"github.com/go-git/go-git/v5/plumbing"
)

// Log calls fn for rev and its ancestors, newest committer time first, until
// limit commits were visited (limit <= 0 means no limit).
//
// A commit with a malformed commit-graph record is still passed to fn with
// the parents that could be resolved; the walk does not descend further on
// that branch and continues with the rest of the history. Such failures are
// joined into the returned error once the walk ends. An error from fn stops
// the walk and is returned as is.
func (s *Service) Log(rev string, limit int, fn func(*Commit) error) error {
	start, err := s.Resolve(rev)
	if err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var malformed []error
	report := func(h plumbing.Hash, err error) {
		slog.Warn("skipping malformed history", slog.String("commit", h.String()), slog.Any("error", err))
		malformed = append(malformed, err)
	}

	queue := priorityqueue.NewWith(byCommitterTime)
	seen := map[plumbing.Hash]struct{}{start: {}}
	c, err := s.commitLocked(start)
	if c == nil {
		return err
	}
	if err != nil {
		report(start, err)
	}
	queue.Enqueue(c)

	visited := 0
	for !queue.Empty() && (limit <= 0 || visited < limit) {
		v, _ := queue.Dequeue()
		c := v.(*Commit)
		if err := fn(c); err != nil {
			return err
		}
		visited++
		for _, parent := range c.ParentHashes {
			if _, ok := seen[parent]; ok {
				continue
			}
			seen[parent] = struct{}{}
			pc, err := s.commitLocked(parent)
			if pc == nil {
				if errors.Is(err, plumbing.ErrObjectNotFound) {
					report(parent, err)
					continue
				}
				return fmt.Errorf("walk %s: %w", rev, err)
			}
			if err != nil {
				report(parent, err)
			}
			queue.Enqueue(pc)
		}
	}
	slog.Debug("Log done",
		slog.String("rev", rev),
		slog.Int("visited", visited),
		slog.Int("malformed", len(malformed)),
	)
	return errors.Join(malformed...)
}

func byCommitterTime(a, b any) int {
	ca, cb := a.(*Commit), b.(*Commit)
	switch {
	case !ca.When.Equal(cb.When):
		if ca.When.After(cb.When) {
			return -1
		}
		return 1
	case ca.Generation != cb.Generation:
		if ca.Generation > cb.Generation {
			return -1
		}
		return 1
	default:
		return bytes.Compare(ca.Hash[:], cb.Hash[:])
	}
}
