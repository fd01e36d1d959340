package git

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/thiagokokada/cgraph-go/internal/commitgraph"
)

const commitCacheSize = 4096

// ErrNoCommitGraph is returned by operations that need a commit-graph file
// when the repository has none.
var ErrNoCommitGraph = errors.New("repository has no commit-graph file")

type Service struct {
	// mu guards graph. Anything holding a view into the file keeps a read
	// lock until it is done, so Reload never unmaps a file in use.
	mu    sync.RWMutex
	graph *commitgraph.File

	repo repoState

	// objMu serializes object database reads through go-git.
	objMu   sync.Mutex
	commits *lru.Cache[plumbing.Hash, *object.Commit]

	watch watchState
}

type repoState struct {
	*gitlib.Repository
	path      string
	graphPath string
}

func Open(repoPath string) (*Service, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	repo, err := gitlib.PlainOpenWithOptions(abs, &gitlib.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	commits, err := lru.New[plumbing.Hash, *object.Commit](commitCacheSize)
	if err != nil {
		return nil, err
	}
	s := &Service{
		repo:    repoState{Repository: repo, path: abs, graphPath: commitGraphPath(repo, abs)},
		commits: commits,
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func commitGraphPath(repo *gitlib.Repository, root string) string {
	if st, ok := repo.Storer.(*filesystem.Storage); ok {
		return filepath.Join(st.Filesystem().Root(), "objects", "info", "commit-graph")
	}
	return filepath.Join(root, ".git", "objects", "info", "commit-graph")
}

func (s *Service) RepoPath() string {
	return s.repo.path
}

func (s *Service) GraphPath() string {
	return s.repo.graphPath
}

func (s *Service) HasGraph() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph != nil
}

// Reload reopens the commit-graph file. A missing file is not an error:
// lookups then go to the object database.
func (s *Service) Reload() error {
	graph, err := commitgraph.OpenFile(s.repo.graphPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load commit-graph: %w", err)
		}
		slog.Debug("no commit-graph file", slog.String("path", s.repo.graphPath))
		graph = nil
	}

	s.mu.Lock()
	old := s.graph
	s.graph = graph
	s.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			slog.Debug("commit-graph close", slog.Any("error", err))
		}
	}
	if graph != nil {
		slog.Debug("commit-graph loaded",
			slog.String("path", s.repo.graphPath),
			slog.Int("commits", graph.NumCommits()),
			slog.Bool("extra_edges", graph.HasExtraEdges()),
		)
	}
	return nil
}

func (s *Service) Close() error {
	err := s.stopWatch()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.graph != nil {
		err = errors.Join(err, s.graph.Close())
		s.graph = nil
	}
	return err
}
