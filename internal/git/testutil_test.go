package git

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/thiagokokada/cgraph-go/internal/commitgraph"
	"github.com/thiagokokada/cgraph-go/internal/commitgraph/graphtest"
)

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type testRepo struct {
	t    *testing.T
	dir  string
	repo *gitlib.Repository
	tree plumbing.Hash
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	dir := t.TempDir()
	repo, err := gitlib.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	r := &testRepo{t: t, dir: dir, repo: repo}
	r.tree = r.store(&object.Tree{})
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.Master)); err != nil {
		t.Fatalf("set HEAD: %v", err)
	}
	return r
}

func (r *testRepo) store(obj interface {
	Encode(plumbing.EncodedObject) error
}) plumbing.Hash {
	r.t.Helper()
	enc := r.repo.Storer.NewEncodedObject()
	if err := obj.Encode(enc); err != nil {
		r.t.Fatalf("encode: %v", err)
	}
	h, err := r.repo.Storer.SetEncodedObject(enc)
	if err != nil {
		r.t.Fatalf("store object: %v", err)
	}
	return h
}

// commit stores a commit made minutes after baseTime and points master at it.
func (r *testRepo) commit(msg string, minutes int, parents ...plumbing.Hash) plumbing.Hash {
	r.t.Helper()
	sig := object.Signature{
		Name:  "Alice",
		Email: "alice@example.com",
		When:  baseTime.Add(time.Duration(minutes) * time.Minute),
	}
	h := r.store(&object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      msg,
		TreeHash:     r.tree,
		ParentHashes: parents,
	})
	if err := r.repo.Storer.SetReference(plumbing.NewHashReference(plumbing.Master, h)); err != nil {
		r.t.Fatalf("set master: %v", err)
	}
	return h
}

func (r *testRepo) graphPath() string {
	return filepath.Join(r.dir, ".git", "objects", "info", "commit-graph")
}

// graphCommits reads the given commits and their ancestors back from the
// object database, computing generation numbers on the way.
func (r *testRepo) graphCommits(tips ...plumbing.Hash) []graphtest.Commit {
	r.t.Helper()
	generations := map[plumbing.Hash]uint32{}
	var out []graphtest.Commit
	var visit func(h plumbing.Hash) uint32
	visit = func(h plumbing.Hash) uint32 {
		if g, ok := generations[h]; ok {
			return g
		}
		c, err := r.repo.CommitObject(h)
		if err != nil {
			r.t.Fatalf("CommitObject(%s): %v", h, err)
		}
		var gen uint32
		for _, p := range c.ParentHashes {
			gen = max(gen, visit(p))
		}
		gen++
		generations[h] = gen
		out = append(out, graphtest.Commit{
			ID:         h,
			Tree:       c.TreeHash,
			Parents:    c.ParentHashes,
			Generation: gen,
			Time:       uint64(c.Committer.When.Unix()),
		})
		return gen
	}
	for _, tip := range tips {
		visit(tip)
	}
	return out
}

func (r *testRepo) writeGraph(data []byte) {
	r.t.Helper()
	path := r.graphPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.t.Fatalf("mkdir: %v", err)
	}
	// Write next to the target and rename, as git does.
	tmp := path + ".lock"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		r.t.Fatalf("write commit-graph: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		r.t.Fatalf("rename commit-graph: %v", err)
	}
}

func (r *testRepo) encode(commits []graphtest.Commit) []byte {
	r.t.Helper()
	data, err := graphtest.Encode(commits)
	if err != nil {
		r.t.Fatalf("encode commit-graph: %v", err)
	}
	return data
}

// setParent2 overwrites the raw second parent field of commit h.
func (r *testRepo) setParent2(data []byte, h plumbing.Hash, raw uint32) {
	r.t.Helper()
	f, err := commitgraph.ParseFile(data)
	if err != nil {
		r.t.Fatalf("ParseFile: %v", err)
	}
	pos, ok := f.Lookup(h)
	if !ok {
		r.t.Fatalf("%s not in commit-graph", h)
	}
	rec := f.CommitDataBytes(pos)
	// rec aliases data.
	binary.BigEndian.PutUint32(rec[24:28], raw)
}

func openService(t *testing.T, dir string) *Service {
	t.Helper()
	svc, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := svc.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return svc
}

func hashesOf(commits []*Commit) []plumbing.Hash {
	out := make([]plumbing.Hash, 0, len(commits))
	for _, c := range commits {
		out = append(out, c.Hash)
	}
	return out
}
