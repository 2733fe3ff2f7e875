package helpers

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// SetupTestGitRepo initializes a temporary git repository for testing.
// Returns the repository, its worktree, and the absolute path to the
// temporary directory. The repository carries a test identity so both go-git
// and CLI commits work.
func SetupTestGitRepo(t *testing.T) (*gogit.Repository, *gogit.Worktree, string) {
	t.Helper()

	tempDir := t.TempDir()

	repo, err := gogit.PlainInit(tempDir, false)
	if err != nil {
		t.Fatalf("failed to initialize git repo: %v", err)
	}
	SetTestIdentity(t, repo)

	w, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}

	return repo, w, tempDir
}

// SetTestIdentity writes a user identity into the repository config so CLI
// operations (merge, commit) have a committer.
func SetTestIdentity(t *testing.T, repo *gogit.Repository) {
	t.Helper()

	cfg, err := repo.Config()
	if err != nil {
		t.Fatalf("failed to read repo config: %v", err)
	}
	cfg.User.Name = "forksync-test"
	cfg.User.Email = "forksync-test@example.invalid"
	if err := repo.SetConfig(cfg); err != nil {
		t.Fatalf("failed to write repo config: %v", err)
	}
}

// TestSignature returns the signature used for go-git test commits.
func TestSignature() *object.Signature {
	return &object.Signature{
		Name:  "forksync-test",
		Email: "forksync-test@example.invalid",
		When:  time.Now(),
	}
}

// CommitFile writes a file and commits it, returning the commit hash.
func CommitFile(t *testing.T, wt *gogit.Worktree, dir, name, content, message string) plumbing.Hash {
	t.Helper()

	full := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		t.Fatalf("mkdir for %s: %v", name, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	if _, err := wt.Add(name); err != nil {
		t.Fatalf("add %s: %v", name, err)
	}
	hash, err := wt.Commit(message, &gogit.CommitOptions{Author: TestSignature()})
	if err != nil {
		t.Fatalf("commit %s: %v", name, err)
	}
	return hash
}

// CloneTestRepo clones srcDir into a fresh temp directory with the remote
// named origin, returning the clone and its path.
func CloneTestRepo(t *testing.T, srcDir string) (*gogit.Repository, string) {
	t.Helper()

	dir := t.TempDir()
	repo, err := gogit.PlainClone(dir, false, &gogit.CloneOptions{URL: srcDir})
	if err != nil {
		t.Fatalf("clone %s: %v", srcDir, err)
	}
	SetTestIdentity(t, repo)
	return repo, dir
}
