package git

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"git.home.luguber.info/inful/forksync/internal/logfields"
)

// execGit runs the git CLI against this repository. Operations that go-git
// cannot express faithfully (three-way merge, gitlink staging) go through
// here so their behavior matches what an operator sees on the same checkout.
func (r *Repo) execGit(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", r.path}, args...)...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.String(), err
}

// MergeRemoteBranch merges <remote>/<branch> into the current branch with the
// default merge message. A conflict aborts the merge before returning, so the
// working tree is never left mid-merge, and surfaces as MergeConflictError.
func (r *Repo) MergeRemoteBranch(ctx context.Context, remote, branch string) error {
	theirs := remote + "/" + branch
	out, err := r.execGit(ctx, "merge", "--no-edit", theirs)
	if err == nil {
		return nil
	}
	lower := strings.ToLower(out)
	if strings.Contains(lower, "conflict") || strings.Contains(lower, "automatic merge failed") {
		if _, aerr := r.execGit(ctx, "merge", "--abort"); aerr != nil {
			slog.Warn("merge --abort failed", logfields.Path(r.path), logfields.Error(aerr))
		}
		return &MergeConflictError{Path: r.path, Theirs: theirs, Output: out}
	}
	return fmt.Errorf("merge %s in %s: %w: %s", theirs, r.path, err, strings.TrimSpace(out))
}

// StagePath stages one path (a submodule pointer in the superproject).
func (r *Repo) StagePath(ctx context.Context, path string) error {
	if out, err := r.execGit(ctx, "add", "--", path); err != nil {
		return fmt.Errorf("stage %s: %w: %s", path, err, strings.TrimSpace(out))
	}
	return nil
}

// HasChanges reports whether the index or working tree differ from HEAD.
// Untracked files are ignored, matching "pointers already match" semantics.
func (r *Repo) HasChanges(ctx context.Context) (bool, error) {
	out, err := r.execGit(ctx, "status", "--porcelain", "--untracked-files=no")
	if err != nil {
		return false, fmt.Errorf("status in %s: %w", r.path, err)
	}
	return strings.TrimSpace(out) != "", nil
}

// Commit records the staged changes with a title and body.
func (r *Repo) Commit(ctx context.Context, title, body string) error {
	args := []string{"commit", "-m", title}
	if body != "" {
		args = append(args, "-m", body)
	}
	if out, err := r.execGit(ctx, args...); err != nil {
		return fmt.Errorf("commit in %s: %w: %s", r.path, err, strings.TrimSpace(out))
	}
	return nil
}
