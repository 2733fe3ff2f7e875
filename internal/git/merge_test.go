package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	helpers "git.home.luguber.info/inful/forksync/internal/testutil/testutils"
)

// setupForkWithUpstream builds the canonical fork topology: an upstream
// repository, a fork cloned from it, and a working clone of the fork with
// both remotes fetched.
func setupForkWithUpstream(t *testing.T) (workRepo *Repo, upstreamDir string, upstreamCommit func(name, content string)) {
	t.Helper()

	_, upstreamWt, upstreamPath := helpers.SetupTestGitRepo(t)
	helpers.CommitFile(t, upstreamWt, upstreamPath, "README.md", "upstream", "initial")

	_, forkDir := helpers.CloneTestRepo(t, upstreamPath)
	_, workDir := helpers.CloneTestRepo(t, forkDir)

	repo, err := Open(workDir)
	require.NoError(t, err)
	require.NoError(t, repo.AddRemote("upstream", upstreamPath))
	require.NoError(t, repo.Fetch(context.Background(), "upstream"))

	return repo, upstreamPath, func(name, content string) {
		helpers.CommitFile(t, upstreamWt, upstreamPath, name, content, "upstream change "+name)
	}
}

func TestMergeRemoteBranchFastForward(t *testing.T) {
	repo, _, upstreamCommit := setupForkWithUpstream(t)
	upstreamCommit("docs/notes.md", "new notes")
	require.NoError(t, repo.Fetch(context.Background(), "upstream"))

	branch, err := repo.CurrentBranch()
	require.NoError(t, err)
	require.NoError(t, repo.MergeRemoteBranch(context.Background(), "upstream", branch))

	data, err := os.ReadFile(filepath.Join(repo.Path(), "docs", "notes.md"))
	require.NoError(t, err)
	assert.Equal(t, "new notes", string(data))
}

func TestMergeRemoteBranchTrueMerge(t *testing.T) {
	repo, _, upstreamCommit := setupForkWithUpstream(t)

	// Diverge: local commit on one file, upstream commit on another.
	wt, err := repo.repo.Worktree()
	require.NoError(t, err)
	helpers.CommitFile(t, wt, repo.Path(), "local.md", "local work", "local change")
	upstreamCommit("upstream.md", "upstream work")
	require.NoError(t, repo.Fetch(context.Background(), "upstream"))

	branch, err := repo.CurrentBranch()
	require.NoError(t, err)
	require.NoError(t, repo.MergeRemoteBranch(context.Background(), "upstream", branch))

	// Both sides present after the merge commit.
	_, err = os.Stat(filepath.Join(repo.Path(), "local.md"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(repo.Path(), "upstream.md"))
	assert.NoError(t, err)
}

func TestMergeConflictAbortsAndReports(t *testing.T) {
	repo, _, upstreamCommit := setupForkWithUpstream(t)

	wt, err := repo.repo.Worktree()
	require.NoError(t, err)
	helpers.CommitFile(t, wt, repo.Path(), "README.md", "local version", "local edit")
	upstreamCommit("README.md", "upstream version")
	require.NoError(t, repo.Fetch(context.Background(), "upstream"))

	branch, err := repo.CurrentBranch()
	require.NoError(t, err)
	err = repo.MergeRemoteBranch(context.Background(), "upstream", branch)
	require.Error(t, err)

	var conflict *MergeConflictError
	require.True(t, errors.As(err, &conflict), "expected MergeConflictError, got %T", err)
	assert.Equal(t, repo.Path(), conflict.Path)
	assert.Contains(t, conflict.Theirs, "upstream/")

	// The merge was aborted: no MERGE_HEAD left behind.
	_, statErr := os.Stat(filepath.Join(repo.Path(), ".git", "MERGE_HEAD"))
	assert.True(t, os.IsNotExist(statErr), "working tree must not be left mid-merge")
}

func TestStageCommitCycle(t *testing.T) {
	repo, _, _ := setupForkWithUpstream(t)
	ctx := context.Background()

	dirty, err := repo.HasChanges(ctx)
	require.NoError(t, err)
	assert.False(t, dirty)

	require.NoError(t, os.WriteFile(filepath.Join(repo.Path(), "README.md"), []byte("edited"), 0o600))
	require.NoError(t, repo.StagePath(ctx, "README.md"))

	dirty, err = repo.HasChanges(ctx)
	require.NoError(t, err)
	assert.True(t, dirty)

	require.NoError(t, repo.Commit(ctx, "Update submodule references", "Automated update."))

	dirty, err = repo.HasChanges(ctx)
	require.NoError(t, err)
	assert.False(t, dirty)
}
