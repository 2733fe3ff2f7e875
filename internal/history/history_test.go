package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/forksync/internal/reconcile"
)

func TestRecordAndRecent(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	started := time.Now().Add(-time.Minute).Truncate(time.Second)
	finished := time.Now().Truncate(time.Second)

	run := Run{
		RunID:           "run-1",
		StartedAt:       started,
		FinishedAt:      finished,
		Success:         true,
		MarkdownChanged: true,
		UpdatedModules: ModuleRecords([]reconcile.Result{
			{Name: "mq2", Path: "vendor/mq2", WorkingBranch: "master", AheadCount: 2, HadHeadChange: true},
		}),
	}
	require.NoError(t, store.Record(context.Background(), run))
	require.NoError(t, store.Record(context.Background(), Run{RunID: "run-2", StartedAt: finished, FinishedAt: finished}))

	runs, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "run-2", runs[0].RunID, "newest first")

	got := runs[1]
	assert.Equal(t, "run-1", got.RunID)
	assert.True(t, got.Success)
	assert.True(t, got.MarkdownChanged)
	assert.False(t, got.DryRun)
	assert.Equal(t, started.Unix(), got.StartedAt.Unix())
	require.Len(t, got.UpdatedModules, 1)
	assert.Equal(t, "vendor/mq2", got.UpdatedModules[0].Path)
	assert.Equal(t, 2, got.UpdatedModules[0].AheadCount)
	assert.True(t, got.UpdatedModules[0].HeadMoved)
}

func TestRecentLimit(t *testing.T) {
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(context.Background(), Run{RunID: "run", StartedAt: time.Now(), FinishedAt: time.Now()}))
	}

	runs, err := store.Recent(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}
