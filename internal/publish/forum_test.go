package publish

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/forksync/internal/config"
)

func TestForumNotifierPostsReply(t *testing.T) {
	var got *http.Request
	var threadID, message string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		got = req.Clone(context.Background())
		require.NoError(t, req.ParseForm())
		threadID = req.PostFormValue("thread_id")
		message = req.PostFormValue("message")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	n := NewForumNotifier(config.ForumConfig{
		APIKey:   "secret",
		APIUser:  "7384",
		BaseURL:  srv.URL,
		ThreadID: 95078,
	})
	require.NotNil(t, n)

	require.NoError(t, n.Notify(context.Background(), "PR ready: https://example.com/pull/1"))

	require.NotNil(t, got)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/posts/", got.URL.Path)
	assert.Equal(t, "secret", got.Header.Get("XF-Api-Key"))
	assert.Equal(t, "7384", got.Header.Get("XF-Api-User"))
	assert.Equal(t, "95078", threadID)
	assert.Equal(t, "PR ready: https://example.com/pull/1", message)
}

func TestForumNotifierReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "invalid api key", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	n := NewForumNotifier(config.ForumConfig{APIKey: "bad", BaseURL: srv.URL, ThreadID: 1})
	require.NotNil(t, n)

	err := n.Notify(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestNewForumNotifierDisabledWhenIncomplete(t *testing.T) {
	assert.Nil(t, NewForumNotifier(config.ForumConfig{BaseURL: "https://forum.example", ThreadID: 1}))
	assert.Nil(t, NewForumNotifier(config.ForumConfig{APIKey: "k", ThreadID: 1}))
	assert.Nil(t, NewForumNotifier(config.ForumConfig{APIKey: "k", BaseURL: "https://forum.example"}))
}
