package publish

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/forksync/internal/config"
)

func TestNewGitHubPullRequestsRequiresToken(t *testing.T) {
	svc, err := NewGitHubPullRequests(config.GitHubConfig{})
	require.NoError(t, err)
	assert.Nil(t, svc, "no token means no PR capability")
}

func TestEnsureOpenReusesExistingPR(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		require.Equal(t, http.MethodGet, req.Method)
		assert.Equal(t, "/repos/redguides/super/pulls", req.URL.Path)
		assert.Equal(t, "open", req.URL.Query().Get("state"))
		assert.Equal(t, "master", req.URL.Query().Get("base"))
		assert.Equal(t, "redguides:auto/submodule-updates", req.URL.Query().Get("head"))
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"number": 7, "html_url": "https://github.com/redguides/super/pull/7"},
		})
	}))
	t.Cleanup(srv.Close)

	svc, err := NewGitHubPullRequests(config.GitHubConfig{Token: "tok", APIURL: srv.URL})
	require.NoError(t, err)

	url, created, err := svc.EnsureOpen(context.Background(),
		"redguides", "super", "master", "auto/submodule-updates", "title", "body")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "https://github.com/redguides/super/pull/7", url)
}

func TestEnsureOpenCreatesWhenNoneExists(t *testing.T) {
	var createPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte("[]"))
		case http.MethodPost:
			assert.Equal(t, "/repos/redguides/super/pulls", req.URL.Path)
			require.NoError(t, json.NewDecoder(req.Body).Decode(&createPayload))
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"number": 8, "html_url": "https://github.com/redguides/super/pull/8",
			})
		default:
			t.Errorf("unexpected method %s", req.Method)
		}
	}))
	t.Cleanup(srv.Close)

	svc, err := NewGitHubPullRequests(config.GitHubConfig{Token: "tok", APIURL: srv.URL})
	require.NoError(t, err)

	url, created, err := svc.EnsureOpen(context.Background(),
		"redguides", "super", "master", "auto/submodule-updates", "Update submodule references", "body text")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "https://github.com/redguides/super/pull/8", url)

	assert.Equal(t, "Update submodule references", createPayload["title"])
	assert.Equal(t, "auto/submodule-updates", createPayload["head"])
	assert.Equal(t, "master", createPayload["base"])
	assert.Equal(t, "body text", createPayload["body"])
}

func TestEnsureOpenPropagatesListError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	svc, err := NewGitHubPullRequests(config.GitHubConfig{Token: "bad", APIURL: srv.URL})
	require.NoError(t, err)

	_, _, err = svc.EnsureOpen(context.Background(), "redguides", "super", "master", "auto/submodule-updates", "t", "b")
	require.Error(t, err)
}
