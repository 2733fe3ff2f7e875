package forge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/forksync/internal/config"
)

func newGitHubTestResolver(t *testing.T, token string, handler http.HandlerFunc) *GitHubResolver {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGitHubResolver(config.GitHubConfig{APIURL: srv.URL, Token: token})
}

func TestGitHubResolveUpstreamFork(t *testing.T) {
	r := newGitHubTestResolver(t, "tok", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/repos/someone/mq2", req.URL.Path)
		assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"full_name":"someone/mq2","default_branch":"live","parent":{"full_name":"org/upstream-repo","default_branch":"main"}}`))
	})

	d, err := r.ResolveUpstream(context.Background(), ParseRemote("git@github.com:someone/mq2.git"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeFound, d.Outcome)
	require.NotNil(t, d.Link)
	assert.Equal(t, "git@github.com:org/upstream-repo.git", d.Link.URL)
	assert.Equal(t, "main", d.Link.DefaultBranch)
}

func TestGitHubResolveUpstreamCanonical(t *testing.T) {
	r := newGitHubTestResolver(t, "", func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(`{"full_name":"org/upstream-repo","default_branch":"main"}`))
	})

	d, err := r.ResolveUpstream(context.Background(), ParseRemote("https://github.com/org/upstream-repo"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeAbsent, d.Outcome)
	assert.Nil(t, d.Link)
}

func TestGitHubAuthFallbackToAnonymous(t *testing.T) {
	// A rate-limited token must not break discovery: the resolver retries
	// without the Authorization header.
	r := newGitHubTestResolver(t, "bad-token", func(w http.ResponseWriter, req *http.Request) {
		if req.Header.Get("Authorization") != "" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`{"default_branch":"main","parent":{"full_name":"org/upstream-repo"}}`))
	})

	d, err := r.ResolveUpstream(context.Background(), ParseRemote("git@github.com:someone/mq2.git"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeFound, d.Outcome)
	assert.Equal(t, "git@github.com:org/upstream-repo.git", d.Link.URL)
}

func TestGitHubAPIFailureIsUnknown(t *testing.T) {
	r := newGitHubTestResolver(t, "", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	d, err := r.ResolveUpstream(context.Background(), ParseRemote("git@github.com:someone/mq2.git"))
	assert.Error(t, err)
	assert.Equal(t, OutcomeUnknown, d.Outcome)
}

func TestGitHubNonGitHubRemoteIsUnknown(t *testing.T) {
	r := NewGitHubResolver(config.GitHubConfig{APIURL: "https://api.github.com"})
	d, err := r.ResolveUpstream(context.Background(), ParseRemote("git@git.example.org:x/y.git"))
	assert.Error(t, err)
	assert.Equal(t, OutcomeUnknown, d.Outcome)
}

func TestGitHubDefaultBranch(t *testing.T) {
	r := newGitHubTestResolver(t, "", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/repos/org/upstream-repo", req.URL.Path)
		_, _ = w.Write([]byte(`{"default_branch":"develop"}`))
	})

	branch, err := r.DefaultBranch(context.Background(), ParseRemote("git@github.com:org/upstream-repo.git"))
	require.NoError(t, err)
	assert.Equal(t, "develop", branch)
}
