package forge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"time"

	"git.home.luguber.info/inful/forksync/internal/config"
)

// GitHubResolver implements Resolver against the GitHub repository metadata
// endpoint. Fields used: default_branch and parent.full_name.
type GitHubResolver struct {
	httpClient *http.Client
	apiURL     string
	token      string
}

// NewGitHubResolver creates a GitHub resolver. The token is optional; when a
// token is present, failed authenticated requests are retried anonymously so
// a revoked or rate-limited token degrades instead of breaking discovery.
func NewGitHubResolver(gh config.GitHubConfig) *GitHubResolver {
	return &GitHubResolver{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiURL:     gh.APIURL,
		token:      gh.Token,
	}
}

// Provider returns ProviderGitHub.
func (r *GitHubResolver) Provider() Provider { return ProviderGitHub }

// githubRepo is the subset of the repository metadata response we consume.
type githubRepo struct {
	FullName      string `json:"full_name"`
	DefaultBranch string `json:"default_branch"`
	Parent        *struct {
		FullName      string `json:"full_name"`
		DefaultBranch string `json:"default_branch"`
	} `json:"parent"`
}

// ResolveUpstream reads parent.full_name: presence means "this is a fork of
// X", absence means the repository is canonical.
func (r *GitHubResolver) ResolveUpstream(ctx context.Context, desc RemoteDescriptor) (Discovery, error) {
	if desc.Provider != ProviderGitHub || desc.Owner == "" {
		return Discovery{Outcome: OutcomeUnknown}, fmt.Errorf("not a github remote: %s", desc.URL)
	}

	repo, err := r.getRepo(ctx, desc.FullName())
	if err != nil {
		return Discovery{Outcome: OutcomeUnknown}, err
	}
	if repo.Parent == nil || repo.Parent.FullName == "" {
		return Discovery{Outcome: OutcomeAbsent}, nil
	}
	return Discovery{
		Outcome: OutcomeFound,
		Link: &UpstreamLink{
			URL:           SSHCloneURL("github.com", repo.Parent.FullName),
			DefaultBranch: repo.Parent.DefaultBranch,
		},
	}, nil
}

// DefaultBranch returns the advertised default branch of desc.
func (r *GitHubResolver) DefaultBranch(ctx context.Context, desc RemoteDescriptor) (string, error) {
	if desc.Provider != ProviderGitHub || desc.Owner == "" {
		return "", fmt.Errorf("not a github remote: %s", desc.URL)
	}
	repo, err := r.getRepo(ctx, desc.FullName())
	if err != nil {
		return "", err
	}
	if repo.DefaultBranch == "" {
		return "", fmt.Errorf("no default_branch in metadata for %s", desc.FullName())
	}
	return repo.DefaultBranch, nil
}

// getRepo fetches /repos/{owner}/{repo}, falling back from authenticated to
// anonymous on any failure.
func (r *GitHubResolver) getRepo(ctx context.Context, fullName string) (*githubRepo, error) {
	repo, err := r.getRepoOnce(ctx, fullName, true)
	if err != nil && r.token != "" {
		repo, err = r.getRepoOnce(ctx, fullName, false)
	}
	return repo, err
}

func (r *GitHubResolver) getRepoOnce(ctx context.Context, fullName string, authed bool) (*githubRepo, error) {
	req, err := r.newRequest(ctx, "/repos/"+fullName, authed)
	if err != nil {
		return nil, err
	}
	var repo githubRepo
	if err := r.doRequest(req, &repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

func (r *GitHubResolver) newRequest(ctx context.Context, endpoint string, authed bool) (*http.Request, error) {
	u, err := url.Parse(r.apiURL)
	if err != nil {
		return nil, err
	}
	u.Path = path.Join(u.Path, endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if authed && r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", "forksync/1.0")
	return req, nil
}

func (r *GitHubResolver) doRequest(req *http.Request, result any) error {
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("GitHub API error: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(result)
}
