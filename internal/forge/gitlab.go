package forge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"git.home.luguber.info/inful/forksync/internal/config"
)

// GitLabResolver implements Resolver against the GitLab project metadata
// endpoint. Fields used: default_branch and
// forked_from_project.path_with_namespace.
type GitLabResolver struct {
	httpClient *http.Client
	apiURL     string
	token      string
}

// NewGitLabResolver creates a GitLab resolver. The token is optional.
func NewGitLabResolver(gl config.GitLabConfig) *GitLabResolver {
	return &GitLabResolver{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiURL:     gl.APIURL,
		token:      gl.Token,
	}
}

// Provider returns ProviderGitLab.
func (r *GitLabResolver) Provider() Provider { return ProviderGitLab }

// gitlabProject is the subset of the project metadata response we consume.
type gitlabProject struct {
	DefaultBranch     string `json:"default_branch"`
	ForkedFromProject *struct {
		PathWithNamespace string `json:"path_with_namespace"`
		DefaultBranch     string `json:"default_branch"`
	} `json:"forked_from_project"`
}

// ResolveUpstream reads forked_from_project analogously to GitHub's parent.
func (r *GitLabResolver) ResolveUpstream(ctx context.Context, desc RemoteDescriptor) (Discovery, error) {
	if desc.Provider != ProviderGitLab || desc.Owner == "" {
		return Discovery{Outcome: OutcomeUnknown}, fmt.Errorf("not a gitlab remote: %s", desc.URL)
	}

	project, err := r.getProject(ctx, desc.FullName())
	if err != nil {
		return Discovery{Outcome: OutcomeUnknown}, err
	}
	if project.ForkedFromProject == nil || project.ForkedFromProject.PathWithNamespace == "" {
		return Discovery{Outcome: OutcomeAbsent}, nil
	}
	return Discovery{
		Outcome: OutcomeFound,
		Link: &UpstreamLink{
			URL:           SSHCloneURL("gitlab.com", project.ForkedFromProject.PathWithNamespace),
			DefaultBranch: project.ForkedFromProject.DefaultBranch,
		},
	}, nil
}

// DefaultBranch returns the advertised default branch of desc.
func (r *GitLabResolver) DefaultBranch(ctx context.Context, desc RemoteDescriptor) (string, error) {
	if desc.Provider != ProviderGitLab || desc.Owner == "" {
		return "", fmt.Errorf("not a gitlab remote: %s", desc.URL)
	}
	project, err := r.getProject(ctx, desc.FullName())
	if err != nil {
		return "", err
	}
	if project.DefaultBranch == "" {
		return "", fmt.Errorf("no default_branch in metadata for %s", desc.FullName())
	}
	return project.DefaultBranch, nil
}

// getProject fetches /projects/{url-encoded full path}, falling back from
// authenticated to anonymous on any failure.
func (r *GitLabResolver) getProject(ctx context.Context, fullName string) (*gitlabProject, error) {
	project, err := r.getProjectOnce(ctx, fullName, true)
	if err != nil && r.token != "" {
		project, err = r.getProjectOnce(ctx, fullName, false)
	}
	return project, err
}

func (r *GitLabResolver) getProjectOnce(ctx context.Context, fullName string, authed bool) (*gitlabProject, error) {
	// GitLab addresses projects by their URL-encoded full path.
	endpoint := r.apiURL + "/projects/" + url.PathEscape(fullName)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if authed && r.token != "" {
		req.Header.Set("PRIVATE-TOKEN", r.token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "forksync/1.0")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("GitLab API error: %s", resp.Status)
	}
	var project gitlabProject
	if err := json.NewDecoder(resp.Body).Decode(&project); err != nil {
		return nil, err
	}
	return &project, nil
}
