package publish

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v66/github"

	"git.home.luguber.info/inful/forksync/internal/config"
)

// GitHubPullRequests implements PullRequestService on the GitHub pull
// request API. Requires a token; construction fails without one so callers
// can degrade to the no-PR mode explicitly.
type GitHubPullRequests struct {
	client *github.Client
}

// NewGitHubPullRequests builds the PR service from the GitHub settings.
// Returns nil when no token is configured.
func NewGitHubPullRequests(gh config.GitHubConfig) (*GitHubPullRequests, error) {
	if gh.Token == "" {
		return nil, nil
	}

	client := github.NewClient(nil).WithAuthToken(gh.Token)
	if gh.APIURL != "" {
		base, err := url.Parse(strings.TrimSuffix(gh.APIURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parse github api url: %w", err)
		}
		client.BaseURL = base
	}
	return &GitHubPullRequests{client: client}, nil
}

// EnsureOpen searches the open PRs on base for one whose head is the
// automation branch and reuses it; a new PR is created only when none
// exists. The boolean reports creation.
func (g *GitHubPullRequests) EnsureOpen(ctx context.Context, owner, repo, base, head, title, body string) (string, bool, error) {
	existing, _, err := g.client.PullRequests.List(ctx, owner, repo, &github.PullRequestListOptions{
		State:       "open",
		Base:        base,
		Head:        owner + ":" + head,
		ListOptions: github.ListOptions{PerPage: 10},
	})
	if err != nil {
		return "", false, fmt.Errorf("list open pull requests: %w", err)
	}
	if len(existing) > 0 {
		return existing[0].GetHTMLURL(), false, nil
	}

	pr, _, err := g.client.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.String(title),
		Head:  github.String(head),
		Base:  github.String(base),
		Body:  github.String(body),
	})
	if err != nil {
		return "", false, fmt.Errorf("create pull request: %w", err)
	}
	return pr.GetHTMLURL(), true, nil
}
