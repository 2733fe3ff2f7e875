// Package forge identifies hosting providers from remote URLs and queries
// their APIs for fork-parent and default-branch metadata.
//
// Discovery is read-only and deliberately non-fatal: every API problem
// degrades to "could not determine", never to a run failure.
package forge

import (
	"context"
	"fmt"
	"regexp"
)

// Provider enumerates the closed set of supported hosting providers.
type Provider string

const (
	ProviderGitHub Provider = "github"
	ProviderGitLab Provider = "gitlab"
	ProviderOther  Provider = "other"
)

// RemoteDescriptor is the parsed identity of a remote URL.
// Provider==ProviderOther disables upstream discovery.
type RemoteDescriptor struct {
	URL      string
	Provider Provider
	Owner    string
	Repo     string
}

// FullName returns "owner/repo" for API paths.
func (d RemoteDescriptor) FullName() string { return d.Owner + "/" + d.Repo }

// UpstreamLink names the canonical repository a fork descends from.
type UpstreamLink struct {
	// URL is an SSH-style clone URL (git@host:owner/repo.git), matching the
	// push/fetch credential model configured on the runner.
	URL string
	// DefaultBranch is the upstream's advertised default branch; may be empty
	// when only the parent name was discoverable.
	DefaultBranch string
}

// Outcome distinguishes "definitively no upstream" from "could not determine".
// Both are non-fatal; only Found carries a link.
type Outcome int

const (
	// OutcomeUnknown means the API could not be consulted (network, auth,
	// unparseable URL). The caller proceeds as if no upstream exists.
	OutcomeUnknown Outcome = iota
	// OutcomeAbsent means the provider answered and the repository is
	// canonical, not a fork.
	OutcomeAbsent
	// OutcomeFound means a fork parent was discovered.
	OutcomeFound
)

// Discovery is the result of one upstream lookup.
type Discovery struct {
	Outcome Outcome
	Link    *UpstreamLink
}

// Resolver answers fork-parent and default-branch questions for one provider.
// Implementations are read-only and side-effect-free.
type Resolver interface {
	Provider() Provider

	// ResolveUpstream looks up the fork parent of desc. The returned error is
	// informational; callers log it and treat the discovery as OutcomeUnknown.
	ResolveUpstream(ctx context.Context, desc RemoteDescriptor) (Discovery, error)

	// DefaultBranch returns the advertised default branch of desc, or an
	// error when the provider could not be consulted.
	DefaultBranch(ctx context.Context, desc RemoteDescriptor) (string, error)
}

var (
	githubRemote = regexp.MustCompile(`github\.com[/:]([^/]+)/([^/.]+)(?:\.git)?$`)
	gitlabRemote = regexp.MustCompile(`gitlab\.com[/:]([^/]+)/([^/.]+)(?:\.git)?$`)
)

// ParseRemote pattern-matches a remote URL against the known providers.
// Unrecognized hosts yield ProviderOther with no owner/repo, and no network
// call is ever made for them.
func ParseRemote(remoteURL string) RemoteDescriptor {
	if m := githubRemote.FindStringSubmatch(remoteURL); m != nil {
		return RemoteDescriptor{URL: remoteURL, Provider: ProviderGitHub, Owner: m[1], Repo: m[2]}
	}
	if m := gitlabRemote.FindStringSubmatch(remoteURL); m != nil {
		return RemoteDescriptor{URL: remoteURL, Provider: ProviderGitLab, Owner: m[1], Repo: m[2]}
	}
	return RemoteDescriptor{URL: remoteURL, Provider: ProviderOther}
}

// SSHCloneURL synthesizes the SSH-style clone URL for owner/repo on a host.
func SSHCloneURL(host, fullName string) string {
	return fmt.Sprintf("git@%s:%s.git", host, fullName)
}
