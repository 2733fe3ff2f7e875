package forge

import "git.home.luguber.info/inful/forksync/internal/config"

// Registry hands out the resolver for a remote's provider.
type Registry struct {
	github *GitHubResolver
	gitlab *GitLabResolver
}

// NewRegistry builds resolvers for the closed provider set from the config.
func NewRegistry(cfg *config.Config) *Registry {
	return &Registry{
		github: NewGitHubResolver(cfg.GitHub),
		gitlab: NewGitLabResolver(cfg.GitLab),
	}
}

// ResolverFor returns the resolver for a provider, or nil for ProviderOther.
// A nil resolver means upstream discovery is disabled for that remote.
func (r *Registry) ResolverFor(p Provider) Resolver {
	switch p {
	case ProviderGitHub:
		return r.github
	case ProviderGitLab:
		return r.gitlab
	default:
		return nil
	}
}
