package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"

	"git.home.luguber.info/inful/forksync/internal/config"
	"git.home.luguber.info/inful/forksync/internal/forge"
	"git.home.luguber.info/inful/forksync/internal/git"
	"git.home.luguber.info/inful/forksync/internal/logfields"
	"git.home.luguber.info/inful/forksync/internal/manifest"
)

// Reconciler brings one submodule up to date with its discovered upstream
// and measures what changed.
type Reconciler struct {
	cfg      *config.Config
	registry *forge.Registry
}

// NewReconciler creates a reconciler using the given provider registry.
func NewReconciler(cfg *config.Config, registry *forge.Registry) *Reconciler {
	return &Reconciler{cfg: cfg, registry: registry}
}

// Reconcile runs the full per-submodule pipeline. It never panics and never
// returns an error: every failure is captured as OK=false with an attributed
// log entry, and the orchestrator decides the run's fate.
func (r *Reconciler) Reconcile(ctx context.Context, spec manifest.Spec) Result {
	result := Result{Name: spec.Name, Path: spec.Path, WorkingBranch: spec.Branch}
	log := slog.With(logfields.Submodule(spec.Name), logfields.Path(spec.Path))

	absPath := filepath.Join(r.cfg.SuperprojectPath, spec.Path)

	// An uninitialized submodule is "not part of this run", not an error.
	if !git.IsInitialized(absPath) {
		log.Info("Skipping uninitialized submodule")
		result.OK = true
		return result
	}

	repo, err := git.Open(absPath)
	if err != nil {
		log.Error("Failed to open submodule", logfields.Step("open"), logfields.Error(err))
		return result
	}

	// Pre-run HEAD is best-effort; an unborn HEAD is tolerated.
	preHead, err := repo.Head()
	if err != nil {
		log.Debug("No pre-run HEAD", logfields.Error(err))
	}

	originURL, err := repo.RemoteURL("origin")
	if err != nil {
		log.Error("Submodule has no origin remote", logfields.Step("origin"), logfields.Error(err))
		return result
	}
	log.Debug("Origin resolved", logfields.URL(originURL))

	if err := repo.Fetch(ctx, "origin"); err != nil {
		log.Error("Failed to fetch origin", logfields.Step("fetch-origin"), logfields.Error(err))
		return result
	}

	branch := repo.WorkingBranch(ctx, spec.Branch)
	result.WorkingBranch = branch
	if err := repo.CheckoutReset(branch); err != nil {
		log.Error("Failed to checkout working branch", logfields.Step("checkout"), logfields.Branch(branch), logfields.Error(err))
		return result
	}
	log.Info("Working branch checked out", logfields.Branch(branch))

	upstreamURL := r.ensureUpstream(ctx, log, repo, originURL)
	result.UpstreamURL = upstreamURL

	if upstreamURL != "" {
		if ok := r.mergeUpstream(ctx, log, repo, branch, upstreamURL); !ok {
			return result
		}
	} else {
		log.Info("No upstream; submodule is canonical, skipping merge")
	}

	ahead, files, err := repo.AheadOfRemote(branch)
	if err != nil {
		log.Error("Failed to measure origin range", logfields.Step("measure"), logfields.Error(err))
		return result
	}
	result.AheadCount = ahead
	result.ChangedFiles = files

	postHead, err := repo.Head()
	if err != nil {
		log.Debug("No post-run HEAD", logfields.Error(err))
	}
	if preHead != "" && postHead != "" && preHead != postHead {
		result.HadHeadChange = true
		session, err := repo.ChangedFiles(preHead, postHead)
		if err != nil {
			log.Warn("Failed to measure session range", logfields.Error(err))
		} else {
			result.SessionChangedFiles = session
		}
	}

	result.OK = true
	return result
}

// ensureUpstream returns the submodule's upstream URL, reusing an already
// configured upstream remote before consulting any provider API. An existing
// remote is trusted verbatim: repeated runs stay cheap and stable.
func (r *Reconciler) ensureUpstream(ctx context.Context, log *slog.Logger, repo *git.Repo, originURL string) string {
	if repo.HasRemote("upstream") {
		url, err := repo.RemoteURL("upstream")
		if err == nil {
			log.Info("Using existing upstream remote", logfields.Upstream(url))
			return url
		}
		log.Warn("Configured upstream remote is unreadable", logfields.Error(err))
		return ""
	}

	desc := forge.ParseRemote(originURL)
	resolver := r.registry.ResolverFor(desc.Provider)
	if resolver == nil {
		log.Info("Origin is not on a known provider; skipping upstream discovery", logfields.Provider(string(desc.Provider)))
		return ""
	}

	discovery, err := resolver.ResolveUpstream(ctx, desc)
	switch {
	case err != nil:
		// Discovery errors degrade to "no upstream discovered".
		log.Warn("Upstream discovery failed", logfields.Provider(string(desc.Provider)), logfields.Error(err))
		return ""
	case discovery.Outcome == forge.OutcomeAbsent:
		log.Debug("No fork parent; repository is canonical")
		return ""
	case discovery.Outcome != forge.OutcomeFound || discovery.Link == nil:
		return ""
	}

	if err := repo.AddRemote("upstream", discovery.Link.URL); err != nil {
		log.Warn("Failed to register upstream remote", logfields.Upstream(discovery.Link.URL), logfields.Error(err))
		return ""
	}
	log.Info("Registered upstream remote", logfields.Upstream(discovery.Link.URL))
	return discovery.Link.URL
}

// mergeUpstream fetches the upstream remote, negotiates its branch, and
// merges it into the working branch. Returns false on any fatal condition.
func (r *Reconciler) mergeUpstream(ctx context.Context, log *slog.Logger, repo *git.Repo, branch, upstreamURL string) bool {
	candidate := r.upstreamBranchCandidate(ctx, log, repo, upstreamURL)

	if err := repo.Fetch(ctx, "upstream"); err != nil {
		log.Error("Failed to fetch upstream", logfields.Step("fetch-upstream"), logfields.Upstream(upstreamURL), logfields.Error(err))
		return false
	}

	upstreamBranch, err := r.ensureFetchedRef(log, repo, candidate)
	if err != nil {
		log.Error("No usable upstream branch", logfields.Step("upstream-branch"), logfields.Upstream(upstreamURL), logfields.Error(err))
		return false
	}

	log.Info("Merging upstream", slog.String("upstream_branch", upstreamBranch), logfields.Branch(branch))
	if err := repo.MergeRemoteBranch(ctx, "upstream", upstreamBranch); err != nil {
		var conflict *git.MergeConflictError
		if errors.As(err, &conflict) {
			log.Error("Merge conflict; manual resolution required", logfields.Step("merge"), logfields.Error(err))
		} else {
			log.Error("Merge failed", logfields.Step("merge"), logfields.Error(err))
		}
		return false
	}
	return true
}

// upstreamBranchCandidate resolves the upstream branch before the fetch:
// the remote's advertised HEAD, else the provider API's default branch,
// else "main".
func (r *Reconciler) upstreamBranchCandidate(ctx context.Context, log *slog.Logger, repo *git.Repo, upstreamURL string) string {
	if head, err := repo.AdvertisedHead(ctx, "upstream"); err == nil && head != "" {
		return head
	} else if err != nil {
		log.Debug("Upstream HEAD query failed", logfields.Error(err))
	}

	desc := forge.ParseRemote(upstreamURL)
	if resolver := r.registry.ResolverFor(desc.Provider); resolver != nil {
		if branch, err := resolver.DefaultBranch(ctx, desc); err == nil && branch != "" {
			return branch
		} else if err != nil {
			log.Debug("Provider default-branch lookup failed", logfields.Error(err))
		}
	}
	return "main"
}

// ensureFetchedRef verifies the candidate branch actually exists among the
// fetched upstream refs, falling back to main, master, then the first
// available ref, with a warning at each step. Total absence is fatal.
func (r *Reconciler) ensureFetchedRef(log *slog.Logger, repo *git.Repo, candidate string) (string, error) {
	if repo.RemoteBranchExists("upstream", candidate) {
		return candidate, nil
	}
	log.Warn("Advertised upstream branch not among fetched refs", slog.String("wanted", candidate))

	for _, fallback := range []string{"main", "master"} {
		if fallback == candidate {
			continue
		}
		if repo.RemoteBranchExists("upstream", fallback) {
			log.Warn("Falling back to upstream branch", slog.String("fallback", fallback))
			return fallback, nil
		}
	}

	branches, err := repo.RemoteBranches("upstream")
	if err != nil {
		return "", err
	}
	if len(branches) > 0 {
		log.Warn("Falling back to first available upstream branch", slog.String("fallback", branches[0]))
		return branches[0], nil
	}
	return "", &git.RefNotFoundError{Remote: "upstream", Branch: candidate}
}
