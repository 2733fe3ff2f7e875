// Package publish stages changed submodule pointers in the superproject and
// carries them to review: a rolling automation branch, a deduplicated pull
// request, and an optional forum notification.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/forksync/internal/config"
	"git.home.luguber.info/inful/forksync/internal/forge"
	"git.home.luguber.info/inful/forksync/internal/git"
	"git.home.luguber.info/inful/forksync/internal/logfields"
	"git.home.luguber.info/inful/forksync/internal/reconcile"
)

const (
	commitTitle = "Update submodule references"
	commitIntro = "Automated update of submodule references."
)

// PullRequestService finds or creates the automation pull request.
// Implementations must never open a second PR for the same head branch.
type PullRequestService interface {
	// EnsureOpen returns the PR URL and whether a new PR was created.
	EnsureOpen(ctx context.Context, owner, repo, base, head, title, body string) (string, bool, error)
}

// Notifier posts a message to an external sink. Failures are logged by the
// caller, never escalated.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Manager implements the publication state machine:
// checkout base, reset the rolling branch, stage, commit if dirty,
// then push, find-or-create the PR, and notify on creation.
type Manager struct {
	cfg      *config.Config
	prs      PullRequestService
	notifier Notifier
}

// NewManager creates a publication manager. prs and notifier may be nil,
// which disables the PR and notification steps respectively.
func NewManager(cfg *config.Config, prs PullRequestService, notifier Notifier) *Manager {
	return &Manager{cfg: cfg, prs: prs, notifier: notifier}
}

// Publish carries the updated submodule pointers into the superproject. A
// clean tree after staging is the common "pointers already match" case and
// still proceeds to the PR step: the rolling branch may carry earlier
// commits that never reached review.
func (m *Manager) Publish(ctx context.Context, updated []reconcile.Result) error {
	repo, err := git.Open(m.cfg.SuperprojectPath)
	if err != nil {
		return fmt.Errorf("open superproject: %w", err)
	}

	if err := repo.Fetch(ctx, "origin"); err != nil {
		return fmt.Errorf("fetch superproject origin: %w", err)
	}

	base := m.baseBranch(ctx, repo)
	if err := repo.CheckoutReset(base); err != nil {
		return fmt.Errorf("checkout base %s: %w", base, err)
	}

	// CheckoutReset rolls the automation branch to its own origin tip when
	// it exists, otherwise creates it from the base branch just checked out.
	branch := m.cfg.AutomationBranch
	if err := repo.CheckoutReset(branch); err != nil {
		return fmt.Errorf("checkout automation branch %s: %w", branch, err)
	}
	slog.Info("Automation branch ready", logfields.Branch(branch), slog.String("base", base))

	for _, mod := range updated {
		if err := repo.StagePath(ctx, mod.Path); err != nil {
			return fmt.Errorf("stage %s: %w", mod.Path, err)
		}
	}

	dirty, err := repo.HasChanges(ctx)
	if err != nil {
		return fmt.Errorf("status superproject: %w", err)
	}
	if dirty {
		if err := repo.Commit(ctx, commitTitle, commitBody(updated)); err != nil {
			return fmt.Errorf("commit pointer bump: %w", err)
		}
		slog.Info("Committed submodule pointer bump", slog.Int("paths", len(updated)))
	} else {
		slog.Info("Submodule pointers already match; nothing to commit")
	}

	if m.cfg.DryRun {
		slog.Info("Dry run: would push automation branch and ensure PR",
			logfields.Branch(branch), slog.String("base", base))
		return nil
	}

	if err := repo.Push(ctx, "origin", branch); err != nil {
		return fmt.Errorf("push automation branch: %w", err)
	}

	return m.ensurePullRequest(ctx, repo, base, branch, updated)
}

// baseBranch resolves the superproject's default branch from the remote's
// advertised HEAD, falling back to the checked-out branch.
func (m *Manager) baseBranch(ctx context.Context, repo *git.Repo) string {
	if head, err := repo.AdvertisedHead(ctx, "origin"); err == nil && head != "" {
		return head
	}
	if current, err := repo.CurrentBranch(); err == nil {
		slog.Warn("Superproject origin advertises no HEAD; using current branch", logfields.Branch(current))
		return current
	}
	slog.Warn("Superproject base branch unknown; assuming main")
	return "main"
}

func (m *Manager) ensurePullRequest(ctx context.Context, repo *git.Repo, base, branch string, updated []reconcile.Result) error {
	if m.prs == nil {
		slog.Info("No PR service configured; skipping pull request")
		return nil
	}

	originURL, err := repo.RemoteURL("origin")
	if err != nil {
		return fmt.Errorf("superproject origin url: %w", err)
	}
	desc := forge.ParseRemote(originURL)
	if desc.Provider != forge.ProviderGitHub {
		slog.Info("Superproject is not hosted on GitHub; skipping pull request", logfields.URL(originURL))
		return nil
	}

	url, created, err := m.prs.EnsureOpen(ctx, desc.Owner, desc.Repo, base, branch, commitTitle, commitBody(updated))
	if err != nil {
		return fmt.Errorf("ensure pull request: %w", err)
	}
	if created {
		slog.Info("Opened pull request", logfields.URL(url))
		m.notify(ctx, url)
	} else {
		slog.Info("Existing pull request updated by push", logfields.URL(url))
	}
	return nil
}

// notify posts the PR link to the forum thread. Only newly created PRs are
// announced; failures are logged and swallowed.
func (m *Manager) notify(ctx context.Context, prURL string) {
	if m.notifier == nil {
		return
	}
	message := fmt.Sprintf("Automated submodule updates are ready for review: %s", prURL)
	if err := m.notifier.Notify(ctx, message); err != nil {
		slog.Warn("Forum notification failed", logfields.Error(err))
	}
}

func commitBody(updated []reconcile.Result) string {
	var b strings.Builder
	b.WriteString(commitIntro)
	b.WriteString("\n\nUpdated paths:\n")
	for _, mod := range updated {
		b.WriteString("- ")
		b.WriteString(mod.Path)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
