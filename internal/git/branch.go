package git

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"git.home.luguber.info/inful/forksync/internal/logfields"
)

// CurrentBranch returns the checked-out branch name, or an error when HEAD
// is detached or unborn.
func (r *Repo) CurrentBranch() (string, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("head: %w", err)
	}
	if !ref.Name().IsBranch() {
		return "", fmt.Errorf("detached HEAD at %s", ref.Hash().String()[:8])
	}
	return ref.Name().Short(), nil
}

// RemoteBranchExists reports whether refs/remotes/<remote>/<branch> exists.
func (r *Repo) RemoteBranchExists(remote, branch string) bool {
	_, err := r.repo.Reference(plumbing.NewRemoteReferenceName(remote, branch), true)
	return err == nil
}

// RemoteBranches lists the branch names fetched from the named remote, in
// ref-store order. The HEAD pseudo-ref is excluded.
func (r *Repo) RemoteBranches(remote string) ([]string, error) {
	iter, err := r.repo.References()
	if err != nil {
		return nil, fmt.Errorf("references: %w", err)
	}
	prefix := fmt.Sprintf("refs/remotes/%s/", remote)
	var branches []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().String()
		if !strings.HasPrefix(name, prefix) {
			return nil
		}
		short := strings.TrimPrefix(name, prefix)
		if short == "HEAD" {
			return nil
		}
		branches = append(branches, short)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return branches, nil
}

// CheckoutReset force-creates the local branch and checks it out. When
// origin/<branch> exists the local branch is reset to it: origin is the
// authoritative starting point each run, so this is a full reset, not a
// fast-forward-only move. When it does not exist, the branch is created from
// the current HEAD.
func (r *Repo) CheckoutReset(branch string) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}
	localRef := plumbing.NewBranchReferenceName(branch)

	if remoteRef, rerr := r.repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true); rerr == nil {
		if err := r.repo.Storer.SetReference(plumbing.NewHashReference(localRef, remoteRef.Hash())); err != nil {
			return fmt.Errorf("set branch %s: %w", branch, err)
		}
		if err := wt.Checkout(&gogit.CheckoutOptions{Branch: localRef, Force: true}); err != nil {
			return fmt.Errorf("checkout %s: %w", branch, err)
		}
		if err := wt.Reset(&gogit.ResetOptions{Commit: remoteRef.Hash(), Mode: gogit.HardReset}); err != nil {
			return fmt.Errorf("reset %s to origin: %w", branch, err)
		}
		return nil
	}

	head, err := r.repo.Head()
	if err != nil {
		return fmt.Errorf("head: %w", err)
	}
	if _, lerr := r.repo.Reference(localRef, true); lerr != nil {
		if err := r.repo.Storer.SetReference(plumbing.NewHashReference(localRef, head.Hash())); err != nil {
			return fmt.Errorf("create branch %s: %w", branch, err)
		}
	}
	if err := wt.Checkout(&gogit.CheckoutOptions{Branch: localRef, Force: true}); err != nil {
		return fmt.Errorf("checkout %s: %w", branch, err)
	}
	return nil
}

// WorkingBranch resolves the branch a submodule run operates on:
// declared branch, else the origin-advertised HEAD branch, else the
// currently checked-out branch, else "main".
func (r *Repo) WorkingBranch(ctx context.Context, declared string) string {
	if declared != "" {
		return declared
	}
	if head, err := r.localRemoteHead("origin"); err == nil && head != "" {
		return head
	}
	if head, err := r.AdvertisedHead(ctx, "origin"); err == nil && head != "" {
		return head
	} else if err != nil {
		slog.Debug("Origin HEAD query failed", logfields.Path(r.path), logfields.Error(err))
	}
	if current, err := r.CurrentBranch(); err == nil {
		return current
	}
	return "main"
}

// localRemoteHead resolves refs/remotes/<remote>/HEAD without touching the
// network; the ref only exists when a clone or set-head recorded it.
func (r *Repo) localRemoteHead(remote string) (string, error) {
	ref, err := r.repo.Reference(plumbing.ReferenceName("refs/remotes/"+remote+"/HEAD"), false)
	if err != nil {
		return "", err
	}
	target := ref.Target().String()
	if target == "" {
		return "", fmt.Errorf("%s/HEAD target empty", remote)
	}
	return strings.TrimPrefix(plumbing.ReferenceName(target).Short(), remote+"/"), nil
}

// AdvertisedHead asks the remote itself for its HEAD branch, the equivalent
// of `git ls-remote --symref <remote> HEAD`. It needs no local ref state.
// When the server does not advertise the symref, the HEAD hash is matched
// against the advertised branches, preferring main then master.
func (r *Repo) AdvertisedHead(ctx context.Context, remote string) (string, error) {
	rem, err := r.repo.Remote(remote)
	if err != nil {
		return "", fmt.Errorf("remote %s: %w", remote, err)
	}
	refs, err := rem.ListContext(ctx, &gogit.ListOptions{})
	if err != nil {
		return "", fmt.Errorf("ls-remote %s: %w", remote, err)
	}

	var headHash plumbing.Hash
	branches := map[string]plumbing.Hash{}
	for _, ref := range refs {
		if ref.Name() == plumbing.HEAD {
			if ref.Type() == plumbing.SymbolicReference {
				return ref.Target().Short(), nil
			}
			headHash = ref.Hash()
			continue
		}
		if ref.Name().IsBranch() {
			branches[ref.Name().Short()] = ref.Hash()
		}
	}
	if !headHash.IsZero() {
		for _, candidate := range []string{"main", "master"} {
			if h, ok := branches[candidate]; ok && h == headHash {
				return candidate, nil
			}
		}
		for name, h := range branches {
			if h == headHash {
				return name, nil
			}
		}
	}
	return "", fmt.Errorf("remote %s advertises no HEAD", remote)
}
