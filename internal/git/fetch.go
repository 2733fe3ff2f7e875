package git

import (
	"context"
	"errors"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	ggitcfg "github.com/go-git/go-git/v5/config"
)

// Fetch fetches all branch heads of the named remote with pruning, so that
// deleted remote branches disappear from the local ref space.
func (r *Repo) Fetch(ctx context.Context, remote string) error {
	url, _ := r.RemoteURL(remote)
	opts := &gogit.FetchOptions{
		RemoteName: remote,
		Prune:      true,
		Force:      true,
		Tags:       gogit.NoTags,
		RefSpecs: []ggitcfg.RefSpec{
			ggitcfg.RefSpec(fmt.Sprintf("+refs/heads/*:refs/remotes/%s/*", remote)),
		},
	}
	if err := r.repo.FetchContext(ctx, opts); err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return classifyFetchError(url, err)
	}
	return nil
}

// Push pushes branch to the named remote (refspec branch:branch).
// Already-up-to-date is success.
func (r *Repo) Push(ctx context.Context, remote, branch string) error {
	refspec := ggitcfg.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch))
	err := r.repo.PushContext(ctx, &gogit.PushOptions{
		RemoteName: remote,
		RefSpecs:   []ggitcfg.RefSpec{refspec},
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		url, _ := r.RemoteURL(remote)
		return fmt.Errorf("push %s to %s: %w", branch, url, err)
	}
	return nil
}
