package git

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// AheadOfRemote measures the range origin/<branch>..HEAD: the number of
// commits the local branch carries beyond origin and the files that differ.
// A missing origin/<branch> ref yields zero and no files, not an error.
func (r *Repo) AheadOfRemote(branch string) (int, []string, error) {
	remoteRef, err := r.repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	if err != nil {
		return 0, nil, nil
	}
	headRef, err := r.repo.Head()
	if err != nil {
		return 0, nil, fmt.Errorf("head: %w", err)
	}

	ahead, err := r.countAhead(remoteRef.Hash(), headRef.Hash())
	if err != nil {
		return 0, nil, err
	}
	files, err := r.ChangedFiles(remoteRef.Hash().String(), headRef.Hash().String())
	if err != nil {
		return 0, nil, err
	}
	return ahead, files, nil
}

// countAhead counts commits reachable from head but not from base by walking
// parent hashes, the same way ancestry is normally checked on these graphs.
func (r *Repo) countAhead(base, head plumbing.Hash) (int, error) {
	if base == head {
		return 0, nil
	}

	baseSet := map[plumbing.Hash]struct{}{}
	queue := []plumbing.Hash{base}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if _, ok := baseSet[h]; ok {
			continue
		}
		baseSet[h] = struct{}{}
		commit, err := r.repo.CommitObject(h)
		if err != nil {
			return 0, fmt.Errorf("commit %s: %w", h, err)
		}
		queue = append(queue, commit.ParentHashes...)
	}

	count := 0
	seen := map[plumbing.Hash]struct{}{}
	queue = []plumbing.Hash{head}
	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		if _, ok := baseSet[h]; ok {
			continue
		}
		count++
		commit, err := r.repo.CommitObject(h)
		if err != nil {
			return 0, fmt.Errorf("commit %s: %w", h, err)
		}
		queue = append(queue, commit.ParentHashes...)
	}
	return count, nil
}

// ChangedFiles returns the paths differing between two commits, in tree
// order, without duplicates. Renames report both sides.
func (r *Repo) ChangedFiles(fromHash, toHash string) ([]string, error) {
	if fromHash == toHash {
		return nil, nil
	}
	fromTree, err := r.commitTree(fromHash)
	if err != nil {
		return nil, err
	}
	toTree, err := r.commitTree(toHash)
	if err != nil {
		return nil, err
	}

	changes, err := object.DiffTree(fromTree, toTree)
	if err != nil {
		return nil, fmt.Errorf("diff %s..%s: %w", fromHash[:8], toHash[:8], err)
	}

	seen := map[string]struct{}{}
	var files []string
	add := func(name string) {
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		files = append(files, name)
	}
	for _, change := range changes {
		add(change.From.Name)
		add(change.To.Name)
	}
	return files, nil
}

func (r *Repo) commitTree(hash string) (*object.Tree, error) {
	commit, err := r.repo.CommitObject(plumbing.NewHash(hash))
	if err != nil {
		return nil, fmt.Errorf("commit %s: %w", hash, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("tree of %s: %w", hash, err)
	}
	return tree, nil
}
