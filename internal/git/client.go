package git

import (
	"fmt"
	"os"
	"path/filepath"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
)

// Repo is a handle on one on-disk repository (a submodule clone or the
// superproject). Authentication rides on the runner's ambient credential
// setup (ssh agent, credential helpers); nothing is configured here.
type Repo struct {
	path string
	repo *gogit.Repository
}

// IsInitialized reports whether path carries git metadata. Submodules use a
// .git gitfile rather than a directory, so only existence is checked.
func IsInitialized(path string) bool {
	_, err := os.Stat(filepath.Join(path, ".git"))
	return err == nil
}

// Open opens the repository at path.
func Open(path string) (*Repo, error) {
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("open repo %s: %w", path, err)
	}
	return &Repo{path: path, repo: repo}, nil
}

// Path returns the repository's working tree path.
func (r *Repo) Path() string { return r.path }

// Head returns the current HEAD commit hash. An unborn HEAD yields an error;
// callers that only record HEAD best-effort tolerate it.
func (r *Repo) Head() (string, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("head: %w", err)
	}
	return ref.Hash().String(), nil
}

// RemoteURL returns the first URL of the named remote.
func (r *Repo) RemoteURL(name string) (string, error) {
	remote, err := r.repo.Remote(name)
	if err != nil {
		return "", fmt.Errorf("remote %s: %w", name, err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("remote %s has no URL", name)
	}
	return urls[0], nil
}

// HasRemote reports whether the named remote is configured.
func (r *Repo) HasRemote(name string) bool {
	_, err := r.repo.Remote(name)
	return err == nil
}

// AddRemote registers a new remote. The registration persists in the clone's
// git config, which later runs use as a discovery fast path.
func (r *Repo) AddRemote(name, url string) error {
	_, err := r.repo.CreateRemote(&config.RemoteConfig{Name: name, URLs: []string{url}})
	if err != nil {
		return fmt.Errorf("add remote %s: %w", name, err)
	}
	return nil
}
