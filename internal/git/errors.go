package git

import (
	"fmt"
	"strings"
)

// Typed git errors enabling structured classification without string parsing
// upstream of this package.

type AuthError struct {
	Op, URL string
	Err     error
}

func (e *AuthError) Error() string { return fmt.Sprintf("%s auth error for %s: %v", e.Op, e.URL, e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

type NotFoundError struct {
	Op, URL string
	Err     error
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s not found %s: %v", e.Op, e.URL, e.Err) }
func (e *NotFoundError) Unwrap() error { return e.Err }

// RefNotFoundError reports that no usable branch ref could be resolved on a
// remote, after all fallbacks. Fatal for the affected submodule.
type RefNotFoundError struct {
	Remote, Branch string
}

func (e *RefNotFoundError) Error() string {
	return fmt.Sprintf("no usable ref on remote %s (wanted %q)", e.Remote, e.Branch)
}

// MergeConflictError reports a merge the pipeline will not resolve. It
// carries enough detail for a human to intervene.
type MergeConflictError struct {
	Path   string
	Theirs string
	Output string
}

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("merge conflict in %s merging %s: %s", e.Path, e.Theirs, strings.TrimSpace(e.Output))
}

// classifyFetchError wraps fetch failures into typed variants when possible.
func classifyFetchError(url string, err error) error {
	if err == nil {
		return nil
	}
	l := strings.ToLower(err.Error())
	switch {
	case strings.Contains(l, "auth") || strings.Contains(l, "could not read username") || strings.Contains(l, "permission denied"):
		return &AuthError{Op: "fetch", URL: url, Err: err}
	case strings.Contains(l, "not found") || strings.Contains(l, "repository does not exist"):
		return &NotFoundError{Op: "fetch", URL: url, Err: err}
	default:
		return fmt.Errorf("fetch %s: %w", url, err)
	}
}
