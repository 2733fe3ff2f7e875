// Package reconcile drives submodules through fetch, checkout, upstream
// merge, and change measurement, and aggregates the per-module outcomes into
// the fleet-wide publication decision.
package reconcile

import (
	"path/filepath"
	"strings"
)

// Result is the authoritative per-submodule outcome of one run. It is
// produced exactly once per submodule and never mutated afterward.
type Result struct {
	Name          string
	Path          string
	WorkingBranch string
	UpstreamURL   string

	// AheadCount and ChangedFiles describe the range origin/<branch>..HEAD.
	AheadCount   int
	ChangedFiles []string

	// SessionChangedFiles describes the range preHead..postHead, catching
	// files that arrived purely because checkout moved to origin's tip.
	SessionChangedFiles []string
	HadHeadChange       bool

	OK bool
}

// HasCommitsToPush reports whether the submodule's tip moved during this run,
// whether by merge or by a plain checkout fast-forward.
func (r Result) HasCommitsToPush() bool { return r.AheadCount > 0 }

// Updated reports whether this module is a candidate for pointer-bump.
func (r Result) Updated() bool { return r.HasCommitsToPush() || r.HadHeadChange }

// MarkdownChanged reports whether either measured range touched a markdown
// file. This is the unit of the fleet-wide publication gate.
func (r Result) MarkdownChanged() bool {
	return hasMarkdown(r.ChangedFiles) || hasMarkdown(r.SessionChangedFiles)
}

// MarkdownFiles returns the markdown paths from the origin range.
func (r Result) MarkdownFiles() []string { return markdownOnly(r.ChangedFiles) }

// SessionMarkdownFiles returns the markdown paths from the session range.
func (r Result) SessionMarkdownFiles() []string { return markdownOnly(r.SessionChangedFiles) }

func hasMarkdown(files []string) bool {
	for _, f := range files {
		if isMarkdown(f) {
			return true
		}
	}
	return false
}

func markdownOnly(files []string) []string {
	var md []string
	for _, f := range files {
		if isMarkdown(f) {
			md = append(md, f)
		}
	}
	return md
}

func isMarkdown(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".md")
}
