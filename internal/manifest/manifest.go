// Package manifest reads the superproject's submodule manifest (.gitmodules).
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	format "github.com/go-git/go-git/v5/plumbing/format/config"
)

// Spec describes one submodule as declared in .gitmodules. Immutable per run.
type Spec struct {
	Name string
	Path string
	// Branch is the declared tracking branch; empty means undeclared and the
	// branch negotiator decides.
	Branch string
}

// Load parses <superRoot>/.gitmodules and returns the submodules in manifest
// order. A missing manifest yields an empty slice, not an error: a
// superproject without submodules is a valid no-op run.
func Load(superRoot string) ([]Spec, error) {
	data, err := os.ReadFile(filepath.Join(superRoot, ".gitmodules"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read .gitmodules: %w", err)
	}
	return parse(data)
}

// parse decodes gitconfig syntax. The format decoder keeps subsection order,
// which the orchestrator relies on for deterministic iteration.
func parse(data []byte) ([]Spec, error) {
	cfg := format.New()
	if err := format.NewDecoder(bytes.NewReader(data)).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode .gitmodules: %w", err)
	}

	var specs []Spec
	for _, sub := range cfg.Section("submodule").Subsections {
		path := sub.Option("path")
		if path == "" {
			// An entry without a path cannot be reconciled; skip rather than
			// fail the whole manifest.
			continue
		}
		specs = append(specs, Spec{
			Name:   sub.Name,
			Path:   path,
			Branch: sub.Option("branch"),
		})
	}
	return specs, nil
}
