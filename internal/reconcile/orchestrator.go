package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"git.home.luguber.info/inful/forksync/internal/config"
	"git.home.luguber.info/inful/forksync/internal/git"
	"git.home.luguber.info/inful/forksync/internal/logfields"
	"git.home.luguber.info/inful/forksync/internal/manifest"
	"git.home.luguber.info/inful/forksync/internal/metrics"
)

// Publisher stages changed submodule pointers in the superproject and opens
// or updates the shared automation pull request.
type Publisher interface {
	Publish(ctx context.Context, updated []Result) error
}

// Decision is the fleet-wide aggregate derived from all results.
type Decision struct {
	AnyMarkdownChanged bool
	UpdatedModules     []Result
}

// Orchestrator iterates the fleet in manifest order, sequentially: remote
// operations are rate-limited and conflict-prone, so determinism is chosen
// over parallelism.
type Orchestrator struct {
	cfg        *config.Config
	reconciler *Reconciler
	publisher  Publisher
	recorder   metrics.Recorder
}

// NewOrchestrator wires the fleet run.
func NewOrchestrator(cfg *config.Config, reconciler *Reconciler, publisher Publisher) *Orchestrator {
	return &Orchestrator{cfg: cfg, reconciler: reconciler, publisher: publisher, recorder: metrics.NoopRecorder{}}
}

// WithRecorder swaps in a metrics recorder.
func (o *Orchestrator) WithRecorder(rec metrics.Recorder) *Orchestrator {
	o.recorder = rec
	return o
}

// Run reconciles every submodule and, when the markdown gate holds, pushes
// the updated submodules and publishes the pointer bump. A single failed
// submodule aborts the whole run: a half-updated fleet is worse than an
// unattempted one.
func (o *Orchestrator) Run(ctx context.Context, specs []manifest.Spec) (Decision, error) {
	if len(specs) == 0 {
		slog.Info("No submodules found; nothing to do")
		return Decision{}, nil
	}

	var results []Result
	for _, spec := range specs {
		result := o.reconciler.Reconcile(ctx, spec)
		if !result.OK {
			o.recorder.IncSubmoduleOutcome(metrics.OutcomeFailed)
			return Decision{}, fmt.Errorf("submodule %s (%s) failed; aborting run", spec.Name, spec.Path)
		}
		o.recorder.IncSubmoduleOutcome(metrics.OutcomeSuccess)
		if result.AheadCount > 0 && result.UpstreamURL != "" {
			o.recorder.IncMerge()
		}
		results = append(results, result)
	}

	decision := Decide(results)
	o.recorder.SetUpdatedModules(len(decision.UpdatedModules))
	o.recorder.SetMarkdownGate(decision.AnyMarkdownChanged)
	o.logSummary(decision)

	if o.cfg.DryRun {
		return decision, o.dryRunFinish(ctx, decision)
	}

	if !decision.AnyMarkdownChanged {
		slog.Info("No markdown changes across submodules; skipping push and PR")
		return decision, nil
	}

	slog.Info("Markdown changes detected; pushing updated submodules", slog.Int("count", len(decision.UpdatedModules)))
	for _, mod := range decision.UpdatedModules {
		if err := o.pushSubmodule(ctx, mod); err != nil {
			return decision, err
		}
	}

	if err := o.publisher.Publish(ctx, decision.UpdatedModules); err != nil {
		return decision, fmt.Errorf("publish: %w", err)
	}
	return decision, nil
}

// Decide derives the fleet decision: the markdown gate is the aggregate OR
// across all submodules of either measured range containing a markdown file,
// and updated modules are those whose tip moved at all this run.
func Decide(results []Result) Decision {
	var d Decision
	for _, r := range results {
		if r.MarkdownChanged() {
			d.AnyMarkdownChanged = true
		}
		if r.Updated() {
			d.UpdatedModules = append(d.UpdatedModules, r)
		}
	}
	return d
}

func (o *Orchestrator) pushSubmodule(ctx context.Context, mod Result) error {
	repo, err := git.Open(filepath.Join(o.cfg.SuperprojectPath, mod.Path))
	if err != nil {
		return fmt.Errorf("open %s for push: %w", mod.Path, err)
	}
	slog.Info("Pushing submodule", logfields.Submodule(mod.Name), logfields.Branch(mod.WorkingBranch))
	if err := repo.Push(ctx, "origin", mod.WorkingBranch); err != nil {
		return fmt.Errorf("push submodule %s: %w", mod.Name, err)
	}
	o.recorder.IncPush()
	return nil
}

// dryRunFinish prints the rehearsal verdicts and walks the publisher's
// non-mutating path so the dry run mirrors the real one.
func (o *Orchestrator) dryRunFinish(ctx context.Context, decision Decision) error {
	ahead := 0
	headChanged := 0
	for _, mod := range decision.UpdatedModules {
		if mod.HasCommitsToPush() {
			ahead++
		}
		if mod.HadHeadChange {
			headChanged++
		}
	}
	slog.Info("Dry run: submodules updated this run",
		slog.Int("updated", len(decision.UpdatedModules)),
		slog.Int("with_commits_to_push", ahead),
		slog.Int("with_head_change", headChanged),
		slog.Bool("markdown_changed", decision.AnyMarkdownChanged))

	if !decision.AnyMarkdownChanged {
		slog.Info("Dry run: would not push submodules or open a PR")
		return nil
	}
	for _, mod := range decision.UpdatedModules {
		slog.Info("Dry run: would push submodule", logfields.Submodule(mod.Name), logfields.Branch(mod.WorkingBranch))
	}
	if err := o.publisher.Publish(ctx, decision.UpdatedModules); err != nil {
		return fmt.Errorf("publish (dry run): %w", err)
	}
	return nil
}

func (o *Orchestrator) logSummary(decision Decision) {
	if len(decision.UpdatedModules) == 0 {
		slog.Info("No submodules are ahead of origin")
		return
	}
	for _, mod := range decision.UpdatedModules {
		slog.Info("Updated submodule",
			logfields.Submodule(mod.Name),
			logfields.Path(mod.Path),
			logfields.Branch(mod.WorkingBranch),
			logfields.Ahead(mod.AheadCount),
			slog.Bool("head_changed", mod.HadHeadChange))
		if files := mod.ChangedFiles; len(files) > 0 {
			slog.Debug("Changed files", logfields.Submodule(mod.Name), slog.Any("files", files))
		}
		if files := mod.SessionChangedFiles; len(files) > 0 {
			slog.Debug("Session changed files", logfields.Submodule(mod.Name), slog.Any("files", files))
		}
		if md := mod.MarkdownFiles(); len(md) > 0 {
			slog.Info("Markdown files changed", logfields.Submodule(mod.Name), slog.Any("files", md))
		}
		if md := mod.SessionMarkdownFiles(); len(md) > 0 {
			slog.Info("Markdown files changed (session)", logfields.Submodule(mod.Name), slog.Any("files", md))
		}
	}
}
