package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"git.home.luguber.info/inful/forksync/internal/config"
	"git.home.luguber.info/inful/forksync/internal/forge"
	"git.home.luguber.info/inful/forksync/internal/git"
	"git.home.luguber.info/inful/forksync/internal/history"
	"git.home.luguber.info/inful/forksync/internal/logfields"
	"git.home.luguber.info/inful/forksync/internal/manifest"
	"git.home.luguber.info/inful/forksync/internal/metrics"
	"git.home.luguber.info/inful/forksync/internal/publish"
	"git.home.luguber.info/inful/forksync/internal/reconcile"
	"git.home.luguber.info/inful/forksync/internal/version"
)

var CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"forksync.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `help:"Print version and exit"`

	Sync struct {
		DryRun bool `help:"Rehearse the run without pushing, opening a PR, or notifying"`
		NoPush bool `help:"Alias for --dry-run"`
	} `cmd:"" help:"Reconcile every submodule with its upstream and publish updates"`

	Discover struct {
		Submodule string `short:"s" help:"Limit discovery to one submodule by name"`
	} `cmd:"" help:"Report upstream discovery results without mutating anything"`

	Daemon struct {
		Schedule string `help:"Cron expression overriding the configured schedule"`
	} `cmd:"" help:"Run synchronization continuously on a cron schedule"`
}

func main() {
	kctx := kong.Parse(&CLI, kong.Vars{"version": version.String()})

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	config.LoadDotEnv()

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		slog.Error("Failed to load configuration", logfields.Error(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch kctx.Command() {
	case "sync":
		cfg.DryRun = CLI.Sync.DryRun || CLI.Sync.NoPush
		if err := runSync(ctx, cfg); err != nil {
			slog.Error("Sync failed", logfields.Error(err))
			os.Exit(1)
		}
	case "discover":
		if err := runDiscover(ctx, cfg, CLI.Discover.Submodule); err != nil {
			slog.Error("Discover failed", logfields.Error(err))
			os.Exit(1)
		}
	case "daemon":
		if CLI.Daemon.Schedule != "" {
			cfg.Schedule = CLI.Daemon.Schedule
		}
		if err := runDaemon(ctx, cfg); err != nil {
			slog.Error("Daemon failed", logfields.Error(err))
			os.Exit(1)
		}
	}
}

// runSync executes one full fleet run: reconcile, gate, push, publish.
func runSync(ctx context.Context, cfg *config.Config) error {
	runID := uuid.NewString()
	log := slog.With(logfields.RunID(runID))

	specs, err := manifest.Load(cfg.SuperprojectPath)
	if err != nil {
		return fmt.Errorf("load submodule manifest: %w", err)
	}
	log.Info("Starting sync run", slog.Int("submodules", len(specs)), slog.Bool("dry_run", cfg.DryRun))

	reconciler := reconcile.NewReconciler(cfg, forge.NewRegistry(cfg))

	prs, err := publish.NewGitHubPullRequests(cfg.GitHub)
	if err != nil {
		return err
	}
	var prService publish.PullRequestService
	if prs != nil {
		prService = prs
	}
	var notifier publish.Notifier
	if n := publish.NewForumNotifier(cfg.Forum); n != nil {
		notifier = n
	}
	publisher := publish.NewManager(cfg, prService, notifier)

	orch := reconcile.NewOrchestrator(cfg, reconciler, publisher)
	var recorder *metrics.PrometheusRecorder
	if cfg.MetricsTextfile != "" {
		recorder = metrics.NewPrometheusRecorder(nil)
		orch.WithRecorder(recorder)
	}

	started := time.Now()
	decision, runErr := orch.Run(ctx, specs)
	finished := time.Now()

	recorder.ObserveRunDuration(finished.Sub(started))
	recorder.IncRunOutcome(runErr == nil)
	if cfg.MetricsTextfile != "" {
		if werr := recorder.WriteTextfile(cfg.MetricsTextfile); werr != nil {
			log.Warn("Failed to export metrics textfile", logfields.Error(werr))
		}
	}

	recordHistory(ctx, log, cfg, history.Run{
		RunID:           runID,
		StartedAt:       started,
		FinishedAt:      finished,
		Success:         runErr == nil,
		DryRun:          cfg.DryRun,
		MarkdownChanged: decision.AnyMarkdownChanged,
		UpdatedModules:  history.ModuleRecords(decision.UpdatedModules),
	})

	if runErr != nil {
		return runErr
	}
	log.Info("Sync run complete",
		slog.Int("updated", len(decision.UpdatedModules)),
		slog.Bool("markdown_changed", decision.AnyMarkdownChanged),
		slog.Duration("took", finished.Sub(started)))
	return nil
}

// recordHistory journals the run when a history database is configured.
// Journal failures never fail the run.
func recordHistory(ctx context.Context, log *slog.Logger, cfg *config.Config, run history.Run) {
	if cfg.HistoryDB == "" {
		return
	}
	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		log.Warn("Failed to open history database", logfields.Error(err))
		return
	}
	defer store.Close()
	if err := store.Record(ctx, run); err != nil {
		log.Warn("Failed to record run history", logfields.Error(err))
	}
}

// runDiscover reports, per submodule, the origin provider and any fork
// parent the provider APIs know about. Read-only: no remotes are added.
func runDiscover(ctx context.Context, cfg *config.Config, only string) error {
	specs, err := manifest.Load(cfg.SuperprojectPath)
	if err != nil {
		return fmt.Errorf("load submodule manifest: %w", err)
	}
	registry := forge.NewRegistry(cfg)

	for _, spec := range specs {
		if only != "" && spec.Name != only {
			continue
		}
		log := slog.With(logfields.Submodule(spec.Name), logfields.Path(spec.Path))

		repo, err := git.Open(filepath.Join(cfg.SuperprojectPath, spec.Path))
		if err != nil {
			log.Warn("Submodule not openable", logfields.Error(err))
			continue
		}

		if repo.HasRemote("upstream") {
			url, _ := repo.RemoteURL("upstream")
			log.Info("Upstream remote already configured", logfields.Upstream(url))
			continue
		}

		originURL, err := repo.RemoteURL("origin")
		if err != nil {
			log.Warn("No origin remote", logfields.Error(err))
			continue
		}

		desc := forge.ParseRemote(originURL)
		resolver := registry.ResolverFor(desc.Provider)
		if resolver == nil {
			log.Info("Origin is not on a known provider", logfields.URL(originURL))
			continue
		}

		discovery, err := resolver.ResolveUpstream(ctx, desc)
		switch {
		case err != nil:
			log.Warn("Discovery failed", logfields.Provider(string(desc.Provider)), logfields.Error(err))
		case discovery.Outcome == forge.OutcomeFound:
			log.Info("Fork parent found",
				logfields.Provider(string(desc.Provider)),
				logfields.Upstream(discovery.Link.URL),
				slog.String("default_branch", discovery.Link.DefaultBranch))
		default:
			log.Info("Repository is canonical", logfields.Provider(string(desc.Provider)))
		}
	}
	return nil
}

// runDaemon schedules runSync on the configured cron expression until the
// process receives an interrupt.
func runDaemon(ctx context.Context, cfg *config.Config) error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.CronJob(cfg.Schedule, false),
		gocron.NewTask(func() {
			if err := runSync(ctx, cfg); err != nil {
				slog.Error("Scheduled sync failed", logfields.Error(err))
			}
		}),
		gocron.WithName("submodule-sync"),
	)
	if err != nil {
		return fmt.Errorf("schedule sync job: %w", err)
	}

	slog.Info("Daemon started", slog.String("schedule", cfg.Schedule))
	scheduler.Start()

	<-ctx.Done()
	slog.Info("Shutting down scheduler")
	return scheduler.Shutdown()
}
