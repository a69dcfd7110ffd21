// Package daemonrun assembles the animetrack runtime from configuration and
// runs the daemon until a shutdown signal arrives.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"animetrack/internal/catalog"
	"animetrack/internal/config"
	"animetrack/internal/daemon"
	"animetrack/internal/dayindex"
	"animetrack/internal/episodes"
	"animetrack/internal/logging"
	"animetrack/internal/metrics"
	"animetrack/internal/notifications"
	"animetrack/internal/preflight"
	"animetrack/internal/reconcile"
	"animetrack/internal/schedule"
	"animetrack/internal/scheduler"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides logging.level when set.
	LogLevel string
}

// Components is the wired runtime shared by the daemon and one-shot CLI commands.
type Components struct {
	Store     *catalog.Store
	DayIndex  *dayindex.Store
	Fetcher   *schedule.Client
	Source    *episodes.Gogoanime
	Prober    *episodes.Prober
	Notifier  *notifications.Notifier
	Scheduler *scheduler.Scheduler
	Metrics   *metrics.Registry
}

// Close releases the catalog.
func (c *Components) Close() error {
	if c == nil || c.Store == nil {
		return nil
	}
	return c.Store.Close()
}

// Build opens the catalog and wires every collaborator from cfg. registry may
// be nil.
func Build(cfg *config.Config, logger *slog.Logger, registry *metrics.Registry) (*Components, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	store, err := catalog.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	fetcher, err := schedule.New(cfg.Schedule.URL,
		schedule.WithMinMembers(cfg.Schedule.MinMembers),
		schedule.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Schedule.RequestTimeout) * time.Second}),
	)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("schedule client: %w", err)
	}

	source, err := episodes.NewGogoanime(cfg.Episodes.SiteURL,
		episodes.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Episodes.RequestTimeout) * time.Second}),
		episodes.WithUserAgent(cfg.Episodes.UserAgent),
		episodes.WithNotFoundSentinel(cfg.Episodes.NotFoundSentinel),
		episodes.WithRateLimit(cfg.Episodes.RequestsPerSecond),
	)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("episode source: %w", err)
	}
	prober := episodes.NewProber(source, logger,
		episodes.WithMaxProbes(cfg.Episodes.MaxProbes),
		episodes.WithObserver(registry),
	)

	notifier := notifications.NewNotifier(notifications.NewSink(cfg, store, logger), store, notifications.Options{
		SystemIdentity: cfg.Notifications.SystemIdentity,
		SiteURL:        cfg.Notifications.SiteURL,
		Observer:       registry,
	}, logger)

	index := dayindex.NewStore(cfg.DayIndexPath(), logger)
	sched, err := scheduler.New(scheduler.Deps{
		Fetcher:    fetcher,
		Reconciler: reconcile.New(store, index, logger),
		Catalog:    store,
		DayIndex:   index,
		Prober:     prober,
		Notifier:   notifier,
		Metrics:    registry,
		Logger:     logger,
	}, scheduler.Options{
		WeeklyInterval:   cfg.WeeklyInterval(),
		FrequentInterval: cfg.FrequentInterval(),
		WorkTimeout:      cfg.WorkTimeout(),
		RunOnStart:       cfg.Scheduler.RunOnStart,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	return &Components{
		Store:     store,
		DayIndex:  index,
		Fetcher:   fetcher,
		Source:    source,
		Prober:    prober,
		Notifier:  notifier,
		Scheduler: sched,
		Metrics:   registry,
	}, nil
}

// Run starts the animetrack daemon and blocks until SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	level := cfg.Logging.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", cfg.LogFilePath()},
		Rotation:    logging.RotationFromConfig(cfg),
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = logger.With(logging.String("session_id", uuid.NewString()))
	logConfigSnapshot(logger, cfg)

	pidPath := filepath.Join(cfg.Paths.DataDir, "animetrackd.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	var registry *metrics.Registry
	if cfg.Paths.APIBind != "" {
		registry = metrics.New()
	}
	components, err := Build(cfg, logger, registry)
	if err != nil {
		logger.Error("build runtime", logging.Error(err))
		return err
	}

	for _, result := range preflight.Failed(preflight.RunAll(signalCtx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "run `animetrack check` for details"),
			logging.String(logging.FieldImpact, "scheduled cycles depending on this check will fail"),
		)
	}

	d, err := daemon.New(cfg, components.Store, components.DayIndex, components.Scheduler, registry, logger)
	if err != nil {
		components.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the lock file and catalog database access"),
		)
		return err
	}

	<-signalCtx.Done()
	logger.Info("animetrack daemon shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logConfigSnapshot(logger *slog.Logger, cfg *config.Config) {
	logger.Info("configuration snapshot",
		logging.String(logging.FieldEventType, "config_snapshot"),
		logging.String("catalog", cfg.CatalogPath()),
		logging.String("day_index", cfg.DayIndexPath()),
		logging.String("schedule_url", cfg.Schedule.URL),
		logging.Int("min_members", cfg.Schedule.MinMembers),
		logging.String("episode_site", cfg.Episodes.SiteURL),
		logging.Duration("weekly_interval", cfg.WeeklyInterval()),
		logging.Duration("frequent_interval", cfg.FrequentInterval()),
		logging.Bool("ntfy_enabled", cfg.Notifications.NtfyTopic != ""),
		logging.Bool("api_enabled", cfg.Paths.APIBind != ""),
	)
}
