package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/gofrs/flock"

	"animetrack/internal/catalog"
	"animetrack/internal/config"
	"animetrack/internal/dayindex"
	"animetrack/internal/logging"
	"animetrack/internal/metrics"
	"animetrack/internal/scheduler"
)

// ErrDaemonRunning is returned when another process holds the daemon lock.
var ErrDaemonRunning = errors.New("another animetrack daemon instance is already running")

// AcquireLock takes the single-instance lock at path without blocking. The
// daemon holds it while running; CLI commands that write episode state take it
// too so they never run alongside the daemon.
func AcquireLock(path string) (*flock.Flock, error) {
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrDaemonRunning
	}
	return lock, nil
}

// Runner is the scheduler surface the daemon drives.
type Runner interface {
	Start(ctx context.Context) error
	Stop()
	Status() []scheduler.TaskStatus
}

// Daemon owns the scheduler lifecycle and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *catalog.Store
	index    *dayindex.Store
	runner   Runner
	registry *metrics.Registry

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool                   `json:"running"`
	PID          int                    `json:"pid"`
	CatalogPath  string                 `json:"catalog_path"`
	DayIndexPath string                 `json:"day_index_path"`
	LockFilePath string                 `json:"lock_file_path"`
	Tasks        []scheduler.TaskStatus `json:"tasks"`
}

// New constructs a daemon. registry may be nil when metrics are not wanted.
func New(cfg *config.Config, store *catalog.Store, index *dayindex.Store, runner Runner, registry *metrics.Registry, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil || index == nil || runner == nil {
		return nil, errors.New("daemon requires config, catalog, day index and scheduler")
	}
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		index:    index,
		runner:   runner,
		registry: registry,
		lockPath: cfg.LockPath(),
	}
	d.api = newAPIServer(cfg.Paths.APIBind, d, logger)
	return d, nil
}

// Start acquires the daemon lock, starts the scheduler and the API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	lock, err := AcquireLock(d.lockPath)
	if err != nil {
		return err
	}
	d.lock = lock

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}
	if err := d.runner.Start(runCtx); err != nil {
		d.api.stop()
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start scheduler: %w", err)
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("animetrack daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("catalog", d.store.Path()),
	)
	return nil
}

// Stop stops the scheduler, waiting for in-flight runs, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.runner.Stop()
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no daemon is running"),
		)
	}
	d.running.Store(false)
	d.logger.Info("animetrack daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close stops the daemon and closes the catalog.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		CatalogPath:  d.store.Path(),
		DayIndexPath: d.index.Path(),
		LockFilePath: d.lockPath,
		Tasks:        d.runner.Status(),
	}
}

// Addr returns the API listener address, or "" when the API is disabled.
func (d *Daemon) Addr() string {
	return d.api.addr()
}
