package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"trybuild/internal/config"
	"trybuild/internal/fileutil"
	"trybuild/internal/logging"
	"trybuild/internal/queue"
	"trybuild/internal/spool"
)

// ErrAlreadyRunning reports a basedir whose lock is held by another master.
var ErrAlreadyRunning = errors.New("another master holds the basedir lock")

// Options configures master runtime behavior.
type Options struct {
	// Foreground also logs to stdout.
	Foreground  bool
	Development bool
}

// Master is an opened master runtime.
type Master struct {
	cfg      *config.Config
	logger   *slog.Logger
	levelVar *slog.LevelVar
	lock     *flock.Flock
	logFiles io.Closer
	store    *queue.Store
	ingester *Ingester
}

// Run opens the master in basedir and serves until ctx ends or a stop
// signal arrives.
func Run(ctx context.Context, basedir string, opts Options) error {
	m, err := Open(basedir, opts)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Serve(ctx)
}

// Open loads master.toml, takes the basedir lock, writes the pid file and
// opens the ledger and spool.
func Open(basedir string, opts Options) (*Master, error) {
	cfg, err := config.Load(basedir)
	if err != nil {
		return nil, err
	}

	m := &Master{cfg: cfg, lock: flock.New(cfg.LockPath())}
	ok, err := m.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, cfg.LockPath())
	}

	outputs := []string{cfg.LogPath()}
	if opts.Foreground {
		outputs = append([]string{"stdout"}, outputs...)
	}
	m.levelVar = new(slog.LevelVar)
	logger, logFiles, err := logging.Open(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
		LevelVar:    m.levelVar,
		Development: opts.Development,
	})
	if err != nil {
		_ = m.lock.Unlock()
		return nil, fmt.Errorf("init logger: %w", err)
	}
	m.logger, m.logFiles = logger, logFiles

	if err := writePIDFile(cfg.PIDPath()); err != nil {
		m.Close()
		return nil, fmt.Errorf("write pid file: %w", err)
	}

	if m.store, err = queue.Open(cfg.StatePath()); err != nil {
		m.Close()
		return nil, err
	}
	sp, err := spool.Open(cfg.Spool.JobDir)
	if err != nil {
		m.Close()
		return nil, err
	}
	if m.ingester, err = NewIngester(sp, m.store, logger); err != nil {
		m.Close()
		return nil, err
	}

	logger.Info("master started",
		logging.Int("pid", os.Getpid()),
		logging.String(logging.FieldBasedir, cfg.Basedir),
		logging.String("jobdir", cfg.Spool.JobDir),
		logging.Duration("poll_interval", cfg.PollInterval()),
		logging.Event("master_started"))
	return m, nil
}

// Config returns the active configuration.
func (m *Master) Config() *config.Config { return m.cfg }

// Store returns the job ledger.
func (m *Master) Store() *queue.Store { return m.store }

// Serve sweeps the spool every poll interval until ctx is done or SIGINT or
// SIGTERM arrives. SIGHUP reloads master.toml.
func (m *Master) Serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	hangups := make(chan os.Signal, 1)
	signal.Notify(hangups, syscall.SIGHUP)
	defer signal.Stop(hangups)

	m.sweep(ctx)
	ticker := time.NewTicker(m.cfg.PollInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("master shutting down", logging.Event("master_stopping"))
			return nil
		case <-hangups:
			if err := m.Reload(); err != nil {
				m.logger.Error("reconfig failed; keeping previous configuration",
					logging.Error(err),
					logging.Event("reconfig_failed"))
				continue
			}
			ticker.Reset(m.cfg.PollInterval())
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

func (m *Master) sweep(ctx context.Context) {
	result, err := m.ingester.Sweep(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		m.logger.Error("spool sweep failed", logging.Error(err), logging.Event("sweep_failed"))
	}
	if result.Total() > 0 {
		m.logger.Debug("spool sweep",
			logging.Int("received", result.Received),
			logging.Int("rejected", result.Rejected),
			logging.Int("duplicates", result.Duplicates))
	}
}

// Reload re-reads master.toml and applies the log level and poll interval.
// The job directory and log format stay as they were at startup.
func (m *Master) Reload() error {
	cfg, err := config.Load(m.cfg.Basedir)
	if err != nil {
		return err
	}
	if cfg.Spool.JobDir != m.cfg.Spool.JobDir || cfg.Logging.Format != m.cfg.Logging.Format {
		m.logger.Warn("jobdir and log format changes need a restart",
			logging.String("jobdir", cfg.Spool.JobDir),
			logging.String("format", cfg.Logging.Format))
		cfg.Spool.JobDir = m.cfg.Spool.JobDir
		cfg.Logging.Format = m.cfg.Logging.Format
	}
	m.levelVar.Set(logging.ParseLevel(cfg.Logging.Level))
	m.cfg = cfg
	m.logger.Info("configuration reloaded",
		logging.String("level", cfg.Logging.Level),
		logging.Duration("poll_interval", cfg.PollInterval()),
		logging.Event("reconfig"))
	return nil
}

// Close removes the pid file, closes the ledger and log file, and releases
// the lock.
func (m *Master) Close() error {
	var errs []error
	if m.store != nil {
		errs = append(errs, m.store.Close())
		m.store = nil
	}
	if err := os.Remove(m.cfg.PIDPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		errs = append(errs, fmt.Errorf("remove pid file: %w", err))
	}
	if m.logFiles != nil {
		errs = append(errs, m.logFiles.Close())
		m.logFiles = nil
	}
	if m.lock != nil {
		errs = append(errs, m.lock.Unlock())
		m.lock = nil
	}
	return errors.Join(errs...)
}

func writePIDFile(path string) error {
	return fileutil.WriteFileAtomic(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}
