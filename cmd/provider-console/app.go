package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/joseph-ayodele/provider-console/internal/api"
	"github.com/joseph-ayodele/provider-console/internal/common"
	"github.com/joseph-ayodele/provider-console/internal/ingest"
	"github.com/joseph-ayodele/provider-console/internal/notify"
	"github.com/joseph-ayodele/provider-console/internal/repository"
	"github.com/joseph-ayodele/provider-console/internal/session"
)

// globalFlags override values loaded from the config file and environment.
type globalFlags struct {
	configPath string
	apiURL     string
	dbURL      string
	logLevel   string
	logFormat  string
	interval   time.Duration
}

// app holds the wiring shared by every command.
type app struct {
	flags globalFlags

	cfg      *common.Config
	logger   *slog.Logger
	client   *api.Client
	db       *repository.DB
	session  *session.State
	uploads  *repository.UploadRepository
	notifier notify.Notifier
	tty      bool

	// outMu serializes terminal output of polls, tickers and notifications.
	outMu sync.Mutex
}

func (a *app) loadConfig() error {
	var (
		cfg *common.Config
		err error
	)
	if a.flags.configPath != "" {
		cfg, err = common.LoadConfigFile(a.flags.configPath)
	} else {
		cfg, err = common.LoadConfig()
	}
	if err != nil {
		return err
	}
	if a.flags.apiURL != "" {
		cfg.API.BaseURL = strings.TrimRight(a.flags.apiURL, "/")
	}
	if a.flags.dbURL != "" {
		cfg.Database.DSN = a.flags.dbURL
	}
	if a.flags.logLevel != "" {
		cfg.Log.Level = a.flags.logLevel
	}
	if a.flags.logFormat != "" {
		cfg.Log.Format = a.flags.logFormat
	}
	if a.flags.interval > 0 {
		cfg.Poll.Interval = a.flags.interval
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// open builds the logger, backend client, local store and session.
func (a *app) open(ctx context.Context) error {
	if err := a.loadConfig(); err != nil {
		return err
	}
	a.tty = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	a.logger = newLogger(os.Stderr, a.cfg.Log)
	slog.SetDefault(a.logger)

	// Terminals get one readable line per event; pipes get structured logs.
	stderr := a.output(os.Stderr)
	if isatty.IsTerminal(os.Stderr.Fd()) {
		a.notifier = notify.NewWriterNotifier(stderr)
	} else {
		a.notifier = notify.Multi{notify.NewWriterNotifier(stderr), notify.NewLogNotifier(a.logger)}
	}

	a.client = api.NewClient(api.Config{BaseURL: a.cfg.API.BaseURL, Timeout: a.cfg.API.Timeout}, a.logger)

	db, err := repository.Open(ctx, repository.Config{
		DSN:             a.cfg.Database.DSN,
		MaxConns:        a.cfg.Database.MaxConns,
		MinConns:        a.cfg.Database.MinConns,
		MaxConnLifetime: a.cfg.Database.MaxConnLifetime,
		DialTimeout:     a.cfg.Database.DialTimeout,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	a.db = db
	a.uploads = repository.NewUploadRepository(db, a.logger)

	a.session = session.New(a.logger, session.WithStore(repository.NewSessionRepository(db, a.logger)))
	if err := a.session.Restore(ctx); err != nil {
		a.logger.Warn("session.restore_failed", "error", err)
	}
	return nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
		a.db = nil
	}
}

// output wraps w so that its writes never interleave with other output of the app.
func (a *app) output(w io.Writer) io.Writer {
	return &lockedWriter{mu: &a.outMu, w: w}
}

type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func (a *app) uploader(dedup bool) *ingest.Uploader {
	return ingest.NewUploader(a.client, a.session, a.notifier, a.logger,
		ingest.WithRecorder(a.uploads),
		ingest.WithMaxBytes(a.cfg.Upload.MaxBytes),
		ingest.WithDedup(dedup),
	)
}

// jobID returns the explicit override or the selected job.
func (a *app) jobID(override string) (string, error) {
	if id := strings.TrimSpace(override); id != "" {
		return id, nil
	}
	if id := a.session.JobID(); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("%w; upload a file or run 'use JOB_ID'", common.ErrNoJob)
}

func newLogger(w io.Writer, cfg common.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
