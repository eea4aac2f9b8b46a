package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joseph-ayodele/provider-console/internal/common"
	"github.com/joseph-ayodele/provider-console/internal/entity"
	"github.com/joseph-ayodele/provider-console/internal/notify"
	"github.com/joseph-ayodele/provider-console/internal/poll"
)

// StatusFetcher is the part of the backend client the monitor needs.
type StatusFetcher interface {
	GetJobStatus(ctx context.Context, jobID string) (*entity.ValidationJob, error)
}

type Config struct {
	Interval time.Duration
	// FailureThreshold is the number of consecutive failed polls after which
	// the operator is notified. Zero means the default; negative disables.
	FailureThreshold int
	// Timeout bounds one status request. Zero leaves it to the HTTP client.
	Timeout time.Duration
}

// Monitor keeps at most one job under observation.
type Monitor struct {
	fetcher  StatusFetcher
	cfg      Config
	notifier notify.Notifier
	logger   *slog.Logger

	onUpdate    func(*entity.ValidationJob)
	onThreshold func(jobID string, err error)

	mu      sync.Mutex
	current *Handle
}

type Option func(*Monitor)

// WithOnUpdate registers a callback for every accepted snapshot.
func WithOnUpdate(fn func(*entity.ValidationJob)) Option {
	return func(m *Monitor) { m.onUpdate = fn }
}

// WithOnThreshold registers a callback fired when a failure streak reaches the threshold.
func WithOnThreshold(fn func(jobID string, err error)) Option {
	return func(m *Monitor) { m.onThreshold = fn }
}

func New(fetcher StatusFetcher, cfg Config, notifier notify.Notifier, logger *slog.Logger, opts ...Option) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = common.DefaultPollInterval
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = common.DefaultFailureThreshold
	}
	m := &Monitor{fetcher: fetcher, cfg: cfg, notifier: notifier, logger: logger}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Start begins polling jobID and stops whatever was polled before. An empty
// jobID only stops the previous handle and returns nil.
func (m *Monitor) Start(jobID string) *Handle {
	m.mu.Lock()
	prev := m.current
	m.current = nil
	var h *Handle
	if jobID != "" {
		h = m.newHandle(jobID)
		m.current = h
	}
	m.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}
	if h != nil {
		h.poller.Start()
		m.logger.Info("monitor.started", "job_id", jobID, "interval_ms", m.cfg.Interval.Milliseconds())
	}
	return h
}

// Current returns the active handle, if any.
func (m *Monitor) Current() *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Stop ends polling of the current job.
func (m *Monitor) Stop() {
	m.Start("")
}

// Handle is the polling session for one job id.
type Handle struct {
	jobID    string
	m        *Monitor
	poller   *poll.Poller
	snapshot atomic.Pointer[entity.ValidationJob]
	failures atomic.Int32

	done     chan struct{}
	stopOnce sync.Once
}

func (m *Monitor) newHandle(jobID string) *Handle {
	h := &Handle{jobID: jobID, m: m, done: make(chan struct{})}
	var opts []poll.Option
	if m.cfg.Timeout > 0 {
		opts = append(opts, poll.WithTimeout(m.cfg.Timeout))
	}
	h.poller = poll.New("job-status", m.cfg.Interval, h.tick, m.logger.With("job_id", jobID), opts...)
	return h
}

// JobID returns the job this handle polls.
func (h *Handle) JobID() string { return h.jobID }

// Snapshot returns the most recent status, if one has been received.
func (h *Handle) Snapshot() (*entity.ValidationJob, bool) {
	j := h.snapshot.Load()
	return j, j != nil
}

// Done is closed once polling has ended.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Failures returns the length of the current failure streak.
func (h *Handle) Failures() int { return int(h.failures.Load()) }

// Stop ends polling and waits for an in-flight request to finish.
func (h *Handle) Stop() {
	h.stopOnce.Do(func() {
		h.poller.Stop(context.Background())
		close(h.done)
		h.m.logger.Debug("monitor.stopped", "job_id", h.jobID)
	})
}

func (h *Handle) tick(ctx context.Context) {
	job, err := h.m.fetcher.GetJobStatus(common.WithJobID(ctx, h.jobID), h.jobID)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		h.recordFailure(err)
		return
	}
	h.failures.Store(0)
	h.snapshot.Store(job)
	h.m.logger.Debug("monitor.status",
		"job_id", h.jobID,
		"status", job.Status,
		"processed", job.ProcessedCount,
		"total", job.TotalCount,
		"progress", job.ProgressLabel(),
	)
	if h.m.onUpdate != nil {
		h.m.onUpdate(job)
	}
	if job.Terminal() {
		h.m.logger.Info("monitor.terminal", "job_id", h.jobID, "status", job.Status)
		// Stop waits for this tick, so it cannot run inline.
		go h.Stop()
	}
}

func (h *Handle) recordFailure(err error) {
	n := int(h.failures.Add(1))
	h.m.logger.Warn("monitor.poll_error", "job_id", h.jobID, "consecutive_failures", n, "error", err)

	threshold := h.m.cfg.FailureThreshold
	if threshold < 0 || n != threshold {
		return
	}
	notify.Failure(h.m.notifier, "Job status unavailable",
		fmt.Errorf("job %s: %d consecutive status checks failed: %w", h.jobID, n, err))
	if h.m.onThreshold != nil {
		h.m.onThreshold(h.jobID, err)
	}
}
