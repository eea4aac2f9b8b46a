package console

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/provider-console/constants"
	"github.com/joseph-ayodele/provider-console/internal/artifact"
	"github.com/joseph-ayodele/provider-console/internal/entity"
	"github.com/joseph-ayodele/provider-console/internal/monitor"
	"github.com/joseph-ayodele/provider-console/internal/notify"
	"github.com/joseph-ayodele/provider-console/internal/registry"
	"github.com/joseph-ayodele/provider-console/internal/session"
	"github.com/joseph-ayodele/provider-console/internal/stats"
	"github.com/joseph-ayodele/provider-console/internal/triage"
)

// Backend is everything the console reads from the validation backend.
type Backend interface {
	monitor.StatusFetcher
	registry.ProviderFetcher
	stats.Fetcher
	artifact.Backend
}

type Config struct {
	Interval         time.Duration
	PageSize         int
	FailureThreshold int
	RequestTimeout   time.Duration
}

// Console keeps the job monitor, provider registry and stats tracker keyed to
// the session's selected job.
type Console struct {
	session   *session.State
	monitor   *monitor.Monitor
	registry  *registry.Registry
	stats     *stats.Tracker
	artifacts *artifact.Requester
	logger    *slog.Logger

	mu          sync.Mutex
	cancelPolls context.CancelFunc
	polls       sync.WaitGroup
}

type Option func(*options)

type options struct {
	monitorOpts []monitor.Option
}

// WithMonitorOptions passes hooks through to the job monitor.
func WithMonitorOptions(opts ...monitor.Option) Option {
	return func(o *options) { o.monitorOpts = append(o.monitorOpts, opts...) }
}

func New(client Backend, sess *session.State, notifier notify.Notifier, cfg Config, logger *slog.Logger, opts ...Option) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Console{
		session: sess,
		monitor: monitor.New(client, monitor.Config{
			Interval:         cfg.Interval,
			FailureThreshold: cfg.FailureThreshold,
			Timeout:          cfg.RequestTimeout,
		}, notifier, logger, o.monitorOpts...),
		registry:  registry.New(client, registry.Config{PageSize: cfg.PageSize, Interval: cfg.Interval}, logger),
		stats:     stats.NewTracker(client, cfg.Interval, logger),
		artifacts: artifact.NewRequester(client, notifier, logger),
		logger:    logger,
	}
}

// Run follows the session until ctx is done, then stops every poll and waits
// for in-flight requests.
func (c *Console) Run(ctx context.Context) error {
	changes, unsubscribe := c.session.Subscribe()
	defer unsubscribe()

	c.rekey(ctx, c.session.JobID())
	for {
		select {
		case <-ctx.Done():
			c.teardown()
			return nil
		case jobID, ok := <-changes:
			if !ok {
				c.teardown()
				return nil
			}
			c.rekey(ctx, jobID)
		}
	}
}

func (c *Console) rekey(parent context.Context, jobID string) {
	c.stopPolls()
	c.logger.Info("console.job_changed", "job_id", jobID)

	c.registry.SetJob(jobID)
	c.stats.SetJob(jobID)
	c.monitor.Start(jobID)

	pctx, cancel := context.WithCancel(parent)
	c.mu.Lock()
	c.cancelPolls = cancel
	c.mu.Unlock()

	// nothing polls while no job is selected
	if jobID == "" {
		return
	}
	c.polls.Add(2)
	go func() {
		defer c.polls.Done()
		c.stats.Poll(pctx)
	}()
	go func() {
		defer c.polls.Done()
		c.registry.Poll(pctx)
	}()
}

func (c *Console) stopPolls() {
	c.mu.Lock()
	cancel := c.cancelPolls
	c.cancelPolls = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	c.polls.Wait()
}

func (c *Console) teardown() {
	c.stopPolls()
	c.monitor.Stop()
	c.logger.Info("console.stopped")
}

// JobID returns the selected job id.
func (c *Console) JobID() string { return c.session.JobID() }

// Job returns the latest status of the selected job.
func (c *Console) Job() (*entity.ValidationJob, bool) {
	h := c.monitor.Current()
	if h == nil || h.JobID() != c.session.JobID() {
		return nil, false
	}
	return h.Snapshot()
}

// Refresh refetches stats and providers for the selected job concurrently.
// Without a selected job it does nothing.
func (c *Console) Refresh(ctx context.Context) error {
	if c.registry.JobID() == "" {
		return nil
	}
	var g errgroup.Group
	g.Go(func() error { return ignoreStale(c.stats.Refresh(ctx)) })
	g.Go(func() error { return ignoreStale(c.registry.Refresh(ctx)) })
	return g.Wait()
}

func ignoreStale(err error) error {
	if errors.Is(err, registry.ErrStale) || errors.Is(err, stats.ErrStale) {
		return nil
	}
	return err
}

// Row is one provider in the review list.
type Row struct {
	Provider       entity.Provider
	Classification triage.Classification
}

// Rows returns the cached providers matching search and status, in backend order.
func (c *Console) Rows(search string, status constants.StatusFilter) []Row {
	filtered := triage.Filter(c.registry.Providers(), search, status)
	rows := make([]Row, len(filtered))
	for i, p := range filtered {
		rows[i] = Row{Provider: p, Classification: triage.Classify(p)}
	}
	return rows
}

// Page returns the cached provider page, if any.
func (c *Console) Page() *entity.ProviderPage { return c.registry.Page() }

// SetPage switches the provider page of the selected job.
func (c *Console) SetPage(page int) { c.registry.SetPage(page) }

// Stats returns the latest dashboard stats.
func (c *Console) Stats() *entity.DashboardStats { return c.stats.Latest() }

// Charts returns the status and specialty series of the latest stats.
func (c *Console) Charts() (status, specialty []stats.Point) {
	s := c.stats.Latest()
	if s == nil {
		return []stats.Point{}, []stats.Point{}
	}
	return stats.StatusSeries(s.ValidationStatus), stats.SpecialtySeries(s.SpecialtyDistribution)
}

// Provider fetches one provider record.
func (c *Console) Provider(ctx context.Context, id int64) (*entity.Provider, error) {
	return c.registry.Provider(ctx, id)
}

// SaveResults downloads the selected job's results into dir.
func (c *Console) SaveResults(ctx context.Context, dir string, format constants.ExportFormat) (string, error) {
	return c.artifacts.SaveResults(ctx, c.session.JobID(), dir, format)
}

// EmailTemplate generates an outreach email for a provider.
func (c *Console) EmailTemplate(ctx context.Context, providerID int64, kind constants.TemplateKind) (*entity.EmailTemplate, error) {
	return c.artifacts.GenerateEmailTemplate(ctx, providerID, kind)
}
