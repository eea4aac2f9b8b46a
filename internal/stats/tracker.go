package stats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joseph-ayodele/provider-console/internal/common"
	"github.com/joseph-ayodele/provider-console/internal/entity"
	"github.com/joseph-ayodele/provider-console/internal/poll"
)

// ErrStale is returned by Refresh when the job changed mid-request.
var ErrStale = errors.New("stale stats discarded")

// Fetcher is the part of the backend client the tracker needs.
type Fetcher interface {
	GetDashboardStats(ctx context.Context, jobID string) (*entity.DashboardStats, error)
}

// Tracker keeps the latest dashboard stats for the selected job.
type Tracker struct {
	client   Fetcher
	interval time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	jobID     string
	gen       uint64
	keyCtx    context.Context
	keyCancel context.CancelFunc

	latest atomic.Pointer[entity.DashboardStats]
}

func NewTracker(client Fetcher, interval time.Duration, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = common.DefaultPollInterval
	}
	t := &Tracker{client: client, interval: interval, logger: logger}
	t.keyCtx, t.keyCancel = context.WithCancel(context.Background())
	return t
}

// SetJob re-keys the tracker, dropping stats of the previous job.
func (t *Tracker) SetJob(jobID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if jobID == t.jobID {
		return
	}
	t.keyCancel()
	t.keyCtx, t.keyCancel = context.WithCancel(context.Background())
	t.gen++
	t.jobID = jobID
	t.latest.Store(nil)
}

// Latest returns the last stats fetched for the current job.
func (t *Tracker) Latest() *entity.DashboardStats { return t.latest.Load() }

// Refresh fetches stats for the current job. An empty job id asks the
// backend for stats across all jobs.
func (t *Tracker) Refresh(ctx context.Context) error {
	t.mu.Lock()
	jobID, gen, keyCtx := t.jobID, t.gen, t.keyCtx
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(keyCtx, cancel)
	defer stop()

	s, err := t.client.GetDashboardStats(common.WithJobID(ctx, jobID), jobID)

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen {
		return ErrStale
	}
	if err != nil {
		return common.FetchError(fmt.Sprintf("fetch stats for job %q", jobID), err)
	}
	t.latest.Store(s)
	return nil
}

// Poll refreshes on the tracker's interval until ctx is done.
func (t *Tracker) Poll(ctx context.Context) {
	p := poll.New("stats", t.interval, func(tickCtx context.Context) {
		if err := t.Refresh(tickCtx); err != nil && !errors.Is(err, ErrStale) {
			t.logger.Warn("stats.poll_error", "error", err)
		}
	}, t.logger)
	p.Start()
	<-ctx.Done()
	p.Stop(context.Background())
}
