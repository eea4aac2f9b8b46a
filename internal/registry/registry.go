package registry

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

// ErrStale is returned by Refresh when the job changed while the request was in flight.
var ErrStale = errors.New("stale response discarded")

// ProviderFetcher is the part of the backend client the registry needs.
type ProviderFetcher interface {
	GetProviders(ctx context.Context, jobID string, page, pageSize int) (*entity.ProviderPage, error)
	GetProvider(ctx context.Context, providerID int64) (*entity.Provider, error)
}

type Config struct {
	PageSize int
	Interval time.Duration
}

// Registry caches the current page of providers for the selected job.
type Registry struct {
	client ProviderFetcher
	cfg    Config
	logger *slog.Logger

	mu        sync.Mutex
	jobID     string
	pageNo    int
	gen       uint64
	keyCtx    context.Context
	keyCancel context.CancelFunc

	current atomic.Pointer[entity.ProviderPage]
}

func New(client ProviderFetcher, cfg Config, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = common.DefaultPageSize
	}
	if cfg.Interval <= 0 {
		cfg.Interval = common.DefaultPollInterval
	}
	r := &Registry{client: client, cfg: cfg, logger: logger, pageNo: 1}
	r.keyCtx, r.keyCancel = context.WithCancel(context.Background())
	return r
}

// FetchPage fetches one page without touching the cache.
func (r *Registry) FetchPage(ctx context.Context, jobID string, page, pageSize int) (*entity.ProviderPage, error) {
	if jobID == "" {
		return nil, common.FetchError("fetch providers", common.ErrNoJob)
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = r.cfg.PageSize
	}
	p, err := r.client.GetProviders(common.WithJobID(ctx, jobID), jobID, page, pageSize)
	if err != nil {
		return nil, common.FetchError(fmt.Sprintf("fetch providers for job %s", jobID), err)
	}
	return p, nil
}

// SetJob re-keys the registry. The cached page is cleared and any in-flight
// refresh for the previous key is cancelled and discarded.
func (r *Registry) SetJob(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if jobID == r.jobID && r.current.Load() != nil {
		return
	}
	r.rekeyLocked(jobID, 1)
}

// SetPage selects another page of the current job.
func (r *Registry) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if page == r.pageNo {
		return
	}
	r.rekeyLocked(r.jobID, page)
}

func (r *Registry) rekeyLocked(jobID string, page int) {
	r.keyCancel()
	r.keyCtx, r.keyCancel = context.WithCancel(context.Background())
	r.gen++
	r.jobID = jobID
	r.pageNo = page
	r.current.Store(nil)
	r.logger.Debug("registry.rekeyed", "job_id", jobID, "page", page, "generation", r.gen)
}

// JobID returns the job the registry is keyed to.
func (r *Registry) JobID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobID
}

// Page returns the cached page, or nil before the first successful refresh.
func (r *Registry) Page() *entity.ProviderPage { return r.current.Load() }

// Providers returns the cached provider list, possibly empty.
func (r *Registry) Providers() []entity.Provider {
	if p := r.current.Load(); p != nil {
		return p.Providers
	}
	return nil
}

// Refresh refetches the current key and replaces the cached page. On failure
// the previous page is kept.
func (r *Registry) Refresh(ctx context.Context) error {
	r.mu.Lock()
	jobID, pageNo, gen, keyCtx := r.jobID, r.pageNo, r.gen, r.keyCtx
	r.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(keyCtx, cancel)
	defer stop()

	page, err := r.FetchPage(ctx, jobID, pageNo, r.cfg.PageSize)

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		r.logger.Debug("registry.stale_discarded", "job_id", jobID, "generation", gen, "current_generation", r.gen)
		return ErrStale
	}
	if err != nil {
		return err
	}
	r.current.Store(page)
	r.logger.Debug("registry.refreshed", "job_id", jobID, "providers", len(page.Providers), "total", page.Total)
	return nil
}

// Poll refreshes on the configured interval until ctx is done. Errors are
// logged and the cached page is kept.
func (r *Registry) Poll(ctx context.Context) {
	p := poll.New("providers", r.cfg.Interval, func(tickCtx context.Context) {
		if r.JobID() == "" {
			return
		}
		err := r.Refresh(tickCtx)
		switch {
		case err == nil, errors.Is(err, ErrStale):
		default:
			r.logger.Warn("registry.poll_error", "job_id", r.JobID(), "error", err)
		}
	}, r.logger)
	p.Start()
	<-ctx.Done()
	p.Stop(context.Background())
}

// Provider fetches a single provider record.
func (r *Registry) Provider(ctx context.Context, id int64) (*entity.Provider, error) {
	p, err := r.client.GetProvider(ctx, id)
	if err != nil {
		return nil, common.FetchError(fmt.Sprintf("fetch provider %d", id), err)
	}
	return p, nil
}
