package poll

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Func is one poll tick. ctx is cancelled when the poller stops.
type Func func(ctx context.Context)

// Poller runs a Func immediately and then on a fixed interval. A tick is
// skipped while the previous one is still running.
type Poller struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	fn       Func
	logger   *slog.Logger

	cron *cron.Cron
	job  cron.Job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

type Option func(*Poller)

// WithTimeout bounds a single tick.
func WithTimeout(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func New(name string, interval time.Duration, fn Func, logger *slog.Logger, opts ...Option) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	p := &Poller{
		name:     name,
		interval: interval,
		fn:       fn,
		logger:   logger.With("poller", name),
	}
	for _, o := range opts {
		o(p)
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())

	cl := cronLogger{l: p.logger}
	p.cron = cron.New(cron.WithLogger(cl))
	p.job = cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(p.tick))
	return p
}

// Interval returns the effective tick interval.
func (p *Poller) Interval() time.Duration { return p.interval }

// Start runs the first tick right away and schedules the rest. Calling Start
// more than once has no effect.
func (p *Poller) Start() {
	p.startOnce.Do(func() {
		if p.ctx.Err() != nil {
			return
		}
		p.cron.Schedule(every(p.interval), p.job)
		p.cron.Start()

		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.job.Run()
		}()
		p.logger.Debug("poll.started", "interval_ms", p.interval.Milliseconds())
	})
}

func (p *Poller) tick() {
	if p.ctx.Err() != nil {
		return
	}
	ctx := p.ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	p.fn(ctx)
}

// Stop cancels the running tick's context, prevents further ticks and waits
// for in-flight work to return or for ctx to expire.
func (p *Poller) Stop(ctx context.Context) {
	p.stopOnce.Do(func() {
		p.cancel()
		cronDone := p.cron.Stop()

		done := make(chan struct{})
		go func() {
			defer close(done)
			<-cronDone.Done()
			p.wg.Wait()
		}()

		select {
		case <-ctx.Done():
			p.logger.Warn("poll.stop_interrupted", "error", ctx.Err())
		case <-done:
			p.logger.Debug("poll.stopped")
		}
	})
}

// Stopped reports whether Stop has been called.
func (p *Poller) Stopped() bool { return p.ctx.Err() != nil }

// every is a fixed-interval schedule. cron.Every rounds to whole seconds, which
// is too coarse for sub-second intervals.
type every time.Duration

func (e every) Next(t time.Time) time.Time { return t.Add(time.Duration(e)) }

// cronLogger adapts slog to cron.Logger.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("poll.cron."+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("poll.cron."+msg, append(keysAndValues, "error", err)...)
}
