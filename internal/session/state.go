package session

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Store persists the selected job id between runs.
type Store interface {
	LoadJobID(ctx context.Context) (string, error)
	SaveJobID(ctx context.Context, jobID string) error
}

// State holds the console's currently selected job id. Reads are lock-free
// snapshots; subscribers are told about every change.
type State struct {
	jobID  atomic.Pointer[string]
	store  Store
	logger *slog.Logger

	mu   sync.Mutex
	subs map[int]chan string
	next int
}

type Option func(*State)

// WithStore persists every change through s.
func WithStore(s Store) Option {
	return func(st *State) { st.store = s }
}

func New(logger *slog.Logger, opts ...Option) *State {
	if logger == nil {
		logger = slog.Default()
	}
	s := &State{logger: logger, subs: make(map[int]chan string)}
	empty := ""
	s.jobID.Store(&empty)
	for _, o := range opts {
		o(s)
	}
	return s
}

// JobID returns the current job id, or "" when none is selected.
func (s *State) JobID() string { return *s.jobID.Load() }

// Restore loads the last persisted job id. Without a store it is a no-op.
func (s *State) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	id, err := s.store.LoadJobID(ctx)
	if err != nil {
		return err
	}
	if id != "" {
		s.publish(id)
		s.logger.Info("session.restored", "job_id", id)
	}
	return nil
}

// Set selects jobID. Setting the current value again does nothing.
func (s *State) Set(ctx context.Context, jobID string) {
	if !s.publish(jobID) {
		return
	}
	s.logger.Info("session.job_selected", "job_id", jobID)
	if s.store != nil {
		if err := s.store.SaveJobID(ctx, jobID); err != nil {
			s.logger.Warn("session.persist_error", "job_id", jobID, "error", err)
		}
	}
}

// Clear deselects the current job.
func (s *State) Clear(ctx context.Context) { s.Set(ctx, "") }

func (s *State) publish(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if *s.jobID.Load() == jobID {
		return false
	}
	s.jobID.Store(&jobID)
	for _, ch := range s.subs {
		// latest value wins for slow subscribers
		select {
		case <-ch:
		default:
		}
		ch <- jobID
	}
	return true
}

// Subscribe returns a channel receiving each new job id and a func that
// unsubscribes and closes the channel. A slow reader only sees the latest id.
func (s *State) Subscribe() (<-chan string, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.next
	s.next++
	ch := make(chan string, 1)
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}
