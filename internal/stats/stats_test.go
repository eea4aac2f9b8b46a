package stats

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/provider-console/internal/common"
	"github.com/joseph-ayodele/provider-console/internal/entity"
)

func dist(kv ...any) *entity.Distribution {
	d := entity.NewDistribution()
	for i := 0; i < len(kv); i += 2 {
		d.Set(kv[i].(string), kv[i+1].(int))
	}
	return d
}

func TestToSeries_PreservesInsertionOrder(t *testing.T) {
	d := dist("validated", 2, "needs_review", 2, "suspicious", 1, "pending", 1)
	assert.Equal(t, []Point{
		{"validated", 2}, {"needs_review", 2}, {"suspicious", 1}, {"pending", 1},
	}, StatusSeries(d))
	assert.Equal(t, []Point{}, ToSeries(nil))
}

func TestSpecialtySeries_TruncatesPositionally(t *testing.T) {
	d := entity.NewDistribution()
	for i := 1; i <= 12; i++ {
		d.Set(fmt.Sprintf("s%02d", i), i)
	}
	s := SpecialtySeries(d)
	require.Len(t, s, MaxSpecialtySeries)
	assert.Equal(t, "s01", s[0].Name)
	assert.Equal(t, "s10", s[9].Name, "largest values s11 and s12 are cut")

	small := dist("Cardiology", 3, "Urology", 1)
	assert.Len(t, SpecialtySeries(small), 2)
}

func TestTopN(t *testing.T) {
	d := dist("a", 1, "b", 5, "c", 3, "d", 5)
	assert.Equal(t, []Point{{"b", 5}, {"d", 5}}, TopN(d, 2))
	assert.Len(t, TopN(d, 10), 4)
}

type fakeStats struct {
	mu    sync.Mutex
	gate  chan struct{}
	err   error
	calls []string
}

func (f *fakeStats) GetDashboardStats(_ context.Context, jobID string) (*entity.DashboardStats, error) {
	f.mu.Lock()
	f.calls = append(f.calls, jobID)
	gate, err := f.gate, f.err
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return &entity.DashboardStats{TotalProviders: len(jobID), ValidationStatus: dist(), SpecialtyDistribution: dist()}, nil
}

func TestTracker_RefreshAndStale(t *testing.T) {
	f := &fakeStats{gate: make(chan struct{})}
	tr := NewTracker(f, time.Millisecond, nil)
	tr.SetJob("old")

	errc := make(chan error, 1)
	go func() { errc <- tr.Refresh(context.Background()) }()
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.calls) == 1
	}, time.Second, time.Millisecond)

	tr.SetJob("newer")
	close(f.gate)
	assert.ErrorIs(t, <-errc, ErrStale)
	assert.Nil(t, tr.Latest())

	f.mu.Lock()
	f.gate = nil
	f.mu.Unlock()
	require.NoError(t, tr.Refresh(context.Background()))
	assert.Equal(t, 5, tr.Latest().TotalProviders)
}

func TestTracker_FailureKeepsLatest(t *testing.T) {
	f := &fakeStats{}
	tr := NewTracker(f, time.Millisecond, nil)
	tr.SetJob("abc")
	require.NoError(t, tr.Refresh(context.Background()))
	prev := tr.Latest()

	f.err = errors.New("down")
	err := tr.Refresh(context.Background())
	assert.True(t, common.HasCode(err, common.CodeFetch))
	assert.Same(t, prev, tr.Latest())
}

func TestTracker_Poll(t *testing.T) {
	f := &fakeStats{}
	tr := NewTracker(f, 5*time.Millisecond, nil)
	tr.SetJob("abc")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tr.Poll(ctx)

	require.Eventually(t, func() bool { return tr.Latest() != nil }, time.Second, time.Millisecond)
}
