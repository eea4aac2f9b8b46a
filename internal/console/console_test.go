package console

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/provider-console/constants"
	"github.com/joseph-ayodele/provider-console/internal/api"
	"github.com/joseph-ayodele/provider-console/internal/entity"
	"github.com/joseph-ayodele/provider-console/internal/monitor"
	"github.com/joseph-ayodele/provider-console/internal/notify"
	"github.com/joseph-ayodele/provider-console/internal/session"
	"github.com/joseph-ayodele/provider-console/internal/stats"
)

// fakeBackend serves the validation API for two jobs.
type fakeBackend struct {
	mu          sync.Mutex
	statusCalls map[string]int
	statsCalls  atomic.Int32
	downloads   atomic.Int32
}

func (f *fakeBackend) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api")
		switch {
		case strings.HasPrefix(path, "/validation/status/"):
			id := strings.TrimPrefix(path, "/validation/status/")
			f.mu.Lock()
			f.statusCalls[id]++
			f.mu.Unlock()
			_, _ = fmt.Fprintf(w, `{"job_id":%q,"status":"processing","total_providers":200,"processed_providers":50,"progress_percentage":25}`, id)
		case strings.HasPrefix(path, "/validation/providers/"):
			id := strings.TrimPrefix(path, "/validation/providers/")
			switch id {
			case "abc":
				_, _ = io.WriteString(w, `{"providers":[
					{"id":1,"job_id":"abc","name":"Jane Doe","npi":"123","specialty":null,"needs_review":true,"is_suspicious":true,"is_validated":false},
					{"id":2,"job_id":"abc","name":"John Roe","npi":"456","specialty":"Urology","is_validated":true}
				],"total":2,"page":1,"page_size":100}`)
			default:
				_, _ = fmt.Fprintf(w, `{"providers":[{"id":9,"job_id":%q,"name":"Other Person","is_validated":true}],"total":1,"page":1,"page_size":100}`, id)
			}
		case path == "/dashboard/stats":
			f.statsCalls.Add(1)
			_, _ = io.WriteString(w, `{"total_providers":2,"auto_validated":1,"needs_review":1,"suspicious":1,"average_confidence":0.7,
				"validation_status":{"validated":1,"needs_review":1,"suspicious":1,"pending":0},
				"specialty_distribution":{"Urology":1,"Unknown":1}}`)
		case path == "/dashboard/download-results":
			f.downloads.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"detail":"export failed"}`)
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func (f *fakeBackend) calls(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls[id]
}

func setup(t *testing.T, opts ...Option) (*Console, *session.State, *fakeBackend, *notify.Recorder) {
	t.Helper()
	fb := &fakeBackend{statusCalls: map[string]int{}}
	srv := httptest.NewServer(fb.handler(t))
	t.Cleanup(srv.Close)

	client := api.NewClient(api.Config{BaseURL: srv.URL + "/api"}, nil)
	sess := session.New(nil)
	rec := &notify.Recorder{}
	c := New(client, sess, rec, Config{Interval: 10 * time.Millisecond}, nil, opts...)
	return c, sess, fb, rec
}

func TestConsole_FollowsSelectedJob(t *testing.T) {
	var updates atomic.Int32
	c, sess, fb, _ := setup(t, WithMonitorOptions(monitor.WithOnUpdate(func(*entity.ValidationJob) { updates.Add(1) })))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	sess.Set(ctx, "abc")

	require.Eventually(t, func() bool {
		job, ok := c.Job()
		return ok && job.ProgressLabel() == "25.0%"
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(c.Rows("", constants.FilterAll)) == 2 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return c.Stats() != nil }, 2*time.Second, 5*time.Millisecond)

	rows := c.Rows("jane", constants.FilterReview)
	require.Len(t, rows, 1)
	assert.Equal(t, "Jane Doe", rows[0].Provider.DisplayName())
	assert.Equal(t, []string{"Needs Review", "Suspicious"}, rows[0].Classification.Labels())
	assert.Equal(t, constants.TemplateReviewRequest, rows[0].Classification.DefaultTemplate)
	assert.Len(t, c.Rows("", constants.FilterSuspicious), 1)

	statusSeries, specialty := c.Charts()
	assert.Equal(t, []stats.Point{{Name: "validated", Value: 1}, {Name: "needs_review", Value: 1}, {Name: "suspicious", Value: 1}, {Name: "pending", Value: 0}}, statusSeries)
	assert.Equal(t, "Urology", specialty[0].Name)
	assert.Positive(t, updates.Load())

	sess.Set(ctx, "def")
	require.Eventually(t, func() bool {
		rows := c.Rows("", constants.FilterAll)
		return len(rows) == 1 && rows[0].Provider.ID == 9
	}, 2*time.Second, 5*time.Millisecond)
	for _, r := range c.Rows("", constants.FilterAll) {
		assert.Equal(t, "def", r.Provider.JobID, "no rows of the previous job")
	}

	abcCalls := fb.calls("abc")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, abcCalls, fb.calls("abc"), "old job no longer polled")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	defCalls := fb.calls("def")
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, defCalls, fb.calls("def"), "teardown stops every poll")
}

func TestConsole_DownloadFailureLeavesStateUntouched(t *testing.T) {
	c, sess, fb, rec := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	sess.Set(ctx, "abc")
	require.Eventually(t, func() bool { return len(c.Rows("", constants.FilterAll)) == 2 }, 2*time.Second, 5*time.Millisecond)

	_, err := c.SaveResults(ctx, t.TempDir(), constants.ExportCSV)
	require.Error(t, err)
	assert.Equal(t, int32(1), fb.downloads.Load(), "no retry")
	assert.Equal(t, 1, rec.Count(notify.LevelError))
	assert.Equal(t, "abc", c.JobID())
	assert.Len(t, c.Rows("", constants.FilterAll), 2)
}

func TestConsole_RefreshWithoutJob(t *testing.T) {
	c, _, fb, _ := setup(t)
	require.NoError(t, c.Refresh(context.Background()))
	assert.Nil(t, c.Stats())
	assert.Nil(t, c.Page())
	_, ok := c.Job()
	assert.False(t, ok)
	assert.Zero(t, fb.statsCalls.Load())
}

func TestConsole_NoPollingWithoutJob(t *testing.T) {
	c, sess, fb, _ := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, fb.statsCalls.Load(), "stats are job scoped")

	sess.Set(ctx, "abc")
	require.Eventually(t, func() bool { return c.Stats() != nil }, 2*time.Second, 5*time.Millisecond)

	sess.Clear(ctx)
	require.Eventually(t, func() bool { return c.Stats() == nil }, 2*time.Second, 5*time.Millisecond)
	cleared := fb.statsCalls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, cleared, fb.statsCalls.Load(), "clearing the job stops stats polling")

	cancel()
	require.NoError(t, <-done)
}
