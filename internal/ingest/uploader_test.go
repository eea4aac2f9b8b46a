package ingest

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/provider-console/constants"
	"github.com/joseph-ayodele/provider-console/internal/common"
	"github.com/joseph-ayodele/provider-console/internal/entity"
	"github.com/joseph-ayodele/provider-console/internal/notify"
)

type fakeBackend struct {
	mu       sync.Mutex
	uploads  []string
	kinds    []constants.UploadKind
	started  []string
	startErr error
	upErr    error
}

func (f *fakeBackend) Upload(_ context.Context, kind constants.UploadKind, filename string, r io.Reader) (*entity.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upErr != nil {
		return nil, f.upErr
	}
	body, _ := io.ReadAll(r)
	f.uploads = append(f.uploads, filename+":"+string(body))
	f.kinds = append(f.kinds, kind)
	return &entity.UploadResult{Message: "uploaded", FileID: "job-" + filename, Filename: filename}, nil
}

func (f *fakeBackend) StartValidation(_ context.Context, jobID string) (*entity.ValidationJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, jobID)
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &entity.ValidationJob{ID: jobID, Status: constants.JobStatusQueued}, nil
}

func (f *fakeBackend) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

type fakeSession struct {
	mu  sync.Mutex
	ids []string
}

func (s *fakeSession) Set(_ context.Context, id string) {
	s.mu.Lock()
	s.ids = append(s.ids, id)
	s.mu.Unlock()
}

type memRecorder struct {
	mu      sync.Mutex
	uploads []entity.Upload
}

func (m *memRecorder) Record(_ context.Context, u entity.Upload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads = append(m.uploads, u)
	return nil
}

func (m *memRecorder) FindBySHA256(_ context.Context, sum string) (*entity.Upload, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.uploads {
		if m.uploads[i].SHA256 == sum {
			u := m.uploads[i]
			return &u, nil
		}
	}
	return nil, common.ErrNotFound
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestUploadFile_CSV(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "providers.csv", "name,npi\nJane Doe,123\n")

	backend, sess, rec, n := &fakeBackend{}, &fakeSession{}, &memRecorder{}, &notify.Recorder{}
	u := NewUploader(backend, sess, n, nil, WithRecorder(rec))

	out, err := u.UploadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "job-providers.csv", out.JobID)
	assert.Equal(t, constants.UploadCSV, out.Kind)
	assert.Len(t, out.SHA256, 64)

	assert.Equal(t, []string{"providers.csv:name,npi\nJane Doe,123\n"}, backend.uploads)
	assert.Equal(t, []string{"job-providers.csv"}, backend.started)
	assert.Equal(t, []string{"job-providers.csv"}, sess.ids)
	require.Len(t, rec.uploads, 1)
	assert.Nil(t, rec.uploads[0].StartError)
	assert.Equal(t, 2, n.Count(notify.LevelSuccess))
}

func TestUploadFile_PDFDispatch(t *testing.T) {
	path := writeFile(t, t.TempDir(), "Roster.PDF", "%PDF-1.4")
	backend := &fakeBackend{}
	u := NewUploader(backend, nil, nil, nil)

	_, err := u.UploadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []constants.UploadKind{constants.UploadPDF}, backend.kinds)
}

func TestUploadFile_StartFailureKeepsJobSelected(t *testing.T) {
	path := writeFile(t, t.TempDir(), "providers.csv", "a\n")
	backend := &fakeBackend{startErr: errors.New("500 Internal Server Error")}
	sess, rec, n := &fakeSession{}, &memRecorder{}, &notify.Recorder{}
	u := NewUploader(backend, sess, n, nil, WithRecorder(rec))

	out, err := u.UploadFile(context.Background(), path)
	require.Error(t, err)
	require.NotNil(t, out)
	assert.True(t, common.HasCode(err, common.CodeValidationStart))
	assert.Equal(t, []string{"job-providers.csv"}, sess.ids)
	require.Len(t, rec.uploads, 1)
	require.NotNil(t, rec.uploads[0].StartError)
	assert.Contains(t, *rec.uploads[0].StartError, "500")
	assert.Equal(t, 1, n.Count(notify.LevelError))
}

func TestUploadFile_Rejections(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		path string
		opts []Option
		want error
	}{
		{"unsupported extension", writeFile(t, dir, "roster.xlsx", "x"), nil, common.ErrUnsupportedFile},
		{"too large", writeFile(t, dir, "big.csv", "0123456789"), []Option{WithMaxBytes(4)}, common.ErrFileTooLarge},
		{"missing file", filepath.Join(dir, "nope.csv"), nil, os.ErrNotExist},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, n := &fakeBackend{}, &notify.Recorder{}
			u := NewUploader(backend, nil, n, nil, tt.opts...)

			out, err := u.UploadFile(context.Background(), tt.path)
			assert.Nil(t, out)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, common.HasCode(err, common.CodeUpload))
			assert.Zero(t, backend.uploadCount())
			assert.Equal(t, 1, n.Count(notify.LevelError))
		})
	}
}

func TestUploadFile_BackendFailure(t *testing.T) {
	path := writeFile(t, t.TempDir(), "providers.csv", "a\n")
	sess := &fakeSession{}
	u := NewUploader(&fakeBackend{upErr: common.NetworkError("POST /upload/csv", errors.New("refused"))}, sess, nil, nil)

	_, err := u.UploadFile(context.Background(), path)
	assert.True(t, common.HasCode(err, common.CodeUpload))
	assert.True(t, common.IsNetworkError(err))
	assert.Empty(t, sess.ids, "no job selected on failed upload")
}

func TestUploadFile_Dedup(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "same")
	b := writeFile(t, dir, "b.csv", "same")

	backend, rec, sess := &fakeBackend{}, &memRecorder{}, &fakeSession{}
	u := NewUploader(backend, sess, nil, nil, WithRecorder(rec), WithDedup(true))

	_, err := u.UploadFile(context.Background(), a)
	require.NoError(t, err)
	out, err := u.UploadFile(context.Background(), b)
	require.NoError(t, err)
	assert.True(t, out.Deduplicated)
	assert.Equal(t, "job-a.csv", out.JobID)
	assert.Equal(t, 1, backend.uploadCount())
	assert.Equal(t, []string{"job-a.csv", "job-a.csv"}, sess.ids)
}

func TestUploadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.csv", "1")
	writeFile(t, dir, "nested/two.pdf", "2")
	writeFile(t, dir, "notes.txt", "skip")
	writeFile(t, dir, ".hidden/three.csv", "3")

	backend := &fakeBackend{}
	u := NewUploader(backend, nil, nil, nil)

	results, stats, err := u.UploadDirectory(context.Background(), dir, true)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, uint32(2), stats.Matched)
	assert.Equal(t, uint32(2), stats.Succeeded)
	assert.Zero(t, stats.Failed)

	_, _, err = u.UploadDirectory(context.Background(), " ", true)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestWatch_UploadsNewFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "existing.csv", "old")

	backend := &fakeBackend{}
	u := NewUploader(backend, nil, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, WatchConfig{Roots: []string{dir}, InitialScan: true, Debounce: 20 * time.Millisecond}, u)
	}()

	require.Eventually(t, func() bool { return backend.uploadCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	writeFile(t, dir, "fresh.pdf", "new")
	writeFile(t, dir, "ignored.txt", "x")
	require.Eventually(t, func() bool { return backend.uploadCount() == 2 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, "existing.csv:old", backend.uploads[0])
	assert.Equal(t, "fresh.pdf:new", backend.uploads[1])
}

func TestStartWatcher_NoRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{}, nil)
	assert.Error(t, err)
}
