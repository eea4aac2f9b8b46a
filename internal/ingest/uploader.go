package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/provider-console/constants"
	"github.com/joseph-ayodele/provider-console/internal/common"
	"github.com/joseph-ayodele/provider-console/internal/entity"
	"github.com/joseph-ayodele/provider-console/internal/notify"
)

// Uploader sends local provider files to the backend and starts validation.
type Uploader struct {
	client   Backend
	session  JobSelector
	recorder Recorder
	notifier notify.Notifier
	logger   *slog.Logger

	maxBytes int64
	dedup    bool
}

type Option func(*Uploader)

// WithRecorder records every upload in the local history.
func WithRecorder(r Recorder) Option {
	return func(u *Uploader) { u.recorder = r }
}

// WithMaxBytes overrides the upload size limit.
func WithMaxBytes(n int64) Option {
	return func(u *Uploader) {
		if n > 0 {
			u.maxBytes = n
		}
	}
}

// WithDedup skips files whose content was already uploaded and reselects
// their job. Needs a recorder.
func WithDedup(on bool) Option {
	return func(u *Uploader) { u.dedup = on }
}

func NewUploader(client Backend, session JobSelector, notifier notify.Notifier, logger *slog.Logger, opts ...Option) *Uploader {
	if logger == nil {
		logger = slog.Default()
	}
	u := &Uploader{
		client:   client,
		session:  session,
		notifier: notifier,
		logger:   logger,
		maxBytes: constants.DefaultMaxUploadBytes,
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

// UploadFile uploads one CSV or PDF file. On success the returned job id is
// selected and validation is started. A failure to start validation is
// returned as a ValidationStartError alongside a non-nil outcome; the job
// stays selected.
func (u *Uploader) UploadFile(ctx context.Context, path string) (*UploadOutcome, error) {
	start := time.Now()
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, u.uploadFailed(path, fmt.Errorf("abs path: %w", err))
	}
	name := filepath.Base(abs)

	kind, ok := constants.KindForExt(filepath.Ext(abs))
	if !ok {
		err := common.UploadError("Only CSV and PDF files are supported",
			fmt.Errorf("%w: %q", common.ErrUnsupportedFile, filepath.Ext(abs)))
		notify.Failure(u.notifier, "Unsupported file", err)
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, u.uploadFailed(name, err)
	}
	if info.IsDir() {
		return nil, u.uploadFailed(name, fmt.Errorf("%w: %s is a directory", common.ErrInvalidInput, abs))
	}
	if info.Size() > u.maxBytes {
		return nil, u.uploadFailed(name, fmt.Errorf("%w: %d bytes exceeds limit of %d", common.ErrFileTooLarge, info.Size(), u.maxBytes))
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, u.uploadFailed(name, fmt.Errorf("read: %w", err))
	}
	sum := sha256.Sum256(data)
	out := &UploadOutcome{
		SourcePath: abs,
		Filename:   name,
		Kind:       kind,
		SHA256:     hex.EncodeToString(sum[:]),
		SizeBytes:  int64(len(data)),
	}

	if u.dedup && u.recorder != nil {
		prev, err := u.recorder.FindBySHA256(ctx, out.SHA256)
		switch {
		case err == nil && prev != nil:
			out.Deduplicated = true
			out.JobID = prev.JobID
			out.UploadedAt = prev.UploadedAt
			u.logger.Info("ingest.upload.deduplicated", "path", abs, "job_id", prev.JobID)
			if u.session != nil && prev.JobID != "" {
				u.session.Set(ctx, prev.JobID)
			}
			return out, nil
		case err != nil && !errors.Is(err, common.ErrNotFound):
			u.logger.Warn("ingest.dedup_lookup_error", "path", abs, "error", err)
		}
	}

	res, err := u.client.Upload(ctx, kind, name, bytes.NewReader(data))
	if err != nil {
		return nil, u.uploadFailed(name, err)
	}
	out.JobID = res.FileID
	out.UploadedAt = time.Now().UTC()
	u.logger.Info("ingest.upload.ok",
		"path", abs, "kind", kind, "job_id", res.FileID, "bytes", out.SizeBytes,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	notify.Success(u.notifier, fmt.Sprintf("%s uploaded successfully", name), res.Message)

	if u.session != nil {
		u.session.Set(ctx, res.FileID)
	}

	var startErr error
	if _, err := u.client.StartValidation(common.WithJobID(ctx, res.FileID), res.FileID); err != nil {
		startErr = common.ValidationStartError(fmt.Sprintf("start validation for job %s", res.FileID), err)
		out.StartError = err.Error()
		u.logger.Error("ingest.start_validation.failed", "job_id", res.FileID, "error", err)
		notify.Failure(u.notifier, "Failed to start validation", startErr)
	} else {
		notify.Success(u.notifier, "Validation started", res.FileID)
	}

	u.record(ctx, out)
	return out, startErr
}

func (u *Uploader) uploadFailed(name string, cause error) error {
	err := common.UploadError(fmt.Sprintf("upload %s", name), cause)
	u.logger.Error("ingest.upload.failed", "file", name, "error", cause)
	notify.Failure(u.notifier, fmt.Sprintf("Failed to upload %s", name), cause)
	return err
}

func (u *Uploader) record(ctx context.Context, out *UploadOutcome) {
	if u.recorder == nil {
		return
	}
	rec := entity.Upload{
		ID:         uuid.New(),
		Filename:   out.Filename,
		Kind:       out.Kind,
		JobID:      out.JobID,
		SHA256:     out.SHA256,
		SizeBytes:  out.SizeBytes,
		UploadedAt: out.UploadedAt,
	}
	if out.StartError != "" {
		s := out.StartError
		rec.StartError = &s
	}
	if err := u.recorder.Record(ctx, rec); err != nil {
		u.logger.Warn("ingest.record_error", "job_id", out.JobID, "error", err)
	}
}

// UploadDirectory walks root and uploads every CSV/PDF file, skipping hidden
// entries if requested. Per-file failures are collected, not returned.
func (u *Uploader) UploadDirectory(ctx context.Context, root string, skipHidden bool) ([]UploadOutcome, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, fmt.Errorf("%w: root path is required", common.ErrInvalidInput)
	}

	var results []UploadOutcome
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, UploadOutcome{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		out, err := u.UploadFile(ctx, path)
		switch {
		case out == nil:
			results = append(results, UploadOutcome{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		case err != nil:
			stats.StartFailed++
		}
		stats.Succeeded++
		if out.Deduplicated {
			stats.Deduplicated++
		}
		results = append(results, *out)
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}
