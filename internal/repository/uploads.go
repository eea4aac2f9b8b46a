package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/provider-console/constants"
	"github.com/joseph-ayodele/provider-console/internal/common"
	"github.com/joseph-ayodele/provider-console/internal/entity"
)

const uploadsTable = "uploads"

var uploadColumns = []string{"id", "filename", "kind", "job_id", "sha256", "size_bytes", "uploaded_at", "start_error"}

// UploadRepository is the local history of uploaded provider files.
type UploadRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewUploadRepository(db *DB, logger *slog.Logger) *UploadRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadRepository{db: db, logger: logger}
}

func (r *UploadRepository) Record(ctx context.Context, u entity.Upload) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	var startErr any
	if u.StartError != nil {
		startErr = *u.StartError
	}
	query, args := r.db.builder().Insert(uploadsTable).
		Columns(uploadColumns...).
		Values(u.ID.String(), u.Filename, string(u.Kind), u.JobID, u.SHA256, u.SizeBytes, formatTime(u.UploadedAt), startErr).
		Query()
	if _, err := r.db.sqlDB().ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("repository.upload.record_failed", "job_id", u.JobID, "filename", u.Filename, "error", err)
		return err
	}
	r.logger.Debug("repository.upload.recorded", "id", u.ID, "job_id", u.JobID)
	return nil
}

// List returns the most recent uploads first. limit <= 0 means all.
func (r *UploadRepository) List(ctx context.Context, limit int) ([]entity.Upload, error) {
	b := r.db.builder()
	sel := b.Select(uploadColumns...).
		From(b.Table(uploadsTable)).
		OrderBy(entsql.Desc("uploaded_at"))
	if limit > 0 {
		sel = sel.Limit(limit)
	}
	query, args := sel.Query()

	rows, err := r.db.sqlDB().QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("repository.upload.list_failed", "error", err)
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []entity.Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// FindBySHA256 returns the latest upload with the given content hash, or
// common.ErrNotFound.
func (r *UploadRepository) FindBySHA256(ctx context.Context, sum string) (*entity.Upload, error) {
	b := r.db.builder()
	query, args := b.Select(uploadColumns...).
		From(b.Table(uploadsTable)).
		Where(entsql.EQ("sha256", sum)).
		OrderBy(entsql.Desc("uploaded_at")).
		Limit(1).
		Query()

	u, err := scanUpload(r.db.sqlDB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	return u, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUpload(s scanner) (*entity.Upload, error) {
	var (
		id, kind, uploadedAt string
		startErr             sql.NullString
		u                    entity.Upload
	)
	if err := s.Scan(&id, &u.Filename, &kind, &u.JobID, &u.SHA256, &u.SizeBytes, &uploadedAt, &startErr); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("upload id %q: %w", id, err)
	}
	u.ID = parsed
	u.Kind = constants.UploadKind(kind)
	if u.UploadedAt, err = parseTime(uploadedAt); err != nil {
		return nil, fmt.Errorf("upload %s uploaded_at: %w", id, err)
	}
	if startErr.Valid {
		s := startErr.String
		u.StartError = &s
	}
	return &u, nil
}
