package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

const (
	sessionTable = "console_session"
	jobIDKey     = "current_job_id"
)

// SessionRepository persists console session values. It implements the
// job-id store used to resume the last selected job.
type SessionRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewSessionRepository(db *DB, logger *slog.Logger) *SessionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionRepository{db: db, logger: logger}
}

// Get returns the value stored under key, or "" when absent.
func (r *SessionRepository) Get(ctx context.Context, key string) (string, error) {
	b := r.db.builder()
	query, args := b.Select("value").
		From(b.Table(sessionTable)).
		Where(entsql.EQ("key", key)).
		Query()

	var value string
	err := r.db.sqlDB().QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		r.logger.Error("repository.session.get_failed", "key", key, "error", err)
		return "", err
	}
	return value, nil
}

// Put upserts key.
func (r *SessionRepository) Put(ctx context.Context, key, value string) error {
	query, args := r.db.builder().Insert(sessionTable).
		Columns("key", "value", "updated_at").
		Values(key, value, formatTime(time.Now())).
		OnConflict(entsql.ConflictColumns("key"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := r.db.sqlDB().ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("repository.session.put_failed", "key", key, "error", err)
		return err
	}
	return nil
}

func (r *SessionRepository) LoadJobID(ctx context.Context) (string, error) {
	return r.Get(ctx, jobIDKey)
}

func (r *SessionRepository) SaveJobID(ctx context.Context, jobID string) error {
	return r.Put(ctx, jobIDKey, jobID)
}
