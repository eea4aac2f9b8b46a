package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// DB is the console's local state store: Postgres through a pgx pool, or
// SQLite for a single operator.
type DB struct {
	drv     *entsql.Driver
	dialect string
	pool    *pgxpool.Pool
	logger  *slog.Logger
}

// IsPostgres reports whether dsn points at Postgres rather than SQLite.
func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Open connects to the store selected by cfg.DSN and creates missing tables.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 3 * time.Second
	}

	var (
		d   *DB
		err error
	)
	if IsPostgres(cfg.DSN) {
		d, err = openPostgres(ctx, cfg, logger)
	} else {
		d, err = openSQLite(cfg, logger)
	}
	if err != nil {
		logger.Error("repository.connect_failed", "error", err)
		return nil, err
	}

	mctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := d.migrate(mctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	logger.Info("repository.connected", "dialect", d.dialect)
	return d, nil
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("repository.connecting", "dialect", dialect.Postgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "provider-console"

	ctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, err
	}

	// Wrap pool as *sql.DB for the ent driver
	db := stdlib.OpenDBFromPool(pool)
	return &DB{drv: entsql.OpenDB(dialect.Postgres, db), dialect: dialect.Postgres, pool: pool, logger: logger}, nil
}

func openSQLite(cfg Config, logger *slog.Logger) (*DB, error) {
	dsn := cfg.DSN
	memory := strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
	if !memory && !strings.Contains(dsn, "_pragma") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	logger.Info("repository.connecting", "dialect", dialect.SQLite, "dsn", cfg.DSN)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// every connection to :memory: is a separate database
	if memory {
		db.SetMaxOpenConns(1)
	}
	return &DB{drv: entsql.OpenDB(dialect.SQLite, db), dialect: dialect.SQLite, logger: logger}, nil
}

// Dialect returns the ent dialect name of the store.
func (d *DB) Dialect() string { return d.dialect }

func (d *DB) builder() *entsql.DialectBuilder { return entsql.Dialect(d.dialect) }

func (d *DB) sqlDB() *sql.DB { return d.drv.DB() }

// Close closes the database connections gracefully
func (d *DB) Close() {
	if d == nil {
		return
	}
	d.logger.Info("repository.closing")
	if err := d.drv.Close(); err != nil {
		d.logger.Error("repository.close_error", "error", err)
	}
	if d.pool != nil {
		d.pool.Close()
	}
}

// HealthCheck pings the store.
func (d *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := d.sqlDB().PingContext(ctx); err != nil {
		d.logger.Error("repository.ping_failed", "error", err)
		return err
	}
	d.logger.Debug("repository.ping_ok")
	return nil
}

func (d *DB) migrate(ctx context.Context) error {
	b := d.builder()
	tables := []*entsql.TableBuilder{
		b.CreateTable(sessionTable).IfNotExists().
			Columns(
				entsql.Column("key").Type("TEXT").Attr("NOT NULL"),
				entsql.Column("value").Type("TEXT").Attr("NOT NULL"),
				entsql.Column("updated_at").Type("TEXT").Attr("NOT NULL"),
			).
			PrimaryKey("key"),
		b.CreateTable(uploadsTable).IfNotExists().
			Columns(
				entsql.Column("id").Type("TEXT").Attr("NOT NULL"),
				entsql.Column("filename").Type("TEXT").Attr("NOT NULL"),
				entsql.Column("kind").Type("TEXT").Attr("NOT NULL"),
				entsql.Column("job_id").Type("TEXT").Attr("NOT NULL"),
				entsql.Column("sha256").Type("TEXT").Attr("NOT NULL"),
				entsql.Column("size_bytes").Type("BIGINT").Attr("NOT NULL"),
				entsql.Column("uploaded_at").Type("TEXT").Attr("NOT NULL"),
				entsql.Column("start_error").Type("TEXT"),
			).
			PrimaryKey("id"),
	}
	for _, t := range tables {
		query, args := t.Query()
		if _, err := d.sqlDB().ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("%s: %w", query, err)
		}
	}
	return nil
}

// Timestamps are stored as fixed-width UTC text so they sort correctly in both dialects.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) { return time.Parse(timeLayout, s) }
