// Package cache persists mined git-history events in Postgres so that
// repeated invocations over long ranges do not re-clone unchanged
// repositories. The cache is optional; the pipeline runs without it.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/thesurlydev/wiwo/logger"
	"github.com/thesurlydev/wiwo/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS synthetic_events (
	repo       TEXT        NOT NULL,
	kind       TEXT        NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	summary    TEXT        NOT NULL,
	PRIMARY KEY (repo, created_at, summary)
)`

// Cache is a Postgres-backed store of synthetic events.
type Cache struct {
	conn *sqlx.DB
}

// New connects to Postgres and ensures the schema exists.
func New(dsn string) (*Cache, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: empty DSN", ErrInvalidInput)
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseConnection, err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure cache schema: %w", err)
	}

	logger.Debug("Event cache connected")
	return &Cache{conn: db}, nil
}

// Store upserts mined events for a repository in one transaction.
func (c *Cache) Store(ctx context.Context, repo string, events []models.SyntheticEvent) error {
	if repo == "" {
		return fmt.Errorf("%w: repository name cannot be empty", ErrInvalidInput)
	}
	if len(events) == 0 {
		return nil
	}

	tx, err := c.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransactionFailed, err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO synthetic_events (repo, kind, created_at, summary)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (repo, created_at, summary) DO NOTHING
	`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare event insert statement: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.ExecContext(ctx, repo, ev.Kind, ev.CreatedAt, ev.Summary); err != nil {
			return fmt.Errorf("failed to insert event for %s: %w", repo, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit: %v", ErrTransactionFailed, err)
	}

	logger.Debug("Cached mined events",
		zap.String("repo", repo),
		zap.Int("count", len(events)))
	return nil
}

// Load returns cached events for a repository in [from, to), newest first.
func (c *Cache) Load(ctx context.Context, repo string, from, to time.Time) ([]models.SyntheticEvent, error) {
	if repo == "" {
		return nil, fmt.Errorf("%w: repository name cannot be empty", ErrInvalidInput)
	}

	var events []models.SyntheticEvent
	query := `
		SELECT repo, kind, created_at, summary
		FROM synthetic_events
		WHERE repo = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at DESC
	`

	if err := c.conn.SelectContext(ctx, &events, query, repo, from, to); err != nil {
		return nil, fmt.Errorf("failed to load cached events for %s: %w", repo, err)
	}
	return events, nil
}

// LatestDate returns the newest cached event timestamp for a repository.
func (c *Cache) LatestDate(ctx context.Context, repo string) (time.Time, error) {
	if repo == "" {
		return time.Time{}, fmt.Errorf("%w: repository name cannot be empty", ErrInvalidInput)
	}

	var latest sql.NullTime
	query := `SELECT MAX(created_at) FROM synthetic_events WHERE repo = $1`

	if err := c.conn.GetContext(ctx, &latest, query, repo); err != nil {
		return time.Time{}, fmt.Errorf("failed to get latest cached date for %s: %w", repo, err)
	}
	if !latest.Valid {
		return time.Time{}, fmt.Errorf("%w: repository %s", ErrNoEventsFound, repo)
	}
	return latest.Time, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	return c.conn.Close()
}
