package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SaveWindow replaces the persisted rate limit window snapshot. Called on
// graceful shutdown so quota survives a daemon restart.
func (s *Store) SaveWindow(ctx context.Context, stamps []time.Time) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save rate limit window: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM rate_limit_window`); err != nil {
		return fmt.Errorf("clear rate limit window: %w", err)
	}

	for _, ts := range stamps {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO rate_limit_window (admitted_at) VALUES (?)
		`, ts.UTC().UnixMilli()); err != nil {
			return fmt.Errorf("store rate limit window: %w", err)
		}
	}

	return tx.Commit()
}

// LoadWindow returns the persisted window snapshot in admission order. Stale
// entries are the limiter's concern; the store returns everything it has.
func (s *Store) LoadWindow(ctx context.Context) ([]time.Time, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT admitted_at FROM rate_limit_window ORDER BY admitted_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("fetch rate limit window: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	var stamps []time.Time
	for rows.Next() {
		var millis int64
		if err := rows.Scan(&millis); err != nil {
			return nil, fmt.Errorf("decode rate limit window: %w", err)
		}
		stamps = append(stamps, time.UnixMilli(millis).UTC())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch rate limit window: %w", err)
	}

	return stamps, nil
}

// ClearWindow drops the persisted snapshot.
func (s *Store) ClearWindow(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := s.DB.ExecContext(ctx, `DELETE FROM rate_limit_window`); err != nil {
		return fmt.Errorf("clear rate limit window: %w", err)
	}

	return nil
}
