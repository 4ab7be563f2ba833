package store

import (
	"context"
	"errors"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS translation_cache (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		text_hash TEXT NOT NULL,
		target_language TEXT NOT NULL,
		translated_text TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL,
		UNIQUE(text_hash, target_language)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_translation_cache_expires ON translation_cache(expires_at);`,
	`CREATE TABLE IF NOT EXISTS rate_limit_window (
		admitted_at INTEGER NOT NULL
	);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	return nil
}
