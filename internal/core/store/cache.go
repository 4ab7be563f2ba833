package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/translens/translens/internal/core"
)

// GetCachedTranslation returns a cached translation if it is still valid.
func (s *Store) GetCachedTranslation(ctx context.Context, text, targetLanguage string) (*core.CachedTranslation, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	targetLanguage = strings.TrimSpace(targetLanguage)
	if text == "" || targetLanguage == "" {
		return nil, nil
	}

	var (
		translated string
		expiresAt  int64
	)

	row := s.DB.QueryRowContext(ctx, `
		SELECT translated_text, expires_at
		FROM translation_cache
		WHERE text_hash = ? AND target_language = ? AND expires_at > ?
	`, hashText(text), targetLanguage, time.Now().UTC().Unix())

	if err := row.Scan(&translated, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch cached translation: %w", err)
	}

	return &core.CachedTranslation{
		TranslatedText: translated,
		ExpiresAt:      time.Unix(expiresAt, 0).UTC(),
	}, nil
}

// SetCachedTranslation stores a translation with a TTL. A non-positive TTL
// disables caching.
func (s *Store) SetCachedTranslation(ctx context.Context, text, targetLanguage, translatedText string, ttl time.Duration) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if ttl <= 0 {
		return nil
	}

	targetLanguage = strings.TrimSpace(targetLanguage)
	if text == "" || targetLanguage == "" || translatedText == "" {
		return nil
	}

	now := time.Now().UTC()

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO translation_cache (text_hash, target_language, translated_text, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(text_hash, target_language) DO UPDATE SET
			translated_text = excluded.translated_text,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`, hashText(text), targetLanguage, translatedText, now.Unix(), now.Add(ttl).Unix())
	if err != nil {
		return fmt.Errorf("store cached translation: %w", err)
	}

	return nil
}

// PruneCache removes expired cache rows. Best-effort maintenance.
func (s *Store) PruneCache(ctx context.Context) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	result, err := s.DB.ExecContext(ctx, `
		DELETE FROM translation_cache WHERE expires_at <= ?
	`, time.Now().UTC().Unix())
	if err != nil {
		return 0, fmt.Errorf("prune translation cache: %w", err)
	}

	removed, _ := result.RowsAffected()
	return removed, nil
}

// CountCacheEntries reports how many unexpired cache rows exist.
func (s *Store) CountCacheEntries(ctx context.Context) (int, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}

	var count int
	err := s.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM translation_cache WHERE expires_at > ?
	`, time.Now().UTC().Unix()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count cache entries: %w", err)
	}
	return count, nil
}

// TranslationCache adapts the store to the governor's cache capability with a
// fixed TTL.
type TranslationCache struct {
	Store *Store
	TTL   time.Duration
}

func (c *TranslationCache) GetTranslation(ctx context.Context, text, targetLanguage string) (*core.CachedTranslation, error) {
	return c.Store.GetCachedTranslation(ctx, text, targetLanguage)
}

func (c *TranslationCache) SetTranslation(ctx context.Context, text, targetLanguage, translatedText string) error {
	return c.Store.SetCachedTranslation(ctx, text, targetLanguage, translatedText, c.TTL)
}

// hashText keys cache rows without storing raw selections verbatim in an
// indexed column.
func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
