package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"image-resolver/internal/logging"
	"image-resolver/internal/metrics"
)

// ErrNotFound is returned when no record exists for a Telegram URL.
var ErrNotFound = errors.New("resolution record not found")

// ResolutionRecord maps a Telegram group URL to its resolved image URL.
type ResolutionRecord struct {
	ID          int64     `json:"id"`
	TelegramURL string    `json:"telegram_url"`
	ImageURL    string    `json:"image_url"`
	Source      string    `json:"source"`
	ResolvedAt  time.Time `json:"resolved_at"`
}

// UpsertRecord stores or replaces the record for rec.TelegramURL.
func (d *Database) UpsertRecord(ctx context.Context, rec *ResolutionRecord) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("upsert_record", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO resolutions (telegram_url, image_url, source, resolved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(telegram_url) DO UPDATE SET
			image_url = excluded.image_url,
			source = excluded.source,
			resolved_at = excluded.resolved_at,
			updated_at = strftime('%s', 'now')
	`, rec.TelegramURL, rec.ImageURL, rec.Source, rec.ResolvedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert resolution record: %w", err)
	}
	return nil
}

// GetRecord returns the record for telegramURL, or ErrNotFound.
func (d *Database) GetRecord(ctx context.Context, telegramURL string) (*ResolutionRecord, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_record", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rec ResolutionRecord
	var resolvedAt int64
	err = d.db.QueryRowContext(ctx, `
		SELECT id, telegram_url, image_url, source, resolved_at
		FROM resolutions WHERE telegram_url = ?
	`, telegramURL).Scan(&rec.ID, &rec.TelegramURL, &rec.ImageURL, &rec.Source, &resolvedAt)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNotFound
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query resolution record: %w", err)
	}

	rec.ResolvedAt = time.Unix(resolvedAt, 0).UTC()
	return &rec, nil
}

// DeleteRecord removes the record for telegramURL if present.
func (d *Database) DeleteRecord(ctx context.Context, telegramURL string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_record", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, `DELETE FROM resolutions WHERE telegram_url = ?`, telegramURL)
	if err != nil {
		return fmt.Errorf("failed to delete resolution record: %w", err)
	}
	return nil
}

// CleanExpired deletes records resolved before the cutoff and returns
// how many were removed.
func (d *Database) CleanExpired(ctx context.Context, maxAge time.Duration) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("clean_expired", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-maxAge).Unix()
	res, err := d.db.ExecContext(ctx, `DELETE FROM resolutions WHERE resolved_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean expired records: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		logging.Info("Cleaned %d expired resolution records", removed)
	}
	return removed, nil
}

// CountRecords returns the number of stored resolution records and
// refreshes the records gauge.
func (d *Database) CountRecords(ctx context.Context) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("count_records", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var count int64
	err = d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM resolutions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count resolution records: %w", err)
	}

	metrics.DBRecordsTotal.Set(float64(count))
	return count, nil
}
