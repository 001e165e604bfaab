package state

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

type DiffCacheStats struct {
	Entries int64
	Bytes   int64
	Oldest  time.Time
	Newest  time.Time
}

func CacheKey(response string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(response)))
	return hex.EncodeToString(sum[:])
}

func (db *DB) GetCachedDiff(ctx context.Context, response string) (string, bool, error) {
	if err := db.ready(); err != nil {
		return "", false, err
	}
	var diff string
	err := db.conn.QueryRowContext(ctx, `
		SELECT diff FROM diff_cache WHERE cache_key = ?
	`, CacheKey(response)).Scan(&diff)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return diff, true, nil
}

func (db *DB) PutCachedDiff(ctx context.Context, response, diff string) error {
	if err := db.ready(); err != nil {
		return err
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return nil
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO diff_cache (cache_key, response, diff, created_unix)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			diff = excluded.diff,
			created_unix = excluded.created_unix
	`, CacheKey(response), response, diff, time.Now().UTC().Unix())
	return err
}

func (db *DB) DiffCacheStats(ctx context.Context) (DiffCacheStats, error) {
	if err := db.ready(); err != nil {
		return DiffCacheStats{}, err
	}
	var stats DiffCacheStats
	var oldest, newest sql.NullInt64
	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(LENGTH(diff)), 0), MIN(created_unix), MAX(created_unix)
		FROM diff_cache
	`).Scan(&stats.Entries, &stats.Bytes, &oldest, &newest)
	if err != nil {
		return DiffCacheStats{}, err
	}
	if oldest.Valid {
		stats.Oldest = time.Unix(oldest.Int64, 0).UTC()
	}
	if newest.Valid {
		stats.Newest = time.Unix(newest.Int64, 0).UTC()
	}
	return stats, nil
}

// ClearDiffCache deletes entries older than olderThan, or every entry when
// olderThan is not positive. It returns the number of deleted entries.
func (db *DB) ClearDiffCache(ctx context.Context, olderThan time.Duration) (int64, error) {
	if err := db.ready(); err != nil {
		return 0, err
	}
	var res sql.Result
	var err error
	if olderThan <= 0 {
		res, err = db.conn.ExecContext(ctx, `DELETE FROM diff_cache`)
	} else {
		cutoff := time.Now().UTC().Add(-olderThan).Unix()
		res, err = db.conn.ExecContext(ctx, `DELETE FROM diff_cache WHERE created_unix < ?`, cutoff)
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
