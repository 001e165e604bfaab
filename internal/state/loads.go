package state

import (
	"context"
	"strings"
	"time"
)

const DefaultLoadHistoryLimit = 50

type ActionLoad struct {
	ID       int64
	Dir      string
	Records  int
	Issues   int
	LoadedAt time.Time
}

func (db *DB) RecordLoad(ctx context.Context, dir string, records, issues int) error {
	if err := db.ready(); err != nil {
		return err
	}
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil
	}

	if _, err := db.conn.ExecContext(ctx, `
		INSERT INTO action_loads (dir, records, issues, loaded_unix)
		VALUES (?, ?, ?, ?)
	`, dir, records, issues, time.Now().UTC().Unix()); err != nil {
		return err
	}

	_, err := db.conn.ExecContext(ctx, `
		DELETE FROM action_loads
		WHERE id NOT IN (
			SELECT id
			FROM action_loads
			ORDER BY id DESC
			LIMIT ?
		)
	`, DefaultLoadHistoryLimit)
	return err
}

func (db *DB) RecentLoads(ctx context.Context, limit int) ([]ActionLoad, error) {
	if err := db.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > DefaultLoadHistoryLimit {
		limit = DefaultLoadHistoryLimit
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, dir, records, issues, loaded_unix
		FROM action_loads
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ActionLoad, 0, limit)
	for rows.Next() {
		var load ActionLoad
		var loadedUnix int64
		if err := rows.Scan(&load.ID, &load.Dir, &load.Records, &load.Issues, &loadedUnix); err != nil {
			return nil, err
		}
		load.LoadedAt = time.Unix(loadedUnix, 0).UTC()
		out = append(out, load)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
