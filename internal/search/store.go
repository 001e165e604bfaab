package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

type Store struct {
	db *sql.DB

	mu         sync.RWMutex
	vecEnabled bool
}

var ErrStoreNotReady = errors.New("search store is not initialized")

const (
	defaultSearchLimit       = 5
	defaultDistanceThreshold = 0.85
	sqliteVecDimensions      = 768
)

var sqliteVecAutoOnce sync.Once

// Entry is one indexed action query.
type Entry struct {
	Dir        string
	FileNumber int
	Query      string
}

func (e Entry) ID() string {
	return e.Dir + ":" + strconv.Itoa(e.FileNumber)
}

type Hit struct {
	FileNumber int
	Query      string
	Distance   float64
}

func enableSQLiteVec() {
	sqliteVecAutoOnce.Do(func() {
		sqlite_vec.Auto()
	})
}

func (s *Store) isVecEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vecEnabled
}

func (s *Store) setVecEnabled(enabled bool) {
	s.mu.Lock()
	s.vecEnabled = enabled
	s.mu.Unlock()
}

func NewStore(dbPath string) (*Store, error) {
	enableSQLiteVec()

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open search store %q: %w", dbPath, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect search store %q: %w", dbPath, err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS query_vectors (
		rowid INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT UNIQUE,
		dir TEXT NOT NULL,
		file_number INTEGER NOT NULL,
		query TEXT NOT NULL,
		embedding TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_query_vectors_dir ON query_vectors(dir);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize search schema: %w", err)
	}

	store := &Store{db: db}
	// Partitioned by dir so the KNN only ranks one session's queries, and
	// cosine so distances match searchFallback.
	vecSchema := fmt.Sprintf(
		"CREATE VIRTUAL TABLE IF NOT EXISTS vec_queries USING vec0(dir text partition key, embedding float[%d] distance_metric=cosine);",
		sqliteVecDimensions,
	)
	if _, err := db.Exec(vecSchema); err == nil {
		store.setVecEnabled(true)
	}
	return store, nil
}

func normalizeContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func (s *Store) EnsureReady(ctx context.Context) error {
	ctx = normalizeContext(ctx)
	if s == nil || s.db == nil {
		return ErrStoreNotReady
	}
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("search store connection is not ready: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Save(ctx context.Context, entry Entry, embedding []float32) error {
	ctx = normalizeContext(ctx)
	if err := s.EnsureReady(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(entry.Dir) == "" {
		return errors.New("entry dir is required")
	}
	if len(embedding) == 0 {
		return errors.New("embedding is required")
	}

	embJSON, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}

	if s.isVecEnabled() && len(embedding) == sqliteVecDimensions {
		if err := s.saveWithVec(ctx, entry, embedding, string(embJSON)); err == nil {
			return nil
		}
		s.setVecEnabled(false)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO query_vectors (id, dir, file_number, query, embedding) VALUES (?, ?, ?, ?, ?)",
		entry.ID(), entry.Dir, entry.FileNumber, entry.Query, string(embJSON),
	)
	return err
}

func (s *Store) saveWithVec(ctx context.Context, entry Entry, embedding []float32, embJSON string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var existing sql.NullInt64
	_ = tx.QueryRowContext(ctx, "SELECT rowid FROM query_vectors WHERE id = ?", entry.ID()).Scan(&existing)
	if existing.Valid {
		if _, err := tx.ExecContext(ctx, "DELETE FROM vec_queries WHERE rowid = ?", existing.Int64); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM query_vectors WHERE rowid = ?", existing.Int64); err != nil {
			return err
		}
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO query_vectors (id, dir, file_number, query, embedding) VALUES (?, ?, ?, ?, ?)",
		entry.ID(), entry.Dir, entry.FileNumber, entry.Query, embJSON,
	)
	if err != nil {
		return err
	}
	rowid, err := res.LastInsertId()
	if err != nil {
		return err
	}
	blob, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return fmt.Errorf("serialize vector: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO vec_queries (rowid, dir, embedding) VALUES (?, ?, ?)", rowid, entry.Dir, blob); err != nil {
		return err
	}
	return tx.Commit()
}

// ClearDir drops every entry indexed for dir.
func (s *Store) ClearDir(ctx context.Context, dir string) error {
	ctx = normalizeContext(ctx)
	if err := s.EnsureReady(ctx); err != nil {
		return err
	}

	if s.isVecEnabled() {
		if err := s.clearDirWithVec(ctx, dir); err == nil {
			return nil
		}
		s.setVecEnabled(false)
	}
	_, err := s.db.ExecContext(ctx, "DELETE FROM query_vectors WHERE dir = ?", dir)
	return err
}

func (s *Store) clearDirWithVec(ctx context.Context, dir string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM vec_queries WHERE dir = ?
	`, dir); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM query_vectors WHERE dir = ?", dir); err != nil {
		return err
	}
	return tx.Commit()
}

// Search returns the entries of dir closest to embedding, nearest first.
func (s *Store) Search(ctx context.Context, dir string, embedding []float32, limit int) ([]Hit, error) {
	ctx = normalizeContext(ctx)
	if err := s.EnsureReady(ctx); err != nil {
		return nil, err
	}
	if len(embedding) == 0 {
		return nil, errors.New("query embedding is required")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	if s.isVecEnabled() && len(embedding) == sqliteVecDimensions {
		if hits, err := s.searchWithVec(ctx, dir, embedding, limit); err == nil {
			return hits, nil
		}
		s.setVecEnabled(false)
	}
	return s.searchFallback(ctx, dir, embedding, limit)
}

func (s *Store) searchWithVec(ctx context.Context, dir string, embedding []float32, limit int) ([]Hit, error) {
	blob, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return nil, fmt.Errorf("serialize query vector: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
	SELECT q.file_number, q.query, v.distance
	FROM (
		SELECT rowid, distance
		FROM vec_queries
		WHERE embedding MATCH ? AND k = ? AND dir = ?
	) v
	JOIN query_vectors q ON q.rowid = v.rowid
	WHERE v.distance <= ?
	ORDER BY v.distance ASC
	`, blob, limit, dir, defaultDistanceThreshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hits := make([]Hit, 0, limit)
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.FileNumber, &h.Query, &h.Distance); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return hits, nil
}

func (s *Store) searchFallback(ctx context.Context, dir string, embedding []float32, limit int) ([]Hit, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT file_number, query, embedding FROM query_vectors WHERE dir = ?", dir)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hits := make([]Hit, 0, limit)
	for rows.Next() {
		var h Hit
		var embeddingJSON string
		if err := rows.Scan(&h.FileNumber, &h.Query, &embeddingJSON); err != nil {
			return nil, err
		}
		var candidate []float32
		if err := json.Unmarshal([]byte(embeddingJSON), &candidate); err != nil {
			return nil, fmt.Errorf("decode embedding for action %d: %w", h.FileNumber, err)
		}
		distance, err := cosineDistance(embedding, candidate)
		if err != nil || distance > defaultDistanceThreshold {
			continue
		}
		h.Distance = distance
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func cosineDistance(a, b []float32) (float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, errors.New("embedding cannot be empty")
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("embedding length mismatch: query=%d candidate=%d", len(a), len(b))
	}

	var dot, aNorm, bNorm float64
	for idx := range a {
		av := float64(a[idx])
		bv := float64(b[idx])
		dot += av * bv
		aNorm += av * av
		bNorm += bv * bv
	}
	if aNorm == 0 || bNorm == 0 {
		return 1, nil
	}

	similarity := dot / (math.Sqrt(aNorm) * math.Sqrt(bNorm))
	similarity = math.Max(-1, math.Min(1, similarity))
	return 1 - similarity, nil
}
