package search

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/yubzen/replay/internal/redact"
	"github.com/yubzen/replay/internal/workflow"
)

// Vectorizer embeds a batch of queries, returning one vector per query in
// order. *Embedder satisfies it.
type Vectorizer interface {
	EmbedQueries(ctx context.Context, queries []string) ([][]float32, error)
}

type Index struct {
	Store    *Store
	Embedder Vectorizer
}

var ErrIndexNotReady = errors.New("search index is not initialized")

func NewIndex(store *Store, embedder Vectorizer) *Index {
	return &Index{Store: store, Embedder: embedder}
}

func (ix *Index) ensureDependencies(ctx context.Context) error {
	if ix == nil {
		return ErrIndexNotReady
	}
	if err := ix.Store.EnsureReady(ctx); err != nil {
		return fmt.Errorf("search store not ready: %w", err)
	}
	if ix.Embedder == nil {
		return ErrEmbedderNotReady
	}
	if e, ok := ix.Embedder.(*Embedder); ok {
		healthCtx := normalizeContext(ctx)
		if _, hasDeadline := healthCtx.Deadline(); !hasDeadline {
			var cancel context.CancelFunc
			healthCtx, cancel = context.WithTimeout(healthCtx, 5*time.Second)
			defer cancel()
		}
		if err := e.EnsureReady(healthCtx); err != nil {
			return fmt.Errorf("search embedder not ready: %w", err)
		}
	}
	return nil
}

func dirKey(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return filepath.Clean(dir)
}

// Index replaces the entries for dir with the redacted queries of records
// and returns how many were embedded.
func (ix *Index) Index(ctx context.Context, dir string, records []workflow.ActionRecord) (int, error) {
	ctx = normalizeContext(ctx)
	if err := ix.ensureDependencies(ctx); err != nil {
		return 0, err
	}
	key := dirKey(dir)
	if err := ix.Store.ClearDir(ctx, key); err != nil {
		return 0, fmt.Errorf("clear search entries: %w", err)
	}

	var entries []Entry
	var queries []string
	for _, rec := range records {
		query := strings.TrimSpace(redact.Clean(rec.Query))
		if query == "" {
			continue
		}
		entries = append(entries, Entry{Dir: key, FileNumber: rec.FileNumber, Query: query})
		queries = append(queries, query)
	}
	if len(queries) == 0 {
		return 0, nil
	}

	vecs, err := ix.Embedder.EmbedQueries(ctx, queries)
	if err != nil {
		return 0, fmt.Errorf("embed action queries: %w", err)
	}
	if len(vecs) != len(entries) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d queries", len(vecs), len(entries))
	}
	for i, entry := range entries {
		if err := ix.Store.Save(ctx, entry, vecs[i]); err != nil {
			return i, fmt.Errorf("save action %d: %w", entry.FileNumber, err)
		}
	}
	return len(entries), nil
}

func (ix *Index) Search(ctx context.Context, dir, text string, limit int) ([]Hit, error) {
	ctx = normalizeContext(ctx)
	if err := ix.ensureDependencies(ctx); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(redact.Clean(text))
	if text == "" {
		return nil, errors.New("search text is empty")
	}
	vecs, err := ix.Embedder.EmbedQueries(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed search text: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for the search text", len(vecs))
	}
	return ix.Store.Search(ctx, dirKey(dir), vecs[0], limit)
}
