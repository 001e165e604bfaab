package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	DefaultOllamaURL = "http://localhost:11434"
	DefaultModel     = "nomic-embed-text"
	DefaultBatchSize = 32
)

var (
	ErrEmbedderNotReady = errors.New("search embedder is not initialized")
	ErrModelNotPulled   = errors.New("embedding model is not available in ollama")
)

// Embedder turns action queries into vectors with Ollama's batch embed
// endpoint. One request covers up to BatchSize queries.
type Embedder struct {
	URL       string
	Model     string
	BatchSize int
	Client    *http.Client
}

func NewEmbedder(url, model string) *Embedder {
	if strings.TrimSpace(url) == "" {
		url = DefaultOllamaURL
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	return &Embedder{
		URL:       strings.TrimRight(url, "/"),
		Model:     model,
		BatchSize: DefaultBatchSize,
		Client:    http.DefaultClient,
	}
}

func (e *Embedder) check() error {
	switch {
	case e == nil:
		return ErrEmbedderNotReady
	case strings.TrimSpace(e.URL) == "":
		return errors.New("search embedder URL is empty")
	case strings.TrimSpace(e.Model) == "":
		return errors.New("search embedder model is empty")
	}
	return nil
}

func (e *Embedder) httpClient() *http.Client {
	if e.Client != nil {
		return e.Client
	}
	return http.DefaultClient
}

// do sends one request and decodes a 200 response into out.
func (e *Embedder) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, e.URL+path, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("ollama is unreachable at %s: %w", e.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ollama %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode ollama %s response: %w", path, err)
	}
	return nil
}

// EnsureReady checks that Ollama answers and already has the embedding
// model, so indexing does not stall on an implicit pull.
func (e *Embedder) EnsureReady(ctx context.Context) error {
	if err := e.check(); err != nil {
		return err
	}
	ctx = normalizeContext(ctx)

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := e.do(ctx, http.MethodGet, "/api/tags", nil, &tags); err != nil {
		return err
	}
	for _, m := range tags.Models {
		if sameModel(m.Name, e.Model) {
			return nil
		}
	}
	return fmt.Errorf("%w: run `ollama pull %s`", ErrModelNotPulled, e.Model)
}

// sameModel treats "name" and "name:latest" as the same tag.
func sameModel(have, want string) bool {
	trim := func(s string) string { return strings.TrimSuffix(strings.TrimSpace(s), ":latest") }
	return trim(have) == trim(want)
}

// EmbedQueries returns one vector per query, in order.
func (e *Embedder) EmbedQueries(ctx context.Context, queries []string) ([][]float32, error) {
	if err := e.check(); err != nil {
		return nil, err
	}
	ctx = normalizeContext(ctx)
	for i, q := range queries {
		if strings.TrimSpace(q) == "" {
			return nil, fmt.Errorf("query %d is empty", i)
		}
	}
	size := e.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	out := make([][]float32, 0, len(queries))
	for start := 0; start < len(queries); start += size {
		batch := queries[start:min(start+size, len(queries))]
		var res struct {
			Embeddings [][]float32 `json:"embeddings"`
		}
		req := map[string]any{"model": e.Model, "input": batch, "truncate": true}
		if err := e.do(ctx, http.MethodPost, "/api/embed", req, &res); err != nil {
			return nil, err
		}
		if len(res.Embeddings) != len(batch) {
			return nil, fmt.Errorf("ollama returned %d embeddings for %d queries", len(res.Embeddings), len(batch))
		}
		for i, vec := range res.Embeddings {
			if len(vec) == 0 {
				return nil, fmt.Errorf("ollama returned an empty embedding for query %d", start+i)
			}
		}
		out = append(out, res.Embeddings...)
	}
	return out, nil
}
