package diff

import (
	"context"
	"log/slog"
	"strings"
)

// Cache is the persistence a CachedRenderer reads through. *state.DB
// satisfies it.
type Cache interface {
	GetCachedDiff(ctx context.Context, response string) (string, bool, error)
	PutCachedDiff(ctx context.Context, response, diff string) error
}

// CachedRenderer serves repeated responses from Cache. Cache errors degrade
// to a direct render; render failures are never stored.
type CachedRenderer struct {
	Inner  Renderer
	Cache  Cache
	Logger *slog.Logger
}

func NewCachedRenderer(inner Renderer, cache Cache, logger *slog.Logger) *CachedRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedRenderer{Inner: inner, Cache: cache, Logger: logger}
}

func (c *CachedRenderer) logger() *slog.Logger {
	if c != nil && c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *CachedRenderer) RenderDiff(ctx context.Context, response string) (string, error) {
	if c == nil || c.Inner == nil {
		return "", ErrRendererNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(response) == "" {
		return "", nil
	}
	if c.Cache == nil {
		return c.Inner.RenderDiff(ctx, response)
	}

	if text, ok, err := c.Cache.GetCachedDiff(ctx, response); err != nil {
		c.logger().Warn("diff cache lookup failed", "err", err)
	} else if ok {
		c.logger().Debug("diff cache hit", "bytes", len(text))
		return text, nil
	}

	text, err := c.Inner.RenderDiff(ctx, response)
	if err != nil {
		return "", err
	}
	if err := c.Cache.PutCachedDiff(ctx, response, text); err != nil {
		c.logger().Warn("diff cache store failed", "err", err)
	}
	return text, nil
}
