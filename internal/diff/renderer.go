package diff

import (
	"context"
	"fmt"
	"strings"

	"github.com/yubzen/replay/internal/workflow"
)

var ErrRendererNotReady = workflow.ErrRendererNotReady

// Renderer turns an action response into unified diff text.
type Renderer interface {
	RenderDiff(ctx context.Context, response string) (string, error)
}

const (
	KindGit  = "git"
	KindHTTP = "http"
)

type Options struct {
	Kind    string
	RepoDir string
	BaseURL string
	// Token is consulted on every HTTP request so a credential stored while
	// the console is running takes effect without a restart.
	Token func() (string, error)
}

func New(opts Options) (Renderer, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Kind)) {
	case "", KindGit:
		return NewGitRenderer(opts.RepoDir), nil
	case KindHTTP:
		return NewHTTPRenderer(opts.BaseURL, opts.Token), nil
	default:
		return nil, fmt.Errorf("unknown diff renderer %q", opts.Kind)
	}
}
