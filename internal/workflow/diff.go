package workflow

import (
	"context"
	"errors"
	"fmt"
)

// DiffRenderer turns an action response into diff text. Calls may overlap
// and may complete in any order.
type DiffRenderer interface {
	RenderDiff(ctx context.Context, response string) (string, error)
}

type DiffRendererFunc func(ctx context.Context, response string) (string, error)

func (f DiffRendererFunc) RenderDiff(ctx context.Context, response string) (string, error) {
	return f(ctx, response)
}

var (
	ErrRendererNotReady = errors.New("diff renderer is not configured")
	ErrDiffTimeout      = errors.New("diff rendering timed out")
	ErrDiffCancelled    = errors.New("diff rendering cancelled")
)

// normalizeDiffErr folds context errors into the diff sentinels so hosts
// can report them without caring which layer noticed first.
func normalizeDiffErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrDiffTimeout), errors.Is(err, ErrDiffCancelled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrDiffTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", ErrDiffCancelled, err)
	}
	return err
}

// DiffRequest is issued by the sequencer when a step enters the diff phase.
type DiffRequest struct {
	Owner      int
	Generation uint64
	Response   string
}

type DiffResult struct {
	Owner      int
	Generation uint64
	Text       string
	Err        error
}

// Materialize runs the renderer for req. Renderer panics are reported as
// errors so a broken collaborator cannot take the host down.
func Materialize(ctx context.Context, r DiffRenderer, req DiffRequest) (res DiffResult) {
	res = DiffResult{Owner: req.Owner, Generation: req.Generation}
	if r == nil {
		res.Err = ErrRendererNotReady
		return res
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer func() {
		if p := recover(); p != nil {
			res.Text = ""
			res.Err = fmt.Errorf("diff renderer panicked: %v", p)
		}
	}()
	if err := ctx.Err(); err != nil {
		res.Err = normalizeDiffErr(err)
		return res
	}
	res.Text, res.Err = r.RenderDiff(ctx, req.Response)
	if res.Err != nil {
		res.Text = ""
		res.Err = normalizeDiffErr(res.Err)
	}
	return res
}
