package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/yubzen/replay/internal/player"
	"github.com/yubzen/replay/internal/workflow"
)

type HeadlessOptions struct {
	// Out receives diff text when PrintDiffs is set.
	Out        io.Writer
	PrintDiffs bool
	// Watch keeps playback alive after the last step so directory changes
	// can extend it.
	Watch bool
}

type transition struct {
	file   int
	phase  workflow.SubPhase
	status workflow.Status
}

// RunHeadless plays p from the start and logs every transition until the
// workflow finishes or ctx is cancelled.
func RunHeadless(ctx context.Context, p *player.Player, logger *slog.Logger, opts HeadlessOptions) error {
	if p == nil {
		return player.ErrPlayerNotReady
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	if p.Snapshot().Empty() && !opts.Watch {
		return workflow.ErrNoSteps
	}
	if err := p.Start(ctx); err != nil {
		return err
	}
	defer p.Close()

	logger = logger.With("run_id", p.RunID)
	logger.Info("playback started", "steps", p.Snapshot().Steps)
	p.Play()

	var last transition
	seen := false
	diffReported := false
	stale := 0
	for {
		select {
		case <-ctx.Done():
			logger.Info("playback interrupted")
			return nil
		case <-p.Done:
			return nil
		case snap := <-p.Changes():
			if snap.Empty() {
				continue
			}
			cur := transition{file: snap.Current.FileNumber, phase: snap.SubPhase, status: snap.Status}
			if !seen || cur != last {
				if !seen || cur.file != last.file || cur.phase != last.phase {
					diffReported = false
				}
				logTransition(logger, snap)
				last, seen = cur, true
			}
			if snap.DiffReady() && !diffReported {
				diffReported = true
				reportDiff(logger, snap, opts)
			}
			if snap.StaleResults > stale {
				logger.Debug("discarded stale diff results", "total", snap.StaleResults)
				stale = snap.StaleResults
			}
			if snap.Status == workflow.StatusFinished && !opts.Watch {
				logger.Info("playback finished", "steps", snap.Steps)
				return nil
			}
		}
	}
}

func logTransition(logger *slog.Logger, snap workflow.Snapshot) {
	attrs := []any{
		"file", snap.Current.FileName(),
		"step", fmt.Sprintf("%d/%d", snap.StepIndex+1, snap.Steps),
		"phase", snap.SubPhase.String(),
		"status", snap.Status.String(),
	}
	switch snap.SubPhase {
	case workflow.PhaseFiles:
		attrs = append(attrs, "urls", len(snap.Current.URLs))
	case workflow.PhaseQuery:
		attrs = append(attrs, "query", previewQuery(snap.Current.Query))
	}
	logger.Info("transition", attrs...)
}

func reportDiff(logger *slog.Logger, snap workflow.Snapshot, opts HeadlessOptions) {
	name := snap.Current.FileName()
	switch {
	case snap.DiffFailed:
		logger.Warn("diff unavailable", "file", name, "err", snap.DiffError)
	case snap.DiffText == "":
		logger.Info("no code changes", "file", name)
	default:
		logger.Info("diff ready", "file", name, "lines", strings.Count(snap.DiffText, "\n")+1)
		if opts.PrintDiffs {
			fmt.Fprintf(opts.Out, "=== %s ===\n%s\n", name, strings.TrimRight(snap.DiffText, "\n"))
		}
	}
}
