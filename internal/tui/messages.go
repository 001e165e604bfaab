package tui

import (
	"github.com/yubzen/replay/internal/actions"
	"github.com/yubzen/replay/internal/workflow"
)

// PlaybackTickMsg is one cadence tick. Epoch identifies the timer that
// produced it; ticks from a disarmed timer are ignored.
type PlaybackTickMsg struct {
	Epoch uint64
}

// DiffResolvedMsg carries a finished diff materialization back to the
// update loop.
type DiffResolvedMsg struct {
	Result workflow.DiffResult
}

// RecordsLoadedMsg is sent when the action directory has been (re)loaded.
type RecordsLoadedMsg struct {
	Records []workflow.ActionRecord
	Issues  []actions.LoadIssue
}
