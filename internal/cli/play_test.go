package cli

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yubzen/replay/internal/player"
	"github.com/yubzen/replay/internal/workflow"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunHeadlessPlaysToFinish(t *testing.T) {
	records := []workflow.ActionRecord{
		{FileNumber: 2, Query: "second", Response: "commit-2"},
		{FileNumber: 1, Query: "first"},
	}
	renderer := workflow.DiffRendererFunc(func(ctx context.Context, response string) (string, error) {
		return "+" + response, nil
	})
	p := player.New(records, renderer, player.Options{
		Cadence: 30 * time.Millisecond,
		Logger:  NewLogger(nil, false),
	})

	var logs, diffs lockedBuffer
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := RunHeadless(ctx, p, NewLogger(&logs, true), HeadlessOptions{Out: &diffs, PrintDiffs: true})
	require.NoError(t, err)
	require.NoError(t, ctx.Err(), "playback did not finish in time")

	out := logs.String()
	assert.Contains(t, out, "playback started")
	assert.Contains(t, out, "1_chat_action.yml")
	assert.Contains(t, out, "2_chat_action.yml")
	assert.Contains(t, out, "playback finished")
	assert.Equal(t, workflow.StatusFinished, p.Snapshot().Status)
	assert.Contains(t, diffs.String(), "+commit-2")
}

func TestRunHeadlessEmptyWorkflow(t *testing.T) {
	p := player.New(nil, nil, player.Options{Logger: NewLogger(nil, false)})

	err := RunHeadless(context.Background(), p, NewLogger(nil, false), HeadlessOptions{})
	assert.True(t, errors.Is(err, workflow.ErrNoSteps))
}

func TestRunHeadlessStopsOnCancel(t *testing.T) {
	p := player.New([]workflow.ActionRecord{{FileNumber: 1}}, nil, player.Options{
		Cadence: time.Hour,
		Logger:  NewLogger(nil, false),
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- RunHeadless(ctx, p, NewLogger(nil, false), HeadlessOptions{})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("RunHeadless did not return after cancel")
	}
}
