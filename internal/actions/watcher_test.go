package actions

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReloadsOnNewAction(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "1_chat_action.yml", "query: one\n")

	results := make(chan LoadResult, 4)
	w := NewWatcher(dir, func(res LoadResult) { results <- res })
	w.Debounce = 50 * time.Millisecond
	w.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	defer func() {
		cancel()
		<-w.Done
	}()

	writeFile(t, dir, "2_chat_action.yml", "query: two\nresponse: commit-2\n")

	deadline := time.After(3 * time.Second)
	for {
		select {
		case res := <-results:
			rec, ok := Find(res.Records, 2)
			if !ok || rec.Response != "commit-2" {
				continue
			}
			assert.Len(t, res.Records, 2)
			return
		case <-deadline:
			t.Fatal("watcher did not report the new action")
		}
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	results := make(chan LoadResult, 4)
	w := NewWatcher(dir, func(res LoadResult) { results <- res })
	w.Debounce = 50 * time.Millisecond
	w.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	defer func() {
		cancel()
		<-w.Done
	}()

	writeFile(t, dir, "notes.txt", "scratch")

	select {
	case res := <-results:
		t.Fatalf("unexpected reload: %+v", res)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherRequiresCallback(t *testing.T) {
	t.Parallel()

	w := NewWatcher(t.TempDir(), nil)
	assert.ErrorIs(t, w.Start(context.Background()), ErrWatcherNotReady)

	var nilWatcher *Watcher
	assert.ErrorIs(t, nilWatcher.Start(context.Background()), ErrWatcherNotReady)
}
