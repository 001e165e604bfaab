package actions

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 500 * time.Millisecond

var ErrWatcherNotReady = errors.New("actions watcher is not initialized")

// Watcher reloads an actions directory after changes settle and hands the
// result to OnChange.
type Watcher struct {
	Dir      string
	Debounce time.Duration
	OnChange func(LoadResult)
	Logger   *slog.Logger
	Done     chan struct{}
}

func NewWatcher(dir string, onChange func(LoadResult)) *Watcher {
	return &Watcher{
		Dir:      dir,
		Debounce: DefaultDebounce,
		OnChange: onChange,
		Logger:   slog.Default(),
		Done:     make(chan struct{}),
	}
}

func (w *Watcher) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}

func (w *Watcher) Start(ctx context.Context) error {
	if w == nil || w.OnChange == nil || w.Done == nil {
		return ErrWatcherNotReady
	}
	if strings.TrimSpace(w.Dir) == "" {
		return errors.New("actions watcher directory is empty")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.Dir); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		defer close(w.Done)

		debounceTimer := time.NewTimer(debounce)
		if !debounceTimer.Stop() {
			select {
			case <-debounceTimer.C:
			default:
			}
		}
		defer debounceTimer.Stop()
		dirty := false

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !IsActionFile(event.Name) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				dirty = true
				if !debounceTimer.Stop() {
					select {
					case <-debounceTimer.C:
					default:
					}
				}
				debounceTimer.Reset(debounce)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				w.logger().Warn("actions watcher error", "dir", w.Dir, "error", err)

			case <-debounceTimer.C:
				if !dirty {
					continue
				}
				dirty = false
				res, err := LoadDir(w.Dir)
				if err != nil {
					w.logger().Warn("reload actions failed", "dir", w.Dir, "error", err)
					continue
				}
				for _, issue := range res.Issues {
					w.logger().Warn("skipping chat action", "path", issue.Path, "error", issue.Err)
				}
				w.OnChange(res)
			}
		}
	}()

	return nil
}
