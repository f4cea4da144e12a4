package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aretw0/conformer/pkg/domain"
	"github.com/fsnotify/fsnotify"
)

// settleDelay lets editors finish writing before a change is reported.
const settleDelay = 100 * time.Millisecond

// watch runs the script and runs it again after every change to the script
// file, until ctx is done. A signal ends watch mode without an error.
func (a *app) watch(ctx *SignalContext) error {
	changes, stop, err := watchFile(ctx, a.opts.Script, settleDelay, a.logger)
	if err != nil {
		return err
	}
	defer stop()

	name := filepath.Base(a.opts.Script)
	a.logger.Info("Starting Watcher", "path", a.opts.Script)
	a.console.System("Watching '%s'.", name)

	for {
		if !a.watchIteration(ctx, changes, name) {
			a.logger.Info("Stopping watcher (signal received)", "signal", ctx.Signal())
			a.console.System("Stopped watching.")
			return nil
		}
		a.logger.Info("Watcher restarting")
	}
}

// watchIteration runs once and reports whether to run again.
func (a *app) watchIteration(ctx context.Context, changes <-chan struct{}, name string) bool {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := a.runOnce(runCtx)
		done <- err
	}()

	select {
	case <-ctx.Done():
		cancel()
		<-done
		return false
	case <-changes:
		cancel()
		<-done
		a.console.System("Change detected in '%s'.", name)
		return true
	case err := <-done:
		if err != nil {
			a.logger.Error("run failed", "err", err, "exit_code", domain.ExitCode(err))
		}
	}

	a.console.System("Waiting for changes...")
	select {
	case <-ctx.Done():
		return false
	case <-changes:
		a.console.System("Change detected in '%s'.", name)
		return true
	}
}

// watchFile reports changes to path. Events for other files in the same
// directory are ignored, and bursts are coalesced into one notification
// once no event arrived for settle.
func watchFile(ctx context.Context, path string, settle time.Duration, logger *slog.Logger) (<-chan struct{}, func() error, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start watcher: %w", err)
	}
	// Watching the directory survives editors that replace the file.
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}

	name := filepath.Base(path)
	changes := make(chan struct{}, 1)
	go func() {
		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != name || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				logger.Debug("script changed", "event", ev.String())
				if timer == nil {
					timer = time.NewTimer(settle)
				} else {
					timer.Reset(settle)
				}
				fire = timer.C
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("watcher error", "err", err)
			case <-fire:
				fire = nil
				select {
				case changes <- struct{}{}:
				default:
				}
			}
		}
	}()
	return changes, w.Close, nil
}
