package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/conformer/internal/logging"
	"github.com/aretw0/conformer/internal/monitor"
	"github.com/aretw0/conformer/internal/presentation/tui"
	"github.com/aretw0/conformer/pkg/adapters/file"
	"github.com/aretw0/conformer/pkg/adapters/memory"
	"github.com/aretw0/conformer/pkg/adapters/redis"
	"github.com/aretw0/conformer/pkg/domain"
	"github.com/aretw0/conformer/pkg/persistence/middleware"
	"github.com/aretw0/conformer/pkg/ports"
	"github.com/aretw0/conformer/pkg/session"
)

// createLogger configures the application logger.
// In debug mode, it writes to Stderr (to separate from the Stdout protocol echo).
func createLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.NewNop()
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionStart: func(ctx context.Context, e *domain.SessionEvent) {
			logger.Debug("Session Start", "method", e.Method, "build_dir", e.BuildDir)
		},
		OnSessionEnd: func(ctx context.Context, e *domain.SessionEvent) {
			if e.Err != nil {
				logger.Debug("Session End (Error)", "method", e.Method, "err", e.Err)
			} else {
				logger.Debug("Session End (Success)", "method", e.Method)
			}
		},
		OnStep: func(ctx context.Context, e *domain.StepEvent) {
			logger.Debug("Step", "method", e.Method, "step", e.Index, "kind", e.Kind)
		},
		OnSend: func(ctx context.Context, e *domain.MessageEvent) {
			if e.Raw != "" {
				logger.Debug("sent", "method", e.Method, "raw", e.Raw)
				return
			}
			logger.Debug("sent", "method", e.Method, "msg", e.Message.String())
		},
	}
}

// openStore returns the configured report store and a function releasing it.
// The store is nil when reports are not persisted.
func openStore(opts RunOptions) (ports.ReportStore, func() error, error) {
	noop := func() error { return nil }
	switch opts.Store {
	case StoreMemory:
		return memory.NewStore(), noop, nil
	case StoreFile:
		return file.New(opts.ReportDir), noop, nil
	case StoreRedis:
		store, err := redis.NewFromURL(opts.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", domain.ErrUsage, err)
		}
		return store, store.Close, nil
	}
	return nil, noop, nil
}

// app holds everything one invocation of the run command shares between
// iterations.
type app struct {
	opts    RunOptions
	out     io.Writer
	errOut  io.Writer
	logger  *slog.Logger
	console *tui.Console
	store   ports.ReportStore
	monitor *monitor.Server

	// launcher replaces the build tool launcher when set.
	launcher session.Launcher

	closeStore func() error
}

func newApp(opts RunOptions, out io.Writer) (*app, error) {
	logger := createLogger(opts.Debug)

	store, closeStore, err := openStore(opts)
	if err != nil {
		return nil, err
	}

	a := &app{
		opts:   opts,
		out:    out,
		errOut: os.Stderr,
		logger: logger,
		console: tui.NewConsole(out,
			tui.WithQuiet(opts.Quiet),
			tui.WithMethodPrefix(opts.Parallel),
		),
		store:      store,
		closeStore: closeStore,
	}

	if opts.Monitor != "" && a.store == nil {
		a.store = memory.NewStore()
	}
	if a.store != nil && opts.RedactPaths {
		a.store = middleware.Chain(a.store, middleware.NewPathRedactMiddleware(map[string]string{
			opts.Source: "$SOURCE",
			opts.Build:  "$BUILD",
		}))
	}
	if opts.Monitor != "" {
		a.monitor = monitor.New(monitor.WithStore(a.store), monitor.WithLogger(logger))
	}
	return a, nil
}

func (a *app) hooks() domain.LifecycleHooks {
	hooks := a.console.Hooks().Merge(createDebugHooks(a.logger))
	if a.monitor != nil {
		hooks = hooks.Merge(a.monitor.Hooks())
	}
	return hooks
}

// record persists a finished report. It runs even when ctx was cancelled.
func (a *app) record(ctx context.Context, report *domain.RunReport) {
	ctx = context.WithoutCancel(ctx)
	var err error
	switch {
	case a.monitor != nil:
		err = a.monitor.Record(ctx, report)
	case a.store != nil:
		err = a.store.Save(ctx, report)
	default:
		return
	}
	if err != nil {
		a.logger.Error("failed to save report", "id", report.ID, "err", err)
		a.console.System("Failed to save report '%s': %v", report.ID, err)
		return
	}
	a.logger.Info("report saved", "id", report.ID)
}

func (a *app) close() {
	if err := a.closeStore(); err != nil {
		a.logger.Warn("failed to close report store", "err", err)
	}
}
