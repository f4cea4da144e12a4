package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/conformer"
	"github.com/aretw0/conformer/internal/presentation/tui"
	"github.com/aretw0/conformer/pkg/domain"
	"github.com/aretw0/conformer/pkg/script"
)

// Execute handles the 'run' command logic, dispatching to a single run or
// watch mode. The returned error maps to the exit code via domain.ExitCode.
func Execute(ctx context.Context, opts RunOptions, out io.Writer) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	sigCtx := NewSignalContext(ctx)
	defer sigCtx.Cancel()

	a, err := newApp(opts, out)
	if err != nil {
		return err
	}
	defer a.close()

	return a.execute(sigCtx)
}

func (a *app) execute(ctx *SignalContext) error {
	if a.monitor != nil {
		if err := a.startMonitor(ctx); err != nil {
			return err
		}
	}

	if a.opts.Watch {
		return a.watch(ctx)
	}

	_, err := a.runOnce(ctx)
	if err != nil && errors.Is(err, context.Canceled) {
		if sig := ctx.Signal(); sig != nil {
			a.console.System("Interrupted (%s).", sig)
		}
	}
	return err
}

// startMonitor serves the monitor until ctx is done and returns once it
// listens.
func (a *app) startMonitor(ctx context.Context) error {
	ready := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.monitor.ListenAndServe(ctx, a.opts.Monitor, ready)
	}()
	select {
	case addr := <-ready:
		a.console.System("Monitor at 'http://%s'.", addr)
		return nil
	case err := <-errCh:
		return fmt.Errorf("%w: monitor: %v", domain.ErrUsage, err)
	}
}

// runOnce loads the script and runs it over every configured method.
func (a *app) runOnce(ctx context.Context) (*domain.RunReport, error) {
	s, err := script.Load(a.opts.Script)
	if err != nil {
		a.console.System("Invalid script: %v", err)
		return nil, err
	}

	cfg := a.opts.Config()
	cfg.Logger = a.logger
	cfg.Launcher = a.launcher
	cfg.Hooks = a.hooks()
	if a.opts.ServerOutput {
		cfg.ServerOutput = a.errOut
	}

	methods := make([]string, 0, len(cfg.Methods))
	for _, m := range cfg.Methods {
		methods = append(methods, m.String())
	}
	tui.PrintBanner(a.out, conformer.Version, tui.RunInfo{
		Script:    s.Name,
		SourceDir: cfg.SourceDir,
		BuildDir:  conformer.BuildDir(cfg.BuildBase, s.Name),
		Generator: cfg.Generator,
		Methods:   methods,
	})

	report, runErr := conformer.Run(ctx, cfg, s)
	if report != nil {
		a.record(ctx, report)
		a.console.Summary(report)
	}
	return report, runErr
}
