package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aretw0/conformer/internal/logging"
	"github.com/aretw0/conformer/pkg/domain"
	"github.com/aretw0/conformer/pkg/normalize"
	"github.com/aretw0/conformer/pkg/transport"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrNoStarter is returned by Run when no Starter was configured.
var ErrNoStarter = errors.New("runner has no starter")

// Runner executes a script once per transport method.
type Runner struct {
	Starter  Starter
	Methods  []transport.Method
	BuildDir string
	Filter   normalize.Filter
	Mode     normalize.MatchMode

	Generator    string
	StepTimeout  time.Duration
	PauseTimeout time.Duration

	// KeepGoing continues with the next method after a failure.
	KeepGoing bool
	// Parallel runs every method at once in BuildDir/<method>.
	Parallel bool

	Hooks  domain.LifecycleHooks
	Logger *slog.Logger
}

// NewRunner creates a Runner. Without options it runs every supported
// method in exact match mode and fails fast.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		Methods: transport.Methods(),
		Mode:    normalize.MatchExact,
		Logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes script over every configured method and returns the report
// together with the first failure. A nil error means every method passed.
func (r *Runner) Run(ctx context.Context, script *domain.Script) (*domain.RunReport, error) {
	if r.Starter == nil {
		return nil, ErrNoStarter
	}
	if r.Logger == nil {
		r.Logger = logging.NewNop()
	}

	report := &domain.RunReport{
		ID:        uuid.NewString(),
		Script:    script.Name,
		Generator: r.Generator,
		StartedAt: time.Now(),
		Methods:   make([]domain.MethodResult, len(r.Methods)),
	}

	var err error
	if r.Parallel {
		err = r.runParallel(ctx, script, report)
	} else {
		err = r.runSequential(ctx, script, report)
	}
	report.EndedAt = time.Now()
	return report, err
}

func (r *Runner) runSequential(ctx context.Context, script *domain.Script, report *domain.RunReport) error {
	var firstErr error
	for idx, method := range r.Methods {
		if firstErr != nil && (!r.KeepGoing || ctx.Err() != nil) {
			report.Methods[idx] = skipped(method)
			continue
		}
		res, err := r.runMethod(ctx, script, method, r.BuildDir)
		report.Methods[idx] = res
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Runner) runParallel(ctx context.Context, script *domain.Script, report *domain.RunReport) error {
	g, gctx := errgroup.WithContext(ctx)
	if r.KeepGoing {
		g = &errgroup.Group{}
		gctx = ctx
	}

	errs := make([]error, len(r.Methods))
	for idx, method := range r.Methods {
		g.Go(func() error {
			dir := filepath.Join(r.BuildDir, method.String())
			res, err := r.runMethod(gctx, script, method, dir)
			// A sibling's failure cancelled this one; it did not fail itself.
			if err != nil && errors.Is(err, context.Canceled) && ctx.Err() == nil {
				res = skipped(method)
				err = nil
			}
			report.Methods[idx] = res
			errs[idx] = err
			return err
		})
	}
	groupErr := g.Wait()
	if !r.KeepGoing {
		return groupErr
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// runMethod owns one session from start to shutdown.
func (r *Runner) runMethod(ctx context.Context, script *domain.Script, method transport.Method, buildDir string) (res domain.MethodResult, err error) {
	res = domain.MethodResult{Method: method.String(), StartedAt: time.Now()}
	logger := r.Logger.With("method", method.String())

	if r.Hooks.OnSessionStart != nil {
		r.Hooks.OnSessionStart(ctx, &domain.SessionEvent{
			EventBase: domain.EventBase{Timestamp: res.StartedAt, Type: domain.EventSessionStart, Method: method.String()},
			BuildDir:  buildDir,
		})
	}
	defer func() {
		res.EndedAt = time.Now()
		res.ExitCode = domain.ExitCode(err)
		res.Status = domain.StatusPassed
		if err != nil {
			res.Status = domain.StatusFailed
			res.Error = err.Error()
			logger.Error("method failed", "err", err)
		} else {
			logger.Info("completed", "steps", res.Steps)
		}
		if r.Hooks.OnSessionEnd != nil {
			r.Hooks.OnSessionEnd(ctx, &domain.SessionEvent{
				EventBase: domain.EventBase{Timestamp: res.EndedAt, Type: domain.EventSessionEnd, Method: method.String()},
				BuildDir:  buildDir,
				Err:       err,
			})
		}
	}()

	conn, err := r.Starter.Start(ctx, method, buildDir)
	if err != nil {
		return res, fmt.Errorf("%s: %w", method, err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			logger.Warn("shutdown failed", "err", cerr)
		}
	}()

	interp := &Interpreter{
		Conn:         conn,
		Filter:       r.Filter,
		Method:       method.String(),
		Mode:         r.Mode,
		StepTimeout:  r.StepTimeout,
		PauseTimeout: r.PauseTimeout,
		Hooks:        r.Hooks,
		Logger:       logger,
	}
	stats, err := interp.Run(ctx, script)
	res.Steps = stats.Steps
	res.Received = stats.Received
	res.Ignored = stats.Ignored
	return res, err
}

func skipped(method transport.Method) domain.MethodResult {
	return domain.MethodResult{Method: method.String(), Status: domain.StatusSkipped}
}
