package runner

import (
	"log/slog"
	"time"

	"github.com/aretw0/conformer/pkg/domain"
	"github.com/aretw0/conformer/pkg/normalize"
	"github.com/aretw0/conformer/pkg/transport"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithStarter configures how servers are launched. Required.
func WithStarter(s Starter) Option {
	return func(r *Runner) {
		r.Starter = s
	}
}

// WithMethods restricts the transport methods. Defaults to transport.Methods().
func WithMethods(methods ...transport.Method) Option {
	return func(r *Runner) {
		r.Methods = methods
	}
}

// WithBuildDir sets the build directory owned by the run.
func WithBuildDir(dir string) Option {
	return func(r *Runner) {
		r.BuildDir = dir
	}
}

// WithSourceDir sets the prefix stripped from backtrace paths.
func WithSourceDir(dir string) Option {
	return func(r *Runner) {
		r.Filter = normalize.NewFilter(dir)
	}
}

// WithGenerator records the generator name in reports.
func WithGenerator(generator string) Option {
	return func(r *Runner) {
		r.Generator = generator
	}
}

// WithMatchMode selects how expected responses are compared.
func WithMatchMode(mode normalize.MatchMode) Option {
	return func(r *Runner) {
		r.Mode = mode
	}
}

// WithStepTimeout bounds the wait for each expected response.
func WithStepTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.StepTimeout = d
	}
}

// WithPauseTimeout bounds each waitForPause step.
func WithPauseTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.PauseTimeout = d
	}
}

// WithKeepGoing runs the remaining methods after a failure.
func WithKeepGoing(keepGoing bool) Option {
	return func(r *Runner) {
		r.KeepGoing = keepGoing
	}
}

// WithParallel runs all methods concurrently, each in its own build
// sub-directory.
func WithParallel(parallel bool) Option {
	return func(r *Runner) {
		r.Parallel = parallel
	}
}

// WithHooks adds lifecycle hooks. Repeated calls are merged.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Runner) {
		r.Hooks = r.Hooks.Merge(hooks)
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}
