package conformer

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/aretw0/conformer/pkg/domain"
	"github.com/aretw0/conformer/pkg/normalize"
	"github.com/aretw0/conformer/pkg/runner"
	"github.com/aretw0/conformer/pkg/session"
	"github.com/aretw0/conformer/pkg/transport"
)

// DefaultProjectSubdir is the project below the source directory that the
// server is pointed at.
const DefaultProjectSubdir = "buildsystem1"

// Config is the high-level description of a conformance run.
type Config struct {
	// Command is the build tool executable.
	Command string
	// SourceDir holds the project; backtrace paths are reported relative to it.
	SourceDir string
	// BuildBase is the parent of the per-script build directory.
	BuildBase string
	Generator string
	// ProjectSubdir defaults to DefaultProjectSubdir.
	ProjectSubdir string

	// Methods defaults to every supported transport.
	Methods []transport.Method
	// Match defaults to normalize.MatchExact.
	Match normalize.MatchMode

	StepTimeout    time.Duration
	PauseTimeout   time.Duration
	ConnectTimeout time.Duration

	KeepGoing bool
	Parallel  bool

	// ExtraArgs are appended to the build tool command line.
	ExtraArgs []string
	// Launcher replaces the default CommandLauncher; ExtraArgs is then ignored.
	Launcher session.Launcher
	// ServerOutput receives the server's stderr. Nil discards it.
	ServerOutput io.Writer

	Hooks  domain.LifecycleHooks
	Logger *slog.Logger
}

// BuildDir returns the build directory used for a script: the script name
// below base.
func BuildDir(base, scriptName string) string {
	return filepath.Join(base, scriptName)
}

// ProjectDir returns the directory passed to the build tool with -S.
func (c Config) ProjectDir() string {
	sub := c.ProjectSubdir
	if sub == "" {
		sub = DefaultProjectSubdir
	}
	return filepath.Join(c.SourceDir, sub)
}

// NewRunner builds a runner that launches real debug servers for the named
// script. Extra options are applied last.
func NewRunner(cfg Config, scriptName string, opts ...runner.Option) *runner.Runner {
	launcher := cfg.Launcher
	if launcher == nil {
		launcher = session.CommandLauncher{ExtraArgs: cfg.ExtraArgs}
	}
	sessionOpts := []session.Option{session.WithLauncher(launcher)}
	if cfg.Logger != nil {
		sessionOpts = append(sessionOpts, session.WithLogger(cfg.Logger))
	}
	if cfg.ServerOutput != nil {
		sessionOpts = append(sessionOpts, session.WithStderr(cfg.ServerOutput))
	}

	starter := runner.SessionStarter{
		Config: session.Config{
			Command:        cfg.Command,
			ProjectDir:     cfg.ProjectDir(),
			Generator:      cfg.Generator,
			ConnectTimeout: cfg.ConnectTimeout,
		},
		Options: sessionOpts,
	}

	base := []runner.Option{
		runner.WithStarter(starter),
		runner.WithBuildDir(BuildDir(cfg.BuildBase, scriptName)),
		runner.WithSourceDir(cfg.SourceDir),
		runner.WithGenerator(cfg.Generator),
		runner.WithStepTimeout(cfg.StepTimeout),
		runner.WithPauseTimeout(cfg.PauseTimeout),
		runner.WithKeepGoing(cfg.KeepGoing),
		runner.WithParallel(cfg.Parallel),
		runner.WithHooks(cfg.Hooks),
	}
	if len(cfg.Methods) > 0 {
		base = append(base, runner.WithMethods(cfg.Methods...))
	}
	if cfg.Match != "" {
		base = append(base, runner.WithMatchMode(cfg.Match))
	}
	if cfg.Logger != nil {
		base = append(base, runner.WithLogger(cfg.Logger))
	}
	return runner.NewRunner(append(base, opts...)...)
}

// Run executes script against a fresh server for every configured method.
// The error, if any, maps to the process exit code via domain.ExitCode.
func Run(ctx context.Context, cfg Config, script *domain.Script) (*domain.RunReport, error) {
	return NewRunner(cfg, script.Name).Run(ctx, script)
}
