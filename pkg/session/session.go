package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/conformer/internal/logging"
	"github.com/aretw0/conformer/pkg/domain"
	"github.com/aretw0/conformer/pkg/transport"
)

const (
	// DefaultConnectTimeout bounds how long the server may take to listen.
	DefaultConnectTimeout = 30 * time.Second
	// DefaultShutdownGrace is how long Shutdown waits before killing.
	DefaultShutdownGrace = 5 * time.Second
)

// Config describes one server instance.
type Config struct {
	Command    string
	BuildDir   string
	ProjectDir string
	Generator  string
	Method     transport.Method

	ConnectTimeout time.Duration
	ShutdownGrace  time.Duration
}

// Session is one running debug server and its connection.
type Session struct {
	cfg      Config
	endpoint transport.Endpoint
	conn     transport.Conn
	cmd      *exec.Cmd
	logger   *slog.Logger

	exited  chan struct{}
	waitErr error

	shutdownOnce sync.Once
	shutdownErr  error
}

// Option configures a Session.
type Option func(*options)

type options struct {
	launcher Launcher
	logger   *slog.Logger
	stderr   io.Writer
}

// WithLauncher replaces the default CommandLauncher.
func WithLauncher(l Launcher) Option {
	return func(o *options) {
		o.launcher = l
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStderr forwards the server's stderr (and stdout, for socket methods)
// to w. By default it is discarded.
func WithStderr(w io.Writer) Option {
	return func(o *options) {
		o.stderr = w
	}
}

// Start prepares a clean build directory, launches the server and connects
// to it. Any failure is reported as domain.ErrLaunch and leaves nothing
// running.
func Start(ctx context.Context, cfg Config, opts ...Option) (*Session, error) {
	o := options{
		launcher: CommandLauncher{},
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = DefaultShutdownGrace
	}
	if cfg.BuildDir == "" {
		return nil, fmt.Errorf("%w: build directory is required", domain.ErrLaunch)
	}

	if err := resetDir(cfg.BuildDir); err != nil {
		return nil, launchError(ctx, err)
	}

	ep, err := transport.Allocate(cfg.Method, cfg.BuildDir)
	if err != nil {
		return nil, launchError(ctx, err)
	}

	cmd, err := o.launcher.Launch(ctx, LaunchSpec{
		Command:    cfg.Command,
		BuildDir:   cfg.BuildDir,
		ProjectDir: cfg.ProjectDir,
		Generator:  cfg.Generator,
		Endpoint:   ep,
	})
	if err != nil {
		ep.Release()
		return nil, launchError(ctx, err)
	}

	s := &Session{
		cfg:      cfg,
		endpoint: ep,
		cmd:      cmd,
		logger:   o.logger.With("method", cfg.Method.String()),
		exited:   make(chan struct{}),
	}

	if err := s.launch(ctx, o.stderr); err != nil {
		s.Shutdown()
		return nil, launchError(ctx, err)
	}
	return s, nil
}

// launchError wraps err in domain.ErrLaunch. A cancelled ctx stays in the
// chain so an interrupted start is not mistaken for a broken server.
func launchError(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil && !errors.Is(err, cerr) {
		return fmt.Errorf("%w: %w (%w)", domain.ErrLaunch, err, cerr)
	}
	return fmt.Errorf("%w: %w", domain.ErrLaunch, err)
}

func (s *Session) launch(ctx context.Context, stderr io.Writer) error {
	if stderr == nil {
		stderr = io.Discard
	}
	s.cmd.Stderr = stderr

	var stdio *transport.Stream
	var childEnds []*os.File
	if s.endpoint.Method == transport.MethodStdio {
		// Plain os.Pipe ends so that cmd.Wait does not close our side.
		inR, inW, err := os.Pipe()
		if err != nil {
			return err
		}
		outR, outW, err := os.Pipe()
		if err != nil {
			inR.Close()
			inW.Close()
			return err
		}
		s.cmd.Stdin = inR
		s.cmd.Stdout = outW
		childEnds = []*os.File{inR, outW}
		stdio = transport.NewPipeStream(outR, inW)
	} else {
		s.cmd.Stdout = stderr
	}

	s.logger.Debug("starting debug server", "cmd", s.cmd.String())
	err := s.cmd.Start()
	for _, f := range childEnds {
		f.Close()
	}
	if err != nil {
		if stdio != nil {
			stdio.Close()
		}
		close(s.exited)
		s.cmd = nil
		return fmt.Errorf("failed to start %s: %w", s.cfg.Command, err)
	}

	go func() {
		s.waitErr = s.cmd.Wait()
		close(s.exited)
	}()

	if stdio != nil {
		s.conn = stdio
		return nil
	}

	nc, err := transport.Dial(ctx, s.endpoint, transport.DialOptions{
		Timeout: s.cfg.ConnectTimeout,
		Alive:   s.alive,
	})
	if err != nil {
		return err
	}
	s.conn = transport.NewStream(nc)
	s.logger.Debug("connected", "endpoint", s.endpoint.Address)
	return nil
}

func (s *Session) alive() error {
	select {
	case <-s.exited:
		if s.waitErr != nil {
			return fmt.Errorf("server exited before accepting connections: %w", s.waitErr)
		}
		return errors.New("server exited before accepting connections")
	default:
		return nil
	}
}

// Method returns the transport method of the session.
func (s *Session) Method() transport.Method {
	return s.cfg.Method
}

// Endpoint returns where the server listens.
func (s *Session) Endpoint() transport.Endpoint {
	return s.endpoint
}

// BuildDir returns the build directory owned by the session.
func (s *Session) BuildDir() string {
	return s.cfg.BuildDir
}

// Send implements transport.Conn.
func (s *Session) Send(ctx context.Context, msg domain.Message) error {
	return s.conn.Send(ctx, msg)
}

// SendRaw implements transport.Conn.
func (s *Session) SendRaw(ctx context.Context, data []byte) error {
	return s.conn.SendRaw(ctx, data)
}

// Receive implements transport.Conn.
func (s *Session) Receive(ctx context.Context) (domain.Message, error) {
	return s.conn.Receive(ctx)
}

// Close implements transport.Conn by shutting the session down.
func (s *Session) Close() error {
	return s.Shutdown()
}

// Shutdown closes the connection, stops the server and releases the
// endpoint. Only the first call does any work.
func (s *Session) Shutdown() error {
	s.shutdownOnce.Do(func() {
		if s.conn != nil {
			_ = s.conn.Close()
		}
		if s.cmd != nil {
			select {
			case <-s.exited:
			case <-time.After(s.cfg.ShutdownGrace):
				s.logger.Warn("debug server did not exit, killing it", "grace", s.cfg.ShutdownGrace)
				if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
					s.shutdownErr = fmt.Errorf("failed to kill debug server: %w", err)
				}
				<-s.exited
			}
		}
		s.endpoint.Release()
		s.logger.Debug("session closed")
	})
	return s.shutdownErr
}

// resetDir removes dir and everything below it, then recreates it empty.
func resetDir(dir string) error {
	dir = filepath.Clean(dir)
	if dir == "/" || dir == "." || dir == filepath.VolumeName(dir)+string(filepath.Separator) {
		return fmt.Errorf("refusing to reset %q", dir)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove build directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create build directory: %w", err)
	}
	return nil
}

var _ transport.Conn = (*Session)(nil)
