package runner

import (
	"context"

	"github.com/aretw0/conformer/pkg/session"
	"github.com/aretw0/conformer/pkg/transport"
)

// Starter opens a connection to a freshly launched server. Closing the
// returned Conn must tear the server down.
type Starter interface {
	Start(ctx context.Context, method transport.Method, buildDir string) (transport.Conn, error)
}

// StarterFunc adapts a function to Starter.
type StarterFunc func(ctx context.Context, method transport.Method, buildDir string) (transport.Conn, error)

// Start implements Starter.
func (f StarterFunc) Start(ctx context.Context, method transport.Method, buildDir string) (transport.Conn, error) {
	return f(ctx, method, buildDir)
}

// SessionStarter launches real debug server processes through package session.
type SessionStarter struct {
	// Config is the template for every session; Method and BuildDir are
	// filled per call.
	Config  session.Config
	Options []session.Option
}

// Start implements Starter.
func (s SessionStarter) Start(ctx context.Context, method transport.Method, buildDir string) (transport.Conn, error) {
	cfg := s.Config
	cfg.Method = method
	cfg.BuildDir = buildDir
	return session.Start(ctx, cfg, s.Options...)
}
