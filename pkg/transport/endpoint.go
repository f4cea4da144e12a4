package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// SocketName is the unix socket file created inside the build directory.
const SocketName = "debugger.sock"

// maxSocketPath stays under the smallest sun_path limit (104 on darwin).
const maxSocketPath = 100

// Endpoint is where a server listens for one method. Address is empty for
// stdio, a socket path for pipe, and host:port for tcp.
type Endpoint struct {
	Method  Method
	Address string
}

// Arg returns the value handed to the server on its command line.
func (e Endpoint) Arg() string {
	if e.Method == MethodTCP {
		if _, port, err := net.SplitHostPort(e.Address); err == nil {
			return port
		}
	}
	return e.Address
}

// Network returns the net.Dial network for the endpoint.
func (e Endpoint) Network() string {
	switch e.Method {
	case MethodPipe:
		return "unix"
	case MethodTCP:
		return "tcp"
	}
	return ""
}

// Release removes any file the endpoint owns.
func (e Endpoint) Release() {
	if e.Method == MethodPipe && e.Address != "" {
		_ = os.Remove(e.Address)
	}
}

// Allocate reserves an endpoint for method. Socket files live in dir when
// the path is short enough and fall back to the temp directory otherwise.
func Allocate(method Method, dir string) (Endpoint, error) {
	switch method {
	case MethodStdio:
		return Endpoint{Method: method}, nil
	case MethodPipe:
		path := filepath.Join(dir, SocketName)
		if len(path) > maxSocketPath {
			path = filepath.Join(os.TempDir(), "conformer-"+uuid.NewString()[:8]+".sock")
		}
		return Endpoint{Method: method, Address: path}, nil
	case MethodTCP:
		port, err := freePort()
		if err != nil {
			return Endpoint{}, fmt.Errorf("failed to reserve tcp port: %w", err)
		}
		return Endpoint{Method: method, Address: net.JoinHostPort("127.0.0.1", strconv.Itoa(port))}, nil
	}
	return Endpoint{}, fmt.Errorf("unsupported transport method %q", method)
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// DialOptions tunes Dial.
type DialOptions struct {
	// Timeout bounds the whole connect loop. Zero means no limit beyond ctx.
	Timeout time.Duration
	// Alive reports whether the server can still come up; a non-nil error
	// stops retrying immediately.
	Alive func() error
}

// Dial connects to a socket endpoint, retrying with exponential backoff
// while the server is still binding.
func Dial(ctx context.Context, ep Endpoint, opts DialOptions) (net.Conn, error) {
	network := ep.Network()
	if network == "" {
		return nil, fmt.Errorf("method %q has no socket endpoint", ep.Method)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	b.MaxElapsedTime = opts.Timeout

	var d net.Dialer
	var conn net.Conn
	err := backoff.Retry(func() error {
		if opts.Alive != nil {
			if err := opts.Alive(); err != nil {
				return backoff.Permanent(err)
			}
		}
		c, err := d.DialContext(ctx, network, ep.Address)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		conn = c
		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Err
		}
		return nil, fmt.Errorf("dial %s %s: %w", network, ep.Address, err)
	}
	return conn, nil
}
