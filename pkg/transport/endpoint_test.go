package transport

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMethods(t *testing.T) {
	methods := Methods()
	assert.Equal(t, MethodStdio, methods[0])
	assert.Contains(t, methods, MethodTCP)
	if runtime.GOOS != "windows" {
		assert.Contains(t, methods, MethodPipe)
	}
}

func TestParseMethods(t *testing.T) {
	all, err := ParseMethods(nil)
	require.NoError(t, err)
	assert.Equal(t, Methods(), all)

	some, err := ParseMethods([]string{"TCP", " stdio", "tcp"})
	require.NoError(t, err)
	assert.Equal(t, []Method{MethodTCP, MethodStdio}, some)

	_, err = ParseMethods([]string{"carrier-pigeon"})
	assert.Error(t, err)
}

func TestAllocate(t *testing.T) {
	dir := t.TempDir()

	t.Run("Stdio Has No Address", func(t *testing.T) {
		ep, err := Allocate(MethodStdio, dir)
		require.NoError(t, err)
		assert.Empty(t, ep.Address)
		assert.Empty(t, ep.Network())
	})

	t.Run("TCP Reserves A Loopback Port", func(t *testing.T) {
		ep, err := Allocate(MethodTCP, dir)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(ep.Address, "127.0.0.1:"))
		assert.NotEmpty(t, ep.Arg())
		assert.NotContains(t, ep.Arg(), ":")
	})

	t.Run("Pipe Lives In The Build Directory", func(t *testing.T) {
		short := filepath.Join(os.TempDir(), "cf")
		ep, err := Allocate(MethodPipe, short)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(short, SocketName), ep.Address)
		assert.Equal(t, ep.Address, ep.Arg())
	})

	t.Run("Pipe Falls Back For Long Paths", func(t *testing.T) {
		long := filepath.Join(dir, strings.Repeat("x", 120))
		ep, err := Allocate(MethodPipe, long)
		require.NoError(t, err)
		assert.Less(t, len(ep.Address), maxSocketPath+1)
		assert.Equal(t, filepath.Clean(os.TempDir()), filepath.Dir(ep.Address))
	})

	t.Run("Unknown Method", func(t *testing.T) {
		_, err := Allocate(Method("smoke"), dir)
		assert.Error(t, err)
	})
}

func TestDial_RetriesUntilListening(t *testing.T) {
	ep, err := Allocate(MethodTCP, t.TempDir())
	require.NoError(t, err)

	go func() {
		time.Sleep(100 * time.Millisecond)
		l, err := net.Listen("tcp", ep.Address)
		if err != nil {
			return
		}
		defer l.Close()
		c, err := l.Accept()
		if err == nil {
			c.Close()
		}
	}()

	conn, err := Dial(context.Background(), ep, DialOptions{Timeout: 5 * time.Second})
	require.NoError(t, err)
	conn.Close()
}

func TestDial_StopsWhenServerIsGone(t *testing.T) {
	ep, err := Allocate(MethodTCP, t.TempDir())
	require.NoError(t, err)

	exited := errors.New("process exited")
	start := time.Now()
	_, err = Dial(context.Background(), ep, DialOptions{
		Timeout: 10 * time.Second,
		Alive:   func() error { return exited },
	})

	assert.ErrorIs(t, err, exited)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestDial_Timeout(t *testing.T) {
	ep, err := Allocate(MethodTCP, t.TempDir())
	require.NoError(t, err)

	_, err = Dial(context.Background(), ep, DialOptions{Timeout: 100 * time.Millisecond})
	assert.Error(t, err)
}

func TestDial_StdioIsNotDialable(t *testing.T) {
	_, err := Dial(context.Background(), Endpoint{Method: MethodStdio}, DialOptions{})
	assert.Error(t, err)
}
