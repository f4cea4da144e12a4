package session_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/conformer/internal/testutils"
	"github.com/aretw0/conformer/pkg/domain"
	"github.com/aretw0/conformer/pkg/session"
	"github.com/aretw0/conformer/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelperProcess(t *testing.T) {
	testutils.RunHelperProcess()
}

func helperLauncher(mode string) session.CommandLauncher {
	return session.CommandLauncher{
		PrefixArgs: testutils.HelperArgs("TestHelperProcess"),
		Env: []string{
			testutils.HelperEnv + "=1",
			testutils.HelperModeEnv + "=" + mode,
		},
	}
}

func startHelper(t *testing.T, method transport.Method, mode string) (*session.Session, string) {
	t.Helper()
	src := t.TempDir()
	s, err := session.Start(context.Background(), session.Config{
		Command:        os.Args[0],
		BuildDir:       filepath.Join(t.TempDir(), "build"),
		ProjectDir:     filepath.Join(src, "buildsystem1"),
		Generator:      "Ninja",
		Method:         method,
		ConnectTimeout: 10 * time.Second,
		ShutdownGrace:  2 * time.Second,
	}, session.WithLauncher(helperLauncher(mode)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown() })
	return s, src
}

func TestSession_AllTransports(t *testing.T) {
	for _, method := range transport.Methods() {
		t.Run(method.String(), func(t *testing.T) {
			s, src := startHelper(t, method, testutils.ModeNormal)
			assert.Equal(t, method, s.Method())

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			first, err := s.Receive(ctx)
			require.NoError(t, err)
			assert.True(t, first.IsState(domain.StatePaused))
			assert.True(t, first.HasPID())
			frames := first.Backtrace()
			require.Len(t, frames, 1)
			assert.Equal(t, filepath.ToSlash(filepath.Join(src, testutils.ProjectFile)), frames[0]["File"])

			require.NoError(t, s.Send(ctx, domain.Message{"Command": "Evaluate", "Request": "CMAKE_GENERATOR"}))
			reply, err := s.Receive(ctx)
			require.NoError(t, err)
			assert.Equal(t, "CMAKE_GENERATOR", reply["Request"])

			require.NoError(t, s.SendRaw(ctx, []byte(`{"Command":`)))
			require.NoError(t, s.SendRaw(ctx, []byte(`"Continue"}`)))
			running, err := s.Receive(ctx)
			require.NoError(t, err)
			assert.True(t, running.IsState(domain.StateRunning))

			_, err = s.Receive(ctx)
			assert.ErrorIs(t, err, io.EOF)

			require.NoError(t, s.Shutdown())
			require.NoError(t, s.Shutdown())
		})
	}
}

func TestSession_ResetsBuildDirectory(t *testing.T) {
	build := filepath.Join(t.TempDir(), "build")
	require.NoError(t, os.MkdirAll(filepath.Join(build, "stale", "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(build, "CMakeCache.txt"), []byte("old"), 0o644))
	sibling := filepath.Join(filepath.Dir(build), "keep.txt")
	require.NoError(t, os.WriteFile(sibling, []byte("keep"), 0o644))

	s, err := session.Start(context.Background(), session.Config{
		Command:    os.Args[0],
		BuildDir:   build,
		ProjectDir: filepath.Join(t.TempDir(), "buildsystem1"),
		Method:     transport.MethodStdio,
	}, session.WithLauncher(helperLauncher(testutils.ModeNormal)))
	require.NoError(t, err)
	defer s.Shutdown()

	assert.NoDirExists(t, filepath.Join(build, "stale"))
	assert.NoFileExists(t, filepath.Join(build, "CMakeCache.txt"))
	assert.DirExists(t, build)
	assert.FileExists(t, sibling)
}

func TestSession_LaunchFailure(t *testing.T) {
	tests := []struct {
		Name   string
		Config session.Config
	}{
		{
			Name: "Missing Binary",
			Config: session.Config{
				Command:  filepath.Join(t.TempDir(), "no-such-cmake"),
				BuildDir: filepath.Join(t.TempDir(), "build"),
				Method:   transport.MethodTCP,
			},
		},
		{
			Name: "No Command",
			Config: session.Config{
				BuildDir: filepath.Join(t.TempDir(), "build"),
				Method:   transport.MethodStdio,
			},
		},
		{
			Name: "No Build Directory",
			Config: session.Config{
				Command: "cmake",
				Method:  transport.MethodStdio,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			s, err := session.Start(context.Background(), tt.Config)
			assert.Nil(t, s)
			assert.ErrorIs(t, err, domain.ErrLaunch)
			assert.Equal(t, domain.ExitLaunch, domain.ExitCode(err))
		})
	}
}

func TestSession_ServerExitsBeforeListening(t *testing.T) {
	// Without -S the helper exits before it listens.
	build := filepath.Join(t.TempDir(), "build")
	_, err := session.Start(context.Background(), session.Config{
		Command:        os.Args[0],
		BuildDir:       build,
		Method:         transport.MethodTCP,
		ConnectTimeout: 10 * time.Second,
	}, session.WithLauncher(helperLauncher(testutils.ModeNormal)))
	assert.ErrorIs(t, err, domain.ErrLaunch)
}

func TestSession_CancelledWhileConnecting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	s, err := session.Start(ctx, session.Config{
		Command:        os.Args[0],
		BuildDir:       filepath.Join(t.TempDir(), "build"),
		ProjectDir:     filepath.Join(t.TempDir(), "buildsystem1"),
		Method:         transport.MethodTCP,
		ConnectTimeout: 10 * time.Second,
		ShutdownGrace:  500 * time.Millisecond,
	}, session.WithLauncher(helperLauncher(testutils.ModeDeaf)))

	assert.Nil(t, s)
	assert.ErrorIs(t, err, domain.ErrLaunch)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.ExitInterrupted, domain.ExitCode(err))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCommandLauncher_Args(t *testing.T) {
	l := session.CommandLauncher{ExtraArgs: []string{"--trace"}}

	tests := []struct {
		Name     string
		Endpoint transport.Endpoint
		Want     []string
	}{
		{
			Name:     "Stdio",
			Endpoint: transport.Endpoint{Method: transport.MethodStdio},
			Want: []string{"cmake", "-S", "/src/buildsystem1", "-B", "/build/x", "-G", "Ninja",
				"--debugger", "--debugger-transport=stdio", "--trace"},
		},
		{
			Name:     "Pipe",
			Endpoint: transport.Endpoint{Method: transport.MethodPipe, Address: "/build/x/debugger.sock"},
			Want: []string{"cmake", "-S", "/src/buildsystem1", "-B", "/build/x", "-G", "Ninja",
				"--debugger", "--debugger-transport=pipe", "--debugger-endpoint=/build/x/debugger.sock", "--trace"},
		},
		{
			Name:     "TCP",
			Endpoint: transport.Endpoint{Method: transport.MethodTCP, Address: "127.0.0.1:41234"},
			Want: []string{"cmake", "-S", "/src/buildsystem1", "-B", "/build/x", "-G", "Ninja",
				"--debugger", "--debugger-transport=tcp", "--debugger-endpoint=41234", "--trace"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			cmd, err := l.Launch(context.Background(), session.LaunchSpec{
				Command:    "cmake",
				BuildDir:   "/build/x",
				ProjectDir: "/src/buildsystem1",
				Generator:  "Ninja",
				Endpoint:   tt.Endpoint,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.Want, cmd.Args)
			assert.Equal(t, "/build/x", cmd.Dir)
		})
	}
}
