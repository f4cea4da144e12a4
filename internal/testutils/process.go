package testutils

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// HelperEnv marks a test binary re-executed as a fake debug server.
const HelperEnv = "CONFORMER_WANT_HELPER_PROCESS"

// HelperModeEnv selects the FakeDebugger mode of a helper process.
const HelperModeEnv = "CONFORMER_HELPER_MODE"

// HelperArgs returns the arguments that make the current test binary run
// only testName and hand everything after "--" to RunHelperProcess.
func HelperArgs(testName string) []string {
	return []string{"-test.run=^" + testName + "$", "--"}
}

// RunHelperProcess turns the test binary into a fake debug server when
// HelperEnv is set, and is a no-op otherwise. It never returns in helper
// mode. Call it from a TestHelperProcess function.
func RunHelperProcess() {
	if os.Getenv(HelperEnv) != "1" {
		return
	}
	if err := serveFromArgs(helperArgs(os.Args)); err != nil {
		fmt.Fprintln(os.Stderr, "fake debugger:", err)
		os.Exit(1)
	}
	os.Exit(0)
}

func helperArgs(args []string) []string {
	for i, a := range args {
		if a == "--" {
			return args[i+1:]
		}
	}
	return nil
}

func serveFromArgs(args []string) error {
	var project, method, endpoint string
	for i := 0; i < len(args); i++ {
		switch a := args[i]; {
		case a == "-S" && i+1 < len(args):
			i++
			project = args[i]
		case strings.HasPrefix(a, "--debugger-transport="):
			method = strings.TrimPrefix(a, "--debugger-transport=")
		case strings.HasPrefix(a, "--debugger-endpoint="):
			endpoint = strings.TrimPrefix(a, "--debugger-endpoint=")
		}
	}
	if project == "" {
		return fmt.Errorf("missing -S")
	}

	fake := NewFakeDebugger(filepath.Dir(project))
	fake.PID = os.Getpid()
	fake.Mode = os.Getenv(HelperModeEnv)
	if fake.Mode == ModeDeaf {
		time.Sleep(time.Minute)
		return nil
	}

	switch method {
	case "stdio":
		return fake.Serve(stdio{})
	case "pipe":
		return listenAndServe(fake, "unix", endpoint)
	case "tcp":
		return listenAndServe(fake, "tcp", net.JoinHostPort("127.0.0.1", endpoint))
	}
	return fmt.Errorf("unsupported transport %q", method)
}

func listenAndServe(fake *FakeDebugger, network, address string) error {
	ln, err := net.Listen(network, address)
	if err != nil {
		return err
	}
	defer ln.Close()

	conn, err := ln.Accept()
	if err != nil {
		return err
	}
	defer conn.Close()
	return fake.Serve(conn)
}

type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

var _ io.ReadWriter = stdio{}
