package session

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/aretw0/conformer/pkg/transport"
)

// LaunchSpec is everything a Launcher needs to start a debug server.
type LaunchSpec struct {
	Command    string
	BuildDir   string
	ProjectDir string
	Generator  string
	Endpoint   transport.Endpoint
}

// Launcher builds the command that starts a debug server. The build tool's
// own bootstrap is opaque to the driver; only the command line lives here.
type Launcher interface {
	Launch(ctx context.Context, spec LaunchSpec) (*exec.Cmd, error)
}

// CommandLauncher starts the build tool with its debug server enabled:
//
//	<command> [prefix...] -S <project> -B <build> [-G <generator>]
//	    --debugger --debugger-transport=<method> [--debugger-endpoint=<addr>] [extra...]
type CommandLauncher struct {
	// PrefixArgs are placed right after the command, before generated flags.
	PrefixArgs []string
	// ExtraArgs are appended after the generated flags.
	ExtraArgs []string
	// Env is added to the inherited environment.
	Env []string
}

// Launch implements Launcher.
func (l CommandLauncher) Launch(ctx context.Context, spec LaunchSpec) (*exec.Cmd, error) {
	if spec.Command == "" {
		return nil, fmt.Errorf("no build tool command configured")
	}

	args := append([]string{}, l.PrefixArgs...)
	args = append(args, "-S", spec.ProjectDir, "-B", spec.BuildDir)
	if spec.Generator != "" {
		args = append(args, "-G", spec.Generator)
	}
	args = append(args, "--debugger", "--debugger-transport="+spec.Endpoint.Method.String())
	if arg := spec.Endpoint.Arg(); arg != "" {
		args = append(args, "--debugger-endpoint="+arg)
	}
	args = append(args, l.ExtraArgs...)

	// The session controls termination itself, so the process is not bound
	// to ctx.
	cmd := exec.Command(spec.Command, args...)
	cmd.Dir = spec.BuildDir
	if len(l.Env) > 0 {
		cmd.Env = append(cmd.Environ(), l.Env...)
	}
	return cmd, nil
}
