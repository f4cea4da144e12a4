/*
Package runner replays conformance scripts against debug servers.

The Runner is the transport selector: it runs the whole script once per
transport method, each time against a fresh server obtained from a Starter.
The Interpreter executes the steps of one script over one connection,
normalizing received packets and comparing them with the expected ones, and
implements the wait-for-pause protocol.

# Key Components

  - Runner: iterates methods (fail fast by default, optionally keep going or
    in parallel) and builds a domain.RunReport.
  - Interpreter: the step state machine for one method.
  - Starter: launches a server; SessionStarter uses package session.

# Usage

	r := runner.NewRunner(
		runner.WithStarter(runner.SessionStarter{Config: cfg}),
		runner.WithBuildDir(buildDir),
		runner.WithSourceDir(sourceDir),
	)

	report, err := r.Run(ctx, script)
	os.Exit(domain.ExitCode(err))
*/
package runner
