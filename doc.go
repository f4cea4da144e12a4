/*
Package conformer is a protocol conformance driver for the JSON debug server
embedded in the build tool.

It replays a scripted sequence of protocol messages against a freshly
spawned server, once per transport method (stdio, pipe and tcp), checks the
responses against expected values and waits for the asynchronous "Paused"
notifications the server emits on its own.

# Concept

A test script is a JSON (or YAML) array of steps. A basic step sends a
request, a raw byte string, or both, and may expect a response. A
waitForPause step consumes packets until the server reports that the
debuggee has paused.

	[
	  {"message": "initial pause"},
	  {"recv": {"State": "Paused", "Backtrace": [{"File": "/buildsystem1/CMakeLists.txt", "Line": 1}]}},
	  {"send": {"Command": "AddBreakpoint", "File": "CMakeLists.txt", "Line": 4}},
	  {"send": {"Command": "Continue"}},
	  {"waitForPause": {}}
	]

Received packets are normalized before they are compared: the PID is
dropped, backtrace paths lose the source directory prefix and "Running"
notifications are skipped.

# Usage

	s, err := script.Load("Tests/Server/breakpoints.json")
	if err != nil {
		log.Fatal(err)
	}

	report, err := conformer.Run(ctx, conformer.Config{
		Command:   "/usr/local/bin/cmake",
		SourceDir: "Tests/Server",
		BuildBase: "/tmp/conformer",
		Generator: "Ninja",
	}, s)
	os.Exit(domain.ExitCode(err))

The conformer command wraps the same API with configuration files,
report stores, a monitor server and a watch mode.
*/
package conformer
