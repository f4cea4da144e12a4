/*
Package session owns one debug server process bound to one transport method.

A Session prepares a clean build directory, launches the server through a
Launcher, connects over the selected transport, and exposes the message-level
Send/Receive operations. Shutdown releases the connection and the process and
is safe to call more than once, so callers can always defer it.

# Usage

	s, err := session.Start(ctx, session.Config{
		Command:    "cmake",
		BuildDir:   "/tmp/build/debugger-break",
		ProjectDir: "/src/buildsystem1",
		Generator:  "Ninja",
		Method:     transport.MethodTCP,
	})
	if err != nil {
		return err
	}
	defer s.Shutdown()
*/
package session
