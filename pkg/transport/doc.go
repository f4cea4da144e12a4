/*
Package transport enumerates the communication methods a debug server
supports and provides the stream codec used over all of them.

# Methods

  - stdio: the server reads requests on stdin and writes packets to stdout.
  - pipe: the server listens on a unix-domain socket inside the build directory.
  - tcp: the server listens on a loopback TCP port.

Every method carries the same framing: JSON objects written back to back.
The Stream decoder tolerates any fragmentation of that byte stream.
*/
package transport
