/*
Package domain contains the core models of the conformance driver.

It defines the script vocabulary, the protocol message shape and the error
taxonomy shared by the session, normalizer and runner packages. This package
is kept free of I/O so the rest of the system can be tested against it
without a debug server.

# Key Entities

  - Script: An ordered, immutable list of Steps loaded from a test file.
  - Step: A closed sum type with two variants, BasicMessage and WaitForPause.
  - Message: A decoded protocol packet (untyped JSON object).
  - RunReport: The per-method outcome of one driver invocation.
*/
package domain
