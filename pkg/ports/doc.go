/*
Package ports defines the driven ports of the conformance driver.

# Key Interfaces

  - ReportStore: persists run reports so results survive the process and can
    be served by the monitor.
*/
package ports
