/*
Package monitor exposes a running conformance driver over HTTP.

# Endpoints

  - GET /healthz: liveness.
  - GET /metrics: Prometheus metrics fed by the driver's lifecycle hooks.
  - GET /reports, GET /reports/{id}, GET /report: stored run reports; the
    last one is the most recent run.
  - GET /events: websocket stream of every step and packet.
*/
package monitor
