// Package api hosts the HTTP server used by `jobsift serve`. Routes:
//   - GET /healthz and /readyz for probes.
//   - GET /metrics for Prometheus scraping.
//   - POST /v1/runs to start a run in the background.
//   - GET /v1/runs/latest for the most recent report as JSON.
package api
