// Package sinks holds the progress.Sink implementations wired by the CLI:
// structured logs and Prometheus collectors.
package sinks
