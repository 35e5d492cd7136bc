// Package progress carries run lifecycle events from the orchestrator to
// pluggable sinks. Emitters never block: a Hub buffers events and flushes
// them in batches on its own goroutine.
package progress
