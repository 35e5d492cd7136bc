// Package jobs holds the domain types shared by the fetch, filter, dedup and
// orchestration packages, plus the small interfaces they are wired through.
package jobs
