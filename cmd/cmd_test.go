package cmd

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobsift/internal/app"
	"github.com/JakeFAU/jobsift/internal/config"
	"github.com/JakeFAU/jobsift/internal/jobs"
	"github.com/JakeFAU/jobsift/internal/report"
	"github.com/JakeFAU/jobsift/internal/storage/memory"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobsift.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSourcesCommand(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
sources:
  - name: Example
    listing_url: https://jobs.example.com/search?q={query}
    query: help desk
    link_selector: a.job
  - name: Paused
    listing_url: https://paused.example.com
    link_selector: a
    enabled: false
`)
	out, err := execute(t, "sources", "--config", path)
	require.NoError(t, err)
	require.Contains(t, out, "Example")
	require.Contains(t, out, "https://jobs.example.com/search?q=help+desk")
	require.NotContains(t, out, "Paused")
	require.Contains(t, out, "1 of 2 sources enabled")
}

func TestSourcesCommandRejectsBadConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
sources:
  - name: Broken
    listing_url: not-a-url
    link_selector: a
`)
	_, err := execute(t, "sources", "--config", path)
	require.ErrorContains(t, err, "invalid sources")
}

func TestRunCommandRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "run", "--format", "pdf")
	require.ErrorContains(t, err, "unknown report format")
}

func TestApplyRunFlags(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load("")
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, applyRunFlags(&cfg, "yaml", dir))
	require.Equal(t, report.FormatYAML, cfg.ReportFormat())
	require.Equal(t, config.DestinationLocal, cfg.Report.Destination)
	require.Equal(t, dir, cfg.Report.Dir)
}

func TestRunOncePrintsSummary(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/jobs", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><a class="job" href="/job/1">Junior Help Desk Technician</a></body></html>`)
	})
	mux.HandleFunc("/job/1", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><div class="description">Remote worldwide help desk role for an entry
level technician supporting Windows laptops and triaging tickets.</div></body></html>`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	path := writeConfig(t, fmt.Sprintf(`
http:
  request_pause: 0s
  backoff_base: 1ms
  backoff_max: 1ms
rate_limit:
  default_per_minute: 1000
sources:
  - name: Local
    listing_url: %s/jobs
    link_selector: a.job
  - name: Down
    listing_url: %s/gone
    link_selector: a.job
`, server.URL, server.URL))
	cfg, err := config.Load(path)
	require.NoError(t, err)

	store := memory.NewBlobStore()
	var out bytes.Buffer
	err = runOnce(context.Background(), &out, cfg, zap.NewNop(),
		app.WithBlobStore(store), app.WithRegisterer(prometheus.NewRegistry()))
	require.NoError(t, err)

	require.Contains(t, out.String(), "SOURCE")
	require.Contains(t, out.String(), "Local")
	require.Contains(t, out.String(), "1 postings from 2 sources (1 failed)")
	require.Contains(t, out.String(), "report: memory://")
	require.Len(t, store.Paths(), 1)
}

func TestPrintSummaryWithoutReport(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	printSummary(&out, app.Outcome{
		Report: report.Report{
			Outcomes: []jobs.SourceResult{{
				Source:  "Jobicy",
				Elapsed: 45 * time.Second,
				Err:     jobs.ErrTaskTimeout,
				Error:   "source Jobicy: source task timed out",
			}},
		},
	})
	require.Contains(t, out.String(), "Jobicy")
	require.Contains(t, out.String(), "source task timed out")
	require.Contains(t, out.String(), "0 postings from 1 sources (1 failed)")
	require.NotContains(t, out.String(), "report:")
}
