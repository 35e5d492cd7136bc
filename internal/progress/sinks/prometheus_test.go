package sinks

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/jobsift/internal/progress"
)

func runBatch() []progress.Event {
	run := uuid.New()
	now := time.Now()
	return []progress.Event{
		{RunID: run, TS: now, Stage: progress.StageRunStart},
		{RunID: run, TS: now, Stage: progress.StageSourceStart, Source: "RemoteOK"},
		{RunID: run, TS: now, Stage: progress.StageSourceDone, Source: "RemoteOK", Records: 4, Dur: 3 * time.Second},
		{RunID: run, TS: now, Stage: progress.StageSourceError, Source: "Jobicy", Dur: 45 * time.Second, Note: "timed out"},
		{RunID: run, TS: now, Stage: progress.StageRunDone, Records: 4, Dur: 46 * time.Second},
	}
}

func TestPrometheusSinkRecordsOutcomes(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	require.NoError(t, sink.Consume(context.Background(), runBatch()))

	require.Equal(t, 1.0, testutil.ToFloat64(sink.runsStarted))
	require.Equal(t, 0.0, testutil.ToFloat64(sink.runsRunning))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.sourcesCompleted.WithLabelValues("success")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.sourcesCompleted.WithLabelValues("error")))
	require.Equal(t, 2, testutil.CollectAndCount(sink.sourceRuntime, "jobsift_source_runtime_seconds"))
}

func TestPrometheusSinkDuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewPrometheusSink(reg)
	require.NoError(t, err)
	_, err = NewPrometheusSink(reg)
	require.Error(t, err)
}

func TestLogSinkLevels(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	sink := NewLogSink(zap.New(core))
	require.NoError(t, sink.Consume(context.Background(), runBatch()))

	require.Equal(t, 5, logs.Len())
	warns := logs.FilterLevelExact(zap.WarnLevel).All()
	require.Len(t, warns, 1)
	require.Equal(t, "Jobicy", warns[0].ContextMap()["source"])
	require.Equal(t, "timed out", warns[0].ContextMap()["error"])
}
