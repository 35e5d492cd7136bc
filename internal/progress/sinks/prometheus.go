package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/jobsift/internal/progress"
)

// PrometheusSink tracks run and source outcomes on a caller-supplied
// registry.
type PrometheusSink struct {
	runsStarted      prometheus.Counter
	runsRunning      prometheus.Gauge
	sourcesCompleted *prometheus.CounterVec
	sourceRuntime    *prometheus.HistogramVec
	runRecords       prometheus.Histogram
}

// NewPrometheusSink registers its collectors on reg (default registerer when
// nil).
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobsift_runs_started_total",
			Help: "Runs started.",
		}),
		runsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jobsift_runs_running",
			Help: "Runs in progress.",
		}),
		sourcesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobsift_sources_completed_total",
			Help: "Source tasks finished, by result.",
		}, []string{"result"}),
		sourceRuntime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jobsift_source_runtime_seconds",
			Help:    "Wall time per source task.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 45, 60},
		}, []string{"result"}),
		runRecords: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "jobsift_run_records",
			Help:    "Records reported per finished run.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
	for _, c := range []prometheus.Collector{
		s.runsStarted, s.runsRunning, s.sourcesCompleted, s.sourceRuntime, s.runRecords,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume implements progress.Sink.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageRunStart:
			s.runsStarted.Inc()
			s.runsRunning.Inc()
		case progress.StageRunDone:
			s.runsRunning.Dec()
			s.runRecords.Observe(float64(evt.Records))
		case progress.StageSourceDone:
			s.observeSource("success", evt)
		case progress.StageSourceError:
			s.observeSource("error", evt)
		}
	}
	return nil
}

func (s *PrometheusSink) observeSource(result string, evt progress.Event) {
	s.sourcesCompleted.WithLabelValues(result).Inc()
	if evt.Dur > 0 {
		s.sourceRuntime.WithLabelValues(result).Observe(evt.Dur.Seconds())
	}
}

// Close implements progress.Sink.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
