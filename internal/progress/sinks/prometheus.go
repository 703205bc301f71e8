package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/climbtrack/agescraper/internal/progress"
)

// PrometheusSink exports refresh progress metrics. It owns all collectors for
// run/cycle counts and per-outcome fetch stats.
type PrometheusSink struct {
	runsTotal     *prometheus.CounterVec
	cyclesTotal   *prometheus.CounterVec
	fetchesTotal  *prometheus.CounterVec
	rowsRemoved   *prometheus.CounterVec
	backlogSize   *prometheus.GaugeVec
	fetchDuration *prometheus.HistogramVec
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agescraper_runs_total",
			Help: "Total refresh runs partitioned by result.",
		}, []string{"federation", "result"}),
		cyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agescraper_cycles_total",
			Help: "Total scheduling cycles executed.",
		}, []string{"federation"}),
		fetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agescraper_fetches_total",
			Help: "Total profile fetches partitioned by outcome.",
		}, []string{"federation", "outcome"}),
		rowsRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agescraper_rows_removed_total",
			Help: "Total rows purged for deleted profiles.",
		}, []string{"federation"}),
		backlogSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "agescraper_backlog_size",
			Help: "Backlog size dispatched in the most recent cycle.",
		}, []string{"federation"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agescraper_fetch_duration_seconds",
			Help:    "Latency of individual profile fetches.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8),
		}, []string{"federation"}),
	}
	collectors := []prometheus.Collector{
		s.runsTotal, s.cyclesTotal, s.fetchesTotal, s.rowsRemoved, s.backlogSize, s.fetchDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fed := evt.Federation
		switch evt.Stage {
		case progress.StageRunDone:
			s.runsTotal.WithLabelValues(fed, "success").Inc()
		case progress.StageRunError:
			s.runsTotal.WithLabelValues(fed, "error").Inc()
		case progress.StageCycle:
			s.cyclesTotal.WithLabelValues(fed).Inc()
			s.backlogSize.WithLabelValues(fed).Set(float64(evt.Scheduled))
		case progress.StageCycleDone:
			s.rowsRemoved.WithLabelValues(fed).Add(float64(evt.Removed))
		case progress.StageFetchDone:
			s.fetchesTotal.WithLabelValues(fed, evt.Outcome).Inc()
			s.fetchDuration.WithLabelValues(fed).Observe(evt.Dur.Seconds())
		}
	}
	return nil
}

// Close implements the Sink interface; collectors stay registered.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
