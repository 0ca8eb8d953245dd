package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ai-tools-lab/linkverify/internal/progress"
)

// PrometheusSink exports verification progress metrics. It owns all
// collectors for run lifecycle and per-environment visit counters.
type PrometheusSink struct {
	runsStarted  prometheus.Counter
	crawlsDone   *prometheus.CounterVec
	crawlRuntime *prometheus.HistogramVec

	visitsTotal   *prometheus.CounterVec
	linksSkipped  *prometheus.CounterVec
	visitDuration *prometheus.HistogramVec
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "linkverify_runs_started_total",
			Help: "Total verification runs that have started.",
		}),
		crawlsDone: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "linkverify_crawls_completed_total",
			Help: "Completed environment crawls partitioned by result.",
		}, []string{"environment", "result"}),
		crawlRuntime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "linkverify_crawl_runtime_seconds",
			Help:    "Wall time per completed environment crawl.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"environment"}),
		visitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "linkverify_visits_total",
			Help: "Page visits partitioned by environment and status class.",
		}, []string{"environment", "status_class"}),
		linksSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "linkverify_links_skipped_total",
			Help: "Links excluded from the frontier by the skip classifier.",
		}, []string{"environment", "reason"}),
		visitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "linkverify_visit_duration_seconds",
			Help:    "Page load duration partitioned by environment and status class.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"environment", "status_class"}),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.crawlsDone,
		s.crawlRuntime,
		s.visitsTotal,
		s.linksSkipped,
		s.visitDuration,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the event batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageRunStart:
			s.runsStarted.Inc()
		case progress.StageCrawlDone:
			s.crawlsDone.WithLabelValues(evt.Environment, "done").Inc()
			s.crawlRuntime.WithLabelValues(evt.Environment).Observe(evt.Dur.Seconds())
		case progress.StageCrawlError:
			s.crawlsDone.WithLabelValues(evt.Environment, "error").Inc()
		case progress.StageVisitDone:
			s.visitsTotal.WithLabelValues(evt.Environment, string(evt.StatusClass)).Inc()
			s.visitDuration.WithLabelValues(evt.Environment, string(evt.StatusClass)).Observe(evt.Dur.Seconds())
		case progress.StageLinkSkipped:
			s.linksSkipped.WithLabelValues(evt.Environment, evt.Note).Inc()
		}
	}
	return nil
}

// Close implements the Sink interface; collectors stay registered.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
