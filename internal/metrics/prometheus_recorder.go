package metrics

import (
	"fmt"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once           sync.Once
	registry       *prom.Registry
	runDuration    prom.Histogram
	submoduleRuns  *prom.CounterVec
	merges         prom.Counter
	pushes         prom.Counter
	runOutcome     *prom.CounterVec
	updatedModules prom.Gauge
	markdownGate   prom.Gauge
	lastRun        prom.Gauge
}

// NewPrometheusRecorder constructs and registers the run metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}
	pr.once.Do(func() {
		pr.runDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "forksync",
			Name:      "run_duration_seconds",
			Help:      "Total duration of a sync run",
			Buckets:   prom.DefBuckets,
		})
		pr.submoduleRuns = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "forksync",
			Name:      "submodule_results_total",
			Help:      "Per-submodule reconciliation outcomes",
		}, []string{"outcome"})
		pr.merges = prom.NewCounter(prom.CounterOpts{
			Namespace: "forksync",
			Name:      "upstream_merges_total",
			Help:      "Upstream merges performed",
		})
		pr.pushes = prom.NewCounter(prom.CounterOpts{
			Namespace: "forksync",
			Name:      "submodule_pushes_total",
			Help:      "Submodule branch pushes performed",
		})
		pr.runOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "forksync",
			Name:      "run_outcomes_total",
			Help:      "Run outcomes by final status",
		}, []string{"outcome"})
		pr.updatedModules = prom.NewGauge(prom.GaugeOpts{
			Namespace: "forksync",
			Name:      "updated_modules",
			Help:      "Submodules whose tip moved in the last run",
		})
		pr.markdownGate = prom.NewGauge(prom.GaugeOpts{
			Namespace: "forksync",
			Name:      "markdown_gate_open",
			Help:      "Whether the last run's changes warranted publication",
		})
		pr.lastRun = prom.NewGauge(prom.GaugeOpts{
			Namespace: "forksync",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed run",
		})
		reg.MustRegister(pr.runDuration, pr.submoduleRuns, pr.merges, pr.pushes,
			pr.runOutcome, pr.updatedModules, pr.markdownGate, pr.lastRun)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveRunDuration(d time.Duration) {
	if p == nil || p.runDuration == nil {
		return
	}
	p.runDuration.Observe(d.Seconds())
	p.lastRun.SetToCurrentTime()
}

func (p *PrometheusRecorder) IncSubmoduleOutcome(outcome OutcomeLabel) {
	if p == nil || p.submoduleRuns == nil {
		return
	}
	p.submoduleRuns.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncMerge() {
	if p == nil || p.merges == nil {
		return
	}
	p.merges.Inc()
}

func (p *PrometheusRecorder) IncPush() {
	if p == nil || p.pushes == nil {
		return
	}
	p.pushes.Inc()
}

func (p *PrometheusRecorder) IncRunOutcome(success bool) {
	if p == nil || p.runOutcome == nil {
		return
	}
	outcome := "failed"
	if success {
		outcome = "success"
	}
	p.runOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) SetUpdatedModules(n int) {
	if p == nil || p.updatedModules == nil {
		return
	}
	p.updatedModules.Set(float64(n))
}

func (p *PrometheusRecorder) SetMarkdownGate(open bool) {
	if p == nil || p.markdownGate == nil {
		return
	}
	v := 0.0
	if open {
		v = 1.0
	}
	p.markdownGate.Set(v)
}

// WriteTextfile exports the registry in the node-exporter textfile collector
// format. prometheus.WriteToTextfile writes atomically via a temp file.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if p == nil || p.registry == nil {
		return nil
	}
	if err := prom.WriteToTextfile(path, p.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
