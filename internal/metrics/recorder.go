// Package metrics records run observability counters.
//
// Components receive a Recorder through dependency injection; NoopRecorder is
// the default so metrics stay optional with zero overhead. The Prometheus
// implementation targets the node-exporter textfile collector because a sync
// run is a batch job with nothing long-lived to scrape.
package metrics

import "time"

// OutcomeLabel enumerates per-submodule reconciliation outcomes.
type OutcomeLabel string

const (
	OutcomeSuccess OutcomeLabel = "success"
	OutcomeSkipped OutcomeLabel = "skipped"
	OutcomeFailed  OutcomeLabel = "failed"
)

// Recorder defines observability hooks for sync runs. All methods must be
// safe on the zero value of each implementation.
type Recorder interface {
	ObserveRunDuration(d time.Duration)
	IncSubmoduleOutcome(outcome OutcomeLabel)
	IncMerge()
	IncPush()
	IncRunOutcome(success bool)
	SetUpdatedModules(n int)
	SetMarkdownGate(open bool)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveRunDuration(time.Duration)    {}
func (NoopRecorder) IncSubmoduleOutcome(OutcomeLabel)    {}
func (NoopRecorder) IncMerge()                           {}
func (NoopRecorder) IncPush()                            {}
func (NoopRecorder) IncRunOutcome(bool)                  {}
func (NoopRecorder) SetUpdatedModules(int)               {}
func (NoopRecorder) SetMarkdownGate(bool)                {}
