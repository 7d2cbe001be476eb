package metrics

import "time"

// NodeResult enumerates terminal node states for counters.
type NodeResult string

const (
	ResultRendered         NodeResult = "rendered"
	ResultClean            NodeResult = "clean"
	ResultFailed           NodeResult = "failed"
	ResultFailedDependency NodeResult = "failed_dependency"
)

// Recorder defines observability hooks for build metrics. Implementations may
// forward to Prometheus, OpenTelemetry, etc. The NoopRecorder allows optional
// injection.
type Recorder interface {
	ObserveBuildDuration(d time.Duration)
	IncNodeResult(result NodeResult)
	IncBuildOutcome(outcome string)
	SetGraphSize(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveBuildDuration(time.Duration) {}
func (NoopRecorder) IncNodeResult(NodeResult)           {}
func (NoopRecorder) IncBuildOutcome(string)             {}
func (NoopRecorder) SetGraphSize(int)                   {}
