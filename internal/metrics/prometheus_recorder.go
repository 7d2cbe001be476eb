package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	buildDuration prom.Histogram
	nodeResults   *prom.CounterVec
	buildOutcome  *prom.CounterVec
	graphSize     prom.Gauge
}

// NewPrometheusRecorder constructs the build metrics and registers them with
// reg (nil means the default registerer). Registering the same metric names
// twice on one registerer panics, so construct at most one recorder per
// registerer.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	pr := &PrometheusRecorder{
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "sitegraph",
			Name:      "build_duration_seconds",
			Help:      "Total build pass duration",
			Buckets:   prom.DefBuckets,
		}),
		nodeResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitegraph",
			Name:      "node_results_total",
			Help:      "Terminal node states per build pass",
		}, []string{"result"}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitegraph",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		graphSize: prom.NewGauge(prom.GaugeOpts{
			Namespace: "sitegraph",
			Name:      "graph_nodes",
			Help:      "Node count of the last build graph",
		}),
	}
	reg.MustRegister(pr.buildDuration, pr.nodeResults, pr.buildOutcome, pr.graphSize)
	return pr
}

func (pr *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	pr.buildDuration.Observe(d.Seconds())
}

func (pr *PrometheusRecorder) IncNodeResult(result NodeResult) {
	pr.nodeResults.WithLabelValues(string(result)).Inc()
}

func (pr *PrometheusRecorder) IncBuildOutcome(outcome string) {
	pr.buildOutcome.WithLabelValues(outcome).Inc()
}

func (pr *PrometheusRecorder) SetGraphSize(n int) {
	pr.graphSize.Set(float64(n))
}
