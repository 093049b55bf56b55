package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/anadon/cslam"
	"github.com/anadon/cslam/graph"
)

const namespace = "cslam"

var _ cslam.MetricsCollector = (*PrometheusCollector)(nil)

// PrometheusCollector implements cslam.MetricsCollector on Prometheus metrics.
type PrometheusCollector struct {
	opLatency  *prometheus.HistogramVec
	remoteAdds *prometheus.CounterVec
	edges      *prometheus.CounterVec
	selected   prometheus.Counter
	shortfall  prometheus.Counter
	rejections *prometheus.CounterVec
}

// NewPrometheusCollector creates the collector and registers its metrics on reg.
// A nil reg means prometheus.DefaultRegisterer.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &PrometheusCollector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of engine operations",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}, []string{"op", "status"}),
		remoteAdds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_descriptors_total",
			Help:      "Remote descriptors offered to the engine, by peer",
		}, []string{"peer"}),
		edges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidate_edges_total",
			Help:      "Candidate edges offered to the graph, by outcome",
		}, []string{"result"}),
		selected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selected_edges_total",
			Help:      "Candidate edges returned by selection",
		}),
		shortfall: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selection_shortfall_total",
			Help:      "Requested candidates that selection could not provide",
		}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Verification rejections reported, by whether the edge was known",
		}, []string{"found"}),
	}

	for _, col := range []prometheus.Collector{c.opLatency, c.remoteAdds, c.edges, c.selected, c.shortfall, c.rejections} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordAddLocal implements cslam.MetricsCollector.
func (c *PrometheusCollector) RecordAddLocal(d time.Duration, err error) {
	c.opLatency.WithLabelValues("add_local", status(err)).Observe(d.Seconds())
}

// RecordAddRemote implements cslam.MetricsCollector.
func (c *PrometheusCollector) RecordAddRemote(peerID int32, d time.Duration, err error) {
	c.opLatency.WithLabelValues("add_remote", status(err)).Observe(d.Seconds())
	c.remoteAdds.WithLabelValues(strconv.Itoa(int(peerID))).Inc()
}

// RecordEdge implements cslam.MetricsCollector.
func (c *PrometheusCollector) RecordEdge(result graph.UpsertResult) {
	c.edges.WithLabelValues(result.String()).Inc()
}

// RecordSelect implements cslam.MetricsCollector.
func (c *PrometheusCollector) RecordSelect(requested, returned int, d time.Duration) {
	c.opLatency.WithLabelValues("select", "success").Observe(d.Seconds())
	c.selected.Add(float64(returned))
	if requested > returned {
		c.shortfall.Add(float64(requested - returned))
	}
}

// RecordReject implements cslam.MetricsCollector.
func (c *PrometheusCollector) RecordReject(found bool) {
	c.rejections.WithLabelValues(strconv.FormatBool(found)).Inc()
}
