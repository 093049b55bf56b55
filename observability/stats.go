package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/anadon/cslam"
)

// StatsSource is implemented by *cslam.Engine.
type StatsSource interface {
	Stats() cslam.Stats
}

// StatsCollector exposes engine state as gauges sampled at scrape time.
type StatsCollector struct {
	src StatsSource

	localDesc  *prometheus.Desc
	remoteDesc *prometheus.Desc
	peers      *prometheus.Desc
	edges      *prometheus.Desc
	dimension  *prometheus.Desc
}

// NewStatsCollector returns a collector for src.
func NewStatsCollector(src StatsSource) *StatsCollector {
	labels := []string{"robot"}
	return &StatsCollector{
		src:        src,
		localDesc:  prometheus.NewDesc(namespace+"_local_descriptors", "Descriptors in the local index", labels, nil),
		remoteDesc: prometheus.NewDesc(namespace+"_remote_descriptors", "Descriptors across all peer indexes", labels, nil),
		peers:      prometheus.NewDesc(namespace+"_peers", "Peers with at least one stored descriptor", labels, nil),
		edges:      prometheus.NewDesc(namespace+"_candidate_edges", "Candidate edges currently stored", labels, nil),
		dimension:  prometheus.NewDesc(namespace+"_descriptor_dimension", "Descriptor-space dimension, 0 until fixed", labels, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.localDesc
	ch <- c.remoteDesc
	ch <- c.peers
	ch <- c.edges
	ch <- c.dimension
}

// Collect implements prometheus.Collector.
func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.src.Stats()
	robot := strconv.Itoa(int(st.RobotID))

	ch <- prometheus.MustNewConstMetric(c.localDesc, prometheus.GaugeValue, float64(st.LocalDescriptors), robot)
	ch <- prometheus.MustNewConstMetric(c.remoteDesc, prometheus.GaugeValue, float64(st.RemoteDescriptors), robot)
	ch <- prometheus.MustNewConstMetric(c.peers, prometheus.GaugeValue, float64(st.Peers), robot)
	ch <- prometheus.MustNewConstMetric(c.edges, prometheus.GaugeValue, float64(st.Edges), robot)
	ch <- prometheus.MustNewConstMetric(c.dimension, prometheus.GaugeValue, float64(st.Dimension), robot)
}
