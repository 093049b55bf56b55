// Package observability exports engine metrics to Prometheus.
//
// PrometheusCollector implements cslam.MetricsCollector and records per
// operation latency and counters. StatsCollector samples Engine.Stats on
// every scrape.
//
//	reg := prometheus.NewRegistry()
//	pc, _ := observability.NewPrometheusCollector(reg)
//	eng, _ := cslam.New(cfg, cslam.WithMetricsCollector(pc))
//	reg.MustRegister(observability.NewStatsCollector(eng))
package observability
