package cslam

import (
	"sync/atomic"
	"time"

	"github.com/anadon/cslam/graph"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus;
// see the observability package for a ready-made implementation.
type MetricsCollector interface {
	// RecordAddLocal is called after each local descriptor insertion.
	RecordAddLocal(duration time.Duration, err error)

	// RecordAddRemote is called after each remote descriptor insertion.
	RecordAddRemote(peerID int32, duration time.Duration, err error)

	// RecordEdge is called for every candidate edge offered to the graph.
	RecordEdge(result graph.UpsertResult)

	// RecordSelect is called after each selection round.
	RecordSelect(requested, returned int, duration time.Duration)

	// RecordReject is called for every rejection reported by downstream verification.
	RecordReject(found bool)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAddLocal(time.Duration, error)         {}
func (NoopMetricsCollector) RecordAddRemote(int32, time.Duration, error) {}
func (NoopMetricsCollector) RecordEdge(graph.UpsertResult)               {}
func (NoopMetricsCollector) RecordSelect(int, int, time.Duration)        {}
func (NoopMetricsCollector) RecordReject(bool)                           {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AddLocalCount     atomic.Int64
	AddLocalErrors    atomic.Int64
	AddLocalNanos     atomic.Int64
	AddRemoteCount    atomic.Int64
	AddRemoteErrors   atomic.Int64
	AddRemoteNanos    atomic.Int64
	EdgesInserted     atomic.Int64
	EdgesReplaced     atomic.Int64
	EdgesDiscarded    atomic.Int64
	SelectCount       atomic.Int64
	SelectedEdges     atomic.Int64
	SelectNanos       atomic.Int64
	RejectCount       atomic.Int64
	RejectUnknownEdge atomic.Int64
}

// RecordAddLocal implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAddLocal(duration time.Duration, err error) {
	b.AddLocalCount.Add(1)
	b.AddLocalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AddLocalErrors.Add(1)
	}
}

// RecordAddRemote implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAddRemote(_ int32, duration time.Duration, err error) {
	b.AddRemoteCount.Add(1)
	b.AddRemoteNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AddRemoteErrors.Add(1)
	}
}

// RecordEdge implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEdge(result graph.UpsertResult) {
	switch result {
	case graph.Inserted:
		b.EdgesInserted.Add(1)
	case graph.Replaced:
		b.EdgesReplaced.Add(1)
	default:
		b.EdgesDiscarded.Add(1)
	}
}

// RecordSelect implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSelect(_, returned int, duration time.Duration) {
	b.SelectCount.Add(1)
	b.SelectedEdges.Add(int64(returned))
	b.SelectNanos.Add(duration.Nanoseconds())
}

// RecordReject implements MetricsCollector.
func (b *BasicMetricsCollector) RecordReject(found bool) {
	b.RejectCount.Add(1)
	if !found {
		b.RejectUnknownEdge.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AddLocalCount:     b.AddLocalCount.Load(),
		AddLocalErrors:    b.AddLocalErrors.Load(),
		AddLocalAvgNanos:  avg(b.AddLocalNanos.Load(), b.AddLocalCount.Load()),
		AddRemoteCount:    b.AddRemoteCount.Load(),
		AddRemoteErrors:   b.AddRemoteErrors.Load(),
		AddRemoteAvgNanos: avg(b.AddRemoteNanos.Load(), b.AddRemoteCount.Load()),
		EdgesInserted:     b.EdgesInserted.Load(),
		EdgesReplaced:     b.EdgesReplaced.Load(),
		EdgesDiscarded:    b.EdgesDiscarded.Load(),
		SelectCount:       b.SelectCount.Load(),
		SelectedEdges:     b.SelectedEdges.Load(),
		SelectAvgNanos:    avg(b.SelectNanos.Load(), b.SelectCount.Load()),
		RejectCount:       b.RejectCount.Load(),
		RejectUnknownEdge: b.RejectUnknownEdge.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AddLocalCount     int64
	AddLocalErrors    int64
	AddLocalAvgNanos  int64
	AddRemoteCount    int64
	AddRemoteErrors   int64
	AddRemoteAvgNanos int64
	EdgesInserted     int64
	EdgesReplaced     int64
	EdgesDiscarded    int64
	SelectCount       int64
	SelectedEdges     int64
	SelectAvgNanos    int64
	RejectCount       int64
	RejectUnknownEdge int64
}
