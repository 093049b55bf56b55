package cslam

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/anadon/cslam/graph"
	"github.com/anadon/cslam/index"
	"github.com/anadon/cslam/selector"
	"github.com/anadon/cslam/similarity"
)

// Engine is the loop-closure candidate engine of one robot.
//
// It owns the local descriptor index, one index per peer robot and the
// candidate graph. Every public operation runs as a single critical section,
// so insertion, neighbour query and graph update are atomic per call.
type Engine struct {
	mu sync.Mutex

	cfg      Config
	model    similarity.Model
	local    *index.Index
	remote   *index.Set
	graph    *graph.Graph
	selector *selector.Selector

	// dim is the descriptor-space dimension shared by all indexes,
	// fixed by the first accepted descriptor.
	dim    int
	closed bool

	logger  *Logger
	metrics MetricsCollector
	tracer  trace.Tracer
}

// Stats is a point-in-time summary of engine state.
type Stats struct {
	RobotID           int32
	Dimension         int
	LocalDescriptors  int
	Peers             int
	RemoteDescriptors int
	Edges             int
}

// New creates an engine for cfg.
func New(cfg Config, optFns ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := applyOptions(optFns)

	model, err := similarity.NewModel(cfg.Frontend.SimilarityLoc, cfg.Frontend.SimilarityScale)
	if err != nil {
		return nil, err
	}

	metric := cfg.Frontend.Metric
	withMetric := func(opts *index.Options) { opts.Metric = metric }

	local, err := index.New(withMetric)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:    cfg,
		model:  model,
		local:  local,
		remote: index.NewSet(cfg.NbRobots, withMetric),
		graph:  graph.New(0),
		selector: selector.New(func(opts *selector.Options) {
			opts.SelfRobotID = cfg.RobotID
			opts.Threshold = cfg.Frontend.SimilarityThreshold
		}),
		logger:  o.logger.WithRobot(cfg.RobotID),
		metrics: o.metricsCollector,
		tracer:  o.tracer,
	}, nil
}

// Config returns the configuration the engine was created with.
func (e *Engine) Config() Config { return e.cfg }

// AddLocal stores a descriptor of one of this robot's keyframes and matches it
// against every peer index. At most one edge per peer is produced.
//
// Empty or mismatched descriptors are refused before anything is stored. Once
// stored, the descriptor stays even if a peer query fails; edges from the
// peers that answered are kept and the first query error is returned.
func (e *Engine) AddLocal(ctx context.Context, vector []float64, imageID int64) (err error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "Engine.AddLocal", trace.WithAttributes(
		attribute.Int64("cslam.image_id", imageID),
		attribute.Int("cslam.dimension", len(vector)),
	))
	edges := 0
	defer func() {
		endSpan(span, err)
		e.metrics.RecordAddLocal(time.Since(start), err)
		e.logger.LogAddLocal(ctx, imageID, len(vector), edges, err)
	}()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if err := e.checkSpace(len(vector)); err != nil {
		return err
	}
	if _, err := e.local.Add(imageID, vector); err != nil {
		return translateError(err)
	}
	e.dim = len(vector)

	matches, err := e.queryPeers(vector)
	for _, m := range matches {
		e.upsert(graph.Edge{
			Robot0ID:   e.cfg.RobotID,
			Image0ID:   imageID,
			Robot1ID:   m.peerID,
			Image1ID:   m.ImageID,
			Similarity: e.model.Similarity(m.Distance),
		})
		edges++
	}
	span.SetAttributes(attribute.Int("cslam.edges", edges))

	return translateError(err)
}

// AddRemote stores a descriptor received from a peer robot and matches it
// against the local index. The peer's index is created on first sight, for
// any robot id other than this robot's own.
//
// On error the descriptor is not stored.
func (e *Engine) AddRemote(ctx context.Context, msg GlobalDescriptorMessage) (err error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "Engine.AddRemote", trace.WithAttributes(
		attribute.Int64("cslam.image_id", msg.ImageID),
		attribute.Int("cslam.peer_id", int(msg.RobotID)),
		attribute.Int("cslam.dimension", len(msg.Descriptor)),
	))
	edges := 0
	defer func() {
		endSpan(span, err)
		e.metrics.RecordAddRemote(msg.RobotID, time.Since(start), err)
		e.logger.LogAddRemote(ctx, msg.RobotID, msg.ImageID, edges, err)
	}()

	if msg.RobotID == e.cfg.RobotID {
		return ErrSelfDescriptor
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if err := e.checkSpace(len(msg.Descriptor)); err != nil {
		return err
	}

	_, known := e.remote.Get(msg.RobotID)
	if _, err := e.remote.Add(msg.RobotID, msg.ImageID, msg.Descriptor); err != nil {
		return translateError(err)
	}
	e.dim = len(msg.Descriptor)
	if !known {
		e.logger.LogNewPeer(ctx, msg.RobotID, e.dim)
	}

	m, ok, err := e.local.Nearest(msg.Descriptor)
	if err != nil {
		return translateError(err)
	}
	if ok {
		e.upsert(graph.Edge{
			Robot0ID:   e.cfg.RobotID,
			Image0ID:   m.ImageID,
			Robot1ID:   msg.RobotID,
			Image1ID:   msg.ImageID,
			Similarity: e.model.Similarity(m.Distance),
		})
		edges++
	}

	return nil
}

// Select returns up to nbCandidates edges, balanced across the peers marked
// true in considered. Peers missing from considered are excluded. Selection
// does not remove edges. The result is never nil.
func (e *Engine) Select(ctx context.Context, nbCandidates int, considered map[int32]bool) []CandidateEdge {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "Engine.Select", trace.WithAttributes(
		attribute.Int("cslam.requested", nbCandidates),
	))
	defer span.End()

	robots := selector.Considered(considered)

	e.mu.Lock()
	var out []CandidateEdge
	if e.closed || nbCandidates <= 0 {
		out = []CandidateEdge{}
	} else {
		out = e.selector.SelectFrom(e.graph.Entries(), nbCandidates, robots)
	}
	e.mu.Unlock()

	span.SetAttributes(attribute.Int("cslam.returned", len(out)))
	e.metrics.RecordSelect(nbCandidates, len(out), time.Since(start))
	e.logger.LogSelect(ctx, nbCandidates, int(robots.GetCardinality()), len(out))

	return out
}

// Reject reports that downstream verification failed for the edge under key.
// The edge stays stored but is ranked after unrejected edges of the same peer.
// It returns false if no such edge exists.
func (e *Engine) Reject(ctx context.Context, key EdgeKey) bool {
	e.mu.Lock()
	n, found := e.graph.Reject(key)
	e.mu.Unlock()

	e.metrics.RecordReject(found)
	e.logger.LogReject(ctx, key, n, found)
	return found
}

// Consume removes the edge under key, typically after it was verified.
// It returns false if no such edge exists.
func (e *Engine) Consume(_ context.Context, key EdgeKey) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.Consume(key)
}

// Edge returns the edge stored under key.
func (e *Engine) Edge(key EdgeKey) (CandidateEdge, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.Get(key)
}

// Edges returns a copy of all stored edges in unspecified order.
func (e *Engine) Edges() []CandidateEdge {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.graph.Edges()
}

// LastLocal returns a copy of the most recently stored local descriptor.
func (e *Engine) LastLocal() (GlobalDescriptor, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	row, ok := e.local.Last()
	if !ok {
		return GlobalDescriptor{}, false
	}
	return GlobalDescriptor{ImageID: row.ImageID, RobotID: e.cfg.RobotID, Vector: row.Vector}, true
}

// LastRemote returns a copy of the most recently stored descriptor of peerID.
func (e *Engine) LastRemote(peerID int32) (GlobalDescriptor, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	x, ok := e.remote.Get(peerID)
	if !ok {
		return GlobalDescriptor{}, false
	}
	row, ok := x.Last()
	if !ok {
		return GlobalDescriptor{}, false
	}
	return GlobalDescriptor{ImageID: row.ImageID, RobotID: peerID, Vector: row.Vector}, true
}

// Peers returns the ids of peers with stored descriptors, ascending.
func (e *Engine) Peers() []int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remote.Robots()
}

// Stats returns a summary of the engine state.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Stats{
		RobotID:           e.cfg.RobotID,
		Dimension:         e.dim,
		LocalDescriptors:  e.local.Len(),
		Peers:             e.remote.Len(),
		RemoteDescriptors: e.remote.Size(),
		Edges:             e.graph.Len(),
	}
}

// Close marks the engine closed. Later insertions fail with ErrClosed and
// selections return no edges. Close is idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

type peerMatch struct {
	index.Match
	peerID int32
}

// queryPeers finds the nearest row of every non-empty peer index.
// Matches found before an error are still returned.
func (e *Engine) queryPeers(q []float64) ([]peerMatch, error) {
	peers := e.remote.Robots()
	if len(peers) == 0 {
		return nil, nil
	}

	results := make([]peerMatch, len(peers))
	found := make([]bool, len(peers))

	var g errgroup.Group
	g.SetLimit(max(1, e.cfg.Frontend.QueryConcurrency))
	for i, peerID := range peers {
		x, _ := e.remote.Get(peerID)
		g.Go(func() error {
			m, ok, err := x.Nearest(q)
			if err != nil {
				return fmt.Errorf("query peer %d: %w", peerID, err)
			}
			results[i] = peerMatch{Match: m, peerID: peerID}
			found[i] = ok
			return nil
		})
	}
	err := g.Wait()

	out := results[:0]
	for i, r := range results {
		if found[i] {
			out = append(out, r)
		}
	}
	return out, err
}

func (e *Engine) upsert(edge graph.Edge) {
	e.metrics.RecordEdge(e.graph.Upsert(edge))
}

// checkSpace validates a descriptor length against the descriptor space.
// The per-index check happens on insertion.
func (e *Engine) checkSpace(n int) error {
	if n == 0 {
		return ErrEmptyDescriptor
	}
	if e.dim != 0 && n != e.dim {
		return &ErrDimensionMismatch{Expected: e.dim, Actual: n}
	}
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
