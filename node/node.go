// Package node drives an engine from the asynchronous event sources of a
// robot: keyframe production, inbound peer descriptors and a selection
// cadence.
package node

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/anadon/cslam"
)

// Engine is the subset of *cslam.Engine a Node drives.
type Engine interface {
	AddLocal(ctx context.Context, vector []float64, imageID int64) error
	AddRemote(ctx context.Context, msg cslam.GlobalDescriptorMessage) error
	Select(ctx context.Context, nbCandidates int, considered map[int32]bool) []cslam.CandidateEdge
	Peers() []int32
}

// Keyframe is a descriptor of one of this robot's keyframes.
type Keyframe struct {
	ImageID    int64
	Descriptor []float64
}

// Trigger tells why a batch was selected.
type Trigger string

const (
	TriggerPeriodic Trigger = "periodic"
	TriggerManual   Trigger = "manual"
	TriggerDrain    Trigger = "drain"
)

// Batch is the result of one selection round.
type Batch struct {
	Seq     uint64
	Trigger Trigger
	At      time.Time
	Edges   []cslam.CandidateEdge
}

// Options configures a Node.
type Options struct {
	// NbCandidates is the number of edges requested per selection.
	NbCandidates int

	// Period is the interval of periodic selections. Zero disables them.
	Period time.Duration

	// MinInterval is the minimum spacing of manual selections. Triggers
	// arriving faster are dropped.
	MinInterval time.Duration

	// Considered returns the robots eligible for the next selection, e.g. the
	// ones currently in communication range. Nil considers every known peer.
	Considered func() map[int32]bool

	// SelectOnDrain runs one last selection once both inputs are closed.
	SelectOnDrain bool

	// OutBuffer is the capacity of the Out channel.
	OutBuffer int

	Logger *cslam.Logger
}

// DefaultOptions contains the default node options.
var DefaultOptions = Options{
	NbCandidates: 10,
	Period:       time.Second,
	MinInterval:  100 * time.Millisecond,
	OutBuffer:    1,
}

// Counters are the message counters of a Node.
type Counters struct {
	Keyframes       uint64
	Descriptors     uint64
	Failed          uint64
	Batches         uint64
	DroppedTriggers uint64
}

// Node feeds an Engine and publishes selection batches.
type Node struct {
	eng         Engine
	keyframes   <-chan Keyframe
	descriptors <-chan cslam.GlobalDescriptorMessage

	opts    Options
	limiter *rate.Limiter
	trigger chan struct{}
	out     chan Batch

	seq             atomic.Uint64
	nKeyframes      atomic.Uint64
	nDescriptors    atomic.Uint64
	nFailed         atomic.Uint64
	droppedTriggers atomic.Uint64
	running         atomic.Bool
}

// New creates a Node. Either input channel may be nil.
func New(eng Engine, keyframes <-chan Keyframe, descriptors <-chan cslam.GlobalDescriptorMessage, optFns ...func(o *Options)) *Node {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = cslam.NoopLogger()
	}
	if opts.OutBuffer < 0 {
		opts.OutBuffer = 0
	}

	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}

	return &Node{
		eng:         eng,
		keyframes:   keyframes,
		descriptors: descriptors,
		opts:        opts,
		limiter:     rate.NewLimiter(limit, 1),
		trigger:     make(chan struct{}, 1),
		out:         make(chan Batch, opts.OutBuffer),
	}
}

// Out returns the channel batches are published on. It is closed when Run returns.
func (n *Node) Out() <-chan Batch {
	return n.out
}

// Trigger requests a selection outside the periodic cadence. It never blocks.
// It reports false if the request was dropped by the rate limit or because
// one is already pending.
func (n *Node) Trigger() bool {
	if !n.limiter.Allow() {
		n.droppedTriggers.Add(1)
		return false
	}
	select {
	case n.trigger <- struct{}{}:
		return true
	default:
		n.droppedTriggers.Add(1)
		return false
	}
}

// Counters returns a snapshot of the node's counters.
func (n *Node) Counters() Counters {
	return Counters{
		Keyframes:       n.nKeyframes.Load(),
		Descriptors:     n.nDescriptors.Load(),
		Failed:          n.nFailed.Load(),
		Batches:         n.seq.Load(),
		DroppedTriggers: n.droppedTriggers.Load(),
	}
}

// Run processes inputs until ctx is cancelled or both inputs are closed.
// It returns nil once the inputs are drained and ctx.Err() on cancellation.
// Per-message errors are logged and counted, never returned. Run may be
// called once.
func (n *Node) Run(ctx context.Context) error {
	if !n.running.CompareAndSwap(false, true) {
		return errAlreadyRunning
	}
	defer close(n.out)

	g, gctx := errgroup.WithContext(ctx)
	drained := make(chan struct{})

	var ingest errgroup.Group
	ingest.Go(func() error { return n.consumeKeyframes(gctx) })
	ingest.Go(func() error { return n.consumeDescriptors(gctx) })
	g.Go(func() error {
		err := ingest.Wait()
		close(drained)
		return err
	})
	g.Go(func() error { return n.selectLoop(gctx, drained) })

	return g.Wait()
}

func (n *Node) consumeKeyframes(ctx context.Context) error {
	if n.keyframes == nil {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case kf, ok := <-n.keyframes:
			if !ok {
				return nil
			}
			n.nKeyframes.Add(1)
			if err := n.eng.AddLocal(ctx, kf.Descriptor, kf.ImageID); err != nil {
				n.nFailed.Add(1)
				n.opts.Logger.WarnContext(ctx, "dropped keyframe descriptor", "image_id", kf.ImageID, "error", err)
			}
		}
	}
}

func (n *Node) consumeDescriptors(ctx context.Context) error {
	if n.descriptors == nil {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-n.descriptors:
			if !ok {
				return nil
			}
			n.nDescriptors.Add(1)
			if err := n.eng.AddRemote(ctx, msg); err != nil {
				n.nFailed.Add(1)
				n.opts.Logger.WarnContext(ctx, "dropped peer descriptor",
					"peer_id", msg.RobotID, "image_id", msg.ImageID, "error", err)
			}
		}
	}
}

func (n *Node) selectLoop(ctx context.Context, drained <-chan struct{}) error {
	var tick <-chan time.Time
	if n.opts.Period > 0 {
		ticker := time.NewTicker(n.opts.Period)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-drained:
			if n.opts.SelectOnDrain {
				return n.publish(ctx, TriggerDrain)
			}
			return nil
		case <-tick:
			if err := n.publish(ctx, TriggerPeriodic); err != nil {
				return err
			}
		case <-n.trigger:
			if err := n.publish(ctx, TriggerManual); err != nil {
				return err
			}
		}
	}
}

func (n *Node) publish(ctx context.Context, trigger Trigger) error {
	considered := n.considered()
	edges := n.eng.Select(ctx, n.opts.NbCandidates, considered)

	b := Batch{
		Seq:     n.seq.Add(1),
		Trigger: trigger,
		At:      time.Now(),
		Edges:   edges,
	}
	n.opts.Logger.DebugContext(ctx, "published candidate batch",
		"seq", b.Seq, "trigger", string(trigger), "edges", len(edges))

	select {
	case n.out <- b:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Node) considered() map[int32]bool {
	if n.opts.Considered != nil {
		return n.opts.Considered()
	}
	peers := n.eng.Peers()
	m := make(map[int32]bool, len(peers))
	for _, p := range peers {
		m[p] = true
	}
	return m
}
