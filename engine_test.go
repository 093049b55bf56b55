package cslam

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anadon/cslam/distance"
	"github.com/anadon/cslam/index"
	"github.com/anadon/cslam/testutil"
)

func testConfig(robotID int32, nbRobots int) Config {
	cfg := DefaultConfig()
	cfg.RobotID = robotID
	cfg.NbRobots = nbRobots
	cfg.Frontend.SimilarityThreshold = 0.0
	cfg.Frontend.SimilarityLoc = 1.0
	cfg.Frontend.SimilarityScale = 0.25
	return cfg
}

func newEngine(t *testing.T, robotID int32, nbRobots int, opts ...Option) *Engine {
	t.Helper()
	eng, err := New(testConfig(robotID, nbRobots), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func allRobots(n int) map[int32]bool {
	m := make(map[int32]bool, n)
	for i := range n {
		m[int32(i)] = true
	}
	return m
}

func TestNew(t *testing.T) {
	t.Run("InvalidConfig", func(t *testing.T) {
		cfg := testConfig(0, 2)
		cfg.Frontend.SimilarityScale = 0
		_, err := New(cfg)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("NilOptions", func(t *testing.T) {
		eng, err := New(testConfig(0, 2), nil, WithLogger(nil), WithMetricsCollector(nil))
		require.NoError(t, err)
		assert.Equal(t, int32(0), eng.Config().RobotID)
	})
}

func TestAddLocal(t *testing.T) {
	ctx := context.Background()

	t.Run("StoresExactCopy", func(t *testing.T) {
		eng := newEngine(t, 0, 2)
		descriptor := testutil.NewRNG(1).UniformVector(10)

		require.NoError(t, eng.AddLocal(ctx, descriptor, 1))

		last, ok := eng.LastLocal()
		require.True(t, ok)
		assert.Equal(t, int64(1), last.ImageID)
		assert.Equal(t, int32(0), last.RobotID)
		assert.Equal(t, descriptor, last.Vector)
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		eng := newEngine(t, 0, 2)
		require.NoError(t, eng.AddLocal(ctx, []float64{1, 2, 3}, 1))

		err := eng.AddLocal(ctx, []float64{1, 2}, 2)
		var dm *ErrDimensionMismatch
		require.ErrorAs(t, err, &dm)
		assert.Equal(t, 3, dm.Expected)
		assert.Equal(t, 2, dm.Actual)

		last, _ := eng.LastLocal()
		assert.Equal(t, int64(1), last.ImageID, "rejected descriptor must not be stored")
		assert.Equal(t, 1, eng.Stats().LocalDescriptors)
	})

	t.Run("Empty", func(t *testing.T) {
		eng := newEngine(t, 0, 2)
		assert.ErrorIs(t, eng.AddLocal(ctx, nil, 1), ErrEmptyDescriptor)
		_, ok := eng.LastLocal()
		assert.False(t, ok)
	})

	t.Run("MismatchAgainstPeerRefusedBeforeStore", func(t *testing.T) {
		eng := newEngine(t, 0, 2)
		require.NoError(t, eng.AddRemote(ctx, GlobalDescriptorMessage{ImageID: 0, RobotID: 1, Descriptor: []float64{1, 2, 3}}))

		var dm *ErrDimensionMismatch
		require.ErrorAs(t, eng.AddLocal(ctx, []float64{1, 2}, 5), &dm)
		assert.Equal(t, 3, dm.Expected)

		_, ok := eng.LastLocal()
		assert.False(t, ok)
		assert.Empty(t, eng.Edges())
		assert.Equal(t, 0, eng.Stats().LocalDescriptors)
	})

	t.Run("NoPeersNoEdges", func(t *testing.T) {
		eng := newEngine(t, 0, 2)
		require.NoError(t, eng.AddLocal(ctx, []float64{1, 2}, 1))
		assert.Empty(t, eng.Edges())
	})

	t.Run("OneEdgePerPeer", func(t *testing.T) {
		eng := newEngine(t, 0, 4)
		rng := testutil.NewRNG(2)

		peerVectors := map[int32][][]float64{}
		for _, peer := range []int32{1, 2, 3} {
			for i := range 5 {
				v := rng.UniformVector(8)
				peerVectors[peer] = append(peerVectors[peer], v)
				require.NoError(t, eng.AddRemote(ctx, GlobalDescriptorMessage{ImageID: int64(i), RobotID: peer, Descriptor: v}))
			}
		}
		before := len(eng.Edges())

		q := rng.UniformVector(8)
		require.NoError(t, eng.AddLocal(ctx, q, 100))

		var fromQuery []CandidateEdge
		for _, e := range eng.Edges() {
			if e.Image0ID == 100 {
				fromQuery = append(fromQuery, e)
			}
		}
		require.Len(t, fromQuery, 3)
		assert.Equal(t, before+3, len(eng.Edges()))

		for _, e := range fromQuery {
			want, _ := testutil.ExactNearest(q, peerVectors[e.Robot1ID], distance.Euclidean)
			assert.Equal(t, int64(want), e.Image1ID, "peer %d", e.Robot1ID)
			assert.Equal(t, int32(0), e.Robot0ID)
		}
	})
}

func TestAddRemote(t *testing.T) {
	ctx := context.Background()

	t.Run("StoresExactCopy", func(t *testing.T) {
		eng := newEngine(t, 0, 2)
		descriptor := testutil.NewRNG(3).UniformVector(10)

		require.NoError(t, eng.AddRemote(ctx, GlobalDescriptorMessage{ImageID: 0, RobotID: 1, Descriptor: descriptor}))

		last, ok := eng.LastRemote(1)
		require.True(t, ok)
		assert.Equal(t, descriptor, last.Vector)
		assert.Equal(t, int32(1), last.RobotID)
		assert.Equal(t, []int32{1}, eng.Peers())

		_, ok = eng.LastRemote(2)
		assert.False(t, ok)
	})

	t.Run("UnknownRobotCreatesIndex", func(t *testing.T) {
		eng := newEngine(t, 0, 2)
		require.NoError(t, eng.AddRemote(ctx, GlobalDescriptorMessage{ImageID: 0, RobotID: 17, Descriptor: []float64{1}}))
		assert.Equal(t, 1, eng.Stats().Peers)
	})

	t.Run("SelfRobot", func(t *testing.T) {
		eng := newEngine(t, 0, 2)
		assert.ErrorIs(t, eng.AddRemote(ctx, GlobalDescriptorMessage{RobotID: 0, Descriptor: []float64{1}}), ErrSelfDescriptor)
		assert.Equal(t, 0, eng.Stats().Peers)
	})

	t.Run("NegativeRobotIsAPeer", func(t *testing.T) {
		eng := newEngine(t, 0, 3)
		require.NoError(t, eng.AddLocal(ctx, []float64{0, 0}, 0))
		require.NoError(t, eng.AddRemote(ctx, GlobalDescriptorMessage{ImageID: 4, RobotID: -3, Descriptor: []float64{0, 0.1}}))
		require.NoError(t, eng.AddRemote(ctx, GlobalDescriptorMessage{ImageID: 5, RobotID: 2, Descriptor: []float64{0, 0.2}}))

		assert.Equal(t, []int32{-3, 2}, eng.Peers())
		last, ok := eng.LastRemote(-3)
		require.True(t, ok)
		assert.Equal(t, int64(4), last.ImageID)

		got := eng.Select(ctx, 10, map[int32]bool{-3: true, 2: true})
		require.Len(t, got, 2)
		peers := []int32{got[0].Robot1ID, got[1].Robot1ID}
		assert.ElementsMatch(t, []int32{-3, 2}, peers)

		got = eng.Select(ctx, 10, map[int32]bool{2: true})
		require.Len(t, got, 1)
		assert.Equal(t, int32(2), got[0].Robot1ID)
	})

	t.Run("DimensionMismatchAgainstLocal", func(t *testing.T) {
		eng := newEngine(t, 0, 3)
		require.NoError(t, eng.AddLocal(ctx, []float64{1, 2, 3}, 1))

		err := eng.AddRemote(ctx, GlobalDescriptorMessage{ImageID: 0, RobotID: 2, Descriptor: []float64{1, 2}})
		var dm *ErrDimensionMismatch
		require.ErrorAs(t, err, &dm)
		assert.Equal(t, 3, dm.Expected)

		_, ok := eng.LastRemote(2)
		assert.False(t, ok, "rejected descriptor must not create a peer index")
	})

	t.Run("DimensionMismatchAcrossPeers", func(t *testing.T) {
		eng := newEngine(t, 0, 3)
		require.NoError(t, eng.AddRemote(ctx, GlobalDescriptorMessage{ImageID: 0, RobotID: 1, Descriptor: []float64{1, 2}}))

		err := eng.AddRemote(ctx, GlobalDescriptorMessage{ImageID: 0, RobotID: 2, Descriptor: []float64{1, 2, 3}})
		assert.IsType(t, &ErrDimensionMismatch{}, err)

		// Local descriptors must follow the established space too.
		err = eng.AddLocal(ctx, []float64{1, 2, 3}, 0)
		assert.IsType(t, &ErrDimensionMismatch{}, err)
		assert.Equal(t, 0, eng.Stats().LocalDescriptors)
	})

	t.Run("MatchesBestLocal", func(t *testing.T) {
		eng := newEngine(t, 0, 2)
		require.NoError(t, eng.AddLocal(ctx, []float64{0, 0}, 10))
		require.NoError(t, eng.AddLocal(ctx, []float64{5, 5}, 11))

		require.NoError(t, eng.AddRemote(ctx, GlobalDescriptorMessage{ImageID: 3, RobotID: 1, Descriptor: []float64{4.9, 5}}))

		e, ok := eng.Edge(EdgeKey{Robot0ID: 0, Image0ID: 11, Robot1ID: 1, Image1ID: 3})
		require.True(t, ok)
		assert.Greater(t, e.Similarity, 0.95)
		assert.Len(t, eng.Edges(), 1)
	})
}

func TestMatches(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, 0, 2)
	rng := testutil.NewRNG(42)

	descriptor0 := rng.UniformVector(10)
	descriptor0[0], descriptor0[1] = 0.1, 0.1
	require.NoError(t, eng.AddLocal(ctx, descriptor0, 2))

	descriptor1 := testutil.Complement(descriptor0)
	require.NoError(t, eng.AddRemote(ctx, GlobalDescriptorMessage{ImageID: 3, RobotID: 1, Descriptor: descriptor1}))

	descriptor2 := append([]float64(nil), descriptor0...)
	descriptor2[0] = 0.0
	descriptor2[1] = 0.0
	require.NoError(t, eng.AddRemote(ctx, GlobalDescriptorMessage{ImageID: 4, RobotID: 1, Descriptor: descriptor2}))

	near, ok := eng.Edge(EdgeKey{Robot0ID: 0, Image0ID: 2, Robot1ID: 1, Image1ID: 4})
	require.True(t, ok)
	far, ok := eng.Edge(EdgeKey{Robot0ID: 0, Image0ID: 2, Robot1ID: 1, Image1ID: 3})
	require.True(t, ok)
	assert.Greater(t, near.Similarity, far.Similarity)

	// The best edge for this local image and peer is the near-identical one.
	got := eng.Select(ctx, 1, allRobots(2))
	require.Len(t, got, 1)
	assert.Equal(t, int64(4), got[0].Image1ID)

	last, _ := eng.LastRemote(1)
	assert.Equal(t, descriptor2, last.Vector)
}

func TestSelect(t *testing.T) {
	ctx := context.Background()

	populate := func(t *testing.T, eng *Engine, peers []int32, perPeer int) {
		t.Helper()
		rng := testutil.NewRNG(99)
		for i := range 100 {
			require.NoError(t, eng.AddLocal(ctx, rng.UniformVector(10), int64(i)))
		}
		for _, peer := range peers {
			for i := range perPeer {
				msg := GlobalDescriptorMessage{ImageID: int64(i), RobotID: peer, Descriptor: rng.UniformVector(10)}
				require.NoError(t, eng.AddRemote(ctx, msg))
			}
		}
	}

	t.Run("TwoPeers", func(t *testing.T) {
		eng := newEngine(t, 0, 3)
		populate(t, eng, []int32{1, 2}, 100)

		got := eng.Select(ctx, 20, allRobots(3))
		require.Len(t, got, 20)

		counts := map[int32]int{}
		for _, e := range got {
			counts[e.Robot1ID]++
		}
		assert.Equal(t, 10, counts[1])
		assert.Equal(t, 10, counts[2])
	})

	t.Run("RobotOneOutOfRange", func(t *testing.T) {
		eng := newEngine(t, 0, 4)
		populate(t, eng, []int32{2, 3}, 100)

		got := eng.Select(ctx, 20, allRobots(4))
		assert.Len(t, got, 20)
	})

	t.Run("NonZeroSelf", func(t *testing.T) {
		eng := newEngine(t, 1, 4)
		populate(t, eng, []int32{2, 3}, 100)

		got := eng.Select(ctx, 20, allRobots(4))
		require.Len(t, got, 20)
		for _, e := range got {
			assert.Equal(t, int32(1), e.Robot0ID)
			assert.NotEqual(t, int32(1), e.Robot1ID)
		}
	})

	t.Run("ExcludedRobotNeverReturned", func(t *testing.T) {
		eng := newEngine(t, 0, 3)
		require.NoError(t, eng.AddLocal(ctx, []float64{0, 0}, 0))
		// Peer 1 matches perfectly, peer 2 poorly.
		require.NoError(t, eng.AddRemote(ctx, GlobalDescriptorMessage{ImageID: 0, RobotID: 1, Descriptor: []float64{0, 0}}))
		require.NoError(t, eng.AddRemote(ctx, GlobalDescriptorMessage{ImageID: 0, RobotID: 2, Descriptor: []float64{3, 3}}))

		got := eng.Select(ctx, 5, map[int32]bool{0: true, 1: false, 2: true})
		require.Len(t, got, 1)
		assert.Equal(t, int32(2), got[0].Robot1ID)
	})

	t.Run("EmptyGraph", func(t *testing.T) {
		eng := newEngine(t, 0, 2)
		got := eng.Select(ctx, 10, allRobots(2))
		require.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("NonPositiveCount", func(t *testing.T) {
		eng := newEngine(t, 0, 2)
		populate(t, eng, []int32{1}, 5)
		assert.Empty(t, eng.Select(ctx, 0, allRobots(2)))
		assert.Empty(t, eng.Select(ctx, -1, allRobots(2)))
	})

	t.Run("SelectionKeepsEdges", func(t *testing.T) {
		eng := newEngine(t, 0, 2)
		populate(t, eng, []int32{1}, 5)
		n := eng.Stats().Edges

		first := eng.Select(ctx, 3, allRobots(2))
		second := eng.Select(ctx, 3, allRobots(2))
		assert.Equal(t, first, second)
		assert.Equal(t, n, eng.Stats().Edges)
	})

	t.Run("Threshold", func(t *testing.T) {
		cfg := testConfig(0, 2)
		cfg.Frontend.SimilarityThreshold = 0.9
		eng, err := New(cfg)
		require.NoError(t, err)

		require.NoError(t, eng.AddLocal(ctx, []float64{0, 0}, 0))
		require.NoError(t, eng.AddLocal(ctx, []float64{9, 9}, 1))
		require.NoError(t, eng.AddRemote(ctx, GlobalDescriptorMessage{ImageID: 0, RobotID: 1, Descriptor: []float64{0, 0.01}}))
		require.NoError(t, eng.AddRemote(ctx, GlobalDescriptorMessage{ImageID: 1, RobotID: 1, Descriptor: []float64{4, 4}}))

		assert.Len(t, eng.Edges(), 2, "below-threshold edges are still stored")
		got := eng.Select(ctx, 10, allRobots(2))
		require.Len(t, got, 1)
		assert.Equal(t, int64(0), got[0].Image1ID)
	})
}

func TestIdempotentInput(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, 0, 2)

	v := []float64{0.5, 0.5}
	require.NoError(t, eng.AddLocal(ctx, v, 1))
	require.NoError(t, eng.AddLocal(ctx, v, 1))

	msg := GlobalDescriptorMessage{ImageID: 7, RobotID: 1, Descriptor: []float64{0.5, 0.6}}
	require.NoError(t, eng.AddRemote(ctx, msg))
	require.NoError(t, eng.AddRemote(ctx, msg))

	st := eng.Stats()
	assert.Equal(t, 2, st.LocalDescriptors)
	assert.Equal(t, 2, st.RemoteDescriptors)

	edges := eng.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, EdgeKey{Robot0ID: 0, Image0ID: 1, Robot1ID: 1, Image1ID: 7}, edges[0].Key())
}

func TestArrivalOrderIndependence(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(5)

	local := rng.UniformVectors(6, 10)
	remote := rng.UniformVectors(6, 10)

	type event struct {
		local bool
		i     int
	}
	var events []event
	for i := range local {
		events = append(events, event{local: true, i: i})
	}
	for i := range remote {
		events = append(events, event{local: false, i: i})
	}

	run := func(order []int) map[EdgeKey]float64 {
		eng := newEngine(t, 0, 2)
		for _, k := range order {
			ev := events[k]
			if ev.local {
				require.NoError(t, eng.AddLocal(ctx, local[ev.i], int64(ev.i)))
			} else {
				require.NoError(t, eng.AddRemote(ctx, GlobalDescriptorMessage{ImageID: int64(ev.i), RobotID: 1, Descriptor: remote[ev.i]}))
			}
		}
		out := map[EdgeKey]float64{}
		for _, e := range eng.Edges() {
			out[e.Key()] = e.Similarity
		}
		return out
	}

	best := func(edges map[EdgeKey]float64) (EdgeKey, float64) {
		var bk EdgeKey
		bs := -1.0
		for k, s := range edges {
			if s > bs {
				bk, bs = k, s
			}
		}
		return bk, bs
	}

	identity := make([]int, len(events))
	for i := range identity {
		identity[i] = i
	}
	wantKey, wantSim := best(run(identity))

	// The closest pair overall is found whichever side arrives last.
	for range 5 {
		gotKey, gotSim := best(run(rng.Perm(len(events))))
		assert.Equal(t, wantKey, gotKey)
		assert.Equal(t, wantSim, gotSim)
	}

	// Local-before-remote and remote-before-local yield the same pair edge.
	localFirst := newEngine(t, 0, 2)
	require.NoError(t, localFirst.AddLocal(ctx, local[0], 0))
	require.NoError(t, localFirst.AddRemote(ctx, GlobalDescriptorMessage{ImageID: 0, RobotID: 1, Descriptor: remote[0]}))

	remoteFirst := newEngine(t, 0, 2)
	require.NoError(t, remoteFirst.AddRemote(ctx, GlobalDescriptorMessage{ImageID: 0, RobotID: 1, Descriptor: remote[0]}))
	require.NoError(t, remoteFirst.AddLocal(ctx, local[0], 0))

	assert.Equal(t, localFirst.Edges(), remoteFirst.Edges())
}

func TestRejectAndConsume(t *testing.T) {
	ctx := context.Background()
	metrics := &BasicMetricsCollector{}
	eng := newEngine(t, 0, 2, WithMetricsCollector(metrics))

	require.NoError(t, eng.AddLocal(ctx, []float64{0, 0}, 0))
	require.NoError(t, eng.AddLocal(ctx, []float64{1, 1}, 1))
	require.NoError(t, eng.AddRemote(ctx, GlobalDescriptorMessage{ImageID: 0, RobotID: 1, Descriptor: []float64{0, 0}}))
	require.NoError(t, eng.AddRemote(ctx, GlobalDescriptorMessage{ImageID: 1, RobotID: 1, Descriptor: []float64{1.2, 1.2}}))

	best := eng.Select(ctx, 1, allRobots(2))
	require.Len(t, best, 1)
	assert.Equal(t, int64(0), best[0].Image1ID)

	assert.True(t, eng.Reject(ctx, best[0].Key()))
	next := eng.Select(ctx, 1, allRobots(2))
	require.Len(t, next, 1)
	assert.Equal(t, int64(1), next[0].Image1ID, "rejected edge is ranked last")

	assert.False(t, eng.Reject(ctx, EdgeKey{Image0ID: 99}))

	assert.True(t, eng.Consume(ctx, best[0].Key()))
	assert.False(t, eng.Consume(ctx, best[0].Key()))
	assert.Len(t, eng.Edges(), 1)

	stats := metrics.GetStats()
	assert.Equal(t, int64(2), stats.AddLocalCount)
	assert.Equal(t, int64(2), stats.AddRemoteCount)
	assert.Equal(t, int64(2), stats.EdgesInserted)
	assert.Equal(t, int64(2), stats.SelectCount)
	assert.Equal(t, int64(2), stats.RejectCount)
	assert.Equal(t, int64(1), stats.RejectUnknownEdge)
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, 0, 2)
	require.NoError(t, eng.AddLocal(ctx, []float64{1}, 0))
	require.NoError(t, eng.AddRemote(ctx, GlobalDescriptorMessage{ImageID: 0, RobotID: 1, Descriptor: []float64{1}}))

	require.NoError(t, eng.Close())
	require.NoError(t, eng.Close())

	assert.ErrorIs(t, eng.AddLocal(ctx, []float64{1}, 1), ErrClosed)
	assert.ErrorIs(t, eng.AddRemote(ctx, GlobalDescriptorMessage{ImageID: 1, RobotID: 1, Descriptor: []float64{1}}), ErrClosed)
	assert.Empty(t, eng.Select(ctx, 5, allRobots(2)))
}

func TestConcurrentUse(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, 0, 4)
	rng := testutil.NewRNG(11)

	locals := rng.UniformVectors(50, 16)
	remotes := rng.UniformVectors(150, 16)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i, v := range locals {
			assert.NoError(t, eng.AddLocal(ctx, v, int64(i)))
		}
	}()
	go func() {
		defer wg.Done()
		for i, v := range remotes {
			msg := GlobalDescriptorMessage{ImageID: int64(i), RobotID: int32(1 + i%3), Descriptor: v}
			assert.NoError(t, eng.AddRemote(ctx, msg))
		}
	}()
	go func() {
		defer wg.Done()
		for range 50 {
			got := eng.Select(ctx, 10, allRobots(4))
			assert.LessOrEqual(t, len(got), 10)
		}
	}()
	wg.Wait()

	st := eng.Stats()
	assert.Equal(t, 50, st.LocalDescriptors)
	assert.Equal(t, 150, st.RemoteDescriptors)
	assert.Equal(t, 3, st.Peers)
	assert.Equal(t, 16, st.Dimension)

	edges := eng.Edges()
	keys := make(map[EdgeKey]struct{}, len(edges))
	for _, e := range edges {
		keys[e.Key()] = struct{}{}

		require.Less(t, e.Image1ID, int64(len(remotes)))
		assert.Equal(t, int32(1+e.Image1ID%3), e.Robot1ID)
		d := distance.Euclidean(locals[e.Image0ID], remotes[e.Image1ID])
		assert.InDelta(t, eng.model.Similarity(d), e.Similarity, 1e-9, "edge %s", e.Key())
	}
	assert.Len(t, keys, len(edges))

	// Whatever the interleaving, the closest pair of each peer is matched:
	// whichever side arrives last finds the other as its nearest neighbour.
	for peer := int32(1); peer <= 3; peer++ {
		var (
			dataset [][]float64
			ids     []int64
		)
		for i, v := range remotes {
			if int32(1+i%3) == peer {
				dataset = append(dataset, v)
				ids = append(ids, int64(i))
			}
		}

		want := EdgeKey{Robot0ID: 0, Robot1ID: peer}
		bestDist := -1.0
		for i, v := range locals {
			row, d := testutil.ExactNearest(v, dataset, distance.Euclidean)
			if bestDist < 0 || d < bestDist {
				bestDist = d
				want.Image0ID, want.Image1ID = int64(i), ids[row]
			}
		}

		e, ok := eng.Edge(want)
		require.True(t, ok, "closest pair %s of peer %d", want, peer)
		assert.InDelta(t, eng.model.Similarity(bestDist), e.Similarity, 1e-9)
	}
}

func TestTranslateError(t *testing.T) {
	assert.NoError(t, translateError(nil))

	err := translateError(&index.ErrDimensionMismatch{Expected: 4, Actual: 2})
	var dm *ErrDimensionMismatch
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 4, dm.Expected)

	var inner *index.ErrDimensionMismatch
	assert.ErrorAs(t, err, &inner)

	assert.ErrorIs(t, translateError(index.ErrEmptyVector), ErrEmptyDescriptor)

	other := errors.New("boom")
	assert.Same(t, other, translateError(other))
}
