// Package cslam provides the loop-closure candidate engine of a multi-robot
// collaborative mapping system.
//
// Each robot computes a global descriptor (an embedding vector) for every
// keyframe and exchanges descriptors with its peers. The Engine stores this
// robot's descriptors and the descriptors received from peers, matches every
// new descriptor against the opposite side, and keeps the best match per image
// pair as a candidate edge. On request it selects a robot-balanced set of edges
// worth spending geometric verification on.
//
// # Quick Start
//
//	cfg := cslam.DefaultConfig()
//	cfg.RobotID, cfg.NbRobots = 0, 3
//	eng, _ := cslam.New(cfg, cslam.WithLogLevel(slog.LevelInfo))
//
//	_ = eng.AddLocal(ctx, keyframeDescriptor, keyframeID)
//	_ = eng.AddRemote(ctx, cslam.GlobalDescriptorMessage{ImageID: 7, RobotID: 1, Descriptor: vec})
//
//	edges := eng.Select(ctx, 10, map[int32]bool{1: true, 2: true})
//
// # Matching
//
// Distances between descriptors are exact nearest-neighbour distances
// (Euclidean by default, see the distance package) and are mapped to a
// similarity in [0, 1] by a logistic curve (see the similarity package).
// Every match is stored; frontend.similarity_threshold only filters selection.
//
// # Selection
//
// Edges are grouped per peer robot, ranked by similarity and drawn round-robin
// across peers in increasing robot id order, so no single peer can starve the
// others. Selected edges stay stored; call Reject to push an edge behind its
// peer's other edges, or Consume to drop it.
//
// # Concurrency
//
// All Engine methods are safe for concurrent use. Each insertion or selection
// executes as one critical section.
package cslam
