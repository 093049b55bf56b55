package cslam

import "github.com/anadon/cslam/graph"

// GlobalDescriptor is a keyframe embedding owned by one robot.
type GlobalDescriptor struct {
	ImageID int64
	RobotID int32
	Vector  []float64
}

// GlobalDescriptorMessage is a descriptor as received from a peer robot.
type GlobalDescriptorMessage struct {
	ImageID    int64     `json:"image_id"`
	RobotID    int32     `json:"robot_id"`
	Descriptor []float64 `json:"descriptor"`
}

// CandidateEdge is a similarity-scored hypothesis that two images of different
// robots show the same place.
type CandidateEdge = graph.Edge

// EdgeKey identifies a CandidateEdge by its image pair.
type EdgeKey = graph.Key
