package cslam

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/anadon/cslam/distance"
	"github.com/anadon/cslam/similarity"
)

// Config is the engine configuration. It is fixed at construction time.
type Config struct {
	// RobotID is this process's robot. It is never selected as a peer.
	RobotID int32 `yaml:"robot_id"`

	// NbRobots is the expected number of robots, used for pre-sizing only.
	NbRobots int `yaml:"nb_robots"`

	Frontend FrontendConfig `yaml:"frontend"`
}

// FrontendConfig holds the loop-closure front-end parameters.
type FrontendConfig struct {
	// SimilarityThreshold is the minimum similarity for an edge to be selectable.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// SimilarityLoc is the distance at which similarity is 0.5.
	SimilarityLoc float64 `yaml:"similarity_loc"`

	// SimilarityScale is the steepness of the similarity curve.
	SimilarityScale float64 `yaml:"similarity_scale"`

	// Metric is the descriptor distance metric.
	Metric distance.Metric `yaml:"metric"`

	// QueryConcurrency bounds the parallel neighbour queries run against
	// peer indexes for a single local descriptor. Values < 1 mean 1.
	QueryConcurrency int `yaml:"query_concurrency"`
}

// DefaultConfig returns the default configuration for robot 0 of a single-robot team.
func DefaultConfig() Config {
	return Config{
		RobotID:  0,
		NbRobots: 1,
		Frontend: FrontendConfig{
			SimilarityThreshold: 0.0,
			SimilarityLoc:       similarity.DefaultLoc,
			SimilarityScale:     similarity.DefaultScale,
			Metric:              distance.MetricL2,
			QueryConcurrency:    4,
		},
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.RobotID < 0 {
		return fmt.Errorf("%w: robot_id must be >= 0, got %d", ErrInvalidConfig, c.RobotID)
	}
	if c.NbRobots < 1 {
		return fmt.Errorf("%w: nb_robots must be >= 1, got %d", ErrInvalidConfig, c.NbRobots)
	}

	f := c.Frontend
	if math.IsNaN(f.SimilarityThreshold) || f.SimilarityThreshold < 0 || f.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: frontend.similarity_threshold must be in [0,1], got %v", ErrInvalidConfig, f.SimilarityThreshold)
	}
	if _, err := similarity.NewModel(f.SimilarityLoc, f.SimilarityScale); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := distance.Provider(f.Metric); err != nil {
		return fmt.Errorf("%w: frontend.metric: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ParseConfig decodes YAML over DefaultConfig and validates the result.
// Unknown keys are rejected.
func ParseConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(bytes.NewReader(data))
}

// YAML renders the configuration in the format accepted by ParseConfig.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
