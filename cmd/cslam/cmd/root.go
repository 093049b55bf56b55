package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/anadon/cslam"
)

var (
	// logLevel is the minimum level of log records written to stderr
	logLevel string
	// outputFormat is the output format (table, json)
	outputFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cslam",
	Short: "Loop-closure candidate engine for multi-robot mapping",
	Long: `cslam matches global keyframe descriptors across robots and selects
robot-balanced loop-closure candidates for geometric verification.

Examples:
  # Write a synthetic descriptor log for robot 0 and two peers
  cslam generate --robots 3 --local 200 --remote 200 -f run.csgd

  # Replay it and print the ten best candidates
  cslam replay run.csgd --nb-candidates 10

  # Replay with a configuration file and expose Prometheus metrics
  cslam replay run.csgd -c cslam.yaml --metrics-addr :2112`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json")
}

func newLogger() (*cslam.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}
	return cslam.NewTextLogger(level), nil
}
