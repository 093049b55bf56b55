package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/anadon/cslam/codec"
	"github.com/anadon/cslam/internal/synth"
)

var (
	genFile        string
	genRobotID     int32
	genRobots      int
	genLocal       int
	genRemote      int
	genDim         int
	genNear        int
	genNoise       float64
	genSeed        uint64
	genCompression string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a synthetic descriptor log",
	Long: `Write a synthetic descriptor log for replay.

The log holds --local keyframe descriptors of robot --robot-id followed by
--remote descriptors for every other robot. --near of the remote descriptors
are perturbed copies of local ones, so replay finds genuine loop closures.

Examples:
  # Robot 0 with two peers, zstd compressed
  cslam generate --robots 3 -f run.csgd --compression zstd

  # 512-dimensional descriptors with 50 planted loop closures
  cslam generate --dim 512 --near 50 -f run.csgd`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&genFile, "file", "f", "descriptors.csgd", "Output file")
	generateCmd.Flags().Int32Var(&genRobotID, "robot-id", 0, "Robot whose keyframes are local")
	generateCmd.Flags().IntVar(&genRobots, "robots", 2, "Number of robots in the team")
	generateCmd.Flags().IntVar(&genLocal, "local", 100, "Local keyframe descriptors")
	generateCmd.Flags().IntVar(&genRemote, "remote", 100, "Descriptors per peer robot")
	generateCmd.Flags().IntVar(&genDim, "dim", 64, "Descriptor dimension")
	generateCmd.Flags().IntVar(&genNear, "near", 10, "Remote descriptors planted near local ones, per peer")
	generateCmd.Flags().Float64Var(&genNoise, "noise", 0.01, "Standard deviation of planted perturbations")
	generateCmd.Flags().Uint64Var(&genSeed, "seed", 42, "Random seed")
	generateCmd.Flags().StringVar(&genCompression, "compression", "lz4", "Block compression: none, lz4, zstd")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	c, err := codec.ParseCompression(genCompression)
	if err != nil {
		return err
	}
	opts := synth.Options{
		RobotID: genRobotID,
		Robots:  genRobots,
		Local:   genLocal,
		Remote:  genRemote,
		Dim:     genDim,
		Near:    genNear,
		Noise:   genNoise,
		Seed:    genSeed,
	}
	if err := opts.Validate(); err != nil {
		return err
	}

	f, err := os.Create(genFile)
	if err != nil {
		return fmt.Errorf("failed to create log: %w", err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	w, err := codec.NewWriter(bw, c)
	if err != nil {
		return err
	}

	if err := synth.Generate(opts, w.Write); err != nil {
		return err
	}

	if err := w.Close(); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write log: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d records (%s) to %s\n", w.Records(), c, genFile)
	return f.Close()
}
