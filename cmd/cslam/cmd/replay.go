package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/anadon/cslam"
	"github.com/anadon/cslam/codec"
	"github.com/anadon/cslam/node"
	"github.com/anadon/cslam/observability"
)

var (
	replayConfig       string
	replayRobotID      int32
	replayNbCandidates int
	replayConsidered   []int32
	replayMetricsAddr  string
)

var replayCmd = &cobra.Command{
	Use:   "replay LOG...",
	Short: "Replay descriptor logs and print selected candidates",
	Long: `Replay one or more descriptor logs (binary or JSON lines) into an engine
and print the loop-closure candidates selected once all logs are consumed.

Examples:
  # Replay with defaults
  cslam replay run.csgd

  # Only consider robots 1 and 3, print JSON
  cslam replay run.csgd --considered 1,3 -o json

  # Keep serving /metrics after the replay until interrupted
  cslam replay run.csgd --metrics-addr :2112`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVarP(&replayConfig, "config", "c", "", "YAML configuration file")
	replayCmd.Flags().Int32Var(&replayRobotID, "robot-id", -1, "Override robot_id from the configuration")
	replayCmd.Flags().IntVarP(&replayNbCandidates, "nb-candidates", "k", 10, "Number of candidates to select")
	replayCmd.Flags().Int32SliceVar(&replayConsidered, "considered", nil, "Robots eligible for selection (default: all peers)")
	replayCmd.Flags().StringVar(&replayMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
}

func loadReplayConfig() (cslam.Config, error) {
	cfg := cslam.DefaultConfig()
	if replayConfig != "" {
		var err error
		if cfg, err = cslam.LoadConfig(replayConfig); err != nil {
			return cslam.Config{}, err
		}
	}
	if replayRobotID >= 0 {
		cfg.RobotID = replayRobotID
		if cfg.NbRobots <= int(replayRobotID) {
			cfg.NbRobots = int(replayRobotID) + 1
		}
	}
	return cfg, cfg.Validate()
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadReplayConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	pc, err := observability.NewPrometheusCollector(reg)
	if err != nil {
		return err
	}

	eng, err := cslam.New(cfg, cslam.WithLogger(logger), cslam.WithMetricsCollector(pc))
	if err != nil {
		return err
	}
	defer eng.Close()
	reg.MustRegister(observability.NewStatsCollector(eng))

	var srv *http.Server
	if replayMetricsAddr != "" {
		if srv, err = serveMetrics(reg, replayMetricsAddr, logger); err != nil {
			return err
		}
		defer srv.Close()
		fmt.Fprintf(cmd.ErrOrStderr(), "Prometheus metrics available at http://%s/metrics\n", srv.Addr)
	}

	keyframes := make(chan node.Keyframe, 64)
	descriptors := make(chan cslam.GlobalDescriptorMessage, 64)

	restrict := cmd.Flags().Changed("considered")
	n := node.New(eng, keyframes, descriptors, func(o *node.Options) {
		o.NbCandidates = replayNbCandidates
		o.Period = 0
		o.SelectOnDrain = true
		o.Logger = logger
		if restrict {
			considered := make(map[int32]bool, len(replayConsidered))
			for _, id := range replayConsidered {
				considered[id] = true
			}
			o.Considered = func() map[int32]bool { return considered }
		}
	})

	feedErr := make(chan error, 1)
	go func() {
		defer close(keyframes)
		defer close(descriptors)
		feedErr <- feed(ctx, args, cfg.RobotID, keyframes, descriptors)
	}()

	runErr := make(chan error, 1)
	go func() { runErr <- n.Run(ctx) }()

	var batch node.Batch
	for b := range n.Out() {
		batch = b
	}
	if err := <-runErr; err != nil {
		return err
	}
	if err := <-feedErr; err != nil {
		return err
	}

	if err := printBatch(cmd.OutOrStdout(), batch); err != nil {
		return err
	}

	st := eng.Stats()
	c := n.Counters()
	fmt.Fprintf(cmd.ErrOrStderr(), "robot %d: %d local, %d remote from %d peers, %d edges, %d dropped messages\n",
		st.RobotID, st.LocalDescriptors, st.RemoteDescriptors, st.Peers, st.Edges, c.Failed)

	if srv != nil {
		<-ctx.Done()
	}
	return nil
}

// feed streams every record of paths into the node inputs. Records of
// robotID are local keyframes; all others are peer messages.
func feed(ctx context.Context, paths []string, robotID int32, keyframes chan<- node.Keyframe, descriptors chan<- cslam.GlobalDescriptorMessage) error {
	for _, path := range paths {
		if err := feedFile(ctx, path, robotID, keyframes, descriptors); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

func feedFile(ctx context.Context, path string, robotID int32, keyframes chan<- node.Keyframe, descriptors chan<- cslam.GlobalDescriptorMessage) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := codec.Open(f)
	if err != nil {
		return err
	}

	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if rec.Kind == codec.KindLocal && rec.RobotID == robotID {
			select {
			case keyframes <- node.Keyframe{ImageID: rec.ImageID, Descriptor: rec.Vector}:
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		msg := cslam.GlobalDescriptorMessage{ImageID: rec.ImageID, RobotID: rec.RobotID, Descriptor: rec.Vector}
		select {
		case descriptors <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func printBatch(w io.Writer, b node.Batch) error {
	switch outputFormat {
	case "json":
		line, err := codec.AppendLine(nil, nil, b.Edges)
		if err != nil {
			return err
		}
		_, err = w.Write(line)
		return err
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ROBOT0\tIMAGE0\tROBOT1\tIMAGE1\tSIMILARITY")
		for _, e := range b.Edges {
			fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%.4f\n", e.Robot0ID, e.Image0ID, e.Robot1ID, e.Image1ID, e.Similarity)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported output format %q", outputFormat)
	}
}

func serveMetrics(reg *prometheus.Registry, addr string, logger *cslam.Logger) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	return srv, nil
}
