package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"packetflow/internal/repository"
)

type runOptions struct {
	frames   int
	seed     uint64
	topology string
	db       string
	record   bool
	network  string
}

func newRunCmd(c *cli) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Step the simulation headless and print a summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			if opts.frames < 1 {
				return fmt.Errorf("--frames must be positive, got %d", opts.frames)
			}
			if f.Changed("seed") {
				c.cfg.Simulation.RandomSeed = &opts.seed
			}
			if f.Changed("topology") {
				c.cfg.Topology.Path = opts.topology
			}
			if f.Changed("db") {
				c.cfg.Recorder.Path = opts.db
			}
			if f.Changed("network") {
				c.cfg.Internet.Network = opts.network
			}
			c.cfg.Recorder.Enabled = opts.record
			if err := c.cfg.Validate(); err != nil {
				return err
			}
			return runHeadless(cmd.Context(), c, opts.frames, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.IntVarP(&opts.frames, "frames", "n", 600, "number of frames to step")
	f.Uint64Var(&opts.seed, "seed", 0, "random seed for reproducible runs")
	f.StringVar(&opts.topology, "topology", "", "topology file (.yaml or .json)")
	f.StringVar(&opts.db, "db", "", "SQLite delivery log path")
	f.BoolVar(&opts.record, "record", false, "record deliveries to the delivery log")
	f.StringVar(&opts.network, "network", "", "internet topology network to start on (modern or osi)")
	return cmd
}

func runHeadless(ctx context.Context, c *cli, frames int, out io.Writer) error {
	a, err := newApp(c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer a.Close()

	c.logger.Debug("headless run", zap.Int("frames", frames))
	a.runner.StepN(frames)

	snap := a.packetFlow.PacketFlowSnapshot()
	fmt.Fprintf(out, "run %s\n", snap.RunID)
	fmt.Fprintf(out, "frames:     %d\n", snap.Frame)
	fmt.Fprintf(out, "spawned:    %d\n", snap.Counters.Spawned)
	fmt.Fprintf(out, "delivered:  %d\n", snap.Counters.Delivered)
	fmt.Fprintf(out, "in flight:  %d\n", snap.LivePackets)
	fmt.Fprintf(out, "hops:       %d\n", snap.Counters.Hops)

	if a.congestion != nil {
		cs := a.congestion.CongestionSnapshot()
		fmt.Fprintf(out, "cwnd:       %.2f (ssthresh %.2f, %s)\n", cs.Cwnd, cs.SSThresh, cs.State)
	}

	if a.internet != nil {
		is := a.internet.InternetSnapshot()
		fmt.Fprintf(out, "network:    %s (%d flows completed, %d in flight)\n",
			is.Network.Name, is.Counters.Completed, is.LivePackets)
	}

	if a.repo == nil {
		return nil
	}
	stats, err := a.packetFlow.DeliveryStats(ctx, false)
	if err != nil {
		return err
	}
	printPairs(out, stats)
	return nil
}

func printPairs(out io.Writer, stats repository.Stats) {
	pairs := make([]string, 0, len(stats.ByPair))
	for pair := range stats.ByPair {
		pairs = append(pairs, pair)
	}
	sort.Strings(pairs)
	fmt.Fprintf(out, "recorded:   %d (mean %.2f hops, %.1f frames in flight)\n", stats.Deliveries, stats.MeanHops, stats.MeanFrames)
	for _, pair := range pairs {
		fmt.Fprintf(out, "  %-8s %d\n", pair, stats.ByPair[pair])
	}
}
