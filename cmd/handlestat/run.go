package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/jsbridge/handle"
	"github.com/wippyai/jsbridge/metrics"
)

type runOptions struct {
	workload    workloadConfig
	interactive bool
	listen      string
	hold        bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{workload: defaultWorkload()}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the synthetic workload and print registry statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorkload(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.workload.Engines, "engines", opts.workload.Engines, "number of engines")
	f.IntVar(&opts.workload.Ops, "ops", opts.workload.Ops, "wrap operations per engine")
	f.Float64Var(&opts.workload.Rate, "rate", 0, "ops per second per engine (0 = unlimited)")
	f.Uint64Var(&opts.workload.Seed, "seed", 1, "random seed")
	f.Float64Var(&opts.workload.Weak, "weak", opts.workload.Weak, "fraction of values made weak")
	f.Float64Var(&opts.workload.Foreign, "foreign", opts.workload.Foreign, "fraction of values released from a foreign goroutine")
	f.IntVar(&opts.workload.IdleEvery, "idle-every", opts.workload.IdleEvery, "send an idle notification every N ops (0 = never)")
	f.BoolVarP(&opts.interactive, "interactive", "i", false, "live dashboard")
	f.StringVar(&opts.listen, "listen", "", "serve /metrics and /stats on this address (\"default\" uses metrics.address)")
	f.BoolVar(&opts.hold, "hold", false, "keep serving after the workload finishes until interrupted")
	return cmd
}

func runWorkload(cmd *cobra.Command, root *rootOptions, opts *runOptions) error {
	cfg, logger, err := root.setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := newWorkload(opts.workload, cfg.Handles, logger)
	if err != nil {
		return err
	}
	defer w.Close()

	collector, err := metrics.NewCollector(cfg.Metrics, nil)
	if err != nil {
		return err
	}
	for _, eng := range w.Engines() {
		collector.Add(eng)
	}

	if opts.listen != "" {
		addr := opts.listen
		if addr == "default" {
			addr = cfg.Metrics.Address
		}
		srv := newServer(addr, collector, w)
		go func() {
			logger.Info("serving", zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !isServerClosed(err) {
				logger.Error("server failed", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	interactive := opts.interactive
	if interactive && !term.IsTerminal(int(os.Stdout.Fd())) {
		logger.Warn("stdout is not a terminal, dashboard disabled")
		interactive = false
	}

	out := cmd.OutOrStdout()
	if interactive {
		if err := runDashboard(ctx, w); err != nil {
			return err
		}
	} else {
		start := time.Now()
		if err := w.Run(ctx); err != nil {
			return err
		}
		fmt.Fprintf(out, "run %s: %d ops in %s\n\n", w.runID, w.Done(), time.Since(start).Round(time.Millisecond))
	}
	renderStats(out, w.Stats())

	if opts.listen != "" && opts.hold {
		fmt.Fprintln(out, "\nserving until interrupted")
		<-ctx.Done()
	}
	return nil
}

// renderStats prints one row per engine.
func renderStats(out io.Writer, stats []handle.Stats) {
	table := tablewriter.NewWriter(out)
	table.Header("Engine", "Slots", "Cap", "Free", "Active", "Weak", "Queued", "Cached",
		"Wrapped", "Recycled", "Released", "Revived", "Collected", "Denied", "Peak")
	for _, s := range stats {
		table.Append([]string{
			fmt.Sprint(s.Engine),
			fmt.Sprint(s.Slots),
			fmt.Sprint(s.Capacity),
			fmt.Sprint(s.Free),
			fmt.Sprint(s.Active),
			fmt.Sprint(s.WeakPending),
			fmt.Sprint(s.QueuedForDisposal),
			fmt.Sprint(s.Cached),
			fmt.Sprint(s.Wrapped),
			fmt.Sprint(s.Recycled),
			fmt.Sprint(s.Released),
			fmt.Sprint(s.Revived),
			fmt.Sprint(s.Collected),
			fmt.Sprint(s.Denied),
			fmt.Sprint(s.PeakPending),
		})
	}
	table.Render()
}
