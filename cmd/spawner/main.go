package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/superfly/spawnpool/config"
	"github.com/superfly/spawnpool/logging"
	"github.com/superfly/spawnpool/metrics"
	"github.com/superfly/spawnpool/pool"
	"github.com/superfly/spawnpool/scene"
	"github.com/superfly/spawnpool/sim"
	"github.com/superfly/spawnpool/stats"
)

var version = "0.1.0"

const poolName = "bullets"

// Summary is printed when a run finishes.
type Summary struct {
	Report  sim.Report              `json:"report"`
	Stats   map[string]*stats.Stats `json:"stats"`
	Metrics map[string]float64      `json:"metrics"`
	Drained int                     `json:"drained"`
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "spawner",
		Short: "Run a projectile simulation over a reusable object pool",
		Long: `spawner drives a pool of scene nodes with a tick-based projectile
simulation and prints a JSON summary of pool activity.

Settings come from an optional YAML file and SPAWNPOOL_* environment
variables; flags override both.`,
		SilenceUsage: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "spawner v%s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Go version: %s\n", runtime.Version())
		},
	})
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var (
		path  string
		flags config.Config
		drain bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			applyFlags(cmd, cfg, &flags)
			if err := cfg.Validate(); err != nil {
				return err
			}

			log, err := logging.New(cfg.LogLevel, cfg.LogEncoding)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			var summary *Summary
			err = runWithSignals(cmd.Context(), func(ctx context.Context) error {
				var err error
				summary, err = run(ctx, log, cfg, drain)
				return err
			})
			if err != nil {
				return err
			}
			return writeSummary(cmd.OutOrStdout(), summary)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&path, "config", "c", "", "YAML config file")
	f.IntVar(&flags.Capacity, "capacity", 0, "inactive list capacity passed on every release")
	f.IntVar(&flags.Ticks, "ticks", 0, "number of ticks to run")
	f.DurationVar(&flags.TickInterval, "interval", 0, "wall-clock time between ticks")
	f.IntVar(&flags.Emitters, "emitters", 0, "number of emitters")
	f.Float64Var(&flags.SpawnRate, "rate", 0, "spawns per simulated second per emitter")
	f.IntVar(&flags.Burst, "burst", 0, "spawn burst per emitter")
	f.IntVar(&flags.Lifetime, "lifetime", 0, "projectile lifetime in ticks")
	f.BoolVar(&flags.Strict, "strict", false, "reject releases of resources that are not active")
	f.StringVar(&flags.LogLevel, "log-level", "", "log level")
	f.StringVar(&flags.LogEncoding, "log-encoding", "", "log encoding, json or console")
	f.BoolVar(&drain, "drain", false, "destroy pooled resources after the run")

	cmd.SetUsageTemplate(cmd.UsageTemplate() + "\nEnvironment:\n" + config.Usage())
	return cmd
}

// applyFlags copies every flag the user set onto cfg.
func applyFlags(cmd *cobra.Command, cfg, flags *config.Config) {
	set := cmd.Flags().Changed
	if set("capacity") {
		cfg.Capacity = flags.Capacity
	}
	if set("ticks") {
		cfg.Ticks = flags.Ticks
	}
	if set("interval") {
		cfg.TickInterval = flags.TickInterval
	}
	if set("emitters") {
		cfg.Emitters = flags.Emitters
	}
	if set("rate") {
		cfg.SpawnRate = flags.SpawnRate
	}
	if set("burst") {
		cfg.Burst = flags.Burst
	}
	if set("lifetime") {
		cfg.Lifetime = flags.Lifetime
	}
	if set("strict") {
		cfg.Strict = flags.Strict
	}
	if set("log-level") {
		cfg.LogLevel = flags.LogLevel
	}
	if set("log-encoding") {
		cfg.LogEncoding = flags.LogEncoding
	}
}

func run(ctx context.Context, log *zap.Logger, cfg *config.Config, drain bool) (*Summary, error) {
	reg := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(reg)
	if err != nil {
		return nil, err
	}

	w := scene.NewWorld(scene.Logger(log))
	opts := []pool.Opt{
		pool.WithLogger(log),
		pool.WithObserver(collector.ForPool(poolName)),
	}
	if cfg.Strict {
		opts = append(opts, pool.Strict())
	}
	p, err := scene.NewPool(poolName, w, scene.NewRegistry(w, "Pool"), opts...)
	if err != nil {
		return nil, err
	}

	s, err := sim.New(w, p, *cfg, sim.Logger(log))
	if err != nil {
		return nil, err
	}

	report, err := s.Run(ctx, cfg.Ticks)
	if err != nil {
		log.Warn("spawner: run interrupted", zap.Int("ticks", report.Ticks), zap.Error(err))
	}

	summary := &Summary{}
	if drain {
		summary.Drained = p.Drain()
		report = s.Report()
	}
	summary.Report = report
	// empty collectors hold NaN and infinities, which JSON cannot carry
	summary.Stats = lo.PickBy(p.Stats(), func(_ string, st *stats.Stats) bool {
		return st.Count > 0
	})
	summary.Metrics, err = metrics.Snapshot(reg)
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func writeSummary(w io.Writer, summary *Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
