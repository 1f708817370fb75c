package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/flexnn/flexnn/engine"
	"github.com/flexnn/flexnn/engine/executor"
	"github.com/flexnn/flexnn/engine/kernel"
	"github.com/flexnn/flexnn/engine/paramio"
	"github.com/flexnn/flexnn/engine/profiler"
	"github.com/flexnn/flexnn/engine/scheduler"
	"github.com/flexnn/flexnn/engine/slicer"
)

// benchFlags mirrors the six toggles spec.md §6 lists for the bench CLI.
// Pretransform/WinogradConvolution/SGEMMConvolution jointly pick a
// Convolution weight layout: Pretransform and Winograd together run
// slicer.Pretransform with no byte budget; otherwise SGEMM forces
// im2col-GEMM on every Convolution regardless of budget; any other
// combination leaves ncnn's flat/direct layout in place.
type benchFlags struct {
	OndemandLoading     bool `yaml:"use_ondemand_loading"`
	ParallelPreloading  bool `yaml:"use_parallel_preloading"`
	Pretransform        bool `yaml:"use_pretransform"`
	MemoryProfiler      bool `yaml:"use_memory_profiler"`
	WinogradConvolution bool `yaml:"use_winograd_convolution"`
	SGEMMConvolution    bool `yaml:"use_sgemm_convolution"`
}

var benchConfigPath string

var benchCmd = &cobra.Command{
	Use:   "bench <model_prefix> [key=value...]",
	Short: "Replay a sliced graph under one of the ten named engine configurations",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		prefix := args[0]
		opts := parseOptions(args[1:])

		configName := optString(opts, "config", "ncnn_default")
		flags, ok := loadBenchConfigs(benchConfigPath)[configName]
		if !ok {
			logrus.Fatalf("unknown config %q", configName)
		}

		paramPath := prefix + ".param"
		g, err := paramio.ReadParam(paramPath)
		if err != nil {
			logrus.Fatalf("reading %s: %v", paramPath, err)
		}
		if err := g.TopologicalSort(); err != nil {
			logrus.Fatalf("sorting %s: %v", paramPath, err)
		}
		if err := engine.InferShapes(g); err != nil {
			logrus.Fatalf("inferring shapes for %s: %v", paramPath, err)
		}

		applyConvLayouts(g, flags)

		mp, tp, err := profiler.Run(g, profiler.DryRunConfig{})
		if err != nil {
			logrus.Fatalf("profiling %s: %v", prefix, err)
		}
		if flags.MemoryProfiler {
			memPath := prefix + ".memory.csv"
			if err := profiler.WriteMemoryProfileCSV(memPath, mp.Events()); err != nil {
				logrus.Fatalf("writing %s: %v", memPath, err)
			}
		}

		profiles := tp.Profiles()
		loading, computing := scheduler.TotalDurations(profiles)
		layerCount := scheduler.LayerCount(profiles)
		skip := optInt(opts, "skip", 1)

		if !flags.OndemandLoading {
			fmt.Printf("config=%s predicted_latency_ms=%.3f (sequential load-then-compute)\n", configName, loading+computing)
			return
		}

		budget := optInt(opts, "memory_budget", 1<<30)
		paired, err := scheduler.PairEvents(mp.Events())
		if err != nil {
			logrus.Fatalf("pairing memory events: %v", err)
		}
		result, err := scheduler.Schedule(paired, layerCount, loading, computing, scheduler.Config{MemoryBudget: budget, SkipLayerCount: skip})
		if err != nil {
			logrus.Fatalf("scheduling: %v", err)
		}
		dep, err := scheduler.ResolveLayerDependencies(result.Schedule, layerCount, skip)
		if err != nil {
			logrus.Fatalf("resolving layer dependencies: %v", err)
		}
		predicted := scheduler.PredictLatency(profiles, dep, skip)

		verified := ""
		if flags.ParallelPreloading {
			if err := verifySchedule(layerCount, skip, dep); err != nil {
				logrus.Fatalf("parallel executor replay: %v", err)
			}
			verified = " (parallel executor replay verified)"
		}

		fmt.Printf("config=%s predicted_latency_ms=%.3f%s\n", configName, predicted, verified)
	},
}

// applyConvLayouts resolves every Convolution operator's weight layout
// under the bench flags' rules, bypassing slicer.Pretransform's budget gate
// when SGEMM-only is requested since that config exists precisely to force
// GEMM regardless of workspace cost.
func applyConvLayouts(g *engine.Graph, flags benchFlags) {
	switch {
	case flags.Pretransform && flags.WinogradConvolution:
		if err := slicer.Pretransform(g, slicer.Config{}); err != nil {
			logrus.Fatalf("pre-transforming: %v", err)
		}
	case flags.SGEMMConvolution:
		for i := range g.Operators {
			if p, ok := g.Operators[i].Params.(*kernel.ConvParams); ok {
				p.WeightLayout = slicer.LayoutIm2colGEMM
			}
		}
	}
}

// verifySchedule runs the parallel executor over dep with no-op load/compute
// callbacks, confirming the dependency vector the scheduler derived is
// actually safe to execute with two concurrent workers rather than merely
// checking it on paper.
func verifySchedule(layerCount, skip int, dep []int) error {
	noop := func(int) error { return nil }
	return executor.Run(executor.Config{
		LayerCount:        layerCount,
		SkipLayerCount:    skip,
		LayerDependencies: dep,
		Load:              noop,
		Compute:           noop,
	})
}

func init() {
	benchCmd.Flags().StringVar(&benchConfigPath, "bench-config", "cmd/bench_configs.yaml", "Path to the named bench-config YAML bundle")
	rootCmd.AddCommand(benchCmd)
}
