package cmd

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/flexnn/flexnn/engine/profiler"
	"github.com/flexnn/flexnn/engine/scheduler"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule <mem_profile> <time_profile> <malloc_plan_out> <dep_out> <budget> [<skip> <layout_out>]",
	Short: "Compute the space-time memory placement and layer-dependency vector from a profile pair",
	Args:  cobra.RangeArgs(5, 7),
	Run: func(cmd *cobra.Command, args []string) {
		memPath, timePath, planOut, depOut := args[0], args[1], args[2], args[3]

		budget, err := strconv.Atoi(args[4])
		if err != nil {
			logrus.Fatalf("bad budget %q: %v", args[4], err)
		}

		skip := 1
		if len(args) >= 6 {
			skip, err = strconv.Atoi(args[5])
			if err != nil {
				logrus.Fatalf("bad skip %q: %v", args[5], err)
			}
		}
		var layoutOut string
		if len(args) >= 7 {
			layoutOut = args[6]
		}

		events, err := profiler.ReadMemoryProfileCSV(memPath)
		if err != nil {
			logrus.Fatalf("reading %s: %v", memPath, err)
		}
		timeProfiles, err := profiler.ReadTimeProfileCSV(timePath)
		if err != nil {
			logrus.Fatalf("reading %s: %v", timePath, err)
		}

		paired, err := scheduler.PairEvents(events)
		if err != nil {
			logrus.Fatalf("pairing %s: %v", memPath, err)
		}

		layerCount := scheduler.LayerCount(timeProfiles)
		loading, computing := scheduler.TotalDurations(timeProfiles)

		cfg := scheduler.Config{
			MemoryBudget:   budget,
			SkipLayerCount: skip,
		}
		result, err := scheduler.Schedule(paired, layerCount, loading, computing, cfg)
		if err != nil {
			logrus.Fatalf("scheduling: %v", err)
		}

		plan, err := scheduler.GenerateMallocPlan(result.Schedule)
		if err != nil {
			logrus.Fatalf("generating malloc plan: %v", err)
		}
		if err := scheduler.WriteMallocPlan(planOut, plan, result.PersistentOffsets); err != nil {
			logrus.Fatalf("writing %s: %v", planOut, err)
		}

		dep, err := scheduler.ResolveLayerDependencies(result.Schedule, layerCount, skip)
		if err != nil {
			logrus.Fatalf("resolving layer dependencies: %v", err)
		}
		if err := scheduler.WriteLayerDependencies(depOut, dep); err != nil {
			logrus.Fatalf("writing %s: %v", depOut, err)
		}

		if layoutOut != "" {
			if err := scheduler.WriteMemoryLayout(layoutOut, result.Schedule); err != nil {
				logrus.Fatalf("writing %s: %v", layoutOut, err)
			}
		}

		fmt.Printf("scheduled %d layers into %d bytes: %d weights, %d blobs, %d intermediates, %d persistent\n",
			layerCount, budget, result.WeightCount, result.BlobCount, result.IntermediateCount, len(result.PersistentOffsets))
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}
