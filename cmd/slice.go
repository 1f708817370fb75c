package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/flexnn/flexnn/engine"
	"github.com/flexnn/flexnn/engine/paramio"
	"github.com/flexnn/flexnn/engine/slicer"
)

const (
	defaultMaxFCElements = 5e7
	defaultMaxConvBytes  = 5e7 * 4
	bytesPerElement      = 4 // fc_bytes becomes an InnerProduct element budget assuming float32
)

var sliceCmd = &cobra.Command{
	Use:   "slice <in.param> <in.bin> <out.param> <out.bin> <flag> [<conv_bytes> <fc_bytes>]",
	Short: "Slice oversize operators into budget-fitting chunks and pre-transform convolution kernels",
	Args:  cobra.RangeArgs(5, 7),
	Run: func(cmd *cobra.Command, args []string) {
		inParam, inBin, outParam, outBin := args[0], args[1], args[2], args[3]

		flag, err := strconv.Atoi(args[4])
		if err != nil {
			logrus.Fatalf("bad flag %q: %v", args[4], err)
		}
		// storage_type (fp16 vs fp32 weight storage) is part of the original
		// CLI contract but this engine only tracks byte counts, never values,
		// so the flag has nothing to act on beyond being logged.
		logrus.WithField("storage_type", storageType(flag)).Debug("slice: flag accepted, not modeled")

		maxConvBytes := int(defaultMaxConvBytes)
		maxFCElements := int(defaultMaxFCElements)
		if len(args) >= 6 {
			b, err := strconv.Atoi(args[5])
			if err != nil {
				logrus.Fatalf("bad conv_bytes %q: %v", args[5], err)
			}
			maxConvBytes = b
		}
		if len(args) >= 7 {
			b, err := strconv.Atoi(args[6])
			if err != nil {
				logrus.Fatalf("bad fc_bytes %q: %v", args[6], err)
			}
			maxFCElements = b / bytesPerElement
		}

		g, err := paramio.ReadParam(inParam)
		if err != nil {
			logrus.Fatalf("reading %s: %v", inParam, err)
		}
		weights, err := paramio.ReadWeights(inBin)
		if err != nil {
			logrus.Fatalf("reading %s: %v", inBin, err)
		}
		_ = weights // weight values are opaque to every downstream component; only sizes matter

		if err := g.TopologicalSort(); err != nil {
			logrus.Fatalf("sorting %s: %v", inParam, err)
		}
		if err := engine.InferShapes(g); err != nil {
			logrus.Fatalf("inferring shapes for %s: %v", inParam, err)
		}

		cfg := slicer.Config{
			MaxDataSizeElements: maxFCElements,
			ConvMaxBytes:        maxConvBytes,
		}
		if err := slicer.Slice(g, cfg); err != nil {
			logrus.Fatalf("slicing %s: %v", inParam, err)
		}
		if err := g.TopologicalSort(); err != nil {
			logrus.Fatalf("re-sorting %s after slicing: %v", inParam, err)
		}
		if err := engine.InferShapes(g); err != nil {
			logrus.Fatalf("re-inferring shapes for %s after slicing: %v", inParam, err)
		}
		if err := slicer.Pretransform(g, cfg); err != nil {
			logrus.Fatalf("pre-transforming %s: %v", inParam, err)
		}

		if err := paramio.WriteParam(outParam, g); err != nil {
			logrus.Fatalf("writing %s: %v", outParam, err)
		}
		if err := paramio.WriteWeights(outBin, g); err != nil {
			logrus.Fatalf("writing %s: %v", outBin, err)
		}

		fmt.Fprintf(os.Stderr, "sliced %d operators, %d blobs -> %s, %s\n", len(g.Operators), len(g.Blobs), outParam, outBin)
	},
}

func storageType(flag int) int {
	if flag == 65536 || flag == 1 {
		return 1
	}
	return 0
}

func init() {
	rootCmd.AddCommand(sliceCmd)
}
