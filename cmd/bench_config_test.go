package cmd

import "testing"

func TestLoadBenchConfigsFallsBackToDefaultsWhenFileMissing(t *testing.T) {
	configs := loadBenchConfigs("no-such-file.yaml")

	flags, ok := configs["flexnn_parallel"]
	if !ok {
		t.Fatal("expected flexnn_parallel in built-in defaults")
	}
	if !flags.OndemandLoading || !flags.ParallelPreloading || !flags.Pretransform || !flags.WinogradConvolution {
		t.Errorf("flexnn_parallel: unexpected flags %+v", flags)
	}
}

func TestLoadBenchConfigsParsesYAMLFile(t *testing.T) {
	configs := loadBenchConfigs("bench_configs.yaml")

	if len(configs) != len(defaultBenchConfigs()) {
		t.Fatalf("got %d configs, want %d", len(configs), len(defaultBenchConfigs()))
	}
	if flags := configs["ncnn_default"]; flags.OndemandLoading {
		t.Errorf("ncnn_default: expected all flags false, got %+v", flags)
	}
	if flags := configs["ncnn_ondemand_gemm"]; !flags.OndemandLoading || !flags.SGEMMConvolution {
		t.Errorf("ncnn_ondemand_gemm: unexpected flags %+v", flags)
	}
}
