package cmd

import (
	"bytes"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// benchConfigFile mirrors bench_configs.yaml's top-level shape. All
// top-level sections must be listed to satisfy KnownFields(true) strict
// parsing, the same convention cmd/default_config.go's Config struct
// follows for defaults.yaml.
type benchConfigFile struct {
	Configs map[string]benchFlags `yaml:"configs"`
}

// defaultBenchConfigs is the fallback used when path can't be read, so
// `bench` still works from a binary copied away from its source tree.
func defaultBenchConfigs() map[string]benchFlags {
	return map[string]benchFlags{
		"ncnn_default":         {},
		"ncnn_ondemand":        {OndemandLoading: true},
		"ncnn_parallel":        {OndemandLoading: true, ParallelPreloading: true},
		"ncnn_direct_conv":     {},
		"flexnn_profile":       {OndemandLoading: true, MemoryProfiler: true},
		"flexnn_ondemand":      {OndemandLoading: true, Pretransform: true, WinogradConvolution: true},
		"flexnn_parallel":      {OndemandLoading: true, ParallelPreloading: true, Pretransform: true, WinogradConvolution: true},
		"ncnn_ondemand_gemm":   {OndemandLoading: true, SGEMMConvolution: true},
		"ncnn_default_gemm":    {SGEMMConvolution: true},
		"ncnn_ondemand_direct": {OndemandLoading: true},
	}
}

// loadBenchConfigs parses path with strict field checking, like
// cmd/default_config.go's loadDefaultsConfig. A missing file falls back to
// defaultBenchConfigs rather than aborting, since bench_configs.yaml ships
// alongside the binary's source tree but isn't required to be present.
func loadBenchConfigs(path string) map[string]benchFlags {
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.WithField("path", path).Debug("bench config file not found, using built-in defaults")
		return defaultBenchConfigs()
	}
	var cfg benchConfigFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		logrus.Fatalf("parsing %s: %v", path, err)
	}
	return cfg.Configs
}
