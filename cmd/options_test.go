package cmd

import "testing"

func TestParseOptionsSplitsKeyValuePairs(t *testing.T) {
	opts := parseOptions([]string{"num_threads=4", "vocab_path=/tmp/vocab.txt", "malformed"})

	if got := opts["num_threads"]; got != "4" {
		t.Errorf("num_threads: got %q, want %q", got, "4")
	}
	if got := opts["vocab_path"]; got != "/tmp/vocab.txt" {
		t.Errorf("vocab_path: got %q, want %q", got, "/tmp/vocab.txt")
	}
	if _, ok := opts["malformed"]; ok {
		t.Error("arg with no '=' must not be inserted into opts")
	}
}

func TestOptIntFallsBackToDefaultOnMissingOrBadValue(t *testing.T) {
	opts := map[string]string{"skip": "3", "budget": "not-a-number"}

	if got := optInt(opts, "skip", 1); got != 3 {
		t.Errorf("skip: got %d, want 3", got)
	}
	if got := optInt(opts, "budget", 99); got != 99 {
		t.Errorf("budget: got %d, want fallback 99", got)
	}
	if got := optInt(opts, "missing", 7); got != 7 {
		t.Errorf("missing: got %d, want fallback 7", got)
	}
}

func TestOptStringFallsBackToDefaultOnMissingKey(t *testing.T) {
	opts := map[string]string{"config": "flexnn_parallel"}

	if got := optString(opts, "config", "ncnn_default"); got != "flexnn_parallel" {
		t.Errorf("config: got %q, want %q", got, "flexnn_parallel")
	}
	if got := optString(opts, "missing", "ncnn_default"); got != "ncnn_default" {
		t.Errorf("missing: got %q, want fallback %q", got, "ncnn_default")
	}
}
