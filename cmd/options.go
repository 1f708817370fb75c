package cmd

import (
	"strconv"
	"strings"
)

// parseOptions turns a list of "key=value" positional arguments into a map,
// the CLI convention flexnn profile/bench use for their open-ended option
// sets (spec.md §6). Arguments without an "=" are ignored rather than
// rejected, matching the permissive ParamDict-style parsing the rest of
// this codebase follows.
func parseOptions(args []string) map[string]string {
	opts := map[string]string{}
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok {
			continue
		}
		opts[k] = v
	}
	return opts
}

func optInt(opts map[string]string, key string, def int) int {
	v, ok := opts[key]
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func optString(opts map[string]string, key, def string) string {
	if v, ok := opts[key]; ok {
		return v
	}
	return def
}
