package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/spf13/cobra"

	"gasguard/internal/config"
	"gasguard/internal/report"
	"gasguard/internal/rules"
	"gasguard/internal/scanner"
	"gasguard/internal/source"
	"gasguard/internal/trace"
	"gasguard/internal/version"
)

const appName = "gasguard"

// activeCache is the result cache of the running command, if any.
var activeCache atomic.Pointer[scanner.DiskCache]

// loadConfig reads --config, or the nearest gasguard.toml above target.
func loadConfig(cmd *cobra.Command, target string) (*config.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	if path != "" {
		return config.Load(path)
	}

	start := target
	if start == "" || start == "-" {
		start = "."
	} else if info, statErr := os.Stat(start); statErr != nil || !info.IsDir() {
		start = filepath.Dir(start)
	}
	return config.Discover(start)
}

// newScanner builds the engine and scanner cfg describes. A cache that
// cannot be opened is traced and skipped.
func newScanner(ctx context.Context, cfg *config.Config, fs *source.FileSet, noCache bool) (*scanner.Scanner, *rules.Engine, error) {
	engine, err := cfg.Engine()
	if err != nil {
		return nil, nil, err
	}
	opts := []scanner.Option{
		scanner.WithFileSet(fs),
		scanner.WithFallback(cfg.Fallback()),
	}
	if cfg.CacheEnabled() && !noCache {
		cache, cacheErr := scanner.OpenDiskCache(appName)
		if cacheErr != nil {
			trace.Point(trace.FromContext(ctx), trace.ScopeDriver, "cache-disabled", cacheErr.Error(), trace.CurrentSpan(ctx).SpanID)
		} else {
			activeCache.Store(cache)
			opts = append(opts, scanner.WithCache(cache))
		}
	}
	return scanner.New(engine, opts...), engine, nil
}

// ruleInfos describes the configured rules of engine.
func ruleInfos(engine *rules.Engine) []report.RuleInfo {
	rs := engine.Rules()
	out := make([]report.RuleInfo, 0, len(rs))
	for _, r := range rs {
		info := report.RuleInfo{
			ID:       r.ID(),
			Name:     r.Name(),
			Severity: r.Severity(),
			Enabled:  r.Enabled(),
		}
		if d, ok := r.(rules.Describer); ok {
			info.Description = d.Description()
		}
		out = append(out, info)
	}
	return out
}

func reportMeta(engine *rules.Engine) report.Meta {
	return report.Meta{
		Tool:    appName,
		Version: version.Version,
		Args:    append([]string(nil), os.Args[1:]...),
		Rules:   ruleInfos(engine),
	}
}
