// Package config loads gasguard.toml, the per-project scan and rule settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"gasguard/internal/detect"
	"gasguard/internal/rules"
	"gasguard/internal/scanner"
	"gasguard/internal/violation"
)

// FileName is the manifest searched for from the working directory upwards.
const FileName = "gasguard.toml"

// FailNever disables the findings exit status.
const FailNever = "never"

// Config mirrors gasguard.toml.
type Config struct {
	Scan  ScanConfig            `toml:"scan"`
	Rules map[string]RuleConfig `toml:"rules" validate:"dive"`

	// Path is the file the config was read from; empty for defaults.
	Path string `toml:"-"`
}

// ScanConfig is the [scan] table.
type ScanConfig struct {
	Jobs          int      `toml:"jobs" validate:"gte=0,lte=256"`
	Include       []string `toml:"include" validate:"dive,required"`
	Exclude       []string `toml:"exclude" validate:"dive,required"`
	FallbackStyle string   `toml:"fallback_style" validate:"omitempty,oneof=auto rust vyper soroban"`
	FailOn        string   `toml:"fail_on" validate:"omitempty,oneof=info warning error never"`
	KeepClean     bool     `toml:"keep_clean"`
	Format        string   `toml:"format" validate:"omitempty,oneof=pretty json yaml short sarif"`
	Cache         *bool    `toml:"cache"`
}

// RuleConfig is one [rules.<id>] table.
type RuleConfig struct {
	Enabled  *bool  `toml:"enabled"`
	Severity string `toml:"severity" validate:"omitempty,oneof=info warning error"`
}

// Default returns the settings used when no manifest exists.
func Default() *Config {
	return &Config{
		Scan: ScanConfig{
			FallbackStyle: "auto",
			FailOn:        "warning",
			Format:        "pretty",
		},
		Rules: map[string]RuleConfig{},
	}
}

// Find walks up from startDir looking for gasguard.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover loads the nearest manifest above startDir, or the defaults when
// there is none.
func Discover(startDir string) (*Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Load decodes and validates path. Unknown keys and rule ids are errors.
func Load(path string) (*Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if meta.IsDefined("scan", "fail_on") {
		cfg.Scan.FailOn = strings.ToLower(cfg.Scan.FailOn)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("toml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks value ranges and that every [rules.<id>] names a known rule.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = describe(fe)
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return err
	}
	var unknown []string
	for id := range c.Rules {
		if _, ok := rules.Lookup(id); !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: %s", rules.ErrUnknownRule, strings.Join(unknown, ", "))
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "gte", "lte":
		return fmt.Sprintf("%s must be %s %s", field, fe.Tag(), fe.Param())
	case "required":
		return fmt.Sprintf("%s must not be empty", field)
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

// Overrides converts the [rules] tables for rules.Build.
func (c *Config) Overrides() (map[string]rules.Override, error) {
	out := make(map[string]rules.Override, len(c.Rules))
	for id, rc := range c.Rules {
		var o rules.Override
		if rc.Enabled != nil {
			enabled := *rc.Enabled
			o.Enabled = &enabled
		}
		if rc.Severity != "" {
			sev, err := violation.ParseSeverity(rc.Severity)
			if err != nil {
				return nil, fmt.Errorf("rules.%s: %w", id, err)
			}
			o.Severity = &sev
		}
		out[id] = o
	}
	return out, nil
}

// Engine builds the rule engine the config describes.
func (c *Config) Engine() (*rules.Engine, error) {
	overrides, err := c.Overrides()
	if err != nil {
		return nil, err
	}
	rs, err := rules.Build(overrides)
	if err != nil {
		return nil, err
	}
	return rules.New(rs...)
}

// Fallback is the style used when detection finds none.
func (c *Config) Fallback() detect.Style {
	style, err := detect.ParseStyle(c.Scan.FallbackStyle)
	if err != nil {
		return detect.Unknown
	}
	return style
}

// FailOn returns the minimum severity that makes a scan fail; ok is false
// when findings never fail the run.
func (c *Config) FailOn() (violation.Severity, bool) {
	if c.Scan.FailOn == "" || c.Scan.FailOn == FailNever {
		return 0, false
	}
	sev, err := violation.ParseSeverity(c.Scan.FailOn)
	if err != nil {
		return 0, false
	}
	return sev, true
}

// CacheEnabled reports whether results are cached on disk. Defaults to true.
func (c *Config) CacheEnabled() bool {
	return c.Scan.Cache == nil || *c.Scan.Cache
}

// DirOptions returns the directory-scan options the config describes.
// Include and exclude patterns are relative to the scanned directory.
func (c *Config) DirOptions() scanner.DirOptions {
	return scanner.DirOptions{
		Jobs:      c.Scan.Jobs,
		Include:   append([]string(nil), c.Scan.Include...),
		Exclude:   append([]string(nil), c.Scan.Exclude...),
		KeepClean: c.Scan.KeepClean,
	}
}
