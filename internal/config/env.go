// This file contains environment variable utilities for configuration override.

package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Environment Variable Utilities
// ─────────────────────────────────────────────────────────────────────────────

// isFlagSet checks if a flag was explicitly set on the command line.
// This is used to determine whether to apply environment variable overrides.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// isFlagSetAny checks if any of the specified flags were explicitly set.
// This is useful for aliased flags where either the short or long form may be used.
func isFlagSetAny(fs *flag.FlagSet, names ...string) bool {
	for _, name := range names {
		if isFlagSet(fs, name) {
			return true
		}
	}
	return false
}

// envOverride declares a single environment variable override.
// Each entry maps an env key (without the TXFIB_ prefix) to the CLI flag
// name(s) it corresponds to and a function that applies the env value.
// Values that do not parse leave the configuration unchanged.
type envOverride struct {
	envKey string
	flags  []string
	apply  func(*AppConfig, string)
}

func uintOverride(dst func(*AppConfig) *uint64) func(*AppConfig, string) {
	return func(c *AppConfig, v string) {
		if parsed, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst(c) = parsed
		}
	}
}

func intOverride(dst func(*AppConfig) *int) func(*AppConfig, string) {
	return func(c *AppConfig, v string) {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst(c) = parsed
		}
	}
}

func durationOverride(dst func(*AppConfig) *time.Duration) func(*AppConfig, string) {
	return func(c *AppConfig, v string) {
		if parsed, err := time.ParseDuration(v); err == nil {
			*dst(c) = parsed
		}
	}
}

func stringOverride(dst func(*AppConfig) *string) func(*AppConfig, string) {
	return func(c *AppConfig, v string) { *dst(c) = v }
}

func boolOverride(dst func(*AppConfig) *bool) func(*AppConfig, string) {
	return func(c *AppConfig, v string) {
		p := dst(c)
		*p = parseBoolEnv(v, *p)
	}
}

// envOverrides is the declarative table of all environment variable overrides.
var envOverrides = []envOverride{
	// Numeric overrides
	{"N", []string{"n"}, uintOverride(func(c *AppConfig) *uint64 { return &c.N })},
	{"MAX_N", []string{"max-n"}, uintOverride(func(c *AppConfig) *uint64 { return &c.MaxN })},
	{"STEP_BUDGET", []string{"step-budget"}, intOverride(func(c *AppConfig) *int { return &c.StepBudget })},
	{"CACHE_CAPACITY", []string{"cache-capacity"}, intOverride(func(c *AppConfig) *int { return &c.CacheCapacity })},
	{"POOL_SIZE", []string{"pool-size"}, intOverride(func(c *AppConfig) *int { return &c.PoolSize })},
	{"POOL_QUEUE", []string{"pool-queue"}, intOverride(func(c *AppConfig) *int { return &c.PoolQueue })},
	{"MAX_PROCESSES", []string{"max-processes"}, intOverride(func(c *AppConfig) *int { return &c.MaxProcesses })},

	// Duration overrides
	{"TIMEOUT", []string{"timeout"}, durationOverride(func(c *AppConfig) *time.Duration { return &c.Timeout })},
	{"SHUTDOWN_TIMEOUT", []string{"shutdown-timeout"}, durationOverride(func(c *AppConfig) *time.Duration { return &c.ShutdownTimeout })},

	// String overrides
	{"ADDR", []string{"addr"}, stringOverride(func(c *AppConfig) *string { return &c.Addr })},
	{"ALGO", []string{"algo"}, stringOverride(func(c *AppConfig) *string { return &c.Algo })},
	{"MODE", []string{"mode"}, stringOverride(func(c *AppConfig) *string { return &c.Mode })},
	{"WORKER", []string{"worker"}, stringOverride(func(c *AppConfig) *string { return &c.Worker })},
	{"PID_FILE", []string{"pid-file"}, stringOverride(func(c *AppConfig) *string { return &c.PIDFile })},
	{"LOG_LEVEL", []string{"log-level"}, stringOverride(func(c *AppConfig) *string { return &c.LogLevel })},
	{"LOG_FORMAT", []string{"log-format"}, stringOverride(func(c *AppConfig) *string { return &c.LogFormat })},
	{"OUTPUT", []string{"output", "o"}, stringOverride(func(c *AppConfig) *string { return &c.OutputFile })},

	// Boolean overrides
	{"SERVE", []string{"serve"}, boolOverride(func(c *AppConfig) *bool { return &c.Serve })},
	{"QUIET", []string{"quiet", "q"}, boolOverride(func(c *AppConfig) *bool { return &c.Quiet })},
	{"CALCULATE", []string{"calculate", "c"}, boolOverride(func(c *AppConfig) *bool { return &c.ShowValue })},
	{"NO_COLOR", []string{"no-color"}, boolOverride(func(c *AppConfig) *bool { return &c.NoColor })},
}

// parseBoolEnv parses a boolean environment variable value.
// Accepts "true", "1", "yes" as true; "false", "0", "no" as false (case-insensitive).
// Returns defaultVal if the value is not recognized.
func parseBoolEnv(val string, defaultVal bool) bool {
	switch strings.ToLower(val) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return defaultVal
}

// applyEnvOverrides applies environment variable values to the configuration
// for any flags that were not explicitly set on the command line.
// This implements the priority: CLI flags > Environment variables > Defaults.
func applyEnvOverrides(config *AppConfig, fs *flag.FlagSet) {
	for _, o := range envOverrides {
		if isFlagSetAny(fs, o.flags...) {
			continue
		}
		if val := os.Getenv(EnvPrefix + o.envKey); val != "" {
			o.apply(config, val)
		}
	}
}
