// Package config parses and validates the txfib command line.
//
// Values are resolved with the priority: command-line flags, then TXFIB_
// environment variables, then the defaults below.
package config

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	apperrors "github.com/zed/txfib/internal/errors"
	"github.com/zed/txfib/internal/fibonacci"
)

const (
	// EnvPrefix is prepended to every environment override.
	EnvPrefix = "TXFIB_"

	// DefaultAddr is the listen address of the HTTP server.
	DefaultAddr = ":8880"
	// DefaultN is the index computed by the CLI when -n is not given.
	DefaultN uint64 = 30
	// DefaultStepBudget is the number of work units a cooperative task runs
	// per loop slice.
	DefaultStepBudget = fibonacci.DefaultYieldInterval
	// DefaultPoolSize is the number of goroutines serving thread offload.
	DefaultPoolSize = 4
	// DefaultPoolQueue is the number of offloaded jobs that may wait for a
	// free goroutine.
	DefaultPoolQueue = 64
	// DefaultMaxProcesses bounds the number of live worker processes.
	DefaultMaxProcesses = 4
	// DefaultMaxN is the largest index accepted from clients.
	DefaultMaxN uint64 = 100_000
	// DefaultTimeout bounds a single computation.
	DefaultTimeout = time.Minute
	// DefaultShutdownTimeout bounds the graceful drain of the HTTP server.
	DefaultShutdownTimeout = 10 * time.Second
)

// AppConfig aggregates the application's configuration parameters.
type AppConfig struct {
	// Serve starts the HTTP server instead of a one-shot comparison.
	Serve bool
	// Addr is the HTTP listen address.
	Addr string
	// N is the index computed in CLI mode.
	N uint64
	// Algo is "all" or a comma-separated list of strategies.
	Algo string
	// Mode forces an execution mode; empty keeps each strategy's default.
	Mode string
	// StepBudget is the default cooperative slice size.
	StepBudget int
	// CacheCapacity bounds the default memo cache; 0 is unbounded.
	CacheCapacity int
	// PoolSize and PoolQueue size the thread offload pool.
	PoolSize  int
	PoolQueue int
	// MaxProcesses bounds concurrent worker processes.
	MaxProcesses int
	// MaxN is the largest index the server accepts.
	MaxN uint64
	// Timeout bounds each computation.
	Timeout time.Duration
	// ShutdownTimeout bounds the server drain on exit.
	ShutdownTimeout time.Duration
	// Worker is the worker binary; empty re-executes this binary.
	Worker string
	// PIDFile is written on server start and removed on exit.
	PIDFile string
	// LogLevel and LogFormat configure zerolog.
	LogLevel  string
	LogFormat string
	// Quiet prints only the value in CLI mode.
	Quiet bool
	// ShowValue prints the computed value in CLI mode.
	ShowValue bool
	// OutputFile saves the CLI result to a file.
	OutputFile string
	// NoColor disables colored output.
	NoColor bool
}

// Default returns the configuration used when no flag or variable is set.
func Default() AppConfig {
	return AppConfig{
		Addr:            DefaultAddr,
		N:               DefaultN,
		Algo:            "all",
		StepBudget:      DefaultStepBudget,
		PoolSize:        DefaultPoolSize,
		PoolQueue:       DefaultPoolQueue,
		MaxProcesses:    DefaultMaxProcesses,
		MaxN:            DefaultMaxN,
		Timeout:         DefaultTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		LogLevel:        "info",
		LogFormat:       "json",
	}
}

// ParseConfig parses the command line arguments into an AppConfig, applies
// environment overrides for flags that were not set and validates the
// result. Validation failures are returned as apperrors.ConfigError;
// -h returns flag.ErrHelp.
func ParseConfig(programName string, args []string, errorWriter io.Writer, availableStrategies []string) (AppConfig, error) {
	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	fs.SetOutput(errorWriter)
	fs.Usage = func() {
		fmt.Fprintf(errorWriter, "Usage: %s [flags]\n       %s worker\n\nFlags:\n", programName, programName)
		fs.PrintDefaults()
		fmt.Fprintf(errorWriter, "\nStrategies: %s\n", strings.Join(availableStrategies, ", "))
	}

	config := Default()
	fs.BoolVar(&config.Serve, "serve", config.Serve, "Run the HTTP server.")
	fs.StringVar(&config.Addr, "addr", config.Addr, "HTTP listen address.")
	fs.Uint64Var(&config.N, "n", config.N, "Index of the Fibonacci number to compute in CLI mode.")
	fs.StringVar(&config.Algo, "algo", config.Algo, "Strategies to run: 'all' or a comma-separated list.")
	fs.StringVar(&config.Mode, "mode", config.Mode, "Execution mode: inline, cooperative, thread or process (default: per strategy).")
	fs.IntVar(&config.StepBudget, "step-budget", config.StepBudget, "Work units a cooperative task runs per slice.")
	fs.IntVar(&config.CacheCapacity, "cache-capacity", config.CacheCapacity, "Capacity of the default memo cache (0 = unbounded).")
	fs.IntVar(&config.PoolSize, "pool-size", config.PoolSize, "Goroutines serving thread offload.")
	fs.IntVar(&config.PoolQueue, "pool-queue", config.PoolQueue, "Offloaded jobs that may wait for a goroutine.")
	fs.IntVar(&config.MaxProcesses, "max-processes", config.MaxProcesses, "Maximum concurrent worker processes.")
	fs.Uint64Var(&config.MaxN, "max-n", config.MaxN, "Largest index accepted by the server.")
	fs.DurationVar(&config.Timeout, "timeout", config.Timeout, "Maximum duration of a computation.")
	fs.DurationVar(&config.ShutdownTimeout, "shutdown-timeout", config.ShutdownTimeout, "Maximum duration of the server drain.")
	fs.StringVar(&config.Worker, "worker", config.Worker, "Worker binary for process offload (default: this binary).")
	fs.StringVar(&config.PIDFile, "pid-file", config.PIDFile, "File receiving the server's process ID.")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "Log level: debug, info, warn or error.")
	fs.StringVar(&config.LogFormat, "log-format", config.LogFormat, "Log format: json or console.")
	fs.BoolVar(&config.Quiet, "quiet", config.Quiet, "Print only the result.")
	fs.BoolVar(&config.Quiet, "q", config.Quiet, "Print only the result (shorthand).")
	fs.BoolVar(&config.ShowValue, "calculate", config.ShowValue, "Print the computed value.")
	fs.BoolVar(&config.ShowValue, "c", config.ShowValue, "Print the computed value (shorthand).")
	fs.StringVar(&config.OutputFile, "output", config.OutputFile, "Save the result to a file.")
	fs.StringVar(&config.OutputFile, "o", config.OutputFile, "Save the result to a file (shorthand).")
	fs.BoolVar(&config.NoColor, "no-color", config.NoColor, "Disable colored output.")

	if err := fs.Parse(args); err != nil {
		return AppConfig{}, err
	}
	if fs.NArg() > 0 {
		return AppConfig{}, apperrors.NewConfigError("unexpected argument: %q", fs.Arg(0))
	}

	applyEnvOverrides(&config, fs)
	config.Algo = strings.ToLower(strings.TrimSpace(config.Algo))

	if err := config.Validate(availableStrategies); err != nil {
		fmt.Fprintln(errorWriter, "Configuration error:", err)
		return AppConfig{}, err
	}
	return config, nil
}

// Validate checks the semantic consistency of the configuration.
func (c AppConfig) Validate(availableStrategies []string) error {
	if c.Timeout <= 0 {
		return apperrors.NewConfigError("the timeout value must be strictly positive")
	}
	if c.ShutdownTimeout <= 0 {
		return apperrors.NewConfigError("the shutdown timeout must be strictly positive")
	}
	if c.StepBudget <= 0 {
		return apperrors.NewConfigError("the step budget must be strictly positive")
	}
	if c.CacheCapacity < 0 {
		return apperrors.NewConfigError("the cache capacity cannot be negative")
	}
	if c.PoolSize < 1 {
		return apperrors.NewConfigError("the pool size must be at least 1")
	}
	if c.PoolQueue < 0 {
		return apperrors.NewConfigError("the pool queue cannot be negative")
	}
	if c.MaxProcesses < 1 {
		return apperrors.NewConfigError("the process limit must be at least 1")
	}
	if c.MaxN > 0 && c.N > c.MaxN && !c.Serve {
		return apperrors.NewConfigError("index %d exceeds the limit of %d", c.N, c.MaxN)
	}
	if c.Mode != "" {
		if _, err := fibonacci.ParseMode(c.Mode); err != nil {
			return apperrors.NewConfigError("%v", err)
		}
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return apperrors.NewConfigError("unknown log format %q (expected json or console)", c.LogFormat)
	}
	if c.Algo != "all" && c.Algo != "" {
		for _, name := range strings.Split(c.Algo, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if !isAvailable(name, availableStrategies) {
				return apperrors.NewConfigError("unrecognized strategy: %q (available: %s)",
					name, strings.Join(availableStrategies, ", "))
			}
		}
	}
	return nil
}

// isAvailable reports whether name, or an alias of it, is in available. An
// empty list accepts every known strategy.
func isAvailable(name string, available []string) bool {
	s, err := fibonacci.ParseStrategy(name)
	if err != nil {
		return false
	}
	if len(available) == 0 {
		return true
	}
	for _, a := range available {
		if strings.EqualFold(a, s.String()) {
			return true
		}
	}
	return false
}
