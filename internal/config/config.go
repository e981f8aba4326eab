// Package config provides configuration loading for verification runs.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/gnoverse/contractvc/internal/vc"
)

// Backend names a solver implementation.
const (
	BackendFinite = "finite"
	BackendZ3     = "z3"
)

// Config represents the complete configuration
type Config struct {
	Solver       SolverConfig       `yaml:"solver"`
	Verification VerificationConfig `yaml:"verification"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
	Cache        CacheConfig        `yaml:"cache"`
	Log          LogConfig          `yaml:"log"`
}

// SolverConfig configures the decision procedure
type SolverConfig struct {
	// Backend is "z3" (default) or "finite". The finite search never
	// proves a goal over integers or arrays, it only refutes.
	Backend string `yaml:"backend"`
	// TimeBudget is the budget of each solver request
	TimeBudget time.Duration `yaml:"time_budget"`
	// Z3Path is the z3 executable (default: z3 from PATH)
	Z3Path string `yaml:"z3_path"`
	// Finite bounds the finite-model search
	Finite FiniteConfig `yaml:"finite"`
}

// FiniteConfig configures the finite-model solver
type FiniteConfig struct {
	// Ints overrides the integer domain (empty = boundaries of int_bits)
	Ints []int64 `yaml:"ints"`
	// ArrayWindow is the number of modelled array cells
	ArrayWindow int `yaml:"array_window"`
	// ArrayValues is the domain of array cells
	ArrayValues []int64 `yaml:"array_values"`
	// MaxModels caps the search space
	MaxModels int `yaml:"max_models"`
}

// VerificationConfig configures obligation generation
type VerificationConfig struct {
	// IntBits is the width of int for overflow checks (default: 32)
	IntBits uint `yaml:"int_bits"`
	// Completeness is "warn", "require" or "off"
	Completeness string `yaml:"completeness"`
	// CheckRTE enables run-time error obligations
	CheckRTE bool `yaml:"check_rte"`
	// CheckDisjoint checks that behaviors do not overlap
	CheckDisjoint bool `yaml:"check_disjoint"`
}

// SchedulerConfig configures concurrency
type SchedulerConfig struct {
	// MaxConcurrent bounds solver requests in flight
	MaxConcurrent int `yaml:"max_concurrent"`
	// FunctionParallelism bounds functions verified at once (0 = no bound)
	FunctionParallelism int `yaml:"function_parallelism"`
}

// CacheConfig configures the verdict cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	MaxAge  time.Duration `yaml:"max_age"`
}

// LogConfig configures logging
type LogConfig struct {
	// Level is a zap level name (debug, info, warn, error)
	Level string `yaml:"level"`
	// Development enables human-readable output
	Development bool `yaml:"development"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Solver: SolverConfig{
			Backend:    BackendZ3,
			TimeBudget: 10 * time.Second,
			Finite: FiniteConfig{
				ArrayWindow: 3,
				ArrayValues: []int64{0, 1},
				MaxModels:   1 << 20,
			},
		},
		Verification: VerificationConfig{
			IntBits:      32,
			Completeness: "warn",
			CheckRTE:     true,
		},
		Scheduler: SchedulerConfig{
			MaxConcurrent: 4,
		},
		Cache: CacheConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load decodes a YAML document over the defaults. Unknown keys are errors.
func Load(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads the configuration at path.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	switch c.Solver.Backend {
	case BackendFinite, BackendZ3:
	default:
		return fmt.Errorf("solver.backend must be %q or %q, got %q", BackendFinite, BackendZ3, c.Solver.Backend)
	}
	if c.Solver.TimeBudget <= 0 {
		return fmt.Errorf("solver.time_budget must be positive")
	}
	if c.Solver.Finite.ArrayWindow < 0 {
		return fmt.Errorf("solver.finite.array_window must not be negative")
	}
	if c.Solver.Finite.MaxModels < 0 {
		return fmt.Errorf("solver.finite.max_models must not be negative")
	}
	if c.Verification.IntBits < 8 || c.Verification.IntBits > 64 {
		return fmt.Errorf("verification.int_bits must be between 8 and 64")
	}
	if _, err := vc.ParseCompletenessMode(c.Verification.Completeness); err != nil {
		return fmt.Errorf("verification.completeness: %w", err)
	}
	if c.Scheduler.MaxConcurrent < 1 {
		return fmt.Errorf("scheduler.max_concurrent must be at least 1")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// BuilderOptions returns the obligation generation options.
func (c *Config) BuilderOptions() vc.Options {
	mode, _ := vc.ParseCompletenessMode(c.Verification.Completeness)
	return vc.Options{
		IntBits:       c.Verification.IntBits,
		Completeness:  mode,
		RuntimeErrors: c.Verification.CheckRTE,
		Disjointness:  c.Verification.CheckDisjoint,
	}
}

// Logger builds a zap logger at the configured level.
func (c *Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
