// Package contractvc verifies functions against ACSL-style contracts.
//
// A front end delivers function bodies as program.Function values and the
// annotation text; acsl parses the annotations into a contract, vc turns
// function and contract into obligations and engine discharges them with a
// solver. NewEngine wires these pieces from a configuration.
package contractvc

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/gnoverse/contractvc/internal/cache"
	"github.com/gnoverse/contractvc/internal/config"
	"github.com/gnoverse/contractvc/internal/engine"
	"github.com/gnoverse/contractvc/internal/metrics"
	"github.com/gnoverse/contractvc/internal/schedule"
	"github.com/gnoverse/contractvc/internal/solver"
	"github.com/gnoverse/contractvc/internal/solver/finite"
	"github.com/gnoverse/contractvc/internal/solver/smt"
)

// NewSolver returns the solver backend selected by cfg.
func NewSolver(cfg *config.Config) (solver.Solver, error) {
	switch cfg.Solver.Backend {
	case config.BackendFinite:
		opts := finite.DefaultOptions(cfg.Verification.IntBits)
		fc := cfg.Solver.Finite
		if len(fc.Ints) > 0 {
			opts.Ints = fc.Ints
		}
		if fc.ArrayWindow > 0 {
			opts.ArrayWindow = fc.ArrayWindow
		}
		if len(fc.ArrayValues) > 0 {
			opts.ArrayValues = fc.ArrayValues
		}
		if fc.MaxModels > 0 {
			opts.MaxModels = fc.MaxModels
		}
		return finite.New(opts), nil
	case config.BackendZ3:
		return smt.New(cfg.Solver.Z3Path), nil
	}
	return nil, fmt.Errorf("unknown solver backend %q", cfg.Solver.Backend)
}

// NewEngine builds an engine from cfg. A nil logger discards logs and a nil
// registerer leaves the metrics unregistered.
func NewEngine(cfg *config.Config, logger *zap.Logger, reg prometheus.Registerer) (*engine.Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s, err := NewSolver(cfg)
	if err != nil {
		return nil, err
	}
	m, err := metrics.New(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []engine.Option{
		engine.WithLogger(logger.Named("contractvc")),
		engine.WithLimiter(schedule.NewSemaphore(cfg.Scheduler.MaxConcurrent)),
		engine.WithMetrics(m),
		engine.WithBudget(cfg.Solver.TimeBudget),
		engine.WithBuilderOptions(cfg.BuilderOptions()),
		engine.WithFunctionParallelism(cfg.Scheduler.FunctionParallelism),
	}
	if cfg.Cache.Enabled {
		opts = append(opts, engine.WithCache(cache.New(cache.WithMaxAge(cfg.Cache.MaxAge))))
	}
	logger.Debug("engine configured",
		zap.String("backend", cfg.Solver.Backend),
		zap.Duration("time_budget", cfg.Solver.TimeBudget),
		zap.Int("max_concurrent", cfg.Scheduler.MaxConcurrent),
	)
	return engine.New(s, opts...), nil
}
