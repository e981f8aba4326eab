// Package engine discharges the obligations of annotated functions with a
// solver and assembles the per-function and batch reports.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gnoverse/contractvc/internal/cache"
	"github.com/gnoverse/contractvc/internal/contract"
	"github.com/gnoverse/contractvc/internal/logic"
	"github.com/gnoverse/contractvc/internal/metrics"
	"github.com/gnoverse/contractvc/internal/program"
	"github.com/gnoverse/contractvc/internal/schedule"
	"github.com/gnoverse/contractvc/internal/solver"
	"github.com/gnoverse/contractvc/internal/vc"
)

// DefaultBudget is the per-obligation solver time budget.
const DefaultBudget = 10 * time.Second

// Unit is one function together with its contract.
type Unit struct {
	Function *program.Function
	Contract *contract.FunctionContract
}

// Engine is safe for concurrent use once built.
type Engine struct {
	solver      solver.Solver
	builder     *vc.Builder
	logger      *zap.Logger
	limiter     schedule.Limiter
	cache       *cache.Cache
	metrics     *metrics.Metrics
	budget      time.Duration
	parallelism int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithLimiter bounds concurrent solver requests. The default is unlimited.
func WithLimiter(l schedule.Limiter) Option {
	return func(e *Engine) {
		if l != nil {
			e.limiter = l
		}
	}
}

// WithCache reuses verdicts of identical requests.
func WithCache(c *cache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithMetrics records obligation and function outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithBudget sets the time budget of each solver request.
func WithBudget(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.budget = d
		}
	}
}

// WithBuilderOptions configures obligation generation.
func WithBuilderOptions(opts vc.Options) Option {
	return func(e *Engine) { e.builder = vc.NewBuilder(opts) }
}

// WithFunctionParallelism bounds how many functions VerifyBatch handles at
// once. Zero or less means no bound.
func WithFunctionParallelism(n int) Option {
	return func(e *Engine) { e.parallelism = n }
}

// New returns an engine that discharges obligations with s.
func New(s solver.Solver, opts ...Option) *Engine {
	e := &Engine{
		solver:  s,
		builder: vc.NewBuilder(vc.DefaultOptions()),
		logger:  zap.NewNop(),
		limiter: schedule.Unlimited(),
		budget:  DefaultBudget,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Obligations returns the obligations of u without solving them.
func (e *Engine) Obligations(u Unit) ([]vc.Obligation, error) {
	if u.Function == nil || u.Contract == nil {
		return nil, fmt.Errorf("incomplete unit")
	}
	obs, err := e.builder.Build(u.Function, u.Contract)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", u.Function.Name, err)
	}
	return obs, nil
}

// Verify discharges every obligation of u. Obligations are independent
// requests; the report lists them in obligation order regardless of
// completion order. A malformed unit yields an error and no report.
func (e *Engine) Verify(ctx context.Context, u Unit) (*FunctionReport, error) {
	obs, err := e.Obligations(u)
	if err != nil {
		e.logger.Warn("cannot build obligations", zap.Error(err))
		e.metrics.ObserveFunction(StatusError.String())
		return nil, err
	}

	start := time.Now()
	results := make([]Result, len(obs))
	var g errgroup.Group
	for i, ob := range obs {
		g.Go(func() error {
			results[i] = e.discharge(ctx, ob)
			return nil
		})
	}
	_ = g.Wait()

	report := &FunctionReport{Function: u.Function.Name, Results: results}
	for _, res := range results {
		if res.Obligation.Advisory && res.Verdict.Status != solver.Proved {
			report.Warnings = append(report.Warnings, Warning{
				ObligationID: res.Obligation.ID,
				Message:      fmt.Sprintf("%s: %s", res.Obligation.Description, res.Verdict.Status),
			})
		}
	}

	summary := report.Summary()
	e.metrics.ObserveFunction(report.Status().String())
	e.logger.Info("function verified",
		zap.String("function", report.Function),
		zap.String("status", report.Status().String()),
		zap.Int("obligations", summary.Total),
		zap.Int("proved", summary.Proved),
		zap.Int("warnings", len(report.Warnings)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return report, nil
}

// VerifyBatch verifies units in parallel. A unit that cannot be verified
// reports its error; the others proceed.
func (e *Engine) VerifyBatch(ctx context.Context, units []Unit) *BatchReport {
	batch := &BatchReport{RunID: uuid.New(), Functions: make([]*FunctionReport, len(units))}
	logger := e.logger.With(zap.String("run_id", batch.RunID.String()))
	logger.Info("batch started", zap.Int("functions", len(units)))

	var g errgroup.Group
	if e.parallelism > 0 {
		g.SetLimit(e.parallelism)
	}
	for i, u := range units {
		g.Go(func() error {
			report, err := e.Verify(ctx, u)
			if err != nil {
				name := "<unnamed>"
				if u.Function != nil {
					name = u.Function.Name
				}
				report = &FunctionReport{Function: name, Err: err}
			}
			batch.Functions[i] = report
			return nil
		})
	}
	_ = g.Wait()

	s := batch.Summary()
	logger.Info("batch finished", zap.Int("proved", s.Proved), zap.Int("total", s.Total))
	return batch
}

func (e *Engine) discharge(ctx context.Context, ob vc.Obligation) Result {
	res := Result{Obligation: ob}
	logger := e.logger.With(zap.String("obligation", ob.ID))

	if b, ok := ob.Formula.(logic.BoolConst); ok && b.Val {
		res.Verdict = solver.ProvedVerdict()
		e.metrics.ObserveObligation(ob.Kind.String(), res.Verdict.Status.String(), 0, false)
		return res
	}

	var key string
	if e.cache != nil {
		key = cache.Key(solver.VersionOf(e.solver), e.budget, ob.Formula)
		if v, ok := e.cache.Get(key); ok {
			res.Verdict = v
			res.Cached = true
			e.metrics.ObserveObligation(ob.Kind.String(), v.Status.String(), 0, true)
			return res
		}
	}

	if err := e.limiter.Acquire(ctx); err != nil {
		res.Verdict = solver.ContextVerdict(ctx)
		e.metrics.ObserveObligation(ob.Kind.String(), res.Verdict.Status.String(), 0, false)
		return res
	}
	defer e.limiter.Release()

	octx, cancel := context.WithTimeout(ctx, e.budget)
	defer cancel()

	start := time.Now()
	v, err := e.solver.Solve(octx, ob.Formula, e.budget)
	res.Duration = time.Since(start)
	switch {
	case err != nil:
		logger.Error("solver failed", zap.Error(err))
		v = solver.UnknownVerdict(err.Error())
	case v.Status == solver.Unknown && v.Reason == "" && octx.Err() != nil:
		v = solver.ContextVerdict(octx)
	}
	res.Verdict = v

	if e.cache != nil {
		e.cache.Put(key, v)
	}
	e.metrics.ObserveObligation(ob.Kind.String(), v.Status.String(), res.Duration, false)
	logger.Debug("obligation discharged",
		zap.String("kind", ob.Kind.String()),
		zap.String("status", v.Status.String()),
		zap.Duration("elapsed", res.Duration),
	)
	return res
}
