package mutation

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gnoverse/contractvc/internal/engine"
)

// ErrUnsoundContract is returned when the contract does not verify the
// original body, which makes the mutation score meaningless.
var ErrUnsoundContract = errors.New("contract does not verify the original function")

// Verifier verifies one unit. *engine.Engine implements it.
type Verifier interface {
	Verify(ctx context.Context, u engine.Unit) (*engine.FunctionReport, error)
}

// Options configures Analyze.
type Options struct {
	// Parallelism bounds concurrent mutant verifications. Zero means no bound.
	Parallelism int
	Logger      *zap.Logger
}

// Outcome is the verification result of one mutant.
type Outcome struct {
	Mutant Mutant
	Status engine.Status
	// Detected is true when the contract rejects the mutant.
	Detected bool
}

// Score summarizes a mutation analysis.
type Score struct {
	Function     string
	Total        int
	Detected     int
	Inconclusive int
	Outcomes     []Outcome
}

// Ratio returns the fraction of mutants the contract detects.
func (s *Score) Ratio() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Detected) / float64(s.Total)
}

func (s *Score) String() string {
	return fmt.Sprintf("%s: %d / %d mutants detected (%.2f)", s.Function, s.Detected, s.Total, s.Ratio())
}

// Analyze verifies every mutant of u's function against u's contract.
func Analyze(ctx context.Context, v Verifier, u engine.Unit, opts Options) (*Score, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	base, err := v.Verify(ctx, u)
	if err != nil {
		return nil, err
	}
	if st := base.Status(); st != engine.StatusVerified {
		return nil, fmt.Errorf("%w: %s is %s", ErrUnsoundContract, u.Function.Name, st)
	}

	mutants := Generate(u.Function)
	outcomes := make([]Outcome, len(mutants))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Parallelism > 0 {
		g.SetLimit(opts.Parallelism)
	}
	for i, m := range mutants {
		g.Go(func() error {
			report, err := v.Verify(gctx, engine.Unit{Function: m.Function, Contract: u.Contract})
			if err != nil {
				// a mutant the builder rejects is still detected
				outcomes[i] = Outcome{Mutant: m, Status: engine.StatusError, Detected: true}
				return nil
			}
			st := report.Status()
			outcomes[i] = Outcome{Mutant: m, Status: st, Detected: st == engine.StatusFailed}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	score := &Score{Function: u.Function.Name, Total: len(mutants), Outcomes: outcomes}
	for _, o := range outcomes {
		switch {
		case o.Detected:
			score.Detected++
		case o.Status == engine.StatusInconclusive:
			score.Inconclusive++
		}
	}
	logger.Info("mutation analysis finished",
		zap.String("function", score.Function),
		zap.Int("mutants", score.Total),
		zap.Int("detected", score.Detected),
		zap.Int("inconclusive", score.Inconclusive),
	)
	return score, nil
}
