package smt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strings"
	"time"

	"github.com/gnoverse/contractvc/internal/logic"
	"github.com/gnoverse/contractvc/internal/solver"
)

// ErrSolverUnavailable is returned when the z3 binary cannot be started.
var ErrSolverUnavailable = errors.New("smt solver unavailable")

// Runner executes one SMT-LIB script and returns the solver's output.
type Runner func(ctx context.Context, script string, budget time.Duration) (string, error)

// Solver runs each obligation in its own z3 process.
type Solver struct {
	path    string
	version string
	run     Runner
}

// Option configures a Solver.
type Option func(*Solver)

// WithRunner replaces process execution, mainly for tests.
func WithRunner(r Runner) Option {
	return func(s *Solver) { s.run = r }
}

// WithVersion sets the version used in cache keys.
func WithVersion(v string) Option {
	return func(s *Solver) { s.version = v }
}

// New returns a solver that runs the z3 binary at path ("z3" when empty).
func New(path string, opts ...Option) *Solver {
	if path == "" {
		path = "z3"
	}
	s := &Solver{path: path, version: "z3"}
	s.run = s.exec
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Solver) Version() string {
	return "smt/" + s.version
}

// Solve asserts the negation of formula: unsat means Proved, sat means
// Disproved with the model as witness.
func (s *Solver) Solve(ctx context.Context, formula logic.Term, budget time.Duration) (solver.Verdict, error) {
	script, err := Encode(formula)
	if err != nil {
		return solver.Verdict{}, err
	}
	if budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	out, err := s.run(ctx, script, budget)
	if ctx.Err() != nil {
		return solver.ContextVerdict(ctx), nil
	}
	if err != nil {
		return solver.Verdict{}, err
	}
	return Interpret(out)
}

// Interpret reads the answer of check-sat and the following get-value.
func Interpret(out string) (solver.Verdict, error) {
	trimmed := strings.TrimSpace(out)
	line, rest, _ := strings.Cut(trimmed, "\n")
	switch strings.TrimSpace(line) {
	case "unsat":
		return solver.ProvedVerdict(), nil
	case "sat":
		w, err := parseModel(rest)
		if err != nil {
			return solver.Verdict{}, err
		}
		return solver.DisprovedVerdict(w), nil
	case "unknown":
		return solver.UnknownVerdict(solver.ReasonIncomplete), nil
	case "timeout":
		return solver.UnknownVerdict(solver.ReasonTimeout), nil
	}
	return solver.Verdict{}, fmt.Errorf("unexpected solver output %q", trimmed)
}

func (s *Solver) exec(ctx context.Context, script string, budget time.Duration) (string, error) {
	args := []string{"-smt2", "-in"}
	if budget > 0 {
		secs := int(math.Ceil(budget.Seconds()))
		args = append(args, fmt.Sprintf("-T:%d", secs))
	}
	cmd := exec.CommandContext(ctx, s.path, args...)
	cmd.Stdin = strings.NewReader(script)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && stdout.Len() > 0 {
			// z3 exits non-zero after get-value on unsat
			return stdout.String(), nil
		}
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%w: %v", ErrSolverUnavailable, err)
		}
		return "", fmt.Errorf("run %s: %w: %s", s.path, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
