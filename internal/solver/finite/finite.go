// Package finite implements a reference solver that searches a bounded
// model space for counterexamples.
//
// Integer variables range over a fixed domain that includes the machine
// boundaries and arrays are modelled by a small window of cells. A
// quantifier whose guard bounds it to a short range is enumerated in full;
// any other quantifier is sampled over the integer domain plus the values
// of the model being checked.
//
// A counterexample is only reported when it was evaluated exactly, so a
// Disproved verdict is always sound. Exhausting the search proves a
// formula only when it has no integer or array variables and no sampled
// quantifier; otherwise the verdict is Unknown with ReasonBounded.
package finite

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/gnoverse/contractvc/internal/logic"
	"github.com/gnoverse/contractvc/internal/solver"
)

// Options bounds the search.
type Options struct {
	// Ints is the domain of integer variables.
	Ints []int64

	// ArrayWindow is the number of modelled cells, starting at index 0.
	// Other cells read as zero.
	ArrayWindow int
	ArrayValues []int64

	// MaxModels caps the number of assignments tried.
	MaxModels int
}

// DefaultOptions returns a domain centred on zero plus the boundaries of
// a signed integer of the given width.
func DefaultOptions(intBits uint) Options {
	lo, hi := logic.IntBounds(intBits)
	return Options{
		Ints:        []int64{lo, lo + 1, -2, -1, 0, 1, 2, 3, hi - 1, hi},
		ArrayWindow: 3,
		ArrayValues: []int64{0, 1},
		MaxModels:   1 << 20,
	}
}

// Solver is the finite-model solver.
type Solver struct {
	opts Options
}

func New(opts Options) *Solver {
	if len(opts.Ints) == 0 {
		opts.Ints = DefaultOptions(32).Ints
	}
	if len(opts.ArrayValues) == 0 {
		opts.ArrayValues = []int64{0, 1}
	}
	if opts.ArrayWindow < 0 {
		opts.ArrayWindow = 0
	}
	if opts.MaxModels <= 0 {
		opts.MaxModels = 1 << 20
	}
	return &Solver{opts: opts}
}

// Version identifies the domain so that cached verdicts are not reused
// across different search spaces.
func (s *Solver) Version() string {
	ints := make([]string, len(s.opts.Ints))
	for i, v := range s.opts.Ints {
		ints[i] = fmt.Sprint(v)
	}
	vals := make([]string, len(s.opts.ArrayValues))
	for i, v := range s.opts.ArrayValues {
		vals[i] = fmt.Sprint(v)
	}
	return fmt.Sprintf("finite/ints=%s/window=%d/values=%s",
		strings.Join(ints, ","), s.opts.ArrayWindow, strings.Join(vals, ","))
}

// dimension is one free variable with its candidate values.
type dimension struct {
	v      logic.Var
	values []value
}

// Solve searches for an assignment that falsifies formula.
func (s *Solver) Solve(ctx context.Context, formula logic.Term, budget time.Duration) (solver.Verdict, error) {
	if err := logic.CheckPredicate("obligation", formula); err != nil {
		return solver.Verdict{}, err
	}
	if budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	dims, total, err := s.dimensions(formula)
	if err != nil {
		return solver.UnknownVerdict(solver.ReasonUnsupported), nil
	}
	if total > s.opts.MaxModels {
		return solver.UnknownVerdict(solver.ReasonIncomplete), nil
	}

	exact := true
	for _, d := range dims {
		if d.v.Type != logic.SortBool {
			exact = false
		}
	}

	counter := make([]int, len(dims))
	for n := 0; ; n++ {
		if n%1024 == 0 && ctx.Err() != nil {
			return solver.ContextVerdict(ctx), nil
		}

		m := newModel(s.opts.Ints)
		for i, d := range dims {
			m.bind(d.v.Name, d.values[counter[i]])
		}
		ok, err := m.eval(formula)
		if err != nil {
			return solver.Verdict{}, err
		}
		if m.inexact {
			exact = false
		} else if !ok.(bool) {
			return solver.DisprovedVerdict(witness(dims, counter)), nil
		}

		// advance the mixed-radix counter
		i := len(counter) - 1
		for ; i >= 0; i-- {
			counter[i]++
			if counter[i] < len(dims[i].values) {
				break
			}
			counter[i] = 0
		}
		if i < 0 {
			if !exact {
				return solver.UnknownVerdict(solver.ReasonBounded), nil
			}
			return solver.ProvedVerdict(), nil
		}
	}
}

func (s *Solver) dimensions(formula logic.Term) ([]dimension, int, error) {
	vars := logic.FreeVars(formula)
	dims := make([]dimension, len(vars))
	total := 1
	for i, v := range vars {
		var values []value
		switch v.Type {
		case logic.SortInt:
			for _, x := range s.opts.Ints {
				values = append(values, big.NewInt(x))
			}
		case logic.SortBool:
			values = []value{false, true}
		case logic.SortArray:
			values = s.arrays()
		default:
			return nil, 0, fmt.Errorf("variable %s has no sort", v.Name)
		}
		dims[i] = dimension{v: v, values: values}
		if total <= s.opts.MaxModels {
			total *= len(values)
		}
	}
	return dims, total, nil
}

// arrays enumerates every filling of the window.
func (s *Solver) arrays() []value {
	out := []value{&array{}}
	for cell := 0; cell < s.opts.ArrayWindow; cell++ {
		var next []value
		for _, prev := range out {
			for _, x := range s.opts.ArrayValues {
				next = append(next, prev.(*array).store(big.NewInt(int64(cell)), big.NewInt(x)))
			}
		}
		out = next
	}
	for _, a := range out {
		a.(*array).window = s.opts.ArrayWindow
	}
	return out
}

func witness(dims []dimension, counter []int) *solver.Witness {
	w := &solver.Witness{}
	for i, d := range dims {
		w.Assignments = append(w.Assignments, solver.Assignment{
			Name:  d.v.Name,
			Value: render(d.values[counter[i]]),
		})
	}
	sort.Slice(w.Assignments, func(i, j int) bool { return w.Assignments[i].Name < w.Assignments[j].Name })
	return w
}
