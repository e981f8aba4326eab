package finite

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnoverse/contractvc/internal/fixture"
	"github.com/gnoverse/contractvc/internal/logic"
	"github.com/gnoverse/contractvc/internal/program"
	"github.com/gnoverse/contractvc/internal/solver"
	"github.com/gnoverse/contractvc/internal/vc"
)

func solve(t *testing.T, s *Solver, formula logic.Term) solver.Verdict {
	t.Helper()
	v, err := s.Solve(context.Background(), formula, time.Minute)
	require.NoError(t, err)
	return v
}

func TestSolveFormulas(t *testing.T) {
	s := New(DefaultOptions(32))
	x, y := logic.IntVar("x"), logic.IntVar("y")
	a, b := logic.ArrayVar("a"), logic.ArrayVar("b")
	k := logic.IntVar("k")
	bounded := solver.UnknownVerdict(solver.ReasonBounded)
	upTo := func(n int64) logic.Term {
		return logic.And(logic.Le(logic.Int(0), k), logic.Lt(k, logic.Int(n)))
	}

	tests := []struct {
		name    string
		formula logic.Term
		want    solver.Verdict
	}{
		{"closed", logic.Lt(logic.Int(1), logic.Int(2)), solver.ProvedVerdict()},
		{"boolean", logic.Or(logic.BoolVar("b"), logic.Not(logic.BoolVar("b"))), solver.ProvedVerdict()},
		{"falsifiable", logic.Gt(x, logic.Int(0)), solver.Verdict{Status: solver.Disproved}},
		{"array cell", logic.Eq(logic.At(a, logic.Int(0)), logic.Int(0)), solver.Verdict{Status: solver.Disproved}},

		// integers and arrays are only sampled
		{"tautology", logic.Or(logic.Lt(x, y), logic.Ge(x, y)), bounded},
		{"unsampled value", logic.Neq(x, logic.Int(7)), bounded},
		{"unbounded arithmetic", logic.Implies(logic.Gt(x, logic.Int(0)), logic.Gt(logic.Add(x, logic.Int(1)), x)), bounded},
		{"truncating division", logic.Eq(logic.Div(logic.Int(-7), x), logic.Neg(logic.Div(logic.Int(7), x))), bounded},
		{"division by zero", logic.Eq(logic.Div(x, logic.Int(0)), logic.Int(0)), bounded},
		{"remainder sign", logic.Implies(logic.Lt(x, logic.Int(0)), logic.Le(logic.Mod(x, logic.Int(2)), logic.Int(0))), bounded},
		{"exists a model value", logic.Exist("k", logic.Eq(k, x)), bounded},
		{"read over write", logic.Eq(logic.At(logic.Update(a, x, y), x), y), bounded},
		{"unwritten cell", logic.Eq(logic.At(a, logic.Int(7)), logic.Int(0)), bounded},
		{"valid is assumed", logic.Valid{Base: a, Lo: logic.Int(0), Hi: x}, bounded},

		// quantifiers
		{"forall squares", logic.Forall("k", logic.Ge(logic.Mul(k, k), logic.Int(0))), bounded},
		{"short range", logic.Forall("k", logic.Implies(upTo(3), logic.Lt(logic.Mul(k, k), logic.Int(9)))), solver.ProvedVerdict()},
		{"short range outside the sample", logic.Forall("k", logic.Implies(upTo(5), logic.Lt(k, logic.Int(4)))), solver.Verdict{Status: solver.Disproved}},
		{"witness outside the sample", logic.Exist("k", logic.Eq(logic.Mul(k, k), logic.Int(49))), bounded},
		{"threshold outside the sample", logic.Exist("k", logic.Gt(k, logic.Int(1000))), solver.ProvedVerdict()},
		{"comparisons only", logic.Forall("k", logic.Implies(logic.Gt(k, logic.Int(100)), logic.Ge(k, logic.Int(50)))), solver.ProvedVerdict()},
		{"bounded prefix", logic.Implies(
			logic.Forall("k", logic.Implies(logic.And(logic.Le(logic.Int(0), k), logic.Lt(k, x)), logic.Eq(logic.At(a, k), logic.At(b, k)))),
			logic.Eq(logic.At(a, logic.Int(0)), logic.At(b, logic.Int(0))),
		), solver.Verdict{Status: solver.Disproved}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := solve(t, s, tt.formula)
			assert.Equal(t, tt.want.Status, got.Status)
			assert.Equal(t, tt.want.Reason, got.Reason)
		})
	}
}

func TestSolveWitness(t *testing.T) {
	s := New(DefaultOptions(32))
	x := logic.IntVar("x")

	v := solve(t, s, logic.Le(logic.Neg(x), logic.Int(2147483647)))
	require.Equal(t, solver.Disproved, v.Status)
	assert.Equal(t, "{x = -2147483648}", v.Witness.String())

	v = solve(t, s, logic.Eq(logic.At(logic.ArrayVar("a"), logic.Int(0)), logic.Int(0)))
	require.Equal(t, solver.Disproved, v.Status)
	got, ok := v.Witness.Value("a")
	require.True(t, ok)
	assert.Equal(t, "[1, 0, 0]", got)
}

func TestSolveLimits(t *testing.T) {
	x, y := logic.IntVar("x"), logic.IntVar("y")
	formula := logic.Or(logic.Lt(x, y), logic.Ge(x, y))

	t.Run("too many models", func(t *testing.T) {
		s := New(Options{MaxModels: 50})
		v := solve(t, s, formula)
		assert.Equal(t, solver.UnknownVerdict(solver.ReasonIncomplete), v)
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		v, err := New(DefaultOptions(32)).Solve(ctx, formula, 0)
		require.NoError(t, err)
		assert.Equal(t, solver.UnknownVerdict(solver.ReasonCanceled), v)
	})

	t.Run("deadline", func(t *testing.T) {
		ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
		defer cancel()
		v, err := New(DefaultOptions(32)).Solve(ctx, formula, time.Second)
		require.NoError(t, err)
		assert.Equal(t, solver.UnknownVerdict(solver.ReasonTimeout), v)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := New(DefaultOptions(32)).Solve(context.Background(), x, time.Second)
		assert.ErrorIs(t, err, logic.ErrMalformedPredicate)
	})
}

func TestVersion(t *testing.T) {
	s := New(DefaultOptions(8))
	assert.Equal(t, "finite/ints=-128,-127,-2,-1,0,1,2,3,126,127/window=3/values=0,1", s.Version())
	assert.NotEqual(t, s.Version(), New(DefaultOptions(32)).Version())
}

func discharge(t *testing.T, f fixture.Fixture) map[string]solver.Verdict {
	t.Helper()
	return dischargeWith(t, f, DefaultOptions(32))
}

// small keeps nested loops with three arrays in the thousands of models.
var small = Options{Ints: []int64{-1, 0, 1, 2, 3}, ArrayWindow: 2, ArrayValues: []int64{0, 1}}

func dischargeWith(t *testing.T, f fixture.Fixture, opts Options) map[string]solver.Verdict {
	t.Helper()
	fc, err := f.Parse()
	require.NoError(t, err)
	obs, err := vc.NewBuilder(vc.DefaultOptions()).Build(f.Function, fc)
	require.NoError(t, err)

	s := New(opts)
	out := make(map[string]solver.Verdict, len(obs))
	for _, o := range obs {
		out[o.ID] = solve(t, s, o.Formula)
	}
	return out
}

// refuted reports the obligations with a counterexample. Every other
// verdict must be Proved or bounded.
func refuted(t *testing.T, verdicts map[string]solver.Verdict) []string {
	t.Helper()
	var ids []string
	for id, v := range verdicts {
		switch {
		case v.Status == solver.Disproved:
			ids = append(ids, id)
		case v.Status == solver.Unknown:
			assert.Equal(t, solver.ReasonBounded, v.Reason, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func TestAbsIsNotRefuted(t *testing.T) {
	assert.Empty(t, refuted(t, discharge(t, fixture.Abs())))
}

func TestAbsWithoutPreconditionOverflows(t *testing.T) {
	verdicts := discharge(t, fixture.AbsUnguarded())
	require.Equal(t, []string{"abs/rte/overflow/2.0"}, refuted(t, verdicts))

	x, ok := verdicts["abs/rte/overflow/2.0"].Witness.Value("x")
	require.True(t, ok)
	assert.Equal(t, "-2147483648", x)
}

func TestArrayEqualityIsNotRefuted(t *testing.T) {
	verdicts := discharge(t, fixture.ArrayEquality())
	require.Len(t, verdicts, 10)
	assert.Empty(t, refuted(t, verdicts))
}

func TestFillIsNotRefuted(t *testing.T) {
	verdicts := discharge(t, fixture.Fill())
	require.Len(t, verdicts, 8)
	assert.Empty(t, refuted(t, verdicts))
}

func TestWeakInvariantIsNotPreserved(t *testing.T) {
	f := fixture.ArrayEquality()
	f.Loops[fixture.ArrayEqualityLoop] = "loop invariant 0 <= i <= n; loop assigns i;"
	assert.Equal(t, []string{"checkArrayEquality/post/not_equal"}, refuted(t, discharge(t, f)),
		"without the prefix invariant the loop may exit on unequal arrays")
}

func TestFrameViolations(t *testing.T) {
	t.Run("function writes outside assigns", func(t *testing.T) {
		f := fixture.Fill()
		f.Contract = strings.Replace(f.Contract, "assigns a[0..n-1];", `assigns \nothing;`, 1)
		assert.Equal(t, []string{"fill/assigns"}, refuted(t, discharge(t, f)))
	})

	t.Run("loop writes outside loop assigns", func(t *testing.T) {
		f := fixture.Fill()
		f.Loops[fixture.FillLoop] = strings.Replace(f.Loops[fixture.FillLoop], "loop assigns i, a[0..n-1];", "loop assigns i;", 1)
		assert.Contains(t, refuted(t, discharge(t, f)), "fill/loop/fill.L1/assigns")
	})

	t.Run("outer loop misses an inner write", func(t *testing.T) {
		f := fixture.Clear()
		f.Loops[fixture.ClearOuterLoop] = strings.Replace(f.Loops[fixture.ClearOuterLoop], "loop assigns i, j, a[0..n-1];", "loop assigns i, j;", 1)
		ids := refuted(t, dischargeWith(t, f, small))
		assert.Contains(t, ids, "clear/loop/clear.L1/assigns")
		assert.NotContains(t, ids, "clear/loop/clear.L2/assigns")
	})

	t.Run("inner loop misses its own write", func(t *testing.T) {
		f := fixture.Clear()
		f.Loops[fixture.ClearInnerLoop] = strings.Replace(f.Loops[fixture.ClearInnerLoop], "loop assigns j, a[0..n-1];", "loop assigns j;", 1)
		assert.Contains(t, refuted(t, dischargeWith(t, f, small)), "clear/loop/clear.L2/assigns")
	})
}

func TestNestedLoopsAreNotRefuted(t *testing.T) {
	verdicts := dischargeWith(t, fixture.Clear(), small)
	require.Len(t, verdicts, 11)
	assert.Empty(t, refuted(t, verdicts))
}

func TestContinueRunsTheStep(t *testing.T) {
	assert.Empty(t, refuted(t, discharge(t, fixture.CountPositive())))

	// the same loop without a step: continue skips the increment
	f := fixture.CountPositive()
	i, c := logic.IntVar("i"), logic.IntVar("c")
	f.Function.Body = program.Seq(
		program.Set("c", logic.Int(0)),
		program.Set("i", logic.Int(0)),
		program.Loop(fixture.CountPositiveLoop, logic.Lt(i, logic.IntVar("n")), program.Seq(
			program.IfThen(logic.Le(logic.At(logic.ArrayVar("a"), i), logic.Int(0)), program.Continue{}),
			program.Set("c", logic.Add(c, logic.Int(1))),
			program.Set("i", logic.Add(i, logic.Int(1))),
		)),
		program.Ret(c),
	)
	assert.Contains(t, refuted(t, discharge(t, f)), "countPositive/loop/countPositive.L1/variant")
}
