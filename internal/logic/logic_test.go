package logic

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAndOrFolding(t *testing.T) {
	t.Parallel()
	p := Gt(IntVar("x"), Int(0))
	q := Lt(IntVar("y"), Int(3))

	assert.Equal(t, True, And())
	assert.Equal(t, False, Or())
	assert.Equal(t, p, And(True, p))
	assert.Equal(t, False, And(p, False, q))
	assert.Equal(t, True, Or(q, True))
	assert.Equal(t, Binary{Op: OpAnd, Left: p, Right: q}, And(p, True, q))
	assert.Equal(t, q, Implies(True, q))
	assert.Equal(t, True, Implies(False, q))
	assert.Equal(t, True, Implies(p, True))
	assert.Equal(t, p, Not(Not(p)))
}

func TestConjuncts(t *testing.T) {
	t.Parallel()
	a := Gt(IntVar("a"), Int(0))
	b := Gt(IntVar("b"), Int(0))
	c := Gt(IntVar("c"), Int(0))

	assert.Equal(t, []Term{a, b, c}, Conjuncts(And(a, b, c)))
	assert.Nil(t, Conjuncts(True))
	assert.Equal(t, []Term{a}, Conjuncts(a))
}

func TestIntBounds(t *testing.T) {
	tests := []struct {
		bits   uint
		lo, hi int64
	}{
		{8, -128, 127},
		{16, -32768, 32767},
		{32, math.MinInt32, math.MaxInt32},
		{64, math.MinInt64, math.MaxInt64},
		{0, math.MinInt64, math.MaxInt64},
	}
	for _, tt := range tests {
		lo, hi := IntBounds(tt.bits)
		assert.Equal(t, tt.lo, lo, "bits=%d", tt.bits)
		assert.Equal(t, tt.hi, hi, "bits=%d", tt.bits)
	}
}

func TestSubstitute(t *testing.T) {
	t.Parallel()
	x, y := IntVar("x"), IntVar("y")

	t.Run("simultaneous", func(t *testing.T) {
		got := Substitute(Add(x, y), map[string]Term{"x": y, "y": x})
		assert.Equal(t, Add(y, x), got)
	})

	t.Run("bound variable shadows", func(t *testing.T) {
		body := Lt(IntVar("k"), x)
		got := Substitute(Forall("k", body), map[string]Term{"k": Int(7), "x": Int(1)})
		assert.Equal(t, Forall("k", Lt(IntVar("k"), Int(1))), got)
	})

	t.Run("capture is avoided", func(t *testing.T) {
		k := IntVar("k")
		got := Substitute(Forall("k", Lt(k, x)), map[string]Term{"x": Add(k, Int(1))})
		q, ok := got.(Quant)
		require.True(t, ok)
		assert.Equal(t, "k'", q.Var)
		assert.Equal(t, Lt(IntVar("k'"), Add(k, Int(1))), q.Body)
	})

	t.Run("old and result are untouched", func(t *testing.T) {
		term := Eq(Result{Type: SortInt}, Old{Name: "x", Type: SortInt})
		assert.Equal(t, term, Substitute(term, map[string]Term{"x": Int(3)}))
	})
}

func TestSubstituteResult(t *testing.T) {
	t.Parallel()
	term := Eq(Result{Type: SortInt}, Add(IntVar("x"), Int(1)))
	got := SubstituteResult(term, IntVar("r"))
	assert.Equal(t, Eq(IntVar("r"), Add(IntVar("x"), Int(1))), got)
}

func TestOldConversions(t *testing.T) {
	t.Parallel()
	x, n := IntVar("x"), IntVar("n")
	pred := Forall("k", Lt(Add(IntVar("k"), x), n))

	onlyX := ToOld(pred, func(name string) bool { return name == "x" })
	assert.Equal(t, Forall("k", Lt(Add(IntVar("k"), Old{Name: "x", Type: SortInt}), n)), onlyX)

	all := ToOld(pred, nil)
	assert.True(t, Contains(all, func(t Term) bool { return t == Old{Name: "n", Type: SortInt} }))
	assert.False(t, Contains(all, func(t Term) bool { return t == Old{Name: "k", Type: SortInt} }))

	assert.Equal(t, pred, EliminateOld(all))
}

func TestFreeVars(t *testing.T) {
	t.Parallel()
	a := ArrayVar("a")
	pred := And(
		Forall("k", Eq(At(a, IntVar("k")), IntVar("v"))),
		Gt(IntVar("n"), Int(0)),
	)
	got := FreeVars(pred)
	assert.Equal(t, []Var{
		{Name: "a", Type: SortArray},
		{Name: "n", Type: SortInt},
		{Name: "v", Type: SortInt},
	}, got)
}

func TestSimplify(t *testing.T) {
	t.Parallel()
	x := IntVar("x")
	a := ArrayVar("a")
	p := Gt(x, Int(0))

	tests := []struct {
		name string
		in   Term
		want Term
	}{
		{"fold arithmetic", Add(Int(2), Mul(Int(3), Int(4))), Int(14)},
		{"fold comparison", Lt(Int(1), Int(2)), True},
		{"truncating division", Div(Int(-7), Int(2)), Int(-3)},
		{"remainder sign", Mod(Int(-7), Int(2)), Int(-1)},
		{"division by zero kept", Div(x, Int(0)), Div(x, Int(0))},
		{"add zero", Add(x, Int(0)), x},
		{"reflexive", Le(x, x), True},
		{"irreflexive", Lt(x, x), False},
		{"implies self", Binary{Op: OpImplies, Left: p, Right: p}, True},
		{"implies false", Binary{Op: OpImplies, Left: p, Right: False}, Not(p)},
		{"and with true", Binary{Op: OpAnd, Left: True, Right: p}, p},
		{"ite constant", If(Le(Int(0), Int(1)), x, Int(5)), x},
		{"double negation", Neg(Neg(x)), x},
		{"negated literal", Neg(Int(5)), Int(-5)},
		{"negated minimum", Neg(Int(math.MinInt64)), Neg(Int(math.MinInt64))},
		{"read over write", At(Update(a, Int(0), Int(5)), Int(0)), Int(5)},
		{"read past write", At(Update(a, Int(1), Int(5)), Int(0)), At(a, Int(0))},
		{"vacuous quantifier", Forall("k", p), p},
		{"quantified constant", Exist("k", Eq(Int(1), Int(1))), True},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Simplify(tt.in))
		})
	}
}

func TestCheckPredicate(t *testing.T) {
	t.Parallel()
	x := IntVar("x")
	a := ArrayVar("a")

	require.NoError(t, CheckPredicate("requires", Gt(x, Int(0))))
	require.NoError(t, CheckPredicate("requires", Valid{Base: a, Lo: Int(0), Hi: x, ReadOnly: true}))

	bad := []struct {
		name string
		term Term
	}{
		{"integer as predicate", x},
		{"bool in arithmetic", Add(x, True)},
		{"array comparison", Eq(a, ArrayVar("b"))},
		{"index an integer", Gt(At(x, Int(0)), Int(0))},
		{"unsorted variable", Gt(Var{Name: "y"}, Int(0))},
		{"nil", nil},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPredicate("ensures", tt.term)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedPredicate))

			var mpe *MalformedPredicateError
			require.True(t, errors.As(err, &mpe))
			assert.Equal(t, "ensures", mpe.Clause)
		})
	}
}

func TestCheckTerm(t *testing.T) {
	t.Parallel()
	require.NoError(t, CheckTerm("loop variant", Sub(IntVar("n"), IntVar("i")), SortInt))
	assert.Error(t, CheckTerm("loop variant", True, SortInt))
}

func TestMalformedPredicateErrorMessage(t *testing.T) {
	err := &MalformedPredicateError{Clause: "requires", Line: 2, Col: 5, Msg: "unexpected ';'"}
	assert.Equal(t, "malformed predicate: line 2 col 5: requires: unexpected ';'", err.Error())
	assert.Equal(t, "malformed predicate: oops", Malformedf("", "oops").Error())
}

func TestTermString(t *testing.T) {
	t.Parallel()
	k := IntVar("k")
	pred := Forall("k", Implies(Lt(k, IntVar("n")), Eq(At(ArrayVar("a"), k), Int(0))))
	assert.Equal(t, `(\forall integer k; ((k < n) ==> (a[k] == 0)))`, pred.String())
	assert.Equal(t, `\old(x)`, Old{Name: "x", Type: SortInt}.String())
	assert.Equal(t, `\valid_read(a + (0..(n - 1)))`,
		Valid{Base: ArrayVar("a"), Lo: Int(0), Hi: Sub(IntVar("n"), Int(1)), ReadOnly: true}.String())
}
