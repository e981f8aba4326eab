package acsl_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnoverse/contractvc/internal/acsl"
	"github.com/gnoverse/contractvc/internal/contract"
	"github.com/gnoverse/contractvc/internal/fixture"
	"github.com/gnoverse/contractvc/internal/logic"
	"github.com/gnoverse/contractvc/internal/program"
)

func scratch() *program.Function {
	return &program.Function{
		Name: "scratch",
		Params: []program.Var{
			{Name: "a", Type: program.TypeIntArray},
			{Name: "n", Type: program.TypeInt},
			{Name: "x", Type: program.TypeInt},
		},
		Locals:  []program.Var{{Name: "i", Type: program.TypeInt}},
		Returns: program.TypeInt,
		Body:    program.Ret(logic.Int(0)),
	}
}

func TestParseAbsContract(t *testing.T) {
	f := fixture.Abs()
	fc, err := f.Parse()
	require.NoError(t, err)

	x := logic.IntVar("x")
	assert.Equal(t, []logic.Term{logic.Neq(x, logic.Int(-2147483648))}, fc.Preconditions())

	ens, ok := fc.DefaultEnsures()
	require.True(t, ok)
	want := logic.Eq(logic.Result{Type: logic.SortInt}, logic.If(logic.Lt(x, logic.Int(0)), logic.Neg(x), x))
	assert.Equal(t, want, ens)
	assert.Empty(t, fc.Behaviors())
	assert.Nil(t, fc.Assigns())
}

func TestParseArrayEqualityContract(t *testing.T) {
	f := fixture.ArrayEquality()
	fc, err := f.Parse()
	require.NoError(t, err)

	a, b := logic.ArrayVar("a"), logic.ArrayVar("b")
	k, n, i := logic.IntVar("k"), logic.IntVar("n"), logic.IntVar("i")
	nm1 := logic.Sub(n, logic.Int(1))

	assert.Equal(t, []logic.Term{
		logic.Gt(n, logic.Int(0)),
		logic.Valid{Base: a, Lo: logic.Int(0), Hi: nm1, ReadOnly: true},
		logic.Valid{Base: b, Lo: logic.Int(0), Hi: nm1, ReadOnly: true},
	}, fc.Preconditions())
	assert.True(t, fc.Assigns().IsNothing())

	behaviors := fc.Behaviors()
	require.Len(t, behaviors, 2)
	equal, notEqual := behaviors[0], behaviors[1]
	assert.Equal(t, "equal", equal.Name())
	assert.Equal(t, "not_equal", notEqual.Name())

	inRange := logic.And(logic.Le(logic.Int(0), k), logic.Lt(k, n))
	assert.Equal(t, logic.Forall("k", logic.Implies(inRange, logic.Eq(logic.At(b, k), logic.At(a, k)))), equal.Assumes())
	assert.Equal(t, logic.Eq(logic.Result{Type: logic.SortInt}, logic.Int(1)), equal.Ensures())
	assert.Equal(t, logic.Exist("k", logic.And(inRange, logic.Neq(logic.At(b, k), logic.At(a, k)))), notEqual.Assumes())

	_, ok := fc.DefaultEnsures()
	assert.False(t, ok)
	require.Len(t, fc.Effective(), 2)

	lc, ok := fc.Loop(fixture.ArrayEqualityLoop)
	require.True(t, ok)
	assert.Equal(t, []logic.Term{
		logic.And(logic.Le(logic.Int(0), i), logic.Le(i, n)),
		logic.Forall("k", logic.Implies(logic.And(logic.Le(logic.Int(0), k), logic.Lt(k, i)), logic.Eq(logic.At(a, k), logic.At(b, k)))),
	}, lc.Invariants())
	assert.Equal(t, []string{"i"}, lc.Assigns().Vars())
	assert.Nil(t, lc.Variant())
}

func TestParseFillLoop(t *testing.T) {
	f := fixture.Fill()
	fc, err := f.Parse()
	require.NoError(t, err)

	n, i := logic.IntVar("n"), logic.IntVar("i")
	fa := fc.Assigns().List()
	require.Len(t, fa, 1)
	assert.Equal(t, contract.RangeLocation{Array: "a", Lo: logic.Int(0), Hi: logic.Sub(n, logic.Int(1))}, fa[0])

	lc, ok := fc.Loop("fill.L1")
	require.True(t, ok)
	assert.Equal(t, logic.Sub(n, i), lc.Variant())
	assert.Equal(t, []contract.Location{
		contract.VarLocation{Name: "i"},
		contract.RangeLocation{Array: "a", Lo: logic.Int(0), Hi: logic.Sub(n, logic.Int(1))},
	}, lc.Assigns().List())
}

func TestParsePredicate(t *testing.T) {
	fn := scratch()
	a := logic.ArrayVar("a")
	x, n, i := logic.IntVar("x"), logic.IntVar("n"), logic.IntVar("i")
	p, q, r := logic.Gt(x, logic.Int(0)), logic.Gt(n, logic.Int(0)), logic.Gt(i, logic.Int(0))

	tests := []struct {
		name  string
		input string
		want  logic.Term
	}{
		{"chained relation", "0 <= i < n", logic.And(logic.Le(logic.Int(0), i), logic.Lt(i, n))},
		{"precedence", "x + 2 * n > 0", logic.Gt(logic.Add(x, logic.Mul(logic.Int(2), n)), logic.Int(0))},
		{"left associative", "x - n - 1 == 0", logic.Eq(logic.Sub(logic.Sub(x, n), logic.Int(1)), logic.Int(0))},
		{"implies is right associative", "x > 0 ==> n > 0 ==> i > 0", logic.Bin(logic.OpImplies, p, logic.Bin(logic.OpImplies, q, r))},
		{"and binds tighter than or", "x > 0 || n > 0 && i > 0", logic.Bin(logic.OpOr, p, logic.Bin(logic.OpAnd, q, r))},
		{"iff", "x > 0 <==> n > 0", logic.Iff(p, q)},
		{"negation", "!(x > 0)", logic.Unary{Op: logic.OpNot, X: p}},
		{"negative literal", "x == -5", logic.Eq(x, logic.Int(-5))},
		{"int bounds", "INT_MIN <= x <= INT_MAX", logic.And(logic.Le(logic.Int(-2147483648), x), logic.Le(x, logic.Int(2147483647)))},
		{"array read", "a[i + 1] == 0", logic.Eq(logic.At(a, logic.Add(i, logic.Int(1))), logic.Int(0))},
		{"nested quantifiers", `\forall integer j, k; j < k ==> a[j] <= a[k]`, logic.Forall("j", logic.Forall("k",
			logic.Implies(logic.Lt(logic.IntVar("j"), logic.IntVar("k")), logic.Le(logic.At(a, logic.IntVar("j")), logic.At(a, logic.IntVar("k"))))))},
		{"bound shadows parameter", `\exists int x; x == n`, logic.Exist("x", logic.Eq(x, n))},
		{"valid offset", `\valid(a + 2)`, logic.Valid{Base: a, Lo: logic.Int(2), Hi: logic.Int(2)}},
		{"valid base", `\valid_read(a)`, logic.Valid{Base: a, Lo: logic.Int(0), Hi: logic.Int(0), ReadOnly: true}},
		{"trailing semicolon", `\true;`, logic.True},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := acsl.ParsePredicate(fn, "assert", tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseOld(t *testing.T) {
	fn := scratch()
	fc, err := acsl.ParseContract(fn, `ensures \result == \old(x + n) && \at(x, Here) == x;
ensures \forall integer k; \old(a[k]) == a[k];`)
	require.NoError(t, err)

	x, k := logic.IntVar("x"), logic.IntVar("k")
	oldX := logic.Old{Name: "x", Type: logic.SortInt}
	oldN := logic.Old{Name: "n", Type: logic.SortInt}
	oldA := logic.Old{Name: "a", Type: logic.SortArray}

	ens, ok := fc.DefaultEnsures()
	require.True(t, ok)
	assert.Equal(t, logic.And(
		logic.Bin(logic.OpAnd,
			logic.Eq(logic.Result{Type: logic.SortInt}, logic.Add(oldX, oldN)),
			logic.Eq(x, x)),
		logic.Forall("k", logic.Eq(logic.At(oldA, k), logic.At(logic.ArrayVar("a"), k))),
	), ens)
}

func TestParseWithIntBits(t *testing.T) {
	got, err := acsl.ParsePredicate(scratch(), "requires", "x < INT_MAX", acsl.WithIntBits(16))
	require.NoError(t, err)
	assert.Equal(t, logic.Lt(logic.IntVar("x"), logic.Int(32767)), got)
}

func TestParseBehaviorRequires(t *testing.T) {
	fn := scratch()
	fc, err := acsl.ParseContract(fn, `
behavior pos:
  assumes x > 0;
  requires x < 10;
  ensures \result == x;
behavior other:
  assumes x <= 0;
complete behaviors;
disjoint behaviors pos, other;
terminates \true;`)
	require.NoError(t, err)

	x := logic.IntVar("x")
	assert.Equal(t, []logic.Term{logic.Implies(logic.Gt(x, logic.Int(0)), logic.Lt(x, logic.Int(10)))}, fc.Preconditions())
	assert.Equal(t, [][]string{nil}, fc.CompleteGroups())
	assert.Equal(t, [][]string{{"pos", "other"}}, fc.DisjointGroups())

	other, ok := fc.Behavior("other")
	require.True(t, ok)
	assert.Equal(t, logic.True, other.Ensures())
}

func TestParseExpr(t *testing.T) {
	fn := scratch()
	got, err := acsl.ParseExpr(fn, "a[i] + 1")
	require.NoError(t, err)
	assert.Equal(t, logic.Add(logic.At(logic.ArrayVar("a"), logic.IntVar("i")), logic.Int(1)), got)

	_, err = acsl.ParseExpr(fn, `x + \old(x)`)
	assert.ErrorIs(t, err, logic.ErrMalformedPredicate)
	_, err = acsl.ParseExpr(fn, "x + 1 )")
	assert.ErrorIs(t, err, logic.ErrMalformedPredicate)
}

func TestParseErrors(t *testing.T) {
	fn := scratch()
	tests := []struct {
		name   string
		input  string
		clause string
		line   int
		col    int
	}{
		{"missing operand", "requires n > 0;\nrequires n + ;", "requires", 2, 14},
		{"integer as predicate", "requires n + 1;", "requires", 1, 10},
		{"result in requires", `requires \result > 0;`, "requires", 1, 10},
		{"old in requires", `requires \old(x) > 0;`, "requires", 1, 10},
		{"unknown identifier", "ensures y > 0;", "ensures", 1, 9},
		{"unknown clause", "decreases n;", "decreases", 1, 1},
		{"missing semicolon", "requires n > 0 requires x > 0;", "requires", 1, 16},
		{"index a scalar", "requires x[0] == 1;", "requires", 1, 11},
		{"unknown location", "assigns z;", "assigns", 1, 9},
		{"unsupported label", `ensures \at(x, Loop) == 0;`, "ensures", 1, 9},
		{"behavior assigns", "behavior b:\n  assigns x;", "behavior b: assigns", 2, 3},
		{"quantified type", `requires \forall bool k; k;`, "requires", 1, 18},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := acsl.ParseContract(fn, tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, logic.ErrMalformedPredicate)

			var mpe *logic.MalformedPredicateError
			require.True(t, errors.As(err, &mpe))
			assert.Equal(t, tt.clause, mpe.Clause)
			assert.Equal(t, tt.line, mpe.Line, "line of %v", err)
			assert.Equal(t, tt.col, mpe.Col, "col of %v", err)
		})
	}
}

func TestParseResultInVoidFunction(t *testing.T) {
	f := fixture.Fill()
	_, err := acsl.ParseContract(f.Function, `ensures \result == 0;`)
	assert.ErrorIs(t, err, logic.ErrMalformedPredicate)
}

func TestParseBehaviorNames(t *testing.T) {
	fn := scratch()
	_, err := acsl.ParseContract(fn, "behavior a: ensures \\true;\nbehavior a: ensures \\true;")
	assert.ErrorIs(t, err, contract.ErrDuplicateBehaviorName)

	_, err = acsl.ParseContract(fn, "behavior default: ensures \\true;")
	assert.ErrorIs(t, err, contract.ErrDuplicateBehaviorName)

	_, err = acsl.ParseContract(fn, "behavior a: ensures \\true;\ncomplete behaviors a, b;")
	assert.ErrorIs(t, err, contract.ErrUnknownBehavior)
}

func TestParseLoopAnnotationErrors(t *testing.T) {
	fn := scratch()
	fc := contract.New(fn.Name)

	err := acsl.ParseLoopAnnotation(fc, fn, "scratch.L1", "loop variant x > 0;")
	assert.ErrorIs(t, err, logic.ErrMalformedPredicate)

	err = acsl.ParseLoopAnnotation(fc, fn, "scratch.L1", "loop frobnicate x;")
	assert.ErrorIs(t, err, logic.ErrMalformedPredicate)

	err = acsl.ParseLoopAnnotation(fc, fn, "scratch.L1", "invariant x > 0;")
	assert.ErrorIs(t, err, logic.ErrMalformedPredicate)

	err = acsl.ParseLoopAnnotation(fc, fn, "scratch.L1", `loop invariant \result == 0;`)
	assert.ErrorIs(t, err, logic.ErrMalformedPredicate)
}

func TestParseAssignsForms(t *testing.T) {
	fn := scratch()
	fc, err := acsl.ParseContract(fn, "assigns x, a[i], a + (1..n);")
	require.NoError(t, err)
	assert.Equal(t, []contract.Location{
		contract.VarLocation{Name: "x"},
		contract.CellLocation{Array: "a", Index: logic.IntVar("i")},
		contract.RangeLocation{Array: "a", Lo: logic.Int(1), Hi: logic.IntVar("n")},
	}, fc.Assigns().List())

	fc, err = acsl.ParseContract(fn, "assigns ;")
	require.NoError(t, err)
	assert.False(t, fc.Assigns().IsNothing())
	assert.Empty(t, fc.Assigns().List())
}
