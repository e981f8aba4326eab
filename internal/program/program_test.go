package program

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnoverse/contractvc/internal/logic"
)

func sumFunction() *Function {
	i, n, s := logic.IntVar("i"), logic.IntVar("n"), logic.IntVar("s")
	return &Function{
		Name:    "sum",
		Params:  []Var{{Name: "a", Type: TypeIntArray}, {Name: "n", Type: TypeInt}},
		Locals:  []Var{{Name: "i", Type: TypeInt}, {Name: "s", Type: TypeInt}},
		Globals: []Var{{Name: "calls", Type: TypeInt}},
		Returns: TypeInt,
		Body: Seq(
			Set("s", logic.Int(0)),
			Set("calls", logic.Add(logic.IntVar("calls"), logic.Int(1))),
			For("sum.L1",
				Set("i", logic.Int(0)),
				logic.Lt(i, n),
				Set("i", logic.Add(i, logic.Int(1))),
				Set("s", logic.Add(s, logic.At(logic.ArrayVar("a"), i))),
			),
			Ret(s),
		),
	}
}

func TestForDesugaring(t *testing.T) {
	t.Parallel()
	i := logic.IntVar("i")
	init := Set("i", logic.Int(0))
	step := Set("i", logic.Add(i, logic.Int(1)))
	body := Noop{}

	got := For("f.L1", init, logic.Lt(i, logic.Int(3)), step, body)
	want := Block{Stmts: []Stmt{
		init,
		While{ID: "f.L1", Cond: logic.Lt(i, logic.Int(3)), Body: body, Step: step},
	}}
	assert.Equal(t, want, got)
	assert.Equal(t, "{ i = 0; while[f.L1] (i < 3) { noop } step { i = (i + 1) } }", got.String())
}

func TestFunctionLookup(t *testing.T) {
	t.Parallel()
	fn := sumFunction()

	v, ok := fn.Lookup("calls")
	require.True(t, ok)
	assert.Equal(t, TypeInt, v.Type)
	assert.True(t, fn.IsGlobal("calls"))
	assert.False(t, fn.IsParam("calls"))
	assert.True(t, fn.IsParam("a"))

	_, ok = fn.Lookup("missing")
	assert.False(t, ok)

	assert.Len(t, fn.Symbols(), 5)
	assert.Equal(t, logic.ArrayVar("a"), Var{Name: "a", Type: TypeIntArray}.Term())
}

func TestLoops(t *testing.T) {
	t.Parallel()
	i := logic.IntVar("i")
	inner := While{ID: "g.L2", Cond: logic.Lt(i, logic.Int(2)), Body: Noop{}}
	outer := While{ID: "g.L1", Cond: logic.Lt(i, logic.Int(4)), Body: Seq(inner, Break{})}
	fn := &Function{Name: "g", Locals: []Var{{Name: "i", Type: TypeInt}}, Body: Seq(outer, While{ID: "g.L3", Cond: logic.False, Body: Noop{}})}

	var ids []LoopID
	for _, w := range fn.Loops() {
		ids = append(ids, w.ID)
	}
	assert.Equal(t, []LoopID{"g.L1", "g.L2", "g.L3"}, ids)
}

func TestModified(t *testing.T) {
	t.Parallel()
	vars, arrays := Modified(sumFunction().Body)
	assert.Equal(t, []string{"calls", "i", "s"}, vars)
	assert.Empty(t, arrays)

	vars, arrays = Modified(Seq(Put("b", logic.Int(0), logic.Int(1)), Put("a", logic.Int(1), logic.Int(2))))
	assert.Empty(t, vars)
	assert.Equal(t, []string{"a", "b"}, arrays)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	require.NoError(t, sumFunction().Validate())

	x := logic.IntVar("x")
	tests := []struct {
		name   string
		mutate func(fn *Function)
	}{
		{"missing name", func(fn *Function) { fn.Name = "" }},
		{"missing body", func(fn *Function) { fn.Body = nil }},
		{"duplicate declaration", func(fn *Function) {
			fn.Locals = append(fn.Locals, Var{Name: "n", Type: TypeInt})
		}},
		{"void variable", func(fn *Function) {
			fn.Locals = append(fn.Locals, Var{Name: "v", Type: TypeVoid})
		}},
		{"undeclared variable", func(fn *Function) { fn.Body = Ret(x) }},
		{"assignment to array", func(fn *Function) { fn.Body = Set("a", logic.ArrayVar("a")) }},
		{"store to scalar", func(fn *Function) { fn.Body = Put("n", logic.Int(0), logic.Int(0)) }},
		{"sort mismatch", func(fn *Function) { fn.Body = Set("n", logic.True) }},
		{"old in body", func(fn *Function) {
			fn.Body = Ret(logic.Old{Name: "n", Type: logic.SortInt})
		}},
		{"quantifier in body", func(fn *Function) {
			fn.Body = IfThen(logic.Forall("k", logic.True), Ret(logic.Int(0)))
		}},
		{"duplicate loop id", func(fn *Function) {
			fn.Body = Seq(Loop("sum.L1", logic.False, Noop{}), Loop("sum.L1", logic.False, Noop{}), Ret(logic.Int(0)))
		}},
		{"break outside loop", func(fn *Function) { fn.Body = Seq(Break{}, Ret(logic.Int(0))) }},
		{"continue outside loop", func(fn *Function) { fn.Body = Seq(Continue{}, Ret(logic.Int(0))) }},
		{"jump in loop step", func(fn *Function) {
			fn.Body = Seq(While{ID: "sum.L1", Cond: logic.False, Body: Noop{}, Step: Break{}}, Ret(logic.Int(0)))
		}},
		{"undeclared variable in assert", func(fn *Function) {
			fn.Body = Seq(Assert{Pred: logic.Gt(x, logic.Int(0))}, Ret(logic.Int(0)))
		}},
		{"sort mismatch in assert", func(fn *Function) {
			fn.Body = Seq(Assert{Pred: logic.Gt(logic.Var{Name: "a", Type: logic.SortInt}, logic.Int(0))}, Ret(logic.Int(0)))
		}},
		{"undeclared entry value in assert", func(fn *Function) {
			fn.Body = Seq(Assert{Pred: logic.Gt(logic.Old{Name: "x", Type: logic.SortInt}, logic.Int(0))}, Ret(logic.Int(0)))
		}},
		{"result in assert", func(fn *Function) {
			fn.Body = Seq(Assert{Pred: logic.Gt(logic.Result{Type: logic.SortInt}, logic.Int(0))}, Ret(logic.Int(0)))
		}},
		{"duplicate assert label", func(fn *Function) {
			fn.Body = Seq(
				Assert{Pred: logic.True, Label: "p"},
				Assert{Pred: logic.True, Label: "p"},
				Ret(logic.Int(0)),
			)
		}},
		{"numeric assert label", func(fn *Function) {
			fn.Body = Seq(Assert{Pred: logic.True, Label: "2"}, Ret(logic.Int(0)))
		}},
		{"missing return value", func(fn *Function) { fn.Body = RetVoid() }},
		{"unknown statement", func(fn *Function) { fn.Body = Seq(nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := sumFunction()
			tt.mutate(fn)
			err := fn.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedBody), "got %v", err)
		})
	}
}

func TestValidateLoopControl(t *testing.T) {
	t.Parallel()
	i, n := logic.IntVar("i"), logic.IntVar("n")
	fn := sumFunction()
	fn.Body = Seq(
		For("sum.L1",
			Set("i", logic.Int(0)),
			logic.Lt(i, n),
			Set("i", logic.Add(i, logic.Int(1))),
			Seq(
				IfThen(logic.Le(logic.At(logic.ArrayVar("a"), i), logic.Int(0)), Continue{}),
				Assert{Pred: logic.Forall("k", logic.Implies(logic.Lt(logic.IntVar("k"), i), logic.Ge(logic.Old{Name: "n", Type: logic.SortInt}, n))), Label: "bounded"},
			),
		),
		Ret(i),
	)
	require.NoError(t, fn.Validate())

	var visited []string
	Walk(fn.Body, func(s Stmt) bool {
		if a, ok := s.(Assign); ok {
			visited = append(visited, a.Var)
		}
		return true
	})
	assert.Equal(t, []string{"i", "i"}, visited, "the loop step is visited after the body")
}

func TestValidateVoidReturn(t *testing.T) {
	fn := &Function{Name: "reset", Globals: []Var{{Name: "g", Type: TypeInt}}, Body: Seq(Set("g", logic.Int(0)), RetVoid())}
	require.NoError(t, fn.Validate())

	fn.Body = Ret(logic.Int(0))
	assert.ErrorIs(t, fn.Validate(), ErrMalformedBody)
}

func TestStmtString(t *testing.T) {
	t.Parallel()
	x := logic.IntVar("x")
	s := IfElse(logic.Lt(x, logic.Int(0)), Set("x", logic.Neg(x)), Seq(Noop{}, Break{}))
	assert.Equal(t, "if (x < 0) { x = (-x) } else { noop; break }", s.String())
	assert.Equal(t, "assert pos: (x > 0)", Assert{Pred: logic.Gt(x, logic.Int(0)), Label: "pos"}.String())
	assert.Equal(t, "a[0] = 1", Put("a", logic.Int(0), logic.Int(1)).String())
	assert.Equal(t, "continue", Continue{}.String())
}
