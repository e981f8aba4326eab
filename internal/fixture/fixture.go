// Package fixture provides annotated reference functions, as a C front end
// would deliver them: integer absolute value, array equality and a few loops.
package fixture

import (
	"sort"

	"github.com/gnoverse/contractvc/internal/acsl"
	"github.com/gnoverse/contractvc/internal/contract"
	"github.com/gnoverse/contractvc/internal/logic"
	"github.com/gnoverse/contractvc/internal/program"
)

// Fixture is a function body with its annotation text.
type Fixture struct {
	Function *program.Function
	Contract string
	Loops    map[program.LoopID]string
}

// Parse builds the contract from the annotation text.
func (f Fixture) Parse(opts ...acsl.Option) (*contract.FunctionContract, error) {
	fc, err := acsl.ParseContract(f.Function, f.Contract, opts...)
	if err != nil {
		return nil, err
	}
	ids := make([]program.LoopID, 0, len(f.Loops))
	for id := range f.Loops {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if err := acsl.ParseLoopAnnotation(fc, f.Function, id, f.Loops[id], opts...); err != nil {
			return nil, err
		}
	}
	return fc, nil
}

// Abs is
//
//	int abs(int x) { if (x < 0) x = -x; return x; }
func Abs() Fixture {
	x := logic.IntVar("x")
	return Fixture{
		Function: &program.Function{
			Name:    "abs",
			Params:  []program.Var{{Name: "x", Type: program.TypeInt}},
			Returns: program.TypeInt,
			Body: program.Seq(
				program.IfThen(logic.Lt(x, logic.Int(0)), program.Set("x", logic.Neg(x))),
				program.Ret(x),
			),
		},
		Contract: `/*@
  requires x != INT_MIN;
  ensures \result == (x < 0 ? -x : x);
*/`,
	}
}

// AbsUnguarded is Abs without its precondition: -x overflows for INT_MIN.
func AbsUnguarded() Fixture {
	f := Abs()
	f.Contract = `/*@ ensures \result == (x < 0 ? -x : x); */`
	return f
}

// ArrayEqualityLoop identifies the loop of ArrayEquality.
const ArrayEqualityLoop program.LoopID = "checkArrayEquality.L1"

// ArrayEquality is
//
//	int checkArrayEquality(int *a, int *b, int n) {
//	  for (int i = 0; i < n; i++) { if (a[i] != b[i]) return 0; }
//	  return 1;
//	}
func ArrayEquality() Fixture {
	a, b := logic.ArrayVar("a"), logic.ArrayVar("b")
	i, n := logic.IntVar("i"), logic.IntVar("n")
	return Fixture{
		Function: &program.Function{
			Name: "checkArrayEquality",
			Params: []program.Var{
				{Name: "a", Type: program.TypeIntArray},
				{Name: "b", Type: program.TypeIntArray},
				{Name: "n", Type: program.TypeInt},
			},
			Locals:  []program.Var{{Name: "i", Type: program.TypeInt}},
			Returns: program.TypeInt,
			Body: program.Seq(
				program.For(ArrayEqualityLoop,
					program.Set("i", logic.Int(0)),
					logic.Lt(i, n),
					program.Set("i", logic.Add(i, logic.Int(1))),
					program.IfThen(logic.Neq(logic.At(a, i), logic.At(b, i)), program.Ret(logic.Int(0))),
				),
				program.Ret(logic.Int(1)),
			),
		},
		Contract: `/*@
  requires n > 0;
  requires \valid_read (a + (0..n-1));
  requires \valid_read (b + (0..n-1));
  assigns \nothing;
  behavior equal:
    assumes \forall integer k; 0 <= k < n ==> b[k] == a[k];
    ensures \result == 1;
  behavior not_equal:
    assumes \exists integer k; 0 <= k < n && b[k] != a[k];
    ensures \result == 0;
*/`,
		Loops: map[program.LoopID]string{
			ArrayEqualityLoop: `/*@
  loop invariant 0 <= i <= n;
  loop invariant \forall integer k; 0 <= k < i ==> a[k] == b[k];
  loop assigns i;
*/`,
		},
	}
}

// FillLoop identifies the Fill loop.
const FillLoop program.LoopID = "fill.L1"

// Fill writes through a pointer parameter and carries a loop variant:
//
//	void fill(int *a, int n) { for (int i = 0; i < n; i++) a[i] = 0; }
func Fill() Fixture {
	i, n := logic.IntVar("i"), logic.IntVar("n")
	return Fixture{
		Function: &program.Function{
			Name: "fill",
			Params: []program.Var{
				{Name: "a", Type: program.TypeIntArray},
				{Name: "n", Type: program.TypeInt},
			},
			Locals:  []program.Var{{Name: "i", Type: program.TypeInt}},
			Returns: program.TypeVoid,
			Body: program.For(FillLoop,
				program.Set("i", logic.Int(0)),
				logic.Lt(i, n),
				program.Set("i", logic.Add(i, logic.Int(1))),
				program.Put("a", i, logic.Int(0)),
			),
		},
		Contract: `/*@
  requires n > 0;
  requires \valid (a + (0..n-1));
  assigns a[0..n-1];
  ensures \forall integer k; 0 <= k < n ==> a[k] == 0;
*/`,
		Loops: map[program.LoopID]string{
			FillLoop: `/*@
  loop invariant 0 <= i <= n;
  loop invariant \forall integer k; 0 <= k < i ==> a[k] == 0;
  loop assigns i, a[0..n-1];
  loop variant n - i;
*/`,
		},
	}
}

// Clear loop identifiers.
const (
	ClearOuterLoop program.LoopID = "clear.L1"
	ClearInnerLoop program.LoopID = "clear.L2"
)

// Clear nests one loop inside another:
//
//	void clear(int *a, int n) {
//	  for (int i = 0; i < n; i++)
//	    for (int j = 0; j <= i; j++) a[j] = 0;
//	}
func Clear() Fixture {
	i, j, n := logic.IntVar("i"), logic.IntVar("j"), logic.IntVar("n")
	return Fixture{
		Function: &program.Function{
			Name: "clear",
			Params: []program.Var{
				{Name: "a", Type: program.TypeIntArray},
				{Name: "n", Type: program.TypeInt},
			},
			Locals: []program.Var{
				{Name: "i", Type: program.TypeInt},
				{Name: "j", Type: program.TypeInt},
			},
			Returns: program.TypeVoid,
			Body: program.For(ClearOuterLoop,
				program.Set("i", logic.Int(0)),
				logic.Lt(i, n),
				program.Set("i", logic.Add(i, logic.Int(1))),
				program.For(ClearInnerLoop,
					program.Set("j", logic.Int(0)),
					logic.Le(j, i),
					program.Set("j", logic.Add(j, logic.Int(1))),
					program.Put("a", j, logic.Int(0)),
				),
			),
		},
		Contract: `/*@
  requires n > 0;
  requires \valid (a + (0..n-1));
  assigns a[0..n-1];
  ensures \forall integer k; 0 <= k < n ==> a[k] == 0;
*/`,
		Loops: map[program.LoopID]string{
			ClearOuterLoop: `/*@
  loop invariant 0 <= i <= n;
  loop invariant \forall integer k; 0 <= k < i ==> a[k] == 0;
  loop assigns i, j, a[0..n-1];
*/`,
			ClearInnerLoop: `/*@
  loop invariant 0 <= j <= i + 1;
  loop invariant \forall integer k; 0 <= k < j ==> a[k] == 0;
  loop assigns j, a[0..n-1];
*/`,
		},
	}
}

// CountPositiveLoop identifies the CountPositive loop.
const CountPositiveLoop program.LoopID = "countPositive.L1"

// CountPositive skips cells with continue, which still runs the step:
//
//	int countPositive(int *a, int n) {
//	  int c = 0;
//	  for (int i = 0; i < n; i++) { if (a[i] <= 0) continue; c++; }
//	  return c;
//	}
func CountPositive() Fixture {
	i, c, n := logic.IntVar("i"), logic.IntVar("c"), logic.IntVar("n")
	a := logic.ArrayVar("a")
	return Fixture{
		Function: &program.Function{
			Name: "countPositive",
			Params: []program.Var{
				{Name: "a", Type: program.TypeIntArray},
				{Name: "n", Type: program.TypeInt},
			},
			Locals: []program.Var{
				{Name: "i", Type: program.TypeInt},
				{Name: "c", Type: program.TypeInt},
			},
			Returns: program.TypeInt,
			Body: program.Seq(
				program.Set("c", logic.Int(0)),
				program.For(CountPositiveLoop,
					program.Set("i", logic.Int(0)),
					logic.Lt(i, n),
					program.Set("i", logic.Add(i, logic.Int(1))),
					program.Seq(
						program.IfThen(logic.Le(logic.At(a, i), logic.Int(0)), program.Continue{}),
						program.Set("c", logic.Add(c, logic.Int(1))),
					),
				),
				program.Ret(c),
			),
		},
		Contract: `/*@
  requires n >= 0;
  requires \valid (a + (0..n-1));
  assigns \nothing;
  ensures 0 <= \result <= n;
*/`,
		Loops: map[program.LoopID]string{
			CountPositiveLoop: `/*@
  loop invariant 0 <= i <= n;
  loop invariant 0 <= c <= i;
  loop assigns i, c;
  loop variant n - i;
*/`,
		},
	}
}
