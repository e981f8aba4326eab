package finite

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/gnoverse/contractvc/internal/logic"
)

// value is a bool, a *big.Int or an *array.
type value any

// array is a persistent integer array. Unwritten cells read as zero.
type array struct {
	parent *array
	idx    *big.Int
	val    *big.Int
	window int
}

func (a *array) store(i, v *big.Int) *array {
	return &array{parent: a, idx: i, val: v, window: a.window}
}

func (a *array) load(i *big.Int) *big.Int {
	for n := a; n != nil && n.idx != nil; n = n.parent {
		if n.idx.Cmp(i) == 0 {
			return n.val
		}
	}
	return new(big.Int)
}

func render(v value) string {
	switch x := v.(type) {
	case bool:
		return fmt.Sprint(x)
	case *big.Int:
		return x.String()
	case *array:
		cells := make([]string, x.window)
		for i := range cells {
			cells[i] = x.load(big.NewInt(int64(i))).String()
		}
		return "[" + strings.Join(cells, ", ") + "]"
	}
	return "?"
}

// exactRange is the widest quantifier range enumerated in full.
const exactRange = 256

// model is one assignment of the free variables.
type model struct {
	ints     []int64
	bindings map[string]value
	domain   []*big.Int

	// inexact is set once a quantifier was decided on the sample domain
	// rather than on its whole range.
	inexact bool
}

func newModel(ints []int64) *model {
	return &model{ints: ints, bindings: make(map[string]value)}
}

func (m *model) bind(name string, v value) {
	m.bindings[name] = v
	m.domain = nil
}

// quantDomain is the range of quantified variables: the integer domain
// plus every integer bound in the model.
func (m *model) quantDomain() []*big.Int {
	if m.domain != nil {
		return m.domain
	}
	seen := make(map[string]bool)
	add := func(x *big.Int) {
		if !seen[x.String()] {
			seen[x.String()] = true
			m.domain = append(m.domain, x)
		}
	}
	for _, x := range m.ints {
		add(big.NewInt(x))
	}
	for _, v := range m.bindings {
		if x, ok := v.(*big.Int); ok {
			add(x)
		}
	}
	return m.domain
}

func (m *model) eval(t logic.Term) (value, error) {
	return m.evalIn(t, nil)
}

// scope holds quantified variables, innermost first.
type scope struct {
	name  string
	value *big.Int
	next  *scope
}

func (s *scope) lookup(name string) (*big.Int, bool) {
	for n := s; n != nil; n = n.next {
		if n.name == name {
			return n.value, true
		}
	}
	return nil, false
}

func (m *model) evalIn(t logic.Term, sc *scope) (value, error) {
	switch n := t.(type) {
	case logic.IntConst:
		return big.NewInt(n.Val), nil
	case logic.BoolConst:
		return n.Val, nil
	case logic.Var:
		if x, ok := sc.lookup(n.Name); ok {
			return x, nil
		}
		v, ok := m.bindings[n.Name]
		if !ok {
			return nil, fmt.Errorf("unbound variable %s", n.Name)
		}
		return v, nil
	case logic.Unary:
		x, err := m.evalIn(n.X, sc)
		if err != nil {
			return nil, err
		}
		if n.Op == logic.OpNot {
			return !x.(bool), nil
		}
		return new(big.Int).Neg(x.(*big.Int)), nil
	case logic.Binary:
		return m.binary(n, sc)
	case logic.Ite:
		c, err := m.evalIn(n.Cond, sc)
		if err != nil {
			return nil, err
		}
		if c.(bool) {
			return m.evalIn(n.Then, sc)
		}
		return m.evalIn(n.Else, sc)
	case logic.Select:
		a, err := m.evalIn(n.Array, sc)
		if err != nil {
			return nil, err
		}
		i, err := m.evalIn(n.Index, sc)
		if err != nil {
			return nil, err
		}
		return a.(*array).load(i.(*big.Int)), nil
	case logic.Store:
		a, err := m.evalIn(n.Array, sc)
		if err != nil {
			return nil, err
		}
		i, err := m.evalIn(n.Index, sc)
		if err != nil {
			return nil, err
		}
		v, err := m.evalIn(n.Value, sc)
		if err != nil {
			return nil, err
		}
		return a.(*array).store(i.(*big.Int), v.(*big.Int)), nil
	case logic.Quant:
		return m.quant(n, sc)
	case logic.Valid:
		// validity of memory is an assumption about the caller
		return true, nil
	}
	return nil, fmt.Errorf("cannot evaluate %s", t)
}

// quant decides a quantifier exactly in three cases: the body only
// compares the variable or reads arrays at it, so that a finite set of
// points covers every outcome; the guard bounds the variable to a range
// of at most exactRange values; or the sample domain holds a witness (a
// falsifying value for a universal). Otherwise the answer holds for the
// sample only and the model is marked inexact.
func (m *model) quant(n logic.Quant, sc *scope) (value, error) {
	want := n.Q == logic.Exists
	try := func(x *big.Int) (bool, error) {
		b, err := m.evalIn(n.Body, &scope{name: n.Var, value: x, next: sc})
		if err != nil {
			return false, err
		}
		return b.(bool) == want, nil
	}

	pts, ok, err := m.points(n, sc)
	if err != nil {
		return nil, err
	}
	if ok {
		for _, x := range pts {
			found, err := try(x)
			if err != nil {
				return nil, err
			}
			if found {
				return want, nil
			}
		}
		return !want, nil
	}

	lo, hi, err := m.bounds(n, sc)
	if err != nil {
		return nil, err
	}
	if lo != nil && hi != nil {
		size := new(big.Int).Sub(hi, lo)
		if size.Sign() < 0 {
			return !want, nil
		}
		if size.Cmp(big.NewInt(exactRange)) < 0 {
			for x := new(big.Int).Set(lo); x.Cmp(hi) <= 0; x = new(big.Int).Add(x, big.NewInt(1)) {
				found, err := try(x)
				if err != nil {
					return nil, err
				}
				if found {
					return want, nil
				}
			}
			return !want, nil
		}
	}

	for _, x := range m.quantDomain() {
		found, err := try(x)
		if err != nil {
			return nil, err
		}
		if found {
			return want, nil
		}
	}
	m.inexact = true
	return !want, nil
}

// bounds reads the range of the quantified variable off its guard: the
// hypotheses of a universal or the conjuncts of an existential. A nil
// bound is open.
func (m *model) bounds(n logic.Quant, sc *scope) (lo, hi *big.Int, err error) {
	var guard []logic.Term
	if n.Q == logic.Exists {
		guard = logic.Conjuncts(n.Body)
	} else {
		for body := n.Body; ; {
			b, ok := body.(logic.Binary)
			if !ok || b.Op != logic.OpImplies {
				break
			}
			guard = append(guard, logic.Conjuncts(b.Left)...)
			body = b.Right
		}
	}

	isVar := func(t logic.Term) bool {
		v, ok := t.(logic.Var)
		return ok && v.Name == n.Var
	}
	mentions := func(t logic.Term) bool {
		return logic.Contains(t, isVar)
	}
	raise := func(x *big.Int) {
		if lo == nil || x.Cmp(lo) > 0 {
			lo = x
		}
	}
	lower := func(x *big.Int) {
		if hi == nil || x.Cmp(hi) < 0 {
			hi = x
		}
	}

	for _, g := range guard {
		b, ok := g.(logic.Binary)
		if !ok || !b.Op.IsComparison() {
			continue
		}
		op, other := b.Op, b.Right
		switch {
		case isVar(b.Left) && !mentions(b.Right):
		case isVar(b.Right) && !mentions(b.Left):
			op, other = mirror(op), b.Left
		default:
			continue
		}
		v, err := m.evalIn(other, sc)
		if err != nil {
			return nil, nil, err
		}
		x := v.(*big.Int)
		one := big.NewInt(1)
		switch op {
		case logic.OpEq:
			raise(x)
			lower(x)
		case logic.OpLe:
			lower(x)
		case logic.OpLt:
			lower(new(big.Int).Sub(x, one))
		case logic.OpGe:
			raise(x)
		case logic.OpGt:
			raise(new(big.Int).Add(x, one))
		}
	}
	return lo, hi, nil
}

// points returns a set of values that covers every outcome of the body
// when the quantified variable only occurs as a side of a comparison or as
// an array index. Off the cells an array holds explicitly the body is
// then constant between consecutive thresholds, so the thresholds, their
// neighbours, the explicit cells and one value per gap are enough.
func (m *model) points(n logic.Quant, sc *scope) ([]*big.Int, bool, error) {
	var thresholds, arrays []logic.Term
	if !atoms(n.Body, n.Var, map[string]bool{n.Var: true}, &thresholds, &arrays) {
		return nil, false, nil
	}

	set := make(map[string]*big.Int)
	add := func(x *big.Int) { set[x.String()] = x }
	one := big.NewInt(1)
	for _, t := range thresholds {
		v, err := m.evalIn(t, sc)
		if err != nil {
			return nil, false, err
		}
		x := v.(*big.Int)
		add(x)
		add(new(big.Int).Sub(x, one))
		add(new(big.Int).Add(x, one))
	}
	for _, t := range arrays {
		v, err := m.evalIn(t, sc)
		if err != nil {
			return nil, false, err
		}
		for a := v.(*array); a != nil && a.idx != nil; a = a.parent {
			add(a.idx)
		}
	}
	if len(set) == 0 {
		return []*big.Int{new(big.Int)}, true, nil
	}

	sorted := make([]*big.Int, 0, len(set))
	for _, x := range set {
		sorted = append(sorted, x)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Cmp(sorted[j]) < 0 })
	pts := []*big.Int{new(big.Int).Sub(sorted[0], one)}
	for i, x := range sorted {
		pts = append(pts, x)
		if i+1 < len(sorted) && new(big.Int).Sub(sorted[i+1], x).Cmp(one) > 0 {
			pts = append(pts, new(big.Int).Add(x, one))
		}
	}
	pts = append(pts, new(big.Int).Add(sorted[len(sorted)-1], one))
	return pts, true, nil
}

// atoms collects the terms k is compared with and the arrays read at k.
// It reports false when k occurs anywhere else, or when a collected term
// depends on a variable bound inside the body.
func atoms(t logic.Term, k string, bound map[string]bool, thresholds, arrays *[]logic.Term) bool {
	isK := func(t logic.Term) bool {
		v, ok := t.(logic.Var)
		return ok && v.Name == k
	}
	closed := func(t logic.Term) bool {
		return !logic.Contains(t, func(t logic.Term) bool {
			v, ok := t.(logic.Var)
			return ok && bound[v.Name]
		})
	}
	walk := func(ts ...logic.Term) bool {
		for _, c := range ts {
			if !atoms(c, k, bound, thresholds, arrays) {
				return false
			}
		}
		return true
	}

	switch n := t.(type) {
	case logic.IntConst, logic.BoolConst, logic.Valid:
		return true
	case logic.Var:
		return n.Name != k
	case logic.Unary:
		return walk(n.X)
	case logic.Binary:
		if n.Op.IsComparison() {
			switch {
			case isK(n.Left) && closed(n.Right):
				*thresholds = append(*thresholds, n.Right)
				return true
			case isK(n.Right) && closed(n.Left):
				*thresholds = append(*thresholds, n.Left)
				return true
			}
		}
		return walk(n.Left, n.Right)
	case logic.Ite:
		return walk(n.Cond, n.Then, n.Else)
	case logic.Select:
		if isK(n.Index) {
			if !closed(n.Array) {
				return false
			}
			*arrays = append(*arrays, n.Array)
			return true
		}
		return walk(n.Array, n.Index)
	case logic.Store:
		return walk(n.Array, n.Index, n.Value)
	case logic.Quant:
		if n.Var == k {
			return true
		}
		inner := make(map[string]bool, len(bound)+1)
		for name := range bound {
			inner[name] = true
		}
		inner[n.Var] = true
		return atoms(n.Body, k, inner, thresholds, arrays)
	}
	return false
}

// mirror swaps the sides of a comparison.
func mirror(op logic.BinaryOp) logic.BinaryOp {
	switch op {
	case logic.OpLt:
		return logic.OpGt
	case logic.OpLe:
		return logic.OpGe
	case logic.OpGt:
		return logic.OpLt
	case logic.OpGe:
		return logic.OpLe
	}
	return op
}

func (m *model) binary(n logic.Binary, sc *scope) (value, error) {
	l, err := m.evalIn(n.Left, sc)
	if err != nil {
		return nil, err
	}
	// short-circuit keeps evaluation total on guarded terms
	switch n.Op {
	case logic.OpAnd:
		if !l.(bool) {
			return false, nil
		}
	case logic.OpOr:
		if l.(bool) {
			return true, nil
		}
	case logic.OpImplies:
		if !l.(bool) {
			return true, nil
		}
	}
	r, err := m.evalIn(n.Right, sc)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case logic.OpAnd, logic.OpOr, logic.OpImplies:
		return r.(bool), nil
	case logic.OpIff:
		return l.(bool) == r.(bool), nil
	case logic.OpEq, logic.OpNeq:
		eq := false
		switch lv := l.(type) {
		case bool:
			eq = lv == r.(bool)
		case *big.Int:
			eq = lv.Cmp(r.(*big.Int)) == 0
		default:
			return nil, fmt.Errorf("cannot compare %s", n.Left)
		}
		return eq == (n.Op == logic.OpEq), nil
	}

	x, y := l.(*big.Int), r.(*big.Int)
	switch n.Op {
	case logic.OpLt:
		return x.Cmp(y) < 0, nil
	case logic.OpLe:
		return x.Cmp(y) <= 0, nil
	case logic.OpGt:
		return x.Cmp(y) > 0, nil
	case logic.OpGe:
		return x.Cmp(y) >= 0, nil
	case logic.OpAdd:
		return new(big.Int).Add(x, y), nil
	case logic.OpSub:
		return new(big.Int).Sub(x, y), nil
	case logic.OpMul:
		return new(big.Int).Mul(x, y), nil
	case logic.OpDiv:
		// division truncates toward zero; x / 0 is 0
		if y.Sign() == 0 {
			return new(big.Int), nil
		}
		return new(big.Int).Quo(x, y), nil
	case logic.OpMod:
		if y.Sign() == 0 {
			return new(big.Int), nil
		}
		return new(big.Int).Rem(x, y), nil
	}
	return nil, fmt.Errorf("unknown operator %s", n.Op)
}
