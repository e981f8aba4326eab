package logic

import "math/big"

// Simplify folds constants and removes trivial logical structure.
// The result is logically equivalent to t.
func Simplify(t Term) Term {
	switch n := t.(type) {
	case Unary:
		x := Simplify(n.X)
		switch n.Op {
		case OpNot:
			return Not(x)
		case OpNeg:
			if c, ok := x.(IntConst); ok {
				if r, ok := foldInt(OpSub, 0, c.Val); ok {
					return IntConst{Val: r}
				}
			}
			if u, ok := x.(Unary); ok && u.Op == OpNeg {
				return u.X
			}
		}
		return Unary{Op: n.Op, X: x}

	case Binary:
		return simplifyBinary(n.Op, Simplify(n.Left), Simplify(n.Right))

	case Ite:
		cond := Simplify(n.Cond)
		then := Simplify(n.Then)
		els := Simplify(n.Else)
		if b, ok := cond.(BoolConst); ok {
			if b.Val {
				return then
			}
			return els
		}
		if Equal(then, els) {
			return then
		}
		return Ite{Cond: cond, Then: then, Else: els}

	case Select:
		arr := Simplify(n.Array)
		idx := Simplify(n.Index)
		// read-over-write with syntactically decided indices
		for {
			st, ok := arr.(Store)
			if !ok {
				break
			}
			if Equal(st.Index, idx) {
				return st.Value
			}
			ci, ok1 := st.Index.(IntConst)
			cj, ok2 := idx.(IntConst)
			if ok1 && ok2 && ci.Val != cj.Val {
				arr = st.Array
				continue
			}
			break
		}
		return Select{Array: arr, Index: idx}

	case Quant:
		body := Simplify(n.Body)
		if _, ok := body.(BoolConst); ok {
			return body
		}
		if !freeNames(body)[n.Var] {
			return body
		}
		return Quant{Q: n.Q, Var: n.Var, Body: body}

	default:
		return mapChildren(t, Simplify)
	}
}

func simplifyBinary(op BinaryOp, l, r Term) Term {
	lc, lInt := l.(IntConst)
	rc, rInt := r.(IntConst)
	lb, lBool := l.(BoolConst)
	rb, rBool := r.(BoolConst)

	switch {
	case op.IsArithmetic():
		if lInt && rInt {
			if v, ok := foldInt(op, lc.Val, rc.Val); ok {
				return IntConst{Val: v}
			}
		}
		if rInt && rc.Val == 0 && (op == OpAdd || op == OpSub) {
			return l
		}
		if lInt && lc.Val == 0 && op == OpAdd {
			return r
		}

	case op.IsComparison():
		if lInt && rInt {
			return BoolConst{Val: compareInt(op, lc.Val, rc.Val)}
		}
		if lBool && rBool && (op == OpEq || op == OpNeq) {
			return BoolConst{Val: (lb.Val == rb.Val) == (op == OpEq)}
		}
		if Equal(l, r) {
			switch op {
			case OpEq, OpLe, OpGe:
				return True
			case OpNeq, OpLt, OpGt:
				return False
			}
		}

	case op == OpAnd:
		return And(l, r)
	case op == OpOr:
		return Or(l, r)
	case op == OpImplies:
		if Equal(l, r) {
			return True
		}
		if rBool && !rb.Val {
			return Not(l)
		}
		return Implies(l, r)
	case op == OpIff:
		if lBool {
			if lb.Val {
				return r
			}
			return Not(r)
		}
		if rBool {
			if rb.Val {
				return l
			}
			return Not(l)
		}
		if Equal(l, r) {
			return True
		}
	}
	return Binary{Op: op, Left: l, Right: r}
}

// foldInt evaluates op over mathematical integers and reports whether
// the result is representable as a literal. Division truncates toward zero.
func foldInt(op BinaryOp, a, b int64) (int64, bool) {
	x := big.NewInt(a)
	y := big.NewInt(b)
	z := new(big.Int)
	switch op {
	case OpAdd:
		z.Add(x, y)
	case OpSub:
		z.Sub(x, y)
	case OpMul:
		z.Mul(x, y)
	case OpDiv:
		if b == 0 {
			return 0, false
		}
		z.Quo(x, y)
	case OpMod:
		if b == 0 {
			return 0, false
		}
		z.Rem(x, y)
	default:
		return 0, false
	}
	if !z.IsInt64() {
		return 0, false
	}
	return z.Int64(), true
}

func compareInt(op BinaryOp, a, b int64) bool {
	switch op {
	case OpEq:
		return a == b
	case OpNeq:
		return a != b
	case OpLt:
		return a < b
	case OpLe:
		return a <= b
	case OpGt:
		return a > b
	case OpGe:
		return a >= b
	}
	return false
}
