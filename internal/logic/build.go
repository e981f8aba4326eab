package logic

// Helper functions to construct terms.

var (
	// True is the predicate \true.
	True Term = BoolConst{Val: true}
	// False is the predicate \false.
	False Term = BoolConst{Val: false}
)

// Int creates an integer literal.
func Int(v int64) Term {
	return IntConst{Val: v}
}

// IntVar creates a reference to an integer variable.
func IntVar(name string) Term {
	return Var{Name: name, Type: SortInt}
}

// BoolVar creates a reference to a boolean variable.
func BoolVar(name string) Term {
	return Var{Name: name, Type: SortBool}
}

// ArrayVar creates a reference to an array variable.
func ArrayVar(name string) Term {
	return Var{Name: name, Type: SortArray}
}

// Neg creates an arithmetic negation.
func Neg(x Term) Term {
	return Unary{Op: OpNeg, X: x}
}

// Not creates a logical negation, folding constants and double negation.
func Not(x Term) Term {
	switch t := x.(type) {
	case BoolConst:
		return BoolConst{Val: !t.Val}
	case Unary:
		if t.Op == OpNot {
			return t.X
		}
	}
	return Unary{Op: OpNot, X: x}
}

// Bin creates a binary term.
func Bin(op BinaryOp, left, right Term) Term {
	return Binary{Op: op, Left: left, Right: right}
}

func Add(l, r Term) Term { return Bin(OpAdd, l, r) }
func Sub(l, r Term) Term { return Bin(OpSub, l, r) }
func Mul(l, r Term) Term { return Bin(OpMul, l, r) }
func Div(l, r Term) Term { return Bin(OpDiv, l, r) }
func Mod(l, r Term) Term { return Bin(OpMod, l, r) }
func Eq(l, r Term) Term { return Bin(OpEq, l, r) }
func Neq(l, r Term) Term { return Bin(OpNeq, l, r) }
func Lt(l, r Term) Term { return Bin(OpLt, l, r) }
func Le(l, r Term) Term { return Bin(OpLe, l, r) }
func Gt(l, r Term) Term { return Bin(OpGt, l, r) }
func Ge(l, r Term) Term { return Bin(OpGe, l, r) }

// And conjoins predicates, dropping \true operands.
// An empty conjunction is \true.
func And(ts ...Term) Term {
	var result Term
	for _, t := range ts {
		if b, ok := t.(BoolConst); ok {
			if !b.Val {
				return False
			}
			continue
		}
		if result == nil {
			result = t
			continue
		}
		result = Binary{Op: OpAnd, Left: result, Right: t}
	}
	if result == nil {
		return True
	}
	return result
}

// Or disjoins predicates, dropping \false operands.
// An empty disjunction is \false.
func Or(ts ...Term) Term {
	var result Term
	for _, t := range ts {
		if b, ok := t.(BoolConst); ok {
			if b.Val {
				return True
			}
			continue
		}
		if result == nil {
			result = t
			continue
		}
		result = Binary{Op: OpOr, Left: result, Right: t}
	}
	if result == nil {
		return False
	}
	return result
}

// Implies creates an implication, folding constant operands.
func Implies(hyp, concl Term) Term {
	if b, ok := hyp.(BoolConst); ok {
		if b.Val {
			return concl
		}
		return True
	}
	if b, ok := concl.(BoolConst); ok && b.Val {
		return True
	}
	return Binary{Op: OpImplies, Left: hyp, Right: concl}
}

// Iff creates a logical equivalence.
func Iff(l, r Term) Term {
	return Bin(OpIff, l, r)
}

// If creates a conditional term.
func If(cond, then, els Term) Term {
	return Ite{Cond: cond, Then: then, Else: els}
}

// At reads array a at index i.
func At(a, i Term) Term {
	return Select{Array: a, Index: i}
}

// Update creates the functional update of array a at index i.
func Update(a, i, v Term) Term {
	return Store{Array: a, Index: i, Value: v}
}

// Forall creates a universally quantified predicate over an integer variable.
func Forall(name string, body Term) Term {
	return Quant{Q: ForAll, Var: name, Body: body}
}

// Exist creates an existentially quantified predicate over an integer variable.
func Exist(name string, body Term) Term {
	return Quant{Q: Exists, Var: name, Body: body}
}

// InRange is lo <= t && t <= hi.
func InRange(t, lo, hi Term) Term {
	return And(Le(lo, t), Le(t, hi))
}

// IntBounds returns INT_MIN and INT_MAX of a signed machine integer
// of the given width.
func IntBounds(bits uint) (int64, int64) {
	if bits == 0 || bits >= 64 {
		return -1 << 63, 1<<63 - 1
	}
	return -(1 << (bits - 1)), 1<<(bits-1) - 1
}

// Conjuncts splits a predicate into its top-level conjuncts.
func Conjuncts(t Term) []Term {
	if b, ok := t.(Binary); ok && b.Op == OpAnd {
		return append(Conjuncts(b.Left), Conjuncts(b.Right)...)
	}
	if b, ok := t.(BoolConst); ok && b.Val {
		return nil
	}
	return []Term{t}
}
