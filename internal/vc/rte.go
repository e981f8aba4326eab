package vc

import (
	"fmt"

	"github.com/gnoverse/contractvc/internal/logic"
	"github.com/gnoverse/contractvc/internal/program"
)

// rteCheck is one run-time error condition at a statement.
type rteCheck struct {
	kind Kind
	cond logic.Term
	desc string
}

// expressions returns the program expressions evaluated by s, in order.
func expressions(s program.Stmt) []logic.Term {
	switch st := s.(type) {
	case program.Assign:
		return []logic.Term{st.Value}
	case program.Store:
		return []logic.Term{st.Index, st.Value}
	case program.If:
		return []logic.Term{st.Cond}
	case program.While:
		return []logic.Term{st.Cond}
	case program.Return:
		if st.Value != nil {
			return []logic.Term{st.Value}
		}
	}
	return nil
}

// runtimeChecks lists the run-time error conditions of n.
func (g *gen) runtimeChecks(n *node) []rteCheck {
	var checks []rteCheck
	for _, e := range expressions(n.stmt) {
		g.collect(e, logic.True, &checks)
	}
	if st, ok := n.stmt.(program.Store); ok {
		checks = append(checks, rteCheck{
			kind: KindMemoryAccess,
			cond: g.accessible(st.Array, st.Index, true),
			desc: fmt.Sprintf("valid write %s[%s]", st.Array, st.Index),
		})
	}
	return checks
}

// collect walks e in evaluation order. Operands that are only evaluated
// under a condition (&&, ||, ?:) are checked under that condition.
func (g *gen) collect(e logic.Term, guard logic.Term, out *[]rteCheck) {
	add := func(kind Kind, cond logic.Term, desc string) {
		*out = append(*out, rteCheck{kind: kind, cond: logic.Implies(guard, cond), desc: desc})
	}

	switch t := e.(type) {
	case logic.Binary:
		switch t.Op {
		case logic.OpAnd, logic.OpImplies:
			g.collect(t.Left, guard, out)
			g.collect(t.Right, logic.And(guard, t.Left), out)
			return
		case logic.OpOr:
			g.collect(t.Left, guard, out)
			g.collect(t.Right, logic.And(guard, logic.Not(t.Left)), out)
			return
		}
		g.collect(t.Left, guard, out)
		g.collect(t.Right, guard, out)
		if !t.Op.IsArithmetic() {
			return
		}
		if t.Op == logic.OpDiv || t.Op == logic.OpMod {
			add(KindDivisionByZero, logic.Neq(t.Right, logic.Int(0)), fmt.Sprintf("divisor of %s is not zero", t))
		}
		if t.Op != logic.OpMod {
			add(KindOverflow, g.inRange(t), fmt.Sprintf("no signed overflow in %s", t))
		}

	case logic.Unary:
		g.collect(t.X, guard, out)
		if t.Op == logic.OpNeg {
			add(KindOverflow, g.inRange(t), fmt.Sprintf("no signed overflow in %s", t))
		}

	case logic.Ite:
		g.collect(t.Cond, guard, out)
		g.collect(t.Then, logic.And(guard, t.Cond), out)
		g.collect(t.Else, logic.And(guard, logic.Not(t.Cond)), out)

	case logic.Select:
		g.collect(t.Array, guard, out)
		g.collect(t.Index, guard, out)
		if v, ok := t.Array.(logic.Var); ok {
			add(KindMemoryAccess, g.accessible(v.Name, t.Index, false), fmt.Sprintf("valid read %s", t))
		}
	}
}

func (g *gen) inRange(t logic.Term) logic.Term {
	return logic.InRange(t, logic.Int(g.intMin), logic.Int(g.intMax))
}

// accessible states that array[index] lies in a range the precondition
// declares valid. Writes need \valid, reads accept \valid_read too.
// Ranges are evaluated in the entry state.
func (g *gen) accessible(array string, index logic.Term, write bool) logic.Term {
	var ok []logic.Term
	for _, v := range g.valid {
		base, isVar := v.Base.(logic.Var)
		if !isVar || base.Name != array || (write && v.ReadOnly) {
			continue
		}
		lo := logic.ToOld(v.Lo, nil)
		hi := logic.ToOld(v.Hi, nil)
		ok = append(ok, logic.InRange(index, lo, hi))
	}
	return logic.Or(ok...)
}
