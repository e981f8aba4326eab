package vc

import (
	"github.com/gnoverse/contractvc/internal/contract"
	"github.com/gnoverse/contractvc/internal/logic"
	"github.com/gnoverse/contractvc/internal/program"
)

// conts are the postconditions of the four ways a statement can end.
type conts struct {
	normal logic.Term
	brk    logic.Term
	cont   logic.Term
	ret    logic.Term
}

var trivial = conts{normal: logic.True, brk: logic.True, cont: logic.True, ret: logic.True}

// focus selects the single proof goal carried by one wp computation.
// Everything outside the goal is assumed.
type focus struct {
	entry    program.LoopID
	preserve program.LoopID
	variant  program.LoopID
	// site returns the requirement checked just before n runs, or nil.
	// For a loop it is checked each time the guard is evaluated.
	site func(n *node) logic.Term
}

func (f focus) at(n *node) logic.Term {
	if f.site == nil {
		return nil
	}
	return f.site(n)
}

// wp computes the weakest precondition of n under k for the goal f.
func (g *gen) wp(n *node, k conts, f focus) logic.Term {
	req := f.at(n)
	var result logic.Term

	switch s := n.stmt.(type) {
	case program.Assign:
		result = logic.Substitute(k.normal, map[string]logic.Term{s.Var: s.Value})

	case program.Store:
		arr := g.ref(s.Array)
		result = logic.Substitute(k.normal, map[string]logic.Term{
			s.Array: logic.Update(arr, s.Index, s.Value),
		})

	case program.Block:
		q := k.normal
		for i := len(n.kids) - 1; i >= 0; i-- {
			q = g.wp(n.kids[i], conts{normal: q, brk: k.brk, cont: k.cont, ret: k.ret}, f)
		}
		result = q

	case program.If:
		then := g.wp(n.kids[0], k, f)
		els := k.normal
		if len(n.kids) > 1 {
			els = g.wp(n.kids[1], k, f)
		}
		result = logic.And(
			logic.Implies(s.Cond, then),
			logic.Implies(logic.Not(s.Cond), els),
		)

	case program.While:
		return g.loop(n, s, k, f, req)

	case program.Return:
		if s.Value == nil {
			result = k.ret
		} else {
			result = logic.SubstituteResult(k.ret, s.Value)
		}

	case program.Break:
		result = k.brk

	case program.Continue:
		result = k.cont

	case program.Assert:
		result = logic.Implies(s.Pred, k.normal)

	default:
		result = k.normal
	}

	if req != nil {
		return logic.And(req, result)
	}
	return result
}

// loop applies the invariant rule. The loop is opaque: the state after any
// number of iterations is described by fresh variables constrained only by
// the invariant.
func (g *gen) loop(n *node, s program.While, k conts, f focus, req logic.Term) logic.Term {
	lc, _ := g.fc.Loop(s.ID)
	inv := logic.True
	if lc != nil {
		inv = lc.Invariant()
	}
	enter := logic.And(inv, s.Cond)

	// iterate is the wp of one iteration: the body, then the step on
	// normal completion and on continue, reaching q at the guard.
	iterate := func(q, brk, ret logic.Term) logic.Term {
		if len(n.kids) > 1 {
			q = g.wp(n.kids[1], conts{normal: q, brk: logic.True, cont: logic.True, ret: logic.True}, f)
		}
		return g.wp(n.kids[0], conts{normal: q, brk: brk, cont: q, ret: ret}, f)
	}

	switch s.ID {
	case f.entry:
		return inv

	case f.preserve:
		step := iterate(inv, logic.True, logic.True)
		return g.havoc(s, logic.Implies(enter, step))

	case f.variant:
		measure := lc.Variant()
		mark := logic.Var{Name: "variant@" + string(s.ID), Type: logic.SortInt}
		step := iterate(logic.Lt(measure, mark), logic.True, logic.True)
		step = logic.Substitute(step, map[string]logic.Term{mark.Name: measure})
		return g.havoc(s, logic.Implies(enter, logic.And(logic.Ge(measure, logic.Int(0)), step)))
	}

	exit := logic.Implies(logic.And(inv, logic.Not(s.Cond)), k.normal)
	iter := logic.Implies(enter, iterate(logic.True, k.normal, k.ret))
	inner := logic.And(exit, iter)
	if req != nil {
		inner = logic.And(logic.Implies(inv, req), inner)
	}
	return g.havoc(s, inner)
}

// havoc renames every location written by the loop to a fresh variable.
func (g *gen) havoc(s program.While, t logic.Term) logic.Term {
	vars, arrays := program.Modified(s)
	m := make(map[string]logic.Term, len(vars)+len(arrays))
	for _, name := range append(vars, arrays...) {
		v := g.ref(name).(logic.Var)
		m[name] = logic.Var{Name: name + "@" + string(s.ID), Type: v.Type}
	}
	return logic.Substitute(t, m)
}

func (g *gen) ref(name string) logic.Term {
	v, _ := g.fn.Lookup(name)
	return v.Term()
}

// frameCheck returns the condition under which writing at n respects a.
// Only writes accepted by visible are constrained.
func frameCheck(n *node, a *contract.Assigns, visible func(name string) bool) logic.Term {
	switch s := n.stmt.(type) {
	case program.Assign:
		if !visible(s.Var) {
			return nil
		}
		if a.PermitsVar(s.Var) {
			return logic.True
		}
		return logic.False
	case program.Store:
		if !visible(s.Array) {
			return nil
		}
		return a.Permits(s.Array, s.Index)
	}
	return nil
}
