// Package acsl reads contract annotations written in ACSL notation and
// attaches them to a contract.FunctionContract.
package acsl

import (
	"github.com/gnoverse/contractvc/internal/contract"
	"github.com/gnoverse/contractvc/internal/logic"
	"github.com/gnoverse/contractvc/internal/program"
)

// ParseContract parses a function contract such as
//
//	requires n > 0;
//	assigns \nothing;
//	behavior equal:
//	  assumes \forall integer k; 0 <= k < n ==> b[k] == a[k];
//	  ensures \result == 1;
//
// Syntax and sort errors are returned as *logic.MalformedPredicateError.
// Reusing a behavior name returns contract.ErrDuplicateBehaviorName.
func ParseContract(fn *program.Function, text string, opts ...Option) (*contract.FunctionContract, error) {
	p, err := newParser(fn, text, newOptions(opts))
	if err != nil {
		return nil, err
	}
	fc := contract.New(fn.Name)
	if err := p.contract(fc); err != nil {
		return nil, err
	}
	return fc, nil
}

// ParseLoopAnnotation parses loop invariant, loop assigns and loop variant
// clauses for the loop id and attaches them to fc.
func ParseLoopAnnotation(fc *contract.FunctionContract, fn *program.Function, id program.LoopID, text string, opts ...Option) error {
	p, err := newParser(fn, text, newOptions(opts))
	if err != nil {
		return err
	}
	return p.loopAnnotation(fc, id)
}

// ParsePredicate parses a standalone predicate evaluated in the current
// state, as found in assert annotations.
func ParsePredicate(fn *program.Function, clause, text string, opts ...Option) (logic.Term, error) {
	p, err := newParser(fn, text, newOptions(opts))
	if err != nil {
		return nil, err
	}
	p.clause = clause
	t, err := p.predicate()
	if err != nil {
		return nil, err
	}
	p.accept(";")
	if p.peek().Type != TokenEOF {
		return nil, p.errorf(p.peek(), "unexpected %s after predicate", describe(p.peek()))
	}
	return t, nil
}

// ParseExpr parses a program expression over the variables of fn.
// Builtins are rejected.
func ParseExpr(fn *program.Function, text string, opts ...Option) (logic.Term, error) {
	p, err := newParser(fn, text, newOptions(opts))
	if err != nil {
		return nil, err
	}
	p.clause = "expression"
	for _, t := range p.tokens {
		if t.Type == TokenBuiltin {
			return nil, p.errorf(t, "%s is not a program expression", t.Value)
		}
	}
	t, err := p.ternary()
	if err != nil {
		return nil, err
	}
	if err := logic.CheckTerm(p.clause, t, t.Sort()); err != nil {
		return nil, err
	}
	if p.peek().Type != TokenEOF {
		return nil, p.errorf(p.peek(), "unexpected %s after expression", describe(p.peek()))
	}
	return t, nil
}

func (p *parser) end() error {
	_, err := p.expect(";")
	return err
}

func (p *parser) contract(fc *contract.FunctionContract) error {
	for p.peek().Type != TokenEOF {
		kw, err := p.ident()
		if err != nil {
			return err
		}
		p.clause = kw.Value
		p.allowResult, p.allowOld = false, false

		switch kw.Value {
		case "requires":
			pred, err := p.predicate()
			if err != nil {
				return err
			}
			fc.AttachPrecondition(pred)
		case "ensures":
			p.allowResult, p.allowOld = true, true
			pred, err := p.predicate()
			if err != nil {
				return err
			}
			fc.AttachEnsures(pred)
		case "assigns":
			a, err := p.assigns()
			if err != nil {
				return err
			}
			fc.SetAssigns(contract.FunctionScope(), a)
			continue
		case "behavior":
			if err := p.behavior(fc); err != nil {
				return err
			}
			continue
		case "complete", "disjoint":
			names, err := p.behaviorList()
			if err != nil {
				return err
			}
			if kw.Value == "complete" {
				err = fc.DeclareComplete(names...)
			} else {
				err = fc.DeclareDisjoint(names...)
			}
			if err != nil {
				return err
			}
			continue
		case "terminates":
			// every function in scope is expected to terminate
			if _, err := p.predicate(); err != nil {
				return err
			}
		default:
			return p.errorf(kw, "unknown clause %q", kw.Value)
		}
		if err := p.end(); err != nil {
			return err
		}
	}
	return nil
}

// behavior parses the body of one named behavior. Behavior-level requires
// clauses become assumes ==> requires in the precondition.
func (p *parser) behavior(fc *contract.FunctionContract) error {
	name, err := p.ident()
	if err != nil {
		return err
	}
	if _, err := p.expect(":"); err != nil {
		return err
	}
	var assumes, ensures, requires []logic.Term
loop:
	for p.peek().Type == TokenIdent {
		kw := p.peek()
		p.clause = "behavior " + name.Value + ": " + kw.Value
		p.allowResult, p.allowOld = false, false
		var dst *[]logic.Term
		switch kw.Value {
		case "assumes":
			dst = &assumes
		case "requires":
			dst = &requires
		case "ensures":
			p.allowResult, p.allowOld = true, true
			dst = &ensures
		case "assigns":
			return p.errorf(kw, "assigns inside behavior %s is not supported", name.Value)
		default:
			break loop
		}
		p.next()
		pred, err := p.predicate()
		if err != nil {
			return err
		}
		*dst = append(*dst, pred)
		if err := p.end(); err != nil {
			return err
		}
	}
	assume := logic.And(assumes...)
	if _, err := fc.AddBehavior(name.Value, assume, logic.And(ensures...)); err != nil {
		return err
	}
	for _, r := range requires {
		fc.AttachPrecondition(logic.Implies(assume, r))
	}
	return nil
}

// behaviorList parses "behaviors a, b;" after complete or disjoint.
func (p *parser) behaviorList() ([]string, error) {
	if _, err := p.expect("behaviors"); err != nil {
		return nil, err
	}
	var names []string
	for !p.is(";") {
		id, err := p.ident()
		if err != nil {
			return nil, err
		}
		names = append(names, id.Value)
		if !p.accept(",") {
			break
		}
	}
	return names, p.end()
}

// assigns parses a location list or \nothing, including the final ';'.
func (p *parser) assigns() (*contract.Assigns, error) {
	if p.accept(`\nothing`) {
		return contract.Nothing(), p.end()
	}
	var locs []contract.Location
	for !p.is(";") {
		loc, err := p.location()
		if err != nil {
			return nil, err
		}
		locs = append(locs, loc)
		if !p.accept(",") {
			break
		}
	}
	return contract.Locations(locs...), p.end()
}

// location parses x, a[i], a[lo..hi] or a + (lo..hi).
func (p *parser) location() (contract.Location, error) {
	id, err := p.ident()
	if err != nil {
		return nil, err
	}
	v, ok := p.symbols[id.Value]
	if !ok {
		return nil, p.errorf(id, "unknown location %q", id.Value)
	}
	if v.Type != program.TypeIntArray {
		return contract.VarLocation{Name: v.Name}, nil
	}
	switch {
	case p.accept("["):
		lo, err := p.additive()
		if err != nil {
			return nil, err
		}
		if p.accept("..") {
			hi, err := p.additive()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect("]"); err != nil {
				return nil, err
			}
			return contract.RangeLocation{Array: v.Name, Lo: lo, Hi: hi}, nil
		}
		if _, err := p.expect("]"); err != nil {
			return nil, err
		}
		return contract.CellLocation{Array: v.Name, Index: lo}, nil
	case p.accept("+"):
		if _, err := p.expect("("); err != nil {
			return nil, err
		}
		lo, hi, err := p.bounds()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		return contract.RangeLocation{Array: v.Name, Lo: lo, Hi: hi}, nil
	}
	return contract.VarLocation{Name: v.Name}, nil
}

func (p *parser) loopAnnotation(fc *contract.FunctionContract, id program.LoopID) error {
	for p.peek().Type != TokenEOF {
		if _, err := p.expect("loop"); err != nil {
			return err
		}
		kw, err := p.ident()
		if err != nil {
			return err
		}
		p.clause = "loop " + kw.Value
		p.allowResult = false
		p.allowOld = true

		switch kw.Value {
		case "invariant":
			pred, err := p.predicate()
			if err != nil {
				return err
			}
			fc.AttachLoopInvariant(id, pred)
		case "assigns":
			a, err := p.assigns()
			if err != nil {
				return err
			}
			fc.SetAssigns(contract.LoopScope(id), a)
			continue
		case "variant":
			measure, err := p.integer()
			if err != nil {
				return err
			}
			fc.SetLoopVariant(id, measure)
		default:
			return p.errorf(kw, "unknown loop clause %q", kw.Value)
		}
		if err := p.end(); err != nil {
			return err
		}
	}
	return nil
}
