package logic

import (
	"errors"
	"fmt"
)

// ErrMalformedPredicate is the kind of every parse or sort error found in
// an annotation. It is fatal for the function carrying the annotation.
var ErrMalformedPredicate = errors.New("malformed predicate")

// MalformedPredicateError locates a malformed annotation.
type MalformedPredicateError struct {
	Clause string // e.g. "requires", "loop invariant"
	Line   int
	Col    int
	Msg    string
}

func (e *MalformedPredicateError) Error() string {
	if e == nil {
		return ""
	}
	loc := ""
	if e.Line > 0 {
		loc = fmt.Sprintf("line %d col %d: ", e.Line, e.Col)
	}
	if e.Clause != "" {
		return fmt.Sprintf("%s: %s%s: %s", ErrMalformedPredicate, loc, e.Clause, e.Msg)
	}
	return fmt.Sprintf("%s: %s%s", ErrMalformedPredicate, loc, e.Msg)
}

func (e *MalformedPredicateError) Unwrap() error { return ErrMalformedPredicate }

// Malformedf builds a MalformedPredicateError without a source position.
func Malformedf(clause, format string, args ...any) error {
	return &MalformedPredicateError{Clause: clause, Msg: fmt.Sprintf(format, args...)}
}

// CheckPredicate verifies that t is well sorted and of sort SortBool.
func CheckPredicate(clause string, t Term) error {
	if t == nil {
		return Malformedf(clause, "missing predicate")
	}
	if err := check(clause, t); err != nil {
		return err
	}
	if t.Sort() != SortBool {
		return Malformedf(clause, "%s is a %s term, not a predicate", t, t.Sort())
	}
	return nil
}

// CheckTerm verifies that t is well sorted and of the wanted sort.
func CheckTerm(clause string, t Term, want Sort) error {
	if t == nil {
		return Malformedf(clause, "missing term")
	}
	if err := check(clause, t); err != nil {
		return err
	}
	if t.Sort() != want {
		return Malformedf(clause, "%s has sort %s, want %s", t, t.Sort(), want)
	}
	return nil
}

func check(clause string, t Term) error {
	for _, c := range children(t) {
		if c == nil {
			return Malformedf(clause, "incomplete term %T", t)
		}
		if err := check(clause, c); err != nil {
			return err
		}
	}

	expect := func(x Term, s Sort) error {
		if x.Sort() != s {
			return Malformedf(clause, "%s has sort %s, want %s", x, x.Sort(), s)
		}
		return nil
	}

	switch n := t.(type) {
	case Var:
		if n.Name == "" {
			return Malformedf(clause, "variable without a name")
		}
		if n.Type == 0 {
			return Malformedf(clause, "variable %s has no sort", n.Name)
		}
	case Old:
		if n.Type == 0 {
			return Malformedf(clause, `\old(%s) has no sort`, n.Name)
		}
	case Unary:
		if n.Op == OpNot {
			return expect(n.X, SortBool)
		}
		return expect(n.X, SortInt)
	case Binary:
		switch {
		case n.Op.IsArithmetic():
			if err := expect(n.Left, SortInt); err != nil {
				return err
			}
			return expect(n.Right, SortInt)
		case n.Op == OpEq || n.Op == OpNeq:
			if n.Left.Sort() == SortArray {
				return Malformedf(clause, "arrays cannot be compared with %s", n.Op)
			}
			return expect(n.Right, n.Left.Sort())
		case n.Op.IsComparison():
			if err := expect(n.Left, SortInt); err != nil {
				return err
			}
			return expect(n.Right, SortInt)
		case n.Op.IsLogical():
			if err := expect(n.Left, SortBool); err != nil {
				return err
			}
			return expect(n.Right, SortBool)
		default:
			return Malformedf(clause, "unknown operator %d", n.Op)
		}
	case Ite:
		if err := expect(n.Cond, SortBool); err != nil {
			return err
		}
		return expect(n.Else, n.Then.Sort())
	case Select:
		if err := expect(n.Array, SortArray); err != nil {
			return err
		}
		return expect(n.Index, SortInt)
	case Store:
		if err := expect(n.Array, SortArray); err != nil {
			return err
		}
		if err := expect(n.Index, SortInt); err != nil {
			return err
		}
		return expect(n.Value, SortInt)
	case Quant:
		if n.Var == "" {
			return Malformedf(clause, "quantifier without a variable")
		}
		return expect(n.Body, SortBool)
	case Valid:
		if err := expect(n.Base, SortArray); err != nil {
			return err
		}
		if err := expect(n.Lo, SortInt); err != nil {
			return err
		}
		return expect(n.Hi, SortInt)
	}
	return nil
}
