// Package smt encodes obligations in SMT-LIB 2 and discharges them with an
// external z3 process.
package smt

import (
	"fmt"
	"strings"

	"github.com/gnoverse/contractvc/internal/logic"
)

// preamble defines C division, which truncates toward zero. SMT-LIB div and
// mod are Euclidean. Division by zero yields 0 as in the finite solver.
const preamble = `(define-fun c_div ((x Int) (y Int)) Int
  (ite (= y 0) 0 (ite (>= x 0) (ite (> y 0) (div x y) (- (div x (- y))))
                             (ite (> y 0) (- (div (- x) y)) (div (- x) (- y))))))
(define-fun c_mod ((x Int) (y Int)) Int
  (ite (= y 0) 0 (- x (* y (c_div x y)))))
`

// Symbol quotes a name so that it is a legal SMT-LIB symbol.
func Symbol(name string) string {
	return "|" + strings.ReplaceAll(name, "|", "_") + "|"
}

func sortName(s logic.Sort) (string, error) {
	switch s {
	case logic.SortInt:
		return "Int", nil
	case logic.SortBool:
		return "Bool", nil
	case logic.SortArray:
		return "(Array Int Int)", nil
	}
	return "", fmt.Errorf("unsupported sort %s", s)
}

// Encode returns a script that is unsat iff formula is valid: it declares
// the free variables, asserts the negation and asks for a model.
func Encode(formula logic.Term) (string, error) {
	var sb strings.Builder
	sb.WriteString("(set-option :produce-models true)\n")
	sb.WriteString("(set-logic ALL)\n")
	sb.WriteString(preamble)

	vars := logic.FreeVars(formula)
	for _, v := range vars {
		sort, err := sortName(v.Type)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, "(declare-const %s %s)\n", Symbol(v.Name), sort)
	}

	body, err := term(formula)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(&sb, "(assert (not %s))\n", body)
	sb.WriteString("(check-sat)\n")
	if len(vars) > 0 {
		names := make([]string, len(vars))
		for i, v := range vars {
			names[i] = Symbol(v.Name)
		}
		fmt.Fprintf(&sb, "(get-value (%s))\n", strings.Join(names, " "))
	}
	return sb.String(), nil
}

var binaryOps = map[logic.BinaryOp]string{
	logic.OpAdd:     "+",
	logic.OpSub:     "-",
	logic.OpMul:     "*",
	logic.OpDiv:     "c_div",
	logic.OpMod:     "c_mod",
	logic.OpEq:      "=",
	logic.OpLt:      "<",
	logic.OpLe:      "<=",
	logic.OpGt:      ">",
	logic.OpGe:      ">=",
	logic.OpAnd:     "and",
	logic.OpOr:      "or",
	logic.OpImplies: "=>",
	logic.OpIff:     "=",
}

func term(t logic.Term) (string, error) {
	switch n := t.(type) {
	case logic.IntConst:
		if n.Val < 0 {
			return "(- " + strings.TrimPrefix(fmt.Sprint(n.Val), "-") + ")", nil
		}
		return fmt.Sprint(n.Val), nil
	case logic.BoolConst:
		return fmt.Sprint(n.Val), nil
	case logic.Var:
		return Symbol(n.Name), nil
	case logic.Unary:
		x, err := term(n.X)
		if err != nil {
			return "", err
		}
		if n.Op == logic.OpNot {
			return "(not " + x + ")", nil
		}
		return "(- " + x + ")", nil
	case logic.Binary:
		l, err := term(n.Left)
		if err != nil {
			return "", err
		}
		r, err := term(n.Right)
		if err != nil {
			return "", err
		}
		if n.Op == logic.OpNeq {
			return "(not (= " + l + " " + r + "))", nil
		}
		op, ok := binaryOps[n.Op]
		if !ok {
			return "", fmt.Errorf("unsupported operator %s", n.Op)
		}
		return "(" + op + " " + l + " " + r + ")", nil
	case logic.Ite:
		c, err := term(n.Cond)
		if err != nil {
			return "", err
		}
		a, err := term(n.Then)
		if err != nil {
			return "", err
		}
		b, err := term(n.Else)
		if err != nil {
			return "", err
		}
		return "(ite " + c + " " + a + " " + b + ")", nil
	case logic.Select:
		a, err := term(n.Array)
		if err != nil {
			return "", err
		}
		i, err := term(n.Index)
		if err != nil {
			return "", err
		}
		return "(select " + a + " " + i + ")", nil
	case logic.Store:
		a, err := term(n.Array)
		if err != nil {
			return "", err
		}
		i, err := term(n.Index)
		if err != nil {
			return "", err
		}
		v, err := term(n.Value)
		if err != nil {
			return "", err
		}
		return "(store " + a + " " + i + " " + v + ")", nil
	case logic.Quant:
		body, err := term(n.Body)
		if err != nil {
			return "", err
		}
		q := "forall"
		if n.Q == logic.Exists {
			q = "exists"
		}
		return "(" + q + " ((" + Symbol(n.Var) + " Int)) " + body + ")", nil
	case logic.Valid:
		// memory validity is assumed, it only feeds access obligations
		return "true", nil
	}
	return "", fmt.Errorf("cannot encode %s", t)
}
