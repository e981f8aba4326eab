// Package mutation measures how much of a function's behavior its contract
// pins down: each mutant of the body should fail verification against the
// unchanged contract.
package mutation

import (
	"fmt"

	"github.com/gnoverse/contractvc/internal/logic"
	"github.com/gnoverse/contractvc/internal/program"
)

// Operator names a mutation operator.
type Operator string

const (
	RelationalReplacement Operator = "ROR"
	ArithmeticReplacement Operator = "AOR"
	LogicalReplacement    Operator = "COR"
	LiteralReplacement    Operator = "LVR"
	NegationDeletion      Operator = "UOD"
	ConditionNegation     Operator = "CON"
	StatementDeletion     Operator = "SDL"
)

// Mutant is a copy of a function with exactly one change.
type Mutant struct {
	ID          string
	Operator    Operator
	Description string
	Function    *program.Function
}

var replacements = map[logic.BinaryOp]logic.BinaryOp{
	logic.OpLt:  logic.OpLe,
	logic.OpLe:  logic.OpLt,
	logic.OpGt:  logic.OpGe,
	logic.OpGe:  logic.OpGt,
	logic.OpEq:  logic.OpNeq,
	logic.OpNeq: logic.OpEq,
	logic.OpAdd: logic.OpSub,
	logic.OpSub: logic.OpAdd,
	logic.OpMul: logic.OpDiv,
	logic.OpDiv: logic.OpMul,
	logic.OpMod: logic.OpMul,
	logic.OpAnd: logic.OpOr,
	logic.OpOr:  logic.OpAnd,
}

type variant[T any] struct {
	value T
	op    Operator
	desc  string
}

// Generate returns every single-change mutant of fn in body order.
func Generate(fn *program.Function) []Mutant {
	var out []Mutant
	for i, v := range stmtVariants(fn.Body) {
		m := *fn
		m.Body = v.value
		out = append(out, Mutant{
			ID:          fmt.Sprintf("m%d", i+1),
			Operator:    v.op,
			Description: v.desc,
			Function:    &m,
		})
	}
	return out
}

func stmtVariants(s program.Stmt) []variant[program.Stmt] {
	var out []variant[program.Stmt]
	add := func(st program.Stmt, op Operator, desc string) {
		out = append(out, variant[program.Stmt]{value: st, op: op, desc: desc})
	}

	switch n := s.(type) {
	case program.Assign:
		for _, v := range exprVariants(n.Value) {
			add(program.Assign{Var: n.Var, Value: v.value}, v.op, v.desc)
		}
		add(program.Noop{}, StatementDeletion, "delete "+n.String())

	case program.Store:
		for _, v := range exprVariants(n.Index) {
			add(program.Store{Array: n.Array, Index: v.value, Value: n.Value}, v.op, v.desc)
		}
		for _, v := range exprVariants(n.Value) {
			add(program.Store{Array: n.Array, Index: n.Index, Value: v.value}, v.op, v.desc)
		}
		add(program.Noop{}, StatementDeletion, "delete "+n.String())

	case program.Block:
		for i, child := range n.Stmts {
			for _, v := range stmtVariants(child) {
				stmts := make([]program.Stmt, len(n.Stmts))
				copy(stmts, n.Stmts)
				stmts[i] = v.value
				add(program.Block{Stmts: stmts}, v.op, v.desc)
			}
		}

	case program.If:
		for _, v := range exprVariants(n.Cond) {
			add(program.If{Cond: v.value, Then: n.Then, Else: n.Else}, v.op, v.desc)
		}
		add(program.If{Cond: logic.Not(n.Cond), Then: n.Then, Else: n.Else},
			ConditionNegation, "negate "+n.Cond.String())
		for _, v := range stmtVariants(n.Then) {
			add(program.If{Cond: n.Cond, Then: v.value, Else: n.Else}, v.op, v.desc)
		}
		if n.Else != nil {
			for _, v := range stmtVariants(n.Else) {
				add(program.If{Cond: n.Cond, Then: n.Then, Else: v.value}, v.op, v.desc)
			}
		}

	case program.While:
		for _, v := range exprVariants(n.Cond) {
			add(program.While{ID: n.ID, Cond: v.value, Body: n.Body, Step: n.Step}, v.op, v.desc)
		}
		for _, v := range stmtVariants(n.Body) {
			add(program.While{ID: n.ID, Cond: n.Cond, Body: v.value, Step: n.Step}, v.op, v.desc)
		}
		if n.Step != nil {
			for _, v := range stmtVariants(n.Step) {
				add(program.While{ID: n.ID, Cond: n.Cond, Body: n.Body, Step: v.value}, v.op, v.desc)
			}
		}

	case program.Return:
		if n.Value != nil {
			for _, v := range exprVariants(n.Value) {
				add(program.Return{Value: v.value}, v.op, v.desc)
			}
		}
	}
	return out
}

func exprVariants(t logic.Term) []variant[logic.Term] {
	var out []variant[logic.Term]
	add := func(x logic.Term, op Operator, desc string) {
		out = append(out, variant[logic.Term]{value: x, op: op, desc: desc})
	}

	switch n := t.(type) {
	case logic.IntConst:
		if n.Val < 1<<62 {
			add(logic.Int(n.Val+1), LiteralReplacement, fmt.Sprintf("%d -> %d", n.Val, n.Val+1))
		}

	case logic.Unary:
		for _, v := range exprVariants(n.X) {
			add(logic.Unary{Op: n.Op, X: v.value}, v.op, v.desc)
		}
		if n.Op == logic.OpNeg {
			add(n.X, NegationDeletion, fmt.Sprintf("%s -> %s", n, n.X))
		}

	case logic.Binary:
		if r, ok := replacements[n.Op]; ok {
			mutated := logic.Binary{Op: r, Left: n.Left, Right: n.Right}
			add(mutated, operatorClass(n.Op), fmt.Sprintf("%s -> %s", n, mutated))
		}
		for _, v := range exprVariants(n.Left) {
			add(logic.Binary{Op: n.Op, Left: v.value, Right: n.Right}, v.op, v.desc)
		}
		for _, v := range exprVariants(n.Right) {
			add(logic.Binary{Op: n.Op, Left: n.Left, Right: v.value}, v.op, v.desc)
		}

	case logic.Ite:
		for _, v := range exprVariants(n.Cond) {
			add(logic.Ite{Cond: v.value, Then: n.Then, Else: n.Else}, v.op, v.desc)
		}
		for _, v := range exprVariants(n.Then) {
			add(logic.Ite{Cond: n.Cond, Then: v.value, Else: n.Else}, v.op, v.desc)
		}
		for _, v := range exprVariants(n.Else) {
			add(logic.Ite{Cond: n.Cond, Then: n.Then, Else: v.value}, v.op, v.desc)
		}

	case logic.Select:
		for _, v := range exprVariants(n.Index) {
			add(logic.Select{Array: n.Array, Index: v.value}, v.op, v.desc)
		}
	}
	return out
}

func operatorClass(op logic.BinaryOp) Operator {
	switch {
	case op.IsArithmetic():
		return ArithmeticReplacement
	case op.IsLogical():
		return LogicalReplacement
	default:
		return RelationalReplacement
	}
}
