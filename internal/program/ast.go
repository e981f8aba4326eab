package program

import (
	"strings"

	"github.com/gnoverse/contractvc/internal/logic"
)

// LoopID names a loop site. It is stable across runs and unique within
// a function body.
type LoopID string

// Stmt represents a statement of a function body.
type Stmt interface {
	isStmt()
	String() string
}

// Assign represents x = e.
type Assign struct {
	Var   string
	Value logic.Term
}

func (Assign) isStmt() {}
func (s Assign) String() string {
	return s.Var + " = " + s.Value.String()
}

// Store represents a[i] = e, a write through a pointer parameter or global.
type Store struct {
	Array string
	Index logic.Term
	Value logic.Term
}

func (Store) isStmt() {}
func (s Store) String() string {
	return s.Array + "[" + s.Index.String() + "] = " + s.Value.String()
}

// Block represents a sequence of statements.
type Block struct {
	Stmts []Stmt
}

func (Block) isStmt() {}
func (s Block) String() string {
	if len(s.Stmts) == 0 {
		return "{}"
	}
	parts := make([]string, len(s.Stmts))
	for i, st := range s.Stmts {
		parts[i] = st.String()
	}
	return "{ " + strings.Join(parts, "; ") + " }"
}

// If represents a conditional statement. Else may be nil.
type If struct {
	Cond logic.Term
	Then Stmt
	Else Stmt
}

func (If) isStmt() {}
func (s If) String() string {
	result := "if " + s.Cond.String() + " " + braces(s.Then)
	if s.Else != nil {
		result += " else " + braces(s.Else)
	}
	return result
}

// While represents an annotated loop site. Step, when set, runs after
// every iteration that completes normally or continues, before the guard
// is evaluated again.
type While struct {
	ID   LoopID
	Cond logic.Term
	Body Stmt
	Step Stmt
}

func (While) isStmt() {}
func (s While) String() string {
	result := "while[" + string(s.ID) + "] " + s.Cond.String() + " " + braces(s.Body)
	if s.Step != nil {
		result += " step " + braces(s.Step)
	}
	return result
}

// Return represents a return statement. Value is nil for void functions.
type Return struct {
	Value logic.Term
}

func (Return) isStmt() {}
func (s Return) String() string {
	if s.Value == nil {
		return "return"
	}
	return "return " + s.Value.String()
}

// Break leaves the innermost loop.
type Break struct{}

func (Break) isStmt() {}
func (Break) String() string {
	return "break"
}

// Continue ends the current iteration of the innermost loop.
type Continue struct{}

func (Continue) isStmt() {}
func (Continue) String() string {
	return "continue"
}

// Assert represents an annotated assertion inside the body.
type Assert struct {
	Pred  logic.Term
	Label string
}

func (Assert) isStmt() {}
func (s Assert) String() string {
	if s.Label != "" {
		return "assert " + s.Label + ": " + s.Pred.String()
	}
	return "assert " + s.Pred.String()
}

// Noop represents an empty statement.
type Noop struct{}

func (Noop) isStmt() {}
func (Noop) String() string {
	return "noop"
}

func braces(s Stmt) string {
	if s == nil {
		return "{}"
	}
	if _, ok := s.(Block); ok {
		return s.String()
	}
	return "{ " + s.String() + " }"
}

// Helper functions to construct statements.

// Set creates an assignment.
func Set(v string, e logic.Term) Stmt {
	return Assign{Var: v, Value: e}
}

// Put creates an array cell write.
func Put(array string, index, value logic.Term) Stmt {
	return Store{Array: array, Index: index, Value: value}
}

// Seq creates a block.
func Seq(stmts ...Stmt) Stmt {
	return Block{Stmts: stmts}
}

// IfThen creates an if statement without else.
func IfThen(cond logic.Term, then Stmt) Stmt {
	return If{Cond: cond, Then: then}
}

// IfElse creates an if statement with else.
func IfElse(cond logic.Term, then, els Stmt) Stmt {
	return If{Cond: cond, Then: then, Else: els}
}

// Loop creates a while loop.
func Loop(id LoopID, cond logic.Term, body Stmt) Stmt {
	return While{ID: id, Cond: cond, Body: body}
}

// For desugars for (init; cond; step) body into init followed by a loop
// whose step also runs when the body continues.
func For(id LoopID, init Stmt, cond logic.Term, step Stmt, body Stmt) Stmt {
	return Block{Stmts: []Stmt{
		init,
		While{ID: id, Cond: cond, Body: body, Step: step},
	}}
}

// Ret creates a return statement.
func Ret(e logic.Term) Stmt {
	return Return{Value: e}
}

// RetVoid creates a bare return statement.
func RetVoid() Stmt {
	return Return{}
}
