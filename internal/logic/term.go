package logic

import (
	"strconv"
	"strings"
)

// Sort is the logical type of a term.
type Sort int

const (
	_ Sort = iota
	// SortInt is the sort of mathematical (unbounded) integers.
	SortInt
	// SortBool is the sort of predicates.
	SortBool
	// SortArray is the sort of integer-indexed integer arrays.
	SortArray
)

func (s Sort) String() string {
	switch s {
	case SortInt:
		return "integer"
	case SortBool:
		return "boolean"
	case SortArray:
		return "array"
	default:
		return "?"
	}
}

// Term represents an expression of the contract logic.
// Predicates are terms of sort SortBool.
type Term interface {
	isTerm()
	Sort() Sort
	String() string
}

// IntConst is an integer literal.
type IntConst struct {
	Val int64
}

func (IntConst) isTerm() {}
func (IntConst) Sort() Sort { return SortInt }
func (t IntConst) String() string {
	return strconv.FormatInt(t.Val, 10)
}

// BoolConst is \true or \false.
type BoolConst struct {
	Val bool
}

func (BoolConst) isTerm() {}
func (BoolConst) Sort() Sort { return SortBool }
func (t BoolConst) String() string {
	if t.Val {
		return `\true`
	}
	return `\false`
}

// Var is a reference to a program variable, a quantified variable,
// or a fresh variable introduced by the builder.
type Var struct {
	Name string
	Type Sort
}

func (Var) isTerm() {}
func (t Var) Sort() Sort { return t.Type }
func (t Var) String() string { return t.Name }

// Old is the value of a variable at function entry (\old(x)).
type Old struct {
	Name string
	Type Sort
}

func (Old) isTerm() {}
func (t Old) Sort() Sort { return t.Type }
func (t Old) String() string { return `\old(` + t.Name + `)` }

// Result is the value returned by the function (\result).
type Result struct {
	Type Sort
}

func (Result) isTerm() {}
func (t Result) Sort() Sort { return t.Type }
func (Result) String() string { return `\result` }

// UnaryOp represents unary operators.
type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpNot
)

func (op UnaryOp) String() string {
	switch op {
	case OpNeg:
		return "-"
	case OpNot:
		return "!"
	default:
		return "?"
	}
}

// Unary is a unary operation.
type Unary struct {
	Op UnaryOp
	X  Term
}

func (Unary) isTerm() {}
func (t Unary) Sort() Sort {
	if t.Op == OpNot {
		return SortBool
	}
	return SortInt
}
func (t Unary) String() string {
	return "(" + t.Op.String() + t.X.String() + ")"
}

// BinaryOp represents binary operators.
type BinaryOp int

const (
	_ BinaryOp = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNeq
	OpLt
	OpLe
	OpGt
	OpGe
	OpAnd
	OpOr
	OpImplies
	OpIff
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	case OpImplies:
		return "==>"
	case OpIff:
		return "<==>"
	default:
		return "?"
	}
}

// IsArithmetic reports whether op maps integers to an integer.
func (op BinaryOp) IsArithmetic() bool {
	return op >= OpAdd && op <= OpMod
}

// IsComparison reports whether op relates two terms of the same sort.
func (op BinaryOp) IsComparison() bool {
	return op >= OpEq && op <= OpGe
}

// IsLogical reports whether op combines two predicates.
func (op BinaryOp) IsLogical() bool {
	return op >= OpAnd && op <= OpIff
}

// Binary is a binary operation.
type Binary struct {
	Op    BinaryOp
	Left  Term
	Right Term
}

func (Binary) isTerm() {}
func (t Binary) Sort() Sort {
	if t.Op.IsArithmetic() {
		return SortInt
	}
	return SortBool
}
func (t Binary) String() string {
	return "(" + t.Left.String() + " " + t.Op.String() + " " + t.Right.String() + ")"
}

// Ite is the conditional term (c ? a : b).
type Ite struct {
	Cond Term
	Then Term
	Else Term
}

func (Ite) isTerm() {}
func (t Ite) Sort() Sort { return t.Then.Sort() }
func (t Ite) String() string {
	return "(" + t.Cond.String() + " ? " + t.Then.String() + " : " + t.Else.String() + ")"
}

// Select reads one array cell.
type Select struct {
	Array Term
	Index Term
}

func (Select) isTerm() {}
func (Select) Sort() Sort { return SortInt }
func (t Select) String() string {
	return t.Array.String() + "[" + t.Index.String() + "]"
}

// Store is the array equal to Array except at Index, where it holds Value.
type Store struct {
	Array Term
	Index Term
	Value Term
}

func (Store) isTerm() {}
func (Store) Sort() Sort { return SortArray }
func (t Store) String() string {
	return "{" + t.Array.String() + ` \with [` + t.Index.String() + "] = " + t.Value.String() + "}"
}

// Quantifier is the kind of a quantified predicate.
type Quantifier int

const (
	ForAll Quantifier = iota
	Exists
)

func (q Quantifier) String() string {
	if q == Exists {
		return `\exists`
	}
	return `\forall`
}

// Quant binds one integer variable over Body.
type Quant struct {
	Q    Quantifier
	Var  string
	Body Term
}

func (Quant) isTerm() {}
func (Quant) Sort() Sort { return SortBool }
func (t Quant) String() string {
	return "(" + t.Q.String() + " integer " + t.Var + "; " + t.Body.String() + ")"
}

// Valid states that the cells Base[Lo..Hi] may be accessed.
// ReadOnly distinguishes \valid_read from \valid.
type Valid struct {
	Base     Term
	Lo       Term
	Hi       Term
	ReadOnly bool
}

func (Valid) isTerm() {}
func (Valid) Sort() Sort { return SortBool }
func (t Valid) String() string {
	var sb strings.Builder
	if t.ReadOnly {
		sb.WriteString(`\valid_read(`)
	} else {
		sb.WriteString(`\valid(`)
	}
	sb.WriteString(t.Base.String())
	sb.WriteString(" + (")
	sb.WriteString(t.Lo.String())
	sb.WriteString("..")
	sb.WriteString(t.Hi.String())
	sb.WriteString("))")
	return sb.String()
}

// Equal reports whether two terms are structurally identical.
func Equal(a, b Term) bool {
	return a == b
}
