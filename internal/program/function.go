package program

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gnoverse/contractvc/internal/logic"
)

// ErrMalformedBody reports an IR that the builder cannot interpret.
var ErrMalformedBody = errors.New("malformed function body")

// Type is the declared type of a variable or the return type of a function.
type Type int

const (
	TypeVoid Type = iota
	TypeInt
	TypeBool
	// TypeIntArray is an int pointer parameter or global array.
	TypeIntArray
)

func (t Type) String() string {
	switch t {
	case TypeVoid:
		return "void"
	case TypeInt:
		return "int"
	case TypeBool:
		return "bool"
	case TypeIntArray:
		return "int *"
	default:
		return "?"
	}
}

// Sort maps a declared type to its logical sort.
func (t Type) Sort() logic.Sort {
	switch t {
	case TypeInt:
		return logic.SortInt
	case TypeBool:
		return logic.SortBool
	case TypeIntArray:
		return logic.SortArray
	default:
		return 0
	}
}

// Var is a declared variable.
type Var struct {
	Name string
	Type Type
}

// Term returns the logical reference to v.
func (v Var) Term() logic.Term {
	return logic.Var{Name: v.Name, Type: v.Type.Sort()}
}

// Function is a function definition as delivered by the front end.
type Function struct {
	Name    string
	Params  []Var
	Locals  []Var
	Globals []Var
	Returns Type
	Body    Stmt
}

// Lookup finds a declared variable by name.
func (f *Function) Lookup(name string) (Var, bool) {
	for _, group := range [][]Var{f.Params, f.Locals, f.Globals} {
		for _, v := range group {
			if v.Name == name {
				return v, true
			}
		}
	}
	return Var{}, false
}

// IsParam reports whether name is a formal parameter.
func (f *Function) IsParam(name string) bool {
	for _, v := range f.Params {
		if v.Name == name {
			return true
		}
	}
	return false
}

// IsGlobal reports whether name is a global variable.
func (f *Function) IsGlobal(name string) bool {
	for _, v := range f.Globals {
		if v.Name == name {
			return true
		}
	}
	return false
}

// Symbols returns every declared variable keyed by name.
func (f *Function) Symbols() map[string]Var {
	symbols := make(map[string]Var, len(f.Params)+len(f.Locals)+len(f.Globals))
	for _, group := range [][]Var{f.Params, f.Locals, f.Globals} {
		for _, v := range group {
			symbols[v.Name] = v
		}
	}
	return symbols
}

// Loops returns the loop sites of the body in pre-order.
func (f *Function) Loops() []While {
	var loops []While
	Walk(f.Body, func(s Stmt) bool {
		if w, ok := s.(While); ok {
			loops = append(loops, w)
		}
		return true
	})
	return loops
}

// Validate checks that the body only refers to declared variables with
// the right types, that loop IDs are unique and that break only appears
// inside loops.
func (f *Function) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("%w: function without a name", ErrMalformedBody)
	}
	seen := make(map[string]bool)
	for _, group := range [][]Var{f.Params, f.Locals, f.Globals} {
		for _, v := range group {
			if v.Name == "" || v.Type == TypeVoid {
				return fmt.Errorf("%w: %s: invalid declaration %q", ErrMalformedBody, f.Name, v.Name)
			}
			if seen[v.Name] {
				return fmt.Errorf("%w: %s: %q declared twice", ErrMalformedBody, f.Name, v.Name)
			}
			seen[v.Name] = true
		}
	}
	if f.Body == nil {
		return fmt.Errorf("%w: %s: missing body", ErrMalformedBody, f.Name)
	}
	v := validator{
		fn:      f,
		symbols: f.Symbols(),
		loops:   make(map[LoopID]bool),
		labels:  make(map[string]bool),
	}
	return v.stmt(f.Body, 0)
}

type validator struct {
	fn      *Function
	symbols map[string]Var
	loops   map[LoopID]bool
	labels  map[string]bool
}

func (v *validator) fail(format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrMalformedBody, v.fn.Name, fmt.Sprintf(format, args...))
}

func (v *validator) term(t logic.Term, want logic.Sort) error {
	if t == nil {
		return v.fail("missing expression")
	}
	var bad error
	logic.Contains(t, func(n logic.Term) bool {
		switch x := n.(type) {
		case logic.Var:
			d, ok := v.symbols[x.Name]
			if !ok {
				bad = v.fail("undeclared variable %q", x.Name)
				return true
			}
			if d.Type.Sort() != x.Type {
				bad = v.fail("%q used as %s, declared %s", x.Name, x.Type, d.Type)
				return true
			}
		case logic.Old, logic.Result, logic.Quant, logic.Valid:
			bad = v.fail("%s is not a program expression", n)
			return true
		}
		return false
	})
	if bad != nil {
		return bad
	}
	if err := logic.CheckTerm("body", t, want); err != nil {
		return v.fail("%v", err)
	}
	return nil
}

// pred checks an annotation predicate inside the body. Unlike program
// expressions it may quantify and refer to entry values, but every free
// variable must be declared with its sort.
func (v *validator) pred(t logic.Term) error {
	for _, x := range logic.FreeVars(t) {
		d, ok := v.symbols[x.Name]
		if !ok {
			return v.fail("undeclared variable %q in %s", x.Name, t)
		}
		if d.Type.Sort() != x.Type {
			return v.fail("%q used as %s, declared %s", x.Name, x.Type, d.Type)
		}
	}
	var bad error
	logic.Contains(t, func(n logic.Term) bool {
		switch x := n.(type) {
		case logic.Result:
			bad = v.fail("\\result in an assertion")
		case logic.Old:
			if _, ok := v.symbols[x.Name]; !ok {
				bad = v.fail("undeclared variable %q in %s", x.Name, t)
			}
		}
		return bad != nil
	})
	return bad
}

func (v *validator) stmt(s Stmt, depth int) error {
	switch n := s.(type) {
	case Assign:
		d, ok := v.symbols[n.Var]
		if !ok {
			return v.fail("assignment to undeclared %q", n.Var)
		}
		if d.Type == TypeIntArray {
			return v.fail("assignment to array %q", n.Var)
		}
		return v.term(n.Value, d.Type.Sort())
	case Store:
		d, ok := v.symbols[n.Array]
		if !ok || d.Type != TypeIntArray {
			return v.fail("%q is not an array", n.Array)
		}
		if err := v.term(n.Index, logic.SortInt); err != nil {
			return err
		}
		return v.term(n.Value, logic.SortInt)
	case Block:
		for _, st := range n.Stmts {
			if err := v.stmt(st, depth); err != nil {
				return err
			}
		}
		return nil
	case If:
		if err := v.term(n.Cond, logic.SortBool); err != nil {
			return err
		}
		if err := v.stmt(n.Then, depth); err != nil {
			return err
		}
		if n.Else != nil {
			return v.stmt(n.Else, depth)
		}
		return nil
	case While:
		if n.ID == "" {
			return v.fail("loop without an id")
		}
		if v.loops[n.ID] {
			return v.fail("duplicate loop id %q", n.ID)
		}
		v.loops[n.ID] = true
		if err := v.term(n.Cond, logic.SortBool); err != nil {
			return err
		}
		if err := v.stmt(n.Body, depth+1); err != nil {
			return err
		}
		if n.Step == nil {
			return nil
		}
		var jump Stmt
		Walk(n.Step, func(st Stmt) bool {
			switch st.(type) {
			case Break, Continue, Return:
				jump = st
			}
			return jump == nil
		})
		if jump != nil {
			return v.fail("%s in the step of loop %q", jump, n.ID)
		}
		return v.stmt(n.Step, depth+1)
	case Return:
		if v.fn.Returns == TypeVoid {
			if n.Value != nil {
				return v.fail("void function returns a value")
			}
			return nil
		}
		if n.Value == nil {
			return v.fail("missing return value")
		}
		return v.term(n.Value, v.fn.Returns.Sort())
	case Break:
		if depth == 0 {
			return v.fail("break outside of a loop")
		}
		return nil
	case Continue:
		if depth == 0 {
			return v.fail("continue outside of a loop")
		}
		return nil
	case Assert:
		if n.Label != "" {
			if strings.Trim(n.Label, "0123456789") == "" {
				return v.fail("assert label %q is a number", n.Label)
			}
			if v.labels[n.Label] {
				return v.fail("duplicate assert label %q", n.Label)
			}
			v.labels[n.Label] = true
		}
		if err := logic.CheckPredicate("assert", n.Pred); err != nil {
			return err
		}
		return v.pred(n.Pred)
	case Noop:
		return nil
	case nil:
		return v.fail("missing statement")
	default:
		return v.fail("unknown statement %T", s)
	}
}

// Walk visits s and its sub-statements in pre-order. Children are skipped
// when visit returns false.
func Walk(s Stmt, visit func(Stmt) bool) {
	if s == nil || !visit(s) {
		return
	}
	switch n := s.(type) {
	case Block:
		for _, st := range n.Stmts {
			Walk(st, visit)
		}
	case If:
		Walk(n.Then, visit)
		if n.Else != nil {
			Walk(n.Else, visit)
		}
	case While:
		Walk(n.Body, visit)
		if n.Step != nil {
			Walk(n.Step, visit)
		}
	}
}

// Modified returns the scalar variables and arrays written by s, sorted.
func Modified(s Stmt) (vars, arrays []string) {
	vs := make(map[string]bool)
	as := make(map[string]bool)
	Walk(s, func(st Stmt) bool {
		switch n := st.(type) {
		case Assign:
			vs[n.Var] = true
		case Store:
			as[n.Array] = true
		}
		return true
	})
	return sortedKeys(vs), sortedKeys(as)
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
