package acsl

import (
	"errors"
	"strconv"

	"github.com/gnoverse/contractvc/internal/logic"
	"github.com/gnoverse/contractvc/internal/program"
)

// Option configures parsing.
type Option func(*options)

type options struct {
	intBits uint
}

// WithIntBits sets the width used for INT_MIN and INT_MAX. The default is 32.
func WithIntBits(bits uint) Option {
	return func(o *options) {
		if bits > 1 && bits <= 64 {
			o.intBits = bits
		}
	}
}

func newOptions(opts []Option) options {
	o := options{intBits: 32}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type parser struct {
	tokens  []Token
	pos     int
	fn      *program.Function
	symbols map[string]program.Var
	opts    options

	clause      string
	allowResult bool
	allowOld    bool
	bound       []string
}

func newParser(fn *program.Function, input string, opts options) (*parser, error) {
	tokens, err := Lex(input)
	if err != nil {
		return nil, err
	}
	return &parser{
		tokens:  tokens,
		fn:      fn,
		symbols: fn.Symbols(),
		opts:    opts,
	}, nil
}

func (p *parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *parser) next() Token {
	t := p.tokens[p.pos]
	if t.Type != TokenEOF {
		p.pos++
	}
	return t
}

func (p *parser) is(value string) bool {
	t := p.peek()
	return (t.Type == TokenPunct || t.Type == TokenIdent || t.Type == TokenBuiltin) && t.Value == value
}

func (p *parser) accept(value string) bool {
	if p.is(value) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(value string) (Token, error) {
	if !p.is(value) {
		return Token{}, p.errorf(p.peek(), "expected %q, found %s", value, describe(p.peek()))
	}
	return p.next(), nil
}

func (p *parser) ident() (Token, error) {
	t := p.peek()
	if t.Type != TokenIdent {
		return Token{}, p.errorf(t, "expected identifier, found %s", describe(t))
	}
	return p.next(), nil
}

func (p *parser) errorf(t Token, format string, args ...any) error {
	err := logic.Malformedf(p.clause, format, args...).(*logic.MalformedPredicateError)
	err.Line = t.Line
	err.Col = t.Col
	return err
}

// located fills in the position of a sort error found after parsing.
func (p *parser) located(err error, at Token) error {
	var mp *logic.MalformedPredicateError
	if errors.As(err, &mp) && mp.Line == 0 {
		mp.Line = at.Line
		mp.Col = at.Col
	}
	return err
}

func describe(t Token) string {
	if t.Type == TokenEOF {
		return "end of annotation"
	}
	return strconv.Quote(t.Value)
}

func (p *parser) isBound(name string) bool {
	for i := len(p.bound) - 1; i >= 0; i-- {
		if p.bound[i] == name {
			return true
		}
	}
	return false
}

// predicate parses a full predicate and checks its sort.
func (p *parser) predicate() (logic.Term, error) {
	start := p.peek()
	t, err := p.ternary()
	if err != nil {
		return nil, err
	}
	if err := logic.CheckPredicate(p.clause, t); err != nil {
		return nil, p.located(err, start)
	}
	return t, nil
}

// integer parses a full term and checks that it is an integer.
func (p *parser) integer() (logic.Term, error) {
	start := p.peek()
	t, err := p.ternary()
	if err != nil {
		return nil, err
	}
	if err := logic.CheckTerm(p.clause, t, logic.SortInt); err != nil {
		return nil, p.located(err, start)
	}
	return t, nil
}

func (p *parser) ternary() (logic.Term, error) {
	cond, err := p.iff()
	if err != nil {
		return nil, err
	}
	if !p.accept("?") {
		return cond, nil
	}
	then, err := p.ternary()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(":"); err != nil {
		return nil, err
	}
	els, err := p.ternary()
	if err != nil {
		return nil, err
	}
	return logic.If(cond, then, els), nil
}

func (p *parser) iff() (logic.Term, error) {
	left, err := p.implies()
	if err != nil {
		return nil, err
	}
	for p.accept("<==>") {
		right, err := p.implies()
		if err != nil {
			return nil, err
		}
		left = logic.Iff(left, right)
	}
	return left, nil
}

// implies is right associative.
func (p *parser) implies() (logic.Term, error) {
	left, err := p.or()
	if err != nil {
		return nil, err
	}
	if !p.accept("==>") {
		return left, nil
	}
	right, err := p.implies()
	if err != nil {
		return nil, err
	}
	return logic.Bin(logic.OpImplies, left, right), nil
}

func (p *parser) or() (logic.Term, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.accept("||") {
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = logic.Bin(logic.OpOr, left, right)
	}
	return left, nil
}

func (p *parser) and() (logic.Term, error) {
	left, err := p.relation()
	if err != nil {
		return nil, err
	}
	for p.accept("&&") {
		right, err := p.relation()
		if err != nil {
			return nil, err
		}
		left = logic.Bin(logic.OpAnd, left, right)
	}
	return left, nil
}

var relations = map[string]logic.BinaryOp{
	"==": logic.OpEq,
	"!=": logic.OpNeq,
	"<":  logic.OpLt,
	"<=": logic.OpLe,
	">":  logic.OpGt,
	">=": logic.OpGe,
}

// relation handles chains such as 0 <= i < n, read as 0 <= i && i < n.
func (p *parser) relation() (logic.Term, error) {
	left, err := p.additive()
	if err != nil {
		return nil, err
	}
	var result logic.Term
	for {
		t := p.peek()
		op, ok := relations[t.Value]
		if t.Type != TokenPunct || !ok {
			break
		}
		p.next()
		right, err := p.additive()
		if err != nil {
			return nil, err
		}
		cmp := logic.Bin(op, left, right)
		if result == nil {
			result = cmp
		} else {
			result = logic.Bin(logic.OpAnd, result, cmp)
		}
		left = right
	}
	if result == nil {
		return left, nil
	}
	return result, nil
}

func (p *parser) additive() (logic.Term, error) {
	left, err := p.multiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op logic.BinaryOp
		switch {
		case p.is("+"):
			op = logic.OpAdd
		case p.is("-"):
			op = logic.OpSub
		default:
			return left, nil
		}
		p.next()
		right, err := p.multiplicative()
		if err != nil {
			return nil, err
		}
		left = logic.Bin(op, left, right)
	}
}

func (p *parser) multiplicative() (logic.Term, error) {
	left, err := p.unary()
	if err != nil {
		return nil, err
	}
	for {
		var op logic.BinaryOp
		switch {
		case p.is("*"):
			op = logic.OpMul
		case p.is("/"):
			op = logic.OpDiv
		case p.is("%"):
			op = logic.OpMod
		default:
			return left, nil
		}
		p.next()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		left = logic.Bin(op, left, right)
	}
}

func (p *parser) unary() (logic.Term, error) {
	switch {
	case p.accept("-"):
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		if c, ok := x.(logic.IntConst); ok {
			return logic.Int(-c.Val), nil
		}
		return logic.Neg(x), nil
	case p.accept("!"):
		x, err := p.unary()
		if err != nil {
			return nil, err
		}
		return logic.Unary{Op: logic.OpNot, X: x}, nil
	}
	return p.postfix()
}

func (p *parser) postfix() (logic.Term, error) {
	t, err := p.primary()
	if err != nil {
		return nil, err
	}
	for p.is("[") {
		open := p.next()
		if t.Sort() != logic.SortArray {
			return nil, p.errorf(open, "%s is not an array", t)
		}
		idx, err := p.ternary()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect("]"); err != nil {
			return nil, err
		}
		t = logic.At(t, idx)
	}
	return t, nil
}

func (p *parser) primary() (logic.Term, error) {
	t := p.peek()
	switch t.Type {
	case TokenInt:
		p.next()
		v, err := strconv.ParseInt(t.Value, 10, 64)
		if err != nil {
			return nil, p.errorf(t, "integer literal %s out of range", t.Value)
		}
		return logic.Int(v), nil

	case TokenIdent:
		p.next()
		return p.name(t)

	case TokenBuiltin:
		return p.builtin()

	case TokenPunct:
		if t.Value == "(" {
			p.next()
			inner, err := p.ternary()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(")"); err != nil {
				return nil, err
			}
			return inner, nil
		}
	}
	return nil, p.errorf(t, "unexpected %s", describe(t))
}

func (p *parser) name(t Token) (logic.Term, error) {
	if p.isBound(t.Value) {
		return logic.IntVar(t.Value), nil
	}
	if v, ok := p.symbols[t.Value]; ok {
		return v.Term(), nil
	}
	lo, hi := logic.IntBounds(p.opts.intBits)
	switch t.Value {
	case "INT_MIN":
		return logic.Int(lo), nil
	case "INT_MAX":
		return logic.Int(hi), nil
	}
	return nil, p.errorf(t, "unknown identifier %q", t.Value)
}

func (p *parser) builtin() (logic.Term, error) {
	t := p.next()
	switch t.Value {
	case `\true`:
		return logic.True, nil
	case `\false`:
		return logic.False, nil

	case `\result`:
		if !p.allowResult {
			return nil, p.errorf(t, `\result is not allowed in %s`, p.clause)
		}
		if p.fn.Returns == program.TypeVoid {
			return nil, p.errorf(t, `\result used in void function %s`, p.fn.Name)
		}
		return logic.Result{Type: p.fn.Returns.Sort()}, nil

	case `\old`, `\at`:
		if !p.allowOld {
			return nil, p.errorf(t, `%s is not allowed in %s`, t.Value, p.clause)
		}
		if _, err := p.expect("("); err != nil {
			return nil, err
		}
		inner, err := p.ternary()
		if err != nil {
			return nil, err
		}
		label := "Pre"
		if t.Value == `\at` {
			if _, err := p.expect(","); err != nil {
				return nil, err
			}
			l, err := p.ident()
			if err != nil {
				return nil, err
			}
			label = l.Value
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		switch label {
		case "Pre", "Old":
			return logic.ToOld(inner, func(name string) bool { return !p.isBound(name) }), nil
		case "Here", "Post":
			return inner, nil
		}
		return nil, p.errorf(t, "unsupported label %q", label)

	case `\forall`, `\exists`:
		return p.quantifier(t)

	case `\valid`, `\valid_read`:
		return p.valid(t)
	}
	return nil, p.errorf(t, "unsupported builtin %s", t.Value)
}

func (p *parser) quantifier(q Token) (logic.Term, error) {
	typ, err := p.ident()
	if err != nil {
		return nil, err
	}
	if typ.Value != "integer" && typ.Value != "int" {
		return nil, p.errorf(typ, "quantification over %q is not supported", typ.Value)
	}
	var names []string
	for {
		v, err := p.ident()
		if err != nil {
			return nil, err
		}
		names = append(names, v.Value)
		if !p.accept(",") {
			break
		}
	}
	if _, err := p.expect(";"); err != nil {
		return nil, err
	}
	depth := len(p.bound)
	p.bound = append(p.bound, names...)
	body, err := p.ternary()
	p.bound = p.bound[:depth]
	if err != nil {
		return nil, err
	}
	for i := len(names) - 1; i >= 0; i-- {
		if q.Value == `\forall` {
			body = logic.Forall(names[i], body)
		} else {
			body = logic.Exist(names[i], body)
		}
	}
	return body, nil
}

// valid parses \valid(a + (lo..hi)), \valid(a + i) and \valid(a).
func (p *parser) valid(t Token) (logic.Term, error) {
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	base, err := p.arrayName()
	if err != nil {
		return nil, err
	}
	lo, hi := logic.Int(0), logic.Int(0)
	if p.accept("+") {
		if p.accept("(") {
			if lo, hi, err = p.bounds(); err != nil {
				return nil, err
			}
			if _, err := p.expect(")"); err != nil {
				return nil, err
			}
		} else {
			off, err := p.multiplicative()
			if err != nil {
				return nil, err
			}
			lo, hi = off, off
		}
	}
	if _, err := p.expect(")"); err != nil {
		return nil, err
	}
	return logic.Valid{Base: base, Lo: lo, Hi: hi, ReadOnly: t.Value == `\valid_read`}, nil
}

func (p *parser) arrayName() (logic.Term, error) {
	id, err := p.ident()
	if err != nil {
		return nil, err
	}
	v, ok := p.symbols[id.Value]
	if !ok || v.Type != program.TypeIntArray {
		return nil, p.errorf(id, "%q is not an array", id.Value)
	}
	return v.Term(), nil
}

// bounds parses lo..hi.
func (p *parser) bounds() (logic.Term, logic.Term, error) {
	lo, err := p.additive()
	if err != nil {
		return nil, nil, err
	}
	if _, err := p.expect(".."); err != nil {
		return nil, nil, err
	}
	hi, err := p.additive()
	if err != nil {
		return nil, nil, err
	}
	for _, b := range []logic.Term{lo, hi} {
		if err := logic.CheckTerm(p.clause, b, logic.SortInt); err != nil {
			return nil, nil, p.located(err, p.peek())
		}
	}
	return lo, hi, nil
}
