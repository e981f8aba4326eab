package vc

import (
	"fmt"
	"strings"

	"github.com/gnoverse/contractvc/internal/contract"
	"github.com/gnoverse/contractvc/internal/logic"
	"github.com/gnoverse/contractvc/internal/program"
)

// Builder generates obligations. It holds no per-function state and may be
// shared between goroutines.
type Builder struct {
	opts Options
}

func NewBuilder(opts Options) *Builder {
	if opts.IntBits == 0 {
		opts.IntBits = 32
	}
	return &Builder{opts: opts}
}

// Options returns the builder configuration.
func (b *Builder) Options() Options { return b.opts }

// gen holds the state of one Build call.
type gen struct {
	opts   Options
	fn     *program.Function
	fc     *contract.FunctionContract
	root   *node
	pre    logic.Term
	valid  []logic.Valid
	intMin int64
	intMax int64
	out    []Obligation
}

// Build returns the obligations of fn under fc in a deterministic order:
// postconditions (default behavior first), then per loop in body order its
// entry, preservation, variant and frame, then the function frame,
// run-time errors, assertions, completeness and disjointness.
//
// Malformed annotations are reported as *logic.MalformedPredicateError
// before any obligation is produced.
func (b *Builder) Build(fn *program.Function, fc *contract.FunctionContract) ([]Obligation, error) {
	if err := fn.Validate(); err != nil {
		return nil, err
	}
	if err := checkContract(fn, fc); err != nil {
		return nil, err
	}

	next := 0
	g := &gen{
		opts: b.opts,
		fn:   fn,
		fc:   fc,
		root: number(fn.Body, &next),
		pre:  fc.Precondition(),
	}
	g.intMin, g.intMax = logic.IntBounds(b.opts.IntBits)
	for _, c := range logic.Conjuncts(g.pre) {
		if v, ok := c.(logic.Valid); ok {
			g.valid = append(g.valid, v)
		}
	}

	g.postconditions()
	g.loops()
	g.functionFrame()
	if b.opts.RuntimeErrors {
		g.runtimeErrors()
	}
	g.asserts()
	g.completeness()
	g.disjointness()
	return g.out, nil
}

// emit closes formula over the machine ranges of the integers it mentions.
func (g *gen) emit(o Obligation, formula logic.Term) {
	o.Function = g.fn.Name
	formula = logic.Simplify(logic.EliminateOld(formula))
	o.Formula = logic.Implies(g.typing(formula), formula)
	g.out = append(g.out, o)
}

// typing bounds every free program integer of t, loop copies included.
// Quantified variables stay mathematical.
func (g *gen) typing(t logic.Term) logic.Term {
	var hyps []logic.Term
	for _, v := range logic.FreeVars(t) {
		name, _, _ := strings.Cut(v.Name, "@")
		if d, ok := g.fn.Lookup(name); ok && d.Type == program.TypeInt {
			hyps = append(hyps, logic.InRange(v, logic.Int(g.intMin), logic.Int(g.intMax)))
		}
	}
	return logic.And(hyps...)
}

func (g *gen) id(parts ...string) string {
	return g.fn.Name + "/" + strings.Join(parts, "/")
}

// postconditions emits pre && assumes ==> wp(body, ensures) per behavior.
// Scalar parameters in ensures denote their entry values.
func (g *gen) postconditions() {
	scalarParam := func(name string) bool {
		v, ok := g.fn.Lookup(name)
		return ok && g.fn.IsParam(name) && v.Type != program.TypeIntArray
	}
	for _, b := range g.fc.Effective() {
		q := logic.ToOld(b.Ensures(), scalarParam)
		k := conts{normal: q, brk: logic.False, cont: logic.False, ret: q}
		if g.fn.Returns != program.TypeVoid {
			// control must not reach the end of a non-void function
			k.normal = logic.False
		}
		body := g.wp(g.root, k, focus{})
		g.emit(Obligation{
			ID:          g.id("post", b.Name()),
			Kind:        KindPostcondition,
			Behavior:    b.Name(),
			Description: "postcondition of behavior " + b.Name(),
		}, logic.Implies(logic.And(g.pre, b.Assumes()), body))
	}
}

func (g *gen) goal(f focus) logic.Term {
	return logic.Implies(g.pre, g.wp(g.root, trivial, f))
}

func (g *gen) loops() {
	var loops []*node
	g.root.walk(nil, func(n, _ *node) {
		if _, ok := n.stmt.(program.While); ok {
			loops = append(loops, n)
		}
	})
	for _, n := range loops {
		id := n.stmt.(program.While).ID
		lc, _ := g.fc.Loop(id)
		prefix := "loop/" + string(id)

		g.emit(Obligation{
			ID:          g.id(prefix, "entry"),
			Kind:        KindLoopEntry,
			Loop:        id,
			Description: fmt.Sprintf("loop %s invariant holds on entry", id),
		}, g.goal(focus{entry: id}))
		g.emit(Obligation{
			ID:          g.id(prefix, "preserve"),
			Kind:        KindLoopPreservation,
			Loop:        id,
			Description: fmt.Sprintf("loop %s invariant is preserved", id),
		}, g.goal(focus{preserve: id}))

		if lc != nil && lc.Variant() != nil {
			g.emit(Obligation{
				ID:          g.id(prefix, "variant"),
				Kind:        KindLoopVariant,
				Loop:        id,
				Description: fmt.Sprintf("loop %s variant %s decreases and stays non-negative", id, lc.Variant()),
			}, g.goal(focus{variant: id}))
		}

		if lc != nil && lc.Assigns() != nil {
			loopNode := n
			frame := lc.Assigns()
			g.emit(Obligation{
				ID:          g.id(prefix, "assigns"),
				Kind:        KindLoopFrame,
				Loop:        id,
				Description: fmt.Sprintf("loop %s writes only %s", id, frame),
			}, g.goal(focus{site: func(s *node) logic.Term {
				if s == loopNode || !loopNode.contains(s.id) {
					return nil
				}
				return frameCheck(s, frame, func(string) bool { return true })
			}}))
		}
	}
}

// functionFrame checks writes visible to the caller: array contents
// reached through parameters and globals. Bounds are entry values.
func (g *gen) functionFrame() {
	a := g.fc.Assigns()
	if a == nil {
		return
	}
	frame := a.MapBounds(func(t logic.Term) logic.Term { return logic.ToOld(t, nil) })
	visible := func(name string) bool {
		if g.fn.IsGlobal(name) {
			return true
		}
		v, ok := g.fn.Lookup(name)
		return ok && g.fn.IsParam(name) && v.Type == program.TypeIntArray
	}
	g.emit(Obligation{
		ID:          g.id("assigns"),
		Kind:        KindFrame,
		Description: fmt.Sprintf("%s writes only %s", g.fn.Name, a),
	}, g.goal(focus{site: func(s *node) logic.Term {
		return frameCheck(s, frame, visible)
	}}))
}

func (g *gen) runtimeErrors() {
	g.root.walk(nil, func(n, loop *node) {
		for i, c := range g.runtimeChecks(n) {
			target, check := n, c.cond
			o := Obligation{
				ID:          g.id("rte", c.kind.String(), fmt.Sprintf("%d.%d", n.id, i)),
				Kind:        c.kind,
				Description: c.desc,
			}
			if loop != nil {
				o.Loop = loop.stmt.(program.While).ID
			}
			if w, ok := n.stmt.(program.While); ok {
				o.Loop = w.ID
			}
			g.emit(o, g.goal(focus{site: func(s *node) logic.Term {
				if s == target {
					return check
				}
				return nil
			}}))
		}
	})
}

func (g *gen) asserts() {
	g.root.walk(nil, func(n, loop *node) {
		a, ok := n.stmt.(program.Assert)
		if !ok {
			return
		}
		name := a.Label
		if name == "" {
			name = fmt.Sprint(n.id)
		}
		o := Obligation{
			ID:          g.id("assert", name),
			Kind:        KindAssert,
			Description: "assertion " + a.Pred.String(),
		}
		if loop != nil {
			o.Loop = loop.stmt.(program.While).ID
		}
		target, pred := n, a.Pred
		g.emit(o, g.goal(focus{site: func(s *node) logic.Term {
			if s == target {
				return pred
			}
			return nil
		}}))
	})
}

// completeness emits pre ==> assumes_1 || ... || assumes_n. Declared
// complete behaviors clauses are required, the implicit check follows
// Options.Completeness.
func (g *gen) completeness() {
	groups := g.fc.CompleteGroups()
	for _, group := range groups {
		bs := g.fc.Resolve(group)
		g.emit(Obligation{
			ID:          g.id("complete", groupName(bs)),
			Kind:        KindCompleteness,
			Description: "behaviors " + groupName(bs) + " cover the precondition",
		}, g.cover(bs))
	}
	named := g.fc.Behaviors()
	if len(groups) > 0 || len(named) == 0 || g.opts.Completeness == CompletenessOff {
		return
	}
	g.emit(Obligation{
		ID:          g.id("complete"),
		Kind:        KindCompleteness,
		Advisory:    g.opts.Completeness == CompletenessWarn,
		Description: "behaviors " + groupName(named) + " cover the precondition",
	}, g.cover(named))
}

func (g *gen) cover(bs []*contract.Behavior) logic.Term {
	assumes := make([]logic.Term, len(bs))
	for i, b := range bs {
		assumes[i] = b.Assumes()
	}
	return logic.Implies(g.pre, logic.Or(assumes...))
}

func (g *gen) disjointness() {
	groups := g.fc.DisjointGroups()
	for _, group := range groups {
		bs := g.fc.Resolve(group)
		g.emit(Obligation{
			ID:          g.id("disjoint", groupName(bs)),
			Kind:        KindDisjointness,
			Description: "behaviors " + groupName(bs) + " do not overlap",
		}, g.apart(bs))
	}
	named := g.fc.Behaviors()
	if len(groups) > 0 || len(named) < 2 || !g.opts.Disjointness {
		return
	}
	g.emit(Obligation{
		ID:          g.id("disjoint"),
		Kind:        KindDisjointness,
		Description: "behaviors " + groupName(named) + " do not overlap",
	}, g.apart(named))
}

func (g *gen) apart(bs []*contract.Behavior) logic.Term {
	var pairs []logic.Term
	for i := range bs {
		for j := i + 1; j < len(bs); j++ {
			pairs = append(pairs, logic.Not(logic.And(bs[i].Assumes(), bs[j].Assumes())))
		}
	}
	return logic.Implies(g.pre, logic.And(pairs...))
}

func groupName(bs []*contract.Behavior) string {
	names := make([]string, len(bs))
	for i, b := range bs {
		names[i] = b.Name()
	}
	return strings.Join(names, ",")
}

// checkContract verifies that every annotation is a well sorted predicate
// over the variables of fn and that loop annotations name real loops.
func checkContract(fn *program.Function, fc *contract.FunctionContract) error {
	symbols := fn.Symbols()
	pred := func(clause string, t logic.Term) error {
		if err := logic.CheckPredicate(clause, t); err != nil {
			return err
		}
		return declared(clause, t, symbols, fn)
	}

	for _, p := range fc.Preconditions() {
		if err := pred("requires", p); err != nil {
			return err
		}
		if logic.Contains(p, isResult) {
			return logic.Malformedf("requires", `\result in precondition`)
		}
	}
	if ens, ok := fc.DefaultEnsures(); ok {
		if err := pred("ensures", ens); err != nil {
			return err
		}
	}
	for _, b := range fc.Behaviors() {
		if err := pred("behavior "+b.Name()+": assumes", b.Assumes()); err != nil {
			return err
		}
		if err := pred("behavior "+b.Name()+": ensures", b.Ensures()); err != nil {
			return err
		}
	}

	loops := make(map[program.LoopID]bool)
	for _, w := range fn.Loops() {
		loops[w.ID] = true
	}
	for _, id := range fc.Loops() {
		if !loops[id] {
			return fmt.Errorf("%w %q in %s", ErrUnknownLoop, id, fn.Name)
		}
		lc, _ := fc.Loop(id)
		for _, inv := range lc.Invariants() {
			if err := pred("loop invariant", inv); err != nil {
				return err
			}
		}
		if v := lc.Variant(); v != nil {
			if err := logic.CheckTerm("loop variant", v, logic.SortInt); err != nil {
				return err
			}
			if err := declared("loop variant", v, symbols, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func isResult(t logic.Term) bool {
	_, ok := t.(logic.Result)
	return ok
}

func declared(clause string, t logic.Term, symbols map[string]program.Var, fn *program.Function) error {
	for _, v := range logic.FreeVars(t) {
		d, ok := symbols[v.Name]
		if !ok {
			return logic.Malformedf(clause, "unknown identifier %q", v.Name)
		}
		if d.Type.Sort() != v.Type {
			return logic.Malformedf(clause, "%q is %s, used as %s", v.Name, d.Type, v.Type)
		}
	}
	var bad error
	logic.Contains(t, func(n logic.Term) bool {
		if r, ok := n.(logic.Result); ok && r.Type != fn.Returns.Sort() {
			bad = logic.Malformedf(clause, `\result of %s has type %s`, fn.Name, fn.Returns)
			return true
		}
		return false
	})
	return bad
}
