// Package contract holds the annotations attached to one function:
// preconditions, named behaviors, frames and loop annotations.
package contract

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gnoverse/contractvc/internal/logic"
	"github.com/gnoverse/contractvc/internal/program"
)

var (
	// ErrDuplicateBehaviorName is returned when a behavior name is reused.
	ErrDuplicateBehaviorName = errors.New("duplicate behavior name")
	// ErrUnknownBehavior is returned when a clause names a missing behavior.
	ErrUnknownBehavior = errors.New("unknown behavior")
)

// DefaultBehavior names the implicit behavior formed by ensures clauses
// outside of any named behavior. The name is reserved.
const DefaultBehavior = "default"

// Behavior is one contract case. It is immutable once created.
type Behavior struct {
	name    string
	assumes logic.Term
	ensures logic.Term
}

func (b *Behavior) Name() string { return b.name }

// Assumes returns the activation condition of the behavior.
func (b *Behavior) Assumes() logic.Term { return b.assumes }

// Ensures returns the postcondition of the behavior.
func (b *Behavior) Ensures() logic.Term { return b.ensures }

// Scope selects which frame SetAssigns replaces.
type Scope struct {
	loop program.LoopID
}

// FunctionScope is the scope of the function-level assigns clause.
func FunctionScope() Scope { return Scope{} }

// LoopScope is the scope of a loop assigns clause.
func LoopScope(id program.LoopID) Scope { return Scope{loop: id} }

// Loop returns the loop ID and whether the scope is a loop.
func (s Scope) Loop() (program.LoopID, bool) {
	return s.loop, s.loop != ""
}

// LoopContract is the annotation of one loop site.
type LoopContract struct {
	ID         program.LoopID
	invariants []logic.Term
	assigns    *Assigns
	variant    logic.Term
}

// Invariants returns the invariants in attachment order.
func (l *LoopContract) Invariants() []logic.Term {
	out := make([]logic.Term, len(l.invariants))
	copy(out, l.invariants)
	return out
}

// Invariant returns the conjunction of all invariants.
func (l *LoopContract) Invariant() logic.Term {
	return logic.And(l.invariants...)
}

// Assigns returns the loop frame, nil when unset.
func (l *LoopContract) Assigns() *Assigns { return l.assigns }

// Variant returns the termination measure, nil when unset.
func (l *LoopContract) Variant() logic.Term { return l.variant }

// FunctionContract is the full contract of one function.
type FunctionContract struct {
	function      string
	preconditions []logic.Term
	ensures       []logic.Term
	behaviors     map[string]*Behavior
	order         []string
	assigns       *Assigns
	loops         map[program.LoopID]*LoopContract
	complete      [][]string
	disjoint      [][]string
}

// New returns an empty contract for the named function.
func New(function string) *FunctionContract {
	return &FunctionContract{
		function:  function,
		behaviors: make(map[string]*Behavior),
		loops:     make(map[program.LoopID]*LoopContract),
	}
}

// Function returns the name of the contracted function.
func (c *FunctionContract) Function() string { return c.function }

// AttachPrecondition conjoins pred to the precondition.
func (c *FunctionContract) AttachPrecondition(pred logic.Term) {
	c.preconditions = append(c.preconditions, pred)
}

// AttachEnsures conjoins pred to the default behavior's postcondition.
func (c *FunctionContract) AttachEnsures(pred logic.Term) {
	c.ensures = append(c.ensures, pred)
}

// AddBehavior registers a named behavior.
func (c *FunctionContract) AddBehavior(name string, assumes, ensures logic.Term) (*Behavior, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrUnknownBehavior)
	}
	if _, ok := c.behaviors[name]; ok || name == DefaultBehavior {
		return nil, fmt.Errorf("%w: %q in %s", ErrDuplicateBehaviorName, name, c.function)
	}
	if assumes == nil {
		assumes = logic.True
	}
	if ensures == nil {
		ensures = logic.True
	}
	b := &Behavior{name: name, assumes: assumes, ensures: ensures}
	c.behaviors[name] = b
	c.order = append(c.order, name)
	return b, nil
}

// AttachLoopInvariant appends an invariant to the loop's annotation.
func (c *FunctionContract) AttachLoopInvariant(id program.LoopID, pred logic.Term) {
	l := c.loop(id)
	l.invariants = append(l.invariants, pred)
}

// SetLoopVariant sets the termination measure of a loop.
func (c *FunctionContract) SetLoopVariant(id program.LoopID, measure logic.Term) {
	c.loop(id).variant = measure
}

// SetAssigns replaces the frame of the given scope.
func (c *FunctionContract) SetAssigns(scope Scope, assigns *Assigns) {
	if id, ok := scope.Loop(); ok {
		c.loop(id).assigns = assigns
		return
	}
	c.assigns = assigns
}

// DeclareComplete records a complete behaviors clause. No names means
// every named behavior.
func (c *FunctionContract) DeclareComplete(names ...string) error {
	group, err := c.group(names)
	if err != nil {
		return err
	}
	c.complete = append(c.complete, group)
	return nil
}

// DeclareDisjoint records a disjoint behaviors clause. No names means
// every named behavior.
func (c *FunctionContract) DeclareDisjoint(names ...string) error {
	group, err := c.group(names)
	if err != nil {
		return err
	}
	c.disjoint = append(c.disjoint, group)
	return nil
}

func (c *FunctionContract) group(names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	group := make([]string, len(names))
	for i, n := range names {
		if _, ok := c.behaviors[n]; !ok {
			return nil, fmt.Errorf("%w: %q in %s", ErrUnknownBehavior, n, c.function)
		}
		group[i] = n
	}
	return group, nil
}

func (c *FunctionContract) loop(id program.LoopID) *LoopContract {
	l, ok := c.loops[id]
	if !ok {
		l = &LoopContract{ID: id}
		c.loops[id] = l
	}
	return l
}

// Preconditions returns the precondition clauses in attachment order.
func (c *FunctionContract) Preconditions() []logic.Term {
	out := make([]logic.Term, len(c.preconditions))
	copy(out, c.preconditions)
	return out
}

// Precondition returns the conjunction of all preconditions.
func (c *FunctionContract) Precondition() logic.Term {
	return logic.And(c.preconditions...)
}

// DefaultEnsures returns the conjunction of ensures clauses outside of
// named behaviors and whether any was given.
func (c *FunctionContract) DefaultEnsures() (logic.Term, bool) {
	return logic.And(c.ensures...), len(c.ensures) > 0
}

// Behavior looks up a named behavior.
func (c *FunctionContract) Behavior(name string) (*Behavior, bool) {
	b, ok := c.behaviors[name]
	return b, ok
}

// Behaviors returns the named behaviors sorted by name.
func (c *FunctionContract) Behaviors() []*Behavior {
	names := make([]string, len(c.order))
	copy(names, c.order)
	sort.Strings(names)
	out := make([]*Behavior, len(names))
	for i, n := range names {
		out[i] = c.behaviors[n]
	}
	return out
}

// Effective returns the behaviors that produce postcondition obligations:
// the default behavior first when it exists, then the named ones. With no
// named behaviors the default behavior always exists.
func (c *FunctionContract) Effective() []*Behavior {
	named := c.Behaviors()
	ensures, ok := c.DefaultEnsures()
	if !ok && len(named) > 0 {
		return named
	}
	def := &Behavior{name: DefaultBehavior, assumes: logic.True, ensures: ensures}
	return append([]*Behavior{def}, named...)
}

// Assigns returns the function frame, nil when unset.
func (c *FunctionContract) Assigns() *Assigns { return c.assigns }

// Loop returns the annotation of a loop site.
func (c *FunctionContract) Loop(id program.LoopID) (*LoopContract, bool) {
	l, ok := c.loops[id]
	return l, ok
}

// Loops returns the annotated loop IDs, sorted.
func (c *FunctionContract) Loops() []program.LoopID {
	ids := make([]program.LoopID, 0, len(c.loops))
	for id := range c.loops {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// CompleteGroups returns the declared complete behaviors clauses. A nil
// group stands for every named behavior.
func (c *FunctionContract) CompleteGroups() [][]string { return c.complete }

// DisjointGroups returns the declared disjoint behaviors clauses.
func (c *FunctionContract) DisjointGroups() [][]string { return c.disjoint }

// Resolve expands a group to behaviors; a nil group is every named behavior.
func (c *FunctionContract) Resolve(group []string) []*Behavior {
	if group == nil {
		return c.Behaviors()
	}
	out := make([]*Behavior, 0, len(group))
	for _, n := range group {
		if b, ok := c.behaviors[n]; ok {
			out = append(out, b)
		}
	}
	return out
}
