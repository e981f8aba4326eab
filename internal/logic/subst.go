package logic

import "sort"

// mapChildren rebuilds t with f applied to each direct subterm.
func mapChildren(t Term, f func(Term) Term) Term {
	switch n := t.(type) {
	case Unary:
		return Unary{Op: n.Op, X: f(n.X)}
	case Binary:
		return Binary{Op: n.Op, Left: f(n.Left), Right: f(n.Right)}
	case Ite:
		return Ite{Cond: f(n.Cond), Then: f(n.Then), Else: f(n.Else)}
	case Select:
		return Select{Array: f(n.Array), Index: f(n.Index)}
	case Store:
		return Store{Array: f(n.Array), Index: f(n.Index), Value: f(n.Value)}
	case Quant:
		return Quant{Q: n.Q, Var: n.Var, Body: f(n.Body)}
	case Valid:
		return Valid{Base: f(n.Base), Lo: f(n.Lo), Hi: f(n.Hi), ReadOnly: n.ReadOnly}
	default:
		return t
	}
}

// children returns the direct subterms of t.
func children(t Term) []Term {
	switch n := t.(type) {
	case Unary:
		return []Term{n.X}
	case Binary:
		return []Term{n.Left, n.Right}
	case Ite:
		return []Term{n.Cond, n.Then, n.Else}
	case Select:
		return []Term{n.Array, n.Index}
	case Store:
		return []Term{n.Array, n.Index, n.Value}
	case Quant:
		return []Term{n.Body}
	case Valid:
		return []Term{n.Base, n.Lo, n.Hi}
	default:
		return nil
	}
}

// Substitute replaces free variables simultaneously according to m.
// Bound variables are renamed when a replacement would be captured.
// Old values and \result are never substituted.
func Substitute(t Term, m map[string]Term) Term {
	if len(m) == 0 {
		return t
	}
	switch n := t.(type) {
	case Var:
		if r, ok := m[n.Name]; ok {
			return r
		}
		return n
	case Quant:
		inner := make(map[string]Term, len(m))
		captured := make(map[string]bool)
		for k, v := range m {
			if k == n.Var {
				continue
			}
			inner[k] = v
			for name := range freeNames(v) {
				captured[name] = true
			}
		}
		bound := n.Var
		if captured[bound] {
			avoid := freeNames(n.Body)
			for name := range captured {
				avoid[name] = true
			}
			fresh := bound
			for avoid[fresh] {
				fresh += "'"
			}
			inner[bound] = Var{Name: fresh, Type: SortInt}
			bound = fresh
		}
		return Quant{Q: n.Q, Var: bound, Body: Substitute(n.Body, inner)}
	default:
		return mapChildren(t, func(c Term) Term { return Substitute(c, m) })
	}
}

// SubstituteResult replaces \result with v.
func SubstituteResult(t Term, v Term) Term {
	if _, ok := t.(Result); ok {
		return v
	}
	return mapChildren(t, func(c Term) Term { return SubstituteResult(c, v) })
}

// EliminateOld turns every \old(x) into x. It is applied once a formula
// has been expressed entirely in terms of the entry state.
func EliminateOld(t Term) Term {
	if o, ok := t.(Old); ok {
		return Var{Name: o.Name, Type: o.Type}
	}
	return mapChildren(t, EliminateOld)
}

// ToOld turns free variables accepted by keep into their entry values.
// A nil keep accepts every variable.
func ToOld(t Term, keep func(name string) bool) Term {
	return toOld(t, keep, nil)
}

func toOld(t Term, keep func(string) bool, bound map[string]bool) Term {
	switch n := t.(type) {
	case Var:
		if bound[n.Name] || (keep != nil && !keep(n.Name)) {
			return n
		}
		return Old{Name: n.Name, Type: n.Type}
	case Quant:
		inner := make(map[string]bool, len(bound)+1)
		for k := range bound {
			inner[k] = true
		}
		inner[n.Var] = true
		return Quant{Q: n.Q, Var: n.Var, Body: toOld(n.Body, keep, inner)}
	default:
		return mapChildren(t, func(c Term) Term { return toOld(c, keep, bound) })
	}
}

func freeNames(t Term) map[string]bool {
	names := make(map[string]bool)
	collectFree(t, nil, func(v Var) { names[v.Name] = true })
	return names
}

func collectFree(t Term, bound map[string]bool, visit func(Var)) {
	switch n := t.(type) {
	case Var:
		if !bound[n.Name] {
			visit(n)
		}
	case Quant:
		inner := make(map[string]bool, len(bound)+1)
		for k := range bound {
			inner[k] = true
		}
		inner[n.Var] = true
		collectFree(n.Body, inner, visit)
	default:
		for _, c := range children(t) {
			collectFree(c, bound, visit)
		}
	}
}

// FreeVars returns the free variables of t sorted by name.
func FreeVars(t Term) []Var {
	seen := make(map[string]Var)
	collectFree(t, nil, func(v Var) {
		if _, ok := seen[v.Name]; !ok {
			seen[v.Name] = v
		}
	})
	vars := make([]Var, 0, len(seen))
	for _, v := range seen {
		vars = append(vars, v)
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i].Name < vars[j].Name })
	return vars
}

// Contains reports whether pred holds for t or any of its subterms.
func Contains(t Term, pred func(Term) bool) bool {
	if pred(t) {
		return true
	}
	for _, c := range children(t) {
		if Contains(c, pred) {
			return true
		}
	}
	return false
}
