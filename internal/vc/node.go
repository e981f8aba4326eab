package vc

import "github.com/gnoverse/contractvc/internal/program"

// node is a body statement numbered in pre-order. The nodes of the
// subtree rooted at n have ids in [n.id, n.last].
type node struct {
	id   int
	last int
	stmt program.Stmt
	kids []*node
}

func number(s program.Stmt, next *int) *node {
	n := &node{id: *next, stmt: s}
	*next++
	switch st := s.(type) {
	case program.Block:
		for _, c := range st.Stmts {
			n.kids = append(n.kids, number(c, next))
		}
	case program.If:
		n.kids = append(n.kids, number(st.Then, next))
		if st.Else != nil {
			n.kids = append(n.kids, number(st.Else, next))
		}
	case program.While:
		n.kids = append(n.kids, number(st.Body, next))
		if st.Step != nil {
			n.kids = append(n.kids, number(st.Step, next))
		}
	}
	n.last = *next - 1
	return n
}

func (n *node) contains(id int) bool {
	return id >= n.id && id <= n.last
}

// walk visits the subtree in pre-order, passing the innermost enclosing loop.
func (n *node) walk(loop *node, visit func(n, loop *node)) {
	visit(n, loop)
	inner := loop
	if _, ok := n.stmt.(program.While); ok {
		inner = n
	}
	for _, k := range n.kids {
		k.walk(inner, visit)
	}
}
