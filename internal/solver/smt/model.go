package smt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gnoverse/contractvc/internal/solver"
)

// sexpr is an atom or a list.
type sexpr struct {
	atom string
	list []sexpr
	leaf bool
}

func (e sexpr) String() string {
	if e.leaf {
		return e.atom
	}
	parts := make([]string, len(e.list))
	for i, c := range e.list {
		parts[i] = c.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func readSexpr(input string) (sexpr, string, error) {
	input = strings.TrimLeft(input, " \t\r\n")
	if input == "" {
		return sexpr{}, "", fmt.Errorf("unexpected end of model")
	}
	switch input[0] {
	case '(':
		rest := input[1:]
		var list []sexpr
		for {
			rest = strings.TrimLeft(rest, " \t\r\n")
			if rest == "" {
				return sexpr{}, "", fmt.Errorf("unterminated list in model")
			}
			if rest[0] == ')' {
				return sexpr{list: list}, rest[1:], nil
			}
			var e sexpr
			var err error
			e, rest, err = readSexpr(rest)
			if err != nil {
				return sexpr{}, "", err
			}
			list = append(list, e)
		}
	case ')':
		return sexpr{}, "", fmt.Errorf("unexpected ')' in model")
	case '|':
		end := strings.IndexByte(input[1:], '|')
		if end < 0 {
			return sexpr{}, "", fmt.Errorf("unterminated symbol in model")
		}
		return sexpr{atom: input[1 : end+1], leaf: true}, input[end+2:], nil
	}
	end := strings.IndexAny(input, " \t\r\n()")
	if end < 0 {
		end = len(input)
	}
	return sexpr{atom: input[:end], leaf: true}, input[end:], nil
}

// parseModel reads the answer of get-value: ((|x| 1) (|y| (- 2))).
func parseModel(out string) (*solver.Witness, error) {
	w := &solver.Witness{}
	if strings.TrimSpace(out) == "" {
		return w, nil
	}
	e, _, err := readSexpr(out)
	if err != nil {
		return nil, err
	}
	if e.leaf {
		return nil, fmt.Errorf("unexpected model %s", e)
	}
	for _, pair := range e.list {
		if pair.leaf || len(pair.list) != 2 || !pair.list[0].leaf {
			return nil, fmt.Errorf("unexpected model entry %s", pair)
		}
		w.Assignments = append(w.Assignments, solver.Assignment{
			Name:  pair.list[0].atom,
			Value: literal(pair.list[1]),
		})
	}
	sort.Slice(w.Assignments, func(i, j int) bool { return w.Assignments[i].Name < w.Assignments[j].Name })
	return w, nil
}

// literal renders (- 5) as -5 and leaves other values as written.
func literal(e sexpr) string {
	if !e.leaf && len(e.list) == 2 && e.list[0].leaf && e.list[0].atom == "-" && e.list[1].leaf {
		return "-" + e.list[1].atom
	}
	return e.String()
}
