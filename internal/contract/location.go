package contract

import (
	"strings"

	"github.com/gnoverse/contractvc/internal/logic"
)

// Location is one memory location named by an assigns clause.
type Location interface {
	isLocation()
	String() string
}

// VarLocation is a scalar variable.
type VarLocation struct {
	Name string
}

func (VarLocation) isLocation() {}
func (l VarLocation) String() string { return l.Name }

// RangeLocation is the cells Array[Lo..Hi], bounds included.
type RangeLocation struct {
	Array string
	Lo    logic.Term
	Hi    logic.Term
}

func (RangeLocation) isLocation() {}
func (l RangeLocation) String() string {
	return l.Array + "[" + l.Lo.String() + ".." + l.Hi.String() + "]"
}

// CellLocation is the single cell Array[Index].
type CellLocation struct {
	Array string
	Index logic.Term
}

func (CellLocation) isLocation() {}
func (l CellLocation) String() string {
	return l.Array + "[" + l.Index.String() + "]"
}

// Assigns is the frame of a function or loop. A nil *Assigns means no
// clause was given and no frame obligation exists. \nothing and an
// explicit empty list both forbid every write but stay distinguishable.
type Assigns struct {
	nothing   bool
	locations []Location
}

// Nothing returns the \nothing frame.
func Nothing() *Assigns {
	return &Assigns{nothing: true}
}

// Locations returns an explicit frame. Calling it without arguments yields
// an empty list, distinct from Nothing.
func Locations(locs ...Location) *Assigns {
	list := make([]Location, len(locs))
	copy(list, locs)
	return &Assigns{locations: list}
}

// IsNothing reports whether the frame was written as \nothing.
func (a *Assigns) IsNothing() bool {
	return a != nil && a.nothing
}

// List returns a copy of the explicit locations.
func (a *Assigns) List() []Location {
	if a == nil {
		return nil
	}
	list := make([]Location, len(a.locations))
	copy(list, a.locations)
	return list
}

// Vars returns the scalar variables of the frame.
func (a *Assigns) Vars() []string {
	var names []string
	for _, l := range a.List() {
		if v, ok := l.(VarLocation); ok {
			names = append(names, v.Name)
		}
	}
	return names
}

// Permits returns the condition under which writing array[index] is allowed.
func (a *Assigns) Permits(array string, index logic.Term) logic.Term {
	if a == nil {
		return logic.True
	}
	var allowed []logic.Term
	for _, l := range a.locations {
		switch loc := l.(type) {
		case RangeLocation:
			if loc.Array == array {
				allowed = append(allowed, logic.InRange(index, loc.Lo, loc.Hi))
			}
		case CellLocation:
			if loc.Array == array {
				allowed = append(allowed, logic.Eq(index, loc.Index))
			}
		case VarLocation:
			// a bare array name covers every cell
			if loc.Name == array {
				return logic.True
			}
		}
	}
	return logic.Or(allowed...)
}

// PermitsVar reports whether writing the scalar name is allowed.
func (a *Assigns) PermitsVar(name string) bool {
	if a == nil {
		return true
	}
	for _, l := range a.locations {
		if v, ok := l.(VarLocation); ok && v.Name == name {
			return true
		}
	}
	return false
}

// MapBounds returns a copy of the frame with f applied to every index
// and bound term.
func (a *Assigns) MapBounds(f func(logic.Term) logic.Term) *Assigns {
	if a == nil {
		return nil
	}
	out := &Assigns{nothing: a.nothing, locations: make([]Location, len(a.locations))}
	for i, l := range a.locations {
		switch loc := l.(type) {
		case RangeLocation:
			out.locations[i] = RangeLocation{Array: loc.Array, Lo: f(loc.Lo), Hi: f(loc.Hi)}
		case CellLocation:
			out.locations[i] = CellLocation{Array: loc.Array, Index: f(loc.Index)}
		default:
			out.locations[i] = l
		}
	}
	return out
}

func (a *Assigns) String() string {
	switch {
	case a == nil:
		return "<unset>"
	case a.nothing:
		return `\nothing`
	case len(a.locations) == 0:
		return "<empty>"
	}
	parts := make([]string, len(a.locations))
	for i, l := range a.locations {
		parts[i] = l.String()
	}
	return strings.Join(parts, ", ")
}
