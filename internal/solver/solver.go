// Package solver defines the contract between the verification engine and
// the decision procedures that discharge obligations.
package solver

import (
	"context"
	"strings"
	"time"

	"github.com/gnoverse/contractvc/internal/logic"
)

// Status is the outcome of one solver request.
type Status int

const (
	Unknown Status = iota
	Proved
	Disproved
)

func (s Status) String() string {
	switch s {
	case Proved:
		return "proved"
	case Disproved:
		return "disproved"
	default:
		return "unknown"
	}
}

// Reasons attached to Unknown verdicts.
const (
	ReasonTimeout     = "timeout"
	ReasonCanceled    = "canceled"
	ReasonIncomplete  = "incomplete"
	ReasonUnsupported = "unsupported"
	// ReasonBounded marks a search that found no counterexample in a
	// bounded space that does not cover every value.
	ReasonBounded = "bounded"
)

// Assignment is the value of one variable in a counterexample.
type Assignment struct {
	Name  string
	Value string
}

// Witness is a counterexample: values of the free variables under which
// the formula is false.
type Witness struct {
	Assignments []Assignment
}

// Value returns the value assigned to name.
func (w *Witness) Value(name string) (string, bool) {
	if w == nil {
		return "", false
	}
	for _, a := range w.Assignments {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

func (w *Witness) String() string {
	if w == nil || len(w.Assignments) == 0 {
		return "{}"
	}
	parts := make([]string, len(w.Assignments))
	for i, a := range w.Assignments {
		parts[i] = a.Name + " = " + a.Value
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Verdict is the answer for one obligation.
type Verdict struct {
	Status  Status
	Witness *Witness
	// Reason explains an Unknown verdict.
	Reason string
}

func ProvedVerdict() Verdict {
	return Verdict{Status: Proved}
}

func DisprovedVerdict(w *Witness) Verdict {
	return Verdict{Status: Disproved, Witness: w}
}

func UnknownVerdict(reason string) Verdict {
	return Verdict{Status: Unknown, Reason: reason}
}

// Solver decides validity of one closed formula at a time. Free variables
// are universally quantified. Calls must be independent of each other.
type Solver interface {
	Solve(ctx context.Context, formula logic.Term, budget time.Duration) (Verdict, error)
}

// Versioned is implemented by solvers whose answers depend on a version or
// configuration. The version takes part in cache keys.
type Versioned interface {
	Version() string
}

// VersionOf returns the version of s, or "unversioned".
func VersionOf(s Solver) string {
	if v, ok := s.(Versioned); ok {
		return v.Version()
	}
	return "unversioned"
}

// ContextVerdict maps a finished context to an Unknown verdict.
func ContextVerdict(ctx context.Context) Verdict {
	if ctx.Err() == context.DeadlineExceeded {
		return UnknownVerdict(ReasonTimeout)
	}
	return UnknownVerdict(ReasonCanceled)
}
