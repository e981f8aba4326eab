// Package vc translates a function and its contract into independent
// verification obligations by weakest-precondition calculus.
package vc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gnoverse/contractvc/internal/logic"
	"github.com/gnoverse/contractvc/internal/program"
)

// ErrUnknownLoop is returned when a loop annotation names no loop of the body.
var ErrUnknownLoop = errors.New("annotation for unknown loop")

// Kind classifies an obligation.
type Kind int

const (
	KindPostcondition Kind = iota
	KindLoopEntry
	KindLoopPreservation
	KindLoopVariant
	KindFrame
	KindLoopFrame
	KindOverflow
	KindDivisionByZero
	KindMemoryAccess
	KindAssert
	KindCompleteness
	KindDisjointness
)

func (k Kind) String() string {
	switch k {
	case KindPostcondition:
		return "postcondition"
	case KindLoopEntry:
		return "loop_entry"
	case KindLoopPreservation:
		return "loop_preservation"
	case KindLoopVariant:
		return "loop_variant"
	case KindFrame:
		return "assigns"
	case KindLoopFrame:
		return "loop_assigns"
	case KindOverflow:
		return "overflow"
	case KindDivisionByZero:
		return "division_by_zero"
	case KindMemoryAccess:
		return "mem_access"
	case KindAssert:
		return "assert"
	case KindCompleteness:
		return "complete_behaviors"
	case KindDisjointness:
		return "disjoint_behaviors"
	default:
		return "unknown"
	}
}

// IsRuntimeError reports whether k guards against undefined behavior.
func (k Kind) IsRuntimeError() bool {
	return k == KindOverflow || k == KindDivisionByZero || k == KindMemoryAccess
}

// Obligation is one self-contained formula that must be valid.
type Obligation struct {
	ID       string
	Function string
	Kind     Kind

	// Behavior is set for postcondition obligations.
	Behavior string

	// Loop is set for loop obligations and for sites inside a loop.
	Loop    program.LoopID
	Formula logic.Term

	// Advisory obligations produce warnings instead of failures.
	Advisory    bool
	Description string
}

func (o Obligation) String() string {
	return fmt.Sprintf("%s [%s] %s", o.ID, o.Kind, o.Formula)
}

// CompletenessMode controls the behavior completeness check.
type CompletenessMode int

const (
	// CompletenessWarn reports a missed case as a warning.
	CompletenessWarn CompletenessMode = iota
	// CompletenessRequire reports a missed case as a failure.
	CompletenessRequire
	// CompletenessOff skips the check unless the contract declares it.
	CompletenessOff
)

func (m CompletenessMode) String() string {
	switch m {
	case CompletenessRequire:
		return "require"
	case CompletenessOff:
		return "off"
	default:
		return "warn"
	}
}

// ParseCompletenessMode reads "warn", "require" or "off".
func ParseCompletenessMode(s string) (CompletenessMode, error) {
	switch strings.ToLower(s) {
	case "", "warn":
		return CompletenessWarn, nil
	case "require":
		return CompletenessRequire, nil
	case "off":
		return CompletenessOff, nil
	}
	return 0, fmt.Errorf("unknown completeness mode %q", s)
}

// Options configures obligation generation.
type Options struct {
	// IntBits is the width of the signed integer type used for overflow checks.
	IntBits      uint
	Completeness CompletenessMode

	// RuntimeErrors enables overflow, division and memory access obligations.
	RuntimeErrors bool

	// Disjointness checks that behaviors do not overlap even when the
	// contract does not declare it.
	Disjointness bool
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		IntBits:       32,
		Completeness:  CompletenessWarn,
		RuntimeErrors: true,
	}
}
