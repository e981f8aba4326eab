package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gnoverse/contractvc/internal/solver"
	"github.com/gnoverse/contractvc/internal/vc"
)

// Category names the kind of failure an unproved obligation indicates.
type Category string

const (
	PostconditionFailure     Category = "PostconditionFailure"
	LoopInvariantFailure     Category = "LoopInvariantFailure"
	AssignableFailure        Category = "AssignableFailure"
	ArithmeticOperationRange Category = "ArithmeticOperationRange"
	ArrayIndex               Category = "ArrayIndex"
	DivideByZero             Category = "DivideByZero"
	RankingFunctionFailure   Category = "RankingFunctionFailure"
	AssertFailure            Category = "AssertFailure"
	CompletenessWarning      Category = "CompletenessWarning"
	DisjointnessFailure      Category = "DisjointnessFailure"
)

// CategoryOf maps an obligation kind to its failure category.
func CategoryOf(k vc.Kind) Category {
	switch k {
	case vc.KindPostcondition:
		return PostconditionFailure
	case vc.KindLoopEntry, vc.KindLoopPreservation:
		return LoopInvariantFailure
	case vc.KindFrame, vc.KindLoopFrame:
		return AssignableFailure
	case vc.KindOverflow:
		return ArithmeticOperationRange
	case vc.KindMemoryAccess:
		return ArrayIndex
	case vc.KindDivisionByZero:
		return DivideByZero
	case vc.KindLoopVariant:
		return RankingFunctionFailure
	case vc.KindAssert:
		return AssertFailure
	case vc.KindCompleteness:
		return CompletenessWarning
	default:
		return DisjointnessFailure
	}
}

// Result is the verdict of one obligation.
type Result struct {
	Obligation vc.Obligation
	Verdict    solver.Verdict
	Duration   time.Duration
	Cached     bool
}

func (r Result) Category() Category {
	return CategoryOf(r.Obligation.Kind)
}

func (r Result) String() string {
	s := fmt.Sprintf("%s: %s", r.Obligation.ID, r.Verdict.Status)
	switch {
	case r.Verdict.Witness != nil:
		s += " " + r.Verdict.Witness.String()
	case r.Verdict.Reason != "":
		s += " (" + r.Verdict.Reason + ")"
	}
	return s
}

// Warning is an advisory obligation that could not be proved.
type Warning struct {
	ObligationID string
	Message      string
}

// Status is the overall outcome of one function.
type Status int

const (
	StatusVerified Status = iota
	StatusFailed
	StatusInconclusive
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusVerified:
		return "verified"
	case StatusFailed:
		return "failed"
	case StatusInconclusive:
		return "inconclusive"
	default:
		return "error"
	}
}

// Summary counts verdicts.
type Summary struct {
	Total     int
	Proved    int
	Disproved int
	Unknown   int
}

func (s Summary) add(o Summary) Summary {
	return Summary{
		Total:     s.Total + o.Total,
		Proved:    s.Proved + o.Proved,
		Disproved: s.Disproved + o.Disproved,
		Unknown:   s.Unknown + o.Unknown,
	}
}

// FunctionReport holds the results of one function in obligation order.
type FunctionReport struct {
	Function string
	Results  []Result
	Warnings []Warning
	// Err is set when the function could not be verified at all, for
	// instance because an annotation is malformed.
	Err error
}

// Status is Failed when a required obligation is disproved, Inconclusive
// when one is unknown and Verified otherwise. Advisory obligations only
// produce warnings.
func (r *FunctionReport) Status() Status {
	if r.Err != nil {
		return StatusError
	}
	status := StatusVerified
	for _, res := range r.Results {
		if res.Obligation.Advisory {
			continue
		}
		switch res.Verdict.Status {
		case solver.Disproved:
			return StatusFailed
		case solver.Unknown:
			status = StatusInconclusive
		}
	}
	return status
}

func (r *FunctionReport) Summary() Summary {
	s := Summary{Total: len(r.Results)}
	for _, res := range r.Results {
		switch res.Verdict.Status {
		case solver.Proved:
			s.Proved++
		case solver.Disproved:
			s.Disproved++
		default:
			s.Unknown++
		}
	}
	return s
}

// Failures returns the required obligations that were not proved.
func (r *FunctionReport) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Obligation.Advisory && res.Verdict.Status != solver.Proved {
			out = append(out, res)
		}
	}
	return out
}

// Lookup finds a result by obligation ID.
func (r *FunctionReport) Lookup(id string) (Result, bool) {
	for _, res := range r.Results {
		if res.Obligation.ID == id {
			return res, true
		}
	}
	return Result{}, false
}

// BatchReport groups the reports of one VerifyBatch call in input order.
type BatchReport struct {
	RunID     uuid.UUID
	Functions []*FunctionReport
}

func (b *BatchReport) Summary() Summary {
	var s Summary
	for _, f := range b.Functions {
		s = s.add(f.Summary())
	}
	return s
}

// String renders the batch in the style of Frama-C's WP summary.
func (b *BatchReport) String() string {
	var sb strings.Builder
	s := b.Summary()
	fmt.Fprintf(&sb, "[%s] Proved goals: %d / %d\n", b.RunID, s.Proved, s.Total)
	for _, f := range b.Functions {
		if f.Err != nil {
			fmt.Fprintf(&sb, "  %s: error: %v\n", f.Function, f.Err)
			continue
		}
		fs := f.Summary()
		fmt.Fprintf(&sb, "  %s: %s (%d / %d)\n", f.Function, f.Status(), fs.Proved, fs.Total)
		for _, res := range f.Failures() {
			fmt.Fprintf(&sb, "    %s %s\n", res.Category(), res)
		}
		for _, w := range f.Warnings {
			fmt.Fprintf(&sb, "    warning %s: %s\n", w.ObligationID, w.Message)
		}
	}
	return sb.String()
}
