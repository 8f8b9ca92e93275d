// Package satiface defines the narrow Boolean-satisfiability interface the
// CNF encoder and DTPG driver program against, plus a bundled DPLL
// solver without clause learning (see dpll.go) used when no external SAT backend is configured. The
// interface mirrors the teacher's own layering: pkg/algorithm/decision.go
// drove a circuit-specific decision/backtrack loop behind a small API
// (MakeDecision/Backtrack); Solver generalizes that same shape to raw CNF.
package satiface

import "fmt"

// Lit is a DIMACS-style literal: a positive value selects variable v-1
// true, a negative value selects it false. Variable 0 is never used so that
// Lit's zero value is never itself a valid literal.
type Lit int

// NewLit builds the literal for variable v (0-based) at the given polarity.
func NewLit(v int, positive bool) Lit {
	if positive {
		return Lit(v + 1)
	}
	return Lit(-(v + 1))
}

// Var returns the 0-based variable this literal refers to.
func (l Lit) Var() int { return int(l.abs()) - 1 }

// Positive reports whether l asserts its variable true.
func (l Lit) Positive() bool { return l > 0 }

// Negate returns the complementary literal.
func (l Lit) Negate() Lit { return -l }

func (l Lit) abs() Lit {
	if l < 0 {
		return -l
	}
	return l
}

func (l Lit) String() string {
	if l.Positive() {
		return fmt.Sprintf("x%d", l.Var())
	}
	return fmt.Sprintf("-x%d", l.Var())
}

// Status is the three-way outcome of a bounded SAT call, matching the
// SAT/UNSAT/ABORT vocabulary spec §4.5 requires the DTPG driver to reconcile
// against the fault simulator.
type Status int

const (
	StatusSAT Status = iota
	StatusUNSAT
	StatusAbort
)

func (s Status) String() string {
	switch s {
	case StatusSAT:
		return "SAT"
	case StatusUNSAT:
		return "UNSAT"
	default:
		return "ABORT"
	}
}

// Solver is the minimal CNF-building and solving surface the encoder and
// DTPG driver require. Implementations are expected to be single-goroutine;
// the DTPG driver's parallel mode (spec §5) gives each worker its own
// Solver instance.
type Solver interface {
	// NewVar allocates a fresh variable and returns its 0-based index.
	NewVar() int

	// AddClause asserts the disjunction of lits.
	AddClause(lits ...Lit)

	// AddAndGate asserts out <-> AND(ins...).
	AddAndGate(out Lit, ins ...Lit)

	// AddOrGate asserts out <-> OR(ins...).
	AddOrGate(out Lit, ins ...Lit)

	// AddXorGate asserts out <-> XOR(a, b).
	AddXorGate(out, a, b Lit)

	// Solve runs the solver under the given assumption literals, returning
	// StatusAbort if the configured conflict/decision budget is exceeded.
	Solve(assumptions []Lit) (Status, error)

	// Model returns the satisfying assignment of the most recent StatusSAT
	// result: Model()[v] is the value of variable v.
	Model() []bool

	// NumVars reports how many variables have been allocated so far.
	NumVars() int
}
