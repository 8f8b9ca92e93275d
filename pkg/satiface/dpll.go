package satiface

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// val is a variable's current assignment: unassigned until a decision or
// propagation sets it.
type val int8

const (
	unassigned val = iota
	isTrue
	isFalse
)

func (v val) Bool() bool { return v == isTrue }

// decisionNode mirrors the teacher's DecisionNode (pkg/algorithm/decision.go):
// a variable, its current value, and whether the alternative has already
// been attempted at this depth.
type decisionNode struct {
	v           int
	value       val
	tried       bool
	alternative val
	trailMark   int // trail length when this decision was pushed
}

// DpllSolver is a small DPLL-style solver: no clause learning or watched
// literals, just unit propagation plus chronological backtracking over a
// decision stack, generalizing the teacher's circuit-specific decision loop
// (MakeDecision/Backtrack in pkg/algorithm/decision.go) to plain CNF. It is
// the fallback Solver used when no external backend is wired, bounded by a
// conflict budget so DTPG can report ABORT per spec §4.5 instead of hanging
// on a hard instance.
type DpllSolver struct {
	clauses       [][]Lit
	assign        []val
	decisionStack []*decisionNode
	trail         []Lit
	conflictLimit int
	conflicts     int
	log           zerolog.Logger
}

// NewDpllSolver constructs a solver with the given conflict budget (<=0
// means unbounded).
func NewDpllSolver(conflictLimit int) *DpllSolver {
	return &DpllSolver{
		conflictLimit: conflictLimit,
		log:           log.With().Str("component", "satiface").Logger(),
	}
}

func (s *DpllSolver) NewVar() int {
	s.assign = append(s.assign, unassigned)
	return len(s.assign) - 1
}

func (s *DpllSolver) NumVars() int { return len(s.assign) }

// NumClauses and NumLiterals report the clause database's current size,
// backing the calc_cnf_size cross-check spec §8 asks a PropCone encoding to
// support: the driver can compare a cheap structural estimate (fanin counts
// summed over the cone) against the solver's actual post-encoding totals.
func (s *DpllSolver) NumClauses() int { return len(s.clauses) }

func (s *DpllSolver) NumLiterals() int {
	n := 0
	for _, cl := range s.clauses {
		n += len(cl)
	}
	return n
}

func (s *DpllSolver) AddClause(lits ...Lit) {
	cl := make([]Lit, len(lits))
	copy(cl, lits)
	s.clauses = append(s.clauses, cl)
}

// AddAndGate Tseitin-encodes out <-> AND(ins...): (out -> each in) and
// (all ins -> out).
func (s *DpllSolver) AddAndGate(out Lit, ins ...Lit) {
	for _, in := range ins {
		s.AddClause(out.Negate(), in)
	}
	clause := make([]Lit, 0, len(ins)+1)
	for _, in := range ins {
		clause = append(clause, in.Negate())
	}
	clause = append(clause, out)
	s.AddClause(clause...)
}

// AddOrGate Tseitin-encodes out <-> OR(ins...).
func (s *DpllSolver) AddOrGate(out Lit, ins ...Lit) {
	for _, in := range ins {
		s.AddClause(out, in.Negate())
	}
	clause := make([]Lit, 0, len(ins)+1)
	clause = append(clause, ins...)
	clause = append(clause, out.Negate())
	s.AddClause(clause...)
}

// AddXorGate Tseitin-encodes out <-> (a XOR b) with the four standard
// clauses.
func (s *DpllSolver) AddXorGate(out, a, b Lit) {
	s.AddClause(out.Negate(), a, b)
	s.AddClause(out.Negate(), a.Negate(), b.Negate())
	s.AddClause(out, a.Negate(), b)
	s.AddClause(out, a, b.Negate())
}

func (s *DpllSolver) litVal(l Lit) val {
	v := s.assign[l.Var()]
	if v == unassigned {
		return unassigned
	}
	if l.Positive() {
		return v
	}
	if v == isTrue {
		return isFalse
	}
	return isTrue
}

func (s *DpllSolver) assignLit(l Lit) {
	v := isTrue
	if !l.Positive() {
		v = isFalse
	}
	s.assign[l.Var()] = v
	s.trail = append(s.trail, l)
}

func (s *DpllSolver) unassignFrom(mark int) {
	for i := len(s.trail) - 1; i >= mark; i-- {
		s.assign[s.trail[i].Var()] = unassigned
	}
	s.trail = s.trail[:mark]
}

// propagate performs unit propagation to fixpoint by clause scanning,
// reporting false on a conflicting clause.
func (s *DpllSolver) propagate() bool {
	changed := true
	for changed {
		changed = false
		for _, cl := range s.clauses {
			unassignedCount := 0
			satisfied := false
			var lastUnassigned Lit
			for _, l := range cl {
				switch s.litVal(l) {
				case isTrue:
					satisfied = true
				case unassigned:
					unassignedCount++
					lastUnassigned = l
				}
			}
			if satisfied {
				continue
			}
			if unassignedCount == 0 {
				return false // conflict: every literal false
			}
			if unassignedCount == 1 {
				s.assignLit(lastUnassigned)
				changed = true
			}
		}
	}
	return true
}

// pickUnassigned returns the lowest-index unassigned variable, or -1 if
// every variable is assigned.
func (s *DpllSolver) pickUnassigned() int {
	for v, a := range s.assign {
		if a == unassigned {
			return v
		}
	}
	return -1
}

// Solve implements the teacher's MakeDecision/Backtrack loop (decision.go)
// generalized to plain CNF: assumptions are pushed as forced unit
// assignments, then the solver alternates propagation and decisions,
// backtracking over the decision stack on conflict and counting conflicts
// against the configured budget.
func (s *DpllSolver) Solve(assumptions []Lit) (Status, error) {
	s.decisionStack = s.decisionStack[:0]
	for i := range s.assign {
		s.assign[i] = unassigned
	}
	s.trail = s.trail[:0]
	s.conflicts = 0

	for _, a := range assumptions {
		if s.litVal(a) == isFalse {
			s.log.Debug().Str("lit", a.String()).Msg("assumption conflicts with itself")
			return StatusUNSAT, nil
		}
		if s.litVal(a) == unassigned {
			s.assignLit(a)
		}
	}
	if !s.propagate() {
		s.log.Debug().Msg("assumptions conflict under unit propagation")
		return StatusUNSAT, nil
	}

	for {
		if ok := s.propagate(); !ok {
			if !s.backtrack() {
				return StatusUNSAT, nil
			}
			s.conflicts++
			if s.conflictLimit > 0 && s.conflicts > s.conflictLimit {
				s.log.Debug().Int("conflicts", s.conflicts).Msg("conflict budget exhausted")
				return StatusAbort, nil
			}
			continue
		}

		v := s.pickUnassigned()
		if v < 0 {
			return StatusSAT, nil
		}

		node := &decisionNode{v: v, value: isTrue, alternative: isFalse, trailMark: len(s.trail)}
		s.assignLit(NewLit(v, true))
		s.decisionStack = append(s.decisionStack, node)
		s.log.Trace().Int("var", v).Msg("decision")
	}
}

// backtrack pops decisions until it finds one whose alternative has not yet
// been tried, flips it, and returns true; it returns false once the
// decision stack is empty, meaning the instance is UNSAT under the current
// assumptions.
func (s *DpllSolver) backtrack() bool {
	for len(s.decisionStack) > 0 {
		node := s.decisionStack[len(s.decisionStack)-1]
		if !node.tried {
			s.unassignFrom(node.trailMark)
			node.tried = true
			node.value = node.alternative
			s.assignLit(NewLit(node.v, node.value == isTrue))
			return true
		}
		s.decisionStack = s.decisionStack[:len(s.decisionStack)-1]
		s.unassignFrom(node.trailMark)
	}
	return false
}

func (s *DpllSolver) Model() []bool {
	m := make([]bool, len(s.assign))
	for i, a := range s.assign {
		m[i] = a.Bool()
	}
	return m
}
