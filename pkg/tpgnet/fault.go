package tpgnet

import (
	"fmt"

	"github.com/vlsitest/fanatpg/pkg/val3"
)

// FaultVal is the stuck-at polarity (or, for transition faults, the slow-to
// polarity) a Fault models.
type FaultVal int

const (
	FaultVal0 FaultVal = iota
	FaultVal1
)

func (v FaultVal) String() string {
	if v == FaultVal0 {
		return "0"
	}
	return "1"
}

// Val3 returns the fault's stuck value as a ternary value.
func (v FaultVal) Val3() val3.Val3 {
	if v == FaultVal0 {
		return val3.Zero
	}
	return val3.One
}

func faultValOf(b bool) FaultVal {
	if b {
		return FaultVal1
	}
	return FaultVal0
}

// FaultKind distinguishes stuck-at faults from transition (slow-to-rise /
// slow-to-fall) faults, per spec §4.1's fault-model note.
type FaultKind int

const (
	FaultStuckAt FaultKind = iota
	FaultTransition
)

// Fault is a single stuck-at or transition fault: either a stem fault (the
// node's own output) or a branch fault (one specific fanout edge), with
// structural equivalents folded into a single representative.
type Fault struct {
	ID       int
	Node     *Node
	FanoutNo int // -1 for a stem fault; fanout-edge index into Node for a branch fault
	Val      FaultVal
	Kind     FaultKind

	rep    *Fault // representative fault this one collapses into; itself if representative
	status FaultStatus
	Skip   bool
}

// FaultStatus is a fault's classification as DTPG or fault simulation
// resolves it: the three-way outcome a SAT-based engine produces
// (SAT/UNSAT/Abort) plus the initial unclassified state.
type FaultStatus int

const (
	// StatusUnclassified is every fault's initial state.
	StatusUnclassified FaultStatus = iota
	// StatusDetected means some test vector (found directly or by
	// incidental fault-simulation drop) distinguishes the fault from the
	// good machine.
	StatusDetected
	// StatusUntestable means the fault's activation/propagation CNF is
	// UNSAT: no input assignment excites and propagates it.
	StatusUntestable
	// StatusAborted means the solver gave up (resource bound, backtrack
	// limit) without a definite answer.
	StatusAborted
)

func (s FaultStatus) String() string {
	switch s {
	case StatusDetected:
		return "detected"
	case StatusUntestable:
		return "untestable"
	case StatusAborted:
		return "aborted"
	default:
		return "unclassified"
	}
}

// Status returns f's current classification.
func (f *Fault) Status() FaultStatus { return f.status }

// SetStatus updates f's classification.
func (f *Fault) SetStatus(s FaultStatus) { f.status = s }

// IsBranch reports whether f is a branch fault (as opposed to a stem fault).
func (f *Fault) IsBranch() bool { return f.FanoutNo >= 0 }

// Consumer returns the node a branch fault's faulty edge feeds, or nil for a
// stem fault.
func (f *Fault) Consumer() *Node {
	if !f.IsBranch() {
		return nil
	}
	return f.Node.Fanouts[f.FanoutNo]
}

// FaninPos returns the fanin position of the faulty edge within Consumer(),
// counting duplicate edges by occurrence so two parallel wires between the
// same pair of nodes stay distinct. -1 for a stem fault.
func (f *Fault) FaninPos() int {
	if !f.IsBranch() {
		return -1
	}
	m := f.Node.Fanouts[f.FanoutNo]
	occ := 0
	for _, fo := range f.Node.Fanouts[:f.FanoutNo] {
		if fo == m {
			occ++
		}
	}
	for p, fi := range m.Fanins {
		if fi == f.Node {
			if occ == 0 {
				return p
			}
			occ--
		}
	}
	return -1
}

// FFRRootNode returns the root of the FFR the fault effect first has to
// reach: the site's own FFR root for a stem fault, the consumer's for a
// branch fault (the faulty edge lives inside the consumer's FFR).
func (f *Fault) FFRRootNode() *Node {
	n := f.Node
	if f.IsBranch() {
		n = f.Consumer()
	}
	if n.FFRRoot != nil {
		return n.FFRRoot
	}
	return n
}

// MFFCRootNode returns the MFFC root enclosing FFRRootNode.
func (f *Fault) MFFCRootNode() *Node {
	r := f.FFRRootNode()
	if r.MFFCRoot != nil {
		return r.MFFCRoot
	}
	return r
}

// Representative returns the fault that stands in for f's equivalence class.
func (f *Fault) Representative() *Fault { return f.rep }

// IsRepresentative reports whether f is its own class representative.
func (f *Fault) IsRepresentative() bool { return f.rep == f }

// String renders a fault the way bench-format tools traditionally print
// them: node name, optional branch index, stuck-at value.
func (f *Fault) String() string {
	tag := "SA"
	if f.Kind == FaultTransition {
		tag = "TF"
	}
	if f.IsBranch() {
		return fmt.Sprintf("%s/%s%d@%s", f.Node.Name, tag, f.FanoutNo, f.Val)
	}
	return fmt.Sprintf("%s/%s@%s", f.Node.Name, tag, f.Val)
}

// buildFaultList enumerates every stuck-at fault — one stem fault per
// data-side input/logic node and one branch fault per fanin edge of every
// logic and output node, for each polarity — and collapses structural
// equivalents into representatives per spec §4.1:
//
//   - a stem fault at a node with exactly one fanout edge is equivalent to
//     the branch fault on that sole edge;
//   - a branch fault injecting a value that alone determines the consumer
//     gate's output (its controlling value; any value, for BUFF/NOT) is
//     equivalent to the consumer's stem fault at the controlled output.
//
// The two rules chain: a stem fault can fold through a string of
// single-fanout controlling edges all the way to the last gate whose output
// it pins. Chains only ever run toward larger node ids, so resolution
// terminates without a fixpoint.
func (net *TpgNetwork) buildFaultList() {
	all := buildFaultsOfKind(net, FaultStuckAt)
	for i, f := range all {
		f.ID = i
	}
	net.allFaults = all
	net.repFaults = repFaultsOf(all)
}

// buildTransitionFaultList enumerates the transition-delay (slow-to-rise /
// slow-to-fall) counterpart of buildFaultList, collapsed by the same
// structural rules within its own universe (a node's stuck-at and transition
// faults never collapse into each other; they're different fault models over
// the same site). IDs continue from the end of the stuck-at list, since
// AllFaults/RepFaults only ever return one kind at a time via
// RepFaultsOfKind and a single continuous ID space is simpler to debug in
// fault-addressed output.
func (net *TpgNetwork) buildTransitionFaultList() {
	all := buildFaultsOfKind(net, FaultTransition)
	base := len(net.allFaults)
	for i, f := range all {
		f.ID = base + i
	}
	net.allTransFaults = all
	net.repTransFaults = repFaultsOf(all)
}

type stemKey struct {
	node *Node
	val  FaultVal
}

type branchKey struct {
	node *Node
	edge int
	val  FaultVal
}

func buildFaultsOfKind(net *TpgNetwork, kind FaultKind) []*Fault {
	var all []*Fault
	stems := make(map[stemKey]*Fault)
	branches := make(map[branchKey]*Fault)

	vals := [2]FaultVal{FaultVal0, FaultVal1}
	for _, n := range net.nodes {
		if !n.IsDataSide() {
			continue
		}
		// Stem faults sit on a signal's own output: output nodes have none.
		if !n.IsObservedOutput() {
			for _, v := range vals {
				f := &Fault{Node: n, FanoutNo: -1, Val: v, Kind: kind}
				stems[stemKey{n, v}] = f
				all = append(all, f)
			}
		}
		// Branch faults sit on every fanin edge of every logic node and
		// every PO/PPO — an output's own incoming wire carries its own pair,
		// distinct from the driver's stem when the driver also fans out.
		for i, m := range n.Fanouts {
			if !m.IsDataSide() || (m.Role != RoleLogic && !m.IsObservedOutput()) {
				continue
			}
			for _, v := range vals {
				f := &Fault{Node: n, FanoutNo: i, Val: v, Kind: kind}
				branches[branchKey{n, i, v}] = f
				all = append(all, f)
			}
		}
	}

	nextEquiv := func(f *Fault) *Fault {
		if f.IsBranch() {
			m := f.Consumer()
			co := m.GateType.CVal(f.FaninPos(), f.Val.Val3())
			if b, ok := co.Bool(); ok {
				return stems[stemKey{m, faultValOf(b)}]
			}
			return nil
		}
		if len(f.Node.Fanouts) != 1 {
			return nil
		}
		return branches[branchKey{f.Node, 0, f.Val}]
	}

	var resolve func(f *Fault) *Fault
	resolve = func(f *Fault) *Fault {
		if f.rep != nil {
			return f.rep
		}
		if nxt := nextEquiv(f); nxt != nil {
			f.rep = resolve(nxt)
		} else {
			f.rep = f
		}
		return f.rep
	}
	for _, f := range all {
		resolve(f)
	}
	return all
}

func repFaultsOf(all []*Fault) []*Fault {
	var rep []*Fault
	for _, f := range all {
		if f.IsRepresentative() {
			rep = append(rep, f)
		}
	}
	return rep
}

// AllFaults returns every enumerated stuck-at fault, collapsed or not.
func (net *TpgNetwork) AllFaults() []*Fault { return net.allFaults }

// RepFaults returns the collapsed representative stuck-at fault list DTPG
// iterates over by default.
func (net *TpgNetwork) RepFaults() []*Fault { return net.repFaults }

// AllTransitionFaults returns every enumerated transition-delay fault,
// collapsed or not.
func (net *TpgNetwork) AllTransitionFaults() []*Fault { return net.allTransFaults }

// RepTransitionFaults returns the collapsed representative transition-delay
// fault list.
func (net *TpgNetwork) RepTransitionFaults() []*Fault { return net.repTransFaults }

// RepFaultsOfKind returns RepFaults or RepTransitionFaults depending on kind,
// the single entry point the CLI/driver use to pick the fault universe a run
// actually targets instead of reaching into both lists directly.
func (net *TpgNetwork) RepFaultsOfKind(kind FaultKind) []*Fault {
	if kind == FaultTransition {
		return net.repTransFaults
	}
	return net.repFaults
}

// AllFaultsOfKind is RepFaultsOfKind over the uncollapsed lists; the CLI
// uses it to resolve a user-named fault to its representative.
func (net *TpgNetwork) AllFaultsOfKind(kind FaultKind) []*Fault {
	if kind == FaultTransition {
		return net.allTransFaults
	}
	return net.allFaults
}

// AssignList is an ordered sequence of literal assignments (node, value)
// used both to describe justification results and to build activation
// assumptions for the SAT call.
type AssignList []NodeVal

// NodeVal pairs a node with a required 2-valued assignment.
type NodeVal struct {
	Node *Node
	Val  bool
}

// Add appends an assignment, returning the extended list (AssignList is
// threaded through recursive calls as a persistent-ish value type).
func (al AssignList) Add(n *Node, v bool) AssignList {
	return append(al, NodeVal{Node: n, Val: v})
}

// Has reports whether al already assigns n, and if so to what value.
func (al AssignList) Has(n *Node) (bool, bool) {
	for _, nv := range al {
		if nv.Node == n {
			return nv.Val, true
		}
	}
	return false, false
}

// FfrCond is a fault's FFR propagation condition: the smallest good-machine
// assignment that activates the fault at its site and carries its effect
// through the (unique, fanout-free) path to the FFR root. It is computed
// purely structurally per spec §4.2 — no SAT call — and is the only
// per-fault work redone between faults that share a cone.
type FfrCond struct {
	Root    *Node
	Assigns AssignList
}

// ComputeFfrCond builds f's FFR propagation condition:
//
//  1. activation: good(site) = ¬fval;
//  2. for a branch fault, every other fanin of the owning gate holds a value
//     that doesn't mask it;
//  3. for every node on the path from there to the FFR root, every side
//     input of the next gate likewise holds its non-masking value.
//
// An input position masks when its value alone pins the gate output (CVal
// defined); positions that never pin it (XOR inputs) need no constraint. The
// second return is false when the condition is contradictory or some side
// input pins the output at either value — the fault can't reach its FFR root
// under any assignment and is untestable without consulting the solver.
func (net *TpgNetwork) ComputeFfrCond(f *Fault) (*FfrCond, bool) {
	var assigns AssignList
	ok := true
	require := func(n *Node, v bool) {
		if have, found := assigns.Has(n); found {
			if have != v {
				ok = false
			}
			return
		}
		assigns = assigns.Add(n, v)
	}

	require(f.Node, f.Val == FaultVal0)

	sideInputs := func(m *Node, onPath int) {
		for q, fi := range m.Fanins {
			if q == onPath {
				continue
			}
			safe0 := m.GateType.CVal(q, val3.Zero) == val3.X
			safe1 := m.GateType.CVal(q, val3.One) == val3.X
			switch {
			case safe0 && safe1:
				// this input never masks (XOR-like); leave it free
			case safe0:
				require(fi, false)
			case safe1:
				require(fi, true)
			default:
				// either value pins m's output: nothing propagates through
				ok = false
			}
		}
	}

	cur := f.Node
	if f.IsBranch() {
		m := f.Consumer()
		sideInputs(m, f.FaninPos())
		cur = m
	}
	root := cur.FFRRoot
	if root == nil {
		root = cur
	}
	for cur != root {
		m := cur.Fanouts[0]
		onPath := -1
		for q, fi := range m.Fanins {
			if fi == cur {
				onPath = q
				break
			}
		}
		sideInputs(m, onPath)
		cur = m
	}

	if !ok {
		return nil, false
	}
	return &FfrCond{Root: root, Assigns: assigns}, true
}
