// Package tpgnet is the immutable, fanout-linked network model: Node arena,
// PPI/PPO/DFF views, FFR and MFFC partitioning, and the representative fault
// list, a dense-id DAG arena sized for the SAT encoder that walks it.
package tpgnet

import "github.com/vlsitest/fanatpg/pkg/gatetype"

// Role is an exhaustive tag in place of a class hierarchy: one concrete
// Node struct, one variant tag per input/output/logic role. Every node plays
// exactly one role; a signal tapped as an output gets its own PO node fed by
// the driving gate, it is never both a gate and an output at once.
type Role int

const (
	RolePI Role = iota
	RolePPI
	RolePO
	RolePPO
	RoleDFFControl
	RoleLogic
)

func (r Role) String() string {
	switch r {
	case RolePI:
		return "PI"
	case RolePPI:
		return "PPI"
	case RolePO:
		return "PO"
	case RolePPO:
		return "PPO"
	case RoleDFFControl:
		return "DFFControl"
	default:
		return "Logic"
	}
}

// Node is one entity in the network arena, addressed by a dense id assigned
// in topological order: for any logic or output node n, every fanin of n has
// a smaller id. PO and PPO (DFF-input) nodes are allocated as their own
// dense-id class after the logic nodes, each with exactly one fanin — its
// driver — and a BUFF gate type so the simulator and encoder evaluate them
// uniformly.
type Node struct {
	ID       int
	Name     string
	Role     Role
	GateType *gatetype.GateType

	Fanins  []*Node
	Fanouts []*Node

	InputID int // dense index into the PI or PPI list, meaningful for those roles

	OutputID  int // construction-order index across POs then PPOs
	OutputID2 int // TFI-size order index across POs+PPOs (§4.1 step 7)

	DFFID   int
	AltNode *Node // DFF-input (PPO) <-> DFF-output (PPI) link

	ImmDom   *Node // immediate dominator on the fanout side; nil if not unique
	FFRRoot  *Node
	MFFCRoot *Node

	isDataSide bool
}

// IsObservedOutput reports whether n is a primary or pseudo output node.
func (n *Node) IsObservedOutput() bool { return n.Role == RolePO || n.Role == RolePPO }

// IsDataSide reports whether n is reachable from a primary/pseudo output by
// reverse BFS (§4.1 step 6); pure clock/reset/control cones are excluded
// from fault enumeration.
func (n *Node) IsDataSide() bool { return n.isDataSide }

// IsFFRRoot reports whether n heads its own FFR: it has a fanout count other
// than 1, or it is itself an output node.
func (n *Node) IsFFRRoot() bool {
	if n.IsObservedOutput() {
		return true
	}
	return len(n.Fanouts) != 1
}

// IsMFFCRoot reports whether n heads its own MFFC (no unique dominator).
func (n *Node) IsMFFCRoot() bool { return n.ImmDom == nil }
