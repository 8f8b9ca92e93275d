package dtpg

import (
	"fmt"

	"github.com/vlsitest/fanatpg/pkg/gatetype"
	"github.com/vlsitest/fanatpg/pkg/testvector"
	"github.com/vlsitest/fanatpg/pkg/tpgnet"
	"github.com/vlsitest/fanatpg/pkg/val3"
)

// JustifyPolicy selects how a Justifier picks among several fanins that
// would each independently satisfy a gate's required output value (e.g. any
// single 0 input justifies an AND gate's output of 0). A fanin that is
// already required at the wanted value is used as is under either policy,
// and a fanin already required at the opposite value is never picked.
type JustifyPolicy int

const (
	// Just1 picks the first such fanin, mirroring a single-path
	// backtrace.
	Just1 JustifyPolicy = iota
	// Just2 picks the fanin with the smallest upstream PI/PPI cone,
	// minimizing how many additional inputs get pinned down.
	Just2
)

// Justifier backward-propagates a (possibly partial) internal-node
// assignment list to a full test vector, leaving every input the
// assignment never actually constrains at X. This is the Go counterpart of
// the teacher's FAN-style backtrace (pkg/algorithm/backtrace.go,
// pkg/algorithm/objective.go): the same "pick a controlling input, recurse
// toward the PIs" shape, generalized from the teacher's Line/Gate model to
// tpgnet's dense-id Node arena and driven off a SAT-derived requirement
// instead of a structural D-frontier.
type Justifier struct {
	net    *tpgnet.TpgNetwork
	policy JustifyPolicy
	weight map[*tpgnet.Node]int // memoised upstream PI/PPI cone size, for Just2
}

// NewJustifier builds a justifier for net using the given fanin-selection
// policy.
func NewJustifier(net *tpgnet.TpgNetwork, policy JustifyPolicy) *Justifier {
	j := &Justifier{net: net, policy: policy, weight: make(map[*tpgnet.Node]int, len(net.Nodes()))}
	if policy == Just2 {
		for _, n := range net.Nodes() {
			j.coneWeight(n)
		}
	}
	return j
}

func (j *Justifier) coneWeight(n *tpgnet.Node) int {
	if w, ok := j.weight[n]; ok {
		return w
	}
	if n.Role == tpgnet.RolePI || n.Role == tpgnet.RolePPI {
		j.weight[n] = 1
		return 1
	}
	w := 0
	for _, fi := range n.Fanins {
		w += j.coneWeight(fi)
	}
	j.weight[n] = w
	return w
}

// required tracks the 2-valued assignment each node must take; conflicting
// re-assignment is an error (the requirement list was unsatisfiable, which
// should not happen for an assignment extracted from a genuine SAT model).
type required struct {
	val map[*tpgnet.Node]bool
}

func newRequired() *required { return &required{val: make(map[*tpgnet.Node]bool)} }

func (r *required) set(n *tpgnet.Node, v bool) error {
	if have, ok := r.val[n]; ok {
		if have != v {
			return fmt.Errorf("dtpg: conflicting justification requirement on %s", n.Name)
		}
		return nil
	}
	r.val[n] = v
	return nil
}

// Justify backward-propagates assign to a full PI/PPI test vector.
func (j *Justifier) Justify(assign tpgnet.AssignList) (*testvector.TestVector, error) {
	req := newRequired()
	queue := make([]*tpgnet.Node, 0, len(assign))
	for _, nv := range assign {
		if err := req.set(nv.Node, nv.Val); err != nil {
			return nil, err
		}
		queue = append(queue, nv.Node)
	}

	tv := testvector.New(len(j.net.PIs()), len(j.net.PPIs()))
	seen := map[*tpgnet.Node]bool{}

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if seen[n] {
			continue
		}
		seen[n] = true
		want := req.val[n]

		switch n.Role {
		case tpgnet.RolePI:
			tv.SetPI(n.InputID, val3.FromBool(want))
			continue
		case tpgnet.RolePPI:
			tv.SetPPI(n.InputID, val3.FromBool(want))
			continue
		}

		next, err := j.justifyGate(n, want, req)
		if err != nil {
			return nil, err
		}
		queue = append(queue, next...)
	}

	return tv, nil
}

// justifyGate decides which of n's fanins need a required value to make n
// produce want, applying the configured policy when more than one choice
// would work, and returns the fanins that now need to be queued.
func (j *Justifier) justifyGate(n *tpgnet.Node, want bool, req *required) ([]*tpgnet.Node, error) {
	gt := n.GateType
	switch gt.Kind {
	case gatetype.KindC0, gatetype.KindC1:
		return nil, nil
	case gatetype.KindBuff:
		return j.requireAll(n.Fanins, []bool{want}, req)
	case gatetype.KindNot:
		return j.requireAll(n.Fanins, []bool{!want}, req)
	case gatetype.KindAnd:
		return j.justifyAndLike(n, want, false, req)
	case gatetype.KindNand:
		return j.justifyAndLike(n, !want, false, req)
	case gatetype.KindOr:
		return j.justifyAndLike(n, want, true, req)
	case gatetype.KindNor:
		return j.justifyAndLike(n, !want, true, req)
	default:
		// XOR/XNOR/complex gates need every input pinned to realize a
		// specific parity or truth table row: no X-compaction is possible.
		return j.justifyExhaustive(n, gt, want, req)
	}
}

// justifyAndLike handles AND/NAND/OR/NOR: orKind true treats the gate as an
// OR (want=1 needs one fanin at 1; want=0 needs all fanins at 0), false
// treats it as an AND (want=1 needs all fanins at 1; want=0 needs one fanin
// at 0).
func (j *Justifier) justifyAndLike(n *tpgnet.Node, want bool, orKind bool, req *required) ([]*tpgnet.Node, error) {
	needsAll := want != orKind
	if needsAll {
		vals := make([]bool, len(n.Fanins))
		for i := range vals {
			vals[i] = want
		}
		return j.requireAll(n.Fanins, vals, req)
	}

	// A fanin already required at want justifies n by itself; otherwise the
	// policy chooses among the fanins not already required at !want.
	var cands []*tpgnet.Node
	for _, fi := range n.Fanins {
		if have, ok := req.val[fi]; ok {
			if have == want {
				return nil, nil
			}
			continue
		}
		cands = append(cands, fi)
	}
	if len(cands) == 0 {
		cands = n.Fanins[:1]
	}
	pick := cands[0]
	if j.policy == Just2 {
		for _, fi := range cands[1:] {
			if j.weight[fi] < j.weight[pick] {
				pick = fi
			}
		}
	}
	return j.requireAll([]*tpgnet.Node{pick}, []bool{want}, req)
}

// justifyExhaustive brute-forces the gate's input space for one assignment
// producing want, since arbitrary expression gates have no generic "pick
// one controlling input" rule.
func (j *Justifier) justifyExhaustive(n *tpgnet.Node, gt *gatetype.GateType, want bool, req *required) ([]*tpgnet.Node, error) {
	ni := len(n.Fanins)
	for combo := 0; combo < (1 << uint(ni)); combo++ {
		ins := make([]val3.Val3, ni)
		vals := make([]bool, ni)
		for i := 0; i < ni; i++ {
			b := combo&(1<<uint(i)) != 0
			vals[i] = b
			ins[i] = val3.FromBool(b)
		}
		out, ok := gt.Eval(ins).Bool()
		if ok && out == want {
			return j.requireAll(n.Fanins, vals, req)
		}
	}
	return nil, fmt.Errorf("dtpg: no input combination on %s produces output %v", n.Name, want)
}

func (j *Justifier) requireAll(nodes []*tpgnet.Node, vals []bool, req *required) ([]*tpgnet.Node, error) {
	next := make([]*tpgnet.Node, 0, len(nodes))
	for i, n := range nodes {
		if err := req.set(n, vals[i]); err != nil {
			return nil, err
		}
		next = append(next, n)
	}
	return next, nil
}
