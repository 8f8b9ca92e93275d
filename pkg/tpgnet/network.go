package tpgnet

import (
	"fmt"

	"github.com/vlsitest/fanatpg/pkg/gatetype"
)

// LogicNodeSpec describes one to-be-built logic node before dense ids are
// assigned: a gate type plus references to its fanin nodes by name, the way
// a bench-format parser naturally produces them (see pkg/benchio).
type LogicNodeSpec struct {
	Name     string
	Kind     gatetype.Kind
	Expr     *gatetype.Expr // set only when Kind == gatetype.KindComplex
	FaninIDs []string
}

// NetlistInput is the parser-facing, name-addressed netlist description
// TpgNetwork.Build consumes. It mirrors the shape pkg/benchio produces from
// a .bench or ISCAS89 file: primary inputs/outputs by name, DFFs as
// (output-name, input-name) pairs, and logic gates in any order (Build
// topologically sorts them).
type NetlistInput struct {
	Name    string
	PIs     []string
	POs     []string
	DFFs    []DFFSpec
	Logic   []LogicNodeSpec
}

// DFFSpec is one scan flip-flop: Q feeds the PPI side, D is driven by the
// PPO side.
type DFFSpec struct {
	QName string
	DName string
}

// TpgNetwork is the complete, immutable network model built from a
// NetlistInput: a dense-id node arena plus the derived PI/PPI/PO/PPO views,
// FFR/MFFC partition, and collapsed fault list.
type TpgNetwork struct {
	Mgr   *gatetype.Mgr
	Name  string
	nodes []*Node

	pis  []*Node
	ppis []*Node
	pos  []*Node
	ppos []*Node
	dffs []*Node

	ffrRoots  []*Node
	mffcRoots []*Node

	allFaults []*Fault
	repFaults []*Fault

	allTransFaults []*Fault
	repTransFaults []*Fault

	byName map[string]*Node
}

// Nodes returns every node in dense-id order.
func (net *TpgNetwork) Nodes() []*Node { return net.nodes }

// Node looks up a node by its dense id.
func (net *TpgNetwork) Node(id int) *Node { return net.nodes[id] }

// NodeByName looks up a node by its netlist name.
func (net *TpgNetwork) NodeByName(name string) (*Node, bool) {
	n, ok := net.byName[name]
	return n, ok
}

func (net *TpgNetwork) PIs() []*Node  { return net.pis }
func (net *TpgNetwork) PPIs() []*Node { return net.ppis }
func (net *TpgNetwork) POs() []*Node  { return net.pos }
func (net *TpgNetwork) PPOs() []*Node { return net.ppos }
func (net *TpgNetwork) DFFs() []*Node { return net.dffs }

// FFRRoots returns every FFR root node, in dense-id order.
func (net *TpgNetwork) FFRRoots() []*Node { return net.ffrRoots }

// MFFCRoots returns every MFFC root node, in dense-id order.
func (net *TpgNetwork) MFFCRoots() []*Node { return net.mffcRoots }

// Build constructs a TpgNetwork from a parsed NetlistInput in ten steps:
// gate type registration, dense id allocation in PI/PPI -> logic -> PO/PPO
// order, wide-XOR/XNOR cascade unfolding, fanout list population with a
// reciprocity check, reverse-BFS data-side marking, output2_list ordering by
// transitive-fanin size, immediate-dominator computation, and FFR/MFFC
// partitioning.
func Build(in *NetlistInput) (*TpgNetwork, error) {
	net := &TpgNetwork{
		Mgr:    gatetype.NewMgr(),
		Name:   in.Name,
		byName: map[string]*Node{},
	}

	nextID := 0
	newNode := func(name string, role Role) *Node {
		n := &Node{ID: nextID, Name: name, Role: role}
		nextID++
		net.nodes = append(net.nodes, n)
		net.byName[name] = n
		return n
	}

	// Step 1-2: allocate PI and PPI (DFF-output) nodes first; every logic
	// node's fanins must already exist when the node is created.
	for _, name := range in.PIs {
		n := newNode(name, RolePI)
		n.InputID = len(net.pis)
		net.pis = append(net.pis, n)
	}
	for _, d := range in.DFFs {
		n := newNode(d.QName, RolePPI)
		n.InputID = len(net.ppis)
		net.ppis = append(net.ppis, n)
		net.dffs = append(net.dffs, n)
	}

	// Step 3: expand complex-expression gates into trees of primitive gates,
	// then any wide XOR/XNOR into a binary cascade, before topological
	// placement. After this every node carries a primitive with a
	// well-defined control-value table, which the FFR propagation condition
	// and the fault-collapsing rules both rely on.
	specs := unfoldWideXor(expandComplex(net.Mgr, in.Logic))

	if err := topoPlaceLogic(net, specs, newNode); err != nil {
		return nil, err
	}

	// Step 4: allocate one PO node per output port, after all logic so the
	// dense ids stay topological. An output is its own node with a single
	// fanin (its driver) and a BUFF gate type, never a tag on the driver: a
	// signal can be tapped as an output and still fan out into more logic,
	// and the two uses carry distinct faults.
	for i, name := range in.POs {
		src, ok := net.byName[name]
		if !ok {
			return nil, fmt.Errorf("tpgnet: PO %q has no driver", name)
		}
		n := newNode(fmt.Sprintf("%s$po%d", name, i), RolePO)
		n.GateType = net.Mgr.Simple(gatetype.KindBuff, 1)
		n.OutputID = i
		n.Fanins = []*Node{src}
		src.Fanouts = append(src.Fanouts, n)
		net.pos = append(net.pos, n)
	}

	// Step 5: allocate the PPO (DFF-input) nodes, linked back to their PPI
	// twin.
	for i, d := range in.DFFs {
		src, ok := net.byName[d.DName]
		if !ok {
			return nil, fmt.Errorf("tpgnet: DFF input %q has no driver", d.DName)
		}
		n := newNode(fmt.Sprintf("%s$ppo%d", d.DName, i), RolePPO)
		n.GateType = net.Mgr.Simple(gatetype.KindBuff, 1)
		n.OutputID = len(in.POs) + i
		n.DFFID = i
		n.Fanins = []*Node{src}
		src.Fanouts = append(src.Fanouts, n)
		n.AltNode = net.ppis[i]
		net.ppis[i].AltNode = n
		net.ppos = append(net.ppos, n)
	}

	if err := checkReciprocalFanout(net); err != nil {
		return nil, err
	}

	markDataSide(net)
	orderOutput2(net)
	computeImmediateDominators(net)
	partitionFFR(net)
	partitionMFFC(net)
	net.buildFaultList()
	net.buildTransitionFaultList()

	return net, nil
}

// expandComplex rewrites every complex-expression spec into primitive-gate
// specs, one gate per operator. Expressions that analyze down to a single
// primitive keep their one-gate form (mgr.NewType folds those); everything
// else gets a fresh internal signal per operator, the root operator taking
// the spec's own name.
func expandComplex(mgr *gatetype.Mgr, specs []LogicNodeSpec) []LogicNodeSpec {
	var out []LogicNodeSpec
	for _, s := range specs {
		if s.Kind != gatetype.KindComplex {
			out = append(out, s)
			continue
		}
		if gt := mgr.NewType(len(s.FaninIDs), s.Expr); gt.Kind != gatetype.KindComplex {
			out = append(out, LogicNodeSpec{Name: s.Name, Kind: gt.Kind, FaninIDs: s.FaninIDs})
			continue
		}

		ctr := 0
		fresh := func() string {
			ctr++
			return fmt.Sprintf("%s$x%d", s.Name, ctr)
		}
		opKind := func(k gatetype.ExprKind) gatetype.Kind {
			switch k {
			case gatetype.ExprAnd:
				return gatetype.KindAnd
			case gatetype.ExprOr:
				return gatetype.KindOr
			default:
				return gatetype.KindXor
			}
		}

		var emit func(e *gatetype.Expr, name string) string
		emit = func(e *gatetype.Expr, name string) string {
			switch e.Kind {
			case gatetype.ExprLiteral:
				sig := s.FaninIDs[e.Var]
				if name == "" {
					return sig
				}
				out = append(out, LogicNodeSpec{Name: name, Kind: gatetype.KindBuff, FaninIDs: []string{sig}})
				return name
			case gatetype.ExprConst0, gatetype.ExprConst1:
				if name == "" {
					name = fresh()
				}
				k := gatetype.KindC0
				if e.Kind == gatetype.ExprConst1 {
					k = gatetype.KindC1
				}
				out = append(out, LogicNodeSpec{Name: name, Kind: k})
				return name
			case gatetype.ExprNot:
				if name == "" {
					name = fresh()
				}
				out = append(out, LogicNodeSpec{Name: name, Kind: gatetype.KindNot, FaninIDs: []string{emit(e.Children[0], "")}})
				return name
			default:
				if name == "" {
					name = fresh()
				}
				ins := make([]string, len(e.Children))
				for i, c := range e.Children {
					ins[i] = emit(c, "")
				}
				out = append(out, LogicNodeSpec{Name: name, Kind: opKind(e.Kind), FaninIDs: ins})
				return name
			}
		}
		emit(s.Expr, s.Name)
	}
	return out
}

// unfoldWideXor rewrites any XOR/XNOR spec with more than two fanins into a
// left-leaning cascade of binary XOR gates feeding a final XNOR stage when
// the original gate was negated, the standard way multi-input XOR/XNOR gates
// get unfolded to binary form.
func unfoldWideXor(specs []LogicNodeSpec) []LogicNodeSpec {
	var out []LogicNodeSpec
	for _, s := range specs {
		if (s.Kind != gatetype.KindXor && s.Kind != gatetype.KindXnor) || len(s.FaninIDs) <= 2 {
			out = append(out, s)
			continue
		}
		acc := s.FaninIDs[0]
		for i := 1; i < len(s.FaninIDs)-1; i++ {
			tmp := fmt.Sprintf("%s$xor%d", s.Name, i)
			out = append(out, LogicNodeSpec{Name: tmp, Kind: gatetype.KindXor, FaninIDs: []string{acc, s.FaninIDs[i]}})
			acc = tmp
		}
		last := s.FaninIDs[len(s.FaninIDs)-1]
		out = append(out, LogicNodeSpec{Name: s.Name, Kind: s.Kind, FaninIDs: []string{acc, last}})
	}
	return out
}

// topoPlaceLogic assigns dense ids to every logic-gate spec in topological
// order (Kahn's algorithm over the fanin name graph), registering each
// gate's GateType along the way.
func topoPlaceLogic(net *TpgNetwork, specs []LogicNodeSpec, newNode func(string, Role) *Node) error {
	byName := make(map[string]*LogicNodeSpec, len(specs))
	indeg := make(map[string]int, len(specs))
	for i := range specs {
		byName[specs[i].Name] = &specs[i]
	}
	for _, s := range specs {
		for _, fi := range s.FaninIDs {
			if _, isLogic := byName[fi]; isLogic {
				indeg[s.Name]++
			}
		}
	}

	ready := make([]string, 0, len(specs))
	for _, s := range specs {
		if indeg[s.Name] == 0 {
			ready = append(ready, s.Name)
		}
	}

	placed := map[string]bool{}
	consumers := map[string][]string{}
	for _, s := range specs {
		for _, fi := range s.FaninIDs {
			if _, isLogic := byName[fi]; isLogic {
				consumers[fi] = append(consumers[fi], s.Name)
			}
		}
	}

	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		if placed[name] {
			continue
		}
		s := byName[name]
		n := newNode(s.Name, RoleLogic)
		var fanins []*Node
		for _, fi := range s.FaninIDs {
			fn, ok := net.byName[fi]
			if !ok {
				return fmt.Errorf("tpgnet: gate %q references undefined fanin %q (topological cycle or missing signal)", s.Name, fi)
			}
			fanins = append(fanins, fn)
		}
		n.Fanins = fanins
		for _, fn := range fanins {
			fn.Fanouts = append(fn.Fanouts, n)
		}
		if s.Kind == gatetype.KindComplex {
			n.GateType = net.Mgr.NewType(len(fanins), s.Expr)
		} else {
			n.GateType = net.Mgr.Simple(s.Kind, len(fanins))
		}
		placed[name] = true

		for _, c := range consumers[name] {
			indeg[c]--
			if indeg[c] == 0 {
				ready = append(ready, c)
			}
		}
	}

	if len(placed) != len(specs) {
		return fmt.Errorf("tpgnet: logic network contains a combinational cycle (%d of %d gates placed)", len(placed), len(specs))
	}
	return nil
}

// checkReciprocalFanout verifies that for every node, every fanin lists it
// back as a fanout, a sanity check run once after wiring gates together.
func checkReciprocalFanout(net *TpgNetwork) error {
	for _, n := range net.nodes {
		for _, fi := range n.Fanins {
			found := false
			for _, fo := range fi.Fanouts {
				if fo == n {
					found = true
					break
				}
			}
			if !found {
				return fmt.Errorf("tpgnet: fanout list of %q missing reciprocal edge to %q", fi.Name, n.Name)
			}
		}
	}
	return nil
}

// markDataSide performs a reverse BFS from every PO/PPO, flagging every node
// that actually feeds an output as data-side; pure clock/reset/control trees
// that never reach an output are excluded from fault enumeration.
func markDataSide(net *TpgNetwork) {
	queue := make([]*Node, 0, len(net.pos)+len(net.ppos))
	for _, n := range net.pos {
		n.isDataSide = true
		queue = append(queue, n)
	}
	for _, n := range net.ppos {
		n.isDataSide = true
		queue = append(queue, n)
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, fi := range n.Fanins {
			if !fi.isDataSide {
				fi.isDataSide = true
				queue = append(queue, fi)
			}
		}
	}
}

// orderOutput2 assigns OutputID2 to every PO/PPO sorted by ascending
// transitive-fanin size; a PropCone lists its observed outputs in this
// order.
func orderOutput2(net *TpgNetwork) {
	outs := append(append([]*Node{}, net.pos...), net.ppos...)
	sizeOf := make(map[*Node]int, len(outs))
	for _, o := range outs {
		seen := map[*Node]bool{}
		var walk func(n *Node)
		walk = func(n *Node) {
			if seen[n] {
				return
			}
			seen[n] = true
			for _, fi := range n.Fanins {
				walk(fi)
			}
		}
		walk(o)
		sizeOf[o] = len(seen)
	}
	for i := 0; i < len(outs); i++ {
		for j := i + 1; j < len(outs); j++ {
			if sizeOf[outs[j]] < sizeOf[outs[i]] {
				outs[i], outs[j] = outs[j], outs[i]
			}
		}
	}
	for i, o := range outs {
		o.OutputID2 = i
	}
}

// computeImmediateDominators computes, for every data-side node, its unique
// immediate dominator on the fanout side using the dense-id parent-pointer
// intersection walk: because every fanout of n has an id strictly greater
// than n's, processing nodes from highest id to lowest lets each node's
// dominator be derived purely from its already-resolved fanouts, without an
// iterative fixpoint.
func computeImmediateDominators(net *TpgNetwork) {
	idom := make(map[*Node]*Node, len(net.nodes))
	for i := len(net.nodes) - 1; i >= 0; i-- {
		n := net.nodes[i]
		if !n.isDataSide {
			continue
		}
		if n.IsObservedOutput() {
			n.ImmDom = nil
			continue
		}
		if len(n.Fanouts) == 0 {
			n.ImmDom = nil
			continue
		}
		var cur *Node = n.Fanouts[0]
		for _, fo := range n.Fanouts[1:] {
			cur = intersectDom(idom, cur, fo)
			if cur == nil {
				break
			}
		}
		idom[n] = cur
		n.ImmDom = cur
	}
}

// intersectDom walks two fanout-side chains of dominators toward the
// outputs until they meet, the idiom Lengauer-Tarjan-style dominance
// algorithms use, specialised here to a DAG with dense ids instead of a
// depth-first spanning tree.
func intersectDom(idom map[*Node]*Node, a, b *Node) *Node {
	seen := map[*Node]bool{}
	for n := a; n != nil; n = idom[n] {
		seen[n] = true
		if n.IsObservedOutput() {
			break
		}
	}
	for n := b; n != nil; n = idom[n] {
		if seen[n] {
			return n
		}
		if n.IsObservedOutput() {
			break
		}
	}
	return nil
}

// partitionFFR assigns every data-side node its FFR root: the nearest
// fanout-side ancestor (possibly itself) with fanout count != 1 or which is
// itself an output.
func partitionFFR(net *TpgNetwork) {
	for i := len(net.nodes) - 1; i >= 0; i-- {
		n := net.nodes[i]
		if !n.isDataSide {
			continue
		}
		if n.IsFFRRoot() {
			n.FFRRoot = n
			net.ffrRoots = append(net.ffrRoots, n)
			continue
		}
		n.FFRRoot = n.Fanouts[0].FFRRoot
	}
}

// partitionMFFC assigns every data-side node its MFFC root via the immediate
// dominator chain computed above: the MFFC root is the nearest ancestor with
// no unique dominator (ImmDom == nil), i.e. the nearest FFR/MFFC boundary
// where the fanout-free property the dominator relation encodes breaks down.
func partitionMFFC(net *TpgNetwork) {
	for i := len(net.nodes) - 1; i >= 0; i-- {
		n := net.nodes[i]
		if !n.isDataSide {
			continue
		}
		if n.IsMFFCRoot() {
			n.MFFCRoot = n
			net.mffcRoots = append(net.mffcRoots, n)
			continue
		}
		n.MFFCRoot = n.ImmDom.MFFCRoot
	}
}
