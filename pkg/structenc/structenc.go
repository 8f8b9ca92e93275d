// Package structenc builds the CNF that represents a network's good
// behaviour plus, per cone root, a faulty-circuit shadow restricted to a
// propagation cone. It is the Go counterpart of druid's StructEnc/GateEnc/
// PropCone trio: one shared "good machine" encoding per network, one cone
// CNF per FFR (or MFFC) root built once and reused, and per-fault selection
// done purely through assumption literals.
package structenc

import (
	"fmt"

	"github.com/vlsitest/fanatpg/pkg/gatetype"
	"github.com/vlsitest/fanatpg/pkg/satiface"
	"github.com/vlsitest/fanatpg/pkg/tpgnet"
)

// GateEnc Tseitin-encodes each node's function into a solver against an
// arbitrary variable table (the good-value table for the whole network, or
// a cone's faulty-value table restricted to its region), mirroring druid's
// GateEnc class.
type GateEnc struct {
	solver satiface.Solver
	varOf  map[*tpgnet.Node]satiface.Lit
	trueLit  satiface.Lit
	haveTrue bool
}

// NewGateEnc builds an encoder that reads/writes literals through varOf.
func NewGateEnc(s satiface.Solver, varOf map[*tpgnet.Node]satiface.Lit) *GateEnc {
	return &GateEnc{solver: s, varOf: varOf}
}

func (g *GateEnc) constTrue() satiface.Lit {
	if !g.haveTrue {
		v := g.solver.NewVar()
		g.trueLit = satiface.NewLit(v, true)
		g.solver.AddClause(g.trueLit)
		g.haveTrue = true
	}
	return g.trueLit
}

func (g *GateEnc) constFalse() satiface.Lit { return g.constTrue().Negate() }

// MakeCNF asserts varOf[n] <-> n's gate function over varOf[fanins], using
// override (if non-nil) in place of varOf for one specific fanin position.
func (g *GateEnc) MakeCNF(n *tpgnet.Node, override map[int]satiface.Lit) {
	out := g.varOf[n]
	ins := make([]satiface.Lit, len(n.Fanins))
	for i, fi := range n.Fanins {
		if override != nil {
			if l, ok := override[i]; ok {
				ins[i] = l
				continue
			}
		}
		ins[i] = g.varOf[fi]
	}
	g.encodeGate(n.GateType, out, ins)
}

func (g *GateEnc) encodeGate(gt *gatetype.GateType, out satiface.Lit, ins []satiface.Lit) {
	switch gt.Kind {
	case gatetype.KindC0:
		g.solver.AddClause(out.Negate())
	case gatetype.KindC1:
		g.solver.AddClause(out)
	case gatetype.KindBuff:
		g.addEquiv(out, ins[0])
	case gatetype.KindNot:
		g.addEquiv(out, ins[0].Negate())
	case gatetype.KindAnd:
		g.solver.AddAndGate(out, ins...)
	case gatetype.KindNand:
		g.solver.AddAndGate(out.Negate(), ins...)
	case gatetype.KindOr:
		g.solver.AddOrGate(out, ins...)
	case gatetype.KindNor:
		g.solver.AddOrGate(out.Negate(), ins...)
	case gatetype.KindXor:
		g.encodeXorChain(out, ins)
	case gatetype.KindXnor:
		g.encodeXorChain(out.Negate(), ins)
	default:
		res := g.encodeExpr(gt.Expr, ins)
		g.addEquiv(out, res)
	}
}

func (g *GateEnc) addEquiv(a, b satiface.Lit) {
	g.solver.AddClause(a.Negate(), b)
	g.solver.AddClause(a, b.Negate())
}

func (g *GateEnc) encodeXorChain(out satiface.Lit, ins []satiface.Lit) {
	if len(ins) == 2 {
		g.solver.AddXorGate(out, ins[0], ins[1])
		return
	}
	acc := ins[0]
	for _, in := range ins[1 : len(ins)-1] {
		v := g.solver.NewVar()
		nv := satiface.NewLit(v, true)
		g.solver.AddXorGate(nv, acc, in)
		acc = nv
	}
	g.solver.AddXorGate(out, acc, ins[len(ins)-1])
}

func (g *GateEnc) encodeExpr(e *gatetype.Expr, ins []satiface.Lit) satiface.Lit {
	switch e.Kind {
	case gatetype.ExprConst0:
		return g.constFalse()
	case gatetype.ExprConst1:
		return g.constTrue()
	case gatetype.ExprLiteral:
		return ins[e.Var]
	case gatetype.ExprNot:
		return g.encodeExpr(e.Children[0], ins).Negate()
	case gatetype.ExprAnd:
		v := g.solver.NewVar()
		out := satiface.NewLit(v, true)
		childLits := make([]satiface.Lit, len(e.Children))
		for i, c := range e.Children {
			childLits[i] = g.encodeExpr(c, ins)
		}
		g.solver.AddAndGate(out, childLits...)
		return out
	case gatetype.ExprOr:
		v := g.solver.NewVar()
		out := satiface.NewLit(v, true)
		childLits := make([]satiface.Lit, len(e.Children))
		for i, c := range e.Children {
			childLits[i] = g.encodeExpr(c, ins)
		}
		g.solver.AddOrGate(out, childLits...)
		return out
	case gatetype.ExprXor:
		v := g.solver.NewVar()
		out := satiface.NewLit(v, true)
		childLits := make([]satiface.Lit, len(e.Children))
		for i, c := range e.Children {
			childLits[i] = g.encodeExpr(c, ins)
		}
		g.encodeXorChain(out, childLits)
		return out
	default:
		return g.constFalse()
	}
}

// StructEnc owns one SAT instance plus the good-value variables shared by
// every cone built against it, exactly as druid's StructEnc shares one
// solver and gvar_map across all of a network's PropCones.
type StructEnc struct {
	Net    *tpgnet.TpgNetwork
	Solver satiface.Solver
	gvar   map[*tpgnet.Node]satiface.Lit

	// prevGvar is the launch-time ("time t-1") good-machine variable map a
	// transition-delay fault's activation condition needs (spec §4.4: "a
	// further prev_var(n) map for time t-1 exists on the relevant TFI").
	// Built lazily on first use, since most runs never see a transition
	// fault and the extra per-node variable/clause cost isn't worth
	// carrying otherwise.
	prevGvar map[*tpgnet.Node]satiface.Lit
}

// New builds the good-machine CNF for the whole network against s.
func New(net *tpgnet.TpgNetwork, s satiface.Solver) *StructEnc {
	se := &StructEnc{Net: net, Solver: s, gvar: make(map[*tpgnet.Node]satiface.Lit, len(net.Nodes()))}
	for _, n := range net.Nodes() {
		se.gvar[n] = satiface.NewLit(s.NewVar(), true)
	}
	enc := NewGateEnc(s, se.gvar)
	for _, n := range net.Nodes() {
		if n.Role == tpgnet.RolePI || n.Role == tpgnet.RolePPI {
			continue
		}
		enc.MakeCNF(n, nil)
	}
	return se
}

// Gvar returns the good-value literal for node n.
func (se *StructEnc) Gvar(n *tpgnet.Node) satiface.Lit { return se.gvar[n] }

// ensurePrevFrame builds the launch-time good-machine CNF the first time a
// transition-delay fault needs it: one fresh literal per node, gate CNF
// asserted exactly like the current-frame copy (PI/PPI left as free
// variables), plus the DFF latch-equality clause tying each PPI's
// current-frame value to its own DFF input node's launch-time value
// (n.AltNode links a DFF's Q-side PPI to its D-side PPO). This is the
// two-frame structure druid's StructEnc builds via make_tfi_var/make_tfi_cnf
// at time 0; built for the whole network rather than lazily per reachable
// TFI, since a PropCone only ever needs one node's launch-time value (the
// transition fault's own site) and building the rest costs little next to
// the correctness risk of an incremental, order-sensitive partial build.
func (se *StructEnc) ensurePrevFrame() {
	if se.prevGvar != nil {
		return
	}
	s := se.Solver
	se.prevGvar = make(map[*tpgnet.Node]satiface.Lit, len(se.Net.Nodes()))
	for _, n := range se.Net.Nodes() {
		se.prevGvar[n] = satiface.NewLit(s.NewVar(), true)
	}
	enc := NewGateEnc(s, se.prevGvar)
	for _, n := range se.Net.Nodes() {
		if n.Role == tpgnet.RolePI || n.Role == tpgnet.RolePPI {
			continue
		}
		enc.MakeCNF(n, nil)
	}
	for _, ppi := range se.Net.PPIs() {
		if ppi.AltNode == nil {
			continue
		}
		cur := se.gvar[ppi]
		launch := se.prevGvar[ppi.AltNode]
		s.AddClause(cur.Negate(), launch)
		s.AddClause(cur, launch.Negate())
	}
}

// PrevGvar returns n's launch-time ("time t-1") good-machine literal,
// building the launch-time CNF on first use.
func (se *StructEnc) PrevGvar(n *tpgnet.Node) satiface.Lit {
	se.ensurePrevFrame()
	return se.prevGvar[n]
}

// ConeKind selects the granularity a PropCone is built at.
type ConeKind int

const (
	// ConeSimple builds one cone per FFR root (spec §4.4's SimplePropCone):
	// the root's faulty value is the complement of its good value, which a
	// fault's FFR propagation condition makes true of the real faulty
	// circuit.
	ConeSimple ConeKind = iota
	// ConeMffc builds one cone per MFFC root (spec §4.4's MffcPropCone),
	// with one control literal per contained FFR: asserting cvar[i] injects
	// a difference at exactly the i-th FFR root, so every fault in the MFFC
	// shares a single cone CNF.
	ConeMffc
)

// PropCone is the faulty-machine and D-chain CNF for one cone root, built
// once and shared by every fault whose FFR (or MFFC) the root heads. Faults
// are selected per Solve call through FaultAssumptions; no clause is ever
// added per fault.
type PropCone struct {
	se   *StructEnc
	kind ConeKind
	root *tpgnet.Node

	// seeds are the FFR roots a difference can be injected at: the root
	// itself for ConeSimple, every contained FFR root for ConeMffc.
	seeds      []*tpgnet.Node
	nodeList   []*tpgnet.Node
	outputList []*tpgnet.Node
	isEnd      map[*tpgnet.Node]bool

	fvar map[*tpgnet.Node]satiface.Lit
	dvar map[*tpgnet.Node]satiface.Lit
	cvar map[*tpgnet.Node]satiface.Lit // per seed, ConeMffc only
}

// BuildPropCone constructs and asserts the cone CNF rooted at root: an FFR
// root for ConeSimple, an MFFC root for ConeMffc.
func BuildPropCone(se *StructEnc, root *tpgnet.Node, kind ConeKind) *PropCone {
	pc := &PropCone{
		se:    se,
		kind:  kind,
		root:  root,
		isEnd: make(map[*tpgnet.Node]bool),
		fvar:  make(map[*tpgnet.Node]satiface.Lit),
		dvar:  make(map[*tpgnet.Node]satiface.Lit),
		cvar:  make(map[*tpgnet.Node]satiface.Lit),
	}

	if kind == ConeMffc {
		for _, n := range se.Net.Nodes() {
			if n.IsDataSide() && n.FFRRoot == n && n.MFFCRoot == root {
				pc.seeds = append(pc.seeds, n)
			}
		}
	} else {
		pc.seeds = []*tpgnet.Node{root}
	}

	pc.collectTFO()
	pc.assertCNF()
	return pc
}

// collectTFO walks the seeds' transitive fanout, stopping only at a true
// observed output (a real PO or PPO/DFF input, n.IsObservedOutput()). FFR
// and MFFC root-ness only picks where cones start, never where this walk
// ends: an FFR or MFFC root in the middle of the network is not an
// observation point, and the D-chain has to run all the way out to a real
// output for the detection clause (spec §4.4's "for every PPO o in the
// cone") to mean anything.
func (pc *PropCone) collectTFO() {
	visited := make(map[*tpgnet.Node]bool, len(pc.seeds))
	queue := make([]*tpgnet.Node, 0, len(pc.seeds))
	for _, s := range pc.seeds {
		if !visited[s] {
			visited[s] = true
			queue = append(queue, s)
		}
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		pc.nodeList = append(pc.nodeList, n)
		if n.IsObservedOutput() {
			pc.isEnd[n] = true
			pc.outputList = append(pc.outputList, n)
			continue
		}
		for _, fo := range n.Fanouts {
			if !fo.IsDataSide() || visited[fo] {
				continue
			}
			visited[fo] = true
			queue = append(queue, fo)
		}
	}

	for i := 0; i < len(pc.nodeList); i++ {
		for j := i + 1; j < len(pc.nodeList); j++ {
			if pc.nodeList[j].ID < pc.nodeList[i].ID {
				pc.nodeList[i], pc.nodeList[j] = pc.nodeList[j], pc.nodeList[i]
			}
		}
	}
	for i := 0; i < len(pc.outputList); i++ {
		for j := i + 1; j < len(pc.outputList); j++ {
			if pc.outputList[j].OutputID2 < pc.outputList[i].OutputID2 {
				pc.outputList[i], pc.outputList[j] = pc.outputList[j], pc.outputList[i]
			}
		}
	}
}

func (pc *PropCone) fvarOf(n *tpgnet.Node) satiface.Lit {
	if l, ok := pc.fvar[n]; ok {
		return l
	}
	return pc.se.Gvar(n)
}

func (pc *PropCone) faultyIns(n *tpgnet.Node) []satiface.Lit {
	ins := make([]satiface.Lit, len(n.Fanins))
	for i, fi := range n.Fanins {
		ins[i] = pc.fvarOf(fi)
	}
	return ins
}

func (pc *PropCone) hasRegionFanin(n *tpgnet.Node) bool {
	for _, fi := range n.Fanins {
		if _, ok := pc.fvar[fi]; ok {
			return true
		}
	}
	return false
}

// assertCNF builds the cone's permanent CNF: faulty-value variables over the
// region, the injection structure at each seed, the D-chain, and the
// detection clause. Nothing here is fault-specific; a fault's activation,
// its launch-frame condition, and its seed selection all arrive as
// assumptions (FaultAssumptions), so one fault's requirements never bind a
// later fault's solve.
func (pc *PropCone) assertCNF() {
	s := pc.se.Solver
	for _, n := range pc.nodeList {
		pc.fvar[n] = satiface.NewLit(s.NewVar(), true)
		pc.dvar[n] = satiface.NewLit(s.NewVar(), true)
	}
	if pc.kind == ConeMffc {
		for _, n := range pc.seeds {
			pc.cvar[n] = satiface.NewLit(s.NewVar(), true)
		}
	}

	enc := NewGateEnc(s, pc.fvar)
	for _, n := range pc.nodeList {
		if pc.kind == ConeSimple && n == pc.root {
			// A sensitized FFR's root holds the complement of its good
			// value; the FFR propagation condition assumed per fault makes
			// this true of the real faulty circuit.
			enc.addEquiv(pc.fvar[n], pc.se.Gvar(n).Negate())
			continue
		}
		if cv, isSeed := pc.cvar[n]; isSeed {
			// XOR injection at a contained FFR root: cvar off passes the
			// computed value through, cvar on flips it.
			base := pc.se.Gvar(n)
			if pc.hasRegionFanin(n) {
				tmp := satiface.NewLit(s.NewVar(), true)
				enc.encodeGate(n.GateType, tmp, pc.faultyIns(n))
				base = tmp
			}
			s.AddXorGate(pc.fvar[n], base, cv)
			continue
		}
		enc.encodeGate(n.GateType, pc.fvar[n], pc.faultyIns(n))
	}

	for _, n := range pc.nodeList {
		pc.assertDchain(n)
	}

	if !pc.isEnd[pc.root] {
		cl := make([]satiface.Lit, 0, len(pc.outputList)+1)
		cl = append(cl, pc.dvar[pc.root].Negate())
		for _, o := range pc.outputList {
			cl = append(cl, pc.dvar[o])
		}
		s.AddClause(cl...)
	}
}

func (pc *PropCone) assertDchain(n *tpgnet.Node) {
	s := pc.se.Solver
	glit := pc.se.Gvar(n)
	flit := pc.fvarOf(n)
	dlit := pc.dvar[n]

	s.AddClause(glit.Negate(), flit.Negate(), dlit.Negate())
	s.AddClause(glit, flit, dlit.Negate())

	if pc.isEnd[n] {
		s.AddClause(glit.Negate(), flit, dlit)
		s.AddClause(glit, flit.Negate(), dlit)
		return
	}

	tmp := make([]satiface.Lit, 0, len(n.Fanouts)+1)
	tmp = append(tmp, dlit.Negate())
	for _, fo := range n.Fanouts {
		if d, ok := pc.dvar[fo]; ok {
			tmp = append(tmp, d)
		}
	}
	s.AddClause(tmp...)

	if n.ImmDom != nil {
		if d, ok := pc.dvar[n.ImmDom]; ok {
			s.AddClause(dlit.Negate(), d)
		}
	}
}

// FaultAssumptions returns the assumption literals that select flt on this
// cone for one Solve call: the fault's FFR propagation condition (cond, from
// TpgNetwork.ComputeFfrCond) translated onto the shared good variables, the
// launch-frame activation literal for a transition fault, the per-FFR
// selector polarity for an MFFC cone, and the root's own D-chain literal.
func (pc *PropCone) FaultAssumptions(flt *tpgnet.Fault, cond *tpgnet.FfrCond) []satiface.Lit {
	lits := make([]satiface.Lit, 0, len(cond.Assigns)+len(pc.seeds)+2)
	for _, nv := range cond.Assigns {
		l := pc.se.Gvar(nv.Node)
		if !nv.Val {
			l = l.Negate()
		}
		lits = append(lits, l)
	}

	if flt.Kind == tpgnet.FaultTransition {
		// good_prev(site) = fval: the site still holds the stuck value one
		// frame before capture, or nothing ever transitions and the slow
		// path is never exercised.
		l := pc.se.PrevGvar(flt.Node)
		if flt.Val == tpgnet.FaultVal0 {
			l = l.Negate()
		}
		lits = append(lits, l)
	}

	if pc.kind == ConeMffc {
		if _, ok := pc.cvar[cond.Root]; !ok {
			panic(fmt.Sprintf("structenc: fault %s has FFR root %s outside MFFC cone %s", flt, cond.Root.Name, pc.root.Name))
		}
		for _, seed := range pc.seeds {
			cv := pc.cvar[seed]
			if seed != cond.Root {
				cv = cv.Negate()
			}
			lits = append(lits, cv)
		}
	} else if cond.Root != pc.root {
		panic(fmt.Sprintf("structenc: fault %s has FFR root %s but cone is rooted at %s", flt, cond.Root.Name, pc.root.Name))
	}

	lits = append(lits, pc.dvar[pc.root])
	return lits
}

// Fvar returns the cone's faulty-value literal for node n, falling back to
// the shared good-value literal when n lies outside the region.
func (pc *PropCone) Fvar(n *tpgnet.Node) satiface.Lit { return pc.fvarOf(n) }

// Dvar returns the D-chain (propagation-indicator) literal for node n, if n
// is in the cone.
func (pc *PropCone) Dvar(n *tpgnet.Node) (satiface.Lit, bool) {
	l, ok := pc.dvar[n]
	return l, ok
}

// Root returns the cone's root node.
func (pc *PropCone) Root() *tpgnet.Node { return pc.root }

// Seeds returns the FFR roots this cone can inject a difference at, in
// ascending dense-id order.
func (pc *PropCone) Seeds() []*tpgnet.Node { return pc.seeds }

// NodeList returns every node covered by the cone, in ascending dense-id
// order.
func (pc *PropCone) NodeList() []*tpgnet.Node { return pc.nodeList }

// Enc returns the StructEnc this cone was built against, for reading back
// good-value literals (e.g. from an Extractor).
func (pc *PropCone) Enc() *StructEnc { return pc.se }

func (pc *PropCone) String() string {
	return fmt.Sprintf("PropCone(root=%s, seeds=%d, nodes=%d)", pc.root.Name, len(pc.seeds), len(pc.nodeList))
}

// EstimateCnfSize returns a cheap structural upper bound on the clause count
// this cone's CNF needs: a fixed number of clauses per fanin for each
// node's gate-function encoding (at most ni+1 for AND/OR/NAND/NOR, 4*(ni-1)
// for a chained XOR, 2 for BUFF/NOT), 4 clauses per node for its D-chain
// half, 4 per seed for its injection XOR (2 for ConeSimple's root
// equivalence), plus the detection clause, mirroring druid's
// calc_cnf_size() cross-check of its CNF generation against a structural
// prediction before the solver is invoked.
func (pc *PropCone) EstimateCnfSize() int {
	total := 1 // detection clause
	for _, n := range pc.nodeList {
		total += gateClauseEstimate(n.GateType, len(n.Fanins))
		total += 4
	}
	if pc.kind == ConeMffc {
		total += 4 * len(pc.seeds)
	} else {
		total += 2
	}
	return total
}

func gateClauseEstimate(gt *gatetype.GateType, ni int) int {
	switch gt.Kind {
	case gatetype.KindC0, gatetype.KindC1:
		return 1
	case gatetype.KindBuff, gatetype.KindNot:
		return 2
	case gatetype.KindAnd, gatetype.KindNand, gatetype.KindOr, gatetype.KindNor:
		return ni + 1
	case gatetype.KindXor, gatetype.KindXnor:
		if ni <= 2 {
			return 4
		}
		return 4 * (ni - 1)
	default:
		return 4 * ni
	}
}

// cnfSizeCounter is the narrow surface EstimateCnfSize's result can be
// cross-checked against: the solver's own post-encoding clause count, when
// the configured Solver happens to expose one (the bundled DpllSolver
// does).
type cnfSizeCounter interface {
	NumClauses() int
}

// ActualCnfSize returns the solver's own clause count if it implements
// NumClauses, for comparing against EstimateCnfSize in tests and
// diagnostics.
func (se *StructEnc) ActualCnfSize() (int, bool) {
	c, ok := se.Solver.(cnfSizeCounter)
	if !ok {
		return 0, false
	}
	return c.NumClauses(), true
}
