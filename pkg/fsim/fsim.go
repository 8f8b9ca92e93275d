// Package fsim is the bit-parallel fault simulator: a single good-machine
// pass per test pattern, followed by PPSFP (Parallel Pattern Single Fault
// Propagation) rounds that pack up to one machine word's worth of faults
// into parallel lanes of a github.com/bits-and-blooms/bitset and simulate
// them together, the same packed-word idiom druid's Fsim class uses C++
// machine words for.
package fsim

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/vlsitest/fanatpg/pkg/gatetype"
	"github.com/vlsitest/fanatpg/pkg/testvector"
	"github.com/vlsitest/fanatpg/pkg/tpgnet"
	"github.com/vlsitest/fanatpg/pkg/val3"
)

// edgeKey addresses one specific fanin edge of a consumer node, the
// granularity a branch fault is injected at.
type edgeKey struct {
	consumer *tpgnet.Node
	pos      int
}

// Fsim holds one network's good-machine state and drives PPSFP rounds over
// its collapsed fault list.
type Fsim struct {
	net   *tpgnet.TpgNetwork
	lanes int

	good  map[*tpgnet.Node]val3.Val3
	state []val3.Val3

	skip map[*tpgnet.Fault]bool
}

// New builds a simulator for net with the given PPSFP lane width (the
// number of faults simulated together per round; 64 is a typical choice
// when backed by a single machine word).
func New(net *tpgnet.TpgNetwork, lanes int) *Fsim {
	return &Fsim{
		net:  net,
		lanes: lanes,
		good: make(map[*tpgnet.Node]val3.Val3, len(net.Nodes())),
		skip: make(map[*tpgnet.Fault]bool),
	}
}

// Lanes returns the PPSFP batch width this simulator was built with.
func (f *Fsim) Lanes() int { return f.lanes }

// SetSkip marks a fault as already resolved (detected or proven untestable)
// so future PPSFP rounds don't waste a lane on it.
func (f *Fsim) SetSkip(flt *tpgnet.Fault, v bool) { f.skip[flt] = v }

// IsSkipped reports a fault's current skip flag.
func (f *Fsim) IsSkipped(flt *tpgnet.Fault) bool { return f.skip[flt] }

// ClearSkips resets every fault's skip flag to false.
func (f *Fsim) ClearSkips() {
	for k := range f.skip {
		delete(f.skip, k)
	}
}

// GoodValue returns the most recent good-machine simulation's value for n.
func (f *Fsim) GoodValue(n *tpgnet.Node) val3.Val3 { return f.good[n] }

// SetState pins the scan (latch) state used for any PPI a pattern leaves at
// X, the state initialisation hook sequential runs load before applying
// patterns. A nil slice clears it.
func (f *Fsim) SetState(state []val3.Val3) { f.state = state }

// Simulate runs a single 3-valued good-machine pass over the whole network
// for the given pattern, in dense-id (topological) order.
func (f *Fsim) Simulate(tv *testvector.TestVector) {
	for _, n := range f.net.PIs() {
		f.good[n] = tv.PIVal(n.InputID)
	}
	for _, n := range f.net.PPIs() {
		v := tv.PPIVal(n.InputID)
		if v == val3.X && n.InputID < len(f.state) {
			v = f.state[n.InputID]
		}
		f.good[n] = v
	}
	for _, n := range f.net.Nodes() {
		if n.Role == tpgnet.RolePI || n.Role == tpgnet.RolePPI {
			continue
		}
		ins := make([]val3.Val3, len(n.Fanins))
		for i, fi := range n.Fanins {
			ins[i] = f.good[fi]
		}
		f.good[n] = n.GateType.Eval(ins)
	}
}

// CalcWSA computes weighted switching activity between two consecutive
// patterns: every node whose good value differs between prev and next
// contributes 1 (the node's own toggle) plus one per fanout it drives,
// approximating the power cost of that transition propagating further. This
// is the bit-counting companion to PPSFP's bit-parallel pass, optional per
// spec §9(b)'s note that a power-aware sampling variant isn't required, but
// cheap enough over the already-maintained good-value table to keep as a
// real method.
//
// Simulate is called for both patterns in turn, so f's good-value table
// reflects next's simulation afterward, not prev's.
func (f *Fsim) CalcWSA(prev, next *testvector.TestVector) int {
	f.Simulate(prev)
	before := make(map[*tpgnet.Node]val3.Val3, len(f.net.Nodes()))
	for _, n := range f.net.Nodes() {
		before[n] = f.good[n]
	}

	f.Simulate(next)
	wsa := 0
	for _, n := range f.net.Nodes() {
		if before[n] != f.good[n] {
			wsa += 1 + len(n.Fanouts)
		}
	}
	return wsa
}

// SPPFP runs single-pattern fault simulation: one good-machine pass for tv,
// then every un-skipped fault from faults pushed through bit-parallel
// passes in lanes-sized batches, with cb invoked — in fault-id order —
// once per fault whose effect reaches an observed output.
func (f *Fsim) SPPFP(tv *testvector.TestVector, faults []*tpgnet.Fault, cb func(*tpgnet.Fault)) {
	f.Simulate(tv)
	var batch []*tpgnet.Fault
	flush := func() {
		if len(batch) == 0 {
			return
		}
		res := f.PPSFP(nil, batch)
		for _, flt := range batch {
			if res.Detected[flt] {
				cb(flt)
			}
		}
		batch = batch[:0]
	}
	for _, flt := range faults {
		if f.IsSkipped(flt) {
			continue
		}
		batch = append(batch, flt)
		if len(batch) == f.lanes {
			flush()
		}
	}
	flush()
}

// DetectResult is the outcome of one PPSFP round: for every fault in that
// round's batch, whether any observed output differed from the good
// machine.
type DetectResult struct {
	Detected map[*tpgnet.Fault]bool
}

// PPSFP runs Parallel Pattern Single Fault Propagation for the given test
// pattern against a batch of up to f.lanes faults: one good-machine pass
// (already cached from the preceding Simulate call, or re-run here if tv is
// non-nil) followed by a single bit-parallel faulty pass where lane i
// carries faults[i]'s stuck-at injection. Every per-node value is carried as
// a (val, X) bitset pair, the packed generalization of pkg/val3's scalar
// And3/Or3/Xor3 ternary rules (X iff no combination of the non-X inputs
// forces a definite value) — a lane's bit in the X bitset means that lane's
// val bit is meaningless there, mirroring the good machine's own 3-valued
// Simulate pass lane-for-lane.
func (f *Fsim) PPSFP(tv *testvector.TestVector, faults []*tpgnet.Fault) *DetectResult {
	if len(faults) > f.lanes {
		faults = faults[:f.lanes]
	}
	if tv != nil {
		f.Simulate(tv)
	}
	lanes := uint(f.lanes)

	faultyVal := make(map[*tpgnet.Node]*bitset.BitSet, len(f.net.Nodes()))
	faultyX := make(map[*tpgnet.Node]*bitset.BitSet, len(f.net.Nodes()))

	// A fault's stuck-at injection always forces a definite 0/1, never X;
	// nodeForce*/edgeForce* record which lanes are pinned that way and to
	// what value, independent of the X bitsets above.
	nodeForceVal := make(map[*tpgnet.Node]*bitset.BitSet)
	nodeForceMask := make(map[*tpgnet.Node]*bitset.BitSet)
	edgeForceVal := make(map[edgeKey]*bitset.BitSet)
	edgeForceMask := make(map[edgeKey]*bitset.BitSet)

	broadcastVal := func(v val3.Val3) *bitset.BitSet {
		b := bitset.New(lanes)
		if v == val3.One {
			b.FlipRange(0, lanes)
		}
		return b
	}
	broadcastX := func(v val3.Val3) *bitset.BitSet {
		b := bitset.New(lanes)
		if v == val3.X {
			b.FlipRange(0, lanes)
		}
		return b
	}

	for i, flt := range faults {
		stuckOne := flt.Val == tpgnet.FaultVal1
		if !flt.IsBranch() {
			if nodeForceVal[flt.Node] == nil {
				nodeForceVal[flt.Node] = bitset.New(lanes)
				nodeForceMask[flt.Node] = bitset.New(lanes)
			}
			nodeForceMask[flt.Node].Set(uint(i))
			if stuckOne {
				nodeForceVal[flt.Node].Set(uint(i))
			}
			continue
		}
		key := edgeKey{consumer: flt.Consumer(), pos: flt.FaninPos()}
		if edgeForceVal[key] == nil {
			edgeForceVal[key] = bitset.New(lanes)
			edgeForceMask[key] = bitset.New(lanes)
		}
		edgeForceMask[key].Set(uint(i))
		if stuckOne {
			edgeForceVal[key].Set(uint(i))
		}
	}

	applyNodeForce := func(n *tpgnet.Node, rawVal, rawX *bitset.BitSet) (*bitset.BitSet, *bitset.BitSet) {
		mask := nodeForceMask[n]
		if mask == nil {
			return rawVal, rawX
		}
		val := rawVal.Difference(mask).Union(nodeForceVal[n].Intersection(mask))
		x := rawX.Difference(mask)
		return val, x
	}

	for _, n := range f.net.PIs() {
		faultyVal[n], faultyX[n] = applyNodeForce(n, broadcastVal(f.good[n]), broadcastX(f.good[n]))
	}
	for _, n := range f.net.PPIs() {
		faultyVal[n], faultyX[n] = applyNodeForce(n, broadcastVal(f.good[n]), broadcastX(f.good[n]))
	}

	for _, n := range f.net.Nodes() {
		if n.Role == tpgnet.RolePI || n.Role == tpgnet.RolePPI {
			continue
		}
		valIns := make([]*bitset.BitSet, len(n.Fanins))
		xIns := make([]*bitset.BitSet, len(n.Fanins))
		for i, fi := range n.Fanins {
			baseVal, baseX := faultyVal[fi], faultyX[fi]
			key := edgeKey{consumer: n, pos: i}
			if mask := edgeForceMask[key]; mask != nil {
				valIns[i] = baseVal.Difference(mask).Union(edgeForceVal[key].Intersection(mask))
				xIns[i] = baseX.Difference(mask)
			} else {
				valIns[i] = baseVal
				xIns[i] = baseX
			}
		}
		rawVal, rawX := evalGateBits3(n.GateType, valIns, xIns, lanes)
		faultyVal[n], faultyX[n] = applyNodeForce(n, rawVal, rawX)
	}

	diff := bitset.New(lanes)
	observe := func(n *tpgnet.Node) {
		gv := broadcastVal(f.good[n])
		gx := broadcastX(f.good[n])
		bothDefined := gx.Complement().Intersection(faultyX[n].Complement())
		differ := gv.SymmetricDifference(faultyVal[n])
		diff.InPlaceUnion(bothDefined.Intersection(differ))
	}
	for _, n := range f.net.POs() {
		observe(n)
	}
	for _, n := range f.net.PPOs() {
		observe(n)
	}

	res := &DetectResult{Detected: make(map[*tpgnet.Fault]bool, len(faults))}
	for i, flt := range faults {
		res.Detected[flt] = diff.Test(uint(i))
	}
	return res
}

// evalGateBits3 evaluates a gate's ternary function across numbered lanes
// given its fanins' bit-parallel (val, X) pairs, mirroring
// gatetype.GateType.Eval (and pkg/val3's And3/Or3/Xor3 folds) but over whole
// bitsets instead of single Val3s.
func evalGateBits3(gt *gatetype.GateType, valIns, xIns []*bitset.BitSet, lanes uint) (*bitset.BitSet, *bitset.BitSet) {
	switch gt.Kind {
	case gatetype.KindC0:
		return bitset.New(lanes), bitset.New(lanes)
	case gatetype.KindC1:
		b := bitset.New(lanes)
		b.FlipRange(0, lanes)
		return b, bitset.New(lanes)
	case gatetype.KindBuff:
		return valIns[0].Clone(), xIns[0].Clone()
	case gatetype.KindNot:
		return valIns[0].Complement(), xIns[0].Clone()
	case gatetype.KindAnd:
		return and3Bits(valIns, xIns, lanes)
	case gatetype.KindNand:
		v, x := and3Bits(valIns, xIns, lanes)
		return v.Complement(), x
	case gatetype.KindOr:
		return or3Bits(valIns, xIns, lanes)
	case gatetype.KindNor:
		v, x := or3Bits(valIns, xIns, lanes)
		return v.Complement(), x
	case gatetype.KindXor:
		return xor3Bits(valIns, xIns, lanes)
	case gatetype.KindXnor:
		v, x := xor3Bits(valIns, xIns, lanes)
		return v.Complement(), x
	default:
		return evalExprBits3(gt.Expr, valIns, xIns, lanes)
	}
}

// and3Bits folds AND3's rule across lanes: a lane is 0 if any input is 0
// there regardless of the others, else X if any input is X, else 1.
func and3Bits(vals, xs []*bitset.BitSet, lanes uint) (*bitset.BitSet, *bitset.BitSet) {
	anyZero := bitset.New(lanes)
	anyX := bitset.New(lanes)
	for i := range vals {
		isZero := vals[i].Complement().Difference(xs[i])
		anyZero.InPlaceUnion(isZero)
		anyX.InPlaceUnion(xs[i])
	}
	notZero := anyZero.Complement()
	val := notZero.Difference(anyX)
	x := anyX.Intersection(notZero)
	return val, x
}

// or3Bits folds OR3's rule across lanes: a lane is 1 if any input is 1
// there, else X if any input is X, else 0.
func or3Bits(vals, xs []*bitset.BitSet, lanes uint) (*bitset.BitSet, *bitset.BitSet) {
	anyOne := bitset.New(lanes)
	anyX := bitset.New(lanes)
	for i := range vals {
		isOne := vals[i].Difference(xs[i])
		anyOne.InPlaceUnion(isOne)
		anyX.InPlaceUnion(xs[i])
	}
	notOne := anyOne.Complement()
	x := anyX.Intersection(notOne)
	return anyOne.Clone(), x
}

// xor3Bits folds XOR3's rule across lanes: any X input forces X (parity
// can't be resolved), else the lane is the running XOR of the defined bits.
func xor3Bits(vals, xs []*bitset.BitSet, lanes uint) (*bitset.BitSet, *bitset.BitSet) {
	anyX := bitset.New(lanes)
	for _, xb := range xs {
		anyX.InPlaceUnion(xb)
	}
	val := vals[0].Clone()
	for _, v := range vals[1:] {
		val.InPlaceSymmetricDifference(v)
	}
	return val, anyX
}

func evalExprBits3(e *gatetype.Expr, valIns, xIns []*bitset.BitSet, lanes uint) (*bitset.BitSet, *bitset.BitSet) {
	switch e.Kind {
	case gatetype.ExprConst0:
		return bitset.New(lanes), bitset.New(lanes)
	case gatetype.ExprConst1:
		b := bitset.New(lanes)
		b.FlipRange(0, lanes)
		return b, bitset.New(lanes)
	case gatetype.ExprLiteral:
		return valIns[e.Var].Clone(), xIns[e.Var].Clone()
	case gatetype.ExprNot:
		v, x := evalExprBits3(e.Children[0], valIns, xIns, lanes)
		return v.Complement(), x
	case gatetype.ExprAnd:
		vs := make([]*bitset.BitSet, len(e.Children))
		xs := make([]*bitset.BitSet, len(e.Children))
		for i, c := range e.Children {
			vs[i], xs[i] = evalExprBits3(c, valIns, xIns, lanes)
		}
		return and3Bits(vs, xs, lanes)
	case gatetype.ExprOr:
		vs := make([]*bitset.BitSet, len(e.Children))
		xs := make([]*bitset.BitSet, len(e.Children))
		for i, c := range e.Children {
			vs[i], xs[i] = evalExprBits3(c, valIns, xIns, lanes)
		}
		return or3Bits(vs, xs, lanes)
	case gatetype.ExprXor:
		vs := make([]*bitset.BitSet, len(e.Children))
		xs := make([]*bitset.BitSet, len(e.Children))
		for i, c := range e.Children {
			vs[i], xs[i] = evalExprBits3(c, valIns, xIns, lanes)
		}
		return xor3Bits(vs, xs, lanes)
	default:
		return bitset.New(lanes), bitset.New(lanes)
	}
}
