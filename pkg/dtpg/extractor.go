// Package dtpg is the test generation driver: for every representative
// fault it selects the shared propagation cone of its FFR (or MFFC), asks
// the SAT solver for a witness under the fault's assumption literals,
// extracts a sufficient structural condition from that witness (Extractor),
// justifies it back to a full PI/PPI test vector (Justifier), and dispatches
// the result through a DetectOp chain. It plays the role druid's
// DtpgEngine/DtpgMgr pairing plays, generalized to this module's merged
// tpgnet/structenc packages.
package dtpg

import (
	"github.com/vlsitest/fanatpg/pkg/satiface"
	"github.com/vlsitest/fanatpg/pkg/structenc"
	"github.com/vlsitest/fanatpg/pkg/tpgnet"
	"github.com/vlsitest/fanatpg/pkg/val3"
)

// Extract scans the cone region for the model's sensitization structure,
// recording the good-machine requirements that, together with the fault's
// FFR propagation condition, are sufficient to reproduce the detection:
//
//   - at every sensitized node (faulty value differs from good per model),
//     the good value of every fanin NOT carrying the difference — the
//     side-input condition that keeps the effect from being masked;
//   - at every non-sensitized node some fanin of which differs, the single
//     masking input whose value pins the gate's output (the lowest-id such
//     fanin, for determinism); when no single input pins it (an XOR
//     reconvergence cancelling two differences), every fanin is pinned so
//     the cancellation reproduces exactly.
//
// The fault's own seed (its FFR root) is recorded by value only; activation
// and propagation up to the seed are already covered by the FFR condition
// the driver merges in. The result is a partial assignment over internal
// nodes, not a full PI vector: a Justifier still has to backward-propagate
// it to the primary inputs.
func Extract(pc *structenc.PropCone, flt *tpgnet.Fault, model []bool) tpgnet.AssignList {
	var assign tpgnet.AssignList

	readBool := func(l satiface.Lit) bool {
		v := model[l.Var()]
		if l.Positive() {
			return v
		}
		return !v
	}
	gval := func(n *tpgnet.Node) bool { return readBool(pc.Enc().Gvar(n)) }
	diff := func(n *tpgnet.Node) bool { return readBool(pc.Fvar(n)) != gval(n) }

	record := func(n *tpgnet.Node) {
		if _, found := assign.Has(n); !found {
			assign = assign.Add(n, gval(n))
		}
	}

	seed := flt.FFRRootNode()
	record(seed)

	for _, n := range pc.NodeList() {
		if n == seed {
			continue
		}
		if diff(n) {
			for _, fi := range n.Fanins {
				if !diff(fi) {
					record(fi)
				}
			}
			continue
		}

		anySens := false
		for _, fi := range n.Fanins {
			if diff(fi) {
				anySens = true
				break
			}
		}
		if !anySens {
			continue
		}

		// The fault effect dies at n; pin the reason it dies.
		var mask *tpgnet.Node
		for q, fi := range n.Fanins {
			if diff(fi) {
				continue
			}
			if n.GateType.CVal(q, val3.FromBool(gval(fi))) != val3.X {
				if mask == nil || fi.ID < mask.ID {
					mask = fi
				}
			}
		}
		if mask != nil {
			record(mask)
			continue
		}
		for _, fi := range n.Fanins {
			record(fi)
		}
	}

	return assign
}
