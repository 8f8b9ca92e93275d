package dtpg

import (
	"testing"

	"github.com/vlsitest/fanatpg/pkg/fsim"
	"github.com/vlsitest/fanatpg/pkg/gatetype"
	"github.com/vlsitest/fanatpg/pkg/satiface"
	"github.com/vlsitest/fanatpg/pkg/structenc"
	"github.com/vlsitest/fanatpg/pkg/tpgnet"
)

// repOfStem resolves the representative of the stem fault at the named node.
func repOfStem(t *testing.T, net *tpgnet.TpgNetwork, name string, val tpgnet.FaultVal) *tpgnet.Fault {
	t.Helper()
	n, ok := net.NodeByName(name)
	if !ok {
		t.Fatalf("missing node %q", name)
	}
	for _, f := range net.AllFaults() {
		if f.Node == n && !f.IsBranch() && f.Val == val {
			return f.Representative()
		}
	}
	t.Fatalf("missing stem fault %s/sa%s", name, val)
	return nil
}

// buildFanoutNet puts real work into the extractor's region scan: the fault
// site's FFR root g1 fans out into two further gates before the PO, so the
// model's sensitization structure (which branch carries the difference, what
// masks the other) has to be read back out of the region.
//
//	a --AND(a,b)--> g1 --+--AND(g1,c)--> gB --+
//	                     |                    +--OR(gB,gC)--> out
//	                     +--OR(g1,d)---> gC ---+
func buildFanoutNet(t *testing.T) *tpgnet.TpgNetwork {
	t.Helper()
	net, err := tpgnet.Build(&tpgnet.NetlistInput{
		Name: "fanouty",
		PIs:  []string{"a", "b", "c", "d"},
		POs:  []string{"out"},
		Logic: []tpgnet.LogicNodeSpec{
			{Name: "g1", Kind: gatetype.KindAnd, FaninIDs: []string{"a", "b"}},
			{Name: "gB", Kind: gatetype.KindAnd, FaninIDs: []string{"g1", "c"}},
			{Name: "gC", Kind: gatetype.KindOr, FaninIDs: []string{"g1", "d"}},
			{Name: "out", Kind: gatetype.KindOr, FaninIDs: []string{"gB", "gC"}},
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return net
}

// solveForModel runs one Solve for flt against its shared cone, failing the
// test unless it is SAT, and returns the cone, condition, and model.
func solveForModel(t *testing.T, net *tpgnet.TpgNetwork, se *structenc.StructEnc, flt *tpgnet.Fault) (*structenc.PropCone, *tpgnet.FfrCond, []bool) {
	t.Helper()
	pc := structenc.BuildPropCone(se, flt.FFRRootNode(), structenc.ConeSimple)
	cond, ok := net.ComputeFfrCond(flt)
	if !ok {
		t.Fatalf("FFR condition of %s unexpectedly contradictory", flt)
	}
	status, err := se.Solver.Solve(pc.FaultAssumptions(flt, cond))
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if status != satiface.StatusSAT {
		t.Fatalf("%s should be SAT-testable, got %v", flt, status)
	}
	return pc, cond, se.Solver.Model()
}

func TestExtractRecordsSeedAndSideInputs(t *testing.T) {
	net := buildFanoutNet(t)
	g1, _ := net.NodeByName("g1")
	c, _ := net.NodeByName("c")
	d, _ := net.NodeByName("d")

	flt := repOfStem(t, net, "a", tpgnet.FaultVal0)
	if flt.FFRRootNode() != g1 {
		t.Fatalf("a/sa0's representative should live in g1's FFR, got %v", flt.FFRRootNode().Name)
	}

	solver := satiface.NewDpllSolver(10000)
	se := structenc.New(net, solver)
	pc, _, model := solveForModel(t, net, se, flt)

	assign := Extract(pc, flt, model)

	seedVal, found := assign.Has(g1)
	if !found {
		t.Fatal("expected the fault's FFR root g1 in the extracted assignment")
	}
	if !seedVal {
		t.Error("g1 must be required at 1 to activate a/sa0")
	}

	// Whatever the model chose, c (into gB) and d (into gC) are the only
	// non-differing feeders of the region, and at least one downstream path
	// must have carried the difference to out.
	_, hasC := assign.Has(c)
	_, hasD := assign.Has(d)
	if !hasC && !hasD {
		t.Error("expected at least one of the side inputs c, d recorded along the sensitized region")
	}

	// Extraction reads the witness, it doesn't invent requirements: every
	// recorded value must equal the model's good value.
	for _, nv := range assign {
		lit := se.Gvar(nv.Node)
		got := model[lit.Var()]
		if !lit.Positive() {
			got = !got
		}
		if got != nv.Val {
			t.Errorf("extracted %s=%v but the model says %v", nv.Node.Name, nv.Val, got)
		}
	}
}

func TestExtractedAssignmentJustifiesToDetectingVector(t *testing.T) {
	net := buildFanoutNet(t)

	for _, val := range []tpgnet.FaultVal{tpgnet.FaultVal0, tpgnet.FaultVal1} {
		flt := repOfStem(t, net, "a", val)

		solver := satiface.NewDpllSolver(10000)
		se := structenc.New(net, solver)
		pc, cond, model := solveForModel(t, net, se, flt)

		assign := append(tpgnet.AssignList{}, cond.Assigns...)
		assign = append(assign, Extract(pc, flt, model)...)

		j := NewJustifier(net, Just1)
		tv, err := j.Justify(assign)
		if err != nil {
			t.Fatalf("Justify: %v", err)
		}

		// The round-trip contract: the justified vector re-detects the
		// fault under fault simulation.
		sim := fsim.New(net, 64)
		res := sim.PPSFP(tv, []*tpgnet.Fault{flt})
		if !res.Detected[flt] {
			t.Errorf("justified vector %s fails to re-detect %s in fault simulation", tv.BinStr(), flt)
		}
	}
}
