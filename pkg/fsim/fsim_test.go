package fsim

import (
	"testing"

	"github.com/vlsitest/fanatpg/pkg/gatetype"
	"github.com/vlsitest/fanatpg/pkg/testvector"
	"github.com/vlsitest/fanatpg/pkg/tpgnet"
	"github.com/vlsitest/fanatpg/pkg/val3"
)

func buildAndGateNet(t *testing.T) *tpgnet.TpgNetwork {
	t.Helper()
	net, err := tpgnet.Build(&tpgnet.NetlistInput{
		Name: "and2",
		PIs:  []string{"a", "b"},
		POs:  []string{"g"},
		Logic: []tpgnet.LogicNodeSpec{
			{Name: "g", Kind: gatetype.KindAnd, FaninIDs: []string{"a", "b"}},
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return net
}

func TestGoodSimulation(t *testing.T) {
	net := buildAndGateNet(t)
	f := New(net, 4)
	tv := testvector.New(2, 0)
	tv.SetPI(0, val3.One)
	tv.SetPI(1, val3.One)
	f.Simulate(tv)

	g, _ := net.NodeByName("g")
	if f.GoodValue(g) != val3.One {
		t.Errorf("AND(1,1) good value = %v, want 1", f.GoodValue(g))
	}
}

func TestPPSFPDetectsStuckAtOnSensitizedInput(t *testing.T) {
	net := buildAndGateNet(t)
	f := New(net, 4)
	tv := testvector.New(2, 0)
	tv.SetPI(0, val3.One)
	tv.SetPI(1, val3.One)
	f.Simulate(tv)

	a, _ := net.NodeByName("a")
	var saFault *tpgnet.Fault
	for _, flt := range net.AllFaults() {
		if flt.Node == a && !flt.IsBranch() && flt.Val == tpgnet.FaultVal0 {
			saFault = flt
		}
	}
	if saFault == nil {
		t.Fatal("expected a stuck-at-0 fault on input a")
	}

	res := f.PPSFP(nil, []*tpgnet.Fault{saFault})
	if !res.Detected[saFault] {
		t.Errorf("a/sa0 should be detected by pattern (1,1): forces g to 0 instead of 1")
	}
}

func TestPPSFPMissesStuckAtWhenNotSensitized(t *testing.T) {
	net := buildAndGateNet(t)
	f := New(net, 4)
	tv := testvector.New(2, 0)
	tv.SetPI(0, val3.Zero)
	tv.SetPI(1, val3.One)
	f.Simulate(tv)

	a, _ := net.NodeByName("a")
	var saFault *tpgnet.Fault
	for _, flt := range net.AllFaults() {
		if flt.Node == a && !flt.IsBranch() && flt.Val == tpgnet.FaultVal0 {
			saFault = flt
		}
	}
	res := f.PPSFP(nil, []*tpgnet.Fault{saFault})
	if res.Detected[saFault] {
		t.Errorf("a/sa0 is already the circuit's behaviour when a=0; should not be detected")
	}
}

func TestPPSFPBatchOfFaults(t *testing.T) {
	net := buildAndGateNet(t)
	f := New(net, 8)
	tv := testvector.New(2, 0)
	tv.SetPI(0, val3.One)
	tv.SetPI(1, val3.One)
	f.Simulate(tv)

	res := f.PPSFP(nil, net.RepFaults())
	detectedCount := 0
	for _, d := range res.Detected {
		if d {
			detectedCount++
		}
	}
	if detectedCount == 0 {
		t.Error("pattern (1,1) should detect at least one fault on a 2-input AND gate")
	}
}

// buildOrGateNet is used to show a case and3Bits/or3Bits must get right:
// one input undefined, the other a non-controlling value, so the output is
// genuinely X rather than falling out either side of a 2-valued collapse.
func buildOrGateNet(t *testing.T) *tpgnet.TpgNetwork {
	t.Helper()
	net, err := tpgnet.Build(&tpgnet.NetlistInput{
		Name: "or2",
		PIs:  []string{"a", "b"},
		POs:  []string{"g"},
		Logic: []tpgnet.LogicNodeSpec{
			{Name: "g", Kind: gatetype.KindOr, FaninIDs: []string{"a", "b"}},
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return net
}

func TestPPSFPTreatsUnresolvedXAsNotDetected(t *testing.T) {
	net := buildOrGateNet(t)
	f := New(net, 4)
	tv := testvector.New(2, 0)
	tv.SetPI(0, val3.X)
	tv.SetPI(1, val3.Zero)
	f.Simulate(tv)

	g, _ := net.NodeByName("g")
	if f.GoodValue(g) != val3.X {
		t.Fatalf("OR(X,0) good value = %v, want X", f.GoodValue(g))
	}

	b, _ := net.NodeByName("b")
	var saFault *tpgnet.Fault
	for _, flt := range net.AllFaults() {
		if flt.Node == b && !flt.IsBranch() && flt.Val == tpgnet.FaultVal1 {
			saFault = flt
		}
	}
	if saFault == nil {
		t.Fatal("expected a stuck-at-1 fault on input b")
	}

	// Faulty machine: b stuck at 1 forces g = OR(X,1) = 1, a defined value,
	// but the good machine's own g is X here. A 2-valued PPSFP pass that
	// silently treats X as 0 would wrongly call this detected (1 != 0); the
	// 3-valued pass must withhold detection since the good value is unknown.
	res := f.PPSFP(nil, []*tpgnet.Fault{saFault})
	if res.Detected[saFault] {
		t.Errorf("b/sa1 must not be reported detected while the good machine's own output is X")
	}
}

func TestCalcWSACountsToggles(t *testing.T) {
	net := buildAndGateNet(t)
	f := New(net, 4)

	same := testvector.New(2, 0)
	same.SetPI(0, val3.One)
	same.SetPI(1, val3.One)
	if wsa := f.CalcWSA(same, same.Clone()); wsa != 0 {
		t.Errorf("identical consecutive patterns should have 0 switching activity, got %d", wsa)
	}

	prev := testvector.New(2, 0)
	prev.SetPI(0, val3.Zero)
	prev.SetPI(1, val3.One)
	next := testvector.New(2, 0)
	next.SetPI(0, val3.One)
	next.SetPI(1, val3.One)

	wsa := f.CalcWSA(prev, next)
	if wsa == 0 {
		t.Error("expected nonzero switching activity when a toggles 0->1 and g follows")
	}
}

func TestSPPFPSkipsAndReportsInFaultOrder(t *testing.T) {
	net := buildAndGateNet(t)
	f := New(net, 2)
	tv := testvector.New(2, 0)
	tv.SetPI(0, val3.One)
	tv.SetPI(1, val3.One)

	// Pattern (1,1) detects every sa0 in the AND cone; skipping one fault
	// must drop it from the callback stream without disturbing the rest.
	var sa0s []*tpgnet.Fault
	for _, flt := range net.AllFaults() {
		if !flt.IsBranch() && flt.Val == tpgnet.FaultVal0 {
			sa0s = append(sa0s, flt)
		}
	}
	if len(sa0s) != 3 {
		t.Fatalf("expected 3 stem sa0 faults (a, b, g), got %d", len(sa0s))
	}
	f.SetSkip(sa0s[0], true)

	var hits []*tpgnet.Fault
	f.SPPFP(tv, sa0s, func(flt *tpgnet.Fault) { hits = append(hits, flt) })

	if len(hits) != 2 {
		t.Fatalf("expected 2 detected faults after skipping one, got %d", len(hits))
	}
	if hits[0] != sa0s[1] || hits[1] != sa0s[2] {
		t.Error("SPPFP callbacks must arrive in fault list order")
	}
	for _, h := range hits {
		if h == sa0s[0] {
			t.Error("skipped fault must not be reported")
		}
	}
}

func TestSetStateFillsUndefinedPPIs(t *testing.T) {
	net, err := tpgnet.Build(&tpgnet.NetlistInput{
		Name: "seqstate",
		PIs:  []string{"a"},
		POs:  []string{"g"},
		DFFs: []tpgnet.DFFSpec{{QName: "q", DName: "d"}},
		Logic: []tpgnet.LogicNodeSpec{
			{Name: "d", Kind: gatetype.KindBuff, FaninIDs: []string{"a"}},
			{Name: "g", Kind: gatetype.KindAnd, FaninIDs: []string{"a", "q"}},
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	f := New(net, 4)

	tv := testvector.New(1, 1)
	tv.SetPI(0, val3.One) // PPI q left at X

	f.Simulate(tv)
	g, _ := net.NodeByName("g")
	if f.GoodValue(g) != val3.X {
		t.Fatalf("AND(1,X) = %v, want X while no state is loaded", f.GoodValue(g))
	}

	f.SetState([]val3.Val3{val3.One})
	f.Simulate(tv)
	if f.GoodValue(g) != val3.One {
		t.Errorf("with latch state q=1 loaded, AND(1,q) = %v, want 1", f.GoodValue(g))
	}
}
