package dtpg

import (
	"testing"

	"github.com/vlsitest/fanatpg/pkg/fsim"
	"github.com/vlsitest/fanatpg/pkg/gatetype"
	"github.com/vlsitest/fanatpg/pkg/satiface"
	"github.com/vlsitest/fanatpg/pkg/structenc"
	"github.com/vlsitest/fanatpg/pkg/testvector"
	"github.com/vlsitest/fanatpg/pkg/tpgnet"
)

func TestDopBaseMarksDetected(t *testing.T) {
	net := buildDriverNet(t)
	a, _ := net.NodeByName("a")
	flt := &tpgnet.Fault{Node: a, FanoutNo: -1, Val: tpgnet.FaultVal0}

	d := NewDopBase()
	d.Detect(flt, nil)

	if flt.Status() != tpgnet.StatusDetected {
		t.Errorf("expected DopBase to mark the fault detected, got %v", flt.Status())
	}
}

func TestDopListCallsEveryEntry(t *testing.T) {
	net := buildDriverNet(t)
	a, _ := net.NodeByName("a")
	flt := &tpgnet.Fault{Node: a, FanoutNo: -1, Val: tpgnet.FaultVal0}

	base := NewDopBase()
	tvl := NewDopTvList()
	list := DopList{base, tvl}

	tv := mustJustify(t, net, a, true)
	list.Detect(flt, tv)

	if flt.Status() != tpgnet.StatusDetected {
		t.Error("expected DopBase entry to run")
	}
	if len(tvl.TVs) != 1 {
		t.Error("expected DopTvList entry to run")
	}
}

func TestDopDropDropsIncidentallyDetectedFaults(t *testing.T) {
	// d=AND(a,b), f=AND(a,c); a/sa0's test (a=1,b=1,c=1) also excites and
	// propagates a's branch fault into f, so DopDrop should pick it up in
	// the same PPSFP round as the directly-generated pattern.
	net, err := tpgnet.Build(&tpgnet.NetlistInput{
		Name: "dropnet",
		PIs:  []string{"a", "b", "c"},
		POs:  []string{"d", "f"},
		Logic: []tpgnet.LogicNodeSpec{
			{Name: "d", Kind: gatetype.KindAnd, FaninIDs: []string{"a", "b"}},
			{Name: "f", Kind: gatetype.KindAnd, FaninIDs: []string{"a", "c"}},
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	sim := fsim.New(net, 64)
	dop := DopList{NewDopBase(), NewDopDrop(sim, net.RepFaults())}
	solver := satiface.NewDpllSolver(10000)
	drv := NewDriver(net, solver, structenc.ConeSimple, Just1, dop)

	stats := drv.Run()
	if stats.Aborted != 0 {
		t.Fatalf("unexpected aborts: %+v", stats)
	}

	detected := 0
	for _, f := range net.RepFaults() {
		if f.Status() == tpgnet.StatusDetected {
			detected++
		}
	}
	if detected == 0 {
		t.Fatal("expected at least one fault detected")
	}
}

func mustJustify(t *testing.T, net *tpgnet.TpgNetwork, n *tpgnet.Node, want bool) *testvector.TestVector {
	t.Helper()
	var assign tpgnet.AssignList
	assign = assign.Add(n, want)
	j := NewJustifier(net, Just1)
	tv, err := j.Justify(assign)
	if err != nil {
		t.Fatalf("Justify: %v", err)
	}
	return tv
}
