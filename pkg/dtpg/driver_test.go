package dtpg

import (
	"testing"

	"github.com/vlsitest/fanatpg/pkg/gatetype"
	"github.com/vlsitest/fanatpg/pkg/satiface"
	"github.com/vlsitest/fanatpg/pkg/structenc"
	"github.com/vlsitest/fanatpg/pkg/testvector"
	"github.com/vlsitest/fanatpg/pkg/tpgnet"
	"github.com/vlsitest/fanatpg/pkg/val3"
)

// buildDriverNet mirrors structenc's own small fixture: PI a, b, c;
// g1=AND(a,b); g2=OR(g1,c); PO out=g2.
func buildDriverNet(t *testing.T) *tpgnet.TpgNetwork {
	t.Helper()
	net, err := tpgnet.Build(&tpgnet.NetlistInput{
		Name: "small",
		PIs:  []string{"a", "b", "c"},
		POs:  []string{"g2"},
		Logic: []tpgnet.LogicNodeSpec{
			{Name: "g1", Kind: gatetype.KindAnd, FaninIDs: []string{"a", "b"}},
			{Name: "g2", Kind: gatetype.KindOr, FaninIDs: []string{"g1", "c"}},
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return net
}

func TestDriverDetectsAllFaultsOnSmallNet(t *testing.T) {
	net := buildDriverNet(t)
	solver := satiface.NewDpllSolver(10000)
	dop := DopList{NewDopBase(), NewDopTvList()}
	drv := NewDriver(net, solver, structenc.ConeSimple, Just1, dop)

	stats := drv.Run()

	if stats.Aborted != 0 {
		t.Fatalf("expected no aborts on a trivial combinational net, got %d", stats.Aborted)
	}
	if stats.Detected+stats.Untestable != len(net.RepFaults()) {
		t.Fatalf("expected every representative fault classified, got %d detected + %d untestable of %d",
			stats.Detected, stats.Untestable, len(net.RepFaults()))
	}
	for _, flt := range net.RepFaults() {
		if flt.Status() == tpgnet.StatusUnclassified {
			t.Errorf("fault %s left unclassified", flt)
		}
	}
}

func TestDriverDetectedPatternActivatesItsFault(t *testing.T) {
	net := buildDriverNet(t)

	// a/sa0 collapses through the AND onto the g1->g2 branch; the driver
	// only ever attempts representatives, so track that one.
	stemSA0 := repOfStem(t, net, "a", tpgnet.FaultVal0)

	solver := satiface.NewDpllSolver(10000)
	tvl := NewDopTvList()
	dop := DopList{NewDopBase(), tvl}
	drv := NewDriver(net, solver, structenc.ConeSimple, Just1, dop)
	drv.Run()

	if stemSA0.Status() != tpgnet.StatusDetected {
		t.Fatalf("a/sa0 should be detected on this net, got %v", stemSA0.Status())
	}
	if len(tvl.TVs) == 0 {
		t.Fatal("expected at least one pattern recorded")
	}

	found := false
	for _, tv := range tvl.TVs {
		if tv.PIVal(0) == val3.One {
			found = true
		}
	}
	if !found {
		t.Error("expected some recorded pattern to set a=1, the only way to excite a/sa0")
	}
}

func TestDriverHonorsSkipFlag(t *testing.T) {
	net := buildDriverNet(t)
	for _, f := range net.RepFaults() {
		f.Skip = true
	}

	solver := satiface.NewDpllSolver(10000)
	drv := NewDriver(net, solver, structenc.ConeSimple, Just1, &DopDummy{})
	stats := drv.Run()

	if stats.Detected != 0 || stats.Untestable != 0 || stats.Aborted != 0 {
		t.Fatalf("expected every fault skipped, got %+v", stats)
	}
}

func TestDopTvListRecordsDistinctPatterns(t *testing.T) {
	d := NewDopTvList()
	tv1 := testvector.New(2, 0)
	tv2 := testvector.New(2, 0)
	d.Detect(nil, tv1)
	d.Detect(nil, tv2)
	if len(d.TVs) != 2 {
		t.Fatalf("expected 2 recorded patterns, got %d", len(d.TVs))
	}
}
