package main

import (
	"path/filepath"
	"testing"

	"github.com/vlsitest/fanatpg/pkg/gatetype"
	"github.com/vlsitest/fanatpg/pkg/testvector"
	"github.com/vlsitest/fanatpg/pkg/tpgnet"
	"github.com/vlsitest/fanatpg/pkg/val3"
)

func buildCmdTestNet(t *testing.T) *tpgnet.TpgNetwork {
	t.Helper()
	net, err := tpgnet.Build(&tpgnet.NetlistInput{
		Name: "cmdtest",
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

func TestWriteAndReadFaultVectorsRoundTrip(t *testing.T) {
	net := buildCmdTestNet(t)
	// Sweep files always record representative faults; resolve a/sa0's.
	var target *tpgnet.Fault
	for _, f := range net.AllFaults() {
		if f.Node.Name == "a" && !f.IsBranch() && f.Val == tpgnet.FaultVal0 {
			target = f.Representative()
		}
	}
	if target == nil {
		t.Fatal("expected an a/sa0 stem fault")
	}

	tv := testvector.New(2, 0)
	tv.SetPI(0, val3.One)
	tv.SetPI(1, val3.One)

	path := filepath.Join(t.TempDir(), "tests.txt")
	entries := []faultVector{{Fault: target.String(), TV: tv}}
	if err := writeFaultVectors(path, entries); err != nil {
		t.Fatalf("writeFaultVectors: %v", err)
	}

	got, err := readFaultVectors(path, net)
	if err != nil {
		t.Fatalf("readFaultVectors: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if got[0].Fault != target.String() {
		t.Errorf("fault string = %q, want %q", got[0].Fault, target.String())
	}
	if got[0].TV.PIVal(0) != val3.One || got[0].TV.PIVal(1) != val3.One {
		t.Errorf("round-tripped PI values = (%v,%v), want (1,1)", got[0].TV.PIVal(0), got[0].TV.PIVal(1))
	}
}

func TestReadFaultVectorsRejectsUnknownFault(t *testing.T) {
	net := buildCmdTestNet(t)
	path := filepath.Join(t.TempDir(), "tests.txt")
	if err := writeFaultVectors(path, []faultVector{{Fault: "nope/SA@0", TV: testvector.New(2, 0)}}); err != nil {
		t.Fatalf("writeFaultVectors: %v", err)
	}
	if _, err := readFaultVectors(path, net); err == nil {
		t.Error("expected an error for a fault string absent from the circuit")
	}
}

func TestFindFaultByString(t *testing.T) {
	net := buildCmdTestNet(t)
	var target *tpgnet.Fault
	for _, f := range net.AllFaults() {
		if f.Node.Name == "b" && !f.IsBranch() && f.Val == tpgnet.FaultVal1 {
			target = f.Representative()
		}
	}
	if target == nil {
		t.Fatal("expected b/sa1's representative")
	}
	got, ok := findFaultByString(net, target.String())
	if !ok || got != target {
		t.Errorf("findFaultByString(%q) = (%v, %v), want (%v, true)", target.String(), got, ok, target)
	}
	if _, ok := findFaultByString(net, "garbage"); ok {
		t.Error("expected lookup miss for an unrecognized fault string")
	}
}
