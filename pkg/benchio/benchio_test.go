package benchio

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/vlsitest/fanatpg/pkg/gatetype"
	"github.com/vlsitest/fanatpg/pkg/tpgnet"
)

func TestParseCombinationalBench(t *testing.T) {
	src := `# trivial combinational circuit
INPUT(a)
INPUT(b)
INPUT(c)
OUTPUT(g2)

g1 = AND(a, b)
g2 = OR(g1, c)
`
	in, err := Parse(strings.NewReader(src), "small", zerolog.Nop())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(in.PIs) != 3 {
		t.Fatalf("expected 3 PIs, got %d: %v", len(in.PIs), in.PIs)
	}
	if len(in.POs) != 1 || in.POs[0] != "g2" {
		t.Fatalf("expected PO [g2], got %v", in.POs)
	}
	if len(in.Logic) != 2 {
		t.Fatalf("expected 2 gates, got %d", len(in.Logic))
	}
	if in.Logic[0].Kind != gatetype.KindAnd {
		t.Errorf("expected g1 to be AND, got %v", in.Logic[0].Kind)
	}

	net, err := tpgnet.Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(net.POs()) != 1 {
		t.Errorf("expected network to have 1 PO, got %d", len(net.POs()))
	}
}

func TestParseScanBenchWithDFF(t *testing.T) {
	src := `INPUT(clk)
INPUT(d_in)
OUTPUT(q_out)

ff_q = DFF(ff_d)
q_out = BUF(ff_q)
ff_d = AND(d_in, ff_q)
`
	in, err := Parse(strings.NewReader(src), "scan", zerolog.Nop())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(in.DFFs) != 1 {
		t.Fatalf("expected 1 DFF, got %d", len(in.DFFs))
	}
	if in.DFFs[0].QName != "ff_q" || in.DFFs[0].DName != "ff_d" {
		t.Errorf("unexpected DFF spec: %+v", in.DFFs[0])
	}

	for _, po := range in.POs {
		if po == "ff_q" {
			t.Error("DFF's own Q output should not also be treated as a primary output")
		}
	}

	net, err := tpgnet.Build(in)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(net.PPIs()) != 1 || len(net.PPOs()) != 1 {
		t.Errorf("expected 1 PPI and 1 PPO, got %d/%d", len(net.PPIs()), len(net.PPOs()))
	}
}

func TestParseRejectsUnknownGateType(t *testing.T) {
	src := `INPUT(a)
OUTPUT(g)
g = FROBNICATE(a)
`
	if _, err := Parse(strings.NewReader(src), "bad", zerolog.Nop()); err == nil {
		t.Fatal("expected an error for an unrecognized gate type")
	}
}

func TestParseRejectsRedeclaredInput(t *testing.T) {
	src := `INPUT(a)
INPUT(a)
OUTPUT(a)
`
	if _, err := Parse(strings.NewReader(src), "dup", zerolog.Nop()); err == nil {
		t.Fatal("expected an error for a redeclared INPUT")
	}
}
