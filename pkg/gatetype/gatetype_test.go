package gatetype

import (
	"testing"

	"github.com/vlsitest/fanatpg/pkg/val3"
)

func TestPrimitiveControlValues(t *testing.T) {
	m := NewMgr()

	and2 := m.Simple(KindAnd, 2)
	if got := and2.CVal(0, val3.Zero); got != val3.Zero {
		t.Errorf("AND cval(pos=0,0) = %v, want 0", got)
	}
	if got := and2.CVal(0, val3.One); got != val3.X {
		t.Errorf("AND cval(pos=0,1) = %v, want X", got)
	}

	or2 := m.Simple(KindOr, 2)
	if got := or2.CVal(1, val3.One); got != val3.One {
		t.Errorf("OR cval(pos=1,1) = %v, want 1", got)
	}

	xor2 := m.Simple(KindXor, 2)
	if got := xor2.CVal(0, val3.Zero); got != val3.X {
		t.Errorf("XOR has no controlling value, got %v", got)
	}
}

func TestNandNorEval(t *testing.T) {
	m := NewMgr()
	nand := m.Simple(KindNand, 2)
	if got := nand.Eval([]val3.Val3{val3.One, val3.One}); got != val3.Zero {
		t.Errorf("NAND(1,1) = %v, want 0", got)
	}
	if got := nand.Eval([]val3.Val3{val3.Zero, val3.One}); got != val3.One {
		t.Errorf("NAND(0,1) = %v, want 1", got)
	}

	nor := m.Simple(KindNor, 2)
	if got := nor.Eval([]val3.Val3{val3.Zero, val3.Zero}); got != val3.One {
		t.Errorf("NOR(0,0) = %v, want 1", got)
	}
}

func TestComplexGateReducesToPrimitive(t *testing.T) {
	m := NewMgr()

	// (a AND b) with distinct positive literals covering all inputs reduces
	// to the AND primitive, contributing zero extra CNF variables.
	g := m.NewType(2, And(Lit(0), Lit(1)))
	if g.Kind != KindAnd {
		t.Fatalf("expected expression to reduce to AND, got %v", g.Kind)
	}
	if g.ExtraNodeNum() != 0 {
		t.Errorf("primitive gate should need 0 extra nodes, got %d", g.ExtraNodeNum())
	}
}

func TestComplexGateExtraNodeCount(t *testing.T) {
	m := NewMgr()

	// out = AND(a, OR(b, c)): one operator beyond the root AND, no input
	// polarity conflicts, so 1 extra node.
	expr := And(Lit(0), Or(Lit(1), Lit(2)))
	g := m.NewType(3, expr)
	if g.Kind != KindComplex {
		t.Fatalf("expected complex gate type, got %v", g.Kind)
	}
	if g.ExtraNodeNum() != 1 {
		t.Errorf("extra_node_num = %d, want 1", g.ExtraNodeNum())
	}

	// out = AND(a, NOT(a)) uses input 0 with both polarities: needs 2 extra
	// buffered literals for that input, plus the AND/NOT operators (2),
	// minus 1 for the already-counted root: 2 + (2-1) = 3.
	selfConflict := And(Lit(0), Not(Lit(0)))
	g2 := m.NewType(1, selfConflict)
	if g2.ExtraNodeNum() != 3 {
		t.Errorf("extra_node_num = %d, want 3", g2.ExtraNodeNum())
	}
}

func TestCplxControlValueMonotonicity(t *testing.T) {
	m := NewMgr()
	// out = AND(a, b): specializing input 0 to 0 must force output 0.
	g := m.NewType(2, And(Lit(0), Lit(1)))
	if got := g.CVal(0, val3.Zero); got != val3.Zero {
		t.Errorf("cval(0,0) = %v, want 0", got)
	}
}

func TestWideAndCarriesFullControlTable(t *testing.T) {
	m := NewMgr()
	and3 := m.Simple(KindAnd, 3)
	if and3.InputNum != 3 {
		t.Fatalf("expected a 3-input AND, got InputNum=%d", and3.InputNum)
	}
	// Every position must answer CVal: fault collapsing and the FFR
	// propagation condition read the table per fanin position.
	for pos := 0; pos < 3; pos++ {
		if got := and3.CVal(pos, val3.Zero); got != val3.Zero {
			t.Errorf("AND3 cval(pos=%d,0) = %v, want 0", pos, got)
		}
		if got := and3.CVal(pos, val3.One); got != val3.X {
			t.Errorf("AND3 cval(pos=%d,1) = %v, want X", pos, got)
		}
	}
	if again := m.Simple(KindAnd, 3); again != and3 {
		t.Error("per-arity primitives should be memoised, got a fresh instance")
	}
	if m.Simple(KindAnd, 2) == and3 {
		t.Error("the 2-input singleton must stay distinct from the 3-input variant")
	}
}
