package testvector

import (
	"testing"

	"github.com/vlsitest/fanatpg/pkg/val3"
)

func TestBinStrRoundTrip(t *testing.T) {
	tv := New(4, 0)
	tv.SetPI(0, val3.One)
	tv.SetPI(1, val3.Zero)
	tv.SetPI(2, val3.X)
	tv.SetPI(3, val3.One)

	if got, want := tv.BinStr(), "10X1"; got != want {
		t.Errorf("BinStr() = %q, want %q", got, want)
	}
}

func TestHexStrFullNibble(t *testing.T) {
	tv := New(4, 0)
	tv.SetPI(0, val3.One)
	tv.SetPI(1, val3.Zero)
	tv.SetPI(2, val3.One)
	tv.SetPI(3, val3.One)
	// bits 1011 = 0xB
	if got, want := tv.HexStr(), "B"; got != want {
		t.Errorf("HexStr() = %q, want %q", got, want)
	}
}

func TestHexStrWithXCollapses(t *testing.T) {
	tv := New(4, 0)
	tv.SetPI(0, val3.One)
	tv.SetPI(1, val3.X)
	tv.SetPI(2, val3.One)
	tv.SetPI(3, val3.One)
	if got, want := tv.HexStr(), "X"; got != want {
		t.Errorf("HexStr() = %q, want %q", got, want)
	}
}

func TestSetFromHexPadsShortNibble(t *testing.T) {
	tv := New(5, 0)
	if err := tv.SetFromHex("1A"); err != nil {
		t.Fatalf("SetFromHex: %v", err)
	}
	// 5 bits -> 2 hex digits (ceil(5/4)=2): digit '1' fills the first full
	// nibble (bits 0-3 = 0001), digit 'A' (1010) is truncated to its low 1
	// bit for the remaining bit 4.
	want := []bool{false, false, false, true, false}
	for i, w := range want {
		if got := tv.PIVal(i) == val3.FromBool(true); got != w {
			t.Errorf("bit %d = %v, want %v", i, got, w)
		}
	}
}

func TestSetFromHexRejectsWrongLength(t *testing.T) {
	tv := New(8, 0)
	if err := tv.SetFromHex("A"); err == nil {
		t.Fatal("expected an error for a too-short hex string")
	}
}

func TestMergeDetectsConflict(t *testing.T) {
	a := New(2, 0)
	a.SetPI(0, val3.One)
	b := New(2, 0)
	b.SetPI(0, val3.Zero)

	if err := a.Merge(b); err == nil {
		t.Fatal("expected Merge to reject conflicting assignments")
	}
}

func TestMergeOverlaysXValues(t *testing.T) {
	a := New(2, 0)
	a.SetPI(0, val3.One)
	b := New(2, 0)
	b.SetPI(1, val3.Zero)

	if err := a.Merge(b); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if a.PIVal(0) != val3.One || a.PIVal(1) != val3.Zero {
		t.Errorf("Merge result = (%v,%v), want (1,0)", a.PIVal(0), a.PIVal(1))
	}
}

func TestCloneIsIndependent(t *testing.T) {
	a := New(1, 0)
	a.SetPI(0, val3.One)
	b := a.Clone()
	b.SetPI(0, val3.Zero)
	if a.PIVal(0) != val3.One {
		t.Errorf("mutating the clone should not affect the original")
	}
}
