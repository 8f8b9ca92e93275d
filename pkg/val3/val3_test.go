package val3

import "testing"

func TestNot(t *testing.T) {
	cases := []struct{ in, want Val3 }{
		{Zero, One},
		{One, Zero},
		{X, X},
	}
	for _, c := range cases {
		if got := c.in.Not(); got != c.want {
			t.Errorf("Not(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestAnd3TruthTable(t *testing.T) {
	cases := []struct {
		ins  []Val3
		want Val3
	}{
		{[]Val3{One, One}, One},
		{[]Val3{One, Zero}, Zero},
		{[]Val3{Zero, X}, Zero}, // a 0 dominates any X
		{[]Val3{X, Zero}, Zero},
		{[]Val3{One, X}, X},
		{[]Val3{X, X}, X},
		{[]Val3{}, One}, // empty conjunction
		{[]Val3{One, One, Zero, X}, Zero},
	}
	for _, c := range cases {
		if got := And3(c.ins...); got != c.want {
			t.Errorf("And3(%v) = %v, want %v", c.ins, got, c.want)
		}
	}
}

func TestOr3TruthTable(t *testing.T) {
	cases := []struct {
		ins  []Val3
		want Val3
	}{
		{[]Val3{Zero, Zero}, Zero},
		{[]Val3{Zero, One}, One},
		{[]Val3{One, X}, One}, // a 1 dominates any X
		{[]Val3{X, One}, One},
		{[]Val3{Zero, X}, X},
		{[]Val3{X, X}, X},
		{[]Val3{}, Zero}, // empty disjunction
		{[]Val3{Zero, Zero, One, X}, One},
	}
	for _, c := range cases {
		if got := Or3(c.ins...); got != c.want {
			t.Errorf("Or3(%v) = %v, want %v", c.ins, got, c.want)
		}
	}
}

func TestXor3TruthTable(t *testing.T) {
	cases := []struct {
		ins  []Val3
		want Val3
	}{
		{[]Val3{Zero, Zero}, Zero},
		{[]Val3{Zero, One}, One},
		{[]Val3{One, One}, Zero},
		{[]Val3{One, X}, X}, // parity is never resolvable through an X
		{[]Val3{X, Zero}, X},
		{[]Val3{One, One, One}, One},
		{[]Val3{}, Zero},
	}
	for _, c := range cases {
		if got := Xor3(c.ins...); got != c.want {
			t.Errorf("Xor3(%v) = %v, want %v", c.ins, got, c.want)
		}
	}
}

// TestSpecializationIsMonotone pins the property the control-value tables
// lean on: replacing an X input by a definite value never turns a defined
// fold result back into X, and never flips it.
func TestSpecializationIsMonotone(t *testing.T) {
	folds := []struct {
		name string
		f    func(...Val3) Val3
	}{
		{"And3", And3},
		{"Or3", Or3},
		{"Xor3", Xor3},
	}
	vals := []Val3{X, Zero, One}
	for _, fold := range folds {
		for _, a := range vals {
			for _, b := range vals {
				before := fold.f(a, b, X)
				if before == X {
					continue
				}
				for _, fill := range []Val3{Zero, One} {
					if after := fold.f(a, b, fill); after != before {
						t.Errorf("%s(%v,%v,X)=%v but specializing X to %v gives %v",
							fold.name, a, b, before, fill, after)
					}
				}
			}
		}
	}
}

func TestBoolConversions(t *testing.T) {
	if FromBool(true) != One || FromBool(false) != Zero {
		t.Error("FromBool must map true->1, false->0")
	}
	if v, ok := One.Bool(); !ok || !v {
		t.Error("One.Bool() should be (true, true)")
	}
	if v, ok := Zero.Bool(); !ok || v {
		t.Error("Zero.Bool() should be (false, true)")
	}
	if _, ok := X.Bool(); ok {
		t.Error("X.Bool() must report not-ok")
	}
}

func TestParse(t *testing.T) {
	cases := []struct {
		in   byte
		want Val3
	}{
		{'0', Zero},
		{'1', One},
		{'x', X},
		{'X', X},
	}
	for _, c := range cases {
		got, err := Parse(c.in)
		if err != nil || got != c.want {
			t.Errorf("Parse(%q) = (%v, %v), want (%v, nil)", c.in, got, err, c.want)
		}
	}
	if _, err := Parse('?'); err == nil {
		t.Error("Parse must reject characters outside 0/1/x/X")
	}
	for _, v := range []Val3{Zero, One, X} {
		rt, err := Parse(v.String()[0])
		if err != nil || rt != v {
			t.Errorf("Parse(String(%v)) = (%v, %v), want identity", v, rt, err)
		}
	}
}
