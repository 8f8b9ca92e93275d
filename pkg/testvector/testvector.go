// Package testvector holds the 3-valued input pattern produced by DTPG:
// one Val3 per primary input and per pseudo-primary input (scan flop),
// together with the hex/binary encodings spec §6 requires for bench-format
// test pattern output.
package testvector

import (
	"fmt"
	"strings"

	"github.com/vlsitest/fanatpg/pkg/val3"
)

// TestVector is an assignment to every PI and PPI of a network, in PI-then-
// PPI InputID order.
type TestVector struct {
	piVals  []val3.Val3
	ppiVals []val3.Val3
}

// New allocates an all-X test vector sized for the given PI/PPI counts.
func New(numPI, numPPI int) *TestVector {
	tv := &TestVector{
		piVals:  make([]val3.Val3, numPI),
		ppiVals: make([]val3.Val3, numPPI),
	}
	for i := range tv.piVals {
		tv.piVals[i] = val3.X
	}
	for i := range tv.ppiVals {
		tv.ppiVals[i] = val3.X
	}
	return tv
}

// NumPI and NumPPI report the vector's dimensions.
func (tv *TestVector) NumPI() int  { return len(tv.piVals) }
func (tv *TestVector) NumPPI() int { return len(tv.ppiVals) }

// PIVal and PPIVal read back a single input's value.
func (tv *TestVector) PIVal(i int) val3.Val3  { return tv.piVals[i] }
func (tv *TestVector) PPIVal(i int) val3.Val3 { return tv.ppiVals[i] }

// SetPI and SetPPI assign a single input's value.
func (tv *TestVector) SetPI(i int, v val3.Val3)  { tv.piVals[i] = v }
func (tv *TestVector) SetPPI(i int, v val3.Val3) { tv.ppiVals[i] = v }

// BinStr renders the PI vector (then the PPI vector, separated by a space
// when present) as a 0/1/X string, PI0 first.
func (tv *TestVector) BinStr() string {
	var b strings.Builder
	for _, v := range tv.piVals {
		b.WriteByte(binChar(v))
	}
	if len(tv.ppiVals) > 0 {
		b.WriteByte(' ')
		for _, v := range tv.ppiVals {
			b.WriteByte(binChar(v))
		}
	}
	return b.String()
}

func binChar(v val3.Val3) byte {
	switch v {
	case val3.Zero:
		return '0'
	case val3.One:
		return '1'
	default:
		return 'X'
	}
}

// HexStr packs the PI vector into nibble-wide hex digits, most-significant
// bit first within each nibble; a nibble containing any X collapses to 'X'
// for that digit, matching the bench-format convention of refusing to hide
// a don't-care inside a concrete hex value.
func (tv *TestVector) HexStr() string {
	return packHex(tv.piVals)
}

// PPIHexStr is the PPI-vector counterpart of HexStr.
func (tv *TestVector) PPIHexStr() string {
	return packHex(tv.ppiVals)
}

func packHex(vals []val3.Val3) string {
	var b strings.Builder
	for i := 0; i < len(vals); i += 4 {
		end := i + 4
		if end > len(vals) {
			end = len(vals)
		}
		nibble := vals[i:end]
		has01 := true
		bits := 0
		for j, v := range nibble {
			if v == val3.X {
				has01 = false
				break
			}
			if v == val3.One {
				bits |= 1 << (len(nibble) - 1 - j)
			}
		}
		if !has01 {
			b.WriteByte('X')
			continue
		}
		fmt.Fprintf(&b, "%X", bits)
	}
	return b.String()
}

// SetFromHex parses a hex string into the PI vector, four bits per digit,
// most-significant bit first within each nibble. The string must have
// exactly ceil(bits/4) digits: a shorter or longer string is rejected, not
// padded or truncated. When the bit width isn't a multiple of 4, the final digit
// supplies only its low-order bits to the short last nibble (the nibble
// reads as left-padded with zero bits).
func (tv *TestVector) SetFromHex(hex string) error {
	return setFromHex(tv.piVals, hex)
}

// PPISetFromHex is the PPI-vector counterpart of SetFromHex.
func (tv *TestVector) PPISetFromHex(hex string) error {
	return setFromHex(tv.ppiVals, hex)
}

func setFromHex(vals []val3.Val3, hex string) error {
	nDigits := (len(vals) + 3) / 4
	if len(hex) != nDigits {
		return fmt.Errorf("testvector: hex string %q has %d digits, want %d for %d bits", hex, len(hex), nDigits, len(vals))
	}
	for i, ch := range hex {
		var n int
		switch {
		case ch >= '0' && ch <= '9':
			n = int(ch - '0')
		case ch >= 'A' && ch <= 'F':
			n = int(ch-'A') + 10
		case ch >= 'a' && ch <= 'f':
			n = int(ch-'a') + 10
		default:
			return fmt.Errorf("testvector: invalid hex digit %q", ch)
		}
		start := i * 4
		width := 4
		if start+width > len(vals) {
			width = len(vals) - start
		}
		for j := 0; j < width; j++ {
			bit := (n >> (width - 1 - j)) & 1
			vals[start+j] = val3.FromBool(bit == 1)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (tv *TestVector) Clone() *TestVector {
	out := &TestVector{
		piVals:  make([]val3.Val3, len(tv.piVals)),
		ppiVals: make([]val3.Val3, len(tv.ppiVals)),
	}
	copy(out.piVals, tv.piVals)
	copy(out.ppiVals, tv.ppiVals)
	return out
}

// Merge overlays non-X values from other onto tv, reporting a conflict if
// both vectors specify incompatible values for the same input.
func (tv *TestVector) Merge(other *TestVector) error {
	if len(tv.piVals) != len(other.piVals) || len(tv.ppiVals) != len(other.ppiVals) {
		return fmt.Errorf("testvector: Merge dimension mismatch")
	}
	for i, v := range other.piVals {
		if v == val3.X {
			continue
		}
		if tv.piVals[i] != val3.X && tv.piVals[i] != v {
			return fmt.Errorf("testvector: conflicting PI%d assignment", i)
		}
		tv.piVals[i] = v
	}
	for i, v := range other.ppiVals {
		if v == val3.X {
			continue
		}
		if tv.ppiVals[i] != val3.X && tv.ppiVals[i] != v {
			return fmt.Errorf("testvector: conflicting PPI%d assignment", i)
		}
		tv.ppiVals[i] = v
	}
	return nil
}
