// Package gatetype is the canonical description of logic primitives and
// complex cells: each GateType memoises its control-value table and, for
// complex (expression) types, the extra-node count the encoder will need.
// It is the Go-native counterpart of druid's GateType/GateType_Simple/
// GateType_Cplx/GateTypeMgr hierarchy, collapsed into a single concrete
// struct per the "polymorphic gates -> variant tag" redesign note.
package gatetype

import "github.com/vlsitest/fanatpg/pkg/val3"

// Kind is the primitive (or Complex marker) a GateType represents.
type Kind int

const (
	KindC0 Kind = iota
	KindC1
	KindBuff
	KindNot
	KindAnd
	KindNand
	KindOr
	KindNor
	KindXor
	KindXnor
	KindComplex
)

func (k Kind) String() string {
	switch k {
	case KindC0:
		return "C0"
	case KindC1:
		return "C1"
	case KindBuff:
		return "BUFF"
	case KindNot:
		return "NOT"
	case KindAnd:
		return "AND"
	case KindNand:
		return "NAND"
	case KindOr:
		return "OR"
	case KindNor:
		return "NOR"
	case KindXor:
		return "XOR"
	case KindXnor:
		return "XNOR"
	default:
		return "COMPLEX"
	}
}

// IsPrimitive reports whether k is a built-in primitive (as opposed to a
// complex expression type).
func (k Kind) IsPrimitive() bool { return k != KindComplex }

// GateType describes one logic primitive or complex cell.
type GateType struct {
	Kind         Kind
	InputNum     int
	Expr         *Expr // non-nil only for KindComplex
	extraNodeNum int
	cval         [][2]val3.Val3 // cval[pos][0]=cval at 0, cval[pos][1]=cval at 1
}

// ExtraNodeNum is the count of additional internal CNF literals materialised
// when this gate's expression is expanded during CNF generation.
func (g *GateType) ExtraNodeNum() int { return g.extraNodeNum }

// CVal returns the output value implied when input pos takes value v, all
// other inputs floating at X.
func (g *GateType) CVal(pos int, v val3.Val3) val3.Val3 {
	if v == val3.X {
		return val3.X
	}
	idx := 0
	if v == val3.One {
		idx = 1
	}
	if pos < 0 || pos >= len(g.cval) {
		return val3.X
	}
	return g.cval[pos][idx]
}

// ControllingValue returns the input value that alone determines the gate's
// output (0 for AND/NAND, 1 for OR/NOR), or X if the gate type has none.
func (g *GateType) ControllingValue() val3.Val3 {
	switch g.Kind {
	case KindAnd, KindNand:
		return val3.Zero
	case KindOr, KindNor:
		return val3.One
	default:
		return val3.X
	}
}

// NonControllingValue is the complement of ControllingValue, or X if the
// gate type has no controlling value.
func (g *GateType) NonControllingValue() val3.Val3 {
	cv := g.ControllingValue()
	if cv == val3.X {
		return val3.X
	}
	return cv.Not()
}

// ControlledOutput is the output value forced by the controlling input (0
// for AND/NOR, 1 for OR/NAND), valid only when ControllingValue != X.
func (g *GateType) ControlledOutput() val3.Val3 {
	switch g.Kind {
	case KindAnd, KindNor:
		return val3.Zero
	case KindOr, KindNand:
		return val3.One
	default:
		return val3.X
	}
}

// Eval evaluates the gate's output given 3-valued input values, for
// primitives directly and for complex types via the stored expression.
func (g *GateType) Eval(inputs []val3.Val3) val3.Val3 {
	switch g.Kind {
	case KindC0:
		return val3.Zero
	case KindC1:
		return val3.One
	case KindBuff:
		return inputs[0]
	case KindNot:
		return inputs[0].Not()
	case KindAnd:
		return val3.And3(inputs...)
	case KindNand:
		return val3.And3(inputs...).Not()
	case KindOr:
		return val3.Or3(inputs...)
	case KindNor:
		return val3.Or3(inputs...).Not()
	case KindXor:
		return val3.Xor3(inputs...)
	case KindXnor:
		return val3.Xor3(inputs...).Not()
	default:
		return evalExpr(g.Expr, inputs)
	}
}

// Mgr registers and memoises GateTypes, mirroring GateTypeMgr: each distinct
// primitive is a singleton; each distinct expression gets its own
// GateType_Cplx-equivalent with its cval table precomputed once.
type Mgr struct {
	simple  [KindXnor + 1]*GateType
	complex []*GateType
}

// NewMgr constructs a manager with the ten primitive singletons populated.
func NewMgr() *Mgr {
	m := &Mgr{}
	for k := KindC0; k <= KindXnor; k++ {
		m.simple[k] = newSimple(k)
	}
	return m
}

func newSimple(k Kind) *GateType {
	ni := inputNumFor(k)
	g := &GateType{Kind: k, InputNum: ni}
	g.cval = make([][2]val3.Val3, ni)
	for pos := 0; pos < ni; pos++ {
		g.cval[pos][0] = simpleCVal(k, val3.Zero)
		g.cval[pos][1] = simpleCVal(k, val3.One)
	}
	return g
}

func inputNumFor(k Kind) int {
	switch k {
	case KindC0, KindC1:
		return 0
	case KindBuff, KindNot:
		return 1
	default:
		return 2
	}
}

func simpleCVal(k Kind, v val3.Val3) val3.Val3 {
	switch k {
	case KindC0, KindC1, KindXor, KindXnor:
		return val3.X
	case KindBuff:
		return v
	case KindNot:
		return v.Not()
	case KindAnd:
		if v == val3.Zero {
			return val3.Zero
		}
		return val3.X
	case KindNand:
		if v == val3.Zero {
			return val3.One
		}
		return val3.X
	case KindOr:
		if v == val3.One {
			return val3.One
		}
		return val3.X
	case KindNor:
		if v == val3.One {
			return val3.Zero
		}
		return val3.X
	default:
		return val3.X
	}
}

// Simple returns the GateType for a built-in primitive with the given
// fan-in: the shared singleton at the primitive's natural arity, or a
// memoised per-arity variant for wider AND/OR/NAND/NOR. The control-value
// table is sized to the requested arity — every input position must answer
// CVal, since fault collapsing and the FFR propagation condition read it
// per position. XOR/XNOR stay binary; the network builder unfolds wider
// ones into cascades before ever asking here.
func (m *Mgr) Simple(k Kind, inputNum int) *GateType {
	if inputNum == inputNumFor(k) {
		return m.simple[k]
	}
	for _, g := range m.complex {
		if g.Kind == k && g.InputNum == inputNum {
			return g
		}
	}
	g := newSimpleArity(k, inputNum)
	m.complex = append(m.complex, g)
	return g
}

func newSimpleArity(k Kind, ni int) *GateType {
	g := &GateType{Kind: k, InputNum: ni}
	g.cval = make([][2]val3.Val3, ni)
	for pos := 0; pos < ni; pos++ {
		g.cval[pos][0] = simpleCVal(k, val3.Zero)
		g.cval[pos][1] = simpleCVal(k, val3.One)
	}
	return g
}

// NewType registers (or returns the existing registration for) the
// expression expr over ni inputs. Expressions that reduce to a primitive
// are folded into the corresponding simple singleton; otherwise a Complex
// GateType is built with its extra-node count and cval table memoised.
func (m *Mgr) NewType(ni int, expr *Expr) *GateType {
	if kind, ok := analyzePrimitive(ni, expr); ok {
		return m.Simple(kind, ni)
	}
	g := &GateType{
		Kind:         KindComplex,
		InputNum:     ni,
		Expr:         expr,
		extraNodeNum: extraNodeCount(ni, expr),
	}
	g.cval = make([][2]val3.Val3, ni)
	for pos := 0; pos < ni; pos++ {
		g.cval[pos][0] = calcCVal(ni, expr, pos, val3.Zero)
		g.cval[pos][1] = calcCVal(ni, expr, pos, val3.One)
	}
	m.complex = append(m.complex, g)
	return g
}
