package gatetype

import "github.com/vlsitest/fanatpg/pkg/val3"

// ExprKind identifies the shape of an Expr node.
type ExprKind int

const (
	ExprConst0 ExprKind = iota
	ExprConst1
	ExprLiteral
	ExprNot
	ExprAnd
	ExprOr
	ExprXor
)

// Expr is a logic expression tree over input literals, used to describe
// complex (non-primitive) gate types. Primitive gates never carry an Expr.
type Expr struct {
	Kind     ExprKind
	Var      int // input index, meaningful for ExprLiteral
	Children []*Expr
}

func Lit(i int) *Expr        { return &Expr{Kind: ExprLiteral, Var: i} }
func Const0() *Expr          { return &Expr{Kind: ExprConst0} }
func Const1() *Expr          { return &Expr{Kind: ExprConst1} }
func Not(e *Expr) *Expr       { return &Expr{Kind: ExprNot, Children: []*Expr{e}} }
func And(es ...*Expr) *Expr  { return &Expr{Kind: ExprAnd, Children: es} }
func Or(es ...*Expr) *Expr   { return &Expr{Kind: ExprOr, Children: es} }
func Xor(es ...*Expr) *Expr  { return &Expr{Kind: ExprXor, Children: es} }

// countOps counts internal operator nodes (And/Or/Xor/Not), matching the
// druid GateType.cc count_expr helper.
func countOps(e *Expr) int {
	switch e.Kind {
	case ExprConst0, ExprConst1, ExprLiteral:
		return 0
	}
	n := 1
	for _, c := range e.Children {
		n += countOps(c)
	}
	return n
}

// literalCounts returns, for each input position, how many times it occurs
// positively and negatively within e.
func literalCounts(ni int, e *Expr) (pos, neg []int) {
	pos = make([]int, ni)
	neg = make([]int, ni)
	var walk func(e *Expr, negated bool)
	walk = func(e *Expr, negated bool) {
		switch e.Kind {
		case ExprLiteral:
			if negated {
				neg[e.Var]++
			} else {
				pos[e.Var]++
			}
		case ExprNot:
			walk(e.Children[0], !negated)
		default:
			for _, c := range e.Children {
				walk(c, negated)
			}
		}
	}
	walk(e, false)
	return pos, neg
}

// extraNodeCount computes the number of fresh CNF literals a complex gate's
// expression will need beyond its single output literal: one per operator
// other than the root, plus one buffer for an input that appears only
// negated or more than once positively, and two for an input that appears
// with both polarities.
func extraNodeCount(ni int, e *Expr) int {
	n := 0
	pos, neg := literalCounts(ni, e)
	for i := 0; i < ni; i++ {
		p, ng := pos[i], neg[i]
		if ng == 0 {
			if p > 1 {
				n++
			}
		} else if p > 0 {
			n += 2
		} else {
			n++
		}
	}
	n += countOps(e) - 1
	if n < 0 {
		n = 0
	}
	return n
}

// evalExpr evaluates e under a 3-valued assignment to its inputs.
func evalExpr(e *Expr, ivals []val3.Val3) val3.Val3 {
	switch e.Kind {
	case ExprConst0:
		return val3.Zero
	case ExprConst1:
		return val3.One
	case ExprLiteral:
		return ivals[e.Var]
	case ExprNot:
		return evalExpr(e.Children[0], ivals).Not()
	case ExprAnd:
		vs := make([]val3.Val3, len(e.Children))
		for i, c := range e.Children {
			vs[i] = evalExpr(c, ivals)
		}
		return val3.And3(vs...)
	case ExprOr:
		vs := make([]val3.Val3, len(e.Children))
		for i, c := range e.Children {
			vs[i] = evalExpr(c, ivals)
		}
		return val3.Or3(vs...)
	case ExprXor:
		vs := make([]val3.Val3, len(e.Children))
		for i, c := range e.Children {
			vs[i] = evalExpr(c, ivals)
		}
		return val3.Xor3(vs...)
	}
	return val3.X
}

// calcCVal computes the control value of e when input ipos is fixed to val
// and every other input floats at X.
func calcCVal(ni int, e *Expr, ipos int, val val3.Val3) val3.Val3 {
	ivals := make([]val3.Val3, ni)
	for i := range ivals {
		ivals[i] = val3.X
	}
	ivals[ipos] = val
	return evalExpr(e, ivals)
}

// analyzePrimitive recognizes expressions that reduce to a built-in
// primitive, mirroring GateTypeMgr::new_type's call to Expr::analyze().
func analyzePrimitive(ni int, e *Expr) (Kind, bool) {
	switch {
	case e.Kind == ExprConst0 && ni == 0:
		return KindC0, true
	case e.Kind == ExprConst1 && ni == 0:
		return KindC1, true
	case ni == 1 && e.Kind == ExprLiteral:
		return KindBuff, true
	case ni == 1 && e.Kind == ExprNot && e.Children[0].Kind == ExprLiteral:
		return KindNot, true
	}

	body, negated := e, false
	if e.Kind == ExprNot {
		body, negated = e.Children[0], true
	}

	isDistinctPositiveLiterals := func() bool {
		if len(body.Children) != ni {
			return false
		}
		seen := make([]bool, ni)
		for _, c := range body.Children {
			if c.Kind != ExprLiteral || seen[c.Var] {
				return false
			}
			seen[c.Var] = true
		}
		return true
	}

	switch body.Kind {
	case ExprAnd:
		if isDistinctPositiveLiterals() {
			if negated {
				return KindNand, true
			}
			return KindAnd, true
		}
	case ExprOr:
		if isDistinctPositiveLiterals() {
			if negated {
				return KindNor, true
			}
			return KindOr, true
		}
	case ExprXor:
		if ni >= 2 && isDistinctPositiveLiterals() {
			if negated {
				return KindXnor, true
			}
			return KindXor, true
		}
	}
	return KindComplex, false
}
