// Package ast defines the StatForge expression tree (spec §3). The tree is
// immutable once parsed and is owned by the formula closure installed into a
// cell; the node shape mirrors kalexmills-spreadsheets/internal/expr.go's
// marker-interface variant set, generalized to the DSL's full grammar.
package ast

import "github.com/Drox346/statforge/token"

// Expr is the marker interface implemented by every expression tree node.
type Expr interface {
	exprNode()
	Span() token.Span
}

// Literal is a numeric constant.
type Literal struct {
	Value    float64
	SpanInfo token.Span
}

// Ref is a reference to another cell by name.
type Ref struct {
	Name     string
	SpanInfo token.Span
}

// Unary is a prefix operator applied to one operand (+, -, !).
type Unary struct {
	Op       token.Kind
	X        Expr
	SpanInfo token.Span
}

// Binary is an infix operator applied to two operands.
type Binary struct {
	Op       token.Kind
	X, Y     Expr
	SpanInfo token.Span
}

// Ternary is the c ? t : e conditional form.
type Ternary struct {
	Cond, Then, Else Expr
	SpanInfo         token.Span
}

// Call is an invocation of one of the small builtin function set (only
// "root" is recognized, spec §4.3).
type Call struct {
	Name     string
	Args     []Expr
	SpanInfo token.Span
}

func (*Literal) exprNode() {}
func (*Ref) exprNode()     {}
func (*Unary) exprNode()   {}
func (*Binary) exprNode()  {}
func (*Ternary) exprNode() {}
func (*Call) exprNode()    {}

func (n *Literal) Span() token.Span { return n.SpanInfo }
func (n *Ref) Span() token.Span     { return n.SpanInfo }
func (n *Unary) Span() token.Span   { return n.SpanInfo }
func (n *Binary) Span() token.Span  { return n.SpanInfo }
func (n *Ternary) Span() token.Span { return n.SpanInfo }
func (n *Call) Span() token.Span    { return n.SpanInfo }
