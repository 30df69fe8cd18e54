package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Drox346/statforge/token"
)

func TestDump(t *testing.T) {
	tests := []struct {
		name string
		expr Expr
		want string
	}{
		{
			name: "literal",
			expr: &Literal{Value: 3.5},
			want: "3.5",
		},
		{
			name: "ref",
			expr: &Ref{Name: "a"},
			want: "<a>",
		},
		{
			name: "unary",
			expr: &Unary{Op: token.Minus, X: &Literal{Value: 1}},
			want: "(-1)",
		},
		{
			name: "binary",
			expr: &Binary{Op: token.Plus, X: &Ref{Name: "a"}, Y: &Literal{Value: 1}},
			want: "(<a> + 1)",
		},
		{
			name: "ternary",
			expr: &Ternary{Cond: &Ref{Name: "a"}, Then: &Literal{Value: 1}, Else: &Literal{Value: 2}},
			want: "(<a> ? 1 : 2)",
		},
		{
			name: "call",
			expr: &Call{Name: "root", Args: []Expr{&Literal{Value: 4}, &Literal{Value: 2}}},
			want: "root(4, 2)",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Dump(tc.expr))
		})
	}
}

func TestSpanAccessors(t *testing.T) {
	span := token.Span{Line: 2, Column: 5}
	nodes := []Expr{
		&Literal{SpanInfo: span},
		&Ref{SpanInfo: span},
		&Unary{SpanInfo: span},
		&Binary{SpanInfo: span},
		&Ternary{SpanInfo: span},
		&Call{SpanInfo: span},
	}
	for _, n := range nodes {
		assert.Equal(t, span, n.Span())
	}
}
