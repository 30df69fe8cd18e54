package ast

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Drox346/statforge/token"
)

// Dump renders an Expr back into valid, fully-parenthesized DSL source, e.g.
// "(<a> + 1)". Every compound node is wrapped in parentheses so the result
// needs no knowledge of operator precedence to re-parse. This is the backbone
// of testable property 7 (tokenize . dump . parse preserves evaluated
// value): re-tokenizing and re-parsing Dump's output evaluates identically to
// the original tree. Non-finite literals, which only constant folding can
// produce, print as NaN, +Inf or -Inf and do not re-parse.
func Dump(e Expr) string {
	var b strings.Builder
	dump(&b, e)
	return b.String()
}

func dump(b *strings.Builder, e Expr) {
	switch n := e.(type) {
	case *Literal:
		b.WriteString(strconv.FormatFloat(n.Value, 'f', -1, 64))
	case *Ref:
		fmt.Fprintf(b, "<%s>", n.Name)
	case *Unary:
		b.WriteByte('(')
		b.WriteString(string(n.Op))
		dump(b, n.X)
		b.WriteByte(')')
	case *Binary:
		b.WriteByte('(')
		// A negative literal base would print as "-2 ^ x" and re-parse as
		// -(2 ^ x), so it gets its own parentheses.
		if lit, ok := n.X.(*Literal); ok && n.Op == token.Caret && math.Signbit(lit.Value) {
			b.WriteByte('(')
			dump(b, n.X)
			b.WriteByte(')')
		} else {
			dump(b, n.X)
		}
		fmt.Fprintf(b, " %s ", n.Op)
		dump(b, n.Y)
		b.WriteByte(')')
	case *Ternary:
		b.WriteByte('(')
		dump(b, n.Cond)
		b.WriteString(" ? ")
		dump(b, n.Then)
		b.WriteString(" : ")
		dump(b, n.Else)
		b.WriteByte(')')
	case *Call:
		b.WriteString(n.Name)
		b.WriteByte('(')
		for i, arg := range n.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			dump(b, arg)
		}
		b.WriteByte(')')
	default:
		b.WriteString("<unknown>")
	}
}
