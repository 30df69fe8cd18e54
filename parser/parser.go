// Package parser implements the StatForge DSL's Pratt (top-down operator
// precedence) parser and constant folder (spec §4.2). The left/right
// binding-power shape follows original_source/src/dsl/parser.cpp's
// leftBindingPower/rightBindingPower functions more literally than the
// teacher's registerPrefix/registerInfix map style, since spec.md spells the
// binding powers out directly.
package parser

import (
	"math"

	"github.com/Drox346/statforge/ast"
	"github.com/Drox346/statforge/lexer"
	"github.com/Drox346/statforge/sferr"
	"github.com/Drox346/statforge/token"
)

// Parse tokenizes and parses source, folding constant subexpressions.
func Parse(source string) (ast.Expr, error) {
	return parse(source, true)
}

// ParseNoFold parses source without constant folding, for tests that need to
// inspect the raw tree or cross-check folded-vs-unfolded evaluation
// (testable property 8).
func ParseNoFold(source string) (ast.Expr, error) {
	return parse(source, false)
}

func parse(source string, fold bool) (ast.Expr, error) {
	tokens, err := lexer.Tokenize(source)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	expr, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}
	if p.peek().Kind != token.EOF {
		return nil, sferr.NewAt(sferr.InvalidDsl, p.peek().Span,
			"unexpected trailing token %q", p.peek().Lexeme)
	}
	if fold {
		expr, err = foldConstants(expr)
		if err != nil {
			return nil, err
		}
	}
	return expr, nil
}

type parser struct {
	tokens []token.Token
	pos    int
}

func (p *parser) peek() token.Token {
	return p.tokens[p.pos]
}

func (p *parser) advance() token.Token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

func (p *parser) match(kind token.Kind) bool {
	if p.peek().Kind != kind {
		return false
	}
	p.advance()
	return true
}

func (p *parser) expect(kind token.Kind, msg string) (token.Token, error) {
	if p.peek().Kind != kind {
		return token.Token{}, sferr.NewAt(sferr.InvalidDsl, p.peek().Span, "%s", msg)
	}
	return p.advance(), nil
}

// leftBindingPower is -1 for any token that is not a binary operator, which
// ends the precedence-climbing loop in parseExpression.
func leftBindingPower(kind token.Kind) int {
	switch kind {
	case token.Caret:
		return 11
	case token.Star, token.Slash:
		return 9
	case token.Plus, token.Minus:
		return 8
	case token.Less, token.LessEqual, token.Greater, token.GreaterEqual, token.EqualEqual, token.BangEqual:
		return 7
	case token.AndAnd:
		return 6
	case token.OrOr:
		return 5
	default:
		return -1
	}
}

// rightBindingPower: left-associative operators use lbp+1 so that an equal
// next operator does not re-bind; '^' is right-associative and uses rbp ==
// lbp == 11.
func rightBindingPower(kind token.Kind) int {
	switch kind {
	case token.Caret:
		return 11
	case token.Star, token.Slash:
		return 10
	case token.Plus, token.Minus:
		return 9
	case token.Less, token.LessEqual, token.Greater, token.GreaterEqual, token.EqualEqual, token.BangEqual:
		return 8
	case token.AndAnd:
		return 7
	case token.OrOr:
		return 6
	default:
		return -1
	}
}

const unaryBindingPower = 11

// parseExpression implements precedence climbing. The ternary check is
// unconditional (not gated by minBindingPower) so that c ? t : e may appear
// wherever an expression may, per spec §4.2 -- matching
// original_source/src/dsl/parser.cpp's parseExpression exactly.
func (p *parser) parseExpression(minBindingPower int) (ast.Expr, error) {
	lhs, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		if p.peek().Kind == token.Question {
			qSpan := p.advance().Span
			thenExpr, err := p.parseExpression(0)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.Colon, "missing ':' in ternary"); err != nil {
				return nil, err
			}
			elseExpr, err := p.parseExpression(0)
			if err != nil {
				return nil, err
			}
			lhs = &ast.Ternary{Cond: lhs, Then: thenExpr, Else: elseExpr, SpanInfo: qSpan}
			continue
		}

		nextOp := p.peek().Kind
		lbp := leftBindingPower(nextOp)
		if lbp < minBindingPower {
			break
		}
		opSpan := p.advance().Span
		rbp := rightBindingPower(nextOp)
		rhs, err := p.parseExpression(rbp)
		if err != nil {
			return nil, err
		}
		lhs = &ast.Binary{Op: nextOp, X: lhs, Y: rhs, SpanInfo: opSpan}
	}
	return lhs, nil
}

func (p *parser) parsePrimary() (ast.Expr, error) {
	tok := p.advance()
	switch tok.Kind {
	case token.Number:
		return &ast.Literal{Value: tok.Number, SpanInfo: tok.Span}, nil

	case token.CellRef:
		return &ast.Ref{Name: tok.Lexeme, SpanInfo: tok.Span}, nil

	case token.Identifier:
		if p.match(token.LeftParen) {
			var args []ast.Expr
			if p.peek().Kind != token.RightParen {
				for {
					arg, err := p.parseExpression(0)
					if err != nil {
						return nil, err
					}
					args = append(args, arg)
					if !p.match(token.Comma) {
						break
					}
				}
			}
			if _, err := p.expect(token.RightParen, "missing ')' after arguments"); err != nil {
				return nil, err
			}
			return &ast.Call{Name: tok.Lexeme, Args: args, SpanInfo: tok.Span}, nil
		}
		return nil, sferr.NewAt(sferr.InvalidDsl, tok.Span,
			"bare identifier %q not allowed; use <%s> for a cell reference", tok.Lexeme, tok.Lexeme)

	case token.Plus, token.Minus, token.Bang:
		rhs, err := p.parseExpression(unaryBindingPower)
		if err != nil {
			return nil, err
		}
		return &ast.Unary{Op: tok.Kind, X: rhs, SpanInfo: tok.Span}, nil

	case token.LeftParen:
		inner, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RightParen, "expected ')'"); err != nil {
			return nil, err
		}
		return inner, nil

	default:
		return nil, sferr.NewAt(sferr.InvalidDsl, tok.Span, "unexpected token %q in expression", tok.Lexeme)
	}
}

// foldConstants performs a post-order constant fold (spec §4.2): arithmetic
// binaries and unaries over literals fold; comparisons and logic operators
// never fold; ternaries with a literal condition collapse to the chosen
// branch; division by a literal zero is a fold-time error.
func foldConstants(e ast.Expr) (ast.Expr, error) {
	switch n := e.(type) {
	case *ast.Literal, *ast.Ref:
		return e, nil

	case *ast.Unary:
		x, err := foldConstants(n.X)
		if err != nil {
			return nil, err
		}
		n.X = x
		if lit, ok := x.(*ast.Literal); ok {
			var v float64
			switch n.Op {
			case token.Plus:
				v = lit.Value
			case token.Minus:
				v = -lit.Value
			case token.Bang:
				if lit.Value == 0.0 {
					v = 1.0
				} else {
					v = 0.0
				}
			}
			return &ast.Literal{Value: v, SpanInfo: n.SpanInfo}, nil
		}
		return n, nil

	case *ast.Binary:
		x, err := foldConstants(n.X)
		if err != nil {
			return nil, err
		}
		y, err := foldConstants(n.Y)
		if err != nil {
			return nil, err
		}
		n.X, n.Y = x, y

		litX, okX := x.(*ast.Literal)
		litY, okY := y.(*ast.Literal)
		if !okX || !okY {
			return n, nil
		}
		switch n.Op {
		case token.Plus:
			return &ast.Literal{Value: litX.Value + litY.Value, SpanInfo: n.SpanInfo}, nil
		case token.Minus:
			return &ast.Literal{Value: litX.Value - litY.Value, SpanInfo: n.SpanInfo}, nil
		case token.Star:
			return &ast.Literal{Value: litX.Value * litY.Value, SpanInfo: n.SpanInfo}, nil
		case token.Slash:
			if litY.Value == 0.0 {
				return nil, sferr.NewAt(sferr.InvalidDsl, n.SpanInfo, "division by zero")
			}
			return &ast.Literal{Value: litX.Value / litY.Value, SpanInfo: n.SpanInfo}, nil
		case token.Caret:
			return &ast.Literal{Value: math.Pow(litX.Value, litY.Value), SpanInfo: n.SpanInfo}, nil
		default:
			return n, nil // comparisons/logic are never folded
		}

	case *ast.Ternary:
		cond, err := foldConstants(n.Cond)
		if err != nil {
			return nil, err
		}
		thenExpr, err := foldConstants(n.Then)
		if err != nil {
			return nil, err
		}
		elseExpr, err := foldConstants(n.Else)
		if err != nil {
			return nil, err
		}
		n.Cond, n.Then, n.Else = cond, thenExpr, elseExpr
		if lit, ok := cond.(*ast.Literal); ok {
			if lit.Value != 0.0 {
				return thenExpr, nil
			}
			return elseExpr, nil
		}
		return n, nil

	case *ast.Call:
		for i, arg := range n.Args {
			folded, err := foldConstants(arg)
			if err != nil {
				return nil, err
			}
			n.Args[i] = folded
		}
		return n, nil

	default:
		return e, nil
	}
}
