// Package lexer implements the StatForge DSL tokenizer (spec §4.1). The
// read/peek/advance scanning shape is ported from karl's lexer/lexer.go,
// re-scoped to the small arithmetic/logic grammar spec.md §6 describes.
package lexer

import (
	"strconv"

	"github.com/Drox346/statforge/sferr"
	"github.com/Drox346/statforge/token"
)

type tokenizer struct {
	src  []byte
	pos  int
	line int
	col  int
}

// Tokenize scans src into a flat token stream terminated by token.EOF. On any
// lexing failure it returns an *sferr.Error with Kind == sferr.InvalidDsl and
// no partial token list.
func Tokenize(src string) ([]token.Token, error) {
	t := &tokenizer{src: []byte(src), line: 1, col: 1}
	var tokens []token.Token

	for {
		t.skipWhitespace()
		if t.atEOF() {
			break
		}
		tok, err := t.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
	tokens = append(tokens, token.Token{Kind: token.EOF, Span: t.here()})
	return tokens, nil
}

func (t *tokenizer) atEOF() bool { return t.pos >= len(t.src) }

func (t *tokenizer) peek() byte {
	if t.atEOF() {
		return 0
	}
	return t.src[t.pos]
}

func (t *tokenizer) peekAt(offset int) byte {
	idx := t.pos + offset
	if idx >= len(t.src) {
		return 0
	}
	return t.src[idx]
}

func (t *tokenizer) here() token.Span {
	return token.Span{Line: t.line, Column: t.col}
}

func (t *tokenizer) advance() byte {
	ch := t.src[t.pos]
	t.pos++
	if ch == '\n' {
		t.line++
		t.col = 1
	} else {
		t.col++
	}
	return ch
}

func (t *tokenizer) skipWhitespace() {
	for !t.atEOF() && isSpace(t.peek()) {
		t.advance()
	}
}

func isSpace(c byte) bool  { return c == ' ' || c == '\t' || c == '\r' || c == '\n' }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isAlpha(c byte) bool  { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' }
func isRefChar(c byte) bool {
	return isAlpha(c) || isDigit(c)
}

func (t *tokenizer) next() (token.Token, error) {
	start := t.here()
	ch := t.peek()

	switch {
	case isDigit(ch):
		return t.number(start), nil
	case isAlpha(ch):
		return t.identifierOrKeyword(start), nil
	case ch == '<':
		return t.lessOrCellRef(start)
	case ch == '"':
		t.advance()
		return token.Token{}, sferr.NewAt(sferr.InvalidDsl, start, "string literals are not supported")
	}

	t.advance()
	switch ch {
	case '(':
		return t.simple(token.LeftParen, "(", start), nil
	case ')':
		return t.simple(token.RightParen, ")", start), nil
	case ',':
		return t.simple(token.Comma, ",", start), nil
	case '?':
		return t.simple(token.Question, "?", start), nil
	case ':':
		return t.simple(token.Colon, ":", start), nil
	case '+':
		return t.simple(token.Plus, "+", start), nil
	case '-':
		return t.simple(token.Minus, "-", start), nil
	case '*':
		return t.simple(token.Star, "*", start), nil
	case '/':
		return t.simple(token.Slash, "/", start), nil
	case '^':
		return t.simple(token.Caret, "^", start), nil
	case '!':
		if t.peek() == '=' {
			t.advance()
			return token.Token{Kind: token.BangEqual, Lexeme: "!=", Span: start}, nil
		}
		return t.simple(token.Bang, "!", start), nil
	case '>':
		if t.peek() == '=' {
			t.advance()
			return token.Token{Kind: token.GreaterEqual, Lexeme: ">=", Span: start}, nil
		}
		return t.simple(token.Greater, ">", start), nil
	case '=':
		if t.peek() == '=' {
			t.advance()
			return token.Token{Kind: token.EqualEqual, Lexeme: "==", Span: start}, nil
		}
		return token.Token{}, sferr.NewAt(sferr.InvalidDsl, start, "unexpected character '='")
	case '&':
		if t.peek() == '&' {
			t.advance()
			return token.Token{Kind: token.AndAnd, Lexeme: "&&", Span: start}, nil
		}
		return token.Token{}, sferr.NewAt(sferr.InvalidDsl, start, "unexpected character '&'")
	case '|':
		if t.peek() == '|' {
			t.advance()
			return token.Token{Kind: token.OrOr, Lexeme: "||", Span: start}, nil
		}
		return token.Token{}, sferr.NewAt(sferr.InvalidDsl, start, "unexpected character '|'")
	default:
		return token.Token{}, sferr.NewAt(sferr.InvalidDsl, start, "unexpected character '%c'", ch)
	}
}

func (t *tokenizer) simple(kind token.Kind, lexeme string, span token.Span) token.Token {
	return token.Token{Kind: kind, Lexeme: lexeme, Span: span}
}

// lessOrCellRef handles '<': a following '=' is checked first (spec §4.1: "A
// <= is recognized before the cell-reference attempt"), then a following
// identifier-start character begins a cell reference, otherwise it's a bare
// '<'.
func (t *tokenizer) lessOrCellRef(start token.Span) (token.Token, error) {
	t.advance() // consume '<'
	if t.peek() == '=' {
		t.advance()
		return token.Token{Kind: token.LessEqual, Lexeme: "<=", Span: start}, nil
	}
	if isAlpha(t.peek()) {
		return t.cellReference(start)
	}
	return token.Token{Kind: token.Less, Lexeme: "<", Span: start}, nil
}

func (t *tokenizer) cellReference(start token.Span) (token.Token, error) {
	nameStart := t.pos
	for isRefChar(t.peek()) {
		t.advance()
	}
	name := string(t.src[nameStart:t.pos])
	if t.peek() != '>' {
		return token.Token{}, sferr.NewAt(sferr.InvalidDsl, t.here(), "unterminated cell reference")
	}
	t.advance() // consume '>'
	return token.Token{Kind: token.CellRef, Lexeme: name, Span: start}, nil
}

func (t *tokenizer) number(start token.Span) token.Token {
	nameStart := t.pos
	for isDigit(t.peek()) {
		t.advance()
	}
	if t.peek() == '.' && isDigit(t.peekAt(1)) {
		t.advance() // consume '.'
		for isDigit(t.peek()) {
			t.advance()
		}
	}
	lex := string(t.src[nameStart:t.pos])
	val, _ := strconv.ParseFloat(lex, 64)
	return token.Token{Kind: token.Number, Lexeme: lex, Span: start, Number: val}
}

func (t *tokenizer) identifierOrKeyword(start token.Span) token.Token {
	nameStart := t.pos
	for isRefChar(t.peek()) {
		t.advance()
	}
	lex := string(t.src[nameStart:t.pos])
	switch lex {
	case "true":
		return token.Token{Kind: token.Number, Lexeme: lex, Span: start, Number: 1.0}
	case "false":
		return token.Token{Kind: token.Number, Lexeme: lex, Span: start, Number: 0.0}
	default:
		return token.Token{Kind: token.Identifier, Lexeme: lex, Span: start}
	}
}
