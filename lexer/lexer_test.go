package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Drox346/statforge/sferr"
	"github.com/Drox346/statforge/token"
)

func kinds(tokens []token.Token) []token.Kind {
	ks := make([]token.Kind, len(tokens))
	for i, t := range tokens {
		ks[i] = t.Kind
	}
	return ks
}

func TestTokenizeOperators(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []token.Kind
	}{
		{"arithmetic", "1 + 2 * 3", []token.Kind{token.Number, token.Plus, token.Number, token.Star, token.Number, token.EOF}},
		{"comparisons", "<a> <= <b>", []token.Kind{token.CellRef, token.LessEqual, token.CellRef, token.EOF}},
		{"bare less", "1 < 2", []token.Kind{token.Number, token.Less, token.Number, token.EOF}},
		{"logic", "1 && 0 || 1", []token.Kind{token.Number, token.AndAnd, token.Number, token.OrOr, token.Number, token.EOF}},
		{"ternary", "<a> ? 1 : 2", []token.Kind{token.CellRef, token.Question, token.Number, token.Colon, token.Number, token.EOF}},
		{"bang and not-equal", "!<a> != 1", []token.Kind{token.Bang, token.CellRef, token.BangEqual, token.Number, token.EOF}},
		{"call", "root(4, 2)", []token.Kind{token.Identifier, token.LeftParen, token.Number, token.Comma, token.Number, token.RightParen, token.EOF}},
		{"booleans fold to number", "true + false", []token.Kind{token.Number, token.Plus, token.Number, token.EOF}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tokens, err := Tokenize(tc.src)
			require.NoError(t, err)
			assert.Equal(t, tc.want, kinds(tokens))
		})
	}
}

func TestTokenizeCellRefName(t *testing.T) {
	tokens, err := Tokenize("<revenue42>")
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, token.CellRef, tokens[0].Kind)
	assert.Equal(t, "revenue42", tokens[0].Lexeme)
}

func TestTokenizeNumberValue(t *testing.T) {
	tokens, err := Tokenize("3.5")
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, 3.5, tokens[0].Number)
}

func TestTokenizeTrueFalseValues(t *testing.T) {
	tokens, err := Tokenize("true false")
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.Equal(t, 1.0, tokens[0].Number)
	assert.Equal(t, 0.0, tokens[1].Number)
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unterminated cell ref", "<abc"},
		{"string literal unsupported", `"hi"`},
		{"bare equal", "1 = 2"},
		{"bare ampersand", "1 & 2"},
		{"bare pipe", "1 | 2"},
		{"unknown char", "1 @ 2"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Tokenize(tc.src)
			require.Error(t, err)
			sfErr, ok := err.(*sferr.Error)
			require.True(t, ok)
			assert.Equal(t, sferr.InvalidDsl, sfErr.Kind)
		})
	}
}

func TestTokenizeSpanTracksLineAndColumn(t *testing.T) {
	tokens, err := Tokenize("1\n  2")
	require.NoError(t, err)
	require.Len(t, tokens, 3)
	assert.Equal(t, token.Span{Line: 1, Column: 1}, tokens[0].Span)
	assert.Equal(t, token.Span{Line: 2, Column: 3}, tokens[1].Span)
}
