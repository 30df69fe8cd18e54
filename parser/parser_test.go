package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Drox346/statforge/ast"
	"github.com/Drox346/statforge/eval"
	"github.com/Drox346/statforge/sferr"
)

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"mul over add", "1 + 2 * 3", "(1 + (2 * 3))"},
		{"caret right assoc", "2 ^ 3 ^ 2", "(2 ^ (3 ^ 2))"},
		{"parens", "(1 + 2) * 3", "((1 + 2) * 3)"},
		{"unary binds tighter than binary", "-1 + 2", "((-1) + 2)"},
		{"comparison lower than add", "1 + 2 > 2", "((1 + 2) > 2)"},
		{"and lower than comparison", "1 > 0 && 0 < 1", "((1 > 0) && (0 < 1))"},
		{"or lowest", "1 && 0 || 1", "((1 && 0) || 1)"},
		{"ternary", "<a> ? 1 : 2", "(<a> ? 1 : 2)"},
		{"call", "root(4, 2)", "root(4, 2)"},
		{"cell ref", "<revenue>", "<revenue>"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			expr, err := ParseNoFold(tc.source)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ast.Dump(expr))
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"1 +",
		"bareident",
		"(1 + 2",
		"<a> ? 1",
		"1 2",
		"root(1,",
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(src)
			require.Error(t, err)
			_, ok := err.(*sferr.Error)
			assert.True(t, ok)
		})
	}
}

func TestFoldConstants(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"add", "1 + 2", "3"},
		{"nested", "(1 + 2) * 3", "9"},
		{"unary minus", "-(2 + 3)", "-5"},
		{"unary bang", "!0", "1"},
		{"power", "2 ^ 3", "8"},
		{"ternary true branch", "1 ? 2 : 3", "2"},
		{"ternary false branch", "0 ? 2 : 3", "3"},
		{"comparisons never fold", "1 < 2", "(1 < 2)"},
		{"logic never folds", "1 && 1", "(1 && 1)"},
		{"ref blocks fold", "<a> + 1", "(<a> + 1)"},
		{"call args fold but call itself does not", "root(4 + 0, 2)", "root(4, 2)"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			expr, err := Parse(tc.source)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ast.Dump(expr))
		})
	}
}

func TestFoldDivisionByLiteralZeroIsParseError(t *testing.T) {
	_, err := Parse("1 / 0")
	require.Error(t, err)
	sfErr, ok := err.(*sferr.Error)
	require.True(t, ok)
	assert.Equal(t, sferr.InvalidDsl, sfErr.Kind)
}

func TestParseNoFoldKeepsDivisionByZero(t *testing.T) {
	expr, err := ParseNoFold("1 / 0")
	require.NoError(t, err)
	assert.Equal(t, "(1 / 0)", ast.Dump(expr))
}

// TestDumpRoundTripPreservesEvaluatedValue exercises spec property 7:
// tokenizing and re-parsing Dump's output evaluates to the same value as the
// original tree, for every shape Dump can produce (refs, calls, unary,
// binary, ternary, and their combinations).
func TestDumpRoundTripPreservesEvaluatedValue(t *testing.T) {
	sources := []string{
		"1 + 2 * 3",
		"2 ^ 3 ^ 2",
		"(1 + 2) * 3",
		"-1 + 2",
		"1 + 2 > 2",
		"1 > 0 && 0 < 1",
		"1 && 0 || 1",
		"<a> ? 1 : 2",
		"root(4, 2)",
		"!0 + 1",
		"<a> + root(<a>, 9)",
	}
	lookup := func(name string) (float64, bool) {
		if name == "a" {
			return 1, true
		}
		return 0, false
	}

	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			expr, err := ParseNoFold(src)
			require.NoError(t, err)
			want, err := eval.Evaluate(expr, lookup)
			require.NoError(t, err)

			dumped := ast.Dump(expr)
			reparsed, err := ParseNoFold(dumped)
			require.NoError(t, err)
			got, err := eval.Evaluate(reparsed, lookup)
			require.NoError(t, err)

			assert.Equal(t, want, got)
		})
	}
}
