package eval

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Drox346/statforge/parser"
	"github.com/Drox346/statforge/sferr"
)

func lookupFrom(values map[string]float64) Lookup {
	return func(name string) (float64, bool) {
		v, ok := values[name]
		return v, ok
	}
}

func evalSource(t *testing.T, source string, values map[string]float64) float64 {
	t.Helper()
	expr, err := parser.ParseNoFold(source)
	require.NoError(t, err)
	v, err := Evaluate(expr, lookupFrom(values))
	require.NoError(t, err)
	return v
}

func TestEvaluateArithmetic(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   float64
	}{
		{"add", "1 + 2", 3},
		{"precedence", "1 + 2 * 3", 7},
		{"power right assoc", "2 ^ 3 ^ 2", 512},
		{"unary minus", "-(2 + 3)", -5},
		{"comparison true", "3 > 2", 1},
		{"comparison false", "3 < 2", 0},
		{"and both true", "1 && 1", 1},
		{"and one false", "1 && 0", 0},
		{"or one true", "0 || 1", 1},
		{"bang of zero", "!0", 1},
		{"bang of nonzero", "!5", 0},
		{"ref", "<a> + 1", 11},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := evalSource(t, tc.source, map[string]float64{"a": 10})
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvaluateTernarySelectsTrueBranch(t *testing.T) {
	// A truthy condition selects the then-branch's value. Eager evaluation
	// of the unselected branch is checked by the next test.
	got := evalSource(t, "<flag> ? <a> : 0", map[string]float64{"flag": 1, "a": 42})
	assert.Equal(t, 42.0, got)
}

func TestEvaluateTernaryMissingBranchRefStillErrors(t *testing.T) {
	// Eager evaluation means the unselected branch's ref is still looked up;
	// a missing cell there must still surface as an error.
	expr, err := parser.ParseNoFold("1 ? 2 : <missing>")
	require.NoError(t, err)
	_, err = Evaluate(expr, lookupFrom(nil))
	require.Error(t, err)
	sfErr, ok := err.(*sferr.Error)
	require.True(t, ok)
	assert.Equal(t, sferr.DependencyDoesntExist, sfErr.Kind)
}

func TestEvaluateDivisionByZeroIsIEEE754Passthrough(t *testing.T) {
	got := evalSource(t, "1 / 0", nil)
	assert.True(t, math.IsInf(got, 1))

	got = evalSource(t, "0 / 0", nil)
	assert.True(t, math.IsNaN(got))
}

func TestEvaluateMissingRef(t *testing.T) {
	expr, err := parser.ParseNoFold("<missing> + 1")
	require.NoError(t, err)
	_, err = Evaluate(expr, lookupFrom(nil))
	require.Error(t, err)
	sfErr, ok := err.(*sferr.Error)
	require.True(t, ok)
	assert.Equal(t, sferr.DependencyDoesntExist, sfErr.Kind)
}

func TestEvaluateRoot(t *testing.T) {
	got := evalSource(t, "root(2, 9)", nil)
	assert.InDelta(t, 3.0, got, 1e-9)
}

func TestEvaluateRootArityError(t *testing.T) {
	expr, err := parser.ParseNoFold("root(9)")
	require.NoError(t, err)
	_, err = Evaluate(expr, lookupFrom(nil))
	require.Error(t, err)
}

func TestEvaluateUnknownFunction(t *testing.T) {
	expr, err := parser.ParseNoFold("bogus(1, 2)")
	require.NoError(t, err)
	_, err = Evaluate(expr, lookupFrom(nil))
	require.Error(t, err)
}

func TestDependencies(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []string
	}{
		{"single ref", "<a> + 1", []string{"a"}},
		{"dedup and order", "<a> + <b> + <a>", []string{"a", "b"}},
		{"ternary touches both branches", "<c> ? <a> : <b>", []string{"c", "a", "b"}},
		{"call args", "root(<a>, <b>)", []string{"a", "b"}},
		{"no refs", "1 + 2", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			expr, err := parser.ParseNoFold(tc.source)
			require.NoError(t, err)
			assert.Equal(t, tc.want, Dependencies(expr))
		})
	}
}
