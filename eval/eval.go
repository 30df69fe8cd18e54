// Package eval evaluates a parsed expression tree against a cell-value
// lookup (spec §4.3) and extracts the set of cell names an expression
// depends on (spec §4.4). Both functions are ported from
// original_source/src/dsl/evaluator.cpp's evaluate/extractDependencies,
// re-expressed as a Go tree-walk over ast.Expr instead of a std::visit
// over a tagged variant.
package eval

import (
	"math"

	"github.com/Drox346/statforge/ast"
	"github.com/Drox346/statforge/sferr"
	"github.com/Drox346/statforge/token"
)

// Lookup resolves a cell name to its current value. It returns ok == false
// when the name is not a known cell, which Evaluate surfaces as a
// sferr.DependencyDoesntExist error.
type Lookup func(name string) (value float64, ok bool)

// Evaluate computes the numeric value of expr. Arithmetic follows IEEE-754
// semantics throughout: division by zero, overflow, and NaN propagate as
// Inf/-Inf/NaN rather than being trapped, matching the evaluator's design of
// never interrupting a bulk reevaluation pass for one cell's numeric
// degeneracy. Logical && and || are non-short-circuiting: both operands are
// always evaluated (the language has no side effects, so this only affects
// which Ref lookups execute, never the result) and combined via the
// truthiness of each side. Ternary is likewise eager: both branches are
// evaluated before the condition selects one, so Dependencies and Evaluate
// agree on which refs a formula touches regardless of which branch "wins".
func Evaluate(expr ast.Expr, lookup Lookup) (float64, error) {
	switch n := expr.(type) {
	case *ast.Literal:
		return n.Value, nil

	case *ast.Ref:
		v, ok := lookup(n.Name)
		if !ok {
			return 0, sferr.NewAt(sferr.DependencyDoesntExist, n.SpanInfo,
				"cell %q does not exist", n.Name)
		}
		return v, nil

	case *ast.Unary:
		x, err := Evaluate(n.X, lookup)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case token.Plus:
			return x, nil
		case token.Minus:
			return -x, nil
		case token.Bang:
			return boolToFloat(!truthy(x)), nil
		default:
			return 0, sferr.NewAt(sferr.InvalidDsl, n.SpanInfo, "unknown unary operator %q", n.Op)
		}

	case *ast.Binary:
		x, err := Evaluate(n.X, lookup)
		if err != nil {
			return 0, err
		}
		y, err := Evaluate(n.Y, lookup)
		if err != nil {
			return 0, err
		}
		return evalBinary(n, x, y)

	case *ast.Ternary:
		cond, err := Evaluate(n.Cond, lookup)
		if err != nil {
			return 0, err
		}
		thenV, err := Evaluate(n.Then, lookup)
		if err != nil {
			return 0, err
		}
		elseV, err := Evaluate(n.Else, lookup)
		if err != nil {
			return 0, err
		}
		if truthy(cond) {
			return thenV, nil
		}
		return elseV, nil

	case *ast.Call:
		return evalCall(n, lookup)

	default:
		return 0, sferr.New(sferr.InternalInvalidEngineState, "unrecognized expression node %T", expr)
	}
}

func evalBinary(n *ast.Binary, x, y float64) (float64, error) {
	switch n.Op {
	case token.Plus:
		return x + y, nil
	case token.Minus:
		return x - y, nil
	case token.Star:
		return x * y, nil
	case token.Slash:
		return x / y, nil
	case token.Caret:
		return math.Pow(x, y), nil
	case token.Less:
		return boolToFloat(x < y), nil
	case token.LessEqual:
		return boolToFloat(x <= y), nil
	case token.Greater:
		return boolToFloat(x > y), nil
	case token.GreaterEqual:
		return boolToFloat(x >= y), nil
	case token.EqualEqual:
		return boolToFloat(x == y), nil
	case token.BangEqual:
		return boolToFloat(x != y), nil
	case token.AndAnd:
		return boolToFloat(truthy(x)) * boolToFloat(truthy(y)), nil
	case token.OrOr:
		return math.Max(boolToFloat(truthy(x)), boolToFloat(truthy(y))), nil
	default:
		return 0, sferr.NewAt(sferr.InvalidDsl, n.SpanInfo, "unknown binary operator %q", n.Op)
	}
}

func evalCall(n *ast.Call, lookup Lookup) (float64, error) {
	switch n.Name {
	case "root":
		if len(n.Args) != 2 {
			return 0, sferr.NewAt(sferr.InvalidDsl, n.SpanInfo,
				"root() takes exactly 2 arguments, got %d", len(n.Args))
		}
		degree, err := Evaluate(n.Args[0], lookup)
		if err != nil {
			return 0, err
		}
		x, err := Evaluate(n.Args[1], lookup)
		if err != nil {
			return 0, err
		}
		return math.Pow(x, 1.0/degree), nil
	default:
		return 0, sferr.NewAt(sferr.InvalidDsl, n.SpanInfo, "unknown function %q", n.Name)
	}
}

// truthy follows spec §4.3: zero and NaN are falsy, everything else
// (including Inf and -Inf) is truthy.
func truthy(x float64) bool {
	return x != 0 && !math.IsNaN(x)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}

// Dependencies returns the distinct cell names expr references, in
// first-appearance order. Both branches of a ternary and every call argument
// are walked unconditionally, matching Evaluate's eager, non-short-circuiting
// evaluation so the dependency set can never miss a ref that a particular
// runtime value might still touch.
func Dependencies(expr ast.Expr) []string {
	var ordered []string
	seen := make(map[string]bool)
	walkDeps(expr, seen, &ordered)
	return ordered
}

func walkDeps(expr ast.Expr, seen map[string]bool, ordered *[]string) {
	switch n := expr.(type) {
	case *ast.Literal:
	case *ast.Ref:
		if !seen[n.Name] {
			seen[n.Name] = true
			*ordered = append(*ordered, n.Name)
		}
	case *ast.Unary:
		walkDeps(n.X, seen, ordered)
	case *ast.Binary:
		walkDeps(n.X, seen, ordered)
		walkDeps(n.Y, seen, ordered)
	case *ast.Ternary:
		walkDeps(n.Cond, seen, ordered)
		walkDeps(n.Then, seen, ordered)
		walkDeps(n.Else, seen, ordered)
	case *ast.Call:
		for _, arg := range n.Args {
			walkDeps(arg, seen, ordered)
		}
	}
}
