package executor

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Drox346/statforge/compiler"
	"github.com/Drox346/statforge/graph"
)

func newChain(t *testing.T) (*graph.Graph, *compiler.Compiler, *Executor) {
	t.Helper()
	g := graph.New()
	c := compiler.New(g)
	e := New(g)
	require.NoError(t, c.AddValueCell("a", 2))
	require.NoError(t, c.AddFormulaCell("b", "<a> * 2"))
	e.MarkAsDirtyLeaf("b")
	require.NoError(t, c.AddFormulaCell("d", "<b> + 1"))
	e.MarkAsDirtyLeaf("d")
	return g, c, e
}

func TestGetCellValueReevaluatesWhenDirty(t *testing.T) {
	_, _, e := newChain(t)

	v, err := e.GetCellValue("d")
	require.NoError(t, err)
	assert.Equal(t, 5.0, v)
}

func TestGetCellValueNotFound(t *testing.T) {
	g := graph.New()
	e := New(g)
	_, err := e.GetCellValue("ghost")
	require.Error(t, err)
}

func TestMarkDirtyPropagatesToDependents(t *testing.T) {
	g, _, e := newChain(t)
	require.NoError(t, e.Evaluate())

	// Simulate a kernel writing a new value directly into a Value cell and
	// then triggering the dirty propagation it owns.
	cell, _ := g.Cell("a")
	cell.Value = 99
	e.MarkDirty("a")

	bCell, _ := g.Cell("b")
	dCell, _ := g.Cell("d")
	assert.True(t, bCell.Dirty)
	assert.True(t, dCell.Dirty)

	v, err := e.GetCellValue("d")
	require.NoError(t, err)
	assert.Equal(t, 199.0, v)
}

func TestMarkDirtyNeverDirtiesValueCellItself(t *testing.T) {
	g := graph.New()
	c := compiler.New(g)
	e := New(g)
	require.NoError(t, c.AddValueCell("a", 1))

	e.MarkDirty("a")
	cell, _ := g.Cell("a")
	assert.False(t, cell.Dirty)
}

func TestRemoveDropsFromDirtyLeafWorklist(t *testing.T) {
	g := graph.New()
	c := compiler.New(g)
	e := New(g)
	require.NoError(t, c.AddFormulaCell("f", "1 + 1"))
	e.MarkAsDirtyLeaf("f")

	require.NoError(t, g.RemoveCell("f"))
	e.Remove("f")

	// Evaluate must not attempt to visit the removed cell.
	require.NoError(t, e.Evaluate())
}

func TestEvaluateClearsWorklist(t *testing.T) {
	g, _, e := newChain(t)
	require.NoError(t, e.Evaluate())

	dCell, _ := g.Cell("d")
	assert.False(t, dCell.Dirty)
	assert.Equal(t, 5.0, dCell.Value)

	// A second call with nothing dirty must be a no-op, not an error.
	require.NoError(t, e.Evaluate())
}

func TestReset(t *testing.T) {
	_, _, e := newChain(t)
	e.Reset()
	require.NoError(t, e.Evaluate())
}

func TestIterativeAndRecursiveStrategiesAgree(t *testing.T) {
	buildChain := func(t *testing.T) (*graph.Graph, *Executor) {
		g := graph.New()
		c := compiler.New(g)
		e := New(g)
		require.NoError(t, c.AddValueCell("a", 3))
		require.NoError(t, c.AddFormulaCell("b", "<a> * 2"))
		e.MarkAsDirtyLeaf("b")
		require.NoError(t, c.AddFormulaCell("c", "<b> + 1"))
		e.MarkAsDirtyLeaf("c")
		require.NoError(t, c.AddFormulaCell("d", "<c> * <a>"))
		e.MarkAsDirtyLeaf("d")
		return g, e
	}

	gIter, eIter := buildChain(t)
	eIter.SetStrategy(Iterative)
	require.NoError(t, eIter.Evaluate())
	iterCell, _ := gIter.Cell("d")

	gRec, eRec := buildChain(t)
	eRec.SetStrategy(Recursive)
	require.NoError(t, eRec.Evaluate())
	recCell, _ := gRec.Cell("d")

	assert.Equal(t, iterCell.Value, recCell.Value)
	assert.Equal(t, 21.0, iterCell.Value)
}

// TestIterativeEvaluatesLongChainWithoutStackExhaustion builds a chain of
// 100,000 cells (a value cell followed by 99,999 formula cells, each
// referring only to its predecessor), records only the last one as a dirty
// leaf so a single walk covers the whole chain, and evaluates it under
// Iterative. evaluateIterative walks the chain with an
// explicit stack slice rather than Go call recursion, so its stack depth is
// bounded by len(stack), not by Go's goroutine stack -- this is the scenario
// spec §8's S8 requires proof against.
func TestIterativeEvaluatesLongChainWithoutStackExhaustion(t *testing.T) {
	const chainLength = 100_000

	g := graph.New()
	c := compiler.New(g)
	e := New(g)
	e.SetStrategy(Iterative)

	require.NoError(t, c.AddValueCell("c0", 0))
	for i := 1; i < chainLength; i++ {
		id := fmt.Sprintf("c%d", i)
		formula := fmt.Sprintf("<c%d> + 1", i-1)
		require.NoError(t, c.AddFormulaCell(id, formula))
	}
	e.MarkAsDirtyLeaf(fmt.Sprintf("c%d", chainLength-1))

	require.NoError(t, e.Evaluate())

	last, ok := g.Cell(fmt.Sprintf("c%d", chainLength-1))
	require.True(t, ok)
	assert.False(t, last.Dirty)
	assert.Equal(t, float64(chainLength-1), last.Value)
}

func TestEvaluatePropagatesFormulaError(t *testing.T) {
	g := graph.New()
	c := compiler.New(g)
	e := New(g)
	require.NoError(t, c.AddValueCell("a", 1))
	require.NoError(t, c.AddFormulaCell("f", "root(1, <a>)"))
	e.MarkAsDirtyLeaf("f")

	cell, _ := g.Cell("f")
	cell.Eval = func() (float64, error) {
		return 0, assert.AnError
	}

	err := e.Evaluate()
	require.Error(t, err)
}
