// Package kernel provides StatForge's single embeddable entry point: Kernel
// wires a graph.Graph, a compiler.Compiler, and an executor.Executor behind
// one non-reentrant API (spec §3, §5). Nothing outside this package touches
// the graph, compiler, or executor directly -- every cell operation in
// SPEC_FULL flows through a Kernel method.
//
// Ported from original_source/src/stat_kernel/stat_kernel.cpp's StatKernel
// facade: each method here is a near-literal translation of its C++
// counterpart, delegating to the compiler for anything that changes cell
// shape and to the executor for anything that changes dirtiness.
package kernel

import (
	"github.com/Drox346/statforge/compiler"
	"github.com/Drox346/statforge/executor"
	"github.com/Drox346/statforge/graph"
	"github.com/Drox346/statforge/sferr"
)

// Kernel is the facade embedding applications construct and drive. It is
// not safe for concurrent use; callers that need concurrent access must
// serialize their own calls (spec §5), the same way remotekernel's REP
// socket naturally serializes one in-flight request at a time.
type Kernel struct {
	graph    *graph.Graph
	compiler *compiler.Compiler
	executor *executor.Executor
}

// New returns an empty Kernel.
func New() *Kernel {
	g := graph.New()
	return &Kernel{
		graph:    g,
		compiler: compiler.New(g),
		executor: executor.New(g),
	}
}

// CreateValueCell registers a new cell holding a plain numeric value.
func (k *Kernel) CreateValueCell(id string, value float64) error {
	return k.compiler.AddValueCell(id, value)
}

// CreateFormulaCell parses formula and registers id as a new formula cell.
func (k *Kernel) CreateFormulaCell(id string, formula string) error {
	if err := k.compiler.AddFormulaCell(id, formula); err != nil {
		return err
	}
	k.executor.MarkAsDirtyLeaf(id)
	return nil
}

// CreateAggregatorCell registers id as a new aggregator summing dependencies.
func (k *Kernel) CreateAggregatorCell(id string, dependencies []string) error {
	if err := k.compiler.AddAggregatorCell(id, dependencies); err != nil {
		return err
	}
	k.executor.MarkAsDirtyLeaf(id)
	return nil
}

// RemoveCell deletes id, failing with DependentFormulaCell if a formula
// cell still reads from it. Any surviving aggregator that read from id has
// its dependency list pruned by the graph; that aggregator is marked dirty
// here so its next read recomputes instead of returning its stale cached sum.
func (k *Kernel) RemoveCell(id string) error {
	var dirtyAggregators []string
	for _, dependentID := range k.graph.Dependents(id) {
		if dependent, ok := k.graph.Cell(dependentID); ok && dependent.Kind == graph.Aggregator {
			dirtyAggregators = append(dirtyAggregators, dependentID)
		}
	}

	if err := k.graph.RemoveCell(id); err != nil {
		return err
	}
	k.executor.Remove(id)

	for _, aggID := range dirtyAggregators {
		k.executor.MarkDirty(aggID)
	}
	return nil
}

// SetCellValue overwrites a value cell's stored number and marks its
// dependents dirty. It is a no-op if the new value equals the current one.
func (k *Kernel) SetCellValue(id string, value float64) error {
	cell, ok := k.graph.Cell(id)
	if !ok {
		return sferr.New(sferr.CellNotFound, "trying to set value of non-existing cell %q", id)
	}
	if cell.Kind != graph.Value {
		return sferr.New(sferr.CellTypeMismatch, "trying to set the value of non-value cell %q", id)
	}
	if cell.Value == value {
		return nil
	}
	cell.Value = value
	k.executor.MarkDirty(id)
	return nil
}

// SetCellFormula recompiles a formula cell's source and marks it dirty.
func (k *Kernel) SetCellFormula(id string, formula string) error {
	if err := k.compiler.SetCellFormula(id, formula); err != nil {
		return err
	}
	k.executor.MarkDirty(id)
	return nil
}

// SetCellDependencies rewires an aggregator cell's member list and marks it
// dirty.
func (k *Kernel) SetCellDependencies(id string, dependencies []string) error {
	if err := k.compiler.SetAggCellDependencies(id, dependencies, false); err != nil {
		return err
	}
	k.executor.MarkDirty(id)
	return nil
}

// GetCellValue returns id's current value, lazily reevaluating it first if
// it's dirty.
func (k *Kernel) GetCellValue(id string) (float64, error) {
	return k.executor.GetCellValue(id)
}

// Evaluate brings every dirty leaf in the graph up to date.
func (k *Kernel) Evaluate() error {
	return k.executor.Evaluate()
}

// Reset clears every cell and every pending dirty leaf, returning the
// Kernel to its newly-constructed state.
func (k *Kernel) Reset() {
	k.graph.Clear()
	k.executor.Reset()
}

// SetEvaluationStrategy selects how a dirty cell's dependency chain is
// walked during reevaluation (spec §4.5).
func (k *Kernel) SetEvaluationStrategy(s executor.Strategy) {
	k.executor.SetStrategy(s)
}

// Graph exposes the underlying dependency graph for read-only inspection,
// used by graphview's debug dump and by tests asserting on dependency shape.
// Mutating it directly instead of through Kernel's methods bypasses every
// invariant this package enforces.
func (k *Kernel) Graph() *graph.Graph {
	return k.graph
}
