// Package graph holds the dependency DAG underneath a StatForge kernel (spec
// §3, §4.4). It owns no evaluation logic; it only tracks which cells exist,
// what each depends on, and what depends on each, and refuses edits that
// would create a cycle or dangle a reference.
//
// Ported from original_source/src/spreadsheet/graph.cpp, generalized to Go
// maps in place of the C++ unordered_map<CellId, ...> pair, and to the
// golang.org/x/exp/maps helpers karl already depends on for bulk map
// clearing/keying.
package graph

import (
	"golang.org/x/exp/maps"

	"github.com/Drox346/statforge/sferr"
)

// Kind identifies how a Cell's value is produced (spec §3).
type Kind int

const (
	Value Kind = iota
	Formula
	Aggregator
)

func (k Kind) String() string {
	switch k {
	case Value:
		return "Value"
	case Formula:
		return "Formula"
	case Aggregator:
		return "Aggregator"
	default:
		return "Unknown"
	}
}

// Eval computes a formula or aggregator cell's value from its dependencies'
// current values. Value cells carry a nil Eval and are only ever written via
// kernel.Kernel.SetCellValue.
type Eval func() (float64, error)

// Cell is one node of the graph. Dirty marks that Value is stale relative to
// its dependencies and must be recomputed before the next read (spec §4.5's
// lazy pull model).
type Cell struct {
	Kind  Kind
	Dirty bool
	Value float64
	Eval  Eval
}

// Graph is the bidirectional adjacency structure: dependencies records what
// each cell reads from, dependents records who would need to be marked dirty
// if a cell's value changed. Both are kept in sync by every mutating method.
type Graph struct {
	cells        map[string]*Cell
	dependencies map[string][]string
	dependents   map[string][]string

	// scratch is reused across hasPath calls to avoid reallocating on every
	// dependency edit, matching the teacher's static work-stack idiom in
	// the original C++ -- a Go static would need a package-level var guarded
	// by a mutex, so instead it lives on the Graph value itself.
	scratch struct {
		stack   []string
		visited map[string]bool
	}
}

// New returns an empty Graph ready for use.
func New() *Graph {
	return &Graph{
		cells:        make(map[string]*Cell),
		dependencies: make(map[string][]string),
		dependents:   make(map[string][]string),
	}
}

// Contains reports whether id names an existing cell.
func (g *Graph) Contains(id string) bool {
	_, ok := g.cells[id]
	return ok
}

// Cell returns the named cell. The returned pointer aliases the graph's
// internal storage; callers may mutate Value/Dirty through it but must not
// replace Kind or Eval outside of the compiler package.
func (g *Graph) Cell(id string) (*Cell, bool) {
	c, ok := g.cells[id]
	return c, ok
}

// Dependencies returns the cells id directly reads from, in insertion order.
// The returned slice must not be mutated by the caller.
func (g *Graph) Dependencies(id string) []string {
	return g.dependencies[id]
}

// Dependents returns the cells that directly read from id.
func (g *Graph) Dependents(id string) []string {
	return g.dependents[id]
}

// AddCell registers a new cell with no dependencies. It fails if id is
// already taken.
func (g *Graph) AddCell(id string, cell Cell) error {
	if g.Contains(id) {
		return sferr.New(sferr.CellAlreadyExists, "trying to add already existing cell %q", id)
	}
	c := cell
	g.cells[id] = &c
	return nil
}

// SetCellDependencies atomically replaces id's dependency list. Every entry
// of newDeps must name an existing cell other than id itself, and (unless
// skipCycleCheck is set, which the compiler does only for a freshly created
// cell that no other cell can reference yet) must not introduce a cycle. On
// any failure the graph is left completely unchanged.
func (g *Graph) SetCellDependencies(id string, newDeps []string, skipCycleCheck bool) error {
	if !g.Contains(id) {
		return sferr.New(sferr.CellNotFound, "trying to set dependencies for non-existing cell %q", id)
	}

	for _, dep := range newDeps {
		if !g.Contains(dep) {
			return sferr.New(sferr.DependencyDoesntExist,
				"trying to add non-existing dependency %q to %q", dep, id)
		}
		if dep == id {
			return sferr.New(sferr.SelfReference, "%q is trying to set itself as a dependency", id)
		}
		if !skipCycleCheck && g.hasPath(dep, id) {
			return sferr.New(sferr.DependencyLoop,
				"trying to set dependency of %q with cyclic dependency", id)
		}
	}

	currentDeps := g.dependencies[id]

	for _, dep := range newDeps {
		if !containsStr(currentDeps, dep) {
			g.dependents[dep] = append(g.dependents[dep], id)
		}
	}

	for _, prevDep := range currentDeps {
		if !containsStr(newDeps, prevDep) {
			g.dependents[prevDep] = removeStr(g.dependents[prevDep], id)
		}
	}

	cp := make([]string, len(newDeps))
	copy(cp, newDeps)
	g.dependencies[id] = cp
	return nil
}

// RemoveCell deletes id, as long as no Formula cell still depends on it
// (spec §4.4: an aggregator survives, with id pruned from its dependency
// list here, but a formula whose expression still names the cell would be
// left dangling, so removal is refused).
func (g *Graph) RemoveCell(id string) error {
	if !g.Contains(id) {
		return sferr.New(sferr.CellNotFound, "trying to remove non-existing cell %q", id)
	}

	for _, dependentID := range g.dependents[id] {
		dependent := g.cells[dependentID]
		if dependent.Kind == Formula {
			return sferr.New(sferr.DependentFormulaCell,
				"trying to remove cell %q that formula cell %q depends on", id, dependentID)
		}
	}

	for _, dependentID := range g.dependents[id] {
		g.dependencies[dependentID] = removeStr(g.dependencies[dependentID], id)
	}
	delete(g.dependents, id)

	for _, dependencyID := range g.dependencies[id] {
		g.dependents[dependencyID] = removeStr(g.dependents[dependencyID], id)
	}
	delete(g.dependencies, id)

	delete(g.cells, id)
	return nil
}

// Clear removes every cell and edge, resetting the graph to its zero state.
func (g *Graph) Clear() {
	maps.Clear(g.cells)
	maps.Clear(g.dependencies)
	maps.Clear(g.dependents)
}

// hasPath reports whether target is reachable from src by following
// dependency edges, via an explicit-stack DFS so arbitrarily long dependency
// chains never risk a Go call-stack overflow (the same stack-safety concern
// the executor's iterative evaluation strategy addresses for value
// computation).
func (g *Graph) hasPath(src, target string) bool {
	if g.scratch.visited == nil {
		g.scratch.visited = make(map[string]bool)
	}
	maps.Clear(g.scratch.visited)
	g.scratch.stack = g.scratch.stack[:0]
	g.scratch.stack = append(g.scratch.stack, src)

	for len(g.scratch.stack) > 0 {
		n := len(g.scratch.stack) - 1
		current := g.scratch.stack[n]
		g.scratch.stack = g.scratch.stack[:n]

		if current == target {
			return true
		}
		if g.scratch.visited[current] {
			continue
		}
		g.scratch.visited[current] = true

		for _, dep := range g.dependencies[current] {
			g.scratch.stack = append(g.scratch.stack, dep)
		}
	}
	return false
}

func containsStr(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func removeStr(s []string, v string) []string {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
