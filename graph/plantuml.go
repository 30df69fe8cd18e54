package graph

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
)

// DumpPlantUML renders the graph as a PlantUML component diagram: one
// rectangle per cell, color-coded by Kind and dirtiness, with an arrow for
// every dependency edge. It's the debug view graphview pushes to connected
// clients and is restored from original_source/src/debug/puml.cpp, which the
// spec.md distillation dropped entirely.
func (g *Graph) DumpPlantUML() string {
	var b strings.Builder
	b.WriteString("@startuml\n")
	b.WriteString("hide stereotype\n")
	b.WriteString("skinparam rectangle {\n")
	b.WriteString("  BackgroundColor<<Dirty>> Red\n")
	b.WriteString("  BorderColor<<Agg>> Black\n")
	b.WriteString("  BorderColor<<Formula>> Green\n")
	b.WriteString("  BorderColor<<Value>> Red\n")
	b.WriteString("  FontColor<<Dirty>> White\n")
	b.WriteString("  BorderThickness 2.5\n")
	b.WriteString("}\n\n")

	ids := make([]string, 0, len(g.cells))
	for id := range g.cells {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var edges strings.Builder
	for _, id := range ids {
		cell := g.cells[id]
		idHash := hashID(id)

		fmt.Fprintf(&b, "rectangle \"<b>%s</b>\\nValue: ", id)
		if cell.Dirty {
			b.WriteString("DIRTY")
		} else {
			fmt.Fprintf(&b, "%.2f", cell.Value)
		}
		fmt.Fprintf(&b, "\" as %s", idHash)
		if cell.Dirty {
			b.WriteString(" <<Dirty>>")
		}
		switch cell.Kind {
		case Value:
			b.WriteString(" <<Value>>")
		case Formula:
			b.WriteString(" <<Formula>>")
		case Aggregator:
			b.WriteString(" <<Agg>>")
		}
		b.WriteByte('\n')

		for _, dep := range g.dependencies[id] {
			fmt.Fprintf(&edges, "%s --> %s\n", hashID(dep), idHash)
		}
	}

	b.WriteString(edges.String())
	b.WriteString("@enduml")
	return b.String()
}

func hashID(id string) string {
	h := fnv.New64a()
	h.Write([]byte(id))
	return fmt.Sprintf("id%d", h.Sum64())
}
