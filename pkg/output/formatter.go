package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/ritzau/vertex-graph/pkg/cycles"
	"github.com/ritzau/vertex-graph/pkg/graph"
	"github.com/ritzau/vertex-graph/pkg/model"
)

// Summary describes a loaded vertex graph.
type Summary struct {
	Workspaces int
	Vertices   int
	Edges      int
	MaxDepth   int
	Orphans    []string // Vertices with neither a resolvable parent nor a known workspace
	Cycles     []cycles.VertexCycle
}

// Summarize computes the summary of a built graph.
func Summarize(data *model.GraphData) Summary {
	var s Summary
	linked := make(map[string]bool)
	for _, link := range data.Links {
		if link.Kind == model.LinkKindEdge {
			s.Edges++
			linked[link.Target.ID] = true
		}
	}

	for _, node := range data.Nodes {
		switch node.Kind {
		case model.NodeKindWorkspace:
			s.Workspaces++
		case model.NodeKindVertex:
			s.Vertices++
			if node.Depth > s.MaxDepth {
				s.MaxDepth = node.Depth
			}
			if !linked[node.ID] {
				s.Orphans = append(s.Orphans, node.ID)
			}
		}
	}
	sort.Strings(s.Orphans)

	s.Cycles = cycles.FindVertexCycles(graph.NewHierarchy(data))
	return s
}

// PrintSummary prints a colored summary of the graph under dataDir.
func PrintSummary(w io.Writer, dataDir string, s Summary) {
	// Color definitions
	bold := color.New(color.Bold)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	// Header
	bold.Fprintln(w, "Vertex Graph - Summary")
	bold.Fprintln(w, "======================")
	fmt.Fprintf(w, "Data: %s\n", dataDir)
	fmt.Fprintf(w, "Workspaces: %d\n", s.Workspaces)
	fmt.Fprintf(w, "Vertices: %d (%d edges, max depth %d)\n", s.Vertices, s.Edges, s.MaxDepth)
	fmt.Fprintln(w)

	if len(s.Orphans) > 0 {
		yellow.Fprintf(w, "ORPHANS: %d vertex(es) without parent or workspace\n", len(s.Orphans))
		for _, id := range s.Orphans {
			cyan.Fprintf(w, "  %s\n", id)
		}
		fmt.Fprintln(w)
	}

	if len(s.Cycles) > 0 {
		red.Fprintf(w, "CYCLES: %d parent loop(s)\n", len(s.Cycles))
		for _, c := range s.Cycles {
			fmt.Fprintf(w, "  %s\n", strings.Join(c.VertexIDs, " -> "))
		}
		fmt.Fprintln(w)
	}

	if len(s.Orphans) == 0 && len(s.Cycles) == 0 {
		green.Fprintln(w, "✓ Every vertex reaches a workspace")
	}
}
