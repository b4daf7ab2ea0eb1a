package cycles

import (
	"sort"

	"github.com/ritzau/vertex-graph/pkg/graph"
)

// VertexCycle represents vertices whose parent chain loops back on itself.
// Such vertices never reach a workspace tree and are laid out at the viewport center.
type VertexCycle struct {
	VertexIDs []string // Vertex ids in the cycle, sorted
}

// FindVertexCycles finds all parent cycles in the hierarchy.
func FindVertexCycles(h *graph.Hierarchy) []VertexCycle {
	tarjan := NewTarjanSCC(h.Graph())
	sccs := tarjan.FindSCCs()

	cycles := make([]VertexCycle, 0)
	for _, scc := range sccs {
		// Convert node IDs back to vertex ids
		ids := make([]string, 0, len(scc))
		for _, nodeID := range scc {
			if node := h.NodeByGraphID(nodeID); node != nil {
				ids = append(ids, node.ID)
			}
		}

		if len(ids) > 1 {
			sort.Strings(ids)
			cycles = append(cycles, VertexCycle{
				VertexIDs: ids,
			})
		}
	}

	// Deterministic order for logging and output
	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i].VertexIDs[0] < cycles[j].VertexIDs[0]
	})

	return cycles
}
