package graph

import (
	"sort"

	"github.com/ritzau/vertex-graph/pkg/model"
	gonumgraph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
)

// Hierarchy indexes the drawn edges of a GraphData in a gonum directed graph.
// Graph ids follow node insertion order, so sorting by id restores the builder's order.
type Hierarchy struct {
	graph *simple.DirectedGraph
	nodes map[int64]*model.GraphNode // Map from graph ID to node
	ids   map[string]int64           // Map from node ID to graph ID
}

// NewHierarchy indexes every node of data and every edge link (anchor links are skipped).
func NewHierarchy(data *model.GraphData) *Hierarchy {
	h := &Hierarchy{
		graph: simple.NewDirectedGraph(),
		nodes: make(map[int64]*model.GraphNode, len(data.Nodes)),
		ids:   make(map[string]int64, len(data.Nodes)),
	}

	for i, node := range data.Nodes {
		id := int64(i)
		h.nodes[id] = node
		h.ids[node.ID] = id
		h.graph.AddNode(simple.Node(id))
	}

	for _, link := range data.Links {
		if link.Kind != model.LinkKindEdge {
			continue
		}
		sourceID, ok := h.ids[link.Source.ID]
		if !ok {
			continue
		}
		targetID, ok := h.ids[link.Target.ID]
		if !ok || sourceID == targetID {
			continue
		}
		if !h.graph.HasEdgeFromTo(sourceID, targetID) {
			h.graph.SetEdge(h.graph.NewEdge(h.graph.Node(sourceID), h.graph.Node(targetID)))
		}
	}

	return h
}

// Graph returns the underlying directed graph.
func (h *Hierarchy) Graph() *simple.DirectedGraph {
	return h.graph
}

// NodeByGraphID returns the node for a gonum graph id, or nil.
func (h *Hierarchy) NodeByGraphID(id int64) *model.GraphNode {
	return h.nodes[id]
}

// Children returns the direct children of a node in insertion order.
func (h *Hierarchy) Children(nodeID string) []*model.GraphNode {
	id, ok := h.ids[nodeID]
	if !ok {
		return nil
	}

	var graphIDs []int64
	iter := h.graph.From(id)
	for iter.Next() {
		graphIDs = append(graphIDs, iter.Node().ID())
	}
	sort.Slice(graphIDs, func(i, j int) bool { return graphIDs[i] < graphIDs[j] })

	children := make([]*model.GraphNode, 0, len(graphIDs))
	for _, gid := range graphIDs {
		children = append(children, h.nodes[gid])
	}
	return children
}

// ChildCount returns the number of direct children of a node.
func (h *Hierarchy) ChildCount(nodeID string) int {
	id, ok := h.ids[nodeID]
	if !ok {
		return 0
	}
	return h.graph.From(id).Len()
}

// Descendants returns every node reachable from nodeID, excluding the node itself.
func (h *Hierarchy) Descendants(nodeID string) []*model.GraphNode {
	id, ok := h.ids[nodeID]
	if !ok {
		return nil
	}

	var found []*model.GraphNode
	bf := traverse.BreadthFirst{
		Visit: func(n gonumgraph.Node) {
			if n.ID() != id {
				found = append(found, h.nodes[n.ID()])
			}
		},
	}
	bf.Walk(h.graph, h.graph.Node(id), nil)
	return found
}

// IsDescendant returns true if candidate is reachable from ancestor.
func (h *Hierarchy) IsDescendant(ancestor, candidate string) bool {
	from, ok := h.ids[ancestor]
	if !ok {
		return false
	}
	to, ok := h.ids[candidate]
	if !ok || from == to {
		return false
	}

	bf := traverse.BreadthFirst{}
	hit := bf.Walk(h.graph, h.graph.Node(from), func(n gonumgraph.Node, _ int) bool {
		return n.ID() == to
	})
	return hit != nil
}
