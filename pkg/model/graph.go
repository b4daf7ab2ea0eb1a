package model

// NodeKind distinguishes the synthetic root, workspace anchors and vertices.
type NodeKind string

const (
	NodeKindRoot      NodeKind = "root"
	NodeKindWorkspace NodeKind = "workspace"
	NodeKindVertex    NodeKind = "vertex"
)

// LinkKind distinguishes layout-only anchor links from drawn hierarchy edges.
type LinkKind string

const (
	LinkKindAnchor LinkKind = "anchor" // Root to workspace, never drawn
	LinkKindEdge   LinkKind = "edge"   // Workspace to vertex or vertex to vertex
)

const (
	// RootNodeID is the id of the synthetic node every workspace is anchored to.
	RootNodeID = "__workspace_anchor__"

	// WorkspaceNodePrefix prefixes workspace ids to keep them apart from vertex ids.
	WorkspaceNodePrefix = "ws:"
)

// WorkspaceNodeID returns the graph node id for a workspace id.
func WorkspaceNodeID(workspaceID string) string {
	return WorkspaceNodePrefix + workspaceID
}

// GraphNode is a node of the visual graph.
// TargetX/TargetY are the deterministic layout targets; X/Y/VX/VY are the live simulation
// state and are only written by the simulation.
type GraphNode struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Kind        NodeKind `json:"kind"`
	WorkspaceID string   `json:"workspaceId,omitempty"` // Workspace nodes, and vertices without a parent
	ParentID    string   `json:"parentId,omitempty"`
	Path        string   `json:"path,omitempty"`
	Depth       int      `json:"depth"`

	TargetX float64 `json:"targetX"`
	TargetY float64 `json:"targetY"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	VX      float64 `json:"vx"`
	VY      float64 `json:"vy"`
	Seeded  bool    `json:"-"` // Set once the simulation has assigned an initial position

	Vertex    *Vertex    `json:"-"`
	Workspace *Workspace `json:"-"`
}

// IsCollapsible returns true for the node kinds that may enter the collapse set.
func (n *GraphNode) IsCollapsible() bool {
	return n.Kind == NodeKindVertex || n.Kind == NodeKindWorkspace
}

// GraphLink is a directed link between two nodes of the same GraphData.
type GraphLink struct {
	Source *GraphNode `json:"-"`
	Target *GraphNode `json:"-"`
	Kind   LinkKind   `json:"kind"`
}

// GraphData is the visual graph: nodes in insertion order and links referencing them.
type GraphData struct {
	Nodes []*GraphNode `json:"nodes"`
	Links []*GraphLink `json:"links"`
}

// NewGraphData creates an empty graph.
func NewGraphData() *GraphData {
	return &GraphData{
		Nodes: make([]*GraphNode, 0),
		Links: make([]*GraphLink, 0),
	}
}

// Node returns the node with the given id, or nil.
func (g *GraphData) Node(id string) *GraphNode {
	if g == nil {
		return nil
	}
	for _, n := range g.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Index returns a map from node id to node.
func (g *GraphData) Index() map[string]*GraphNode {
	index := make(map[string]*GraphNode, len(g.Nodes))
	for _, n := range g.Nodes {
		index[n.ID] = n
	}
	return index
}

// VertexNodes returns the vertex nodes in insertion order.
func (g *GraphData) VertexNodes() []*GraphNode {
	return g.nodesOfKind(NodeKindVertex)
}

// WorkspaceNodes returns the workspace nodes in insertion order.
func (g *GraphData) WorkspaceNodes() []*GraphNode {
	return g.nodesOfKind(NodeKindWorkspace)
}

func (g *GraphData) nodesOfKind(kind NodeKind) []*GraphNode {
	nodes := make([]*GraphNode, 0)
	for _, n := range g.Nodes {
		if n.Kind == kind {
			nodes = append(nodes, n)
		}
	}
	return nodes
}
