package graph

import (
	"github.com/ritzau/vertex-graph/pkg/model"
)

// Build constructs the visual graph from workspace and vertex records.
//
// The graph always contains the synthetic root node. Each workspace becomes a node
// anchored to the root. Each vertex becomes a node with one incoming edge: from its
// parent vertex if the parent exists, otherwise from its workspace if that exists.
// Vertices matching neither are kept without an incoming edge.
func Build(workspaces []model.Workspace, vertices []model.Vertex) *model.GraphData {
	data := model.NewGraphData()

	root := &model.GraphNode{
		ID:    model.RootNodeID,
		Label: "Workspaces",
		Kind:  model.NodeKindRoot,
	}
	data.Nodes = append(data.Nodes, root)

	workspaceNodes := make(map[string]*model.GraphNode, len(workspaces))
	for i := range workspaces {
		ws := &workspaces[i]
		if _, exists := workspaceNodes[ws.ID]; exists {
			continue
		}

		label := ws.Name
		if label == "" {
			label = ws.ID
		}
		node := &model.GraphNode{
			ID:          model.WorkspaceNodeID(ws.ID),
			Label:       label,
			Kind:        model.NodeKindWorkspace,
			WorkspaceID: ws.ID,
			Path:        ws.Path,
			Workspace:   ws,
		}
		workspaceNodes[ws.ID] = node
		data.Nodes = append(data.Nodes, node)
		data.Links = append(data.Links, &model.GraphLink{
			Source: root,
			Target: node,
			Kind:   model.LinkKindAnchor,
		})
	}

	// First pass creates every vertex node so parents can be resolved regardless of order
	vertexNodes := make(map[string]*model.GraphNode, len(vertices))
	ordered := make([]*model.GraphNode, 0, len(vertices))
	for i := range vertices {
		v := &vertices[i]
		if _, exists := vertexNodes[v.ID]; exists {
			continue
		}

		label := v.Title
		if label == "" {
			label = v.ID
		}
		node := &model.GraphNode{
			ID:       v.ID,
			Label:    label,
			Kind:     model.NodeKindVertex,
			ParentID: v.ParentID,
			Path:     v.AssetDirectory,
			Vertex:   v,
		}
		if v.IsRoot() {
			node.WorkspaceID = v.WorkspaceID
		}
		vertexNodes[v.ID] = node
		ordered = append(ordered, node)
	}

	for _, node := range ordered {
		data.Nodes = append(data.Nodes, node)

		v := node.Vertex
		if parent, ok := vertexNodes[v.ParentID]; ok && v.ParentID != "" {
			data.Links = append(data.Links, &model.GraphLink{
				Source: parent,
				Target: node,
				Kind:   model.LinkKindEdge,
			})
		} else if ws, ok := workspaceNodes[v.WorkspaceID]; ok && v.WorkspaceID != "" {
			data.Links = append(data.Links, &model.GraphLink{
				Source: ws,
				Target: node,
				Kind:   model.LinkKindEdge,
			})
		}
	}

	assignDepths(ordered, vertexNodes)

	return data
}

// assignDepths sets Depth on every vertex node: 1 for a vertex whose parent does not
// resolve, parent depth + 1 otherwise. Results are memoized across walks. A walk that
// revisits a node already on the current chain stops there and gives the node whose
// parent closes the loop depth 1.
func assignDepths(nodes []*model.GraphNode, byID map[string]*model.GraphNode) {
	depths := make(map[string]int, len(nodes))

	for _, start := range nodes {
		if _, done := depths[start.ID]; done {
			continue
		}

		chain := make([]*model.GraphNode, 0, 8)
		onChain := make(map[string]bool)
		base := 0

		for current := start; ; {
			chain = append(chain, current)
			onChain[current.ID] = true

			parent, ok := byID[current.ParentID]
			if current.ParentID == "" || !ok || onChain[parent.ID] {
				break
			}
			if d, done := depths[parent.ID]; done {
				base = d
				break
			}
			current = parent
		}

		// chain runs child -> ancestor; assign from the top down
		depth := base
		for i := len(chain) - 1; i >= 0; i-- {
			depth++
			depths[chain[i].ID] = depth
			chain[i].Depth = depth
		}
	}
}
