package collapse

import (
	"github.com/ritzau/vertex-graph/pkg/model"
)

// Defaults computes the initial collapse set around the vertex the user is looking at:
// every other workspace is collapsed, and within the current workspace every root
// vertex except the one the current vertex descends from.
//
// currentWorkspaceID may be empty, in which case it is taken from the current vertex's
// root node. With no current vertex nothing is collapsed.
func Defaults(data *model.GraphData, currentVertexID, currentWorkspaceID string) []string {
	ids := make([]string, 0)
	if data == nil || currentVertexID == "" {
		return ids
	}

	index := data.Index()

	// Walk up to the root project, guarding against parent cycles
	rootProjectID := ""
	seen := make(map[string]bool)
	for id := currentVertexID; id != "" && !seen[id]; {
		seen[id] = true
		node, ok := index[id]
		if !ok || node.Kind != model.NodeKindVertex {
			break
		}
		rootProjectID = node.ID
		if node.ParentID == "" {
			break
		}
		id = node.ParentID
	}

	if currentWorkspaceID == "" {
		if root, ok := index[rootProjectID]; ok {
			currentWorkspaceID = root.WorkspaceID
		}
	}

	for _, node := range data.Nodes {
		if node.Kind != model.NodeKindWorkspace {
			continue
		}
		if currentWorkspaceID != "" && node.WorkspaceID != "" && node.WorkspaceID != currentWorkspaceID {
			ids = append(ids, node.ID)
		}
	}

	for _, node := range data.Nodes {
		if node.Kind != model.NodeKindVertex || node.ParentID != "" {
			continue
		}
		if rootProjectID == "" || node.ID == rootProjectID {
			continue
		}
		if currentWorkspaceID == "" || node.WorkspaceID == currentWorkspaceID {
			ids = append(ids, node.ID)
		}
	}

	return ids
}
