package collapse

import (
	"github.com/ritzau/vertex-graph/pkg/model"
)

// index holds the lookups needed to expand a collapse set into a hidden set.
type index struct {
	nodes            map[string]*model.GraphNode
	childrenByParent map[string][]string // vertex id -> vertex ids linked below it
	rootsByWorkspace map[string][]string // workspace id -> vertex ids linked to the workspace
}

func newIndex(data *model.GraphData) *index {
	idx := &index{
		nodes:            make(map[string]*model.GraphNode, len(data.Nodes)),
		childrenByParent: make(map[string][]string),
		rootsByWorkspace: make(map[string][]string),
	}

	for _, node := range data.Nodes {
		idx.nodes[node.ID] = node
	}

	// Membership follows the drawn edges, so a vertex whose parent id does not resolve
	// belongs to the workspace it is linked to
	for _, link := range data.Links {
		if link.Kind != model.LinkKindEdge || link.Target.Kind != model.NodeKindVertex {
			continue
		}
		switch link.Source.Kind {
		case model.NodeKindWorkspace:
			ws := link.Source.WorkspaceID
			idx.rootsByWorkspace[ws] = append(idx.rootsByWorkspace[ws], link.Target.ID)
		case model.NodeKindVertex:
			parent := link.Source.ID
			idx.childrenByParent[parent] = append(idx.childrenByParent[parent], link.Target.ID)
		}
	}

	return idx
}

// Hidden returns the ids of every node hidden by the collapse set: all descendants of a
// collapsed vertex, and every vertex transitively belonging to a collapsed workspace.
// Collapsed nodes stay visible themselves unless an ancestor hides them.
// Ids that are absent from data or not collapsible are ignored.
func Hidden(data *model.GraphData, collapsed map[string]bool) map[string]bool {
	hidden := make(map[string]bool)
	if data == nil || len(collapsed) == 0 {
		return hidden
	}

	idx := newIndex(data)

	queue := make([]string, 0, len(collapsed))
	for id, on := range collapsed {
		if node, ok := idx.nodes[id]; on && ok && node.IsCollapsible() {
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		id := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		next := idx.childrenByParent[id]
		if node := idx.nodes[id]; node.Kind == model.NodeKindWorkspace {
			next = append(append([]string(nil), idx.rootsByWorkspace[node.WorkspaceID]...), next...)
		}

		for _, child := range next {
			if hidden[child] {
				continue
			}
			hidden[child] = true
			queue = append(queue, child)
		}
	}

	return hidden
}

// Filter returns the visible subgraph: the input minus hidden nodes and minus every link
// touching a hidden node. Node and link pointers are shared with the input, and input
// order is preserved.
func Filter(data *model.GraphData, collapsed map[string]bool) *model.GraphData {
	if data == nil {
		return nil
	}

	hidden := Hidden(data, collapsed)
	if len(hidden) == 0 {
		return &model.GraphData{
			Nodes: append([]*model.GraphNode(nil), data.Nodes...),
			Links: append([]*model.GraphLink(nil), data.Links...),
		}
	}

	visible := &model.GraphData{
		Nodes: make([]*model.GraphNode, 0, len(data.Nodes)-len(hidden)),
		Links: make([]*model.GraphLink, 0, len(data.Links)),
	}
	for _, node := range data.Nodes {
		if !hidden[node.ID] {
			visible.Nodes = append(visible.Nodes, node)
		}
	}
	for _, link := range data.Links {
		if !hidden[link.Source.ID] && !hidden[link.Target.ID] {
			visible.Links = append(visible.Links, link)
		}
	}

	return visible
}
