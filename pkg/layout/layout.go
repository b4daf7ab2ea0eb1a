package layout

import (
	"math"

	"github.com/ritzau/vertex-graph/pkg/model"
)

// MinViewportSize is the smallest width or height the layout works with.
const MinViewportSize = 300

// Viewport is the drawing surface size in screen pixels.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Clamped returns the viewport with both dimensions raised to MinViewportSize.
func (v Viewport) Clamped() Viewport {
	return Viewport{
		Width:  math.Max(v.Width, MinViewportSize),
		Height: math.Max(v.Height, MinViewportSize),
	}
}

// Center returns the middle of the clamped viewport.
func (v Viewport) Center() (float64, float64) {
	c := v.Clamped()
	return c.Width / 2, c.Height / 2
}

// Config configures the deterministic anchor pass.
type Config struct {
	AnchorRadiusFraction float64 // Workspace circle radius as a fraction of min(width, height)
	Tree                 TreeConfig
}

// DefaultConfig returns the layout used by the graph view.
func DefaultConfig() Config {
	return Config{
		AnchorRadiusFraction: 0.22,
		Tree:                 DefaultTreeConfig(),
	}
}

// Point is a position in graph coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// WorkspaceAnchors places the workspace nodes evenly on a circle around the viewport
// center, in node order starting at angle 0. The result is keyed by workspace id.
func WorkspaceAnchors(data *model.GraphData, viewport Viewport, cfg Config) map[string]Point {
	vp := viewport.Clamped()
	cx, cy := vp.Width/2, vp.Height/2
	radius := math.Min(vp.Width, vp.Height) * cfg.AnchorRadiusFraction

	workspaces := data.WorkspaceNodes()
	anchors := make(map[string]Point, len(workspaces))
	count := float64(max(1, len(workspaces)))
	for i, ws := range workspaces {
		if ws.WorkspaceID == "" {
			continue
		}
		angle := float64(i) / count * math.Pi * 2
		anchors[ws.WorkspaceID] = Point{
			X: cx + math.Cos(angle)*radius,
			Y: cy + math.Sin(angle)*radius,
		}
	}
	return anchors
}

// AssignTargets computes TargetX/TargetY for every node of data.
//
// Each workspace is the root of a tidy tree made of its root vertices and their
// descendants, offset from the workspace anchor. Nodes outside every tree (the
// synthetic root, orphans, vertices whose parent is not part of data) target the
// viewport center. Only nodes present in data are laid out, so data is normally the
// visible graph.
func AssignTargets(data *model.GraphData, viewport Viewport, cfg Config) {
	if data == nil {
		return
	}

	cx, cy := viewport.Center()
	placed := make(map[string]bool, len(data.Nodes))

	childrenByParent := make(map[string][]*model.GraphNode)
	rootsByWorkspace := make(map[string][]*model.GraphNode)
	for _, link := range data.Links {
		if link.Kind != model.LinkKindEdge || link.Target.Kind != model.NodeKindVertex {
			continue
		}
		switch link.Source.Kind {
		case model.NodeKindWorkspace:
			ws := link.Source.WorkspaceID
			rootsByWorkspace[ws] = append(rootsByWorkspace[ws], link.Target)
		case model.NodeKindVertex:
			childrenByParent[link.Source.ID] = append(childrenByParent[link.Source.ID], link.Target)
		}
	}

	anchors := WorkspaceAnchors(data, viewport, cfg)

	for _, ws := range data.WorkspaceNodes() {
		anchor, ok := anchors[ws.WorkspaceID]
		if !ok {
			continue
		}

		byTreeNode := make(map[*TreeNode]*model.GraphNode)
		visited := make(map[string]bool)

		var build func(node *model.GraphNode, children []*model.GraphNode) *TreeNode
		build = func(node *model.GraphNode, children []*model.GraphNode) *TreeNode {
			visited[node.ID] = true
			tn := &TreeNode{ID: node.ID}
			byTreeNode[tn] = node
			for _, child := range children {
				if visited[child.ID] || placed[child.ID] {
					continue
				}
				tn.Children = append(tn.Children, build(child, childrenByParent[child.ID]))
			}
			return tn
		}

		root := build(ws, rootsByWorkspace[ws.WorkspaceID])
		Tidy(root, cfg.Tree)

		for tn, node := range byTreeNode {
			node.TargetX = anchor.X + tn.X
			node.TargetY = anchor.Y + tn.Y
			placed[node.ID] = true
		}
	}

	for _, node := range data.Nodes {
		if !placed[node.ID] {
			node.TargetX = cx
			node.TargetY = cy
		}
	}
}
