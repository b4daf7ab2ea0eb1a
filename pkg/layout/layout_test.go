package layout

import (
	"math"
	"testing"

	"github.com/ritzau/vertex-graph/pkg/graph"
	"github.com/ritzau/vertex-graph/pkg/model"
)

func TestViewport_Clamped(t *testing.T) {
	vp := Viewport{Width: 100, Height: 800}.Clamped()
	if vp.Width != 300 || vp.Height != 800 {
		t.Errorf("Expected 300x800, got %gx%g", vp.Width, vp.Height)
	}
}

func TestWorkspaceAnchors_Circle(t *testing.T) {
	data := graph.Build([]model.Workspace{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}, nil)
	vp := Viewport{Width: 1000, Height: 800}

	anchors := WorkspaceAnchors(data, vp, DefaultConfig())

	radius := 800 * 0.22
	want := map[string]Point{
		"a": {X: 500 + radius, Y: 400},
		"b": {X: 500, Y: 400 + radius},
		"c": {X: 500 - radius, Y: 400},
		"d": {X: 500, Y: 400 - radius},
	}
	for id, p := range want {
		got := anchors[id]
		if math.Abs(got.X-p.X) > 1e-9 || math.Abs(got.Y-p.Y) > 1e-9 {
			t.Errorf("Anchor %s: expected (%g, %g), got (%g, %g)", id, p.X, p.Y, got.X, got.Y)
		}
	}
}

func TestAssignTargets_TreeUnderAnchor(t *testing.T) {
	data := graph.Build(
		[]model.Workspace{{ID: "w1"}},
		[]model.Vertex{
			{ID: "a", WorkspaceID: "w1"},
			{ID: "b", ParentID: "a"},
		},
	)
	vp := Viewport{Width: 1000, Height: 1000}

	AssignTargets(data, vp, DefaultConfig())

	anchor := WorkspaceAnchors(data, vp, DefaultConfig())["w1"]
	ws := data.Node("ws:w1")
	if ws.TargetX != anchor.X || ws.TargetY != anchor.Y {
		t.Errorf("Expected workspace at its anchor, got (%g, %g)", ws.TargetX, ws.TargetY)
	}

	a, b := data.Node("a"), data.Node("b")
	if a.TargetX != anchor.X || a.TargetY != anchor.Y+120 {
		t.Errorf("Expected a one level below the anchor, got (%g, %g)", a.TargetX, a.TargetY)
	}
	if b.TargetY != anchor.Y+240 {
		t.Errorf("Expected b two levels below the anchor, got %g", b.TargetY)
	}
}

func TestAssignTargets_UnplacedNodesTargetCenter(t *testing.T) {
	data := graph.Build(
		[]model.Workspace{{ID: "w1"}},
		[]model.Vertex{{ID: "orphan", ParentID: "missing"}},
	)

	AssignTargets(data, Viewport{Width: 200, Height: 200}, DefaultConfig())

	for _, id := range []string{model.RootNodeID, "orphan"} {
		n := data.Node(id)
		if n.TargetX != 150 || n.TargetY != 150 {
			t.Errorf("Expected %s at the clamped center (150, 150), got (%g, %g)", id, n.TargetX, n.TargetY)
		}
	}
}

func TestAssignTargets_Deterministic(t *testing.T) {
	build := func() *model.GraphData {
		return graph.Build(
			[]model.Workspace{{ID: "w1"}, {ID: "w2"}},
			[]model.Vertex{
				{ID: "a", WorkspaceID: "w1"},
				{ID: "b", ParentID: "a"},
				{ID: "c", ParentID: "a"},
				{ID: "d", WorkspaceID: "w2"},
			},
		)
	}
	vp := Viewport{Width: 900, Height: 700}

	first, second := build(), build()
	AssignTargets(first, vp, DefaultConfig())
	AssignTargets(second, vp, DefaultConfig())

	for i, n := range first.Nodes {
		m := second.Nodes[i]
		if n.TargetX != m.TargetX || n.TargetY != m.TargetY {
			t.Errorf("Node %s: targets differ between runs (%g, %g) vs (%g, %g)",
				n.ID, n.TargetX, n.TargetY, m.TargetX, m.TargetY)
		}
	}
}

func TestAssignTargets_DanglingParentFollowsWorkspaceEdge(t *testing.T) {
	data := graph.Build(
		[]model.Workspace{{ID: "w1"}},
		[]model.Vertex{{ID: "v", ParentID: "gone", WorkspaceID: "w1"}},
	)
	vp := Viewport{Width: 1000, Height: 1000}

	AssignTargets(data, vp, DefaultConfig())

	anchor := WorkspaceAnchors(data, vp, DefaultConfig())["w1"]
	v := data.Node("v")
	if v.TargetX != anchor.X || v.TargetY != anchor.Y+120 {
		t.Errorf("Expected v one level below the w1 anchor, got (%g, %g)", v.TargetX, v.TargetY)
	}
}
