package collapse

import (
	"testing"

	"github.com/ritzau/vertex-graph/pkg/graph"
	"github.com/ritzau/vertex-graph/pkg/model"
)

func TestState_ToggleRoundTrip(t *testing.T) {
	s := NewState()
	s.SetGraph(makeGraph())
	full := len(s.Visible().Nodes)

	if !s.Toggle("parent") {
		t.Fatal("Expected parent to become collapsed")
	}
	if len(s.Visible().Nodes) != full-2 {
		t.Errorf("Expected 2 hidden nodes, got %d visible of %d", len(s.Visible().Nodes), full)
	}

	if s.Toggle("parent") {
		t.Fatal("Expected parent to be expanded again")
	}
	if len(s.Visible().Nodes) != full {
		t.Errorf("Expected all %d nodes visible after second toggle, got %d", full, len(s.Visible().Nodes))
	}
}

func TestState_ToggleIgnoresInvalidIDs(t *testing.T) {
	s := NewState()
	s.SetGraph(makeGraph())

	s.Toggle(model.RootNodeID)
	s.Toggle("missing")

	if len(s.Collapsed()) != 0 {
		t.Errorf("Expected empty collapse set, got %v", s.Collapsed())
	}
}

func TestState_PrunesOnRebuild(t *testing.T) {
	s := NewState()
	s.SetGraph(makeGraph())
	s.Toggle("child")
	s.Toggle("ws:w2")

	// child disappears in the next build
	s.SetGraph(graph.Build(
		[]model.Workspace{{ID: "w1"}, {ID: "w2"}},
		[]model.Vertex{{ID: "parent", WorkspaceID: "w1"}},
	))

	got := s.Collapsed()
	if len(got) != 1 || got[0] != "ws:w2" {
		t.Errorf("Expected only ws:w2 to survive the rebuild, got %v", got)
	}
}

func TestState_DefaultsOnlyBeforeFirstToggle(t *testing.T) {
	s := NewState()
	s.SetGraph(makeGraph())

	s.ApplyDefaults([]string{"ws:w2", "missing"})
	if got := s.Collapsed(); len(got) != 1 || got[0] != "ws:w2" {
		t.Fatalf("Expected defaults [ws:w2], got %v", got)
	}

	// Defaults remain togglable
	s.Toggle("ws:w2")
	if s.IsCollapsed("ws:w2") {
		t.Error("Expected ws:w2 to be expanded by the toggle")
	}

	s.ApplyDefaults([]string{"ws:w2"})
	if s.IsCollapsed("ws:w2") {
		t.Error("Expected defaults to be ignored after user interaction")
	}
}
