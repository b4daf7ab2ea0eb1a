package graph

import (
	"testing"

	"github.com/ritzau/vertex-graph/pkg/model"
)

func TestIdentity_StableAcrossRebuilds(t *testing.T) {
	first := Identity(sampleGraph())
	second := Identity(sampleGraph())

	if first == "" {
		t.Fatal("Expected a non-empty identity")
	}
	if first != second {
		t.Errorf("Expected identical graphs to share identity, got %s and %s", first, second)
	}
}

func TestIdentity_ChangesWithVertexSet(t *testing.T) {
	base := Identity(sampleGraph())

	moved := Build(
		[]model.Workspace{{ID: "w1"}},
		[]model.Vertex{{ID: "a", WorkspaceID: "w1", AssetDirectory: "/elsewhere/a"}},
	)
	if Identity(moved) == base {
		t.Error("Expected a different vertex set to change the identity")
	}
}

func TestIdentity_IgnoresPositions(t *testing.T) {
	data := sampleGraph()
	before := Identity(data)

	for _, node := range data.Nodes {
		node.X, node.Y = 100, 200
	}

	if Identity(data) != before {
		t.Error("Expected positions not to affect identity")
	}
}

func TestComputeDiff_NoSnapshot(t *testing.T) {
	data := sampleGraph()
	diff := ComputeDiff(nil, data)

	if !diff.FullGraph {
		t.Error("Expected a full graph diff without a snapshot")
	}
	if len(diff.AddedNodes) != len(data.Nodes) {
		t.Errorf("Expected %d added nodes, got %d", len(data.Nodes), len(diff.AddedNodes))
	}
}

func TestComputeDiff_Changes(t *testing.T) {
	snapshot := CreateSnapshot(sampleGraph())

	next := Build(
		[]model.Workspace{{ID: "w1"}},
		[]model.Vertex{
			{ID: "a", Title: "Renamed", WorkspaceID: "w1"},
			{ID: "b", ParentID: "a"},
			{ID: "c", ParentID: "a"},
			{ID: "d", ParentID: "b"},
			{ID: "f", ParentID: "a"},
		},
	)

	diff := ComputeDiff(snapshot, next)

	if diff.FullGraph || diff.Empty() {
		t.Fatalf("Expected an incremental, non-empty diff, got %+v", diff)
	}
	if len(diff.AddedNodes) != 1 || diff.AddedNodes[0] != "f" {
		t.Errorf("Expected added node f, got %v", diff.AddedNodes)
	}
	if len(diff.RemovedNodes) != 1 || diff.RemovedNodes[0] != "e" {
		t.Errorf("Expected removed node e, got %v", diff.RemovedNodes)
	}
	if len(diff.ModifiedNodes) != 1 || diff.ModifiedNodes[0] != "a" {
		t.Errorf("Expected modified node a, got %v", diff.ModifiedNodes)
	}
	if len(diff.AddedLinks) != 1 || diff.AddedLinks[0] != "a|f|edge" {
		t.Errorf("Expected added link a|f|edge, got %v", diff.AddedLinks)
	}
	if len(diff.RemovedLinks) != 1 || diff.RemovedLinks[0] != "ws:w1|e|edge" {
		t.Errorf("Expected removed link ws:w1|e|edge, got %v", diff.RemovedLinks)
	}
}

func TestComputeDiff_Unchanged(t *testing.T) {
	snapshot := CreateSnapshot(sampleGraph())
	diff := ComputeDiff(snapshot, sampleGraph())

	if !diff.Empty() {
		t.Errorf("Expected an empty diff, got %+v", diff)
	}
}
