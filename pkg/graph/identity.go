package graph

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ritzau/vertex-graph/pkg/model"
)

// Identity returns a content hash of the vertex set of a graph: ids, parents and asset
// directories in insertion order. Two graphs with the same identity yield the same counts.
func Identity(data *model.GraphData) string {
	if data == nil {
		return ""
	}

	type vertexKey struct {
		ID       string `json:"id"`
		ParentID string `json:"p,omitempty"`
		Path     string `json:"d,omitempty"`
	}

	keys := make([]vertexKey, 0, len(data.Nodes))
	for _, node := range data.Nodes {
		if node.Kind != model.NodeKindVertex {
			continue
		}
		keys = append(keys, vertexKey{ID: node.ID, ParentID: node.ParentID, Path: node.Path})
	}

	jsonData, err := json.Marshal(keys)
	if err != nil {
		return ""
	}

	hash := sha256.Sum256(jsonData)
	return fmt.Sprintf("%x", hash)
}

// GraphDiff describes the structural difference between two rebuilds.
type GraphDiff struct {
	AddedNodes    []string `json:"addedNodes"`
	RemovedNodes  []string `json:"removedNodes"`
	ModifiedNodes []string `json:"modifiedNodes"` // Label, parent, workspace or path changed
	AddedLinks    []string `json:"addedLinks"`
	RemovedLinks  []string `json:"removedLinks"`
	FullGraph     bool     `json:"fullGraph"` // True if there was no previous snapshot
}

// Empty returns true if nothing changed.
func (d *GraphDiff) Empty() bool {
	return !d.FullGraph && len(d.AddedNodes) == 0 && len(d.RemovedNodes) == 0 &&
		len(d.ModifiedNodes) == 0 && len(d.AddedLinks) == 0 && len(d.RemovedLinks) == 0
}

// nodeKey holds the structural fields of a node; positions are excluded.
type nodeKey struct {
	Label       string
	Kind        model.NodeKind
	WorkspaceID string
	ParentID    string
	Path        string
}

// GraphSnapshot is a cached structural state of a graph for diffing.
type GraphSnapshot struct {
	Hash  string
	Nodes map[string]nodeKey
	Links map[string]bool
}

// CreateSnapshot captures the structure of a graph.
func CreateSnapshot(data *model.GraphData) *GraphSnapshot {
	snapshot := &GraphSnapshot{
		Hash:  Identity(data),
		Nodes: make(map[string]nodeKey, len(data.Nodes)),
		Links: make(map[string]bool, len(data.Links)),
	}

	for _, node := range data.Nodes {
		snapshot.Nodes[node.ID] = keyOf(node)
	}
	for _, link := range data.Links {
		snapshot.Links[linkKey(link)] = true
	}

	return snapshot
}

// ComputeDiff computes the difference between a previous snapshot and a new graph.
func ComputeDiff(oldSnapshot *GraphSnapshot, newData *model.GraphData) *GraphDiff {
	diff := &GraphDiff{
		AddedNodes:    make([]string, 0),
		RemovedNodes:  make([]string, 0),
		ModifiedNodes: make([]string, 0),
		AddedLinks:    make([]string, 0),
		RemovedLinks:  make([]string, 0),
	}

	if oldSnapshot == nil {
		diff.FullGraph = true
		for _, node := range newData.Nodes {
			diff.AddedNodes = append(diff.AddedNodes, node.ID)
		}
		for _, link := range newData.Links {
			diff.AddedLinks = append(diff.AddedLinks, linkKey(link))
		}
		return diff
	}

	newNodes := make(map[string]bool, len(newData.Nodes))
	for _, node := range newData.Nodes {
		newNodes[node.ID] = true
		if old, exists := oldSnapshot.Nodes[node.ID]; exists {
			if old != keyOf(node) {
				diff.ModifiedNodes = append(diff.ModifiedNodes, node.ID)
			}
		} else {
			diff.AddedNodes = append(diff.AddedNodes, node.ID)
		}
	}
	for id := range oldSnapshot.Nodes {
		if !newNodes[id] {
			diff.RemovedNodes = append(diff.RemovedNodes, id)
		}
	}

	newLinks := make(map[string]bool, len(newData.Links))
	for _, link := range newData.Links {
		key := linkKey(link)
		newLinks[key] = true
		if !oldSnapshot.Links[key] {
			diff.AddedLinks = append(diff.AddedLinks, key)
		}
	}
	for key := range oldSnapshot.Links {
		if !newLinks[key] {
			diff.RemovedLinks = append(diff.RemovedLinks, key)
		}
	}

	// Map iteration order is random
	sort.Strings(diff.RemovedNodes)
	sort.Strings(diff.RemovedLinks)

	return diff
}

func keyOf(node *model.GraphNode) nodeKey {
	return nodeKey{
		Label:       node.Label,
		Kind:        node.Kind,
		WorkspaceID: node.WorkspaceID,
		ParentID:    node.ParentID,
		Path:        node.Path,
	}
}

// linkKey creates a unique key for a link
func linkKey(link *model.GraphLink) string {
	return fmt.Sprintf("%s|%s|%s", link.Source.ID, link.Target.ID, link.Kind)
}
