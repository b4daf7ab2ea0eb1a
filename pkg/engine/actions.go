package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ritzau/vertex-graph/pkg/datasource"
	"github.com/ritzau/vertex-graph/pkg/model"
	"github.com/ritzau/vertex-graph/pkg/radial"
	"github.com/ritzau/vertex-graph/pkg/scene"
	"github.com/ritzau/vertex-graph/pkg/storage"
)

// Navigation actions of the overview.
const (
	ActionOpenVertex = "open-vertex"
	ActionRelocate   = "relocate"
	ActionOpenFolder = "open-folder"
	ActionDelete     = "delete"
)

// Reference picker actions.
const (
	ActionLinkVertex = "link-vertex"
	ActionLinkNote   = "link-note"
	ActionLinkImage  = "link-image"
	ActionLinkFile   = "link-file"
)

// ViewMode is the view preference stored when a vertex is opened from the graph.
type ViewMode struct {
	Mode     string `json:"mode"`
	VertexID string `json:"vertexId"`
}

// actionsLocked lists the ring actions for a selected node.
func (v *View) actionsLocked(node *model.GraphNode) []radial.Action {
	isVertex := node.Kind == model.NodeKindVertex
	if v.kind == KindReference {
		return []radial.Action{
			{Key: ActionLinkVertex, Label: "Vertex", Angle: 225, Disabled: !isVertex},
			{Key: ActionLinkNote, Label: "Note", Angle: 255, Disabled: !isVertex},
			{Key: ActionLinkImage, Label: "Image", Angle: 285, Disabled: !isVertex},
			{Key: ActionLinkFile, Label: "File", Angle: 315, Disabled: !isVertex},
		}
	}

	canRelocate := v.currentVertex != "" && node.ID != v.currentVertex &&
		node.Kind != model.NodeKindRoot &&
		(v.hierarchy == nil || !v.hierarchy.IsDescendant(v.currentVertex, node.ID))
	return []radial.Action{
		{Key: ActionOpenVertex, Label: "Open", Angle: 225, Disabled: !isVertex || node.ID == v.currentVertex},
		{Key: ActionRelocate, Label: "Move here", Angle: 255, Disabled: !canRelocate},
		{Key: ActionOpenFolder, Label: "Open folder", Angle: 285, Disabled: node.Path == ""},
		{Key: ActionDelete, Label: "Delete", Angle: 315, Disabled: !isVertex},
	}
}

// Invoke runs a ring action on the selected node. Relocate and delete only record a
// pending confirmation; see Confirm.
func (v *View) Invoke(ctx context.Context, key string) error {
	v.mu.Lock()
	node := v.visible.Node(v.ctrl.Selected())
	if node == nil {
		v.mu.Unlock()
		return ErrNoSelection
	}
	action, err := v.menu.Invoke(key)
	if err != nil {
		v.mu.Unlock()
		if errors.Is(err, radial.ErrDisabled) {
			return fmt.Errorf("%s: %w", key, ErrActionDisabled)
		}
		return err
	}
	v.log.Debug("action invoked", "action", action.Key, "node", node.ID)

	var after func() error
	switch action.Key {
	case ActionOpenVertex:
		after = v.openVertexLocked(node.ID)
	case ActionOpenFolder:
		path := node.Path
		after = func() error { return v.openFolder(ctx, path) }
	case ActionRelocate, ActionDelete:
		v.pending = &pendingAction{action: action.Key, nodeID: node.ID, label: node.Label}
	case ActionLinkVertex:
		if cb := v.callbacks.OnSelectVertex; cb != nil {
			id := node.ID
			after = func() error { cb(id); return nil }
		}
	case ActionLinkNote:
		v.openRailLocked(node, RailNotes)
	case ActionLinkImage:
		v.openRailLocked(node, RailImages)
	case ActionLinkFile:
		v.openRailLocked(node, RailFiles)
	}
	v.mu.Unlock()

	if after != nil {
		return after()
	}
	return nil
}

// openVertexLocked remembers the graph view mode and the transform, then asks the host
// to navigate.
func (v *View) openVertexLocked(id string) func() error {
	mode, err := json.Marshal(ViewMode{Mode: "graph", VertexID: id})
	if err == nil {
		err = v.store.Set(storage.KeyViewMode, string(mode))
	}
	if err != nil {
		v.log.Warn("failed to store view mode", "error", err)
	}
	if err := v.ctrl.SetTransform(v.ctrl.Transform()); err != nil {
		v.log.Warn("failed to persist transform", "error", err)
	}

	cb := v.callbacks.OnOpenVertex
	return func() error {
		if cb != nil {
			cb(id)
		}
		return nil
	}
}

func (v *View) openFolder(ctx context.Context, path string) error {
	if v.opener == nil {
		return fmt.Errorf("open folder: %w", datasource.ErrUnavailable)
	}
	if err := v.opener.OpenPath(ctx, path); err != nil {
		v.setError(fmt.Sprintf("Failed to open folder: %v", err))
		return err
	}
	return nil
}

func (v *View) setError(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.errMsg = msg
}

// Pending returns the action awaiting confirmation, or "".
func (v *View) Pending() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pending == nil {
		return ""
	}
	return v.pending.action
}

// Cancel drops the pending confirmation.
func (v *View) Cancel() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pending = nil
}

// Confirm runs the pending relocate or delete and reloads the graph. Failures are
// returned and also reported through Error.
func (v *View) Confirm(ctx context.Context) error {
	v.mu.Lock()
	p := v.pending
	v.pending = nil
	v.mu.Unlock()
	if p == nil {
		return ErrNothingPending
	}

	var err error
	switch p.action {
	case ActionRelocate:
		err = v.relocate(ctx, p.nodeID)
	case ActionDelete:
		err = v.delete(ctx, p.nodeID)
	default:
		err = fmt.Errorf("unknown pending action %q", p.action)
	}
	if err != nil {
		return err
	}
	return v.Load(ctx)
}

// relocate moves the current vertex under the target node.
func (v *View) relocate(ctx context.Context, targetID string) error {
	v.mu.Lock()
	target := v.data.Node(targetID)
	current := v.data.Node(v.currentVertex)
	if target == nil || current == nil || current.Vertex == nil {
		v.mu.Unlock()
		err := fmt.Errorf("relocate %s: %w", targetID, datasource.ErrInvalidRelocation)
		v.setError(fmt.Sprintf("Failed to relocate: %v", err))
		return err
	}
	vertex := *current.Vertex
	var workspace *model.Workspace
	if ws := v.data.Node(model.WorkspaceNodeID(v.workspaceOfLocked(current))); ws != nil && ws.Workspace != nil {
		copied := *ws.Workspace
		workspace = &copied
	}
	var targetWorkspace *model.Workspace
	var targetVertex *model.Vertex
	if target.Workspace != nil {
		copied := *target.Workspace
		targetWorkspace = &copied
	} else if target.Vertex != nil {
		copied := *target.Vertex
		targetVertex = &copied
	}
	tree := v.hierarchy
	v.mu.Unlock()

	var updated model.Vertex
	var err error
	switch {
	case targetWorkspace != nil:
		updated, err = v.relocator.ToWorkspace(ctx, vertex, *targetWorkspace, workspace, func(p datasource.Progress) {
			v.mu.Lock()
			defer v.mu.Unlock()
			v.move = &scene.MoveProgress{
				Workspace: targetWorkspace.ID,
				Stage:     string(p.Stage),
				Moved:     p.Moved,
				Total:     p.Total,
				Current:   p.Current,
			}
		})
	case targetVertex != nil:
		updated, err = v.relocator.ToVertex(ctx, vertex, *targetVertex, tree)
	default:
		err = fmt.Errorf("relocate %s: %w", targetID, datasource.ErrInvalidRelocation)
	}

	v.mu.Lock()
	v.move = nil
	v.mu.Unlock()
	if err != nil {
		v.log.Error("relocate failed", "vertex", vertex.ID, "target", targetID, "error", err)
		v.setError(fmt.Sprintf("Failed to relocate: %v", err))
		return err
	}
	if cb := v.callbacks.OnVertexUpdated; cb != nil {
		cb(updated)
	}
	return nil
}

// workspaceOfLocked resolves the workspace a vertex lives in through its root ancestor.
func (v *View) workspaceOfLocked(node *model.GraphNode) string {
	if node.ID == v.currentVertex && v.currentWorkspace != "" {
		return v.currentWorkspace
	}
	seen := make(map[string]bool)
	for n := node; n != nil && !seen[n.ID]; n = v.data.Node(n.ParentID) {
		seen[n.ID] = true
		if n.WorkspaceID != "" {
			return n.WorkspaceID
		}
		if n.ParentID == "" {
			break
		}
	}
	return ""
}

// delete removes a vertex. Deleting the vertex the host has open navigates to its parent.
func (v *View) delete(ctx context.Context, id string) error {
	v.mu.Lock()
	node := v.data.Node(id)
	if node == nil || node.Vertex == nil {
		v.mu.Unlock()
		return fmt.Errorf("delete %s: %w", id, datasource.ErrNotFound)
	}
	vertex := *node.Vertex
	wasCurrent := id == v.currentVertex
	v.mu.Unlock()

	if err := v.source.RemoveVertex(ctx, vertex); err != nil {
		v.log.Error("delete failed", "vertex", id, "error", err)
		v.setError(fmt.Sprintf("Failed to delete: %v", err))
		return err
	}
	v.log.Info("vertex deleted", "vertex", id)

	if wasCurrent && vertex.ParentID != "" {
		v.mu.Lock()
		v.currentVertex = vertex.ParentID
		v.mu.Unlock()
		if cb := v.callbacks.OnOpenVertex; cb != nil {
			cb(vertex.ParentID)
		}
	}
	return nil
}
