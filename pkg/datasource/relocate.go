package datasource

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/ritzau/vertex-graph/pkg/logging"
	"github.com/ritzau/vertex-graph/pkg/model"
)

// Tree answers ancestry questions about the current hierarchy.
type Tree interface {
	IsDescendant(ancestor, candidate string) bool
}

// Relocator moves a vertex to a new place in the hierarchy. Descendant records are
// never rewritten; their workspace follows from the parent chain.
type Relocator struct {
	mutator Mutator
	now     func() time.Time
	log     *slog.Logger
}

// NewRelocator creates a relocator writing through m.
func NewRelocator(m Mutator) *Relocator {
	return &Relocator{mutator: m, now: time.Now, log: logging.New("relocate")}
}

// AssetDirectoryFor returns the asset directory of a vertex stored in a workspace.
func AssetDirectoryFor(workspacePath, vertexID string) string {
	return strings.TrimRight(workspacePath, `/\`) + "/" + vertexID
}

// ToWorkspace makes v a root vertex of target. When target has a storage path the
// asset directory moves to <target path>/<vertex id>; current is the workspace v lives
// in now and locates the source directory when v has none recorded. The record is
// written only after the move succeeded.
func (r *Relocator) ToWorkspace(ctx context.Context, v model.Vertex, target model.Workspace,
	current *model.Workspace, progress func(Progress)) (model.Vertex, error) {
	next := v
	if target.Path != "" {
		dst := AssetDirectoryFor(target.Path, v.ID)
		src := v.AssetDirectory
		if src == "" && current != nil && current.Path != "" {
			src = AssetDirectoryFor(current.Path, v.ID)
		}
		if src != "" && filepath.Clean(src) != filepath.Clean(dst) {
			if err := r.mutator.MoveDirectory(ctx, src, dst, progress); err != nil {
				r.log.Error("asset move failed", "vertex", v.ID, "error", err)
				return v, fmt.Errorf("failed to move assets of %s: %w", v.ID, err)
			}
		}
		next.AssetDirectory = dst
	}

	next.ParentID = ""
	next.WorkspaceID = target.ID
	next.UpdatedAt = r.now()
	if err := r.mutator.UpdateVertex(ctx, next); err != nil {
		return v, fmt.Errorf("failed to update %s: %w", v.ID, err)
	}
	r.log.Info("vertex relocated to workspace", "vertex", v.ID, "workspace", target.ID)
	return next, nil
}

// ToVertex makes v a child of target, adopting target's workspace. Moving a vertex
// under itself or one of its own descendants is rejected.
func (r *Relocator) ToVertex(ctx context.Context, v, target model.Vertex, tree Tree) (model.Vertex, error) {
	if target.ID == v.ID || (tree != nil && tree.IsDescendant(v.ID, target.ID)) {
		return v, fmt.Errorf("%s under %s: %w", v.ID, target.ID, ErrInvalidRelocation)
	}

	next := v
	next.ParentID = target.ID
	next.WorkspaceID = target.WorkspaceID
	next.UpdatedAt = r.now()
	if err := r.mutator.UpdateVertex(ctx, next); err != nil {
		return v, fmt.Errorf("failed to update %s: %w", v.ID, err)
	}
	r.log.Info("vertex relocated", "vertex", v.ID, "parent", target.ID)
	return next, nil
}
