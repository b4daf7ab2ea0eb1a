package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ritzau/vertex-graph/pkg/datasource"
	"github.com/ritzau/vertex-graph/pkg/interaction"
	"github.com/ritzau/vertex-graph/pkg/model"
	"github.com/ritzau/vertex-graph/pkg/scene"
)

// Rail tabs.
const (
	RailNotes  = "notes"
	RailImages = "images"
	RailFiles  = "files"
)

// Rail geometry. The selected node is centered in the canvas area the rail leaves free.
const (
	RailWidth         = 320.0
	RailFocusDuration = 240 * time.Millisecond
)

var ErrRailClosed = errors.New("asset rail is not open")

type railState struct {
	vertex  string
	tab     string
	notes   []string
	images  []string
	files   []string
	loading bool
	err     string
	restore interaction.Transform
	done    chan struct{}
}

func (r *railState) entries() []string {
	switch r.tab {
	case RailImages:
		return r.images
	case RailFiles:
		return r.files
	default:
		return r.notes
	}
}

func (r *railState) frame() *scene.Rail {
	return &scene.Rail{
		Vertex:  r.vertex,
		Kind:    r.tab,
		Entries: append([]string(nil), r.entries()...),
		Loading: r.loading,
		Error:   r.err,
	}
}

// openRailLocked shows the asset rail for a vertex and focuses the node. Reopening for
// the same vertex only switches the tab.
func (v *View) openRailLocked(node *model.GraphNode, tab string) {
	if v.rail != nil && v.rail.vertex == node.ID {
		v.rail.tab = tab
		return
	}
	if node.Vertex == nil {
		return
	}

	now := v.now()
	current := v.ctrl.Transform()
	if v.rail != nil {
		current = v.rail.restore
	}
	v.railGen++
	gen := v.railGen
	done := make(chan struct{})
	v.rail = &railState{vertex: node.ID, tab: tab, loading: true, restore: current, done: done}

	k := v.ctrl.Transform().K
	focus := interaction.Transform{
		K: k,
		X: max(0, v.viewport.Width-RailWidth)/2 - node.X*k,
		Y: v.viewport.Height/2 - node.Y*k,
	}
	v.ctrl.AnimateTo(focus, now, RailFocusDuration)

	vertex := *node.Vertex
	go func() {
		defer close(done)
		v.loadRail(gen, vertex)
	}()
}

// loadRail lists the assets of a vertex. Results are dropped if the rail was closed or
// moved to another vertex in the meantime.
func (v *View) loadRail(gen uint64, vertex model.Vertex) {
	var notes, images, files []string
	g, ctx := errgroup.WithContext(v.ctx)
	g.Go(func() error {
		var err error
		notes, err = v.source.ListNotes(ctx, vertex)
		return err
	})
	g.Go(func() error {
		var err error
		images, err = v.source.ListImages(ctx, vertex)
		return err
	})
	g.Go(func() error {
		names, err := v.source.ListDir(ctx, vertex.AssetDirectory)
		if errors.Is(err, datasource.ErrUnavailable) {
			return nil
		}
		if err != nil {
			return err
		}
		for _, name := range names {
			if datasource.IsOtherFile(name) {
				files = append(files, name)
			}
		}
		return nil
	})
	err := g.Wait()

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.rail == nil || gen != v.railGen || v.rail.vertex != vertex.ID {
		v.log.Debug("discarding stale rail listing", "vertex", vertex.ID)
		return
	}
	v.rail.loading = false
	if err != nil {
		v.rail.err = fmt.Sprintf("Failed to load assets: %v", err)
		v.log.Warn("rail listing failed", "vertex", vertex.ID, "error", err)
		return
	}
	v.rail.notes, v.rail.images, v.rail.files = notes, images, files
}

func (v *View) closeRailLocked(now time.Time) {
	if v.rail == nil {
		return
	}
	restore := v.rail.restore
	v.rail = nil
	v.railGen++
	v.ctrl.AnimateTo(restore, now, RailFocusDuration)
}

// CloseRail hides the asset rail and restores the transform it replaced.
func (v *View) CloseRail() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closeRailLocked(v.now())
}

// WaitRail blocks until the open rail finished listing.
func (v *View) WaitRail(ctx context.Context) error {
	v.mu.Lock()
	if v.rail == nil {
		v.mu.Unlock()
		return ErrRailClosed
	}
	done := v.rail.done
	v.mu.Unlock()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PickRailEntry hands an entry of the open tab to the host and closes the rail.
func (v *View) PickRailEntry(name string) error {
	v.mu.Lock()
	r := v.rail
	if r == nil || r.loading {
		v.mu.Unlock()
		return ErrRailClosed
	}
	found := false
	for _, e := range r.entries() {
		if e == name {
			found = true
			break
		}
	}
	if !found {
		v.mu.Unlock()
		return fmt.Errorf("%s is not listed under %s: %w", name, r.tab, datasource.ErrNotFound)
	}

	var cb func(vertexID, entry string)
	switch r.tab {
	case RailNotes:
		cb = v.callbacks.OnSelectNote
	case RailImages:
		cb = v.callbacks.OnSelectImage
	case RailFiles:
		cb = v.callbacks.OnSelectFile
	}
	vertex := r.vertex
	v.closeRailLocked(v.now())
	v.mu.Unlock()

	if cb != nil {
		cb(vertex, name)
	}
	return nil
}
