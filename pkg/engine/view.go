// Package engine orchestrates one graph view: loading, collapse, layout, simulation,
// interaction, the radial menu and the counts overlay. Every entry point is
// serialised by one mutex; I/O runs outside it and results are applied only while
// still current.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ritzau/vertex-graph/pkg/collapse"
	"github.com/ritzau/vertex-graph/pkg/counts"
	"github.com/ritzau/vertex-graph/pkg/cycles"
	"github.com/ritzau/vertex-graph/pkg/datasource"
	"github.com/ritzau/vertex-graph/pkg/graph"
	"github.com/ritzau/vertex-graph/pkg/interaction"
	"github.com/ritzau/vertex-graph/pkg/layout"
	"github.com/ritzau/vertex-graph/pkg/logging"
	"github.com/ritzau/vertex-graph/pkg/model"
	"github.com/ritzau/vertex-graph/pkg/radial"
	"github.com/ritzau/vertex-graph/pkg/scene"
	"github.com/ritzau/vertex-graph/pkg/simulation"
	"github.com/ritzau/vertex-graph/pkg/storage"
)

var (
	ErrNoSelection    = errors.New("no node selected")
	ErrActionDisabled = errors.New("action is disabled")
	ErrNothingPending = errors.New("no action awaiting confirmation")
	ErrClosed         = errors.New("view is closed")
)

// Kind selects the action set and the persisted transform slot of a view.
type Kind string

const (
	KindOverview  Kind = "overview"
	KindReference Kind = "reference"
)

// TransformKey returns the storage key of the kind's zoom/pan transform.
func (k Kind) TransformKey() string {
	if k == KindReference {
		return storage.KeyReferenceTransform
	}
	return storage.KeyOverviewTransform
}

// RecenterDuration is the length of the recenter animation.
const RecenterDuration = 250 * time.Millisecond

// Callbacks are invoked outside the view lock, so they may call back into the view.
type Callbacks struct {
	OnOpenVertex    func(vertexID string)
	OnSelectVertex  func(vertexID string)
	OnSelectNote    func(vertexID, note string)
	OnSelectImage   func(vertexID, image string)
	OnSelectFile    func(vertexID, file string)
	OnVertexUpdated func(v model.Vertex)
}

// Observer receives view telemetry. Implementations must be safe for concurrent use.
type Observer interface {
	ObserveTick(view string, d time.Duration)
	SetVisibleNodes(view string, n int)
	ObserveCounts(view, result string, d time.Duration)
	ObserveLoad(view, result string)
}

type nopObserver struct{}

func (nopObserver) ObserveTick(string, time.Duration)           {}
func (nopObserver) SetVisibleNodes(string, int)                 {}
func (nopObserver) ObserveCounts(string, string, time.Duration) {}
func (nopObserver) ObserveLoad(string, string)                  {}

// Options configure a view.
type Options struct {
	Name               string // Defaults to the kind
	Kind               Kind
	Source             datasource.Source
	Opener             datasource.Opener
	Store              storage.Store
	Viewport           layout.Viewport
	CurrentVertexID    string
	CurrentWorkspaceID string
	CountsConcurrency  int
	Callbacks          Callbacks
	Observer           Observer
	Now                func() time.Time
}

type pendingAction struct {
	action string
	nodeID string
	label  string
}

// View is one logical graph instance.
type View struct {
	name      string
	kind      Kind
	source    datasource.Source
	opener    datasource.Opener
	store     storage.Store
	callbacks Callbacks
	observer  Observer
	now       func() time.Time
	log       *slog.Logger
	relocator *datasource.Relocator
	counts    *counts.Overlay
	ctx       context.Context
	cancel    context.CancelFunc

	mu               sync.Mutex
	data             *model.GraphData
	hierarchy        *graph.Hierarchy
	snapshot         *graph.GraphSnapshot
	visible          *model.GraphData
	visibleKey       string
	collapse         *collapse.State
	ctrl             *interaction.Controller
	menu             *radial.Menu
	sim              simulation.Simulator
	viewport         layout.Viewport
	currentVertex    string
	currentWorkspace string
	loading          bool
	loadGen          uint64
	errMsg           string
	pending          *pendingAction
	move             *scene.MoveProgress
	rail             *railState
	railGen          uint64
	seq              uint64
	lastTick         time.Time
	closed           bool
}

// New creates a view and restores its persisted transform. Call Load to populate it.
func New(opts Options) (*View, error) {
	if opts.Source == nil {
		return nil, errors.New("engine: a data source is required")
	}
	if opts.Kind == "" {
		opts.Kind = KindOverview
	}
	if opts.Name == "" {
		opts.Name = string(opts.Kind)
	}
	if opts.Store == nil {
		opts.Store = storage.NewMemoryStore()
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	v := &View{
		name:             opts.Name,
		kind:             opts.Kind,
		source:           opts.Source,
		opener:           opts.Opener,
		store:            opts.Store,
		callbacks:        opts.Callbacks,
		observer:         opts.Observer,
		now:              opts.Now,
		log:              logging.New("engine").With("view", opts.Name),
		relocator:        datasource.NewRelocator(opts.Source),
		ctx:              ctx,
		cancel:           cancel,
		collapse:         collapse.NewState(),
		ctrl:             interaction.NewController(opts.Store, opts.Kind.TransformKey()),
		menu:             radial.New(),
		viewport:         opts.Viewport.Clamped(),
		currentVertex:    opts.CurrentVertexID,
		currentWorkspace: opts.CurrentWorkspaceID,
	}
	v.counts = counts.New(opts.Source, opts.CountsConcurrency, func(result string, d time.Duration) {
		v.observer.ObserveCounts(v.name, result, d)
	})

	if err := v.ctrl.Restore(); err != nil {
		v.log.Warn("failed to restore transform", "error", err)
	}
	return v, nil
}

// Name returns the view name.
func (v *View) Name() string {
	return v.name
}

// Kind returns the view kind.
func (v *View) Kind() Kind {
	return v.kind
}

// Load fetches workspaces and vertices concurrently and rebuilds the graph. On failure
// the previous graph stays in place and Error reports the message.
func (v *View) Load(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	v.loading = true
	v.loadGen++
	gen := v.loadGen
	v.mu.Unlock()

	start := time.Now()
	var workspaces []model.Workspace
	var vertices []model.Vertex
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		workspaces, err = v.source.GetWorkspaces(gctx)
		if err != nil {
			return fmt.Errorf("failed to load workspaces: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		vertices, err = v.source.GetAllVertices(gctx)
		if err != nil {
			return fmt.Errorf("failed to load vertices: %w", err)
		}
		return nil
	})
	err := g.Wait()

	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.loadGen || v.closed {
		v.log.Debug("discarding superseded load", "generation", gen)
		return nil
	}
	v.loading = false
	if err != nil {
		v.errMsg = err.Error()
		v.observer.ObserveLoad(v.name, "error")
		v.log.Error("graph load failed", "error", err)
		return err
	}

	v.errMsg = ""
	v.applyLocked(workspaces, vertices)
	v.observer.ObserveLoad(v.name, "ok")
	v.log.Debug("graph loaded",
		"workspaces", len(workspaces),
		"vertices", len(vertices),
		"durationMs", time.Since(start).Milliseconds())
	return nil
}

// applyLocked installs a freshly built graph. Nodes are new objects, so every node is
// reseeded around its target; collapse toggles keep their node objects.
func (v *View) applyLocked(workspaces []model.Workspace, vertices []model.Vertex) {
	data := graph.Build(workspaces, vertices)

	diff := graph.ComputeDiff(v.snapshot, data)
	if !diff.Empty() {
		v.log.Debug("graph changed",
			"added", len(diff.AddedNodes),
			"removed", len(diff.RemovedNodes),
			"modified", len(diff.ModifiedNodes),
			"full", diff.FullGraph)
	}
	v.snapshot = graph.CreateSnapshot(data)

	v.data = data
	v.hierarchy = graph.NewHierarchy(data)
	for _, c := range cycles.FindVertexCycles(v.hierarchy) {
		v.log.Warn("vertex parent cycle", "vertices", strings.Join(c.VertexIDs, ","))
	}

	v.collapse.SetGraph(data)
	v.collapse.ApplyDefaults(collapse.Defaults(data, v.currentVertex, v.currentWorkspace))
	v.rebuildVisibleLocked(true)
	v.counts.Refresh(v.ctx, data)
}

// rebuildVisibleLocked recomputes the visible graph. Layout targets and the simulation
// are rebuilt only when the visible node set changed, or when force is set.
func (v *View) rebuildVisibleLocked(force bool) {
	if v.data == nil {
		return
	}
	visible := v.collapse.Visible()
	key := visibleKey(visible)
	v.visible = visible
	if key == v.visibleKey && !force {
		return
	}
	v.visibleKey = key

	layout.AssignTargets(visible, v.viewport, layout.DefaultConfig())
	if v.sim != nil {
		v.sim.Stop()
	}
	cx, cy := v.viewport.Center()
	v.sim = simulation.New(visible.Nodes, simulation.DefaultConfig(),
		simulation.StandardForces(visible, simulation.DefaultParams(cx, cy))...)

	index := visible.Index()
	v.ctrl.Reconcile(func(id string) bool {
		_, ok := index[id]
		return ok
	})
	v.syncMenuLocked(v.now())
	v.observer.SetVisibleNodes(v.name, len(visible.Nodes))
	v.log.Debug("visible graph rebuilt", "nodes", len(visible.Nodes), "collapsed", len(v.collapse.Collapsed()))
}

func visibleKey(data *model.GraphData) string {
	ids := make([]string, len(data.Nodes))
	for i, n := range data.Nodes {
		ids[i] = n.ID
	}
	sort.Strings(ids)
	return strings.Join(ids, "\x00")
}

// SetCurrent tells the view which vertex the host has open. Default collapse follows
// it until the user toggles a node.
func (v *View) SetCurrent(vertexID, workspaceID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.currentVertex = vertexID
	v.currentWorkspace = workspaceID
	if v.data == nil {
		return
	}
	v.collapse.ApplyDefaults(collapse.Defaults(v.data, vertexID, workspaceID))
	v.rebuildVisibleLocked(false)
	v.syncMenuLocked(v.now())
}

// Current returns the vertex the host has open.
func (v *View) Current() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.currentVertex
}

// Resize changes the viewport. Targets are recomputed and the simulation reheated.
func (v *View) Resize(vp layout.Viewport) {
	v.mu.Lock()
	defer v.mu.Unlock()
	vp = vp.Clamped()
	if vp == v.viewport {
		return
	}
	v.viewport = vp
	v.rebuildVisibleLocked(true)
}

// ToggleCollapse flips the collapse state of a vertex or workspace node.
func (v *View) ToggleCollapse(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.toggleLocked(id)
}

func (v *View) toggleLocked(id string) bool {
	if v.data == nil {
		return false
	}
	collapsed := v.collapse.Toggle(id)
	v.log.Debug("collapse toggled", "node", id, "collapsed", collapsed)
	v.rebuildVisibleLocked(false)
	return collapsed
}

// Collapsed returns the collapse set.
func (v *View) Collapsed() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.collapse.Collapsed()
}

// Graph returns the unfiltered graph, or nil before the first load.
func (v *View) Graph() *model.GraphData {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.data
}

// Visible returns the visible graph, or nil before the first load.
func (v *View) Visible() *model.GraphData {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.visible
}

// Selected returns the selected node id.
func (v *View) Selected() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ctrl.Selected()
}

// Error returns the last load or action failure, or "".
func (v *View) Error() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.errMsg
}

// RefreshCounts refetches counts even for an unchanged graph, after asset changes.
func (v *View) RefreshCounts() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.data == nil {
		return
	}
	v.counts.Invalidate()
	v.counts.Refresh(v.ctx, v.data)
}

// WaitCounts blocks until the latest counts fetch finished.
func (v *View) WaitCounts(ctx context.Context) error {
	return v.counts.Wait(ctx)
}

// Tick advances the simulation, the menu phases and any transform animation to now
// and returns the resulting frame.
func (v *View) Tick(now time.Time) scene.Frame {
	start := time.Now()
	v.mu.Lock()
	defer v.mu.Unlock()

	dt := time.Second / 60
	if !v.lastTick.IsZero() {
		dt = now.Sub(v.lastTick)
	}
	v.lastTick = now

	if v.sim != nil && !v.closed {
		v.sim.Tick(dt)
	}
	v.ctrl.Advance(now)
	v.menu.Frame(now)
	frame := v.composeLocked()
	v.observer.ObserveTick(v.name, time.Since(start))
	return frame
}

// Frame composes the current state without advancing time.
func (v *View) Frame() scene.Frame {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.composeLocked()
}

func (v *View) composeLocked() scene.Frame {
	transform := v.ctrl.Transform()
	if sel := v.visible.Node(v.ctrl.Selected()); sel != nil {
		v.menu.MoveTo(transform.Apply(sel.X, sel.Y))
	}

	f := scene.Compose(scene.Input{
		Graph:     v.visible,
		Collapsed: v.collapse.Collapsed(),
		Current:   v.currentVertex,
		Selected:  v.ctrl.Selected(),
		Hovered:   v.ctrl.Hovered(),
		Counts:    v.counts.Snapshot(),
		Transform: transform,
		Menu:      v.menu,
	})
	v.seq++
	f.Seq = v.seq
	f.View = v.name
	f.Width, f.Height = v.viewport.Width, v.viewport.Height
	f.Loading = v.loading
	f.Error = v.errMsg
	if v.sim != nil {
		f.Alpha = v.sim.Alpha()
	}
	if v.pending != nil {
		f.Confirm = &scene.Confirmation{Action: v.pending.action, Node: v.pending.nodeID, Label: v.pending.label}
	}
	if v.move != nil {
		m := *v.move
		f.Move = &m
	}
	if v.rail != nil {
		f.Rail = v.rail.frame()
	}
	return f
}

// Close stops the simulation and cancels background work.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	if v.sim != nil {
		v.sim.Stop()
	}
	v.counts.Close()
	v.cancel()
}
