package engine

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/ritzau/vertex-graph/pkg/datasource"
	"github.com/ritzau/vertex-graph/pkg/layout"
	"github.com/ritzau/vertex-graph/pkg/model"
	"github.com/ritzau/vertex-graph/pkg/radial"
	"github.com/ritzau/vertex-graph/pkg/scene"
	"github.com/ritzau/vertex-graph/pkg/storage"
)

// fakeSource is an in-memory data collaborator.
type fakeSource struct {
	mu         sync.Mutex
	workspaces []model.Workspace
	vertices   []model.Vertex
	loadErr    error
	notes      map[string][]string
	dirs       map[string][]string
	moves      [][2]string
	removed    []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		workspaces: []model.Workspace{
			{ID: "w1", Name: "One", Path: "/data/w1"},
			{ID: "w2", Name: "Two", Path: "/data/w2"},
		},
		vertices: []model.Vertex{
			{ID: "a1", Title: "A1", WorkspaceID: "w1", AssetDirectory: "/data/w1/a1"},
			{ID: "b1", Title: "B1", ParentID: "a1"},
			{ID: "c1", Title: "C1", ParentID: "b1"},
			{ID: "a2", Title: "A2", WorkspaceID: "w1"},
			{ID: "z", Title: "Z", WorkspaceID: "w2"},
		},
		notes: map[string][]string{"a1": {"intro.md", "todo.md"}},
		dirs:  map[string][]string{"/data/w1/a1": {"intro.md", "report.pdf", "cat.png"}},
	}
}

func (f *fakeSource) GetWorkspaces(context.Context) ([]model.Workspace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return slices.Clone(f.workspaces), nil
}

func (f *fakeSource) GetAllVertices(context.Context) ([]model.Vertex, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.vertices), nil
}

func (f *fakeSource) ListNotes(_ context.Context, v model.Vertex) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.notes[v.ID], nil
}

func (f *fakeSource) ListImages(_ context.Context, v model.Vertex) ([]string, error) {
	if v.ID == "a1" {
		return []string{"cat.png"}, nil
	}
	return nil, nil
}

func (f *fakeSource) ListLinks(context.Context, model.Vertex) ([]string, error) {
	return nil, nil
}

func (f *fakeSource) ListDir(_ context.Context, dir string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	names, ok := f.dirs[dir]
	if !ok {
		return nil, datasource.ErrUnavailable
	}
	return names, nil
}

func (f *fakeSource) UpdateVertex(_ context.Context, v model.Vertex) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.vertices {
		if f.vertices[i].ID == v.ID {
			f.vertices[i] = v
			return nil
		}
	}
	return datasource.ErrNotFound
}

func (f *fakeSource) RemoveVertex(_ context.Context, v model.Vertex) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, v.ID)
	f.vertices = slices.DeleteFunc(f.vertices, func(x model.Vertex) bool { return x.ID == v.ID })
	return nil
}

func (f *fakeSource) MoveDirectory(_ context.Context, src, dst string, progress func(datasource.Progress)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, [2]string{src, dst})
	if progress != nil {
		progress(datasource.Progress{Stage: datasource.StageMove, Moved: 1, Total: 1})
	}
	return nil
}

type recordingObserver struct {
	mu      sync.Mutex
	ticks   int
	visible int
	loads   []string
}

func (o *recordingObserver) ObserveTick(string, time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ticks++
}

func (o *recordingObserver) SetVisibleNodes(_ string, n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.visible = n
}

func (o *recordingObserver) ObserveCounts(string, string, time.Duration) {}

func (o *recordingObserver) ObserveLoad(_ string, result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.loads = append(o.loads, result)
}

func newView(t *testing.T, source *fakeSource, opts Options) *View {
	t.Helper()
	opts.Source = source
	opts.Viewport = layout.Viewport{Width: 800, Height: 600}
	if opts.CurrentVertexID == "" {
		opts.CurrentVertexID = "b1"
		opts.CurrentWorkspaceID = "w1"
	}
	v, err := New(opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(v.Close)
	if err := v.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return v
}

// openMenu selects a node and runs the two frames the ring needs to open.
func openMenu(v *View, id string) {
	v.Select(id)
	now := time.Now()
	v.Tick(now)
	v.Tick(now.Add(16 * time.Millisecond))
}

func TestView_LoadAppliesDefaultCollapse(t *testing.T) {
	observer := &recordingObserver{}
	v := newView(t, newFakeSource(), Options{Observer: observer})

	got := v.Collapsed()
	if !slices.Equal(got, []string{"a2", "ws:w2"}) {
		t.Errorf("Expected other workspace and sibling root collapsed, got %v", got)
	}
	if v.Visible().Node("z") != nil {
		t.Error("Expected vertex of collapsed workspace hidden")
	}
	if v.Visible().Node("c1") == nil {
		t.Error("Expected current branch visible")
	}

	observer.mu.Lock()
	defer observer.mu.Unlock()
	if observer.visible != len(v.Visible().Nodes) {
		t.Errorf("Expected visible gauge %d, got %d", len(v.Visible().Nodes), observer.visible)
	}
	if !slices.Equal(observer.loads, []string{"ok"}) {
		t.Errorf("Expected one ok load, got %v", observer.loads)
	}
}

func TestView_LoadFailureKeepsGraph(t *testing.T) {
	source := newFakeSource()
	v := newView(t, source, Options{})
	before := v.Graph()

	source.mu.Lock()
	source.loadErr = errors.New("disk offline")
	source.mu.Unlock()

	if err := v.Load(context.Background()); err == nil {
		t.Fatal("Expected load error")
	}
	if v.Graph() != before {
		t.Error("Expected previous graph kept after failed load")
	}
	if v.Error() == "" || v.Frame().Error == "" {
		t.Error("Expected error message exposed")
	}

	source.mu.Lock()
	source.loadErr = nil
	source.mu.Unlock()
	if err := v.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if v.Error() != "" {
		t.Errorf("Expected error cleared, got %q", v.Error())
	}
}

func TestView_MenuActionsFollowSelection(t *testing.T) {
	v := newView(t, newFakeSource(), Options{})
	ctx := context.Background()

	if err := v.Invoke(ctx, ActionDelete); !errors.Is(err, ErrNoSelection) {
		t.Errorf("Expected ErrNoSelection, got %v", err)
	}

	openMenu(v, "b1")
	f := v.Frame()
	if f.Menu.Phase != radial.Open.String() || !f.Menu.Interactive {
		t.Fatalf("Expected open menu, got %+v", f.Menu)
	}
	if f.Selection == nil || f.Selection.Node != "b1" {
		t.Errorf("Expected selection ring on b1, got %+v", f.Selection)
	}

	// b1 is the current vertex: it can be neither opened nor relocated onto itself
	if err := v.Invoke(ctx, ActionOpenVertex); !errors.Is(err, ErrActionDisabled) {
		t.Errorf("Expected open-vertex disabled for current vertex, got %v", err)
	}
	if err := v.Invoke(ctx, ActionRelocate); !errors.Is(err, ErrActionDisabled) {
		t.Errorf("Expected relocate disabled for current vertex, got %v", err)
	}

	// c1 descends from b1 and cannot take it as a child
	openMenu(v, "c1")
	if err := v.Invoke(ctx, ActionRelocate); !errors.Is(err, ErrActionDisabled) {
		t.Errorf("Expected relocate under descendant disabled, got %v", err)
	}

	if v.Pan(10, 10) {
		t.Error("Expected pan ignored while a node is selected")
	}
	v.Select("")
	if !v.Pan(10, 10) {
		t.Error("Expected pan accepted without selection")
	}
}

func TestView_OpenVertexStoresViewMode(t *testing.T) {
	store := storage.NewMemoryStore()
	var opened []string
	v := newView(t, newFakeSource(), Options{
		Store:     store,
		Callbacks: Callbacks{OnOpenVertex: func(id string) { opened = append(opened, id) }},
	})

	openMenu(v, "c1")
	if err := v.Invoke(context.Background(), ActionOpenVertex); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	if !slices.Equal(opened, []string{"c1"}) {
		t.Errorf("Expected host asked to open c1, got %v", opened)
	}
	mode, err := store.Get(storage.KeyViewMode)
	if err != nil || mode != `{"mode":"graph","vertexId":"c1"}` {
		t.Errorf("Expected graph view mode stored, got %q (%v)", mode, err)
	}
	if _, err := store.Get(storage.KeyOverviewTransform); err != nil {
		t.Errorf("Expected transform persisted, got %v", err)
	}
}

func TestView_DeleteCurrentOpensParent(t *testing.T) {
	source := newFakeSource()
	var opened []string
	v := newView(t, source, Options{
		Callbacks: Callbacks{OnOpenVertex: func(id string) { opened = append(opened, id) }},
	})
	ctx := context.Background()

	openMenu(v, "b1")
	if err := v.Invoke(ctx, ActionDelete); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if f := v.Frame(); f.Confirm == nil || f.Confirm.Action != ActionDelete || f.Confirm.Node != "b1" {
		t.Fatalf("Expected pending delete confirmation, got %+v", f.Confirm)
	}

	v.Cancel()
	if err := v.Confirm(ctx); !errors.Is(err, ErrNothingPending) {
		t.Errorf("Expected ErrNothingPending after cancel, got %v", err)
	}

	if err := v.Invoke(ctx, ActionDelete); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if err := v.Confirm(ctx); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}

	if !slices.Equal(source.removed, []string{"b1"}) {
		t.Errorf("Expected b1 removed, got %v", source.removed)
	}
	if !slices.Equal(opened, []string{"a1"}) || v.Current() != "a1" {
		t.Errorf("Expected navigation to parent a1, got %v (current %q)", opened, v.Current())
	}
	if v.Graph().Node("b1") != nil {
		t.Error("Expected graph reloaded without b1")
	}
	if v.Selected() != "" {
		t.Errorf("Expected selection of deleted node dropped, got %q", v.Selected())
	}
}

func TestView_RelocateToWorkspace(t *testing.T) {
	source := newFakeSource()
	var updated []model.Vertex
	v := newView(t, source, Options{
		Callbacks: Callbacks{OnVertexUpdated: func(vx model.Vertex) { updated = append(updated, vx) }},
	})
	ctx := context.Background()

	openMenu(v, "ws:w2")
	if err := v.Invoke(ctx, ActionRelocate); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if v.Pending() != ActionRelocate {
		t.Fatalf("Expected pending relocate, got %q", v.Pending())
	}
	if err := v.Confirm(ctx); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}

	if len(source.moves) != 1 || source.moves[0] != [2]string{"/data/w1/b1", "/data/w2/b1"} {
		t.Errorf("Expected assets moved from the current workspace, got %v", source.moves)
	}
	if len(updated) != 1 || updated[0].WorkspaceID != "w2" || updated[0].ParentID != "" {
		t.Fatalf("Expected b1 as root of w2, got %+v", updated)
	}
	node := v.Graph().Node("b1")
	if node == nil || node.WorkspaceID != "w2" {
		t.Errorf("Expected reloaded graph with b1 under w2, got %+v", node)
	}
	if v.Frame().Move != nil {
		t.Error("Expected move progress cleared")
	}
}

func TestView_DoubleClickTogglesCollapse(t *testing.T) {
	v := newView(t, newFakeSource(), Options{})
	a1 := v.Visible().Node("a1")

	if !v.DoubleClick(a1.X, a1.Y) {
		t.Fatal("Expected double-click on a vertex to toggle")
	}
	if !slices.Contains(v.Collapsed(), "a1") {
		t.Errorf("Expected a1 collapsed, got %v", v.Collapsed())
	}
	if v.Visible().Node("b1") != nil {
		t.Error("Expected descendants of a1 hidden")
	}
	if f := v.Frame(); !slices.ContainsFunc(f.Badges, func(b scene.Badge) bool { return b.Node == "a1" }) {
		t.Errorf("Expected collapse badge on a1, got %+v", f.Badges)
	}

	ws := v.Visible().Node("ws:w1")
	if v.DoubleClick(ws.X, ws.Y) {
		t.Error("Expected double-click on a workspace to be ignored")
	}
}

func TestView_CountsAndTick(t *testing.T) {
	observer := &recordingObserver{}
	v := newView(t, newFakeSource(), Options{Observer: observer})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := v.WaitCounts(ctx); err != nil {
		t.Fatalf("Counts did not finish: %v", err)
	}

	now := time.Now()
	first := v.Tick(now)
	second := v.Tick(now.Add(time.Second / 30))
	if second.Seq <= first.Seq {
		t.Errorf("Expected increasing frame sequence, got %d then %d", first.Seq, second.Seq)
	}
	if second.Alpha >= 1 {
		t.Errorf("Expected simulation cooling, got alpha %g", second.Alpha)
	}

	var a1 []int
	for _, ring := range second.Counts {
		if ring.Node == "a1" {
			for _, item := range ring.Items {
				a1 = append(a1, item.Value)
			}
		}
	}
	// items, notes, images, urls, files
	if !slices.Equal(a1, []int{1, 2, 1, 0, 1}) {
		t.Errorf("Expected a1 counts [1 2 1 0 1], got %v", a1)
	}

	observer.mu.Lock()
	defer observer.mu.Unlock()
	if observer.ticks != 2 {
		t.Errorf("Expected 2 observed ticks, got %d", observer.ticks)
	}
}

func TestView_ReferenceRail(t *testing.T) {
	var picked []string
	v := newView(t, newFakeSource(), Options{
		Kind: KindReference,
		Callbacks: Callbacks{OnSelectNote: func(vertex, note string) {
			picked = append(picked, vertex+"/"+note)
		}},
	})
	ctx := context.Background()

	openMenu(v, "a1")
	if err := v.Invoke(ctx, ActionLinkNote); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := v.WaitRail(waitCtx); err != nil {
		t.Fatalf("Rail did not load: %v", err)
	}

	rail := v.Frame().Rail
	if rail == nil || rail.Kind != RailNotes || !slices.Equal(rail.Entries, []string{"intro.md", "todo.md"}) {
		t.Fatalf("Expected notes of a1, got %+v", rail)
	}

	if err := v.Invoke(ctx, ActionLinkFile); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if rail := v.Frame().Rail; !slices.Equal(rail.Entries, []string{"report.pdf"}) {
		t.Errorf("Expected only report.pdf under files, got %v", rail.Entries)
	}

	if err := v.Invoke(ctx, ActionLinkNote); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if err := v.PickRailEntry("missing.md"); !errors.Is(err, datasource.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unlisted note, got %v", err)
	}
	if err := v.PickRailEntry("todo.md"); err != nil {
		t.Fatalf("PickRailEntry failed: %v", err)
	}
	if !slices.Equal(picked, []string{"a1/todo.md"}) {
		t.Errorf("Expected a1/todo.md picked, got %v", picked)
	}
	if v.Frame().Rail != nil {
		t.Error("Expected rail closed after picking")
	}
}

func TestView_RailClosesOnSelectionChange(t *testing.T) {
	v := newView(t, newFakeSource(), Options{Kind: KindReference})
	openMenu(v, "a1")
	if err := v.Invoke(context.Background(), ActionLinkImage); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	v.Select("b1")
	if v.Frame().Rail != nil {
		t.Error("Expected rail closed when another node is selected")
	}
	if err := v.PickRailEntry("cat.png"); !errors.Is(err, ErrRailClosed) {
		t.Errorf("Expected ErrRailClosed, got %v", err)
	}
}

func TestView_ReloadReseedsPositions(t *testing.T) {
	v := newView(t, newFakeSource(), Options{})
	seeded := v.Graph().Node("a1")
	seedX, seedY := seeded.X, seeded.Y

	now := time.Now()
	for i := 0; i < 200; i++ {
		v.Tick(now.Add(time.Duration(i) * 16 * time.Millisecond))
	}
	if seeded.X == seedX && seeded.Y == seedY {
		t.Fatal("Expected the simulation to move a1 away from its seed position")
	}

	if err := v.Load(context.Background()); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	reloaded := v.Graph().Node("a1")
	if reloaded == seeded {
		t.Fatal("Expected reload to build new node objects")
	}
	if reloaded.X == seeded.X && reloaded.Y == seeded.Y {
		t.Errorf("Expected a1 reseeded, still at simulated position (%g, %g)", seeded.X, seeded.Y)
	}
	if reloaded.X != seedX || reloaded.Y != seedY {
		t.Errorf("Expected a1 back at its seed position (%g, %g), got (%g, %g)", seedX, seedY, reloaded.X, reloaded.Y)
	}
}
