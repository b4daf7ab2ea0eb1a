package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/ritzau/vertex-graph/pkg/layout"
	"github.com/ritzau/vertex-graph/pkg/model"
)

// Event types accepted by HandleEvent. Coordinates are in screen space.
const (
	EventClick       = "click"
	EventHover       = "hover"
	EventLeave       = "leave"
	EventDoubleClick = "dblclick"
	EventPan         = "pan"
	EventZoom        = "zoom"
	EventToggle      = "toggle"
	EventResize      = "resize"
	EventSelect      = "select"
)

// ErrUnknownEvent is returned by HandleEvent for an unrecognised event type.
var ErrUnknownEvent = errors.New("unknown event type")

// Event is a pointer or gesture event from the renderer.
type Event struct {
	Type   string  `json:"type"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
	Factor float64 `json:"factor"`
	Node   string  `json:"node"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// HandleEvent dispatches a renderer event.
func (v *View) HandleEvent(ev Event) error {
	switch ev.Type {
	case EventClick:
		v.Click(ev.X, ev.Y)
	case EventHover:
		v.Hover(ev.X, ev.Y)
	case EventLeave:
		v.Leave()
	case EventDoubleClick:
		v.DoubleClick(ev.X, ev.Y)
	case EventPan:
		v.Pan(ev.DX, ev.DY)
	case EventZoom:
		v.Zoom(ev.Factor, ev.X, ev.Y)
	case EventToggle:
		v.ToggleCollapse(ev.Node)
	case EventSelect:
		v.Select(ev.Node)
	case EventResize:
		v.Resize(layout.Viewport{Width: ev.Width, Height: ev.Height})
	default:
		return fmt.Errorf("%w %q", ErrUnknownEvent, ev.Type)
	}
	return nil
}

func (v *View) hitLocked(sx, sy float64) *model.GraphNode {
	if v.visible == nil {
		return nil
	}
	return v.ctrl.HitTest(v.visible.Nodes, sx, sy)
}

// Click selects the node under the point, deselects it when already selected, or
// clears the selection on empty canvas.
func (v *View) Click(sx, sy float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if node := v.hitLocked(sx, sy); node != nil {
		v.ctrl.ClickNode(node.ID)
	} else {
		v.ctrl.ClickCanvas()
	}
	v.syncMenuLocked(v.now())
}

// Select sets the selection by id; "" deselects. Ids not visible are ignored.
func (v *View) Select(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if id != "" && v.visible.Node(id) == nil {
		return
	}
	v.ctrl.Select(id)
	v.syncMenuLocked(v.now())
}

// Hover updates the hovered node from the pointer position.
func (v *View) Hover(sx, sy float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	node := v.hitLocked(sx, sy)
	if node == nil {
		v.ctrl.HoverLeave(v.ctrl.Hovered())
		return
	}
	v.ctrl.HoverEnter(node.ID)
}

// Leave clears the hover when the pointer leaves the canvas.
func (v *View) Leave() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ctrl.HoverLeave(v.ctrl.Hovered())
}

// DoubleClick toggles collapse of the vertex under the point.
func (v *View) DoubleClick(sx, sy float64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	node := v.hitLocked(sx, sy)
	if !v.ctrl.DoubleClick(node) {
		return false
	}
	v.toggleLocked(node.ID)
	return true
}

// Pan translates the view. Ignored while a node is selected.
func (v *View) Pan(dx, dy float64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ctrl.Pan(dx, dy)
}

// Zoom scales the view about a screen point. Ignored while a node is selected.
func (v *View) Zoom(factor, px, py float64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.ctrl.Zoom(factor, px, py)
}

// Recenter animates the view back to identity.
func (v *View) Recenter() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ctrl.Recenter(v.now(), RecenterDuration)
}

// syncMenuLocked opens the ring for the selected node, or starts its exit.
// Selection changes close the rail.
func (v *View) syncMenuLocked(now time.Time) {
	selected := v.visible.Node(v.ctrl.Selected())
	if v.rail != nil && (selected == nil || selected.ID != v.rail.vertex) {
		v.closeRailLocked(now)
	}
	if selected == nil {
		v.menu.Hide(now)
		return
	}
	v.menu.SetActions(v.actionsLocked(selected))
	v.menu.Show(selected.ID)
}
