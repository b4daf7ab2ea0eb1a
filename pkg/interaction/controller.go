// Package interaction holds the selection, hover and zoom/pan state of a graph view.
package interaction

import (
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/ritzau/vertex-graph/pkg/logging"
	"github.com/ritzau/vertex-graph/pkg/model"
	"github.com/ritzau/vertex-graph/pkg/storage"
)

// NodeRadius is the drawn radius of workspace and vertex nodes. The root anchor is
// not drawn and cannot be hit.
const NodeRadius = 18.0

// Radius returns the drawn radius of a node kind.
func Radius(kind model.NodeKind) float64 {
	if kind == model.NodeKindRoot {
		return 0
	}
	return NodeRadius
}

type recenterAnimation struct {
	from     Transform
	to       Transform
	start    time.Time
	duration time.Duration
}

// Controller is the interaction state machine of one graph view. It is not safe for
// concurrent use; the owning view serialises access.
type Controller struct {
	store     storage.Store
	key       string
	log       *slog.Logger
	transform Transform
	selected  string
	hovered   string
	recenter  *recenterAnimation
}

// NewController creates a controller that persists its transform under key.
func NewController(store storage.Store, key string) *Controller {
	return &Controller{
		store:     store,
		key:       key,
		log:       logging.New("interaction").With("key", key),
		transform: Identity(),
	}
}

// Restore loads the persisted transform. A missing slot leaves identity; a corrupt
// one is deleted so it cannot fail again.
func (c *Controller) Restore() error {
	raw, err := c.store.Get(c.key)
	if errors.Is(err, storage.ErrNotFound) {
		c.transform = Identity()
		return nil
	}
	if err != nil {
		return err
	}

	t, err := DecodeTransform(raw)
	if err != nil {
		c.log.Warn("discarding persisted transform", "error", err)
		c.transform = Identity()
		return c.store.Delete(c.key)
	}
	c.transform = t
	return nil
}

// Transform returns the current zoom/pan transform.
func (c *Controller) Transform() Transform {
	return c.transform
}

// Selected returns the selected node id, or "" when nothing is selected.
func (c *Controller) Selected() string {
	return c.selected
}

// Hovered returns the hovered node id, or "".
func (c *Controller) Hovered() string {
	return c.hovered
}

// ClickNode toggles selection of id.
func (c *Controller) ClickNode(id string) {
	if c.selected == id {
		c.selected = ""
		return
	}
	c.selected = id
}

// ClickCanvas clears the selection.
func (c *Controller) ClickCanvas() {
	c.selected = ""
}

// Select sets the selection directly; "" deselects.
func (c *Controller) Select(id string) {
	c.selected = id
}

// HoverEnter marks id as the hovered node.
func (c *Controller) HoverEnter(id string) {
	c.hovered = id
}

// HoverLeave clears the hover only if id is still the hovered node.
func (c *Controller) HoverLeave(id string) {
	if c.hovered == id {
		c.hovered = ""
	}
}

// DoubleClick reports whether the node should have its collapse state toggled.
// Only vertex nodes collapse from the canvas.
func (c *Controller) DoubleClick(node *model.GraphNode) bool {
	return node != nil && node.Kind == model.NodeKindVertex
}

// ZoomEnabled reports whether pan and zoom gestures are accepted.
func (c *Controller) ZoomEnabled() bool {
	return c.selected == ""
}

// Pan translates the view by a screen delta. Ignored while a node is selected.
func (c *Controller) Pan(dx, dy float64) bool {
	if !c.ZoomEnabled() {
		return false
	}
	c.commit(c.transform.Translate(dx, dy))
	return true
}

// Zoom scales the view about a screen point. Ignored while a node is selected.
func (c *Controller) Zoom(factor, px, py float64) bool {
	if !c.ZoomEnabled() || factor <= 0 || math.IsNaN(factor) {
		return false
	}
	c.commit(c.transform.ZoomAbout(factor, px, py))
	return true
}

// SetTransform replaces the transform and persists it immediately.
func (c *Controller) SetTransform(t Transform) error {
	if !t.Valid() {
		return errors.New("invalid transform")
	}
	c.recenter = nil
	c.transform = t
	return c.persist()
}

func (c *Controller) commit(t Transform) {
	if err := c.SetTransform(t); err != nil {
		c.log.Warn("failed to persist transform", "error", err)
	}
}

func (c *Controller) persist() error {
	encoded, err := c.transform.Encode()
	if err != nil {
		return err
	}
	return c.store.Set(c.key, encoded)
}

// IsPanned reports whether the recenter affordance should be shown.
func (c *Controller) IsPanned() bool {
	return c.transform.IsPanned()
}

// Recenter starts an animation back to identity. A non-positive duration resets at once.
func (c *Controller) Recenter(now time.Time, duration time.Duration) {
	if duration <= 0 {
		c.finishRecenter()
		return
	}
	c.recenter = &recenterAnimation{from: c.transform, to: Identity(), start: now, duration: duration}
}

// AnimateTo starts an animation to target; the target is persisted once reached.
func (c *Controller) AnimateTo(target Transform, now time.Time, duration time.Duration) {
	if !target.Valid() {
		return
	}
	if duration <= 0 {
		c.commit(target)
		return
	}
	c.recenter = &recenterAnimation{from: c.transform, to: target, start: now, duration: duration}
}

// Recentering reports whether an animation is in flight.
func (c *Controller) Recentering() bool {
	return c.recenter != nil
}

// Advance moves a running animation to time now. It reports whether the transform changed.
func (c *Controller) Advance(now time.Time) bool {
	a := c.recenter
	if a == nil {
		return false
	}
	p := float64(now.Sub(a.start)) / float64(a.duration)
	if p >= 1 {
		if a.to.IsPanned() {
			c.commit(a.to)
		} else {
			c.finishRecenter()
		}
		return true
	}
	c.transform = Lerp(a.from, a.to, easeCubicInOut(p))
	return true
}

func (c *Controller) finishRecenter() {
	c.recenter = nil
	c.transform = Identity()
	if err := c.store.Delete(c.key); err != nil {
		c.log.Warn("failed to clear transform", "error", err)
	}
}

// Reconcile drops the selection and hover of nodes that are no longer visible.
func (c *Controller) Reconcile(visible func(id string) bool) {
	if c.selected != "" && !visible(c.selected) {
		c.log.Debug("selected node no longer visible", "node", c.selected)
		c.selected = ""
	}
	if c.hovered != "" && !visible(c.hovered) {
		c.hovered = ""
	}
}

// HitTest returns the node under the screen point, or nil. Nodes later in the slice
// are drawn on top and win ties.
func (c *Controller) HitTest(nodes []*model.GraphNode, sx, sy float64) *model.GraphNode {
	wx, wy := c.transform.Invert(sx, sy)
	var hit *model.GraphNode
	best := math.Inf(1)
	for _, n := range nodes {
		r := Radius(n.Kind)
		if r == 0 {
			continue
		}
		d := math.Hypot(n.X-wx, n.Y-wy)
		if d <= r && d <= best {
			hit, best = n, d
		}
	}
	return hit
}

func easeCubicInOut(t float64) float64 {
	t *= 2
	if t <= 1 {
		return t * t * t / 2
	}
	t -= 2
	return (t*t*t + 2) / 2
}
