// Package scene turns graph view state into a retained-mode draw model. A renderer
// draws every Frame from scratch; nothing in it refers back to live state.
package scene

import (
	"math"
	"sort"

	"github.com/ritzau/vertex-graph/pkg/interaction"
	"github.com/ritzau/vertex-graph/pkg/model"
	"github.com/ritzau/vertex-graph/pkg/radial"
)

// Geometry shared with the renderer.
const (
	LabelOffset         = 28.0
	LabelSelectedOffset = 43.0
	SelectionRingRadius = 43.0
	BadgeRadius         = 12.0
	CountItemRadius     = 10.0
	countRingGap        = 18.0
)

// CountRingItem is one bubble of the counts ring. Angle is in degrees.
type CountRingItem struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Angle float64 `json:"angle"`
}

// CountRingItems are drawn clockwise from the upper left of the node.
var CountRingItems = []CountRingItem{
	{Key: "items", Label: "It", Angle: -160},
	{Key: "notes", Label: "No", Angle: -120},
	{Key: "images", Label: "Im", Angle: -80},
	{Key: "urls", Label: "Li", Angle: -40},
	{Key: "files", Label: "Fi", Angle: 0},
}

// Line is a drawn hierarchy edge in world coordinates.
type Line struct {
	Source string  `json:"source"`
	Target string  `json:"target"`
	X1     float64 `json:"x1"`
	Y1     float64 `json:"y1"`
	X2     float64 `json:"x2"`
	Y2     float64 `json:"y2"`
}

// Node is a drawn node circle.
type Node struct {
	ID        string         `json:"id"`
	Kind      model.NodeKind `json:"kind"`
	X         float64        `json:"x"`
	Y         float64        `json:"y"`
	R         float64        `json:"r"`
	Current   bool           `json:"current,omitempty"` // Highlighted stroke
	Selected  bool           `json:"selected,omitempty"`
	Hovered   bool           `json:"hovered,omitempty"`
	Thumbnail string         `json:"thumbnail,omitempty"`
}

// Label is node text below the circle.
type Label struct {
	Node string  `json:"node"`
	Text string  `json:"text"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Badge marks a collapsed node.
type Badge struct {
	Node string  `json:"node"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	R    float64 `json:"r"`
	Text string  `json:"text"`
}

// CountValue is one placed bubble of a counts ring.
type CountValue struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Value int     `json:"value"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// CountRing annotates a vertex node; only the hovered node's ring is opaque.
type CountRing struct {
	Node    string       `json:"node"`
	Opacity float64      `json:"opacity"`
	Items   []CountValue `json:"items"`
}

// Ring is the selection highlight.
type Ring struct {
	Node string  `json:"node"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	R    float64 `json:"r"`
}

// Menu is the radial action menu in screen coordinates.
type Menu struct {
	Phase       string        `json:"phase"`
	X           float64       `json:"x"`
	Y           float64       `json:"y"`
	Interactive bool          `json:"interactive"`
	Slots       []radial.Slot `json:"slots"`
}

// Frame is everything a renderer needs to draw one graph view.
type Frame struct {
	Seq       uint64                `json:"seq"`
	View      string                `json:"view"`
	Width     float64               `json:"width"`
	Height    float64               `json:"height"`
	Transform interaction.Transform `json:"transform"`
	Alpha     float64               `json:"alpha"`
	Links     []Line                `json:"links"`
	Nodes     []Node                `json:"nodes"`
	Labels    []Label               `json:"labels"`
	Badges    []Badge               `json:"badges"`
	Counts    []CountRing           `json:"counts"`
	Selection *Ring                 `json:"selection,omitempty"`
	Menu      Menu                  `json:"menu"`
	Recenter  bool                  `json:"recenter"`
	Loading   bool                  `json:"loading"`
	Error     string                `json:"error,omitempty"`
	Confirm   *Confirmation         `json:"confirm,omitempty"`
	Move      *MoveProgress         `json:"move,omitempty"`
	Rail      *Rail                 `json:"rail,omitempty"`
}

// Confirmation is a pending destructive action awaiting the host's answer.
type Confirmation struct {
	Action string `json:"action"`
	Node   string `json:"node"`
	Label  string `json:"label"`
}

// MoveProgress mirrors an asset directory move in flight.
type MoveProgress struct {
	Workspace string `json:"workspace"`
	Stage     string `json:"stage"`
	Moved     int    `json:"moved"`
	Total     int    `json:"total"`
	Current   string `json:"current,omitempty"`
}

// Rail lists the assets of a vertex for reference picking.
type Rail struct {
	Vertex  string   `json:"vertex"`
	Kind    string   `json:"kind"`
	Entries []string `json:"entries"`
	Loading bool     `json:"loading"`
	Error   string   `json:"error,omitempty"`
}

// Input is the state a frame is composed from.
type Input struct {
	Graph     *model.GraphData // Visible graph
	Collapsed []string
	Current   string // Vertex the host has open
	Selected  string
	Hovered   string
	Counts    map[string]model.Counts
	Transform interaction.Transform
	Menu      *radial.Menu
}

// Compose builds the draw model. Header fields (Seq, View, size, status) are left to
// the caller, which also keeps the menu anchored.
func Compose(in Input) Frame {
	f := Frame{Transform: in.Transform}
	if in.Graph == nil {
		f.Menu = composeMenu(in.Menu)
		return f
	}

	collapsed := make(map[string]bool, len(in.Collapsed))
	for _, id := range in.Collapsed {
		collapsed[id] = true
	}

	for _, l := range in.Graph.Links {
		if l.Kind != model.LinkKindEdge {
			continue
		}
		f.Links = append(f.Links, Line{
			Source: l.Source.ID, Target: l.Target.ID,
			X1: l.Source.X, Y1: l.Source.Y, X2: l.Target.X, Y2: l.Target.Y,
		})
	}

	for _, n := range in.Graph.Nodes {
		r := interaction.Radius(n.Kind)
		if r == 0 {
			continue
		}
		node := Node{
			ID: n.ID, Kind: n.Kind, X: n.X, Y: n.Y, R: r,
			Current:  n.ID == in.Current,
			Selected: n.ID == in.Selected,
			Hovered:  n.ID == in.Hovered,
		}
		if n.Vertex != nil {
			node.Thumbnail = n.Vertex.ThumbnailPath
		}
		f.Nodes = append(f.Nodes, node)

		offset := LabelOffset
		if n.ID == in.Selected {
			offset = LabelSelectedOffset
		}
		f.Labels = append(f.Labels, Label{Node: n.ID, Text: n.Label, X: n.X, Y: n.Y + r + offset})

		if n.Kind != model.NodeKindVertex {
			continue
		}
		if collapsed[n.ID] {
			f.Badges = append(f.Badges, Badge{Node: n.ID, X: n.X, Y: n.Y, R: BadgeRadius, Text: "+"})
		}
		f.Counts = append(f.Counts, countRing(n, r, in.Counts[n.ID], n.ID == in.Hovered))
	}

	// Collapsed workspaces get a badge too
	for _, n := range in.Graph.WorkspaceNodes() {
		if collapsed[n.ID] {
			f.Badges = append(f.Badges, Badge{Node: n.ID, X: n.X, Y: n.Y, R: BadgeRadius, Text: "+"})
		}
	}
	sort.SliceStable(f.Badges, func(i, j int) bool { return f.Badges[i].Node < f.Badges[j].Node })

	if sel := in.Graph.Node(in.Selected); sel != nil {
		f.Selection = &Ring{Node: sel.ID, X: sel.X, Y: sel.Y, R: SelectionRingRadius}
	}
	f.Menu = composeMenu(in.Menu)
	f.Recenter = in.Transform.IsPanned()
	return f
}

func countRing(n *model.GraphNode, r float64, c model.Counts, hovered bool) CountRing {
	ring := CountRing{Node: n.ID, Items: make([]CountValue, len(CountRingItems))}
	if hovered {
		ring.Opacity = 1
	}
	values := map[string]int{
		"items": c.Items, "notes": c.Notes, "images": c.Images, "urls": c.Links, "files": c.Files,
	}
	radius := r + countRingGap
	for i, item := range CountRingItems {
		rad := item.Angle * math.Pi / 180
		ring.Items[i] = CountValue{
			Key:   item.Key,
			Label: item.Label,
			Value: values[item.Key],
			X:     n.X + math.Cos(rad)*radius,
			Y:     n.Y + math.Sin(rad)*radius,
		}
	}
	return ring
}

func composeMenu(m *radial.Menu) Menu {
	if m == nil {
		return Menu{Phase: radial.Closed.String(), X: radial.OffscreenX, Y: radial.OffscreenY}
	}
	x, y := m.Anchor()
	return Menu{
		Phase:       m.Phase().String(),
		X:           x,
		Y:           y,
		Interactive: m.Interactive(),
		Slots:       m.Slots(),
	}
}
