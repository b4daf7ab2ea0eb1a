// Package radial lays out the ring of context actions around the selected node and
// drives its enter/exit phases.
package radial

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Menu geometry and timing.
const (
	DefaultRadius  = 65.0
	DefaultStagger = 40 * time.Millisecond
	DefaultExit    = 200 * time.Millisecond
	OffscreenX     = -9999.0
	OffscreenY     = -9999.0
)

var (
	ErrNotInteractive = errors.New("radial menu is not open")
	ErrUnknownAction  = errors.New("unknown action")
	ErrDisabled       = errors.New("action is disabled")
)

// Phase of the menu animation.
type Phase int

const (
	Closed Phase = iota
	Opening
	Open
	Closing
)

func (p Phase) String() string {
	switch p {
	case Opening:
		return "opening"
	case Open:
		return "open"
	case Closing:
		return "closing"
	default:
		return "closed"
	}
}

// Action is one slot of the ring. Angle is in degrees, clockwise from east.
type Action struct {
	Key      string  `json:"key"`
	Label    string  `json:"label"`
	Angle    float64 `json:"angle"`
	Disabled bool    `json:"disabled"`
}

// Slot is an action placed in screen space for one frame.
type Slot struct {
	Action
	X       float64       `json:"x"`
	Y       float64       `json:"y"`
	Opacity float64       `json:"opacity"`
	Scale   float64       `json:"scale"`
	Delay   time.Duration `json:"delay"`
	Enabled bool          `json:"enabled"`
}

// Menu is the phase machine of the ring. It is not safe for concurrent use.
type Menu struct {
	Radius  float64
	Stagger time.Duration
	Exit    time.Duration

	actions  []Action
	phase    Phase
	open     bool
	sequence string
	pending  int // frames until the next opening step
	closeAt  time.Time
	anchorX  float64
	anchorY  float64
}

// New creates a closed menu with the default geometry.
func New() *Menu {
	return &Menu{Radius: DefaultRadius, Stagger: DefaultStagger, Exit: DefaultExit}
}

// SetActions replaces the actions. Their order defines the stagger order.
func (m *Menu) SetActions(actions []Action) {
	m.actions = append(m.actions[:0], actions...)
}

// Actions returns the current actions.
func (m *Menu) Actions() []Action {
	return m.actions
}

// Phase returns the current phase.
func (m *Menu) Phase() Phase {
	return m.phase
}

// Interactive reports whether slots accept clicks.
func (m *Menu) Interactive() bool {
	return m.open
}

// Show opens the menu for the sequence key, usually the selected node id. Showing a
// different key while open restarts the opening sequence.
func (m *Menu) Show(sequence string) {
	if m.open && m.sequence == sequence {
		return
	}
	m.open = true
	m.sequence = sequence
	m.pending = 2
}

// Hide starts the exit sequence. The menu closes after every action has faded out.
func (m *Menu) Hide(now time.Time) {
	if !m.open {
		return
	}
	m.open = false
	m.pending = 0
	m.sequence = ""
	m.phase = Closing
	m.closeAt = now.Add(time.Duration(len(m.actions))*m.Stagger + m.Exit)
}

// ExitDuration is how long the closing phase lasts for the current actions.
func (m *Menu) ExitDuration() time.Duration {
	return time.Duration(len(m.actions))*m.Stagger + m.Exit
}

// Frame advances the phase machine by one animation frame.
func (m *Menu) Frame(now time.Time) {
	if m.open && m.pending > 0 {
		m.pending--
		if m.pending == 1 {
			m.phase = Opening
		} else {
			m.phase = Open
		}
		return
	}
	if !m.open && m.phase == Closing && !now.Before(m.closeAt) {
		m.phase = Closed
	}
}

// MoveTo anchors the ring at a screen position. The last anchor is kept while closing.
func (m *Menu) MoveTo(x, y float64) {
	m.anchorX, m.anchorY = x, y
}

// Anchor returns the ring center, off-screen while closed.
func (m *Menu) Anchor() (float64, float64) {
	if m.phase == Closed && !m.open {
		return OffscreenX, OffscreenY
	}
	return m.anchorX, m.anchorY
}

// Slots places every action for the current frame. Exit delays run in reverse order.
func (m *Menu) Slots() []Slot {
	ax, ay := m.Anchor()
	active := m.phase == Open
	slots := make([]Slot, len(m.actions))
	for i, a := range m.actions {
		rad := a.Angle * math.Pi / 180
		order := i
		if m.phase == Closing {
			order = len(m.actions) - 1 - i
		}
		s := Slot{
			Action:  a,
			X:       ax + math.Cos(rad)*m.Radius,
			Y:       ay + math.Sin(rad)*m.Radius,
			Opacity: 0,
			Scale:   0.7,
			Delay:   time.Duration(order) * m.Stagger,
			Enabled: m.open && !a.Disabled,
		}
		if active {
			s.Opacity, s.Scale = 1, 1
		}
		slots[i] = s
	}
	return slots
}

// Invoke validates a click on the action with key and returns it.
func (m *Menu) Invoke(key string) (Action, error) {
	if !m.open {
		return Action{}, ErrNotInteractive
	}
	for _, a := range m.actions {
		if a.Key != key {
			continue
		}
		if a.Disabled {
			return a, fmt.Errorf("%s: %w", key, ErrDisabled)
		}
		return a, nil
	}
	return Action{}, fmt.Errorf("%s: %w", key, ErrUnknownAction)
}
