package radial

import (
	"errors"
	"math"
	"testing"
	"time"
)

func navigationActions() []Action {
	return []Action{
		{Key: "open", Angle: 225},
		{Key: "relocate", Angle: 255},
		{Key: "folder", Angle: 285},
		{Key: "delete", Angle: 315, Disabled: true},
	}
}

func TestMenu_OpensTwoFramesApart(t *testing.T) {
	m := New()
	m.SetActions(navigationActions())
	now := time.Unix(0, 0)

	m.Show("v1")
	if m.Phase() != Closed {
		t.Fatalf("Expected closed before the first frame, got %s", m.Phase())
	}
	if !m.Interactive() {
		t.Error("Expected menu interactive once shown")
	}

	m.Frame(now)
	if m.Phase() != Opening {
		t.Fatalf("Expected opening after one frame, got %s", m.Phase())
	}
	m.Frame(now)
	if m.Phase() != Open {
		t.Fatalf("Expected open after two frames, got %s", m.Phase())
	}
	m.Frame(now)
	if m.Phase() != Open {
		t.Errorf("Expected open to be stable, got %s", m.Phase())
	}
}

func TestMenu_ClosesAfterStaggeredExit(t *testing.T) {
	m := New()
	m.SetActions(navigationActions())
	now := time.Unix(0, 0)
	m.Show("v1")
	m.Frame(now)
	m.Frame(now)

	m.Hide(now)
	if m.Phase() != Closing || m.Interactive() {
		t.Fatalf("Expected non-interactive closing, got %s interactive=%v", m.Phase(), m.Interactive())
	}

	exit := 4*40*time.Millisecond + 200*time.Millisecond
	if m.ExitDuration() != exit {
		t.Errorf("Expected exit duration %v, got %v", exit, m.ExitDuration())
	}

	m.Frame(now.Add(exit - time.Millisecond))
	if m.Phase() != Closing {
		t.Errorf("Expected still closing just before %v, got %s", exit, m.Phase())
	}
	m.Frame(now.Add(exit))
	if m.Phase() != Closed {
		t.Errorf("Expected closed at %v, got %s", exit, m.Phase())
	}
}

func TestMenu_ReverseStaggerOnExit(t *testing.T) {
	m := New()
	m.SetActions(navigationActions())
	now := time.Unix(0, 0)
	m.Show("v1")
	m.Frame(now)
	m.Frame(now)

	open := m.Slots()
	for i, s := range open {
		if s.Delay != time.Duration(i)*40*time.Millisecond {
			t.Errorf("Slot %d: expected enter delay %v, got %v", i, time.Duration(i)*40*time.Millisecond, s.Delay)
		}
		if s.Opacity != 1 || s.Scale != 1 {
			t.Errorf("Slot %d: expected fully shown, got opacity %g scale %g", i, s.Opacity, s.Scale)
		}
	}

	m.Hide(now)
	closing := m.Slots()
	for i, s := range closing {
		want := time.Duration(len(closing)-1-i) * 40 * time.Millisecond
		if s.Delay != want {
			t.Errorf("Slot %d: expected exit delay %v, got %v", i, want, s.Delay)
		}
		if s.Opacity != 0 {
			t.Errorf("Slot %d: expected fading out, got opacity %g", i, s.Opacity)
		}
	}
}

func TestMenu_GeometryAndOffscreen(t *testing.T) {
	m := New()
	m.SetActions([]Action{{Key: "east", Angle: 0}, {Key: "south", Angle: 90}})

	if x, y := m.Anchor(); x != OffscreenX || y != OffscreenY {
		t.Errorf("Expected closed menu off-screen, got (%g, %g)", x, y)
	}

	m.MoveTo(100, 200)
	m.Show("v1")
	m.Frame(time.Unix(0, 0))
	slots := m.Slots()

	if math.Abs(slots[0].X-165) > 1e-9 || math.Abs(slots[0].Y-200) > 1e-9 {
		t.Errorf("Expected east slot at (165, 200), got (%g, %g)", slots[0].X, slots[0].Y)
	}
	if math.Abs(slots[1].X-100) > 1e-9 || math.Abs(slots[1].Y-265) > 1e-9 {
		t.Errorf("Expected south slot at (100, 265), got (%g, %g)", slots[1].X, slots[1].Y)
	}
}

func TestMenu_NewSelectionRestartsSequence(t *testing.T) {
	m := New()
	m.SetActions(navigationActions())
	now := time.Unix(0, 0)
	m.Show("v1")
	m.Frame(now)
	m.Frame(now)

	m.Show("v1")
	m.Frame(now)
	if m.Phase() != Open {
		t.Errorf("Expected same selection to keep the menu open, got %s", m.Phase())
	}

	m.Show("v2")
	m.Frame(now)
	if m.Phase() != Opening {
		t.Errorf("Expected new selection to replay opening, got %s", m.Phase())
	}
}

func TestMenu_Invoke(t *testing.T) {
	m := New()
	m.SetActions(navigationActions())

	if _, err := m.Invoke("open"); !errors.Is(err, ErrNotInteractive) {
		t.Errorf("Expected ErrNotInteractive while closed, got %v", err)
	}

	m.Show("v1")
	if a, err := m.Invoke("open"); err != nil || a.Key != "open" {
		t.Errorf("Expected open action, got %v (%v)", a, err)
	}
	if _, err := m.Invoke("delete"); !errors.Is(err, ErrDisabled) {
		t.Errorf("Expected ErrDisabled, got %v", err)
	}
	if _, err := m.Invoke("nope"); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("Expected ErrUnknownAction, got %v", err)
	}

	for _, s := range m.Slots() {
		if s.Key == "delete" && s.Enabled {
			t.Error("Expected disabled slot not enabled")
		}
	}
}
