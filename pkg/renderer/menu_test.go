package renderer

import (
	"errors"
	"math"
	"testing"
)

func TestMenuPositions(t *testing.T) {
	m := NewMenu(100,
		MenuAction{ID: "a"},
		MenuAction{ID: "b"},
		MenuAction{ID: "c"},
		MenuAction{ID: "d"},
	)

	pos := m.Positions(0, 0)
	if len(pos) != 4 {
		t.Fatalf("positions = %d, want 4", len(pos))
	}

	// First action sits at twelve o'clock.
	if math.Abs(pos[0].X) > 1e-9 || math.Abs(pos[0].Y+100) > 1e-9 {
		t.Errorf("first action at (%f,%f), want (0,-100)", pos[0].X, pos[0].Y)
	}

	// All actions lie on the circle.
	for _, p := range pos {
		r := math.Hypot(p.X, p.Y)
		if math.Abs(r-100) > 1e-9 {
			t.Errorf("action %s at radius %f, want 100", p.ID, r)
		}
	}

	// Even spacing: angle between consecutive actions is 90 degrees.
	a0 := math.Atan2(pos[0].Y, pos[0].X)
	a1 := math.Atan2(pos[1].Y, pos[1].X)
	if diff := math.Mod(a1-a0+2*math.Pi, 2*math.Pi); math.Abs(diff-math.Pi/2) > 1e-9 {
		t.Errorf("angular spacing = %f rad, want pi/2", diff)
	}
}

func TestMenuFiresExactlyOnce(t *testing.T) {
	var fired []string
	m := NewMenu(50,
		MenuAction{ID: "open", Do: func() { fired = append(fired, "open") }},
		MenuAction{ID: "delete", Do: func() { fired = append(fired, "delete") }},
	)

	if err := m.Invoke("open"); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if err := m.Invoke("delete"); !errors.Is(err, ErrMenuClosed) {
		t.Errorf("second Invoke = %v, want ErrMenuClosed", err)
	}
	if len(fired) != 1 || fired[0] != "open" {
		t.Errorf("fired = %v, want exactly [open]", fired)
	}
}

func TestMenuUnknownActionKeepsMenuOpen(t *testing.T) {
	ran := false
	m := NewMenu(50, MenuAction{ID: "only", Do: func() { ran = true }})

	if err := m.Invoke("missing"); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("Invoke(missing) = %v, want ErrUnknownAction", err)
	}
	if m.Closed() {
		t.Error("unknown action must not close the menu")
	}
	if err := m.Invoke("only"); err != nil {
		t.Fatalf("Invoke after miss: %v", err)
	}
	if !ran {
		t.Error("action did not fire")
	}
}

func TestMenuDismiss(t *testing.T) {
	ran := false
	m := NewMenu(50, MenuAction{ID: "a", Do: func() { ran = true }})

	m.Dismiss()
	m.Dismiss() // repeated dismissal is fine

	if err := m.Invoke("a"); !errors.Is(err, ErrMenuClosed) {
		t.Errorf("Invoke after Dismiss = %v, want ErrMenuClosed", err)
	}
	if ran {
		t.Error("dismissed menu must not fire actions")
	}
}

func TestSessionLinkingLifecycle(t *testing.T) {
	s := NewSession()

	if s.LinkingMode() {
		t.Fatal("new session must be idle")
	}

	s.SetLinkingMode(true)
	s.HoldSource("n1")
	if src, ok := s.Source(); !ok || src != "n1" {
		t.Errorf("Source = %q,%v, want n1,true", src, ok)
	}

	s.ClearSource()
	if _, ok := s.Source(); ok {
		t.Error("ClearSource must release the held source")
	}
	if !s.LinkingMode() {
		t.Error("ClearSource must not leave linking mode")
	}

	s.HoldSource("n2")
	s.SetLinkingMode(false)
	if _, ok := s.Source(); ok {
		t.Error("disabling linking mode must clear the held source")
	}
}
