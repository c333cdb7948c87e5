package renderer

import (
	"errors"
	"math"
)

// Menu errors.
var (
	// ErrMenuClosed is returned by Invoke after the menu already fired or was
	// dismissed. At most one action fires per invocation.
	ErrMenuClosed = errors.New("menu already closed")

	// ErrUnknownAction is returned by Invoke for an action id the menu does
	// not contain.
	ErrUnknownAction = errors.New("unknown menu action")
)

// MenuAction is one entry in a radial context menu.
type MenuAction struct {
	ID    string
	Label string
	Icon  string
	Do    func() // invoked at most once
}

// MenuPosition is the computed placement of one action.
type MenuPosition struct {
	ID   string
	X, Y float64
}

// Menu positions N actions radially around a point and guarantees exactly one
// action fires per invocation. Outside-click and escape map to Dismiss.
//
// The lifecycle is open → (Invoke | Dismiss) → closed. A closed menu rejects
// further invocations; reopening means building a new Menu.
type Menu struct {
	actions []MenuAction
	radius  float64
	closed  bool
}

// NewMenu creates an open menu. Radius is the distance from the anchor point
// to each action's center.
func NewMenu(radius float64, actions ...MenuAction) *Menu {
	return &Menu{actions: actions, radius: radius}
}

// Positions computes the placement of every action, evenly spaced on a circle
// around (cx, cy) starting at twelve o'clock and proceeding clockwise.
func (m *Menu) Positions(cx, cy float64) []MenuPosition {
	n := len(m.actions)
	out := make([]MenuPosition, n)
	for i, a := range m.actions {
		angle := 2*math.Pi*float64(i)/float64(n) - math.Pi/2
		out[i] = MenuPosition{
			ID: a.ID,
			X:  cx + m.radius*math.Cos(angle),
			Y:  cy + m.radius*math.Sin(angle),
		}
	}
	return out
}

// Invoke fires the action with the given id and closes the menu.
// Returns ErrMenuClosed if an action already fired or the menu was dismissed,
// ErrUnknownAction if no action has that id (the menu stays open).
func (m *Menu) Invoke(id string) error {
	if m.closed {
		return ErrMenuClosed
	}
	for _, a := range m.actions {
		if a.ID == id {
			m.closed = true
			if a.Do != nil {
				a.Do()
			}
			return nil
		}
	}
	return ErrUnknownAction
}

// Dismiss closes the menu without firing anything. Safe to call repeatedly.
func (m *Menu) Dismiss() { m.closed = true }

// Closed reports whether the menu can still fire an action.
func (m *Menu) Closed() bool { return m.closed }
