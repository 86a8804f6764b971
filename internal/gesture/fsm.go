// Package gesture drives pointer-based slot interactions: moving a slot,
// resizing either edge, and creating a slot by dragging across empty cells.
//
// One gesture is active at a time. Pointer tracking is acquired when a drag
// begins and released on every transition back to idle, so no handler can
// outlive its gesture.
package gesture

// State identifies the current phase of pointer interaction.
type State string

const (
	StateIdle        State = "idle"
	StateMove        State = "move"
	StateResizeStart State = "resize_start"
	StateResizeEnd   State = "resize_end"
	StateCreate      State = "create"
)

// Dragging reports whether the state is any of the active drag kinds.
func (s State) Dragging() bool {
	return s != StateIdle && s != ""
}

var transitions = map[State][]State{
	StateIdle:        {StateMove, StateResizeStart, StateResizeEnd, StateCreate},
	StateMove:        {StateIdle},
	StateResizeStart: {StateIdle},
	StateResizeEnd:   {StateIdle},
	StateCreate:      {StateIdle},
}

// CanTransition checks if the transition is allowed. Drags start only from
// idle and can only end by returning to idle, which structurally prevents
// overlapping gestures.
func CanTransition(from, to State) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Capture scopes global pointer tracking to an active gesture. Acquire is
// called on entry to any dragging state and the returned release function on
// every transition back to idle, including discarded gestures.
type Capture interface {
	Acquire() (release func())
}

// NopCapture satisfies Capture for hosts that track the pointer themselves.
type NopCapture struct{}

// Acquire returns a no-op release.
func (NopCapture) Acquire() func() { return func() {} }
