package gesture

import (
	"github.com/eetulauri/dash-gantt/internal/geometry"
	"github.com/eetulauri/dash-gantt/internal/schedule"
	"github.com/eetulauri/dash-gantt/internal/timeutil"
)

// Commit is the outcome of a completed gesture, delivered on pointer-up.
// Move and resize commits carry the dragged slot's id; create commits carry
// the professional the slot was drawn for.
type Commit struct {
	Kind           State
	SlotID         int
	ProfessionalID int
	Start          string
	End            string
}

// Controller tracks a single in-flight gesture. It converts pointer
// positions to grid-snapped times, maintains the live preview, and produces
// a Commit (or nothing) when the pointer is released. It never mutates the
// timeslot list itself.
type Controller struct {
	capture Capture
	release func()

	state   State
	metrics geometry.Metrics

	// move/resize
	slot         schedule.Timeslot
	preview      schedule.Timeslot
	grabOffsetPx float64

	// create
	createProfessionalID int
	createStart          string
	createEnd            string
}

// NewController returns an idle controller. A nil capture defaults to
// NopCapture.
func NewController(capture Capture) *Controller {
	if capture == nil {
		capture = NopCapture{}
	}
	return &Controller{capture: capture, state: StateIdle}
}

// State returns the current gesture state.
func (c *Controller) State() State { return c.state }

// Preview returns the provisional geometry of the dragged slot, valid only
// during a move or resize.
func (c *Controller) Preview() (schedule.Timeslot, bool) {
	if c.state != StateMove && c.state != StateResizeStart && c.state != StateResizeEnd {
		return schedule.Timeslot{}, false
	}
	return c.preview, true
}

// CreationRange returns the in-progress creation endpoints, valid only
// during a create drag. The range is not ordered until commit.
func (c *Controller) CreationRange() (professionalID int, start, end string, ok bool) {
	if c.state != StateCreate {
		return 0, "", "", false
	}
	return c.createProfessionalID, c.createStart, c.createEnd, true
}

// BeginDrag enters a move or resize gesture for the slot. pointerPx is the
// pointer's horizontal offset from the grid's left edge; for moves the
// offset between pointer and slot start is captured so the slot does not
// jump under the cursor. Booked slots reject the gesture.
func (c *Controller) BeginDrag(kind State, slot schedule.Timeslot, m geometry.Metrics, pointerPx float64) bool {
	if kind != StateMove && kind != StateResizeStart && kind != StateResizeEnd {
		return false
	}
	if !CanTransition(c.state, kind) || slot.IsBooked {
		return false
	}

	c.state = kind
	c.metrics = m
	c.slot = slot
	c.preview = slot
	c.grabOffsetPx = 0

	if kind == StateMove {
		if startDec, err := timeutil.ToDecimal(slot.Start); err == nil {
			slotStartPx := (startDec - float64(m.StartHour)) * m.PixelsPerHour()
			c.grabOffsetPx = pointerPx - slotStartPx
		}
	}

	c.release = c.capture.Acquire()
	return true
}

// BeginCreate enters a create gesture on an empty cell. cellStart is the
// clicked cell's time; the creation range starts out empty at that point.
func (c *Controller) BeginCreate(professionalID int, m geometry.Metrics, cellStart string) bool {
	if !CanTransition(c.state, StateCreate) {
		return false
	}

	c.state = StateCreate
	c.metrics = m
	c.createProfessionalID = professionalID
	c.createStart = cellStart
	c.createEnd = cellStart

	c.release = c.capture.Acquire()
	return true
}

// PointerMove updates the live preview from the pointer's horizontal offset.
// Updates that would produce an invalid time are rejected, leaving the last
// valid preview in place.
func (c *Controller) PointerMove(pointerPx float64) {
	switch c.state {
	case StateMove:
		c.moveTo(c.metrics.TimeAt(pointerPx - c.grabOffsetPx))
	case StateResizeStart:
		c.resizeStartTo(c.metrics.TimeAt(pointerPx))
	case StateResizeEnd:
		c.resizeEndTo(c.metrics.TimeAt(pointerPx))
	case StateCreate:
		// Only the far endpoint follows the pointer; the anchor stays put.
		c.createEnd = c.metrics.TimeAt(pointerPx)
	}
}

func (c *Controller) moveTo(candidate string) {
	startDec, err := timeutil.ToDecimal(c.slot.Start)
	if err != nil {
		return
	}
	endDec, err := timeutil.ToDecimal(c.slot.End)
	if err != nil {
		return
	}
	newStartDec, err := timeutil.ToDecimal(candidate)
	if err != nil {
		return
	}

	newEnd := timeutil.FromDecimal(newStartDec + (endDec - startDec))
	if timeutil.IsValid(candidate) && timeutil.IsValid(newEnd) {
		c.preview.Start = candidate
		c.preview.End = newEnd
	}
}

func (c *Controller) resizeStartTo(candidate string) {
	endDec, err := timeutil.ToDecimal(c.slot.End)
	if err != nil {
		return
	}
	candDec, err := timeutil.ToDecimal(candidate)
	if err != nil {
		return
	}

	next := candidate
	if candDec >= endDec {
		// Clamp one cell short of the end so the preview keeps width.
		next = timeutil.FromDecimal(endDec - float64(c.metrics.CellDuration)/60)
	}
	if timeutil.IsValid(next) {
		c.preview.Start = next
	}
}

func (c *Controller) resizeEndTo(candidate string) {
	startDec, err := timeutil.ToDecimal(c.slot.Start)
	if err != nil {
		return
	}
	candDec, err := timeutil.ToDecimal(candidate)
	if err != nil {
		return
	}

	next := candidate
	if candDec <= startDec {
		next = timeutil.FromDecimal(startDec + float64(c.metrics.CellDuration)/60)
	}
	if timeutil.IsValid(next) {
		c.preview.End = next
	}
}

// PointerUp ends the gesture. It returns the resulting commit, or ok=false
// when the gesture is discarded (zero or negative duration, empty creation
// range, or no gesture in flight). The controller always returns to idle
// and releases pointer capture.
func (c *Controller) PointerUp() (Commit, bool) {
	defer c.reset()

	switch c.state {
	case StateMove, StateResizeStart, StateResizeEnd:
		startDec, err := timeutil.ToDecimal(c.preview.Start)
		if err != nil {
			return Commit{}, false
		}
		endDec, err := timeutil.ToDecimal(c.preview.End)
		if err != nil {
			return Commit{}, false
		}
		if endDec <= startDec {
			return Commit{}, false
		}
		return Commit{
			Kind:   c.state,
			SlotID: c.slot.ID,
			Start:  c.preview.Start,
			End:    c.preview.End,
		}, true

	case StateCreate:
		start, end := c.createStart, c.createEnd
		startDec, err := timeutil.ToDecimal(start)
		if err != nil {
			return Commit{}, false
		}
		endDec, err := timeutil.ToDecimal(end)
		if err != nil {
			return Commit{}, false
		}
		if endDec < startDec {
			start, end = end, start
		}
		if start == end {
			return Commit{}, false
		}
		return Commit{
			Kind:           StateCreate,
			ProfessionalID: c.createProfessionalID,
			Start:          start,
			End:            end,
		}, true
	}
	return Commit{}, false
}

// reset clears all gesture-transient state and releases pointer capture.
func (c *Controller) reset() {
	if c.release != nil {
		c.release()
		c.release = nil
	}
	c.state = StateIdle
	c.metrics = geometry.Metrics{}
	c.slot = schedule.Timeslot{}
	c.preview = schedule.Timeslot{}
	c.grabOffsetPx = 0
	c.createProfessionalID = 0
	c.createStart = ""
	c.createEnd = ""
}
