// Package widget holds the interactive schedule grid state: the raw records,
// the derived view for the active date, the span cache, and the gesture
// controller. All mutations funnel through it, so every change ends with a
// reconciled record list and one outbound notification.
package widget

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/eetulauri/dash-gantt/internal/events"
	"github.com/eetulauri/dash-gantt/internal/geometry"
	"github.com/eetulauri/dash-gantt/internal/gesture"
	"github.com/eetulauri/dash-gantt/internal/metrics"
	"github.com/eetulauri/dash-gantt/internal/schedule"
	"github.com/eetulauri/dash-gantt/internal/timeutil"
)

// Grid defaults matching the component's shipped configuration.
const (
	DefaultStartHour    = 6
	DefaultEndHour      = 23
	DefaultCellDuration = 5
	DefaultSlotMinutes  = 20

	dragDeleteCooldown = 100 * time.Millisecond
)

// ChangeNotification carries the full updated record list to the host after
// any committed mutation. The id correlates log lines and downstream
// persistence with one mutation.
type ChangeNotification struct {
	ID      uuid.UUID         `json:"id"`
	Date    string            `json:"date"`
	Records []schedule.Record `json:"records"`
}

// Options configures a Widget. Zero fields fall back to the grid defaults.
type Options struct {
	Date               string
	StartHour          int
	EndHour            int
	CellDuration       int
	DefaultSlotMinutes int

	Capture  gesture.Capture
	Bus      *events.EventBus
	OnChange func(ChangeNotification)
	Logger   *zerolog.Logger
	Now      func() time.Time
}

// Widget is the schedule grid's state holder. Not safe for concurrent use;
// like the grid it backs, it is driven from a single event loop.
type Widget struct {
	logger zerolog.Logger
	now    func() time.Time

	date         string
	startHour    int
	endHour      int
	cellDuration int
	slotMinutes  int

	records []schedule.Record
	view    schedule.View

	spans    *geometry.SpanCache
	gestures *gesture.Controller

	bus      *events.EventBus
	onChange func(ChangeNotification)

	lastDragCommit time.Time
}

// New builds a widget with an empty record list.
func New(opts Options) *Widget {
	if opts.StartHour == 0 && opts.EndHour == 0 {
		opts.StartHour, opts.EndHour = DefaultStartHour, DefaultEndHour
	}
	if opts.CellDuration <= 0 {
		opts.CellDuration = DefaultCellDuration
	}
	if opts.DefaultSlotMinutes <= 0 {
		opts.DefaultSlotMinutes = DefaultSlotMinutes
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	w := &Widget{
		logger:       logger,
		now:          opts.Now,
		date:         opts.Date,
		startHour:    opts.StartHour,
		endHour:      opts.EndHour,
		cellDuration: opts.CellDuration,
		slotMinutes:  opts.DefaultSlotMinutes,
		records:      []schedule.Record{},
		spans:        geometry.NewSpanCache(),
		gestures:     gesture.NewController(opts.Capture),
		bus:          opts.Bus,
		onChange:     opts.OnChange,
	}
	w.rebuild()
	return w
}

// View returns the derived grid state for the active date.
func (w *Widget) View() schedule.View { return w.view }

// Date returns the active display date.
func (w *Widget) Date() string { return w.date }

// CellDuration returns the grid cell size in minutes.
func (w *Widget) CellDuration() int { return w.cellDuration }

// Records returns a deep copy of the full record list, all dates included.
func (w *Widget) Records() []schedule.Record { return cloneRecords(w.records) }

// SetRecords replaces the raw record list and rebuilds the view.
func (w *Widget) SetRecords(records []schedule.Record) {
	w.records = cloneRecords(records)
	w.rebuild()
	if w.bus != nil {
		w.bus.Publish(events.Event{Type: events.TypeRecordsLoaded, Date: w.date})
	}
}

// SetDate switches the active display date and rebuilds the view.
func (w *Widget) SetDate(date string) {
	if date == w.date {
		return
	}
	w.date = date
	w.rebuild()
}

// SetCellDuration changes the grid cell size. Spans are invalidated since
// every slot's cell count depends on it.
func (w *Widget) SetCellDuration(minutes int) {
	if minutes <= 0 || minutes == w.cellDuration {
		return
	}
	w.cellDuration = minutes
	w.spans.Invalidate()
}

// SlotSpan returns the number of grid cells the slot occupies, memoized.
func (w *Widget) SlotSpan(slot schedule.Timeslot) int {
	return w.spans.Span(slot.ID, slot.Start, slot.End, w.cellDuration)
}

// Metrics returns the pixel-to-hour scale for the current grid at the given
// rendered table width.
func (w *Widget) Metrics(widthPx float64) geometry.Metrics {
	return geometry.Metrics{
		WidthPx:      widthPx,
		StartHour:    w.startHour,
		EndHour:      w.endHour,
		CellDuration: w.cellDuration,
	}
}

// ClickCreate adds a fixed-length slot at the clicked cell. Returns false
// when the professional is unknown or the start time is malformed.
func (w *Widget) ClickCreate(professionalID int, start string) bool {
	end, err := timeutil.AddMinutes(start, w.slotMinutes)
	if err != nil {
		w.logger.Warn().Str("start", start).Msg("click-create with malformed time")
		return false
	}
	return w.createSlot(professionalID, start, end)
}

// CreateRange adds a slot spanning the dragged range. A backward range is
// normalized; an empty one is rejected.
func (w *Widget) CreateRange(professionalID int, start, end string) bool {
	if !timeutil.IsValid(start) || !timeutil.IsValid(end) {
		return false
	}
	startDec, _ := timeutil.ToDecimal(start)
	endDec, _ := timeutil.ToDecimal(end)
	if endDec < startDec {
		start, end = end, start
	}
	if start == end {
		return false
	}
	return w.createSlot(professionalID, start, end)
}

// MoveSlot places the slot at a new start, preserving its length only if the
// caller passes matching times. Booked slots reject the mutation.
func (w *Widget) MoveSlot(id int, start, end string) bool {
	return w.applyGeometry(id, start, end, events.TypeSlotMoved)
}

// ResizeSlot changes one or both slot boundaries. Booked slots reject the
// mutation.
func (w *Widget) ResizeSlot(id int, start, end string) bool {
	return w.applyGeometry(id, start, end, events.TypeSlotResized)
}

// DeleteSlot removes the slot. Booked slots reject; a delete arriving within
// the cooldown after a drag commit is treated as a stray release from the
// same pointer sequence and ignored.
func (w *Widget) DeleteSlot(id int) bool {
	if w.now().Sub(w.lastDragCommit) < dragDeleteCooldown {
		w.logger.Debug().Int("slot_id", id).Msg("delete suppressed by drag cooldown")
		return false
	}

	idx := w.findSlot(id)
	if idx < 0 {
		return false
	}
	if w.view.Timeslots[idx].IsBooked {
		w.logger.Debug().Int("slot_id", id).Msg("delete rejected for booked slot")
		return false
	}

	w.view.Timeslots = append(w.view.Timeslots[:idx], w.view.Timeslots[idx+1:]...)
	w.commit(events.TypeSlotDeleted, id)
	return true
}

// BeginSlotDrag starts a move or resize gesture on the slot.
func (w *Widget) BeginSlotDrag(kind gesture.State, slotID int, widthPx, pointerPx float64) bool {
	idx := w.findSlot(slotID)
	if idx < 0 {
		return false
	}
	return w.gestures.BeginDrag(kind, w.view.Timeslots[idx], w.Metrics(widthPx), pointerPx)
}

// BeginCreate starts a create gesture for the professional's row at the
// pointer position.
func (w *Widget) BeginCreate(professionalID int, widthPx, pointerPx float64) bool {
	m := w.Metrics(widthPx)
	return w.gestures.BeginCreate(professionalID, m, m.TimeAt(pointerPx))
}

// PointerMove forwards pointer tracking to the active gesture.
func (w *Widget) PointerMove(pointerPx float64) {
	w.gestures.PointerMove(pointerPx)
}

// PointerUp ends the active gesture and applies its commit, if any. The drag
// cooldown starts on every commit so the context-menu release that follows a
// drag cannot delete the slot it just placed.
func (w *Widget) PointerUp() bool {
	wasDragging := w.gestures.State().Dragging()
	commit, ok := w.gestures.PointerUp()
	if !ok {
		if wasDragging {
			metrics.IncGestureDiscarded()
		}
		return false
	}

	var applied bool
	switch commit.Kind {
	case gesture.StateMove:
		applied = w.MoveSlot(commit.SlotID, commit.Start, commit.End)
	case gesture.StateResizeStart, gesture.StateResizeEnd:
		applied = w.ResizeSlot(commit.SlotID, commit.Start, commit.End)
	case gesture.StateCreate:
		applied = w.CreateRange(commit.ProfessionalID, commit.Start, commit.End)
	}
	if applied {
		w.lastDragCommit = w.now()
	}
	return applied
}

// GestureState exposes the controller state for rendering.
func (w *Widget) GestureState() gesture.State { return w.gestures.State() }

// Preview exposes the live drag preview for rendering.
func (w *Widget) Preview() (schedule.Timeslot, bool) { return w.gestures.Preview() }

func (w *Widget) createSlot(professionalID int, start, end string) bool {
	if !timeutil.IsValid(start) || !timeutil.IsValid(end) {
		return false
	}
	if !w.professionalExists(professionalID) {
		w.logger.Warn().Int("professional_id", professionalID).Msg("create for unknown professional")
		return false
	}
	duration, err := timeutil.DurationMinutes(start, end)
	if err != nil || duration == 0 {
		return false
	}

	w.view.Timeslots = append(w.view.Timeslots, schedule.Timeslot{
		ID:                 w.nextSlotID(),
		ProfessionalID:     professionalID,
		Start:              start,
		End:                end,
		Date:               w.date,
		DurationMinutes:    duration,
		BookingProbability: schedule.DefaultProbability,
	})
	w.commit(events.TypeSlotCreated, w.view.Timeslots[len(w.view.Timeslots)-1].ID)
	return true
}

func (w *Widget) applyGeometry(id int, start, end string, eventType string) bool {
	if !timeutil.IsValid(start) || !timeutil.IsValid(end) {
		w.logger.Warn().Int("slot_id", id).Str("start", start).Str("end", end).
			Msg("geometry change with malformed times")
		return false
	}

	idx := w.findSlot(id)
	if idx < 0 {
		return false
	}
	slot := &w.view.Timeslots[idx]
	if slot.IsBooked {
		return false
	}

	duration, err := timeutil.DurationMinutes(start, end)
	if err != nil || duration == 0 {
		return false
	}

	slot.Start = start
	slot.End = end
	slot.DurationMinutes = duration
	w.commit(eventType, id)
	return true
}

// commit reconciles the edited timeslot list back into the record list,
// rebuilds the view, and notifies the host.
func (w *Widget) commit(eventType string, slotID int) {
	before := len(w.view.Timeslots)
	w.records = schedule.Reconcile(w.view.Timeslots, w.records, w.view.Professionals, w.date)
	w.rebuild()
	if skipped := before - len(w.view.Timeslots); skipped > 0 {
		w.logger.Warn().Int("skipped", skipped).Str("date", w.date).
			Msg("timeslots excluded during reconciliation")
		for i := 0; i < skipped; i++ {
			metrics.IncInvalidSlotSkipped()
		}
	}

	metrics.IncSlotMutation(mutationKind(eventType))
	w.notify(eventType, slotID)
}

func (w *Widget) notify(eventType string, slotID int) {
	notification := ChangeNotification{
		ID:      uuid.New(),
		Date:    w.date,
		Records: cloneRecords(w.records),
	}

	w.logger.Debug().
		Str("change_id", notification.ID.String()).
		Str("event", eventType).
		Int("slot_id", slotID).
		Int("records", len(notification.Records)).
		Msg("schedule changed")

	if w.onChange != nil {
		w.onChange(notification)
	}
	metrics.IncChangeNotification()

	if w.bus != nil {
		w.bus.Publish(events.Event{ID: notification.ID, Type: eventType, Date: w.date, SlotID: slotID})
	}
}

// rebuild re-derives the view from the record list and drops every cached
// span, since slot ids are positional within the rebuilt list.
func (w *Widget) rebuild() {
	w.view = schedule.Transform(w.records, w.date)
	w.spans.Invalidate()
}

func (w *Widget) findSlot(id int) int {
	for i := range w.view.Timeslots {
		if w.view.Timeslots[i].ID == id {
			return i
		}
	}
	return -1
}

func (w *Widget) professionalExists(id int) bool {
	for _, p := range w.view.Professionals {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (w *Widget) nextSlotID() int {
	next := 1
	for _, slot := range w.view.Timeslots {
		if slot.ID >= next {
			next = slot.ID + 1
		}
	}
	return next
}

func mutationKind(eventType string) string {
	switch eventType {
	case events.TypeSlotCreated:
		return "create"
	case events.TypeSlotMoved:
		return "move"
	case events.TypeSlotResized:
		return "resize"
	case events.TypeSlotDeleted:
		return "delete"
	}
	return "unknown"
}

func cloneRecords(records []schedule.Record) []schedule.Record {
	out := make([]schedule.Record, len(records))
	for i := range records {
		out[i] = records[i].Clone()
	}
	return out
}
