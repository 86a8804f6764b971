// Package geometry maps timeslots onto grid cells and pixel coordinates.
package geometry

import (
	"math"

	"github.com/eetulauri/dash-gantt/internal/timeutil"
)

// CellSpan returns the number of grid cells a slot spans for the given cell
// duration: round(duration / cellDur), never less than 1. A 20-minute slot
// on a 5-minute grid spans exactly 4 cells.
func CellSpan(start, end string, cellDur int) int {
	if cellDur <= 0 {
		return 1
	}
	startDec, err := timeutil.ToDecimal(start)
	if err != nil {
		return 1
	}
	endDec, err := timeutil.ToDecimal(end)
	if err != nil {
		return 1
	}

	minutes := (endDec - startDec) * 60
	cells := int(math.Round(minutes / float64(cellDur)))
	if cells < 1 {
		return 1
	}
	return cells
}

type spanKey struct {
	slotID  int
	start   string
	end     string
	cellDur int
}

// SpanCache memoizes CellSpan results. It is a pure performance shortcut:
// a cached span always equals the recomputed one. Invalidation is wholesale,
// triggered by the owner whenever the timeslot list or the cell duration
// changes. Not safe for concurrent use; the grid is single-threaded.
type SpanCache struct {
	spans map[spanKey]int
}

// NewSpanCache returns an empty cache.
func NewSpanCache() *SpanCache {
	return &SpanCache{spans: make(map[spanKey]int)}
}

// Span returns the cached cell span for the slot, computing it on a miss.
func (c *SpanCache) Span(slotID int, start, end string, cellDur int) int {
	key := spanKey{slotID: slotID, start: start, end: end, cellDur: cellDur}
	if span, ok := c.spans[key]; ok {
		return span
	}
	span := CellSpan(start, end, cellDur)
	c.spans[key] = span
	return span
}

// Invalidate drops every cached entry.
func (c *SpanCache) Invalidate() {
	c.spans = make(map[spanKey]int)
}

// Len reports the number of cached entries.
func (c *SpanCache) Len() int {
	return len(c.spans)
}

// Metrics captures the grid's horizontal scale for one drag gesture:
// the table width in pixels spread over [StartHour, EndHour], with cells of
// CellDuration minutes. EndHour may be 24 to represent midnight.
type Metrics struct {
	WidthPx      float64
	StartHour    int
	EndHour      int
	CellDuration int
}

// PixelsPerHour returns the horizontal scale, or 0 when the bounds are
// degenerate.
func (m Metrics) PixelsPerHour() float64 {
	hours := m.EndHour - m.StartHour
	if hours <= 0 || m.WidthPx <= 0 {
		return 0
	}
	return m.WidthPx / float64(hours)
}

// TimeAt converts a pointer's horizontal pixel offset into a grid-snapped
// time of day. The offset is clamped to the table bounds first, so tracking
// continues sensibly while the pointer is outside the grid.
func (m Metrics) TimeAt(px float64) string {
	perHour := m.PixelsPerHour()
	if perHour == 0 {
		return timeutil.Snap(m.StartHour, 0, m.CellDuration)
	}

	px = math.Max(0, math.Min(px, m.WidthPx))
	total := float64(m.StartHour) + px/perHour

	hour := int(total)
	if hour < 0 {
		hour = 0
	}
	minute := int(math.Round((total - float64(hour)) * 60))
	return timeutil.Snap(hour, minute, m.CellDuration)
}
