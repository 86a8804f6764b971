package schedule

import (
	"encoding/json"
	"strings"
)

// Known record fields; everything else is carried in Extra verbatim.
const (
	fieldDatetime    = "datetime"
	fieldName        = "professionalName"
	fieldDuration    = "durationMinutes"
	fieldBookedFlag  = "bookedFlag"
	fieldProbability = "bookingProbability"
)

// Record is the flat external booking-record representation, one entry per
// timeslot. BookedFlag uses the upstream convention: 0 = booked,
// 1 = available. Fields not modelled here round-trip through Extra.
type Record struct {
	Datetime           string   // "YYYY-MM-DD HH:MM"
	ProfessionalName   string
	DurationMinutes    int
	BookedFlag         int
	BookingProbability *float64 // nil means unknown; viewed as 0.5
	Extra              map[string]any
}

// Date returns the date portion of Datetime, or "" when malformed.
func (r *Record) Date() string {
	d, _, ok := strings.Cut(r.Datetime, " ")
	if !ok {
		return ""
	}
	return d
}

// Time returns the time portion of Datetime, or "" when malformed.
func (r *Record) Time() string {
	_, t, ok := strings.Cut(r.Datetime, " ")
	if !ok {
		return ""
	}
	return t
}

// Key identifies a record by datetime and professional for reconciliation
// matching.
func (r *Record) Key() string {
	return r.Datetime + "_" + r.ProfessionalName
}

// Clone returns a copy with its own Extra map.
func (r *Record) Clone() Record {
	out := *r
	if r.BookingProbability != nil {
		p := *r.BookingProbability
		out.BookingProbability = &p
	}
	if r.Extra != nil {
		out.Extra = make(map[string]any, len(r.Extra))
		for k, v := range r.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// MarshalJSON flattens known fields and Extra into a single object.
func (r Record) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Extra)+5)
	for k, v := range r.Extra {
		m[k] = v
	}
	m[fieldDatetime] = r.Datetime
	m[fieldName] = r.ProfessionalName
	m[fieldDuration] = r.DurationMinutes
	m[fieldBookedFlag] = r.BookedFlag
	if r.BookingProbability != nil {
		m[fieldProbability] = *r.BookingProbability
	}
	return json.Marshal(m)
}

// UnmarshalJSON picks out known fields and keeps the rest in Extra.
func (r *Record) UnmarshalJSON(data []byte) error {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	if v, ok := m[fieldDatetime].(string); ok {
		r.Datetime = v
	}
	if v, ok := m[fieldName].(string); ok {
		r.ProfessionalName = v
	}
	if v, ok := m[fieldDuration].(float64); ok {
		r.DurationMinutes = int(v)
	}
	if v, ok := m[fieldBookedFlag].(float64); ok {
		r.BookedFlag = int(v)
	}
	if v, ok := m[fieldProbability].(float64); ok {
		r.BookingProbability = &v
	}

	delete(m, fieldDatetime)
	delete(m, fieldName)
	delete(m, fieldDuration)
	delete(m, fieldBookedFlag)
	delete(m, fieldProbability)
	if len(m) > 0 {
		r.Extra = m
	} else {
		r.Extra = nil
	}
	return nil
}

// DefaultPassthrough returns the fixed passthrough fields attached to
// records synthesized for slots that never existed upstream.
func DefaultPassthrough() map[string]any {
	return map[string]any{
		"appointmentType": "In-person appointment",
		"location":        "Default",
		"resource":        "Default",
		"specialty":       "Default",
	}
}
