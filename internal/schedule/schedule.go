// Package schedule converts between the flat booking-record representation
// and the grid view of professionals and timeslots, in both directions.
package schedule

import (
	"github.com/eetulauri/dash-gantt/internal/timeutil"
)

// DefaultProbability is assumed for records that carry no booking
// probability and for newly created slots.
const DefaultProbability = 0.5

// Professional is a row entity in the grid. Ids are positional, assigned by
// first appearance within the active date, and are not stable across date
// changes.
type Professional struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Timeslot is a time-bounded block belonging to one professional on one
// date. Source links back to the originating record, or nil for slots
// created in the grid.
type Timeslot struct {
	ID                 int     `json:"id"`
	ProfessionalID     int     `json:"professionalId"`
	Start              string  `json:"start"` // "HH:MM"
	End                string  `json:"end"`   // "HH:MM"
	Date               string  `json:"date"`  // "YYYY-MM-DD"
	DurationMinutes    int     `json:"durationMinutes"`
	BookingProbability float64 `json:"bookingProbability"`
	IsBooked           bool    `json:"isBooked"`
	Source             *Record `json:"-"`
}

// View is the derived grid state for one display date.
type View struct {
	Professionals []Professional `json:"professionals"`
	Timeslots     []Timeslot     `json:"timeslots"`
}

// Transform builds the grid view from the flat record list for one date.
// Records for other dates are excluded; missing inputs yield an empty view.
func Transform(records []Record, date string) View {
	view := View{Professionals: []Professional{}, Timeslots: []Timeslot{}}
	if len(records) == 0 || date == "" {
		return view
	}

	idByName := make(map[string]int)
	for i := range records {
		rec := &records[i]
		if rec.Date() != date {
			continue
		}

		id, ok := idByName[rec.ProfessionalName]
		if !ok {
			id = len(view.Professionals) + 1
			idByName[rec.ProfessionalName] = id
			view.Professionals = append(view.Professionals, Professional{ID: id, Name: rec.ProfessionalName})
		}

		start := rec.Time()
		end, err := timeutil.AddMinutes(start, rec.DurationMinutes)
		if err != nil {
			continue // malformed time portion; leave the record out of the view
		}

		probability := DefaultProbability
		if rec.BookingProbability != nil {
			probability = *rec.BookingProbability
		}

		view.Timeslots = append(view.Timeslots, Timeslot{
			ID:                 len(view.Timeslots) + 1,
			ProfessionalID:     id,
			Start:              start,
			End:                end,
			Date:               date,
			DurationMinutes:    rec.DurationMinutes,
			BookingProbability: probability,
			IsBooked:           rec.BookedFlag == 0,
			Source:             rec,
		})
	}
	return view
}

// Reconcile folds an edited timeslot list back into the flat record list.
//
// Records for dates other than the active one pass through untouched. For
// the active date, records are kept only while a matching slot still exists
// (pruning deletions while preserving their passthrough fields), then every
// current slot is merged in: an update when a record exists at the same
// datetime+professional key, an append otherwise. An appended record carries
// the passthrough fields of the slot's source record when it has one (a moved
// slot keeps its upstream fields at the new position); slots created in the
// grid get DefaultPassthrough values instead. Slots with invalid times or an
// unresolvable professional are silently excluded.
func Reconcile(slots []Timeslot, prior []Record, professionals []Professional, date string) []Record {
	nameByID := make(map[int]string, len(professionals))
	for _, p := range professionals {
		nameByID[p.ID] = p.Name
	}

	valid := make(map[string]struct{}, len(slots))
	for _, slot := range slots {
		name, ok := nameByID[slot.ProfessionalID]
		if !ok {
			continue
		}
		valid[slot.Date+" "+slot.Start+"_"+name] = struct{}{}
	}

	out := make([]Record, 0, len(prior))
	for i := range prior {
		rec := prior[i].Clone()
		if rec.Date() != date {
			out = append(out, rec)
			continue
		}
		if _, ok := valid[rec.Key()]; ok {
			out = append(out, rec)
		}
	}

	for _, slot := range slots {
		if !timeutil.IsValid(slot.Start) || !timeutil.IsValid(slot.End) {
			continue
		}
		name, ok := nameByID[slot.ProfessionalID]
		if !ok {
			continue
		}

		duration, err := timeutil.DurationMinutes(slot.Start, slot.End)
		if err != nil {
			continue
		}

		datetime := slot.Date + " " + slot.Start
		probability := slot.BookingProbability
		bookedFlag := 1
		if slot.IsBooked {
			bookedFlag = 0
		}

		idx := findRecord(out, datetime, name)
		if idx >= 0 {
			out[idx].Datetime = datetime
			out[idx].DurationMinutes = duration
			out[idx].BookedFlag = bookedFlag
			out[idx].BookingProbability = &probability
			continue
		}

		rec := Record{
			Datetime:           datetime,
			ProfessionalName:   name,
			DurationMinutes:    duration,
			BookedFlag:         bookedFlag,
			BookingProbability: &probability,
		}
		if slot.Source != nil {
			// The slot moved: its old record was pruned above, so carry the
			// original passthrough fields over to the new position.
			rec.Extra = slot.Source.Clone().Extra
		} else {
			rec.Extra = DefaultPassthrough()
		}
		out = append(out, rec)
	}
	return out
}

func findRecord(records []Record, datetime, name string) int {
	for i := range records {
		if records[i].Datetime == datetime && records[i].ProfessionalName == name {
			return i
		}
	}
	return -1
}
