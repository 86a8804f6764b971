// Package predict estimates booking probabilities for open timeslots.
package predict

import (
	"math/rand"
	"strconv"
	"strings"

	"github.com/eetulauri/dash-gantt/internal/schedule"
)

const baseProbability = 0.5

// Model is a heuristic stand-in for a trained booking predictor. Morning
// slots book better than afternoon ones, busy professionals book better
// than quiet ones, and a small noise term keeps repeated runs from being
// identical. A nil noise source makes the model deterministic.
type Model struct {
	rng *rand.Rand
}

// New builds a model. Pass a nil source for deterministic output.
func New(rng *rand.Rand) *Model {
	return &Model{rng: rng}
}

// Score fills in BookingProbability for every timeslot in the view,
// returning the scored copy. Booked slots are scored like open ones so the
// grid can still shade them.
func (m *Model) Score(view schedule.View) []schedule.Timeslot {
	counts := make(map[int]int, len(view.Professionals))
	maxCount := 0
	for _, slot := range view.Timeslots {
		counts[slot.ProfessionalID]++
		if counts[slot.ProfessionalID] > maxCount {
			maxCount = counts[slot.ProfessionalID]
		}
	}

	scored := make([]schedule.Timeslot, len(view.Timeslots))
	for i, slot := range view.Timeslots {
		p := baseProbability + timeFactor(slot.Start) + popularityFactor(counts[slot.ProfessionalID], maxCount)
		if m.rng != nil {
			p += m.rng.NormFloat64() * 0.1
		}
		slot.BookingProbability = clamp(p)
		scored[i] = slot
	}
	return scored
}

// timeFactor rewards morning slots and penalizes the afternoon.
func timeFactor(start string) float64 {
	h, _, ok := strings.Cut(start, ":")
	if !ok {
		return 0
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return 0
	}
	if hour < 12 {
		return 0.2
	}
	return -0.1
}

// popularityFactor scales with the professional's share of the day's slots,
// up to 0.2 for the busiest professional.
func popularityFactor(count, maxCount int) float64 {
	if maxCount == 0 {
		return 0
	}
	return 0.2 * float64(count) / float64(maxCount)
}

func clamp(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
