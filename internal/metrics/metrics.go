// Package metrics exposes Prometheus counters for schedule activity.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	slotMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dash_gantt",
			Name:      "slot_mutations_total",
			Help:      "Count of committed slot mutations by kind.",
		},
		[]string{"kind"},
	)

	gesturesDiscarded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dash_gantt",
			Name:      "gestures_discarded_total",
			Help:      "Count of gestures that ended without a commit.",
		},
	)

	changeNotifications = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dash_gantt",
			Name:      "change_notifications_total",
			Help:      "Count of change notifications emitted to the host.",
		},
	)

	invalidSlotsSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dash_gantt",
			Name:      "invalid_slots_skipped_total",
			Help:      "Count of timeslots skipped during reconciliation.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(slotMutations, gesturesDiscarded, changeNotifications, invalidSlotsSkipped)
	})
}

func IncSlotMutation(kind string) {
	slotMutations.WithLabelValues(kind).Inc()
}

func IncGestureDiscarded() {
	gesturesDiscarded.Inc()
}

func IncChangeNotification() {
	changeNotifications.Inc()
}

func IncInvalidSlotSkipped() {
	invalidSlotsSkipped.Inc()
}
