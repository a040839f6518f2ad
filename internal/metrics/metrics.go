package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationsTotal counts workflow operations by action and outcome
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "requests",
			Name:      "operations_total",
			Help:      "Workflow operations processed, by action and outcome.",
		},
		[]string{"action", "outcome"},
	)

	// SchedulingConflictsTotal counts approvals refused for a double-booked technician
	SchedulingConflictsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "requests",
			Name:      "scheduling_conflicts_total",
			Help:      "Approval attempts refused because the technician was already booked.",
		},
	)

	// NotificationsDispatchedTotal counts notification records written, by type
	NotificationsDispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "requests",
			Name:      "notifications_dispatched_total",
			Help:      "Notification records written, by notification type.",
		},
		[]string{"type"},
	)

	// PendingRemindersTotal counts reminders sent by the background job
	PendingRemindersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "requests",
			Name:      "pending_reminders_total",
			Help:      "Reminders sent for requests left pending past the threshold.",
		},
	)
)

// RecordOperation increments the operation counter with a success/failure outcome
func RecordOperation(action string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	OperationsTotal.WithLabelValues(action, outcome).Inc()
}
