package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Scheduling metrics
	AppointmentsCreated prometheus.Counter
	SlotConflicts       prometheus.Counter
	StatusTransitions   *prometheus.CounterVec
	Cancellations       *prometheus.CounterVec
	RejectedRequests    *prometheus.CounterVec

	// Notification metrics
	NotificationsSent    prometheus.Counter
	NotificationsFailed  prometheus.Counter
	NotificationsSkipped prometheus.Counter
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		AppointmentsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "appointments_created_total",
			Help:      "Total number of appointments created",
		}),
		SlotConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "slot_conflicts_total",
			Help:      "Creation attempts that lost a slot to a concurrent booking",
		}),
		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "status_transitions_total",
			Help:      "Successful appointment status transitions",
		}, []string{"from", "to", "role"}),
		Cancellations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cancellations_total",
			Help:      "Appointments cancelled, by requesting role",
		}, []string{"role"}),
		RejectedRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rejected_requests_total",
			Help:      "Scheduling requests rejected by business rules",
		}, []string{"reason"}),
		NotificationsSent: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_sent_total",
			Help:      "Cancellation notifications dispatched successfully",
		}),
		NotificationsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_failed_total",
			Help:      "Cancellation notifications whose delivery failed",
		}),
		NotificationsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_skipped_total",
			Help:      "Recipients skipped for duplicate identity or invalid contact address",
		}),
	}
}
