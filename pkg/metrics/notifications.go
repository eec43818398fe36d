package metrics

import "github.com/prometheus/client_golang/prometheus"

// NotificationMetrics counts transactional email dispatch outcomes per type.
type NotificationMetrics struct {
	dispatched *prometheus.CounterVec
	failed     *prometheus.CounterVec
	dropped    *prometheus.CounterVec
}

func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	if reg == nil {
		return &NotificationMetrics{}
	}
	dispatched := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_dispatched_total",
		Help: "Notifications handed to the transport successfully.",
	}, []string{"type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_failed_total",
		Help: "Notifications the transport rejected.",
	}, []string{"type"})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_dropped_total",
		Help: "Notifications dropped because the queue was full or closed.",
	}, []string{"type"})
	reg.MustRegister(dispatched, failed, dropped)
	return &NotificationMetrics{
		dispatched: dispatched,
		failed:     failed,
		dropped:    dropped,
	}
}

func (n *NotificationMetrics) IncDispatched(kind string) {
	if n == nil || n.dispatched == nil {
		return
	}
	n.dispatched.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (n *NotificationMetrics) IncFailed(kind string) {
	if n == nil || n.failed == nil {
		return
	}
	n.failed.WithLabelValues(normalizeLabel(kind)).Inc()
}

func (n *NotificationMetrics) IncDropped(kind string) {
	if n == nil || n.dropped == nil {
		return
	}
	n.dropped.WithLabelValues(normalizeLabel(kind)).Inc()
}
