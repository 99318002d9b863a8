package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BookingsCreated counts successfully created appointments.
	BookingsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medbook_bookings_created_total",
		Help: "Number of appointments created",
	})

	// BookingConflicts counts bookings rejected by the slot conflict check.
	BookingConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medbook_booking_conflicts_total",
		Help: "Number of bookings rejected because the slot was taken",
	})

	// NotificationsDispatched counts notification rows created by the dispatcher.
	NotificationsDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medbook_notifications_dispatched_total",
		Help: "Number of notification rows created",
	})

	// PermissionCacheHits counts effective-permission-set cache hits.
	PermissionCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medbook_permission_cache_hits_total",
		Help: "Number of permission resolutions served from cache",
	})
)
