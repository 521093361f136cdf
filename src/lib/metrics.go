package lib

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_bookings_created_total",
			Help: "Bookings persisted, by payment method",
		},
		[]string{"payment_method"},
	)

	InventoryRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_inventory_rejections_total",
			Help: "Reservations rejected for lack of stock, by tier",
		},
		[]string{"tier"},
	)

	HoldsReleased = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eventhub_holds_released_total",
			Help: "Unpaid bookings whose reservation hold expired",
		},
	)

	PaymentOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_payment_operations_total",
			Help: "Payment provider operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventhub_payment_provider_duration_seconds",
			Help:    "Latency of payment provider calls",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"operation"},
	)

	NotificationsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventhub_notifications_total",
			Help: "Notification messages by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	HTTPRequests = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventhub_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
