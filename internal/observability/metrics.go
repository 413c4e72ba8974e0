package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ContentCreated counts new designs, posts and comments.
	ContentCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vexillum_content_created_total",
		Help: "Content items created by kind",
	}, []string{"kind"})

	// ContentDeleted counts deleted designs, posts and comments.
	ContentDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vexillum_content_deleted_total",
		Help: "Content items deleted by kind",
	}, []string{"kind"})

	// RatingsSubmitted counts rating submissions by outcome (stored, ignored).
	RatingsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vexillum_ratings_submitted_total",
		Help: "Rating submissions by outcome",
	}, []string{"outcome"})

	// Conversions counts Design/Post conversions by direction and result.
	Conversions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vexillum_conversions_total",
		Help: "Content type conversions by direction and result",
	}, []string{"direction", "result"})

	// GuardDenials counts mutations refused by the ownership guard.
	GuardDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vexillum_guard_denials_total",
		Help: "Mutations refused by the ownership guard",
	}, []string{"resource"})

	// FeedConnections is the number of open live feed websockets.
	FeedConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vexillum_feed_connections",
		Help: "Open live feed websocket connections",
	})

	// FeedDrops counts feed messages dropped for slow clients.
	FeedDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vexillum_feed_dropped_messages_total",
		Help: "Live feed messages dropped because a client buffer was full",
	})
)
