package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketchat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketchat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketchat_messages_sent_total",
			Help: "Total messages persisted",
		},
		[]string{"transport"}, // "http", "ws" or "queue"
	)

	MessagesDeduped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketchat_messages_deduped_total",
			Help: "Sends resolved to an existing row via dedupe key",
		},
	)

	DirectoryPartials = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketchat_directory_partial_total",
			Help: "Conversation directory responses missing at least one conversation",
		},
	)

	ProfileCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketchat_profile_cache_lookups_total",
			Help: "Participant profile cache lookups",
		},
		[]string{"result"}, // "hit" or "miss"
	)

	// Realtime metrics
	WSSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marketchat_ws_sessions",
			Help: "Currently attached websocket sessions",
		},
	)

	WSBroadcasts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marketchat_ws_broadcasts_total",
			Help: "Message events delivered to websocket sessions",
		},
	)
)
