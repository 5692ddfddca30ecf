package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for NotificationsSent.
const (
	OutcomeDelivered    = "delivered"
	OutcomeDeliveryFail = "delivery_error"
	OutcomeNetworkFail  = "network_error"
	OutcomeRateLimited  = "rate_limited"
	OutcomeInvalid      = "invalid"
)

var (
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookrelay_notifications_total",
			Help: "Total number of notifications dispatched, by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	DeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hookrelay_delivery_duration_seconds",
			Help:    "Duration of outbound webhook calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	ImageUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookrelay_image_uploads_total",
			Help: "Total number of image uploads, by uploader and result",
		},
		[]string{"uploader", "result"},
	)

	QuestionsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookrelay_questions_resolved_total",
			Help: "Total number of questions settled, by resolution",
		},
		[]string{"resolution"},
	)

	QuestionsPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hookrelay_questions_pending",
			Help: "Number of questions awaiting an answer",
		},
	)
)
