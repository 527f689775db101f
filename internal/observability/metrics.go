package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveSessions    prometheus.Gauge
	SessionEvents     *prometheus.CounterVec
	TurnEvents        *prometheus.CounterVec
	TranscriptSaves   *prometheus.CounterVec
	FeedbackRequests  *prometheus.CounterVec
	TokensIssued      prometheus.Counter
	InterviewDuration prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of live interview sessions.",
		}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session lifecycle events by type.",
		}, []string{"event"}),
		TurnEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turn_events_total",
			Help:      "Captured conversation turns by channel and outcome.",
		}, []string{"channel", "outcome"}),
		TranscriptSaves: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcript_saves_total",
			Help:      "Transcript persistence attempts by source and result.",
		}, []string{"source", "result"}),
		FeedbackRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_requests_total",
			Help:      "Feedback generation requests by result.",
		}, []string{"result"}),
		TokensIssued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Room access tokens minted.",
		}),
		InterviewDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "interview_duration_minutes",
			Help:      "Wall-clock interview length in minutes.",
			Buckets:   []float64{1, 2, 5, 10, 15, 30, 45, 60, 90},
		}),
	}
}

func (m *Metrics) ObserveInterviewDuration(d time.Duration) {
	m.InterviewDuration.Observe(d.Minutes())
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
