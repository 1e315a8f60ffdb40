package handlers

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/DiscordHubDev/DiscordHub-sub000/pkg/monitoring"
)

type EndorsementMetrics struct {
	Requests       *prometheus.CounterVec
	CommitDuration *prometheus.HistogramVec
	PinsExpired    *prometheus.CounterVec
}

func NewEndorsementMetrics(mc *monitoring.MetricsCollector) *EndorsementMetrics {
	return &EndorsementMetrics{
		Requests: mc.NewCounter("endorsement_requests_total",
			"Endorse and pin attempts by outcome", []string{"action", "outcome"}),
		CommitDuration: mc.NewHistogram("endorsement_commit_duration_seconds",
			"Time spent in the cooldown transaction for committed actions", []string{"action"}, nil),
		PinsExpired: mc.NewCounter("endorsement_pins_expired_total",
			"Pins cleared by the sweeper", []string{}),
	}
}

func (m *EndorsementMetrics) IncRequest(action, outcome string) {
	if m == nil || m.Requests == nil {
		return
	}

	m.Requests.WithLabelValues(action, outcome).Inc()
}

func (m *EndorsementMetrics) ObserveCommit(action string, elapsed time.Duration) {
	if m == nil || m.CommitDuration == nil {
		return
	}

	m.CommitDuration.WithLabelValues(action).Observe(elapsed.Seconds())
}

func (m *EndorsementMetrics) AddExpiredPins(n int64) {
	if m == nil || m.PinsExpired == nil || n <= 0 {
		return
	}

	m.PinsExpired.WithLabelValues().Add(float64(n))
}
