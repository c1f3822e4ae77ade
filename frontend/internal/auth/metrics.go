package auth

import (
	"github.com/itchan-dev/authgate/frontend/internal/apiclient"
	"github.com/itchan-dev/authgate/shared/middleware/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	authEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Name:      "auth_events_total",
			Help:      "Session change events emitted to visitors",
		},
		[]string{"event"},
	)

	authRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Name:      "auth_requests_total",
			Help:      "Calls to the auth service by operation and outcome",
		},
		[]string{"op", "outcome"},
	)
)

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case apiclient.IsTransient(err):
		return "unavailable"
	default:
		return "rejected"
	}
}
