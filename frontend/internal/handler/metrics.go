package handler

import (
	"github.com/itchan-dev/authgate/shared/middleware/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var formSubmissionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: metrics.Namespace,
		Name:      "form_submissions_total",
		Help:      "Login and signup form submissions by outcome",
	},
	[]string{"form", "outcome"},
)
