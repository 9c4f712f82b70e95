package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelscribe_requests_total",
		Help: "Total number of requests processed, by action and outcome",
	}, []string{"action", "outcome"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reelscribe_stage_duration_seconds",
		Help:    "Duration of pipeline stages",
		Buckets: []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	ReauthTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelscribe_instagram_reauth_total",
		Help: "Total number of Instagram re-authentications, by result",
	}, []string{"result"})

	UpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reelscribe_bot_updates_total",
		Help: "Total number of Telegram updates handled, by kind",
	}, []string{"kind"})

	ActiveRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reelscribe_active_requests",
		Help: "Number of requests currently running in this worker",
	})
)
