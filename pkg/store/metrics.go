package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	opsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripsync_store_ops_total",
		Help: "Local store operations by type.",
	}, []string{"op"})

	errsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripsync_store_errors_total",
		Help: "Local store operation failures by type.",
	}, []string{"op"})

	openGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tripsync_store_open",
		Help: "Number of open store handles.",
	})
)
