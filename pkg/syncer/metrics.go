package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	passesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripsync_sync_passes_total",
		Help: "Reconciliation passes by overall result.",
	}, []string{"result"})

	itemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripsync_sync_items_total",
		Help: "Per-kind sync outcomes across passes.",
	}, []string{"kind", "status"})
)
