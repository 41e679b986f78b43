package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	persistWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "persist_writes_total",
			Help:      "Slot snapshots written to the backing store",
		},
		[]string{"slot"},
	)

	persistFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "persist_failures_total",
			Help:      "Slot snapshots that could not be written; state stays in memory",
		},
		[]string{"slot"},
	)

	loadFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "load_fallbacks_total",
			Help:      "Slots initialized empty because stored data was unreadable",
		},
		[]string{"slot"},
	)
)
