package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Load kinds used as metric labels and log fields.
const (
	kindFirst = "first"
	kindNext  = "next"
)

var (
	// PageLoads counts page loads by kind (first, next) and outcome.
	PageLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repolist_page_loads_total",
		Help: "Total page loads by kind and outcome",
	}, []string{"kind", "outcome"})

	// CollectionSize is the number of repositories currently loaded.
	CollectionSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "repolist_collection_size",
		Help: "Number of repositories in the loaded collection",
	})
)
