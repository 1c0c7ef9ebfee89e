package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits counts lookups by result: "fresh" (served without a request)
	// or "stale" (revalidation needed).
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repolist_cache_hits_total",
			Help: "Total number of HTTP cache hits by freshness",
		},
		[]string{"freshness"},
	)

	// CacheMisses tracks cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "repolist_cache_misses_total",
			Help: "Total number of HTTP cache misses",
		},
	)

	// NotModifiedResponses tracks 304 answers to conditional requests.
	NotModifiedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "repolist_cache_not_modified_total",
			Help: "Total number of 304 Not Modified responses",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repolist_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
