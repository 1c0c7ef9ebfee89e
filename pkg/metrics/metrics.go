// Package metrics exposes the Prometheus metrics of the repository browser.
// All metrics are defined in their respective packages (client, cache,
// ratelimit, pagination, detail) to maintain modularity and avoid circular
// dependencies.
//
// This package provides the registry, the /metrics handler and a reference
// of all available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the browser.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler serves the registered metrics in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - repolist_requests_total{endpoint, status} (Counter): Requests by endpoint (list, detail) and HTTP status,
//     plus "cached", "blocked", "cancelled" and "network_error"
//   - repolist_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - repolist_errors_total{kind} (Counter): Errors by kind (http_status, transport, rate_limited, ...)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - repolist_ratelimit_remaining (Gauge): Requests remaining in the current window
//   - repolist_ratelimit_blocks_total (Counter): Requests not sent because the quota was exhausted
//
// Cache Metrics (pkg/cache):
//   - repolist_cache_hits_total{freshness} (Counter): Cache hits, fresh or stale
//   - repolist_cache_misses_total (Counter): Cache misses
//   - repolist_cache_not_modified_total (Counter): 304 Not Modified responses
//   - repolist_cache_errors_total{operation} (Counter): Cache operation errors
//
// State Machine Metrics (pkg/pagination, pkg/detail):
//   - repolist_page_loads_total{kind, outcome} (Counter): Page loads by kind (first, next) and outcome
//   - repolist_collection_size (Gauge): Repositories currently loaded
//   - repolist_detail_loads_total{outcome} (Counter): Star count loads by outcome
//   - repolist_detail_loads_in_flight (Gauge): Star count fetches in flight
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(repolist_cache_hits_total[5m])) /
//   (sum(rate(repolist_cache_hits_total[5m])) + sum(rate(repolist_cache_misses_total[5m])))
//
//   # Rate Limit Status
//   repolist_ratelimit_remaining < 10
//
//   # Failed Page Loads
//   rate(repolist_page_loads_total{outcome="failed"}[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(repolist_request_duration_seconds_bucket[5m]))
