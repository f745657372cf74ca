// Package metrics exposes Prometheus collectors for verification runs
// and an HTTP handler to serve them during long batch jobs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "smie"

var (
	// VerificationsTotal counts finished package verifications by
	// outcome: ok, diff, or error.
	VerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "verifications_total",
		Help:      "Package verifications by outcome.",
	}, []string{"status"})

	// DiffsTotal counts individual inventory differences by category.
	DiffsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "diffs_total",
		Help:      "Inventory differences by category.",
	}, []string{"category"})

	// RPCRequestsTotal counts outgoing JSON-RPC calls by method.
	RPCRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rpc_requests_total",
		Help:      "Outgoing JSON-RPC requests by method.",
	}, []string{"method"})

	// ModulesDecodedTotal counts successfully decoded bytecode modules.
	ModulesDecodedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "modules_decoded_total",
		Help:      "Bytecode modules decoded.",
	})
)
