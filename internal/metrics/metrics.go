// Package metrics exposes Prometheus counters for catalog operations.
package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OutcomeOK labels a successful operation. Failures are labelled with the error kind.
const OutcomeOK = "ok"

var catalogOperationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "catalog_operations_total",
		Help: "Total number of catalog service operations by outcome",
	},
	[]string{"operation", "outcome"},
)

func init() {
	prometheus.MustRegister(catalogOperationsTotal)
}

// RecordOperation counts one finished service operation.
func RecordOperation(operation, outcome string) {
	catalogOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// OperationCounter returns the counter for one operation and outcome.
func OperationCounter(operation, outcome string) prometheus.Counter {
	return catalogOperationsTotal.WithLabelValues(operation, outcome)
}

// Handler serves the default registry in Prometheus text format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
