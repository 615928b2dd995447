package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tradepulse_query_duration_seconds",
			Help:    "Analytical query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"operation"},
	)

	QueryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradepulse_query_total",
			Help: "Total analytical queries served",
		},
		[]string{"operation", "status"},
	)

	DatasetShipments = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tradepulse_dataset_shipments",
			Help: "Number of shipment rows in the loaded dataset",
		},
	)

	DatasetLoadSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tradepulse_dataset_load_seconds",
			Help: "Wall time of the one-time dataset load",
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradepulse_cache_hits_total",
			Help: "Total view cache hits",
		},
		[]string{"view"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradepulse_cache_misses_total",
			Help: "Total view cache misses",
		},
		[]string{"view"},
	)
)

func Init() {
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(QueryTotal)
	prometheus.MustRegister(DatasetShipments)
	prometheus.MustRegister(DatasetLoadSeconds)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
