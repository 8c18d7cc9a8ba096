package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_server_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_server_requests_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status_code"},
	)

	// Inference calls: model server and chat completion
	inferenceCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "inference_call_duration_seconds",
			Help:    "Inference backend call duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
		},
		[]string{"backend", "operation", "status"},
	)

	predictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readability_predictions_total",
			Help: "Total number of readability predictions by label",
		},
		[]string{"label"},
	)

	simplificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simplifications_total",
			Help: "Total number of simplifications by method",
		},
		[]string{"method", "status"},
	)

	// Document store metrics
	storeOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operations_total",
			Help: "Total number of document store operations",
		},
		[]string{"backend", "operation", "status"},
	)

	storeOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Document store operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		},
		[]string{"backend", "operation"},
	)

	// Rate limiting metrics
	rateLimitDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_dropped_total",
			Help: "Total number of requests dropped due to rate limiting",
		},
		[]string{"key_type"}, // user or ip
	)

	// Idempotency metrics
	idempotencyHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "idempotency_hits_total",
			Help: "Total number of idempotency hits",
		},
		[]string{"type"}, // hit or miss
	)

	// Redis metrics
	redisOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_operations_total",
			Help: "Total number of Redis operations",
		},
		[]string{"operation", "status"},
	)
)

// Init registers the collectors with the default registry. Call once.
func Init() error {
	return Register(prometheus.DefaultRegisterer)
}

// Register registers the collectors with reg.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		httpRequestsTotal,
		httpRequestDuration,
		inferenceCallDuration,
		predictionsTotal,
		simplificationsTotal,
		storeOperationsTotal,
		storeOperationDuration,
		rateLimitDroppedTotal,
		idempotencyHitsTotal,
		redisOperationsTotal,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// HTTPMetricsMiddleware records HTTP metrics. Errors are rendered here so the
// recorded status matches the response.
func HTTPMetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()
		if err != nil {
			if handlerErr := c.App().ErrorHandler(c, err); handlerErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
			err = nil
		}

		duration := time.Since(start).Seconds()
		method := c.Method()
		route := c.Route().Path
		if route == "" {
			route = c.Path()
		}
		statusCode := strconv.Itoa(c.Response().StatusCode())

		httpRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
		httpRequestDuration.WithLabelValues(method, route, statusCode).Observe(duration)

		return err
	}
}

// RecordInferenceCall records a call to the model server or chat completion API
func RecordInferenceCall(backend, operation string, err error, duration time.Duration) {
	inferenceCallDuration.WithLabelValues(backend, operation, statusOf(err)).Observe(duration.Seconds())
}

// RecordPrediction counts a classification result
func RecordPrediction(label string) {
	predictionsTotal.WithLabelValues(label).Inc()
}

// RecordSimplification counts a simplification attempt
func RecordSimplification(method string, err error) {
	simplificationsTotal.WithLabelValues(method, statusOf(err)).Inc()
}

// RecordStoreOperation records a document store operation
func RecordStoreOperation(backend, operation string, err error, duration time.Duration) {
	storeOperationsTotal.WithLabelValues(backend, operation, statusOf(err)).Inc()
	storeOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// RecordRateLimitDrop records rate limit drops
func RecordRateLimitDrop(keyType string) {
	rateLimitDroppedTotal.WithLabelValues(keyType).Inc()
}

// RecordIdempotencyHit records idempotency cache hits/misses
func RecordIdempotencyHit(hitType string) {
	idempotencyHitsTotal.WithLabelValues(hitType).Inc()
}

// RecordRedisOperation records Redis operations
func RecordRedisOperation(operation string, err error) {
	redisOperationsTotal.WithLabelValues(operation, statusOf(err)).Inc()
}

// PrometheusHandler returns the Prometheus metrics handler
func PrometheusHandler() fiber.Handler {
	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	}
}

func statusOf(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
