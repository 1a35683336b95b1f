package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	LLMRequestsTotal       metric.Int64Counter
	LLMDurationSeconds     metric.Float64Histogram
	FallbacksTotal         metric.Int64Counter
	CacheLookupsTotal      metric.Int64Counter
	SessionsCreatedTotal   metric.Int64Counter
	SessionsExpiredTotal   metric.Int64Counter
	DbQueryDurationSeconds metric.Float64Histogram
	DbQueryErrorsTotal     metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("HKTourismAI")
		var err error
		m := &AppMetrics{}

		m.LLMRequestsTotal, err = meter.Int64Counter(
			"llm_requests_total",
			metric.WithDescription("Total number of LLM provider calls by provider, operation and outcome"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create llm_requests_total: %v", err)
		}

		m.LLMDurationSeconds, err = meter.Float64Histogram(
			"llm_duration_seconds",
			metric.WithDescription("Duration of LLM provider calls in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create llm_duration_seconds: %v", err)
		}

		m.FallbacksTotal, err = meter.Int64Counter(
			"fallbacks_total",
			metric.WithDescription("Total number of degraded responses served by component"),
			metric.WithUnit("{response}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create fallbacks_total: %v", err)
		}

		m.CacheLookupsTotal, err = meter.Int64Counter(
			"cache_lookups_total",
			metric.WithDescription("Total number of cache lookups by cache and result"),
			metric.WithUnit("{lookup}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create cache_lookups_total: %v", err)
		}

		m.SessionsCreatedTotal, err = meter.Int64Counter(
			"sessions_created_total",
			metric.WithDescription("Total number of sessions created"),
			metric.WithUnit("{session}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create sessions_created_total: %v", err)
		}

		m.SessionsExpiredTotal, err = meter.Int64Counter(
			"sessions_expired_total",
			metric.WithDescription("Total number of expired sessions removed"),
			metric.WithUnit("{session}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create sessions_expired_total: %v", err)
		}

		m.DbQueryDurationSeconds, err = meter.Float64Histogram(
			"db_query_duration_seconds",
			metric.WithDescription("Duration of database queries in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_duration_seconds: %v", err)
		}

		m.DbQueryErrorsTotal, err = meter.Int64Counter(
			"db_query_errors_total",
			metric.WithDescription("Total number of database query errors"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_errors_total: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the global AppMetrics instance, creating the instruments on
// first use. Instruments created before the exporter is installed forward to
// it once otel.SetMeterProvider runs.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}
