package cms

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const metricNamespace = "finitefield.org/hanko-seo/internal/cms"

// Lookup outcomes recorded on the cms.page.lookups counter.
const (
	outcomeHit      = "hit"
	outcomeMiss     = "miss"
	outcomeNotFound = "not_found"
	outcomeError    = "error"
)

type storeMetrics struct {
	lookups metric.Int64Counter
	latency metric.Float64Histogram
}

func newStoreMetrics(meter metric.Meter, logger *zap.Logger) storeMetrics {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(metricNamespace)
	}
	var m storeMetrics
	lookups, err := meter.Int64Counter(
		"cms.page.lookups",
		metric.WithDescription("Page lookups by cache outcome"),
	)
	if err != nil {
		logger.Warn("cms: unable to register lookup metric", zap.Error(err))
	} else {
		m.lookups = lookups
	}
	latency, err := meter.Float64Histogram(
		"cms.page.load_latency",
		metric.WithUnit("ms"),
		metric.WithDescription("Latency in milliseconds for reading a page from disk"),
	)
	if err != nil {
		logger.Warn("cms: unable to register latency metric", zap.Error(err))
	} else {
		m.latency = latency
	}
	return m
}

func (m storeMetrics) lookup(ctx context.Context, lang, outcome string) {
	if m.lookups == nil {
		return
	}
	m.lookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("lang", lang),
		attribute.String("outcome", outcome),
	))
}

func (m storeMetrics) load(ctx context.Context, lang string, d time.Duration) {
	if m.latency == nil {
		return
	}
	m.latency.Record(ctx, float64(d)/float64(time.Millisecond), metric.WithAttributes(attribute.String("lang", lang)))
}
