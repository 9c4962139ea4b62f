package cache

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/dmitrijs2005/coursecache/internal/cache"

type metrics struct {
	hits              metric.Int64Counter
	misses            metric.Int64Counter
	regenerations     metric.Int64Counter
	racesLost         metric.Int64Counter
	generatorFailures metric.Int64Counter
	invalidations     metric.Int64Counter
	attrs             metric.MeasurementOption
}

func newMetrics(meter metric.Meter, namespace string) *metrics {
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter("coursecache.cache."+name, metric.WithDescription(desc))
		if err != nil {
			return noop.Int64Counter{}
		}
		return c
	}
	return &metrics{
		hits:              counter("hits", "Reads served from a live entry"),
		misses:            counter("misses", "Reads that required regeneration"),
		regenerations:     counter("regenerations", "Generator invocations"),
		racesLost:         counter("races_lost", "Commits rejected because a newer entry was stored"),
		generatorFailures: counter("generator_failures", "Generator invocations that returned an error"),
		invalidations:     counter("invalidations", "Invalidations applied to the backend"),
		attrs:             metric.WithAttributes(attribute.String("namespace", namespace)),
	}
}

func (m *metrics) add(ctx context.Context, c metric.Int64Counter) {
	c.Add(ctx, 1, m.attrs)
}
