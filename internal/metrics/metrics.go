package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const meterName = "github.com/ikkim/storefront-backend"

// Checkout and cart results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

type instruments struct {
	checkouts        otelmetric.Int64Counter
	checkoutDuration otelmetric.Float64Histogram
	cartChanges      otelmetric.Int64Counter
	restocks         otelmetric.Int64Counter
	restockedUnits   otelmetric.Int64Counter
	stockConflicts   otelmetric.Int64Counter
}

var (
	once sync.Once
	inst *instruments
)

// Init installs a Prometheus-backed MeterProvider as the global provider.
// It returns the /metrics handler and a shutdown func.
func Init(serviceName, serviceVersion string) (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	)

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	return promhttp.Handler(), mp.Shutdown, nil
}

// get builds the instruments on first use. The global meter delegates to
// whatever provider Init installs, even if that happens later.
func get() *instruments {
	once.Do(func() {
		meter := otel.Meter(meterName)
		i := &instruments{}
		var err error

		if i.checkouts, err = meter.Int64Counter("storefront_checkouts",
			otelmetric.WithDescription("Checkout attempts by result")); err != nil {
			logger.Error("Failed to create checkout counter", err)
		}
		if i.checkoutDuration, err = meter.Float64Histogram("storefront_checkout_duration",
			otelmetric.WithDescription("Checkout latency"), otelmetric.WithUnit("s")); err != nil {
			logger.Error("Failed to create checkout histogram", err)
		}
		if i.cartChanges, err = meter.Int64Counter("storefront_cart_line_changes",
			otelmetric.WithDescription("Cart line changes by outcome")); err != nil {
			logger.Error("Failed to create cart counter", err)
		}
		if i.restocks, err = meter.Int64Counter("storefront_restocks",
			otelmetric.WithDescription("Orders whose stock was returned, by status")); err != nil {
			logger.Error("Failed to create restock counter", err)
		}
		if i.restockedUnits, err = meter.Int64Counter("storefront_restocked_units",
			otelmetric.WithDescription("Units returned to inventory")); err != nil {
			logger.Error("Failed to create restocked units counter", err)
		}
		if i.stockConflicts, err = meter.Int64Counter("storefront_stock_conflicts",
			otelmetric.WithDescription("Optimistic version conflicts on product documents")); err != nil {
			logger.Error("Failed to create conflict counter", err)
		}
		inst = i
	})
	return inst
}

func RecordCheckout(ctx context.Context, result, reason string, elapsed time.Duration) {
	i := get()
	attrs := otelmetric.WithAttributes(
		attribute.String("result", result),
		attribute.String("reason", reason),
	)
	if i.checkouts != nil {
		i.checkouts.Add(ctx, 1, attrs)
	}
	if i.checkoutDuration != nil {
		i.checkoutDuration.Record(ctx, elapsed.Seconds(), otelmetric.WithAttributes(attribute.String("result", result)))
	}
}

func RecordCartLineChange(ctx context.Context, outcome string) {
	if c := get().cartChanges; c != nil {
		c.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("outcome", outcome)))
	}
}

func RecordRestock(ctx context.Context, status string, units int) {
	i := get()
	attrs := otelmetric.WithAttributes(attribute.String("status", status))
	if i.restocks != nil {
		i.restocks.Add(ctx, 1, attrs)
	}
	if i.restockedUnits != nil {
		i.restockedUnits.Add(ctx, int64(units), attrs)
	}
}

func RecordStockConflict(ctx context.Context, operation string) {
	if c := get().stockConflicts; c != nil {
		c.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("operation", operation)))
	}
}
