package observability

import (
	"context"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// SetupTracing initializes OpenTelemetry tracing with stdout exporter (for demo; replace with OTLP in prod)
func SetupTracing(serviceName string) func() {
	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		log.Fatalf("failed to initialize stdouttrace exporter: %v", err)
	}
	res, _ := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	provider := trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return func() { _ = provider.Shutdown(context.Background()) }
}

// SetupPrometheusMetrics initializes the Prometheus metrics exporter. The
// /metrics endpoint is mounted on the main router, not a side listener.
func SetupPrometheusMetrics() *sdkmetric.MeterProvider {
	exp, err := prometheus.New()
	if err != nil {
		log.Fatalf("failed to initialize prometheus exporter: %v", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp))
	otel.SetMeterProvider(mp)
	return mp
}

// MetricsHandler exposes the Prometheus scrape endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// ChatMetrics holds the counters emitted by the chat engine.
type ChatMetrics struct {
	MessagesPosted metric.Int64Counter
	BotMatches     metric.Int64Counter
	Escalations    metric.Int64Counter
	Assignments    metric.Int64Counter
}

// NewChatMetrics registers the chat counters on the given provider.
func NewChatMetrics(mp *sdkmetric.MeterProvider) (*ChatMetrics, error) {
	meter := mp.Meter("chat")

	messages, err := meter.Int64Counter("chat_messages_posted_total",
		metric.WithDescription("Messages appended to chat rooms"))
	if err != nil {
		return nil, err
	}
	matches, err := meter.Int64Counter("chat_bot_matches_total",
		metric.WithDescription("Customer messages answered by a chatbot rule"))
	if err != nil {
		return nil, err
	}
	escalations, err := meter.Int64Counter("chat_escalations_total",
		metric.WithDescription("Rooms escalated to the human agent queue"))
	if err != nil {
		return nil, err
	}
	assignments, err := meter.Int64Counter("chat_assignments_total",
		metric.WithDescription("Rooms assigned to a human agent"))
	if err != nil {
		return nil, err
	}

	return &ChatMetrics{
		MessagesPosted: messages,
		BotMatches:     matches,
		Escalations:    escalations,
		Assignments:    assignments,
	}, nil
}
