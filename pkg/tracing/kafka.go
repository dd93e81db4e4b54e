package tracing

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// InjectKafkaHeaders returns headers with the trace context of ctx added.
// Headers already present under a propagation key are replaced.
func InjectKafkaHeaders(ctx context.Context, headers []kafka.Header) []kafka.Header {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	if len(carrier) == 0 {
		return headers
	}

	out := make([]kafka.Header, 0, len(headers)+len(carrier))
	for _, h := range headers {
		if _, replaced := carrier[h.Key]; !replaced {
			out = append(out, h)
		}
	}
	for k, v := range carrier {
		out = append(out, kafka.Header{Key: k, Value: []byte(v)})
	}
	return out
}

// StartConsumerSpan continues the trace carried by a consumed message.
func StartConsumerSpan(ctx context.Context, name string, headers []kafka.Header) (context.Context, trace.Span) {
	carrier := make(propagation.MapCarrier, len(headers))
	for _, h := range headers {
		carrier[h.Key] = string(h.Value)
	}
	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)
	return StartSpan(ctx, name, trace.WithSpanKind(trace.SpanKindConsumer))
}
