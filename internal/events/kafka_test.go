package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestKafkaPublisherPublish(t *testing.T) {
	otel.SetTracerProvider(sdktrace.NewTracerProvider())
	otel.SetTextMapPropagator(propagation.TraceContext{})

	writer := &recordingWriter{}
	p := &KafkaPublisher{writer: writer, topic: "order-events"}

	orderID := uuid.New()
	event := OrderEvent{
		Type:       TypeOrderPlaced,
		OrderID:    orderID,
		Status:     "Order Placed",
		OccurredAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := p.Publish(context.Background(), orderID.String(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(writer.msgs) != 1 {
		t.Fatalf("messages = %d", len(writer.msgs))
	}
	msg := writer.msgs[0]
	if string(msg.Key) != orderID.String() {
		t.Fatalf("key = %q", msg.Key)
	}
	var got OrderEvent
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Type != TypeOrderPlaced || got.OrderID != orderID {
		t.Fatalf("unexpected event: %+v", got)
	}
	if headerValue(msg.Headers, "traceparent") == "" {
		t.Fatalf("expected traceparent header, got %v", msg.Headers)
	}
}

func TestKafkaPublisherWriteError(t *testing.T) {
	writer := &recordingWriter{err: errors.New("broker down")}
	p := &KafkaPublisher{writer: writer, topic: "order-events"}
	if err := p.Publish(context.Background(), "k", OrderEvent{}); err == nil {
		t.Fatalf("expected error")
	}
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestTraceHeadersSorted(t *testing.T) {
	otel.SetTracerProvider(sdktrace.NewTracerProvider())
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	member, _ := baggage.NewMember("user_id", "42")
	bag, _ := baggage.New(member)
	ctx := baggage.ContextWithBaggage(context.Background(), bag)
	ctx, span := otel.Tracer("test").Start(ctx, "publish")
	defer span.End()

	headers := traceHeaders(ctx)
	if len(headers) != 2 || headers[0].Key != "baggage" || headers[1].Key != "traceparent" {
		t.Fatalf("headers = %v", headers)
	}
	if headerValue(headers, "baggage") != "user_id=42" {
		t.Fatalf("baggage = %q", headerValue(headers, "baggage"))
	}

	if got := traceHeaders(context.Background()); len(got) != 0 {
		t.Fatalf("no span should mean no headers, got %v", got)
	}
}
