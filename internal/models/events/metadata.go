package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// BuildAttributes 构造符合 Pub/Sub 约定的 message attributes。
func (e *Envelope) BuildAttributes(schemaVersion string, traceID string) map[string]string {
	if schemaVersion == "" {
		schemaVersion = SchemaVersionV1
	}
	attrs := map[string]string{
		"event_id":       e.EventID.String(),
		"event_type":     e.EventType,
		"aggregate_id":   e.AggregateID.String(),
		"aggregate_type": e.AggregateType,
		"occurred_at":    e.OccurredAt.UTC().Format(time.RFC3339),
		"schema_version": schemaVersion,
	}
	if traceID != "" {
		attrs["trace_id"] = traceID
	}
	return attrs
}

// Encode 序列化事件载荷与 attributes，供 outbox.payload / outbox.headers 字段使用。
func (e *Envelope) Encode(ctx context.Context) (payload []byte, headers []byte, err error) {
	if e == nil || e.Payload == nil {
		return nil, nil, ErrNilPayload
	}
	payload, err = json.Marshal(e.Payload)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal event payload: %w", err)
	}
	headers, err = json.Marshal(e.BuildAttributes(SchemaVersionV1, TraceIDFromContext(ctx)))
	if err != nil {
		return nil, nil, fmt.Errorf("marshal event headers: %w", err)
	}
	return payload, headers, nil
}

// TraceIDFromContext 提取 OTel Trace ID，若不存在返回空字符串。
func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() || !spanCtx.HasTraceID() {
		return ""
	}
	return spanCtx.TraceID().String()
}
