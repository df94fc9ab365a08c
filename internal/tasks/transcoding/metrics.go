package transcoding

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type transcodeMetrics struct {
	success metric.Int64Counter
	failure metric.Int64Counter
	lag     metric.Float64Histogram
	helper  *log.Helper
	enabled bool
}

const (
	metricNameTranscodeSuccess = "transcode_fanout_success_total"
	metricNameTranscodeFailure = "transcode_fanout_failure_total"
	metricNameTranscodeLag     = "transcode_event_lag_ms"
)

func newTranscodeMetrics(meter metric.Meter, helper *log.Helper) *transcodeMetrics {
	m := &transcodeMetrics{helper: helper}
	if meter == nil {
		return m
	}

	var err error
	if m.success, err = meter.Int64Counter(metricNameTranscodeSuccess,
		metric.WithDescription("Number of transcode fan-out events handled successfully")); err != nil {
		helper.Warnf("transcode metrics: register success counter: %v", err)
		return m
	}
	if m.failure, err = meter.Int64Counter(metricNameTranscodeFailure,
		metric.WithDescription("Number of transcode fan-out events failed")); err != nil {
		helper.Warnf("transcode metrics: register failure counter: %v", err)
	}
	if m.lag, err = meter.Float64Histogram(metricNameTranscodeLag,
		metric.WithDescription("Event lag between occurred_at and processing time"), metric.WithUnit("ms")); err != nil {
		helper.Warnf("transcode metrics: register lag histogram: %v", err)
	}
	m.enabled = true
	return m
}

func (m *transcodeMetrics) recordSuccess(ctx context.Context, eventType string, occurredAt time.Time, now time.Time) {
	if m == nil || !m.enabled {
		return
	}
	attrs := metric.WithAttributes(attribute.String("event_type", eventType))
	if m.success != nil {
		m.success.Add(ctx, 1, attrs)
	}
	if m.lag != nil && !occurredAt.IsZero() {
		lag := now.Sub(occurredAt).Milliseconds()
		if lag < 0 {
			lag = 0
		}
		m.lag.Record(ctx, float64(lag), attrs)
	}
}

func (m *transcodeMetrics) recordFailure(ctx context.Context, eventType string, err error) {
	if m == nil || !m.enabled {
		return
	}
	attrs := metric.WithAttributes(attribute.String("event_type", eventType))
	if m.failure != nil {
		m.failure.Add(ctx, 1, attrs)
	}
	if m.helper != nil {
		m.helper.WithContext(ctx).Warnw("msg", "transcode fan-out failed", "event_type", eventType, "error", err)
	}
}
