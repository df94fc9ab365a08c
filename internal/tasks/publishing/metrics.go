package publishing

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type publishMetrics struct {
	success metric.Int64Counter
	failure metric.Int64Counter
	helper  *log.Helper
	enabled bool
}

const (
	metricNamePublishSuccess = "publish_fanout_success_total"
	metricNamePublishFailure = "publish_fanout_failure_total"
)

func newPublishMetrics(meter metric.Meter, helper *log.Helper) *publishMetrics {
	m := &publishMetrics{helper: helper}
	if meter == nil {
		return m
	}

	var err error
	if m.success, err = meter.Int64Counter(metricNamePublishSuccess,
		metric.WithDescription("Number of publish fan-out events handled successfully")); err != nil {
		helper.Warnf("publish metrics: register success counter: %v", err)
		return m
	}
	if m.failure, err = meter.Int64Counter(metricNamePublishFailure,
		metric.WithDescription("Number of publish fan-out events failed")); err != nil {
		helper.Warnf("publish metrics: register failure counter: %v", err)
	}
	m.enabled = true
	return m
}

func (m *publishMetrics) recordSuccess(ctx context.Context, eventType string) {
	if m == nil || !m.enabled || m.success == nil {
		return
	}
	m.success.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}

func (m *publishMetrics) recordFailure(ctx context.Context, eventType string, err error) {
	if m == nil || !m.enabled {
		return
	}
	if m.failure != nil {
		m.failure.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
	}
	if m.helper != nil {
		m.helper.WithContext(ctx).Warnw("msg", "publish fan-out failed", "event_type", eventType, "error", err)
	}
}
