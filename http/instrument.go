package http

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/freekieb7/corehttp/http"

type dropReason string

const (
	dropReasonParse   dropReason = "parse"
	dropReasonHandler dropReason = "handler"
	dropReasonWrite   dropReason = "write"
)

type instruments struct {
	requests metric.Int64Counter
	dropped  metric.Int64Counter
	duration metric.Float64Histogram
}

func newInstruments(meter metric.Meter) (instruments, error) {
	var (
		inst instruments
		err  error
	)

	inst.requests, err = meter.Int64Counter("http.server.requests",
		metric.WithDescription("Responses written, by method and status"),
		metric.WithUnit("{request}"))
	if err != nil {
		return inst, err
	}

	inst.dropped, err = meter.Int64Counter("http.server.dropped",
		metric.WithDescription("Connections closed without a complete response"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return inst, err
	}

	inst.duration, err = meter.Float64Histogram("http.server.duration",
		metric.WithDescription("Time from accept hand-off to response written"),
		metric.WithUnit("ms"))
	if err != nil {
		return inst, err
	}

	return inst, nil
}

func (inst instruments) recordResponse(ctx context.Context, req *Request, res *Response, start time.Time) {
	attrs := metric.WithAttributes(
		attribute.String("http.request.method", req.Method.String()),
		attribute.Int("http.response.status_code", res.Status.Code()),
	)
	inst.requests.Add(ctx, 1, attrs)
	inst.duration.Record(ctx, float64(time.Since(start))/float64(time.Millisecond), attrs)
}

func (inst instruments) recordDrop(ctx context.Context, span trace.Span, reason dropReason, err error) {
	inst.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", string(reason))))
	span.RecordError(err)
	span.SetStatus(codes.Error, string(reason))
}
