package usecase

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kirillkom/document-requests/internal/core/domain"
)

var tracer = otel.Tracer("github.com/kirillkom/document-requests/internal/core/usecase")

func startSpan(ctx context.Context, name string, caller domain.Identity, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("caller.id", caller.ID),
		attribute.String("caller.role", string(caller.Role)),
	)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, domain.KindOf(err))
	}
	span.End()
}
