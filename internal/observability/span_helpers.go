package observability

import (
	"errors"

	contextutils "mathapp/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FinishSpan ends a span and records any error pointed to by errPtr.
// Use with a named error return: `defer observability.FinishSpan(span, &err)`
//
// Application errors carry their error code as a span attribute. Expected
// outcomes (warn severity or below, such as an unknown exercise id or a
// failed login) are recorded without a stack trace.
func FinishSpan(span trace.Span, errPtr *error) {
	if span == nil {
		return
	}
	if errPtr == nil || *errPtr == nil {
		span.End()
		return
	}
	err := *errPtr

	expected := false
	var appErr *contextutils.AppError
	if errors.As(err, &appErr) {
		span.SetAttributes(attribute.String("error.code", string(appErr.Code)))
		switch appErr.Severity {
		case contextutils.SeverityDebug, contextutils.SeverityInfo, contextutils.SeverityWarn:
			expected = true
		}
	}

	if expected {
		span.RecordError(err)
	} else {
		span.RecordError(err, trace.WithStackTrace(true))
	}
	span.SetStatus(codes.Error, err.Error())
	span.End()
}
