package auth

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/resumekit/resume-auth/internal/auth"

type flowMetrics struct {
	outcomes metric.Int64Counter
}

func newFlowMetrics(mp metric.MeterProvider) (*flowMetrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	outcomes, err := mp.Meter(instrumentationName).Int64Counter(
		"auth.flow.outcomes",
		metric.WithDescription("Completed auth flows by flow and outcome."),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	return &flowMetrics{outcomes: outcomes}, nil
}

func (m *flowMetrics) record(ctx context.Context, flow string, err error) {
	m.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("flow", flow),
		attribute.String("outcome", outcome(err)),
	))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrAccountNotVerified):
		return "not_verified"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrExpiredOTP):
		return "expired_otp"
	case errors.Is(err, ErrInvalidOTP):
		return "invalid_otp"
	case errors.Is(err, ErrAlreadyVerified):
		return "already_verified"
	default:
		return "internal"
	}
}
