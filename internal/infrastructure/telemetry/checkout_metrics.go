package telemetry

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// CheckoutMetrics tracks cart mutations, checkout outcomes and the latency
// of calls to the commerce backend.
type CheckoutMetrics struct {
	logger *zap.Logger

	cartMutationsTotal  *Counter
	submissionsTotal    *Counter
	failuresTotal       *Counter
	recoveriesTotal     *Counter
	orderAmountTotal    *Counter
	remoteCallDuration  *Histogram
	streamSubscriptions *Gauge
}

// CheckoutMetricsConfig holds configuration for checkout metrics.
type CheckoutMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// Outcome labels
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeRejected = "rejected"
)

// NewCheckoutMetrics creates a new CheckoutMetrics instance.
func NewCheckoutMetrics(cfg CheckoutMetricsConfig) (*CheckoutMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cm := &CheckoutMetrics{logger: logger}

	var err error
	cm.cartMutationsTotal, err = NewCounter(cfg.Meter,
		"storefront_cart_mutations_total",
		"Total number of cart mutations sent to the commerce backend",
		"{mutations}",
	)
	if err != nil {
		return nil, err
	}

	cm.submissionsTotal, err = NewCounter(cfg.Meter,
		"storefront_checkout_submissions_total",
		"Total number of checkout submissions by payment method and outcome",
		"{submissions}",
	)
	if err != nil {
		return nil, err
	}

	cm.failuresTotal, err = NewCounter(cfg.Meter,
		"storefront_checkout_failures_total",
		"Total number of failed checkout submissions by reason",
		"{failures}",
	)
	if err != nil {
		return nil, err
	}

	cm.recoveriesTotal, err = NewCounter(cfg.Meter,
		"storefront_checkout_recoveries_total",
		"Total number of empty cart recovery attempts",
		"{recoveries}",
	)
	if err != nil {
		return nil, err
	}

	cm.orderAmountTotal, err = NewCounter(cfg.Meter,
		"storefront_order_amount_total",
		"Total confirmed order amount in minor currency units",
		"{cents}",
	)
	if err != nil {
		return nil, err
	}

	cm.remoteCallDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "storefront_commerce_request_duration_seconds",
		Description: "Duration of calls to the commerce backend",
		Unit:        "s",
		Boundaries:  RemoteCallBuckets,
	})
	if err != nil {
		return nil, err
	}

	cm.streamSubscriptions, err = NewGauge(cfg.Meter,
		"storefront_cart_stream_clients",
		"Number of connected cart count stream clients",
		"{clients}",
	)
	if err != nil {
		return nil, err
	}

	return cm, nil
}

// RecordCartMutation records a cart mutation and whether it succeeded.
func (cm *CheckoutMetrics) RecordCartMutation(ctx context.Context, operation string, err error) {
	if cm == nil {
		return
	}
	cm.cartMutationsTotal.Inc(ctx,
		AttrOperation.String(operation),
		AttrOutcome.String(outcomeOf(err)),
	)
}

// RecordSubmission records the outcome of a checkout submission.
// reason is empty on success.
func (cm *CheckoutMetrics) RecordSubmission(ctx context.Context, paymentMethod, reason string) {
	if cm == nil {
		return
	}
	outcome := OutcomeSuccess
	if reason != "" {
		outcome = OutcomeFailure
		cm.failuresTotal.Inc(ctx,
			AttrPaymentMethod.String(paymentMethod),
			AttrFailureReason.String(reason),
		)
	}
	cm.submissionsTotal.Inc(ctx,
		AttrPaymentMethod.String(paymentMethod),
		AttrOutcome.String(outcome),
	)
}

// RecordRejectedSubmission records a submission blocked before any network call.
func (cm *CheckoutMetrics) RecordRejectedSubmission(ctx context.Context, paymentMethod string) {
	if cm == nil {
		return
	}
	cm.submissionsTotal.Inc(ctx,
		AttrPaymentMethod.String(paymentMethod),
		AttrOutcome.String(OutcomeRejected),
	)
}

// RecordOrderAmount records a confirmed order total in cents.
func (cm *CheckoutMetrics) RecordOrderAmount(ctx context.Context, paymentMethod string, amount decimal.Decimal) {
	if cm == nil {
		return
	}
	cents := amount.Mul(decimal.NewFromInt(100)).IntPart()
	cm.orderAmountTotal.Add(ctx, cents, AttrPaymentMethod.String(paymentMethod))
}

// RecordRecovery records an empty cart recovery attempt.
func (cm *CheckoutMetrics) RecordRecovery(ctx context.Context, action string, err error) {
	if cm == nil {
		return
	}
	cm.recoveriesTotal.Inc(ctx,
		AttrRecovery.String(action),
		AttrOutcome.String(outcomeOf(err)),
	)
}

// RecordRemoteCall records the latency of one commerce backend call.
func (cm *CheckoutMetrics) RecordRemoteCall(ctx context.Context, operation string, status int, d time.Duration) {
	if cm == nil {
		return
	}
	cm.remoteCallDuration.RecordDuration(ctx, d,
		AttrOperation.String(operation),
		AttrHTTPStatusCode.Int(status),
	)
}

// RecordStreamClients records the current number of stream clients.
func (cm *CheckoutMetrics) RecordStreamClients(ctx context.Context, n int) {
	if cm == nil {
		return
	}
	cm.streamSubscriptions.Record(ctx, int64(n))
}

func outcomeOf(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewCheckoutMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
