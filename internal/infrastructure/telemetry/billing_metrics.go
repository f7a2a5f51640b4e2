package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fablab/backend/internal/domain/billing"
	"github.com/fablab/backend/internal/domain/shared"
)

// BillingMetrics tracks invoice and payment activity. It subscribes to the
// domain event bus so the application services stay free of metric calls.
type BillingMetrics struct {
	logger *zap.Logger

	invoiceGeneratedTotal *Counter
	invoiceAmountTotal    *Counter
	deadlinePaidTotal     *Counter
	deadlineAmountTotal   *Counter
	scheduleSyncedTotal   *Counter
}

// NewBillingMetrics creates billing counters on the given meter
func NewBillingMetrics(meter metric.Meter, logger *zap.Logger) (*BillingMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BillingMetrics{logger: logger}

	var err error
	bm.invoiceGeneratedTotal, err = NewCounter(meter,
		"fablab_invoice_generated_total",
		"Total number of invoices generated",
		"{invoices}")
	if err != nil {
		return nil, err
	}

	bm.invoiceAmountTotal, err = NewCounter(meter,
		"fablab_invoice_amount_total",
		"Total invoiced amount in cents",
		"{cents}")
	if err != nil {
		return nil, err
	}

	bm.deadlinePaidTotal, err = NewCounter(meter,
		"fablab_deadline_paid_total",
		"Total number of schedule deadlines settled",
		"{deadlines}")
	if err != nil {
		return nil, err
	}

	bm.deadlineAmountTotal, err = NewCounter(meter,
		"fablab_deadline_amount_total",
		"Total settled deadline amount in cents",
		"{cents}")
	if err != nil {
		return nil, err
	}

	bm.scheduleSyncedTotal, err = NewCounter(meter,
		"fablab_schedule_synced_total",
		"Total number of schedules synchronized with the gateway",
		"{schedules}")
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// EventTypes returns the event types this handler subscribes to
func (bm *BillingMetrics) EventTypes() []string {
	return []string{
		billing.EventTypeInvoiceGenerated,
		billing.EventTypePaymentScheduleItemPaid,
		billing.EventTypePaymentScheduleSynced,
	}
}

// Handle records billing activity from domain events
func (bm *BillingMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *billing.InvoiceGeneratedEvent:
		bm.invoiceGeneratedTotal.Inc(ctx)
		bm.invoiceAmountTotal.Add(ctx, e.TotalCents)
	case *billing.PaymentScheduleItemPaidEvent:
		attr := AttrPaymentMethod.String(e.PaymentMethod.String())
		bm.deadlinePaidTotal.Inc(ctx, attr)
		bm.deadlineAmountTotal.Add(ctx, e.AmountCents, attr)
	case *billing.PaymentScheduleSyncedEvent:
		bm.scheduleSyncedTotal.Inc(ctx)
	default:
		bm.logger.Debug("unhandled event type for billing metrics",
			zap.String("event_type", event.EventType()))
	}
	return nil
}

var _ shared.EventHandler = (*BillingMetrics)(nil)
