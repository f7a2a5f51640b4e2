package billing

import (
	"context"
	"fmt"

	"github.com/fablab/backend/internal/domain/billing"
	"github.com/fablab/backend/internal/domain/shared"
	"github.com/fablab/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentService advances payment schedule deadlines: by re-querying the
// gateway for card payments, or manually for physical instruments
type PaymentService struct {
	scheduleRepo billing.PaymentScheduleRepository
	invoiceRepo  billing.InvoiceRepository
	gateway      billing.PaymentGateway
	discount     *billing.DiscountService
	eventBus     shared.EventBus
	logger       *zap.Logger
}

// PaymentServiceConfig contains the dependencies of PaymentService
type PaymentServiceConfig struct {
	ScheduleRepo billing.PaymentScheduleRepository
	InvoiceRepo  billing.InvoiceRepository
	Gateway      billing.PaymentGateway
	EventBus     shared.EventBus
	Logger       *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(cfg PaymentServiceConfig) *PaymentService {
	return &PaymentService{
		scheduleRepo: cfg.ScheduleRepo,
		invoiceRepo:  cfg.InvoiceRepo,
		gateway:      cfg.Gateway,
		discount:     billing.NewDiscountService(),
		eventBus:     cfg.EventBus,
		logger:       cfg.Logger,
	}
}

// ConfirmResult describes the deadline after a confirmation attempt
type ConfirmResult struct {
	ItemID       uuid.UUID             `json:"item_id"`
	State        billing.DeadlineState `json:"state"`
	ClientSecret string                `json:"client_secret,omitempty"`
	InvoiceID    *uuid.UUID            `json:"invoice_id,omitempty"`
}

// ConfirmPayment re-queries the gateway for the payment intent backing a
// deadline and advances the state machine accordingly. The gateway status
// is authoritative; the stored client secret is only a replay handle.
func (s *PaymentService) ConfirmPayment(ctx context.Context, itemID uuid.UUID, paymentIntentID string) (*ConfirmResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "confirm_payment")
	defer span.End()

	schedule, item, err := s.loadDeadline(ctx, itemID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	intent, err := s.gateway.GetPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	switch intent.Status {
	case billing.PaymentIntentSucceeded:
		invoice, err := s.settleDeadline(ctx, schedule, item, billing.PaymentMethodCard, intent.PaymentIntentID)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		invoiceID := invoice.ID
		return &ConfirmResult{ItemID: item.ID, State: item.State, InvoiceID: &invoiceID}, nil

	case billing.PaymentIntentRequiresAction:
		if err := schedule.MarkItemRequiresAction(item.ID, intent.ClientSecret); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if err := s.scheduleRepo.SaveWithLock(ctx, schedule); err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to save schedule: %w", err)
		}
		return &ConfirmResult{ItemID: item.ID, State: item.State, ClientSecret: intent.ClientSecret}, nil

	case billing.PaymentIntentRequiresPaymentMethod:
		if err := schedule.MarkItemRequiresPaymentMethod(item.ID); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if err := s.scheduleRepo.SaveWithLock(ctx, schedule); err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to save schedule: %w", err)
		}
		return &ConfirmResult{ItemID: item.ID, State: item.State}, nil

	default:
		// processing and other transient statuses leave the deadline as is
		return &ConfirmResult{ItemID: item.ID, State: item.State}, nil
	}
}

// CashCheck settles a deadline manually with a physical instrument,
// bypassing the gateway entirely
func (s *PaymentService) CashCheck(ctx context.Context, itemID uuid.UUID, method billing.PaymentMethod) (*ConfirmResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "cash_check")
	defer span.End()

	if !method.IsPhysical() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD",
			"Manual settlement requires a physical payment method, got: "+method.String())
	}

	schedule, item, err := s.loadDeadline(ctx, itemID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if item.State != billing.DeadlineStatePending {
		return nil, shared.NewDomainError("INVALID_STATE",
			"Only pending deadlines can be settled manually, deadline is "+item.State.String())
	}

	invoice, err := s.settleDeadline(ctx, schedule, item, method, "")
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	invoiceID := invoice.ID
	return &ConfirmResult{ItemID: item.ID, State: item.State, InvoiceID: &invoiceID}, nil
}

// SettleDeadlineBySubscription settles the earliest unpaid deadline of the
// schedule bound to a gateway subscription. Used by the webhook intake when
// the gateway reports a paid subscription invoice.
func (s *PaymentService) SettleDeadlineBySubscription(ctx context.Context, subscriptionID, gatewayPaymentID string) (*billing.Invoice, error) {
	schedule, err := s.scheduleRepo.FindByGatewaySubscriptionID(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, shared.ErrNotFound
	}
	item := nextUnpaidItem(schedule)
	if item == nil {
		return nil, shared.NewDomainError("NO_PENDING_DEADLINE", "Every deadline of the schedule is already paid")
	}
	return s.settleDeadline(ctx, schedule, item, billing.PaymentMethodCard, gatewayPaymentID)
}

// FlagDeadlineBySubscription marks the earliest pending deadline of the
// schedule bound to a gateway subscription as requiring a new payment
// method. Used by the webhook intake on failed subscription invoices.
func (s *PaymentService) FlagDeadlineBySubscription(ctx context.Context, subscriptionID string) error {
	schedule, err := s.scheduleRepo.FindByGatewaySubscriptionID(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if schedule == nil {
		return shared.ErrNotFound
	}
	item := nextUnpaidItem(schedule)
	if item == nil {
		return shared.NewDomainError("NO_PENDING_DEADLINE", "Every deadline of the schedule is already paid")
	}
	if err := schedule.MarkItemRequiresPaymentMethod(item.ID); err != nil {
		return err
	}
	return s.scheduleRepo.SaveWithLock(ctx, schedule)
}

// ReinstateDeadlineBySubscription returns deadlines flagged as needing a new
// payment instrument to pending, after the gateway reports a usable default
// payment method on the subscription again.
func (s *PaymentService) ReinstateDeadlineBySubscription(ctx context.Context, subscriptionID string) error {
	schedule, err := s.scheduleRepo.FindByGatewaySubscriptionID(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if schedule == nil {
		return shared.ErrNotFound
	}
	reinstated := false
	for idx := range schedule.Items {
		item := &schedule.Items[idx]
		if item.State != billing.DeadlineStateRequirePaymentMethod {
			continue
		}
		if err := schedule.ReturnItemToPending(item.ID); err != nil {
			return err
		}
		reinstated = true
	}
	if !reinstated {
		return nil
	}
	return s.scheduleRepo.SaveWithLock(ctx, schedule)
}

// settleDeadline generates the invoice for a deadline, marks it paid and
// saves both aggregates. The invoice carries no coupon: the schedule total
// was discounted when the schedule was built.
func (s *PaymentService) settleDeadline(
	ctx context.Context,
	schedule *billing.PaymentSchedule,
	item *billing.PaymentScheduleItem,
	method billing.PaymentMethod,
	gatewayPaymentID string,
) (*billing.Invoice, error) {
	invoice, err := billing.NewInvoice(schedule.CustomerID, schedule.CustomerID, method)
	if err != nil {
		return nil, err
	}
	description := fmt.Sprintf("%s installment, due %s", schedule.Reference, item.DueDate.Format(invoiceDateLayout))
	if _, err := invoice.AddItem(item.Amount, description, nil); err != nil {
		return nil, err
	}
	if err := invoice.SetTotalAndCoupon(nil, s.discount); err != nil {
		return nil, err
	}

	issued, err := s.invoiceRepo.CountIssuedOn(ctx, invoice.IssuedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate invoice reference: %w", err)
	}
	invoice.Reference = billing.FormatInvoiceReference(invoice.IssuedAt, issued+1)

	if gatewayPaymentID != "" {
		if err := invoice.AttachGatewayPayment(gatewayPaymentID); err != nil {
			return nil, err
		}
	}
	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	if err := schedule.MarkItemPaid(item.ID, method, invoice.ID); err != nil {
		return nil, err
	}
	if err := s.scheduleRepo.SaveWithLock(ctx, schedule); err != nil {
		return nil, fmt.Errorf("failed to save schedule: %w", err)
	}

	s.publishEvents(ctx, invoice.GetDomainEvents())
	s.publishEvents(ctx, schedule.GetDomainEvents())
	invoice.ClearDomainEvents()
	schedule.ClearDomainEvents()

	s.logger.Info("Deadline settled",
		zap.String("schedule", schedule.Reference),
		zap.String("invoice", invoice.Reference),
		zap.String("method", method.String()))
	return invoice, nil
}

func (s *PaymentService) loadDeadline(ctx context.Context, itemID uuid.UUID) (*billing.PaymentSchedule, *billing.PaymentScheduleItem, error) {
	schedule, err := s.scheduleRepo.FindByItemID(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}
	if schedule == nil {
		return nil, nil, shared.ErrNotFound
	}
	item := schedule.Item(itemID)
	if item == nil {
		return nil, nil, shared.ErrNotFound
	}
	if item.State == billing.DeadlineStatePaid {
		return nil, nil, shared.NewDomainError("ALREADY_PAID", "Deadline is already paid")
	}
	return schedule, item, nil
}

func (s *PaymentService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.eventBus == nil || len(events) == 0 {
		return
	}
	if err := s.eventBus.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish payment events", zap.Error(err))
	}
}

// nextUnpaidItem returns the earliest deadline, by due date, that is not paid
func nextUnpaidItem(schedule *billing.PaymentSchedule) *billing.PaymentScheduleItem {
	var next *billing.PaymentScheduleItem
	for idx := range schedule.Items {
		item := &schedule.Items[idx]
		if item.State == billing.DeadlineStatePaid {
			continue
		}
		if next == nil || item.DueDate.Before(next.DueDate) {
			next = item
		}
	}
	return next
}
