package billing

import (
	"context"
	"fmt"

	"github.com/fablab/backend/internal/domain/billing"
	"github.com/fablab/backend/internal/domain/member"
	"github.com/fablab/backend/internal/domain/shared"
	"github.com/fablab/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	invoiceDateLayout = "January 2, 2006"
	invoiceTimeLayout = "15:04"
)

// PaymentContext carries how an invoice is going to be settled.
// A nil Method means "resolve from who is operating": privileged operators
// invoicing someone else leave the method open until charge time.
type PaymentContext struct {
	Method *billing.PaymentMethod
}

// InvoiceService turns priced purchases into invoices
type InvoiceService struct {
	invoiceRepo billing.InvoiceRepository
	discount    *billing.DiscountService
	eventBus    shared.EventBus
	logger      *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo billing.InvoiceRepository,
	eventBus shared.EventBus,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo: invoiceRepo,
		discount:    billing.NewDiscountService(),
		eventBus:    eventBus,
		logger:      logger,
	}
}

// Build assembles the in-memory invoice for a priced purchase. It has no
// persistence side effects; Generate wraps it with reference allocation
// and the repository save.
func (s *InvoiceService) Build(
	ctx context.Context,
	priced *billing.PricedPurchase,
	customer *member.Profile,
	operator *member.Profile,
	pay PaymentContext,
) (*billing.Invoice, error) {
	_, span := telemetry.StartServiceSpan(ctx, "billing", "build_invoice")
	defer span.End()

	if priced == nil || len(priced.Items) == 0 {
		return nil, shared.NewDomainError("EMPTY_PURCHASE", "Nothing to invoice")
	}
	if customer == nil || operator == nil {
		return nil, shared.NewDomainError("INVALID_PROFILE", "Customer and operator are required")
	}

	method, err := s.resolvePaymentMethod(customer, operator, pay)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	invoice, err := billing.NewInvoice(customer.ID, operator.ID, method)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	for _, item := range priced.Items {
		if _, err := invoice.AddItem(item.Amount, itemDescription(item), item.SubscriptionID); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	if err := invoice.SetTotalAndCoupon(priced.Coupon, s.discount); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		"customer_id", customer.ID.String(),
		"total", invoice.Total.String(),
	)
	return invoice, nil
}

// Generate builds the invoice, allocates its daily-sequenced reference and
// persists it in one transactional save
func (s *InvoiceService) Generate(
	ctx context.Context,
	priced *billing.PricedPurchase,
	customer *member.Profile,
	operator *member.Profile,
	pay PaymentContext,
) (*billing.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "generate_invoice")
	defer span.End()

	invoice, err := s.Build(ctx, priced, customer, operator, pay)
	if err != nil {
		return nil, err
	}

	issued, err := s.invoiceRepo.CountIssuedOn(ctx, invoice.IssuedAt)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to allocate invoice reference: %w", err)
	}
	invoice.Reference = billing.FormatInvoiceReference(invoice.IssuedAt, issued+1)

	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	s.publishEvents(ctx, invoice.GetDomainEvents())
	invoice.ClearDomainEvents()

	s.logger.Info("Invoice generated",
		zap.String("reference", invoice.Reference),
		zap.String("customer_id", invoice.CustomerID.String()),
		zap.String("total", invoice.Total.String()))
	return invoice, nil
}

// Get returns one invoice by id
func (s *InvoiceService) Get(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, shared.ErrNotFound
	}
	return invoice, nil
}

// List returns a filtered, sorted, paginated page of invoices
func (s *InvoiceService) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[billing.Invoice], error) {
	invoices, err := s.invoiceRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.invoiceRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(invoices, total, filter.Page, filter.PageSize)
	return &page, nil
}

// resolvePaymentMethod decides the invoice payment method. An explicit
// request wins. Admins, and managers invoicing someone other than
// themselves, defer the choice to charge time. Everyone else pays by card
// through the gateway.
func (s *InvoiceService) resolvePaymentMethod(
	customer *member.Profile,
	operator *member.Profile,
	pay PaymentContext,
) (billing.PaymentMethod, error) {
	if pay.Method != nil {
		if !pay.Method.IsValid() {
			return "", shared.NewDomainError("INVALID_PAYMENT_METHOD", "Unknown payment method: "+pay.Method.String())
		}
		return *pay.Method, nil
	}
	if operator.IsAdmin() || (operator.IsManager() && operator.ID != customer.ID) {
		return billing.PaymentMethodDeferred, nil
	}
	return billing.PaymentMethodCard, nil
}

func (s *InvoiceService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.eventBus == nil || len(events) == 0 {
		return
	}
	if err := s.eventBus.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish invoice events", zap.Error(err))
	}
}

// itemDescription renders one invoice line. Timed reservations get the
// booked range appended: a single-day booking collapses to one
// "date, start - end" line, a multi-day one spells out both ranges.
func itemDescription(item billing.PricedItem) string {
	if item.EventStartAt == nil || item.EventEndAt == nil {
		return item.Description
	}
	start := *item.EventStartAt
	end := *item.EventEndAt
	if start.Year() == end.Year() && start.YearDay() == end.YearDay() {
		return fmt.Sprintf("%s %s, %s - %s",
			item.Description,
			start.Format(invoiceDateLayout),
			start.Format(invoiceTimeLayout),
			end.Format(invoiceTimeLayout))
	}
	return fmt.Sprintf("%s from %s to %s, from %s to %s",
		item.Description,
		start.Format(invoiceDateLayout),
		end.Format(invoiceDateLayout),
		start.Format(invoiceTimeLayout),
		end.Format(invoiceTimeLayout))
}
