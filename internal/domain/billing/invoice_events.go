package billing

import (
	"github.com/fablab/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Event types for the billing domain
const (
	EventTypeInvoiceGenerated        = "billing.invoice.generated"
	EventTypePaymentScheduleSynced   = "billing.payment_schedule.synced"
	EventTypePaymentScheduleItemPaid = "billing.payment_schedule.item_paid"
)

// InvoiceGeneratedEvent is published when an invoice is finalized
type InvoiceGeneratedEvent struct {
	shared.BaseDomainEvent
	Reference  string    `json:"reference"`
	CustomerID uuid.UUID `json:"customer_id"`
	TotalCents int64     `json:"total_cents"`
}

// NewInvoiceGeneratedEvent creates a new InvoiceGeneratedEvent
func NewInvoiceGeneratedEvent(invoice *Invoice) *InvoiceGeneratedEvent {
	return &InvoiceGeneratedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceGenerated, invoice.ID, "Invoice"),
		Reference:       invoice.Reference,
		CustomerID:      invoice.CustomerID,
		TotalCents:      invoice.Total.Cents(),
	}
}
