package billing

import (
	"strings"
	"time"

	"github.com/fablab/backend/internal/domain/shared"
	"github.com/fablab/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// PaymentMethod tags how an invoice was (or will be) settled
type PaymentMethod string

const (
	// PaymentMethodDeferred marks invoices whose method is resolved at charge
	// time (admin or manager acting on someone else's behalf)
	PaymentMethodDeferred PaymentMethod = ""
	PaymentMethodCard     PaymentMethod = "CARD"
	PaymentMethodCheck    PaymentMethod = "CHECK"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
	PaymentMethodCash     PaymentMethod = "CASH"
)

// IsValid checks if the method is a known PaymentMethod
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodDeferred, PaymentMethodCard, PaymentMethodCheck, PaymentMethodTransfer, PaymentMethodCash:
		return true
	}
	return false
}

// IsPhysical returns true for instruments cashed by hand rather than via the gateway
func (m PaymentMethod) IsPhysical() bool {
	return m == PaymentMethodCheck || m == PaymentMethodTransfer || m == PaymentMethodCash
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// InvoiceItem is one billed line, owned exclusively by its invoice
type InvoiceItem struct {
	ID             uuid.UUID
	InvoiceID      uuid.UUID
	Amount         valueobject.Money
	Description    string
	SubscriptionID *uuid.UUID
	CreatedAt      time.Time
}

// Invoice is the durable billed record for a single completed transaction.
// Totals are immutable once finalized; only the gateway payment id may be
// attached afterwards.
type Invoice struct {
	shared.BaseAggregateRoot
	Reference        string
	IssuedAt         time.Time
	CustomerID       uuid.UUID
	OperatorID       uuid.UUID
	Total            valueobject.Money
	CouponID         *uuid.UUID
	GatewayPaymentID string
	PaymentMethod    PaymentMethod
	Items            []InvoiceItem

	finalized bool
}

// NewInvoice creates a new, not yet finalized invoice
func NewInvoice(customerID, operatorID uuid.UUID, method PaymentMethod) (*Invoice, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if operatorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OPERATOR", "Operator ID cannot be empty")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Unknown payment method: "+method.String())
	}

	return &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		IssuedAt:          time.Now(),
		CustomerID:        customerID,
		OperatorID:        operatorID,
		Total:             valueobject.ZeroEUR(),
		PaymentMethod:     method,
		Items:             make([]InvoiceItem, 0),
	}, nil
}

// AddItem appends a billed line. Rejected once the invoice is finalized.
func (i *Invoice) AddItem(amount valueobject.Money, description string, subscriptionID *uuid.UUID) (*InvoiceItem, error) {
	if i.finalized {
		return nil, shared.NewDomainError("INVOICE_FINALIZED", "Cannot add items to a finalized invoice")
	}
	if strings.TrimSpace(description) == "" {
		return nil, shared.NewDomainError("INVALID_DESCRIPTION", "Item description cannot be empty")
	}
	if amount.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Item amount cannot be negative")
	}

	item := InvoiceItem{
		ID:             uuid.New(),
		InvoiceID:      i.ID,
		Amount:         amount,
		Description:    description,
		SubscriptionID: subscriptionID,
		CreatedAt:      time.Now(),
	}
	i.Items = append(i.Items, item)
	return &i.Items[len(i.Items)-1], nil
}

// SetTotalAndCoupon sums the item amounts, applies the coupon exactly once
// through the discount service, and finalizes the invoice. It runs as a
// single step on the in-memory aggregate: no partial total is ever exposed.
func (i *Invoice) SetTotalAndCoupon(coupon *Coupon, discount *DiscountService) error {
	if i.finalized {
		return shared.NewDomainError("INVOICE_FINALIZED", "Invoice total is already set")
	}
	if len(i.Items) == 0 {
		return shared.NewDomainError("EMPTY_INVOICE", "Invoice must have at least one item")
	}

	total := valueobject.Zero(i.Items[0].Amount.Currency())
	for _, item := range i.Items {
		total = total.MustAdd(item.Amount)
	}

	discounted, err := discount.Apply(total, coupon, i.CustomerID)
	if err != nil {
		return err
	}

	// The invariant total == sum(items) holds against the discounted total:
	// the discount is folded into the last item so both books agree.
	if !discounted.Equals(total) {
		reduction := total.MustSubtract(discounted)
		last := &i.Items[len(i.Items)-1]
		last.Amount = last.Amount.MustSubtract(reduction)
	}

	i.Total = discounted
	if coupon != nil {
		couponID := coupon.ID
		i.CouponID = &couponID
	}
	i.finalized = true

	i.AddDomainEvent(NewInvoiceGeneratedEvent(i))
	return nil
}

// IsFinalized returns true once the total has been set
func (i *Invoice) IsFinalized() bool {
	return i.finalized
}

// MarkFinalized restores the finalized flag when rehydrating from storage
func (i *Invoice) MarkFinalized() {
	i.finalized = true
}

// AttachGatewayPayment records the gateway payment object id. This is the
// only mutation allowed after finalization.
func (i *Invoice) AttachGatewayPayment(paymentID string) error {
	if paymentID == "" {
		return shared.NewDomainError("INVALID_PAYMENT_ID", "Gateway payment ID cannot be empty")
	}
	i.GatewayPaymentID = paymentID
	return nil
}

// ItemsTotal sums the current item amounts
func (i *Invoice) ItemsTotal() valueobject.Money {
	if len(i.Items) == 0 {
		return valueobject.ZeroEUR()
	}
	total := valueobject.Zero(i.Items[0].Amount.Currency())
	for _, item := range i.Items {
		total = total.MustAdd(item.Amount)
	}
	return total
}
