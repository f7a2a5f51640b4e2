package billing

import (
	"time"

	"github.com/fablab/backend/internal/domain/shared"
	"github.com/fablab/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// PurchaseKind identifies the closed set of purchasable units
type PurchaseKind string

const (
	PurchaseKindEvent        PurchaseKind = "EVENT"
	PurchaseKindSlot         PurchaseKind = "SLOT"
	PurchaseKindSubscription PurchaseKind = "SUBSCRIPTION"
)

// Purchase is the sealed interface over the three purchasable variants.
// Only EventPurchase, SlotPurchase and SubscriptionPurchase implement it;
// the unexported method keeps the set closed so dispatch stays exhaustive.
type Purchase interface {
	Kind() PurchaseKind
	purchase()
}

// EventPurchase is a reservation of one or more event slots
type EventPurchase struct {
	ReservationID uuid.UUID
	EventTitle    string
	Slots         []EventSlot
}

// EventSlot is a booked time range of an event
type EventSlot struct {
	SlotID  uuid.UUID
	StartAt time.Time
	EndAt   time.Time
	Price   valueobject.Money
}

// Kind returns the purchase kind
func (EventPurchase) Kind() PurchaseKind { return PurchaseKindEvent }

func (EventPurchase) purchase() {}

// SlotPurchase is a reservation of machine, space or training slots
type SlotPurchase struct {
	ReservationID  uuid.UUID
	ReservableName string
	Slots          []ReservedSlot
}

// ReservedSlot is a booked machine/space/training time range
type ReservedSlot struct {
	SlotID  uuid.UUID
	StartAt time.Time
	EndAt   time.Time
	Price   valueobject.Money
}

// Kind returns the purchase kind
func (SlotPurchase) Kind() PurchaseKind { return PurchaseKindSlot }

func (SlotPurchase) purchase() {}

// SubscriptionPurchase is the purchase of a plan subscription
type SubscriptionPurchase struct {
	SubscriptionID uuid.UUID
	Plan           *Plan
}

// Kind returns the purchase kind
func (SubscriptionPurchase) Kind() PurchaseKind { return PurchaseKindSubscription }

func (SubscriptionPurchase) purchase() {}

// PricedItem is one priced line element of a purchase
type PricedItem struct {
	Description    string
	Amount         valueobject.Money
	SlotID         *uuid.UUID
	SubscriptionID *uuid.UUID
	EventStartAt   *time.Time
	EventEndAt     *time.Time
	MainItem       bool
}

// PricedPurchase is the transient, fully priced form of a purchase,
// ready to be turned into an invoice
type PricedPurchase struct {
	Kind       PurchaseKind
	CustomerID uuid.UUID
	Items      []PricedItem
	Coupon     *Coupon
}

// Total sums the item amounts before any coupon discount
func (p *PricedPurchase) Total() valueobject.Money {
	total := valueobject.Zero(valueobject.DefaultCurrency)
	if len(p.Items) > 0 {
		total = valueobject.Zero(p.Items[0].Amount.Currency())
	}
	for _, item := range p.Items {
		total = total.MustAdd(item.Amount)
	}
	return total
}

// GuardKind returns ErrTypeMismatch when the purchase does not match the
// generator invoked for it. Callers dispatch on the variant; this catches
// dispatch bugs when new purchasable kinds are added.
func GuardKind(p Purchase, expected PurchaseKind) error {
	if p.Kind() != expected {
		return shared.ErrTypeMismatch
	}
	return nil
}
