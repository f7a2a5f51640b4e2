package billing

import (
	"time"

	"github.com/fablab/backend/internal/domain/shared"
	"github.com/fablab/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DeadlineState is the state of one payment deadline
type DeadlineState string

const (
	DeadlineStatePending              DeadlineState = "PENDING"
	DeadlineStateRequireAction        DeadlineState = "REQUIRE_ACTION"
	DeadlineStateRequirePaymentMethod DeadlineState = "REQUIRE_PAYMENT_METHOD"
	DeadlineStatePaid                 DeadlineState = "PAID"
)

// IsValid checks if the state is a known DeadlineState
func (s DeadlineState) IsValid() bool {
	switch s {
	case DeadlineStatePending, DeadlineStateRequireAction, DeadlineStateRequirePaymentMethod, DeadlineStatePaid:
		return true
	}
	return false
}

// String returns the string representation of DeadlineState
func (s DeadlineState) String() string {
	return string(s)
}

// CanTransitionTo checks if the state can transition to the target state.
// Transitions are monotonic: a deadline is never paid twice.
func (s DeadlineState) CanTransitionTo(target DeadlineState) bool {
	switch s {
	case DeadlineStatePending:
		return target == DeadlineStatePaid ||
			target == DeadlineStateRequireAction ||
			target == DeadlineStateRequirePaymentMethod
	case DeadlineStateRequireAction:
		return target == DeadlineStatePaid
	case DeadlineStateRequirePaymentMethod:
		// Returning to Pending is reserved for the new-instrument flow
		return target == DeadlineStatePaid || target == DeadlineStatePending
	case DeadlineStatePaid:
		return false // terminal
	}
	return false
}

// FirstDeadlineDetails carries the decomposition of the first deadline,
// used to seed the first gateway invoice
type FirstDeadlineDetails struct {
	Recurring  valueobject.Money
	Adjustment valueobject.Money
	OtherItems valueobject.Money
}

// PaymentScheduleItem is one deadline within a payment schedule
type PaymentScheduleItem struct {
	ID                  uuid.UUID
	ScheduleID          uuid.UUID
	DueDate             time.Time
	Amount              valueobject.Money
	State               DeadlineState
	PaymentMethod       PaymentMethod
	InvoiceID           *uuid.UUID
	GatewayClientSecret string
	Details             *FirstDeadlineDetails
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// PaymentSchedule plans the collection of a subscription price across
// multiple monthly deadlines
type PaymentSchedule struct {
	shared.BaseAggregateRoot
	Reference             string
	CustomerID            uuid.UUID
	PlanID                uuid.UUID
	Total                 valueobject.Money
	CouponID              *uuid.UUID
	GatewaySubscriptionID string
	ExpiresAt             time.Time
	Items                 []PaymentScheduleItem
}

// BuildPaymentSchedule derives the deadline sequence for a plan paid in
// installments, starting at startAt. The plan price is split evenly across
// the months; the rounding remainder becomes the first deadline's adjustment,
// and otherItems (a concurrent one-off purchase bundled into the first
// payment) is folded in on top.
func BuildPaymentSchedule(customerID uuid.UUID, plan *Plan, startAt time.Time, otherItems valueobject.Money, coupon *Coupon) (*PaymentSchedule, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if plan == nil {
		return nil, shared.NewDomainError("INVALID_PLAN", "Plan cannot be nil")
	}
	if !plan.CanBeScheduled() {
		return nil, shared.NewDomainError("PLAN_NOT_SCHEDULABLE", "Plan is not eligible for installment payment")
	}
	if otherItems.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Other items amount cannot be negative")
	}

	months := int64(plan.DurationMonths)
	monthly, err := plan.Price.Divide(decimal.NewFromInt(months))
	if err != nil {
		return nil, err
	}
	monthly = monthly.Truncate(2)
	adjustment := plan.Price.MustSubtract(monthly.Multiply(decimal.NewFromInt(months)))

	schedule := &PaymentSchedule{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CustomerID:        customerID,
		PlanID:            plan.ID,
		ExpiresAt:         startAt.AddDate(0, plan.DurationMonths, 0),
		Items:             make([]PaymentScheduleItem, 0, plan.DurationMonths),
	}

	total := valueobject.Zero(plan.Price.Currency())
	now := time.Now()
	for month := 0; month < plan.DurationMonths; month++ {
		amount := monthly
		var details *FirstDeadlineDetails
		if month == 0 {
			amount = amount.MustAdd(adjustment).MustAdd(otherItems)
			details = &FirstDeadlineDetails{
				Recurring:  monthly,
				Adjustment: adjustment,
				OtherItems: otherItems,
			}
		}
		schedule.Items = append(schedule.Items, PaymentScheduleItem{
			ID:         uuid.New(),
			ScheduleID: schedule.ID,
			DueDate:    startAt.AddDate(0, month, 0),
			Amount:     amount,
			State:      DeadlineStatePending,
			Details:    details,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		total = total.MustAdd(amount)
	}
	schedule.Total = total

	if coupon != nil {
		couponID := coupon.ID
		schedule.CouponID = &couponID
	}
	return schedule, nil
}

// FirstItem returns the first deadline, ordered by due date
func (s *PaymentSchedule) FirstItem() *PaymentScheduleItem {
	if len(s.Items) == 0 {
		return nil
	}
	first := &s.Items[0]
	for idx := range s.Items {
		if s.Items[idx].DueDate.Before(first.DueDate) {
			first = &s.Items[idx]
		}
	}
	return first
}

// SecondItem returns the second deadline, ordered by due date
func (s *PaymentSchedule) SecondItem() *PaymentScheduleItem {
	if len(s.Items) < 2 {
		return nil
	}
	first := s.FirstItem()
	var second *PaymentScheduleItem
	for idx := range s.Items {
		item := &s.Items[idx]
		if item.ID == first.ID {
			continue
		}
		if second == nil || item.DueDate.Before(second.DueDate) {
			second = item
		}
	}
	return second
}

// IsSynced returns true once a gateway subscription has been recorded.
// The persisted id is the idempotency guard for gateway synchronization.
func (s *PaymentSchedule) IsSynced() bool {
	return s.GatewaySubscriptionID != ""
}

// AttachGatewaySubscription records the external subscription object id
func (s *PaymentSchedule) AttachGatewaySubscription(subscriptionID string) error {
	if subscriptionID == "" {
		return shared.NewDomainError("INVALID_SUBSCRIPTION_ID", "Gateway subscription ID cannot be empty")
	}
	if s.IsSynced() {
		return shared.NewDomainError("ALREADY_SYNCED", "Payment schedule is already synchronized with the gateway")
	}
	s.GatewaySubscriptionID = subscriptionID
	s.AddDomainEvent(NewPaymentScheduleSyncedEvent(s))
	return nil
}

// Item returns the deadline with the given id
func (s *PaymentSchedule) Item(itemID uuid.UUID) *PaymentScheduleItem {
	for idx := range s.Items {
		if s.Items[idx].ID == itemID {
			return &s.Items[idx]
		}
	}
	return nil
}

// transitionItem moves a deadline to the target state, enforcing the state machine
func (s *PaymentSchedule) transitionItem(itemID uuid.UUID, target DeadlineState) (*PaymentScheduleItem, error) {
	item := s.Item(itemID)
	if item == nil {
		return nil, shared.ErrNotFound
	}
	if !item.State.CanTransitionTo(target) {
		return nil, shared.NewDomainError("INVALID_STATE",
			"Deadline cannot transition from "+item.State.String()+" to "+target.String())
	}
	item.State = target
	item.UpdatedAt = time.Now()
	return item, nil
}

// MarkItemPaid transitions a deadline to Paid, recording the payment method
// and the invoice generated for it
func (s *PaymentSchedule) MarkItemPaid(itemID uuid.UUID, method PaymentMethod, invoiceID uuid.UUID) error {
	item, err := s.transitionItem(itemID, DeadlineStatePaid)
	if err != nil {
		return err
	}
	item.PaymentMethod = method
	if invoiceID != uuid.Nil {
		item.InvoiceID = &invoiceID
	}
	item.GatewayClientSecret = ""
	s.AddDomainEvent(NewPaymentScheduleItemPaidEvent(s, item))
	return nil
}

// MarkItemRequiresAction flags a deadline as needing additional customer
// authentication, storing the client secret used to replay the confirmation
func (s *PaymentSchedule) MarkItemRequiresAction(itemID uuid.UUID, clientSecret string) error {
	item, err := s.transitionItem(itemID, DeadlineStateRequireAction)
	if err != nil {
		return err
	}
	item.GatewayClientSecret = clientSecret
	return nil
}

// MarkItemRequiresPaymentMethod flags a deadline whose stored instrument failed
func (s *PaymentSchedule) MarkItemRequiresPaymentMethod(itemID uuid.UUID) error {
	_, err := s.transitionItem(itemID, DeadlineStateRequirePaymentMethod)
	return err
}

// ReturnItemToPending is the reserved transition for the new-instrument flow:
// once a replacement payment method is attached the deadline becomes pending again
func (s *PaymentSchedule) ReturnItemToPending(itemID uuid.UUID) error {
	item, err := s.transitionItem(itemID, DeadlineStatePending)
	if err != nil {
		return err
	}
	item.GatewayClientSecret = ""
	return nil
}
