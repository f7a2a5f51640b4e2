package billing

import (
	"time"

	"github.com/fablab/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// PaymentScheduleSyncedEvent is published when a schedule is synchronized
// with the payment gateway
type PaymentScheduleSyncedEvent struct {
	shared.BaseDomainEvent
	CustomerID            uuid.UUID `json:"customer_id"`
	GatewaySubscriptionID string    `json:"gateway_subscription_id"`
}

// NewPaymentScheduleSyncedEvent creates a new PaymentScheduleSyncedEvent
func NewPaymentScheduleSyncedEvent(schedule *PaymentSchedule) *PaymentScheduleSyncedEvent {
	return &PaymentScheduleSyncedEvent{
		BaseDomainEvent:       shared.NewBaseDomainEvent(EventTypePaymentScheduleSynced, schedule.ID, "PaymentSchedule"),
		CustomerID:            schedule.CustomerID,
		GatewaySubscriptionID: schedule.GatewaySubscriptionID,
	}
}

// PaymentScheduleItemPaidEvent is published when a deadline is settled
type PaymentScheduleItemPaidEvent struct {
	shared.BaseDomainEvent
	ItemID        uuid.UUID     `json:"item_id"`
	DueDate       time.Time     `json:"due_date"`
	AmountCents   int64         `json:"amount_cents"`
	PaymentMethod PaymentMethod `json:"payment_method"`
}

// NewPaymentScheduleItemPaidEvent creates a new PaymentScheduleItemPaidEvent
func NewPaymentScheduleItemPaidEvent(schedule *PaymentSchedule, item *PaymentScheduleItem) *PaymentScheduleItemPaidEvent {
	return &PaymentScheduleItemPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentScheduleItemPaid, schedule.ID, "PaymentSchedule"),
		ItemID:          item.ID,
		DueDate:         item.DueDate,
		AmountCents:     item.Amount.Cents(),
		PaymentMethod:   item.PaymentMethod,
	}
}
