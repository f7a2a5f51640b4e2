package billing

import (
	"context"
	"time"

	"github.com/fablab/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// InvoiceRepository defines persistence operations for invoices.
// Saves are transactional over the whole aggregate (invoice + items).
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByReference(ctx context.Context, reference string) (*Invoice, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Invoice, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	Save(ctx context.Context, invoice *Invoice) error
	// CountIssuedOn returns the number of invoices issued on the given day,
	// used for daily reference sequence numbers
	CountIssuedOn(ctx context.Context, day time.Time) (int64, error)
}

// PaymentScheduleRepository defines persistence operations for payment schedules
type PaymentScheduleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PaymentSchedule, error)
	FindByItemID(ctx context.Context, itemID uuid.UUID) (*PaymentSchedule, error)
	FindByGatewaySubscriptionID(ctx context.Context, subscriptionID string) (*PaymentSchedule, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]PaymentSchedule, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	Save(ctx context.Context, schedule *PaymentSchedule) error
	// SaveWithLock saves using optimistic locking on the aggregate version,
	// guarding concurrent gateway synchronization attempts
	SaveWithLock(ctx context.Context, schedule *PaymentSchedule) error
	// CountIssuedOn returns the number of schedules issued on the given day,
	// used for daily reference sequence numbers
	CountIssuedOn(ctx context.Context, day time.Time) (int64, error)
}

// PlanRepository defines persistence operations for subscription plans
type PlanRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Plan, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Plan, error)
	Save(ctx context.Context, plan *Plan) error
}

// CouponRepository defines persistence operations for coupons
type CouponRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Coupon, error)
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	Save(ctx context.Context, coupon *Coupon) error
}
