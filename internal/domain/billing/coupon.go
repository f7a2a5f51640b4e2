package billing

import (
	"strings"
	"time"

	"github.com/fablab/backend/internal/domain/shared"
	"github.com/fablab/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CouponKind distinguishes percentage and fixed-amount discounts
type CouponKind string

const (
	CouponKindPercent CouponKind = "PERCENT"
	CouponKindAmount  CouponKind = "AMOUNT"
)

// Coupon is a discount rule applied once to a total at invoicing time
type Coupon struct {
	shared.BaseAggregateRoot
	Code       string
	Kind       CouponKind
	Percentage decimal.Decimal
	Amount     valueobject.Money
	ValidFrom  time.Time
	ValidUntil *time.Time
	Active     bool
}

// NewPercentCoupon creates a coupon discounting a percentage of the total
func NewPercentCoupon(code string, percentage decimal.Decimal) (*Coupon, error) {
	if err := validateCode(code); err != nil {
		return nil, err
	}
	if percentage.LessThanOrEqual(decimal.Zero) || percentage.GreaterThan(decimal.NewFromInt(100)) {
		return nil, shared.NewDomainError("INVALID_PERCENTAGE", "Percentage must be between 0 and 100")
	}
	return &Coupon{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              normalizeCode(code),
		Kind:              CouponKindPercent,
		Percentage:        percentage,
		ValidFrom:         time.Now(),
		Active:            true,
	}, nil
}

// NewAmountCoupon creates a coupon discounting a fixed amount from the total
func NewAmountCoupon(code string, amount valueobject.Money) (*Coupon, error) {
	if err := validateCode(code); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Discount amount must be positive")
	}
	return &Coupon{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              normalizeCode(code),
		Kind:              CouponKindAmount,
		Amount:            amount,
		ValidFrom:         time.Now(),
		Active:            true,
	}, nil
}

func validateCode(code string) error {
	if strings.TrimSpace(code) == "" {
		return shared.NewDomainError("INVALID_COUPON_CODE", "Coupon code cannot be empty")
	}
	return nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsUsableAt returns true if the coupon may be applied at the given time
func (c *Coupon) IsUsableAt(at time.Time) bool {
	if !c.Active {
		return false
	}
	if at.Before(c.ValidFrom) {
		return false
	}
	if c.ValidUntil != nil && at.After(*c.ValidUntil) {
		return false
	}
	return true
}

// Deactivate disables the coupon for future purchases
func (c *Coupon) Deactivate() {
	c.Active = false
}

// WithValidity sets the validity window
func (c *Coupon) WithValidity(from time.Time, until *time.Time) *Coupon {
	c.ValidFrom = from
	c.ValidUntil = until
	return c
}

// DiscountService applies a coupon to an amount exactly once.
// It is the only place discount arithmetic lives.
type DiscountService struct{}

// NewDiscountService creates a new DiscountService
func NewDiscountService() *DiscountService {
	return &DiscountService{}
}

// Apply returns the discounted amount for the given coupon and customer.
// A nil coupon leaves the amount unchanged. The result is never negative.
func (s *DiscountService) Apply(amount valueobject.Money, coupon *Coupon, profileID uuid.UUID) (valueobject.Money, error) {
	if coupon == nil {
		return amount, nil
	}
	if !coupon.IsUsableAt(time.Now()) {
		return amount, shared.NewDomainError("COUPON_NOT_USABLE", "Coupon is expired or inactive")
	}

	switch coupon.Kind {
	case CouponKindPercent:
		factor := decimal.NewFromInt(1).Sub(coupon.Percentage.Div(decimal.NewFromInt(100)))
		return amount.Multiply(factor).Round(2), nil
	case CouponKindAmount:
		discounted, err := amount.Subtract(coupon.Amount)
		if err != nil {
			return amount, err
		}
		if discounted.IsNegative() {
			return valueobject.Zero(amount.Currency()), nil
		}
		return discounted, nil
	default:
		return amount, shared.NewDomainError("INVALID_COUPON_KIND", "Unknown coupon kind: "+string(coupon.Kind))
	}
}
