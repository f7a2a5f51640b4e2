package billing

import (
	"strings"

	"github.com/fablab/backend/internal/domain/shared"
	"github.com/fablab/backend/internal/domain/shared/valueobject"
)

// Plan is a subscription plan members can purchase, optionally paid in monthly installments
type Plan struct {
	shared.BaseAggregateRoot
	Name             string
	Price            valueobject.Money
	DurationMonths   int
	MonthlyPayment   bool
	GatewayProductID string
}

// NewPlan creates a new subscription plan
func NewPlan(name string, price valueobject.Money, durationMonths int, gatewayProductID string) (*Plan, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_PLAN_NAME", "Plan name cannot be empty")
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Plan price cannot be negative")
	}
	if durationMonths <= 0 {
		return nil, shared.NewDomainError("INVALID_DURATION", "Plan duration must be at least one month")
	}

	return &Plan{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              strings.TrimSpace(name),
		Price:             price,
		DurationMonths:    durationMonths,
		MonthlyPayment:    durationMonths > 1,
		GatewayProductID:  gatewayProductID,
	}, nil
}

// CanBeScheduled returns true if the plan is eligible for installment payment
func (p *Plan) CanBeScheduled() bool {
	return p.MonthlyPayment && p.DurationMonths > 1
}
