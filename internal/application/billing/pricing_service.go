package billing

import (
	"context"
	"strings"

	"github.com/fablab/backend/internal/domain/billing"
	"github.com/fablab/backend/internal/domain/shared"
	"github.com/fablab/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PricingService aggregates a typed purchase into its fully priced form,
// ready to be turned into an invoice or a payment schedule
type PricingService struct {
	couponRepo billing.CouponRepository
	logger     *zap.Logger
}

// NewPricingService creates a new PricingService
func NewPricingService(couponRepo billing.CouponRepository, logger *zap.Logger) *PricingService {
	return &PricingService{
		couponRepo: couponRepo,
		logger:     logger,
	}
}

// Price builds the priced form of a purchase. Dispatch over the purchase
// variants is exhaustive; each generator guards against being invoked with
// the wrong variant.
func (s *PricingService) Price(ctx context.Context, purchase billing.Purchase, couponCode string, customerID uuid.UUID) (*billing.PricedPurchase, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "price_purchase")
	defer span.End()

	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}

	coupon, err := s.lookupCoupon(ctx, couponCode)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var items []billing.PricedItem
	switch p := purchase.(type) {
	case billing.EventPurchase:
		items, err = s.priceEvent(p)
	case billing.SlotPurchase:
		items, err = s.priceSlots(p)
	case billing.SubscriptionPurchase:
		items, err = s.priceSubscription(p)
	default:
		err = shared.ErrTypeMismatch
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttribute(span, "purchase_kind", string(purchase.Kind()))
	return &billing.PricedPurchase{
		Kind:       purchase.Kind(),
		CustomerID: customerID,
		Items:      items,
		Coupon:     coupon,
	}, nil
}

func (s *PricingService) lookupCoupon(ctx context.Context, code string) (*billing.Coupon, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, nil
	}
	coupon, err := s.couponRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return coupon, nil
}

func (s *PricingService) priceEvent(p billing.EventPurchase) ([]billing.PricedItem, error) {
	if err := billing.GuardKind(p, billing.PurchaseKindEvent); err != nil {
		return nil, err
	}
	if len(p.Slots) == 0 {
		return nil, shared.NewDomainError("EMPTY_PURCHASE", "Event reservation has no slots")
	}

	items := make([]billing.PricedItem, 0, len(p.Slots))
	for idx := range p.Slots {
		slot := p.Slots[idx]
		items = append(items, billing.PricedItem{
			Description:  p.EventTitle,
			Amount:       slot.Price,
			SlotID:       &slot.SlotID,
			EventStartAt: &slot.StartAt,
			EventEndAt:   &slot.EndAt,
			MainItem:     idx == 0,
		})
	}
	return items, nil
}

func (s *PricingService) priceSlots(p billing.SlotPurchase) ([]billing.PricedItem, error) {
	if err := billing.GuardKind(p, billing.PurchaseKindSlot); err != nil {
		return nil, err
	}
	if len(p.Slots) == 0 {
		return nil, shared.NewDomainError("EMPTY_PURCHASE", "Reservation has no slots")
	}

	items := make([]billing.PricedItem, 0, len(p.Slots))
	for idx := range p.Slots {
		slot := p.Slots[idx]
		items = append(items, billing.PricedItem{
			Description:  p.ReservableName,
			Amount:       slot.Price,
			SlotID:       &slot.SlotID,
			EventStartAt: &slot.StartAt,
			EventEndAt:   &slot.EndAt,
			MainItem:     idx == 0,
		})
	}
	return items, nil
}

func (s *PricingService) priceSubscription(p billing.SubscriptionPurchase) ([]billing.PricedItem, error) {
	if err := billing.GuardKind(p, billing.PurchaseKindSubscription); err != nil {
		return nil, err
	}
	if p.Plan == nil {
		return nil, shared.NewDomainError("INVALID_PLAN", "Subscription purchase has no plan")
	}

	subscriptionID := p.SubscriptionID
	return []billing.PricedItem{
		{
			Description:    p.Plan.Name + " subscription",
			Amount:         p.Plan.Price,
			SubscriptionID: &subscriptionID,
			MainItem:       true,
		},
	}, nil
}
