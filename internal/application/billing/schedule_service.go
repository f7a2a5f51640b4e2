package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fablab/backend/internal/domain/billing"
	"github.com/fablab/backend/internal/domain/member"
	"github.com/fablab/backend/internal/domain/shared"
	"github.com/fablab/backend/internal/domain/shared/valueobject"
	"github.com/fablab/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ScheduleService builds payment schedules for plans paid in installments
// and synchronizes them with the payment gateway
type ScheduleService struct {
	scheduleRepo billing.PaymentScheduleRepository
	planRepo     billing.PlanRepository
	couponRepo   billing.CouponRepository
	profileRepo  member.ProfileRepository
	gateway      billing.PaymentGateway
	eventBus     shared.EventBus
	logger       *zap.Logger
}

// ScheduleServiceConfig contains the dependencies of ScheduleService
type ScheduleServiceConfig struct {
	ScheduleRepo billing.PaymentScheduleRepository
	PlanRepo     billing.PlanRepository
	CouponRepo   billing.CouponRepository
	ProfileRepo  member.ProfileRepository
	Gateway      billing.PaymentGateway
	EventBus     shared.EventBus
	Logger       *zap.Logger
}

// NewScheduleService creates a new ScheduleService
func NewScheduleService(cfg ScheduleServiceConfig) *ScheduleService {
	return &ScheduleService{
		scheduleRepo: cfg.ScheduleRepo,
		planRepo:     cfg.PlanRepo,
		couponRepo:   cfg.CouponRepo,
		profileRepo:  cfg.ProfileRepo,
		gateway:      cfg.Gateway,
		eventBus:     cfg.EventBus,
		logger:       cfg.Logger,
	}
}

// Generate derives the deadline sequence for a plan subscription, allocates
// the schedule reference and persists the aggregate. otherItems is the
// amount of any one-off purchase bundled into the first deadline.
func (s *ScheduleService) Generate(
	ctx context.Context,
	customerID, planID uuid.UUID,
	startAt time.Time,
	otherItems valueobject.Money,
	coupon *billing.Coupon,
) (*billing.PaymentSchedule, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "generate_payment_schedule")
	defer span.End()

	plan, err := s.planRepo.FindByID(ctx, planID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if plan == nil {
		return nil, shared.NewDomainError("PLAN_NOT_FOUND", "Plan not found")
	}

	schedule, err := billing.BuildPaymentSchedule(customerID, plan, startAt, otherItems, coupon)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	issued, err := s.scheduleRepo.CountIssuedOn(ctx, startAt)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to allocate schedule reference: %w", err)
	}
	schedule.Reference = billing.FormatScheduleReference(startAt, issued+1)

	if err := s.scheduleRepo.Save(ctx, schedule); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save payment schedule: %w", err)
	}

	s.logger.Info("Payment schedule generated",
		zap.String("reference", schedule.Reference),
		zap.String("customer_id", customerID.String()),
		zap.Int("deadlines", len(schedule.Items)))
	return schedule, nil
}

// Get returns one schedule by id
func (s *ScheduleService) Get(ctx context.Context, id uuid.UUID) (*billing.PaymentSchedule, error) {
	schedule, err := s.scheduleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, shared.ErrNotFound
	}
	return schedule, nil
}

// List returns a filtered, paginated page of schedules
func (s *ScheduleService) List(ctx context.Context, filter shared.Filter) (*shared.Paginated[billing.PaymentSchedule], error) {
	schedules, err := s.scheduleRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.scheduleRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	page := shared.NewPaginated(schedules, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Sync loads a schedule and its plan, then mirrors the schedule onto the
// payment gateway. It returns the refreshed schedule.
func (s *ScheduleService) Sync(ctx context.Context, scheduleID uuid.UUID) (*billing.PaymentSchedule, error) {
	schedule, err := s.Get(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	plan, err := s.planRepo.FindByID(ctx, schedule.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, shared.NewDomainError("PLAN_NOT_FOUND", "Plan not found")
	}

	if err := s.SyncWithGateway(ctx, schedule, plan.GatewayProductID); err != nil {
		return nil, err
	}
	return schedule, nil
}

// SyncWithGateway mirrors the schedule onto the payment gateway as a
// subscription. The persisted gateway subscription id is the idempotency
// guard: an already-synced schedule returns immediately without touching
// the gateway. Gateway failures propagate unmodified and leave the
// schedule unsynced.
func (s *ScheduleService) SyncWithGateway(ctx context.Context, schedule *billing.PaymentSchedule, productID string) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "billing", "sync_payment_schedule")
	defer span.End()

	if schedule == nil {
		return shared.NewDomainError("SCHEDULE_NOT_FOUND", "Payment schedule not found")
	}
	if schedule.IsSynced() {
		s.logger.Debug("Payment schedule already synchronized, skipping",
			zap.String("reference", schedule.Reference),
			zap.String("subscription_id", schedule.GatewaySubscriptionID))
		return nil
	}

	first := schedule.FirstItem()
	if first == nil || first.Details == nil {
		return shared.NewDomainError("INVALID_SCHEDULE", "Payment schedule has no first deadline details")
	}

	customer, err := s.profileRepo.FindByID(ctx, schedule.CustomerID)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if customer == nil || !customer.HasGatewayCustomer() {
		return shared.NewDomainError("CUSTOMER_NOT_ON_GATEWAY", "Customer has no gateway account")
	}

	currency := strings.ToLower(string(first.Amount.Currency()))

	recurring, err := s.gateway.CreatePrice(ctx, billing.CreatePriceInput{
		ProductID:  productID,
		UnitAmount: first.Details.Recurring.Cents(),
		Currency:   currency,
		Recurring:  true,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	upfront, err := s.createUpfrontPrices(ctx, schedule, productID, currency)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	promotionCode, err := s.promotionCode(ctx, schedule)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	subscription, err := s.gateway.CreateSubscription(ctx, billing.CreateSubscriptionInput{
		CustomerID:       customer.GatewayCustomerID,
		CancelAt:         schedule.ExpiresAt,
		PromotionCode:    promotionCode,
		UpfrontPriceIDs:  upfront,
		RecurringPriceID: recurring.PriceID,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	if err := schedule.AttachGatewaySubscription(subscription.SubscriptionID); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if subscription.ClientSecret != "" {
		// kept for the 3-D Secure confirmation replay on the first deadline
		first.GatewayClientSecret = subscription.ClientSecret
	}

	if err := s.scheduleRepo.SaveWithLock(ctx, schedule); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to save synchronized schedule: %w", err)
	}

	s.publishEvents(ctx, schedule.GetDomainEvents())
	schedule.ClearDomainEvents()

	s.logger.Info("Payment schedule synchronized with gateway",
		zap.String("reference", schedule.Reference),
		zap.String("subscription_id", subscription.SubscriptionID),
		zap.Int("upfront_items", len(upfront)))
	return nil
}

// createUpfrontPrices creates the one-time price objects billed with the
// first gateway invoice. There is nothing to create when every deadline
// carries the same amount; otherwise the first deadline's adjustment and
// bundled one-off items become separate prices, zero amounts skipped.
func (s *ScheduleService) createUpfrontPrices(
	ctx context.Context,
	schedule *billing.PaymentSchedule,
	productID, currency string,
) ([]string, error) {
	first := schedule.FirstItem()
	second := schedule.SecondItem()
	if second == nil || first.Amount.Equals(second.Amount) {
		return nil, nil
	}

	oneTime := []struct {
		name   string
		amount valueobject.Money
	}{
		{"First deadline adjustment", first.Details.Adjustment},
		{"One-off purchase", first.Details.OtherItems},
	}

	var priceIDs []string
	for _, line := range oneTime {
		if line.amount.IsZero() {
			continue
		}
		price, err := s.gateway.CreatePrice(ctx, billing.CreatePriceInput{
			ProductID:  productID,
			UnitAmount: line.amount.Cents(),
			Currency:   currency,
			Name:       line.name,
			Recurring:  false,
		})
		if err != nil {
			return nil, err
		}
		priceIDs = append(priceIDs, price.PriceID)
	}
	return priceIDs, nil
}

func (s *ScheduleService) promotionCode(ctx context.Context, schedule *billing.PaymentSchedule) (string, error) {
	if schedule.CouponID == nil {
		return "", nil
	}
	coupon, err := s.couponRepo.FindByID(ctx, *schedule.CouponID)
	if err != nil {
		return "", err
	}
	if coupon == nil {
		return "", nil
	}
	return coupon.Code, nil
}

func (s *ScheduleService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.eventBus == nil || len(events) == 0 {
		return
	}
	if err := s.eventBus.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish schedule events", zap.Error(err))
	}
}
