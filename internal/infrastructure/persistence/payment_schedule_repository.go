package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/fablab/backend/internal/domain/billing"
	"github.com/fablab/backend/internal/domain/shared"
	"github.com/fablab/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPaymentScheduleRepository implements PaymentScheduleRepository using GORM
type GormPaymentScheduleRepository struct {
	db *gorm.DB
}

// NewGormPaymentScheduleRepository creates a new GormPaymentScheduleRepository
func NewGormPaymentScheduleRepository(db *gorm.DB) *GormPaymentScheduleRepository {
	return &GormPaymentScheduleRepository{db: db}
}

// FindByID finds a payment schedule with its items by ID
func (r *GormPaymentScheduleRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.PaymentSchedule, error) {
	var model models.PaymentScheduleModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByItemID finds the schedule owning the given deadline
func (r *GormPaymentScheduleRepository) FindByItemID(ctx context.Context, itemID uuid.UUID) (*billing.PaymentSchedule, error) {
	var item models.PaymentScheduleItemModel
	if err := r.db.WithContext(ctx).
		Select("schedule_id").
		First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return r.FindByID(ctx, item.ScheduleID)
}

// FindByGatewaySubscriptionID finds the schedule attached to a gateway subscription
func (r *GormPaymentScheduleRepository) FindByGatewaySubscriptionID(ctx context.Context, subscriptionID string) (*billing.PaymentSchedule, error) {
	if subscriptionID == "" {
		return nil, shared.NewDomainError("INVALID_SUBSCRIPTION_ID", "Gateway subscription ID cannot be empty")
	}
	var model models.PaymentScheduleModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("gateway_subscription_id = ?", subscriptionID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds all payment schedules matching the filter
func (r *GormPaymentScheduleRepository) FindAll(ctx context.Context, filter shared.Filter) ([]billing.PaymentSchedule, error) {
	var scheduleModels []models.PaymentScheduleModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.PaymentScheduleModel{}), filter)

	if err := query.Preload("Items").Find(&scheduleModels).Error; err != nil {
		return nil, err
	}

	schedules := make([]billing.PaymentSchedule, len(scheduleModels))
	for i, model := range scheduleModels {
		schedules[i] = *model.ToDomain()
	}
	return schedules, nil
}

// Count counts payment schedules matching the filter
func (r *GormPaymentScheduleRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.PaymentScheduleModel{})
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save persists the schedule and its items
func (r *GormPaymentScheduleRepository) Save(ctx context.Context, schedule *billing.PaymentSchedule) error {
	model := models.PaymentScheduleModelFromDomain(schedule)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock saves the schedule guarded by its aggregate version. The row
// is matched on the version the aggregate was loaded with and rewritten with
// version+1; zero rows affected means a concurrent writer won. Items are
// saved inside the same transaction, and the in-memory version is bumped
// only after the write succeeds.
func (r *GormPaymentScheduleRepository) SaveWithLock(ctx context.Context, schedule *billing.PaymentSchedule) error {
	model := models.PaymentScheduleModelFromDomain(schedule)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.PaymentScheduleModel{}).
			Where("id = ? AND version = ?", schedule.ID, schedule.Version).
			Updates(map[string]interface{}{
				"reference":               model.Reference,
				"customer_id":             model.CustomerID,
				"plan_id":                 model.PlanID,
				"total":                   model.Total,
				"currency":                model.Currency,
				"coupon_id":               model.CouponID,
				"gateway_subscription_id": model.GatewaySubscriptionID,
				"expires_at":              model.ExpiresAt,
				"version":                 schedule.Version + 1,
				"updated_at":              time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		for i := range model.Items {
			if err := tx.Save(&model.Items[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	schedule.IncrementVersion()
	return nil
}

// CountIssuedOn counts schedules created within the given calendar day
func (r *GormPaymentScheduleRepository) CountIssuedOn(ctx context.Context, day time.Time) (int64, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentScheduleModel{}).
		Where("created_at >= ? AND created_at < ?", start, end).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormPaymentScheduleRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	// Apply pagination
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	// Apply ordering
	if filter.OrderBy != "" {
		orderBy := ValidateSortField(filter.OrderBy, PaymentScheduleSortFields, "created_at")
		query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("created_at DESC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormPaymentScheduleRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("LOWER(reference) LIKE LOWER(?)", "%"+filter.Search+"%")
	}

	for key, value := range filter.Filters {
		switch key {
		case "customer_id":
			query = query.Where("customer_id = ?", value)
		case "plan_id":
			query = query.Where("plan_id = ?", value)
		case "synced":
			if value == true {
				query = query.Where("gateway_subscription_id <> ''")
			} else {
				query = query.Where("gateway_subscription_id = ''")
			}
		}
	}

	return query
}

// Ensure GormPaymentScheduleRepository implements PaymentScheduleRepository
var _ billing.PaymentScheduleRepository = (*GormPaymentScheduleRepository)(nil)
