package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/fablab/backend/internal/domain/billing"
	"github.com/fablab/backend/internal/domain/shared"
	"github.com/fablab/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCouponRepository implements CouponRepository using GORM
type GormCouponRepository struct {
	db *gorm.DB
}

// NewGormCouponRepository creates a new GormCouponRepository
func NewGormCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// FindByID finds a coupon by its ID
func (r *GormCouponRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Coupon, error) {
	var model models.CouponModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCode finds a coupon by its code. Codes are stored uppercase.
func (r *GormCouponRepository) FindByCode(ctx context.Context, code string) (*billing.Coupon, error) {
	if code == "" {
		return nil, shared.NewDomainError("INVALID_COUPON_CODE", "Coupon code cannot be empty")
	}
	var model models.CouponModel
	if err := r.db.WithContext(ctx).
		Where("code = ?", strings.ToUpper(code)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a coupon
func (r *GormCouponRepository) Save(ctx context.Context, coupon *billing.Coupon) error {
	model := models.CouponModelFromDomain(coupon)
	return r.db.WithContext(ctx).Save(model).Error
}

// Ensure GormCouponRepository implements CouponRepository
var _ billing.CouponRepository = (*GormCouponRepository)(nil)
