package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fablab/backend/internal/domain/billing"
	"github.com/fablab/backend/internal/domain/shared"
	"github.com/fablab/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice with its items by ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
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

// FindByReference finds an invoice with its items by reference
func (r *GormInvoiceRepository) FindByReference(ctx context.Context, reference string) (*billing.Invoice, error) {
	if reference == "" {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Invoice reference cannot be empty")
	}
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("reference = ?", reference).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds all invoices matching the filter
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter shared.Filter) ([]billing.Invoice, error) {
	var invoiceModels []models.InvoiceModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.InvoiceModel{}), filter)

	if err := query.Preload("Items").Find(&invoiceModels).Error; err != nil {
		return nil, err
	}

	invoices := make([]billing.Invoice, len(invoiceModels))
	for i, model := range invoiceModels {
		invoices[i] = *model.ToDomain()
	}
	return invoices, nil
}

// Count counts invoices matching the filter
func (r *GormInvoiceRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{})
	query = r.applyFilterWithoutPagination(query, filter)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save persists the invoice and its items
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	return r.db.WithContext(ctx).Save(model).Error
}

// CountIssuedOn counts invoices issued within the given calendar day
func (r *GormInvoiceRepository) CountIssuedOn(ctx context.Context, day time.Time) (int64, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.AddDate(0, 0, 1)

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("issued_at >= ? AND issued_at < ?", start, end).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options to the query
func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	// Apply pagination
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	// Apply ordering. Customer name sorts on the joined profile columns.
	if filter.OrderBy == "customer_name" {
		dir := ValidateSortOrder(filter.OrderDir)
		query = query.Order("profiles.last_name " + dir + ", profiles.first_name " + dir)
	} else if filter.OrderBy != "" {
		orderBy := ValidateSortField(filter.OrderBy, InvoiceSortFields, "issued_at")
		query = query.Order("invoices." + orderBy + " " + ValidateSortOrder(filter.OrderDir))
	} else {
		query = query.Order("invoices.issued_at DESC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination.
// Search matches the invoice reference and the customer's name and email.
func (r *GormInvoiceRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if invoiceFilterNeedsProfiles(filter) {
		query = query.Joins("LEFT JOIN profiles ON profiles.id = invoices.customer_id")
	}

	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.
			Where("LOWER(invoices.reference) LIKE LOWER(?)"+
				" OR LOWER(profiles.first_name) LIKE LOWER(?)"+
				" OR LOWER(profiles.last_name) LIKE LOWER(?)"+
				" OR LOWER(profiles.email) LIKE LOWER(?)",
				searchPattern, searchPattern, searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "reference_prefix":
			query = query.Where("invoices.reference LIKE ?", fmt.Sprintf("%v%%", value))
		case "customer_name":
			pattern := fmt.Sprintf("%%%v%%", value)
			query = query.Where("LOWER(profiles.first_name) LIKE LOWER(?) OR LOWER(profiles.last_name) LIKE LOWER(?)",
				pattern, pattern)
		case "customer_id":
			query = query.Where("invoices.customer_id = ?", value)
		case "payment_method":
			query = query.Where("invoices.payment_method = ?", value)
		case "issued_after":
			query = query.Where("invoices.issued_at >= ?", value)
		case "issued_before":
			query = query.Where("invoices.issued_at < ?", value)
		}
	}

	return query
}

// invoiceFilterNeedsProfiles reports whether the filter touches customer
// profile columns and needs the join. Profiles join on their primary key,
// so the left join never multiplies invoice rows.
func invoiceFilterNeedsProfiles(filter shared.Filter) bool {
	if filter.Search != "" || filter.OrderBy == "customer_name" {
		return true
	}
	_, ok := filter.Filters["customer_name"]
	return ok
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)
