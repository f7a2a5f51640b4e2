package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fablab/backend/internal/domain/billing"
	"github.com/fablab/backend/internal/domain/shared/valueobject"
)

// moneyFrom rebuilds a Money value from its stored columns. An empty
// currency yields the zero Money, which is how optional amounts
// (e.g. the fixed part of a percentage coupon) round-trip.
func moneyFrom(amount decimal.Decimal, currency string) valueobject.Money {
	if currency == "" {
		return valueobject.Money{}
	}
	m, _ := valueobject.NewMoney(amount, valueobject.Currency(currency))
	return m
}

// PlanModel is the persistence model for the Plan aggregate root.
type PlanModel struct {
	AggregateModel
	Name             string          `gorm:"type:varchar(200);not null"`
	Price            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency         string          `gorm:"type:varchar(3);not null;default:'EUR'"`
	DurationMonths   int             `gorm:"not null"`
	MonthlyPayment   bool            `gorm:"not null;default:false"`
	GatewayProductID string          `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (PlanModel) TableName() string {
	return "plans"
}

// ToDomain converts the persistence model to a domain Plan entity.
func (m *PlanModel) ToDomain() *billing.Plan {
	return &billing.Plan{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Name:              m.Name,
		Price:             moneyFrom(m.Price, m.Currency),
		DurationMonths:    m.DurationMonths,
		MonthlyPayment:    m.MonthlyPayment,
		GatewayProductID:  m.GatewayProductID,
	}
}

// FromDomain populates the persistence model from a domain Plan entity.
func (m *PlanModel) FromDomain(p *billing.Plan) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.Name = p.Name
	m.Price = p.Price.Amount()
	m.Currency = string(p.Price.Currency())
	m.DurationMonths = p.DurationMonths
	m.MonthlyPayment = p.MonthlyPayment
	m.GatewayProductID = p.GatewayProductID
}

// PlanModelFromDomain creates a new persistence model from a domain Plan entity.
func PlanModelFromDomain(p *billing.Plan) *PlanModel {
	m := &PlanModel{}
	m.FromDomain(p)
	return m
}

// CouponModel is the persistence model for the Coupon aggregate root.
type CouponModel struct {
	AggregateModel
	Code       string             `gorm:"type:varchar(50);not null;uniqueIndex"`
	Kind       billing.CouponKind `gorm:"type:varchar(10);not null"`
	Percentage decimal.Decimal    `gorm:"type:decimal(5,2);not null;default:0"`
	Amount     decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:0"`
	Currency   string             `gorm:"type:varchar(3)"`
	ValidFrom  time.Time          `gorm:"not null"`
	ValidUntil *time.Time
	Active     bool `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (CouponModel) TableName() string {
	return "coupons"
}

// ToDomain converts the persistence model to a domain Coupon entity.
func (m *CouponModel) ToDomain() *billing.Coupon {
	return &billing.Coupon{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Code:              m.Code,
		Kind:              m.Kind,
		Percentage:        m.Percentage,
		Amount:            moneyFrom(m.Amount, m.Currency),
		ValidFrom:         m.ValidFrom,
		ValidUntil:        m.ValidUntil,
		Active:            m.Active,
	}
}

// FromDomain populates the persistence model from a domain Coupon entity.
func (m *CouponModel) FromDomain(c *billing.Coupon) {
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	m.Code = c.Code
	m.Kind = c.Kind
	m.Percentage = c.Percentage
	m.Amount = c.Amount.Amount()
	m.Currency = string(c.Amount.Currency())
	m.ValidFrom = c.ValidFrom
	m.ValidUntil = c.ValidUntil
	m.Active = c.Active
}

// CouponModelFromDomain creates a new persistence model from a domain Coupon entity.
func CouponModelFromDomain(c *billing.Coupon) *CouponModel {
	m := &CouponModel{}
	m.FromDomain(c)
	return m
}

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	AggregateModel
	Reference        string                `gorm:"type:varchar(30);not null;uniqueIndex"`
	IssuedAt         time.Time             `gorm:"not null;index"`
	CustomerID       uuid.UUID             `gorm:"type:uuid;not null;index"`
	OperatorID       uuid.UUID             `gorm:"type:uuid;not null"`
	Total            decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Currency         string                `gorm:"type:varchar(3);not null;default:'EUR'"`
	CouponID         *uuid.UUID            `gorm:"type:uuid"`
	GatewayPaymentID string                `gorm:"type:varchar(100)"`
	PaymentMethod    billing.PaymentMethod `gorm:"type:varchar(20)"`
	Items            []InvoiceItemModel    `gorm:"foreignKey:InvoiceID;references:ID"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice entity.
// Persisted invoices are always finalized.
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	inv := &billing.Invoice{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Reference:         m.Reference,
		IssuedAt:          m.IssuedAt,
		CustomerID:        m.CustomerID,
		OperatorID:        m.OperatorID,
		Total:             moneyFrom(m.Total, m.Currency),
		CouponID:          m.CouponID,
		GatewayPaymentID:  m.GatewayPaymentID,
		PaymentMethod:     m.PaymentMethod,
		Items:             make([]billing.InvoiceItem, len(m.Items)),
	}
	for i, item := range m.Items {
		inv.Items[i] = *item.ToDomain()
	}
	inv.MarkFinalized()
	return inv
}

// FromDomain populates the persistence model from a domain Invoice entity.
func (m *InvoiceModel) FromDomain(inv *billing.Invoice) {
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	m.Reference = inv.Reference
	m.IssuedAt = inv.IssuedAt
	m.CustomerID = inv.CustomerID
	m.OperatorID = inv.OperatorID
	m.Total = inv.Total.Amount()
	m.Currency = string(inv.Total.Currency())
	m.CouponID = inv.CouponID
	m.GatewayPaymentID = inv.GatewayPaymentID
	m.PaymentMethod = inv.PaymentMethod
	m.Items = make([]InvoiceItemModel, len(inv.Items))
	for i, item := range inv.Items {
		m.Items[i] = *InvoiceItemModelFromDomain(&item)
	}
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice entity.
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// InvoiceItemModel is the persistence model for the InvoiceItem entity.
type InvoiceItemModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key"`
	InvoiceID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Currency       string          `gorm:"type:varchar(3);not null;default:'EUR'"`
	Description    string          `gorm:"type:varchar(500);not null"`
	SubscriptionID *uuid.UUID      `gorm:"type:uuid"`
	CreatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoiceItemModel) TableName() string {
	return "invoice_items"
}

// ToDomain converts the persistence model to a domain InvoiceItem entity.
func (m *InvoiceItemModel) ToDomain() *billing.InvoiceItem {
	return &billing.InvoiceItem{
		ID:             m.ID,
		InvoiceID:      m.InvoiceID,
		Amount:         moneyFrom(m.Amount, m.Currency),
		Description:    m.Description,
		SubscriptionID: m.SubscriptionID,
		CreatedAt:      m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain InvoiceItem entity.
func (m *InvoiceItemModel) FromDomain(i *billing.InvoiceItem) {
	m.ID = i.ID
	m.InvoiceID = i.InvoiceID
	m.Amount = i.Amount.Amount()
	m.Currency = string(i.Amount.Currency())
	m.Description = i.Description
	m.SubscriptionID = i.SubscriptionID
	m.CreatedAt = i.CreatedAt
}

// InvoiceItemModelFromDomain creates a new persistence model from a domain InvoiceItem entity.
func InvoiceItemModelFromDomain(i *billing.InvoiceItem) *InvoiceItemModel {
	m := &InvoiceItemModel{}
	m.FromDomain(i)
	return m
}

// PaymentScheduleModel is the persistence model for the PaymentSchedule aggregate root.
type PaymentScheduleModel struct {
	AggregateModel
	Reference             string                     `gorm:"type:varchar(30);not null;uniqueIndex"`
	CustomerID            uuid.UUID                  `gorm:"type:uuid;not null;index"`
	PlanID                uuid.UUID                  `gorm:"type:uuid;not null;index"`
	Total                 decimal.Decimal            `gorm:"type:decimal(18,4);not null"`
	Currency              string                     `gorm:"type:varchar(3);not null;default:'EUR'"`
	CouponID              *uuid.UUID                 `gorm:"type:uuid"`
	GatewaySubscriptionID string                     `gorm:"type:varchar(100);index"`
	ExpiresAt             time.Time                  `gorm:"not null"`
	Items                 []PaymentScheduleItemModel `gorm:"foreignKey:ScheduleID;references:ID"`
}

// TableName returns the table name for GORM
func (PaymentScheduleModel) TableName() string {
	return "payment_schedules"
}

// ToDomain converts the persistence model to a domain PaymentSchedule entity.
func (m *PaymentScheduleModel) ToDomain() *billing.PaymentSchedule {
	schedule := &billing.PaymentSchedule{
		BaseAggregateRoot:     m.ToDomainAggregateRoot(),
		Reference:             m.Reference,
		CustomerID:            m.CustomerID,
		PlanID:                m.PlanID,
		Total:                 moneyFrom(m.Total, m.Currency),
		CouponID:              m.CouponID,
		GatewaySubscriptionID: m.GatewaySubscriptionID,
		ExpiresAt:             m.ExpiresAt,
		Items:                 make([]billing.PaymentScheduleItem, len(m.Items)),
	}
	for i, item := range m.Items {
		schedule.Items[i] = *item.ToDomain()
	}
	return schedule
}

// FromDomain populates the persistence model from a domain PaymentSchedule entity.
func (m *PaymentScheduleModel) FromDomain(s *billing.PaymentSchedule) {
	m.FromDomainAggregateRoot(s.BaseAggregateRoot)
	m.Reference = s.Reference
	m.CustomerID = s.CustomerID
	m.PlanID = s.PlanID
	m.Total = s.Total.Amount()
	m.Currency = string(s.Total.Currency())
	m.CouponID = s.CouponID
	m.GatewaySubscriptionID = s.GatewaySubscriptionID
	m.ExpiresAt = s.ExpiresAt
	m.Items = make([]PaymentScheduleItemModel, len(s.Items))
	for i, item := range s.Items {
		m.Items[i] = *PaymentScheduleItemModelFromDomain(&item)
	}
}

// PaymentScheduleModelFromDomain creates a new persistence model from a domain PaymentSchedule entity.
func PaymentScheduleModelFromDomain(s *billing.PaymentSchedule) *PaymentScheduleModel {
	m := &PaymentScheduleModel{}
	m.FromDomain(s)
	return m
}

// PaymentScheduleItemModel is the persistence model for the PaymentScheduleItem entity.
// The nullable details columns carry the first deadline's decomposition;
// they are set only on the first item of a schedule.
type PaymentScheduleItemModel struct {
	ID                  uuid.UUID             `gorm:"type:uuid;primary_key"`
	ScheduleID          uuid.UUID             `gorm:"type:uuid;not null;index"`
	DueDate             time.Time             `gorm:"not null;index"`
	Amount              decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Currency            string                `gorm:"type:varchar(3);not null;default:'EUR'"`
	State               billing.DeadlineState `gorm:"type:varchar(30);not null;default:'PENDING'"`
	PaymentMethod       billing.PaymentMethod `gorm:"type:varchar(20)"`
	InvoiceID           *uuid.UUID            `gorm:"type:uuid"`
	GatewayClientSecret string                `gorm:"type:varchar(200)"`
	DetailsRecurring    *decimal.Decimal      `gorm:"type:decimal(18,4)"`
	DetailsAdjustment   *decimal.Decimal      `gorm:"type:decimal(18,4)"`
	DetailsOtherItems   *decimal.Decimal      `gorm:"type:decimal(18,4)"`
	CreatedAt           time.Time             `gorm:"not null"`
	UpdatedAt           time.Time             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentScheduleItemModel) TableName() string {
	return "payment_schedule_items"
}

// ToDomain converts the persistence model to a domain PaymentScheduleItem entity.
func (m *PaymentScheduleItemModel) ToDomain() *billing.PaymentScheduleItem {
	item := &billing.PaymentScheduleItem{
		ID:                  m.ID,
		ScheduleID:          m.ScheduleID,
		DueDate:             m.DueDate,
		Amount:              moneyFrom(m.Amount, m.Currency),
		State:               m.State,
		PaymentMethod:       m.PaymentMethod,
		InvoiceID:           m.InvoiceID,
		GatewayClientSecret: m.GatewayClientSecret,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
	if m.DetailsRecurring != nil {
		item.Details = &billing.FirstDeadlineDetails{
			Recurring:  moneyFrom(*m.DetailsRecurring, m.Currency),
			Adjustment: moneyFrom(zeroIfNil(m.DetailsAdjustment), m.Currency),
			OtherItems: moneyFrom(zeroIfNil(m.DetailsOtherItems), m.Currency),
		}
	}
	return item
}

// FromDomain populates the persistence model from a domain PaymentScheduleItem entity.
func (m *PaymentScheduleItemModel) FromDomain(i *billing.PaymentScheduleItem) {
	m.ID = i.ID
	m.ScheduleID = i.ScheduleID
	m.DueDate = i.DueDate
	m.Amount = i.Amount.Amount()
	m.Currency = string(i.Amount.Currency())
	m.State = i.State
	m.PaymentMethod = i.PaymentMethod
	m.InvoiceID = i.InvoiceID
	m.GatewayClientSecret = i.GatewayClientSecret
	m.CreatedAt = i.CreatedAt
	m.UpdatedAt = i.UpdatedAt
	if i.Details != nil {
		recurring := i.Details.Recurring.Amount()
		adjustment := i.Details.Adjustment.Amount()
		otherItems := i.Details.OtherItems.Amount()
		m.DetailsRecurring = &recurring
		m.DetailsAdjustment = &adjustment
		m.DetailsOtherItems = &otherItems
	}
}

// PaymentScheduleItemModelFromDomain creates a new persistence model from a domain PaymentScheduleItem entity.
func PaymentScheduleItemModelFromDomain(i *billing.PaymentScheduleItem) *PaymentScheduleItemModel {
	m := &PaymentScheduleItemModel{}
	m.FromDomain(i)
	return m
}

func zeroIfNil(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
