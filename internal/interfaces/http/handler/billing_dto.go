package handler

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fablab/backend/internal/domain/billing"
	"github.com/fablab/backend/internal/domain/shared"
	"github.com/fablab/backend/internal/interfaces/http/dto"
)

// InvoiceListRequest is the query surface of the invoice listing endpoint.
type InvoiceListRequest struct {
	dto.ListRequest
	Reference string `form:"reference" binding:"omitempty,max=30"`
	Customer  string `form:"customer" binding:"omitempty,max=100"`
	Date      string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

// ScheduleListRequest is the query surface of the schedule listing endpoint.
type ScheduleListRequest struct {
	dto.ListRequest
	CustomerID string `form:"customer_id" binding:"omitempty,uuid"`
	PlanID     string `form:"plan_id" binding:"omitempty,uuid"`
}

// InvoiceItemView is one line of an invoice.
type InvoiceItemView struct {
	ID             uuid.UUID  `json:"id"`
	Amount         string     `json:"amount"`
	Description    string     `json:"description"`
	SubscriptionID *uuid.UUID `json:"subscription_id,omitempty"`
}

// InvoiceView is the serialized form of an invoice.
type InvoiceView struct {
	ID               uuid.UUID         `json:"id"`
	Reference        string            `json:"reference"`
	IssuedAt         time.Time         `json:"issued_at"`
	CustomerID       uuid.UUID         `json:"customer_id"`
	OperatorID       uuid.UUID         `json:"operator_id"`
	Total            string            `json:"total"`
	Currency         string            `json:"currency"`
	CouponID         *uuid.UUID        `json:"coupon_id,omitempty"`
	PaymentMethod    string            `json:"payment_method"`
	GatewayPaymentID string            `json:"gateway_payment_id,omitempty"`
	Items            []InvoiceItemView `json:"items"`
}

func NewInvoiceView(inv *billing.Invoice) InvoiceView {
	items := make([]InvoiceItemView, 0, len(inv.Items))
	for _, item := range inv.Items {
		items = append(items, InvoiceItemView{
			ID:             item.ID,
			Amount:         item.Amount.Amount().StringFixed(2),
			Description:    item.Description,
			SubscriptionID: item.SubscriptionID,
		})
	}
	return InvoiceView{
		ID:               inv.ID,
		Reference:        inv.Reference,
		IssuedAt:         inv.IssuedAt,
		CustomerID:       inv.CustomerID,
		OperatorID:       inv.OperatorID,
		Total:            inv.Total.Amount().StringFixed(2),
		Currency:         string(inv.Total.Currency()),
		CouponID:         inv.CouponID,
		PaymentMethod:    string(inv.PaymentMethod),
		GatewayPaymentID: inv.GatewayPaymentID,
		Items:            items,
	}
}

// DeadlineDetailsView decomposes the first deadline amount.
type DeadlineDetailsView struct {
	Recurring  string `json:"recurring"`
	Adjustment string `json:"adjustment"`
	OtherItems string `json:"other_items"`
}

// ScheduleItemView is one deadline of a payment schedule.
type ScheduleItemView struct {
	ID            uuid.UUID            `json:"id"`
	DueDate       time.Time            `json:"due_date"`
	Amount        string               `json:"amount"`
	State         string               `json:"state"`
	PaymentMethod string               `json:"payment_method,omitempty"`
	InvoiceID     *uuid.UUID           `json:"invoice_id,omitempty"`
	Details       *DeadlineDetailsView `json:"details,omitempty"`
}

// ScheduleView is the serialized form of a payment schedule.
type ScheduleView struct {
	ID                    uuid.UUID          `json:"id"`
	Reference             string             `json:"reference"`
	CustomerID            uuid.UUID          `json:"customer_id"`
	PlanID                uuid.UUID          `json:"plan_id"`
	Total                 string             `json:"total"`
	Currency              string             `json:"currency"`
	CouponID              *uuid.UUID         `json:"coupon_id,omitempty"`
	GatewaySubscriptionID string             `json:"gateway_subscription_id,omitempty"`
	Synced                bool               `json:"synced"`
	ExpiresAt             time.Time          `json:"expires_at"`
	Items                 []ScheduleItemView `json:"items"`
}

func NewScheduleView(schedule *billing.PaymentSchedule) ScheduleView {
	items := make([]ScheduleItemView, 0, len(schedule.Items))
	for _, item := range schedule.Items {
		view := ScheduleItemView{
			ID:            item.ID,
			DueDate:       item.DueDate,
			Amount:        item.Amount.Amount().StringFixed(2),
			State:         string(item.State),
			PaymentMethod: string(item.PaymentMethod),
			InvoiceID:     item.InvoiceID,
		}
		if item.Details != nil {
			view.Details = &DeadlineDetailsView{
				Recurring:  item.Details.Recurring.Amount().StringFixed(2),
				Adjustment: item.Details.Adjustment.Amount().StringFixed(2),
				OtherItems: item.Details.OtherItems.Amount().StringFixed(2),
			}
		}
		items = append(items, view)
	}
	return ScheduleView{
		ID:                    schedule.ID,
		Reference:             schedule.Reference,
		CustomerID:            schedule.CustomerID,
		PlanID:                schedule.PlanID,
		Total:                 schedule.Total.Amount().StringFixed(2),
		Currency:              string(schedule.Total.Currency()),
		CouponID:              schedule.CouponID,
		GatewaySubscriptionID: schedule.GatewaySubscriptionID,
		Synced:                schedule.IsSynced(),
		ExpiresAt:             schedule.ExpiresAt,
		Items:                 items,
	}
}

func paginationMeta[T any](page *shared.Paginated[T]) dto.Meta {
	return dto.Meta{
		Page:       page.Page,
		PageSize:   page.PageSize,
		Total:      page.Total,
		TotalPages: page.TotalPages,
	}
}

// parseSort splits a "column" or "-column" sort expression into the
// repository's order-by column and direction. Unknown columns fall back
// to the provided default.
func parseSort(sort string, columns map[string]string, defaultColumn string) (string, string) {
	dir := "asc"
	if strings.HasPrefix(sort, "-") {
		dir = "desc"
		sort = strings.TrimPrefix(sort, "-")
	}
	if column, ok := columns[sort]; ok {
		return column, dir
	}
	return defaultColumn, "desc"
}
