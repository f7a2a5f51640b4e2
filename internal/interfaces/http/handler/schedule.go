package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appbilling "github.com/fablab/backend/internal/application/billing"
	appprinting "github.com/fablab/backend/internal/application/printing"
	"github.com/fablab/backend/internal/domain/billing"
	"github.com/fablab/backend/internal/domain/shared"
	"github.com/fablab/backend/internal/interfaces/http/dto"
	"github.com/fablab/backend/internal/interfaces/http/middleware"
)

var scheduleSortColumns = map[string]string{
	"reference": "reference",
	"date":      "created_at",
	"total":     "total",
}

// ConfirmPaymentRequest carries the gateway payment intent to verify.
type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id" binding:"required,max=100"`
}

// CashCheckRequest selects the physical instrument settling a deadline.
type CashCheckRequest struct {
	PaymentMethod string `json:"payment_method" binding:"required,oneof=CHECK TRANSFER CASH"`
}

// ScheduleHandler serves payment schedule endpoints, including deadline
// settlement and gateway synchronization.
type ScheduleHandler struct {
	BaseHandler
	schedules *appbilling.ScheduleService
	payments  *appbilling.PaymentService
	documents *appprinting.DocumentService
}

func NewScheduleHandler(
	schedules *appbilling.ScheduleService,
	payments *appbilling.PaymentService,
	documents *appprinting.DocumentService,
	logger *zap.Logger,
) *ScheduleHandler {
	return &ScheduleHandler{
		BaseHandler: NewBaseHandler(logger),
		schedules:   schedules,
		payments:    payments,
		documents:   documents,
	}
}

// List handles GET /api/v1/payment-schedules. Members only see their own
// schedules.
func (h *ScheduleHandler) List(c *gin.Context) {
	var req ScheduleListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err)
		return
	}

	orderBy, orderDir := parseSort(req.Sort, scheduleSortColumns, "created_at")
	filter := shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  orderBy,
		OrderDir: orderDir,
		Filters:  map[string]interface{}{},
	}
	if req.CustomerID != "" {
		filter.Filters["customer_id"] = req.CustomerID
	}
	if req.PlanID != "" {
		filter.Filters["plan_id"] = req.PlanID
	}

	role, _ := middleware.GetRole(c)
	if !role.IsPrivileged() {
		profileID, ok := middleware.GetProfileID(c)
		if !ok {
			h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "authentication required")
			return
		}
		filter.Filters["customer_id"] = profileID
	}

	page, err := h.schedules.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	views := make([]ScheduleView, 0, len(page.Items))
	for i := range page.Items {
		views = append(views, NewScheduleView(&page.Items[i]))
	}
	h.SuccessWithMeta(c, views, paginationMeta(page))
}

// Get handles GET /api/v1/payment-schedules/:id.
func (h *ScheduleHandler) Get(c *gin.Context) {
	scheduleID, ok := h.bindScheduleID(c)
	if !ok {
		return
	}

	schedule, err := h.schedules.Get(c.Request.Context(), scheduleID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !h.canAccessSchedule(c, schedule.CustomerID) {
		return
	}
	h.Success(c, NewScheduleView(schedule))
}

// Sync handles POST /api/v1/payment-schedules/:id/sync and mirrors the
// schedule onto the payment gateway.
func (h *ScheduleHandler) Sync(c *gin.Context) {
	scheduleID, ok := h.bindScheduleID(c)
	if !ok {
		return
	}

	schedule, err := h.schedules.Sync(c.Request.Context(), scheduleID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, NewScheduleView(schedule))
}

// Confirm handles POST /api/v1/payment-schedules/items/:id/confirm. The
// gateway's view of the payment intent decides the deadline's next state.
func (h *ScheduleHandler) Confirm(c *gin.Context) {
	itemID, ok := h.bindScheduleID(c)
	if !ok {
		return
	}

	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}

	result, err := h.payments.ConfirmPayment(c.Request.Context(), itemID, req.PaymentIntentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// CashCheck handles POST /api/v1/payment-schedules/items/:id/cash-check,
// settling a deadline with a physical instrument.
func (h *ScheduleHandler) CashCheck(c *gin.Context) {
	itemID, ok := h.bindScheduleID(c)
	if !ok {
		return
	}

	var req CashCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}

	result, err := h.payments.CashCheck(c.Request.Context(), itemID, billing.PaymentMethod(req.PaymentMethod))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Download handles GET /api/v1/payment-schedules/:id/download.
func (h *ScheduleHandler) Download(c *gin.Context) {
	scheduleID, ok := h.bindScheduleID(c)
	if !ok {
		return
	}

	schedule, err := h.schedules.Get(c.Request.Context(), scheduleID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !h.canAccessSchedule(c, schedule.CustomerID) {
		return
	}

	doc, err := h.documents.SchedulePDF(c.Request.Context(), scheduleID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	c.Data(http.StatusOK, "application/pdf", doc.Data)
}

func (h *ScheduleHandler) bindScheduleID(c *gin.Context) (uuid.UUID, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, err)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, err)
		return uuid.Nil, false
	}
	return id, true
}

func (h *ScheduleHandler) canAccessSchedule(c *gin.Context, customerID uuid.UUID) bool {
	role, _ := middleware.GetRole(c)
	if role.IsPrivileged() {
		return true
	}
	profileID, ok := middleware.GetProfileID(c)
	if !ok || profileID != customerID {
		h.Error(c, http.StatusForbidden, dto.ErrCodeForbidden, "insufficient privileges")
		return false
	}
	return true
}
