package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appbilling "github.com/fablab/backend/internal/application/billing"
	appprinting "github.com/fablab/backend/internal/application/printing"
	"github.com/fablab/backend/internal/domain/shared"
	"github.com/fablab/backend/internal/interfaces/http/dto"
	"github.com/fablab/backend/internal/interfaces/http/middleware"
)

// invoiceSortColumns maps API sort names onto repository columns.
var invoiceSortColumns = map[string]string{
	"reference": "reference",
	"date":      "issued_at",
	"total":     "total",
	"customer":  "customer_name",
}

// InvoiceHandler serves the invoice listing, detail and download endpoints.
type InvoiceHandler struct {
	BaseHandler
	invoices  *appbilling.InvoiceService
	documents *appprinting.DocumentService
}

func NewInvoiceHandler(invoices *appbilling.InvoiceService, documents *appprinting.DocumentService, logger *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		BaseHandler: NewBaseHandler(logger),
		invoices:    invoices,
		documents:   documents,
	}
}

// List handles GET /api/v1/invoices. Members only see their own invoices;
// privileged roles see everything and may filter by customer.
func (h *InvoiceHandler) List(c *gin.Context) {
	var req InvoiceListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err)
		return
	}

	orderBy, orderDir := parseSort(req.Sort, invoiceSortColumns, "issued_at")
	filter := shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  orderBy,
		OrderDir: orderDir,
		Filters:  map[string]interface{}{},
	}

	if req.Reference != "" {
		filter.Filters["reference_prefix"] = req.Reference
	}
	if req.Customer != "" {
		filter.Filters["customer_name"] = req.Customer
	}
	if req.Date != "" {
		day, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			h.BadRequest(c, err)
			return
		}
		filter.Filters["issued_after"] = day
		filter.Filters["issued_before"] = day.AddDate(0, 0, 1)
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

	page, err := h.invoices.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	views := make([]InvoiceView, 0, len(page.Items))
	for i := range page.Items {
		views = append(views, NewInvoiceView(&page.Items[i]))
	}
	h.SuccessWithMeta(c, views, paginationMeta(page))
}

// Get handles GET /api/v1/invoices/:id.
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoiceID, ok := h.bindInvoiceID(c)
	if !ok {
		return
	}

	inv, err := h.invoices.Get(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if !h.canAccessInvoice(c, inv.CustomerID) {
		return
	}
	h.Success(c, NewInvoiceView(inv))
}

// Download handles GET /api/v1/invoices/:id/download and streams the PDF.
func (h *InvoiceHandler) Download(c *gin.Context) {
	invoiceID, ok := h.bindInvoiceID(c)
	if !ok {
		return
	}

	inv, err := h.invoices.Get(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !h.canAccessInvoice(c, inv.CustomerID) {
		return
	}

	doc, err := h.documents.InvoicePDF(c.Request.Context(), invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	c.Data(http.StatusOK, "application/pdf", doc.Data)
}

func (h *InvoiceHandler) bindInvoiceID(c *gin.Context) (uuid.UUID, bool) {
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

// canAccessInvoice restricts members to their own invoices.
func (h *InvoiceHandler) canAccessInvoice(c *gin.Context, customerID uuid.UUID) bool {
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
