package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fablab/backend/internal/domain/billing"
	"github.com/fablab/backend/internal/domain/shared"
	"github.com/fablab/backend/internal/infrastructure/printing"
	"github.com/fablab/backend/internal/interfaces/http/dto"
	"github.com/fablab/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides the response helpers shared by all handlers.
type BaseHandler struct {
	logger *zap.Logger
}

func NewBaseHandler(logger *zap.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data interface{}, meta dto.Meta) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, meta))
}

func (h *BaseHandler) Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

func (h *BaseHandler) Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, dto.NewErrorResponseWithRequestID(code, message, h.requestID(c)))
}

// BadRequest reports a binding failure, expanding validator errors into
// per-field details.
func (h *BaseHandler) BadRequest(c *gin.Context, err error) {
	details := middleware.FormatValidationErrors(err)
	c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse(details, h.requestID(c)))
}

// HandleError maps application and domain errors onto HTTP responses.
// Gateway failures surface as 502 so callers can distinguish processor
// outages from local faults.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	var gatewayErr *billing.GatewayError
	if errors.As(err, &gatewayErr) {
		h.logger.Error("Payment gateway failure",
			zap.String("op", gatewayErr.Op),
			zap.String("request_id", h.requestID(c)),
			zap.Error(err))
		h.Error(c, http.StatusBadGateway, dto.ErrCodeGateway, gatewayErr.Message)
		return
	}

	var renderErr *printing.RenderError
	if errors.As(err, &renderErr) {
		h.logger.Error("Document rendering failure",
			zap.String("code", renderErr.Code),
			zap.String("request_id", h.requestID(c)),
			zap.Error(err))
		status := http.StatusInternalServerError
		if renderErr.Code == printing.ErrCodeRenderTimeout {
			status = http.StatusGatewayTimeout
		}
		h.Error(c, status, dto.ErrCodeInternal, "failed to render document")
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		status := dto.GetHTTPStatus(domainErr.Code)
		if status >= http.StatusInternalServerError {
			h.logger.Error("Domain invariant violated",
				zap.String("code", domainErr.Code),
				zap.String("request_id", h.requestID(c)),
				zap.Error(err))
		}
		h.Error(c, status, domainErr.Code, domainErr.Message)
		return
	}

	h.logger.Error("Unhandled error",
		zap.String("request_id", h.requestID(c)),
		zap.Error(err))
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "internal server error")
}

func (h *BaseHandler) requestID(c *gin.Context) string {
	return c.GetString(middleware.RequestIDHeader)
}
