package dto

import "net/http"

// Transport-level error codes. Domain codes come from shared.DomainError
// and are passed through unchanged.
const (
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeTooManyReq   = "TOO_MANY_REQUESTS"
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeGateway      = "GATEWAY_ERROR"
	ErrCodeUnavailable  = "SERVICE_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps every error code the API can emit to its HTTP
// status. Domain codes not listed here fall back to 500 so that a missing
// mapping surfaces as a server fault rather than a silent 200.
var ErrorCodeHTTPStatus = map[string]int{
	// transport
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeConflict:     http.StatusConflict,
	ErrCodeTooManyReq:   http.StatusTooManyRequests,
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeGateway:      http.StatusBadGateway,
	ErrCodeUnavailable:  http.StatusServiceUnavailable,

	// authentication
	"INVALID_CREDENTIALS": http.StatusUnauthorized,
	"INVALID_SIGNATURE":   http.StatusBadRequest,

	// lookups
	"PLAN_NOT_FOUND":     http.StatusNotFound,
	"SCHEDULE_NOT_FOUND": http.StatusNotFound,

	// optimistic locking
	"CONCURRENCY_CONFLICT": http.StatusConflict,

	// business rules rejected on otherwise well-formed input
	"INVALID_STATE":         http.StatusUnprocessableEntity,
	"ALREADY_PAID":          http.StatusUnprocessableEntity,
	"ALREADY_SYNCED":        http.StatusUnprocessableEntity,
	"INVOICE_FINALIZED":     http.StatusUnprocessableEntity,
	"COUPON_NOT_USABLE":     http.StatusUnprocessableEntity,
	"PLAN_NOT_SCHEDULABLE":  http.StatusUnprocessableEntity,
	"NO_PENDING_DEADLINE":   http.StatusUnprocessableEntity,
	"CUSTOMER_NOT_ON_GATEWAY": http.StatusUnprocessableEntity,
	"EMPTY_INVOICE":         http.StatusUnprocessableEntity,
	"EMPTY_PURCHASE":        http.StatusUnprocessableEntity,

	// malformed input caught by the domain layer
	"INVALID_AMOUNT":          http.StatusBadRequest,
	"INVALID_COUPON_CODE":     http.StatusBadRequest,
	"INVALID_COUPON_KIND":     http.StatusBadRequest,
	"INVALID_CUSTOMER":        http.StatusBadRequest,
	"INVALID_CUSTOMER_ID":     http.StatusBadRequest,
	"INVALID_DESCRIPTION":     http.StatusBadRequest,
	"INVALID_DURATION":        http.StatusBadRequest,
	"INVALID_EMAIL":           http.StatusBadRequest,
	"INVALID_NAME":            http.StatusBadRequest,
	"INVALID_OPERATOR":        http.StatusBadRequest,
	"INVALID_PAYMENT_ID":      http.StatusBadRequest,
	"INVALID_PAYMENT_METHOD":  http.StatusBadRequest,
	"INVALID_PERCENTAGE":      http.StatusBadRequest,
	"INVALID_PLAN":            http.StatusBadRequest,
	"INVALID_PLAN_NAME":       http.StatusBadRequest,
	"INVALID_PRICE":           http.StatusBadRequest,
	"INVALID_PROFILE":         http.StatusBadRequest,
	"INVALID_ROLE":            http.StatusBadRequest,
	"INVALID_SCHEDULE":        http.StatusBadRequest,
	"INVALID_SUBSCRIPTION_ID": http.StatusBadRequest,

	// persistence type corruption is a server fault, never the caller's
	"TYPE_MISMATCH": http.StatusInternalServerError,
}

// GetHTTPStatus resolves an error code to its HTTP status, defaulting to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
