package billing

import (
	"context"
	"errors"
	"time"
)

// GatewaySubscriptionStatus is the processor-side status of a subscription
type GatewaySubscriptionStatus string

const (
	GatewaySubscriptionActive     GatewaySubscriptionStatus = "active"
	GatewaySubscriptionIncomplete GatewaySubscriptionStatus = "incomplete"
	GatewaySubscriptionPastDue    GatewaySubscriptionStatus = "past_due"
	GatewaySubscriptionCanceled   GatewaySubscriptionStatus = "canceled"
	GatewaySubscriptionUnpaid     GatewaySubscriptionStatus = "unpaid"
)

// PaymentIntentStatus is the processor-side status of a single charge
type PaymentIntentStatus string

const (
	PaymentIntentSucceeded             PaymentIntentStatus = "succeeded"
	PaymentIntentProcessing            PaymentIntentStatus = "processing"
	PaymentIntentRequiresAction        PaymentIntentStatus = "requires_action"
	PaymentIntentRequiresPaymentMethod PaymentIntentStatus = "requires_payment_method"
)

// CreatePriceInput contains input for creating a gateway price object
type CreatePriceInput struct {
	ProductID  string // gateway product the price belongs to
	UnitAmount int64  // amount in minor units
	Currency   string
	Name       string // display name for one-time lines
	Recurring  bool   // monthly recurring when true, one-time otherwise
}

// CreatePriceOutput contains the result of creating a gateway price object
type CreatePriceOutput struct {
	PriceID string
}

// CreateSubscriptionInput contains input for creating a gateway subscription
type CreateSubscriptionInput struct {
	CustomerID       string
	CancelAt         time.Time // subscription end, from the schedule expiration
	PromotionCode    string    // optional, from the schedule's coupon
	UpfrontPriceIDs  []string  // one-time items added to the first invoice
	RecurringPriceID string    // the subscription's ongoing item
}

// CreateSubscriptionOutput contains the result of creating a gateway subscription
type CreateSubscriptionOutput struct {
	SubscriptionID  string
	Status          GatewaySubscriptionStatus
	LatestInvoiceID string
	PaymentIntentID string
	ClientSecret    string
}

// SubscriptionOutput contains the current state of a gateway subscription
type SubscriptionOutput struct {
	SubscriptionID     string
	CustomerID         string
	Status             GatewaySubscriptionStatus
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAt           *time.Time
	LatestInvoiceID    string
}

// PaymentIntentOutput contains the current state of a gateway payment intent
type PaymentIntentOutput struct {
	PaymentIntentID string
	Status          PaymentIntentStatus
	ClientSecret    string
	AmountCents     int64
	PaymentMethodID string
}

// PaymentGateway is the boundary to the external payment processor.
// Failures are wrapped in *GatewayError and never retried at this layer.
type PaymentGateway interface {
	// CreatePrice creates a recurring or one-time price object
	CreatePrice(ctx context.Context, input CreatePriceInput) (*CreatePriceOutput, error)

	// CreateSubscription creates a subscription with upfront invoice items
	// and a recurring price
	CreateSubscription(ctx context.Context, input CreateSubscriptionInput) (*CreateSubscriptionOutput, error)

	// GetSubscription retrieves the current state of a subscription
	GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionOutput, error)

	// GetPaymentIntent retrieves the current state of a payment intent
	GetPaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntentOutput, error)

	// ConfirmPaymentIntent re-attempts confirmation of a payment intent
	// after the customer completed the required action
	ConfirmPaymentIntent(ctx context.Context, paymentIntentID string) (*PaymentIntentOutput, error)
}

// GatewayError wraps any failure reported by the payment processor.
// It is propagated unmodified to whoever triggered the call.
type GatewayError struct {
	Op      string // the gateway operation that failed
	Message string
	Cause   error
}

// Error implements the error interface
func (e *GatewayError) Error() string {
	if e.Cause != nil {
		return "gateway: " + e.Op + ": " + e.Message + ": " + e.Cause.Error()
	}
	return "gateway: " + e.Op + ": " + e.Message
}

// Unwrap returns the underlying cause
func (e *GatewayError) Unwrap() error {
	return e.Cause
}

// NewGatewayError creates a new GatewayError
func NewGatewayError(op, message string, cause error) *GatewayError {
	return &GatewayError{Op: op, Message: message, Cause: cause}
}

// IsGatewayError reports whether err is (or wraps) a GatewayError
func IsGatewayError(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}
