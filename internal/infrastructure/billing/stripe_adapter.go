package billing

import (
	"context"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"
	"github.com/stripe/stripe-go/v81/price"
	"github.com/stripe/stripe-go/v81/subscription"
	"go.uber.org/zap"

	"github.com/fablab/backend/internal/domain/billing"
)

// StripeAdapter implements the payment gateway boundary on top of Stripe
type StripeAdapter struct {
	config *StripeConfig
	logger *zap.Logger
}

var _ billing.PaymentGateway = (*StripeAdapter)(nil)

// NewStripeAdapter creates a new Stripe adapter
func NewStripeAdapter(config *StripeConfig, logger *zap.Logger) (*StripeAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	config.InitStripeClient()

	return &StripeAdapter{
		config: config,
		logger: logger,
	}, nil
}

// CreatePrice creates a recurring or one-time price object in Stripe
func (a *StripeAdapter) CreatePrice(ctx context.Context, input billing.CreatePriceInput) (*billing.CreatePriceOutput, error) {
	a.logger.Debug("Creating Stripe price",
		zap.String("product_id", input.ProductID),
		zap.Int64("unit_amount", input.UnitAmount),
		zap.Bool("recurring", input.Recurring))

	params := &stripe.PriceParams{
		Product:    stripe.String(input.ProductID),
		UnitAmount: stripe.Int64(input.UnitAmount),
		Currency:   stripe.String(input.Currency),
	}
	params.Context = ctx

	if input.Name != "" {
		params.Nickname = stripe.String(input.Name)
	}

	if input.Recurring {
		params.Recurring = &stripe.PriceRecurringParams{
			Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
		}
	}

	p, err := price.New(params)
	if err != nil {
		a.logger.Error("Failed to create Stripe price",
			zap.String("product_id", input.ProductID),
			zap.Error(err))
		return nil, billing.NewGatewayError("create_price", "stripe price creation failed", err)
	}

	a.logger.Info("Created Stripe price",
		zap.String("price_id", p.ID),
		zap.String("product_id", input.ProductID))

	return &billing.CreatePriceOutput{PriceID: p.ID}, nil
}

// CreateSubscription creates a subscription with upfront invoice items and a
// recurring price. The subscription is created incomplete so the first invoice
// can be confirmed client-side with the returned client secret.
func (a *StripeAdapter) CreateSubscription(ctx context.Context, input billing.CreateSubscriptionInput) (*billing.CreateSubscriptionOutput, error) {
	a.logger.Debug("Creating Stripe subscription",
		zap.String("customer_id", input.CustomerID),
		zap.String("recurring_price_id", input.RecurringPriceID),
		zap.Int("upfront_items", len(input.UpfrontPriceIDs)))

	params := &stripe.SubscriptionParams{
		Customer: stripe.String(input.CustomerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(input.RecurringPriceID)},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
	}
	params.Context = ctx

	if !input.CancelAt.IsZero() {
		params.CancelAt = stripe.Int64(input.CancelAt.Unix())
	}

	for _, priceID := range input.UpfrontPriceIDs {
		params.AddInvoiceItems = append(params.AddInvoiceItems, &stripe.SubscriptionAddInvoiceItemParams{
			Price: stripe.String(priceID),
		})
	}

	if input.PromotionCode != "" {
		params.PromotionCode = stripe.String(input.PromotionCode)
	}

	params.AddExpand("latest_invoice.payment_intent")

	sub, err := subscription.New(params)
	if err != nil {
		a.logger.Error("Failed to create Stripe subscription",
			zap.String("customer_id", input.CustomerID),
			zap.Error(err))
		return nil, billing.NewGatewayError("create_subscription", "stripe subscription creation failed", err)
	}

	a.logger.Info("Created Stripe subscription",
		zap.String("subscription_id", sub.ID),
		zap.String("status", string(sub.Status)))

	output := &billing.CreateSubscriptionOutput{
		SubscriptionID: sub.ID,
		Status:         mapSubscriptionStatus(sub.Status),
	}

	if sub.LatestInvoice != nil {
		output.LatestInvoiceID = sub.LatestInvoice.ID
		if sub.LatestInvoice.PaymentIntent != nil {
			output.PaymentIntentID = sub.LatestInvoice.PaymentIntent.ID
			output.ClientSecret = sub.LatestInvoice.PaymentIntent.ClientSecret
		}
	}

	return output, nil
}

// GetSubscription retrieves the current state of a subscription
func (a *StripeAdapter) GetSubscription(ctx context.Context, subscriptionID string) (*billing.SubscriptionOutput, error) {
	a.logger.Debug("Getting Stripe subscription", zap.String("subscription_id", subscriptionID))

	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := subscription.Get(subscriptionID, params)
	if err != nil {
		a.logger.Error("Failed to get Stripe subscription",
			zap.String("subscription_id", subscriptionID),
			zap.Error(err))
		return nil, billing.NewGatewayError("get_subscription", "stripe subscription lookup failed", err)
	}

	output := &billing.SubscriptionOutput{
		SubscriptionID:     sub.ID,
		Status:             mapSubscriptionStatus(sub.Status),
		CurrentPeriodStart: time.Unix(sub.CurrentPeriodStart, 0),
		CurrentPeriodEnd:   time.Unix(sub.CurrentPeriodEnd, 0),
	}

	if sub.Customer != nil {
		output.CustomerID = sub.Customer.ID
	}
	if sub.CancelAt > 0 {
		t := time.Unix(sub.CancelAt, 0)
		output.CancelAt = &t
	}
	if sub.LatestInvoice != nil {
		output.LatestInvoiceID = sub.LatestInvoice.ID
	}

	return output, nil
}

// GetPaymentIntent retrieves the current state of a payment intent
func (a *StripeAdapter) GetPaymentIntent(ctx context.Context, paymentIntentID string) (*billing.PaymentIntentOutput, error) {
	a.logger.Debug("Getting Stripe payment intent", zap.String("payment_intent_id", paymentIntentID))

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(paymentIntentID, params)
	if err != nil {
		a.logger.Error("Failed to get Stripe payment intent",
			zap.String("payment_intent_id", paymentIntentID),
			zap.Error(err))
		return nil, billing.NewGatewayError("get_payment_intent", "stripe payment intent lookup failed", err)
	}

	return toPaymentIntentOutput(pi), nil
}

// ConfirmPaymentIntent re-attempts confirmation of a payment intent after the
// customer completed the required action
func (a *StripeAdapter) ConfirmPaymentIntent(ctx context.Context, paymentIntentID string) (*billing.PaymentIntentOutput, error) {
	a.logger.Debug("Confirming Stripe payment intent", zap.String("payment_intent_id", paymentIntentID))

	params := &stripe.PaymentIntentConfirmParams{}
	params.Context = ctx

	pi, err := paymentintent.Confirm(paymentIntentID, params)
	if err != nil {
		a.logger.Error("Failed to confirm Stripe payment intent",
			zap.String("payment_intent_id", paymentIntentID),
			zap.Error(err))
		return nil, billing.NewGatewayError("confirm_payment_intent", "stripe payment intent confirmation failed", err)
	}

	a.logger.Info("Confirmed Stripe payment intent",
		zap.String("payment_intent_id", pi.ID),
		zap.String("status", string(pi.Status)))

	return toPaymentIntentOutput(pi), nil
}

func toPaymentIntentOutput(pi *stripe.PaymentIntent) *billing.PaymentIntentOutput {
	output := &billing.PaymentIntentOutput{
		PaymentIntentID: pi.ID,
		Status:          mapPaymentIntentStatus(pi.Status),
		ClientSecret:    pi.ClientSecret,
		AmountCents:     pi.Amount,
	}
	if pi.PaymentMethod != nil {
		output.PaymentMethodID = pi.PaymentMethod.ID
	}
	return output
}

func mapSubscriptionStatus(status stripe.SubscriptionStatus) billing.GatewaySubscriptionStatus {
	switch status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return billing.GatewaySubscriptionActive
	case stripe.SubscriptionStatusPastDue:
		return billing.GatewaySubscriptionPastDue
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		return billing.GatewaySubscriptionCanceled
	case stripe.SubscriptionStatusUnpaid:
		return billing.GatewaySubscriptionUnpaid
	default:
		return billing.GatewaySubscriptionIncomplete
	}
}

func mapPaymentIntentStatus(status stripe.PaymentIntentStatus) billing.PaymentIntentStatus {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return billing.PaymentIntentSucceeded
	case stripe.PaymentIntentStatusRequiresAction:
		return billing.PaymentIntentRequiresAction
	case stripe.PaymentIntentStatusRequiresPaymentMethod, stripe.PaymentIntentStatusCanceled:
		return billing.PaymentIntentRequiresPaymentMethod
	default:
		return billing.PaymentIntentProcessing
	}
}
