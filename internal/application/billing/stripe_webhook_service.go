package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fablab/backend/internal/domain/shared"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

// webhook events are remembered for a day; Stripe retries within hours
const webhookDedupeTTL = 24 * time.Hour

// ProcessedEventStore remembers webhook event ids so redelivered events
// are acknowledged without reprocessing
type ProcessedEventStore interface {
	// MarkProcessed records the event id. It returns false when the id
	// was already recorded.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether the event id was already recorded
	IsProcessed(ctx context.Context, eventID string) (bool, error)
}

// StripeWebhookService handles Stripe webhook events for payment schedules
type StripeWebhookService struct {
	webhookSecret string
	payments      *PaymentService
	processed     ProcessedEventStore
	logger        *zap.Logger
}

// NewStripeWebhookService creates a new StripeWebhookService
func NewStripeWebhookService(webhookSecret string, payments *PaymentService, processed ProcessedEventStore, logger *zap.Logger) *StripeWebhookService {
	return &StripeWebhookService{
		webhookSecret: webhookSecret,
		payments:      payments,
		processed:     processed,
		logger:        logger,
	}
}

// WebhookResult contains the result of processing a webhook
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Processed bool   `json:"processed"`
	Message   string `json:"message,omitempty"`
}

// ProcessWebhook verifies and processes one Stripe webhook delivery.
// Deliveries are idempotent per event id.
func (s *StripeWebhookService) ProcessWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	event, err := webhook.ConstructEvent(payload, signature, s.webhookSecret)
	if err != nil {
		s.logger.Error("Failed to verify webhook signature", zap.Error(err))
		return nil, shared.NewDomainError("INVALID_SIGNATURE", "Webhook signature verification failed")
	}

	result := &WebhookResult{
		EventID:   event.ID,
		EventType: string(event.Type),
		Processed: true,
	}

	seen, err := s.processed.IsProcessed(ctx, event.ID)
	if err != nil {
		s.logger.Error("Failed to check webhook idempotency",
			zap.String("event_id", event.ID), zap.Error(err))
		return nil, fmt.Errorf("webhook idempotency check failed: %w", err)
	}
	if seen {
		s.logger.Info("Duplicate webhook event, acknowledging",
			zap.String("event_id", event.ID))
		result.Message = "Duplicate event"
		return result, nil
	}

	s.logger.Info("Processing Stripe webhook event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))

	switch event.Type {
	case "invoice.paid":
		err = s.handleInvoicePaid(ctx, event)
	case "invoice.payment_failed":
		err = s.handleInvoicePaymentFailed(ctx, event)
	case "customer.subscription.updated":
		err = s.handleSubscriptionUpdated(ctx, event)
	case "customer.subscription.deleted":
		err = s.handleSubscriptionDeleted(ctx, event)
	default:
		s.logger.Debug("Unhandled webhook event type",
			zap.String("event_type", string(event.Type)))
		result.Message = "Event type not handled"
	}

	if err != nil {
		// left unrecorded so the gateway's redelivery is reprocessed
		s.logger.Error("Failed to process webhook event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		result.Processed = false
		result.Message = err.Error()
		return result, err
	}

	if _, err := s.processed.MarkProcessed(ctx, event.ID, webhookDedupeTTL); err != nil {
		// the event is handled; a redelivery may be reprocessed
		s.logger.Error("Failed to record processed webhook event",
			zap.String("event_id", event.ID), zap.Error(err))
	}
	return result, nil
}

// handleInvoicePaid settles the earliest unpaid deadline of the schedule
// backing the paid subscription invoice
func (s *StripeWebhookService) handleInvoicePaid(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to unmarshal invoice: %w", err)
	}
	if invoice.Subscription == nil {
		s.logger.Debug("Invoice is not for a subscription, skipping",
			zap.String("invoice_id", invoice.ID))
		return nil
	}

	paymentIntentID := ""
	if invoice.PaymentIntent != nil {
		paymentIntentID = invoice.PaymentIntent.ID
	}

	settled, err := s.payments.SettleDeadlineBySubscription(ctx, invoice.Subscription.ID, paymentIntentID)
	if err != nil {
		if err == shared.ErrNotFound {
			// deliveries can concern subscriptions we never created,
			// acknowledge so Stripe stops retrying
			s.logger.Warn("No payment schedule for subscription",
				zap.String("subscription_id", invoice.Subscription.ID))
			return nil
		}
		return err
	}

	s.logger.Info("Subscription invoice settled",
		zap.String("subscription_id", invoice.Subscription.ID),
		zap.String("invoice", settled.Reference))
	return nil
}

// handleInvoicePaymentFailed flags the earliest pending deadline as needing
// a new payment instrument
func (s *StripeWebhookService) handleInvoicePaymentFailed(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to unmarshal invoice: %w", err)
	}
	if invoice.Subscription == nil {
		s.logger.Debug("Invoice is not for a subscription, skipping",
			zap.String("invoice_id", invoice.ID))
		return nil
	}

	if err := s.payments.FlagDeadlineBySubscription(ctx, invoice.Subscription.ID); err != nil {
		if err == shared.ErrNotFound {
			s.logger.Warn("No payment schedule for subscription",
				zap.String("subscription_id", invoice.Subscription.ID))
			return nil
		}
		return err
	}

	s.logger.Warn("Subscription invoice payment failed",
		zap.String("subscription_id", invoice.Subscription.ID))
	return nil
}

// handleSubscriptionUpdated returns flagged deadlines to pending once the
// subscription carries a default payment method again
func (s *StripeWebhookService) handleSubscriptionUpdated(ctx context.Context, event stripe.Event) error {
	var subscription stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}
	if subscription.DefaultPaymentMethod == nil {
		s.logger.Debug("Subscription update carries no default payment method, skipping",
			zap.String("subscription_id", subscription.ID))
		return nil
	}

	if err := s.payments.ReinstateDeadlineBySubscription(ctx, subscription.ID); err != nil {
		if err == shared.ErrNotFound {
			s.logger.Warn("No payment schedule for subscription",
				zap.String("subscription_id", subscription.ID))
			return nil
		}
		return err
	}

	s.logger.Info("Subscription payment method updated",
		zap.String("subscription_id", subscription.ID))
	return nil
}

// handleSubscriptionDeleted logs the cancellation. Remaining deadlines stay
// as they are and are settled manually by the staff.
func (s *StripeWebhookService) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var subscription stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
		return fmt.Errorf("failed to unmarshal subscription: %w", err)
	}

	s.logger.Info("Gateway subscription canceled",
		zap.String("subscription_id", subscription.ID),
		zap.String("status", string(subscription.Status)))
	return nil
}
