package billing

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fablab/backend/internal/domain/billing"
	"github.com/fablab/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

type webhookFixture struct {
	service   *StripeWebhookService
	payments  *paymentFixture
	processed *MockProcessedEventStore
}

func newWebhookFixture() *webhookFixture {
	payments := newPaymentFixture()
	processed := new(MockProcessedEventStore)
	return &webhookFixture{
		service:   NewStripeWebhookService("whsec_test", payments.service, processed, zap.NewNop()),
		payments:  payments,
		processed: processed,
	}
}

func invoicePaidEvent(subscriptionID string) stripe.Event {
	invoice := stripe.Invoice{
		ID:            "in_test123",
		Customer:      &stripe.Customer{ID: "cus_test123"},
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_test123"},
	}
	if subscriptionID != "" {
		invoice.Subscription = &stripe.Subscription{ID: subscriptionID}
	}
	raw, _ := json.Marshal(invoice)
	return stripe.Event{
		ID:   "evt_test123",
		Type: "invoice.paid",
		Data: &stripe.EventData{Raw: raw},
	}
}

// signWebhookPayload produces the Stripe-Signature header for a payload
func signWebhookPayload(payload []byte) string {
	now := time.Now()
	sig := webhook.ComputeSignature(now, payload, "whsec_test")
	return fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(sig))
}

func TestStripeWebhookServiceInvalidSignature(t *testing.T) {
	f := newWebhookFixture()

	_, err := f.service.ProcessWebhook(context.Background(), []byte(`{}`), "invalid_signature")
	require.Error(t, err)

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_SIGNATURE", domainErr.Code)
}

func TestStripeWebhookServiceInvoicePaid(t *testing.T) {
	ctx := context.Background()

	t.Run("settles the earliest deadline of the matching schedule", func(t *testing.T) {
		f := newWebhookFixture()
		schedule := handSchedule(10000, 0, 0)
		require.NoError(t, schedule.AttachGatewaySubscription("sub_test123"))
		schedule.ClearDomainEvents()

		f.payments.scheduleRepo.On("FindByGatewaySubscriptionID", mock.Anything, "sub_test123").Return(schedule, nil)
		f.payments.expectSettlement(schedule)

		err := f.service.handleInvoicePaid(ctx, invoicePaidEvent("sub_test123"))
		require.NoError(t, err)
		assert.Equal(t, billing.DeadlineStatePaid, schedule.FirstItem().State)
	})

	t.Run("non subscription invoices are skipped", func(t *testing.T) {
		f := newWebhookFixture()

		err := f.service.handleInvoicePaid(ctx, invoicePaidEvent(""))
		require.NoError(t, err)
		f.payments.scheduleRepo.AssertNotCalled(t, "FindByGatewaySubscriptionID", mock.Anything, mock.Anything)
	})

	t.Run("unknown subscription is acknowledged without error", func(t *testing.T) {
		f := newWebhookFixture()
		f.payments.scheduleRepo.On("FindByGatewaySubscriptionID", mock.Anything, "sub_test123").
			Return(nil, shared.ErrNotFound)

		err := f.service.handleInvoicePaid(ctx, invoicePaidEvent("sub_test123"))
		assert.NoError(t, err)
	})
}

func TestStripeWebhookServiceInvoicePaymentFailed(t *testing.T) {
	ctx := context.Background()

	f := newWebhookFixture()
	schedule := handSchedule(10000, 0, 0)
	require.NoError(t, schedule.AttachGatewaySubscription("sub_test123"))

	f.payments.scheduleRepo.On("FindByGatewaySubscriptionID", mock.Anything, "sub_test123").Return(schedule, nil)
	f.payments.scheduleRepo.On("SaveWithLock", mock.Anything, schedule).Return(nil)

	invoice := stripe.Invoice{
		ID:           "in_test123",
		Subscription: &stripe.Subscription{ID: "sub_test123"},
	}
	raw, _ := json.Marshal(invoice)
	event := stripe.Event{
		ID:   "evt_test456",
		Type: "invoice.payment_failed",
		Data: &stripe.EventData{Raw: raw},
	}

	require.NoError(t, f.service.handleInvoicePaymentFailed(ctx, event))
	assert.Equal(t, billing.DeadlineStateRequirePaymentMethod, schedule.FirstItem().State)
}

func TestStripeWebhookServiceRedelivery(t *testing.T) {
	ctx := context.Background()

	signedInvoicePaid := func(t *testing.T) (stripe.Event, []byte, string) {
		t.Helper()
		event := invoicePaidEvent("sub_test123")
		event.APIVersion = stripe.APIVersion
		payload, err := json.Marshal(event)
		require.NoError(t, err)
		return event, payload, signWebhookPayload(payload)
	}

	t.Run("failed delivery is reprocessed on retry", func(t *testing.T) {
		f := newWebhookFixture()
		schedule := handSchedule(10000, 0, 0)
		require.NoError(t, schedule.AttachGatewaySubscription("sub_test123"))
		schedule.ClearDomainEvents()

		event, payload, signature := signedInvoicePaid(t)
		f.processed.On("IsProcessed", mock.Anything, event.ID).Return(false, nil)
		f.payments.scheduleRepo.On("FindByGatewaySubscriptionID", mock.Anything, "sub_test123").
			Return(nil, errors.New("db connection reset")).Once()

		result, err := f.service.ProcessWebhook(ctx, payload, signature)
		require.Error(t, err)
		assert.False(t, result.Processed)
		f.processed.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)

		// the gateway redelivers the same event id once the outage is over
		f.payments.scheduleRepo.On("FindByGatewaySubscriptionID", mock.Anything, "sub_test123").
			Return(schedule, nil)
		f.payments.expectSettlement(schedule)
		f.processed.On("MarkProcessed", mock.Anything, event.ID, webhookDedupeTTL).Return(true, nil)

		result, err = f.service.ProcessWebhook(ctx, payload, signature)
		require.NoError(t, err)
		assert.True(t, result.Processed)
		assert.Equal(t, billing.DeadlineStatePaid, schedule.FirstItem().State)
		f.processed.AssertCalled(t, "MarkProcessed", mock.Anything, event.ID, webhookDedupeTTL)
	})

	t.Run("recorded delivery is acknowledged without dispatch", func(t *testing.T) {
		f := newWebhookFixture()
		event, payload, signature := signedInvoicePaid(t)
		f.processed.On("IsProcessed", mock.Anything, event.ID).Return(true, nil)

		result, err := f.service.ProcessWebhook(ctx, payload, signature)
		require.NoError(t, err)
		assert.Equal(t, "Duplicate event", result.Message)
		f.payments.scheduleRepo.AssertNotCalled(t, "FindByGatewaySubscriptionID", mock.Anything, mock.Anything)
		f.processed.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestStripeWebhookServiceSubscriptionUpdated(t *testing.T) {
	ctx := context.Background()

	updateEvent := func(withPaymentMethod bool) stripe.Event {
		subscription := stripe.Subscription{ID: "sub_test123"}
		if withPaymentMethod {
			subscription.DefaultPaymentMethod = &stripe.PaymentMethod{ID: "pm_test123"}
		}
		raw, _ := json.Marshal(subscription)
		return stripe.Event{
			ID:   "evt_test321",
			Type: "customer.subscription.updated",
			Data: &stripe.EventData{Raw: raw},
		}
	}

	t.Run("reinstates flagged deadlines when a payment method is attached", func(t *testing.T) {
		f := newWebhookFixture()
		schedule := handSchedule(10000, 0, 0)
		require.NoError(t, schedule.AttachGatewaySubscription("sub_test123"))
		first := schedule.FirstItem()
		require.NoError(t, schedule.MarkItemRequiresPaymentMethod(first.ID))

		f.payments.scheduleRepo.On("FindByGatewaySubscriptionID", mock.Anything, "sub_test123").Return(schedule, nil)
		f.payments.scheduleRepo.On("SaveWithLock", mock.Anything, schedule).Return(nil)

		require.NoError(t, f.service.handleSubscriptionUpdated(ctx, updateEvent(true)))
		assert.Equal(t, billing.DeadlineStatePending, first.State)
	})

	t.Run("updates without a payment method are skipped", func(t *testing.T) {
		f := newWebhookFixture()

		require.NoError(t, f.service.handleSubscriptionUpdated(ctx, updateEvent(false)))
		f.payments.scheduleRepo.AssertNotCalled(t, "FindByGatewaySubscriptionID", mock.Anything, mock.Anything)
	})

	t.Run("unknown subscription is acknowledged without error", func(t *testing.T) {
		f := newWebhookFixture()
		f.payments.scheduleRepo.On("FindByGatewaySubscriptionID", mock.Anything, "sub_test123").
			Return(nil, shared.ErrNotFound)

		assert.NoError(t, f.service.handleSubscriptionUpdated(ctx, updateEvent(true)))
	})
}

func TestStripeWebhookServiceSubscriptionDeleted(t *testing.T) {
	f := newWebhookFixture()

	subscription := stripe.Subscription{ID: "sub_test123", Status: stripe.SubscriptionStatusCanceled}
	raw, _ := json.Marshal(subscription)
	event := stripe.Event{
		ID:   "evt_test789",
		Type: "customer.subscription.deleted",
		Data: &stripe.EventData{Raw: raw},
	}

	// cancellation is informational, deadlines are settled manually afterwards
	assert.NoError(t, f.service.handleSubscriptionDeleted(context.Background(), event))
}
