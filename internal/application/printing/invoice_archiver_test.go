package printing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fablab/backend/internal/domain/billing"
	"github.com/fablab/backend/internal/domain/shared"
)

func TestInvoiceArchiver_Handle(t *testing.T) {
	ctx := context.Background()
	svc, inv, _ := newDocumentFixture(t)
	archiver := NewInvoiceArchiver(svc, zap.NewNop())

	assert.Equal(t, []string{billing.EventTypeInvoiceGenerated}, archiver.EventTypes())

	t.Run("archives the generated invoice", func(t *testing.T) {
		err := archiver.Handle(ctx, billing.NewInvoiceGeneratedEvent(inv))
		require.NoError(t, err)
	})

	t.Run("fails when the invoice is gone", func(t *testing.T) {
		missing, err := billing.NewInvoice(uuid.New(), uuid.New(), billing.PaymentMethodCard)
		require.NoError(t, err)
		missing.Reference = "2608999"

		err = archiver.Handle(ctx, billing.NewInvoiceGeneratedEvent(missing))
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("ignores unrelated events", func(t *testing.T) {
		event := shared.NewBaseDomainEvent("billing.payment_schedule.synced", uuid.New(), "PaymentSchedule")
		assert.NoError(t, archiver.Handle(ctx, &event))
	})
}
