package printing

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fablab/backend/internal/domain/billing"
	"github.com/fablab/backend/internal/domain/shared"
)

// InvoiceArchiver renders invoice documents as they are generated so the
// archive is written before the first download request arrives.
type InvoiceArchiver struct {
	documents *DocumentService
	logger    *zap.Logger
}

func NewInvoiceArchiver(documents *DocumentService, logger *zap.Logger) *InvoiceArchiver {
	return &InvoiceArchiver{
		documents: documents,
		logger:    logger,
	}
}

// EventTypes returns the event types this handler subscribes to
func (a *InvoiceArchiver) EventTypes() []string {
	return []string{billing.EventTypeInvoiceGenerated}
}

// Handle renders and archives the document for a freshly generated invoice
func (a *InvoiceArchiver) Handle(ctx context.Context, event shared.DomainEvent) error {
	generated, ok := event.(*billing.InvoiceGeneratedEvent)
	if !ok {
		return nil
	}

	doc, err := a.documents.InvoicePDF(ctx, generated.AggregateID())
	if err != nil {
		return fmt.Errorf("failed to archive invoice %s: %w", generated.Reference, err)
	}

	a.logger.Info("invoice document archived",
		zap.String("reference", generated.Reference),
		zap.String("filename", doc.Filename),
	)
	return nil
}

// Ensure InvoiceArchiver implements EventHandler
var _ shared.EventHandler = (*InvoiceArchiver)(nil)
