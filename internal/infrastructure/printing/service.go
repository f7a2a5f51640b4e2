package printing

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/fablab/backend/internal/domain/billing"
	"github.com/fablab/backend/internal/domain/member"
)

// DocumentService produces and archives invoice and payment schedule PDFs.
// An archived document is served as-is; rendering happens once per reference.
type DocumentService struct {
	renderer  PDFRenderer
	storage   PDFStorage
	templates *DocumentTemplates
	logger    *zap.Logger
}

// NewDocumentService creates a document service over the given renderer and archive
func NewDocumentService(renderer PDFRenderer, storage PDFStorage, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		renderer:  renderer,
		storage:   storage,
		templates: NewDocumentTemplates(),
		logger:    logger,
	}
}

// InvoicePDF returns the PDF for an invoice, rendering and archiving it on
// first access
func (s *DocumentService) InvoicePDF(ctx context.Context, inv *billing.Invoice, customer *member.Profile) ([]byte, error) {
	path := invoiceArchivePath(inv)

	if data, ok, err := s.fromArchive(ctx, path); err != nil {
		return nil, err
	} else if ok {
		return data, nil
	}

	html, err := s.templates.InvoiceHTML(inv, customer)
	if err != nil {
		return nil, err
	}

	return s.renderAndArchive(ctx, path, html, "Invoice "+inv.Reference)
}

// SchedulePDF returns the PDF for a payment schedule, rendering and archiving
// it on first access
func (s *DocumentService) SchedulePDF(ctx context.Context, schedule *billing.PaymentSchedule, customer *member.Profile, plan *billing.Plan) ([]byte, error) {
	path := scheduleArchivePath(schedule)

	if data, ok, err := s.fromArchive(ctx, path); err != nil {
		return nil, err
	} else if ok {
		return data, nil
	}

	html, err := s.templates.ScheduleHTML(schedule, customer, plan)
	if err != nil {
		return nil, err
	}

	return s.renderAndArchive(ctx, path, html, "Payment schedule "+schedule.Reference)
}

func (s *DocumentService) fromArchive(ctx context.Context, path string) ([]byte, bool, error) {
	exists, err := s.storage.Exists(ctx, path)
	if err != nil {
		return nil, false, err
	}
	if !exists {
		return nil, false, nil
	}

	reader, err := s.storage.Get(ctx, path)
	if err != nil {
		return nil, false, err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, false, NewRenderError(ErrCodeStorageFailed, "failed to read archived PDF", err)
	}
	return data, true, nil
}

func (s *DocumentService) renderAndArchive(ctx context.Context, path, html, title string) ([]byte, error) {
	result, err := s.renderer.Render(ctx, &RenderRequest{
		HTML:    html,
		Title:   title,
		Margins: DefaultMargins(),
	})
	if err != nil {
		return nil, err
	}

	// Archive failure is not fatal; the document is re-rendered next time
	if err := s.storage.Store(ctx, path, result.PDFData); err != nil {
		s.logger.Warn("failed to archive PDF",
			zap.String("path", path),
			zap.Error(err))
	}

	return result.PDFData, nil
}

func invoiceArchivePath(inv *billing.Invoice) string {
	return fmt.Sprintf("invoices/%d/%s.pdf", inv.IssuedAt.Year(), inv.Reference)
}

func scheduleArchivePath(schedule *billing.PaymentSchedule) string {
	return fmt.Sprintf("schedules/%d/%s.pdf", schedule.CreatedAt.Year(), schedule.Reference)
}
