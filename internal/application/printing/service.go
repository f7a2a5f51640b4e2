package printing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fablab/backend/internal/domain/billing"
	"github.com/fablab/backend/internal/domain/member"
	"github.com/fablab/backend/internal/domain/shared"
	"github.com/fablab/backend/internal/infrastructure/printing"
)

// DocumentService assembles the data a billing document needs and delegates
// rendering to the infrastructure layer.
type DocumentService struct {
	invoiceRepo  billing.InvoiceRepository
	scheduleRepo billing.PaymentScheduleRepository
	planRepo     billing.PlanRepository
	profileRepo  member.ProfileRepository
	documents    *printing.DocumentService
	logger       *zap.Logger
}

// DocumentServiceConfig contains the dependencies of DocumentService
type DocumentServiceConfig struct {
	InvoiceRepo  billing.InvoiceRepository
	ScheduleRepo billing.PaymentScheduleRepository
	PlanRepo     billing.PlanRepository
	ProfileRepo  member.ProfileRepository
	Documents    *printing.DocumentService
	Logger       *zap.Logger
}

func NewDocumentService(cfg DocumentServiceConfig) *DocumentService {
	return &DocumentService{
		invoiceRepo:  cfg.InvoiceRepo,
		scheduleRepo: cfg.ScheduleRepo,
		planRepo:     cfg.PlanRepo,
		profileRepo:  cfg.ProfileRepo,
		documents:    cfg.Documents,
		logger:       cfg.Logger,
	}
}

// Document is a rendered PDF ready to be served.
type Document struct {
	Filename string
	Data     []byte
}

// InvoicePDF renders the invoice document, serving archived copies when
// one exists.
func (s *DocumentService) InvoicePDF(ctx context.Context, invoiceID uuid.UUID) (*Document, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, shared.ErrNotFound
	}

	customer, err := s.profileRepo.FindByID(ctx, inv.CustomerID)
	if err != nil {
		return nil, err
	}

	data, err := s.documents.InvoicePDF(ctx, inv, customer)
	if err != nil {
		return nil, err
	}

	return &Document{
		Filename: fmt.Sprintf("invoice-%s.pdf", inv.Reference),
		Data:     data,
	}, nil
}

// SchedulePDF renders the payment schedule document.
func (s *DocumentService) SchedulePDF(ctx context.Context, scheduleID uuid.UUID) (*Document, error) {
	schedule, err := s.scheduleRepo.FindByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, shared.ErrNotFound
	}

	customer, err := s.profileRepo.FindByID(ctx, schedule.CustomerID)
	if err != nil {
		return nil, err
	}

	plan, err := s.planRepo.FindByID(ctx, schedule.PlanID)
	if err != nil {
		return nil, err
	}

	data, err := s.documents.SchedulePDF(ctx, schedule, customer, plan)
	if err != nil {
		return nil, err
	}

	return &Document{
		Filename: fmt.Sprintf("schedule-%s.pdf", schedule.Reference),
		Data:     data,
	}, nil
}

// InvoiceOwner reports whether the invoice belongs to the given profile.
// Used by the transport layer to restrict member downloads to their own
// documents.
func (s *DocumentService) InvoiceOwner(ctx context.Context, invoiceID, profileID uuid.UUID) (bool, error) {
	inv, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return false, err
	}
	if inv == nil {
		return false, shared.ErrNotFound
	}
	return inv.CustomerID == profileID, nil
}

// ScheduleOwner reports whether the schedule belongs to the given profile.
func (s *DocumentService) ScheduleOwner(ctx context.Context, scheduleID, profileID uuid.UUID) (bool, error) {
	schedule, err := s.scheduleRepo.FindByID(ctx, scheduleID)
	if err != nil {
		return false, err
	}
	if schedule == nil {
		return false, shared.ErrNotFound
	}
	return schedule.CustomerID == profileID, nil
}
