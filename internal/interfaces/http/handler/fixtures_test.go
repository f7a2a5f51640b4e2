package handler

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	appbilling "github.com/fablab/backend/internal/application/billing"
	appmember "github.com/fablab/backend/internal/application/member"
	appprinting "github.com/fablab/backend/internal/application/printing"
	"github.com/fablab/backend/internal/domain/billing"
	"github.com/fablab/backend/internal/domain/member"
	"github.com/fablab/backend/internal/domain/shared"
	"github.com/fablab/backend/internal/domain/shared/valueobject"
	"github.com/fablab/backend/internal/infrastructure/auth"
	"github.com/fablab/backend/internal/infrastructure/config"
	infraprinting "github.com/fablab/backend/internal/infrastructure/printing"
	"github.com/fablab/backend/internal/infrastructure/persistence"
	"github.com/fablab/backend/internal/infrastructure/persistence/models"
	"github.com/fablab/backend/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// handlerFixture wires real services over an in-memory database so handler
// tests exercise the full request path.
type handlerFixture struct {
	db        *gorm.DB
	tokens    *auth.TokenService
	profiles  member.ProfileRepository
	invoices  *appbilling.InvoiceService
	schedules *appbilling.ScheduleService
	payments  *appbilling.PaymentService
	documents *appprinting.DocumentService
	auth      *appmember.AuthService
}

type memoryPDFStorage struct {
	files map[string][]byte
}

func newMemoryPDFStorage() *memoryPDFStorage {
	return &memoryPDFStorage{files: map[string][]byte{}}
}

func (s *memoryPDFStorage) Store(_ context.Context, path string, data []byte) error {
	s.files[path] = data
	return nil
}

func (s *memoryPDFStorage) Get(_ context.Context, path string) (io.ReadCloser, error) {
	data, ok := s.files[path]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memoryPDFStorage) Exists(_ context.Context, path string) (bool, error) {
	_, ok := s.files[path]
	return ok, nil
}

func (s *memoryPDFStorage) Delete(_ context.Context, path string) error {
	delete(s.files, path)
	return nil
}

type stubPDFRenderer struct{}

func (r *stubPDFRenderer) Render(_ context.Context, _ *infraprinting.RenderRequest) (*infraprinting.RenderResult, error) {
	return &infraprinting.RenderResult{PDFData: []byte("%PDF-1.4 test"), PageCount: 1}, nil
}

func (r *stubPDFRenderer) Close() error { return nil }

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.ProfileModel{},
		&models.PlanModel{},
		&models.CouponModel{},
		&models.InvoiceModel{},
		&models.InvoiceItemModel{},
		&models.PaymentScheduleModel{},
		&models.PaymentScheduleItemModel{},
	))

	logger := zap.NewNop()
	profileRepo := persistence.NewGormProfileRepository(db)
	invoiceRepo := persistence.NewGormInvoiceRepository(db)
	scheduleRepo := persistence.NewGormPaymentScheduleRepository(db)
	planRepo := persistence.NewGormPlanRepository(db)
	couponRepo := persistence.NewGormCouponRepository(db)

	tokens := auth.NewTokenService(config.JWTConfig{
		Secret:          "0123456789abcdef0123456789abcdef",
		TokenExpiration: time.Hour,
		Issuer:          "fablab-test",
	})

	invoiceSvc := appbilling.NewInvoiceService(invoiceRepo, nil, logger)
	scheduleSvc := appbilling.NewScheduleService(appbilling.ScheduleServiceConfig{
		ScheduleRepo: scheduleRepo,
		PlanRepo:     planRepo,
		CouponRepo:   couponRepo,
		ProfileRepo:  profileRepo,
		Logger:       logger,
	})
	paymentSvc := appbilling.NewPaymentService(appbilling.PaymentServiceConfig{
		ScheduleRepo: scheduleRepo,
		InvoiceRepo:  invoiceRepo,
		Logger:       logger,
	})
	docs := infraprinting.NewDocumentService(&stubPDFRenderer{}, newMemoryPDFStorage(), logger)
	documentSvc := appprinting.NewDocumentService(appprinting.DocumentServiceConfig{
		InvoiceRepo:  invoiceRepo,
		ScheduleRepo: scheduleRepo,
		PlanRepo:     planRepo,
		ProfileRepo:  profileRepo,
		Documents:    docs,
		Logger:       logger,
	})

	return &handlerFixture{
		db:        db,
		tokens:    tokens,
		profiles:  profileRepo,
		invoices:  invoiceSvc,
		schedules: scheduleSvc,
		payments:  paymentSvc,
		documents: documentSvc,
		auth:      appmember.NewAuthService(profileRepo, tokens, logger),
	}
}

// newProfile persists a profile with the given role and a known password.
func (f *handlerFixture) newProfile(t *testing.T, email string, role member.Role) *member.Profile {
	t.Helper()
	profile, err := member.NewProfile("Test", "User", email, role)
	require.NoError(t, err)
	hash, err := auth.HashPassword("s3cret-passw0rd")
	require.NoError(t, err)
	profile.PasswordHash = hash
	require.NoError(t, f.profiles.Save(context.Background(), profile))
	return profile
}

func (f *handlerFixture) bearer(t *testing.T, profile *member.Profile) string {
	t.Helper()
	token, _, err := f.tokens.Generate(profile)
	require.NoError(t, err)
	return "Bearer " + token
}

// newInvoice persists a finalized one-line invoice for the customer.
func (f *handlerFixture) newInvoice(t *testing.T, reference string, customer *member.Profile, amount int64) *billing.Invoice {
	t.Helper()
	inv, err := billing.NewInvoice(customer.ID, customer.ID, billing.PaymentMethodCard)
	require.NoError(t, err)
	_, err = inv.AddItem(valueobject.NewMoneyEUR(decimal.NewFromInt(amount)), "Machine reservation", nil)
	require.NoError(t, err)
	require.NoError(t, inv.SetTotalAndCoupon(nil, billing.NewDiscountService()))
	inv.Reference = reference
	repo := persistence.NewGormInvoiceRepository(f.db)
	require.NoError(t, repo.Save(context.Background(), inv))
	return inv
}

// newSchedule persists a plan and a generated schedule for the customer.
func (f *handlerFixture) newSchedule(t *testing.T, customer *member.Profile) *billing.PaymentSchedule {
	t.Helper()
	ctx := context.Background()

	plan, err := billing.NewPlan("Quarterly membership", valueobject.NewMoneyEUR(decimal.NewFromInt(90)), 3, "prod_q")
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormPlanRepository(f.db).Save(ctx, plan))

	schedule, err := f.schedules.Generate(ctx, customer.ID, plan.ID,
		time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		valueobject.NewMoneyEUR(decimal.Zero), nil)
	require.NoError(t, err)
	return schedule
}

// protectedRouter builds a routing table matching the production layout for
// the billing endpoints.
func (f *handlerFixture) protectedRouter(logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID())

	invoiceHandler := NewInvoiceHandler(f.invoices, f.documents, logger)
	scheduleHandler := NewScheduleHandler(f.schedules, f.payments, f.documents, logger)
	authHandler := NewAuthHandler(f.auth, logger)

	api := router.Group("/api/v1")
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(f.tokens))
	authed.GET("/invoices", invoiceHandler.List)
	authed.GET("/invoices/:id", invoiceHandler.Get)
	authed.GET("/invoices/:id/download", invoiceHandler.Download)
	authed.GET("/payment-schedules", scheduleHandler.List)
	authed.GET("/payment-schedules/:id", scheduleHandler.Get)
	authed.GET("/payment-schedules/:id/download", scheduleHandler.Download)
	authed.POST("/payment-schedules/items/:id/confirm", scheduleHandler.Confirm)
	authed.POST("/payment-schedules/items/:id/cash-check",
		middleware.RequireRole(member.RoleAdmin, member.RoleManager), scheduleHandler.CashCheck)
	authed.POST("/payment-schedules/:id/sync",
		middleware.RequireRole(member.RoleAdmin), scheduleHandler.Sync)

	return router
}
