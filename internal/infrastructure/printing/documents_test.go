package printing

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fablab/backend/internal/domain/billing"
	"github.com/fablab/backend/internal/domain/member"
	"github.com/fablab/backend/internal/domain/shared/valueobject"
)

func newDocumentCustomer(t *testing.T) *member.Profile {
	t.Helper()
	profile, err := member.NewProfile("Marie", "Durand", "marie@example.com", member.RoleMember)
	require.NoError(t, err)
	return profile
}

func newDocumentInvoice(t *testing.T, customer *member.Profile) *billing.Invoice {
	t.Helper()
	inv, err := billing.NewInvoice(customer.ID, customer.ID, billing.PaymentMethodCard)
	require.NoError(t, err)

	_, err = inv.AddItem(valueobject.NewMoneyEUR(decimal.NewFromFloat(45.50)), "Machine reservation <laser>", nil)
	require.NoError(t, err)
	_, err = inv.AddItem(valueobject.NewMoneyEUR(decimal.NewFromFloat(10)), "Training session", nil)
	require.NoError(t, err)
	require.NoError(t, inv.SetTotalAndCoupon(nil, billing.NewDiscountService()))

	inv.Reference = "2608001"
	inv.IssuedAt = time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	return inv
}

func TestDocumentTemplates_InvoiceHTML(t *testing.T) {
	customer := newDocumentCustomer(t)
	inv := newDocumentInvoice(t, customer)

	html, err := NewDocumentTemplates().InvoiceHTML(inv, customer)
	require.NoError(t, err)

	assert.Contains(t, html, "Invoice 2608001")
	assert.Contains(t, html, "15/08/2026")
	assert.Contains(t, html, "Marie Durand")
	assert.Contains(t, html, "marie@example.com")
	assert.Contains(t, html, "Card")
	assert.Contains(t, html, "45.50 EUR")
	assert.Contains(t, html, "10.00 EUR")
	assert.Contains(t, html, "55.50 EUR")
}

func TestDocumentTemplates_InvoiceHTML_EscapesDescriptions(t *testing.T) {
	customer := newDocumentCustomer(t)
	inv := newDocumentInvoice(t, customer)

	html, err := NewDocumentTemplates().InvoiceHTML(inv, customer)
	require.NoError(t, err)

	assert.NotContains(t, html, "<laser>")
	assert.Contains(t, html, "&lt;laser&gt;")
}

func TestDocumentTemplates_ScheduleHTML(t *testing.T) {
	customer := newDocumentCustomer(t)
	plan, err := billing.NewPlan("Quarterly membership", valueobject.NewMoneyEUR(decimal.NewFromInt(100)), 3, "prod_123")
	require.NoError(t, err)

	startAt := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	schedule, err := billing.BuildPaymentSchedule(customer.ID, plan, startAt, valueobject.ZeroEUR(), nil)
	require.NoError(t, err)
	schedule.Reference = "S-2609001"

	html, err := NewDocumentTemplates().ScheduleHTML(schedule, customer, plan)
	require.NoError(t, err)

	assert.Contains(t, html, "Payment schedule S-2609001")
	assert.Contains(t, html, "Quarterly membership")
	assert.Contains(t, html, "Marie Durand")
	// Three monthly deadlines, remainder folded into the first
	assert.Contains(t, html, "01/09/2026")
	assert.Contains(t, html, "01/10/2026")
	assert.Contains(t, html, "01/11/2026")
	assert.Contains(t, html, "33.34 EUR")
	assert.Equal(t, 2, strings.Count(html, "33.33 EUR"))
	assert.Contains(t, html, "100.00 EUR")
	assert.Contains(t, html, "Pending")
}

func TestFormatLabel(t *testing.T) {
	assert.Equal(t, "Card", formatLabel("CARD"))
	assert.Equal(t, "Require Payment Method", formatLabel("REQUIRE_PAYMENT_METHOD"))
	assert.Equal(t, "", formatLabel(""))
}
