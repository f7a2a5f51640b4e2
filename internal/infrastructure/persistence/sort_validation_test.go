package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"uppercase asc", "ASC", "ASC"},
		{"lowercase asc", "asc", "ASC"},
		{"asc with whitespace", "  asc  ", "ASC"},
		{"uppercase desc", "DESC", "DESC"},
		{"lowercase desc", "desc", "DESC"},
		{"empty defaults to desc", "", "DESC"},
		{"garbage defaults to desc", "ascending; DROP TABLE invoices", "DESC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortOrder(tt.input))
		})
	}
}

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		allowed  map[string]bool
		expected string
	}{
		{"allowed field", "reference", InvoiceSortFields, "reference"},
		{"allowed common field", "created_at", CommonSortFields, "created_at"},
		{"empty falls back", "", InvoiceSortFields, "issued_at"},
		{"whitespace falls back", "   ", InvoiceSortFields, "issued_at"},
		{"unknown field falls back", "password_hash", ProfileSortFields, "issued_at"},
		{"injection attempt falls back", "reference; DELETE FROM invoices", InvoiceSortFields, "issued_at"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortField(tt.input, tt.allowed, "issued_at"))
		})
	}
}

func TestEntitySortFieldWhitelists(t *testing.T) {
	t.Run("invoice whitelist covers list columns", func(t *testing.T) {
		for _, field := range []string{"reference", "issued_at", "total", "payment_method", "customer_id"} {
			assert.True(t, InvoiceSortFields[field], "expected %s to be sortable", field)
		}
	})

	t.Run("sensitive columns are not sortable", func(t *testing.T) {
		assert.False(t, ProfileSortFields["password_hash"])
		assert.False(t, PaymentScheduleSortFields["gateway_subscription_id"])
	})
}
