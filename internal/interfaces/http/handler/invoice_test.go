package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fablab/backend/internal/domain/member"
)

func TestInvoiceHandler_List(t *testing.T) {
	f := newHandlerFixture(t)
	admin := f.newProfile(t, "admin@example.com", member.RoleAdmin)
	customer := f.newProfile(t, "ada@example.com", member.RoleMember)
	other := f.newProfile(t, "bob@example.com", member.RoleMember)

	f.newInvoice(t, "INV-20260831-0001", customer, 50)
	f.newInvoice(t, "INV-20260831-0002", customer, 20)
	f.newInvoice(t, "INV-20260831-0003", other, 75)

	router := f.protectedRouter(zap.NewNop())

	get := func(path, token string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", token)
		router.ServeHTTP(w, req)
		return w
	}

	type listResponse struct {
		Success bool          `json:"success"`
		Data    []InvoiceView `json:"data"`
		Meta    struct {
			Total int64 `json:"total"`
		} `json:"meta"`
	}

	decode := func(t *testing.T, w *httptest.ResponseRecorder) listResponse {
		t.Helper()
		var resp listResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp
	}

	t.Run("admins see all invoices", func(t *testing.T) {
		w := get("/api/v1/invoices", f.bearer(t, admin))
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode(t, w)
		assert.Len(t, resp.Data, 3)
		assert.EqualValues(t, 3, resp.Meta.Total)
	})

	t.Run("members only see their own", func(t *testing.T) {
		w := get("/api/v1/invoices", f.bearer(t, customer))
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode(t, w)
		require.Len(t, resp.Data, 2)
		for _, inv := range resp.Data {
			assert.Equal(t, customer.ID, inv.CustomerID)
		}
	})

	t.Run("filters by reference prefix", func(t *testing.T) {
		w := get("/api/v1/invoices?reference=INV-20260831-0003", f.bearer(t, admin))
		resp := decode(t, w)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, "INV-20260831-0003", resp.Data[0].Reference)
	})

	t.Run("sorts by total descending", func(t *testing.T) {
		w := get("/api/v1/invoices?sort=-total", f.bearer(t, admin))
		resp := decode(t, w)
		require.Len(t, resp.Data, 3)
		assert.Equal(t, "75.00", resp.Data[0].Total)
		assert.Equal(t, "20.00", resp.Data[2].Total)
	})

	t.Run("rejects a malformed date filter", func(t *testing.T) {
		w := get("/api/v1/invoices?date=31-08-2026", f.bearer(t, admin))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("requires authentication", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/invoices", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestInvoiceHandler_GetAndDownload(t *testing.T) {
	f := newHandlerFixture(t)
	customer := f.newProfile(t, "ada@example.com", member.RoleMember)
	other := f.newProfile(t, "bob@example.com", member.RoleMember)
	inv := f.newInvoice(t, "INV-20260831-0001", customer, 50)

	router := f.protectedRouter(zap.NewNop())

	get := func(path, token string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", token)
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("owner fetches their invoice", func(t *testing.T) {
		w := get("/api/v1/invoices/"+inv.ID.String(), f.bearer(t, customer))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "INV-20260831-0001")
	})

	t.Run("another member is forbidden", func(t *testing.T) {
		w := get("/api/v1/invoices/"+inv.ID.String(), f.bearer(t, other))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unknown id yields 404", func(t *testing.T) {
		w := get("/api/v1/invoices/00000000-0000-0000-0000-000000000001", f.bearer(t, customer))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("download streams a pdf attachment", func(t *testing.T) {
		w := get("/api/v1/invoices/"+inv.ID.String()+"/download", f.bearer(t, customer))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "invoice-INV-20260831-0001.pdf")
		assert.NotEmpty(t, w.Body.Bytes())
	})
}
