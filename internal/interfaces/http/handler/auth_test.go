package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fablab/backend/internal/domain/member"
)

func TestAuthHandler_Login(t *testing.T) {
	f := newHandlerFixture(t)
	f.newProfile(t, "marie@example.com", member.RoleAdmin)
	router := f.protectedRouter(zap.NewNop())

	post := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("returns a token for valid credentials", func(t *testing.T) {
		w := post(`{"email":"marie@example.com","password":"s3cret-passw0rd"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Success bool `json:"success"`
			Data    struct {
				Token   string `json:"token"`
				Profile struct {
					Email string `json:"email"`
					Role  string `json:"role"`
				} `json:"profile"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.NotEmpty(t, resp.Data.Token)
		assert.Equal(t, "ADMIN", resp.Data.Profile.Role)
	})

	t.Run("rejects wrong password with 401", func(t *testing.T) {
		w := post(`{"email":"marie@example.com","password":"wrong-password"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_CREDENTIALS")
	})

	t.Run("rejects unknown email with 401", func(t *testing.T) {
		w := post(`{"email":"nobody@example.com","password":"s3cret-passw0rd"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects a malformed payload with validation details", func(t *testing.T) {
		w := post(`{"email":"not-an-email","password":"x"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
	})
}
