package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	appmember "github.com/fablab/backend/internal/application/member"
)

// LoginRequest carries the credentials of a login attempt.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// ProfileView is the public shape of an authenticated profile.
type ProfileView struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
}

// LoginResponse returns the issued token and the profile it belongs to.
type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	Profile   ProfileView `json:"profile"`
}

// AuthHandler serves the authentication endpoints.
type AuthHandler struct {
	BaseHandler
	auth *appmember.AuthService
}

func NewAuthHandler(auth *appmember.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(logger),
		auth:        auth,
	}
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err)
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Profile: ProfileView{
			ID:        result.Profile.ID,
			FirstName: result.Profile.FirstName,
			LastName:  result.Profile.LastName,
			Email:     result.Profile.Email,
			Role:      string(result.Profile.Role),
		},
	})
}
