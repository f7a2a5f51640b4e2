package member

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fablab/backend/internal/domain/member"
	"github.com/fablab/backend/internal/domain/shared"
	"github.com/fablab/backend/internal/infrastructure/auth"
)

// ErrInvalidCredentials is returned for unknown emails and wrong passwords
// alike so that login failures do not reveal which accounts exist.
var ErrInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")

// AuthService authenticates profiles and issues access tokens.
type AuthService struct {
	profileRepo member.ProfileRepository
	tokens      *auth.TokenService
	logger      *zap.Logger
}

func NewAuthService(profileRepo member.ProfileRepository, tokens *auth.TokenService, logger *zap.Logger) *AuthService {
	return &AuthService{
		profileRepo: profileRepo,
		tokens:      tokens,
		logger:      logger,
	}
}

// LoginResult carries the issued token and the authenticated profile.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Profile   *member.Profile
}

// Login verifies the credentials and returns a signed token on success.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	profile, err := s.profileRepo.FindByEmail(ctx, email)
	if err != nil && err != shared.ErrNotFound {
		return nil, err
	}
	if profile == nil || err == shared.ErrNotFound {
		return nil, ErrInvalidCredentials
	}

	if err := auth.CheckPassword(profile.PasswordHash, password); err != nil {
		s.logger.Warn("Login rejected", zap.String("email", email))
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Generate(profile)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Profile logged in",
		zap.String("profile_id", profile.ID.String()),
		zap.String("role", string(profile.Role)))

	return &LoginResult{Token: token, ExpiresAt: expiresAt, Profile: profile}, nil
}
