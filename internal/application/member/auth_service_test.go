package member

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fablab/backend/internal/domain/member"
	"github.com/fablab/backend/internal/domain/shared"
	"github.com/fablab/backend/internal/infrastructure/auth"
	"github.com/fablab/backend/internal/infrastructure/config"
)

type stubProfileRepo struct {
	byEmail map[string]*member.Profile
}

func (r *stubProfileRepo) FindByID(_ context.Context, id uuid.UUID) (*member.Profile, error) {
	for _, p := range r.byEmail {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *stubProfileRepo) FindByEmail(_ context.Context, email string) (*member.Profile, error) {
	if p, ok := r.byEmail[email]; ok {
		return p, nil
	}
	return nil, shared.ErrNotFound
}

func (r *stubProfileRepo) FindAll(_ context.Context, _ shared.Filter) ([]member.Profile, error) {
	return nil, nil
}

func (r *stubProfileRepo) Save(_ context.Context, p *member.Profile) error {
	r.byEmail[p.Email] = p
	return nil
}

func (r *stubProfileRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	return int64(len(r.byEmail)), nil
}

func newAuthFixture(t *testing.T) (*AuthService, *member.Profile) {
	t.Helper()

	profile, err := member.NewProfile("Marie", "Durand", "marie@example.com", member.RoleAdmin)
	require.NoError(t, err)
	hash, err := auth.HashPassword("correct horse battery")
	require.NoError(t, err)
	profile.PasswordHash = hash

	repo := &stubProfileRepo{byEmail: map[string]*member.Profile{profile.Email: profile}}
	tokens := auth.NewTokenService(config.JWTConfig{
		Secret:          "0123456789abcdef0123456789abcdef",
		TokenExpiration: time.Hour,
		Issuer:          "fablab-test",
	})
	return NewAuthService(repo, tokens, zap.NewNop()), profile
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("issues a token for valid credentials", func(t *testing.T) {
		svc, profile := newAuthFixture(t)

		result, err := svc.Login(ctx, "marie@example.com", "correct horse battery")
		require.NoError(t, err)
		assert.NotEmpty(t, result.Token)
		assert.True(t, result.ExpiresAt.After(time.Now()))
		assert.Equal(t, profile.ID, result.Profile.ID)
	})

	t.Run("rejects a wrong password", func(t *testing.T) {
		svc, _ := newAuthFixture(t)

		result, err := svc.Login(ctx, "marie@example.com", "wrong")
		assert.Nil(t, result)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("rejects an unknown email with the same error", func(t *testing.T) {
		svc, _ := newAuthFixture(t)

		result, err := svc.Login(ctx, "nobody@example.com", "correct horse battery")
		assert.Nil(t, result)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
