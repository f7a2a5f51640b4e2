package member

import (
	"context"

	"github.com/fablab/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ProfileRepository defines persistence operations for member profiles
type ProfileRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	FindByEmail(ctx context.Context, email string) (*Profile, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Profile, error)
	Save(ctx context.Context, profile *Profile) error
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}
