// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/mzyun/novelgate/internal/model"
)

// UserRepository provides account storage.
type UserRepository interface {
	// Create inserts a new user. Returns errs.ErrConflict when the username is taken.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByUsername loads a user by username.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// UpdateNickname sets the display name for a user.
	UpdateNickname(ctx context.Context, id uuid.UUID, nickname string) error
}
