package repository

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/mzyun/novelgate/internal/model"
)

// InviteRepository stores one-time registration invites. Only code hashes are
// persisted; plaintext codes never reach this layer.
type InviteRepository interface {
	// CreateBatch inserts a batch of freshly generated invites.
	CreateBatch(ctx context.Context, invites []*model.Invite) error
	// GetByCodeHash loads an invite by code hash.
	GetByCodeHash(ctx context.Context, codeHash []byte) (*model.Invite, error)
	// Consume marks an invite used if and only if it is still unused: a
	// conditional write, not check-then-set. Returns errs.ErrConflict when the
	// invite was already consumed, errs.ErrNotFound when it does not exist.
	Consume(ctx context.Context, codeHash []byte, usedBy uuid.UUID, at time.Time) error
}
