package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/mzyun/novelgate/internal/model"
)

// CommentRepository stores flat comment lists scoped by post. Backends are
// interchangeable: PostgreSQL or a Git-hosted JSON file per post.
type CommentRepository interface {
	// List returns all comments for a post, oldest first.
	List(ctx context.Context, postID string) ([]model.Comment, error)
	// Add appends a comment. ParentID is not validated against existing ids.
	Add(ctx context.Context, c *model.Comment) error
	// Upvote increments the upvote counter. Returns errs.ErrNotFound for unknown ids.
	Upvote(ctx context.Context, postID string, id uuid.UUID) error
	// Delete removes a comment. Returns errs.ErrNotFound for unknown ids.
	Delete(ctx context.Context, postID string, id uuid.UUID) error
}
