package service

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/mzyun/novelgate/internal/errs"
	"github.com/mzyun/novelgate/internal/model"
	"github.com/mzyun/novelgate/internal/repository"
)

const maxCommentLen = 10000

// CommentService defines comment operations. Authorization happens at the
// HTTP boundary; the service validates inputs and delegates to storage.
type CommentService interface {
	// List returns all comments for a post, oldest first.
	List(ctx context.Context, postID string) ([]model.Comment, error)
	// Add appends a comment and returns the updated list.
	Add(ctx context.Context, postID string, parentID *uuid.UUID, author, content string) ([]model.Comment, error)
	// Upvote increments a comment's counter and returns the updated list.
	Upvote(ctx context.Context, postID string, id uuid.UUID) ([]model.Comment, error)
	// Delete removes a comment and returns the updated list.
	Delete(ctx context.Context, postID string, id uuid.UUID) ([]model.Comment, error)
}

// Comments implements CommentService over any CommentRepository.
type Comments struct {
	repo repository.CommentRepository
	now  func() time.Time
}

// NewComments constructs the comment service.
func NewComments(repo repository.CommentRepository) *Comments {
	return &Comments{repo: repo, now: time.Now}
}

// List returns the flat comment list; tree reconstruction is a client concern.
func (s *Comments) List(ctx context.Context, postID string) ([]model.Comment, error) {
	if postID == "" {
		return nil, fmt.Errorf("%w: missing postId", errs.ErrBadRequest)
	}
	return s.repo.List(ctx, postID)
}

// Add appends a comment. ParentID may reference a comment that no longer exists.
func (s *Comments) Add(ctx context.Context, postID string, parentID *uuid.UUID, author, content string) ([]model.Comment, error) {
	if postID == "" || content == "" {
		return nil, fmt.Errorf("%w: missing postId/content", errs.ErrBadRequest)
	}
	if len(content) > maxCommentLen {
		return nil, fmt.Errorf("%w: comment too long", errs.ErrBadRequest)
	}
	c := &model.Comment{
		ID:        uuid.Must(uuid.NewV4()),
		PostID:    postID,
		ParentID:  parentID,
		Author:    author,
		Content:   content,
		CreatedAt: s.now(),
	}
	if err := s.repo.Add(ctx, c); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, postID)
}

// Upvote increments the counter for one comment.
func (s *Comments) Upvote(ctx context.Context, postID string, id uuid.UUID) ([]model.Comment, error) {
	if postID == "" {
		return nil, fmt.Errorf("%w: missing postId", errs.ErrBadRequest)
	}
	if err := s.repo.Upvote(ctx, postID, id); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, postID)
}

// Delete removes one comment.
func (s *Comments) Delete(ctx context.Context, postID string, id uuid.UUID) ([]model.Comment, error) {
	if postID == "" {
		return nil, fmt.Errorf("%w: missing postId", errs.ErrBadRequest)
	}
	if err := s.repo.Delete(ctx, postID, id); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, postID)
}
