package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/mzyun/novelgate/internal/errs"
	"github.com/mzyun/novelgate/internal/model"
)

// CommentRepo implements CommentRepository using PostgreSQL.
type CommentRepo struct{ db *DB }

// NewCommentRepo constructs a comment repository.
func NewCommentRepo(db *DB) *CommentRepo { return &CommentRepo{db: db} }

// List returns all comments for a post, oldest first.
func (r *CommentRepo) List(ctx context.Context, postID string) ([]model.Comment, error) {
	const q = `
SELECT id, post_id, parent_id, author, content, upvotes, created_at
FROM comments WHERE post_id=$1 ORDER BY created_at, id`
	rows, err := r.db.Pool.Query(ctx, q, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.ParentID, &c.Author, &c.Content, &c.Upvotes, &c.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// Add inserts a comment. ParentID is stored as-is; dangling parents are allowed.
func (r *CommentRepo) Add(ctx context.Context, c *model.Comment) error {
	const q = `
INSERT INTO comments (id, post_id, parent_id, author, content, upvotes, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Pool.Exec(ctx, q, c.ID, c.PostID, c.ParentID, c.Author, c.Content, c.Upvotes, c.CreatedAt)
	return err
}

// Upvote increments the counter atomically.
func (r *CommentRepo) Upvote(ctx context.Context, postID string, id uuid.UUID) error {
	const q = `UPDATE comments SET upvotes = upvotes + 1 WHERE post_id=$1 AND id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, postID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Delete removes a comment. Replies keep their parent_id pointing at the gone id.
func (r *CommentRepo) Delete(ctx context.Context, postID string, id uuid.UUID) error {
	const q = `DELETE FROM comments WHERE post_id=$1 AND id=$2`
	tag, err := r.db.Pool.Exec(ctx, q, postID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
