package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/mzyun/novelgate/internal/errs"
	"github.com/mzyun/novelgate/internal/model"
)

// CommentStore keeps one JSON file per post under dir. Writes are
// read-modify-write conditioned on the file sha; a concurrent writer losing
// the race gets ErrVersionConflict from the API, which the store retries once
// with a fresh read before surfacing.
type CommentStore struct {
	client *Client
	dir    string
}

// NewCommentStore constructs a Git-hosting-backed comment repository.
// dir defaults to "data/comments" when empty.
func NewCommentStore(client *Client, dir string) *CommentStore {
	if dir == "" {
		dir = "data/comments"
	}
	return &CommentStore{client: client, dir: dir}
}

// postIDPattern confines post ids to flat slugs: the id becomes a file name
// under dir, so separators or dot segments must never reach the path.
var postIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

func validPostID(postID string) bool {
	return postIDPattern.MatchString(postID) && !strings.Contains(postID, "..")
}

func (s *CommentStore) filePath(postID string) string {
	return path.Join(s.dir, postID+".json")
}

func (s *CommentStore) read(ctx context.Context, postID string) ([]model.Comment, string, error) {
	if !validPostID(postID) {
		return nil, "", fmt.Errorf("%w: bad postId %q", errs.ErrBadRequest, postID)
	}
	f, err := s.client.GetFile(ctx, s.filePath(postID))
	if errors.Is(err, errs.ErrNotFound) {
		return []model.Comment{}, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	var items []model.Comment
	if err := json.Unmarshal(f.Content, &items); err != nil {
		return nil, "", fmt.Errorf("comments %s: corrupt file: %w", postID, err)
	}
	return items, f.SHA, nil
}

func (s *CommentStore) write(ctx context.Context, postID string, items []model.Comment, sha string) error {
	content, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("comments: update %s", postID)
	_, err = s.client.PutFile(ctx, s.filePath(postID), content, sha, msg)
	return err
}

// mutate applies fn to the current list and writes it back, retrying once on
// a sha conflict.
func (s *CommentStore) mutate(ctx context.Context, postID string, fn func([]model.Comment) ([]model.Comment, error)) error {
	for attempt := 0; ; attempt++ {
		items, sha, err := s.read(ctx, postID)
		if err != nil {
			return err
		}
		next, err := fn(items)
		if err != nil {
			return err
		}
		err = s.write(ctx, postID, next, sha)
		if err == nil {
			return nil
		}
		if !errors.Is(err, errs.ErrVersionConflict) || attempt >= 1 {
			return err
		}
	}
}

// List returns all comments for a post; a missing file is an empty list.
func (s *CommentStore) List(ctx context.Context, postID string) ([]model.Comment, error) {
	items, _, err := s.read(ctx, postID)
	return items, err
}

// Add appends a comment to the post's file.
func (s *CommentStore) Add(ctx context.Context, c *model.Comment) error {
	return s.mutate(ctx, c.PostID, func(items []model.Comment) ([]model.Comment, error) {
		return append(items, *c), nil
	})
}

// Upvote increments the counter for one comment.
func (s *CommentStore) Upvote(ctx context.Context, postID string, id uuid.UUID) error {
	return s.mutate(ctx, postID, func(items []model.Comment) ([]model.Comment, error) {
		for i := range items {
			if items[i].ID == id {
				items[i].Upvotes++
				return items, nil
			}
		}
		return nil, errs.ErrNotFound
	})
}

// Delete removes one comment; replies keep their dangling parentId.
func (s *CommentStore) Delete(ctx context.Context, postID string, id uuid.UUID) error {
	return s.mutate(ctx, postID, func(items []model.Comment) ([]model.Comment, error) {
		for i := range items {
			if items[i].ID == id {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, errs.ErrNotFound
	})
}
