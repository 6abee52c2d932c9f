package httpserver

import (
	"fmt"
	"net/http"

	"github.com/gofrs/uuid/v5"

	"github.com/mzyun/novelgate/internal/errs"
	"github.com/mzyun/novelgate/internal/model"
	"github.com/mzyun/novelgate/internal/token"
)

// handleCommentsList serves the public comment read.
func (s *Server) handleCommentsList(w http.ResponseWriter, r *http.Request) {
	postID := r.URL.Query().Get("postId")
	items, err := s.comments.List(r.Context(), postID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"postId": postID, "items": items})
}

type commentMutateRequest struct {
	Action   string `json:"action"` // add | upvote | delete
	PostID   string `json:"postId"`
	ParentID string `json:"parentId,omitempty"`
	Content  string `json:"content,omitempty"`
	ID       string `json:"id,omitempty"`
}

// handleCommentsMutate dispatches add/upvote/delete. Add and upvote need the
// comment capability (or write); delete needs write.
func (s *Server) handleCommentsMutate(w http.ResponseWriter, r *http.Request) {
	var req commentMutateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	var items []model.Comment
	switch req.Action {
	case "add":
		claims, err := s.requireClaims(r, token.PermComment, token.PermWrite, token.PermAdmin)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		var parentID *uuid.UUID
		if req.ParentID != "" {
			pid, err := uuid.FromString(req.ParentID)
			if err != nil {
				s.writeError(w, r, fmt.Errorf("%w: bad parentId", errs.ErrBadRequest))
				return
			}
			parentID = &pid
		}
		items, err = s.comments.Add(r.Context(), req.PostID, parentID, s.authorName(r, claims), req.Content)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

	case "upvote":
		if _, err := s.requireClaims(r, token.PermComment, token.PermWrite, token.PermAdmin); err != nil {
			s.writeError(w, r, err)
			return
		}
		id, err := uuid.FromString(req.ID)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: bad comment id", errs.ErrBadRequest))
			return
		}
		items, err = s.comments.Upvote(r.Context(), req.PostID, id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

	case "delete":
		if _, err := s.requireClaims(r, token.PermWrite, token.PermAdmin); err != nil {
			s.writeError(w, r, err)
			return
		}
		id, err := uuid.FromString(req.ID)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: bad comment id", errs.ErrBadRequest))
			return
		}
		items, err = s.comments.Delete(r.Context(), req.PostID, id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

	default:
		s.writeError(w, r, fmt.Errorf("%w: unknown action %q", errs.ErrBadRequest, req.Action))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "postId": req.PostID, "items": items})
}

// authorName resolves the display name for a comment author, falling back to
// the token subject when no nickname is known.
func (s *Server) authorName(r *http.Request, claims token.Claims) string {
	p, err := s.auth.Profile(r.Context(), claims.Sub)
	if err == nil && p.Nickname != "" {
		return p.Nickname
	}
	return claims.Sub
}
