package httpserver

import (
	"errors"
	"net/http"

	"github.com/mzyun/novelgate/internal/service"
	"github.com/mzyun/novelgate/internal/token"
)

// handleUpdateMarkdown mediates content edits through the Git hosting API.
func (s *Server) handleUpdateMarkdown(w http.ResponseWriter, r *http.Request) {
	if _, err := s.requireClaims(r, token.PermWrite, token.PermAdmin); err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.content == nil {
		s.writeError(w, r, errors.New("content editing is not configured"))
		return
	}
	var req service.UpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.content.UpdateMarkdown(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "path": res.Path, "sha": res.SHA})
}
