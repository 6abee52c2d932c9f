package httpserver

import (
	"net/http"
)

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	claims, err := s.requireClaims(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.auth.Profile(r.Context(), claims.Sub)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type updateProfileRequest struct {
	Nickname string `json:"nickname"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, err := s.requireClaims(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.auth.UpdateProfile(r.Context(), claims.Sub, req.Nickname); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sub": claims.Sub, "nickname": req.Nickname})
}
