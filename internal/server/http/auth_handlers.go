package httpserver

import (
	"net/http"
	"time"

	"github.com/mzyun/novelgate/internal/model"
	"github.com/mzyun/novelgate/internal/service"
	"github.com/mzyun/novelgate/internal/token"
)

type loginRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	AccessKey string `json:"accessKey"`
}

type userPayload struct {
	Sub         string   `json:"sub"`
	Username    string   `json:"username,omitempty"`
	Nickname    string   `json:"nickname,omitempty"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

func userFromModel(u *model.User) userPayload {
	return userPayload{
		Sub:         u.ID.String(),
		Username:    u.Username,
		Nickname:    u.Nickname,
		Role:        u.Role,
		Permissions: u.Permissions,
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ip := clientIP(r)

	if req.AccessKey != "" {
		tok, claims, err := s.auth.LoginWithAccessKey(r.Context(), req.AccessKey, ip)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"token": tok,
			"user": userPayload{
				Sub:         claims.Sub,
				Role:        claims.Role,
				Permissions: claims.Permissions,
			},
		})
		return
	}

	tok, u, err := s.auth.Login(r.Context(), req.Username, req.Password, ip)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": tok, "user": userFromModel(u)})
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
	Invite   string `json:"invite"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	tok, u, err := s.auth.Register(r.Context(), service.RegisterRequest{
		Username:   req.Username,
		Password:   req.Password,
		Nickname:   req.Nickname,
		InviteCode: req.Invite,
	}, clientIP(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": tok, "user": userFromModel(u)})
}

type createInvitesRequest struct {
	Count       int      `json:"count"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	TTLHours    int      `json:"ttlHours"`
}

func (s *Server) handleCreateInvites(w http.ResponseWriter, r *http.Request) {
	if _, err := s.requireClaims(r, token.PermAdmin); err != nil {
		s.writeError(w, r, err)
		return
	}
	var req createInvitesRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	items, err := s.auth.CreateInvites(r.Context(), req.Count, req.Role, req.Permissions,
		hoursToDuration(req.TTLHours), clientIP(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": len(items), "items": items})
}

func hoursToDuration(hours int) time.Duration {
	if hours <= 0 {
		return 0
	}
	return time.Duration(hours) * time.Hour
}
