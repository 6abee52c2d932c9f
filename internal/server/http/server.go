// Package httpserver exposes the HTTP API handlers.
package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/mzyun/novelgate/internal/mediastore"
	"github.com/mzyun/novelgate/internal/service"
	"github.com/mzyun/novelgate/internal/token"
)

// Server wires services into HTTP handlers. Every protected handler verifies
// the bearer token against its own required permission set, then delegates.
type Server struct {
	auth     service.AuthService
	comments service.CommentService
	content  service.ContentService
	media    mediastore.Store
	codec    token.Codec
	log      *zap.Logger

	mediaBaseURL string
	maxUpload    int64
}

// New constructs a server with injected collaborators.
func New(auth service.AuthService, comments service.CommentService, content service.ContentService,
	media mediastore.Store, codec token.Codec, mediaBaseURL string, maxUpload int64, log *zap.Logger) *Server {
	return &Server{
		auth:         auth,
		comments:     comments,
		content:      content,
		media:        media,
		codec:        codec,
		log:          log,
		mediaBaseURL: mediaBaseURL,
		maxUpload:    maxUpload,
	}
}

// Router assembles the chi router with middleware and routes.
func (s *Server) Router(corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(Recover(s.log))
	r.Use(Logging(s.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Range"},
		ExposedHeaders:   []string{"Content-Range", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/api/media/get", s.handleMediaGet)
	r.Post("/api/auth/login", s.handleLogin)
	r.Post("/api/auth/register", s.handleRegister)
	r.Get("/api/comments", s.handleCommentsList)
	r.Post("/api/comments", s.handleCommentsMutate)
	r.Post("/api/update-md", s.handleUpdateMarkdown)
	r.Post("/api/upload-image", s.handleUploadImage)
	r.Get("/api/user/profile", s.handleGetProfile)
	r.Post("/api/user/profile", s.handleUpdateProfile)
	r.Post("/api/admin/invites", s.handleCreateInvites)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	return r
}
