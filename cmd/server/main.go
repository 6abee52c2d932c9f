// Command novelgate-server starts the private blog/forum HTTP API.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mzyun/novelgate/internal/config"
	"github.com/mzyun/novelgate/internal/limiter"
	"github.com/mzyun/novelgate/internal/mediastore"
	"github.com/mzyun/novelgate/internal/migrate"
	"github.com/mzyun/novelgate/internal/repository"
	"github.com/mzyun/novelgate/internal/repository/github"
	"github.com/mzyun/novelgate/internal/repository/postgres"
	httpserver "github.com/mzyun/novelgate/internal/server/http"
	"github.com/mzyun/novelgate/internal/service"
	"github.com/mzyun/novelgate/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations, wires collaborators and serves
// HTTP until interrupted.
func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DatabaseURL); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("pgxpool.New", zap.Error(err))
	}
	defer pool.Close()

	db := &postgres.DB{Pool: pool}
	userRepo := postgres.NewUserRepo(db)
	inviteRepo := postgres.NewInviteRepo(db)

	var commentRepo repository.CommentRepository
	var ghClient *github.Client
	if cfg.GitHub.Owner != "" && cfg.GitHub.Repo != "" {
		var opts []github.Option
		if cfg.GitHub.APIBase != "" {
			opts = append(opts, github.WithBaseURL(cfg.GitHub.APIBase))
		}
		ghClient = github.NewClient(cfg.GitHub.Token, cfg.GitHub.Owner, cfg.GitHub.Repo, cfg.GitHub.Branch, opts...)
	}
	switch cfg.CommentBackend {
	case config.CommentBackendGitHub:
		commentRepo = github.NewCommentStore(ghClient, "")
	default:
		commentRepo = postgres.NewCommentRepo(db)
	}

	lim := limiter.NewPG(pool, cfg.Limiter.Window, cfg.Limiter.MaxFails, cfg.Limiter.BlockFor)

	codec, err := token.New(cfg.TokenScheme, []byte(cfg.TokenSecret))
	if err != nil {
		logger.Fatal("token codec", zap.Error(err))
	}

	var media mediastore.Store
	if cfg.Media.Bucket != "" {
		media, err = mediastore.NewS3(ctx, cfg.Media.Endpoint, cfg.Media.Region,
			cfg.Media.AccessKeyID, cfg.Media.SecretAccessKey, cfg.Media.Bucket)
		if err != nil {
			logger.Fatal("media store", zap.Error(err))
		}
	}

	authSvc := service.NewAuth(userRepo, inviteRepo, lim, codec, cfg.AccessKey, cfg.TokenTTL, logger)
	commentSvc := service.NewComments(commentRepo)

	var contentSvc service.ContentService
	if ghClient != nil {
		contentSvc = service.NewContent(ghClient)
	}

	app := httpserver.New(authSvc, commentSvc, contentSvc, media, codec,
		cfg.Media.PublicBaseURL, cfg.Media.MaxUploadBytes, logger)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router(cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
		}
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
