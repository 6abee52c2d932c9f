// Package config loads explicit server configuration from the environment.
//
// Secrets, salts and collection names are never read ambiently at use sites:
// everything is resolved once into a Config struct and injected, so the token
// issuer/verifier stay pure functions of (input, config).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Comment backend names.
const (
	CommentBackendPostgres = "postgres"
	CommentBackendGitHub   = "github"
)

// Config carries all server settings.
type Config struct {
	Addr        string
	DatabaseURL string
	CORSOrigins []string

	TokenSecret string
	TokenScheme string // "hs256" (default) or "legacy"
	TokenTTL    time.Duration

	// AccessKey is an optional site-wide key granting reader access on login.
	// Empty disables access-key login.
	AccessKey string

	CommentBackend string

	GitHub  GitHub
	Media   Media
	Limiter Limiter
}

// GitHub configures the Git hosting collaborator for comments and content edits.
type GitHub struct {
	Token   string
	Owner   string
	Repo    string
	Branch  string
	APIBase string // override for tests / GHE; empty means api.github.com
}

// Media configures the S3-compatible object store (Cloudflare R2).
type Media struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
	MaxUploadBytes  int64
}

// Limiter configures the failure rate limiter.
type Limiter struct {
	Window   time.Duration
	MaxFails int
	BlockFor time.Duration
}

// Load reads the environment (plus .env in dev) and validates required fields.
func Load() (*Config, error) {
	_ = godotenv.Load() // ok if missing in prod

	cfg := &Config{
		Addr:           getenv("ADDR", ":8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		CORSOrigins:    splitList(getenv("CORS_ORIGINS", "*")),
		TokenSecret:    os.Getenv("TOKEN_SECRET"),
		TokenScheme:    getenv("TOKEN_SCHEME", "hs256"),
		TokenTTL:       getduration("TOKEN_TTL", 72*time.Hour),
		AccessKey:      os.Getenv("ACCESS_KEY"),
		CommentBackend: getenv("COMMENT_BACKEND", CommentBackendPostgres),
		GitHub: GitHub{
			Token:   os.Getenv("GITHUB_TOKEN"),
			Owner:   os.Getenv("GITHUB_OWNER"),
			Repo:    os.Getenv("GITHUB_REPO"),
			Branch:  getenv("GITHUB_BRANCH", "main"),
			APIBase: os.Getenv("GITHUB_API_BASE"),
		},
		Media: Media{
			Endpoint:        os.Getenv("MEDIA_ENDPOINT"),
			Region:          getenv("MEDIA_REGION", "auto"),
			Bucket:          os.Getenv("MEDIA_BUCKET"),
			AccessKeyID:     os.Getenv("MEDIA_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("MEDIA_SECRET_ACCESS_KEY"),
			PublicBaseURL:   os.Getenv("MEDIA_PUBLIC_BASE_URL"),
			MaxUploadBytes:  getint64("MEDIA_MAX_UPLOAD_BYTES", 8<<20),
		},
		Limiter: Limiter{
			Window:   getduration("LIMITER_WINDOW", 10*time.Minute),
			MaxFails: int(getint64("LIMITER_MAX_FAILS", 5)),
			BlockFor: getduration("LIMITER_BLOCK_FOR", 10*time.Minute),
		},
	}

	if cfg.TokenSecret == "" {
		return nil, fmt.Errorf("missing required env TOKEN_SECRET")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("missing required env DATABASE_URL")
	}
	if cfg.CommentBackend != CommentBackendPostgres && cfg.CommentBackend != CommentBackendGitHub {
		return nil, fmt.Errorf("unknown COMMENT_BACKEND %q", cfg.CommentBackend)
	}
	if cfg.CommentBackend == CommentBackendGitHub && (cfg.GitHub.Owner == "" || cfg.GitHub.Repo == "") {
		return nil, fmt.Errorf("COMMENT_BACKEND=github requires GITHUB_OWNER and GITHUB_REPO")
	}
	return cfg, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getint64(k string, def int64) int64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
