// Package service contains application services for authentication, comments
// and content editing.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	pkgcrypto "github.com/mzyun/novelgate/internal/crypto"
	"github.com/mzyun/novelgate/internal/errs"
	"github.com/mzyun/novelgate/internal/limiter"
	"github.com/mzyun/novelgate/internal/model"
	"github.com/mzyun/novelgate/internal/repository"
	"github.com/mzyun/novelgate/internal/token"
)

// Rate-limited actions.
const (
	actionLogin    = "login"
	actionRegister = "register"
	actionInvite   = "invite"
)

const maxInviteBatch = 100

// RegisterRequest carries the registration flow inputs.
type RegisterRequest struct {
	Username   string
	Password   string
	Nickname   string
	InviteCode string
}

// CreatedInvite is returned once per generated invite; the plaintext code is
// never persisted.
type CreatedInvite struct {
	Code        string    `json:"code"`
	Role        string    `json:"role"`
	Permissions []string  `json:"permissions"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Profile is the user-profile endpoint payload.
type Profile struct {
	Sub      string `json:"sub"`
	Nickname string `json:"nickname"`
}

// AuthService defines authentication, invite and profile operations.
type AuthService interface {
	// Login authenticates with username/password, applying rate limiting by client address.
	Login(ctx context.Context, username, password, ip string) (string, *model.User, error)
	// LoginWithAccessKey authenticates with the site-wide access key and
	// issues a reader token with a synthetic subject.
	LoginWithAccessKey(ctx context.Context, key, ip string) (string, token.Claims, error)
	// Register consumes an invite and creates an account.
	Register(ctx context.Context, req RegisterRequest, ip string) (string, *model.User, error)
	// CreateInvites generates a batch of one-time invite codes.
	CreateInvites(ctx context.Context, count int, role string, perms []string, ttl time.Duration, ip string) ([]CreatedInvite, error)
	// Profile returns the display profile for a token subject.
	Profile(ctx context.Context, sub string) (*Profile, error)
	// UpdateProfile sets the nickname for a token subject.
	UpdateProfile(ctx context.Context, sub, nickname string) error
}

// Auth implements AuthService.
type Auth struct {
	users     repository.UserRepository
	invites   repository.InviteRepository
	lim       limiter.Limiter
	codec     token.Codec
	accessKey []byte // hash of the configured site-wide key; nil disables
	tokenTTL  time.Duration
	inviteTTL time.Duration
	log       *zap.Logger

	now func() time.Time
}

// NewAuth constructs the auth service. accessKey may be empty.
func NewAuth(users repository.UserRepository, invites repository.InviteRepository,
	lim limiter.Limiter, codec token.Codec, accessKey string, tokenTTL time.Duration, log *zap.Logger) *Auth {
	a := &Auth{
		users:     users,
		invites:   invites,
		lim:       lim,
		codec:     codec,
		tokenTTL:  tokenTTL,
		inviteTTL: 7 * 24 * time.Hour,
		log:       log,
		now:       time.Now,
	}
	if accessKey != "" {
		a.accessKey = pkgcrypto.HashCode(accessKey)
	}
	return a
}

// allow consults the limiter, failing open on infrastructure errors: a broken
// limiter store must not block logins.
func (a *Auth) allow(ctx context.Context, ip, action string) error {
	ok, retry, err := a.lim.Allow(ctx, ip, action)
	if err != nil {
		a.log.Warn("rate limiter unavailable, allowing", zap.String("action", action), zap.Error(err))
		return nil
	}
	if !ok {
		return errs.RateLimited(retry)
	}
	return nil
}

// failure records a failed attempt, best-effort. Returns a rate-limit error
// when this failure tripped the lockout.
func (a *Auth) failure(ctx context.Context, ip, action string) error {
	blocked, retry, err := a.lim.Failure(ctx, ip, action)
	if err != nil {
		a.log.Warn("rate limiter failure bookkeeping failed", zap.String("action", action), zap.Error(err))
		return nil
	}
	if blocked {
		return errs.RateLimited(retry)
	}
	return nil
}

func (a *Auth) success(ctx context.Context, ip, action string) {
	if err := a.lim.Success(ctx, ip, action); err != nil {
		a.log.Warn("rate limiter reset failed", zap.String("action", action), zap.Error(err))
	}
}

func (a *Auth) issue(sub, role string, perms []string) (string, error) {
	now := a.now()
	return a.codec.Issue(token.Claims{
		Sub:         sub,
		Role:        role,
		Permissions: perms,
		IssuedAt:    now.UnixMilli(),
		ExpiresAt:   now.Add(a.tokenTTL).UnixMilli(),
	})
}

// Login authenticates with username/password.
func (a *Auth) Login(ctx context.Context, username, password, ip string) (string, *model.User, error) {
	if username == "" || password == "" {
		return "", nil, fmt.Errorf("%w: empty username/password", errs.ErrBadRequest)
	}
	if err := a.allow(ctx, ip, actionLogin); err != nil {
		return "", nil, err
	}

	u, err := a.users.GetByUsername(ctx, username)
	if err != nil || !pkgcrypto.VerifyPassword([]byte(password), u.Salt, u.PwdHash) {
		if rl := a.failure(ctx, ip, actionLogin); rl != nil {
			return "", nil, rl
		}
		// user lookup errors masked: do not reveal account existence
		return "", nil, fmt.Errorf("%w: invalid credentials", errs.ErrUnauthorized)
	}

	a.success(ctx, ip, actionLogin)

	tok, err := a.issue(u.ID.String(), u.Role, u.Permissions)
	if err != nil {
		return "", nil, err
	}
	return tok, u, nil
}

// LoginWithAccessKey authenticates with the site-wide access key.
func (a *Auth) LoginWithAccessKey(ctx context.Context, key, ip string) (string, token.Claims, error) {
	if key == "" {
		return "", token.Claims{}, fmt.Errorf("%w: empty access key", errs.ErrBadRequest)
	}
	if err := a.allow(ctx, ip, actionLogin); err != nil {
		return "", token.Claims{}, err
	}
	if a.accessKey == nil || !pkgcrypto.EqualDigests(pkgcrypto.HashCode(key), a.accessKey) {
		if rl := a.failure(ctx, ip, actionLogin); rl != nil {
			return "", token.Claims{}, rl
		}
		return "", token.Claims{}, fmt.Errorf("%w: invalid access key", errs.ErrUnauthorized)
	}
	a.success(ctx, ip, actionLogin)

	id, err := uuid.NewV4()
	if err != nil {
		return "", token.Claims{}, err
	}
	now := a.now()
	claims := token.Claims{
		Sub:         "guest-" + id.String(),
		Role:        token.RoleReader,
		Permissions: []string{token.PermRead},
		IssuedAt:    now.UnixMilli(),
		ExpiresAt:   now.Add(a.tokenTTL).UnixMilli(),
	}
	tok, err := a.codec.Issue(claims)
	if err != nil {
		return "", token.Claims{}, err
	}
	return tok, claims, nil
}

// Register validates the invite, creates the account and issues a token.
//
// The invite is consumed with a conditional write before the user row is
// created, so one invite backs at most one account even under concurrent use.
// A user-creation failure after consumption burns the invite; that narrow
// window is logged and accepted (usernames are pre-checked just above).
func (a *Auth) Register(ctx context.Context, req RegisterRequest, ip string) (string, *model.User, error) {
	if err := a.allow(ctx, ip, actionRegister); err != nil {
		return "", nil, err
	}
	tok, u, err := a.register(ctx, req)
	if err != nil {
		if errors.Is(err, errs.ErrRateLimited) {
			return "", nil, err
		}
		if rl := a.failure(ctx, ip, actionRegister); rl != nil {
			return "", nil, rl
		}
		return "", nil, err
	}
	a.success(ctx, ip, actionRegister)
	return tok, u, nil
}

func (a *Auth) register(ctx context.Context, req RegisterRequest) (string, *model.User, error) {
	if req.Username == "" || req.Password == "" || req.InviteCode == "" {
		return "", nil, fmt.Errorf("%w: username, password and invite are required", errs.ErrBadRequest)
	}

	codeHash := pkgcrypto.HashCode(req.InviteCode)
	inv, err := a.invites.GetByCodeHash(ctx, codeHash)
	if errors.Is(err, errs.ErrNotFound) {
		return "", nil, fmt.Errorf("%w: invalid invite", errs.ErrUnauthorized)
	}
	if err != nil {
		return "", nil, err
	}
	if inv.Used() {
		return "", nil, fmt.Errorf("%w: invite already used", errs.ErrConflict)
	}
	if inv.Expired(a.now()) {
		return "", nil, fmt.Errorf("%w: invite expired", errs.ErrUnauthorized)
	}

	if _, err := a.users.GetByUsername(ctx, req.Username); err == nil {
		return "", nil, fmt.Errorf("%w: username taken", errs.ErrConflict)
	}

	uid := uuid.Must(uuid.NewV4())
	if inv.AssignedID != nil {
		uid = *inv.AssignedID
	}

	if err := a.invites.Consume(ctx, codeHash, uid, a.now()); err != nil {
		if errors.Is(err, errs.ErrConflict) {
			return "", nil, fmt.Errorf("%w: invite already used", errs.ErrConflict)
		}
		return "", nil, err
	}

	salt, err := pkgcrypto.RandBytes(16)
	if err != nil {
		return "", nil, err
	}
	u := &model.User{
		ID:          uid,
		Username:    req.Username,
		Nickname:    req.Nickname,
		PwdHash:     pkgcrypto.HashPassword([]byte(req.Password), salt),
		Salt:        salt,
		Role:        inv.Role,
		Permissions: inv.Permissions,
	}
	if err := a.users.Create(ctx, u); err != nil {
		a.log.Error("user creation failed after invite consumption",
			zap.String("username", req.Username), zap.Error(err))
		return "", nil, err
	}

	tok, err := a.issue(u.ID.String(), u.Role, u.Permissions)
	if err != nil {
		return "", nil, err
	}
	return tok, u, nil
}

// CreateInvites generates count one-time codes bound to a role/permission template.
func (a *Auth) CreateInvites(ctx context.Context, count int, role string, perms []string, ttl time.Duration, ip string) ([]CreatedInvite, error) {
	if count < 1 || count > maxInviteBatch {
		return nil, fmt.Errorf("%w: count must be 1..%d", errs.ErrBadRequest, maxInviteBatch)
	}
	if role == "" {
		return nil, fmt.Errorf("%w: role is required", errs.ErrBadRequest)
	}
	if err := a.allow(ctx, ip, actionInvite); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = a.inviteTTL
	}
	expires := a.now().Add(ttl)

	out := make([]CreatedInvite, 0, count)
	batch := make([]*model.Invite, 0, count)
	for i := 0; i < count; i++ {
		code, err := pkgcrypto.NewInviteCode()
		if err != nil {
			return nil, err
		}
		out = append(out, CreatedInvite{Code: code, Role: role, Permissions: perms, ExpiresAt: expires})
		batch = append(batch, &model.Invite{
			CodeHash:    pkgcrypto.HashCode(code),
			Role:        role,
			Permissions: perms,
			ExpiresAt:   expires,
		})
	}
	if err := a.invites.CreateBatch(ctx, batch); err != nil {
		if rl := a.failure(ctx, ip, actionInvite); rl != nil {
			return nil, rl
		}
		return nil, err
	}
	a.success(ctx, ip, actionInvite)
	return out, nil
}

// Profile resolves a token subject to its display profile. Lookups fail open:
// a synthetic subject or a degraded store yields an empty nickname, never an error.
func (a *Auth) Profile(ctx context.Context, sub string) (*Profile, error) {
	id, err := uuid.FromString(sub)
	if err != nil {
		return &Profile{Sub: sub}, nil
	}
	u, err := a.users.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			a.log.Warn("nickname lookup failed", zap.String("sub", sub), zap.Error(err))
		}
		return &Profile{Sub: sub}, nil
	}
	return &Profile{Sub: sub, Nickname: u.Nickname}, nil
}

// UpdateProfile sets the nickname for a token subject.
func (a *Auth) UpdateProfile(ctx context.Context, sub, nickname string) error {
	if nickname == "" {
		return fmt.Errorf("%w: empty nickname", errs.ErrBadRequest)
	}
	id, err := uuid.FromString(sub)
	if err != nil {
		return fmt.Errorf("%w: profile updates require an account", errs.ErrBadRequest)
	}
	return a.users.UpdateNickname(ctx, id, nickname)
}
