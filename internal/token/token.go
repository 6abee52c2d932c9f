// Package token implements issuing and verifying bearer tokens.
//
// Two wire schemes are supported behind one Codec interface: the default
// HS256 JWT, and a legacy non-MAC codec kept for compatibility with tokens
// issued by the previous deployment. Claim shape is identical across schemes;
// iat/exp are milliseconds since epoch.
package token

import (
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mzyun/novelgate/internal/errs"
)

// Roles carried in the role claim.
const (
	RoleReader = "reader"
	RoleEditor = "editor"
	RoleAdmin  = "admin"
)

// Capability tags carried in the permissions claim.
const (
	PermRead    = "read"
	PermWrite   = "write"
	PermComment = "comment"
	PermDelete  = "delete"
	PermAdmin   = "admin"
)

// Schemes accepted by New.
const (
	SchemeHS256  = "hs256"
	SchemeLegacy = "legacy"
)

// Claims is the decoded payload of a bearer token.
type Claims struct {
	Sub         string   `json:"sub"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	IssuedAt    int64    `json:"iat"` // milliseconds since epoch
	ExpiresAt   int64    `json:"exp"` // milliseconds since epoch
}

// Allows reports whether the claim set satisfies the required permission set.
// An empty required set passes any valid token. Otherwise the claim passes if
// its permissions intersect the required set, or if role is admin and "admin"
// is among the accepted permissions.
func (c Claims) Allows(required []string) bool {
	if len(required) == 0 {
		return true
	}
	for _, p := range required {
		if p == PermAdmin && c.Role == RoleAdmin {
			return true
		}
		if slices.Contains(c.Permissions, p) {
			return true
		}
	}
	return false
}

// jwt.Claims implementation. iat/exp are stored as milliseconds on the wire;
// the converted values feed golang-jwt's validator.

func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	if c.ExpiresAt == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.UnixMilli(c.ExpiresAt)), nil
}

func (c Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	if c.IssuedAt == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.UnixMilli(c.IssuedAt)), nil
}

func (c Claims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (c Claims) GetIssuer() (string, error)              { return "", nil }
func (c Claims) GetSubject() (string, error)             { return c.Sub, nil }
func (c Claims) GetAudience() (jwt.ClaimStrings, error)  { return nil, nil }

// Codec issues and decodes tokens for one wire scheme. Decode validates
// signature and expiry; permission checks happen in Verify.
type Codec interface {
	Issue(c Claims) (string, error)
	Decode(tok string) (Claims, error)
}

// New returns the codec for the given scheme name.
func New(scheme string, secret []byte) (Codec, error) {
	switch scheme {
	case SchemeHS256, "":
		return &HS256{secret: secret}, nil
	case SchemeLegacy:
		return &Legacy{secret: secret}, nil
	default:
		return nil, fmt.Errorf("unknown token scheme %q", scheme)
	}
}

// Verify decodes a token and checks it against a required permission set.
// Decode failures map to ErrUnauthorized, permission failures to ErrForbidden.
func Verify(cdc Codec, tok string, required []string) (Claims, error) {
	if tok == "" {
		return Claims{}, fmt.Errorf("%w: missing token", errs.ErrUnauthorized)
	}
	c, err := cdc.Decode(tok)
	if err != nil {
		return Claims{}, err
	}
	if !c.Allows(required) {
		return Claims{}, fmt.Errorf("%w: insufficient permissions", errs.ErrForbidden)
	}
	return c, nil
}

// HS256 signs claims as a standard HMAC-SHA256 JWT.
type HS256 struct {
	secret []byte
}

// NewHS256 constructs the default codec.
func NewHS256(secret []byte) *HS256 { return &HS256{secret: secret} }

// Issue signs the claim set.
func (h *HS256) Issue(c Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(h.secret)
}

// Decode parses and validates a token. Expiry is required: a token without
// exp fails closed.
func (h *HS256) Decode(tok string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	var claims Claims
	parsed, err := parser.ParseWithClaims(tok, &claims, func(*jwt.Token) (any, error) {
		return h.secret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", errs.ErrUnauthorized, err)
	}
	if !parsed.Valid {
		return Claims{}, fmt.Errorf("%w: invalid token", errs.ErrUnauthorized)
	}
	return claims, nil
}

// ParseWithClaims needs a jwt.Claims to decode into; the pointer form must
// satisfy the interface as well.
var _ jwt.Claims = (*Claims)(nil)
