package token

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mzyun/novelgate/internal/errs"
)

// Legacy reproduces the token format of the previous deployment: three
// base64url segments where the signature is a reversible encoding of
// header + "." + payload + "." + secret, not a MAC. Security rests entirely
// on the secret staying server-side. Kept only for compatibility with
// already-issued tokens; never the default scheme.
type Legacy struct {
	secret []byte
}

// NewLegacy constructs the compatibility codec.
func NewLegacy(secret []byte) *Legacy { return &Legacy{secret: secret} }

const legacyHeader = `{"alg":"plain","typ":"JWT"}`

var b64 = base64.RawURLEncoding

// Issue encodes the claim set in the legacy wire form.
func (l *Legacy) Issue(c Claims) (string, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	hSeg := b64.EncodeToString([]byte(legacyHeader))
	pSeg := b64.EncodeToString(payload)
	return hSeg + "." + pSeg + "." + l.signature(hSeg, pSeg), nil
}

// Decode validates wire form, signature and expiry, in that order. Each step
// is a distinct failure mode, all mapped to ErrUnauthorized.
func (l *Legacy) Decode(tok string) (Claims, error) {
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		return Claims{}, fmt.Errorf("%w: malformed token", errs.ErrUnauthorized)
	}
	payload, err := b64.DecodeString(parts[1])
	if err != nil {
		return Claims{}, fmt.Errorf("%w: malformed token", errs.ErrUnauthorized)
	}
	var c Claims
	if err := json.Unmarshal(payload, &c); err != nil {
		return Claims{}, fmt.Errorf("%w: malformed token", errs.ErrUnauthorized)
	}
	want := l.signature(parts[0], parts[1])
	if subtle.ConstantTimeCompare([]byte(parts[2]), []byte(want)) != 1 {
		return Claims{}, fmt.Errorf("%w: invalid signature", errs.ErrUnauthorized)
	}
	// A token with no exp is invalid: fail closed.
	if c.ExpiresAt == 0 || c.ExpiresAt < time.Now().UnixMilli() {
		return Claims{}, fmt.Errorf("%w: token expired", errs.ErrUnauthorized)
	}
	return c, nil
}

func (l *Legacy) signature(hSeg, pSeg string) string {
	return b64.EncodeToString([]byte(hSeg + "." + pSeg + "." + string(l.secret)))
}
