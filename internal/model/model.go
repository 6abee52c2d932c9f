// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// User represents an account. Password material is never stored in plaintext.
type User struct {
	ID          uuid.UUID // PK
	Username    string    // unique
	Nickname    string    // display name, mutable via profile endpoint
	PwdHash     []byte    // Argon2id(password, Salt)
	Salt        []byte    // per-user salt
	Role        string    // "reader", "editor", "admin"
	Permissions []string  // capability tags granted at registration
	CreatedAt   time.Time
}

// Invite is a one-time-use registration capability bound to a role/permission
// template. Only the SHA-256 hash of the code is persisted; the plaintext code
// is returned exactly once, at creation.
type Invite struct {
	CodeHash    []byte // PK, SHA-256 of the plaintext code
	Role        string
	Permissions []string
	ExpiresAt   time.Time
	AssignedID  *uuid.UUID // optional pre-assigned user id
	UsedBy      *uuid.UUID // nil while unused
	UsedAt      *time.Time
	CreatedAt   time.Time
}

// Expired reports whether the invite is past its expiry at the given instant.
// Expiry is checked at use time, never proactively.
func (i *Invite) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// Used reports whether the invite has already been consumed.
func (i *Invite) Used() bool { return i.UsedBy != nil }

// Comment is a single flat comment scoped to a post. ParentID may reference a
// comment that no longer exists; tree reconstruction is a client concern.
type Comment struct {
	ID        uuid.UUID  `json:"id"`
	PostID    string     `json:"-"`
	ParentID  *uuid.UUID `json:"parentId"`
	Author    string     `json:"author"`
	Content   string     `json:"content"`
	Upvotes   int        `json:"upvotes"`
	CreatedAt time.Time  `json:"createdAt"`
}
