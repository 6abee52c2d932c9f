// Package crypto implements server-side password hashing and invite-code handling.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters (tuned for server-side hashing).
const (
	argonTime    uint32 = 3         // iterations
	argonMemory  uint32 = 64 * 1024 // 64 MB
	argonThreads uint8  = 1
	argonKeyLen  uint32 = 32
)

// InviteCodeLen is the length of plaintext invite codes.
const InviteCodeLen = 12

// Unambiguous alphabet: no 0/O, 1/I/l.
const codeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz"

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// HashPassword returns Argon2id hash of password using the provided salt.
func HashPassword(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// VerifyPassword verifies password against expected Argon2id hash and salt.
func VerifyPassword(password, salt, expected []byte) bool {
	got := HashPassword(password, salt)
	return subtle.ConstantTimeCompare(got, expected) == 1
}

// NewInviteCode generates a plaintext invite code. The code is returned to the
// caller exactly once; only its hash is ever persisted.
func NewInviteCode() (string, error) {
	raw, err := RandBytes(InviteCodeLen)
	if err != nil {
		return "", err
	}
	out := make([]byte, InviteCodeLen)
	for i, b := range raw {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out), nil
}

// HashCode returns the SHA-256 digest of an invite code or access key.
func HashCode(code string) []byte {
	h := sha256.Sum256([]byte(code))
	return h[:]
}

// EqualDigests compares two digests in constant time.
func EqualDigests(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
