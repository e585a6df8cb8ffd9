package domain

import "time"

// SessionCredential represents a successfully authenticated caller.
// It lives for a single request and is never persisted.
type SessionCredential struct {
	Identity  string    `json:"identity"`
	Mode      Mode      `json:"mode"`
	Token     string    `json:"-"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
