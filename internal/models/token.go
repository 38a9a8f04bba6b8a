package models

import "time"

// RefreshToken represents a refresh session stored in the token store. The
// store owns expiry through TTL, so entries disappear rather than linger in a
// revoked state.
type RefreshToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
}
