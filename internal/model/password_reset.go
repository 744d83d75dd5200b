package model

import (
	"time"
)

// A PasswordReset represents a database record.
// Only the keyed hash of the emailed token is stored.
type PasswordReset struct {
	Base `msgpack:",inline" storm:"inline"`

	ProfileID string    `msgpack:"profile_id" storm:"index"`
	TokenHash string    `msgpack:"token_hash" storm:"unique"`
	ExpiresAt time.Time `msgpack:"expires_at"`
	UsedAt    time.Time `msgpack:"used_at,omitempty"`
}

// Used returns true once the token has been consumed.
func (p *PasswordReset) Used() bool {
	return !p.UsedAt.IsZero()
}
