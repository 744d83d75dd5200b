package model

import (
	"time"
)

// A Session represents a database record.
type Session struct {
	Base `msgpack:",inline" storm:"inline"`

	ExpireAt     time.Time `msgpack:"expire_at"`
	ProfileID    string    `msgpack:"profile_id"    storm:"index"`
	UserAgent    string    `msgpack:"user_agent"`
	AccessToken  string    `msgpack:"access_token"  storm:"unique"`
	RefreshToken string    `msgpack:"refresh_token" storm:"unique"`
}
