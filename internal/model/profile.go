package model

import (
	"time"
)

// A Profile represents a database record.
// It is the seller/buyer identity every mutating call acts as.
type Profile struct {
	Base `msgpack:",inline" storm:"inline"`

	Name               string    `json:"name"                  msgpack:"name"`
	Surname            string    `json:"surname"               msgpack:"surname"`
	Residency          string    `json:"residency"             msgpack:"residency"`
	ZipCode            string    `json:"zip_code"              msgpack:"zip_code"`
	Phone              string    `json:"phone"                 msgpack:"phone"`
	AvatarURL          string    `json:"avatar_url"            msgpack:"avatar_url,omitempty"`
	AvatarStorageID    string    `json:"avatar_storage_id"     msgpack:"avatar_storage_id,omitempty"`
	PhoneConsent       bool      `json:"phone_consent"         msgpack:"phone_consent"`
	EmailNotifications bool      `json:"email_notifications"   msgpack:"email_notifications"`
	LastMessageEmailAt time.Time `json:"last_message_email_at" msgpack:"last_message_email_at"`
}

// A Child represents a database record attached to a profile.
// Only used to tailor the item feed, deleted with its profile.
type Child struct {
	Base `msgpack:",inline" storm:"inline"`

	ProfileID string `json:"profile_uuid" msgpack:"profile_id" storm:"index"`
	Age       int    `json:"age"          msgpack:"age,omitempty"`
	Gender    string `json:"gender"       msgpack:"gender,omitempty"`
}
