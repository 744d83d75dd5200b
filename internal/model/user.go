package model

// A User represents a database record of the auth subsystem.
// The profile is the identity exposed to the rest of the application,
// the user only carries credentials.
type User struct {
	Base `msgpack:",inline" storm:"inline"`

	ProfileID     string `msgpack:"profile_id" storm:"index"`
	Email         string `msgpack:"email"      storm:"unique"`
	Password      string `msgpack:"password,omitempty"`
	EmailVerified bool   `msgpack:"email_verified"`
}
