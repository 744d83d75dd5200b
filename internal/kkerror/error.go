package kkerror

import "net/http"

// StatusExpiredAccessToken is an HTTP status code used when an access token is expired.
const StatusExpiredAccessToken = 498

// Tags rendered to the client so it can display a dedicated message.
const (
	TagExpiredAccessToken  = "expired-access-token"
	TagExpiredRefreshToken = "expired-refresh-token"
	TagNotFound            = "not-found"
	TagUnauthorized        = "unauthorized"
	TagInvalidAuth         = "invalid-auth"
	TagInvalidParams       = "invalid-params"
	TagItemUnavailable     = "item-unavailable"
	TagAlreadyReserved     = "already-reserved"
	TagSelfReservation     = "self-reservation"
	TagReservationMismatch = "reservation-mismatch"
	TagEmailExists         = "email-exists"
	TagLimitReached        = "limit-reached"
)

type (
	// A KKError represents the error format that can be rendered by the kinderkreisel server.
	KKError struct {
		HTTPCode   int `json:"-"`
		FieldError err `json:"error"`
	}

	err struct {
		Tag     string `json:"tag,omitempty"`
		Message string `json:"message"`
	}
)

// StatusCode returns the HTTP status code.
func StatusCode(err error) int {
	if kkerr, ok := err.(*KKError); ok && kkerr.HTTPCode > 0 {
		return kkerr.HTTPCode
	}
	return http.StatusInternalServerError
}

// Tag returns the error tag, if any.
func Tag(err error) string {
	if kkerr, ok := err.(*KKError); ok {
		return kkerr.FieldError.Tag
	}
	return ""
}

// New returns a new KKError with the given message.
func New(message string) *KKError {
	return &KKError{FieldError: err{Message: message}}
}

// NewWithTagCode returns a new KKError with the given code, tag and message.
func NewWithTagCode(code int, tag, message string) *KKError {
	return &KKError{HTTPCode: code, FieldError: err{Tag: tag, Message: message}}
}

// NotFound returns a 404 KKError.
func NotFound(message string) *KKError {
	return NewWithTagCode(http.StatusNotFound, TagNotFound, message)
}

// Unauthorized returns a 403 KKError.
func Unauthorized(message string) *KKError {
	return NewWithTagCode(http.StatusForbidden, TagUnauthorized, message)
}

// Conflict returns a 409 KKError with the given tag.
func Conflict(tag, message string) *KKError {
	return NewWithTagCode(http.StatusConflict, tag, message)
}

// Error implements error interface.
func (e *KKError) Error() string {
	return e.FieldError.Message
}
