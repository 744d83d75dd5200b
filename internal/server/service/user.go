package service

import (
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	argon2 "github.com/mdouchement/simple-argon2"
	"github.com/mx-wll/kinderkreisel/internal/database"
	"github.com/mx-wll/kinderkreisel/internal/kkerror"
	"github.com/mx-wll/kinderkreisel/internal/model"
	"github.com/mx-wll/kinderkreisel/internal/server/session"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// DefaultZipCode is the neighborhood the marketplace serves.
const DefaultZipCode = "83623"

// PasswordResetTTL is how long an emailed reset token stays usable.
const PasswordResetTTL = 2 * time.Hour

type (
	// A Render is an arbitrary payload serializable in JSON by the API.
	Render interface{}

	// A UserService handles registration, login and credential changes.
	UserService interface {
		Register(params RegisterParams) (Render, error)
		Login(params LoginParams) (Render, error)
		Password(profile *model.Profile, currentSession *model.Session, params UpdatePasswordParams) error
		RequestPasswordReset(params ResetRequestParams) (Render, error)
		ResetPassword(params ResetParams) error
	}

	// RegisterParams are used to register a user.
	RegisterParams struct {
		Params
		Email        string `json:"email"`
		Password     string `json:"password"`
		Name         string `json:"name"`
		Surname      string `json:"surname"`
		Residency    string `json:"residency"`
		Phone        string `json:"phone"`
		PhoneConsent bool   `json:"phone_consent"`
	}

	// LoginParams are used to login a user.
	LoginParams struct {
		Params
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	// UpdatePasswordParams are used to update user's password.
	UpdatePasswordParams struct {
		Params
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}

	// ResetRequestParams are used to request a password reset token.
	ResetRequestParams struct {
		Params
		Email string `json:"email"`
	}

	// ResetParams are used to consume a password reset token.
	ResetParams struct {
		Params
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}

	userService struct {
		db        database.Client
		sessions  session.Manager
		secretKey []byte
	}
)

// NewUser returns a new UserService.
func NewUser(db database.Client, sessions session.Manager, secretKey []byte) UserService {
	return &userService{
		db:        db,
		sessions:  sessions,
		secretKey: secretKey,
	}
}

// Register creates the profile, the credentials and a first session.
func (s *userService) Register(params RegisterParams) (Render, error) {
	email := strings.ToLower(strings.TrimSpace(params.Email))

	// Check if the email is free to use.
	_, err := s.db.FindUserByEmail(email)
	if err == nil {
		return nil, kkerror.Conflict(kkerror.TagEmailExists, "This email is already registered.")
	}
	if !s.db.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not get access to database")
	}

	profile := &model.Profile{
		Name:               params.Name,
		Surname:            params.Surname,
		Residency:          params.Residency,
		ZipCode:            DefaultZipCode,
		Phone:              params.Phone,
		PhoneConsent:       params.PhoneConsent,
		EmailNotifications: true,
		LastMessageEmailAt: time.Now().UTC(),
	}
	if err := s.db.Save(profile); err != nil {
		return nil, errors.Wrap(err, "could not persist profile")
	}

	user := &model.User{
		ProfileID: profile.ID,
		Email:     email,
	}
	user.Password, err = argon2.GenerateFromPasswordString(params.Password, argon2.Default)
	if err != nil {
		return nil, errors.Wrap(err, "could not store user password safe")
	}
	if err := s.db.Save(user); err != nil {
		return nil, errors.Wrap(err, "could not persist user")
	}

	return s.open(profile, params.Params)
}

// Login authenticates a user and opens a new session.
func (s *userService) Login(params LoginParams) (Render, error) {
	user, err := s.db.FindUserByEmail(strings.ToLower(strings.TrimSpace(params.Email)))
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, kkerror.NewWithTagCode(http.StatusUnauthorized, kkerror.TagInvalidAuth, "Invalid email or password.")
		}
		return nil, errors.Wrap(err, "could not get user")
	}

	if err = argon2.CompareHashAndPasswordString(user.Password, params.Password); err != nil {
		if err == argon2.ErrMismatchedHashAndPassword {
			return nil, kkerror.NewWithTagCode(http.StatusUnauthorized, kkerror.TagInvalidAuth, "Invalid email or password.")
		}
		return nil, errors.Wrap(err, "could not validate password")
	}

	profile, err := s.db.FindProfile(user.ProfileID)
	if err != nil {
		return nil, errors.Wrap(err, "could not get profile")
	}

	return s.open(profile, params.Params)
}

// Password verifies the current password and stores the new one.
// Every other session of the profile is revoked.
func (s *userService) Password(profile *model.Profile, currentSession *model.Session, params UpdatePasswordParams) error {
	user, err := s.db.FindUserByProfile(profile.ID)
	if err != nil {
		return errors.Wrap(err, "could not get user")
	}

	if err := argon2.CompareHashAndPasswordString(user.Password, params.CurrentPassword); err != nil {
		if err == argon2.ErrMismatchedHashAndPassword {
			return kkerror.NewWithTagCode(http.StatusUnauthorized, kkerror.TagInvalidAuth, "The current password you entered is incorrect.")
		}
		return errors.Wrap(err, "could not validate password")
	}

	return s.updatePassword(user, params.NewPassword, currentSession.ID)
}

// RequestPasswordReset issues a single-use reset token.
// An unknown email yields the same response so addresses cannot be probed.
func (s *userService) RequestPasswordReset(params ResetRequestParams) (Render, error) {
	user, err := s.db.FindUserByEmail(strings.ToLower(strings.TrimSpace(params.Email)))
	if err != nil {
		if s.db.IsNotFound(err) {
			return M{"ok": true}, nil
		}
		return nil, errors.Wrap(err, "could not get user")
	}

	token := session.SecureToken(32)
	reset := &model.PasswordReset{
		ProfileID: user.ProfileID,
		TokenHash: s.hashToken(token),
		ExpiresAt: time.Now().Add(PasswordResetTTL).UTC(),
	}
	if err := s.db.Save(reset); err != nil {
		return nil, errors.Wrap(err, "could not persist password reset")
	}

	// TODO: hand the token to a mailer collaborator instead of rendering it
	// once email delivery lands.
	return M{"ok": true, "reset_token": token}, nil
}

// ResetPassword consumes a reset token and stores the new password.
func (s *userService) ResetPassword(params ResetParams) error {
	reset, err := s.db.FindPasswordResetByTokenHash(s.hashToken(params.Token))
	if err != nil {
		if s.db.IsNotFound(err) {
			return kkerror.NewWithTagCode(http.StatusBadRequest, kkerror.TagInvalidAuth, "Invalid or expired reset token.")
		}
		return errors.Wrap(err, "could not get password reset")
	}
	if reset.Used() || reset.ExpiresAt.Before(time.Now()) {
		return kkerror.NewWithTagCode(http.StatusBadRequest, kkerror.TagInvalidAuth, "Invalid or expired reset token.")
	}

	user, err := s.db.FindUserByProfile(reset.ProfileID)
	if err != nil {
		return errors.Wrap(err, "could not get user")
	}

	reset.UsedAt = time.Now().UTC()
	if err := s.db.Save(reset); err != nil {
		return errors.Wrap(err, "could not mark reset token used")
	}

	return s.updatePassword(user, params.NewPassword, "")
}

// open persists a fresh session and renders the login payload.
func (s *userService) open(profile *model.Profile, params Params) (Render, error) {
	sess := s.sessions.Generate(profile.ID, params.UserAgent)
	if err := s.db.Save(sess); err != nil {
		return nil, errors.Wrap(err, "could not persist session")
	}

	return M{
		"profile": profile,
		"session": M{
			"access_token":  sess.AccessToken,
			"refresh_token": sess.RefreshToken,
			"expire_at":     s.sessions.AccessTokenExpireAt(sess),
		},
	}, nil
}

func (s *userService) updatePassword(user *model.User, password, keepSessionID string) error {
	if len(password) < 8 {
		return kkerror.NewWithTagCode(http.StatusBadRequest, kkerror.TagInvalidParams, "Password must be at least 8 characters.")
	}

	hash, err := argon2.GenerateFromPasswordString(password, argon2.Default)
	if err != nil {
		return errors.Wrap(err, "could not store user password safe")
	}
	user.Password = hash
	if err := s.db.Save(user); err != nil {
		return errors.Wrap(err, "could not persist user")
	}

	// Revoke every other session of the profile.
	sessions, err := s.db.FindSessionsByProfile(user.ProfileID)
	if err != nil {
		return errors.Wrap(err, "could not list sessions")
	}
	for _, sess := range sessions {
		if sess.ID == keepSessionID {
			continue
		}
		if err := s.db.Delete(sess); err != nil {
			return errors.Wrap(err, "could not delete session")
		}
	}
	return nil
}

func (s *userService) hashToken(token string) string {
	h, err := blake2b.New256(s.secretKey)
	if err != nil {
		panic(err) // key is size checked at boot
	}
	h.Write([]byte(token))
	return hex.EncodeToString(h.Sum(nil))
}
