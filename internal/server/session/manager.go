package session

import (
	"net/http"
	"time"

	"github.com/mx-wll/kinderkreisel/internal/database"
	"github.com/mx-wll/kinderkreisel/internal/kkerror"
	"github.com/mx-wll/kinderkreisel/internal/model"
	"github.com/pkg/errors"
)

type (
	// A Manager manages sessions.
	// Tokens are opaque, validation is a store lookup plus expiry windows.
	Manager interface {
		// Generate creates a new unsaved session for the given profile.
		Generate(profileID, userAgent string) *model.Session
		// Validate validates an access token and returns its session.
		Validate(token string) (*model.Session, error)
		// AccessTokenExpireAt returns the expiration date of the access token.
		AccessTokenExpireAt(session *model.Session) time.Time
		// Regenerate regenerates the session's tokens.
		Regenerate(session *model.Session) error
		// Profile returns the profile the session acts as.
		Profile(session *model.Session) (*model.Profile, error)
	}

	manager struct {
		db                         database.Client
		accessTokenExpirationTime  time.Duration
		refreshTokenExpirationTime time.Duration
	}
)

// NewManager returns a new manager.
func NewManager(db database.Client, accessTokenExpirationTime, refreshTokenExpirationTime time.Duration) Manager {
	return &manager{
		db:                         db,
		accessTokenExpirationTime:  accessTokenExpirationTime,
		refreshTokenExpirationTime: refreshTokenExpirationTime,
	}
}

func (m *manager) Generate(profileID, userAgent string) *model.Session {
	return &model.Session{
		ExpireAt:     time.Now().Add(m.refreshTokenExpirationTime).UTC(),
		ProfileID:    profileID,
		UserAgent:    userAgent,
		AccessToken:  SecureToken(24),
		RefreshToken: SecureToken(24),
	}
}

func (m *manager) Validate(token string) (*model.Session, error) {
	session, err := m.db.FindSessionByAccessToken(token)
	if err != nil {
		if m.db.IsNotFound(err) {
			return nil, kkerror.NewWithTagCode(
				http.StatusUnauthorized,
				kkerror.TagInvalidAuth,
				"Invalid login credentials.",
			)
		}
		return nil, errors.Wrap(err, "could not get access to database")
	}

	if m.isSessionExpired(session) {
		return nil, kkerror.NewWithTagCode(http.StatusUnauthorized, kkerror.TagInvalidAuth, "Invalid login credentials.")
	}

	if m.isAccessTokenExpired(session) {
		return nil, kkerror.NewWithTagCode(kkerror.StatusExpiredAccessToken, kkerror.TagExpiredAccessToken, "The provided access token has expired.")
	}

	return session, nil
}

func (m *manager) AccessTokenExpireAt(session *model.Session) time.Time {
	return session.ExpireAt.Add(-m.refreshTokenExpirationTime).Add(m.accessTokenExpirationTime)
}

func (m *manager) Regenerate(session *model.Session) error {
	if m.isSessionExpired(session) {
		return kkerror.NewWithTagCode(
			http.StatusBadRequest,
			kkerror.TagExpiredRefreshToken,
			"The refresh token has expired.",
		)
	}

	session.AccessToken = SecureToken(24)
	session.RefreshToken = SecureToken(24)
	session.ExpireAt = time.Now().Add(m.refreshTokenExpirationTime).UTC()

	return errors.Wrap(m.db.Save(session), "could not save session after refreshing session")
}

func (m *manager) Profile(session *model.Session) (*model.Profile, error) {
	profile, err := m.db.FindProfile(session.ProfileID)
	if err != nil {
		if m.db.IsNotFound(err) {
			return nil, kkerror.NewWithTagCode(
				http.StatusUnauthorized,
				kkerror.TagInvalidAuth,
				"Invalid login credentials.",
			)
		}
		return nil, errors.Wrap(err, "could not get access to database")
	}

	return profile, nil
}

func (m *manager) isSessionExpired(session *model.Session) bool {
	return session.ExpireAt.Before(time.Now())
}

func (m *manager) isAccessTokenExpired(session *model.Session) bool {
	return m.AccessTokenExpireAt(session).Before(time.Now())
}
