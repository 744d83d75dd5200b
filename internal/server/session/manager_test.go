package session_test

import (
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/mx-wll/kinderkreisel/internal/database"
	"github.com/mx-wll/kinderkreisel/internal/kkerror"
	"github.com/mx-wll/kinderkreisel/internal/model"
	"github.com/mx-wll/kinderkreisel/internal/server/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, accessTTL, refreshTTL time.Duration) (session.Manager, database.Client) {
	t.Helper()

	tmpfile, err := os.CreateTemp("", "kinderkreisel.*.db")
	require.NoError(t, err)
	filename := tmpfile.Name()
	tmpfile.Close()

	db, err := database.StormOpen(filename)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
		os.RemoveAll(filename)
	})
	return session.NewManager(db, accessTTL, refreshTTL), db
}

func TestManager_Generate(t *testing.T) {
	m, _ := setup(t, 30*time.Minute, 24*time.Hour)

	sess := m.Generate("profile", "curl/8")
	assert.Equal(t, "profile", sess.ProfileID)
	assert.Equal(t, "curl/8", sess.UserAgent)
	assert.NotEmpty(t, sess.AccessToken)
	assert.NotEmpty(t, sess.RefreshToken)
	assert.NotEqual(t, sess.AccessToken, sess.RefreshToken)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), sess.ExpireAt, time.Minute)

	assert.WithinDuration(t, time.Now().Add(30*time.Minute), m.AccessTokenExpireAt(sess), time.Minute)
}

func TestManager_Validate(t *testing.T) {
	m, db := setup(t, 30*time.Minute, 24*time.Hour)

	sess := m.Generate("profile", "")
	require.NoError(t, db.Save(sess))

	found, err := m.Validate(sess.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, found.ID)

	_, err = m.Validate("unknown-token")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, kkerror.StatusCode(err))
}

func TestManager_Validate_ExpiredAccessToken(t *testing.T) {
	// Access window already elapsed, refresh window still open.
	m, db := setup(t, -time.Minute, 24*time.Hour)

	sess := m.Generate("profile", "")
	require.NoError(t, db.Save(sess))

	_, err := m.Validate(sess.AccessToken)
	require.Error(t, err)
	assert.Equal(t, kkerror.StatusExpiredAccessToken, kkerror.StatusCode(err))
	assert.Equal(t, kkerror.TagExpiredAccessToken, kkerror.Tag(err))
}

func TestManager_Validate_ExpiredSession(t *testing.T) {
	m, db := setup(t, 30*time.Minute, 24*time.Hour)

	sess := m.Generate("profile", "")
	sess.ExpireAt = time.Now().Add(-time.Hour).UTC()
	require.NoError(t, db.Save(sess))

	_, err := m.Validate(sess.AccessToken)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, kkerror.StatusCode(err))
}

func TestManager_Regenerate(t *testing.T) {
	m, db := setup(t, 30*time.Minute, 24*time.Hour)

	sess := m.Generate("profile", "")
	require.NoError(t, db.Save(sess))
	access, refresh := sess.AccessToken, sess.RefreshToken

	require.NoError(t, m.Regenerate(sess))
	assert.NotEqual(t, access, sess.AccessToken)
	assert.NotEqual(t, refresh, sess.RefreshToken)

	// The old access token is gone from the store.
	_, err := m.Validate(access)
	require.Error(t, err)
	_, err = m.Validate(sess.AccessToken)
	require.NoError(t, err)
}

func TestManager_Regenerate_ExpiredSession(t *testing.T) {
	m, db := setup(t, 30*time.Minute, 24*time.Hour)

	sess := m.Generate("profile", "")
	sess.ExpireAt = time.Now().Add(-time.Hour).UTC()
	require.NoError(t, db.Save(sess))

	err := m.Regenerate(sess)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, kkerror.StatusCode(err))
	assert.Equal(t, kkerror.TagExpiredRefreshToken, kkerror.Tag(err))
}

func TestManager_Profile(t *testing.T) {
	m, db := setup(t, 30*time.Minute, 24*time.Hour)

	profile := &model.Profile{Name: "Georges"}
	require.NoError(t, db.Save(profile))

	sess := m.Generate(profile.ID, "")
	found, err := m.Profile(sess)
	require.NoError(t, err)
	assert.Equal(t, profile.ID, found.ID)

	_, err = m.Profile(m.Generate("ghost", ""))
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, kkerror.StatusCode(err))
}
