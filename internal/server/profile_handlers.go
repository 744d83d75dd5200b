package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mx-wll/kinderkreisel/internal/database"
	"github.com/mx-wll/kinderkreisel/internal/kkerror"
	"github.com/mx-wll/kinderkreisel/internal/server/service"
	"github.com/mx-wll/kinderkreisel/internal/storage"
	"github.com/sirupsen/logrus"
)

// profile contains all profile handlers.
type profile struct {
	db    database.Client
	blobs storage.BlobStore
	locks *service.Locker
}

///// List
////
//

// List renders all community profiles, most recent first.
func (h *profile) List(c echo.Context) error {
	list, err := h.db.ListProfiles()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"profiles": list})
}

///// Show
////
//

// Show renders a single profile.
func (h *profile) Show(c echo.Context) error {
	record, err := h.db.FindProfile(c.Param("id"))
	if err != nil {
		if h.db.IsNotFound(err) {
			return kkerror.NotFound("Profile not found.")
		}
		return err
	}

	return c.JSON(http.StatusOK, record)
}

///// Update
////
//

// Update edits the current profile.
// The replaced avatar blob is removed after the record write succeeded.
func (h *profile) Update(c echo.Context) error {
	var params service.ProfileParams
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, kkerror.New("Could not get profile params."))
	}

	profiles := service.NewProfile(h.db, h.blobs, h.locks)
	record, previousBlob, err := profiles.Update(currentProfile(c).ID, params)
	if err != nil {
		return err
	}

	if previousBlob != "" {
		if err := h.blobs.Delete(previousBlob); err != nil {
			logrus.WithError(err).WithField("blob", previousBlob).Warn("could not delete replaced avatar")
		}
	}

	return c.JSON(http.StatusOK, record)
}

///// Remove
////
//

// Remove deletes the current profile and everything it owns.
func (h *profile) Remove(c echo.Context) error {
	profiles := service.NewProfile(h.db, h.blobs, h.locks)
	if err := profiles.Remove(currentProfile(c).ID); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
