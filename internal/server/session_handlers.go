package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mx-wll/kinderkreisel/internal/database"
	"github.com/mx-wll/kinderkreisel/internal/kkerror"
	"github.com/mx-wll/kinderkreisel/internal/server/session"
)

// sess contains all session handlers.
type sess struct {
	db database.Client
	m  session.Manager
}

///// Refresh
////
//

// Refresh regenerates the current session's token pair.
func (h *sess) Refresh(c echo.Context) error {
	var params struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, kkerror.New("Could not get refresh params."))
	}
	if params.AccessToken == "" || params.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, kkerror.New("Please provide all required parameters."))
	}

	record, err := h.db.FindSessionByTokens(params.AccessToken, params.RefreshToken)
	if err != nil {
		if h.db.IsNotFound(err) {
			return c.JSON(http.StatusBadRequest, kkerror.New("The provided parameters are not valid."))
		}
		return err
	}

	if err := h.m.Regenerate(record); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"session": echo.Map{
			"access_token":  record.AccessToken,
			"refresh_token": record.RefreshToken,
			"expire_at":     h.m.AccessTokenExpireAt(record),
		},
	})
}

///// List
////
//

// List renders all sessions of the current profile.
func (h *sess) List(c echo.Context) error {
	records, err := h.db.FindSessionsByProfile(currentProfile(c).ID)
	if err != nil {
		return err
	}

	current := currentSession(c)
	list := make([]echo.Map, 0, len(records))
	for _, record := range records {
		list = append(list, echo.Map{
			"uuid":       record.ID,
			"created_at": record.CreatedAt,
			"updated_at": record.UpdatedAt,
			"user_agent": record.UserAgent,
			"current":    current != nil && current.ID == record.ID,
		})
	}

	return c.JSON(http.StatusOK, list)
}
