package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mx-wll/kinderkreisel/internal/database"
	"github.com/mx-wll/kinderkreisel/internal/kkerror"
	"github.com/mx-wll/kinderkreisel/internal/server/service"
	"github.com/mx-wll/kinderkreisel/internal/server/session"
)

// auth contains all authentication handlers.
type auth struct {
	db        database.Client
	sessions  session.Manager
	secretKey []byte
}

///// Register
////
//

// Register handler is used to register a user and its profile.
func (h *auth) Register(c echo.Context) error {
	var params service.RegisterParams
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, kkerror.New("Could not get registration params."))
	}
	params.UserAgent = c.Request().UserAgent()

	if params.Email == "" {
		return c.JSON(http.StatusBadRequest, kkerror.New("No email provided."))
	}
	if len(params.Password) < 8 {
		return c.JSON(http.StatusBadRequest, kkerror.New("Password must be at least 8 characters."))
	}
	if params.Name == "" || params.Surname == "" {
		return c.JSON(http.StatusBadRequest, kkerror.New("No name provided."))
	}

	users := service.NewUser(h.db, h.sessions, h.secretKey)
	register, err := users.Register(params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, register)
}

///// Login
////
//

// Login authenticates a profile and opens a session.
func (h *auth) Login(c echo.Context) error {
	var params service.LoginParams
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, kkerror.New("Could not get credentials."))
	}
	params.UserAgent = c.Request().UserAgent()

	if params.Email == "" || params.Password == "" {
		return c.JSON(http.StatusBadRequest, kkerror.New("No email or password provided."))
	}

	users := service.NewUser(h.db, h.sessions, h.secretKey)
	login, err := users.Login(params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, login)
}

///// Logout
////
//

// Logout terminates the current session.
func (h *auth) Logout(c echo.Context) error {
	sess := currentSession(c)
	if sess != nil {
		if err := h.db.Delete(sess); err != nil && !h.db.IsNotFound(err) {
			return err
		}
	}

	return c.NoContent(http.StatusNoContent)
}

///// UpdatePassword
////
//

// UpdatePassword changes the current profile's password.
func (h *auth) UpdatePassword(c echo.Context) error {
	var params service.UpdatePasswordParams
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, kkerror.New("Could not get password params."))
	}
	params.UserAgent = c.Request().UserAgent()

	users := service.NewUser(h.db, h.sessions, h.secretKey)
	if err := users.Password(currentProfile(c), currentSession(c), params); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

///// RequestPasswordReset
////
//

// RequestPasswordReset issues a single-use password reset token.
func (h *auth) RequestPasswordReset(c echo.Context) error {
	var params service.ResetRequestParams
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, kkerror.New("Could not get reset params."))
	}
	if params.Email == "" {
		return c.JSON(http.StatusBadRequest, kkerror.New("No email provided."))
	}

	users := service.NewUser(h.db, h.sessions, h.secretKey)
	render, err := users.RequestPasswordReset(params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, render)
}

///// ResetPassword
////
//

// ResetPassword consumes a reset token and stores the new password.
func (h *auth) ResetPassword(c echo.Context) error {
	var params service.ResetParams
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, kkerror.New("Could not get reset params."))
	}
	if params.Token == "" {
		return c.JSON(http.StatusBadRequest, kkerror.New("No token provided."))
	}

	users := service.NewUser(h.db, h.sessions, h.secretKey)
	if err := users.ResetPassword(params); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
