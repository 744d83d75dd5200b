package middlewares

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/mx-wll/kinderkreisel/internal/server/session"
)

const (
	// CurrentProfileContextKey is the key to retrieve the current_profile from echo.Context.
	CurrentProfileContextKey = "current_profile"
	// CurrentSessionContextKey is the key to retrieve the current_session from echo.Context.
	CurrentSessionContextKey = "current_session"
)

// Session returns a session auth middleware.
// It stores current_profile and current_session into echo.Context.
func Session(m session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := token(c.Request().Header.Get(echo.HeaderAuthorization))
			if token == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": echo.Map{
						"tag":     "invalid-auth",
						"message": "Invalid login credentials.",
					},
				})
			}

			sess, err := m.Validate(token)
			if err != nil {
				return err
			}
			c.Set(CurrentSessionContextKey, sess)

			profile, err := m.Profile(sess)
			if err != nil {
				return err
			}
			c.Set(CurrentProfileContextKey, profile)

			return next(c)
		}
	}
}

func token(authorization string) string {
	parts := strings.Split(authorization, " ")
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
