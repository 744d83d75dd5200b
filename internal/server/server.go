package server

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mx-wll/kinderkreisel/internal/database"
	"github.com/mx-wll/kinderkreisel/internal/model"
	"github.com/mx-wll/kinderkreisel/internal/server/middlewares"
	"github.com/mx-wll/kinderkreisel/internal/server/service"
	"github.com/mx-wll/kinderkreisel/internal/server/session"
	"github.com/mx-wll/kinderkreisel/internal/storage"
)

// A Controller is an Inversion Of Control pattern used to init the server package.
type Controller struct {
	Version        string
	Database       database.Client
	Blobs          storage.BlobStore
	Locks          *service.Locker
	NoRegistration bool
	// SecretKey is used to hash password reset tokens.
	SecretKey []byte
	// Session params
	AccessTokenExpirationTime  time.Duration
	RefreshTokenExpirationTime time.Duration
}

// EchoEngine instantiates the web server.
func EchoEngine(ctrl Controller) *echo.Echo {
	engine := echo.New()
	engine.Use(middleware.Recover())
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))
	engine.Use(middleware.Gzip())

	engine.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "[${status}] ${method} ${uri} (${bytes_in}) ${latency_human}\n",
	}))
	engine.Binder = middlewares.NewBinder()
	// Error handler
	engine.HTTPErrorHandler = middlewares.HTTPErrorHandler

	engine.Pre(middleware.Rewrite(map[string]string{
		"/": "/version",
	}))

	////////////
	// Router //
	////////////

	sessions := session.NewManager(
		ctrl.Database,
		ctrl.AccessTokenExpirationTime,
		ctrl.RefreshTokenExpirationTime,
	)

	router := engine.Group("")
	restricted := router.Group("")
	restricted.Use(middlewares.Session(sessions))

	// generic handlers
	//
	router.GET("/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"version": ctrl.Version,
		})
	})

	//
	// auth handlers
	//
	auth := &auth{
		db:        ctrl.Database,
		sessions:  sessions,
		secretKey: ctrl.SecretKey,
	}
	if !ctrl.NoRegistration {
		router.POST("/auth/register", auth.Register)
	}
	router.POST("/auth/sign_in", auth.Login)
	router.POST("/auth/password", auth.RequestPasswordReset)
	router.POST("/auth/password/reset", auth.ResetPassword)
	restricted.POST("/auth/change_pw", auth.UpdatePassword)
	restricted.DELETE("/auth/sign_out", auth.Logout)

	//
	// session handlers
	//
	session := &sess{
		db: ctrl.Database,
		m:  sessions,
	}
	restricted.POST("/session/refresh", session.Refresh)
	restricted.GET("/sessions", session.List)

	//
	// item & reservation handlers
	//
	item := &item{
		db:    ctrl.Database,
		blobs: ctrl.Blobs,
		locks: ctrl.Locks,
	}
	router.GET("/items", item.List)
	router.GET("/items/:id", item.Show)
	restricted.POST("/items", item.Create)
	restricted.PATCH("/items/:id", item.Update)
	restricted.DELETE("/items/:id", item.Remove)
	restricted.POST("/items/:id/reserve", item.Reserve)
	restricted.GET("/items/:id/reservation", item.ActiveReservation)
	restricted.DELETE("/items/:id/reservation", item.CancelReservation)
	restricted.GET("/profile/reservations", item.MyReservations)

	//
	// profile handlers
	//
	profile := &profile{
		db:    ctrl.Database,
		blobs: ctrl.Blobs,
		locks: ctrl.Locks,
	}
	restricted.GET("/profiles", profile.List)
	restricted.GET("/profiles/:id", profile.Show)
	restricted.GET("/profiles/:id/items", item.BySeller)
	restricted.PATCH("/profile", profile.Update)
	restricted.DELETE("/profile", profile.Remove)

	//
	// chat handlers
	//
	chat := &chat{
		db: ctrl.Database,
	}
	restricted.POST("/conversations", chat.Start)
	restricted.GET("/conversations", chat.List)
	restricted.GET("/conversations/unread", chat.Unread)
	restricted.GET("/conversations/:id/messages", chat.Messages)
	restricted.POST("/conversations/:id/messages", chat.Send)
	restricted.POST("/conversations/:id/read", chat.MarkRead)

	//
	// file handlers
	//
	files := &files{
		blobs: ctrl.Blobs,
	}
	restricted.POST("/files", files.Upload)
	router.GET("/files/:id", files.Show)

	return engine
}

// PrintRoutes prints the Echo engine exposed routes.
func PrintRoutes(e *echo.Echo) {
	ignored := map[string]bool{
		"":   true,
		".":  true,
		"/*": true,
	}

	routes := e.Routes()
	sort.Slice(routes, func(i int, j int) bool {
		return routes[i].Path < routes[j].Path
	})

	fmt.Println("Routes:")
	for _, route := range routes {
		if ignored[route.Path] {
			continue
		}
		fmt.Printf("%6s %s\n", route.Method, route.Path)
	}
}

func currentProfile(c echo.Context) *model.Profile {
	profile, ok := c.Get(middlewares.CurrentProfileContextKey).(*model.Profile)
	if ok {
		return profile
	}
	return nil
}

func currentSession(c echo.Context) *model.Session {
	session, ok := c.Get(middlewares.CurrentSessionContextKey).(*model.Session)
	if ok {
		return session
	}
	return nil
}
