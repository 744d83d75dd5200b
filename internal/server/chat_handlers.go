package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mx-wll/kinderkreisel/internal/database"
	"github.com/mx-wll/kinderkreisel/internal/kkerror"
	"github.com/mx-wll/kinderkreisel/internal/server/service"
)

// chat contains all conversation and message handlers.
type chat struct {
	db database.Client
}

///// Start
////
//

// Start opens (or reuses) the conversation about an item with its seller.
func (h *chat) Start(c echo.Context) error {
	var params struct {
		ItemID string `json:"item_uuid"`
	}
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, kkerror.New("Could not get conversation params."))
	}

	conversations := service.NewChat(h.db)
	conversation, err := conversations.Start(params.ItemID, currentProfile(c).ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, conversation)
}

///// List
////
//

// List renders all conversations of the current profile.
func (h *chat) List(c echo.Context) error {
	conversations := service.NewChat(h.db)
	list, err := conversations.List(currentProfile(c).ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"conversations": list})
}

///// Unread
////
//

// Unread renders the number of unread messages across all conversations.
func (h *chat) Unread(c echo.Context) error {
	conversations := service.NewChat(h.db)
	count, err := conversations.UnreadCount(currentProfile(c).ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"unread": count})
}

///// Messages
////
//

// Messages renders the conversation messages, oldest first.
func (h *chat) Messages(c echo.Context) error {
	conversations := service.NewChat(h.db)
	list, err := conversations.Messages(c.Param("id"), currentProfile(c).ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"messages": list})
}

///// Send
////
//

// Send appends a message to the conversation.
func (h *chat) Send(c echo.Context) error {
	var params struct {
		Content string `json:"content"`
	}
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, kkerror.New("Could not get message params."))
	}

	conversations := service.NewChat(h.db)
	message, err := conversations.Send(c.Param("id"), currentProfile(c).ID, params.Content)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, message)
}

///// MarkRead
////
//

// MarkRead flags every message from the other participant as read.
func (h *chat) MarkRead(c echo.Context) error {
	conversations := service.NewChat(h.db)
	if err := conversations.MarkRead(c.Param("id"), currentProfile(c).ID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}
