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

// item contains all item and reservation handlers.
type item struct {
	db    database.Client
	blobs storage.BlobStore
	locks *service.Locker
}

///// List
////
//

// List renders the public feed of available items.
func (h *item) List(c echo.Context) error {
	var params service.ListItemsParams
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, kkerror.New("Could not get filter params."))
	}

	items := service.NewItem(h.db, h.blobs, h.locks)
	list, err := items.ListAvailable(params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"items": list})
}

///// Show
////
//

// Show renders a single item.
func (h *item) Show(c echo.Context) error {
	record, err := h.db.FindItem(c.Param("id"))
	if err != nil {
		if h.db.IsNotFound(err) {
			return kkerror.NotFound("Item not found.")
		}
		return err
	}

	return c.JSON(http.StatusOK, record)
}

///// BySeller
////
//

// BySeller renders all items of a seller, most recent first.
func (h *item) BySeller(c echo.Context) error {
	list, err := h.db.FindItemsBySeller(c.Param("id"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"items": list})
}

///// Create
////
//

// Create inserts a new item for the current profile.
// The seller item cap is enforced here, at the call boundary.
func (h *item) Create(c echo.Context) error {
	var params service.ItemParams
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, kkerror.New("Could not get item params."))
	}

	seller := currentProfile(c)

	count, err := h.db.CountItemsBySeller(seller.ID)
	if err != nil {
		return err
	}
	if count >= service.SellerItemLimit {
		return kkerror.Conflict(kkerror.TagLimitReached, "You reached the maximum number of listed items.")
	}

	items := service.NewItem(h.db, h.blobs, h.locks)
	record, err := items.Create(seller.ID, params)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, record)
}

///// Update
////
//

// Update edits the item's fields, never its status.
// The orphaned image blob is removed after the record write succeeded, a
// crash in between leaves an extra blob rather than a dangling reference.
func (h *item) Update(c echo.Context) error {
	var params service.ItemParams
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, kkerror.New("Could not get item params."))
	}

	items := service.NewItem(h.db, h.blobs, h.locks)
	record, previousBlob, err := items.Update(c.Param("id"), currentProfile(c).ID, params)
	if err != nil {
		return err
	}

	if previousBlob != "" {
		if err := h.blobs.Delete(previousBlob); err != nil {
			logrus.WithError(err).WithField("blob", previousBlob).Warn("could not delete replaced item image")
		}
	}

	return c.JSON(http.StatusOK, record)
}

///// Remove
////
//

// Remove deletes the item and cascades to its dependent records.
func (h *item) Remove(c echo.Context) error {
	items := service.NewItem(h.db, h.blobs, h.locks)
	if err := items.Remove(c.Param("id"), currentProfile(c).ID); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

///// Reserve
////
//

// Reserve places an active reservation on the item for the current profile.
func (h *item) Reserve(c echo.Context) error {
	reservations := service.NewReservation(h.db, h.locks)
	reservation, err := reservations.Reserve(c.Param("id"), currentProfile(c).ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, reservation)
}

///// CancelReservation
////
//

// CancelReservation terminates the item's active reservation, if any.
// Cancelling an item without active reservation succeeds, the outcome the
// caller wants is already true.
func (h *item) CancelReservation(c echo.Context) error {
	var params struct {
		ReservationID string `json:"reservation_uuid" query:"reservation_uuid"`
	}
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, kkerror.New("Could not get cancel params."))
	}

	reservations := service.NewReservation(h.db, h.locks)
	if err := reservations.Cancel(c.Param("id"), currentProfile(c).ID, params.ReservationID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

///// ActiveReservation
////
//

// ActiveReservation renders the item's active reservation, if any.
func (h *item) ActiveReservation(c echo.Context) error {
	reservation, err := h.db.FindActiveReservationByItem(c.Param("id"))
	if err != nil {
		if h.db.IsNotFound(err) {
			return c.JSON(http.StatusOK, echo.Map{"reservation": nil})
		}
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"reservation": reservation})
}

///// MyReservations
////
//

// MyReservations renders all reservations of the current profile as buyer.
func (h *item) MyReservations(c echo.Context) error {
	list, err := h.db.FindReservationsByBuyer(currentProfile(c).ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"reservations": list})
}
