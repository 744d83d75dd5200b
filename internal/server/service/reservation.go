package service

import (
	"time"

	"github.com/mx-wll/kinderkreisel/internal/database"
	"github.com/mx-wll/kinderkreisel/internal/kkerror"
	"github.com/mx-wll/kinderkreisel/internal/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type (
	// A ReservationService owns creation, cancellation and expiry of
	// reservations and keeps the item status in step with them.
	ReservationService interface {
		// Reserve places an active reservation on an available item and marks
		// the item reserved.
		Reserve(itemID, buyerID string) (*model.Reservation, error)
		// Cancel terminates the active reservation of an item, if any, and
		// frees the item. Cancelling an item without active reservation is a no-op.
		// expectedID, when not empty, must match the active reservation's id.
		Cancel(itemID, actorID, expectedID string) error
		// ExpireDue transitions every active reservation with a deadline before
		// now to expired and frees the matching items. It returns the number of
		// reservations transitioned. A single row's failure does not abort the
		// rest of the batch.
		ExpireDue(now time.Time) (int, error)
	}

	reservationService struct {
		db    database.Client
		locks *Locker
	}
)

// NewReservation returns a new ReservationService.
func NewReservation(db database.Client, locks *Locker) ReservationService {
	return &reservationService{
		db:    db,
		locks: locks,
	}
}

// Reserve places an active reservation on an available item.
// All checks run before any write so a failure never leaves a partial state.
func (s *reservationService) Reserve(itemID, buyerID string) (*model.Reservation, error) {
	unlock := s.locks.Lock(itemID)
	defer unlock()

	item, err := s.db.FindItem(itemID)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, kkerror.NotFound("Item not found.")
		}
		return nil, errors.Wrap(err, "could not get item")
	}

	if item.SellerID == buyerID {
		return nil, kkerror.Conflict(kkerror.TagSelfReservation, "You cannot reserve your own item.")
	}
	if item.Status != model.StatusAvailable {
		return nil, kkerror.Conflict(kkerror.TagItemUnavailable, "Item is not available.")
	}

	_, err = s.db.FindActiveReservationByItem(itemID)
	if err == nil {
		return nil, kkerror.Conflict(kkerror.TagAlreadyReserved, "Item already reserved.")
	}
	if !s.db.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not check active reservation")
	}

	now := time.Now().UTC()
	reservation := &model.Reservation{
		ItemID:    itemID,
		BuyerID:   buyerID,
		Status:    model.ReservationActive,
		ExpiresAt: now.Add(model.ReservationTTL),
	}
	if err := s.db.Save(reservation); err != nil {
		return nil, errors.Wrap(err, "could not persist reservation")
	}

	item.Status = model.StatusReserved
	if err := s.db.Save(item); err != nil {
		return nil, errors.Wrap(err, "could not mark item reserved")
	}

	return reservation, nil
}

// Cancel terminates the active reservation of an item, if any.
func (s *reservationService) Cancel(itemID, actorID, expectedID string) error {
	unlock := s.locks.Lock(itemID)
	defer unlock()

	item, err := s.db.FindItem(itemID)
	if err != nil {
		if s.db.IsNotFound(err) {
			return kkerror.NotFound("Item not found.")
		}
		return errors.Wrap(err, "could not get item")
	}

	active, err := s.db.FindActiveReservationByItem(itemID)
	if err != nil {
		if s.db.IsNotFound(err) {
			// Already cancelled or expired, nothing to do.
			return nil
		}
		return errors.Wrap(err, "could not get active reservation")
	}

	if item.SellerID != actorID && active.BuyerID != actorID {
		return kkerror.Unauthorized("Only the seller or the buyer can cancel a reservation.")
	}
	if expectedID != "" && active.ID != expectedID {
		return kkerror.Conflict(kkerror.TagReservationMismatch, "Reservation has changed, please reload.")
	}

	active.Status = model.ReservationCancelled
	if err := s.db.Save(active); err != nil {
		return errors.Wrap(err, "could not cancel reservation")
	}

	item.Status = model.StatusAvailable
	if err := s.db.Save(item); err != nil {
		return errors.Wrap(err, "could not free item")
	}

	return nil
}

// ExpireDue resolves every active reservation past its deadline.
func (s *reservationService) ExpireDue(now time.Time) (int, error) {
	due, err := s.db.FindActiveReservationsDueBefore(now)
	if err != nil {
		return 0, errors.Wrap(err, "could not scan due reservations")
	}

	var count int
	for _, reservation := range due {
		expired, err := s.expire(reservation.ID, reservation.ItemID)
		if err != nil {
			logrus.WithError(err).WithField("reservation", reservation.ID).Error("could not expire reservation")
			continue
		}
		if expired {
			count++
		}
	}

	return count, nil
}

// expire transitions a single reservation under its item's lock.
// The row is re-read because it may have been cancelled or deleted between
// the scan and this call.
func (s *reservationService) expire(reservationID, itemID string) (bool, error) {
	unlock := s.locks.Lock(itemID)
	defer unlock()

	reservation, err := s.db.FindReservation(reservationID)
	if err != nil {
		if s.db.IsNotFound(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "could not get reservation")
	}
	if !reservation.Active() {
		return false, nil
	}

	reservation.Status = model.ReservationExpired
	if err := s.db.Save(reservation); err != nil {
		return false, errors.Wrap(err, "could not mark reservation expired")
	}

	// The item may already be gone, its deletion cascade runs first.
	item, err := s.db.FindItem(itemID)
	if err != nil {
		if s.db.IsNotFound(err) {
			return true, nil
		}
		return false, errors.Wrap(err, "could not get item")
	}

	item.Status = model.StatusAvailable
	if err := s.db.Save(item); err != nil {
		return false, errors.Wrap(err, "could not free item")
	}

	return true, nil
}
