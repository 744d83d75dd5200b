package service

import (
	"github.com/mx-wll/kinderkreisel/internal/database"
	"github.com/mx-wll/kinderkreisel/internal/kkerror"
	"github.com/mx-wll/kinderkreisel/internal/model"
	"github.com/mx-wll/kinderkreisel/internal/storage"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type (
	// A ProfileService owns profile edits and the profile deletion cascade.
	ProfileService interface {
		// Update edits the profile's fields. It returns the previous avatar
		// blob id so the caller can clean up the orphaned blob once the record
		// write succeeded.
		Update(profileID string, params ProfileParams) (*model.Profile, string, error)
		// Remove deletes the profile and cascades to its children, items
		// (each with the full item cascade), buyer-side reservations,
		// conversations, sessions and credentials.
		Remove(profileID string) error
	}

	// ProfileParams carry the user editable profile fields.
	// Nil pointers leave the current value untouched.
	ProfileParams struct {
		Params
		Name               *string `json:"name"`
		Surname            *string `json:"surname"`
		Residency          *string `json:"residency"`
		Phone              *string `json:"phone"`
		AvatarURL          *string `json:"avatar_url"`
		AvatarStorageID    *string `json:"avatar_storage_id"`
		EmailNotifications *bool   `json:"email_notifications"`
	}

	profileService struct {
		db    database.Client
		blobs storage.BlobStore
		locks *Locker
	}
)

// NewProfile returns a new ProfileService.
func NewProfile(db database.Client, blobs storage.BlobStore, locks *Locker) ProfileService {
	return &profileService{
		db:    db,
		blobs: blobs,
		locks: locks,
	}
}

// Update edits the profile's fields.
func (s *profileService) Update(profileID string, params ProfileParams) (*model.Profile, string, error) {
	profile, err := s.db.FindProfile(profileID)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, "", kkerror.NotFound("Profile not found.")
		}
		return nil, "", errors.Wrap(err, "could not get profile")
	}

	previousBlob := profile.AvatarStorageID
	if params.Name != nil {
		profile.Name = *params.Name
	}
	if params.Surname != nil {
		profile.Surname = *params.Surname
	}
	if params.Residency != nil {
		profile.Residency = *params.Residency
	}
	if params.Phone != nil {
		profile.Phone = *params.Phone
	}
	if params.AvatarURL != nil {
		profile.AvatarURL = *params.AvatarURL
	}
	if params.AvatarStorageID != nil {
		profile.AvatarStorageID = *params.AvatarStorageID
	}
	if params.EmailNotifications != nil {
		profile.EmailNotifications = *params.EmailNotifications
	}

	if err := s.db.Save(profile); err != nil {
		return nil, "", errors.Wrap(err, "could not persist profile")
	}
	if previousBlob == profile.AvatarStorageID {
		previousBlob = ""
	}
	return profile, previousBlob, nil
}

// Remove deletes the profile and all records hanging off it.
// Deleting an absent profile is a no-op.
//
// Owned items go through the same cascade as a seller-triggered deletion so
// both entry points leave the store in the same shape: no reservation or
// conversation row referencing a deleted item survives.
func (s *profileService) Remove(profileID string) error {
	profile, err := s.db.FindProfile(profileID)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil
		}
		return errors.Wrap(err, "could not get profile")
	}

	children, err := s.db.FindChildrenByProfile(profileID)
	if err != nil {
		return errors.Wrap(err, "could not list children")
	}
	for _, child := range children {
		if err := s.db.Delete(child); err != nil {
			return errors.Wrap(err, "could not delete child")
		}
	}

	if profile.AvatarStorageID != "" {
		if err := s.blobs.Delete(profile.AvatarStorageID); err != nil {
			logrus.WithError(err).WithField("blob", profile.AvatarStorageID).Warn("could not delete avatar")
		}
	}

	// Owned items, full cascade each.
	items := &itemService{db: s.db, blobs: s.blobs, locks: s.locks}
	owned, err := s.db.FindItemsBySeller(profileID)
	if err != nil {
		return errors.Wrap(err, "could not list items")
	}
	for _, item := range owned {
		if err := items.Remove(item.ID, profileID); err != nil {
			return errors.Wrap(err, "could not delete item")
		}
	}

	// Buyer-side reservations. An active one still holds a foreign item, so
	// the item is freed before the row goes away.
	reservations, err := s.db.FindReservationsByBuyer(profileID)
	if err != nil {
		return errors.Wrap(err, "could not list reservations")
	}
	for _, reservation := range reservations {
		if err := s.releaseAndDelete(reservation); err != nil {
			return err
		}
	}

	conversations, err := s.db.FindConversationsByProfile(profileID)
	if err != nil {
		return errors.Wrap(err, "could not list conversations")
	}
	for _, conversation := range conversations {
		messages, err := s.db.FindMessagesByConversation(conversation.ID)
		if err != nil {
			return errors.Wrap(err, "could not list conversation messages")
		}
		for _, message := range messages {
			if err := s.db.Delete(message); err != nil {
				return errors.Wrap(err, "could not delete message")
			}
		}
		if err := s.db.Delete(conversation); err != nil {
			return errors.Wrap(err, "could not delete conversation")
		}
	}

	// Credentials and sessions go with the profile.
	if user, err := s.db.FindUserByProfile(profileID); err == nil {
		if err := s.db.Delete(user); err != nil {
			return errors.Wrap(err, "could not delete user")
		}
	} else if !s.db.IsNotFound(err) {
		return errors.Wrap(err, "could not get user")
	}

	sessions, err := s.db.FindSessionsByProfile(profileID)
	if err != nil {
		return errors.Wrap(err, "could not list sessions")
	}
	for _, session := range sessions {
		if err := s.db.Delete(session); err != nil {
			return errors.Wrap(err, "could not delete session")
		}
	}

	return errors.Wrap(s.db.Delete(profile), "could not delete profile")
}

func (s *profileService) releaseAndDelete(reservation *model.Reservation) error {
	unlock := s.locks.Lock(reservation.ItemID)
	defer unlock()

	// Re-read under the lock. The listed row may have been cancelled and the
	// item re-reserved since the scan, freeing on the stale struct would
	// clobber the new buyer's reservation.
	current, err := s.db.FindReservation(reservation.ID)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil
		}
		return errors.Wrap(err, "could not get reservation")
	}

	if current.Active() {
		item, err := s.db.FindItem(current.ItemID)
		if err != nil && !s.db.IsNotFound(err) {
			return errors.Wrap(err, "could not get reserved item")
		}
		if err == nil {
			item.Status = model.StatusAvailable
			if err := s.db.Save(item); err != nil {
				return errors.Wrap(err, "could not free item")
			}
		}
	}

	return errors.Wrap(s.db.Delete(current), "could not delete reservation")
}
