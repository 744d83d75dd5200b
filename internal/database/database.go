package database

import (
	"time"

	"github.com/mx-wll/kinderkreisel/internal/model"
)

type (
	// A Client can interacts with the database.
	Client interface {
		// Save inserts or updates the entry in database with the given model.
		Save(m model.Model) error
		// Delete deletes the entry in database with the given model.
		Delete(m model.Model) error
		// Close the database.
		Close() error
		// IsNotFound returns true if err is a not found error.
		IsNotFound(err error) bool

		ProfileInteraction
		UserInteraction
		SessionInteraction
		ItemInteraction
		ReservationInteraction
		ConversationInteraction
		PasswordResetInteraction
	}

	// A ProfileInteraction defines all the methods used to interact with profile records.
	ProfileInteraction interface {
		// FindProfile returns the profile for the given id (UUID).
		FindProfile(id string) (*model.Profile, error)
		// ListProfiles returns all profiles, most recent first.
		ListProfiles() ([]*model.Profile, error)
		// FindChildrenByProfile returns all children attached to the given profile.
		FindChildrenByProfile(profileID string) ([]*model.Child, error)
	}

	// An UserInteraction defines all the methods used to interact with a user record.
	UserInteraction interface {
		// FindUser returns the user for the given id (UUID).
		FindUser(id string) (*model.User, error)
		// FindUserByEmail returns the user for the given email.
		FindUserByEmail(email string) (*model.User, error)
		// FindUserByProfile returns the user owning the given profile.
		FindUserByProfile(profileID string) (*model.User, error)
	}

	// A SessionInteraction defines all the methods used to interact with a session record.
	SessionInteraction interface {
		// FindSession returns the session for the given id (UUID).
		FindSession(id string) (*model.Session, error)
		// FindSessionByAccessToken returns the session for the given access token.
		FindSessionByAccessToken(token string) (*model.Session, error)
		// FindSessionByTokens returns the session for the given access and refresh token.
		FindSessionByTokens(access, refresh string) (*model.Session, error)
		// FindSessionsByProfile returns all sessions for the given profile id.
		FindSessionsByProfile(profileID string) ([]*model.Session, error)
	}

	// An ItemInteraction defines all the methods used to interact with item record(s).
	ItemInteraction interface {
		// FindItem returns the item for the given id (UUID).
		FindItem(id string) (*model.Item, error)
		// FindItemsBySeller returns all items of the given seller, most recent first.
		FindItemsBySeller(sellerID string) ([]*model.Item, error)
		// CountItemsBySeller returns the number of items of the given seller.
		CountItemsBySeller(sellerID string) (int, error)
		// FindAvailableItems returns available items, most recent first.
		// limit equals to 0 means all items.
		FindAvailableItems(limit int) ([]*model.Item, error)
	}

	// A ReservationInteraction defines all the methods used to interact with reservation record(s).
	ReservationInteraction interface {
		// FindReservation returns the reservation for the given id (UUID).
		FindReservation(id string) (*model.Reservation, error)
		// FindActiveReservationByItem returns the single active reservation of the
		// given item. A not found error is returned when the item is free.
		FindActiveReservationByItem(itemID string) (*model.Reservation, error)
		// FindReservationsByItem returns all reservations ever taken on the given item.
		FindReservationsByItem(itemID string) ([]*model.Reservation, error)
		// FindReservationsByBuyer returns all reservations of the given buyer.
		FindReservationsByBuyer(buyerID string) ([]*model.Reservation, error)
		// FindActiveReservationsDueBefore returns active reservations whose
		// deadline is strictly before the given time, oldest deadline first.
		FindActiveReservationsDueBefore(t time.Time) ([]*model.Reservation, error)
	}

	// A ConversationInteraction defines all the methods used to interact with
	// conversation and message records.
	ConversationInteraction interface {
		// FindConversation returns the conversation for the given id (UUID).
		FindConversation(id string) (*model.Conversation, error)
		// FindConversationByItemAndBuyer returns the conversation of the given pair.
		FindConversationByItemAndBuyer(itemID, buyerID string) (*model.Conversation, error)
		// FindConversationsByItem returns all conversations about the given item.
		FindConversationsByItem(itemID string) ([]*model.Conversation, error)
		// FindConversationsByProfile returns all conversations where the profile
		// is buyer or seller, most recently updated first.
		FindConversationsByProfile(profileID string) ([]*model.Conversation, error)
		// FindMessagesByConversation returns all messages of the conversation, oldest first.
		FindMessagesByConversation(conversationID string) ([]*model.Message, error)
		// FindLastMessage returns the most recent message of the conversation.
		FindLastMessage(conversationID string) (*model.Message, error)
	}

	// A PasswordResetInteraction defines all the methods used to interact with
	// password reset records.
	PasswordResetInteraction interface {
		// FindPasswordResetByTokenHash returns the reset record for the given token hash.
		FindPasswordResetByTokenHash(hash string) (*model.PasswordReset, error)
	}
)
