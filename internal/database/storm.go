package database

import (
	"sort"
	"time"

	"github.com/asdine/storm/v3"
	"github.com/asdine/storm/v3/codec/msgpack"
	"github.com/asdine/storm/v3/q"
	"github.com/gofrs/uuid"
	"github.com/mx-wll/kinderkreisel/internal/model"
	"github.com/pkg/errors"
)

type strm struct {
	db *storm.DB
}

// StormCodec is the format used to store data in the database.
var StormCodec = storm.Codec(msgpack.Codec)

var indexed = []any{
	&model.Profile{},
	&model.Child{},
	&model.User{},
	&model.Session{},
	&model.Item{},
	&model.Reservation{},
	&model.Conversation{},
	&model.Message{},
	&model.PasswordReset{},
}

// StormInit initializes Storm database.
func StormInit(database string) error {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return errors.Wrap(err, "could not get database connection")
	}
	defer db.Close()

	for _, m := range indexed {
		if err := db.Init(m); err != nil {
			return errors.Wrapf(err, "could not init %T index", m)
		}
	}
	return nil
}

// StormReIndex reindex Storm database.
func StormReIndex(database string) error {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return errors.Wrap(err, "could not get database connection")
	}
	defer db.Close()

	for _, m := range indexed {
		if err := db.ReIndex(m); err != nil {
			return errors.Wrapf(err, "could not reindex %T", m)
		}
	}
	return nil
}

// StormOpen returns a new Storm database connection.
func StormOpen(database string) (Client, error) {
	db, err := storm.Open(database, StormCodec)
	if err != nil {
		return nil, errors.Wrap(err, "could not get database connection")
	}

	return &strm{
		db: db,
	}, nil
}

// Save inserts or updates the entry in database with the given model.
func (c *strm) Save(m model.Model) error {
	t := time.Now().UTC()
	m.SetUpdatedAt(t)

	if m.GetID() == "" {
		m.SetID(uuid.Must(uuid.NewV4()).String())
		m.SetCreatedAt(t)
	}

	return errors.Wrap(c.db.Save(m), "could not save the model")
}

// Delete deletes the entry in database with the given model.
func (c *strm) Delete(m model.Model) error {
	return errors.Wrap(c.db.DeleteStruct(m), "could not delete the model")
}

// Close the database.
func (c *strm) Close() error {
	return c.db.Close()
}

// IsNotFound returns true if err is a not found error.
func (c *strm) IsNotFound(err error) bool {
	return errors.Cause(err) == storm.ErrNotFound
}

//
// Profiles
//

// FindProfile returns the profile for the given id (UUID).
func (c *strm) FindProfile(id string) (*model.Profile, error) {
	var profile model.Profile
	if err := c.db.One("ID", id, &profile); err != nil {
		return nil, errors.Wrap(err, "find profile by id")
	}
	return &profile, nil
}

// ListProfiles returns all profiles, most recent first.
func (c *strm) ListProfiles() ([]*model.Profile, error) {
	profiles := make([]*model.Profile, 0)
	err := c.db.AllByIndex("CreatedAt", &profiles, storm.Reverse())
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not list profiles")
	}
	return profiles, nil
}

// FindChildrenByProfile returns all children attached to the given profile.
func (c *strm) FindChildrenByProfile(profileID string) ([]*model.Child, error) {
	children := make([]*model.Child, 0)
	err := c.db.Find("ProfileID", profileID, &children)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find children by profile")
	}
	return children, nil
}

//
// Users
//

// FindUser returns the user for the given id (UUID).
func (c *strm) FindUser(id string) (*model.User, error) {
	var user model.User
	if err := c.db.One("ID", id, &user); err != nil {
		return nil, errors.Wrap(err, "find user by id")
	}
	return &user, nil
}

// FindUserByEmail returns the user for the given email.
func (c *strm) FindUserByEmail(email string) (*model.User, error) {
	var user model.User
	if err := c.db.One("Email", email, &user); err != nil {
		return nil, errors.Wrap(err, "find user by email")
	}
	return &user, nil
}

// FindUserByProfile returns the user owning the given profile.
func (c *strm) FindUserByProfile(profileID string) (*model.User, error) {
	var user model.User
	if err := c.db.One("ProfileID", profileID, &user); err != nil {
		return nil, errors.Wrap(err, "find user by profile")
	}
	return &user, nil
}

//
// Sessions
//

// FindSession returns the session for the given id (UUID).
func (c *strm) FindSession(id string) (*model.Session, error) {
	var session model.Session
	if err := c.db.One("ID", id, &session); err != nil {
		return nil, errors.Wrap(err, "find session by id")
	}
	return &session, nil
}

// FindSessionByAccessToken returns the session for the given access token.
func (c *strm) FindSessionByAccessToken(token string) (*model.Session, error) {
	var session model.Session
	if err := c.db.One("AccessToken", token, &session); err != nil {
		return nil, errors.Wrap(err, "find session by access token")
	}
	return &session, nil
}

// FindSessionByTokens returns the session for the given access and refresh token.
func (c *strm) FindSessionByTokens(access, refresh string) (*model.Session, error) {
	var session model.Session
	err := c.db.Select(q.Eq("AccessToken", access), q.Eq("RefreshToken", refresh)).First(&session)
	if err != nil {
		return nil, errors.Wrap(err, "find session by tokens")
	}
	return &session, nil
}

// FindSessionsByProfile returns all sessions for the given profile id.
func (c *strm) FindSessionsByProfile(profileID string) ([]*model.Session, error) {
	sessions := make([]*model.Session, 0)
	err := c.db.Select(q.Eq("ProfileID", profileID)).OrderBy("CreatedAt").Find(&sessions)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find sessions by profile")
	}
	return sessions, nil
}

//
// Items
//

// FindItem returns the item for the given id (UUID).
func (c *strm) FindItem(id string) (*model.Item, error) {
	var item model.Item
	if err := c.db.One("ID", id, &item); err != nil {
		return nil, errors.Wrap(err, "could not find item")
	}
	return &item, nil
}

// FindItemsBySeller returns all items of the given seller, most recent first.
func (c *strm) FindItemsBySeller(sellerID string) ([]*model.Item, error) {
	items := make([]*model.Item, 0)
	err := c.db.Select(q.Eq("SellerID", sellerID)).OrderBy("CreatedAt").Reverse().Find(&items)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find items by seller")
	}
	return items, nil
}

// CountItemsBySeller returns the number of items of the given seller.
func (c *strm) CountItemsBySeller(sellerID string) (int, error) {
	count, err := c.db.Select(q.Eq("SellerID", sellerID)).Count(&model.Item{})
	return count, errors.Wrap(err, "could not count items by seller")
}

// FindAvailableItems returns available items, most recent first.
// limit equals to 0 means all items.
func (c *strm) FindAvailableItems(limit int) ([]*model.Item, error) {
	items := make([]*model.Item, 0)
	stmt := c.db.Select(q.Eq("Status", model.StatusAvailable)).OrderBy("CreatedAt").Reverse()
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	err := stmt.Find(&items)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find available items")
	}
	return items, nil
}

//
// Reservations
//

// FindReservation returns the reservation for the given id (UUID).
func (c *strm) FindReservation(id string) (*model.Reservation, error) {
	var reservation model.Reservation
	if err := c.db.One("ID", id, &reservation); err != nil {
		return nil, errors.Wrap(err, "could not find reservation")
	}
	return &reservation, nil
}

// FindActiveReservationByItem returns the single active reservation of the given item.
func (c *strm) FindActiveReservationByItem(itemID string) (*model.Reservation, error) {
	var reservation model.Reservation
	err := c.db.Select(q.Eq("ItemID", itemID), q.Eq("Status", model.ReservationActive)).First(&reservation)
	if err != nil {
		return nil, errors.Wrap(err, "could not find active reservation by item")
	}
	return &reservation, nil
}

// FindReservationsByItem returns all reservations ever taken on the given item.
func (c *strm) FindReservationsByItem(itemID string) ([]*model.Reservation, error) {
	reservations := make([]*model.Reservation, 0)
	err := c.db.Select(q.Eq("ItemID", itemID)).OrderBy("CreatedAt").Find(&reservations)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find reservations by item")
	}
	return reservations, nil
}

// FindReservationsByBuyer returns all reservations of the given buyer.
func (c *strm) FindReservationsByBuyer(buyerID string) ([]*model.Reservation, error) {
	reservations := make([]*model.Reservation, 0)
	err := c.db.Select(q.Eq("BuyerID", buyerID)).OrderBy("CreatedAt").Find(&reservations)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find reservations by buyer")
	}
	return reservations, nil
}

// FindActiveReservationsDueBefore returns active reservations whose deadline
// is strictly before the given time, oldest deadline first.
func (c *strm) FindActiveReservationsDueBefore(t time.Time) ([]*model.Reservation, error) {
	reservations := make([]*model.Reservation, 0)
	err := c.db.Select(q.Eq("Status", model.ReservationActive), q.Lt("ExpiresAt", t)).
		OrderBy("ExpiresAt").Find(&reservations)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find due reservations")
	}
	return reservations, nil
}

//
// Conversations & messages
//

// FindConversation returns the conversation for the given id (UUID).
func (c *strm) FindConversation(id string) (*model.Conversation, error) {
	var conversation model.Conversation
	if err := c.db.One("ID", id, &conversation); err != nil {
		return nil, errors.Wrap(err, "could not find conversation")
	}
	return &conversation, nil
}

// FindConversationByItemAndBuyer returns the conversation of the given pair.
func (c *strm) FindConversationByItemAndBuyer(itemID, buyerID string) (*model.Conversation, error) {
	var conversation model.Conversation
	err := c.db.Select(q.Eq("ItemID", itemID), q.Eq("BuyerID", buyerID)).First(&conversation)
	if err != nil {
		return nil, errors.Wrap(err, "could not find conversation by item and buyer")
	}
	return &conversation, nil
}

// FindConversationsByItem returns all conversations about the given item.
func (c *strm) FindConversationsByItem(itemID string) ([]*model.Conversation, error) {
	conversations := make([]*model.Conversation, 0)
	err := c.db.Find("ItemID", itemID, &conversations)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find conversations by item")
	}
	return conversations, nil
}

// FindConversationsByProfile returns all conversations where the profile is
// buyer or seller, most recently updated first.
func (c *strm) FindConversationsByProfile(profileID string) ([]*model.Conversation, error) {
	conversations := make([]*model.Conversation, 0)
	err := c.db.Select(q.Or(q.Eq("BuyerID", profileID), q.Eq("SellerID", profileID))).Find(&conversations)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find conversations by profile")
	}

	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})
	return conversations, nil
}

// FindMessagesByConversation returns all messages of the conversation, oldest first.
func (c *strm) FindMessagesByConversation(conversationID string) ([]*model.Message, error) {
	messages := make([]*model.Message, 0)
	err := c.db.Select(q.Eq("ConversationID", conversationID)).OrderBy("CreatedAt").Find(&messages)
	if err != nil && !c.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not find messages by conversation")
	}
	return messages, nil
}

// FindLastMessage returns the most recent message of the conversation.
func (c *strm) FindLastMessage(conversationID string) (*model.Message, error) {
	var message model.Message
	err := c.db.Select(q.Eq("ConversationID", conversationID)).
		OrderBy("CreatedAt").Reverse().First(&message)
	if err != nil {
		return nil, errors.Wrap(err, "could not find last message")
	}
	return &message, nil
}

//
// Password resets
//

// FindPasswordResetByTokenHash returns the reset record for the given token hash.
func (c *strm) FindPasswordResetByTokenHash(hash string) (*model.PasswordReset, error) {
	var reset model.PasswordReset
	if err := c.db.One("TokenHash", hash, &reset); err != nil {
		return nil, errors.Wrap(err, "could not find password reset by token hash")
	}
	return &reset, nil
}
