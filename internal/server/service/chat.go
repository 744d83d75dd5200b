package service

import (
	"net/http"
	"strings"
	"time"

	"github.com/mx-wll/kinderkreisel/internal/database"
	"github.com/mx-wll/kinderkreisel/internal/kkerror"
	"github.com/mx-wll/kinderkreisel/internal/model"
	"github.com/pkg/errors"
)

// MaxMessageLength caps a single chat message.
const MaxMessageLength = 2000

type (
	// A ChatService owns conversations and messages around an item.
	ChatService interface {
		// Start opens the conversation of the given (item, buyer) pair,
		// returning the existing one when the pair already talked.
		Start(itemID, buyerID string) (*model.Conversation, error)
		// List returns all conversations of the profile, most recent first.
		List(profileID string) ([]*model.Conversation, error)
		// Messages returns the conversation messages, oldest first.
		// Only participants can read them.
		Messages(conversationID, profileID string) ([]*model.Message, error)
		// Send appends a message to the conversation.
		Send(conversationID, senderID, content string) (*model.Message, error)
		// MarkRead flags every message from the other participant as read.
		MarkRead(conversationID, profileID string) error
		// UnreadCount counts messages addressed to the profile and not yet read.
		UnreadCount(profileID string) (int, error)
	}

	chatService struct {
		db database.Client
	}
)

// NewChat returns a new ChatService.
func NewChat(db database.Client) ChatService {
	return &chatService{db: db}
}

// Start opens the conversation of the given (item, buyer) pair.
func (s *chatService) Start(itemID, buyerID string) (*model.Conversation, error) {
	item, err := s.db.FindItem(itemID)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, kkerror.NotFound("Item not found.")
		}
		return nil, errors.Wrap(err, "could not get item")
	}
	if item.SellerID == buyerID {
		return nil, kkerror.NewWithTagCode(http.StatusBadRequest, kkerror.TagInvalidParams, "You cannot message yourself.")
	}

	existing, err := s.db.FindConversationByItemAndBuyer(itemID, buyerID)
	if err == nil {
		return existing, nil
	}
	if !s.db.IsNotFound(err) {
		return nil, errors.Wrap(err, "could not check conversation")
	}

	conversation := &model.Conversation{
		ItemID:   itemID,
		BuyerID:  buyerID,
		SellerID: item.SellerID,
	}
	if err := s.db.Save(conversation); err != nil {
		return nil, errors.Wrap(err, "could not persist conversation")
	}
	return conversation, nil
}

// List returns all conversations of the profile, most recent first.
func (s *chatService) List(profileID string) ([]*model.Conversation, error) {
	return s.db.FindConversationsByProfile(profileID)
}

// Messages returns the conversation messages, oldest first.
func (s *chatService) Messages(conversationID, profileID string) ([]*model.Message, error) {
	conversation, err := s.participant(conversationID, profileID)
	if err != nil {
		return nil, err
	}
	return s.db.FindMessagesByConversation(conversation.ID)
}

// Send appends a message to the conversation.
func (s *chatService) Send(conversationID, senderID, content string) (*model.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, kkerror.NewWithTagCode(http.StatusBadRequest, kkerror.TagInvalidParams, "Message is empty.")
	}
	if len(content) > MaxMessageLength {
		return nil, kkerror.NewWithTagCode(http.StatusBadRequest, kkerror.TagInvalidParams, "Message too long.")
	}

	conversation, err := s.participant(conversationID, senderID)
	if err != nil {
		return nil, err
	}

	message := &model.Message{
		ConversationID: conversation.ID,
		SenderID:       senderID,
		Content:        content,
	}
	if err := s.db.Save(message); err != nil {
		return nil, errors.Wrap(err, "could not persist message")
	}
	// Bump the conversation so it surfaces in listings.
	if err := s.db.Save(conversation); err != nil {
		return nil, errors.Wrap(err, "could not bump conversation")
	}
	return message, nil
}

// MarkRead flags every message from the other participant as read.
func (s *chatService) MarkRead(conversationID, profileID string) error {
	conversation, err := s.participant(conversationID, profileID)
	if err != nil {
		return err
	}

	messages, err := s.db.FindMessagesByConversation(conversation.ID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, message := range messages {
		if message.SenderID == profileID || message.Read() {
			continue
		}
		message.ReadAt = now
		if err := s.db.Save(message); err != nil {
			return errors.Wrap(err, "could not mark message read")
		}
	}
	return nil
}

// UnreadCount counts messages addressed to the profile and not yet read.
func (s *chatService) UnreadCount(profileID string) (int, error) {
	conversations, err := s.db.FindConversationsByProfile(profileID)
	if err != nil {
		return 0, err
	}

	var count int
	for _, conversation := range conversations {
		messages, err := s.db.FindMessagesByConversation(conversation.ID)
		if err != nil {
			return 0, err
		}
		for _, message := range messages {
			if message.SenderID != profileID && !message.Read() {
				count++
			}
		}
	}
	return count, nil
}

func (s *chatService) participant(conversationID, profileID string) (*model.Conversation, error) {
	conversation, err := s.db.FindConversation(conversationID)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, kkerror.NotFound("Conversation not found.")
		}
		return nil, errors.Wrap(err, "could not get conversation")
	}
	if conversation.BuyerID != profileID && conversation.SellerID != profileID {
		return nil, kkerror.Unauthorized("You are not part of this conversation.")
	}
	return conversation, nil
}
