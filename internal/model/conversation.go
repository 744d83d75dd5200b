package model

import (
	"time"
)

// A Conversation represents a database record.
// There is at most one conversation per (item, buyer) pair.
type Conversation struct {
	Base `msgpack:",inline" storm:"inline"`

	ItemID   string `json:"item_uuid"   msgpack:"item_id"   storm:"index"`
	BuyerID  string `json:"buyer_uuid"  msgpack:"buyer_id"  storm:"index"`
	SellerID string `json:"seller_uuid" msgpack:"seller_id" storm:"index"`
}

// A Message represents a database record.
type Message struct {
	Base `msgpack:",inline" storm:"inline"`

	ConversationID string    `json:"conversation_uuid" msgpack:"conversation_id" storm:"index"`
	SenderID       string    `json:"sender_uuid"       msgpack:"sender_id"`
	Content        string    `json:"content"           msgpack:"content"`
	ReadAt         time.Time `json:"read_at"           msgpack:"read_at,omitempty"`
}

// Read returns true once the recipient has opened the message.
func (m *Message) Read() bool {
	return !m.ReadAt.IsZero()
}
