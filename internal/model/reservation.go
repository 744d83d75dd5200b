package model

import (
	"time"
)

// Reservation statuses. Active is the only non-terminal one.
const (
	ReservationActive    = "active"
	ReservationExpired   = "expired"
	ReservationCancelled = "cancelled"
)

// ReservationTTL is the fixed time window a buyer has to pick up an item
// before the sweeper frees it again.
const ReservationTTL = 48 * time.Hour

// A Reservation represents a database record.
//
// At most one reservation per item may be active at a time. Expired and
// cancelled reservations are terminal and never resurrected.
type Reservation struct {
	Base `msgpack:",inline" storm:"inline"`

	ItemID    string    `json:"item_uuid"  msgpack:"item_id"    storm:"index"`
	BuyerID   string    `json:"buyer_uuid" msgpack:"buyer_id"   storm:"index"`
	Status    string    `json:"status"     msgpack:"status"     storm:"index"`
	ExpiresAt time.Time `json:"expires_at" msgpack:"expires_at" storm:"index"`
}

// Active returns true while the reservation holds its item.
func (r *Reservation) Active() bool {
	return r.Status == ReservationActive
}
