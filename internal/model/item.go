package model

const (
	// StatusAvailable means the item can be reserved.
	StatusAvailable = "available"
	// StatusReserved means an unexpired active reservation exists for the item.
	StatusReserved = "reserved"
)

// Pricing types accepted for an item.
const (
	PricingFree    = "free"
	PricingLending = "lending"
	PricingOther   = "other"
)

// An Item represents a database record and the rendered API response.
//
// Status must be StatusReserved if and only if a reservation with
// ReservationActive exists for the item. The reservation and item services
// maintain this invariant under a per-item lock.
type Item struct {
	Base `msgpack:",inline" storm:"inline"`

	SellerID       string `json:"seller_uuid"      msgpack:"seller_id"        storm:"index"`
	Title          string `json:"title"            msgpack:"title"`
	Description    string `json:"description"      msgpack:"description"`
	PricingType    string `json:"pricing_type"     msgpack:"pricing_type"`
	PricingDetail  string `json:"pricing_detail"   msgpack:"pricing_detail,omitempty"`
	Category       string `json:"category"         msgpack:"category"         storm:"index"`
	Size           string `json:"size"             msgpack:"size,omitempty"`
	ShoeSize       string `json:"shoe_size"        msgpack:"shoe_size,omitempty"`
	ImageURL       string `json:"image_url"        msgpack:"image_url"`
	ImageStorageID string `json:"image_storage_id" msgpack:"image_storage_id,omitempty"`
	Status         string `json:"status"           msgpack:"status"           storm:"index"`
}

// NewItem returns a new available item for the given seller.
func NewItem(sellerID string) *Item {
	return &Item{
		SellerID: sellerID,
		Status:   StatusAvailable,
	}
}
