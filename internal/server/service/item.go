package service

import (
	"net/http"
	"strings"

	"github.com/mx-wll/kinderkreisel/internal/database"
	"github.com/mx-wll/kinderkreisel/internal/kkerror"
	"github.com/mx-wll/kinderkreisel/internal/model"
	"github.com/mx-wll/kinderkreisel/internal/storage"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// SellerItemLimit caps how many items a single seller can list.
const SellerItemLimit = 20

type (
	// An ItemService owns the item lifecycle: creation, field edits and the
	// deletion cascade. Status transitions between available and reserved are
	// the ReservationService's job.
	ItemService interface {
		// ListAvailable returns available items matching the given filters.
		ListAvailable(params ListItemsParams) ([]*model.Item, error)
		// Create inserts a new available item. The seller item cap is enforced
		// at the handler boundary, not here.
		Create(sellerID string, params ItemParams) (*model.Item, error)
		// Update edits the item's fields, never its status. It returns the
		// previous image blob id so the caller can clean up the orphaned blob
		// once the record write succeeded.
		Update(itemID, actorID string, params ItemParams) (*model.Item, string, error)
		// Remove deletes the item and cascades to its reservations,
		// conversations, messages and image blob.
		Remove(itemID, actorID string) error
	}

	// ListItemsParams filter the public item feed.
	ListItemsParams struct {
		Query    string `query:"q"`
		Category string `query:"category"`
		Pricing  string `query:"pricing"`
		Size     string `query:"size"`
		ShoeSize string `query:"shoe_size"`
		Limit    int    `query:"limit"`
	}

	// ItemParams carry the user editable item fields.
	ItemParams struct {
		Params
		Title          string `json:"title"`
		Description    string `json:"description"`
		PricingType    string `json:"pricing_type"`
		PricingDetail  string `json:"pricing_detail"`
		Category       string `json:"category"`
		Size           string `json:"size"`
		ShoeSize       string `json:"shoe_size"`
		ImageURL       string `json:"image_url"`
		ImageStorageID string `json:"image_storage_id"`
	}

	itemService struct {
		db    database.Client
		blobs storage.BlobStore
		locks *Locker
	}
)

// NewItem returns a new ItemService.
func NewItem(db database.Client, blobs storage.BlobStore, locks *Locker) ItemService {
	return &itemService{
		db:    db,
		blobs: blobs,
		locks: locks,
	}
}

// DefaultFeedLimit is the item feed page size when the client asks for none.
const DefaultFeedLimit = 40

// ListAvailable returns available items matching the given filters.
// The status index narrows the scan, the remaining filters run here.
func (s *itemService) ListAvailable(params ListItemsParams) ([]*model.Item, error) {
	items, err := s.db.FindAvailableItems(0)
	if err != nil {
		return nil, err
	}

	out := make([]*model.Item, 0, len(items))
	query := strings.ToLower(strings.TrimSpace(params.Query))
	for _, item := range items {
		if params.Category != "" && item.Category != params.Category {
			continue
		}
		if params.Pricing != "" && item.PricingType != params.Pricing {
			continue
		}
		if params.Size != "" && item.Size != params.Size {
			continue
		}
		if params.ShoeSize != "" && item.ShoeSize != params.ShoeSize {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(item.Title), query) &&
			!strings.Contains(strings.ToLower(item.Description), query) {
			continue
		}
		out = append(out, item)
	}

	limit := params.Limit
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Create inserts a new available item.
func (s *itemService) Create(sellerID string, params ItemParams) (*model.Item, error) {
	if err := validateItemParams(params); err != nil {
		return nil, err
	}

	item := model.NewItem(sellerID)
	applyItemParams(item, params)

	if err := s.db.Save(item); err != nil {
		return nil, errors.Wrap(err, "could not persist item")
	}
	return item, nil
}

// Update edits the item's fields, never its status.
// The write stores the whole record, so it runs under the item's lock or it
// would resurrect a stale status over a concurrent reservation.
func (s *itemService) Update(itemID, actorID string, params ItemParams) (*model.Item, string, error) {
	if err := validateItemParams(params); err != nil {
		return nil, "", err
	}

	unlock := s.locks.Lock(itemID)
	defer unlock()

	item, err := s.db.FindItem(itemID)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, "", kkerror.NotFound("Item not found.")
		}
		return nil, "", errors.Wrap(err, "could not get item")
	}
	if item.SellerID != actorID {
		return nil, "", kkerror.Unauthorized("Only the seller can edit an item.")
	}

	previousBlob := item.ImageStorageID
	applyItemParams(item, params)

	if err := s.db.Save(item); err != nil {
		return nil, "", errors.Wrap(err, "could not persist item")
	}
	if previousBlob == item.ImageStorageID {
		previousBlob = ""
	}
	return item, previousBlob, nil
}

// Remove deletes the item and its dependent records.
func (s *itemService) Remove(itemID, actorID string) error {
	unlock := s.locks.Lock(itemID)
	defer unlock()

	item, err := s.db.FindItem(itemID)
	if err != nil {
		if s.db.IsNotFound(err) {
			return kkerror.NotFound("Item not found.")
		}
		return errors.Wrap(err, "could not get item")
	}
	if item.SellerID != actorID {
		return kkerror.Unauthorized("Only the seller can delete an item.")
	}

	return s.cascade(item)
}

// cascade deletes everything hanging off the item, the item record last.
// The caller holds the item's lock.
func (s *itemService) cascade(item *model.Item) error {
	// The buyer loses an active reservation silently, there is no notify step.
	reservations, err := s.db.FindReservationsByItem(item.ID)
	if err != nil {
		return errors.Wrap(err, "could not list item reservations")
	}
	for _, reservation := range reservations {
		if !reservation.Active() {
			continue
		}
		if err := s.db.Delete(reservation); err != nil {
			return errors.Wrap(err, "could not delete reservation")
		}
	}

	conversations, err := s.db.FindConversationsByItem(item.ID)
	if err != nil {
		return errors.Wrap(err, "could not list item conversations")
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

	if item.ImageStorageID != "" {
		// Best effort, a leftover blob is harmless.
		if err := s.blobs.Delete(item.ImageStorageID); err != nil {
			logrus.WithError(err).WithField("blob", item.ImageStorageID).Warn("could not delete item image")
		}
	}

	return errors.Wrap(s.db.Delete(item), "could not delete item")
}

func validateItemParams(params ItemParams) error {
	if strings.TrimSpace(params.Title) == "" {
		return kkerror.NewWithTagCode(http.StatusBadRequest, kkerror.TagInvalidParams, "Title is required.")
	}
	switch params.PricingType {
	case model.PricingFree, model.PricingLending, model.PricingOther:
	default:
		return kkerror.NewWithTagCode(http.StatusBadRequest, kkerror.TagInvalidParams, "Unknown pricing type.")
	}
	if params.Category == "" {
		return kkerror.NewWithTagCode(http.StatusBadRequest, kkerror.TagInvalidParams, "Category is required.")
	}
	return nil
}

func applyItemParams(item *model.Item, params ItemParams) {
	item.Title = params.Title
	item.Description = params.Description
	item.PricingType = params.PricingType
	item.PricingDetail = params.PricingDetail
	item.Category = params.Category
	item.Size = params.Size
	item.ShoeSize = params.ShoeSize
	item.ImageURL = params.ImageURL
	item.ImageStorageID = params.ImageStorageID
}
