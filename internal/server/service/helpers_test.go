package service_test

import (
	"os"
	"sync"
	"testing"

	"github.com/mx-wll/kinderkreisel/internal/database"
	"github.com/mx-wll/kinderkreisel/internal/model"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) database.Client {
	t.Helper()

	tmpfile, err := os.CreateTemp("", "kinderkreisel.*.db")
	require.NoError(t, err)
	filename := tmpfile.Name()
	tmpfile.Close()

	db, err := database.StormOpen(filename)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
		os.RemoveAll(filename)
	})
	return db
}

func createProfile(t *testing.T, db database.Client, name string) *model.Profile {
	t.Helper()

	profile := &model.Profile{
		Name:    name,
		Surname: "Abitbol",
		ZipCode: "83623",
	}
	require.NoError(t, db.Save(profile))
	return profile
}

func createItem(t *testing.T, db database.Client, sellerID, title string) *model.Item {
	t.Helper()

	item := model.NewItem(sellerID)
	item.Title = title
	item.Description = "barely used"
	item.PricingType = model.PricingFree
	item.Category = "clothing"
	require.NoError(t, db.Save(item))
	return item
}

// fakeBlobs records deletions so cascades can be asserted without a disk store.
type fakeBlobs struct {
	mu      sync.Mutex
	deleted []string
}

func (f *fakeBlobs) Put(data []byte, ext string) (string, error) {
	return "blob", nil
}

func (f *fakeBlobs) Path(id string) (string, error) {
	return "", os.ErrNotExist
}

func (f *fakeBlobs) Delete(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

// assertInvariant checks that the item is reserved iff exactly one of its
// reservations is active.
func assertInvariant(t *testing.T, db database.Client, itemID string) {
	t.Helper()

	item, err := db.FindItem(itemID)
	if db.IsNotFound(err) {
		// A deleted item must not leave active reservations behind.
		reservations, err := db.FindReservationsByItem(itemID)
		require.NoError(t, err)
		for _, reservation := range reservations {
			require.False(t, reservation.Active(), "active reservation survived item deletion")
		}
		return
	}
	require.NoError(t, err)

	reservations, err := db.FindReservationsByItem(itemID)
	require.NoError(t, err)

	var active int
	for _, reservation := range reservations {
		if reservation.Active() {
			active++
		}
	}

	if item.Status == model.StatusReserved {
		require.Equal(t, 1, active, "reserved item must have exactly one active reservation")
	} else {
		require.Equal(t, 0, active, "available item must have no active reservation")
	}
}
