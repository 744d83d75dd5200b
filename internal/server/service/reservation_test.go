package service_test

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/mx-wll/kinderkreisel/internal/kkerror"
	"github.com/mx-wll/kinderkreisel/internal/model"
	"github.com/mx-wll/kinderkreisel/internal/server/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservationService_Reserve(t *testing.T) {
	db := setup(t)
	reservations := service.NewReservation(db, service.NewLocker())

	seller := createProfile(t, db, "Georges")
	buyer := createProfile(t, db, "Paulette")
	item := createItem(t, db, seller.ID, "Wooden train")

	reservation, err := reservations.Reserve(item.ID, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, item.ID, reservation.ItemID)
	assert.Equal(t, buyer.ID, reservation.BuyerID)
	assert.Equal(t, model.ReservationActive, reservation.Status)
	assert.WithinDuration(t, time.Now().Add(model.ReservationTTL), reservation.ExpiresAt, time.Minute)

	item2, err := db.FindItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusReserved, item2.Status)
	assertInvariant(t, db, item.ID)
}

func TestReservationService_Reserve_ItemNotFound(t *testing.T) {
	db := setup(t)
	reservations := service.NewReservation(db, service.NewLocker())

	buyer := createProfile(t, db, "Paulette")

	_, err := reservations.Reserve("nope", buyer.ID)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, kkerror.StatusCode(err))
}

func TestReservationService_Reserve_OwnItem(t *testing.T) {
	db := setup(t)
	reservations := service.NewReservation(db, service.NewLocker())

	seller := createProfile(t, db, "Georges")
	item := createItem(t, db, seller.ID, "Wooden train")

	_, err := reservations.Reserve(item.ID, seller.ID)
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, kkerror.StatusCode(err))
	assert.Equal(t, kkerror.TagSelfReservation, kkerror.Tag(err))
	assertInvariant(t, db, item.ID)
}

func TestReservationService_Reserve_AlreadyReserved(t *testing.T) {
	db := setup(t)
	reservations := service.NewReservation(db, service.NewLocker())

	seller := createProfile(t, db, "Georges")
	buyer := createProfile(t, db, "Paulette")
	other := createProfile(t, db, "Jacqueline")
	item := createItem(t, db, seller.ID, "Wooden train")

	_, err := reservations.Reserve(item.ID, buyer.ID)
	require.NoError(t, err)

	_, err = reservations.Reserve(item.ID, other.ID)
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, kkerror.StatusCode(err))
	assert.Equal(t, kkerror.TagItemUnavailable, kkerror.Tag(err))
	assertInvariant(t, db, item.ID)
}

func TestReservationService_Reserve_Concurrent(t *testing.T) {
	db := setup(t)
	reservations := service.NewReservation(db, service.NewLocker())

	seller := createProfile(t, db, "Georges")
	item := createItem(t, db, seller.ID, "Wooden train")

	const buyers = 8
	ids := make([]string, buyers)
	for i := range ids {
		ids[i] = createProfile(t, db, "Buyer").ID
	}

	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = reservations.Reserve(item.ID, ids[i])
		}(i)
	}
	wg.Wait()

	var won int
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		assert.Equal(t, http.StatusConflict, kkerror.StatusCode(err))
	}
	assert.Equal(t, 1, won, "exactly one buyer must win the race")
	assertInvariant(t, db, item.ID)
}

func TestReservationService_Cancel(t *testing.T) {
	db := setup(t)
	reservations := service.NewReservation(db, service.NewLocker())

	seller := createProfile(t, db, "Georges")
	buyer := createProfile(t, db, "Paulette")
	item := createItem(t, db, seller.ID, "Wooden train")

	reservation, err := reservations.Reserve(item.ID, buyer.ID)
	require.NoError(t, err)

	require.NoError(t, reservations.Cancel(item.ID, buyer.ID, reservation.ID))

	item2, err := db.FindItem(item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAvailable, item2.Status)

	cancelled, err := db.FindReservation(reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationCancelled, cancelled.Status)
	assertInvariant(t, db, item.ID)
}

func TestReservationService_Cancel_Idempotent(t *testing.T) {
	db := setup(t)
	reservations := service.NewReservation(db, service.NewLocker())

	seller := createProfile(t, db, "Georges")
	buyer := createProfile(t, db, "Paulette")
	item := createItem(t, db, seller.ID, "Wooden train")

	_, err := reservations.Reserve(item.ID, buyer.ID)
	require.NoError(t, err)

	require.NoError(t, reservations.Cancel(item.ID, buyer.ID, ""))
	// A second cancel finds no active reservation and succeeds quietly.
	require.NoError(t, reservations.Cancel(item.ID, buyer.ID, ""))
	assertInvariant(t, db, item.ID)
}

func TestReservationService_Cancel_BySeller(t *testing.T) {
	db := setup(t)
	reservations := service.NewReservation(db, service.NewLocker())

	seller := createProfile(t, db, "Georges")
	buyer := createProfile(t, db, "Paulette")
	item := createItem(t, db, seller.ID, "Wooden train")

	_, err := reservations.Reserve(item.ID, buyer.ID)
	require.NoError(t, err)
	require.NoError(t, reservations.Cancel(item.ID, seller.ID, ""))

	// The freed item can be reserved again, by anyone.
	other := createProfile(t, db, "Jacqueline")
	_, err = reservations.Reserve(item.ID, other.ID)
	require.NoError(t, err)
	assertInvariant(t, db, item.ID)
}

func TestReservationService_Cancel_Unauthorized(t *testing.T) {
	db := setup(t)
	reservations := service.NewReservation(db, service.NewLocker())

	seller := createProfile(t, db, "Georges")
	buyer := createProfile(t, db, "Paulette")
	stranger := createProfile(t, db, "Jacqueline")
	item := createItem(t, db, seller.ID, "Wooden train")

	_, err := reservations.Reserve(item.ID, buyer.ID)
	require.NoError(t, err)

	err = reservations.Cancel(item.ID, stranger.ID, "")
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, kkerror.StatusCode(err))
	assertInvariant(t, db, item.ID)
}

func TestReservationService_Cancel_StaleID(t *testing.T) {
	db := setup(t)
	reservations := service.NewReservation(db, service.NewLocker())

	seller := createProfile(t, db, "Georges")
	buyer := createProfile(t, db, "Paulette")
	item := createItem(t, db, seller.ID, "Wooden train")

	_, err := reservations.Reserve(item.ID, buyer.ID)
	require.NoError(t, err)

	err = reservations.Cancel(item.ID, buyer.ID, "stale-reservation-id")
	require.Error(t, err)
	assert.Equal(t, kkerror.TagReservationMismatch, kkerror.Tag(err))
	assertInvariant(t, db, item.ID)
}

func TestReservationService_ExpireDue(t *testing.T) {
	db := setup(t)
	reservations := service.NewReservation(db, service.NewLocker())

	seller := createProfile(t, db, "Georges")
	buyer := createProfile(t, db, "Paulette")
	dueItem := createItem(t, db, seller.ID, "Wooden train")
	freshItem := createItem(t, db, seller.ID, "Baby carrier")

	due, err := reservations.Reserve(dueItem.ID, buyer.ID)
	require.NoError(t, err)
	fresh, err := reservations.Reserve(freshItem.ID, buyer.ID)
	require.NoError(t, err)

	// Backdate the first reservation past its deadline.
	due.ExpiresAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, db.Save(due))

	count, err := reservations.ExpireDue(time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	expired, err := db.FindReservation(due.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationExpired, expired.Status)

	item, err := db.FindItem(dueItem.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAvailable, item.Status)

	untouched, err := db.FindReservation(fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationActive, untouched.Status)

	assertInvariant(t, db, dueItem.ID)
	assertInvariant(t, db, freshItem.ID)

	// A second sweep has nothing left to do.
	count, err = reservations.ExpireDue(time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestReservationService_ExpireDue_ItemDeleted(t *testing.T) {
	db := setup(t)
	locks := service.NewLocker()
	reservations := service.NewReservation(db, locks)

	seller := createProfile(t, db, "Georges")
	buyer := createProfile(t, db, "Paulette")
	item := createItem(t, db, seller.ID, "Wooden train")

	reservation, err := reservations.Reserve(item.ID, buyer.ID)
	require.NoError(t, err)
	reservation.ExpiresAt = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, db.Save(reservation))

	// The item vanished outside the usual cascade.
	require.NoError(t, db.Delete(item))

	count, err := reservations.ExpireDue(time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	expired, err := db.FindReservation(reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationExpired, expired.Status)
}

// TestReservationService_Interleaving drives the lifecycle through reserve,
// cancel and expiry transitions and checks the item/reservation coupling
// after every step.
func TestReservationService_Interleaving(t *testing.T) {
	db := setup(t)
	reservations := service.NewReservation(db, service.NewLocker())

	seller := createProfile(t, db, "Georges")
	buyerA := createProfile(t, db, "Paulette")
	buyerB := createProfile(t, db, "Jacqueline")
	item := createItem(t, db, seller.ID, "Wooden train")

	// reserve -> cancel -> reserve -> expire -> reserve
	r1, err := reservations.Reserve(item.ID, buyerA.ID)
	require.NoError(t, err)
	assertInvariant(t, db, item.ID)

	require.NoError(t, reservations.Cancel(item.ID, buyerA.ID, r1.ID))
	assertInvariant(t, db, item.ID)

	r2, err := reservations.Reserve(item.ID, buyerB.ID)
	require.NoError(t, err)
	assertInvariant(t, db, item.ID)

	r2.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	require.NoError(t, db.Save(r2))
	_, err = reservations.ExpireDue(time.Now().UTC())
	require.NoError(t, err)
	assertInvariant(t, db, item.ID)

	_, err = reservations.Reserve(item.ID, buyerA.ID)
	require.NoError(t, err)
	assertInvariant(t, db, item.ID)

	history, err := db.FindReservationsByItem(item.ID)
	require.NoError(t, err)
	assert.Len(t, history, 3)
}
