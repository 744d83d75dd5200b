package server_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/appleboy/gofight/v2"
	"github.com/mx-wll/kinderkreisel/internal/model"
	"github.com/mx-wll/kinderkreisel/internal/server/service"
	"github.com/stretchr/testify/assert"
)

func TestRequestItemsFeed(t *testing.T) {
	engine, ctrl, r, cleanup := setup()
	defer cleanup()

	seller, _ := createProfileWithSession(ctrl, "George")
	createItem(ctrl, seller.ID, "Wooden train")
	reserved := createItem(ctrl, seller.ID, "Balance bike")
	reserved.Status = model.StatusReserved
	if err := ctrl.Database.Save(reserved); err != nil {
		panic(err)
	}

	// The feed is public and only shows available items.
	r.GET("/items").Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)

		var v struct {
			Items []*model.Item `json:"items"`
		}
		err := json.Unmarshal(r.Body.Bytes(), &v)
		assert.NoError(t, err)
		assert.Len(t, v.Items, 1)
		assert.Equal(t, "Wooden train", v.Items[0].Title)
	})
}

func TestRequestItemShow(t *testing.T) {
	engine, ctrl, r, cleanup := setup()
	defer cleanup()

	seller, _ := createProfileWithSession(ctrl, "George")
	item := createItem(ctrl, seller.ID, "Wooden train")

	r.GET("/items/" + item.ID).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)

		var v model.Item
		err := json.Unmarshal(r.Body.Bytes(), &v)
		assert.NoError(t, err)
		assert.Equal(t, item.ID, v.ID)
	})

	r.GET("/items/nope").Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusNotFound, r.Code)
		assert.JSONEq(t, `{"error":{"tag":"not-found", "message":"Item not found."}}`, r.Body.String())
	})
}

func TestRequestItemCreate(t *testing.T) {
	engine, ctrl, r, cleanup := setup()
	defer cleanup()

	_, sess := createProfileWithSession(ctrl, "George")

	params := gofight.D{
		"title":        "Wooden train",
		"pricing_type": model.PricingFree,
		"category":     "toys",
	}

	r.POST("/items").SetJSON(params).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusUnauthorized, r.Code)
	})

	r.POST("/items").SetHeader(authHeader(sess)).SetJSON(params).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusCreated, r.Code)

		var v model.Item
		err := json.Unmarshal(r.Body.Bytes(), &v)
		assert.NoError(t, err)
		assert.NotEmpty(t, v.ID)
		assert.Equal(t, model.StatusAvailable, v.Status)
	})

	r.POST("/items").SetHeader(authHeader(sess)).SetJSON(gofight.D{
		"title":        "Mystery box",
		"pricing_type": "rent-to-own",
		"category":     "toys",
	}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusBadRequest, r.Code)
		assert.JSONEq(t, `{"error":{"tag":"invalid-params", "message":"Unknown pricing type."}}`, r.Body.String())
	})
}

func TestRequestItemCreateLimit(t *testing.T) {
	engine, ctrl, r, cleanup := setup()
	defer cleanup()

	seller, sess := createProfileWithSession(ctrl, "George")
	for i := 0; i < service.SellerItemLimit; i++ {
		createItem(ctrl, seller.ID, "Sock")
	}

	r.POST("/items").SetHeader(authHeader(sess)).SetJSON(gofight.D{
		"title":        "One too many",
		"pricing_type": model.PricingFree,
		"category":     "toys",
	}).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusConflict, r.Code)
		assert.JSONEq(t, `{"error":{"tag":"limit-reached", "message":"You reached the maximum number of listed items."}}`, r.Body.String())
	})
}

func TestRequestItemReserveFlow(t *testing.T) {
	engine, ctrl, r, cleanup := setup()
	defer cleanup()

	seller, _ := createProfileWithSession(ctrl, "George")
	_, buyer := createProfileWithSession(ctrl, "Paulette")
	_, other := createProfileWithSession(ctrl, "Jacqueline")
	item := createItem(ctrl, seller.ID, "Wooden train")

	var reservationID string
	r.POST("/items/"+item.ID+"/reserve").SetHeader(authHeader(buyer)).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusCreated, r.Code)

		var v model.Reservation
		err := json.Unmarshal(r.Body.Bytes(), &v)
		assert.NoError(t, err)
		assert.Equal(t, model.ReservationActive, v.Status)
		reservationID = v.ID
	})

	// Somebody else hits the wall.
	r.POST("/items/"+item.ID+"/reserve").SetHeader(authHeader(other)).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusConflict, r.Code)
		assert.JSONEq(t, `{"error":{"tag":"item-unavailable", "message":"Item is not available."}}`, r.Body.String())
	})

	r.GET("/items/"+item.ID+"/reservation").SetHeader(authHeader(buyer)).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)

		var v struct {
			Reservation *model.Reservation `json:"reservation"`
		}
		err := json.Unmarshal(r.Body.Bytes(), &v)
		assert.NoError(t, err)
		assert.Equal(t, reservationID, v.Reservation.ID)
	})

	r.DELETE("/items/"+item.ID+"/reservation?reservation_uuid="+reservationID).SetHeader(authHeader(buyer)).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
		assert.JSONEq(t, `{"ok":true}`, r.Body.String())
	})

	// Cancelling again changes nothing and still succeeds.
	r.DELETE("/items/"+item.ID+"/reservation").SetHeader(authHeader(buyer)).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusOK, r.Code)
		assert.JSONEq(t, `{"ok":true}`, r.Body.String())
	})

	// The item is free again.
	r.POST("/items/"+item.ID+"/reserve").SetHeader(authHeader(other)).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusCreated, r.Code)
	})
}

func TestRequestItemReserveOwn(t *testing.T) {
	engine, ctrl, r, cleanup := setup()
	defer cleanup()

	seller, sess := createProfileWithSession(ctrl, "George")
	item := createItem(ctrl, seller.ID, "Wooden train")

	r.POST("/items/"+item.ID+"/reserve").SetHeader(authHeader(sess)).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusConflict, r.Code)
		assert.JSONEq(t, `{"error":{"tag":"self-reservation", "message":"You cannot reserve your own item."}}`, r.Body.String())
	})
}

func TestRequestItemRemove(t *testing.T) {
	engine, ctrl, r, cleanup := setup()
	defer cleanup()

	seller, sess := createProfileWithSession(ctrl, "George")
	_, stranger := createProfileWithSession(ctrl, "Jacqueline")
	item := createItem(ctrl, seller.ID, "Wooden train")

	r.DELETE("/items/"+item.ID).SetHeader(authHeader(stranger)).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusForbidden, r.Code)
		assert.JSONEq(t, `{"error":{"tag":"unauthorized", "message":"Only the seller can delete an item."}}`, r.Body.String())
	})

	r.DELETE("/items/"+item.ID).SetHeader(authHeader(sess)).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusNoContent, r.Code)
	})

	r.GET("/items/" + item.ID).Run(engine, func(r gofight.HTTPResponse, rq gofight.HTTPRequest) {
		assert.Equal(t, http.StatusNotFound, r.Code)
	})
}
