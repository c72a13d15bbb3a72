package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrder_MarshalJSON(t *testing.T) {
	order := Order{
		ID:        "123",
		CompanyID: "store",
		Status:    OrderStatusCreated,
		FirstName: "John",
		Email:     "john@example.com",
		Total:     decimal.RequireFromString("120000.50"),
		CreatedAt: time.Now(),
		Items: []OrderItem{
			{Quantity: 1, SKU: "SKU-1", Name: "Item 1", UnitPrice: decimal.NewFromInt(120000)},
		},
	}

	data, err := json.Marshal(order)
	assert.NoError(t, err)

	jsonString := string(data)
	assert.Contains(t, jsonString, `"order_id":"123"`)
	assert.Contains(t, jsonString, `"status":"CREATED"`)
	assert.Contains(t, jsonString, `"name":"John"`)
	assert.Contains(t, jsonString, `"total":"120000.5"`)
	assert.Contains(t, jsonString, `"items":[{`)
}

func TestOrder_Shipment(t *testing.T) {
	o := &Order{}
	_, ok := o.Shipment()
	assert.False(t, ok)

	o.Tracking = []TrackingInfo{
		{TrackingProvider: "servientrega_co", TrackingNumber: "111"},
		{TrackingProvider: "coordinadora_co", TrackingNumber: "222"},
		{TrackingProvider: "coordinadora_co"},
	}
	sh, ok := o.Shipment()
	assert.True(t, ok)
	assert.Equal(t, "222", sh.TrackingNumber)
}

func TestOrder_ContactAndMatches(t *testing.T) {
	o := &Order{Email: "Jane@Example.com"}
	assert.Equal(t, "Jane@Example.com", o.Contact())
	o.Phone = "+573001112233"
	assert.Equal(t, "+573001112233", o.Contact())

	assert.True(t, o.Matches(" jane@example.com "))
	assert.False(t, o.Matches("john@example.com"))
	assert.False(t, (&Order{}).Matches(""))
}
