package collaborators

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reverse-logistics/internal/core/httpclient"
	qc "reverse-logistics/internal/features/qc/ports"
	returns "reverse-logistics/internal/features/returns/ports"
	rto "reverse-logistics/internal/features/rto/ports"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captured is the last request seen by the fake collaborator.
type captured struct {
	method string
	path   string
	body   map[string]any
}

func fakeServer(t *testing.T, status int, reply string) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		if r.ContentLength != 0 {
			_ = json.NewDecoder(r.Body).Decode(&got.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestCourier_CreateReverseAWB(t *testing.T) {
	srv, got := fakeServer(t, http.StatusOK, `{"awb":"RAWB-1"}`)
	c := NewCourierClient(srv.URL+"/", time.Second)

	awb, err := c.CreateReverseAWB(context.Background(), rto.ReverseAWBRequest{
		RTOID: "rto-1", ShipmentID: "SHP-1", OrderID: "1001", CompanyID: "company-1", Courier: "coordinadora_co",
	})
	require.NoError(t, err)
	assert.Equal(t, "RAWB-1", awb)
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/reverse-shipments", got.path)
	assert.Equal(t, "SHP-1", got.body["shipment_id"])
	assert.Equal(t, "rto-1", got.body["rto_id"])
}

func TestCourier_CreateReverseAWB_Failures(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv, _ := fakeServer(t, http.StatusBadGateway, `{"error":"lane closed"}`)
		_, err := NewCourierClient(srv.URL, time.Second).CreateReverseAWB(context.Background(), rto.ReverseAWBRequest{})
		require.Error(t, err)

		var se *httpclient.StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusBadGateway, se.StatusCode)
		assert.Contains(t, err.Error(), "courier /reverse-shipments")
	})

	t.Run("empty awb", func(t *testing.T) {
		srv, _ := fakeServer(t, http.StatusOK, `{}`)
		_, err := NewCourierClient(srv.URL, time.Second).CreateReverseAWB(context.Background(), rto.ReverseAWBRequest{})
		assert.ErrorContains(t, err, "empty reverse AWB")
	})
}

func TestCourier_SchedulePickup(t *testing.T) {
	requested := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)

	t.Run("courier moves the date", func(t *testing.T) {
		srv, got := fakeServer(t, http.StatusCreated, `{"awb":"PAWB-1","scheduled_date":"2026-03-04T00:00:00Z"}`)
		conf, err := NewCourierClient(srv.URL, time.Second).SchedulePickup(context.Background(), returns.PickupBooking{
			ReturnID: "RET-1", OrderID: "1001", CompanyID: "company-1", Courier: "coordinadora_co", ScheduledDate: requested,
		})
		require.NoError(t, err)
		assert.Equal(t, "PAWB-1", conf.AWB)
		assert.True(t, conf.ScheduledDate.Equal(requested.Add(24*time.Hour)))
		assert.Equal(t, "/pickups", got.path)
		assert.Equal(t, "RET-1", got.body["return_id"])
	})

	t.Run("requested date kept", func(t *testing.T) {
		srv, _ := fakeServer(t, http.StatusOK, `{"awb":"PAWB-2"}`)
		conf, err := NewCourierClient(srv.URL, time.Second).SchedulePickup(context.Background(), returns.PickupBooking{ScheduledDate: requested})
		require.NoError(t, err)
		assert.True(t, conf.ScheduledDate.Equal(requested))
	})
}

func TestCourier_CancelPickup(t *testing.T) {
	srv, got := fakeServer(t, http.StatusNoContent, ``)
	require.NoError(t, NewCourierClient(srv.URL, time.Second).CancelPickup(context.Background(), "coordinadora_co", "PAWB 1"))
	assert.Equal(t, "/pickups/PAWB 1/cancel", got.path)
	assert.Equal(t, "coordinadora_co", got.body["courier"])

	gone, _ := fakeServer(t, http.StatusNotFound, `{"error":"unknown awb"}`)
	assert.NoError(t, NewCourierClient(gone.URL, time.Second).CancelPickup(context.Background(), "coordinadora_co", "PAWB-9"))

	down, _ := fakeServer(t, http.StatusServiceUnavailable, ``)
	assert.Error(t, NewCourierClient(down.URL, time.Second).CancelPickup(context.Background(), "coordinadora_co", "PAWB-9"))
}

func TestCourier_RequestReattempt(t *testing.T) {
	srv, got := fakeServer(t, http.StatusAccepted, `{"status":"queued"}`)
	require.NoError(t, NewCourierClient(srv.URL, time.Second).RequestReattempt(context.Background(), "SHP-1", "interrapidisimo_co"))
	assert.Equal(t, "/shipments/SHP-1/reattempt", got.path)
	assert.Equal(t, "interrapidisimo_co", got.body["courier"])
}

func TestPayment_Refund(t *testing.T) {
	srv, got := fakeServer(t, http.StatusOK, `{"transaction_id":"TXN-1"}`)
	txn, err := NewPaymentClient(srv.URL, time.Second).Refund(context.Background(), returns.RefundInstruction{
		CompanyID: "company-1", CustomerID: "customer-1", Amount: decimal.RequireFromString("450.50"),
		Method: "original_payment", Reference: "RET-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "TXN-1", txn)
	assert.Equal(t, "/refunds", got.path)
	assert.Equal(t, "450.5", got.body["amount"])
	assert.Equal(t, "RET-1", got.body["reference"])

	empty, _ := fakeServer(t, http.StatusOK, `{}`)
	_, err = NewPaymentClient(empty.URL, time.Second).Refund(context.Background(), returns.RefundInstruction{})
	assert.ErrorContains(t, err, "empty transaction id")
}

func TestNotification_Notify(t *testing.T) {
	srv, got := fakeServer(t, http.StatusAccepted, ``)
	err := NewNotificationClient(srv.URL, time.Second).Notify(context.Background(), "whatsapp", "+573001112233",
		"ndr_address_update", map[string]string{"order_id": "1001"})
	require.NoError(t, err)
	assert.Equal(t, "/notifications", got.path)
	assert.Equal(t, "whatsapp", got.body["channel"])
	assert.Equal(t, "ndr_address_update", got.body["template"])
	assert.Equal(t, map[string]any{"order_id": "1001"}, got.body["data"])
}

func TestInventory_AdjustStock(t *testing.T) {
	srv, got := fakeServer(t, http.StatusOK, `{}`)
	require.NoError(t, NewInventoryClient(srv.URL, time.Second).AdjustStock(context.Background(), "SKU-1", 2, "rto_restock", "rto-1:SKU-1"))
	assert.Equal(t, "/stock/adjustments", got.path)
	assert.Equal(t, "SKU-1", got.body["sku"])
	assert.Equal(t, float64(2), got.body["delta"])
	assert.Equal(t, "rto-1:SKU-1", got.body["reference"])

	bad, _ := fakeServer(t, http.StatusConflict, `{"error":"unknown sku"}`)
	assert.Error(t, NewInventoryClient(bad.URL, time.Second).AdjustStock(context.Background(), "X", 1, "r", "ref"))
}

func TestStorage_Upload(t *testing.T) {
	srv, got := fakeServer(t, http.StatusCreated, `{"url":"https://cdn.test/qc/rto-1/front.jpg"}`)
	url, err := NewStorageClient(srv.URL, time.Second).Upload(context.Background(), []byte("jpeg"), qc.UploadOptions{
		Folder: "qc/rto-1", ContentType: "image/jpeg", FileName: "front.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/qc/rto-1/front.jpg", url)
	assert.Equal(t, "/objects", got.path)
	assert.Equal(t, "anBlZw==", got.body["data"])
	assert.Equal(t, "qc/rto-1", got.body["folder"])

	empty, _ := fakeServer(t, http.StatusOK, `{}`)
	_, err = NewStorageClient(empty.URL, time.Second).Upload(context.Background(), nil, qc.UploadOptions{})
	assert.ErrorContains(t, err, "empty url")
}

func TestClient_HonoursContext(t *testing.T) {
	srv, _ := fakeServer(t, http.StatusOK, `{}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewNotificationClient(srv.URL, time.Second).Notify(ctx, "sms", "x", "t", nil)
	assert.ErrorIs(t, err, context.Canceled)
}
