package collaborators

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	returns "reverse-logistics/internal/features/returns/ports"
	rto "reverse-logistics/internal/features/rto/ports"
)

// CourierClient books reverse legs, pickups and delivery reattempts with the
// courier aggregation service.
type CourierClient struct {
	client
}

// NewCourierClient creates a CourierClient for baseURL.
func NewCourierClient(baseURL string, timeout time.Duration) *CourierClient {
	return &CourierClient{client: newClient("courier", baseURL, timeout)}
}

type awbResponse struct {
	AWB string `json:"awb"`
}

// CreateReverseAWB books the return leg of an RTO.
func (c *CourierClient) CreateReverseAWB(ctx context.Context, req rto.ReverseAWBRequest) (string, error) {
	var resp awbResponse
	if err := c.post(ctx, "/reverse-shipments", req, &resp); err != nil {
		return "", err
	}
	if resp.AWB == "" {
		return "", errors.New("courier returned an empty reverse AWB")
	}
	return resp.AWB, nil
}

type pickupResponse struct {
	AWB           string    `json:"awb"`
	ScheduledDate time.Time `json:"scheduled_date"`
}

// SchedulePickup books a return pickup. The courier may move the date.
func (c *CourierClient) SchedulePickup(ctx context.Context, b returns.PickupBooking) (returns.PickupConfirmation, error) {
	var resp pickupResponse
	if err := c.post(ctx, "/pickups", b, &resp); err != nil {
		return returns.PickupConfirmation{}, err
	}
	if resp.AWB == "" {
		return returns.PickupConfirmation{}, errors.New("courier returned an empty pickup AWB")
	}
	if resp.ScheduledDate.IsZero() {
		resp.ScheduledDate = b.ScheduledDate
	}
	return returns.PickupConfirmation{AWB: resp.AWB, ScheduledDate: resp.ScheduledDate}, nil
}

// CancelPickup cancels a booked pickup. An unknown AWB counts as cancelled.
func (c *CourierClient) CancelPickup(ctx context.Context, courier, awb string) error {
	err := c.post(ctx, "/pickups/"+url.PathEscape(awb)+"/cancel", map[string]string{"courier": courier}, nil)
	if isStatus(err, http.StatusNotFound) {
		return nil
	}
	return err
}

// RequestReattempt asks the courier for another delivery attempt.
func (c *CourierClient) RequestReattempt(ctx context.Context, shipmentID, courier string) error {
	return c.post(ctx, "/shipments/"+url.PathEscape(shipmentID)+"/reattempt", map[string]string{"courier": courier}, nil)
}
