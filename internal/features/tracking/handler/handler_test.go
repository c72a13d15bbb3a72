package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"reverse-logistics/internal/core/logger"
	"reverse-logistics/internal/core/server"
	ndr "reverse-logistics/internal/features/ndr/domain"
	orders "reverse-logistics/internal/features/orders/domain"
	rto "reverse-logistics/internal/features/rto/domain"
	"reverse-logistics/internal/features/tracking/domain"
	"reverse-logistics/internal/features/tracking/ports"
	"reverse-logistics/internal/features/tracking/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2026, 5, 11, 12, 0, 0, 0, time.UTC)

type stubProvider struct{}

func (stubProvider) GetTrackingHistory(context.Context, string) (*domain.History, error) {
	h := domain.NewHistory()
	h.Add(domain.Event{Date: at, Code: "1", Text: "Recibido", Status: domain.StatusProcessing})
	h.Add(domain.Event{Date: at.Add(time.Hour), Code: "701", Text: "No hay quien reciba", Status: domain.StatusDeliveryFailed})
	return h, nil
}

func (stubProvider) SupportsCourier(courier string) bool { return courier == "coordinadora_co" }

type stubNDR struct{ ingested []ndr.TrackingUpdate }

func (s *stubNDR) Ingest(_ context.Context, u ndr.TrackingUpdate) (*ndr.Event, error) {
	s.ingested = append(s.ingested, u)
	return &ndr.Event{ID: "ndr-1"}, nil
}

func (s *stubNDR) ResolveDelivered(context.Context, ndr.TrackingUpdate) (*ndr.Event, error) {
	return nil, ndr.ErrNDRNotFound
}

type stubRTO struct{}

func (stubRTO) UpdateStatusByShipment(context.Context, string, rto.Status, string) (*rto.Event, error) {
	return nil, rto.ErrRTONotFound
}

type stubOrders struct{}

func (stubOrders) Lookup(_ context.Context, id string) (*orders.Order, error) {
	if id != "1001" {
		return nil, orders.ErrOrderNotFound
	}
	return &orders.Order{
		ID:        "1001",
		CompanyID: "company-1",
		Tracking:  []orders.TrackingInfo{{TrackingProvider: "coordinadora_co", TrackingNumber: "SHP-1"}},
	}, nil
}

func setup(t *testing.T) (*fiber.App, *stubNDR) {
	t.Helper()
	logger.Init("development", "error")

	pipeline := &stubNDR{}
	svc := service.NewService([]ports.Provider{stubProvider{}}, pipeline, stubRTO{}, stubOrders{})

	app := fiber.New(fiber.Config{ErrorHandler: server.RespondError})
	app.Use(server.ScopeMiddleware())
	NewTrackingHandler(svc).Register(app)
	return app, pipeline
}

func request(t *testing.T, app *fiber.App, method, path, body, role string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Role", role)
	req.Header.Set("X-Company-ID", "company-1")
	req.Header.Set("X-Actor-ID", "actor-1")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestTrackingHandler_GetTrackingHistory(t *testing.T) {
	app, _ := setup(t)

	status, body := request(t, app, "GET", "/tracking/12345?courier=coordinadora_co", "", "seller")
	require.Equal(t, fiber.StatusOK, status)
	var h domain.History
	require.NoError(t, json.Unmarshal(body, &h))
	assert.Equal(t, domain.StatusDeliveryFailed, h.Status)
	assert.Len(t, h.Events, 2)

	status, body = request(t, app, "GET", "/tracking/12345", "", "seller")
	assert.Equal(t, fiber.StatusBadRequest, status)
	var errResp server.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Contains(t, errResp.Fields, "courier")

	status, body = request(t, app, "GET", "/tracking/12345?courier=envia_co", "", "seller")
	assert.Equal(t, fiber.StatusNotFound, status)
	require.NoError(t, json.Unmarshal(body, &errResp))
	assert.Equal(t, "COURIER_NOT_SUPPORTED", errResp.Code)
}

func TestTrackingHandler_Sync(t *testing.T) {
	app, pipeline := setup(t)

	status, body := request(t, app, "POST", "/tracking/sync",
		`{"tracking_number":"SHP-1","courier":"coordinadora_co","order_id":"1001","company_id":"company-1"}`, "seller")
	require.Equal(t, fiber.StatusOK, status)

	var res domain.SyncResult
	require.NoError(t, json.Unmarshal(body, &res))
	require.Len(t, res.Outcomes, 1)
	assert.Equal(t, domain.ActionNDRRecorded, res.Outcomes[0].Action)
	assert.Equal(t, "ndr-1", res.Outcomes[0].EntityID)
	require.Len(t, pipeline.ingested, 1)
	assert.Equal(t, "701", pipeline.ingested[0].Code)

	status, _ = request(t, app, "POST", "/tracking/sync", `{"courier":"coordinadora_co"}`, "seller")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = request(t, app, "POST", "/tracking/sync",
		`{"tracking_number":"SHP-1","courier":"coordinadora_co","company_id":"company-2"}`, "seller")
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestTrackingHandler_Webhook(t *testing.T) {
	app, _ := setup(t)

	update := `{"shipment_id":"SHP-1","company_id":"company-1","courier":"coordinadora_co","status":"delivered","occurred_at":"2026-05-11T12:00:00Z"}`

	status, _ := request(t, app, "POST", "/tracking/webhook", update, "customer")
	assert.Equal(t, fiber.StatusForbidden, status)

	status, body := request(t, app, "POST", "/tracking/webhook", update, "seller")
	require.Equal(t, fiber.StatusOK, status)
	var out domain.Outcome
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, domain.ActionIgnored, out.Action)
	assert.Equal(t, domain.StatusDelivered, out.Status)

	status, _ = request(t, app, "POST", "/tracking/webhook", `{"status":"delivered"}`, "admin")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestTrackingHandler_WebhookUpperCaseStatus(t *testing.T) {
	app, pipeline := setup(t)

	update := `{"shipment_id":"SHP-1","company_id":"company-1","courier":"coordinadora_co","status":"DELIVERY_FAILED","code":"701","occurred_at":"2026-05-11T12:00:00Z"}`
	status, body := request(t, app, "POST", "/tracking/webhook", update, "seller")
	require.Equal(t, fiber.StatusOK, status)

	var out domain.Outcome
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, domain.ActionNDRRecorded, out.Action)
	assert.Equal(t, domain.StatusDeliveryFailed, out.Status)
	assert.Equal(t, "ndr-1", out.EntityID)
	require.Len(t, pipeline.ingested, 1)
	assert.Equal(t, ndr.TrackingDeliveryFailed, pipeline.ingested[0].Status)
}

func TestTrackingHandler_SyncOrder(t *testing.T) {
	app, pipeline := setup(t)

	status, body := request(t, app, "POST", "/tracking/orders/1001/sync", "", "seller")
	require.Equal(t, fiber.StatusOK, status)
	var res domain.SyncResult
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, "SHP-1", res.TrackingNumber)
	require.Len(t, pipeline.ingested, 1)
	assert.Equal(t, "1001", pipeline.ingested[0].OrderID)

	status, _ = request(t, app, "POST", "/tracking/orders/999/sync", "", "seller")
	assert.Equal(t, fiber.StatusNotFound, status)
}
