package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"reverse-logistics/internal/core/cache"
	"reverse-logistics/internal/core/clock"
	"reverse-logistics/internal/core/database"
	"reverse-logistics/internal/core/logger"
	"reverse-logistics/internal/core/ratelimit"
	"reverse-logistics/internal/core/server"
	qcports "reverse-logistics/internal/features/qc/ports"
	qcservice "reverse-logistics/internal/features/qc/service"
	"reverse-logistics/internal/features/rto/adapters"
	"reverse-logistics/internal/features/rto/domain"
	"reverse-logistics/internal/features/rto/ports"
	"reverse-logistics/internal/features/rto/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCourier struct{ calls int }

func (s *stubCourier) CreateReverseAWB(_ context.Context, req ports.ReverseAWBRequest) (string, error) {
	s.calls++
	return "RAWB-" + req.ShipmentID, nil
}

type stubInventory struct{ skus []string }

func (s *stubInventory) AdjustStock(_ context.Context, sku string, _ int, _, _ string) error {
	s.skus = append(s.skus, sku)
	return nil
}

type stubStorage struct{}

func (stubStorage) Upload(_ context.Context, _ []byte, opts qcports.UploadOptions) (string, error) {
	return "https://cdn.example/" + opts.Folder + "/" + opts.FileName, nil
}

type stubSearch struct{}

func (stubSearch) FindOrdersMatching(context.Context, string, string) ([]string, error) {
	return nil, nil
}

func (stubSearch) FindShipmentsMatching(context.Context, string, string) ([]string, error) {
	return nil, nil
}

var (
	now       = time.Date(2026, 5, 11, 12, 0, 0, 0, time.UTC)
	pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
)

func setup(t *testing.T, rateLimit int) (*fiber.App, *stubInventory) {
	t.Helper()
	logger.Init("development", "error")

	db, err := database.OpenInMemory(&adapters.RTORow{})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	c, err := cache.NewRedisAdapter("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	inventory := &stubInventory{}
	svc := service.NewService(
		adapters.NewGormRepository(db),
		&stubCourier{},
		inventory,
		nil,
		qcservice.NewPhotoService(stubStorage{}, time.Second),
		stubSearch{},
		ratelimit.New(c, "rto", rateLimit, time.Minute),
		clock.NewFixed(now),
		service.Options{TransitDays: 7},
	)

	app := fiber.New(fiber.Config{ErrorHandler: server.RespondError})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("requestid", "test-ray-id")
		return c.Next()
	})
	app.Use(server.ScopeMiddleware())
	NewRTOHandler(svc).Register(app)

	return app, inventory
}

type call struct {
	method, path, role string
	body               io.Reader
	contentType        string
}

func do(t *testing.T, app *fiber.App, cl call) (int, []byte, string) {
	t.Helper()
	req := httptest.NewRequest(cl.method, cl.path, cl.body)
	if cl.contentType != "" {
		req.Header.Set("Content-Type", cl.contentType)
	}
	req.Header.Set("X-Role", cl.role)
	req.Header.Set("X-Company-ID", "company-1")
	req.Header.Set("X-Actor-ID", cl.role+"-1")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data, resp.Header.Get("Retry-After")
}

func jsonCall(method, path, role, body string) call {
	cl := call{method: method, path: path, role: role, contentType: "application/json"}
	if body != "" {
		cl.body = strings.NewReader(body)
	}
	return cl
}

func TestRTOHandler_TriggerConflictAndRateLimit(t *testing.T) {
	app, _ := setup(t, 2)
	body := func(shipment string) string {
		return `{"shipment_id":"` + shipment + `","order_id":"order-1","reason":"refused","trigger":"auto",
			"items":[{"sku":"A","quantity":1,"unit_price":"500"}]}`
	}

	status, data, _ := do(t, app, jsonCall("POST", "/rto", "seller", body("SHP-1")))
	require.Equal(t, fiber.StatusCreated, status, string(data))
	var e domain.Event
	require.NoError(t, json.Unmarshal(data, &e))
	assert.Equal(t, domain.TriggerManual, e.Trigger)
	assert.Equal(t, "company-1", e.CompanyID)
	assert.Equal(t, "RAWB-SHP-1", e.ReverseAWB)

	status, data, _ = do(t, app, jsonCall("POST", "/rto", "seller", body("SHP-1")))
	assert.Equal(t, fiber.StatusConflict, status)
	var errResp server.ErrorResponse
	require.NoError(t, json.Unmarshal(data, &errResp))
	assert.Equal(t, "RTO_ALREADY_ACTIVE", errResp.Code)

	status, _, _ = do(t, app, jsonCall("POST", "/rto", "seller", body("SHP-2")))
	require.Equal(t, fiber.StatusCreated, status)

	status, data, retryAfter := do(t, app, jsonCall("POST", "/rto", "seller", body("SHP-3")))
	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Equal(t, "60", retryAfter)
	require.NoError(t, json.Unmarshal(data, &errResp))
	assert.Equal(t, "RATE_LIMITED", errResp.Code)

	status, _, _ = do(t, app, jsonCall("POST", "/rto", "customer", body("SHP-4")))
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestRTOHandler_QCAndDisposition(t *testing.T) {
	app, inventory := setup(t, 10)

	status, data, _ := do(t, app, jsonCall("POST", "/rto", "admin",
		`{"shipment_id":"SHP-1","company_id":"company-1","reason":"ndr escalated","items":[{"sku":"A","quantity":1,"unit_price":"500"}]}`))
	require.Equal(t, fiber.StatusCreated, status, string(data))
	var e domain.Event
	require.NoError(t, json.Unmarshal(data, &e))
	base := "/rto/" + e.ID

	status, _, _ = do(t, app, jsonCall("PATCH", base+"/status", "seller", `{"status":"in_transit"}`))
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _, _ = do(t, app, jsonCall("PATCH", base+"/status", "warehouse", `{"status":"qc_pending","notes":"received"}`))
	require.Equal(t, fiber.StatusOK, status)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("photos", "front.png")
	require.NoError(t, err)
	_, err = part.Write(pngHeader)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	status, data, _ = do(t, app, call{method: "POST", path: base + "/qc/photos", role: "warehouse", body: &buf, contentType: mw.FormDataContentType()})
	require.Equal(t, fiber.StatusOK, status, string(data))
	require.NoError(t, json.Unmarshal(data, &e))
	assert.Equal(t, []string{"https://cdn.example/qc/rto/" + e.ID + "/front.png"}, e.QC.Photos)

	qcBody := `{"result":"approved","accepted_items":[{"sku":"A","quantity":1,"condition":"sellable"}]}`
	status, data, _ = do(t, app, jsonCall("POST", base+"/qc", "warehouse", qcBody))
	require.Equal(t, fiber.StatusOK, status, string(data))
	require.NoError(t, json.Unmarshal(data, &e))
	assert.Equal(t, domain.StatusQCCompleted, e.Status)
	assert.Equal(t, "warehouse-1", e.QC.Inspector)

	status, data, _ = do(t, app, jsonCall("POST", base+"/qc", "warehouse", qcBody))
	assert.Equal(t, fiber.StatusConflict, status)
	var errResp server.ErrorResponse
	require.NoError(t, json.Unmarshal(data, &errResp))
	assert.Equal(t, "QC_ALREADY_RECORDED", errResp.Code)

	status, data, _ = do(t, app, jsonCall("GET", base+"/disposition/suggestion", "seller", ""))
	require.Equal(t, fiber.StatusOK, status)
	var s domain.Suggestion
	require.NoError(t, json.Unmarshal(data, &s))
	assert.Equal(t, domain.ActionRestock, s.Action)

	status, data, _ = do(t, app, jsonCall("POST", base+"/disposition", "warehouse", `{"action":"restock"}`))
	require.Equal(t, fiber.StatusOK, status, string(data))
	require.NoError(t, json.Unmarshal(data, &e))
	assert.Equal(t, domain.StatusDisposed, e.Status)
	assert.Equal(t, []string{"A"}, inventory.skus)

	status, data, _ = do(t, app, jsonCall("POST", base+"/disposition", "warehouse", `{"action":"restock"}`))
	assert.Equal(t, fiber.StatusConflict, status)
	require.NoError(t, json.Unmarshal(data, &errResp))
	assert.Equal(t, "RTO_ALREADY_DISPOSED", errResp.Code)
}

func TestRTOHandler_ListsAndStats(t *testing.T) {
	app, _ := setup(t, 10)
	status, _, _ := do(t, app, jsonCall("POST", "/rto", "seller", `{"shipment_id":"SHP-1","reason":"refused"}`))
	require.Equal(t, fiber.StatusCreated, status)

	status, data, _ := do(t, app, jsonCall("GET", "/rto/pending", "seller", ""))
	require.Equal(t, fiber.StatusOK, status)
	assert.Contains(t, string(data), `"total":1`)

	status, _, _ = do(t, app, jsonCall("GET", "/rto?status=lost", "seller", ""))
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, data, _ = do(t, app, jsonCall("GET", "/rto/stats", "seller", ""))
	require.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"total":1,"by_status":{"initiated":1},"by_trigger":{"manual":1},"by_disposition":{},"awaiting_awb":0}`, string(data))

	status, _, _ = do(t, app, jsonCall("GET", "/rto/missing", "admin", ""))
	assert.Equal(t, fiber.StatusNotFound, status)
}
