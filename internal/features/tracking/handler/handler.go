package handler

import (
	"strings"

	"reverse-logistics/internal/core/scope"
	"reverse-logistics/internal/core/server"
	ndr "reverse-logistics/internal/features/ndr/domain"
	"reverse-logistics/internal/features/tracking/domain"
	"reverse-logistics/internal/features/tracking/service"

	"github.com/gofiber/fiber/v2"
)

// TrackingHandler handles HTTP requests for tracking operations.
type TrackingHandler struct {
	service *service.Service
}

// NewTrackingHandler creates a new TrackingHandler.
func NewTrackingHandler(svc *service.Service) *TrackingHandler {
	return &TrackingHandler{
		service: svc,
	}
}

// Register mounts the tracking routes on r.
func (h *TrackingHandler) Register(r fiber.Router) {
	g := r.Group("/tracking")
	sellers := server.RequireRole(scope.RoleAdmin, scope.RoleSeller)
	g.Post("/sync", sellers, h.Sync)
	g.Post("/orders/:id/sync", sellers, h.SyncOrder)
	g.Post("/webhook", sellers, h.Webhook)
	g.Get("/:number", h.GetTrackingHistory)
}

// GetTrackingHistory godoc
// @Summary Get tracking history for a shipment
// @Description Retrieves the complete tracking history for a given tracking number and courier
// @Tags tracking
// @Produce json
// @Param number path string true "Tracking Number"
// @Param courier query string true "Courier name (coordinadora_co, interrapidisimo_co, servientrega_co)"
// @Success 200 {object} domain.History
// @Failure 400 {object} server.ErrorResponse
// @Failure 404 {object} server.ErrorResponse
// @Failure 502 {object} server.ErrorResponse
// @Router /tracking/{number} [get]
func (h *TrackingHandler) GetTrackingHistory(c *fiber.Ctx) error {
	courier := strings.TrimSpace(c.Query("courier"))
	if courier == "" {
		return server.BadRequest(c, "courier", "courier query parameter is required")
	}

	history, err := h.service.GetTrackingHistory(c.UserContext(), c.Params("number"), courier)
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(history)
}

// Sync godoc
// @Summary Sync a shipment's tracking into the workflows
// @Description Pulls the courier history and records failed attempts, deliveries and return scans.
// @Tags tracking
// @Accept json
// @Produce json
// @Param shipment body domain.Shipment true "Shipment"
// @Success 200 {object} domain.SyncResult
// @Failure 400 {object} server.ErrorResponse
// @Failure 502 {object} server.ErrorResponse
// @Router /tracking/sync [post]
func (h *TrackingHandler) Sync(c *fiber.Ctx) error {
	var sh domain.Shipment
	if err := c.BodyParser(&sh); err != nil {
		return server.BadRequest(c, "body", "invalid request body")
	}

	res, err := h.service.Sync(c.UserContext(), sh, server.CallerScope(c))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(res)
}

// SyncOrder godoc
// @Summary Sync the shipment of a store order
// @Tags tracking
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} domain.SyncResult
// @Failure 404 {object} server.ErrorResponse
// @Failure 409 {object} server.ErrorResponse
// @Failure 502 {object} server.ErrorResponse
// @Router /tracking/orders/{id}/sync [post]
func (h *TrackingHandler) SyncOrder(c *fiber.Ctx) error {
	res, err := h.service.SyncOrder(c.UserContext(), c.Params("id"), server.CallerScope(c))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(res)
}

// Webhook godoc
// @Summary Push a normalized tracking update
// @Tags tracking
// @Accept json
// @Produce json
// @Param update body ndr.TrackingUpdate true "Update"
// @Success 200 {object} domain.Outcome
// @Failure 400 {object} server.ErrorResponse
// @Failure 403 {object} server.ErrorResponse
// @Router /tracking/webhook [post]
func (h *TrackingHandler) Webhook(c *fiber.Ctx) error {
	var u ndr.TrackingUpdate
	if err := c.BodyParser(&u); err != nil {
		return server.BadRequest(c, "body", "invalid request body")
	}

	out, err := h.service.ApplyUpdate(c.UserContext(), u, server.CallerScope(c))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(out)
}
