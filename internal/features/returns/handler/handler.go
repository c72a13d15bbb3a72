package handler

import (
	"strconv"

	"reverse-logistics/internal/core/scope"
	"reverse-logistics/internal/core/server"
	qc "reverse-logistics/internal/features/qc/domain"
	qchandler "reverse-logistics/internal/features/qc/handler"
	"reverse-logistics/internal/features/returns/domain"
	"reverse-logistics/internal/features/returns/service"

	"github.com/gofiber/fiber/v2"
)

// ReturnHandler handles HTTP requests for customer return orders.
type ReturnHandler struct {
	service *service.Service
}

// NewReturnHandler creates a new ReturnHandler.
func NewReturnHandler(svc *service.Service) *ReturnHandler {
	return &ReturnHandler{
		service: svc,
	}
}

// Register mounts the return order routes on r.
func (h *ReturnHandler) Register(r fiber.Router) {
	sellers := server.RequireRole(scope.RoleAdmin, scope.RoleSeller)
	operators := server.RequireRole(scope.RoleAdmin, scope.RoleWarehouse)

	g := r.Group("/returns")
	g.Get("/", h.List)
	g.Post("/", server.RequireRole(scope.RoleAdmin, scope.RoleSeller, scope.RoleCustomer), h.Create)
	g.Get("/stats", h.Stats)
	g.Get("/:id", h.Get)
	g.Delete("/:id", server.RequireRole(scope.RoleAdmin), h.Delete)
	g.Post("/:id/review", sellers, h.Review)
	g.Post("/:id/pickup", sellers, h.SchedulePickup)
	g.Patch("/:id/status", operators, h.UpdateStatus)
	g.Post("/:id/qc/photos", operators, h.UploadQCPhotos)
	g.Post("/:id/qc", operators, h.RecordQC)
	g.Post("/:id/refund", sellers, h.Refund)
	g.Post("/:id/cancel", h.Cancel)
}

// List godoc
// @Summary List return orders
// @Description Customers only see their own returns.
// @Tags returns
// @Produce json
// @Param status query string false "Status filter"
// @Param reason query string false "Return reason filter"
// @Param breached query bool false "Only returns past their pickup SLA"
// @Param search query string false "Return id, order or shipment reference"
// @Param page query int false "Page (1-based)"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} pagination.Result[domain.ReturnOrder]
// @Router /returns [get]
func (h *ReturnHandler) List(c *fiber.Ctx) error {
	q := service.ListQuery{
		Status: domain.Status(c.Query("status")),
		Reason: domain.Reason(c.Query("reason")),
		Search: c.Query("search"),
	}
	if q.Status != "" && !q.Status.Valid() {
		return server.BadRequest(c, "status", "unknown return status")
	}
	if q.Reason != "" && !q.Reason.Valid() {
		return server.BadRequest(c, "reason", "unknown return reason")
	}
	if raw := c.Query("breached"); raw != "" {
		breached, err := strconv.ParseBool(raw)
		if err != nil {
			return server.BadRequest(c, "breached", "must be true or false")
		}
		q.Breached = &breached
	}

	page, err := h.service.List(c.UserContext(), q, server.Page(c), server.CallerScope(c))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(page)
}

// Stats godoc
// @Summary Return order statistics
// @Tags returns
// @Produce json
// @Success 200 {object} ports.Stats
// @Router /returns/stats [get]
func (h *ReturnHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext(), server.CallerScope(c))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(stats)
}

// Get godoc
// @Summary Get a return order
// @Tags returns
// @Produce json
// @Param id path string true "Return order id"
// @Success 200 {object} domain.ReturnOrder
// @Failure 404 {object} server.ErrorResponse
// @Router /returns/{id} [get]
func (h *ReturnHandler) Get(c *fiber.Ctx) error {
	o, err := h.service.Get(c.UserContext(), c.Params("id"), server.CallerScope(c))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(o)
}

// Create godoc
// @Summary Request a return
// @Description Items are priced from the original order.
// @Tags returns
// @Accept json
// @Produce json
// @Param request body domain.CreateRequest true "Return request"
// @Success 201 {object} domain.ReturnOrder
// @Failure 400 {object} server.ErrorResponse
// @Router /returns [post]
func (h *ReturnHandler) Create(c *fiber.Ctx) error {
	var req domain.CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return server.BadRequest(c, "body", "invalid request body")
	}

	o, err := h.service.CreateReturnRequest(c.UserContext(), req, server.CallerScope(c))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(o)
}

// Review godoc
// @Summary Approve or reject a return request
// @Tags returns
// @Accept json
// @Produce json
// @Param id path string true "Return order id"
// @Param request body domain.Decision true "Decision"
// @Success 200 {object} domain.ReturnOrder
// @Failure 409 {object} server.ErrorResponse
// @Router /returns/{id}/review [post]
func (h *ReturnHandler) Review(c *fiber.Ctx) error {
	var d domain.Decision
	if err := c.BodyParser(&d); err != nil {
		return server.BadRequest(c, "body", "invalid request body")
	}

	o, err := h.service.ReviewReturnRequest(c.UserContext(), c.Params("id"), d, server.CallerScope(c))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(o)
}

// SchedulePickup godoc
// @Summary Book the return pickup
// @Tags returns
// @Accept json
// @Produce json
// @Param id path string true "Return order id"
// @Param request body domain.PickupRequest true "Pickup"
// @Success 200 {object} domain.ReturnOrder
// @Failure 502 {object} server.ErrorResponse
// @Router /returns/{id}/pickup [post]
func (h *ReturnHandler) SchedulePickup(c *fiber.Ctx) error {
	var req domain.PickupRequest
	if err := c.BodyParser(&req); err != nil {
		return server.BadRequest(c, "body", "invalid request body")
	}

	o, err := h.service.SchedulePickup(c.UserContext(), c.Params("id"), req, server.CallerScope(c))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(o)
}

// StatusRequest is the body of a status update.
type StatusRequest struct {
	Status domain.Status `json:"status"`
	Notes  string        `json:"notes"`
}

// UpdateStatus godoc
// @Summary Record a pickup or arrival confirmation
// @Tags returns
// @Accept json
// @Produce json
// @Param id path string true "Return order id"
// @Param request body StatusRequest true "Status"
// @Success 200 {object} domain.ReturnOrder
// @Failure 409 {object} server.ErrorResponse
// @Router /returns/{id}/status [patch]
func (h *ReturnHandler) UpdateStatus(c *fiber.Ctx) error {
	var req StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return server.BadRequest(c, "body", "invalid request body")
	}

	o, err := h.service.UpdateStatus(c.UserContext(), c.Params("id"), req.Status, req.Notes, server.CallerScope(c))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(o)
}

// UploadQCPhotos godoc
// @Summary Upload QC evidence photos
// @Tags returns
// @Accept mpfd
// @Produce json
// @Param id path string true "Return order id"
// @Param photos formData file true "Photos (jpeg, png, webp; 5MB each)"
// @Success 200 {object} domain.ReturnOrder
// @Router /returns/{id}/qc/photos [post]
func (h *ReturnHandler) UploadQCPhotos(c *fiber.Ctx) error {
	photos, err := qchandler.ReadPhotos(c)
	if err != nil {
		return server.RespondError(c, err)
	}

	o, err := h.service.UploadQCPhotos(c.UserContext(), c.Params("id"), photos, server.CallerScope(c))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(o)
}

// RecordQC godoc
// @Summary Record the QC result
// @Description One-time write. Recalculates the refund; a rejected result closes the return.
// @Tags returns
// @Accept json
// @Produce json
// @Param id path string true "Return order id"
// @Param request body qc.Submission true "QC result"
// @Success 200 {object} domain.ReturnOrder
// @Failure 409 {object} server.ErrorResponse
// @Router /returns/{id}/qc [post]
func (h *ReturnHandler) RecordQC(c *fiber.Ctx) error {
	var sub qc.Submission
	if err := c.BodyParser(&sub); err != nil {
		return server.BadRequest(c, "body", "invalid request body")
	}

	o, err := h.service.RecordQCResult(c.UserContext(), c.Params("id"), sub, server.CallerScope(c))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(o)
}

// Refund godoc
// @Summary Issue the refund
// @Description Idempotent; repeating it returns the original transaction.
// @Tags returns
// @Accept json
// @Produce json
// @Param id path string true "Return order id"
// @Param request body domain.RefundRequest false "Admin override"
// @Success 200 {object} domain.ReturnOrder
// @Failure 409 {object} server.ErrorResponse
// @Failure 502 {object} server.ErrorResponse
// @Router /returns/{id}/refund [post]
func (h *ReturnHandler) Refund(c *fiber.Ctx) error {
	var req domain.RefundRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return server.BadRequest(c, "body", "invalid request body")
		}
	}

	o, err := h.service.ProcessRefund(c.UserContext(), c.Params("id"), req, server.CallerScope(c))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(o)
}

// CancelRequest is the body of a cancellation.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// Cancel godoc
// @Summary Cancel a return
// @Tags returns
// @Accept json
// @Produce json
// @Param id path string true "Return order id"
// @Param request body CancelRequest true "Reason"
// @Success 200 {object} domain.ReturnOrder
// @Failure 409 {object} server.ErrorResponse
// @Router /returns/{id}/cancel [post]
func (h *ReturnHandler) Cancel(c *fiber.Ctx) error {
	var req CancelRequest
	if err := c.BodyParser(&req); err != nil {
		return server.BadRequest(c, "body", "invalid request body")
	}

	o, err := h.service.CancelReturn(c.UserContext(), c.Params("id"), req.Reason, server.CallerScope(c))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(o)
}

// Delete godoc
// @Summary Delete a closed return
// @Tags returns
// @Param id path string true "Return order id"
// @Success 204
// @Failure 409 {object} server.ErrorResponse
// @Router /returns/{id} [delete]
func (h *ReturnHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id"), server.CallerScope(c)); err != nil {
		return server.RespondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
