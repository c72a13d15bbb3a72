package handler

import (
	"reverse-logistics/internal/core/scope"
	"reverse-logistics/internal/core/server"
	qc "reverse-logistics/internal/features/qc/domain"
	qchandler "reverse-logistics/internal/features/qc/handler"
	"reverse-logistics/internal/features/rto/domain"
	"reverse-logistics/internal/features/rto/service"

	"github.com/gofiber/fiber/v2"
)

// RTOHandler handles HTTP requests for RTO events and dispositions.
type RTOHandler struct {
	service *service.Service
}

// NewRTOHandler creates a new RTOHandler.
func NewRTOHandler(svc *service.Service) *RTOHandler {
	return &RTOHandler{
		service: svc,
	}
}

// Register mounts the RTO routes on r.
func (h *RTOHandler) Register(r fiber.Router) {
	operators := server.RequireRole(scope.RoleAdmin, scope.RoleWarehouse)

	g := r.Group("/rto")
	g.Get("/", h.List)
	g.Post("/", server.RequireRole(scope.RoleAdmin, scope.RoleSeller), h.Trigger)
	g.Get("/pending", h.Pending)
	g.Get("/stats", h.Stats)
	g.Get("/:id", h.Get)
	g.Post("/:id/awb", server.RequireRole(scope.RoleAdmin, scope.RoleSeller), h.RetryAWB)
	g.Patch("/:id/status", operators, h.UpdateStatus)
	g.Post("/:id/qc/photos", operators, h.UploadQCPhotos)
	g.Post("/:id/qc", operators, h.RecordQC)
	g.Get("/:id/disposition/suggestion", h.SuggestDisposition)
	g.Post("/:id/disposition", operators, h.ExecuteDisposition)
}

// List godoc
// @Summary List RTO events
// @Tags rto
// @Produce json
// @Param status query string false "Return status filter"
// @Param trigger query string false "auto or manual"
// @Param search query string false "Order or shipment reference"
// @Param page query int false "Page (1-based)"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} pagination.Result[domain.Event]
// @Router /rto [get]
func (h *RTOHandler) List(c *fiber.Ctx) error {
	q := service.ListQuery{
		Status:  domain.Status(c.Query("status")),
		Trigger: domain.Trigger(c.Query("trigger")),
		Search:  c.Query("search"),
	}
	if q.Status != "" && !q.Status.Valid() {
		return server.BadRequest(c, "status", "unknown return status")
	}
	if q.Trigger != "" && !q.Trigger.Valid() {
		return server.BadRequest(c, "trigger", "must be auto or manual")
	}

	page, err := h.service.List(c.UserContext(), q, server.Page(c), server.CallerScope(c))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(page)
}

// Pending godoc
// @Summary List RTO events not yet disposed
// @Tags rto
// @Produce json
// @Success 200 {object} pagination.Result[domain.Event]
// @Router /rto/pending [get]
func (h *RTOHandler) Pending(c *fiber.Ctx) error {
	page, err := h.service.GetPendingRTOs(c.UserContext(), server.Page(c), server.CallerScope(c))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(page)
}

// Stats godoc
// @Summary RTO statistics
// @Tags rto
// @Produce json
// @Success 200 {object} ports.Stats
// @Router /rto/stats [get]
func (h *RTOHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext(), server.CallerScope(c))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(stats)
}

// Get godoc
// @Summary Get an RTO event
// @Tags rto
// @Produce json
// @Param id path string true "RTO event id"
// @Success 200 {object} domain.Event
// @Failure 404 {object} server.ErrorResponse
// @Router /rto/{id} [get]
func (h *RTOHandler) Get(c *fiber.Ctx) error {
	e, err := h.service.Get(c.UserContext(), c.Params("id"), server.CallerScope(c))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(e)
}

// Trigger godoc
// @Summary Trigger a manual RTO
// @Description Creates the RTO event and books the reverse AWB. A 502 still leaves the event created and retryable.
// @Tags rto
// @Accept json
// @Produce json
// @Param request body domain.TriggerRequest true "Trigger"
// @Success 201 {object} domain.Event
// @Failure 409 {object} server.ErrorResponse
// @Failure 429 {object} server.ErrorResponse
// @Router /rto [post]
func (h *RTOHandler) Trigger(c *fiber.Ctx) error {
	var req domain.TriggerRequest
	if err := c.BodyParser(&req); err != nil {
		return server.BadRequest(c, "body", "invalid request body")
	}
	sc := server.CallerScope(c)
	req.Trigger = domain.TriggerManual
	if req.CompanyID == "" {
		req.CompanyID = sc.CompanyID
	}

	e, err := h.service.TriggerRTO(c.UserContext(), req, sc)
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(e)
}

// RetryAWB godoc
// @Summary Retry reverse AWB generation
// @Tags rto
// @Produce json
// @Param id path string true "RTO event id"
// @Success 200 {object} domain.Event
// @Failure 502 {object} server.ErrorResponse
// @Router /rto/{id}/awb [post]
func (h *RTOHandler) RetryAWB(c *fiber.Ctx) error {
	e, err := h.service.RetryReverseAWB(c.UserContext(), c.Params("id"), server.CallerScope(c))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(e)
}

// StatusRequest is the body of a status update.
type StatusRequest struct {
	Status domain.Status `json:"status"`
	Notes  string        `json:"notes"`
}

// UpdateStatus godoc
// @Summary Record a courier confirmation
// @Tags rto
// @Accept json
// @Produce json
// @Param id path string true "RTO event id"
// @Param request body StatusRequest true "Status"
// @Success 200 {object} domain.Event
// @Failure 409 {object} server.ErrorResponse
// @Router /rto/{id}/status [patch]
func (h *RTOHandler) UpdateStatus(c *fiber.Ctx) error {
	var req StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return server.BadRequest(c, "body", "invalid request body")
	}

	e, err := h.service.UpdateStatus(c.UserContext(), c.Params("id"), req.Status, req.Notes, server.CallerScope(c))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(e)
}

// UploadQCPhotos godoc
// @Summary Upload QC evidence photos
// @Tags rto
// @Accept mpfd
// @Produce json
// @Param id path string true "RTO event id"
// @Param photos formData file true "Photos (jpeg, png, webp; 5MB each)"
// @Success 200 {object} domain.Event
// @Router /rto/{id}/qc/photos [post]
func (h *RTOHandler) UploadQCPhotos(c *fiber.Ctx) error {
	photos, err := qchandler.ReadPhotos(c)
	if err != nil {
		return server.RespondError(c, err)
	}

	e, err := h.service.UploadQCPhotos(c.UserContext(), c.Params("id"), photos, server.CallerScope(c))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(e)
}

// RecordQC godoc
// @Summary Record the QC result
// @Description One-time write; a second submission is rejected.
// @Tags rto
// @Accept json
// @Produce json
// @Param id path string true "RTO event id"
// @Param request body qc.Submission true "QC result"
// @Success 200 {object} domain.Event
// @Failure 409 {object} server.ErrorResponse
// @Router /rto/{id}/qc [post]
func (h *RTOHandler) RecordQC(c *fiber.Ctx) error {
	var sub qc.Submission
	if err := c.BodyParser(&sub); err != nil {
		return server.BadRequest(c, "body", "invalid request body")
	}

	e, err := h.service.RecordQCResult(c.UserContext(), c.Params("id"), sub, server.CallerScope(c))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(e)
}

// SuggestDisposition godoc
// @Summary Suggest a disposition
// @Tags rto
// @Produce json
// @Param id path string true "RTO event id"
// @Success 200 {object} domain.Suggestion
// @Router /rto/{id}/disposition/suggestion [get]
func (h *RTOHandler) SuggestDisposition(c *fiber.Ctx) error {
	s, err := h.service.SuggestDisposition(c.UserContext(), c.Params("id"), server.CallerScope(c))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(s)
}

// ExecuteDisposition godoc
// @Summary Execute a disposition
// @Tags rto
// @Accept json
// @Produce json
// @Param id path string true "RTO event id"
// @Param request body service.DispositionRequest true "Disposition"
// @Success 200 {object} domain.Event
// @Failure 409 {object} server.ErrorResponse
// @Router /rto/{id}/disposition [post]
func (h *RTOHandler) ExecuteDisposition(c *fiber.Ctx) error {
	var req service.DispositionRequest
	if err := c.BodyParser(&req); err != nil {
		return server.BadRequest(c, "body", "invalid request body")
	}

	e, err := h.service.ExecuteDisposition(c.UserContext(), c.Params("id"), req, server.CallerScope(c))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(e)
}
