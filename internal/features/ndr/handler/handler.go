package handler

import (
	"reverse-logistics/internal/core/scope"
	"reverse-logistics/internal/core/server"
	"reverse-logistics/internal/features/ndr/domain"
	"reverse-logistics/internal/features/ndr/service"

	"github.com/gofiber/fiber/v2"
)

// NDRHandler handles HTTP requests for NDR events and workflows.
type NDRHandler struct {
	service *service.Service
}

// NewNDRHandler creates a new NDRHandler.
func NewNDRHandler(svc *service.Service) *NDRHandler {
	return &NDRHandler{
		service: svc,
	}
}

// Register mounts the NDR routes on r.
func (h *NDRHandler) Register(r fiber.Router) {
	g := r.Group("/ndr")
	g.Get("/", h.List)
	g.Get("/stats", h.Stats)
	g.Get("/workflows", h.ListWorkflows)
	g.Get("/workflows/:type", h.GetWorkflow)
	g.Put("/workflows/:type", server.RequireRole(scope.RoleAdmin), h.SaveWorkflow)
	g.Delete("/workflows/:type", server.RequireRole(scope.RoleAdmin), h.ResetWorkflow)
	g.Get("/:id", h.Get)
	g.Post("/:id/classify", server.RequireRole(scope.RoleAdmin, scope.RoleSeller, scope.RoleWarehouse), h.Classify)
	g.Post("/:id/inputs", h.HandleInput)
}

// List godoc
// @Summary List NDR events
// @Description Lists NDR events visible to the caller, newest first.
// @Tags ndr
// @Produce json
// @Param status query string false "Status filter"
// @Param type query string false "NDR type filter"
// @Param search query string false "Order or shipment reference"
// @Param page query int false "Page (1-based)"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} pagination.Result[domain.Event]
// @Failure 403 {object} server.ErrorResponse
// @Router /ndr [get]
func (h *NDRHandler) List(c *fiber.Ctx) error {
	q := service.ListQuery{
		Status: domain.Status(c.Query("status")),
		Type:   domain.Type(c.Query("type")),
		Search: c.Query("search"),
	}
	if q.Type != "" && !q.Type.Valid() {
		return server.BadRequest(c, "type", "unknown NDR type")
	}

	page, err := h.service.List(c.UserContext(), q, server.Page(c), server.CallerScope(c))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(page)
}

// Stats godoc
// @Summary NDR statistics
// @Tags ndr
// @Produce json
// @Success 200 {object} ports.Stats
// @Router /ndr/stats [get]
func (h *NDRHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext(), server.CallerScope(c))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(stats)
}

// Get godoc
// @Summary Get an NDR event
// @Tags ndr
// @Produce json
// @Param id path string true "NDR event id"
// @Success 200 {object} domain.Event
// @Failure 404 {object} server.ErrorResponse
// @Router /ndr/{id} [get]
func (h *NDRHandler) Get(c *fiber.Ctx) error {
	e, err := h.service.Get(c.UserContext(), c.Params("id"), server.CallerScope(c))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(e)
}

// Classify godoc
// @Summary Classify an NDR event
// @Description Derives the NDR type and starts its workflow. Safe to repeat.
// @Tags ndr
// @Produce json
// @Param id path string true "NDR event id"
// @Success 200 {object} domain.Event
// @Failure 409 {object} server.ErrorResponse
// @Router /ndr/{id}/classify [post]
func (h *NDRHandler) Classify(c *fiber.Ctx) error {
	sc := server.CallerScope(c)
	if _, err := h.service.Get(c.UserContext(), c.Params("id"), sc); err != nil {
		return server.RespondError(c, err)
	}

	e, err := h.service.Classify(c.UserContext(), c.Params("id"), sc.Actor())
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(e)
}

// HandleInput godoc
// @Summary Send an external input to an NDR event
// @Description Address updates, reattempt requests, seller reviews and manual resolution.
// @Tags ndr
// @Accept json
// @Produce json
// @Param id path string true "NDR event id"
// @Param input body domain.Input true "Input"
// @Success 200 {object} domain.Event
// @Failure 400 {object} server.ErrorResponse
// @Failure 409 {object} server.ErrorResponse
// @Router /ndr/{id}/inputs [post]
func (h *NDRHandler) HandleInput(c *fiber.Ctx) error {
	var in domain.Input
	if err := c.BodyParser(&in); err != nil {
		return server.BadRequest(c, "body", "invalid request body")
	}

	e, err := h.service.HandleInput(c.UserContext(), c.Params("id"), in, server.CallerScope(c))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(e)
}

// ListWorkflows godoc
// @Summary List effective NDR workflows
// @Tags ndr
// @Produce json
// @Success 200 {array} service.WorkflowView
// @Router /ndr/workflows [get]
func (h *NDRHandler) ListWorkflows(c *fiber.Ctx) error {
	wfs, err := h.service.ListWorkflows(c.UserContext())
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(wfs)
}

// GetWorkflow godoc
// @Summary Get the workflow of an NDR type
// @Tags ndr
// @Produce json
// @Param type path string true "NDR type"
// @Success 200 {object} service.WorkflowView
// @Router /ndr/workflows/{type} [get]
func (h *NDRHandler) GetWorkflow(c *fiber.Ctx) error {
	wf, err := h.service.GetWorkflow(c.UserContext(), domain.Type(c.Params("type")))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(wf)
}

// SaveWorkflow godoc
// @Summary Replace the workflow of an NDR type
// @Tags ndr
// @Accept json
// @Produce json
// @Param type path string true "NDR type"
// @Param workflow body domain.Workflow true "Workflow"
// @Success 200 {object} service.WorkflowView
// @Failure 400 {object} server.ErrorResponse
// @Router /ndr/workflows/{type} [put]
func (h *NDRHandler) SaveWorkflow(c *fiber.Ctx) error {
	var wf domain.Workflow
	if err := c.BodyParser(&wf); err != nil {
		return server.BadRequest(c, "body", "invalid request body")
	}
	wf.Type = domain.Type(c.Params("type"))

	saved, err := h.service.SaveWorkflow(c.UserContext(), wf)
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(saved)
}

// ResetWorkflow godoc
// @Summary Restore the default workflow of an NDR type
// @Tags ndr
// @Produce json
// @Param type path string true "NDR type"
// @Success 200 {object} service.WorkflowView
// @Router /ndr/workflows/{type} [delete]
func (h *NDRHandler) ResetWorkflow(c *fiber.Ctx) error {
	wf, err := h.service.ResetWorkflow(c.UserContext(), domain.Type(c.Params("type")))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(wf)
}
