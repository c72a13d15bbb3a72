package handler

import (
	"reverse-logistics/internal/core/scope"
	"reverse-logistics/internal/core/server"
	"reverse-logistics/internal/features/orders/service"

	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests related to orders.
type OrderHandler struct {
	service *service.OrderService
}

// NewOrderHandler creates a new instance of OrderHandler.
func NewOrderHandler(s *service.OrderService) *OrderHandler {
	return &OrderHandler{
		service: s,
	}
}

// Register mounts the order routes on r.
func (h *OrderHandler) Register(r fiber.Router) {
	g := r.Group("/orders")
	g.Get("/", server.RequireRole(scope.RoleAdmin, scope.RoleSeller), h.Search)
	g.Get("/:id", h.GetOrder)
}

// GetOrder godoc
// @Summary Get Order by ID
// @Description Fetch order details. Customers must pass the order email.
// @Tags orders
// @Produce json
// @Param id path string true "Order ID"
// @Param email query string false "Customer Email"
// @Success 200 {object} domain.Order
// @Failure 400 {object} server.ErrorResponse
// @Failure 403 {object} server.ErrorResponse
// @Failure 404 {object} server.ErrorResponse
// @Failure 502 {object} server.ErrorResponse
// @Router /orders/{id} [get]
func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	order, err := h.service.GetOrder(c.UserContext(), c.Params("id"), c.Query("email"), server.CallerScope(c))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(order)
}

// Search godoc
// @Summary Search store orders
// @Tags orders
// @Produce json
// @Param q query string true "Customer name, email or order number"
// @Success 200 {array} domain.Order
// @Failure 400 {object} server.ErrorResponse
// @Failure 502 {object} server.ErrorResponse
// @Router /orders [get]
func (h *OrderHandler) Search(c *fiber.Ctx) error {
	term := c.Query("q")
	if term == "" {
		return server.BadRequest(c, "q", "search term is required")
	}

	orders, err := h.service.Search(c.UserContext(), term, server.CallerScope(c))
	if err != nil {
		return server.RespondError(c, err)
	}
	return c.JSON(orders)
}
