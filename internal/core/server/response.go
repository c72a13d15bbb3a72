package server

import (
	"errors"
	"math"
	"strconv"

	"reverse-logistics/internal/core/apperror"
	"reverse-logistics/internal/core/logger"
	"reverse-logistics/internal/core/pagination"
	"reverse-logistics/internal/core/scope"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Code is the stable error code callers switch on.
	Code string `json:"code"`
	// Message is the error description.
	Message string `json:"message"`
	// Fields carries field-level validation detail.
	Fields map[string]string `json:"fields,omitempty"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

// RayID returns the request id set by the requestid middleware.
func RayID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestid").(string)
	return id
}

// RespondError renders err with the status of its kind.
func RespondError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(ErrorResponse{
			Code:    apperror.CodeValidation,
			Message: fe.Message,
			RayID:   RayID(c),
		})
	}

	e, ok := apperror.As(err)
	if !ok {
		logger.Get().Error("Unhandled error",
			zap.String("path", c.Path()),
			zap.String("ray_id", RayID(c)),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Code:    apperror.CodeInternal,
			Message: "internal server error",
			RayID:   RayID(c),
		})
	}

	if e.Kind == apperror.KindUpstream || e.Kind == apperror.KindInternal {
		logger.Get().Error("Request failed",
			zap.String("path", c.Path()),
			zap.String("code", e.Code),
			zap.String("ray_id", RayID(c)),
			zap.Error(err),
		)
	}

	if e.Kind == apperror.KindRateLimited && e.RetryAfter > 0 {
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(e.RetryAfter.Seconds()))))
	}

	return c.Status(apperror.HTTPStatus(e.Kind)).JSON(ErrorResponse{
		Code:    e.Code,
		Message: e.Message,
		Fields:  e.Fields,
		RayID:   RayID(c),
	})
}

// BadRequest renders a validation error for a single field.
func BadRequest(c *fiber.Ctx, field, message string) error {
	return RespondError(c, apperror.Validation(message, map[string]string{field: message}))
}

const scopeLocal = "scope"

// ScopeMiddleware reads the caller scope set by the upstream gateway.
func ScopeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := scope.Scope{
			CompanyID:  c.Get("X-Company-ID"),
			CustomerID: c.Get("X-Customer-ID"),
			ActorID:    c.Get("X-Actor-ID"),
			Role:       scope.Role(c.Get("X-Role")),
		}
		if !s.Role.Valid() || s.Role == scope.RoleSystem {
			return RespondError(c, apperror.Forbidden("missing or unknown caller role"))
		}
		c.Locals(scopeLocal, s)
		c.SetUserContext(scope.WithScope(c.UserContext(), s))
		return c.Next()
	}
}

// CallerScope returns the scope stored by ScopeMiddleware.
func CallerScope(c *fiber.Ctx) scope.Scope {
	s, _ := c.Locals(scopeLocal).(scope.Scope)
	return s
}

// RequireRole rejects callers whose role is not listed.
func RequireRole(roles ...scope.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := CallerScope(c)
		for _, r := range roles {
			if s.Role == r {
				return c.Next()
			}
		}
		return RespondError(c, apperror.Forbidden("role "+string(s.Role)+" cannot perform this operation"))
	}
}

// Page reads page and limit query parameters.
func Page(c *fiber.Ctx) pagination.Params {
	return pagination.Params{
		Page:  c.QueryInt("page", 1),
		Limit: c.QueryInt("limit", pagination.DefaultLimit),
	}.Normalize()
}
