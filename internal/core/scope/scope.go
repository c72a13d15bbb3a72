// Package scope describes who is calling the engine. Authentication is done
// upstream; the engine only enforces that a caller sees its own records.
package scope

import (
	"context"

	"reverse-logistics/internal/core/apperror"
)

// Role is the caller's role within the platform.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleSeller    Role = "seller"
	RoleCustomer  Role = "customer"
	RoleWarehouse Role = "warehouse"
	// RoleSystem is used by the deadline monitor and tracking sync.
	RoleSystem Role = "system"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSeller, RoleCustomer, RoleWarehouse, RoleSystem:
		return true
	}
	return false
}

// Scope identifies the caller. Admin and system scopes see every company.
type Scope struct {
	CompanyID  string
	CustomerID string
	ActorID    string
	Role       Role
}

// System returns the scope used by background jobs.
func System() Scope {
	return Scope{ActorID: "system", Role: RoleSystem}
}

// Actor returns the identifier recorded on timelines.
func (s Scope) Actor() string {
	if s.ActorID != "" {
		return s.ActorID
	}
	return string(s.Role)
}

// Unrestricted reports whether the scope bypasses ownership checks.
func (s Scope) Unrestricted() bool {
	return s.Role == RoleAdmin || s.Role == RoleSystem
}

// CanAccess checks a record owned by companyID (and optionally customerID).
func (s Scope) CanAccess(companyID, customerID string) error {
	if s.Unrestricted() {
		return nil
	}
	if s.CompanyID != "" && s.CompanyID != companyID {
		return apperror.Forbidden("record belongs to another company")
	}
	if s.Role == RoleCustomer && s.CustomerID != customerID {
		return apperror.Forbidden("record belongs to another customer")
	}
	if s.CompanyID == "" && s.Role != RoleCustomer {
		return apperror.Forbidden("caller has no company scope")
	}
	return nil
}

type ctxKey struct{}

// WithScope stores s on ctx.
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the scope stored on ctx, if any.
func FromContext(ctx context.Context) (Scope, bool) {
	s, ok := ctx.Value(ctxKey{}).(Scope)
	return s, ok
}
