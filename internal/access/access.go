package access

import (
	"context"
	"net/http"
	"strings"

	"github.com/noah-isme/backend-mayorista/internal/common"
	"github.com/noah-isme/backend-mayorista/internal/obs"
)

// Role is the job function of a dashboard user.
type Role string

const (
	RoleAdmin     Role = "Administrador"
	RoleWarehouse Role = "Bodega"
	RoleSalesLead Role = "Jefe Ventas"
	RoleSeller    Role = "Vendedor"
)

// Section is an area of the dashboard gated by role.
type Section string

const (
	SectionDashboard      Section = "dashboard"
	SectionNewOrder       Section = "new-order"
	SectionInventory      Section = "inventory"
	SectionOrders         Section = "orders"
	SectionClients        Section = "clients"
	SectionPriceLists     Section = "pricelists"
	SectionCompanyProfile Section = "company-profile"
	SectionUsers          Section = "users"
	SectionSupport        Section = "support"
	SectionSettings       Section = "settings"
)

const (
	// HeaderUserID carries the acting user's id from the trusted gateway.
	HeaderUserID = "X-User-ID"
	// HeaderUserRole carries the acting user's role from the trusted gateway.
	HeaderUserRole = "X-User-Role"
)

var allRoles = []Role{RoleAdmin, RoleWarehouse, RoleSalesLead, RoleSeller}

var sections = map[Section][]Role{
	SectionDashboard:      {RoleAdmin, RoleSalesLead, RoleSeller},
	SectionNewOrder:       {RoleAdmin, RoleSalesLead, RoleSeller},
	SectionClients:        {RoleAdmin, RoleSalesLead, RoleSeller},
	SectionCompanyProfile: {RoleAdmin, RoleSalesLead, RoleSeller},
	SectionInventory:      {RoleAdmin, RoleWarehouse},
	SectionPriceLists:     {RoleAdmin, RoleSalesLead},
	SectionUsers:          {RoleAdmin},
	SectionOrders:         allRoles,
	SectionSupport:        allRoles,
	SectionSettings:       allRoles,
}

// ParseRole matches raw case-insensitively against the known roles.
func ParseRole(raw string) (Role, bool) {
	raw = strings.TrimSpace(raw)
	for _, r := range allRoles {
		if strings.EqualFold(raw, string(r)) {
			return r, true
		}
	}
	return "", false
}

// CanAccess reports whether role may open section.
func CanAccess(role Role, section Section) bool {
	for _, r := range sections[section] {
		if r == role {
			return true
		}
	}
	return false
}

// Sections lists the sections role may open, in a stable order.
func Sections(role Role) []Section {
	order := []Section{
		SectionDashboard, SectionNewOrder, SectionInventory, SectionOrders, SectionClients,
		SectionPriceLists, SectionCompanyProfile, SectionUsers, SectionSupport, SectionSettings,
	}
	out := make([]Section, 0, len(order))
	for _, s := range order {
		if CanAccess(role, s) {
			out = append(out, s)
		}
	}
	return out
}

// CanSeeAllOrders reports whether role sees every seller's orders rather than
// only its own.
func CanSeeAllOrders(role Role) bool {
	switch role {
	case RoleAdmin, RoleSalesLead, RoleWarehouse:
		return true
	}
	return false
}

// RoleFrom extracts the acting role from ctx.
func RoleFrom(ctx context.Context) (Role, bool) {
	role := Role(common.CallerFrom(ctx).Role)
	return role, role != ""
}

// Identity copies the gateway identity headers onto the request context. An
// unknown role is treated as absent.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := common.Caller{UserID: strings.TrimSpace(r.Header.Get(HeaderUserID))}
		if role, ok := ParseRole(r.Header.Get(HeaderUserRole)); ok {
			caller.Role = string(role)
		}
		next.ServeHTTP(w, r.WithContext(common.WithCaller(r.Context(), caller)))
	})
}

// Require rejects requests whose role may not open section.
func Require(section Section) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := RoleFrom(r.Context())
			if !ok {
				common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or unknown role", nil)
				return
			}
			if !CanAccess(role, section) {
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "role cannot access this section", map[string]any{"section": section})
				return
			}
			obs.SetSection(r.Context(), string(section))
			next.ServeHTTP(w, r)
		})
	}
}
