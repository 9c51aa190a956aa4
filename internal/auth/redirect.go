package auth

import "github.com/fixmycar/diagnostic-service/internal/domain"

// RoleHome maps a role to its landing path after authentication. Total over
// the enumeration; unrecognized roles land on the default dashboard.
func RoleHome(role domain.Role) string {
	switch role {
	case domain.RoleAdmin:
		return "/admin"
	case domain.RoleMechanic:
		return "/mechanic"
	case domain.RoleInsurer:
		return "/insurer"
	default:
		return "/dashboard"
	}
}
