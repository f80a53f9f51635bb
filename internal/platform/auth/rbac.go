package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Capability is an abstract permission checked before a staff member may act.
type Capability string

const (
	CapRegisterPatient  Capability = "patient:register"
	CapCollectPayment   Capability = "payment:collect"
	CapTriagePatient    Capability = "triage:perform"
	CapRecordVitals     Capability = "vitals:record"
	CapConsultPatient   Capability = "consult:perform"
	CapDispenseMeds     Capability = "pharmacy:dispense"
	CapAdmitPatient     Capability = "admission:manage"
	CapManageEncounters Capability = "encounter:manage"
)

// roleCapabilities maps staff roles to what they may do. The admin role is
// the super-operator and bypasses capability checks entirely.
var roleCapabilities = map[string][]Capability{
	"admin": {
		CapRegisterPatient, CapCollectPayment, CapTriagePatient, CapRecordVitals,
		CapConsultPatient, CapDispenseMeds, CapAdmitPatient, CapManageEncounters,
	},
	"registrar":  {CapRegisterPatient},
	"cashier":    {CapCollectPayment},
	"nurse":      {CapTriagePatient, CapRecordVitals},
	"physician":  {CapConsultPatient, CapAdmitPatient},
	"lab":        {CapManageEncounters},
	"radiology":  {CapManageEncounters},
	"pharmacist": {CapDispenseMeds},
}

// CapabilitiesFor returns the union of capabilities granted by the given roles.
func CapabilitiesFor(roles []string) map[Capability]bool {
	caps := make(map[Capability]bool)
	for _, role := range roles {
		for _, c := range roleCapabilities[role] {
			caps[c] = true
		}
	}
	return caps
}

// IsSuperOperator reports whether any of the roles bypasses capability checks.
func IsSuperOperator(roles []string) bool {
	for _, role := range roles {
		if role == "admin" {
			return true
		}
	}
	return false
}

// HasCapability reports whether the roles grant the given capability,
// either directly or via super-operator status.
func HasCapability(roles []string, cap Capability) bool {
	if IsSuperOperator(roles) {
		return true
	}
	return CapabilitiesFor(roles)[cap]
}

// RequireRole returns middleware that checks if the user has at least one of the specified roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRoles := RolesFromContext(c.Request().Context())
			for _, required := range roles {
				for _, has := range userRoles {
					if has == required || has == "admin" {
						return next(c)
					}
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}
