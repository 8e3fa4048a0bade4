package auth

import "github.com/genpad/internal/dispatch"

// Permission names granted through token claims
const (
	PermissionGenerate = dispatch.PermissionGenerate
	PermissionAdmin    = "admin"
)

// Principal is the authenticated caller of a request
type Principal struct {
	Subject     string   `json:"subject"`
	Name        string   `json:"name,omitempty"`
	Permissions []string `json:"permissions"`
}

// HasPermission reports whether p holds permission. Admins hold every permission.
func (p *Principal) HasPermission(permission string) bool {
	if p == nil {
		return false
	}
	for _, granted := range p.Permissions {
		if granted == permission || granted == PermissionAdmin {
			return true
		}
	}
	return false
}
