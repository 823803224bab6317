package models

// Role names stored on users. Admin capability is derived from the role,
// never from a free-form flag on the request.
const (
	RoleInvestor = "investor"
	RoleAdmin    = "admin"
)

// Capability is an action gated at the workflow boundary.
type Capability string

const (
	CapDecideTransactions Capability = "transactions:decide"
	CapManageSettings     Capability = "settings:manage"
	CapManageAdmins       Capability = "admins:manage"
	CapViewReports        Capability = "reports:view"
)

var roleCapabilities = map[string][]Capability{
	RoleInvestor: nil,
	RoleAdmin: {
		CapDecideTransactions,
		CapManageSettings,
		CapManageAdmins,
		CapViewReports,
	},
}

// RoleFor maps the stored admin flag to a role name.
func RoleFor(isAdmin bool) string {
	if isAdmin {
		return RoleAdmin
	}
	return RoleInvestor
}

// HasCapability reports whether role grants c.
func HasCapability(role string, c Capability) bool {
	for _, granted := range roleCapabilities[role] {
		if granted == c {
			return true
		}
	}
	return false
}
