package model

// Role codes as constants
const (
	RoleCashier    = "CASHIER"
	RoleSupervisor = "SUPERVISOR"
)

// Privilege codes checked by the HTTP middleware.
const (
	PrivProductView       = "product:view"
	PrivProductCreate     = "product:create"
	PrivProductUpdate     = "product:update"
	PrivTransactionView   = "transaction:view"
	PrivTransactionCreate = "transaction:create"
	PrivReportView        = "report:view"
)

// RolePrivileges lists what each role's tokens carry.
var RolePrivileges = map[string][]string{
	RoleCashier: {
		PrivProductView,
		PrivTransactionView,
		PrivTransactionCreate,
	},
	RoleSupervisor: {
		PrivProductView,
		PrivProductCreate,
		PrivProductUpdate,
		PrivTransactionView,
		PrivTransactionCreate,
		PrivReportView,
	},
}

// PrivilegesFor returns a copy of the privilege codes for role.
func PrivilegesFor(role string) []string {
	privs := RolePrivileges[role]
	out := make([]string, len(privs))
	copy(out, privs)
	return out
}
