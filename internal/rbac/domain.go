// Package rbac holds the console permission tokens and the single
// authorization guard used by handlers, middleware and services.
package rbac

// Permission tokens granted by the backend on login.
const (
	PermApproveDeposit    = "approve_deposit"
	PermApproveRedemption = "approve_redemption"
	PermApproveWithdrawal = "approve_withdrawal"
	PermManageProducts    = "manage_products"
	PermManageContent     = "manage_content"
	PermManageSchedules   = "manage_schedules"
	PermManageWastePrices = "manage_waste_prices"
	PermSendNotifications = "send_notifications"
	PermViewDashboard     = "view_dashboard"
	PermViewReports       = "view_reports"
	PermExportReports     = "export_reports"
)

// Role names carried in the login payload.
const (
	RoleNasabah    = "nasabah"
	RoleAdmin      = "admin"
	RoleSuperadmin = "superadmin"
)

// Known lists every permission the console understands, in display order.
func Known() []string {
	return []string{
		PermApproveDeposit,
		PermApproveRedemption,
		PermApproveWithdrawal,
		PermManageProducts,
		PermManageContent,
		PermManageSchedules,
		PermManageWastePrices,
		PermSendNotifications,
		PermViewDashboard,
		PermViewReports,
		PermExportReports,
	}
}

// ValidRole reports whether name is a role the backend issues.
func ValidRole(name string) bool {
	switch name {
	case RoleNasabah, RoleAdmin, RoleSuperadmin:
		return true
	}
	return false
}

// ConsoleRole reports whether the role may hold a console session.
func ConsoleRole(name string) bool {
	return name == RoleAdmin || name == RoleSuperadmin
}

// Subject describes the authenticated actor. Implementations must be safe to
// call on a nil receiver.
type Subject interface {
	HasPermission(perm string) bool
}
