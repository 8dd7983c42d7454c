package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes - Login & Logout
	RouteAuthLogin  = "/api/auth/login"
	RouteAuthLogout = "/api/auth/logout"
	RouteAuthMe     = "/api/auth/me"

	// Auth Routes - Sessions
	RouteAuthSessions            = "/api/auth/sessions"
	RouteAuthSession             = "/api/auth/sessions/{id}"
	RouteAuthLogoutOtherSessions = "/api/auth/sessions/logout-others"

	// Auth Routes - Password Management
	RouteChangePassword = "/api/auth/change-password"
	RouteForgotPassword = "/api/auth/forgot-password"
	RouteResetPassword  = "/api/auth/reset-password"

	// Admin Routes
	RouteAdminSettings = "/api/admin/settings"
	RouteAdminRoles    = "/api/admin/roles"
	RouteAdminUsers    = "/api/admin/users"
	RouteAdminUser     = "/api/admin/users/{id}"
	RouteAdminUserRole = "/api/admin/users/{id}/role"
	RouteAdminOnline   = "/api/admin/online"

	// Realtime
	RouteWebSocket = "/ws"

	// Operations
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)

// Request headers
const (
	HeaderSessionID     = "X-Session-ID"
	HeaderAuthorization = "Authorization"
)
