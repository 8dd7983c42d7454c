package server

import (
	"net/http"

	"github.com/jrsteele09/taskhub-server/metrics"
	"github.com/jrsteele09/taskhub-server/roles"
)

func (s *Server) initRoutes() {
	api := s.APIMiddleware()
	authed := s.APIMiddleware(s.RequireAuth())

	// LOGIN
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), api...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), authed...))
	s.RegisterRouteHandler("GET "+RouteAuthMe, ChainMiddleware(s.MeHandler(), authed...))

	// SESSIONS
	s.RegisterRouteHandler("GET "+RouteAuthSessions, ChainMiddleware(s.ListSessionsHandler(), authed...))
	s.RegisterRouteHandler("POST "+RouteAuthLogoutOtherSessions, ChainMiddleware(s.LogoutOtherSessionsHandler(), authed...))
	s.RegisterRouteHandler("DELETE "+RouteAuthSession, ChainMiddleware(s.RevokeSessionHandler(), authed...))

	// PASSWORD
	s.RegisterRouteHandler("POST "+RouteChangePassword, ChainMiddleware(s.ChangePasswordHandler(), authed...))
	s.RegisterRouteHandler("POST "+RouteForgotPassword, ChainMiddleware(s.ForgotPasswordHandler(), api...))
	s.RegisterRouteHandler("POST "+RouteResetPassword, ChainMiddleware(s.ResetPasswordHandler(), api...))

	// ADMIN
	s.RegisterRouteHandler("GET "+RouteAdminSettings, ChainMiddleware(s.GetSettingsHandler(),
		s.APIMiddleware(s.RequireAuth(), s.RequirePermission(roles.PermSettingsReadAll))...))
	s.RegisterRouteHandler("PUT "+RouteAdminSettings, ChainMiddleware(s.UpdateSettingsHandler(),
		s.APIMiddleware(s.RequireAuth(), s.RequirePermission(roles.PermSettingsUpdateAll))...))
	s.RegisterRouteHandler("GET "+RouteAdminRoles, ChainMiddleware(s.ListRolesHandler(),
		s.APIMiddleware(s.RequireAuth(), s.RequirePermission(roles.PermRoleReadAll))...))
	s.RegisterRouteHandler("GET "+RouteAdminUsers, ChainMiddleware(s.ListUsersHandler(),
		s.APIMiddleware(s.RequireAuth(), s.RequireAnyPermission(roles.PermUserReadAll, roles.PermUserManageAll))...))
	s.RegisterRouteHandler("DELETE "+RouteAdminUser, ChainMiddleware(s.DeleteUserHandler(),
		s.APIMiddleware(s.RequireAuth(), s.RequirePermission(roles.PermUserManageAll))...))
	s.RegisterRouteHandler("PUT "+RouteAdminUserRole, ChainMiddleware(s.SetUserRoleHandler(),
		s.APIMiddleware(s.RequireAuth(), s.RequireRole(roles.RoleAdmin))...))
	s.RegisterRouteHandler("GET "+RouteAdminOnline, ChainMiddleware(s.OnlineUsersHandler(),
		s.APIMiddleware(s.RequireAuth(), s.RequireAnyPermission(roles.PermUserReadAll, roles.PermUserManageAll))...))

	// REALTIME
	s.RegisterRouteHandler("GET "+RouteWebSocket, ChainMiddleware(s.WebSocketHandler(), s.APIMiddleware(s.RequireWebSocketAuth())...))

	// OPERATIONS
	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), api...))
	s.RegisterRouteHandler("GET "+RouteMetrics, metrics.Handler())

	// Preflight for every route. CorsMiddleware answers before the handler runs.
	s.RegisterRouteHandler("OPTIONS /", ChainMiddleware(s.NotFoundHandler(), api...))
	s.RegisterRouteHandler("/", ChainMiddleware(s.NotFoundHandler(), api...))
}

// NotFoundHandler handles 404 errors
func (s *Server) NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found", codeNotFound)
	}
}
