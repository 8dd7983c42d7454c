package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/taskhub-server/realtime"
	"github.com/jrsteele09/taskhub-server/roles"
	"github.com/jrsteele09/taskhub-server/settings"
	"github.com/jrsteele09/taskhub-server/users"
	"github.com/rs/zerolog/log"
)

const (
	msgSettingsUpdated = "settings_updated"
	msgRoleChanged     = "role_changed"
)

func (s *Server) GetSettingsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		current, err := s.repos.Settings.Get(r.Context())
		if err != nil {
			writeServiceError(w, r, fmt.Errorf("[GetSettingsHandler] %w", err))
			return
		}
		writeJSON(w, http.StatusOK, current)
	}
}

type updateSettingsRequest struct {
	MaintenanceMode    *bool   `json:"maintenanceMode"`
	MaintenanceMessage *string `json:"maintenanceMessage"`
}

// UpdateSettingsHandler applies a partial update to the global settings and tells
// every connected client.
func (s *Server) UpdateSettingsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateSettingsRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.MaintenanceMode == nil && req.MaintenanceMessage == nil {
			writeError(w, http.StatusBadRequest, "Nothing to update", codeBadRequest)
			return
		}

		current, err := s.repos.Settings.Get(r.Context())
		if err != nil {
			writeServiceError(w, r, fmt.Errorf("[UpdateSettingsHandler] Get: %w", err))
			return
		}
		if req.MaintenanceMode != nil {
			current.MaintenanceMode = *req.MaintenanceMode
		}
		if req.MaintenanceMessage != nil {
			current.MaintenanceMessage = strings.TrimSpace(*req.MaintenanceMessage)
		}
		current.ID = settings.GlobalID
		current.UpdatedAt = time.Now().UTC()
		current.UpdatedBy = PrincipalFromContext(r.Context()).UserID()

		if err := s.repos.Settings.Save(r.Context(), current); err != nil {
			writeServiceError(w, r, fmt.Errorf("[UpdateSettingsHandler] Save: %w", err))
			return
		}
		log.Info().
			Bool("maintenanceMode", current.MaintenanceMode).
			Str("updatedBy", current.UpdatedBy).
			Msg("global settings updated")

		s.hub.Broadcast(msgSettingsUpdated, map[string]any{
			"maintenanceMode":    current.MaintenanceMode,
			"maintenanceMessage": current.Message(),
		})
		writeJSON(w, http.StatusOK, current)
	}
}

func (s *Server) ListRolesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := s.repos.Roles.List(r.Context())
		if err != nil {
			writeServiceError(w, r, fmt.Errorf("[ListRolesHandler] %w", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"roles": list})
	}
}

const (
	defaultUserPageSize = 50
	maxUserPageSize     = 200
)

type listUsersResponse struct {
	Users  []*users.User `json:"users"`
	Offset int           `json:"offset"`
	Limit  int           `json:"limit"`
}

// ListUsersHandler pages through every account, deleted ones included, ordered by id.
func (s *Server) ListUsersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, ok := queryInt(r, "offset", 0)
		limit, ok2 := queryInt(r, "limit", defaultUserPageSize)
		if !ok || !ok2 || offset < 0 || limit < 1 {
			writeError(w, http.StatusBadRequest, "offset and limit must be positive numbers", codeBadRequest)
			return
		}
		limit = min(limit, maxUserPageSize)

		list, err := s.repos.Users.List(r.Context(), offset, limit)
		if err != nil {
			writeServiceError(w, r, fmt.Errorf("[ListUsersHandler] List: %w", err))
			return
		}
		sanitized := make([]*users.User, 0, len(list))
		for _, u := range list {
			sanitized = append(sanitized, u.Sanitized())
		}
		writeJSON(w, http.StatusOK, listUsersResponse{Users: sanitized, Offset: offset, Limit: limit})
	}
}

// DeleteUserHandler soft-deletes an account and closes its sessions and sockets.
func (s *Server) DeleteUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.auth.DeleteUser(r.Context(), PrincipalFromContext(r.Context()), r.PathValue("id")); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func queryInt(r *http.Request, key string, fallback int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	return n, err == nil
}

type setUserRoleRequest struct {
	Role string `json:"role"`
}

// SetUserRoleHandler assigns a role by name. Permission checks read the role on every
// request, so the change applies to the user's open sessions straight away.
func (s *Server) SetUserRoleHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.PathValue("id")
		var req setUserRoleRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if !roles.ValidRoleName(req.Role) {
			writeJSON(w, http.StatusBadRequest, errorResponse{
				Message: fmt.Sprintf("Unknown role %q", req.Role),
				Code:    codeBadRequest,
			})
			return
		}

		ctx := r.Context()
		if _, err := s.repos.Users.GetByID(ctx, userID); err != nil {
			writeServiceError(w, r, err)
			return
		}
		role, err := s.repos.Roles.GetByName(ctx, roles.RoleName(req.Role))
		if err != nil {
			writeServiceError(w, r, fmt.Errorf("[SetUserRoleHandler] GetByName: %w", err))
			return
		}
		if err := s.repos.Users.SetRole(ctx, userID, role.ID); err != nil {
			writeServiceError(w, r, fmt.Errorf("[SetUserRoleHandler] SetRole: %w", err))
			return
		}
		log.Info().
			Str("userId", userID).
			Str("role", string(role.Name)).
			Str("by", PrincipalFromContext(ctx).UserID()).
			Msg("user role changed")

		s.hub.SendToUser(userID, msgRoleChanged, map[string]string{"role": string(role.Name)})
		writeJSON(w, http.StatusOK, map[string]any{"userId": userID, "role": role})
	}
}

type onlineResponse struct {
	Users []realtime.Presence `json:"users"`
	Count int                 `json:"count"`
}

// OnlineUsersHandler reports websocket presence on this process only.
func (s *Server) OnlineUsersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		online := s.hub.OnlineUsers()
		writeJSON(w, http.StatusOK, onlineResponse{Users: online, Count: len(online)})
	}
}

// WebSocketHandler upgrades a request RequireWebSocketAuth has already authenticated.
func (s *Server) WebSocketHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := PrincipalFromContext(r.Context())
		s.hub.ServeWS(w, r, principal.UserID(), principal.SessionID, principal.Session.ExpiresAt)
	}
}
