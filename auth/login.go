package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/taskhub-server/internal/errors"
	"github.com/jrsteele09/taskhub-server/metrics"
	"github.com/jrsteele09/taskhub-server/roles"
	"github.com/jrsteele09/taskhub-server/sessions"
	"github.com/jrsteele09/taskhub-server/users"
	"github.com/rs/zerolog/log"
)

type LoginRequest struct {
	Identifier string // email or username
	Password   string
	UserAgent  string
	IP         string
}

type LoginResult struct {
	SessionID   string      `json:"sessionId"`
	AccessToken string      `json:"accessToken"`
	ExpiresAt   time.Time   `json:"expiresAt"`
	MaxSessions int         `json:"maxSessions"`
	User        *users.User `json:"user"`
	Role        *roles.Role `json:"role,omitempty"`
}

// Login checks credentials and opens a new session under the per-user cap.
//
// Wrong identifier and wrong password both return ErrInvalidCredentials. An unverified
// user gets *UnverifiedError, a non-admin during maintenance gets *MaintenanceError.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	result, err := s.login(ctx, req)
	metrics.RecordLogin(loginOutcome(err))
	return result, err
}

func (s *Service) login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" || req.Password == "" {
		return nil, apperrors.ErrInvalidCredentials
	}

	user, err := s.repos.Users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("[Service.Login] GetByIdentifier: %w", err)
	}
	if !user.CanLogin() || !user.CheckPassword(req.Password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	if !user.IsVerified {
		return nil, &UnverifiedError{Email: user.Email}
	}

	if err := s.checkMaintenance(ctx, user); err != nil {
		return nil, err
	}

	if user.RoleID == "" {
		s.assignDefaultRole(ctx, user)
	}

	device := sessions.ParseDevice(req.UserAgent, req.IP)
	sessionID, err := s.sessions.CreateSession(ctx, user.ID, device)
	if err != nil {
		return nil, fmt.Errorf("[Service.Login] CreateSession: %w", err)
	}

	accessToken, expiresAt, err := s.sessions.IssueAccessToken(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("[Service.Login] IssueAccessToken: %w", err)
	}

	now := s.nowTime()
	if err := s.repos.Users.SetLoggedIn(ctx, user.ID, true, now); err != nil {
		return nil, fmt.Errorf("[Service.Login] SetLoggedIn: %w", err)
	}
	user.IsLoggedIn = true
	user.Status = users.StatusActive
	user.LastLogin = now

	result := &LoginResult{
		SessionID:   sessionID,
		AccessToken: accessToken,
		ExpiresAt:   expiresAt,
		MaxSessions: s.sessions.MaxSessions(),
		User:        user.Sanitized(),
	}
	if role, err := s.resolver.RoleFor(ctx, user); err == nil {
		result.Role = role
	}

	log.Info().Str("userId", user.ID).Str("sessionId", sessionID).Str("ip", req.IP).Msg("user logged in")
	return result, nil
}

// checkMaintenance blocks non-admins while maintenance mode is on. A failed settings
// read lets the login through: maintenance is a soft gate, unlike permission checks.
func (s *Service) checkMaintenance(ctx context.Context, user *users.User) error {
	current, err := s.repos.Settings.Get(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("maintenance flag unavailable, allowing login")
		return nil
	}
	if !current.MaintenanceMode {
		return nil
	}
	if s.resolver.HasRole(ctx, user, roles.RoleAdmin) {
		return nil
	}
	return &MaintenanceError{Message: current.Message()}
}

func (s *Service) assignDefaultRole(ctx context.Context, user *users.User) {
	role, err := s.repos.Roles.GetByName(ctx, roles.DefaultRoleName)
	if err != nil {
		log.Warn().Err(err).Str("userId", user.ID).Msg("default role unavailable, user stays without role")
		return
	}
	if err := s.repos.Users.SetRole(ctx, user.ID, role.ID); err != nil {
		log.Warn().Err(err).Str("userId", user.ID).Msg("failed to assign default role")
		return
	}
	user.RoleID = role.ID
}

// Logout ends the caller's session. A bearer token, when sent, must match the
// session and user before anything is deleted.
func (s *Service) Logout(ctx context.Context, principal *Principal, bearer string) error {
	if principal == nil {
		return unauthorized(CodeNoSession, "Session ID required")
	}
	if bearer != "" {
		claims := s.tokens.Verify(bearer)
		if claims == nil {
			return unauthorized(CodeTokenInvalid, "Invalid or expired access token")
		}
		if claims.SessionID != principal.SessionID {
			return unauthorized(CodeSessionMismatch, "Access token does not belong to this session")
		}
		if claims.UserID != principal.UserID() {
			return unauthorized(CodeUserMismatch, "Access token does not belong to this user")
		}
	}

	if err := s.sessions.InvalidateSession(ctx, principal.SessionID); err != nil {
		return fmt.Errorf("[Service.Logout] InvalidateSession: %w", err)
	}
	s.markLoggedOutIfIdle(ctx, principal.UserID())

	log.Info().Str("userId", principal.UserID()).Str("sessionId", principal.SessionID).Msg("user logged out")
	return nil
}

// markLoggedOutIfIdle flips the logged-in flag off once the user has no live session.
func (s *Service) markLoggedOutIfIdle(ctx context.Context, userID string) {
	remaining, err := s.sessions.GetUserActiveSessions(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("userId", userID).Msg("could not count remaining sessions")
		return
	}
	if len(remaining) > 0 {
		return
	}
	if err := s.repos.Users.SetLoggedIn(ctx, userID, false, time.Time{}); err != nil {
		log.Warn().Err(err).Str("userId", userID).Msg("failed to mark user logged out")
	}
}

func loginOutcome(err error) string {
	var (
		unverified  *UnverifiedError
		maintenance *MaintenanceError
	)
	switch {
	case err == nil:
		return metrics.LoginSuccess
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return metrics.LoginInvalid
	case errors.As(err, &unverified):
		return metrics.LoginUnverified
	case errors.As(err, &maintenance):
		return metrics.LoginMaintenance
	default:
		return metrics.LoginError
	}
}
