package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/taskhub-server/auth"
	"github.com/jrsteele09/taskhub-server/internal/config"
	"github.com/jrsteele09/taskhub-server/realtime"
	"github.com/jrsteele09/taskhub-server/roles"
	"github.com/jrsteele09/taskhub-server/settings"
	"github.com/jrsteele09/taskhub-server/users"
	"github.com/rs/zerolog/log"
)

// Repos holds the repositories the admin handlers read and write directly.
type Repos struct {
	Users    users.Repo
	Roles    roles.Repo
	Settings settings.Repo
}

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Server struct {
	env    string // Environment (e.g., "DEV", "PROD")
	mux    *http.ServeMux
	routes []string
	config config.Config
	auth   *auth.Service
	repos  Repos
	hub    *realtime.Hub
	health HealthChecker
}

// ServerOption defines a function type to modify the Server instance.
type ServerOption func(*Server)

// WithHealthCheck makes /healthz report the dependency's reachability.
func WithHealthCheck(h HealthChecker) ServerOption {
	return func(s *Server) {
		s.health = h
	}
}

func New(cfg config.Config, authService *auth.Service, repos Repos, hub *realtime.Hub, options ...ServerOption) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("[Server New] config is required")
	}
	if authService == nil {
		return nil, errors.New("[Server New] auth service is required")
	}
	if repos.Users == nil || repos.Roles == nil || repos.Settings == nil {
		return nil, errors.New("[Server New] users, roles and settings repos are required")
	}
	if hub == nil {
		return nil, errors.New("[Server New] realtime hub is required")
	}

	s := &Server{
		env:    cfg.GetEnv(),
		mux:    http.NewServeMux(),
		config: cfg,
		auth:   authService,
		repos:  repos,
		hub:    hub,
	}
	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Debug().Msgf("[%-19s] %s", displayMethod, path)
}
