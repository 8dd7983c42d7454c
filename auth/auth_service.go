package auth

import (
	"errors"
	"time"

	"github.com/jrsteele09/taskhub-server/mail"
	"github.com/jrsteele09/taskhub-server/roles"
	"github.com/jrsteele09/taskhub-server/sessions"
	"github.com/jrsteele09/taskhub-server/settings"
	"github.com/jrsteele09/taskhub-server/token"
	"github.com/jrsteele09/taskhub-server/users"
)

const defaultResetExpiry = time.Hour

// Repos holds all repository dependencies for the Service
type Repos struct {
	Users    users.Repo
	Roles    roles.Repo
	Settings settings.Repo
}

// Service is the authentication gateway: login, logout, per-request session
// validation and the password flows that fan out to session invalidation.
type Service struct {
	repos       Repos
	sessions    *sessions.Store
	tokens      *token.Manager
	resolver    *roles.Resolver
	mailer      mail.Sender
	resetExpiry time.Duration
	nowTime     func() time.Time
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

func WithMailer(mailer mail.Sender) ServiceOption {
	return func(s *Service) {
		s.mailer = mailer
	}
}

func WithResetExpiry(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.resetExpiry = d
		}
	}
}

// NewService initializes the gateway with required dependencies.
func NewService(repos Repos, store *sessions.Store, tokens *token.Manager, options ...ServiceOption) (*Service, error) {
	if repos.Users == nil {
		return nil, errors.New("[NewService] Users repo is required")
	}
	if repos.Roles == nil {
		return nil, errors.New("[NewService] Roles repo is required")
	}
	if repos.Settings == nil {
		return nil, errors.New("[NewService] Settings repo is required")
	}
	if store == nil {
		return nil, errors.New("[NewService] session store is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewService] token manager is required")
	}

	s := &Service{
		repos:       repos,
		sessions:    store,
		tokens:      tokens,
		resolver:    roles.NewResolver(repos.Roles),
		mailer:      mail.LogSender{},
		resetExpiry: defaultResetExpiry,
		nowTime:     time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Resolver exposes the role resolver used for authorization checks.
func (s *Service) Resolver() *roles.Resolver {
	return s.resolver
}

// MaxSessions is the per-user session cap surfaced to clients.
func (s *Service) MaxSessions() int {
	return s.sessions.MaxSessions()
}
