package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	claimSessionID = "sid"

	defaultAccessTokenExpiry = time.Hour
)

// Claims is the verified content of an access token.
type Claims struct {
	UserID    string
	SessionID string
	ID        string // jti
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Manager issues and verifies access tokens binding a user to one session.
type Manager struct {
	signer            Signer
	issuer            string
	accessTokenExpiry time.Duration
	nowFunc           func() time.Time
}

type ManagerOption func(*Manager)

func WithTokenExpiry(accessTokenExpiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = accessTokenExpiry
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

func New(signer Signer, options ...ManagerOption) (*Manager, error) {
	if signer == nil {
		return nil, errors.New("[token.New] signer is required")
	}
	m := &Manager{
		signer: signer,
	}

	for _, opt := range options {
		opt(m)
	}

	if m.accessTokenExpiry <= 0 {
		m.accessTokenExpiry = defaultAccessTokenExpiry
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m, nil
}

// Expiry is the lifetime given to every issued access token.
func (m *Manager) Expiry() time.Duration {
	return m.accessTokenExpiry
}

// Issue signs a token for (userID, sessionID) and returns it with its expiry.
func (m *Manager) Issue(userID, sessionID string) (string, time.Time, error) {
	if userID == "" || sessionID == "" {
		return "", time.Time{}, errors.New("[Manager.Issue] user id and session id are required")
	}

	now := m.nowFunc()
	expiresAt := now.Add(m.accessTokenExpiry)
	claims := jwt.MapClaims{
		"sub":          userID,
		claimSessionID: sessionID,
		"iat":          now.Unix(),
		"exp":          expiresAt.Unix(),
		"jti":          uuid.New().String(),
	}
	if m.issuer != "" {
		claims["iss"] = m.issuer
	}

	signed, err := m.signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "[Manager.Issue]")
	}
	return signed, time.Unix(expiresAt.Unix(), 0), nil
}

// Verify checks signature and expiry. Any failure returns nil.
func (m *Manager) Verify(rawToken string) *Claims {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithTimeFunc(m.nowFunc),
		jwt.WithValidMethods([]string{m.signer.GetSigningMethod().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if m.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.NewParser(parserOpts...).Parse(rawToken, m.signer.GetVerificationKey)
	if err != nil || !token.Valid {
		log.Debug().Err(err).Msg("access token rejected")
		return nil
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil
	}

	sub, _ := claims["sub"].(string)
	sid, _ := claims[claimSessionID].(string)
	jti, _ := claims["jti"].(string)
	if sub == "" || sid == "" {
		return nil
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	result := &Claims{
		UserID:    sub,
		SessionID: sid,
		ID:        jti,
		ExpiresAt: exp.Time,
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		result.IssuedAt = iat.Time
	}
	return result
}
