package config

import "time"

type SecurityConfig interface {
	GetAccessTokenSecret() string
	GetAccessTokenExpiry() time.Duration
	GetPasswordResetExpiry() time.Duration
	GetBootstrapAdminEmail() string
	GetBootstrapAdminPassword() string
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetAccessTokenSecret returns the process-wide HMAC signing key for access tokens.
// An empty value is only accepted in DEV, see cmd/server.
func (Security) GetAccessTokenSecret() string {
	return GetEnv("ACCESS_TOKEN_SECRET", "")
}

func (Security) GetAccessTokenExpiry() time.Duration {
	return GetEnvDuration("ACCESS_TOKEN_EXPIRY", time.Hour)
}

func (Security) GetPasswordResetExpiry() time.Duration {
	return GetEnvDuration("PASSWORD_RESET_EXPIRY", time.Hour)
}

// GetBootstrapAdminEmail names an admin account created at startup when it does not exist yet.
func (Security) GetBootstrapAdminEmail() string {
	return GetEnv("BOOTSTRAP_ADMIN_EMAIL", "")
}

func (Security) GetBootstrapAdminPassword() string {
	return GetEnv("BOOTSTRAP_ADMIN_PASSWORD", "")
}
