package config

type Config interface {
	EnvConfig
	CorsConfig
	SecurityConfig
	SessionConfig
	MongoConfig
	SmtpConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetBaseURL() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Security
	Sessions
	Mongo
	Smtp
}

func New() Config {
	return mainConfig{}
}

// IsDev reports whether the process runs in the development environment.
func IsDev(c EnvConfig) bool {
	return c.GetEnv() == "DEV"
}
