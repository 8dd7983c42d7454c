package config

type SmtpConfig interface {
	GetSmtpHost() string
	GetSmtpPort() string
	GetSmtpPassword() string
	GetSmtpAccount() string
}

type Smtp struct{}

var _ SmtpConfig = Smtp{}

func (Smtp) GetSmtpPassword() string {
	return GetEnv("SMTP_PASSWORD", "")
}

func (Smtp) GetSmtpAccount() string {
	return GetEnv("SMTP_ACCOUNT", "")
}

func (Smtp) GetSmtpHost() string {
	return GetEnv("SMTP_HOST", "smtp.gmail.com")
}

func (Smtp) GetSmtpPort() string {
	return GetEnv("SMTP_PORT", "587")
}
