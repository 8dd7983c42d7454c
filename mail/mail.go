// Package mail delivers the account emails the auth flows need.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"net/url"
	"strings"
	"text/template"
	"time"

	"github.com/jrsteele09/taskhub-server/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Sender delivers outbound email. Implementations report delivery failure as an error.
type Sender interface {
	SendPasswordReset(ctx context.Context, to, resetToken string) error
}

var resetTemplate = template.Must(template.New("reset").Parse(`Hello,

A password reset was requested for your {{.AppName}} account.
Use the link below within {{.Expiry}} to choose a new password:

{{.Link}}

If you did not ask for this, you can ignore this email. Your password stays unchanged.
`))

type resetData struct {
	AppName string
	Link    string
	Expiry  string
}

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPSender sends mail through an authenticated SMTP relay.
type SMTPSender struct {
	host     string
	port     string
	account  string
	password string
	appName  string
	baseURL  string
	expiry   time.Duration
	send     SendFunc
}

type SMTPOption func(*SMTPSender)

// WithSendFunc replaces smtp.SendMail, tests use it to capture messages.
func WithSendFunc(fn SendFunc) SMTPOption {
	return func(s *SMTPSender) {
		s.send = fn
	}
}

func NewSMTPSender(smtpCfg config.SmtpConfig, envCfg config.EnvConfig, resetExpiry time.Duration, opts ...SMTPOption) *SMTPSender {
	s := &SMTPSender{
		host:     smtpCfg.GetSmtpHost(),
		port:     smtpCfg.GetSmtpPort(),
		account:  smtpCfg.GetSmtpAccount(),
		password: smtpCfg.GetSmtpPassword(),
		appName:  envCfg.GetAppName(),
		baseURL:  strings.TrimRight(envCfg.GetBaseURL(), "/"),
		expiry:   resetExpiry,
		send:     smtp.SendMail,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SMTPSender) SendPasswordReset(ctx context.Context, to, resetToken string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("[SMTPSender.SendPasswordReset] %w", err)
	}

	var body bytes.Buffer
	err := resetTemplate.Execute(&body, resetData{
		AppName: s.appName,
		Link:    ResetLink(s.baseURL, resetToken),
		Expiry:  s.expiry.String(),
	})
	if err != nil {
		return fmt.Errorf("[SMTPSender.SendPasswordReset] render: %w", err)
	}

	msg := buildMessage(s.account, to, s.appName+" password reset", body.String())
	auth := smtp.PlainAuth("", s.account, s.password, s.host)
	if err := s.send(s.host+":"+s.port, auth, s.account, []string{to}, msg); err != nil {
		return fmt.Errorf("[SMTPSender.SendPasswordReset] send: %w", err)
	}
	return nil
}

// ResetLink is the client URL a reset token is delivered in.
func ResetLink(baseURL, resetToken string) string {
	return strings.TrimRight(baseURL, "/") + "/reset-password?token=" + url.QueryEscape(resetToken)
}

func buildMessage(from, to, subject, body string) []byte {
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return msg.Bytes()
}

// LogSender writes emails to the log instead of sending them. Used when SMTP is not configured.
// The reset link is a live credential so it only appears at debug level.
type LogSender struct {
	Logger *zerolog.Logger // nil uses the global logger
}

func (s LogSender) SendPasswordReset(_ context.Context, to, resetToken string) error {
	logger := log.Logger
	if s.Logger != nil {
		logger = *s.Logger
	}
	logger.Info().Str("to", to).Msg("password reset email not sent, smtp disabled")
	logger.Debug().Str("to", to).Str("link", ResetLink("", resetToken)).Msg("password reset link")
	return nil
}

// NewSender picks SMTP when an account is configured, LogSender otherwise.
func NewSender(cfg interface {
	config.SmtpConfig
	config.EnvConfig
}, resetExpiry time.Duration) Sender {
	if cfg.GetSmtpAccount() == "" {
		log.Warn().Msg("SMTP_ACCOUNT not set, emails will only be logged")
		return LogSender{}
	}
	return NewSMTPSender(cfg, cfg, resetExpiry)
}
