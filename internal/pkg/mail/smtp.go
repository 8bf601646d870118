package mail

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"strings"

	"gopkg.in/gomail.v2"
)

// SMTP auth modes.
const (
	AuthXOAuth2  = "xoauth2"
	AuthPassword = "password"
)

var (
	// ErrSMTPHostPortRequired is returned when Host/Port are missing.
	ErrSMTPHostPortRequired = errors.New("mail: smtp host and port are required")
	// ErrSMTPAuthMode is returned for an unknown auth mode.
	ErrSMTPAuthMode = errors.New("mail: unsupported smtp auth mode")
	// ErrXOAuth2RequiresTLS is returned when the server session is not encrypted.
	ErrXOAuth2RequiresTLS = errors.New("mail: xoauth2 requires an encrypted connection")
)

// SMTPConfig configures the SMTP implementation.
type SMTPConfig struct {
	// Host is the SMTP server hostname.
	Host string
	// Port is the SMTP server port. 465 uses implicit TLS.
	Port int
	// AuthMode is AuthXOAuth2 (default) or AuthPassword.
	AuthMode string
	// Username is the SMTP login. It defaults to the sender address.
	Username string
	// Password is the secret for AuthPassword, e.g. a relay API key.
	Password string
	// From is the default sender when Message.From is empty.
	From string
}

// SMTP is a Mail implementation backed by gomail.
type SMTP struct {
	cfg  SMTPConfig
	send func(d *gomail.Dialer, m *gomail.Message) error
}

// NewSMTP constructs an SMTP mail sender.
func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" || cfg.Port == 0 {
		return nil, ErrSMTPHostPortRequired
	}

	cfg.AuthMode = strings.ToLower(strings.TrimSpace(cfg.AuthMode))
	switch cfg.AuthMode {
	case "":
		cfg.AuthMode = AuthXOAuth2
	case AuthXOAuth2, AuthPassword:
	default:
		return nil, fmt.Errorf("%w: %q", ErrSMTPAuthMode, cfg.AuthMode)
	}

	return &SMTP{
		cfg: cfg,
		send: func(d *gomail.Dialer, m *gomail.Message) error {
			return d.DialAndSend(m)
		},
	}, nil
}

// NeedsAccessToken reports whether Send requires Message.AccessToken.
func (s *SMTP) NeedsAccessToken() bool {
	return s.cfg.AuthMode == AuthXOAuth2
}

// Send delivers a message over SMTP in a single session.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return sendError("smtp", err)
	}

	from, err := senderOf(msg, s.cfg.From)
	if err != nil {
		return sendError("smtp", err)
	}

	username := s.cfg.Username
	if username == "" {
		username = from
	}

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, username, s.cfg.Password)
	if s.cfg.AuthMode == AuthXOAuth2 {
		if msg.AccessToken == "" {
			return sendError("smtp", ErrNoAccessToken)
		}
		d.Auth = &xoauth2Auth{username: username, token: msg.AccessToken}
	}

	return sendError("smtp", s.send(d, newMessage(msg, from)))
}

// Close implements io.Closer. Sessions are opened per message.
func (s *SMTP) Close() error {
	return nil
}

// xoauth2Auth implements the SASL XOAUTH2 mechanism used by Gmail and Outlook.
type xoauth2Auth struct {
	username string
	token    string
}

func (a *xoauth2Auth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	if !server.TLS {
		return "", nil, ErrXOAuth2RequiresTLS
	}
	return "XOAUTH2", []byte("user=" + a.username + "\x01auth=Bearer " + a.token + "\x01\x01"), nil
}

// Next answers the server's error challenge with an empty response so it can report the failure.
func (a *xoauth2Auth) Next(_ []byte, more bool) ([]byte, error) {
	if more {
		return []byte{}, nil
	}
	return nil, nil
}
