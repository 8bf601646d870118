package mail

import (
	"context"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrNoRecipients is returned when To/Cc/Bcc are all empty.
	ErrNoRecipients = errors.New("mail: no recipients provided")
	// ErrNoSender is returned when both Message.From and the configured default From are empty.
	ErrNoSender = errors.New("mail: no sender provided")
	// ErrNoAccessToken is returned by OAuth transports when Message.AccessToken is empty.
	ErrNoAccessToken = errors.New("mail: access token is required")
)

// Message represents an email payload.
type Message struct {
	// From is an optional explicit sender; the transport default is used when empty.
	From string
	// To lists required recipients.
	To []string
	// Cc lists carbon copy recipients.
	Cc []string
	// Bcc lists blind carbon copy recipients.
	Bcc []string
	// ReplyTo is the optional Reply-To address.
	ReplyTo string
	// Subject is the email subject line.
	Subject string
	// TextBody is the plain-text body.
	TextBody string
	// HTMLBody is the optional HTML body, sent as an alternative to TextBody.
	HTMLBody string
	// AccessToken authorizes the session for OAuth transports. It is never logged.
	AccessToken string `json:"-"`
}

// Recipients returns every envelope recipient.
func (m Message) Recipients() []string {
	out := make([]string, 0, len(m.To)+len(m.Cc)+len(m.Bcc))
	out = append(out, m.To...)
	out = append(out, m.Cc...)
	return append(out, m.Bcc...)
}

// Mail abstracts an email provider.
type Mail interface {
	io.Closer
	// Send dispatches the given message using the underlying provider.
	// Implementations make at most one delivery attempt.
	Send(ctx context.Context, msg Message) error
}

// SendError reports a failed delivery attempt.
type SendError struct {
	Transport string
	Err       error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("mail: %s send failed: %v", e.Transport, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

func sendError(transport string, err error) error {
	if err == nil {
		return nil
	}
	return &SendError{Transport: transport, Err: err}
}

// senderOf resolves the sender and checks the message can be addressed.
func senderOf(msg Message, defaultFrom string) (string, error) {
	if len(msg.Recipients()) == 0 {
		return "", ErrNoRecipients
	}

	from := msg.From
	if from == "" {
		from = defaultFrom
	}
	if from == "" {
		return "", ErrNoSender
	}

	return from, nil
}
