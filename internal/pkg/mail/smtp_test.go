package mail

import (
	"bytes"
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

func contactMessage() Message {
	return Message{
		To:          []string{"owner@example.com"},
		ReplyTo:     "a@b.com",
		Subject:     "Message From Your Portfolio",
		TextBody:    "Name: Bob",
		HTMLBody:    "<h1>From Your Portfolio</h1>",
		AccessToken: "ya29.token",
	}
}

type capturedSend struct {
	dialer *gomail.Dialer
	raw    string
	calls  int
}

func stubSend(s *SMTP, err error) *capturedSend {
	c := &capturedSend{}
	s.send = func(d *gomail.Dialer, m *gomail.Message) error {
		c.calls++
		c.dialer = d
		var buf bytes.Buffer
		_, _ = m.WriteTo(&buf)
		c.raw = buf.String()
		return err
	}
	return c
}

func TestNewSMTP(t *testing.T) {
	_, err := NewSMTP(SMTPConfig{Port: 465})
	assert.ErrorIs(t, err, ErrSMTPHostPortRequired)

	_, err = NewSMTP(SMTPConfig{Host: "smtp.gmail.com", Port: 465, AuthMode: "cram"})
	assert.ErrorIs(t, err, ErrSMTPAuthMode)

	s, err := NewSMTP(SMTPConfig{Host: "smtp.gmail.com", Port: 465})
	require.NoError(t, err)
	assert.True(t, s.NeedsAccessToken())

	s, err = NewSMTP(SMTPConfig{Host: "smtp.sendgrid.net", Port: 587, AuthMode: "PASSWORD"})
	require.NoError(t, err)
	assert.False(t, s.NeedsAccessToken())
}

func TestSMTP_Send_XOAuth2(t *testing.T) {
	// Arrange
	s, err := NewSMTP(SMTPConfig{Host: "smtp.gmail.com", Port: 465, From: "relay@gmail.com"})
	require.NoError(t, err)
	captured := stubSend(s, nil)

	// Act
	err = s.Send(context.Background(), contactMessage())

	// Assert
	require.NoError(t, err)
	require.Equal(t, 1, captured.calls)
	assert.True(t, captured.dialer.SSL)
	assert.Equal(t, "smtp.gmail.com", captured.dialer.Host)

	auth, ok := captured.dialer.Auth.(*xoauth2Auth)
	require.True(t, ok)
	assert.Equal(t, "relay@gmail.com", auth.username)
	assert.Equal(t, "ya29.token", auth.token)

	assert.Contains(t, captured.raw, "From: relay@gmail.com")
	assert.Contains(t, captured.raw, "To: owner@example.com")
	assert.Contains(t, captured.raw, "Reply-To: a@b.com")
	assert.Contains(t, captured.raw, "Subject: Message From Your Portfolio")
	assert.Contains(t, captured.raw, "multipart/alternative")
	assert.NotContains(t, captured.raw, "ya29.token")
}

func TestSMTP_Send_Password(t *testing.T) {
	s, err := NewSMTP(SMTPConfig{
		Host: "smtp.sendgrid.net", Port: 587, AuthMode: AuthPassword,
		Username: "apikey", Password: "SG.key", From: "relay@example.com",
	})
	require.NoError(t, err)
	captured := stubSend(s, nil)

	msg := contactMessage()
	msg.AccessToken = ""
	err = s.Send(context.Background(), msg)

	require.NoError(t, err)
	assert.Nil(t, captured.dialer.Auth)
	assert.False(t, captured.dialer.SSL)
	assert.Equal(t, "apikey", captured.dialer.Username)
	assert.Equal(t, "SG.key", captured.dialer.Password)
}

func TestSMTP_Send_Failures(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	noRecipients := contactMessage()
	noRecipients.To = nil

	noToken := contactMessage()
	noToken.AccessToken = ""

	tests := []struct {
		name      string
		ctx       context.Context
		from      string
		msg       Message
		dialErr   error
		wantErr   error
		wantCalls int
	}{
		{name: "canceled context", ctx: canceled, from: "relay@gmail.com", msg: contactMessage(), wantErr: context.Canceled},
		{name: "no recipients", ctx: context.Background(), from: "relay@gmail.com", msg: noRecipients, wantErr: ErrNoRecipients},
		{name: "no sender", ctx: context.Background(), msg: contactMessage(), wantErr: ErrNoSender},
		{name: "no access token", ctx: context.Background(), from: "relay@gmail.com", msg: noToken, wantErr: ErrNoAccessToken},
		{
			name: "dial failure", ctx: context.Background(), from: "relay@gmail.com", msg: contactMessage(),
			dialErr: errors.New("535 authentication failed"), wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSMTP(SMTPConfig{Host: "smtp.gmail.com", Port: 465, From: tt.from})
			require.NoError(t, err)
			captured := stubSend(s, tt.dialErr)

			err = s.Send(tt.ctx, tt.msg)

			var sendErr *SendError
			require.ErrorAs(t, err, &sendErr)
			assert.Equal(t, "smtp", sendErr.Transport)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.ErrorIs(t, err, tt.dialErr)
			}
			assert.Equal(t, tt.wantCalls, captured.calls)
		})
	}
}

func TestXOAuth2Auth(t *testing.T) {
	a := &xoauth2Auth{username: "relay@gmail.com", token: "tok"}

	mech, resp, err := a.Start(&smtp.ServerInfo{Name: "smtp.gmail.com", TLS: true})
	require.NoError(t, err)
	assert.Equal(t, "XOAUTH2", mech)
	assert.Equal(t, "user=relay@gmail.com\x01auth=Bearer tok\x01\x01", string(resp))

	_, _, err = a.Start(&smtp.ServerInfo{Name: "smtp.gmail.com"})
	assert.ErrorIs(t, err, ErrXOAuth2RequiresTLS)

	next, err := a.Next([]byte(`{"status":"400"}`), true)
	require.NoError(t, err)
	assert.Equal(t, []byte{}, next)

	next, err = a.Next(nil, false)
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestRender(t *testing.T) {
	raw, err := Render(Message{To: []string{"owner@example.com"}, Subject: "Hi", HTMLBody: "<b>x</b>"}, "relay@example.com")

	require.NoError(t, err)
	assert.Contains(t, string(raw), "Content-Type: text/html")
	assert.NotContains(t, string(raw), "Reply-To")
}
