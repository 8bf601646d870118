package email

import (
	"context"
	"errors"
	"testing"

	"github.com/shandysiswandi/mailrelay/internal/pkg/instrument"
	"github.com/shandysiswandi/mailrelay/internal/pkg/mail"
	"github.com/stretchr/testify/assert"
)

type stubMail struct {
	got    []mail.Message
	err    error
	closed bool
}

func (s *stubMail) Send(_ context.Context, msg mail.Message) error {
	s.got = append(s.got, msg)
	return s.err
}

func (s *stubMail) Close() error {
	s.closed = true
	return nil
}

func TestMail_Send(t *testing.T) {
	t.Run("passes the message through", func(t *testing.T) {
		// Arrange
		client := &stubMail{}
		m := New(client, "smtp", instrument.NewNoop())
		msg := mail.Message{To: []string{"owner@example.com"}, Subject: "hi"}

		// Act
		err := m.Send(context.Background(), msg)

		// Assert
		assert.NoError(t, err)
		assert.Equal(t, []mail.Message{msg}, client.got)
	})

	t.Run("returns the transport error", func(t *testing.T) {
		boom := &mail.SendError{Transport: "smtp", Err: errors.New("dial tcp: refused")}
		m := New(&stubMail{err: boom}, "smtp", instrument.NewNoop())

		err := m.Send(context.Background(), mail.Message{To: []string{"owner@example.com"}})

		var sendErr *mail.SendError
		assert.ErrorAs(t, err, &sendErr)
		assert.Equal(t, "smtp", sendErr.Transport)
	})

	t.Run("close", func(t *testing.T) {
		client := &stubMail{}

		assert.NoError(t, New(client, "gmail", instrument.NewNoop()).Close())
		assert.True(t, client.closed)
	})
}
