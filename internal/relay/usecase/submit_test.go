package usecase

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/shandysiswandi/mailrelay/internal/pkg/goerror"
	"github.com/shandysiswandi/mailrelay/internal/pkg/mail"
	"github.com/shandysiswandi/mailrelay/internal/pkg/tokenbroker"
	"github.com/shandysiswandi/mailrelay/internal/relay/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireGoError(t *testing.T, err error, msg string, status int) *goerror.Error {
	t.Helper()

	var gerr *goerror.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, msg, gerr.Msg())
	assert.Equal(t, status, gerr.StatusCode())
	return gerr
}

func TestUsecase_Submit_Validation(t *testing.T) {
	tests := []struct {
		name       string
		in         SubmitInput
		wantMsg    string
		wantFields []string
	}{
		{
			name:       "invalid email",
			in:         SubmitInput{Email: "not-an-email", Name: "Bob", Message: "Hi there"},
			wantMsg:    "INVALID_EMAIL",
			wantFields: []string{"email"},
		},
		{
			name:       "short name",
			in:         SubmitInput{Email: "a@b.com", Name: "Bo", Message: "Hello there"},
			wantMsg:    "INVALID_NAME",
			wantFields: []string{"name"},
		},
		{
			name:       "short message after trimming",
			in:         SubmitInput{Email: "a@b.com", Name: "Bob", Message: "  Hi  "},
			wantMsg:    "INVALID_MSG",
			wantFields: []string{"message"},
		},
		{
			name:       "email reported first",
			in:         SubmitInput{Email: "nope", Name: "B", Message: "H"},
			wantMsg:    "INVALID_EMAIL",
			wantFields: []string{"email", "name", "message"},
		},
		{
			name:       "name before message",
			in:         SubmitInput{Email: " a@b.com ", Name: "", Message: ""},
			wantMsg:    "INVALID_NAME",
			wantFields: []string{"name", "message"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newFixture(t, entity.DispatchSync)

			// Act
			err := f.uc.Submit(context.Background(), tt.in)

			// Assert
			gerr := requireGoError(t, err, tt.wantMsg, http.StatusUnprocessableEntity)
			assert.Len(t, gerr.Fields(), len(tt.wantFields))
			for _, field := range tt.wantFields {
				assert.Contains(t, gerr.Fields(), field)
			}
			assert.Empty(t, f.mail.sent)
			assert.Zero(t, f.broker.calls)
		})
	}
}

func TestUsecase_Submit_Sync(t *testing.T) {
	// Arrange
	f := newFixture(t, entity.DispatchSync)

	// Act
	err := f.uc.Submit(context.Background(), SubmitInput{
		Email:   "  a@b.com ",
		Name:    " Bob ",
		Message: "Hello there\n",
	})

	// Assert
	require.NoError(t, err)
	require.Len(t, f.mail.sent, 1)

	msg := f.mail.sent[0]
	assert.Equal(t, "relay@example.com", msg.From)
	assert.Equal(t, []string{"owner@example.com"}, msg.To)
	assert.Equal(t, "a@b.com", msg.ReplyTo)
	assert.Equal(t, "Message From Your Portfolio", msg.Subject)
	assert.Equal(t, "ya29.access", msg.AccessToken)
	assert.Contains(t, msg.HTMLBody, "<h2>From Your Portfolio</h2>")
	assert.Contains(t, msg.HTMLBody, "<p><span>Email:</span> a@b.com</p>")
	assert.Contains(t, msg.HTMLBody, "<p><span>Name:</span> Bob</p>")
	assert.Contains(t, msg.TextBody, "Message:\nHello there")
}

func TestUsecase_Submit_EscapesHTML(t *testing.T) {
	f := newFixture(t, entity.DispatchSync)

	err := f.uc.Submit(context.Background(), SubmitInput{
		Email:   "a@b.com",
		Name:    "<b>Bob</b>",
		Message: `<script>alert("x")</script>`,
	})

	require.NoError(t, err)
	require.Len(t, f.mail.sent, 1)
	assert.NotContains(t, f.mail.sent[0].HTMLBody, "<script>")
	assert.Contains(t, f.mail.sent[0].HTMLBody, "&lt;script&gt;")
	assert.Contains(t, f.mail.sent[0].TextBody, "<b>Bob</b>")
}

func TestUsecase_Submit_TokenFailures(t *testing.T) {
	tests := []struct {
		name    string
		state   tokenbroker.State
		err     error
		wantMsg string
	}{
		{
			name:    "uninitialized",
			state:   tokenbroker.StateUninitialized,
			err:     tokenbroker.ErrNoRefreshCredential,
			wantMsg: "MAIL_CREDENTIAL_NOT_ESTABLISHED",
		},
		{
			name:    "rejected",
			state:   tokenbroker.StateReady,
			err:     tokenbroker.ErrRejected,
			wantMsg: "MAIL_CREDENTIAL_REJECTED",
		},
		{
			name:    "unavailable",
			state:   tokenbroker.StateReady,
			err:     tokenbroker.ErrTokenUnavailable,
			wantMsg: "MAIL_CREDENTIAL_UNAVAILABLE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			f := newFixture(t, entity.DispatchSync)
			f.broker.state = tt.state
			f.broker.tokenErr = tt.err

			// Act
			err := f.uc.Submit(context.Background(), SubmitInput{Email: "a@b.com", Name: "Bob", Message: "Hello there"})

			// Assert
			requireGoError(t, err, tt.wantMsg, http.StatusInternalServerError)
			assert.ErrorIs(t, err, tt.err)
			assert.Empty(t, f.mail.sent)
			assert.Empty(t, f.queue.queued)
			assert.Empty(t, f.messaging.jobs)
		})
	}
}

func TestUsecase_Submit_WithoutOAuthTransport(t *testing.T) {
	f := newFixture(t, entity.DispatchSync)
	f.uc.needsToken = false
	f.broker.tokenErr = tokenbroker.ErrNoRefreshCredential

	err := f.uc.Submit(context.Background(), SubmitInput{Email: "a@b.com", Name: "Bob", Message: "Hello there"})

	require.NoError(t, err)
	assert.Zero(t, f.broker.calls)
	require.Len(t, f.mail.sent, 1)
	assert.Empty(t, f.mail.sent[0].AccessToken)
}

func TestUsecase_Submit_SendFailure(t *testing.T) {
	// Arrange
	f := newFixture(t, entity.DispatchSync)
	f.mail.err = &mail.SendError{Transport: "smtp", Err: errors.New("535 authentication failed")}

	// Act
	err := f.uc.Submit(context.Background(), SubmitInput{Email: "a@b.com", Name: "Bob", Message: "Hello there"})

	// Assert
	requireGoError(t, err, "MAIL_SEND_FAILED", http.StatusInternalServerError)
	var sendErr *mail.SendError
	assert.ErrorAs(t, err, &sendErr)
	assert.Len(t, f.mail.sent, 1)
}

func TestUsecase_Submit_LogsOmitSubmitterAddress(t *testing.T) {
	modes := []entity.DispatchMode{entity.DispatchSync, entity.DispatchAsync, entity.DispatchBroker}

	for _, mode := range modes {
		t.Run(mode.String(), func(t *testing.T) {
			// Arrange
			var buf bytes.Buffer
			prev := slog.Default()
			slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
			t.Cleanup(func() { slog.SetDefault(prev) })

			f := newFixture(t, mode)
			f.mail.err = &mail.SendError{Transport: "smtp", Err: errors.New("connection reset")}

			// Act
			_ = f.uc.Submit(context.Background(), SubmitInput{Email: "visitor@private.example", Name: "Bob", Message: "Hello there"})

			// Assert
			assert.NotEmpty(t, buf.String())
			assert.NotContains(t, buf.String(), "visitor@private.example")
		})
	}
}

func TestUsecase_Submit_DuplicatesAreNotDeduplicated(t *testing.T) {
	f := newFixture(t, entity.DispatchSync)
	in := SubmitInput{Email: "a@b.com", Name: "Bob", Message: "Hello there"}

	require.NoError(t, f.uc.Submit(context.Background(), in))
	require.NoError(t, f.uc.Submit(context.Background(), in))

	assert.Len(t, f.mail.sent, 2)
}

func TestUsecase_Submit_Async(t *testing.T) {
	t.Run("queued", func(t *testing.T) {
		f := newFixture(t, entity.DispatchAsync)

		err := f.uc.Submit(context.Background(), SubmitInput{Email: "a@b.com", Name: "Bob", Message: "Hello there"})

		require.NoError(t, err)
		require.Len(t, f.queue.queued, 1)
		assert.Equal(t, "ya29.access", f.queue.queued[0].AccessToken)
		assert.Empty(t, f.mail.sent)
	})

	t.Run("queue full", func(t *testing.T) {
		f := newFixture(t, entity.DispatchAsync)
		f.queue.err = mail.ErrQueueFull

		err := f.uc.Submit(context.Background(), SubmitInput{Email: "a@b.com", Name: "Bob", Message: "Hello there"})

		requireGoError(t, err, "MAIL_QUEUE_UNAVAILABLE", http.StatusInternalServerError)
		assert.ErrorIs(t, err, mail.ErrQueueFull)
	})
}

func TestUsecase_Submit_Broker(t *testing.T) {
	t.Run("published without tokens", func(t *testing.T) {
		f := newFixture(t, entity.DispatchBroker)

		err := f.uc.Submit(context.Background(), SubmitInput{Email: "a@b.com", Name: " Bob", Message: "Hello there"})

		require.NoError(t, err)
		require.Len(t, f.messaging.jobs, 1)
		assert.Equal(t, entity.DispatchJob{
			Email:       "a@b.com",
			Name:        "Bob",
			Message:     "Hello there",
			SubmittedAt: f.clock.At,
		}, f.messaging.jobs[0])
		assert.Empty(t, f.mail.sent)
	})

	t.Run("publish failure", func(t *testing.T) {
		f := newFixture(t, entity.DispatchBroker)
		f.messaging.err = errors.New("nats: no servers available")

		err := f.uc.Submit(context.Background(), SubmitInput{Email: "a@b.com", Name: "Bob", Message: "Hello there"})

		requireGoError(t, err, "MAIL_QUEUE_UNAVAILABLE", http.StatusInternalServerError)
	})
}

func TestUsecase_ConsumeDispatchJob(t *testing.T) {
	t.Run("sends with a fresh token", func(t *testing.T) {
		f := newFixture(t, entity.DispatchBroker)

		err := f.uc.ConsumeDispatchJob(context.Background(), entity.DispatchJob{
			Email: "a@b.com", Name: "Bob", Message: "Hello there",
		})

		require.NoError(t, err)
		assert.Equal(t, 1, f.broker.calls)
		require.Len(t, f.mail.sent, 1)
		assert.Equal(t, "ya29.access", f.mail.sent[0].AccessToken)
	})

	t.Run("invalid job is not sent", func(t *testing.T) {
		f := newFixture(t, entity.DispatchBroker)

		err := f.uc.ConsumeDispatchJob(context.Background(), entity.DispatchJob{Email: "bad", Name: "Bob", Message: "Hello"})

		requireGoError(t, err, "INVALID_EMAIL", http.StatusUnprocessableEntity)
		assert.Empty(t, f.mail.sent)
	})

	t.Run("token failure", func(t *testing.T) {
		f := newFixture(t, entity.DispatchBroker)
		f.broker.tokenErr = tokenbroker.ErrRejected

		err := f.uc.ConsumeDispatchJob(context.Background(), entity.DispatchJob{
			Email: "a@b.com", Name: "Bob", Message: "Hello there",
		})

		requireGoError(t, err, "MAIL_CREDENTIAL_REJECTED", http.StatusInternalServerError)
		assert.Empty(t, f.mail.sent)
	})
}

func TestComposeMessage_TextIsPlain(t *testing.T) {
	f := newFixture(t, entity.DispatchSync)

	msg, err := f.uc.composeMessage(entity.Submission{Email: "a@b.com", Name: "Bob & Co", Message: "1 < 2"}, "")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(msg.TextBody, "From Your Portfolio\n"))
	assert.Contains(t, msg.TextBody, "Name: Bob & Co")
	assert.Contains(t, msg.HTMLBody, "Bob &amp; Co")
	assert.Contains(t, msg.HTMLBody, "1 &lt; 2")
}
