package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gmailServer struct {
	*httptest.Server
	auth string
	path string
	raw  string
}

func newGmailServer(t *testing.T, status int) *gmailServer {
	t.Helper()

	gs := &gmailServer{}
	gs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gs.auth = r.Header.Get("Authorization")
		gs.path = r.URL.Path

		var body struct {
			Raw string `json:"raw"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			if decoded, err := base64.URLEncoding.DecodeString(body.Raw); err == nil {
				gs.raw = string(decoded)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(`{"id":"18c1","threadId":"18c1"}`))
			return
		}
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"Insufficient Permission"}}`))
	}))
	t.Cleanup(gs.Close)

	return gs
}

func TestGmail_Send(t *testing.T) {
	// Arrange
	srv := newGmailServer(t, http.StatusOK)
	g := NewGmail(GmailConfig{From: "relay@gmail.com", Endpoint: srv.URL + "/", HTTPClient: srv.Client()})

	// Act
	err := g.Send(context.Background(), contactMessage())

	// Assert
	require.NoError(t, err)
	assert.True(t, g.NeedsAccessToken())
	assert.Equal(t, "Bearer ya29.token", srv.auth)
	assert.Equal(t, "/gmail/v1/users/me/messages/send", srv.path)
	assert.Contains(t, srv.raw, "Subject: Message From Your Portfolio")
	assert.Contains(t, srv.raw, "Reply-To: a@b.com")
	assert.Contains(t, srv.raw, "From: relay@gmail.com")
}

func TestGmail_Send_APIError(t *testing.T) {
	srv := newGmailServer(t, http.StatusForbidden)
	g := NewGmail(GmailConfig{From: "relay@gmail.com", Endpoint: srv.URL + "/", HTTPClient: srv.Client()})

	err := g.Send(context.Background(), contactMessage())

	var sendErr *SendError
	require.ErrorAs(t, err, &sendErr)
	assert.Equal(t, "gmail", sendErr.Transport)
}

func TestGmail_Send_Precondition(t *testing.T) {
	srv := newGmailServer(t, http.StatusOK)
	g := NewGmail(GmailConfig{From: "relay@gmail.com", Endpoint: srv.URL + "/", HTTPClient: srv.Client()})

	msg := contactMessage()
	msg.AccessToken = ""
	err := g.Send(context.Background(), msg)

	assert.ErrorIs(t, err, ErrNoAccessToken)
	assert.Empty(t, srv.path)
}
