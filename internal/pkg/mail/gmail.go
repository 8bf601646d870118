package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailConfig configures the Gmail API implementation.
type GmailConfig struct {
	// From is the default sender when Message.From is empty.
	From string
	// Endpoint overrides the API base URL.
	Endpoint string
	// HTTPClient is the base client; the access token is layered on top of it.
	HTTPClient *http.Client
}

// Gmail is a Mail implementation backed by the Gmail users.messages.send API.
type Gmail struct {
	cfg GmailConfig
}

// NewGmail constructs a Gmail API mail sender.
func NewGmail(cfg GmailConfig) *Gmail {
	return &Gmail{cfg: cfg}
}

// NeedsAccessToken reports whether Send requires Message.AccessToken.
func (g *Gmail) NeedsAccessToken() bool {
	return true
}

// Send uploads msg as a raw MIME message on behalf of the authorized user.
func (g *Gmail) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return sendError("gmail", err)
	}

	from, err := senderOf(msg, g.cfg.From)
	if err != nil {
		return sendError("gmail", err)
	}
	if msg.AccessToken == "" {
		return sendError("gmail", ErrNoAccessToken)
	}

	raw, err := Render(msg, from)
	if err != nil {
		return sendError("gmail", err)
	}

	svc, err := g.service(ctx, msg.AccessToken)
	if err != nil {
		return sendError("gmail", err)
	}

	_, err = svc.Users.Messages.Send("me", &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	return sendError("gmail", err)
}

func (g *Gmail) service(ctx context.Context, accessToken string) (*gmail.Service, error) {
	base := ctx
	if g.cfg.HTTPClient != nil {
		base = context.WithValue(ctx, oauth2.HTTPClient, g.cfg.HTTPClient)
	}
	client := oauth2.NewClient(base, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if g.cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.cfg.Endpoint))
	}

	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gmail: failed to create service: %w", err)
	}
	return svc, nil
}

// Close implements io.Closer.
func (g *Gmail) Close() error {
	return nil
}
