// Package tokenbroker mints OAuth2 access tokens from a long-lived refresh
// credential and runs the authorization-code consent flow that produces it.
package tokenbroker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shandysiswandi/mailrelay/internal/pkg/clock"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ScopeMail grants SMTP and IMAP access to the mailbox.
const ScopeMail = "https://mail.google.com/"

// expiryDelta refreshes cached access tokens slightly before they expire.
const expiryDelta = time.Minute

var (
	// ErrNoRefreshCredential is returned while no refresh credential is known.
	ErrNoRefreshCredential = errors.New("tokenbroker: no refresh credential")
	// ErrRejected is returned when the authorization server declines the refresh credential.
	ErrRejected = errors.New("tokenbroker: refresh credential rejected")
	// ErrTokenUnavailable is returned when a token could not be obtained for any other reason.
	ErrTokenUnavailable = errors.New("tokenbroker: access token unavailable")
	// ErrExchange is returned when an authorization code cannot be exchanged.
	ErrExchange = errors.New("tokenbroker: authorization code exchange failed")
	// ErrMissingCode is returned by Exchange for an empty code.
	ErrMissingCode = errors.New("tokenbroker: missing authorization code")
)

// State is the lifecycle state of a Broker.
type State int

const (
	// StateUninitialized means no refresh credential is known.
	StateUninitialized State = iota
	// StateReady means a refresh credential is known.
	StateReady
)

func (s State) String() string {
	if s == StateReady {
		return "ready"
	}
	return "uninitialized"
}

// Config configures a Broker.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// AuthURL and TokenURL override the Google endpoints when set.
	AuthURL  string
	TokenURL string
	// Scopes are requested by AuthorizationURL when no scopes are passed.
	Scopes []string
	// HTTPClient is used for token endpoint calls when set.
	HTTPClient *http.Client
	// Clock decides cached token expiry.
	Clock clock.Clocker
	// OnRotate is called when a refresh returns a different refresh credential.
	OnRotate func(ctx context.Context, cred string)
}

// Broker owns the refresh credential and the cached access token.
type Broker struct {
	oauth      *oauth2.Config
	httpClient *http.Client
	clock      clock.Clocker
	onRotate   func(ctx context.Context, cred string)

	mu      sync.RWMutex
	refresh string
	cached  *oauth2.Token
}

// New returns an uninitialized Broker.
func New(cfg Config) *Broker {
	endpoint := google.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{ScopeMail}
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}

	return &Broker{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		httpClient: cfg.HTTPClient,
		clock:      clk,
		onRotate:   cfg.OnRotate,
	}
}

// SetRefreshCredential installs cred and drops any cached access token.
// An empty cred is ignored so the broker never returns to StateUninitialized.
func (b *Broker) SetRefreshCredential(cred string) {
	if cred == "" {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.refresh = cred
	b.cached = nil
}

// State reports whether a refresh credential is known.
func (b *Broker) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.refresh == "" {
		return StateUninitialized
	}
	return StateReady
}

// AuthorizationURL returns the consent URL requesting offline access.
func (b *Broker) AuthorizationURL(state string, scopes ...string) string {
	cfg := b.oauth
	if len(scopes) > 0 {
		scoped := *b.oauth
		scoped.Scopes = scopes
		cfg = &scoped
	}

	return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a refresh credential and moves
// the broker to StateReady.
func (b *Broker) Exchange(ctx context.Context, code string) (string, error) {
	if code == "" {
		return "", ErrMissingCode
	}

	tok, err := b.oauth.Exchange(b.clientContext(ctx), code)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrExchange, err)
	}
	if tok.RefreshToken == "" {
		return "", fmt.Errorf("%w: response carries no refresh token", ErrExchange)
	}

	b.mu.Lock()
	b.refresh = tok.RefreshToken
	b.cached = tok
	b.mu.Unlock()

	return tok.RefreshToken, nil
}

// AccessToken returns a cached access token or refreshes one.
func (b *Broker) AccessToken(ctx context.Context) (string, error) {
	b.mu.RLock()
	refresh, cached := b.refresh, b.cached
	b.mu.RUnlock()

	if refresh == "" {
		return "", ErrNoRefreshCredential
	}
	if b.fresh(cached) {
		return cached.AccessToken, nil
	}

	tok, err := b.oauth.TokenSource(b.clientContext(ctx), &oauth2.Token{RefreshToken: refresh}).Token()
	if err != nil {
		return "", classify(err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrTokenUnavailable)
	}

	rotated := ""
	b.mu.Lock()
	if b.refresh == refresh {
		b.cached = tok
		if tok.RefreshToken != "" && tok.RefreshToken != refresh {
			b.refresh = tok.RefreshToken
			rotated = tok.RefreshToken
		}
	}
	b.mu.Unlock()

	if rotated != "" && b.onRotate != nil {
		b.onRotate(ctx, rotated)
	}

	return tok.AccessToken, nil
}

func (b *Broker) fresh(tok *oauth2.Token) bool {
	if tok == nil || tok.AccessToken == "" {
		return false
	}
	if tok.Expiry.IsZero() {
		return true
	}
	return b.clock.Now().Add(expiryDelta).Before(tok.Expiry)
}

func (b *Broker) clientContext(ctx context.Context) context.Context {
	if b.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)
}

func classify(err error) error {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		if rErr.ErrorCode == "invalid_grant" || rErr.ErrorCode == "unauthorized_client" {
			return fmt.Errorf("%w: %s", ErrRejected, rErr.ErrorCode)
		}
		if rErr.Response != nil {
			switch rErr.Response.StatusCode {
			case http.StatusBadRequest, http.StatusUnauthorized:
				return fmt.Errorf("%w: status %d", ErrRejected, rErr.Response.StatusCode)
			}
		}
	}
	return fmt.Errorf("%w: %w", ErrTokenUnavailable, err)
}
