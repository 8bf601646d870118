package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shandysiswandi/mailrelay/internal/pkg/goerror"
)

const defaultStateTTL = 10 * time.Minute

// GenerateAuthURL issues a one-time state and returns the consent URL that
// carries it.
func (s *Usecase) GenerateAuthURL(ctx context.Context) (string, error) {
	ctx, span := s.startSpan(ctx, "GenerateAuthURL")
	defer span.End()

	ttl := s.cfg.GetSecond("oauth.state_ttl_seconds")
	if ttl <= 0 {
		ttl = defaultStateTTL
	}

	state := s.stateID.Generate()
	if err := s.stateStore.Save(ctx, state, ttl); err != nil {
		slog.ErrorContext(ctx, "failed to save oauth state", "error", err)
		return "", goerror.NewServer(err, msgStateStoreError)
	}

	return s.broker.AuthorizationURL(state), nil
}

type CallbackInput struct {
	Code  string
	State string
}

// Callback completes the consent flow: it consumes the state, exchanges the
// code for a refresh credential and persists it.
func (s *Usecase) Callback(ctx context.Context, in CallbackInput) error {
	ctx, span := s.startSpan(ctx, "Callback")
	defer span.End()

	in.Code = strings.TrimSpace(in.Code)
	in.State = strings.TrimSpace(in.State)

	if in.Code == "" {
		return goerror.NewInvalidInput(msgInvalidCode, nil, "code", "code is a required field")
	}

	ok, err := s.stateStore.Consume(ctx, in.State)
	if err != nil {
		slog.ErrorContext(ctx, "failed to consume oauth state", "error", err)
		return goerror.NewServer(err, msgStateStoreError)
	}
	if !ok {
		slog.WarnContext(ctx, "oauth callback with unknown or expired state")
		return goerror.NewInvalidFormat(msgInvalidState)
	}

	cred, err := s.broker.Exchange(ctx, in.Code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to exchange authorization code", "error", err)
		return goerror.NewServer(err, msgExchangeFailed)
	}

	if err := s.credStore.Save(ctx, cred); err != nil {
		slog.ErrorContext(ctx, "failed to persist refresh credential", "error", err)
		return goerror.NewServer(err, msgPersistFailed)
	}

	slog.InfoContext(ctx, "mail credential authorized", "state", s.broker.State().String())
	return nil
}
