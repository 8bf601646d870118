package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/mailrelay/internal/pkg/goerror"
	"github.com/shandysiswandi/mailrelay/internal/pkg/validator"
	"github.com/shandysiswandi/mailrelay/internal/relay/entity"
)

type SubmitInput struct {
	Email   string `json:"email" validate:"required,email"`
	Name    string `json:"name" validate:"trimmed_min=3"`
	Message string `json:"message" validate:"trimmed_min=3"`
}

// Submit validates a contact-form submission and relays it to the configured
// recipient according to the dispatch mode.
func (s *Usecase) Submit(ctx context.Context, in SubmitInput) error {
	ctx, span := s.startSpan(ctx, "Submit")
	defer span.End()

	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	in.Message = strings.TrimSpace(in.Message)

	if err := s.validate(in); err != nil {
		return err
	}

	sub := entity.Submission{Email: in.Email, Name: in.Name, Message: in.Message}

	token, err := s.accessToken(ctx)
	if err != nil {
		return err
	}

	return s.dispatch(ctx, sub, token)
}

func (s *Usecase) validate(in SubmitInput) error {
	err := s.validator.Validate(in)
	if err == nil {
		return nil
	}

	var verr validator.V10ValidationError
	if !errors.As(err, &verr) {
		return goerror.NewServer(err)
	}

	field, _ := verr.First(fieldOrder...)
	return goerror.NewInvalidInputFields(fieldMessages[field], verr, verr.Values())
}

// accessToken returns "" without contacting the broker when the transport
// does not authenticate with OAuth.
func (s *Usecase) accessToken(ctx context.Context) (string, error) {
	if !s.needsToken {
		return "", nil
	}

	token, err := s.broker.AccessToken(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to acquire mail access token", "state", s.broker.State().String(), "error", err)
		return "", tokenError(err)
	}
	return token, nil
}
