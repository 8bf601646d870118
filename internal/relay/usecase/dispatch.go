package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/mailrelay/internal/pkg/goerror"
	"github.com/shandysiswandi/mailrelay/internal/relay/entity"
)

func (s *Usecase) dispatch(ctx context.Context, sub entity.Submission, token string) error {
	switch s.mode {
	case entity.DispatchAsync:
		return s.dispatchAsync(ctx, sub, token)
	case entity.DispatchBroker:
		return s.dispatchBroker(ctx, sub)
	default:
		return s.send(ctx, sub, token)
	}
}

func (s *Usecase) send(ctx context.Context, sub entity.Submission, token string) error {
	msg, err := s.composeMessage(sub, token)
	if err != nil {
		slog.ErrorContext(ctx, "failed to render mail content", "error", err)
		return goerror.NewServer(err)
	}

	if err := s.repoMail.Send(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "failed to send mail", "error", err)
		return goerror.NewServer(err, msgSendFailed)
	}

	slog.InfoContext(ctx, "mail sent")
	return nil
}

func (s *Usecase) dispatchAsync(ctx context.Context, sub entity.Submission, token string) error {
	msg, err := s.composeMessage(sub, token)
	if err != nil {
		slog.ErrorContext(ctx, "failed to render mail content", "error", err)
		return goerror.NewServer(err)
	}

	if _, err := s.queue.Enqueue(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "failed to enqueue mail", "error", err)
		return goerror.NewServer(err, msgQueueUnavailable)
	}

	slog.InfoContext(ctx, "mail queued")
	return nil
}

func (s *Usecase) dispatchBroker(ctx context.Context, sub entity.Submission) error {
	job := entity.DispatchJob{
		Email:       sub.Email,
		Name:        sub.Name,
		Message:     sub.Message,
		SubmittedAt: s.clock.Now(),
	}

	if err := s.repoMessaging.PublishDispatchJob(ctx, job); err != nil {
		slog.ErrorContext(ctx, "failed to publish dispatch job", "error", err)
		return goerror.NewServer(err, msgQueueUnavailable)
	}

	slog.InfoContext(ctx, "dispatch job published")
	return nil
}

// ConsumeDispatchJob sends a job received from the broker. The job is
// validated again and a fresh access token is acquired.
func (s *Usecase) ConsumeDispatchJob(ctx context.Context, job entity.DispatchJob) error {
	ctx, span := s.startSpan(ctx, "ConsumeDispatchJob")
	defer span.End()

	in := SubmitInput{Email: job.Email, Name: job.Name, Message: job.Message}
	if err := s.validate(in); err != nil {
		return err
	}

	token, err := s.accessToken(ctx)
	if err != nil {
		return err
	}

	return s.send(ctx, job.Submission(), token)
}
