package inbound

import (
	"context"

	"github.com/shandysiswandi/mailrelay/internal/relay/entity"
	"github.com/shandysiswandi/mailrelay/internal/relay/usecase"
)

type ucConsumer interface {
	ConsumeDispatchJob(ctx context.Context, job entity.DispatchJob) error
}

type uc interface {
	ucConsumer

	Submit(ctx context.Context, in usecase.SubmitInput) error
	GenerateAuthURL(ctx context.Context) (string, error)
	Callback(ctx context.Context, in usecase.CallbackInput) error
	Health(ctx context.Context) usecase.HealthOutput
}
