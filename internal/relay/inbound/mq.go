package inbound

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/mailrelay/internal/pkg/config"
	"github.com/shandysiswandi/mailrelay/internal/pkg/goroutine"
	"github.com/shandysiswandi/mailrelay/internal/pkg/instrument"
	"github.com/shandysiswandi/mailrelay/internal/pkg/messaging"
	"github.com/shandysiswandi/mailrelay/internal/pkg/uid"
)

const defaultConsumerGroup = "mailrelay-dispatch"

// RegisterMQConsumer starts the dispatch job consumer on the goroutine
// manager. It reports whether a consumer was scheduled.
func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	consumer messaging.Consumer,
	uuid uid.StringID,
	uc ucConsumer,
	ins instrument.Instrumentation,
) bool {
	topic := cfg.GetString("dispatch.topic")
	group := cfg.GetString("dispatch.group")
	if group == "" {
		group = defaultConsumerGroup
	}
	concurrency := cfg.GetInt("dispatch.workers")
	if concurrency < 1 {
		concurrency = 1
	}

	handler := &MQHandler{uc: uc, uuid: uuid, ins: ins}

	return routine.Go(ctx, func(pCtx context.Context) error {
		slog.InfoContext(pCtx, "Running job for handling consumer", "topic", topic, "group", group)
		return messaging.IgnoreCanceled(consumer.Consume(pCtx,
			topic,
			handler.DispatchJob,
			messaging.WithGroup(group),
			messaging.WithConcurrency(concurrency),
		))
	})
}
