package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shandysiswandi/mailrelay/internal/pkg/instrument"
	"github.com/shandysiswandi/mailrelay/internal/pkg/messaging"
	"github.com/shandysiswandi/mailrelay/internal/pkg/uid"
	"github.com/shandysiswandi/mailrelay/internal/relay/entity"
	"github.com/shandysiswandi/mailrelay/internal/relay/outbound/mq"
)

type MQHandler struct {
	uc   ucConsumer
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, headers map[string]string) context.Context {
	if cID := headers[mq.KeyOfCorrelationID]; cID != "" {
		return instrument.SetCorrelationID(ctx, cID)
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

// DispatchJob sends one job. The message is already acknowledged, so failures
// are logged and the job is dropped.
func (h *MQHandler) DispatchJob(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg.Headers)

	ctx, span := h.ins.Tracer("relay.inbound.mq").Start(ctx, "DispatchJob")
	defer span.End()

	slog.InfoContext(ctx, "consume: dispatch job", "msg_id", msg.ID, "topic", msg.Topic)

	var job entity.DispatchJob
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of dispatch job", "msg_id", msg.ID, "error", err)
		return nil
	}

	if err := h.uc.ConsumeDispatchJob(ctx, job); err != nil {
		slog.ErrorContext(ctx, "failed to consume dispatch job", "msg_id", msg.ID, "error", err)
		return err
	}

	return nil
}
