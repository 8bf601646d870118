package mq

import (
	"context"
	"encoding/json"

	"github.com/shandysiswandi/mailrelay/internal/pkg/instrument"
	"github.com/shandysiswandi/mailrelay/internal/pkg/messaging"
	"github.com/shandysiswandi/mailrelay/internal/relay/entity"
	"go.opentelemetry.io/otel/codes"
)

// KeyOfCorrelationID is the message header carrying the request correlation id.
const KeyOfCorrelationID string = "cID"

type Messaging struct {
	client messaging.Publisher
	topic  string
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Publisher, topic string, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, topic: topic, ins: ins}
}

func (m *Messaging) PublishDispatchJob(ctx context.Context, job entity.DispatchJob) error {
	ctx, span := m.ins.Tracer("relay.outbound.mq").Start(ctx, "PublishDispatchJob")
	defer span.End()

	body, err := json.Marshal(job)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := m.client.Publish(ctx, m.topic, messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(job.Email),
		Headers: map[string]string{KeyOfCorrelationID: instrument.GetCorrelationID(ctx)},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
