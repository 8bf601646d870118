package relay

import (
	"context"
	"errors"

	"github.com/shandysiswandi/mailrelay/internal/pkg/clock"
	"github.com/shandysiswandi/mailrelay/internal/pkg/config"
	"github.com/shandysiswandi/mailrelay/internal/pkg/credstore"
	"github.com/shandysiswandi/mailrelay/internal/pkg/goroutine"
	"github.com/shandysiswandi/mailrelay/internal/pkg/instrument"
	"github.com/shandysiswandi/mailrelay/internal/pkg/mail"
	"github.com/shandysiswandi/mailrelay/internal/pkg/messaging"
	"github.com/shandysiswandi/mailrelay/internal/pkg/router"
	"github.com/shandysiswandi/mailrelay/internal/pkg/tokenbroker"
	"github.com/shandysiswandi/mailrelay/internal/pkg/uid"
	"github.com/shandysiswandi/mailrelay/internal/pkg/validator"
	"github.com/shandysiswandi/mailrelay/internal/relay/entity"
	"github.com/shandysiswandi/mailrelay/internal/relay/inbound"
	"github.com/shandysiswandi/mailrelay/internal/relay/outbound/email"
	"github.com/shandysiswandi/mailrelay/internal/relay/outbound/mq"
	"github.com/shandysiswandi/mailrelay/internal/relay/usecase"
)

var (
	// ErrQueueRequired is returned for async dispatch without a mail queue.
	ErrQueueRequired = errors.New("relay: async dispatch requires a mail queue")
	// ErrMessagingRequired is returned for broker dispatch without a messaging client.
	ErrMessagingRequired = errors.New("relay: broker dispatch requires a messaging client")
)

type Dependency struct {
	// Ctx scopes the broker consumer. No consumer is started when it is nil.
	Ctx        context.Context
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	StateID    uid.StringID               `validate:"required"`
	Goroutine  *goroutine.Manager         `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
	Router     *router.Router             `validate:"required"`

	Broker     *tokenbroker.Broker    `validate:"required"`
	StateStore tokenbroker.StateStore `validate:"required"`
	CredStore  *credstore.Store       `validate:"required"`

	Mail          mail.Mail `validate:"required"`
	MailTransport string
	// NeedsAccessToken is true for the OAuth transports.
	NeedsAccessToken bool
	Queue            *mail.Queue
	Messaging        messaging.Messaging
	Mode             entity.DispatchMode
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}
	if dep.Mode == entity.DispatchAsync && dep.Queue == nil {
		return ErrQueueRequired
	}
	if dep.Mode == entity.DispatchBroker && dep.Messaging == nil {
		return ErrMessagingRequired
	}

	repoMail := email.New(dep.Mail, dep.MailTransport, dep.Instrument)

	ucDep := usecase.Dependency{
		Config:           dep.Config,
		Instrument:       dep.Instrument,
		Clock:            dep.Clock,
		StateID:          dep.StateID,
		Validator:        dep.Validator,
		Broker:           dep.Broker,
		StateStore:       dep.StateStore,
		CredStore:        dep.CredStore,
		RepoMail:         repoMail,
		NeedsAccessToken: dep.NeedsAccessToken,
		Mode:             dep.Mode,
	}
	if dep.Queue != nil {
		ucDep.Queue = dep.Queue
	}
	if dep.Messaging != nil {
		ucDep.RepoMessaging = mq.NewMessaging(dep.Messaging, dep.Config.GetString("dispatch.topic"), dep.Instrument)
	}

	uc := usecase.New(ucDep)

	inbound.RegisterHTTPEndpoint(dep.Router, uc)
	if dep.Ctx != nil && dep.Messaging != nil && dep.Config.GetBool("dispatch.consume") {
		inbound.RegisterMQConsumer(dep.Ctx, dep.Config, dep.Goroutine, dep.Messaging, dep.UUID, uc, dep.Instrument)
	}

	return nil
}
