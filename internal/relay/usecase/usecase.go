package usecase

import (
	"context"
	"time"

	"github.com/shandysiswandi/mailrelay/internal/pkg/clock"
	"github.com/shandysiswandi/mailrelay/internal/pkg/config"
	"github.com/shandysiswandi/mailrelay/internal/pkg/instrument"
	"github.com/shandysiswandi/mailrelay/internal/pkg/mail"
	"github.com/shandysiswandi/mailrelay/internal/pkg/tokenbroker"
	"github.com/shandysiswandi/mailrelay/internal/pkg/uid"
	"github.com/shandysiswandi/mailrelay/internal/pkg/validator"
	"github.com/shandysiswandi/mailrelay/internal/relay/entity"
	"go.opentelemetry.io/otel/trace"
)

type tokenBroker interface {
	State() tokenbroker.State
	AccessToken(ctx context.Context) (string, error)
	AuthorizationURL(state string, scopes ...string) string
	Exchange(ctx context.Context, code string) (string, error)
}

type stateStore interface {
	Save(ctx context.Context, state string, ttl time.Duration) error
	Consume(ctx context.Context, state string) (bool, error)
}

type credentialStore interface {
	Save(ctx context.Context, cred string) error
}

type repoMail interface {
	Send(ctx context.Context, msg mail.Message) error
}

type mailQueue interface {
	Enqueue(ctx context.Context, msg mail.Message) (<-chan error, error)
}

type repoMessaging interface {
	PublishDispatchJob(ctx context.Context, job entity.DispatchJob) error
}

type Dependency struct {
	Config     config.Config
	Instrument instrument.Instrumentation
	Clock      clock.Clocker
	StateID    uid.StringID
	Validator  validator.Validator

	Broker     tokenBroker
	StateStore stateStore
	CredStore  credentialStore

	RepoMail      repoMail
	Queue         mailQueue
	RepoMessaging repoMessaging

	// NeedsAccessToken is true when the transport authenticates with an OAuth access token.
	NeedsAccessToken bool
	Mode             entity.DispatchMode
}

type Usecase struct {
	cfg       config.Config
	ins       instrument.Instrumentation
	clock     clock.Clocker
	stateID   uid.StringID
	validator validator.Validator

	broker     tokenBroker
	stateStore stateStore
	credStore  credentialStore

	repoMail      repoMail
	queue         mailQueue
	repoMessaging repoMessaging

	needsToken bool
	mode       entity.DispatchMode
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		cfg:           dep.Config,
		ins:           dep.Instrument,
		clock:         dep.Clock,
		stateID:       dep.StateID,
		validator:     dep.Validator,
		broker:        dep.Broker,
		stateStore:    dep.StateStore,
		credStore:     dep.CredStore,
		repoMail:      dep.RepoMail,
		queue:         dep.Queue,
		repoMessaging: dep.RepoMessaging,
		needsToken:    dep.NeedsAccessToken,
		mode:          dep.Mode,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("relay.usecase").Start(ctx, name)
}
