package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/mailrelay/internal/pkg/clock"
	"github.com/shandysiswandi/mailrelay/internal/pkg/config"
	"github.com/shandysiswandi/mailrelay/internal/pkg/instrument"
	"github.com/shandysiswandi/mailrelay/internal/pkg/mail"
	"github.com/shandysiswandi/mailrelay/internal/pkg/tokenbroker"
	"github.com/shandysiswandi/mailrelay/internal/pkg/validator"
	"github.com/shandysiswandi/mailrelay/internal/relay/entity"
	"github.com/stretchr/testify/require"
)

const testConfig = `
mail:
  from: relay@example.com
  to: owner@example.com
oauth:
  state_ttl_seconds: 120
`

type fakeBroker struct {
	state     tokenbroker.State
	token     string
	tokenErr  error
	cred      string
	exchErr   error
	exchanged []string
	calls     int
}

func (b *fakeBroker) State() tokenbroker.State { return b.state }

func (b *fakeBroker) AccessToken(context.Context) (string, error) {
	b.calls++
	return b.token, b.tokenErr
}

func (b *fakeBroker) AuthorizationURL(state string, _ ...string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (b *fakeBroker) Exchange(_ context.Context, code string) (string, error) {
	b.exchanged = append(b.exchanged, code)
	if b.exchErr != nil {
		return "", b.exchErr
	}
	b.state = tokenbroker.StateReady
	return b.cred, nil
}

type fakeStateStore struct {
	saved   map[string]time.Duration
	saveErr error
	consErr error
}

func (f *fakeStateStore) Save(_ context.Context, state string, ttl time.Duration) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.saved == nil {
		f.saved = map[string]time.Duration{}
	}
	f.saved[state] = ttl
	return nil
}

func (f *fakeStateStore) Consume(_ context.Context, state string) (bool, error) {
	if f.consErr != nil {
		return false, f.consErr
	}
	_, ok := f.saved[state]
	delete(f.saved, state)
	return ok, nil
}

type fakeCredStore struct {
	saved []string
	err   error
}

func (f *fakeCredStore) Save(_ context.Context, cred string) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, cred)
	return nil
}

type fakeMail struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (f *fakeMail) Send(_ context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return f.err
}

type fakeQueue struct {
	queued []mail.Message
	err    error
}

func (f *fakeQueue) Enqueue(_ context.Context, msg mail.Message) (<-chan error, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.queued = append(f.queued, msg)
	ch := make(chan error, 1)
	ch <- nil
	close(ch)
	return ch, nil
}

type fakeMessaging struct {
	jobs []entity.DispatchJob
	err  error
}

func (f *fakeMessaging) PublishDispatchJob(_ context.Context, job entity.DispatchJob) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

type fixedID string

func (f fixedID) Generate() string { return string(f) }

type fixture struct {
	uc        *Usecase
	broker    *fakeBroker
	states    *fakeStateStore
	creds     *fakeCredStore
	mail      *fakeMail
	queue     *fakeQueue
	messaging *fakeMessaging
	clock     *clock.Fixed
}

func newFixture(t *testing.T, mode entity.DispatchMode) *fixture {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(testConfig))
	require.NoError(t, err)
	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	f := &fixture{
		broker:    &fakeBroker{state: tokenbroker.StateReady, token: "ya29.access", cred: "1//refresh"},
		states:    &fakeStateStore{},
		creds:     &fakeCredStore{},
		mail:      &fakeMail{},
		queue:     &fakeQueue{},
		messaging: &fakeMessaging{},
		clock:     &clock.Fixed{At: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
	}
	f.uc = New(Dependency{
		Config:           cfg,
		Instrument:       instrument.NewNoop(),
		Clock:            f.clock,
		StateID:          fixedID("state-123"),
		Validator:        v,
		Broker:           f.broker,
		StateStore:       f.states,
		CredStore:        f.creds,
		RepoMail:         f.mail,
		Queue:            f.queue,
		RepoMessaging:    f.messaging,
		NeedsAccessToken: true,
		Mode:             mode,
	})
	return f
}
