package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/mailrelay/internal/relay"
)

func (a *App) initModules() {
	if err := relay.New(relay.Dependency{
		Ctx:              a.ctx,
		Config:           a.config,
		Instrument:       a.ins,
		Clock:            a.clock,
		UUID:             a.uuid,
		StateID:          a.stateID,
		Goroutine:        a.goroutine,
		Validator:        a.validator,
		Router:           a.router,
		Broker:           a.broker,
		StateStore:       a.stateStore,
		CredStore:        a.credStore,
		Mail:             a.mail,
		MailTransport:    a.transport,
		NeedsAccessToken: a.needsToken,
		Queue:            a.queue,
		Messaging:        a.messaging,
		Mode:             a.mode,
	}); err != nil {
		slog.Error("failed to init module relay", "error", err)
		os.Exit(1)
	}
}
