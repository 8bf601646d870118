package app

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/mailrelay/internal/pkg/clock"
	"github.com/shandysiswandi/mailrelay/internal/pkg/config"
	"github.com/shandysiswandi/mailrelay/internal/pkg/credstore"
	"github.com/shandysiswandi/mailrelay/internal/pkg/crypt"
	"github.com/shandysiswandi/mailrelay/internal/pkg/goroutine"
	"github.com/shandysiswandi/mailrelay/internal/pkg/instrument"
	"github.com/shandysiswandi/mailrelay/internal/pkg/mail"
	"github.com/shandysiswandi/mailrelay/internal/pkg/messaging"
	"github.com/shandysiswandi/mailrelay/internal/pkg/router"
	"github.com/shandysiswandi/mailrelay/internal/pkg/storage"
	"github.com/shandysiswandi/mailrelay/internal/pkg/tokenbroker"
	"github.com/shandysiswandi/mailrelay/internal/pkg/uid"
	"github.com/shandysiswandi/mailrelay/internal/pkg/validator"
	"github.com/shandysiswandi/mailrelay/internal/relay/entity"
)

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	uuid      uid.StringID
	stateID   uid.StringID
	encryptor crypt.Encryptor

	// resources
	dbConn      *pgxpool.Pool
	cacheConn   redis.UniversalClient
	objectStore storage.ObjectStore
	credStore   *credstore.Store
	broker      *tokenbroker.Broker
	stateStore  tokenbroker.StateStore
	mail        mail.Mail
	transport   string
	needsToken  bool
	queue       *mail.Queue
	messaging   messaging.Messaging
	mode        entity.DispatchMode

	// server
	router     *router.Router
	httpServer *http.Server

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initCache()
	app.initDatabase()
	app.initStorage()
	app.initCredentialStore()
	app.initTokenBroker()
	app.initMail()
	app.initDispatch()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
