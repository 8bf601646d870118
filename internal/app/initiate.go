package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/mailrelay/internal/pkg/clock"
	"github.com/shandysiswandi/mailrelay/internal/pkg/config"
	"github.com/shandysiswandi/mailrelay/internal/pkg/crypt"
	"github.com/shandysiswandi/mailrelay/internal/pkg/goroutine"
	"github.com/shandysiswandi/mailrelay/internal/pkg/instrument"
	"github.com/shandysiswandi/mailrelay/internal/pkg/router"
	"github.com/shandysiswandi/mailrelay/internal/pkg/uid"
	"github.com/shandysiswandi/mailrelay/internal/pkg/validator"
)

// envAliases binds the legacy environment variable names.
var envAliases = map[string]string{
	"app.server.http.port":   "PORT",
	"app.server.cors.origin": "ACCESS_ORIGIN",
	"mail.from":              "NODEMAIL_GMAIL",
	"mail.to":                "EMAIL",
	"oauth.client_id":        "CLIENT_ID",
	"oauth.client_secret":    "CLIENT_SECRET",
	"oauth.redirect_url":     "REDIRECT_URI",
	"oauth.refresh_token":    "REFRESH_TOKEN",
	"crypto.algorithm":       "ALGO",
	"crypto.secret_key":      "SECRET_KEY",
}

var defaults = map[string]any{
	"app.name":                                    "mailrelay",
	"app.server.http.port":                        3000,
	"app.server.http.read_timeout_seconds":        15,
	"app.server.http.read_header_timeout_seconds": 5,
	"app.server.http.write_timeout_seconds":       30,
	"app.server.http.idle_timeout_seconds":        60,
	"app.server.max_goroutine":                    64,
	"instrument.service_name":                     "mailrelay",
	"instrument.log_level":                        "info",
	"instrument.log_mask_fields":                  "refreshToken,refresh_token,accessToken,access_token,authorization,password,code,state,encryptedToken",
	"instrument.metric_interval_seconds":          60,
	"instrument.trace_sample_ratio":               1,
	"crypto.algorithm":                            crypt.AlgorithmAESGCM,
	"crypto.salt":                                 "mailrelay",
	"credential.store.driver":                     "file",
	"credential.store.file.path":                  "./data/refresh_token.json",
	"credential.store.redis.key":                  "mailrelay:refresh_token",
	"credential.store.postgres.deployment":        "default",
	"credential.store.object.key":                 "mailrelay/refresh_token.json",
	"oauth.state_store":                           "memory",
	"oauth.state_ttl_seconds":                     600,
	"mail.transport":                              "smtp",
	"mail.smtp.host":                              "smtp.gmail.com",
	"mail.smtp.port":                              465,
	"mail.smtp.auth_mode":                         "xoauth2",
	"app.startup.ping_retries":                    3,
	"dispatch.mode":                               "sync",
	"dispatch.queue_size":                         100,
	"dispatch.workers":                            2,
	"dispatch.topic":                              "mailrelay.dispatch",
	"dispatch.group":                              "mailrelay-dispatch",
	"dispatch.consume":                            true,
	"messaging.driver":                            "memory",
	"messaging.nats.max_reconnects":               60,
	"messaging.nats.timeout_seconds":              2,
	"messaging.nats.reconnect_wait_seconds":       2,
	"messaging.kafka.dial_timeout_seconds":        10,
}

func (a *App) initConfig() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}

	opts := []config.Option{config.WithOptionalFile(), config.WithDefaults(defaults)}
	for key, env := range envAliases {
		opts = append(opts, config.WithEnvAlias(key, env))
	}

	cfg, err := config.NewViper(path, opts...)
	if err != nil {
		slog.Error("failed to init config", "error", err)
		os.Exit(1)
	}

	if tz := cfg.GetString("app.tz"); tz != "" {
		//nolint:errcheck,gosec // ignore error
		os.Setenv("TZ", tz)
	}

	a.config = cfg
}

func (a *App) initInstrument() {
	ins, err := instrument.New(context.Background(), &instrument.Config{
		Enabled:          a.config.GetBool("instrument.enabled"),
		ServiceName:      a.config.GetString("instrument.service_name"),
		ServiceVersion:   a.config.GetString("instrument.service_version"),
		Environment:      a.config.GetString("instrument.env"),
		OTLPEndpoint:     a.config.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       a.config.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: a.config.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:  a.config.GetSecond("instrument.metric_interval_seconds"),
		MaskFields:       a.config.GetArray("instrument.log_mask_fields"),
		LogLevel:         a.config.GetString("instrument.log_level"),
	})
	if err != nil {
		slog.Error("failed to init instrumentation", "error", err)
		os.Exit(1)
	}
	a.ins = ins
}

func (a *App) initLibraries() {
	a.clock = clock.New()
	a.uuid = uid.NewUUID()
	a.stateID = uid.NewRandomUUID()
	a.goroutine = goroutine.NewManager(a.config.GetInt("app.server.max_goroutine"))

	validator, err := validator.NewV10Validator()
	if err != nil {
		slog.Error("failed to init validation v10 validator", "error", err)
		os.Exit(1)
	}
	a.validator = validator

	secret := a.config.GetString("crypto.secret_key")
	if secret == "" {
		slog.Warn("crypto.secret_key is empty, refresh credential is stored in plaintext")
		return
	}

	key, err := crypt.DeriveKey(secret, a.config.GetString("crypto.salt"))
	if err != nil {
		slog.Error("failed to derive encryption key", "error", err)
		os.Exit(1)
	}

	enc, err := crypt.New(a.config.GetString("crypto.algorithm"), key)
	if err != nil {
		slog.Error("failed to init encryptor", "error", err, "algorithm", a.config.GetString("crypto.algorithm"))
		os.Exit(1)
	}
	a.encryptor = enc
}

// initCache connects to redis only when a component is configured to use it.
func (a *App) initCache() {
	if !usesRedis(a.config) {
		return
	}

	opt, err := redis.ParseURL(a.config.GetString("redis.url"))
	if err != nil {
		slog.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(opt)

	if err := a.ping("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() }); err != nil {
		slog.Error("failed to init redis", "error", err)
		os.Exit(1)
	}

	a.cacheConn = rdb
}

// initDatabase connects to postgres only for the postgres credential store.
func (a *App) initDatabase() {
	if credentialDriver(a.config) != "postgres" {
		return
	}

	config, err := pgxpool.ParseConfig(a.config.GetString("database.url"))
	if err != nil {
		slog.Error("failed to parse DB connection string.", "error", err)
		os.Exit(1)
	}

	config.MaxConns = a.config.GetInt32("database.pool.max_conns")
	config.MinConns = a.config.GetInt32("database.pool.min_conns")
	config.MaxConnLifetime = a.config.GetSecond("database.pool.max_conn_lifetime_seconds")
	config.MaxConnIdleTime = a.config.GetSecond("database.pool.max_conn_idle_seconds")
	config.HealthCheckPeriod = a.config.GetSecond("database.pool.health_check_period_seconds")

	pool, err := pgxpool.NewWithConfig(a.ctx, config)
	if err != nil {
		slog.Error("failed to create DB connection pool", "error", err)
		os.Exit(1)
	}

	if err := a.ping("postgres", pool.Ping); err != nil {
		slog.Error("failed to ping DB", "error", err)
		os.Exit(1)
	}

	a.dbConn = pool
}

// ping retries fn with exponential backoff until it succeeds or
// app.startup.ping_retries attempts are exhausted. Each attempt gets 5 seconds.
func (a *App) ping(name string, fn func(ctx context.Context) error) error {
	attempts := a.config.GetInt("app.startup.ping_retries")
	if attempts < 0 {
		attempts = 0
	}
	backoff := retry.WithMaxRetries(uint64(attempts), retry.NewExponential(500*time.Millisecond))

	return retry.Do(a.ctx, backoff, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := fn(pingCtx); err != nil {
			slog.WarnContext(ctx, "ping failed, retrying", "target", name, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (a *App) initHTTPServer() {
	a.router = router.NewRouter(router.Config{
		Config:     a.config,
		UUID:       a.uuid,
		Instrument: a.ins,
	})

	corsConfig := router.CORSConfig{
		Origin:  a.config.GetString("app.server.cors.origin"),
		Methods: []string{http.MethodOptions, http.MethodPost},
		Headers: []string{"Content-Type"},
	}
	handler := router.SecureHeaders(router.CORS(corsConfig)(a.router))

	address := a.config.GetString("app.server.http.address")
	if address == "" {
		address = ":" + strings.TrimPrefix(a.config.GetString("app.server.http.port"), ":")
	}

	a.httpServer = &http.Server{
		Addr:              address,
		Handler:           handler,
		ReadTimeout:       a.config.GetSecond("app.server.http.read_timeout_seconds"),
		ReadHeaderTimeout: a.config.GetSecond("app.server.http.read_header_timeout_seconds"),
		WriteTimeout:      a.config.GetSecond("app.server.http.write_timeout_seconds"),
		IdleTimeout:       a.config.GetSecond("app.server.http.idle_timeout_seconds"),
	}
}

func (a *App) initClosers() {
	a.closers = []struct {
		name string
		fn   func(context.Context) error
	}{
		{
			name: "Instrument",
			fn: func(ctx context.Context) error {
				return a.ins.Shutdown(ctx)
			},
		},
		{
			name: "Messaging",
			fn: func(context.Context) error {
				if a.messaging == nil {
					return nil
				}
				return a.messaging.Close()
			},
		},
		{
			name: "Mail",
			fn: func(context.Context) error {
				return a.mail.Close()
			},
		},
		{
			name: "Redis",
			fn: func(context.Context) error {
				if a.cacheConn == nil {
					return nil
				}
				return a.cacheConn.Close()
			},
		},
		{
			name: "Database",
			fn: func(context.Context) error {
				if a.dbConn != nil {
					a.dbConn.Close()
				}

				return nil
			},
		},
		{
			name: "Storage",
			fn: func(context.Context) error {
				if a.objectStore == nil {
					return nil
				}
				return a.objectStore.Close()
			},
		},
		{
			name: "Config",
			fn: func(context.Context) error {
				return a.config.Close()
			},
		},
	}
}
