package app

import (
	"context"
	"log/slog"
	"os"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/shandysiswandi/mailrelay/internal/pkg/config"
	"github.com/shandysiswandi/mailrelay/internal/pkg/credstore"
	"github.com/shandysiswandi/mailrelay/internal/pkg/storage"
	"github.com/shandysiswandi/mailrelay/internal/pkg/tokenbroker"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const oauthStatePrefix = "mailrelay:oauth_state:"

func credentialDriver(cfg config.Config) string {
	return strings.ToLower(strings.TrimSpace(cfg.GetString("credential.store.driver")))
}

func stateStoreDriver(cfg config.Config) string {
	return strings.ToLower(strings.TrimSpace(cfg.GetString("oauth.state_store")))
}

// usesRedis reports whether the credential store or the OAuth state store needs a redis client.
func usesRedis(cfg config.Config) bool {
	return credentialDriver(cfg) == "redis" || stateStoreDriver(cfg) == "redis"
}

// googleClientOptions builds client options from <prefix>.without_auth,
// <prefix>.credentials_file, <prefix>.credentials_json, <prefix>.endpoint and
// <prefix>.user_agent.
func (a *App) googleClientOptions(prefix, scope string) []option.ClientOption {
	opts := []option.ClientOption{}
	if a.config.GetBool(prefix + ".without_auth") {
		opts = append(opts, option.WithoutAuthentication())
	}
	if v := strings.TrimSpace(a.config.GetString(prefix + ".credentials_file")); v != "" {
		// #nosec G304 -- path is from trusted config file.
		credsJSON, err := os.ReadFile(v)
		if err != nil {
			slog.Error("failed to read google credentials file", "prefix", prefix, "error", err)
			os.Exit(1)
		}
		creds, err := google.CredentialsFromJSON(a.ctx, credsJSON, scope)
		if err != nil {
			slog.Error("failed to parse google credentials file", "prefix", prefix, "error", err)
			os.Exit(1)
		}
		opts = append(opts, option.WithCredentials(creds))
	}
	if v := a.config.GetBinary(prefix + ".credentials_json"); len(v) > 0 {
		creds, err := google.CredentialsFromJSON(a.ctx, v, scope)
		if err != nil {
			slog.Error("failed to parse google credentials json", "prefix", prefix, "error", err)
			os.Exit(1)
		}
		opts = append(opts, option.WithCredentials(creds))
	}
	if v := strings.TrimSpace(a.config.GetString(prefix + ".endpoint")); v != "" {
		opts = append(opts, option.WithEndpoint(v))
	}
	if v := strings.TrimSpace(a.config.GetString(prefix + ".user_agent")); v != "" {
		opts = append(opts, option.WithUserAgent(v))
	}
	return opts
}

// initStorage builds the object store behind the s3, minio and gcs credential stores.
func (a *App) initStorage() {
	driver := credentialDriver(a.config)
	if !storage.IsDriver(driver) {
		return
	}

	stg, err := storage.NewFromDriver(a.ctx, driver, storage.FactoryOptions{
		S3: storage.S3Options{
			Region:       strings.TrimSpace(a.config.GetString("storage.s3.region")),
			Endpoint:     strings.TrimSpace(a.config.GetString("storage.s3.endpoint")),
			AccessKey:    strings.TrimSpace(a.config.GetString("storage.s3.access_key")),
			SecretKey:    strings.TrimSpace(a.config.GetString("storage.s3.secret_key")),
			SessionToken: strings.TrimSpace(a.config.GetString("storage.s3.session_token")),
			UsePathStyle: a.config.GetBool("storage.s3.use_path_style"),
		},
		GCS: storage.GCSOptions{
			ClientOptions: a.googleClientOptions("storage.gcs", gcs.ScopeReadWrite),
		},
		MinIO: storage.MinIOOptions{
			Region:       strings.TrimSpace(a.config.GetString("storage.minio.region")),
			Endpoint:     strings.TrimSpace(a.config.GetString("storage.minio.endpoint")),
			AccessKey:    strings.TrimSpace(a.config.GetString("storage.minio.access_key")),
			SecretKey:    strings.TrimSpace(a.config.GetString("storage.minio.secret_key")),
			SessionToken: strings.TrimSpace(a.config.GetString("storage.minio.session_token")),
			UseSSL:       a.config.GetBool("storage.minio.use_ssl"),
		},
	})
	if err != nil {
		slog.Error("failed to init storage", "error", err, "driver", driver)
		os.Exit(1)
	}

	a.objectStore = stg
}

func (a *App) initCredentialStore() {
	driver := credentialDriver(a.config)

	var backend credstore.Backend
	switch {
	case driver == "file":
		backend = credstore.NewFileBackend(credstore.OSFs(), a.config.GetString("credential.store.file.path"))
	case driver == "redis":
		backend = credstore.NewRedisBackend(a.cacheConn, a.config.GetString("credential.store.redis.key"))
	case driver == "postgres":
		pg := credstore.NewPostgresBackend(a.dbConn, a.config.GetString("credential.store.postgres.deployment"))
		if err := pg.EnsureSchema(a.ctx); err != nil {
			slog.Error("failed to ensure credential table", "error", err)
			os.Exit(1)
		}
		backend = pg
	case storage.IsDriver(driver):
		backend = credstore.NewObjectBackend(
			a.objectStore,
			driver,
			a.config.GetString("credential.store.object.bucket"),
			a.config.GetString("credential.store.object.key"),
		)
	default:
		slog.Error("failed to init credential store", "error", "unknown driver", "driver", driver)
		os.Exit(1)
	}

	a.credStore = credstore.New(backend, a.encryptor)
	slog.Info("credential store ready", "backend", a.credStore.Backend(), "encoding", a.credStore.Encoding())
}

// initTokenBroker builds the broker and loads the persisted refresh credential.
// A missing or unreadable record leaves the broker uninitialized; the service
// still serves the consent flow.
func (a *App) initTokenBroker() {
	scopes := []string{tokenbroker.ScopeMail}
	if strings.EqualFold(a.config.GetString("mail.transport"), "gmail") {
		scopes = []string{gmail.GmailSendScope}
	}

	a.broker = tokenbroker.New(tokenbroker.Config{
		ClientID:     a.config.GetString("oauth.client_id"),
		ClientSecret: a.config.GetString("oauth.client_secret"),
		RedirectURL:  a.config.GetString("oauth.redirect_url"),
		AuthURL:      a.config.GetString("oauth.auth_url"),
		TokenURL:     a.config.GetString("oauth.token_url"),
		Scopes:       scopes,
		Clock:        a.clock,
		OnRotate: func(ctx context.Context, cred string) {
			if err := a.credStore.Save(ctx, cred); err != nil {
				slog.ErrorContext(ctx, "failed to persist rotated refresh credential", "error", err)
			}
		},
	})

	cred, err := a.credStore.Load(a.ctx)
	if err != nil {
		slog.Warn("no usable refresh credential in store", "backend", a.credStore.Backend(), "error", err)
		cred = a.config.GetString("oauth.refresh_token")
		if cred != "" {
			slog.Info("refresh credential seeded from configuration")
		}
	}
	a.broker.SetRefreshCredential(cred)

	if stateStoreDriver(a.config) == "redis" {
		a.stateStore = tokenbroker.NewRedisStateStore(a.cacheConn, oauthStatePrefix)
	} else {
		a.stateStore = tokenbroker.NewMemoryStateStore(a.clock)
	}

	slog.Info("token broker ready", "state", a.broker.State().String())
}
