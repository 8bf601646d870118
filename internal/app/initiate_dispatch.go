package app

import (
	"log/slog"
	"os"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nsqio/go-nsq"
	"github.com/segmentio/kafka-go"
	"github.com/shandysiswandi/mailrelay/internal/pkg/mail"
	"github.com/shandysiswandi/mailrelay/internal/pkg/messaging"
	"github.com/shandysiswandi/mailrelay/internal/relay/entity"
)

const pubsubScope = "https://www.googleapis.com/auth/pubsub"

func (a *App) initMail() {
	transport := strings.ToLower(strings.TrimSpace(a.config.GetString("mail.transport")))

	switch transport {
	case "gmail":
		a.mail = mail.NewGmail(mail.GmailConfig{
			From:     a.config.GetString("mail.from"),
			Endpoint: a.config.GetString("mail.gmail.endpoint"),
		})
		a.needsToken = true
	case "smtp":
		smtp, err := mail.NewSMTP(mail.SMTPConfig{
			Host:     a.config.GetString("mail.smtp.host"),
			Port:     a.config.GetInt("mail.smtp.port"),
			AuthMode: a.config.GetString("mail.smtp.auth_mode"),
			Username: a.config.GetString("mail.smtp.username"),
			Password: a.config.GetString("mail.smtp.password"),
			From:     a.config.GetString("mail.from"),
		})
		if err != nil {
			slog.Error("failed to init mail", "error", err)
			os.Exit(1)
		}
		a.mail = smtp
		a.needsToken = smtp.NeedsAccessToken()
	default:
		slog.Error("failed to init mail", "error", "unknown transport", "transport", transport)
		os.Exit(1)
	}

	a.transport = transport
}

func (a *App) initDispatch() {
	mode, err := entity.ParseDispatchMode(a.config.GetString("dispatch.mode"))
	if err != nil {
		slog.Error("failed to init dispatch", "error", err)
		os.Exit(1)
	}
	a.mode = mode

	switch mode {
	case entity.DispatchAsync:
		q := mail.NewQueue(a.mail, a.config.GetInt("dispatch.queue_size"), a.config.GetInt("dispatch.workers"))
		if err := q.Start(a.ctx, a.goroutine); err != nil {
			slog.Error("failed to start mail queue", "error", err)
			os.Exit(1)
		}
		a.queue = q
	case entity.DispatchBroker:
		a.initMessaging()
	}
}

func (a *App) initMessaging() {
	driver := a.config.GetString("messaging.driver")
	client, err := messaging.NewFromDriver(a.ctx, driver, messaging.FactoryOptions{
		MemoryBuffer: a.config.GetInt("dispatch.queue_size"),
		NSQ: messaging.NSQConfig{
			ProducerAddr:         a.config.GetString("messaging.nsq.producer_addr"),
			ConsumerNSQDAddrs:    a.config.GetArray("messaging.nsq.consumer_nsqd_addrs"),
			ConsumerLookupdAddrs: a.config.GetArray("messaging.nsq.consumer_lookupd_addrs"),
			Config: func() *nsq.Config {
				cfg := nsq.NewConfig()
				if v := a.config.GetInt("messaging.nsq.max_in_flight"); v > 0 {
					cfg.MaxInFlight = v
				}
				if v := a.config.GetSecond("messaging.nsq.dial_timeout_seconds"); v > 0 {
					cfg.DialTimeout = v
				}
				if v := a.config.GetSecond("messaging.nsq.read_timeout_seconds"); v > 0 {
					cfg.ReadTimeout = v
				}
				if v := a.config.GetSecond("messaging.nsq.write_timeout_seconds"); v > 0 {
					cfg.WriteTimeout = v
				}
				if v := a.config.GetSecond("messaging.nsq.lookupd_poll_interval_seconds"); v > 0 {
					cfg.LookupdPollInterval = v
				}
				return cfg
			}(),
		},
		Kafka: messaging.KafkaConfig{
			Brokers: a.config.GetArray("messaging.kafka.brokers"),
			Dialer: &kafka.Dialer{
				ClientID:  a.config.GetString("messaging.kafka.client_id"),
				Timeout:   a.config.GetSecond("messaging.kafka.dial_timeout_seconds"),
				DualStack: true,
			},
		},
		NATS: messaging.NATSConfig{
			URL: a.config.GetString("messaging.nats.url"),
			Options: []nats.Option{
				nats.Name(a.config.GetString("messaging.nats.name")),
				nats.MaxReconnects(a.config.GetInt("messaging.nats.max_reconnects")),
				nats.Timeout(a.config.GetSecond("messaging.nats.timeout_seconds")),
				nats.ReconnectWait(a.config.GetSecond("messaging.nats.reconnect_wait_seconds")),
				nats.RetryOnFailedConnect(a.config.GetBool("messaging.nats.retry_on_failed_connect")),
			},
		},
		PubSub: messaging.PubSubConfig{
			ProjectID:     a.config.GetString("messaging.pubsub.project_id"),
			ClientOptions: a.googleClientOptions("messaging.pubsub", pubsubScope),
		},
	})
	if err != nil {
		slog.Error("failed to init messaging", "error", err, "driver", driver)
		os.Exit(1)
	}

	a.messaging = client
}
