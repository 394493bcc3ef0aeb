package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix is prepended to every subject simrun publishes on.
const DefaultSubjectPrefix = "simrun"

// Conn is the part of *nats.Conn used for publishing.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Connect dials the NATS server at url and keeps reconnecting forever.
func Connect(url, name string, log logr.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Info("nats disconnected", "error", err.Error())
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", url, err)
	}
	return nc, nil
}

// Publisher publishes JSON payloads on <prefix>.<channel>.
type Publisher struct {
	conn   Conn
	prefix string
	log    logr.Logger
}

// NewPublisher returns a Publisher on conn.
func NewPublisher(conn Conn, log logr.Logger) *Publisher {
	return &Publisher{conn: conn, prefix: DefaultSubjectPrefix, log: log}
}

// Publish sends payload to channel.
func (p *Publisher) Publish(ctx context.Context, channel string, payload any) error {
	return publishJSON(ctx, p.conn, p.prefix+"."+channel, payload)
}

// MailSubject is the subject mail requests are published on.
const MailSubject = DefaultSubjectPrefix + ".mail"

// MailRequest asks the mail worker to render and send template.
type MailRequest struct {
	Template string            `json:"template"`
	Args     map[string]string `json:"args,omitempty"`
	QueuedAt time.Time         `json:"queued_at"`
}

// Mailer queues mail requests for a mail worker.
type Mailer struct {
	conn Conn
	now  func() time.Time
	log  logr.Logger
}

// NewMailer returns a Mailer on conn.
func NewMailer(conn Conn, log logr.Logger) *Mailer {
	return &Mailer{conn: conn, now: time.Now, log: log}
}

// Send queues template with args.
func (m *Mailer) Send(ctx context.Context, template string, args map[string]string) error {
	req := MailRequest{Template: template, Args: args, QueuedAt: m.now().UTC()}
	if err := publishJSON(ctx, m.conn, MailSubject, req); err != nil {
		return err
	}
	m.log.V(1).Info("mail queued", "template", template)
	return nil
}

func publishJSON(ctx context.Context, conn Conn, subject string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload for %s: %w", subject, err)
	}
	if err := conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}
