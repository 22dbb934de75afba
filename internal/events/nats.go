package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

type NATSConfig struct {
	// URL is the NATS server URL
	URL string

	// SubjectPrefix is prepended to the event type, e.g. "policy" gives
	// "policy.grant.value.assigned".
	SubjectPrefix string

	ConnectTimeout time.Duration
}

// NATSPublisher publishes events as JSON to <prefix>.<type>.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

func NewNATSPublisher(cfg NATSConfig) (*NATSPublisher, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "policy"
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name("policyd"),
		nats.Timeout(cfg.ConnectTimeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &NATSPublisher{conn: conn, prefix: cfg.SubjectPrefix}, nil
}

func (p *NATSPublisher) Subject(eventType string) string {
	return p.prefix + "." + eventType
}

func (p *NATSPublisher) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.conn.Publish(p.Subject(e.Type), e.JSON())
}

// Connected reports whether the connection is currently usable; used by
// the readiness probe.
func (p *NATSPublisher) Connected() bool {
	return p.conn.IsConnected()
}

func (p *NATSPublisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return err
	}
	return nil
}
