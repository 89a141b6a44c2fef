package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

var errJetStreamNotConnected = errors.New("not connected to NATS JetStream")

// NATSOptions configures the connection and the event stream it manages
type NATSOptions struct {
	Servers       string
	MaxReconnects int
	ReconnectWait time.Duration
	// StreamMaxAge bounds how long settled-wager events are retained
	StreamMaxAge time.Duration
}

func (o NATSOptions) withDefaults() NATSOptions {
	if o.MaxReconnects == 0 {
		o.MaxReconnects = 10
	}
	if o.ReconnectWait <= 0 {
		o.ReconnectWait = 2 * time.Second
	}
	if o.StreamMaxAge <= 0 {
		o.StreamMaxAge = 7 * 24 * time.Hour
	}
	return o
}

// NATSClient publishes domain events to a JetStream stream
type NATSClient struct {
	opts NATSOptions
	nc   *nats.Conn
	js   nats.JetStreamContext
}

// NewNATSClient creates a client; nothing is dialed until Connect
func NewNATSClient(opts NATSOptions) *NATSClient {
	return &NATSClient{opts: opts.withDefaults()}
}

// Connect dials the servers and opens a JetStream context
func (c *NATSClient) Connect(ctx context.Context) error {
	nc, err := nats.Connect(c.opts.Servers,
		nats.Name("skywager"),
		nats.MaxReconnects(c.opts.MaxReconnects),
		nats.ReconnectWait(c.opts.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.WithError(err).Warn("NATS connection lost")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrl()).Info("NATS connection restored")
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream(nats.Context(ctx))
	if err != nil {
		nc.Close()
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	c.nc, c.js = nc, js
	log.WithField("servers", c.opts.Servers).Info("Connected to NATS JetStream")
	return nil
}

// Close drains pending publishes before closing
func (c *NATSClient) Close() error {
	if c.nc == nil {
		return nil
	}
	if err := c.nc.Drain(); err != nil {
		c.nc.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	return nil
}

// EnsureStream creates the event stream on first start and leaves an existing one untouched
func (c *NATSClient) EnsureStream(name string, subjects []string) error {
	if c.js == nil {
		return errJetStreamNotConnected
	}

	if _, err := c.js.StreamInfo(name); err == nil {
		return nil
	} else if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream %s: %w", name, err)
	}

	_, err := c.js.AddStream(&nats.StreamConfig{
		Name:        name,
		Subjects:    subjects,
		Retention:   nats.LimitsPolicy,
		MaxAge:      c.opts.StreamMaxAge,
		Storage:     nats.FileStorage,
		Description: "skywager wager lifecycle and balance events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", name, err)
	}

	log.WithFields(log.Fields{
		"stream":   name,
		"subjects": subjects,
		"maxAge":   c.opts.StreamMaxAge,
	}).Info("Created event stream")
	return nil
}

// Publish sends one event payload and waits for the JetStream ack
func (c *NATSClient) Publish(ctx context.Context, subject string, data []byte) error {
	if c.js == nil {
		return errJetStreamNotConnected
	}
	if _, err := c.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}
