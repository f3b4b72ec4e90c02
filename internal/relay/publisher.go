package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/quizbid/quizbid/internal/auction"
)

// PublisherConfig holds configuration for the JetStream publisher.
type PublisherConfig struct {
	URL           string
	StreamName    string
	SubjectPrefix string // events publish to "<prefix>.<eventType>"
	MaxReconnects int
	ReconnectWait time.Duration
	PublishWait   time.Duration
}

// DefaultPublisherConfig returns default JetStream publisher configuration.
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		URL:           nats.DefaultURL,
		StreamName:    "AUCTION_EVENTS",
		SubjectPrefix: "auction.events",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		PublishWait:   5 * time.Second,
	}
}

// Publisher mirrors every auction broadcast onto a JetStream subject
// so gateways on other nodes can rebroadcast to their own clients. It
// implements auction.Broadcaster: Broadcast only enqueues, the actual
// publish happens on the Start loop, so the auction core never blocks
// on NATS.
type Publisher struct {
	nc  *nats.Conn
	js  jetstream.JetStream
	cfg PublisherConfig

	publishCh chan auction.Event
}

// NewPublisher connects to NATS and makes sure the stream exists.
func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	p := &Publisher{
		nc:        nc,
		js:        js,
		cfg:       cfg,
		publishCh: make(chan auction.Event, 256),
	}

	if err := p.ensureStream(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}
	return p, nil
}

func (p *Publisher) ensureStream(ctx context.Context) error {
	_, err := p.js.Stream(ctx, p.cfg.StreamName)
	if err == nil {
		return nil
	}
	_, err = p.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:     p.cfg.StreamName,
		Subjects: []string{p.cfg.SubjectPrefix + ".>"},
	})
	if err != nil {
		return fmt.Errorf("create stream: %w", err)
	}
	log.Info().Str("stream", p.cfg.StreamName).Msg("created JetStream stream")
	return nil
}

// Broadcast enqueues an event for relay. Never blocks.
func (p *Publisher) Broadcast(ev auction.Event) {
	select {
	case p.publishCh <- ev:
	default:
		log.Warn().Str("event_type", string(ev.Type)).Msg("relay channel full, dropping event")
	}
}

// Start publishes enqueued events until ctx is cancelled.
func (p *Publisher) Start(ctx context.Context) {
	log.Info().Str("stream", p.cfg.StreamName).Msg("relay publisher started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("relay publisher shutting down")
			return
		case ev := <-p.publishCh:
			p.publish(ctx, ev)
		}
	}
}

func (p *Publisher) publish(ctx context.Context, ev auction.Event) {
	data, err := json.Marshal(toEnvelope(ev))
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal relay envelope")
		return
	}

	subject := fmt.Sprintf("%s.%s", p.cfg.SubjectPrefix, ev.Type)
	pubCtx, cancel := context.WithTimeout(ctx, p.cfg.PublishWait)
	defer cancel()

	if _, err := p.js.Publish(pubCtx, subject, data); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("failed to publish relay event")
		return
	}

	log.Debug().
		Str("subject", subject).
		Str("event_id", ev.ID).
		Msg("event relayed")
}

// Close shuts down the NATS connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
