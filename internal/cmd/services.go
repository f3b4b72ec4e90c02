package main

import (
	"database/sql"
	"fmt"

	"github.com/quizbid/quizbid/internal/auction"
	"github.com/quizbid/quizbid/internal/gateway"
	"github.com/quizbid/quizbid/internal/ledger"
	"github.com/quizbid/quizbid/internal/question"
	"github.com/quizbid/quizbid/internal/relay"
	"github.com/quizbid/quizbid/internal/team"
)

type Services struct {
	Questions  *question.Repository
	Ledger     *ledger.Repository
	Teams      *team.Repository
	Controller *auction.Controller
	Hub        *gateway.Hub

	// Set when relay mode is "publish" / "mirror" respectively.
	RelayPublisher *relay.Publisher
	RelayConsumer  *relay.Consumer
}

// setupServices wires the primary node: repositories feed the auction
// controller, the controller broadcasts into the gateway hub (and the
// NATS relay when enabled), and the hub routes client commands back
// into the controller.
func setupServices(database *sql.DB, cfg *Config) (*Services, error) {
	questionRepo := question.NewRepository(database)
	ledgerRepo := ledger.NewRepository(database)
	teamRepo := team.NewRepository(database)

	hub := gateway.NewHub(nil, gateway.DefaultConnectionConfig())

	broadcaster := auction.Broadcaster(hub)
	var publisher *relay.Publisher
	if cfg.Relay.Mode == RelayModePublish {
		pubCfg := relay.DefaultPublisherConfig()
		pubCfg.URL = cfg.Relay.URL
		pubCfg.StreamName = cfg.Relay.Stream

		var err error
		publisher, err = relay.NewPublisher(pubCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create relay publisher: %w", err)
		}
		broadcaster = auction.MultiBroadcaster(hub, publisher)
	}

	controller := auction.NewController(questionRepo, ledgerRepo, broadcaster)
	hub.SetController(controller)

	return &Services{
		Questions:      questionRepo,
		Ledger:         ledgerRepo,
		Teams:          teamRepo,
		Controller:     controller,
		Hub:            hub,
		RelayPublisher: publisher,
	}, nil
}

// setupMirrorServices wires a rebroadcast-only node: no database, no
// controller. The relay consumer feeds a state-tracking mirror and the
// hub; clients connecting here see the same events and snapshots but
// cannot bid.
func setupMirrorServices(cfg *Config) (*Services, error) {
	mirror := relay.NewMirror()
	hub := gateway.NewHub(mirror, gateway.DefaultConnectionConfig())

	consCfg := relay.DefaultConsumerConfig()
	consCfg.URL = cfg.Relay.URL
	consCfg.StreamName = cfg.Relay.Stream

	consumer, err := relay.NewConsumer(auction.MultiBroadcaster(mirror, hub), consCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create relay consumer: %w", err)
	}

	return &Services{
		Hub:           hub,
		RelayConsumer: consumer,
	}, nil
}
