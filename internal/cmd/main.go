package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var services *Services
	if cfg.Relay.Mode == RelayModeMirror {
		services, err = setupMirrorServices(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to set up mirror services")
		}
	} else {
		database, err := setupDatabase()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to set up database")
		}
		defer database.Close()

		services, err = setupServices(database, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to set up services")
		}
	}

	go services.Hub.Start(ctx)

	if services.RelayPublisher != nil {
		defer services.RelayPublisher.Close()
		go services.RelayPublisher.Start(ctx)
	}
	if services.RelayConsumer != nil {
		defer services.RelayConsumer.Close()
		go func() {
			if err := services.RelayConsumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("relay consumer failed")
			}
		}()
	}

	server := setupServer(cfg, services)
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("relay_mode", cfg.Relay.Mode).
			Msg("quizbid server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}
}
