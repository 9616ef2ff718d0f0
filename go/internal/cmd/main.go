package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hooplab/draftroom/go/internal/draft/bus"
	"github.com/hooplab/draftroom/go/internal/draft/engine"
	"github.com/hooplab/draftroom/go/internal/draft/gateway"
	"github.com/hooplab/draftroom/go/internal/draft/pick"
	"github.com/hooplab/draftroom/go/internal/draft/service"
	"github.com/hooplab/draftroom/go/internal/draft/settings"
	"github.com/hooplab/draftroom/go/internal/player"
	"github.com/hooplab/draftroom/go/internal/teams"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	config, err := loadConfig(getEnv("CONFIG_PATH", ""))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := setupDatabase()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Change bus: NATS when configured, in-process otherwise.
	var changeBus bus.Bus
	if config.NATS.URL != "" {
		natsCfg := bus.DefaultNATSConfig()
		natsCfg.URL = config.NATS.URL
		changeBus, err = bus.ConnectNATS(natsCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to NATS")
		}
		log.Info().Str("url", config.NATS.URL).Msg("using NATS change bus")
	} else {
		changeBus = bus.NewInProcess()
		log.Info().Msg("using in-process change bus")
	}
	defer changeBus.Close()

	settingsRepo := settings.NewRepository(db)
	pickRepo := pick.NewRepository(db)
	teamsRepo := teams.NewRepository(db)
	playerRepo := player.NewRepository(db)

	session := engine.NewSession()
	draftEngine := engine.New(session, settingsRepo, pickRepo, teamsRepo, playerRepo, changeBus)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	listener := engine.NewListener(draftEngine, changeBus)
	go func() {
		if err := listener.Run(ctx); err != nil {
			log.Error().Err(err).Msg("draft change listener failed")
		}
	}()

	gatewayCfg := gateway.DefaultConfig()
	gatewayCfg.PingInterval = time.Duration(config.Gateway.PingIntervalSec) * time.Second
	hub := gateway.NewHub(gatewayCfg)
	go hub.Run(ctx)

	pickClock := gateway.NewPickClock(hub, clockwork.NewRealClock())
	go pickClock.Run(ctx)

	broadcaster := gateway.NewBroadcaster(draftEngine, changeBus, hub, settingsRepo, pickClock)
	go func() {
		if err := broadcaster.Run(ctx); err != nil {
			log.Error().Err(err).Msg("gateway broadcaster failed")
		}
	}()

	draftService := service.NewDraftService(draftEngine, hub, settingsRepo, changeBus)
	server := setupServer(config, draftService, gateway.NewHandler(hub))

	go func() {
		log.Info().Str("addr", server.Addr).Msg("draft room server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server failed")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}
