package main

import (
	"flag"
	"os"

	"github.com/fox-gonic/fox"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	telemetryadapter "github.com/scholarpath/slaops/internal/telemetry_adapter"
	"github.com/scholarpath/slaops/internal/telemetry_adapter/config"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	configPath := flag.String("f", "", "config file path")
	flag.Parse()

	log.Info().Msg("Starting telemetry adapter")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if addr := os.Getenv("ADAPTER_BIND_ADDR"); addr != "" {
		cfg.Server.BindAddr = addr
	}

	adapter, err := telemetryadapter.NewAdapterServer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create telemetry adapter")
	}

	router := fox.New()
	if err := adapter.UseApi(router); err != nil {
		log.Fatal().Err(err).Msg("Failed to setup API routes")
	}

	adapter.Start()

	log.Info().Msgf("Starting telemetry adapter on %s", cfg.Server.BindAddr)
	if err := router.Run(cfg.Server.BindAddr); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}
