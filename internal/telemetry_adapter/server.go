package telemetryadapter

import (
	"context"
	"fmt"

	"github.com/fox-gonic/fox"
	"github.com/rs/zerolog/log"
	"github.com/scholarpath/slaops/internal/telemetry_adapter/api"
	"github.com/scholarpath/slaops/internal/telemetry_adapter/client"
	"github.com/scholarpath/slaops/internal/telemetry_adapter/config"
	"github.com/scholarpath/slaops/internal/telemetry_adapter/service"
)

// AdapterServer bundles the Prometheus client, the collector loop and the
// HTTP control surface.
type AdapterServer struct {
	config     *config.AdapterConfig
	promClient *client.PrometheusClient
	collector  *service.Collector
	api        *api.Api
	cancel     context.CancelFunc
}

func NewAdapterServer(cfg *config.AdapterConfig) (*AdapterServer, error) {
	promClient, err := client.NewPrometheusClient(cfg.Prometheus.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus client: %w", err)
	}

	collector := service.NewCollector(promClient, cfg)

	server := &AdapterServer{
		config:     cfg,
		promClient: promClient,
		collector:  collector,
	}

	log.Info().Str("prometheus_address", cfg.Prometheus.Address).
		Str("core_base_url", cfg.Core.BaseURL).
		Int("partner_count", len(cfg.Partners)).
		Msg("telemetry adapter initialized")
	return server, nil
}

// Start launches the background collection loop.
func (s *AdapterServer) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.collector.Start(ctx)
}

// UseApi registers the adapter routes on router.
func (s *AdapterServer) UseApi(router *fox.Engine) error {
	var err error
	s.api, err = api.NewApi(s.collector, s.config.Partners, router)
	if err != nil {
		return fmt.Errorf("failed to initialize API: %w", err)
	}
	return nil
}

// Close stops the collection loop.
func (s *AdapterServer) Close(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	log.Info().Msg("telemetry adapter shut down")
	return nil
}
