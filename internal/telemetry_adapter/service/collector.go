package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/scholarpath/slaops/internal/telemetry_adapter/config"
)

// MetricSource answers the instant queries the collector issues per partner.
type MetricSource interface {
	QueryScalar(ctx context.Context, query string, ts time.Time) (float64, bool, error)
}

// snapshotPayload mirrors the core's ingest body.
type snapshotPayload struct {
	PartnerID       string    `json:"partnerId"`
	Tier            string    `json:"tier"`
	Timestamp       time.Time `json:"timestamp"`
	LatencyP50Ms    float64   `json:"latencyP50Ms"`
	LatencyP95Ms    float64   `json:"latencyP95Ms"`
	LatencyP99Ms    float64   `json:"latencyP99Ms"`
	Availability    float64   `json:"availability"`
	ErrorRate       float64   `json:"errorRate"`
	ThroughputRPS   float64   `json:"throughputRps"`
	ConcurrentConns int       `json:"concurrentConns"`
	TransferRateMbs float64   `json:"transferRateMbs"`
}

// Collector polls Prometheus for each configured partner and forwards the
// resulting snapshots to the SLA core's ingest endpoint.
type Collector struct {
	source     MetricSource
	httpClient *http.Client
	coreBase   string
	partners   []config.PartnerConfig
	interval   time.Duration
}

// NewCollector wires a collector from config.
func NewCollector(source MetricSource, cfg *config.AdapterConfig) *Collector {
	return &Collector{
		source:     source,
		httpClient: &http.Client{Timeout: config.ParseDuration(cfg.Core.IngestTimeout, 10*time.Second)},
		coreBase:   strings.TrimSuffix(cfg.Core.BaseURL, "/"),
		partners:   cfg.Partners,
		interval:   config.ParseDuration(cfg.Core.CollectInterval, 30*time.Second),
	}
}

// Start polls until ctx is cancelled. The first round runs immediately.
func (c *Collector) Start(ctx context.Context) {
	t := time.NewTicker(c.interval)
	defer t.Stop()
	if err := c.CollectOnce(ctx); err != nil {
		log.Error().Err(err).Msg("collection round failed on startup")
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := c.CollectOnce(ctx); err != nil {
				log.Error().Err(err).Msg("collection round failed")
			}
		}
	}
}

// CollectOnce gathers and forwards one snapshot per configured partner.
// Per-partner failures are logged and do not abort the round.
func (c *Collector) CollectOnce(ctx context.Context) error {
	if len(c.partners) == 0 {
		log.Debug().Msg("no partners configured, skipping collection round")
		return nil
	}
	now := time.Now().UTC()
	forwarded := 0
	for _, p := range c.partners {
		snap, err := c.collectPartner(ctx, p, now)
		if err != nil {
			log.Error().Err(err).Str("partner", p.PartnerID).Msg("failed to collect partner metrics")
			continue
		}
		if err := c.forward(ctx, snap); err != nil {
			log.Error().Err(err).Str("partner", p.PartnerID).Msg("failed to forward snapshot")
			continue
		}
		forwarded++
	}
	log.Info().Int("partner_count", len(c.partners)).Int("forwarded", forwarded).
		Msg("collection round completed")
	return nil
}

func (c *Collector) collectPartner(ctx context.Context, p config.PartnerConfig, ts time.Time) (*snapshotPayload, error) {
	label := p.Label
	if label == "" {
		label = p.PartnerID
	}
	snap := &snapshotPayload{PartnerID: p.PartnerID, Tier: p.Tier, Timestamp: ts}

	avail, availFound, err := c.source.QueryScalar(ctx, fmt.Sprintf(`sla:availability:ratio{partner=%q} * 100`, label), ts)
	if err != nil {
		return nil, err
	}
	if availFound {
		snap.Availability = avail
	} else {
		// a partner with no availability series reports as fully available;
		// the core applies the same no-data default for uptime windows
		snap.Availability = 100
	}

	queries := []struct {
		dest *float64
		expr string
	}{
		{&snap.LatencyP50Ms, fmt.Sprintf(`histogram_quantile(0.50, sum(rate(http_request_duration_seconds_bucket{partner=%q}[5m])) by (le)) * 1000`, label)},
		{&snap.LatencyP95Ms, fmt.Sprintf(`histogram_quantile(0.95, sum(rate(http_request_duration_seconds_bucket{partner=%q}[5m])) by (le)) * 1000`, label)},
		{&snap.LatencyP99Ms, fmt.Sprintf(`histogram_quantile(0.99, sum(rate(http_request_duration_seconds_bucket{partner=%q}[5m])) by (le)) * 1000`, label)},
		{&snap.ErrorRate, fmt.Sprintf(`sum(rate(http_requests_total{partner=%q,code=~"5.."}[5m])) / sum(rate(http_requests_total{partner=%q}[5m])) * 100`, label, label)},
		{&snap.ThroughputRPS, fmt.Sprintf(`sum(rate(http_requests_total{partner=%q}[5m]))`, label)},
		{&snap.TransferRateMbs, fmt.Sprintf(`sum(rate(http_response_size_bytes_sum{partner=%q}[5m])) / 125000`, label)},
	}
	for _, q := range queries {
		val, found, err := c.source.QueryScalar(ctx, q.expr, ts)
		if err != nil {
			return nil, err
		}
		if found {
			*q.dest = val
		}
	}
	if conns, found, err := c.source.QueryScalar(ctx, fmt.Sprintf(`sum(http_active_connections{partner=%q})`, label), ts); err == nil && found {
		snap.ConcurrentConns = int(conns)
	}
	return snap, nil
}

func (c *Collector) forward(ctx context.Context, snap *snapshotPayload) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.coreBase+"/v1/snapshots", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("core ingest status %d", resp.StatusCode)
	}
	return nil
}
