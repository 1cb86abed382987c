package config

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// AdapterConfig configures the telemetry adapter binary.
type AdapterConfig struct {
	Prometheus PrometheusConfig `yaml:"prometheus"`
	Core       CoreConfig       `yaml:"core"`
	Server     ServerConfig     `yaml:"server"`
	Partners   []PartnerConfig  `yaml:"partners"`
}

// PrometheusConfig points at the metrics backend.
type PrometheusConfig struct {
	Address      string `yaml:"address"`
	QueryTimeout string `yaml:"query_timeout"`
}

// CoreConfig points at the SLA core's ingest endpoint.
type CoreConfig struct {
	BaseURL         string `yaml:"base_url"`
	IngestTimeout   string `yaml:"ingest_timeout"`
	CollectInterval string `yaml:"collect_interval"`
}

// ServerConfig is the adapter's own HTTP surface.
type ServerConfig struct {
	BindAddr string `yaml:"bind_addr"`
}

// PartnerConfig identifies one monitored partner and the label used to scope
// its PromQL queries.
type PartnerConfig struct {
	PartnerID string `yaml:"partner_id"`
	Tier      string `yaml:"tier"`
	Label     string `yaml:"label"` // value of the partner label in metrics
}

// LoadConfig reads the adapter YAML config, falling back to defaults when the
// file is absent.
func LoadConfig(configPath string) (*AdapterConfig, error) {
	if configPath == "" {
		configPath = "config/telemetry_adapter.yml"
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Msg("Config file not found, using default configuration")
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg AdapterConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	applyDefaults(&cfg)
	log.Info().Str("config_file", configPath).Int("partner_count", len(cfg.Partners)).
		Msg("Configuration loaded successfully")
	return &cfg, nil
}

func defaultConfig() *AdapterConfig {
	cfg := &AdapterConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AdapterConfig) {
	if cfg.Prometheus.Address == "" {
		cfg.Prometheus.Address = "http://localhost:9090"
	}
	if cfg.Prometheus.QueryTimeout == "" {
		cfg.Prometheus.QueryTimeout = "30s"
	}
	if cfg.Core.BaseURL == "" {
		cfg.Core.BaseURL = "http://localhost:8080"
	}
	if cfg.Core.IngestTimeout == "" {
		cfg.Core.IngestTimeout = "10s"
	}
	if cfg.Core.CollectInterval == "" {
		cfg.Core.CollectInterval = "30s"
	}
	if cfg.Server.BindAddr == "" {
		cfg.Server.BindAddr = ":9999"
	}
}

// ParseDuration parses s, falling back to d on empty or malformed input.
func ParseDuration(s string, d time.Duration) time.Duration {
	if s == "" {
		return d
	}
	if v, err := time.ParseDuration(s); err == nil {
		return v
	}
	return d
}
