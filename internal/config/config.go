package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

type Config struct {
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	Logging    LoggingConfig    `json:"logging"`
	Redis      RedisConfig      `json:"redis"`
	Sla        SlaConfig        `json:"sla"`
	Escalation EscalationConfig `json:"escalation"`
	Notify     NotifyConfig     `json:"notify"`
}

type ServerConfig struct {
	BindAddr string `json:"bindAddr"`
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

// DSN formats the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type LoggingConfig struct {
	Level string `json:"level"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type SlaConfig struct {
	TargetsFile string `json:"targetsFile"` // optional YAML catalog
	SnapshotCap int    `json:"snapshotCap"`
	Resync      string `json:"resync"`        // e.g. "10s"
	AlertChSize int    `json:"alertChanSize"` // breach alert channel buffer
}

type EscalationConfig struct {
	RulesFile string `json:"rulesFile"` // optional YAML catalog
}

type NotifyConfig struct {
	QueueSize    int    `json:"queueSize"`
	MaxAttempts  int    `json:"maxAttempts"`
	BaseBackoff  string `json:"baseBackoff"`  // e.g. "500ms"
	ExecDedupTTL string `json:"execDedupTTL"` // e.g. "1h"
}

func Load() (*Config, error) {
	configFile := flag.String("f", "", "Path to configuration file")
	flag.Parse()

	cfg := &Config{
		Server: ServerConfig{
			BindAddr: getEnv("SERVER_BIND_ADDR", "0.0.0.0:8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "password"),
			DBName:   getEnv("DB_NAME", "slaops"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "debug"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Sla: SlaConfig{
			TargetsFile: getEnv("SLA_TARGETS_FILE", ""),
			SnapshotCap: getEnvInt("SLA_SNAPSHOT_CAP", 1000),
			Resync:      getEnv("SLA_RESYNC_INTERVAL", "10s"),
			AlertChSize: getEnvInt("SLA_ALERT_CHAN_SIZE", 1024),
		},
		Escalation: EscalationConfig{
			RulesFile: getEnv("ESCALATION_RULES_FILE", ""),
		},
		Notify: NotifyConfig{
			QueueSize:    getEnvInt("NOTIFY_QUEUE_SIZE", 1024),
			MaxAttempts:  getEnvInt("NOTIFY_MAX_ATTEMPTS", 3),
			BaseBackoff:  getEnv("NOTIFY_BASE_BACKOFF", "500ms"),
			ExecDedupTTL: getEnv("NOTIFY_EXEC_DEDUP_TTL", "1h"),
		},
	}

	if *configFile != "" {
		if err := loadFromFile(cfg, *configFile); err != nil {
			log.Err(err)
			return nil, err
		}
	}

	// fill reasonable defaults when fields omitted in file
	if cfg.Server.BindAddr == "" {
		cfg.Server.BindAddr = "0.0.0.0:8080"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Sla.SnapshotCap == 0 {
		cfg.Sla.SnapshotCap = 1000
	}
	if cfg.Sla.Resync == "" {
		cfg.Sla.Resync = "10s"
	}
	if cfg.Sla.AlertChSize == 0 {
		cfg.Sla.AlertChSize = 1024
	}
	if cfg.Notify.QueueSize == 0 {
		cfg.Notify.QueueSize = 1024
	}
	if cfg.Notify.MaxAttempts == 0 {
		cfg.Notify.MaxAttempts = 3
	}
	if cfg.Notify.BaseBackoff == "" {
		cfg.Notify.BaseBackoff = "500ms"
	}
	if cfg.Notify.ExecDedupTTL == "" {
		cfg.Notify.ExecDedupTTL = "1h"
	}

	return cfg, nil
}

func loadFromFile(cfg *Config, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filePath, err)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
