package main

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/scholarpath/slaops/internal/config"
	"github.com/scholarpath/slaops/internal/middleware"
	slaapi "github.com/scholarpath/slaops/internal/sla/api"
	"github.com/scholarpath/slaops/internal/sla/cache"
	sdb "github.com/scholarpath/slaops/internal/sla/database"
	"github.com/scholarpath/slaops/internal/sla/service/escalation"
	"github.com/scholarpath/slaops/internal/sla/service/monitor"
	"github.com/scholarpath/slaops/internal/sla/service/notify"
	"github.com/scholarpath/slaops/internal/sla/service/registry"
)

func main() {
	log.Info().Msg("Starting slaops api server")
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// configure log level from config
	switch strings.ToLower(cfg.Logging.Level) {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn", "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	// optional persistence; the core runs with in-memory state when the
	// database is unavailable
	var db *sdb.Database
	if d, derr := sdb.New(cfg.Database.DSN()); derr == nil {
		db = d
		defer db.Close()
	} else {
		log.Error().Err(derr).Msg("database init failed; running without persistence")
	}
	rdb := newRedisFromConfig(&cfg.Redis)

	// SLA target registry: file catalog or compiled-in defaults
	var reg *registry.Registry
	if cfg.Sla.TargetsFile != "" {
		reg, err = registry.LoadTargetsFile(cfg.Sla.TargetsFile)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load SLA targets")
		}
	} else {
		reg = registry.Default()
	}

	// escalation rule catalog
	var engine *escalation.RuleEngine
	if cfg.Escalation.RulesFile != "" {
		engine, err = escalation.LoadRulesFile(cfg.Escalation.RulesFile)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load escalation rules")
		}
	} else {
		engine = escalation.DefaultEngine()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stateCache := cache.New(rdb)
	dispatcher := notify.NewDispatcher(notify.LogSink{}, rdb, notify.Options{
		QueueSize:    cfg.Notify.QueueSize,
		MaxAttempts:  cfg.Notify.MaxAttempts,
		BaseBackoff:  parseDuration(cfg.Notify.BaseBackoff, 500*time.Millisecond),
		ExecDedupTTL: parseDuration(cfg.Notify.ExecDedupTTL, time.Hour),
	})
	go dispatcher.Start(ctx)

	store := monitor.NewSnapshotStore(cfg.Sla.SnapshotCap)
	alertCh := make(chan monitor.AlertMessage, cfg.Sla.AlertChSize)
	breaches := monitor.NewBreachManager(sdb.NewBreachRepo(db), stateCache, alertCh)
	reports := monitor.NewReportBuilder(reg, store, breaches)
	tickets := escalation.NewManager(engine, dispatcher, sdb.NewTicketRepo(db), stateCache)

	go monitor.StartScheduler(ctx, monitor.Deps{
		Store:    store,
		Registry: reg,
		Breaches: breaches,
		Resync:   parseDuration(cfg.Sla.Resync, 10*time.Second),
	})
	go escalation.NewConsumer(tickets).Start(ctx, alertCh)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.Authentication)
	slaapi.New(router, reg, store, breaches, reports, tickets)

	log.Info().Msgf("Starting server on %s", cfg.Server.BindAddr)
	if err := router.Run(cfg.Server.BindAddr); err != nil {
		log.Fatal().Err(err).Msg("start slaops api server failed.")
	}
	log.Info().Msg("slaops api server exit...")
}

func newRedisFromConfig(c *config.RedisConfig) *redis.Client {
	if c == nil || c.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	})
}

func parseDuration(s string, d time.Duration) time.Duration {
	if s == "" {
		return d
	}
	if v, err := time.ParseDuration(s); err == nil {
		return v
	}
	return d
}
