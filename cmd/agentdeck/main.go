package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ferrova/agentdeck/internal/api"
	"github.com/ferrova/agentdeck/internal/config"
	"github.com/ferrova/agentdeck/internal/events"
	"github.com/ferrova/agentdeck/internal/notify"
	"github.com/ferrova/agentdeck/internal/probe"
	"github.com/ferrova/agentdeck/internal/registry"
	"github.com/ferrova/agentdeck/internal/workflow"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Starting AgentDeck...")

	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/agentdeck.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", cfgPath))

	// Agent registry with flap-debounce threshold from config
	reg := registry.New(cfg.Probe.Threshold, logger)

	// Workflow catalog, optionally backed by PostgreSQL
	catalog := workflow.NewCatalog(logger)

	var store *workflow.Store
	if cfg.Database.Postgres.DSN != "" {
		s, pgErr := workflow.NewStore(cfg.Database.Postgres.DSN, logger)
		if pgErr != nil {
			logger.Warn("PostgreSQL unavailable, workflows are in-memory only", zap.Error(pgErr))
		} else {
			if mErr := s.Migrate(context.Background(), "migrations"); mErr != nil {
				logger.Fatal("migration failed", zap.Error(mErr))
			}
			store = s
		}
	}

	// Seed first so persisted state supersedes it.
	if cfg.Workflows != "" {
		if err := catalog.LoadSeed(cfg.Workflows); err != nil {
			logger.Warn("workflow seed not loaded", zap.String("path", cfg.Workflows), zap.Error(err))
		}
	}
	if store != nil {
		items, loadErr := store.ListWorkflows(context.Background())
		if loadErr != nil {
			logger.Warn("failed to load workflows from DB", zap.Error(loadErr))
		} else {
			for _, item := range items {
				catalog.Restore(item.Definition, item.Activated)
			}
			logger.Info("Loaded workflows from DB", zap.Int("count", len(items)))
		}
		catalog.SetPersister(store)
	}

	// Liveness event stream
	var bus *events.Bus
	if cfg.Database.Redis.URL != "" {
		b, busErr := events.NewBus(cfg.Database.Redis.URL, logger)
		if busErr != nil {
			logger.Warn("Redis unavailable, liveness events disabled", zap.Error(busErr))
		} else {
			bus = b
		}
	}

	// Readiness alert notifiers
	hub := notify.NewHub(logger)
	if cfg.Notify.Slack.Enabled && cfg.Notify.Slack.BotToken != "" {
		hub.Register(notify.NewSlackNotifier(cfg.Notify.Slack.BotToken, cfg.Notify.Slack.Channel, logger))
	}
	if cfg.Notify.Discord.Enabled && cfg.Notify.Discord.BotToken != "" {
		dn, dErr := notify.NewDiscordNotifier(cfg.Notify.Discord.BotToken, cfg.Notify.Discord.ChannelID, logger)
		if dErr != nil {
			logger.Warn("Discord notifier unavailable", zap.Error(dErr))
		} else {
			hub.Register(dn)
		}
	}
	alerter := notify.NewAlerter(catalog, reg, hub, logger)

	// Health prober: every debounced transition fans out to the event stream
	// and triggers a readiness recheck.
	prober := probe.New(reg,
		time.Duration(cfg.Probe.IntervalSec)*time.Second,
		time.Duration(cfg.Probe.TimeoutSec)*time.Second,
		cfg.Probe.MaxInFlight,
		logger)
	prober.OnTransition(func(tr registry.Transition) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if bus != nil {
			ev := &events.LivenessEvent{
				Agent:   tr.Agent.Descriptor.Name,
				BaseURL: tr.Agent.Descriptor.BaseURL,
				From:    string(tr.From),
				To:      string(tr.To),
				At:      time.Now(),
			}
			if pubErr := bus.PublishTransition(ctx, ev); pubErr != nil {
				logger.Warn("liveness event not published", zap.Error(pubErr))
			}
		}
		alerter.Recheck(ctx)
	})
	prober.Start()

	// Build HTTP handler
	handler := api.NewHandler(reg, catalog, prober, logger)

	port := fmt.Sprintf("%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("AgentDeck listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down AgentDeck...")
	prober.Stop()
	srv.Shutdown(context.Background())
	if bus != nil {
		bus.Close()
	}
	if store != nil {
		store.Close()
	}
	hub.Close()
}
