package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"incidentdesk/internal/catalog"
	"incidentdesk/internal/config"
	"incidentdesk/internal/db"
	"incidentdesk/internal/messages"
	"incidentdesk/internal/mqtt"
	"incidentdesk/internal/orchestrator"
	"incidentdesk/internal/report"
	"incidentdesk/internal/session"
	"incidentdesk/internal/slots"
	"incidentdesk/internal/ticket"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("load .env failed", "error", err)
	}

	cfg, err := config.LoadIncidentServerConfig()
	if err != nil {
		logger.Error("load config failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	texts, err := messages.Load(cfg.MessagesFile)
	if err != nil {
		logger.Error("load messages failed", "error", err)
		os.Exit(1)
	}

	searcher, err := catalog.NewElasticSearcher(catalog.ElasticConfig{
		Host:     cfg.ElasticHost,
		Username: cfg.ElasticUser,
		Password: cfg.ElasticPassword,
		Index:    cfg.ElasticIndex,
		Timeout:  cfg.ElasticTimeout,
	})
	if err != nil {
		logger.Error("init catalog search failed", "error", err)
		os.Exit(1)
	}
	kb := catalog.NewClient(searcher, catalog.Config{RetryUnit: cfg.KBRetryUnit}, logger)

	tickets := ticket.NewClient(ticket.Config{
		BaseURL: cfg.AirtableBaseURL,
		BaseID:  cfg.AirtableBaseID,
		APIKey:  cfg.AirtableAPIKey,
		Table:   cfg.AirtableTable,
		Timeout: cfg.TicketTimeout,
	})

	var archive report.Archiver
	var incidents incidentLister
	if cfg.DBDSN != "" {
		store, err := db.New(ctx, cfg.DBDSN)
		if err != nil {
			logger.Error("connect db failed", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			logger.Error("migrate db failed", "error", err)
			os.Exit(1)
		}
		archive = store
		incidents = store
		logger.Info("incident archive enabled")
	}

	sessions := session.NewRegistry(cfg.SessionIdleTTL)

	var publisher report.EventPublisher
	if cfg.MQTTBrokerURL != "" {
		hub := mqtt.NewHub(mqtt.HubConfig{
			BrokerURL:   cfg.MQTTBrokerURL,
			ClientID:    cfg.MQTTClientID,
			Username:    cfg.MQTTUsername,
			Password:    cfg.MQTTPassword,
			TopicPrefix: cfg.MQTTTopicPrefix,
		}, sessions, logger)
		if err := hub.Start(ctx); err != nil {
			logger.Error("start mqtt hub failed", "error", err)
			os.Exit(1)
		}
		publisher = hub
		logger.Info("incident events enabled", "topic_prefix", cfg.MQTTTopicPrefix)
	}

	submitter := report.NewSubmitter(tickets, archive, publisher, logger)
	validator := slots.NewValidator(kb, logger)
	orch := orchestrator.New(sessions, validator, submitter, texts, logger)

	go sweepSessions(ctx, sessions, logger)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           newRouter(orch, incidents, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("incident server started", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("received shutdown signal")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
}

func sweepSessions(ctx context.Context, sessions *session.Registry, logger *slog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := sessions.Sweep(now); n > 0 {
				logger.Info("idle sessions dropped", "count", n, "remaining", sessions.Len())
			}
		}
	}
}
