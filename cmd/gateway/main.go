// cmd/gateway/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"basin-gateway/internal/actuators"
	"basin-gateway/internal/alerting"
	"basin-gateway/internal/api"
	"basin-gateway/internal/auth"
	"basin-gateway/internal/config"
	"basin-gateway/internal/data"
	"basin-gateway/internal/generator"
	"basin-gateway/internal/ingest"
	"basin-gateway/internal/mqttfeed"
	"basin-gateway/internal/state"
	"basin-gateway/internal/storage"
	"basin-gateway/internal/websocket"
)

func main() {
	configPath := flag.String("config", ".", "Path to the configuration file directory")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Unable to load configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Storage backend (with fallback) ---
	store, err := storage.Open(ctx, cfg, generator.SeedHistory)
	if err != nil {
		log.Fatalf("Storage init failed: %v", err)
	}
	log.Printf("Storage backend ready: %+v", store.Info(ctx))

	// --- Persisted operator state ---
	thresholds := state.NewFile[data.Thresholds](filepath.Join(cfg.Storage.Dir, "thresholds.json"))
	if err := thresholds.SeedIfAbsent(data.DefaultThresholds()); err != nil {
		log.Fatalf("Seeding thresholds: %v", err)
	}
	alerts := alerting.NewLog(filepath.Join(cfg.Storage.Dir, "alerts.json"))
	controller := actuators.NewController(
		filepath.Join(cfg.Storage.Dir, "actuators.json"),
		filepath.Join(cfg.Storage.Dir, "logs", "actuators.log"),
	)
	if err := controller.Init(); err != nil {
		log.Fatalf("Actuator state init failed: %v", err)
	}

	// --- Sessions ---
	sessions := newSessionManager(cfg)

	// --- Live feed + ingestion pipeline ---
	hub := websocket.NewHub()
	go hub.Run()
	pipeline := ingest.NewPipeline(store, thresholds, alerts, hub)

	// --- Ingest ports ---
	var bus api.BusStatus
	if cfg.MQTT.Enabled {
		subscriber := mqttfeed.NewSubscriber(
			cfg.MQTT.Broker, cfg.MQTT.Topic, cfg.MQTT.ClientID,
			time.Duration(cfg.MQTT.ReconnectSeconds)*time.Second, pipeline,
		)
		subscriber.Start()
		defer subscriber.Stop()
		bus = subscriber
	}

	if cfg.Metrics.GeneratorEnabled {
		sampler := ingest.NewSampler(pipeline, time.Duration(cfg.Metrics.SampleIntervalSeconds)*time.Second)
		go sampler.Run(ctx)
	}

	// --- HTTP server ---
	handler := api.NewHandler(pipeline, thresholds, alerts, controller, sessions, hub, bus)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: api.NewRouter(handler),
	}

	go func() {
		log.Printf("Starting basin gateway on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
	log.Println("Gateway stopped.")
}

func newSessionManager(cfg *config.Config) *auth.Manager {
	if len(cfg.Auth.Users) == 0 {
		log.Println("Warning: no users configured, mutating endpoints will reject every request")
	}
	return auth.NewManager(cfg.Auth.Users, cfg.Auth.CookieName)
}
