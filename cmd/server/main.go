package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smpte-tc/server/internal/api"
	"github.com/smpte-tc/server/internal/config"
	"github.com/smpte-tc/server/internal/emitter"
	"github.com/smpte-tc/server/internal/metrics"
	"github.com/smpte-tc/server/internal/session"
	"github.com/smpte-tc/server/internal/transport"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	host := flag.String("host", "", "Override server host")
	port := flag.Int("port", 0, "Override server port")
	noStatus := flag.Bool("no-status", false, "Disable periodic status reporting")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *noStatus {
		cfg.Status.Enabled = false
	}

	mets := metrics.New()
	hub := transport.NewHub(mets)
	registry := session.NewRegistry(hub, mets)
	handler := transport.NewHandler(registry, hub, mets)

	var mirror *emitter.MQTTEmitter
	if cfg.MQTT.Broker != "" {
		mirror, err = emitter.Connect(cfg.MQTT)
		if err != nil {
			log.Fatalf("Failed to connect MQTT mirror: %v", err)
		}
		registry.SetMirror(mirror)
	}

	tcpServer := transport.NewTCPServer(hub, handler, registry)
	wsHandler := transport.NewWSHandler(hub, handler, registry)
	apiServer := api.New(registry, mets, wsHandler, cfg.Server.Host, cfg.Server.Port)

	httpAddr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	go func() {
		log.Printf("Status API listening on %s", httpAddr)
		if err := http.ListenAndServe(httpAddr, apiServer.Router()); err != nil {
			log.Fatalf("API server error: %v", err)
		}
	}()

	if cfg.Status.Enabled {
		go reportStatus(registry, cfg.Status.Interval)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Received shutdown signal")
		registry.Shutdown()
		tcpServer.Close()
		mirror.Close()
		log.Println("SMPTE Timecode Server stopped")
		os.Exit(0)
	}()

	log.Printf("Supported framerates: 23.976, 24, 29.97, 30, 50, 59.94, 60")
	if err := tcpServer.ListenAndServe(cfg.Server.Host, cfg.Server.Port); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// reportStatus logs a one-line summary whenever there is activity.
func reportStatus(registry *session.Registry, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		sessions, clients := registry.Counts()
		if sessions > 0 || clients > 0 {
			log.Printf("Status: %d clients, %d sessions", clients, sessions)
		}
	}
}
