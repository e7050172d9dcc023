package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Saturate/YellowLabTools/internal/controller"
	"github.com/Saturate/YellowLabTools/internal/engine"
	"github.com/Saturate/YellowLabTools/internal/loader"
	"github.com/Saturate/YellowLabTools/internal/pkg/security"
	"github.com/Saturate/YellowLabTools/internal/server"
	"github.com/Saturate/YellowLabTools/internal/session"
	"github.com/Saturate/YellowLabTools/internal/storage"
)

func main() {
	// Command-line flags
	port := flag.Int("port", 8090, "HTTP port to listen on")
	resultsURL := flag.String("results", "", "YellowLab API base URL (overrides the stored config)")
	resultsAuth := flag.String("results-auth", "", "Authorization header sent to the YellowLab API")
	dataDir := flag.String("data", "./data", "Directory for the result archive and stats")
	metaPath := flag.String("meta", "", "Encrypted metadata file (default <data>/meta.db)")
	retentionStr := flag.String("retention", "", "Archive retention, e.g. 720h (overrides the stored config)")
	settle := flag.Duration("settle", 100*time.Millisecond, "Delay before profiler rows are populated")
	sessionTTL := flag.Duration("session-ttl", 30*time.Minute, "Idle time after which a dashboard session is dropped")
	flag.Parse()

	if err := os.MkdirAll(*dataDir, 0755); err != nil {
		log.Fatalf("Failed to create data dir: %v", err)
	}
	if *metaPath == "" {
		*metaPath = filepath.Join(*dataDir, "meta.db")
	}

	log.Println("YellowLab timeline service starting...")

	// 1. Metadata
	key, created, err := security.LoadOrCreateKey(filepath.Join(*dataDir, "master.key"))
	if err != nil {
		log.Fatalf("Failed to load master key: %v", err)
	}
	if created {
		log.Printf("Generated a new master key. Set %s to manage it yourself.", security.MasterKeyEnv)
	}
	cipher, err := security.NewCipher(key)
	if err != nil {
		log.Fatalf("Invalid master key: %v", err)
	}

	metaStore := controller.NewStore(*metaPath, cipher, controller.Config{
		Retention:  "720h",
		ResultsURL: "https://yellowlab.tools",
	})
	if err := metaStore.Load(); err != nil {
		log.Fatalf("Failed to load metadata: %v", err)
	}
	if !metaStore.IsInitialized() {
		log.Println("System not initialized. POST /api/system/init to create the first admin.")
	}

	cfg := metaStore.Config()
	if *resultsURL != "" {
		cfg.ResultsURL = *resultsURL
	}
	if *retentionStr != "" {
		cfg.Retention = *retentionStr
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	retention, _ := time.ParseDuration(cfg.Retention)

	// 2. Archive
	archive, err := storage.OpenArchive(filepath.Join(*dataDir, "archive"))
	if err != nil {
		log.Fatalf("Failed to open archive: %v", err)
	}
	log.Printf("Archive opened. Data: %s, Retention: %v", *dataDir, retention)

	upstream := loader.NewHTTPLoader(cfg.ResultsURL)
	upstream.Auth = *resultsAuth
	resultLoader := &loader.ArchiveLoader{Archive: archive, Upstream: upstream}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go archive.RunCleaner(ctx, retention, time.Hour)

	// 3. Sessions and stats
	sessions := session.NewStore()
	sessions.StartCleanupLoop(ctx, time.Minute, *sessionTTL)

	stats := engine.NewStats(engine.LoadPersistentStats(*dataDir))

	// 4. HTTP server
	srv, err := server.NewTimelineServer(metaStore, sessions, resultLoader, upstream, stats, *settle)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	addr := fmt.Sprintf(":%d", *port)

	go func() {
		log.Printf("Listening on %s, results from %s", addr, cfg.ResultsURL)
		if err := srv.Start(addr); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	// 5. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("Received signal: %v. Shutting down...", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	cancel()

	if err := engine.SavePersistentStats(*dataDir, stats.Snapshot()); err != nil {
		log.Printf("Failed to save stats: %v", err)
	}
	if err := archive.Close(); err != nil {
		log.Printf("Failed to close archive: %v", err)
	}

	log.Println("Timeline service exited gracefully.")
}
