package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sandovabarbora/golemio-public-transportation/internal/config"
	"github.com/sandovabarbora/golemio-public-transportation/internal/db"
	"github.com/sandovabarbora/golemio-public-transportation/internal/monitoring"
	"github.com/sandovabarbora/golemio-public-transportation/internal/realtime/golemio"
	"github.com/sandovabarbora/golemio-public-transportation/internal/stats"
)

func main() {
	log.Println("Starting delay history poller...")

	_ = godotenv.Load(".env")

	cfg := config.Load()
	log.Printf("Config loaded: poll_interval=%v, retention=%v", cfg.PollInterval, cfg.RetentionDuration)

	database, err := db.Connect(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("Failed to ensure database schema: %v", err)
	}
	log.Println("Database initialized")

	metrics := monitoring.NewCollector()
	metricsSrv := metrics.Serve(cfg.MetricsAddr)
	defer metricsSrv.Close()

	learner := stats.NewBaselineLearner(database)
	poller := golemio.NewPoller(database, cfg, metrics, learner)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initial poll immediately
	log.Println("Running initial poll...")
	pollOnce(ctx, poller)

	go func() {
		ticker := time.NewTicker(cfg.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				pollOnce(ctx, poller)
			case <-ctx.Done():
				log.Println("Polling loop stopped")
				return
			}
		}
	}()

	// Daily retention cleanup goroutine
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := database.Cleanup(ctx, cfg.RetentionDuration); err != nil {
					log.Printf("Cleanup error: %v", err)
				}
			case <-ctx.Done():
				log.Println("Cleanup loop stopped")
				return
			}
		}
	}()

	log.Printf("Poller running (poll every %v, retain %v)", cfg.PollInterval, cfg.RetentionDuration)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Println("Shutting down...")
	cancel()

	// Give goroutines time to finish
	time.Sleep(100 * time.Millisecond)
	log.Println("Goodbye!")
}

func pollOnce(ctx context.Context, poller *golemio.Poller) {
	if err := poller.Poll(ctx); err != nil {
		log.Printf("Poll error: %v", err)
	}
}
