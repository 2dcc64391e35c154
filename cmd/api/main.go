package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sandovabarbora/golemio-public-transportation/internal/config"
	"github.com/sandovabarbora/golemio-public-transportation/internal/monitoring"
	"github.com/sandovabarbora/golemio-public-transportation/internal/predictor"
	"github.com/sandovabarbora/golemio-public-transportation/internal/repository"
	"github.com/sandovabarbora/golemio-public-transportation/internal/server"
)

func main() {
	// Load base .env first, then .env.local (which overrides for local development)
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	cfg := config.Load()

	var repo repository.HistoryRepository
	var statsRepo server.StatsRepository
	var err error

	// Postgres when DATABASE_URL is set, local SQLite otherwise
	if cfg.DatabaseURL != "" {
		log.Println("Connecting to PostgreSQL history database")
		repo, err = repository.NewPostgresRepository(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize PostgreSQL repository: %v", err)
		}
	} else {
		log.Printf("Connecting to SQLite database: %s", cfg.DatabasePath)
		sqliteRepo, serr := repository.NewSQLiteRepository(cfg.DatabasePath)
		if serr != nil {
			log.Fatalf("Failed to initialize SQLite repository: %v", serr)
		}
		repo = sqliteRepo
		statsRepo = sqliteRepo.Store()
	}
	defer repo.Close()

	log.Println("Database connection established")

	predCfg := predictor.DefaultConfig()
	predCfg.ConfidenceLevel = cfg.ConfidenceLevel

	metrics := monitoring.NewCollector()
	srv := server.NewServer(repo, statsRepo, predCfg, cfg.MinReliability, metrics)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if err := srv.Refresh(ctx); err != nil {
		log.Fatalf("Failed to build initial prediction session: %v", err)
	}
	session := srv.Current()
	log.Printf("Prediction session %s built over %d records", session.ID, session.RecordCount())

	allowedOrigins := []string{"http://localhost:5173"}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		allowedOrigins = strings.Split(origins, ",")
	}

	r := srv.Router(allowedOrigins)

	log.Printf("API server starting on :%s", cfg.Port)
	log.Println("Prediction endpoints:")
	log.Println("  GET /api/stops")
	log.Println("  GET /api/stops/{baseStopID}/prediction")
	log.Println("  GET /api/stops/{baseStopID}/predictions/short-term")
	log.Println("  GET /api/stops/{baseStopID}/predictions/weekly")
	log.Println("  GET /api/stops/{baseStopID}/next")
	log.Println("  GET /api/segments")
	log.Println("  GET /api/segments/{segmentID}/prediction")
	log.Println("  GET /api/segments/{segmentID}/predictions/short-term")
	log.Println("Statistics endpoints:")
	log.Println("  GET /api/events/impact")
	log.Println("  GET /api/delays/stats")
	log.Println("  GET /api/baselines/{baseStopID}")
	log.Println("Session:")
	log.Println("  GET  /api/session")
	log.Println("  POST /api/session/refresh")
	log.Println("Health:")
	log.Println("  GET /health (with database check)")

	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
