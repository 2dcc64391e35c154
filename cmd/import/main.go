package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/sandovabarbora/golemio-public-transportation/internal/config"
	"github.com/sandovabarbora/golemio-public-transportation/internal/db"
	"github.com/sandovabarbora/golemio-public-transportation/internal/ingest"
	"github.com/sandovabarbora/golemio-public-transportation/internal/stats"
)

func main() {
	// Command line flags
	dbPath := flag.String("db", "", "Path to SQLite database (overrides SQLITE_DATABASE)")
	stopTimesPath := flag.String("stop-times", "", "Path to stop times CSV export")
	eventsPath := flag.String("events", "", "Path to match schedule CSV (semicolon separated)")
	fetchStops := flag.Bool("fetch-stops", false, "Fetch stop metadata from the Golemio API for imported stops")
	flag.Parse()

	_ = godotenv.Load(".env")
	cfg := config.Load()
	if *dbPath == "" {
		*dbPath = cfg.DatabasePath
	}

	if *stopTimesPath == "" && *eventsPath == "" {
		log.Fatal("Nothing to import: provide -stop-times and/or -events")
	}

	database, err := db.Connect(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	log.Printf("Connected to database: %s", *dbPath)

	ctx := context.Background()
	if err := database.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	if *stopTimesPath != "" {
		importStopTimes(ctx, database, cfg, *stopTimesPath, *fetchStops)
	}

	if *eventsPath != "" {
		importEvents(ctx, database, *eventsPath)
	}
}

func importStopTimes(ctx context.Context, database *db.DB, cfg *config.Config, path string, fetchStops bool) {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open stop times file: %v", err)
	}
	defer f.Close()

	records, err := ingest.ParseStopTimes(f)
	if err != nil {
		log.Fatalf("Failed to parse stop times: %v", err)
	}
	log.Printf("Parsed %d stop time rows from %s", len(records), path)

	inserted, err := database.InsertStopTimes(ctx, records)
	if err != nil {
		log.Fatalf("Failed to insert stop times: %v", err)
	}
	log.Printf("Inserted %d new rows (%d skipped as stale or duplicate)", inserted, len(records)-inserted)

	if inserted > 0 {
		if err := database.UpdateDelayStats(ctx, records); err != nil {
			log.Printf("Warning: failed to update hourly delay stats: %v", err)
		}
		learner := stats.NewBaselineLearner(database)
		if err := learner.Observe(ctx, records); err != nil {
			log.Printf("Warning: failed to update baselines: %v", err)
		}
	}

	if fetchStops {
		names := make(map[string]bool)
		for i := range records {
			if records[i].StopName != "" {
				names[records[i].StopName] = true
			}
		}
		var unique []string
		for name := range names {
			unique = append(unique, name)
		}

		fetcher := ingest.NewStopsFetcher(cfg.GolemioStopsURL, cfg.GolemioToken)
		stops, err := fetcher.FetchStops(ctx, unique)
		if err != nil {
			log.Printf("Warning: failed to fetch stop metadata: %v", err)
			return
		}
		if err := database.UpsertStops(ctx, stops); err != nil {
			log.Printf("Warning: failed to store stop metadata: %v", err)
			return
		}
		log.Printf("Stored metadata for %d stops", len(stops))
	}
}

func importEvents(ctx context.Context, database *db.DB, path string) {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("Failed to open events file: %v", err)
	}
	defer f.Close()

	events, err := ingest.ParseEvents(f)
	if err != nil {
		log.Fatalf("Failed to parse events: %v", err)
	}
	log.Printf("Parsed %d events from %s", len(events), path)

	if err := database.UpsertEvents(ctx, events); err != nil {
		log.Fatalf("Failed to upsert events: %v", err)
	}
	log.Printf("SUCCESS: %d events stored", len(events))
}
