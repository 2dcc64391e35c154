package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/sandovabarbora/golemio-public-transportation/internal/config"
	"github.com/sandovabarbora/golemio-public-transportation/internal/forecast"
	"github.com/sandovabarbora/golemio-public-transportation/internal/monitoring"
	"github.com/sandovabarbora/golemio-public-transportation/internal/predictor"
	"github.com/sandovabarbora/golemio-public-transportation/internal/publisher"
	"github.com/sandovabarbora/golemio-public-transportation/internal/repository"
	"github.com/sandovabarbora/golemio-public-transportation/internal/transit"
)

func main() {
	// Command line flags
	dbPath := flag.String("db", "", "Path to SQLite database (overrides SQLITE_DATABASE)")
	stopID := flag.String("stop", "", "Base stop id to predict for (default: all stops)")
	weekly := flag.Bool("weekly", false, "Generate the weekly outlook instead of the short-term horizon")
	useModel := flag.Bool("model", false, "Use the trained tree ensemble instead of the statistical predictor")
	toNATS := flag.Bool("nats", false, "Publish results to NATS instead of stdout")
	flag.Parse()

	_ = godotenv.Load(".env")
	cfg := config.Load()
	if *dbPath == "" {
		*dbPath = cfg.DatabasePath
	}

	repo, err := repository.NewSQLiteRepository(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()
	records, err := repo.LoadStopTimes(ctx)
	if err != nil {
		log.Fatalf("Failed to load stop times: %v", err)
	}
	events, err := repo.LoadEvents(ctx)
	if err != nil {
		log.Fatalf("Failed to load events: %v", err)
	}
	log.Printf("Loaded %d records, %d events", len(records), len(events))

	predCfg := predictor.DefaultConfig()
	predCfg.ConfidenceLevel = cfg.ConfidenceLevel
	session := predictor.NewSession(predCfg, records, events)
	log.Printf("Session %s built", session.ID)

	stops := session.Delay.BaseStops()
	if *stopID != "" {
		stops = []string{*stopID}
	}

	if *useModel {
		runModel(records, events, stops, cfg)
		return
	}

	var pub *publisher.NATSPublisher
	if *toNATS {
		if cfg.NATSURL == "" {
			log.Fatal("NATS_URL is not set")
		}
		metrics := monitoring.NewCollector()
		pub, err = publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject, metrics)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer pub.Close()
	}

	now := time.Now().UTC()
	enc := json.NewEncoder(os.Stdout)

	for _, stop := range stops {
		var preds []predictor.Prediction
		if *weekly {
			preds = session.Delay.WeeklyPredictions(now, stop, nil, time.Hour, cfg.MinReliability)
		} else {
			preds = session.Delay.ShortTermPredictions(now, stop, nil,
				predictor.DefaultInterval, predictor.DefaultShortTermHorizon)
		}
		if len(preds) == 0 {
			continue
		}

		msg := publisher.PredictionMessage{
			SessionID:   session.ID,
			BaseStopID:  stop,
			Predictions: preds,
		}
		if pub != nil {
			if err := pub.PublishPredictions(msg); err != nil {
				log.Printf("Failed to publish %s: %v", stop, err)
			}
			continue
		}
		if err := enc.Encode(msg); err != nil {
			log.Fatalf("Failed to encode output: %v", err)
		}
	}
}

// runModel trains the tree ensemble on the trailing window and prints the
// short-term horizon per stop, plus the learned feature importances.
func runModel(records []transit.StopTimeRecord, events []transit.EventRecord, stops []string, cfg *config.Config) {
	modelCfg := forecast.DefaultModelConfig()
	modelCfg.ConfidenceLevel = cfg.ConfidenceLevel

	model, err := forecast.TrainWithDateRange(modelCfg, records, events, time.Now().UTC())
	if err != nil {
		log.Fatalf("Failed to train model: %v", err)
	}
	log.Printf("Model trained on %d samples (window %s to %s)",
		model.Samples, model.WindowStart.Format(time.RFC3339), model.WindowEnd.Format(time.RFC3339))

	enc := json.NewEncoder(os.Stdout)
	now := time.Now().UTC()

	for _, stop := range stops {
		preds := model.PredictHorizon(now, stop,
			predictor.DefaultInterval, predictor.DefaultShortTermHorizon)
		out := struct {
			BaseStopID  string                     `json:"baseStopId"`
			Predictions []forecast.ModelPrediction `json:"predictions"`
		}{BaseStopID: stop, Predictions: preds}
		if err := enc.Encode(out); err != nil {
			log.Fatalf("Failed to encode output: %v", err)
		}
	}

	if err := enc.Encode(model.FeatureImportances()); err != nil {
		log.Fatalf("Failed to encode importances: %v", err)
	}
}
