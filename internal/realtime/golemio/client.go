// Package golemio polls the Golemio GTFS-RT trip updates feed and appends
// observed stop departures to the history store.
package golemio

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"google.golang.org/protobuf/proto"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"

	"github.com/sandovabarbora/golemio-public-transportation/internal/config"
	"github.com/sandovabarbora/golemio-public-transportation/internal/db"
	"github.com/sandovabarbora/golemio-public-transportation/internal/stats"
	"github.com/sandovabarbora/golemio-public-transportation/internal/transit"
)

// PollerMetrics is the slice of the metrics collector the poller needs;
// nil disables instrumentation.
type PollerMetrics interface {
	RowsIngestedAdd(n int)
	RowsSkippedAdd(n int)
	ObservePoll(started time.Time)
}

// Poller handles real-time polling of the Golemio trip updates feed
type Poller struct {
	db      *db.DB
	cfg     *config.Config
	client  *http.Client
	metrics PollerMetrics
	learner *stats.BaselineLearner
}

// NewPoller creates a new trip updates poller. learner may be nil to skip
// baseline maintenance.
func NewPoller(database *db.DB, cfg *config.Config, m PollerMetrics, learner *stats.BaselineLearner) *Poller {
	return &Poller{
		db:  database,
		cfg: cfg,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		metrics: m,
		learner: learner,
	}
}

// Poll fetches the trip updates feed and appends new observations
func (p *Poller) Poll(ctx context.Context) error {
	started := time.Now()
	if p.metrics != nil {
		defer p.metrics.ObservePoll(started)
	}

	feed, err := p.fetchFeed(ctx, p.cfg.GolemioTripUpdates)
	if err != nil {
		return fmt.Errorf("failed to fetch trip updates: %w", err)
	}

	records := RecordsFromFeed(feed)
	if len(records) == 0 {
		log.Println("Golemio: no stop time updates found")
		return nil
	}

	watermark, err := p.db.Watermark(ctx)
	if err != nil {
		return fmt.Errorf("failed to read watermark: %w", err)
	}

	inserted, err := p.db.InsertStopTimes(ctx, records)
	if err != nil {
		return fmt.Errorf("failed to write stop times: %w", err)
	}
	if p.metrics != nil {
		p.metrics.RowsIngestedAdd(inserted)
		p.metrics.RowsSkippedAdd(len(records) - inserted)
	}

	if inserted > 0 {
		// Only rows past the previous watermark were actually stored
		var fresh []transit.StopTimeRecord
		for i := range records {
			if records[i].ScheduledDeparture.After(watermark) {
				fresh = append(fresh, records[i])
			}
		}

		if err := p.db.UpdateDelayStats(ctx, fresh); err != nil {
			// Non-fatal: raw rows are already stored
			log.Printf("Golemio: failed to update delay stats: %v", err)
		}
		if p.learner != nil {
			if err := p.learner.Observe(ctx, fresh); err != nil {
				log.Printf("Golemio: failed to update baselines: %v", err)
			}
		}
	}

	log.Printf("Golemio: polled %d stop time updates, %d new", len(records), inserted)
	return nil
}

// RecordsFromFeed converts a GTFS-RT feed into stop time records. Updates
// without a predicted departure time and delay are dropped; the scheduled
// departure is reconstructed as predicted time minus delay.
func RecordsFromFeed(feed *gtfs.FeedMessage) []transit.StopTimeRecord {
	var records []transit.StopTimeRecord
	for _, entity := range feed.Entity {
		if entity.TripUpdate == nil {
			continue
		}

		tripUpdate := entity.TripUpdate
		if tripUpdate.Trip == nil || tripUpdate.Trip.TripId == nil {
			continue
		}
		tripID := *tripUpdate.Trip.TripId

		var routeShortName string
		if tripUpdate.Trip.RouteId != nil {
			routeShortName = *tripUpdate.Trip.RouteId
		}
		var directionID int
		if tripUpdate.Trip.DirectionId != nil {
			directionID = int(*tripUpdate.Trip.DirectionId)
		}

		for _, stu := range tripUpdate.StopTimeUpdate {
			if stu.StopId == nil || stu.Departure == nil ||
				stu.Departure.Time == nil || stu.Departure.Delay == nil {
				continue
			}

			depDelay := float64(*stu.Departure.Delay)
			predicted := time.Unix(*stu.Departure.Time, 0).UTC()
			scheduled := predicted.Add(-time.Duration(depDelay) * time.Second)

			rec := transit.StopTimeRecord{
				TripID:             tripID,
				StopID:             *stu.StopId,
				BaseStopID:         transit.BaseStopID(*stu.StopId),
				ScheduledDeparture: scheduled,
				DepartureDelaySec:  depDelay,
				RouteShortName:     routeShortName,
				DirectionID:        directionID,
			}
			if stu.StopSequence != nil {
				rec.StopSequence = int(*stu.StopSequence)
			}

			if stu.Arrival != nil && stu.Arrival.Delay != nil {
				arrDelay := float64(*stu.Arrival.Delay)
				rec.ArrivalDelaySec = &arrDelay
				if stu.Arrival.Time != nil {
					arrPredicted := time.Unix(*stu.Arrival.Time, 0).UTC()
					rec.ScheduledArrival = arrPredicted.Add(-time.Duration(arrDelay) * time.Second)
				}
			}

			records = append(records, rec)
		}
	}
	return records
}

// fetchFeed fetches a GTFS-RT feed from the given URL
func (p *Poller) fetchFeed(ctx context.Context, url string) (*gtfs.FeedMessage, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if p.cfg.GolemioToken != "" {
		req.Header.Set("X-Access-Token", p.cfg.GolemioToken)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	feed := &gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, feed); err != nil {
		return nil, fmt.Errorf("failed to parse protobuf: %w", err)
	}

	return feed, nil
}
