package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sandovabarbora/golemio-public-transportation/internal/stats"
	"github.com/sandovabarbora/golemio-public-transportation/internal/transit"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	database, err := Connect(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("failed to ensure schema: %v", err)
	}
	return database
}

func testRecord(tripID string, seq int, dep time.Time, delay float64) transit.StopTimeRecord {
	return transit.StopTimeRecord{
		TripID:             tripID,
		StopID:             "U1Z1",
		BaseStopID:         "U1",
		StopSequence:       seq,
		ScheduledDeparture: dep,
		DepartureDelaySec:  delay,
		RouteShortName:     "22",
	}
}

func TestInsertStopTimesWatermark(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	wm, err := database.Watermark(ctx)
	if err != nil {
		t.Fatalf("watermark on empty store: %v", err)
	}
	if !wm.IsZero() {
		t.Errorf("empty store watermark = %v, expected zero", wm)
	}

	base := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	first := []transit.StopTimeRecord{
		testRecord("trip-1", 1, base, 60),
		testRecord("trip-1", 2, base.Add(2*time.Minute), 90),
	}
	inserted, err := database.InsertStopTimes(ctx, first)
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if inserted != 2 {
		t.Errorf("inserted = %d, expected 2", inserted)
	}

	wm, err = database.Watermark(ctx)
	if err != nil {
		t.Fatalf("watermark: %v", err)
	}
	if !wm.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("watermark = %v, expected %v", wm, base.Add(2*time.Minute))
	}

	// Rows at or before the watermark are skipped; only newer ones land
	second := []transit.StopTimeRecord{
		testRecord("trip-1", 2, base.Add(2*time.Minute), 90),
		testRecord("trip-2", 1, base.Add(5*time.Minute), 30),
	}
	inserted, err = database.InsertStopTimes(ctx, second)
	if err != nil {
		t.Fatalf("second insert failed: %v", err)
	}
	if inserted != 1 {
		t.Errorf("inserted = %d, expected 1 (stale row skipped)", inserted)
	}

	loaded, err := database.LoadStopTimes(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded) != 3 {
		t.Fatalf("loaded %d rows, expected 3", len(loaded))
	}
	// Ordered by (trip, sequence)
	if loaded[0].TripID != "trip-1" || loaded[0].StopSequence != 1 {
		t.Errorf("first loaded row = %+v", loaded[0])
	}
	if loaded[0].DepartureDelaySec != 60 {
		t.Errorf("delay round trip = %v, expected 60", loaded[0].DepartureDelaySec)
	}
	if !loaded[0].ScheduledDeparture.Equal(base) {
		t.Errorf("departure round trip = %v, expected %v", loaded[0].ScheduledDeparture, base)
	}
}

func TestEventsRoundTrip(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	kickoff := time.Date(2024, 8, 10, 19, 0, 0, 0, time.UTC)
	events := []transit.EventRecord{
		{Kickoff: kickoff, Opponent: "Slavia", IsHome: true},
		{Kickoff: kickoff.AddDate(0, 0, 7), Opponent: "Plzen", IsHome: false},
	}
	if err := database.UpsertEvents(ctx, events); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	// Upserting the same kickoff updates instead of duplicating
	events[0].Opponent = "Slavia Praha"
	if err := database.UpsertEvents(ctx, events[:1]); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	loaded, err := database.LoadEvents(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded %d events, expected 2", len(loaded))
	}
	if loaded[0].Opponent != "Slavia Praha" || !loaded[0].IsHome {
		t.Errorf("first event = %+v", loaded[0])
	}
	if !loaded[0].Kickoff.Equal(kickoff) {
		t.Errorf("kickoff round trip = %v, expected %v", loaded[0].Kickoff, kickoff)
	}
}

func TestStopsRoundTrip(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	stops := []transit.StopMetadata{
		{BaseStopID: "U1", Name: "Hradcanska", Latitude: 50.09, Longitude: 14.4, RawStopIDs: []string{"U1Z1", "U1Z2"}},
	}
	if err := database.UpsertStops(ctx, stops); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	loaded, err := database.LoadStops(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("loaded %d stops, expected 1", len(loaded))
	}
	s := loaded[0]
	if s.Name != "Hradcanska" || s.Latitude != 50.09 {
		t.Errorf("stop = %+v", s)
	}
	if len(s.RawStopIDs) != 2 || s.RawStopIDs[0] != "U1Z1" {
		t.Errorf("RawStopIDs = %v", s.RawStopIDs)
	}
}

func TestBaselineStore(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	// Missing bucket is nil, not an error
	b, err := database.GetBaseline(ctx, "U1", 8, 0)
	if err != nil {
		t.Fatalf("get on empty store: %v", err)
	}
	if b != nil {
		t.Errorf("expected nil for a missing bucket, got %+v", b)
	}

	saved := stats.DelayBaseline{
		BaseStopID: "U1", HourOfDay: 8, DayOfWeek: 0,
		DelayMean: 72.5, DelayStdDev: 14.2, SampleCount: 40,
	}
	if err := database.SaveBaseline(ctx, saved); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	b, err = database.GetBaseline(ctx, "U1", 8, 0)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if b == nil || b.DelayMean != 72.5 || b.SampleCount != 40 {
		t.Errorf("baseline round trip = %+v", b)
	}
}

func TestBaselineLearnerAgainstStore(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	// Monday 08:xx observations
	base := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	batch1 := []transit.StopTimeRecord{
		testRecord("t1", 1, base, 30),
		testRecord("t2", 1, base.Add(10*time.Minute), 60),
	}
	batch2 := []transit.StopTimeRecord{
		testRecord("t3", 1, base.Add(20*time.Minute), 90),
	}

	learner := stats.NewBaselineLearner(database)
	if err := learner.Observe(ctx, batch1); err != nil {
		t.Fatalf("first observe failed: %v", err)
	}
	if err := learner.Observe(ctx, batch2); err != nil {
		t.Fatalf("second observe failed: %v", err)
	}

	b, err := database.GetBaseline(ctx, "U1", 8, 0)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if b == nil {
		t.Fatal("expected a learned baseline")
	}
	if b.SampleCount != 3 {
		t.Errorf("SampleCount = %d, expected 3", b.SampleCount)
	}
	if b.DelayMean != 60 {
		t.Errorf("DelayMean = %v, expected 60", b.DelayMean)
	}
}

func TestUpdateDelayStats(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Hour)
	records := []transit.StopTimeRecord{
		testRecord("t1", 1, now.Add(5*time.Minute), 120),
		testRecord("t2", 1, now.Add(10*time.Minute), 400), // above the delayed threshold
	}
	if err := database.UpdateDelayStats(ctx, records); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	hourly, err := database.GetHourlyDelayStats(ctx, "U1", 24)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(hourly) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(hourly))
	}
	h := hourly[0]
	if h.ObservationCount != 2 {
		t.Errorf("ObservationCount = %d, expected 2", h.ObservationCount)
	}
	if h.DelayedCount != 1 || h.OnTimeCount != 1 {
		t.Errorf("delayed/on-time = %d/%d, expected 1/1", h.DelayedCount, h.OnTimeCount)
	}
	if h.DelayMean != 260 {
		t.Errorf("DelayMean = %v, expected 260", h.DelayMean)
	}
	if h.MaxDelaySeconds != 400 {
		t.Errorf("MaxDelaySeconds = %v, expected 400", h.MaxDelaySeconds)
	}
}

func TestCleanup(t *testing.T) {
	database := testDB(t)
	ctx := context.Background()

	old := time.Now().UTC().AddDate(0, 0, -60)
	recent := time.Now().UTC().Add(-time.Hour)
	if _, err := database.InsertStopTimes(ctx, []transit.StopTimeRecord{
		testRecord("old", 1, old, 30),
		testRecord("new", 1, recent, 30),
	}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if err := database.Cleanup(ctx, 30*24*time.Hour); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}

	loaded, err := database.LoadStopTimes(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(loaded) != 1 || loaded[0].TripID != "new" {
		t.Errorf("cleanup kept the wrong rows: %+v", loaded)
	}
}
