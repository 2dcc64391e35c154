package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/sandovabarbora/golemio-public-transportation/internal/transit"
)

// DefaultStopsURL is the Golemio GTFS stops endpoint.
const DefaultStopsURL = "https://api.golemio.cz/v2/gtfs/stops"

// StopsFetcher retrieves stop metadata from the Golemio API and folds the
// directional stop variants into base-stop clusters.
type StopsFetcher struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewStopsFetcher creates a fetcher for the given endpoint and access token.
func NewStopsFetcher(baseURL, token string) *StopsFetcher {
	if baseURL == "" {
		baseURL = DefaultStopsURL
	}
	return &StopsFetcher{
		baseURL: baseURL,
		token:   token,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// stopsResponse mirrors the GeoJSON feature collection returned by the API.
type stopsResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"` // lon, lat
		} `json:"geometry"`
		Properties struct {
			StopID   string `json:"stop_id"`
			StopName string `json:"stop_name"`
		} `json:"properties"`
	} `json:"features"`
}

// FetchStops queries the API for the named stops and aggregates the result
// into one StopMetadata per base stop with averaged coordinates.
func (f *StopsFetcher) FetchStops(ctx context.Context, names []string) ([]transit.StopMetadata, error) {
	q := url.Values{}
	for _, name := range names {
		q.Add("names[]", name)
	}
	q.Set("offset", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("X-Access-Token", f.token)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stops: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stops endpoint returned HTTP %d", resp.StatusCode)
	}

	var payload stopsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode stops response: %w", err)
	}

	return aggregateStops(payload), nil
}

// aggregateStops merges raw directional stops into base-stop clusters.
func aggregateStops(payload stopsResponse) []transit.StopMetadata {
	type cluster struct {
		name     string
		sumLat   float64
		sumLon   float64
		rawStops []string
	}
	clusters := make(map[string]*cluster)

	for _, feat := range payload.Features {
		props := feat.Properties
		if props.StopID == "" || len(feat.Geometry.Coordinates) < 2 {
			continue
		}
		baseID := transit.BaseStopID(props.StopID)
		c, ok := clusters[baseID]
		if !ok {
			c = &cluster{name: props.StopName}
			clusters[baseID] = c
		}
		c.sumLon += feat.Geometry.Coordinates[0]
		c.sumLat += feat.Geometry.Coordinates[1]
		c.rawStops = append(c.rawStops, props.StopID)
	}

	ids := make([]string, 0, len(clusters))
	for id := range clusters {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]transit.StopMetadata, 0, len(ids))
	for _, id := range ids {
		c := clusters[id]
		n := float64(len(c.rawStops))
		sort.Strings(c.rawStops)
		out = append(out, transit.StopMetadata{
			BaseStopID: id,
			Name:       c.name,
			Latitude:   c.sumLat / n,
			Longitude:  c.sumLon / n,
			RawStopIDs: c.rawStops,
		})
	}
	return out
}
