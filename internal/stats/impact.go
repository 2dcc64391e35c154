package stats

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/sandovabarbora/golemio-public-transportation/internal/transit"
)

// GroupStats summarizes departure delays for one day type.
type GroupStats struct {
	IsEvent bool
	Mean    float64
	Median  float64
	Max     float64
	Min     float64
	Std     float64
	Count   int
}

// HourlyStats summarizes delays for one (day type, hour of day) bucket.
type HourlyStats struct {
	IsEvent bool
	Hour    int
	Mean    float64
	Median  float64
	Std     float64
	Count   int
	DayType string
}

// ImpactResult compares delays on event days against regular days.
// TStatistic, PValue and EffectSize are nil when either group has fewer than
// two observations; callers must treat that as "insufficient data", never as
// "no effect".
type ImpactResult struct {
	Groups     []GroupStats
	TStatistic *float64
	PValue     *float64
	EffectSize *float64
	Hourly     []HourlyStats
}

// EventDates collects the set of calendar dates with at least one event.
func EventDates(events []transit.EventRecord) map[time.Time]bool {
	dates := make(map[time.Time]bool, len(events))
	for i := range events {
		dates[events[i].Date()] = true
	}
	return dates
}

// AnalyzeEventImpact tags each record as event/non-event by date membership
// and produces group summaries, Welch's t-test, Cohen's d and hourly stats.
func AnalyzeEventImpact(records []transit.StopTimeRecord, events []transit.EventRecord) ImpactResult {
	dates := EventDates(events)

	var eventDelays, regularDelays []float64
	hourly := make(map[[2]int][]float64) // key: {isEvent(0/1), hour}
	for i := range records {
		r := &records[i]
		dep := transit.NormalizeUTC(r.ScheduledDeparture)
		isEvent := dates[transit.DateOf(dep)]
		if isEvent {
			eventDelays = append(eventDelays, r.DepartureDelaySec)
		} else {
			regularDelays = append(regularDelays, r.DepartureDelaySec)
		}
		k := [2]int{0, dep.Hour()}
		if isEvent {
			k[0] = 1
		}
		hourly[k] = append(hourly[k], r.DepartureDelaySec)
	}

	res := ImpactResult{}
	for _, g := range []struct {
		isEvent bool
		delays  []float64
	}{{false, regularDelays}, {true, eventDelays}} {
		if len(g.delays) == 0 {
			continue
		}
		res.Groups = append(res.Groups, summarizeGroup(g.isEvent, g.delays))
	}

	res.TStatistic, res.PValue = welchTTest(eventDelays, regularDelays)
	res.EffectSize = cohensD(eventDelays, regularDelays)

	keys := make([][2]int, 0, len(hourly))
	for k := range hourly {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})
	for _, k := range keys {
		delays := hourly[k]
		h := HourlyStats{
			IsEvent: k[0] == 1,
			Hour:    k[1],
			Mean:    stat.Mean(delays, nil),
			Median:  median(delays),
			Std:     sampleStd(delays),
			Count:   len(delays),
			DayType: "Regular Days",
		}
		if h.IsEvent {
			h.DayType = "Match Days"
		}
		res.Hourly = append(res.Hourly, h)
	}
	return res
}

func summarizeGroup(isEvent bool, delays []float64) GroupStats {
	g := GroupStats{
		IsEvent: isEvent,
		Mean:    stat.Mean(delays, nil),
		Median:  median(delays),
		Max:     delays[0],
		Min:     delays[0],
		Std:     sampleStd(delays),
		Count:   len(delays),
	}
	for _, d := range delays {
		g.Max = math.Max(g.Max, d)
		g.Min = math.Min(g.Min, d)
	}
	return g
}

// welchTTest runs a two-sample t-test with unequal variances. Returns nil
// statistics when either sample has fewer than two observations.
func welchTTest(a, b []float64) (tStat, pValue *float64) {
	if len(a) < 2 || len(b) < 2 {
		return nil, nil
	}
	meanA, varA := stat.MeanVariance(a, nil)
	meanB, varB := stat.MeanVariance(b, nil)
	na, nb := float64(len(a)), float64(len(b))

	se2 := varA/na + varB/nb
	if se2 == 0 {
		return nil, nil
	}
	t := (meanA - meanB) / math.Sqrt(se2)

	// Welch-Satterthwaite degrees of freedom.
	df := se2 * se2 / ((varA/na)*(varA/na)/(na-1) + (varB/nb)*(varB/nb)/(nb-1))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := 2 * dist.CDF(-math.Abs(t))
	return &t, &p
}

// cohensD computes the effect size with pooled standard deviation.
func cohensD(a, b []float64) *float64 {
	if len(a) < 2 || len(b) < 2 {
		return nil
	}
	meanA, varA := stat.MeanVariance(a, nil)
	meanB, varB := stat.MeanVariance(b, nil)
	pooled := math.Sqrt((varA + varB) / 2)
	if pooled == 0 {
		return nil
	}
	d := (meanA - meanB) / pooled
	return &d
}

func median(xs []float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// sampleStd is the n-1 denominator standard deviation, 0 for a single
// observation.
func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}
