package cycle

import (
	"math"
	"sort"
)

// DefaultPeriodDuration is reported when no completed period exists.
const DefaultPeriodDuration = 5

// Regularity thresholds on the population standard deviation of cycle gaps.
const (
	HighlyRegularMaxStdDev   = 2.0
	NormalVariationMaxStdDev = 5.0
)

// Regularity classifies cycle-length variation.
type Regularity string

const (
	RegularityHigh      Regularity = "highly_regular"
	RegularityNormal    Regularity = "normal_variation"
	RegularityIrregular Regularity = "irregular"
)

// RegularityReport describes variation across the gaps used for the average.
type RegularityReport struct {
	Class     Regularity `json:"class"`
	StdDev    float64    `json:"std_dev"`
	Variation int        `json:"variation_days"` // ±days, rounded std-dev
	Gaps      []int      `json:"gaps"`
}

// ClassifyStdDev maps a standard deviation to a regularity class.
func ClassifyStdDev(stdDev float64) Regularity {
	switch {
	case stdDev < HighlyRegularMaxStdDev:
		return RegularityHigh
	case stdDev < NormalVariationMaxStdDev:
		return RegularityNormal
	default:
		return RegularityIrregular
	}
}

// ComputeRegularity reports regularity over the same gaps AverageCycleLength uses.
// Requires at least two gaps.
func ComputeRegularity(logs []CycleLog) (*RegularityReport, bool) {
	gaps := recentGaps(logs)
	if len(gaps) < 2 {
		return nil, false
	}

	mean := 0.0
	for _, g := range gaps {
		mean += float64(g)
	}
	mean /= float64(len(gaps))

	variance := 0.0
	for _, g := range gaps {
		variance += math.Pow(float64(g)-mean, 2)
	}
	variance /= float64(len(gaps))
	stdDev := math.Sqrt(variance)

	return &RegularityReport{
		Class:     ClassifyStdDev(stdDev),
		StdDev:    stdDev,
		Variation: roundHalfUp(stdDev),
		Gaps:      gaps,
	}, true
}

// periodDuration returns end-start+1 for a completed, well-formed period.
func periodDuration(l CycleLog) (int, bool) {
	start, ok := l.Start()
	if !ok {
		return 0, false
	}
	end, ok := l.End()
	if !ok || end.Before(start) {
		return 0, false
	}
	return daysBetween(start, end) + 1, true
}

// AveragePeriodDuration averages inclusive period length over completed logs.
func AveragePeriodDuration(logs []CycleLog) (int, bool) {
	total, count := 0, 0
	for _, l := range logs {
		if d, ok := periodDuration(l); ok {
			total += d
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return roundHalfUp(float64(total) / float64(count)), true
}

// HistoryPoint is one cycle in the ascending trend series.
type HistoryPoint struct {
	Date        string `json:"date"`
	CycleLength int    `json:"cycle_length"`
	Duration    *int   `json:"duration,omitempty"`
	Flow        Flow   `json:"flow"`
}

// Stats summarizes the log history for trend views.
type Stats struct {
	LogCount              int               `json:"log_count"`
	AverageCycleLength    int               `json:"average_cycle_length"`
	AveragePeriodDuration int               `json:"average_period_duration"`
	Regularity            *RegularityReport `json:"regularity,omitempty"`
	History               []HistoryPoint    `json:"history"`
}

// Summarize builds Stats from a descending log snapshot.
func Summarize(logs []CycleLog) Stats {
	stats := Stats{
		LogCount:              len(logs),
		AverageCycleLength:    AverageCycleLength(logs),
		AveragePeriodDuration: DefaultPeriodDuration,
		History:               history(logs),
	}
	if d, ok := AveragePeriodDuration(logs); ok {
		stats.AveragePeriodDuration = d
	}
	if r, ok := ComputeRegularity(logs); ok {
		stats.Regularity = r
	}
	return stats
}

// history returns ascending cycle points; the oldest log has no preceding
// start date and so contributes no point of its own.
func history(logs []CycleLog) []HistoryPoint {
	d := dated(logs)
	sort.SliceStable(d, func(i, j int) bool { return d[i].start.Before(d[j].start) })

	points := make([]HistoryPoint, 0, max(len(d)-1, 0))
	for i := 1; i < len(d); i++ {
		p := HistoryPoint{
			Date:        d[i].log.StartDate,
			CycleLength: daysBetween(d[i-1].start, d[i].start),
			Flow:        d[i].log.Flow,
		}
		if dur, ok := periodDuration(d[i].log); ok {
			p.Duration = &dur
		}
		points = append(points, p)
	}
	return points
}
