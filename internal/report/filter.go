package report

import (
	"time"

	"pricewatch/internal/pricing"
)

// DateRange selects a rolling observation window relative to "now".
type DateRange string

const (
	RangeAllTime    DateRange = "all"
	RangeLast30Days DateRange = "30d"
	RangeLast90Days DateRange = "90d"
)

// Filter narrows the observation set before aggregation. Empty string fields
// mean "all". When Month or Year is set, the rolling Range is ignored
// entirely; the explicit calendar selection wins.
type Filter struct {
	Commodity    string
	Store        string
	Municipality string
	Month        *time.Month
	Year         *int
	Range        DateRange
	// Now anchors the rolling ranges. Zero means time.Now at call time,
	// which callers should avoid in tests.
	Now time.Time
}

// Apply returns the observations passing the filter, preserving input order.
// The input slice is never mutated.
func (f Filter) Apply(obs []pricing.Observation) []pricing.Observation {
	cutoff, useCutoff := f.cutoff()

	out := make([]pricing.Observation, 0, len(obs))
	for _, o := range obs {
		if f.Commodity != "" && o.CommodityLabel() != f.Commodity {
			continue
		}
		if f.Store != "" && o.StoreLabel() != f.Store {
			continue
		}
		if f.Municipality != "" && o.MunicipalityLabel() != f.Municipality {
			continue
		}
		if f.Month != nil || f.Year != nil {
			if f.Month != nil && o.Timestamp.Month() != *f.Month {
				continue
			}
			if f.Year != nil && o.Timestamp.Year() != *f.Year {
				continue
			}
		} else if useCutoff && o.Timestamp.Before(cutoff) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func (f Filter) cutoff() (time.Time, bool) {
	var days int
	switch f.Range {
	case RangeLast30Days:
		days = 30
	case RangeLast90Days:
		days = 90
	default:
		return time.Time{}, false
	}
	now := f.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return now.AddDate(0, 0, -days), true
}
