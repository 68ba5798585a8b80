package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"pricewatch/internal/pricing"
)

// CommoditySummary carries the per-commodity dashboard row.
type CommoditySummary struct {
	Commodity  string
	Prevailing decimal.Decimal
	SRP        decimal.Decimal
	Average    decimal.Decimal
	Count      int
}

// LocationAverage carries the per-municipality mean price.
type LocationAverage struct {
	Municipality string
	Average      decimal.Decimal
	Count        int
}

// SeriesPoint is one calendar day of the mean-price trend.
type SeriesPoint struct {
	Date    time.Time
	Average decimal.Decimal
	Count   int
}

// Extremes holds the highest- and lowest-priced observations. Highest is
// ordered by descending price, Lowest by ascending price.
type Extremes struct {
	Highest []pricing.Observation
	Lowest  []pricing.Observation
}

// ComplianceCounts summarizes SRP compliance over the latest observation per
// commodity.
type ComplianceCounts struct {
	Compliant    int
	NonCompliant int
}

// Mover is a (commodity, store) pair ranked by its most recent price change.
type Mover struct {
	Commodity string
	Store     string
	Previous  decimal.Decimal
	Latest    decimal.Decimal
	Delta     decimal.Decimal
	MovedAt   time.Time
}

// group keeps partition members in first-seen order so aggregate output is
// identical across calls regardless of map iteration.
type group struct {
	key string
	obs []pricing.Observation
}

func groupBy(obs []pricing.Observation, key func(pricing.Observation) string) []group {
	index := make(map[string]int, len(obs))
	groups := make([]group, 0, len(obs))
	for _, o := range obs {
		k := key(o)
		i, ok := index[k]
		if !ok {
			index[k] = len(groups)
			groups = append(groups, group{key: k})
			i = len(groups) - 1
		}
		groups[i].obs = append(groups[i].obs, o)
	}
	return groups
}

func meanPrice(obs []pricing.Observation) decimal.Decimal {
	if len(obs) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, o := range obs {
		sum = sum.Add(o.Price)
	}
	return sum.Div(decimal.NewFromInt(int64(len(obs)))).Round(2)
}

func capLen[T any](items []T, k int) []T {
	if k > 0 && len(items) > k {
		return items[:k]
	}
	return items
}

// SummarizeByCommodity partitions observations by commodity and computes each
// group's prevailing price (against the group's own SRP), mean price, and
// count. Groups are ordered by descending count; topK > 0 caps the result.
func SummarizeByCommodity(obs []pricing.Observation, topK int) []CommoditySummary {
	groups := groupBy(obs, pricing.Observation.CommodityLabel)

	summaries := make([]CommoditySummary, 0, len(groups))
	for _, g := range groups {
		summaries = append(summaries, CommoditySummary{
			Commodity:  g.key,
			Prevailing: pricing.PrevailingFor(g.obs),
			SRP:        pricing.GroupSRP(g.obs),
			Average:    meanPrice(g.obs),
			Count:      len(g.obs),
		})
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Count > summaries[j].Count
	})
	return capLen(summaries, topK)
}

// PriceExtremes returns the n highest- and n lowest-priced observations from
// the set. Fewer than n observations yield shorter lists, never padding.
func PriceExtremes(obs []pricing.Observation, n int) Extremes {
	if n <= 0 || len(obs) == 0 {
		return Extremes{}
	}

	sorted := make([]pricing.Observation, len(obs))
	copy(sorted, obs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Price.GreaterThan(sorted[j].Price)
	})

	if n > len(sorted) {
		n = len(sorted)
	}

	highest := make([]pricing.Observation, n)
	copy(highest, sorted[:n])

	lowest := make([]pricing.Observation, n)
	for i, o := range sorted[len(sorted)-n:] {
		lowest[n-1-i] = o
	}

	return Extremes{Highest: highest, Lowest: lowest}
}

// AverageByLocation partitions by municipality and computes mean price and
// count per group, ordered by descending count and capped to topK when
// positive.
func AverageByLocation(obs []pricing.Observation, topK int) []LocationAverage {
	groups := groupBy(obs, pricing.Observation.MunicipalityLabel)

	averages := make([]LocationAverage, 0, len(groups))
	for _, g := range groups {
		averages = append(averages, LocationAverage{
			Municipality: g.key,
			Average:      meanPrice(g.obs),
			Count:        len(g.obs),
		})
	}
	sort.SliceStable(averages, func(i, j int) bool {
		return averages[i].Count > averages[j].Count
	})
	return capLen(averages, topK)
}

// DailyAverages buckets observations by calendar day (UTC) and returns the
// mean price per day in chronological order.
func DailyAverages(obs []pricing.Observation) []SeriesPoint {
	groups := groupBy(obs, func(o pricing.Observation) string {
		return o.Timestamp.UTC().Format("2006-01-02")
	})

	series := make([]SeriesPoint, 0, len(groups))
	for _, g := range groups {
		ts := g.obs[0].Timestamp.UTC()
		day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		series = append(series, SeriesPoint{
			Date:    day,
			Average: meanPrice(g.obs),
			Count:   len(g.obs),
		})
	}
	sort.SliceStable(series, func(i, j int) bool {
		return series[i].Date.Before(series[j].Date)
	})
	return series
}

// LatestPerCommodity reduces the set to each commodity's most recent
// observation. Equal timestamps resolve to the later record in input order.
func LatestPerCommodity(obs []pricing.Observation) []pricing.Observation {
	index := make(map[string]int, len(obs))
	latest := make([]pricing.Observation, 0)
	for _, o := range obs {
		k := o.CommodityLabel()
		i, ok := index[k]
		if !ok {
			index[k] = len(latest)
			latest = append(latest, o)
			continue
		}
		if !o.Timestamp.Before(latest[i].Timestamp) {
			latest[i] = o
		}
	}
	return latest
}

// Compliance classifies each commodity's latest observation against its SRP.
func Compliance(obs []pricing.Observation) ComplianceCounts {
	var counts ComplianceCounts
	for _, o := range LatestPerCommodity(obs) {
		if o.Compliant() {
			counts.Compliant++
		} else {
			counts.NonCompliant++
		}
	}
	return counts
}

// movers computes the latest-minus-previous delta for every (commodity,
// store) pair with at least two observations.
func movers(obs []pricing.Observation) []Mover {
	type pair struct {
		latest   pricing.Observation
		previous pricing.Observation
		depth    int
	}
	index := make(map[string]int, len(obs))
	pairs := make([]*pair, 0)

	for _, o := range obs {
		k := o.CommodityLabel() + "\x00" + o.StoreLabel()
		i, ok := index[k]
		if !ok {
			index[k] = len(pairs)
			pairs = append(pairs, &pair{latest: o, depth: 1})
			continue
		}
		p := pairs[i]
		switch {
		case !o.Timestamp.Before(p.latest.Timestamp):
			p.previous, p.latest = p.latest, o
			p.depth++
		case p.depth < 2 || !o.Timestamp.Before(p.previous.Timestamp):
			p.previous = o
			p.depth++
		}
	}

	out := make([]Mover, 0, len(pairs))
	for _, p := range pairs {
		if p.depth < 2 {
			continue
		}
		out = append(out, Mover{
			Commodity: p.latest.CommodityLabel(),
			Store:     p.latest.StoreLabel(),
			Previous:  p.previous.Price,
			Latest:    p.latest.Price,
			Delta:     p.latest.Price.Sub(p.previous.Price),
			MovedAt:   p.latest.Timestamp,
		})
	}
	return out
}

// TopMovers ranks (commodity, store) pairs by the signed change between their
// two most recent observations. Increases and decreases are independent
// lists; a flat pair appears in neither.
func TopMovers(obs []pricing.Observation, k int) (increases, decreases []Mover) {
	for _, m := range movers(obs) {
		switch m.Delta.Sign() {
		case 1:
			increases = append(increases, m)
		case -1:
			decreases = append(decreases, m)
		}
	}
	sort.SliceStable(increases, func(i, j int) bool {
		return increases[i].Delta.GreaterThan(increases[j].Delta)
	})
	sort.SliceStable(decreases, func(i, j int) bool {
		return decreases[i].Delta.LessThan(decreases[j].Delta)
	})
	return capLen(increases, k), capLen(decreases, k)
}
