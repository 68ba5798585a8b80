package report

import (
	"github.com/shopspring/decimal"

	"pricewatch/internal/pricing"
)

// Overview carries the headline dashboard figures.
type Overview struct {
	TotalRecords   int
	Commodities    int
	Establishments int
	// AvgPriceShift is the mean latest-minus-previous delta across all
	// (commodity, store) pairs with at least two observations.
	AvgPriceShift decimal.Decimal
}

// CommodityStats summarizes a single commodity for the trend view.
type CommodityStats struct {
	Prevailing decimal.Decimal
	Average    decimal.Decimal
	Lowest     decimal.Decimal
	Highest    decimal.Decimal
	Count      int
}

// Limits carries the per-operation top-K configuration.
type Limits struct {
	TopCommodities int
	ExtremeCount   int
	TopLocations   int
	TopMovers      int
}

// Dashboard bundles every aggregate the reporting surface renders for one
// filter configuration.
type Dashboard struct {
	Overview    Overview
	Commodities []CommoditySummary
	Extremes    Extremes
	Locations   []LocationAverage
	Trend       []SeriesPoint
	Compliance  ComplianceCounts
	Increases   []Mover
	Decreases   []Mover
}

// BuildOverview computes the headline figures over an observation set.
func BuildOverview(obs []pricing.Observation) Overview {
	commodities := make(map[string]struct{})
	stores := make(map[string]struct{})
	for _, o := range obs {
		commodities[o.CommodityLabel()] = struct{}{}
		stores[o.StoreLabel()] = struct{}{}
	}

	shift := decimal.Zero
	if ms := movers(obs); len(ms) > 0 {
		sum := decimal.Zero
		for _, m := range ms {
			sum = sum.Add(m.Delta)
		}
		shift = sum.Div(decimal.NewFromInt(int64(len(ms)))).Round(2)
	}

	return Overview{
		TotalRecords:   len(obs),
		Commodities:    len(commodities),
		Establishments: len(stores),
		AvgPriceShift:  shift,
	}
}

// StatsFor computes the trend-view statistics for a pre-filtered commodity
// group. The prevailing figure routes through the same engine as every other
// surface.
func StatsFor(obs []pricing.Observation) CommodityStats {
	if len(obs) == 0 {
		return CommodityStats{}
	}

	lowest := obs[0].Price
	highest := obs[0].Price
	for _, o := range obs[1:] {
		if o.Price.LessThan(lowest) {
			lowest = o.Price
		}
		if o.Price.GreaterThan(highest) {
			highest = o.Price
		}
	}

	return CommodityStats{
		Prevailing: pricing.PrevailingFor(obs),
		Average:    meanPrice(obs),
		Lowest:     lowest,
		Highest:    highest,
		Count:      len(obs),
	}
}

// BuildDashboard applies the filter and assembles every aggregate view.
func BuildDashboard(obs []pricing.Observation, f Filter, lim Limits) Dashboard {
	filtered := f.Apply(obs)
	increases, decreases := TopMovers(filtered, lim.TopMovers)

	return Dashboard{
		Overview:    BuildOverview(filtered),
		Commodities: SummarizeByCommodity(filtered, lim.TopCommodities),
		Extremes:    PriceExtremes(filtered, lim.ExtremeCount),
		Locations:   AverageByLocation(filtered, lim.TopLocations),
		Trend:       DailyAverages(filtered),
		Compliance:  Compliance(filtered),
		Increases:   increases,
		Decreases:   decreases,
	}
}
