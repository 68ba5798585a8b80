package report

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pricewatch/internal/pricing"
)

var t0 = time.Date(2025, time.May, 1, 8, 0, 0, 0, time.UTC)

func fixtureObservations() []pricing.Observation {
	mk := func(commodity, store, muni string, price, srp float64, offset time.Duration) pricing.Observation {
		return pricing.Observation{
			Commodity:    commodity,
			Store:        store,
			Municipality: muni,
			Price:        decimal.NewFromFloat(price),
			SRP:          decimal.NewFromFloat(srp),
			Timestamp:    t0.Add(offset),
		}
	}
	return []pricing.Observation{
		mk("Rice", "Mart A", "Daet", 52, 55, 0),
		mk("Rice", "Mart A", "Daet", 52, 55, 24*time.Hour),
		mk("Rice", "Mart B", "Labo", 56, 55, 48*time.Hour),
		mk("Sugar", "Mart A", "Daet", 88, 0, 24*time.Hour),
		mk("Sugar", "Mart B", "Labo", 92, 0, 72*time.Hour),
		mk("Oil", "Mart C", "Vinzons", 120, 110, 96*time.Hour),
	}
}

func TestSummarizeByCommodityOrderAndCap(t *testing.T) {
	sums := SummarizeByCommodity(fixtureObservations(), 0)
	if len(sums) != 3 {
		t.Fatalf("expected 3 commodity groups, got %d", len(sums))
	}
	if sums[0].Commodity != "Rice" || sums[0].Count != 3 {
		t.Fatalf("largest group should be Rice(3), got %s(%d)", sums[0].Commodity, sums[0].Count)
	}
	// Rice: 52 repeats (mode), capped SRP 55 not triggered.
	if !sums[0].Prevailing.Equal(decimal.NewFromInt(52)) {
		t.Fatalf("rice prevailing should be 52, got %s", sums[0].Prevailing.String())
	}
	if !sums[0].SRP.Equal(decimal.NewFromInt(55)) {
		t.Fatalf("rice SRP should be 55, got %s", sums[0].SRP.String())
	}

	capped := SummarizeByCommodity(fixtureObservations(), 2)
	if len(capped) != 2 {
		t.Fatalf("top-2 cap should return 2 groups, got %d", len(capped))
	}
}

func TestSummarizeAppliesSRPCap(t *testing.T) {
	obs := []pricing.Observation{
		{Commodity: "Oil", Price: decimal.NewFromInt(120), SRP: decimal.NewFromInt(110), Timestamp: t0},
		{Commodity: "Oil", Price: decimal.NewFromInt(120), SRP: decimal.NewFromInt(110), Timestamp: t0.Add(time.Hour)},
	}
	sums := SummarizeByCommodity(obs, 0)
	if !sums[0].Prevailing.Equal(decimal.NewFromInt(110)) {
		t.Fatalf("mode 120 should cap at SRP 110, got %s", sums[0].Prevailing.String())
	}
}

func TestPriceExtremesBoundary(t *testing.T) {
	obs := fixtureObservations()[:3] // 52, 52, 56

	ext := PriceExtremes(obs, 5)
	if len(ext.Highest) != 3 || len(ext.Lowest) != 3 {
		t.Fatalf("requesting top-5 of 3 should return 3/3, got %d/%d", len(ext.Highest), len(ext.Lowest))
	}
	if !ext.Highest[0].Price.Equal(decimal.NewFromInt(56)) {
		t.Fatalf("highest should start at 56, got %s", ext.Highest[0].Price.String())
	}
	if !ext.Lowest[0].Price.Equal(decimal.NewFromInt(52)) {
		t.Fatalf("lowest should start at 52, got %s", ext.Lowest[0].Price.String())
	}

	if got := PriceExtremes(nil, 5); len(got.Highest) != 0 || len(got.Lowest) != 0 {
		t.Fatal("empty input should yield empty extremes")
	}
}

func TestAverageByLocation(t *testing.T) {
	locs := AverageByLocation(fixtureObservations(), 0)
	if len(locs) != 3 {
		t.Fatalf("expected 3 municipalities, got %d", len(locs))
	}
	if locs[0].Municipality != "Daet" || locs[0].Count != 3 {
		t.Fatalf("largest location should be Daet(3), got %s(%d)", locs[0].Municipality, locs[0].Count)
	}
	// Daet mean: (52+52+88)/3 = 64
	if !locs[0].Average.Equal(decimal.NewFromInt(64)) {
		t.Fatalf("Daet average should be 64, got %s", locs[0].Average.String())
	}

	unlabeled := []pricing.Observation{{Commodity: "Rice", Price: decimal.NewFromInt(10)}}
	locs = AverageByLocation(unlabeled, 0)
	if locs[0].Municipality != pricing.UnspecifiedLocation {
		t.Fatalf("missing municipality should group under %q, got %q", pricing.UnspecifiedLocation, locs[0].Municipality)
	}
}

func TestDailyAveragesChronological(t *testing.T) {
	obs := []pricing.Observation{
		{Commodity: "Rice", Price: decimal.NewFromInt(54), Timestamp: t0.Add(48 * time.Hour)},
		{Commodity: "Rice", Price: decimal.NewFromInt(50), Timestamp: t0},
		{Commodity: "Rice", Price: decimal.NewFromInt(52), Timestamp: t0.Add(2 * time.Hour)},
	}
	series := DailyAverages(obs)
	if len(series) != 2 {
		t.Fatalf("expected 2 day buckets, got %d", len(series))
	}
	if !series[0].Date.Before(series[1].Date) {
		t.Fatal("series must be chronologically ascending")
	}
	if !series[0].Average.Equal(decimal.NewFromInt(51)) {
		t.Fatalf("day one mean should be 51, got %s", series[0].Average.String())
	}
	if series[0].Count != 2 || series[1].Count != 1 {
		t.Fatalf("unexpected bucket counts: %d, %d", series[0].Count, series[1].Count)
	}
}

func TestComplianceLatestPerCommodity(t *testing.T) {
	obs := []pricing.Observation{
		// Older rice breach superseded by a compliant reading.
		{Commodity: "Rice", Price: decimal.NewFromInt(60), SRP: decimal.NewFromInt(55), Timestamp: t0},
		{Commodity: "Rice", Price: decimal.NewFromInt(55), SRP: decimal.NewFromInt(55), Timestamp: t0.Add(time.Hour)},
		// Sugar has no ceiling.
		{Commodity: "Sugar", Price: decimal.NewFromInt(999), Timestamp: t0},
		// Oil's latest reading is above SRP.
		{Commodity: "Oil", Price: decimal.NewFromInt(120), SRP: decimal.NewFromInt(110), Timestamp: t0},
	}
	counts := Compliance(obs)
	if counts.Compliant != 2 || counts.NonCompliant != 1 {
		t.Fatalf("expected 2 compliant / 1 non-compliant, got %+v", counts)
	}
}

func TestTopMovers(t *testing.T) {
	mk := func(commodity, store string, price float64, offset time.Duration) pricing.Observation {
		return pricing.Observation{
			Commodity: commodity,
			Store:     store,
			Price:     decimal.NewFromFloat(price),
			Timestamp: t0.Add(offset),
		}
	}
	obs := []pricing.Observation{
		mk("Rice", "A", 50, 0),
		mk("Rice", "A", 58, time.Hour), // +8
		mk("Sugar", "A", 90, 0),
		mk("Sugar", "A", 85, time.Hour), // -5
		mk("Oil", "B", 100, 0),
		mk("Oil", "B", 100, time.Hour), // flat, excluded
		mk("Salt", "C", 20, 0),         // single reading, excluded
		mk("Flour", "D", 40, 0),
		mk("Flour", "D", 43, time.Hour), // +3
	}

	inc, dec := TopMovers(obs, 1)
	if len(inc) != 1 || inc[0].Commodity != "Rice" || !inc[0].Delta.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("top increase should be Rice +8, got %+v", inc)
	}
	if len(dec) != 1 || dec[0].Commodity != "Sugar" || !dec[0].Delta.Equal(decimal.NewFromInt(-5)) {
		t.Fatalf("top decrease should be Sugar -5, got %+v", dec)
	}

	inc, dec = TopMovers(obs, 10)
	if len(inc) != 2 || len(dec) != 1 {
		t.Fatalf("expected 2 increases and 1 decrease, got %d/%d", len(inc), len(dec))
	}
}

func TestTopMoversUsesTwoMostRecent(t *testing.T) {
	obs := []pricing.Observation{
		{Commodity: "Rice", Store: "A", Price: decimal.NewFromInt(10), Timestamp: t0},
		{Commodity: "Rice", Store: "A", Price: decimal.NewFromInt(40), Timestamp: t0.Add(time.Hour)},
		{Commodity: "Rice", Store: "A", Price: decimal.NewFromInt(45), Timestamp: t0.Add(2 * time.Hour)},
	}
	inc, _ := TopMovers(obs, 5)
	if len(inc) != 1 {
		t.Fatalf("expected one mover, got %d", len(inc))
	}
	// Delta compares the two latest readings (45-40), not the oldest.
	if !inc[0].Delta.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("delta should be 5, got %s", inc[0].Delta.String())
	}
}

func TestAggregationIdempotence(t *testing.T) {
	obs := fixtureObservations()
	f := Filter{Range: RangeAllTime}
	lim := Limits{TopCommodities: 5, ExtremeCount: 3, TopLocations: 5, TopMovers: 3}

	first := BuildDashboard(obs, f, lim)
	for i := 0; i < 5; i++ {
		if next := BuildDashboard(obs, f, lim); !reflect.DeepEqual(first, next) {
			t.Fatalf("dashboard output drifted on run %d", i+1)
		}
	}
}
