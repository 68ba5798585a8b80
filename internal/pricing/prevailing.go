package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Sample pairs one observed price with the moment it was recorded.
type Sample struct {
	Price decimal.Decimal
	Time  time.Time
}

// Prevailing computes the regulator-recognized representative price for one
// commodity group. The rule encodes policy and must not drift between call
// sites:
//
//  1. The mode over cent-rounded prices wins when a price repeats; ties on
//     count break toward the latest associated timestamp.
//  2. With no repeated value, the maximum raw price wins; ties break toward
//     the latest timestamp.
//  3. A positive SRP caps the result from above.
//
// The result is rounded to cents. An empty group yields zero.
func Prevailing(samples []Sample, srp decimal.Decimal) decimal.Decimal {
	if len(samples) == 0 {
		return decimal.Zero
	}

	type cell struct {
		price  decimal.Decimal
		count  int
		latest time.Time
	}
	freq := make(map[string]*cell, len(samples))
	// Keys in first-seen order so equal-count, equal-timestamp ties resolve
	// the same way on every call.
	order := make([]string, 0, len(samples))
	for _, s := range samples {
		rounded := s.Price.Round(2)
		key := rounded.StringFixed(2)
		c, ok := freq[key]
		if !ok {
			freq[key] = &cell{price: rounded, count: 1, latest: s.Time}
			order = append(order, key)
			continue
		}
		c.count++
		if s.Time.After(c.latest) {
			c.latest = s.Time
		}
	}

	var mode *cell
	for _, key := range order {
		c := freq[key]
		if mode == nil || c.count > mode.count || (c.count == mode.count && c.latest.After(mode.latest)) {
			mode = c
		}
	}

	var prevailing decimal.Decimal
	if mode.count > 1 {
		prevailing = mode.price
	} else {
		// Every price is unique: fall back to the highest raw price.
		best := samples[0]
		for _, s := range samples[1:] {
			if s.Price.GreaterThan(best.Price) || (s.Price.Equal(best.Price) && s.Time.After(best.Time)) {
				best = s
			}
		}
		prevailing = best.Price
	}

	if srp.IsPositive() && prevailing.GreaterThan(srp) {
		prevailing = srp
	}
	return prevailing.Round(2)
}

// Samples projects observations onto the (price, time) pairs the engine
// consumes. The input is never mutated.
func Samples(obs []Observation) []Sample {
	samples := make([]Sample, len(obs))
	for i, o := range obs {
		samples[i] = Sample{Price: o.Price, Time: o.Timestamp}
	}
	return samples
}

// GroupSRP returns the ceiling for a commodity group: the first observation
// carrying a positive SRP, or zero when none is configured.
func GroupSRP(obs []Observation) decimal.Decimal {
	for _, o := range obs {
		if o.SRP.IsPositive() {
			return o.SRP
		}
	}
	return decimal.Zero
}

// PrevailingFor applies the prevailing-price rule to a pre-grouped set of
// observations using the group's own SRP.
func PrevailingFor(obs []Observation) decimal.Decimal {
	return Prevailing(Samples(obs), GroupSRP(obs))
}
