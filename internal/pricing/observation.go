package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// UnknownCommodity labels records whose commodity was never captured.
	UnknownCommodity = "Unknown"
	// UnspecifiedLocation labels records without a store or municipality.
	UnspecifiedLocation = "Unspecified"
)

// Observation is a single field-collected retail price record. A zero SRP
// means no ceiling is configured; a zero Timestamp ranks lowest for recency.
type Observation struct {
	ID           string
	Commodity    string
	Brand        string
	Variant      string
	Size         string
	Category     string
	Store        string
	Municipality string
	Price        decimal.Decimal
	SRP          decimal.Decimal
	Timestamp    time.Time
}

// CommodityLabel normalizes a missing commodity for grouping.
func (o Observation) CommodityLabel() string {
	if o.Commodity == "" {
		return UnknownCommodity
	}
	return o.Commodity
}

// StoreLabel normalizes a missing store for grouping.
func (o Observation) StoreLabel() string {
	if o.Store == "" {
		return UnspecifiedLocation
	}
	return o.Store
}

// MunicipalityLabel normalizes a missing municipality for grouping.
func (o Observation) MunicipalityLabel() string {
	if o.Municipality == "" {
		return UnspecifiedLocation
	}
	return o.Municipality
}

// Compliant reports whether the observation respects its SRP ceiling. Records
// without a positive SRP have no ceiling and are always compliant; a price
// exactly at the SRP is compliant.
func (o Observation) Compliant() bool {
	if !o.SRP.IsPositive() {
		return true
	}
	return o.Price.LessThanOrEqual(o.SRP)
}

// Variance is the signed amount by which the price exceeds the SRP.
func (o Observation) Variance() decimal.Decimal {
	return o.Price.Sub(o.SRP)
}
