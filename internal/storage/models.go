package storage

import (
	"time"

	"github.com/shopspring/decimal"

	"pricewatch/internal/pricing"
)

// PriceRecord is a persisted field-collected retail price entry.
type PriceRecord struct {
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
	CreatedAt    time.Time
}

// Observation projects the record into the shape the reporting core consumes.
func (r PriceRecord) Observation() pricing.Observation {
	return pricing.Observation{
		ID:           r.ID,
		Commodity:    r.Commodity,
		Brand:        r.Brand,
		Variant:      r.Variant,
		Size:         r.Size,
		Category:     r.Category,
		Store:        r.Store,
		Municipality: r.Municipality,
		Price:        r.Price,
		SRP:          r.SRP,
		Timestamp:    r.Timestamp,
	}
}

// Observations converts a record batch for the reporting core.
func Observations(records []PriceRecord) []pricing.Observation {
	obs := make([]pricing.Observation, len(records))
	for i, r := range records {
		obs[i] = r.Observation()
	}
	return obs
}

// PrintedLetter tracks a physically printed inquiry letter.
type PrintedLetter struct {
	ID            string
	Store         string
	DatePrinted   time.Time
	Deadline      time.Time
	PrintedBy     string
	Replied       bool
	CopiesPrinted int
	CreatedAt     time.Time
}

// User is an office account allowed to write price data.
type User struct {
	ID           string
	FullName     string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// BreachRecord captures a detected SRP breach for auditing.
type BreachRecord struct {
	ID        int64
	RecordID  string
	Commodity string
	Store     string
	Price     decimal.Decimal
	SRP       decimal.Decimal
	Variance  decimal.Decimal
	SweepAt   time.Time
	CreatedAt time.Time
}
