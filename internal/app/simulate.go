package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"pricewatch/internal/notify"
	"pricewatch/internal/pricing"
)

// SimulateBreach pushes a synthetic breach through the configured notifier so
// the channel can be verified without touching real data.
func (a *App) SimulateBreach(ctx context.Context, commodity, store string, price, srp decimal.Decimal) error {
	if !a.Config.Notify.Enabled {
		return errors.New("notify.enabled must be true to simulate")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no notification channel configured")
	}

	if !srp.IsPositive() || !price.GreaterThan(srp) {
		return errors.New("simulated price must exceed a positive srp")
	}

	now := time.Now().UTC()
	note := notify.Notification{
		SweepAt:      now,
		Compliant:    0,
		NonCompliant: 1,
		Breaches: []notify.Breach{{
			Commodity:    commodity,
			Store:        store,
			Municipality: pricing.UnspecifiedLocation,
			Price:        price,
			SRP:          srp,
			Variance:     price.Sub(srp),
			Observed:     now,
		}},
	}

	return notifier.Notify(ctx, note)
}
