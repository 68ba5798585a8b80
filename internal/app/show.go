package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
)

// Show prints recent price records.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show records")
	}
	if closeStore != nil {
		defer closeStore()
	}

	records, err := store.ListPrices(ctx, opts.Limit, 0)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stdout, "no price records found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Observed (UTC)\tCommodity\tStore\tMunicipality\tPrice\tSRP\tCompliant")

	for _, rec := range records {
		obs := rec.Observation()
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
			rec.Timestamp.UTC().Format(time.RFC3339),
			sanitizeInline(obs.CommodityLabel()),
			sanitizeInline(obs.StoreLabel()),
			sanitizeInline(obs.MunicipalityLabel()),
			formatDecimal(rec.Price, 2),
			formatDecimal(rec.SRP, 2),
			obs.Compliant(),
		)
	}

	writer.Flush()
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
