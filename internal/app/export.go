package app

import (
	"context"
	"encoding/csv"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"pricewatch/internal/report"
	"pricewatch/internal/storage"
)

// Export renders the daily mean-price trend as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	var records []storage.PriceRecord
	if opts.From != nil {
		if !opts.From.Before(to) {
			return errors.New("from must be before to")
		}
		records, err = store.ListPricesSince(ctx, opts.From.UTC())
	} else {
		records, err = store.ListAllPrices(ctx)
	}
	if err != nil {
		return err
	}

	obs := storage.Observations(records)
	filter := report.Filter{Commodity: opts.Commodity, Now: to}
	series := report.DailyAverages(filter.Apply(obs))

	trimmed := series[:0:0]
	for _, p := range series {
		if p.Date.Before(to) || p.Date.Equal(to) {
			trimmed = append(trimmed, p)
		}
	}
	series = trimmed

	if len(series) == 0 {
		a.Logger.Info().Msg("no observations found for export window")
		return nil
	}

	downsampled := downsampleSeries(series, opts.MaxPoints)
	a.Logger.Info().Int("days", len(series)).Int("exported", len(downsampled)).Msg("exporting trend")

	if opts.CSVPath != "" {
		if err := writeSeriesCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeSeriesPNG(opts.PNGPath, opts.Commodity, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleSeries(series []report.SeriesPoint, max int) []report.SeriesPoint {
	if max <= 0 || len(series) <= max {
		return series
	}
	if max == 1 {
		// A single slot keeps the most recent day.
		return series[len(series)-1:]
	}

	result := make([]report.SeriesPoint, 0, max)
	step := float64(len(series)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(series) {
			idx = len(series) - 1
		}
		result = append(result, series[idx])
	}
	return result
}

func writeSeriesCSV(path string, series []report.SeriesPoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"date", "average_price", "observations"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, point := range series {
		record := []string{
			point.Date.Format("2006-01-02"),
			point.Average.String(),
			strconv.Itoa(point.Count),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeSeriesPNG(path, commodity string, series []report.SeriesPoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(series))
	averages := make([]float64, len(series))
	for i, point := range series {
		x[i] = point.Date
		averages[i] = point.Average.InexactFloat64()
	}

	name := "Average price"
	if commodity != "" {
		name = commodity + " average price"
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Price (PHP)",
			ValueFormatter: priceFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    name,
				XValues: x,
				YValues: averages,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
