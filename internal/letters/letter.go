// Package letters drafts inquiry letters for price records found above their
// suggested retail price.
package letters

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/shopspring/decimal"

	"pricewatch/internal/pricing"
)

const letterBodyTemplate = `Dear {{.Store}},

Subject: Price Inquiry - {{.Commodity}}

During our monitoring on {{.Observed}} at {{.Store}} in {{.Municipality}}, we recorded a retail price of {{.Price}} for {{.Commodity}}. The Suggested Retail Price (SRP) on record is {{.SRP}}, indicating a variance of {{.Variance}}.

In line with the Consumer Act and price stabilization efforts, kindly provide a written explanation within {{.ReplyDaysWord}} ({{.ReplyDays}}) days from receipt of this letter regarding the observed price variance. Please include recent supplier invoices, delivery receipts, and any factors affecting your pricing.

You may submit your response via email or directly to the monitoring office. Should you require clarification, please contact our office immediately.

Thank you for your prompt cooperation.

Respectfully,
{{.Officer}}`

var bodyTmpl = template.Must(template.New("inquiry").Parse(letterBodyTemplate))

// Letter is a drafted, printable inquiry letter.
type Letter struct {
	Subject  string
	Body     string
	Date     time.Time
	Deadline time.Time
	Officer  string
}

// DraftInput parameterises letter generation for one flagged record.
type DraftInput struct {
	Observation pricing.Observation
	Officer     string
	Date        time.Time
	ReplyDays   int
}

// FormatPeso renders an amount the way letters and tables display it.
func FormatPeso(d decimal.Decimal) string {
	return "₱" + d.StringFixed(2)
}

var numberWords = []string{"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten"}

func spellOut(n int) string {
	if n >= 0 && n < len(numberWords) {
		return numberWords[n]
	}
	return fmt.Sprintf("%d", n)
}

// Draft generates an inquiry letter for a flagged observation. Missing labels
// fall back to generic wording so a partially-filled record still yields a
// usable draft.
func Draft(in DraftInput) (Letter, error) {
	o := in.Observation

	date := in.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	replyDays := in.ReplyDays
	if replyDays <= 0 {
		replyDays = 3
	}
	officer := in.Officer
	if officer == "" {
		officer = "Monitoring Officer"
	}

	observed := date
	if !o.Timestamp.IsZero() {
		observed = o.Timestamp
	}

	commodity := o.Commodity
	if commodity == "" {
		commodity = "the item"
	}
	store := o.Store
	if store == "" {
		store = "Establishment"
	}
	municipality := o.Municipality
	if municipality == "" {
		municipality = "the covered area"
	}

	data := map[string]any{
		"Store":         store,
		"Commodity":     commodity,
		"Municipality":  municipality,
		"Observed":      observed.Format("January 2, 2006"),
		"Price":         FormatPeso(o.Price),
		"SRP":           FormatPeso(o.SRP),
		"Variance":      FormatPeso(o.Variance()),
		"ReplyDays":     replyDays,
		"ReplyDaysWord": spellOut(replyDays),
		"Officer":       officer,
	}

	var body bytes.Buffer
	if err := bodyTmpl.Execute(&body, data); err != nil {
		return Letter{}, fmt.Errorf("render letter body: %w", err)
	}

	return Letter{
		Subject:  "Price Inquiry - " + commodity,
		Body:     body.String(),
		Date:     date,
		Deadline: date.AddDate(0, 0, replyDays),
		Officer:  officer,
	}, nil
}

// Flagged returns the observations priced above a configured SRP, preserving
// input order. Records without a positive SRP are never flagged.
func Flagged(obs []pricing.Observation) []pricing.Observation {
	out := make([]pricing.Observation, 0)
	for _, o := range obs {
		if o.SRP.IsPositive() && o.Price.GreaterThan(o.SRP) {
			out = append(out, o)
		}
	}
	return out
}
