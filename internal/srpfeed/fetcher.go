// Package srpfeed pulls the currently published suggested retail prices from
// the regulator's bulletin endpoint.
package srpfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"pricewatch/internal/pricing"
)

const bulletinPath = "/srp-bulletin"

// Entry is one commodity ceiling from the bulletin.
type Entry struct {
	Commodity string
	SRP       decimal.Decimal
}

// Fetcher retrieves the current SRP bulletin.
type Fetcher interface {
	FetchSRPs(ctx context.Context) ([]Entry, error)
}

// BulletinOptions parameterise the HTTP fetcher.
type BulletinOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Bulletin fetches SRPs over HTTP.
type Bulletin struct {
	opts    BulletinOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewBulletin constructs a bulletin fetcher.
func NewBulletin(opts BulletinOptions, logger zerolog.Logger) *Bulletin {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Bulletin{
		opts:    opts,
		logger:  logger.With().Str("component", "srp_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}
}

// FetchSRPs retrieves and decodes the published bulletin.
func (b *Bulletin) FetchSRPs(ctx context.Context) ([]Entry, error) {
	if b.baseURL == "" {
		return nil, errors.New("srp feed base url not configured")
	}

	endpoint := b.baseURL + bulletinPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(b.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "pricewatch/1.0")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseHTTPError(resp.StatusCode, payload)
	}

	var bulletin bulletinResponse
	if err := json.Unmarshal(payload, &bulletin); err != nil {
		return nil, fmt.Errorf("decode srp bulletin: %w", err)
	}

	entries := make([]Entry, 0, len(bulletin.Entries))
	for _, e := range bulletin.Entries {
		if e.Commodity == "" {
			continue
		}
		srp, parseErr := decimal.NewFromString(e.SRP)
		if parseErr != nil || srp.IsNegative() {
			b.logger.Warn().Str("commodity", e.Commodity).Str("srp", e.SRP).Msg("skipping malformed bulletin entry")
			continue
		}
		entries = append(entries, Entry{Commodity: e.Commodity, SRP: srp})
	}

	b.logger.Debug().Int("entries", len(entries)).Str("effective", bulletin.EffectiveDate).Msg("srp bulletin fetched")
	return entries, nil
}

type bulletinResponse struct {
	EffectiveDate string `json:"effectiveDate"`
	Entries       []struct {
		Commodity string `json:"commodity"`
		SRP       string `json:"srp"`
	} `json:"entries"`
}

type errorResponse struct {
	ErrorType   string `json:"errorType"`
	Description string `json:"description"`
	Message     string `json:"message"`
}

func parseHTTPError(status int, payload []byte) error {
	var apiErr errorResponse
	if err := json.Unmarshal(payload, &apiErr); err == nil {
		if apiErr.Description != "" {
			return fmt.Errorf("srp bulletin error (%d): %s", status, apiErr.Description)
		}
		if apiErr.Message != "" {
			return fmt.Errorf("srp bulletin error (%d): %s", status, apiErr.Message)
		}
		if apiErr.ErrorType != "" {
			return fmt.Errorf("srp bulletin error (%d): %s", status, apiErr.ErrorType)
		}
	}
	if len(payload) > 0 {
		return fmt.Errorf("srp bulletin error (%d): %s", status, strings.TrimSpace(string(payload)))
	}
	return fmt.Errorf("srp bulletin error (%d)", status)
}

// Overlay returns a copy of the observations with bulletin ceilings applied
// by commodity label. Commodities absent from the bulletin keep their stored
// SRP.
func Overlay(obs []pricing.Observation, entries []Entry) []pricing.Observation {
	if len(entries) == 0 {
		return obs
	}
	ceilings := make(map[string]decimal.Decimal, len(entries))
	for _, e := range entries {
		ceilings[e.Commodity] = e.SRP
	}

	out := make([]pricing.Observation, len(obs))
	copy(out, obs)
	for i := range out {
		if srp, ok := ceilings[out[i].CommodityLabel()]; ok {
			out[i].SRP = srp
		}
	}
	return out
}

var _ Fetcher = (*Bulletin)(nil)
