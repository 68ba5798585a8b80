// Package service runs the periodic SRP compliance sweep.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"pricewatch/internal/config"
	"pricewatch/internal/notify"
	"pricewatch/internal/pricing"
	"pricewatch/internal/report"
	"pricewatch/internal/scheduler"
	"pricewatch/internal/srpfeed"
	"pricewatch/internal/storage"
)

// SweepResult summarises one completed sweep.
type SweepResult struct {
	SweepAt      time.Time
	Examined     int
	Compliant    int
	NonCompliant int
	Breaches     []notify.Breach
}

// Service orchestrates the sweep: load recent records, refresh SRP ceilings,
// flag latest-per-commodity breaches, persist and notify.
type Service struct {
	scheduler *scheduler.Scheduler
	prices    storage.PriceStore
	breaches  storage.BreachStore
	fetcher   srpfeed.Fetcher
	notifier  notify.Notifier
	logger    zerolog.Logger

	lookback time.Duration
	locker   storage.AdvisoryLocker
	lockKey  int64
	notifyOn bool
}

// New constructs the sweep service. fetcher and notifier may be nil when the
// SRP feed or notifications are disabled.
func New(cfg *config.Config, sched *scheduler.Scheduler, prices storage.PriceStore, breaches storage.BreachStore, fetcher srpfeed.Fetcher, notifier notify.Notifier, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := prices.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		scheduler: sched,
		prices:    prices,
		breaches:  breaches,
		fetcher:   fetcher,
		notifier:  notifier,
		logger:    logger.With().Str("component", "sweep").Logger(),
		lookback:  cfg.Sweep.Lookback,
		locker:    locker,
		lockKey:   cfg.Sweep.AdvisoryLockKey,
		notifyOn:  cfg.Notify.Enabled,
	}
}

// Run blocks, executing sweeps on the scheduler's cadence until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessSweep)
}

// ProcessSweep executes one sweep, guarded by the advisory lock so only one
// instance sweeps a shared database.
func (s *Service) ProcessSweep(ctx context.Context, sweepAt time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("sweep_at", sweepAt).Msg("skip sweep because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	_, err = s.executeSweep(ctx, sweepAt)
	return err
}

// Sweep runs one sweep immediately, bypassing the scheduler. Used by the CLI.
func (s *Service) Sweep(ctx context.Context) (SweepResult, error) {
	return s.executeSweep(ctx, time.Now().UTC())
}

func (s *Service) executeSweep(ctx context.Context, sweepAt time.Time) (SweepResult, error) {
	from := sweepAt.Add(-s.lookback)
	records, err := s.prices.ListPricesSince(ctx, from)
	if err != nil {
		return SweepResult{}, fmt.Errorf("load records for sweep: %w", err)
	}

	obs := storage.Observations(records)
	obs = s.refreshCeilings(ctx, obs)

	latest := report.LatestPerCommodity(obs)
	counts := report.Compliance(obs)

	result := SweepResult{
		SweepAt:      sweepAt,
		Examined:     len(obs),
		Compliant:    counts.Compliant,
		NonCompliant: counts.NonCompliant,
	}

	for _, o := range latest {
		if o.Compliant() {
			continue
		}
		result.Breaches = append(result.Breaches, notify.Breach{
			Commodity:    o.CommodityLabel(),
			Store:        o.StoreLabel(),
			Municipality: o.MunicipalityLabel(),
			Price:        o.Price,
			SRP:          o.SRP,
			Variance:     o.Variance(),
			Observed:     o.Timestamp,
		})
		s.recordBreach(ctx, sweepAt, o)
	}

	s.logger.Info().Time("sweep_at", sweepAt).
		Int("examined", result.Examined).
		Int("breaches", len(result.Breaches)).
		Msg("compliance sweep completed")

	if s.notifyOn && s.notifier != nil {
		note := notify.Notification{
			SweepAt:      sweepAt,
			Breaches:     result.Breaches,
			Compliant:    result.Compliant,
			NonCompliant: result.NonCompliant,
		}
		if err := s.notifier.Notify(ctx, note); err != nil {
			s.logger.Error().Err(err).Time("sweep_at", sweepAt).Msg("failed to dispatch sweep notification")
		}
	}

	return result, nil
}

// refreshCeilings overlays the latest published SRPs when a feed is
// configured. A feed failure never aborts the sweep; stored ceilings apply.
func (s *Service) refreshCeilings(ctx context.Context, obs []pricing.Observation) []pricing.Observation {
	if s.fetcher == nil {
		return obs
	}
	entries, err := s.fetcher.FetchSRPs(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("srp feed unavailable, using stored ceilings")
		return obs
	}
	return srpfeed.Overlay(obs, entries)
}

func (s *Service) recordBreach(ctx context.Context, sweepAt time.Time, o pricing.Observation) {
	if s.breaches == nil {
		return
	}
	record := storage.BreachRecord{
		RecordID:  o.ID,
		Commodity: o.CommodityLabel(),
		Store:     o.StoreLabel(),
		Price:     o.Price,
		SRP:       o.SRP,
		Variance:  o.Variance(),
		SweepAt:   sweepAt,
	}
	if _, err := s.breaches.InsertBreach(ctx, record); err != nil {
		s.logger.Error().Err(err).Str("record_id", o.ID).Msg("failed to persist breach record")
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
