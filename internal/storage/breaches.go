package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	insertBreachSQL = `INSERT INTO breaches (
        record_id,
        commodity,
        store,
        price,
        srp,
        variance,
        sweep_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    )
    ON CONFLICT (record_id, sweep_at) DO UPDATE
    SET price    = EXCLUDED.price,
        srp      = EXCLUDED.srp,
        variance = EXCLUDED.variance
    RETURNING id, created_at;`

	listRecentBreachesSQL = `SELECT
        id,
        record_id,
        commodity,
        store,
        price,
        srp,
        variance,
        sweep_at,
        created_at
    FROM breaches
    ORDER BY created_at DESC
    LIMIT $1;`

	deleteBreachesBeforeSQL = `DELETE FROM breaches WHERE created_at < $1;`
)

// InsertBreach persists a detected SRP breach; re-detections within the same
// sweep update in place.
func (s *Store) InsertBreach(ctx context.Context, breach BreachRecord) (BreachRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return BreachRecord{}, err
	}

	row := pool.QueryRow(ctx, insertBreachSQL,
		breach.RecordID,
		breach.Commodity,
		breach.Store,
		breach.Price.String(),
		breach.SRP.String(),
		breach.Variance.String(),
		breach.SweepAt,
	)
	if err := row.Scan(&breach.ID, &breach.CreatedAt); err != nil {
		return BreachRecord{}, fmt.Errorf("insert breach: %w", err)
	}
	return breach, nil
}

// ListRecentBreaches lists the most recent breach records.
func (s *Store) ListRecentBreaches(ctx context.Context, limit int) ([]BreachRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentBreachesSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent breaches: %w", queryErr)
	}
	defer rows.Close()

	breaches := make([]BreachRecord, 0, limit)
	for rows.Next() {
		var (
			rec         BreachRecord
			priceStr    string
			srpStr      string
			varianceStr string
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.RecordID,
			&rec.Commodity,
			&rec.Store,
			&priceStr,
			&srpStr,
			&varianceStr,
			&rec.SweepAt,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}

		var convErr error
		rec.Price, convErr = decimal.NewFromString(priceStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse breach price: %w", convErr)
		}
		rec.SRP, convErr = decimal.NewFromString(srpStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse breach srp: %w", convErr)
		}
		rec.Variance, convErr = decimal.NewFromString(varianceStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse breach variance: %w", convErr)
		}

		breaches = append(breaches, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return breaches, nil
}

// DeleteBreachesBefore deletes historical breach records.
func (s *Store) DeleteBreachesBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteBreachesBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete breaches before: %w", execErr)
	}
	return nil
}
