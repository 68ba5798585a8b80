package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"pricewatch/internal/pricing"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertPriceSQL = `INSERT INTO price_records (
        id,
        commodity,
        brand,
        variant,
        size,
        category,
        store,
        municipality,
        price,
        srp,
        observed_at
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
    )
    RETURNING created_at;`

	priceColumns = `id,
        commodity,
        brand,
        variant,
        size,
        category,
        store,
        municipality,
        price,
        srp,
        observed_at,
        created_at`

	listPricesSQL = `SELECT ` + priceColumns + `
    FROM price_records
    ORDER BY observed_at DESC
    LIMIT $1 OFFSET $2;`

	listAllPricesSQL = `SELECT ` + priceColumns + `
    FROM price_records
    ORDER BY observed_at DESC;`

	listPricesSinceSQL = `SELECT ` + priceColumns + `
    FROM price_records
    WHERE observed_at >= $1
    ORDER BY observed_at DESC;`

	updatePriceSQL = `UPDATE price_records
    SET commodity    = $2,
        brand        = $3,
        variant      = $4,
        size         = $5,
        category     = $6,
        store        = $7,
        municipality = $8,
        price        = $9,
        srp          = $10,
        observed_at  = $11
    WHERE id = $1
    RETURNING created_at;`

	deletePriceSQL     = `DELETE FROM price_records WHERE id = $1;`
	deleteAllPricesSQL = `DELETE FROM price_records;`
	countPricesSQL     = `SELECT COUNT(*) FROM price_records;`

	backfillDefaultsSQL = `UPDATE price_records
    SET commodity = CASE WHEN commodity IS NULL OR commodity = '' THEN 'Unknown' ELSE commodity END,
        brand        = COALESCE(brand, ''),
        variant      = COALESCE(variant, ''),
        size         = COALESCE(size, ''),
        category     = COALESCE(category, ''),
        store        = COALESCE(store, ''),
        municipality = COALESCE(municipality, ''),
        price        = COALESCE(price, 0),
        srp          = COALESCE(srp, 0)
    WHERE commodity IS NULL OR commodity = ''
       OR brand IS NULL OR variant IS NULL OR size IS NULL OR category IS NULL
       OR store IS NULL OR municipality IS NULL OR price IS NULL OR srp IS NULL;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// PriceStore defines operations for price record persistence.
type PriceStore interface {
	InsertPrice(ctx context.Context, rec PriceRecord) (PriceRecord, error)
	ListPrices(ctx context.Context, limit, offset int) ([]PriceRecord, error)
	ListAllPrices(ctx context.Context) ([]PriceRecord, error)
	ListPricesSince(ctx context.Context, from time.Time) ([]PriceRecord, error)
	UpdatePrice(ctx context.Context, rec PriceRecord) (PriceRecord, error)
	DeletePrice(ctx context.Context, id string) error
	DeleteAllPrices(ctx context.Context) (int64, error)
	CountPrices(ctx context.Context) (int64, error)
	BackfillDefaults(ctx context.Context) (int64, error)
}

// LetterStore defines operations for printed-letter tracking.
type LetterStore interface {
	InsertLetter(ctx context.Context, letter PrintedLetter) (PrintedLetter, error)
	ListLetters(ctx context.Context) ([]PrintedLetter, error)
	UpdateLetter(ctx context.Context, letter PrintedLetter) (PrintedLetter, error)
	DeleteLetter(ctx context.Context, id string) error
}

// UserStore defines operations for office accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user User) (User, error)
	FindUserByEmail(ctx context.Context, email string) (User, error)
}

// BreachStore defines operations for compliance-breach auditing.
type BreachStore interface {
	InsertBreach(ctx context.Context, breach BreachRecord) (BreachRecord, error)
	ListRecentBreaches(ctx context.Context, limit int) ([]BreachRecord, error)
	DeleteBreachesBefore(ctx context.Context, olderThan time.Time) error
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to price records, letters, users, and breaches.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// Best-effort: releasing the connection drops the session lock anyway.
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

// InsertPrice persists a new price record, filling entry defaults the way the
// data-entry surface expects: missing commodity becomes "Unknown", missing
// observation time becomes now.
func (s *Store) InsertPrice(ctx context.Context, rec PriceRecord) (PriceRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return PriceRecord{}, err
	}

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Commodity == "" {
		rec.Commodity = pricing.UnknownCommodity
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	row := pool.QueryRow(ctx, insertPriceSQL,
		rec.ID,
		rec.Commodity,
		rec.Brand,
		rec.Variant,
		rec.Size,
		rec.Category,
		rec.Store,
		rec.Municipality,
		rec.Price.String(),
		rec.SRP.String(),
		rec.Timestamp,
	)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		return PriceRecord{}, fmt.Errorf("insert price record: %w", err)
	}
	return rec, nil
}

// ListPrices lists records ordered by descending observation time, paginated.
func (s *Store) ListPrices(ctx context.Context, limit, offset int) ([]PriceRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listPricesSQL, limit, offset)
	if queryErr != nil {
		return nil, fmt.Errorf("list price records: %w", queryErr)
	}
	defer rows.Close()

	return collectPrices(rows, limit)
}

// ListAllPrices lists every record ordered by descending observation time.
func (s *Store) ListAllPrices(ctx context.Context) ([]PriceRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listAllPricesSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list all price records: %w", queryErr)
	}
	defer rows.Close()

	return collectPrices(rows, 0)
}

// ListPricesSince lists records observed at or after the given time.
func (s *Store) ListPricesSince(ctx context.Context, from time.Time) ([]PriceRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listPricesSinceSQL, from)
	if queryErr != nil {
		return nil, fmt.Errorf("list price records since: %w", queryErr)
	}
	defer rows.Close()

	return collectPrices(rows, 0)
}

// UpdatePrice replaces a record's fields.
func (s *Store) UpdatePrice(ctx context.Context, rec PriceRecord) (PriceRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return PriceRecord{}, err
	}

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	row := pool.QueryRow(ctx, updatePriceSQL,
		rec.ID,
		rec.Commodity,
		rec.Brand,
		rec.Variant,
		rec.Size,
		rec.Category,
		rec.Store,
		rec.Municipality,
		rec.Price.String(),
		rec.SRP.String(),
		rec.Timestamp,
	)
	if err := row.Scan(&rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PriceRecord{}, pgx.ErrNoRows
		}
		return PriceRecord{}, fmt.Errorf("update price record: %w", err)
	}
	return rec, nil
}

// DeletePrice removes one record.
func (s *Store) DeletePrice(ctx context.Context, id string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	cmdTag, execErr := pool.Exec(ctx, deletePriceSQL, id)
	if execErr != nil {
		return fmt.Errorf("delete price record: %w", execErr)
	}
	if cmdTag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// DeleteAllPrices removes every record and reports how many were deleted.
func (s *Store) DeleteAllPrices(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	cmdTag, execErr := pool.Exec(ctx, deleteAllPricesSQL)
	if execErr != nil {
		return 0, fmt.Errorf("delete all price records: %w", execErr)
	}
	return cmdTag.RowsAffected(), nil
}

// CountPrices counts stored records.
func (s *Store) CountPrices(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countPricesSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count price records: %w", scanErr)
	}
	return count, nil
}

// BackfillDefaults is the one-off migration utility that fills null or empty
// label columns with entry defaults. Not part of steady-state CRUD.
func (s *Store) BackfillDefaults(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	cmdTag, execErr := pool.Exec(ctx, backfillDefaultsSQL)
	if execErr != nil {
		return 0, fmt.Errorf("backfill defaults: %w", execErr)
	}
	return cmdTag.RowsAffected(), nil
}

func collectPrices(rows pgx.Rows, sizeHint int) ([]PriceRecord, error) {
	records := make([]PriceRecord, 0, sizeHint)
	for rows.Next() {
		rec, scanErr := scanPriceRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func scanPriceRecord(rows pgx.Rows) (PriceRecord, error) {
	var (
		rec      PriceRecord
		priceStr string
		srpStr   string
	)

	if err := rows.Scan(
		&rec.ID,
		&rec.Commodity,
		&rec.Brand,
		&rec.Variant,
		&rec.Size,
		&rec.Category,
		&rec.Store,
		&rec.Municipality,
		&priceStr,
		&srpStr,
		&rec.Timestamp,
		&rec.CreatedAt,
	); err != nil {
		return PriceRecord{}, err
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return PriceRecord{}, fmt.Errorf("parse price: %w", err)
	}
	srp, err := decimal.NewFromString(srpStr)
	if err != nil {
		return PriceRecord{}, fmt.Errorf("parse srp: %w", err)
	}

	rec.Price = price
	rec.SRP = srp
	return rec, nil
}
