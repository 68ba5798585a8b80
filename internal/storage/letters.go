package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	insertLetterSQL = `INSERT INTO printed_letters (
        id,
        store,
        date_printed,
        deadline,
        printed_by,
        replied,
        copies_printed
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7
    )
    RETURNING created_at;`

	listLettersSQL = `SELECT
        id,
        store,
        date_printed,
        deadline,
        printed_by,
        replied,
        copies_printed,
        created_at
    FROM printed_letters
    ORDER BY date_printed DESC;`

	updateLetterSQL = `UPDATE printed_letters
    SET store          = $2,
        date_printed   = $3,
        deadline       = $4,
        printed_by     = $5,
        replied        = $6,
        copies_printed = $7
    WHERE id = $1
    RETURNING created_at;`

	deleteLetterSQL = `DELETE FROM printed_letters WHERE id = $1;`
)

// InsertLetter persists a printed-letter tracking record.
func (s *Store) InsertLetter(ctx context.Context, letter PrintedLetter) (PrintedLetter, error) {
	pool, err := s.getPool()
	if err != nil {
		return PrintedLetter{}, err
	}

	if letter.ID == "" {
		letter.ID = uuid.New().String()
	}
	if letter.CopiesPrinted <= 0 {
		letter.CopiesPrinted = 1
	}

	row := pool.QueryRow(ctx, insertLetterSQL,
		letter.ID,
		letter.Store,
		letter.DatePrinted,
		letter.Deadline,
		letter.PrintedBy,
		letter.Replied,
		letter.CopiesPrinted,
	)
	if err := row.Scan(&letter.CreatedAt); err != nil {
		return PrintedLetter{}, fmt.Errorf("insert printed letter: %w", err)
	}
	return letter, nil
}

// ListLetters lists tracking records ordered by descending print date.
func (s *Store) ListLetters(ctx context.Context) ([]PrintedLetter, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listLettersSQL)
	if queryErr != nil {
		return nil, fmt.Errorf("list printed letters: %w", queryErr)
	}
	defer rows.Close()

	letters := make([]PrintedLetter, 0)
	for rows.Next() {
		var letter PrintedLetter
		if err := rows.Scan(
			&letter.ID,
			&letter.Store,
			&letter.DatePrinted,
			&letter.Deadline,
			&letter.PrintedBy,
			&letter.Replied,
			&letter.CopiesPrinted,
			&letter.CreatedAt,
		); err != nil {
			return nil, err
		}
		letters = append(letters, letter)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return letters, nil
}

// UpdateLetter replaces a tracking record's fields.
func (s *Store) UpdateLetter(ctx context.Context, letter PrintedLetter) (PrintedLetter, error) {
	pool, err := s.getPool()
	if err != nil {
		return PrintedLetter{}, err
	}

	row := pool.QueryRow(ctx, updateLetterSQL,
		letter.ID,
		letter.Store,
		letter.DatePrinted,
		letter.Deadline,
		letter.PrintedBy,
		letter.Replied,
		letter.CopiesPrinted,
	)
	if err := row.Scan(&letter.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PrintedLetter{}, pgx.ErrNoRows
		}
		return PrintedLetter{}, fmt.Errorf("update printed letter: %w", err)
	}
	return letter, nil
}

// DeleteLetter removes a tracking record.
func (s *Store) DeleteLetter(ctx context.Context, id string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	cmdTag, execErr := pool.Exec(ctx, deleteLetterSQL, id)
	if execErr != nil {
		return fmt.Errorf("delete printed letter: %w", execErr)
	}
	if cmdTag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
