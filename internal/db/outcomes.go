package db

import (
	"context"
	"fmt"
	"time"
)

// Outcome is one stored evaluation, keyed by the grid's content digest.
type Outcome struct {
	ID        string    `json:"id_dna"`
	IsMutant  bool      `json:"is_mutant"`
	CreatedAt time.Time `json:"created_at"`
}

// Exists reports whether an outcome is already stored under key.
func (db *DB) Exists(ctx context.Context, key string) (bool, error) {
	var found int
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM dna_outcomes WHERE id_dna = ?)`, key,
	).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("failed to look up outcome %s: %w", key, err)
	}
	return found == 1, nil
}

// InsertOutcome stores the outcome for key unless one already exists.
// It reports whether a new row was written; concurrent inserts of the same
// key store exactly one row.
func (db *DB) InsertOutcome(ctx context.Context, key string, isMutant bool) (bool, error) {
	res, err := db.ExecContext(ctx,
		`INSERT INTO dna_outcomes (id_dna, is_mutant) VALUES (?, ?)
		 ON CONFLICT(id_dna) DO NOTHING`,
		key, isMutant,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert outcome %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n == 1, nil
}

// CountsByOutcome returns the number of stored outcomes grouped by verdict.
// Verdicts with no rows are absent from the map.
func (db *DB) CountsByOutcome(ctx context.Context) (map[bool]int64, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT is_mutant, COUNT(*) FROM dna_outcomes GROUP BY is_mutant`)
	if err != nil {
		return nil, fmt.Errorf("failed to count outcomes: %w", err)
	}
	defer rows.Close()

	counts := make(map[bool]int64, 2)
	for rows.Next() {
		var (
			isMutant bool
			count    int64
		)
		if err := rows.Scan(&isMutant, &count); err != nil {
			return nil, err
		}
		counts[isMutant] += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

// RecentOutcomes returns up to limit outcomes, newest first.
func (db *DB) RecentOutcomes(ctx context.Context, limit int) ([]Outcome, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id_dna, is_mutant, created_at FROM dna_outcomes
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []Outcome
	for rows.Next() {
		var (
			o       Outcome
			created int64
		)
		if err := rows.Scan(&o.ID, &o.IsMutant, &created); err != nil {
			return nil, err
		}
		o.CreatedAt = time.Unix(created, 0).UTC()
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}
