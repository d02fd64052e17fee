package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domainstatistic "tsp-cloud/internal/analytics/domain/statistic"
)

// SummaryRepository stores precomputed summaries keyed by group and window.
type SummaryRepository struct {
	db    *sql.DB
	table string
}

// NewSummaryRepository creates a repository using the default table name.
func NewSummaryRepository(db *sql.DB, opts ...SummaryOption) *SummaryRepository {
	repo := &SummaryRepository{db: db, table: defaultSummaryTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// SummaryOption configures the summary repository.
type SummaryOption func(*SummaryRepository)

// WithSummaryTable overrides the default table name.
func WithSummaryTable(table string) SummaryOption {
	return func(repo *SummaryRepository) {
		if repo != nil && table != "" {
			repo.table = table
		}
	}
}

// SaveSummary upserts a precomputed summary for [start, end).
func (r *SummaryRepository) SaveSummary(ctx context.Context, start, end time.Time, summary domainstatistic.StatSummary) error {
	if r == nil || r.db == nil {
		return errors.New("summary repo: nil db")
	}
	if summary.GroupKey == "" {
		return errors.New("summary repo: empty group key")
	}
	if start.IsZero() || end.IsZero() {
		return domainstatistic.ErrInvalidPeriodStart
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	group_key,
	period_start,
	period_end,
	total,
	mean,
	std,
	min_value,
	p25,
	p50,
	p75,
	max_value,
	missing_count,
	is_empty
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
)
ON CONFLICT (group_key, period_start, period_end)
DO UPDATE SET
	total = EXCLUDED.total,
	mean = EXCLUDED.mean,
	std = EXCLUDED.std,
	min_value = EXCLUDED.min_value,
	p25 = EXCLUDED.p25,
	p50 = EXCLUDED.p50,
	p75 = EXCLUDED.p75,
	max_value = EXCLUDED.max_value,
	missing_count = EXCLUDED.missing_count,
	is_empty = EXCLUDED.is_empty,
	updated_at = NOW()`, r.table)

	_, err := r.db.ExecContext(
		ctx,
		query,
		summary.GroupKey,
		start,
		end,
		summary.Count,
		summary.Mean,
		summary.Std,
		summary.Min,
		summary.P25,
		summary.P50,
		summary.P75,
		summary.Max,
		summary.MissingCount,
		summary.IsEmpty,
	)
	return err
}

// FindSummaries returns the summaries stored for exactly [start, end), keyed by group.
func (r *SummaryRepository) FindSummaries(ctx context.Context, groups []string, start, end time.Time) (map[string]domainstatistic.StatSummary, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("summary repo: nil db")
	}
	if start.IsZero() || end.IsZero() {
		return nil, domainstatistic.ErrInvalidPeriodStart
	}

	query := fmt.Sprintf(`
SELECT group_key, total, mean, std, min_value, p25, p50, p75, max_value, missing_count, is_empty
FROM %s
WHERE period_start = $1
	AND period_end = $2
	AND (cardinality($3::text[]) = 0 OR group_key = ANY($3::text[]))`, r.table)

	if groups == nil {
		groups = []string{}
	}
	rows, err := r.db.QueryContext(ctx, query, start, end, groups)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]domainstatistic.StatSummary)
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		result[summary.GroupKey] = summary
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanSummary(scanner interface{ Scan(dest ...any) error }) (domainstatistic.StatSummary, error) {
	var summary domainstatistic.StatSummary
	if err := scanner.Scan(
		&summary.GroupKey,
		&summary.Count,
		&summary.Mean,
		&summary.Std,
		&summary.Min,
		&summary.P25,
		&summary.P50,
		&summary.P75,
		&summary.Max,
		&summary.MissingCount,
		&summary.IsEmpty,
	); err != nil {
		return domainstatistic.StatSummary{}, err
	}
	return summary, nil
}
