package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	domainstatistic "tsp-cloud/internal/analytics/domain/statistic"
)

const (
	defaultSampleTable  = "count_samples"
	defaultSummaryTable = "count_summaries"
)

// SampleRepository is a Postgres implementation for raw count samples.
type SampleRepository struct {
	db    *sql.DB
	table string
}

// NewSampleRepository creates a repository using the default table name.
func NewSampleRepository(db *sql.DB, opts ...RepositoryOption) *SampleRepository {
	repo := &SampleRepository{db: db, table: defaultSampleTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// RepositoryOption configures the repository.
type RepositoryOption func(*SampleRepository)

// WithTable overrides the default table name.
func WithTable(table string) RepositoryOption {
	return func(repo *SampleRepository) {
		if table != "" {
			repo.table = table
		}
	}
}

// InsertSamples upserts samples keyed by group and timestamp.
func (r *SampleRepository) InsertSamples(ctx context.Context, samples []domainstatistic.Sample) error {
	if r == nil || r.db == nil {
		return errors.New("sample repo: nil db")
	}
	if len(samples) == 0 {
		return nil
	}

	query := fmt.Sprintf(`
INSERT INTO %s (
	group_key,
	ts,
	value
) VALUES (
	$1, $2, $3
)
ON CONFLICT (group_key, ts)
DO UPDATE SET
	value = EXCLUDED.value,
	updated_at = NOW()`, r.table)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, s := range samples {
		if s.GroupKey == "" || s.Timestamp.IsZero() || math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
			_ = tx.Rollback()
			return errors.New("sample repo: invalid sample")
		}
		if _, err := stmt.ExecContext(ctx, s.GroupKey, s.Timestamp, s.Value); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// QuerySamples returns samples within [start, end). An empty group list selects all groups.
func (r *SampleRepository) QuerySamples(ctx context.Context, groups []string, start, end time.Time) ([]domainstatistic.Sample, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("sample repo: nil db")
	}
	if start.IsZero() || end.IsZero() {
		return nil, domainstatistic.ErrInvalidPeriodStart
	}

	query := fmt.Sprintf(`
SELECT group_key, ts, value
FROM %s
WHERE ts >= $1
	AND ts < $2
	AND (cardinality($3::text[]) = 0 OR group_key = ANY($3::text[]))
ORDER BY ts ASC, group_key ASC`, r.table)

	if groups == nil {
		groups = []string{}
	}
	rows, err := r.db.QueryContext(ctx, query, start, end, groups)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domainstatistic.Sample, 0)
	for rows.Next() {
		var (
			groupKey string
			ts       time.Time
			value    sql.NullFloat64
		)
		if err := rows.Scan(&groupKey, &ts, &value); err != nil {
			return nil, err
		}
		sample := domainstatistic.Sample{GroupKey: groupKey, Timestamp: ts.UTC()}
		if value.Valid {
			sample.Value = value.Float64
		}
		result = append(result, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
