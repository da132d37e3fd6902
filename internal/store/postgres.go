package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobsift/jobsift/internal/job"
)

// Postgres implements JobStore on a pgx connection pool. The postings table is
// owned by an external migration process; this store only assumes the upsert
// contract on the identity_hash unique key.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

func (s *Postgres) Close() {
	s.pool.Close()
}

const upsertSQL = `
INSERT INTO postings (
	identity_hash, title, company, city, country, location_raw, remote,
	description, url, source, posted_at, first_seen_at, last_seen_at, status
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (identity_hash) DO UPDATE SET
	title = EXCLUDED.title,
	company = EXCLUDED.company,
	city = EXCLUDED.city,
	country = EXCLUDED.country,
	location_raw = EXCLUDED.location_raw,
	remote = EXCLUDED.remote,
	description = EXCLUDED.description,
	url = EXCLUDED.url,
	posted_at = COALESCE(EXCLUDED.posted_at, postings.posted_at),
	last_seen_at = EXCLUDED.last_seen_at,
	status = EXCLUDED.status
RETURNING (xmax = 0) AS inserted`

// UpsertBatch writes one batch inside a single transaction. first_seen_at is
// preserved on conflict because it is not listed in the update set.
func (s *Postgres) UpsertBatch(ctx context.Context, postings []*job.Posting) (UpsertStats, error) {
	var stats UpsertStats
	if len(postings) == 0 {
		return stats, nil
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return stats, fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range postings {
		var inserted bool
		err := tx.QueryRow(ctx, upsertSQL,
			p.IdentityHash, p.Title, p.Company,
			nullable(p.Location.City), nullable(p.Location.Country), p.Location.Raw, p.Location.Remote,
			p.Description, p.URL, string(p.Source),
			nullableTime(p.PostedAt), p.FirstSeenAt, p.LastSeenAt, string(p.Status),
		).Scan(&inserted)
		if err != nil {
			return UpsertStats{}, fmt.Errorf("upsert %s: %w", p.IdentityHash, err)
		}

		if inserted {
			stats.Inserted++
		} else {
			stats.Updated++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return UpsertStats{}, fmt.Errorf("commit batch: %w", err)
	}

	return stats, nil
}

func (s *Postgres) Query(ctx context.Context, filter Filter) ([]*job.Posting, error) {
	var (
		conds []string
		args  []any
	)

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		conds = append(conds, fmt.Sprintf("status = ANY(%s)", arg(statuses)))
	}
	if len(filter.Sources) > 0 {
		sources := make([]string, len(filter.Sources))
		for i, src := range filter.Sources {
			sources[i] = string(src)
		}
		conds = append(conds, fmt.Sprintf("source = ANY(%s)", arg(sources)))
	}
	if !filter.SeenSince.IsZero() {
		conds = append(conds, fmt.Sprintf("last_seen_at >= %s", arg(filter.SeenSince)))
	}

	query := `SELECT identity_hash, title, company, city, country, location_raw, remote,
		description, url, source, posted_at, first_seen_at, last_seen_at, status
		FROM postings`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY last_seen_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %s", arg(filter.Limit))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query postings: %w", err)
	}
	defer rows.Close()

	var postings []*job.Posting
	for rows.Next() {
		var (
			p             job.Posting
			city, country *string
			postedAt      *time.Time
			source        string
			status        string
		)
		if err := rows.Scan(
			&p.IdentityHash, &p.Title, &p.Company, &city, &country,
			&p.Location.Raw, &p.Location.Remote, &p.Description, &p.URL,
			&source, &postedAt, &p.FirstSeenAt, &p.LastSeenAt, &status,
		); err != nil {
			return nil, fmt.Errorf("scan posting: %w", err)
		}

		if city != nil {
			p.Location.City = *city
		}
		if country != nil {
			p.Location.Country = *country
		}
		if postedAt != nil {
			p.PostedAt = *postedAt
		}
		p.Source = job.Source(source)
		p.Status = job.Status(status)

		postings = append(postings, &p)
	}

	return postings, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
