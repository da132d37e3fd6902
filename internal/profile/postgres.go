package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no profile exists for the subscriber.
var ErrNotFound = errors.New("profile not found")

// PostgresStore reads profiles from the account database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Get(ctx context.Context, subscriberID string) (*Profile, error) {
	var (
		p    Profile
		tier string
	)

	err := s.pool.QueryRow(ctx,
		`SELECT subscriber_id, cities, countries, remote_ok, role_family,
			seniority, languages, work_env, tier
		 FROM profiles WHERE subscriber_id = $1`,
		subscriberID,
	).Scan(
		&p.SubscriberID, &p.Cities, &p.Countries, &p.RemoteOK, &p.RoleFamily,
		&p.Seniority, &p.Languages, &p.WorkEnv, &tier,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("subscriber %s: %w", subscriberID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query profile %s: %w", subscriberID, err)
	}

	p.Tier = Tier(tier)
	if p.Tier != TierPremium {
		p.Tier = TierFree
	}

	return &p, nil
}
