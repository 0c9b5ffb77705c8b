package pushstore

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/pushkit/pkg/webpush"
)

// ConnectPostgres opens a pool and pings it, retrying with a linearly
// growing delay: attempt n waits n*RetryInterval.
func ConnectPostgres(ctx context.Context, cfg PostgresConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseDBConfig, err)
	}
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	}
	poolConfig.MinConns = cfg.MaxIdleConns
	if cfg.HealthCheckPeriod > 0 {
		poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}

	attempts := max(cfg.RetryAttempts, 1)
	var lastErr error
	for i := range attempts {
		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}
		lastErr = err
		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrFailedToOpenDBConnection, ctx.Err())
		case <-time.After(time.Duration(i+1) * cfg.RetryInterval):
		}
	}

	return nil, errors.Join(ErrFailedToOpenDBConnection, lastErr)
}

// PostgresHealthcheck returns a health check for the pool.
func PostgresHealthcheck(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

const (
	selectSubscriptions = `SELECT user_id, endpoint, p256dh, auth, created_at, updated_at FROM push_subscriptions`
	orderSubscriptions  = ` ORDER BY created_at, user_id, endpoint`

	upsertSubscription = `INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth, created_at, updated_at)
VALUES ($1, $2, $3, $4, now(), now())
ON CONFLICT (user_id, endpoint) DO UPDATE
SET p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth, updated_at = now()`

	deleteSubscription = `DELETE FROM push_subscriptions WHERE endpoint = $1`
)

// Postgres is a webpush.Store backed by the push_subscriptions table.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ webpush.Store = (*Postgres)(nil)

// NewPostgres wraps a connected pool. The schema must be migrated.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) ListFor(ctx context.Context, userID string) ([]webpush.Subscription, error) {
	return s.query(ctx, selectSubscriptions+` WHERE user_id = $1`+orderSubscriptions, userID)
}

func (s *Postgres) ListAll(ctx context.Context) ([]webpush.Subscription, error) {
	return s.query(ctx, selectSubscriptions+orderSubscriptions)
}

func (s *Postgres) Save(ctx context.Context, sub webpush.Subscription) error {
	_, err := s.pool.Exec(ctx, upsertSubscription, sub.UserID, sub.Endpoint, sub.Keys.P256dh, sub.Keys.Auth)
	return err
}

func (s *Postgres) Delete(ctx context.Context, endpoint string) error {
	_, err := s.pool.Exec(ctx, deleteSubscription, endpoint)
	return err
}

func (s *Postgres) query(ctx context.Context, sql string, args ...any) ([]webpush.Subscription, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanSubscription)
}

func scanSubscription(row pgx.CollectableRow) (webpush.Subscription, error) {
	var sub webpush.Subscription
	err := row.Scan(&sub.UserID, &sub.Endpoint, &sub.Keys.P256dh, &sub.Keys.Auth, &sub.CreatedAt, &sub.UpdatedAt)
	return sub, err
}
