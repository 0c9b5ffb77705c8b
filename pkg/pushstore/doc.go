// Package pushstore provides persistent webpush.Store implementations.
//
// Postgres keeps subscriptions in the push_subscriptions table, created by
// Migrate from embedded goose migrations. Redis keeps one hash per user plus
// an endpoint index so that Delete(endpoint) does not scan.
//
// Both follow the webpush.Store contract: Save is an upsert on
// (UserID, Endpoint) that preserves CreatedAt, and Delete is idempotent.
//
// # Connecting
//
//	pool, err := pushstore.ConnectPostgres(ctx, pgCfg)
//	if err := pushstore.Migrate(ctx, pool, pgCfg, slog.Default()); err != nil { ... }
//	store := pushstore.NewPostgres(pool)
//
//	client, err := pushstore.ConnectRedis(ctx, redisCfg)
//	store := pushstore.NewRedis(client, pushstore.WithKeyPrefix(redisCfg.KeyPrefix))
package pushstore
