package pushstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/pushkit/pkg/webpush"
)

// ConnectRedis parses the URL and pings until the server answers or the
// connect timeout elapses.
func ConnectRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	opts, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseRedisConnString, err)
	}

	attempts := max(cfg.RetryAttempts, 1)
	var lastErr error
	for i := range attempts {
		client := redis.NewClient(opts)
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return client, nil
		}
		_ = client.Close()
		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, errors.Join(ErrRedisNotReady, lastErr)
}

// RedisHealthcheck returns a health check for the client.
func RedisHealthcheck(client redis.UniversalClient) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

// DefaultKeyPrefix namespaces store keys.
const DefaultKeyPrefix = "push:"

// deleteEndpoint removes an endpoint from every owner's hash and drops owners
// left without subscriptions from the user set.
//
//	KEYS[1] endpoint index set, KEYS[2] user set
//	ARGV[1] endpoint, ARGV[2] user hash key prefix
var deleteEndpoint = redis.NewScript(`
local owners = redis.call('SMEMBERS', KEYS[1])
for _, owner in ipairs(owners) do
	local key = ARGV[2] .. owner
	redis.call('HDEL', key, ARGV[1])
	if redis.call('HLEN', key) == 0 then
		redis.call('SREM', KEYS[2], owner)
	end
end
redis.call('DEL', KEYS[1])
return #owners
`)

// Redis is a webpush.Store on Redis. Layout, with the default prefix:
//
//	push:user:<user_id>      hash endpoint -> subscription JSON
//	push:endpoint:<endpoint> set of owning user ids
//	push:users               set of user ids with at least one subscription
//
// Save and Delete touch keys of several users in one transaction or script,
// so the store needs a single Redis node (or a primary with replicas), not
// Redis Cluster.
type Redis struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

var _ webpush.Store = (*Redis)(nil)

// RedisOption configures a Redis store.
type RedisOption func(*Redis)

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *Redis) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedis wraps a connected single-node client.
func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	s := &Redis{
		client: client,
		prefix: DefaultKeyPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Redis) userKey(userID string) string { return s.prefix + "user:" + userID }
func (s *Redis) endpointKey(endpoint string) string { return s.prefix + "endpoint:" + endpoint }
func (s *Redis) usersKey() string { return s.prefix + "users" }

func (s *Redis) ListFor(ctx context.Context, userID string) ([]webpush.Subscription, error) {
	fields, err := s.client.HGetAll(ctx, s.userKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	subs, err := decodeRecords(fields)
	if err != nil {
		return nil, err
	}
	sortByCreated(subs)
	return subs, nil
}

func (s *Redis) ListAll(ctx context.Context) ([]webpush.Subscription, error) {
	users, err := s.client.SMembers(ctx, s.usersKey()).Result()
	if err != nil {
		return nil, err
	}

	cmds := make([]*redis.MapStringStringCmd, len(users))
	_, err = s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for i, u := range users {
			cmds[i] = p.HGetAll(ctx, s.userKey(u))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	subs := make([]webpush.Subscription, 0, len(users))
	for _, cmd := range cmds {
		batch, err := decodeRecords(cmd.Val())
		if err != nil {
			return nil, err
		}
		subs = append(subs, batch...)
	}
	sortByCreated(subs)
	return subs, nil
}

func (s *Redis) Save(ctx context.Context, sub webpush.Subscription) error {
	userKey := s.userKey(sub.UserID)

	now := s.now().UTC()
	sub.CreatedAt = now
	sub.UpdatedAt = now

	existing, err := s.client.HGet(ctx, userKey, sub.Endpoint).Result()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return err
	default:
		var prev webpush.Subscription
		if json.Unmarshal([]byte(existing), &prev) == nil && !prev.CreatedAt.IsZero() {
			sub.CreatedAt = prev.CreatedAt
		}
	}

	record, err := json.Marshal(sub)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, userKey, sub.Endpoint, record)
		p.SAdd(ctx, s.endpointKey(sub.Endpoint), sub.UserID)
		p.SAdd(ctx, s.usersKey(), sub.UserID)
		return nil
	})
	return err
}

func (s *Redis) Delete(ctx context.Context, endpoint string) error {
	keys := []string{s.endpointKey(endpoint), s.usersKey()}
	return deleteEndpoint.Run(ctx, s.client, keys, endpoint, s.prefix+"user:").Err()
}

func decodeRecords(fields map[string]string) ([]webpush.Subscription, error) {
	subs := make([]webpush.Subscription, 0, len(fields))
	for endpoint, raw := range fields {
		var sub webpush.Subscription
		if err := json.Unmarshal([]byte(raw), &sub); err != nil {
			return nil, errors.Join(ErrCorruptRecord, err)
		}
		sub.Endpoint = endpoint
		subs = append(subs, sub)
	}
	return subs, nil
}
