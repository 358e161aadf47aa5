package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"antigravity2api-go/internal/models"
)

const redisKeyPrefix = "antigravity:"

// RedisStore keeps the pool as one string blob and the history as a
// list trimmed on every push.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects using a redis:// URL and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("storage: parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolSize = 10
	opts.MinIdleConns = 2

	client := redis.NewClient(opts)
	pingCtx, cancel := withOpTimeout(ctx)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("storage: ping redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func (r *RedisStore) accountsKey() string { return redisKeyPrefix + "accounts" }
func (r *RedisStore) historyKey() string  { return redisKeyPrefix + "history" }

func (r *RedisStore) LoadAccounts(ctx context.Context) ([]*models.Account, error) {
	data, err := r.client.Get(ctx, r.accountsKey()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: redis get accounts: %w", err)
	}
	var accounts []*models.Account
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("storage: parse accounts blob: %w", err)
	}
	return accounts, nil
}

func (r *RedisStore) SaveAccounts(ctx context.Context, accounts []*models.Account) error {
	if accounts == nil {
		accounts = []*models.Account{}
	}
	data, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("storage: encode accounts: %w", err)
	}
	if err := r.client.Set(ctx, r.accountsKey(), data, 0).Err(); err != nil {
		return fmt.Errorf("storage: redis set accounts: %w", err)
	}
	return nil
}

func (r *RedisStore) AppendHistory(ctx context.Context, rec *models.HistoryRecord) error {
	if rec == nil {
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("storage: encode history record: %w", err)
	}
	pipe := r.client.Pipeline()
	pipe.LPush(ctx, r.historyKey(), data)
	pipe.LTrim(ctx, r.historyKey(), 0, int64(models.DefaultHistoryLimit-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("storage: redis append history: %w", err)
	}
	return nil
}

func (r *RedisStore) ListHistory(ctx context.Context, limit int) ([]*models.HistoryRecord, error) {
	if limit <= 0 || limit > models.DefaultHistoryLimit {
		limit = models.DefaultHistoryLimit
	}
	lines, err := r.client.LRange(ctx, r.historyKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("storage: redis list history: %w", err)
	}
	out := make([]*models.HistoryRecord, 0, len(lines))
	for _, line := range lines {
		rec := &models.HistoryRecord{}
		if err := json.Unmarshal([]byte(line), rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *RedisStore) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
