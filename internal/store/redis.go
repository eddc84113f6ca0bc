package store

import (
	"context"
	"fmt"
	"log"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/janekbaraniewski/calgrid/internal/core"
)

// RedisStore keeps all day values in one hash: field = date key,
// value = number string or "" for null.
type RedisStore struct {
	client redis.UniversalClient
	key    string
	now    func() time.Time
}

type RedisOptions struct {
	Addr     string
	Password string
	Key      string
}

func OpenRedis(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("store: redis ping %s: %w", opts.Addr, err)
	}
	return NewRedisStore(client, opts.Key), nil
}

func NewRedisStore(client redis.UniversalClient, key string) *RedisStore {
	if key == "" {
		key = "calgrid:values"
	}
	return &RedisStore{client: client, key: key, now: time.Now}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// FetchAll returns every stored day in date order. Hash fields carry no
// insertion order, so records are sorted by key.
func (s *RedisStore) FetchAll(ctx context.Context) ([]core.Record, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("store: redis fetch all: %w", err)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	today := core.TodayKey(s.now())
	out := make([]core.Record, 0, len(keys))
	for _, k := range keys {
		v, err := core.ParseValue(fields[k])
		if err != nil {
			log.Printf("store level=warn event=skip_field key=%q err=%v", k, err)
			continue
		}
		rec, err := core.RecordFromDateKey(k, v, today)
		if err != nil {
			log.Printf("store level=warn event=skip_field key=%q err=%v", k, err)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *RedisStore) Upsert(ctx context.Context, dateKey string, value *float64) (core.UpsertResult, error) {
	if err := validateKey(dateKey); err != nil {
		return core.UpsertResult{}, fmt.Errorf("store: upsert: %w", err)
	}

	var existed *redis.BoolCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		existed = pipe.HExists(ctx, s.key, dateKey)
		pipe.HSet(ctx, s.key, dateKey, core.FormatValue(value))
		return nil
	})
	if err != nil {
		return core.UpsertResult{}, fmt.Errorf("store: redis upsert %s: %w", dateKey, err)
	}
	if existed.Val() {
		return success(core.UpsertActionUpdated), nil
	}
	return success(core.UpsertActionAppended), nil
}
