package storage

import (
	"context"
	"errors"
	"strconv"

	"stock_checker/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix   = "stock:"
	credSuffix  = ":credentials"
	fieldLikes  = "likes"
	fieldSymbol = "symbol"
)

// Compile-time check to ensure RedisStore implements RecordStore
var _ domain.RecordStore = (*RedisStore)(nil)

// RedisStore keeps each record as a hash (stock:SYM) plus a credential list (stock:SYM:credentials)
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func recordKey(symbol string) string { return keyPrefix + symbol }
func credKey(symbol string) string   { return keyPrefix + symbol + credSuffix }

// FindOrCreate relies on HSETNX so only the first caller initializes the record
func (r *RedisStore) FindOrCreate(ctx context.Context, symbol string) (*domain.StockRecord, error) {
	key := recordKey(symbol)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, key, fieldSymbol, symbol)
		pipe.HSetNX(ctx, key, fieldLikes, 0)
		return nil
	})
	if err != nil {
		return nil, domain.NewStoreError("find_or_create", err)
	}

	rec, err := r.load(ctx, symbol)
	if err != nil {
		return nil, r.wrap("find_or_create", err)
	}
	return rec, nil
}

// Get returns ErrRecordNotFound for unknown symbols
func (r *RedisStore) Get(ctx context.Context, symbol string) (*domain.StockRecord, error) {
	rec, err := r.load(ctx, symbol)
	if err != nil {
		return nil, r.wrap("get", err)
	}
	return rec, nil
}

// ApplyLike pushes the credential and bumps the counter inside MULTI/EXEC
func (r *RedisStore) ApplyLike(ctx context.Context, symbol, credential string) (*domain.StockRecord, error) {
	key := recordKey(symbol)

	n, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, domain.NewStoreError("apply_like", err)
	}
	if n == 0 {
		return nil, domain.ErrRecordNotFound
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, credKey(symbol), credential)
		pipe.HIncrBy(ctx, key, fieldLikes, 1)
		return nil
	})
	if err != nil {
		return nil, domain.NewStoreError("apply_like", err)
	}

	rec, err := r.load(ctx, symbol)
	if err != nil {
		return nil, r.wrap("apply_like", err)
	}
	return rec, nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return domain.NewStoreError("ping", r.client.Ping(ctx).Err())
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) load(ctx context.Context, symbol string) (*domain.StockRecord, error) {
	var (
		likesCmd *redis.StringCmd
		credsCmd *redis.StringSliceCmd
	)
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		likesCmd = pipe.HGet(ctx, recordKey(symbol), fieldLikes)
		credsCmd = pipe.LRange(ctx, credKey(symbol), 0, -1)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	raw, err := likesCmd.Result()
	if err != nil {
		return nil, err
	}
	likes, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}

	creds, err := credsCmd.Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	return &domain.StockRecord{Symbol: symbol, Likes: likes, Credentials: creds}, nil
}

func (r *RedisStore) wrap(op string, err error) error {
	if errors.Is(err, redis.Nil) {
		return domain.ErrRecordNotFound
	}
	return domain.NewStoreError(op, err)
}
