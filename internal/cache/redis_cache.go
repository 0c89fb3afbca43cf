package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"consigna/backend/internal/domain"
)

const draftKeyPrefix = "consigna:draft:"

type RedisDraftStore struct {
	client *redis.Client
}

func NewRedisDraftStore(addr string, password string, db int) *RedisDraftStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisDraftStore{client: client}
}

func (c *RedisDraftStore) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisDraftStore) Close() error {
	return c.client.Close()
}

func (c *RedisDraftStore) Get(ctx context.Context, id string) (*domain.DraftSale, bool, error) {
	val, err := c.client.Get(ctx, draftKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var draft domain.DraftSale
	if err := json.Unmarshal([]byte(val), &draft); err != nil {
		return nil, false, err
	}
	return &draft, true, nil
}

func (c *RedisDraftStore) Save(ctx context.Context, draft domain.DraftSale, ttl time.Duration) error {
	payload, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, draftKeyPrefix+draft.ID, payload, ttl).Err()
}

func (c *RedisDraftStore) Delete(ctx context.Context, id string) error {
	return c.client.Del(ctx, draftKeyPrefix+id).Err()
}
