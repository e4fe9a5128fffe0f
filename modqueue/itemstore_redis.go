package modqueue

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/redis/go-redis/v9"
)

var redisItemsKey = "modqueue/items"

// RedisItemStore keeps all pending items as JSON values in a single redis
// hash, keyed by item id. Survives daemon restarts on a best-effort basis.
type RedisItemStore struct {
	Client *redis.Client
}

func NewRedisItemStore(redisURL string) (*RedisItemStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	return &RedisItemStore{Client: rdb}, nil
}

func (s *RedisItemStore) Get(ctx context.Context, id int64) (*Item, error) {
	raw, err := s.Client.HGet(ctx, redisItemsKey, strconv.FormatInt(id, 10)).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	var it Item
	if err := json.Unmarshal([]byte(raw), &it); err != nil {
		return nil, err
	}
	return &it, nil
}

func (s *RedisItemStore) Put(ctx context.Context, item *Item) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return s.Client.HSet(ctx, redisItemsKey, strconv.FormatInt(item.ID, 10), raw).Err()
}

func (s *RedisItemStore) Delete(ctx context.Context, id int64) error {
	return s.Client.HDel(ctx, redisItemsKey, strconv.FormatInt(id, 10)).Err()
}

func (s *RedisItemStore) List(ctx context.Context) ([]*Item, error) {
	vals, err := s.Client.HGetAll(ctx, redisItemsKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*Item, 0, len(vals))
	for _, raw := range vals {
		var it Item
		if err := json.Unmarshal([]byte(raw), &it); err != nil {
			return nil, err
		}
		out = append(out, &it)
	}
	return out, nil
}

func (s *RedisItemStore) Count(ctx context.Context) (int, error) {
	n, err := s.Client.HLen(ctx, redisItemsKey).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
