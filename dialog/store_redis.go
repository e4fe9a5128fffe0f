package dialog

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/redis/go-redis/v9"
)

var redisDialogsKey = "modqueue/dialogs"

type RedisStore struct {
	Client *redis.Client
}

func NewRedisStore(redisURL string) (*RedisStore, error) {
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
	return &RedisStore{Client: rdb}, nil
}

func (s *RedisStore) Get(ctx context.Context, actorID int64) (*Dialog, error) {
	raw, err := s.Client.HGet(ctx, redisDialogsKey, strconv.FormatInt(actorID, 10)).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	var d Dialog
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *RedisStore) Set(ctx context.Context, d *Dialog) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return s.Client.HSet(ctx, redisDialogsKey, strconv.FormatInt(d.ActorID, 10), raw).Err()
}

func (s *RedisStore) Delete(ctx context.Context, actorID int64) error {
	return s.Client.HDel(ctx, redisDialogsKey, strconv.FormatInt(actorID, 10)).Err()
}

func (s *RedisStore) List(ctx context.Context) ([]*Dialog, error) {
	vals, err := s.Client.HGetAll(ctx, redisDialogsKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*Dialog, 0, len(vals))
	for _, raw := range vals {
		var d Dialog
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, nil
}
