package modqueue

import (
	"context"

	"github.com/redis/go-redis/v9"
)

var redisCountPrefix string = "count/"
var redisDistinctPrefix string = "distinct/"

type RedisCountStore struct {
	Client *redis.Client
}

func NewRedisCountStore(redisURL string) (*RedisCountStore, error) {
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
	return &RedisCountStore{Client: rdb}, nil
}

func (s *RedisCountStore) GetCount(ctx context.Context, name, val string) (int, error) {
	c, err := s.Client.Get(ctx, redisCountPrefix+countBucket(name, val)).Int()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return c, nil
}

func (s *RedisCountStore) Increment(ctx context.Context, name, val string) error {
	// counters are historical stats, no expiration
	return s.Client.Incr(ctx, redisCountPrefix+countBucket(name, val)).Err()
}

func (s *RedisCountStore) GetCountDistinct(ctx context.Context, name string) (int, error) {
	c, err := s.Client.PFCount(ctx, redisDistinctPrefix+name).Result()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, err
	}
	return int(c), nil
}

func (s *RedisCountStore) IncrementDistinct(ctx context.Context, name, val string) error {
	return s.Client.PFAdd(ctx, redisDistinctPrefix+name, val).Err()
}
