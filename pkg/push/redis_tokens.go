package push

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"ridelink/pkg/cache"
)

const tokenKeyPrefix = "push:tokens:"

// RedisTokenSource reads device registrations written by the identity
// service. A missing key means the user has no registered devices.
type RedisTokenSource struct {
	cache *cache.RedisCache
}

func NewRedisTokenSource(cache *cache.RedisCache) *RedisTokenSource {
	return &RedisTokenSource{cache: cache}
}

func (s *RedisTokenSource) Tokens(ctx context.Context, userID primitive.ObjectID) ([]DeviceToken, error) {
	var tokens []DeviceToken
	err := s.cache.Get(ctx, tokenKeyPrefix+userID.Hex(), &tokens)
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return tokens, nil
}
