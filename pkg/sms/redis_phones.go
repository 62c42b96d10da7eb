package sms

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"ridelink/pkg/cache"
)

const phoneKeyPrefix = "sms:phone:"

// RedisPhoneSource reads verified phone numbers written by the identity
// service. An empty result means the user opted out or never verified.
type RedisPhoneSource struct {
	cache *cache.RedisCache
}

func NewRedisPhoneSource(cache *cache.RedisCache) *RedisPhoneSource {
	return &RedisPhoneSource{cache: cache}
}

func (s *RedisPhoneSource) Phone(ctx context.Context, userID primitive.ObjectID) (string, error) {
	var phone string
	err := s.cache.Get(ctx, phoneKeyPrefix+userID.Hex(), &phone)
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return phone, nil
}
