package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces the pipeline's keys in a shared redis instance.
const keyPrefix = "agegate:"

// Redis is a redis-backed Store.
type Redis struct {
	client *redis.Client
}

// RedisOptions carries the connection settings for NewRedis.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedis returns a redis-backed store and verifies the connection.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &Redis{client: client}, nil
}

func (r *Redis) getBool(ctx context.Context, key string) (bool, bool, error) {
	v, err := r.client.Get(ctx, keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, false, nil // key absent
		}
		return false, false, err
	}
	return v == "1", true, nil
}

func (r *Redis) setBool(ctx context.Context, key string, v bool) error {
	s := "0"
	if v {
		s = "1"
	}
	return r.client.Set(ctx, keyPrefix+key, s, 0).Err()
}

func (r *Redis) ConsentGiven(ctx context.Context) (bool, error) {
	v, _, err := r.getBool(ctx, KeyConsentGiven)
	return v, err
}

func (r *Redis) SetConsentGiven(ctx context.Context, given bool) error {
	return r.setBool(ctx, KeyConsentGiven, given)
}

func (r *Redis) LastVerdictMinor(ctx context.Context) (bool, bool, error) {
	return r.getBool(ctx, KeyIsMinor)
}

func (r *Redis) SetLastVerdictMinor(ctx context.Context, isMinor bool) error {
	return r.setBool(ctx, KeyIsMinor, isMinor)
}

func (r *Redis) VerificationAllowedUntil(ctx context.Context) (time.Time, error) {
	v, err := r.client.Get(ctx, keyPrefix+KeyVerificationAllowedUntil).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, v)
}

func (r *Redis) SetVerificationAllowedUntil(ctx context.Context, t time.Time) error {
	return r.client.Set(ctx, keyPrefix+KeyVerificationAllowedUntil, t.UTC().Format(time.RFC3339), 0).Err()
}

func (r *Redis) Close() error { return r.client.Close() }

var _ Store = (*Redis)(nil)
