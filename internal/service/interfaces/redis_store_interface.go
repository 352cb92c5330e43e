package interfaces

import (
	"context"
	"time"
)

type RedisStoreInterface interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Claim(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
}
