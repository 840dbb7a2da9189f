package lock

import (
	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/editorbridge/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("lock",
	fx.Provide(NewRedisClient),
	fx.Provide(NewLocker),
)

func NewRedisClient(cfg config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}
