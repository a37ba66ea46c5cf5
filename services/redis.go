package services

import (
	"context"
	"fmt"

	"github.com/jdamiba/twitter-clone/config"

	"github.com/go-redis/redis/v8"
)

var RedisClient *redis.Client

// InitRedis подключается к Redis, используемому как кеш счетчиков лайков
func InitRedis(ctx context.Context) error {
	if config.AppConfig == nil {
		return fmt.Errorf("AppConfig is not loaded")
	}

	redisConfig := config.AppConfig.Redis
	RedisClient = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", redisConfig.Host, redisConfig.Port),
		Password: redisConfig.Password,
		DB:       redisConfig.DB,
	})

	// Тест соединения
	if err := RedisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return nil
}

func CloseRedis() error {
	if RedisClient != nil {
		return RedisClient.Close()
	}
	return nil
}
