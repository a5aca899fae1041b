package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"REDIS_PORT" env-default:"6380"`
	Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	Db       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

func New(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Host + ":" + cfg.Port,
		Password: cfg.Password,
		DB:       cfg.Db,
	})
}

// Connect creates the client and checks the server answers.
func Connect(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := New(cfg)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cannot connect to redis at %s: %w", client.Options().Addr, err)
	}
	return client, nil
}
