/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package loader

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultKeyPrefix = "pfqlang:pipeline:"
	DefaultChannel   = "pfqlang:pipelines"
)

type RedisConfig struct {
	Address   string `mapstructure:"address"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
	Channel   string `mapstructure:"channel"`
}

// Redis stores every image in a hash <prefix><name> with the fields group and
// image, and announces the pipeline name on a channel. Executor agents
// subscribe to the channel and fetch the hash.
type Redis struct {
	client    *redis.Client
	keyPrefix string
	channel   string
}

func NewRedis(cfg *RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return newRedis(client, cfg), nil
}

func newRedis(client *redis.Client, cfg *RedisConfig) *Redis {
	r := &Redis{client: client, keyPrefix: cfg.KeyPrefix, channel: cfg.Channel}
	if r.keyPrefix == "" {
		r.keyPrefix = DefaultKeyPrefix
	}
	if r.channel == "" {
		r.channel = DefaultChannel
	}
	return r
}

func (r *Redis) Key(name string) string {
	return r.keyPrefix + name
}

func (r *Redis) Load(ctx context.Context, name string, group int, image []byte) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.Key(name), "group", group, "image", image)
		pipe.Publish(ctx, r.channel, name)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store image in redis: %w", err)
	}

	slog.Debug("Published pipeline image.", "name", name, "group", group, "key", r.Key(name), "size", len(image))
	return nil
}

func (r *Redis) Unload(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.Key(name))
		pipe.Publish(ctx, r.channel, name)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to remove image from redis: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
