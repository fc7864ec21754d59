package main

import (
	"errors"
	"fmt"

	"github.com/pscheid92/fortyfive/internal/adapter/redis"
	"github.com/pscheid92/fortyfive/internal/domain"
	"github.com/urfave/cli/v2"
)

var configCommand = &cli.Command{
	Name:  "config",
	Usage: "view or change a channel's bot config",
	Subcommands: []*cli.Command{
		{
			Name:      "get",
			ArgsUsage: "<broadcaster-id>",
			Action: func(cctx *cli.Context) error {
				return withConfigStore(cctx, func(store *redis.ConfigStore, id string) error {
					cfg, err := store.Get(cctx.Context, id)
					source := "stored"
					if errors.Is(err, domain.ErrConfigNotFound) {
						defaults := domain.DefaultBroadcasterConfig()
						cfg, source, err = &defaults, "default", nil
					}
					if err != nil {
						return err
					}
					_, err = fmt.Fprintf(cctx.App.Writer, "perfect_45_message (%s): %s\n", source, cfg.FortyFive.PerfectMessage)
					return err
				})
			},
		},
		{
			Name:      "set-perfect-message",
			ArgsUsage: "<broadcaster-id> <template>",
			Action: func(cctx *cli.Context) error {
				message := cctx.Args().Get(1)
				if message == "" {
					return cli.Exit("template must not be empty", 2)
				}
				return withConfigStore(cctx, func(store *redis.ConfigStore, id string) error {
					return store.Put(cctx.Context, id, domain.BroadcasterConfig{
						FortyFive: domain.FortyFiveConfig{PerfectMessage: message},
					})
				})
			},
		},
		{
			Name:      "reset",
			ArgsUsage: "<broadcaster-id>",
			Action: func(cctx *cli.Context) error {
				return withConfigStore(cctx, func(store *redis.ConfigStore, id string) error {
					return store.Delete(cctx.Context, id)
				})
			},
		},
	},
}

func withConfigStore(cctx *cli.Context, fn func(store *redis.ConfigStore, broadcasterID string) error) error {
	id := cctx.Args().First()
	if id == "" {
		return cli.Exit("broadcaster id is required", 2)
	}

	url := cctx.String("redis-url")
	if url == "" {
		return cli.Exit("--redis-url or REDIS_URL is required", 2)
	}

	rdb, err := redis.NewClient(cctx.Context, url, nil)
	if err != nil {
		return err
	}
	defer func() { _ = rdb.Close() }()

	return fn(redis.NewConfigStore(rdb), id)
}
