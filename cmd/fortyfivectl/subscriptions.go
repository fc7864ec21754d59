package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/pscheid92/fortyfive/internal/adapter/twitch"
	"github.com/urfave/cli/v2"
)

var twitchFlags = []cli.Flag{
	&cli.StringFlag{Name: "client-id", EnvVars: []string{"TWITCH_CLIENT_ID"}, Required: true},
	&cli.StringFlag{Name: "client-secret", EnvVars: []string{"TWITCH_CLIENT_SECRET"}, Required: true},
	&cli.StringFlag{Name: "webhook-secret", EnvVars: []string{"WEBHOOK_SECRET"}, Required: true},
	&cli.StringFlag{Name: "callback-url", EnvVars: []string{"WEBHOOK_CALLBACK_URL"}, Required: true},
	&cli.StringFlag{Name: "bot-user-id", EnvVars: []string{"BOT_USER_ID"}, Required: true},
}

var subscriptionsCommand = &cli.Command{
	Name:  "subscriptions",
	Usage: "inspect and manage channel.chat.message subscriptions",
	Subcommands: []*cli.Command{
		{
			Name:   "list",
			Usage:  "list stored subscription records",
			Action: listSubscriptions,
		},
		{
			Name:      "add",
			Usage:     "subscribe the bot to a channel's chat",
			ArgsUsage: "<broadcaster-id>...",
			Flags:     twitchFlags,
			Action: func(cctx *cli.Context) error {
				return withEventSub(cctx, func(esm *twitch.EventSubManager) error {
					return esm.SubscribeAll(cctx.Context, cctx.Args().Slice())
				})
			},
		},
		{
			Name:      "remove",
			Usage:     "unsubscribe the bot from a channel's chat",
			ArgsUsage: "<broadcaster-id>...",
			Flags:     twitchFlags,
			Action: func(cctx *cli.Context) error {
				return withEventSub(cctx, func(esm *twitch.EventSubManager) error {
					for _, id := range cctx.Args().Slice() {
						if err := esm.Unsubscribe(cctx.Context, id); err != nil {
							return err
						}
					}
					return nil
				})
			},
		},
		{
			Name:   "teardown",
			Usage:  "delete the conduit and every subscription record",
			Flags:  twitchFlags,
			Action: func(cctx *cli.Context) error {
				return withEventSub(cctx, func(esm *twitch.EventSubManager) error {
					return esm.Cleanup(cctx.Context)
				})
			},
		},
	},
}

func listSubscriptions(cctx *cli.Context) error {
	repo, closeDB, err := openSubscriptions(cctx)
	if err != nil {
		return err
	}
	defer closeDB()

	subs, err := repo.List(cctx.Context)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cctx.App.Writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "BROADCASTER\tSUBSCRIPTION\tCONDUIT\tCREATED")
	for _, s := range subs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.BroadcasterUserID, s.SubscriptionID, s.ConduitID, s.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func withEventSub(cctx *cli.Context, fn func(esm *twitch.EventSubManager) error) error {
	repo, closeDB, err := openSubscriptions(cctx)
	if err != nil {
		return err
	}
	defer closeDB()

	esm, err := twitch.NewEventSubManager(
		cctx.String("client-id"),
		cctx.String("client-secret"),
		repo,
		cctx.String("callback-url"),
		cctx.String("webhook-secret"),
		cctx.String("bot-user-id"),
	)
	if err != nil {
		return err
	}
	if err := esm.Setup(cctx.Context); err != nil {
		return err
	}
	return fn(esm)
}
