package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"connectme/cmd/connectme/output"
	"connectme/models"
	"connectme/realtime"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the local board in sync until interrupted",
	Long: `Watch polls the remote store and resynchronises after every outage.
When REDIS_ADDR is set, changes published by the server are applied as they arrive.`,
	RunE: withApp(func(ctx context.Context, a *app) error {
		ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return a.engine.Watch(ctx, a.cfg.Client.WatchInterval)
		})

		rdb := realtime.NewClient(a.cfg.Redis)
		if rdb != nil && a.cfg.Redis.Subscribe {
			defer rdb.Close()
			output.Info("subscribed to %s on %s", realtime.Channel, a.cfg.Redis.Addr)
			g.Go(func() error {
				err := realtime.NewSubscriber(rdb).Run(ctx, func(ev models.ChangeEvent) {
					a.engine.Apply(ev)
					output.Muted("%s %s", ev.Type, ev.ID)
				})
				if err != nil && ctx.Err() == nil {
					// Опрос продолжается и без канала изменений.
					output.Warning("change feed stopped: %v", err)
				}
				return nil
			})
		}

		output.Info("watching %s every %s, Ctrl+C to stop", a.cfg.Client.RemoteURL, a.cfg.Client.WatchInterval)
		err := g.Wait()
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		output.Success("stopped with %d post-its, remote store %s", len(a.controller.PostIts()), output.Connection(a.controller.BackendOnline()))
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
