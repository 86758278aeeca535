package main

import (
	"github.com/spf13/cobra"

	"github.com/Aaron-1990/line-routing/pkg/logging"
	"github.com/Aaron-1990/line-routing/pkg/notify"
	"github.com/Aaron-1990/line-routing/pkg/pubsub"
)

func newWatchCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow routing change notifications",
		Long: `Subscribe to the routingd change feed and print each event as it
arrives. The feed carries a replace or delete event for every
committed change; rejected writes never appear. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())

			handler := func(evt pubsub.Event) {
				switch evt.Topic {
				case pubsub.TopicRoutingReplaced:
					logger.Infof("%s replaced (%d areas)", evt.ModelID, evt.Areas)
				case pubsub.TopicRoutingDeleted:
					logger.Infof("%s deleted", evt.ModelID)
				default:
					logger.Infof("%s: %s", evt.Topic, evt.ModelID)
				}
			}

			watcher, err := notify.NewWatcher(notify.WatcherConfig{Addr: addr}, handler, logging.NewNopLogger())
			if err != nil {
				return err
			}
			if err := watcher.Start(); err != nil {
				return err
			}
			defer watcher.Stop()

			logger.Infof("Watching %s (Ctrl-C to stop)", addr)
			<-cmd.Context().Done()
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", envOrDefault("ROUTING_NOTIFY_ADDR", notify.DefaultPubAddr), "notify publisher address")
	return cmd
}
