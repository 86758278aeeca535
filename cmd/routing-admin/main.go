package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// version is overridden at release time via -ldflags "-X main.version=...".
var version = "dev"

// rootOpts holds the connection flags shared by every subcommand.
type rootOpts struct {
	serverURL string
	token     string
	apiKey    string
	timeout   time.Duration
}

func (o *rootOpts) client() *apiClient {
	return newAPIClient(o.serverURL, o.token, o.apiKey, o.timeout)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOpts{}
	var verbose bool

	root := &cobra.Command{
		Use:   "routing-admin",
		Short: "Administer model routings on a running routingd",
		Long: `routing-admin manages per-model area routings over the routingd HTTP
API: inspect and replace routings, check validation and execution
order, snapshot and restore the full routing set, and follow change
notifications live.

Authentication uses --token (or ROUTING_TOKEN) for people and
--api-key (or ROUTING_API_KEY) for machine clients.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.PersistentFlags().StringVar(&opts.serverURL, "server", envOrDefault("ROUTING_SERVER_URL", "http://localhost:8080"), "routingd base URL")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("ROUTING_TOKEN"), "bearer token for authentication")
	root.PersistentFlags().StringVar(&opts.apiKey, "api-key", os.Getenv("ROUTING_API_KEY"), "API key for authentication")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "HTTP request timeout")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(
		newGetCmd(opts),
		newSetCmd(opts),
		newValidateCmd(opts),
		newOrderCmd(opts),
		newDeleteCmd(opts),
		newModelsCmd(opts),
		newExportCmd(opts),
		newBackupCmd(opts),
		newRestoreCmd(opts),
		newWatchCmd(),
		newLoginCmd(opts),
		newHashPasswordCmd(),
		newGenKeyCmd(),
	)

	return root
}

// envOrDefault returns the environment variable value or a fallback.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
