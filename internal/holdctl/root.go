// Package holdctl is the operator CLI for a running availability coordinator.
package holdctl

import (
	"context"
	"encoding/json"
	"fmt"
	"lodgr/pkg/client"
	"lodgr/pkg/config"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

const (
	EnvServer   = "HOLDCTL_SERVER"
	EnvClientID = "HOLDCTL_CLIENT_ID"
)

type globalOptions struct {
	server   string
	secret   string
	clientID string
	timeout  time.Duration
	attempt  time.Duration
	retries  int
}

func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "holdctl",
		Short:         "Inspect and drive unit holds on an availability coordinator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.LoadEnvFile(".env")
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.server, "server", "", "coordinator base URL (env "+EnvServer+", default http://localhost:8080)")
	flags.StringVar(&opts.secret, "signing-secret", "", "HMAC secret for request signing (env API_SIGNING_SECRET)")
	flags.StringVar(&opts.clientID, "client-id", "", "value sent as X-Client-ID (env "+EnvClientID+")")
	flags.DurationVar(&opts.timeout, "timeout", 5*time.Second, "overall deadline for the command")
	flags.DurationVar(&opts.attempt, "attempt-timeout", client.DefaultAttemptTimeout, "deadline for each attempt")
	flags.IntVar(&opts.retries, "retries", client.DefaultMaxRetries, "retries on transient failures (negative disables)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newCheckCmd(opts))
	root.AddCommand(newHoldCmd(opts))
	root.AddCommand(newConfirmCmd(opts))
	root.AddCommand(newReleaseCmd(opts))
	root.AddCommand(newListCmd(opts))

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (o *globalOptions) client() *client.AvailabilityClient {
	server := firstNonEmpty(o.server, os.Getenv(EnvServer), "http://localhost:8080")
	retries := o.retries
	if retries == 0 {
		retries = -1
	}
	return client.NewAvailabilityClient(server, client.Options{
		AttemptTimeout: o.attempt,
		MaxRetries:     retries,
		ClientID:       firstNonEmpty(o.clientID, os.Getenv(EnvClientID), "holdctl"),
		SigningSecret:  firstNonEmpty(o.secret, os.Getenv(config.EnvAPISigningSecret)),
	})
}

func (o *globalOptions) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), o.timeout)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
