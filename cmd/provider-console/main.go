package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	defer a.close()

	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		if _, werr := fmt.Fprintf(os.Stderr, "Error: %v\n", err); werr != nil {
			fmt.Printf("Error: %v\n", err)
		}
		a.close()
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "provider-console",
		Short:         "Upload provider files and follow their validation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "YAML config file (default $CONFIG_PATH or provider-console.yaml)")
	pf.StringVar(&a.flags.apiURL, "api-url", "", "validation backend base URL")
	pf.StringVar(&a.flags.dbURL, "db", "", "local state store DSN (sqlite file or postgres URL)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&a.flags.logFormat, "log-format", "", "text or json")
	pf.DurationVar(&a.flags.interval, "interval", 0, "poll interval")

	root.AddCommand(
		newUploadCmd(a),
		newIngestDirCmd(a),
		newUseCmd(a),
		newStatusCmd(a),
		newProvidersCmd(a),
		newProviderCmd(a),
		newStatsCmd(a),
		newDownloadCmd(a),
		newEmailCmd(a),
		newHistoryCmd(a),
		newWatchCmd(a),
	)
	return root
}
