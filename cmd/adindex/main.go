package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/five82/adindex/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "adindex: %v\n", err)
		return 1
	}
	return 0
}

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configPath string
	apiURL     string
	logLevel   string
}

func (f *rootFlags) options() app.Options {
	return app.Options{ConfigPath: f.configPath, APIURL: f.apiURL, LogLevel: f.logLevel}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	var open string

	root := &cobra.Command{
		Use:           "adindex",
		Short:         "Terminal client for the ad index monitoring service",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(flags.options())
			if err != nil {
				return err
			}
			defer a.Close()
			opts := flags.options()
			opts.InitialPath = open
			return a.Run(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to config file (default ~/.config/adindex/config.toml)")
	root.PersistentFlags().StringVar(&flags.apiURL, "api", "", "override the API base URL")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override the log level (debug, info, warn, error)")
	root.Flags().StringVar(&open, "open", "", `view to open, e.g. "#add" or "#view/12"`)

	root.AddCommand(newSessionCmd(flags))
	root.AddCommand(newLogsCmd(flags))
	root.AddCommand(newVersionCmd())
	return root
}
