package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/five82/adindex/internal/app"
	"github.com/five82/adindex/internal/logging"
)

func newSessionCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or reset the locally stored session",
	}
	cmd.AddCommand(newSessionShowCmd(flags))
	cmd.AddCommand(newSessionResetCmd(flags))
	return cmd
}

func newSessionShowCmd(flags *rootFlags) *cobra.Command {
	var reveal bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(flags.options())
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			sess, ok := a.Bootstrapper().Stored()
			if !ok {
				_, err := fmt.Fprintln(out, "no stored session")
				return err
			}
			id := sess.SessionID
			if !reveal {
				id = logging.Redact(id)
			}
			_, err = fmt.Fprintf(out, "session  %s\nkey      %s\napi      %s\n", id, sess.VapidPub, a.Config().APIURL)
			return err
		},
	}
	cmd.Flags().BoolVar(&reveal, "reveal", false, "print the full session id")
	return cmd
}

func newSessionResetCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget the stored session and its push subscription",
		Long: "Forget the stored session and its push subscription. The next start asks the\n" +
			"server for a new session; saved queries of the old session are no longer shown.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(flags.options())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Bootstrapper().Forget(a.Context(cmd.Context())); err != nil {
				return fmt.Errorf("reset session: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "session forgotten")
			return err
		},
	}
}
