package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/five82/adindex/internal/config"
	"github.com/five82/adindex/internal/logtail"
)

func newLogsCmd(flags *rootFlags) *cobra.Command {
	var (
		lines int
		level string
		raw   bool
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the tail of the client log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			tail, err := logtail.Read(cfg.LogFile, lines)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if raw {
				for _, line := range tail {
					fmt.Fprintln(out, line)
				}
				return nil
			}

			entries := make([]logtail.Entry, 0, len(tail))
			for _, line := range tail {
				entries = append(entries, logtail.Parse(line))
			}
			for _, e := range logtail.Filter(entries, level) {
				fmt.Fprintln(out, logtail.Format(e))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 200, "number of lines to read from the end (0 for all)")
	cmd.Flags().StringVar(&level, "level", "", "minimum level to show")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the JSON lines unchanged")
	return cmd
}
