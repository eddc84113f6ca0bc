package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/calgrid/internal/appupdate"
	"github.com/janekbaraniewski/calgrid/internal/config"
	"github.com/janekbaraniewski/calgrid/internal/version"
)

// sourceFlags are shared by every command that reads or writes day values.
type sourceFlags struct {
	backend string
	demo    bool
	rows    int
}

func main() {
	if os.Getenv("CALGRID_DEBUG") != "" {
		log.SetOutput(os.Stderr)
	} else {
		log.SetOutput(io.Discard)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		fmt.Fprintf(os.Stderr, "Config path: %s\n", config.ConfigPath())
		os.Exit(1)
	}

	var flags sourceFlags
	root := cobra.Command{
		Use:          "calgrid",
		Short:        "calgrid is a calendar heatmap and column statistics dashboard for daily values.",
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runDashboard(cfg, flags)
		},
	}
	root.PersistentFlags().StringVar(&flags.backend, "backend", "", "record store: sqlite, redis, daemon or memory (default from config)")
	root.PersistentFlags().BoolVar(&flags.demo, "demo", false, "use a year of generated demo data")
	root.PersistentFlags().IntVar(&flags.rows, "rows", 0, "rows per column (default from settings)")

	root.AddCommand(
		newServeCommand(cfg, &flags),
		newExportCommand(cfg, &flags),
		newSetCommand(cfg, &flags),
		newImportCommand(cfg, &flags),
		newVersionCommand(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCommand() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "calgrid "+version.String())
			if !check {
				return nil
			}
			res, err := appupdate.Check(cmd.Context(), appupdate.Options{CurrentVersion: version.Version})
			if err != nil {
				return err
			}
			switch {
			case res.Current == "":
				fmt.Fprintln(out, "development build, update check skipped")
			case res.UpdateAvailable:
				fmt.Fprintf(out, "update available: %s -> %s\n  %s\n", res.Current, res.Latest, res.Hint)
			default:
				fmt.Fprintln(out, "up to date")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "check for a newer release")
	return cmd
}
