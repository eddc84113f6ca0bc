package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/calgrid/internal/config"
	"github.com/janekbaraniewski/calgrid/internal/core"
	"github.com/janekbaraniewski/calgrid/internal/store"
)

func newSetCommand(cfg config.Config, flags *sourceFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "set <yyyy-MM-dd> [value|null]",
		Short: "Write or clear one day's value",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw string
			if len(args) == 2 && !strings.EqualFold(args[1], "null") {
				raw = args[1]
			}
			value, err := core.ParseValue(raw)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			src, closeSource, err := openSource(ctx, cfg, *flags)
			if err != nil {
				return err
			}
			defer closeSource()

			res, err := src.Upsert(ctx, args[0], value)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s\n", res.Action, args[0], displayValue(value))
			return nil
		},
	}
}

func displayValue(v *float64) string {
	if v == nil {
		return "null"
	}
	return core.FormatValue(v)
}

func newImportCommand(cfg config.Config, flags *sourceFlags) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "import <records.json>",
		Short: "Bulk-load a JSON array of records into the SQLite store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("import: read %s: %w", args[0], err)
			}
			var records []core.Record
			if err := json.Unmarshal(data, &records); err != nil {
				return fmt.Errorf("import: decode %s: %w", args[0], err)
			}

			path := firstNonEmpty(dbPath, cfg.Store.SQLitePath)
			if path == "" {
				if path, err = store.DefaultDBPath(); err != nil {
					return err
				}
			}
			db, err := store.OpenSQLite(path)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := db.Import(context.Background(), records)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d records into %s\n", n, len(records), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default from config)")
	return cmd
}
