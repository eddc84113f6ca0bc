package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/calgrid/internal/calendar"
	"github.com/janekbaraniewski/calgrid/internal/config"
	"github.com/janekbaraniewski/calgrid/internal/export"
	"github.com/janekbaraniewski/calgrid/internal/settings"
)

func newExportCommand(cfg config.Config, flags *sourceFlags) *cobra.Command {
	var (
		out    string
		width  float64
		height float64
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the grid, chart and heatmap as SVG",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			src, closeSource, err := openSource(ctx, cfg, *flags)
			if err != nil {
				return err
			}
			defer closeSource()

			prefs, err := settings.Load()
			if err != nil {
				log.Printf("calgrid level=warn event=load_settings err=%v", err)
			}
			if flags.rows > 0 {
				prefs.Rows = flags.rows
			}

			cal := calendar.NewModel(nil)
			if flags.demo {
				if err := cal.AddDemoOverlay(); err != nil {
					return err
				}
			}

			frame, err := export.Snapshot(ctx, src, cfg.Grid, prefs, width, height, cal)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("export: create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			return export.SVG(w, frame, cfg.Grid)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().Float64Var(&width, "width", 1200, "viewport width in pixels")
	cmd.Flags().Float64Var(&height, "height", 600, "viewport height in pixels")
	return cmd
}
