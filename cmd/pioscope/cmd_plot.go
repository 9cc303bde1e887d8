//go:build !tinygo

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/plot/vg"

	"github.com/tinygo-org/pioscope/internal/config"
	"github.com/tinygo-org/pioscope/internal/monitor"
	"github.com/tinygo-org/pioscope/internal/waveplot"
	"github.com/tinygo-org/pioscope/present"
)

func newPlotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot <edge-log>",
		Short: "Render an edge log as a chart",
		Long: `Reads an edge log written by the firmware, "monitor" or "sim" and draws one
trace per channel. The image format follows the output extension (png, svg,
pdf); an .html output gets an interactive chart instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlot(cmd, a.cfg, args[0])
		},
	}
	f := cmd.Flags()
	f.StringP("output", "o", "capture.png", "image file")
	f.String("title", "pioscope capture", "chart title")
	a.bind(cmd, "output", "plot.output")
	a.bind(cmd, "title", "plot.title")
	return cmd
}

func runPlot(cmd *cobra.Command, cfg *config.Config, input string) error {
	f, err := os.Open(input)
	if err != nil {
		return err
	}
	defer f.Close()

	var recs []present.Record
	m := &monitor.Monitor{Source: f}
	if err := m.Run(context.Background(), func(r present.Record) error {
		recs = append(recs, r)
		return nil
	}); err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}

	if strings.EqualFold(filepath.Ext(cfg.Plot.Output), ".html") {
		if err := waveplot.SaveHTML(recs, cfg.Plot.Title, cfg.Plot.Output); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d records charted to %s\n", len(recs), cfg.Plot.Output)
		return nil
	}

	opts := waveplot.Options{
		Title:  cfg.Plot.Title,
		Width:  vg.Length(cfg.Plot.WidthIn) * vg.Inch,
		Height: vg.Length(cfg.Plot.HeightIn) * vg.Inch,
	}
	if err := waveplot.Save(recs, opts, cfg.Plot.Output); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d records plotted to %s\n", len(recs), cfg.Plot.Output)
	return nil
}
