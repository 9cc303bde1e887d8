package waveplot

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/tinygo-org/pioscope/present"
)

// NewHTML builds an interactive chart of recs with one series per channel.
func NewHTML(recs []present.Record, title string) (*charts.Line, error) {
	traces := Traces(recs)
	if len(traces) == 0 {
		return nil, ErrNoRecords
	}
	channels := make([]int, 0, len(traces))
	for ch := range traces {
		channels = append(channels, ch)
	}
	sort.Ints(channels)

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "1200px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("channels=%d records=%d", len(channels), len(recs))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Time (ms)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "Channel", Min: -0.25,
			Max: float64(channels[len(channels)-1])*laneHeight + 1.25}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "inside"}),
	)
	for _, ch := range channels {
		xy := traces[ch]
		data := make([]opts.LineData, len(xy))
		for i, p := range xy {
			data[i] = opts.LineData{Value: []interface{}{p.X, p.Y}}
		}
		line.AddSeries(fmt.Sprintf("ch%d", ch), data)
	}
	return line, nil
}

// WriteHTML renders the chart of recs as a standalone HTML page.
func WriteHTML(w io.Writer, recs []present.Record, title string) error {
	line, err := NewHTML(recs, title)
	if err != nil {
		return err
	}
	return line.Render(w)
}

// SaveHTML writes the chart of recs to file.
func SaveHTML(recs []present.Record, title, file string) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	if err := WriteHTML(f, recs, title); err != nil {
		f.Close()
		return fmt.Errorf("save chart: %w", err)
	}
	return f.Close()
}
