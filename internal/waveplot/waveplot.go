// Package waveplot draws edge logs as stacked digital traces.
package waveplot

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/tinygo-org/pioscope/present"
)

// ErrNoRecords is returned when there is nothing to plot.
var ErrNoRecords = errors.New("waveplot: no records")

// laneHeight is the vertical distance between two channel traces. A trace
// swings between its lane base and base+1.
const laneHeight = 1.5

// Options controls the rendered chart.
type Options struct {
	Title  string
	Width  vg.Length
	Height vg.Length
}

// DefaultOptions returns a 10x4 inch chart.
func DefaultOptions() Options {
	return Options{Title: "pioscope capture", Width: 10 * vg.Inch, Height: 4 * vg.Inch}
}

// Traces turns records into one step trace per channel, keyed by channel.
// Time is in milliseconds. A trace starts at the earliest record at the
// opposite of its channel's first value, since each record is a change, and
// is held until the latest one.
func Traces(recs []present.Record) map[int]plotter.XYs {
	if len(recs) == 0 {
		return nil
	}
	sorted := make([]present.Record, len(recs))
	copy(sorted, recs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp < sorted[j].Timestamp })
	start := ms(sorted[0])
	end := ms(sorted[len(sorted)-1])

	traces := make(map[int]plotter.XYs)
	levels := make(map[int]float64)
	for _, r := range sorted {
		xy, ok := traces[r.Channel]
		base := float64(r.Channel) * laneHeight
		if !ok {
			before := base
			if !r.Value {
				before = base + 1
			}
			xy = plotter.XYs{{X: start, Y: before}}
			levels[r.Channel] = before
		}
		y := base
		if r.Value {
			y = base + 1
		}
		t := ms(r)
		xy = append(xy, plotter.XY{X: t, Y: levels[r.Channel]}, plotter.XY{X: t, Y: y})
		levels[r.Channel] = y
		traces[r.Channel] = xy
	}
	for ch, xy := range traces {
		traces[ch] = append(xy, plotter.XY{X: end, Y: levels[ch]})
	}
	return traces
}

func ms(r present.Record) float64 {
	return float64(r.Timestamp.Microseconds()) / 1000
}

// New builds the chart for recs.
func New(recs []present.Record, opts Options) (*plot.Plot, error) {
	traces := Traces(recs)
	if len(traces) == 0 {
		return nil, ErrNoRecords
	}
	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "Time (ms)"
	p.Y.Label.Text = "Channel"

	channels := make([]int, 0, len(traces))
	for ch := range traces {
		channels = append(channels, ch)
	}
	sort.Ints(channels)

	ticks := make([]plot.Tick, 0, len(channels))
	for i, ch := range channels {
		line, err := plotter.NewLine(traces[ch])
		if err != nil {
			return nil, fmt.Errorf("channel %d trace: %w", ch, err)
		}
		line.Width = vg.Points(1)
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("ch%d", ch), line)
		ticks = append(ticks, plot.Tick{Value: float64(ch)*laneHeight + 0.5, Label: fmt.Sprintf("%d", ch)})
	}
	p.Y.Tick.Marker = plot.ConstantTicks(ticks)
	p.Y.Min = -0.25
	p.Y.Max = float64(channels[len(channels)-1])*laneHeight + 1.25
	p.Legend.Top = true
	p.Legend.Left = false
	return p, nil
}

// Save renders recs to file. The image format follows the file extension.
func Save(recs []present.Record, opts Options, file string) error {
	p, err := New(recs, opts)
	if err != nil {
		return err
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		def := DefaultOptions()
		opts.Width, opts.Height = def.Width, def.Height
	}
	if err := p.Save(opts.Width, opts.Height, file); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}
